package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pynay/LetterChain/internal/cache"
	"github.com/pynay/LetterChain/internal/extraction"
)

// DefaultPostingTTL is how long fetched posting text stays cached.
const DefaultPostingTTL = 6 * time.Hour

// Posting is the cleaned text of a job posting page.
type Posting struct {
	URL      string   `json:"url"`
	Platform Platform `json:"platform"`
	Text     string   `json:"text"`
	Rendered bool     `json:"rendered"`
	Cached   bool     `json:"-"`
}

// PostingFetcher fetches job postings with optional browser fallback and caching.
type PostingFetcher struct {
	// HTTP configures the plain request; nil uses DefaultOptions.
	HTTP *Options
	// Render, when set, renders pages whose HTTP text is too short.
	Render RenderFunc
	// Cache, when set, stores posting text keyed by URL.
	Cache    cache.Store
	CacheTTL time.Duration
	Logger   *slog.Logger
}

func (f *PostingFetcher) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return f.Logger
}

// Fetch returns the posting at urlStr. A failed browser render falls back to
// the HTTP text; an empty result is an error.
func (f *PostingFetcher) Fetch(ctx context.Context, urlStr string) (*Posting, error) {
	if err := ValidateURL(urlStr); err != nil {
		return nil, err
	}
	log := f.logger().With("url", urlStr)
	key := postingKey(urlStr)

	if f.Cache != nil {
		if raw, ok, err := f.Cache.Get(ctx, key); err != nil {
			log.Warn("posting cache read failed", "error", err)
		} else if ok {
			var p Posting
			if err := json.Unmarshal(raw, &p); err == nil && p.Text != "" {
				p.Cached = true
				log.Debug("posting served from cache")
				return &p, nil
			}
		}
	}

	platform := DetectPlatform(urlStr)
	content := PlatformContentSelectors(platform)
	noise := PlatformNoiseSelectors(platform)

	res, err := URL(ctx, urlStr, f.HTTP)
	if err != nil {
		return nil, err
	}
	text, err := ExtractMainText(res.HTML, content, noise...)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "content extraction failed", Cause: err}
	}
	log.Debug("fetched posting", "platform", platform, "html_bytes", len(res.HTML), "text_chars", len(text))

	posting := &Posting{URL: urlStr, Platform: platform}
	if f.Render != nil && NeedsRender(text) {
		log.Info("posting text is short, rendering in browser", "text_chars", len(text))
		html, renderErr := f.Render(ctx, urlStr)
		if renderErr != nil {
			log.Warn("browser render failed, using HTTP text", "error", renderErr)
		} else if rendered, exErr := ExtractMainText(html, content, noise...); exErr == nil && len(rendered) > len(text) {
			text = rendered
			posting.Rendered = true
		}
	}

	posting.Text = extraction.CleanText(text)
	if posting.Text == "" {
		return nil, &Error{URL: urlStr, Message: "no posting text found"}
	}

	if f.Cache != nil {
		ttl := f.CacheTTL
		if ttl <= 0 {
			ttl = DefaultPostingTTL
		}
		if raw, err := json.Marshal(posting); err == nil {
			if err := f.Cache.Set(ctx, key, raw, ttl); err != nil {
				log.Warn("posting cache write failed", "error", err)
			}
		}
	}
	return posting, nil
}

func postingKey(urlStr string) string {
	sum := sha256.Sum256([]byte(urlStr))
	return fmt.Sprintf("posting:%s", hex.EncodeToString(sum[:]))
}
