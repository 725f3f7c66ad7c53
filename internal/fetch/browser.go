package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// MinContentLength is the shortest extracted text accepted from plain HTTP
// before a browser render is attempted.
const MinContentLength = 500

// DefaultRenderTimeout bounds one browser render.
const DefaultRenderTimeout = 30 * time.Second

// RenderFunc renders a page and returns its HTML.
type RenderFunc func(ctx context.Context, url string) (string, error)

// NeedsRender reports whether text is too short to be a real posting.
func NeedsRender(text string) bool {
	return len(strings.TrimSpace(text)) < MinContentLength
}

// BrowserRenderer returns a RenderFunc backed by headless Chrome. Chrome or
// Chromium must be installed.
func BrowserRenderer(timeout time.Duration) RenderFunc {
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}
	return func(ctx context.Context, url string) (string, error) {
		return renderWithBrowser(ctx, url, timeout)
	}
}

func renderWithBrowser(ctx context.Context, url string, timeout time.Duration) (string, error) {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(DefaultUserAgent),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		// Client-side boards render the description after load.
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser rendering failed: %w", err)
	}
	return html, nil
}
