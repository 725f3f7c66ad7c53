package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pynay/LetterChain/internal/cache"
	"github.com/pynay/LetterChain/internal/db"
	"github.com/pynay/LetterChain/internal/fetch"
	"github.com/pynay/LetterChain/internal/llm"
	"github.com/pynay/LetterChain/internal/llm/llmtest"
	"github.com/pynay/LetterChain/internal/pipeline"
	"github.com/pynay/LetterChain/internal/server/ratelimit"
	"github.com/pynay/LetterChain/internal/stream"
	"github.com/pynay/LetterChain/internal/types"
)

const (
	markerJob      = "TASK: parse-job"
	markerResume   = "TASK: parse-resume"
	markerMatch    = "TASK: match-experiences"
	markerGenerate = "TASK: generate-letter"
	markerValidate = "TASK: validate-letter"

	letter = "Dear Hiring Manager at Acme, ..."

	resumeText = "Ada Lovelace. Software Engineer at Globex building payment APIs in Go."
	jobText    = "Acme is hiring a Backend Engineer to build payment APIs."
)

func happyClient() *llmtest.Client {
	return llmtest.New().
		On(markerJob, `{"title": "Backend Engineer", "company": "Acme", "required_skills": ["Go"], "values": [], "summary": ""}`).
		On(markerResume, `{"name": "Ada Lovelace", "summary": "", "experiences": [{"title": "Software Engineer", "org": "Globex", "description": "Payment APIs"}], "skills": ["Go"], "education": []}`).
		On(markerMatch, `{"matches": [{"title": "Software Engineer", "org": "Globex", "rationale": "Go payment APIs"}]}`).
		On(markerGenerate, letter).
		On(markerValidate, `{"valid": true, "issues": []}`)
}

func newTestServer(t *testing.T, client llm.Client, mutate func(*Config)) *Server {
	t.Helper()
	ctrl, err := pipeline.NewController(pipeline.NewSteps(client, llm.DefaultConfig(), nil, nil), pipeline.Options{})
	require.NoError(t, err)

	cfg := Config{Workflow: ctrl}
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(s.stopLimiter)
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestNew_RequiresWorkflow(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, happyClient(), nil)
	rec := doJSON(t, s, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestHealth_DatabaseDown(t *testing.T) {
	s := newTestServer(t, happyClient(), func(c *Config) { c.Health = fakePinger{err: errors.New("down")} })
	rec := doJSON(t, s, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unreachable")
}

func TestGenerate_JSON(t *testing.T) {
	client := happyClient()
	s := newTestServer(t, client, nil)

	rec := doJSON(t, s, http.MethodPost, "/generate", GenerateRequest{ResumeText: resumeText, JobText: jobText, Tone: "confident"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res pipeline.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, letter, res.CoverLetter)
	assert.Equal(t, 1, res.Attempts)
	assert.False(t, res.BestEffort)
	require.NotNil(t, res.Snapshot.JobProfile)
	assert.Equal(t, "Acme", res.Snapshot.JobProfile.Company)
	assert.Len(t, client.Calls(), 5)
}

func TestGenerate_InvalidJSON(t *testing.T) {
	s := newTestServer(t, happyClient(), nil)
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{"resume_text":`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, stream.CodeInvalidInput, body.Code)
	assert.Equal(t, "body", body.Field)
}

func TestGenerate_BlankResume(t *testing.T) {
	client := happyClient()
	s := newTestServer(t, client, nil)

	rec := doJSON(t, s, http.MethodPost, "/generate", GenerateRequest{ResumeText: "   ", JobText: jobText})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "resume_text", body.Field)
	assert.Equal(t, stream.CodeInvalidInput, body.Code)
	assert.Empty(t, client.Calls())
}

func TestGenerate_BadJobURL(t *testing.T) {
	s := newTestServer(t, happyClient(), nil)
	rec := doJSON(t, s, http.MethodPost, "/generate", GenerateRequest{ResumeText: resumeText, JobURL: "ftp://example.com/job"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "job_url", decodeError(t, rec).Field)
}

type fakePostings struct {
	text string
	err  error
	urls []string
}

func (f *fakePostings) Fetch(_ context.Context, url string) (*fetch.Posting, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}
	return &fetch.Posting{URL: url, Text: f.text}, nil
}

func TestGenerate_JobURL(t *testing.T) {
	client := happyClient()
	postings := &fakePostings{text: "Fetched posting: Acme wants a Go engineer for payments."}
	s := newTestServer(t, client, func(c *Config) { c.Postings = postings })

	rec := doJSON(t, s, http.MethodPost, "/generate", GenerateRequest{ResumeText: resumeText, JobURL: "https://boards.greenhouse.io/acme/jobs/1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, []string{"https://boards.greenhouse.io/acme/jobs/1"}, postings.urls)
	var found bool
	for _, call := range client.Calls() {
		if strings.Contains(call.Prompt, markerJob) && strings.Contains(call.Prompt, "Fetched posting") {
			found = true
		}
	}
	assert.True(t, found, "job parse prompt should carry the fetched text")
}

func TestGenerate_JobURLFetchFails(t *testing.T) {
	client := happyClient()
	postings := &fakePostings{err: &fetch.Error{URL: "https://example.com", Message: "HTTP 404"}}
	s := newTestServer(t, client, func(c *Config) { c.Postings = postings })

	rec := doJSON(t, s, http.MethodPost, "/generate", GenerateRequest{ResumeText: resumeText, JobURL: "https://example.com"})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, CodeFetchFailed, decodeError(t, rec).Code)
	assert.Empty(t, client.Calls())
}

func TestGenerate_JobURLWithoutFetcher(t *testing.T) {
	s := newTestServer(t, happyClient(), nil)
	rec := doJSON(t, s, http.MethodPost, "/generate", GenerateRequest{ResumeText: resumeText, JobURL: "https://example.com/job"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "job_url", decodeError(t, rec).Field)
}

func multipartRequest(t *testing.T, path string, files map[string][2]string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, file := range files {
		fw, err := mw.CreateFormFile(field, file[0])
		require.NoError(t, err)
		_, err = fw.Write([]byte(file[1]))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestGenerate_MultipartUpload(t *testing.T) {
	client := happyClient()
	s := newTestServer(t, client, nil)

	req := multipartRequest(t, "/generate",
		map[string][2]string{"resume": {"resume.md", "# Ada Lovelace\n\n• Uploaded resume line about Go payment APIs"}},
		map[string]string{"job_text": jobText, "tone": "emotional"},
	)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var found bool
	for _, call := range client.Calls() {
		if strings.Contains(call.Prompt, markerResume) && strings.Contains(call.Prompt, "- Uploaded resume line") {
			found = true
		}
	}
	assert.True(t, found, "resume parse prompt should carry the cleaned upload")
}

func TestGenerate_MultipartUnsupportedFile(t *testing.T) {
	client := happyClient()
	s := newTestServer(t, client, nil)

	req := multipartRequest(t, "/generate",
		map[string][2]string{"resume": {"resume.exe", "MZ..."}},
		map[string]string{"job_text": jobText},
	)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Equal(t, CodeInvalidUpload, decodeError(t, rec).Code)
	assert.Empty(t, client.Calls())
}

func TestGenerate_StepFailure(t *testing.T) {
	client := llmtest.New().OnFunc(markerJob, func(context.Context, string, string) (string, error) {
		return "", &llm.CompletionError{Provider: llm.ProviderGemini, Model: "m", Timeout: true, Cause: context.DeadlineExceeded}
	})
	s := newTestServer(t, client, nil)

	rec := doJSON(t, s, http.MethodPost, "/generate", GenerateRequest{ResumeText: resumeText, JobText: jobText})

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, stream.CodeTimeout, decodeError(t, rec).Code)
}

func readNDJSON(t *testing.T, body io.Reader) []stream.Envelope {
	t.Helper()
	dec := stream.NewDecoder(body)
	var envs []stream.Envelope
	for {
		env, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		envs = append(envs, env)
	}
	require.True(t, dec.Ended(), "stream should end with the sentinel")
	return envs
}

func TestGenerateStream_NDJSON(t *testing.T) {
	s := newTestServer(t, happyClient(), nil)
	rec := doJSON(t, s, http.MethodPost, "/generate/stream", GenerateRequest{ResumeText: resumeText, JobText: jobText})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))

	envs := readNDJSON(t, rec.Body)
	require.Len(t, envs, 6)
	var steps []string
	for _, env := range envs[:5] {
		assert.Equal(t, stream.TypeStatus, env.Type)
		steps = append(steps, env.Step)
	}
	assert.Equal(t, []string{
		string(pipeline.StepJobParse), string(pipeline.StepResumeParse), string(pipeline.StepMatch),
		string(pipeline.StepGenerate), string(pipeline.StepValidate),
	}, steps)

	last := envs[5]
	assert.Equal(t, stream.TypeResult, last.Type)
	require.NotNil(t, last.Result)
	assert.Equal(t, letter, last.Result.CoverLetter)
	assert.Equal(t, last.Result.RunID.String(), last.RunID)
}

func TestGenerateStream_InputErrorIsStreamed(t *testing.T) {
	s := newTestServer(t, happyClient(), nil)
	rec := doJSON(t, s, http.MethodPost, "/generate/stream", GenerateRequest{ResumeText: resumeText})

	require.Equal(t, http.StatusOK, rec.Code)
	envs := readNDJSON(t, rec.Body)
	require.Len(t, envs, 1)
	assert.Equal(t, stream.TypeError, envs[0].Type)
	assert.Equal(t, stream.CodeInvalidInput, envs[0].Code)
}

func TestGenerateStream_SSE(t *testing.T) {
	s := newTestServer(t, happyClient(), nil)
	rec := doJSON(t, s, http.MethodPost, "/generate/stream", GenerateRequest{ResumeText: resumeText, JobText: jobText}, "Accept", "text/event-stream")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Equal(t, 5, strings.Count(body, "event: status\n"))
	assert.Equal(t, 1, strings.Count(body, "event: result\n"))
	assert.True(t, strings.HasSuffix(body, "event: end\ndata: {\"v\":1,\"type\":\"end\"}\n\n"))
}

func TestGenerateStream_RequestErrorIsJSON(t *testing.T) {
	s := newTestServer(t, happyClient(), nil)
	rec := doJSON(t, s, http.MethodPost, "/generate/stream", GenerateRequest{ResumeText: resumeText, Tone: strings.Repeat("x", 501)})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "tone", decodeError(t, rec).Field)
}

func feedbackBody() FeedbackRequest {
	return FeedbackRequest{
		GenerateRequest: GenerateRequest{ResumeText: resumeText, JobText: jobText},
		PreviousLetter:  "Dear Sir or Madam, ...",
		Feedback:        "Mention the payments work first",
		Snapshot: &pipeline.Snapshot{
			JobProfile:    &types.JobProfile{Title: "Backend Engineer", Company: "Acme"},
			ResumeProfile: &types.ResumeProfile{Name: "Ada Lovelace"},
			Matches:       []types.MatchedExperience{},
		},
	}
}

func TestFeedback_WithSnapshot(t *testing.T) {
	client := happyClient()
	s := newTestServer(t, client, nil)

	rec := doJSON(t, s, http.MethodPost, "/feedback", feedbackBody())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, 0, client.CallsMatching(markerJob))
	assert.Equal(t, 0, client.CallsMatching(markerResume))
	assert.Equal(t, 0, client.CallsMatching(markerMatch))
	assert.Equal(t, 1, client.CallsMatching(markerGenerate))
	assert.Equal(t, 1, client.CallsMatching(markerValidate))

	for _, call := range client.Calls() {
		if strings.Contains(call.Prompt, markerGenerate) {
			assert.Contains(t, call.Prompt, "Mention the payments work first")
		}
	}
}

func TestFeedback_MissingFeedback(t *testing.T) {
	client := happyClient()
	s := newTestServer(t, client, nil)

	body := feedbackBody()
	body.Feedback = ""
	rec := doJSON(t, s, http.MethodPost, "/feedback", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "feedback", decodeError(t, rec).Field)
	assert.Empty(t, client.Calls())
}

func TestFeedbackStream(t *testing.T) {
	s := newTestServer(t, happyClient(), nil)
	rec := doJSON(t, s, http.MethodPost, "/feedback/stream", feedbackBody())

	require.Equal(t, http.StatusOK, rec.Code)
	envs := readNDJSON(t, rec.Body)
	require.Len(t, envs, 3)
	assert.Equal(t, string(pipeline.StepGenerate), envs[0].Step)
	assert.Equal(t, string(pipeline.StepValidate), envs[1].Step)
	assert.Equal(t, stream.TypeResult, envs[2].Type)
}

type fakeRuns struct {
	runs map[uuid.UUID]*db.Run
	err  error
}

func (f fakeRuns) GetRun(_ context.Context, id uuid.UUID) (*db.Run, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.runs[id], nil
}

func TestGetRun(t *testing.T) {
	id := uuid.New()
	runs := fakeRuns{runs: map[uuid.UUID]*db.Run{
		id: {ID: id, Kind: "generate", Status: db.RunStatusAccepted, Attempts: 1, CreatedAt: time.Now()},
	}}
	s := newTestServer(t, happyClient(), func(c *Config) { c.Runs = runs })

	rec := doJSON(t, s, http.MethodGet, "/runs/"+id.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var run db.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, id, run.ID)
	assert.Equal(t, db.RunStatusAccepted, run.Status)

	rec = doJSON(t, s, http.MethodGet, "/runs/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/runs/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRun_StoreError(t *testing.T) {
	s := newTestServer(t, happyClient(), func(c *Config) { c.Runs = fakeRuns{err: errors.New("connection refused")} })
	rec := doJSON(t, s, http.MethodGet, "/runs/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestGetRun_NotEnabled(t *testing.T) {
	s := newTestServer(t, happyClient(), nil)
	rec := doJSON(t, s, http.MethodGet, "/runs/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Equal(t, CodeNotEnabled, decodeError(t, rec).Code)
}

type fakeStats cache.Stats

func (f fakeStats) Stats() cache.Stats { return cache.Stats(f) }

func TestCacheStats(t *testing.T) {
	s := newTestServer(t, happyClient(), nil)
	rec := doJSON(t, s, http.MethodGet, "/cache/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"enabled":false,"hits":0,"misses":0,"fills":0,"shared":0,"errors":0}`, rec.Body.String())

	s = newTestServer(t, happyClient(), func(c *Config) { c.Cache = fakeStats{Hits: 3, Misses: 1, Fills: 1} })
	rec = doJSON(t, s, http.MethodGet, "/cache/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body CacheStatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Enabled)
	assert.Equal(t, int64(3), body.Hits)
}

func TestExtract(t *testing.T) {
	s := newTestServer(t, happyClient(), nil)
	req := multipartRequest(t, "/extract", map[string][2]string{"file": {"resume.txt", "Ada Lovelace\n\n\n\nEngineer"}}, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Text       string `json:"text"`
		Characters int    `json:"characters"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Ada Lovelace\n\nEngineer", body.Text)
	assert.Equal(t, 22, body.Characters)
}

func TestExtract_MissingFile(t *testing.T) {
	s := newTestServer(t, happyClient(), nil)
	req := multipartRequest(t, "/extract", nil, map[string]string{"other": "x"})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "file", decodeError(t, rec).Field)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, happyClient(), func(c *Config) {
		c.RateLimit = &ratelimit.Config{
			Enabled: true,
			EndpointConfigs: []ratelimit.EndpointConfig{
				{Path: "/generate", Method: "POST", Limit: 1, Window: time.Hour, Burst: 1},
			},
		}
	})

	body := GenerateRequest{ResumeText: resumeText, JobText: jobText}
	rec := doJSON(t, s, http.MethodPost, "/generate", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	rec = doJSON(t, s, http.MethodPost, "/generate", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, CodeRateLimited, decodeError(t, rec).Code)

	// Other routes keep working.
	rec = doJSON(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, happyClient(), nil)
	rec := doJSON(t, s, http.MethodOptions, "/generate", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
