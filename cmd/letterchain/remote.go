package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/pynay/LetterChain/internal/pipeline"
	"github.com/pynay/LetterChain/internal/server"
	"github.com/pynay/LetterChain/internal/stream"
)

// remoteClient runs workflows against a letterchain server's streaming routes.
type remoteClient struct {
	baseURL string
	http    *http.Client
}

func newRemote(baseURL string) *remoteClient {
	return &remoteClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
}

// RemoteError is an error reported by the server.
type RemoteError struct {
	Status  int
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("server error (%d %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("server error (%s): %s", e.Code, e.Message)
}

func (c *remoteClient) Generate(ctx context.Context, req server.GenerateRequest, onProgress pipeline.ProgressCallback) (*pipeline.Result, error) {
	return c.run(ctx, "/generate/stream", req, onProgress)
}

func (c *remoteClient) Feedback(ctx context.Context, req server.FeedbackRequest, onProgress pipeline.ProgressCallback) (*pipeline.Result, error) {
	return c.run(ctx, "/feedback/stream", req, onProgress)
}

func (c *remoteClient) run(ctx context.Context, path string, body any, onProgress pipeline.ProgressCallback) (*pipeline.Result, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeRemoteError(resp)
	}

	dec := stream.NewDecoder(resp.Body)
	for {
		env, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("stream ended without a result")
		}
		if err != nil {
			return nil, err
		}

		switch env.Type {
		case stream.TypeStatus:
			if onProgress != nil {
				onProgress(statusEvent(env))
			}
		case stream.TypeResult:
			if env.Result == nil {
				return nil, fmt.Errorf("result envelope has no result")
			}
			return env.Result, nil
		case stream.TypeError:
			return nil, &RemoteError{Code: env.Code, Message: env.Message}
		}
	}
}

func statusEvent(env stream.Envelope) pipeline.Event {
	ev := pipeline.Event{
		Type:    pipeline.EventStatus,
		Step:    pipeline.StepName(env.Step),
		Attempt: env.Attempt,
		Message: env.Message,
	}
	if id, err := uuid.Parse(env.RunID); err == nil {
		ev.RunID = id
	}
	return ev
}

func decodeRemoteError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body server.ErrorResponse
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		return &RemoteError{Status: resp.StatusCode, Code: "unknown", Message: strings.TrimSpace(string(data))}
	}
	return &RemoteError{Status: resp.StatusCode, Code: body.Code, Message: body.Error}
}
