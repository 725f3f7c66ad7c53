// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Call records one Complete invocation.
type Call struct {
	Prompt  string
	ModelID string
}

// Responder produces the reply for a prompt.
type Responder func(ctx context.Context, prompt, modelID string) (string, error)

// Client answers prompts by matching a marker substring in the prompt.
// Rules are checked in registration order; the first marker found wins.
// Each rule may hold a queue of replies, consumed one per matching call;
// the last reply repeats once the queue is drained.
type Client struct {
	mu    sync.Mutex
	rules []*rule
	calls []Call
}

type rule struct {
	marker  string
	replies []Responder
	next    int
}

// New returns an empty scripted client.
func New() *Client {
	return &Client{}
}

// On registers replies for prompts containing marker.
func (c *Client) On(marker string, replies ...string) *Client {
	rs := make([]Responder, len(replies))
	for i, r := range replies {
		reply := r
		rs[i] = func(context.Context, string, string) (string, error) { return reply, nil }
	}
	return c.OnFunc(marker, rs...)
}

// OnFunc registers responder functions for prompts containing marker.
func (c *Client) OnFunc(marker string, replies ...Responder) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = append(c.rules, &rule{marker: marker, replies: replies})
	return c
}

// Complete implements llm.Client.
func (c *Client) Complete(ctx context.Context, prompt, modelID string) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, Call{Prompt: prompt, ModelID: modelID})
	var responder Responder
	for _, r := range c.rules {
		if strings.Contains(prompt, r.marker) && len(r.replies) > 0 {
			idx := r.next
			if idx >= len(r.replies) {
				idx = len(r.replies) - 1
			} else {
				r.next++
			}
			responder = r.replies[idx]
			break
		}
	}
	c.mu.Unlock()

	if responder == nil {
		return "", fmt.Errorf("llmtest: no rule matches prompt %q", truncate(prompt, 80))
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return responder(ctx, prompt, modelID)
}

// Close implements llm.Client.
func (c *Client) Close() error {
	return nil
}

// Calls returns a copy of the recorded calls.
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// CallsMatching counts recorded calls whose prompt contains marker.
func (c *Client) CallsMatching(marker string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if strings.Contains(call.Prompt, marker) {
			n++
		}
	}
	return n
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
