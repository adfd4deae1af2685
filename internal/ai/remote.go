package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds every call to an AI endpoint.
const DefaultTimeout = 60 * time.Second

// RemoteClient talks to the AI backend service (POST /grade, POST /ask).
type RemoteClient struct {
	baseURL string
	http    *http.Client
}

// NewRemote creates a client for the AI backend at baseURL.
func NewRemote(baseURL string, timeout time.Duration) *RemoteClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RemoteClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse is the body returned by POST /ask.
type AskResponse struct {
	Answer string `json:"answer"`
}

// Grade implements Grader.
func (c *RemoteClient) Grade(ctx context.Context, req GradeRequest) (GradeResult, error) {
	var res GradeResult
	if err := c.post(ctx, "/grade", req, &res); err != nil {
		return GradeResult{}, err
	}
	return res, nil
}

// Ask implements Advisor.
func (c *RemoteClient) Ask(ctx context.Context, question string) (string, error) {
	var res AskResponse
	if err := c.post(ctx, "/ask", AskRequest{Question: question}, &res); err != nil {
		return "", err
	}
	return res.Answer, nil
}

func (c *RemoteClient) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build %s request: %v", ErrBackend, path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: call %s: %v", ErrBackend, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read %s response: %v", ErrBackend, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s returned status %d: %s", ErrBackend, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: parse %s response: %v", ErrBackend, path, err)
	}
	return nil
}
