package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/repcoach/internal/domain/model"
	"github.com/okian/repcoach/internal/domain/pose"
	"github.com/okian/repcoach/internal/domain/session"
)

const (
	// backpressureDelay paces retries after a 429 on frame submit.
	backpressureDelay = 20 * time.Millisecond
	maxFrameAttempts  = 50
)

// Client talks to a running repcoach server.
type Client struct {
	client  *http.Client
	baseURL string
}

// NewClient creates a client with timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// ackResponse is the frame submit acknowledgement.
type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Health checks the server is up.
func (c *Client) Health(ctx context.Context) error {
	status, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("health check: unexpected status %d", status)
	}
	return nil
}

// Open starts a session for ex.
func (c *Client) Open(ctx context.Context, ex model.Exercise) (session.Snapshot, error) {
	var snap session.Snapshot
	status, err := c.do(ctx, http.MethodPost, "/sessions", ex, &snap)
	if err != nil {
		return snap, err
	}
	if status != http.StatusCreated {
		return snap, fmt.Errorf("open session: unexpected status %d", status)
	}
	return snap, nil
}

// Submit posts one frame, retrying while the server applies backpressure.
// It reports whether the server had already seen the frame.
func (c *Client) Submit(ctx context.Context, id string, f pose.Frame) (bool, error) {
	for range maxFrameAttempts {
		var ack ackResponse
		status, err := c.do(ctx, http.MethodPost, "/sessions/"+id+"/frames", f, &ack)
		if err != nil {
			return false, err
		}
		switch status {
		case http.StatusAccepted:
			return false, nil
		case http.StatusOK:
			return ack.Duplicate, nil
		case http.StatusTooManyRequests:
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(backpressureDelay):
			}
		default:
			return false, fmt.Errorf("submit frame %d: unexpected status %d", f.Seq, status)
		}
	}
	return false, fmt.Errorf("submit frame %d: server kept refusing", f.Seq)
}

// Snapshot fetches the session state.
func (c *Client) Snapshot(ctx context.Context, id string) (session.Snapshot, error) {
	var snap session.Snapshot
	status, err := c.do(ctx, http.MethodGet, "/sessions/"+id, nil, &snap)
	if err != nil {
		return snap, err
	}
	if status != http.StatusOK {
		return snap, fmt.Errorf("get session: unexpected status %d", status)
	}
	return snap, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, into any) (int, error) {
	var rd io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if into != nil && resp.StatusCode < http.StatusBadRequest {
		if err := json.Unmarshal(data, into); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

// RunRemote opens a session on the server, posts every frame of src and
// waits until the server has processed them.
func RunRemote(ctx context.Context, cfg *Config, src pose.Source) (Stats, error) {
	out := cfg.Out
	if out == nil {
		out = io.Discard
	}
	frames, err := ReadAll(ctx, src)
	if c, ok := src.(io.Closer); ok {
		_ = c.Close()
	}
	if err != nil {
		return Stats{}, err
	}

	start := time.Now()
	c := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := c.Health(ctx); err != nil {
		return Stats{}, err
	}
	snap, err := c.Open(ctx, cfg.Exercise)
	if err != nil {
		return Stats{}, err
	}
	fmt.Fprintf(out, "opened session %s (%s)\n", snap.ID, snap.Family)

	var stats Stats
	var lastSeq uint64
	for _, f := range frames {
		dup, err := c.Submit(ctx, snap.ID, f)
		if err != nil {
			return stats, err
		}
		stats.Frames++
		if dup {
			stats.Duplicates++
		}
		if f.Seq > lastSeq {
			lastSeq = f.Seq
		}
	}

	snap, err = waitProcessed(ctx, c, snap.ID, lastSeq)
	if err != nil {
		return stats, err
	}
	stats.Reps = snap.RepCount
	stats.Completed = snap.Completed
	stats.Duration = time.Since(start)
	fmt.Fprintf(out, "reps %d/%d  %s\n", snap.RepCount, snap.TargetReps, snap.Feedback.Message)
	return stats, nil
}

func waitProcessed(ctx context.Context, c *Client, id string, seq uint64) (session.Snapshot, error) {
	ticker := time.NewTicker(backpressureDelay)
	defer ticker.Stop()
	for {
		snap, err := c.Snapshot(ctx, id)
		if err != nil || snap.LastSeq >= seq || snap.Completed {
			return snap, err
		}
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-ticker.C:
		}
	}
}
