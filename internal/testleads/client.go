package testleads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	service "github.com/Bizoholic-Digital/leadscore/internal/app"
	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
	"github.com/Bizoholic-Digital/leadscore/internal/domain/types"
)

// ErrRejected marks a request the service answered with a 4xx status.
var ErrRejected = errors.New("request rejected")

// Client talks to the lead scoring HTTP API.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for baseURL with a per request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

type enqueueBody struct {
	SignalID string           `json:"signal_id"`
	Lead     model.LeadRecord `json:"lead"`
	UseAI    bool             `json:"use_ai"`
}

type scoreBody struct {
	Lead  model.LeadRecord `json:"lead"`
	UseAI bool             `json:"use_ai"`
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// Enqueue submits a lead for asynchronous scoring.
func (c *Client) Enqueue(ctx context.Context, signalID string, lead model.LeadRecord, useAI bool) (types.EnqueueAck, error) {
	var ack types.EnqueueAck
	err := c.do(ctx, http.MethodPost, "/v1/leads/enqueue", enqueueBody{SignalID: signalID, Lead: lead, UseAI: useAI}, &ack)
	return ack, err
}

// Score scores a lead synchronously.
func (c *Client) Score(ctx context.Context, lead model.LeadRecord, useAI bool) (model.ScoringResult, error) {
	var res model.ScoringResult
	err := c.do(ctx, http.MethodPost, "/v1/leads/score", scoreBody{Lead: lead, UseAI: useAI}, &res)
	return res, err
}

// Top fetches the n highest scored leads.
func (c *Client) Top(ctx context.Context, n int) ([]types.RankedLead, error) {
	var out []types.RankedLead
	q := url.Values{"limit": {strconv.Itoa(n)}}
	err := c.do(ctx, http.MethodGet, "/v1/leads/top?"+q.Encode(), nil, &out)
	return out, err
}

// Stats fetches GET /stats.
func (c *Client) Stats(ctx context.Context) (service.Stats, error) {
	var st service.Stats
	err := c.do(ctx, http.MethodGet, "/stats", nil, &st)
	return st, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(msg))
		if resp.StatusCode < http.StatusInternalServerError {
			return errors.Join(ErrRejected, err)
		}
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
