package tabular

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"techtrack-backend/config"
	"techtrack-backend/internal/metrics"
)

// Row is one data row of a remote table, keyed by column name. Number is the
// absolute row number in the table; it is stable because rows are never
// deleted.
type Row struct {
	Number int
	Fields map[string]string
}

// Client talks to the remote tabular store over its HTTP API. All calls are
// paced by a shared rate limiter so the process stays under the upstream
// quota regardless of how many handlers fan in.
type Client struct {
	base     string
	token    string
	client   *http.Client
	limiter  *rate.Limiter
	retryMax int
	backoff  time.Duration
}

// NewClient creates a table client from the upstream configuration.
func NewClient(cfg config.UpstreamConfig) *Client {
	return &Client{
		base:  strings.TrimRight(cfg.BaseURL, "/"),
		token: cfg.Token,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RateBurst),
		retryMax: cfg.RetryMax,
		backoff:  cfg.Backoff,
	}
}

// ListRows returns all data rows of a table in storage order, as
// column-name keyed maps. Short rows are padded with empty strings so every
// row carries the full header's keys.
func (c *Client) ListRows(ctx context.Context, table string) ([]Row, error) {
	var result ListResult
	if err := c.do(ctx, "list", table, http.MethodGet, c.tablePath(table, "rows"), nil, &result, true); err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(result.Rows))
	for _, r := range result.Rows {
		fields := make(map[string]string, len(result.Header))
		for i, col := range result.Header {
			if i < len(r.Cells) {
				fields[col] = r.Cells[i]
			} else {
				fields[col] = ""
			}
		}
		rows = append(rows, Row{Number: r.Number, Fields: fields})
	}
	return rows, nil
}

// AppendRow appends one data row. Appends are not retried on connection
// failure: the row may already have landed upstream.
func (c *Client) AppendRow(ctx context.Context, table string, cells []string) error {
	body := AppendRequest{Cells: cells}
	return c.do(ctx, "append", table, http.MethodPost, c.tablePath(table, "rows"), body, nil, false)
}

// PatchRow updates the named columns of one row, addressed by its absolute
// row number.
func (c *Client) PatchRow(ctx context.Context, table string, number int, updates map[string]string) error {
	body := PatchRequest{Updates: updates}
	path := c.tablePath(table, "rows") + "/" + strconv.Itoa(number)
	return c.do(ctx, "patch", table, http.MethodPatch, path, body, nil, false)
}

// EnsureHeader writes the column header of an empty table; when the header
// already matches it is a no-op. Writing the same header twice is idempotent,
// so this call is retried like a read.
func (c *Client) EnsureHeader(ctx context.Context, table string, header []string) error {
	body := HeaderRequest{Header: header}
	return c.do(ctx, "header", table, http.MethodPut, c.tablePath(table, "header"), body, nil, true)
}

func (c *Client) tablePath(table, suffix string) string {
	return "/v1/tables/" + url.PathEscape(table) + "/" + suffix
}

// do runs one API call and records its outcome.
func (c *Client) do(ctx context.Context, op, table, method, path string, body, out any, idempotent bool) error {
	err := c.roundTrip(ctx, op, table, method, path, body, out, idempotent)
	metrics.TableOp(op, table, err)
	return err
}

// roundTrip runs one API call with rate limiting and the retry policy: reads
// (and other idempotent calls) retry on connection failures and 5xx; every
// call retries on 429, because a quota rejection means the request was never
// executed.
func (c *Client) roundTrip(ctx context.Context, op, table, method, path string, body, out any, idempotent bool) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Op: op, Table: table, Err: fmt.Errorf("failed to marshal request payload: %w", err)}
		}
		payload = b
	}

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return &TransportError{Op: op, Table: table, Err: err}
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
		if err != nil {
			return &TransportError{Op: op, Table: table, Err: fmt.Errorf("failed to create request: %w", err)}
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if idempotent && attempt < c.retryMax {
				if serr := c.sleep(ctx, attempt, 0); serr != nil {
					return &TransportError{Op: op, Table: table, Err: serr}
				}
				continue
			}
			return &TransportError{Op: op, Table: table, Err: fmt.Errorf("http request failed: %w", err)}
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return &TransportError{Op: op, Table: table, Status: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", readErr)}
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if out != nil {
				if err := json.Unmarshal(respBody, out); err != nil {
					return &TransportError{Op: op, Table: table, Status: resp.StatusCode, Err: fmt.Errorf("failed to unmarshal response: %w", err)}
				}
			}
			return nil

		case resp.StatusCode == http.StatusTooManyRequests:
			if attempt < c.retryMax {
				if serr := c.sleep(ctx, attempt, retryAfter(resp.Header)); serr != nil {
					return &TransportError{Op: op, Table: table, Err: serr}
				}
				continue
			}
			return &TransportError{Op: op, Table: table, Status: resp.StatusCode, Err: apiError(respBody)}

		case resp.StatusCode >= 500:
			if idempotent && attempt < c.retryMax {
				if serr := c.sleep(ctx, attempt, 0); serr != nil {
					return &TransportError{Op: op, Table: table, Err: serr}
				}
				continue
			}
			return &TransportError{Op: op, Table: table, Status: resp.StatusCode, Err: apiError(respBody)}

		default:
			return &TransportError{Op: op, Table: table, Status: resp.StatusCode, Err: apiError(respBody)}
		}
	}
}

// sleep waits out the backoff for the given attempt, honoring both a
// server-provided Retry-After and context cancellation.
func (c *Client) sleep(ctx context.Context, attempt int, retryAfter time.Duration) error {
	delay := c.backoff * time.Duration(attempt+1)
	if retryAfter > delay {
		delay = retryAfter
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func retryAfter(h http.Header) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

// apiError extracts the error envelope from a failed response, falling back
// to the raw body when it is not JSON.
func apiError(body []byte) error {
	var eb ErrorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error != "" {
		return fmt.Errorf("%s", eb.Error)
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		msg = "no error detail"
	}
	return fmt.Errorf("%s", msg)
}
