package ibgw

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paaliaq/tradingapi/internal/util"
)

// defaultRequestsPerMinute caps calls to the gateway. The Client Portal
// gateway throttles aggressively and starts dropping requests well
// before its documented limits.
const defaultRequestsPerMinute = 300

// APIError is a non-2xx response from the gateway.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ibgw: http %d: %s", e.StatusCode, e.Message)
}

// Client is a minimal HTTP client for the IB Client Portal gateway. The
// gateway runs locally, terminates its own TLS with a self-signed
// certificate, and fronts an authenticated brokerage session; the
// client does no authentication of its own.
type Client struct {
	baseURL string // e.g. https://localhost:5000/v1/api
	http    *http.Client
	limiter *util.RateLimiter
}

// NewClient creates a gateway client. insecure skips TLS verification,
// which the gateway's self-signed certificate usually requires.
func NewClient(baseURL string, insecure bool) *Client {
	transport := http.DefaultTransport
	if insecure {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		limiter: util.NewRateLimiter(defaultRequestsPerMinute),
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var payload io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ibgw: encoding %s %s: %w", method, path, err)
		}
		payload = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ibgw: decoding %s %s: %w", method, path, err)
	}
	return nil
}

// get issues a GET, retrying transient gateway failures. The gateway
// intermittently answers 5xx while its session warms up; 4xx responses
// are returned immediately.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	var clientErr error
	err := util.Retry(ctx, 3, 250*time.Millisecond, func() error {
		err := c.do(ctx, http.MethodGet, path, query, nil, out)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			clientErr = err
			return nil
		}
		return err
	})
	if clientErr != nil {
		return clientErr
	}
	return err
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// Tickle keeps the gateway's brokerage session alive and reports
// whether it is authenticated.
func (c *Client) Tickle(ctx context.Context) (bool, error) {
	var resp struct {
		IServer struct {
			AuthStatus struct {
				Authenticated bool `json:"authenticated"`
			} `json:"authStatus"`
		} `json:"iserver"`
	}
	if err := c.post(ctx, "/tickle", nil, &resp); err != nil {
		return false, err
	}
	return resp.IServer.AuthStatus.Authenticated, nil
}
