// Package clients holds the HTTP client for the remote ordering API. The
// single Client type satisfies the collaborator ports declared by the
// services package (shipping quotes, voucher validation, order creation,
// saved addresses, and location lookups).
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 8 * time.Second

// ErrMissingBaseURL is returned when the client is constructed without a target.
var ErrMissingBaseURL = errors.New("clients: missing base url")

// Client issues JSON calls against the remote ordering API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs an API client. A nil httpClient gets a default with a
// request timeout.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, ErrMissingBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: trimmed, http: httpClient}, nil
}

// APIError carries a failed response. Message holds the server-provided
// message when the body contained one, empty otherwise.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("clients: status %d", e.StatusCode)
	}
	return fmt.Sprintf("clients: status %d: %s", e.StatusCode, e.Message)
}

// UserMessage returns the server-provided message suitable for display.
func (e *APIError) UserMessage() string {
	return e.Message
}

func (c *Client) doJSON(ctx context.Context, method string, query url.Values, body any, out any, pathElems ...string) error {
	endpoint, err := url.JoinPath(c.baseURL, pathElems...)
	if err != nil {
		return err
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var envelope struct {
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) == nil {
		if msg := strings.TrimSpace(envelope.Message); msg != "" {
			apiErr.Message = msg
		} else if msg := strings.TrimSpace(envelope.Error.Message); msg != "" {
			apiErr.Message = msg
		}
	}
	return apiErr
}
