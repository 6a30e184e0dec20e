package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/grtinfo/grtinfo/logger"
)

var ErrGraphQL = errors.New("graphql error")

const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
)

type Error struct {
	Message string `json:"message"`
}

// ResponseError carries the errors array of a GraphQL response.
type ResponseError struct {
	Errors []Error
}

func (e *ResponseError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, m := range e.Errors {
		msgs = append(msgs, m.Message)
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

func (e *ResponseError) Is(target error) bool {
	return target == ErrGraphQL
}

func (e *ResponseError) First() string {
	if len(e.Errors) == 0 {
		return "Unknown"
	}
	return e.Errors[0].Message
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http status %d", e.StatusCode)
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []Error         `json:"errors"`
}

type Client struct {
	URL        string
	HTTP       *http.Client
	MaxRetries uint64
	Log        *logrus.Entry
}

func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		URL:        url,
		HTTP:       &http.Client{Timeout: timeout},
		MaxRetries: DefaultMaxRetries,
		Log:        logger.New("graphql"),
	}
}

// Do posts query to the endpoint and decodes the data member into dst.
// Transport failures, 429 and 5xx are retried with exponential backoff;
// GraphQL errors and other 4xx are returned at once.
func (c *Client) Do(ctx context.Context, query string, variables map[string]any, dst any) error {
	if variables == nil {
		variables = map[string]any{}
	}
	body, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("could not marshal query: %w", err)
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 250 * time.Millisecond
	eb.MaxElapsedTime = 20 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, c.MaxRetries), ctx)

	attempt := 0
	op := func() error {
		attempt++
		return c.post(ctx, body, dst)
	}
	notify := func(err error, wait time.Duration) {
		c.Log.WithError(err).WithFields(logrus.Fields{
			"url":     c.URL,
			"attempt": attempt,
			"wait":    wait,
		}).Debug("retrying query")
	}

	return backoff.RetryNotify(op, policy, notify)
}

func (c *Client) post(ctx context.Context, body []byte, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("invalid request for %s: %w", c.URL, err))
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read response body for %s: %w", c.URL, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return httpErr
		}
		return backoff.Permanent(httpErr)
	}

	var decoded response
	if err := json.Unmarshal(bodyBytes, &decoded); err != nil {
		return backoff.Permanent(fmt.Errorf("could not unmarshal response for %s: %w", c.URL, err))
	}
	if len(decoded.Errors) > 0 {
		return backoff.Permanent(&ResponseError{Errors: decoded.Errors})
	}
	if dst == nil || len(decoded.Data) == 0 || string(decoded.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(decoded.Data, dst); err != nil {
		return backoff.Permanent(fmt.Errorf("could not decode data for %s: %w", c.URL, err))
	}
	return nil
}
