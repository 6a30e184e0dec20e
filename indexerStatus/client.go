package indexerstatus

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grtinfo/grtinfo/graphql"
	"github.com/grtinfo/grtinfo/logger"
)

var ErrNoEndpoint = errors.New("No indexer URL configured")

const (
	DefaultTimeout = 10 * time.Second

	IndexingStatusesRequest = `{
  indexingStatuses {
    subgraph
    synced
    health
    fatalError { message }
    chains {
      network
      latestBlock { number }
      chainHeadBlock { number }
    }
  }
}`
)

// EndpointError is a failed status request with a message fit for display.
type EndpointError struct {
	URL     string
	Message string
	Err     error
}

func (e *EndpointError) Error() string {
	return e.Message
}

func (e *EndpointError) Unwrap() error {
	return e.Err
}

type Client struct {
	Timeout time.Duration
	Log     *logrus.Entry
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{Timeout: timeout, Log: logger.New("indexerStatus")}
}

// StatusURL normalises an indexer service URL into its /status endpoint.
func StatusURL(indexerURL string) string {
	indexerURL = strings.TrimSpace(indexerURL)
	if !strings.HasPrefix(indexerURL, "http") {
		indexerURL = "https://" + indexerURL
	}
	return strings.TrimRight(indexerURL, "/") + "/status"
}

// DeploymentStatuses returns the status of every deployment the indexer's
// graph-node reports, keyed by Qm hash.
func (c *Client) DeploymentStatuses(ctx context.Context, indexerURL string) (map[string]Status, error) {
	if strings.TrimSpace(indexerURL) == "" {
		return nil, ErrNoEndpoint
	}
	statusURL := StatusURL(indexerURL)

	gql := graphql.NewClient(statusURL, c.Timeout)
	gql.MaxRetries = 0
	gql.Log = c.Log

	var resp struct {
		IndexingStatuses []indexingStatus `json:"indexingStatuses"`
	}
	if err := gql.Do(ctx, IndexingStatusesRequest, nil, &resp); err != nil {
		return nil, &EndpointError{URL: statusURL, Message: c.describe(err), Err: err}
	}

	statuses := make(map[string]Status, len(resp.IndexingStatuses))
	for _, s := range resp.IndexingStatuses {
		if s.Subgraph == "" {
			continue
		}
		statuses[s.Subgraph] = s.toStatus()
	}
	return statuses, nil
}

func (c *Client) describe(err error) string {
	var httpErr *graphql.HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusNotFound:
			return "Endpoint not found (404) - /status may not be exposed"
		case http.StatusForbidden:
			return "Access denied (403) - endpoint may require authentication"
		default:
			return fmt.Sprintf("HTTP error %d", httpErr.StatusCode)
		}
	}

	var respErr *graphql.ResponseError
	if errors.As(err, &respErr) {
		return "GraphQL error: " + respErr.First()
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Sprintf("Timeout (%ds) - endpoint may be slow or unreachable", int(c.Timeout.Seconds()))
	}
	if errors.As(err, &netErr) {
		return "Connection failed - endpoint may be blocked or not exposed"
	}

	msg := err.Error()
	if len(msg) > 50 {
		msg = msg[:50]
	}
	return msg
}

// ShortError condenses an endpoint error into a few words for table cells.
func ShortError(msg string) string {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out"):
		return "timeout"
	case strings.Contains(msg, "404") || strings.Contains(lower, "not found"):
		return "no endpoint"
	case strings.Contains(msg, "403") || strings.Contains(lower, "forbidden"):
		return "forbidden"
	case strings.Contains(lower, "connection") || strings.Contains(lower, "connect"):
		return "unreachable"
	case strings.Contains(lower, "ssl") || strings.Contains(lower, "certificate"):
		return "SSL error"
	case len(msg) > 15:
		return msg[:12] + "..."
	}
	return msg
}
