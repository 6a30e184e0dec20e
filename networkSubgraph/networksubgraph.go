package networksubgraph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/grtinfo/grtinfo/graphql"
	"github.com/grtinfo/grtinfo/logger"
)

var (
	ErrNotNetworkSubgraph = errors.New("endpoint is not the Graph network subgraph")
	ErrDeploymentNotFound = errors.New("subgraph deployment not found")
)

func NewNetworkSubgraph(url string) *NetworkSubgraph {
	url = strings.TrimRight(url, "/")
	return &NetworkSubgraph{
		Client: graphql.NewClient(url, graphql.DefaultTimeout),
		URL:    url,
		Log:    logger.New("networkSubgraph"),
	}
}

// query runs a request and translates schema mismatches into
// ErrNotNetworkSubgraph.
func (s *NetworkSubgraph) query(ctx context.Context, name, q string, vars map[string]any, dst any) error {
	s.Log.WithField("query", name).Debug("querying network subgraph")

	err := s.Client.Do(ctx, q, vars, dst)
	if err == nil {
		return nil
	}

	var respErr *graphql.ResponseError
	if errors.As(err, &respErr) {
		for _, e := range respErr.Errors {
			if strings.Contains(e.Message, "has no field") && strings.Contains(e.Message, "allocations") {
				return fmt.Errorf("%w: %s", ErrNotNetworkSubgraph, e.Message)
			}
		}
	}
	return fmt.Errorf("subgraph query %s: %w", name, err)
}

// IsNetworkSubgraph checks the schema exposes an Allocation type.
func (s *NetworkSubgraph) IsNetworkSubgraph(ctx context.Context) (bool, error) {
	var resp struct {
		Type *struct {
			Name string `json:"name"`
		} `json:"__type"`
	}
	if err := s.query(ctx, "IsNetworkSubgraph", IsNetworkSubgraphRequest, nil, &resp); err != nil {
		if errors.Is(err, graphql.ErrGraphQL) || errors.Is(err, ErrNotNetworkSubgraph) {
			return false, nil
		}
		return false, err
	}
	return resp.Type != nil, nil
}
