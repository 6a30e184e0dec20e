package networksubgraph

import (
	"context"
	"strings"
	"time"

	"github.com/grtinfo/grtinfo/utils"
)

const addressLen = 42

// IDRange turns a partial hex address into the inclusive id range covering
// every address that starts with it.
func IDRange(term string) (string, string) {
	term = strings.ToLower(strings.TrimSpace(term))
	if !strings.HasPrefix(term, "0x") {
		term = "0x" + term
	}
	if len(term) > addressLen {
		term = term[:addressLen]
	}
	pad := addressLen - len(term)
	return term + strings.Repeat("0", pad), term + strings.Repeat("f", pad)
}

// SearchIndexers finds up to ten indexers by address prefix, then by URL
// fragment.
func (s *NetworkSubgraph) SearchIndexers(ctx context.Context, term string) ([]Indexer, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}

	if utils.IsHexLike(term) {
		lo, hi := IDRange(term)
		var resp struct {
			Indexers []Indexer `json:"indexers"`
		}
		if err := s.query(ctx, "IndexerRange", IndexerRangeRequest, map[string]any{"min": lo, "max": hi}, &resp); err != nil {
			return nil, err
		}
		if len(resp.Indexers) > 0 {
			return resp.Indexers, nil
		}
	}

	var resp struct {
		Indexers []Indexer `json:"indexers"`
	}
	if err := s.query(ctx, "IndexerURLSearch", IndexerURLSearchRequest, map[string]any{"search": strings.ToLower(term)}, &resp); err != nil {
		return nil, err
	}
	return resp.Indexers, nil
}

// Indexer returns the full record or nil when the id is unknown.
func (s *NetworkSubgraph) Indexer(ctx context.Context, id string) (*Indexer, error) {
	var resp struct {
		Indexer *Indexer `json:"indexer"`
	}
	if err := s.query(ctx, "Indexer", IndexerRequest, map[string]any{"id": strings.ToLower(id)}, &resp); err != nil {
		return nil, err
	}
	return resp.Indexer, nil
}

// IndexerAllocations returns the indexer's active allocations and those it
// closed since the cutoff.
func (s *NetworkSubgraph) IndexerAllocations(ctx context.Context, id string, since time.Time) ([]Allocation, []Allocation, error) {
	id = strings.ToLower(id)

	var active struct {
		Allocations []Allocation `json:"allocations"`
	}
	if err := s.query(ctx, "IndexerActiveAllocations", IndexerActiveAllocationsRequest, map[string]any{"indexer": id}, &active); err != nil {
		return nil, nil, err
	}

	var closed struct {
		Allocations []Allocation `json:"allocations"`
	}
	vars := map[string]any{"indexer": id, "since": since.Unix()}
	if err := s.query(ctx, "IndexerClosedAllocations", IndexerClosedAllocationsRequest, vars, &closed); err != nil {
		return nil, nil, err
	}
	return active.Allocations, closed.Allocations, nil
}

func (s *NetworkSubgraph) IndexerPOISubmissions(ctx context.Context, id string, since time.Time) ([]POISubmission, error) {
	var resp struct {
		POISubmissions []POISubmission `json:"poiSubmissions"`
	}
	vars := map[string]any{"indexer": strings.ToLower(id), "since": since.Unix()}
	if err := s.query(ctx, "IndexerPOISubmissions", IndexerPOISubmissionsRequest, vars, &resp); err != nil {
		return nil, err
	}
	return resp.POISubmissions, nil
}

// TopAllocations returns the largest active allocations.
func (s *NetworkSubgraph) TopAllocations(ctx context.Context, id string, limit int) ([]Allocation, error) {
	var resp struct {
		Allocations []Allocation `json:"allocations"`
	}
	vars := map[string]any{"indexer": strings.ToLower(id), "first": limit}
	if err := s.query(ctx, "TopAllocations", TopAllocationsRequest, vars, &resp); err != nil {
		return nil, err
	}
	return resp.Allocations, nil
}

func (s *NetworkSubgraph) NetworkStats(ctx context.Context) (*NetworkStats, error) {
	var resp struct {
		GraphNetwork *NetworkStats `json:"graphNetwork"`
	}
	if err := s.query(ctx, "NetworkStats", NetworkStatsRequest, nil, &resp); err != nil {
		return nil, err
	}
	return resp.GraphNetwork, nil
}

// AllActiveAllocations pages through every active allocation of an indexer.
func (s *NetworkSubgraph) AllActiveAllocations(ctx context.Context, id string) ([]Allocation, error) {
	id = strings.ToLower(id)
	all := make([]Allocation, 0)
	for skip := 0; ; skip += pageSize {
		var resp struct {
			Allocations []Allocation `json:"allocations"`
		}
		vars := map[string]any{"indexer": id, "first": pageSize, "skip": skip}
		if err := s.query(ctx, "AllActiveAllocations", AllActiveAllocationsRequest, vars, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Allocations...)
		if len(resp.Allocations) < pageSize {
			break
		}
	}
	return all, nil
}

// DelegationEvents returns delegations made and undelegations started since
// the cutoff.
func (s *NetworkSubgraph) DelegationEvents(ctx context.Context, id string, since time.Time) ([]DelegatedStake, []DelegatedStake, error) {
	var resp struct {
		Delegations   []DelegatedStake `json:"delegations"`
		Undelegations []DelegatedStake `json:"undelegations"`
	}
	vars := map[string]any{"indexer": strings.ToLower(id), "since": since.Unix()}
	if err := s.query(ctx, "DelegationEvents", DelegationEventsRequest, vars, &resp); err != nil {
		return nil, nil, err
	}
	return resp.Delegations, resp.Undelegations, nil
}
