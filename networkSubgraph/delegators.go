package networksubgraph

import (
	"context"
	"strings"

	"github.com/grtinfo/grtinfo/utils"
)

// DelegatorDelegations returns the delegator's stakes that still hold
// either staked or locked tokens.
func (s *NetworkSubgraph) DelegatorDelegations(ctx context.Context, delegator string) ([]DelegatedStake, error) {
	var resp struct {
		DelegatedStakes []DelegatedStake `json:"delegatedStakes"`
	}
	vars := map[string]any{"delegator": strings.ToLower(delegator)}
	if err := s.query(ctx, "DelegatorDelegations", DelegatorDelegationsRequest, vars, &resp); err != nil {
		return nil, err
	}

	kept := make([]DelegatedStake, 0, len(resp.DelegatedStakes))
	for _, d := range resp.DelegatedStakes {
		if utils.ParseWei(d.StakedTokens).Sign() > 0 || utils.ParseWei(d.LockedTokens).Sign() > 0 {
			kept = append(kept, d)
		}
	}
	return kept, nil
}

// ActiveAllocationsForIndexers returns active allocations grouped by
// lowercase indexer id.
func (s *NetworkSubgraph) ActiveAllocationsForIndexers(ctx context.Context, ids []string) (map[string][]Allocation, error) {
	results := make(map[string][]Allocation)
	for _, batch := range utils.ChunkSlice(utils.UniqueLower(ids), batchSize) {
		for skip := 0; ; skip += pageSize {
			var resp struct {
				Allocations []Allocation `json:"allocations"`
			}
			vars := map[string]any{"indexers": batch, "first": pageSize, "skip": skip}
			if err := s.query(ctx, "IndexersActiveAllocations", IndexersActiveAllocationsRequest, vars, &resp); err != nil {
				return nil, err
			}
			for _, a := range resp.Allocations {
				results[a.IndexerID()] = append(results[a.IndexerID()], a)
			}
			if len(resp.Allocations) < pageSize {
				break
			}
		}
	}
	return results, nil
}
