package networksubgraph

import (
	"context"
	"strings"
	"time"

	"github.com/grtinfo/grtinfo/utils"
)

// SubgraphID returns the id of the subgraph whose newest version points at
// the deployment, or "" when it is unknown.
func (s *NetworkSubgraph) SubgraphID(ctx context.Context, ipfsHash string) (string, error) {
	var resp struct {
		SubgraphDeployments []Deployment `json:"subgraphDeployments"`
	}
	if err := s.query(ctx, "SubgraphID", SubgraphIDRequest, map[string]any{"ipfsHash": ipfsHash}, &resp); err != nil {
		return "", err
	}
	if len(resp.SubgraphDeployments) == 0 {
		return "", nil
	}
	return resp.SubgraphDeployments[0].SubgraphID(), nil
}

func (s *NetworkSubgraph) CurrentAllocations(ctx context.Context, deploymentID string) ([]Allocation, error) {
	var resp struct {
		Allocations []Allocation `json:"allocations"`
	}
	vars := map[string]any{"deployment": deploymentID}
	if err := s.query(ctx, "CurrentAllocations", CurrentAllocationsRequest, vars, &resp); err != nil {
		return nil, err
	}
	return resp.Allocations, nil
}

// AllocationHistory returns allocations created since the cutoff, whatever
// their current status.
func (s *NetworkSubgraph) AllocationHistory(ctx context.Context, deploymentID string, since time.Time) ([]Allocation, error) {
	var resp struct {
		Allocations []Allocation `json:"allocations"`
	}
	vars := map[string]any{"deployment": deploymentID, "since": since.Unix()}
	if err := s.query(ctx, "AllocationHistory", AllocationHistoryRequest, vars, &resp); err != nil {
		return nil, err
	}
	return resp.Allocations, nil
}

// Unallocations returns allocations closed since the cutoff.
func (s *NetworkSubgraph) Unallocations(ctx context.Context, deploymentID string, since time.Time) ([]Allocation, error) {
	var resp struct {
		Allocations []Allocation `json:"allocations"`
	}
	vars := map[string]any{"deployment": deploymentID, "since": since.Unix()}
	if err := s.query(ctx, "Unallocations", UnallocationsRequest, vars, &resp); err != nil {
		return nil, err
	}
	return resp.Allocations, nil
}

func (s *NetworkSubgraph) POISubmissions(ctx context.Context, deploymentID string, since time.Time) ([]POISubmission, error) {
	var resp struct {
		POISubmissions []POISubmission `json:"poiSubmissions"`
	}
	vars := map[string]any{"deployment": deploymentID, "since": since.Unix()}
	if err := s.query(ctx, "POISubmissions", POISubmissionsRequest, vars, &resp); err != nil {
		return nil, err
	}
	return resp.POISubmissions, nil
}

// IndexersStake looks indexers up in batches and returns their stake keyed
// by lowercase id. A failed batch is logged and skipped.
func (s *NetworkSubgraph) IndexersStake(ctx context.Context, ids []string) map[string]StakeInfo {
	results := make(map[string]StakeInfo)
	for _, batch := range utils.ChunkSlice(utils.UniqueLower(ids), batchSize) {
		var resp struct {
			Indexers []Indexer `json:"indexers"`
		}
		if err := s.query(ctx, "IndexersStake", IndexersStakeRequest, map[string]any{"ids": batch}, &resp); err != nil {
			s.Log.WithError(err).Warn("could not fetch indexer stake")
			continue
		}
		for _, indexer := range resp.Indexers {
			results[strings.ToLower(indexer.ID)] = stakeInfoFromIndexer(indexer)
		}
	}
	return results
}

// IndexersURLs returns the registered service URL of each indexer that has
// one.
func (s *NetworkSubgraph) IndexersURLs(ctx context.Context, ids []string) map[string]string {
	results := make(map[string]string)
	for _, batch := range utils.ChunkSlice(utils.UniqueLower(ids), batchSize) {
		var resp struct {
			Indexers []Indexer `json:"indexers"`
		}
		if err := s.query(ctx, "IndexersURL", IndexersURLRequest, map[string]any{"ids": batch}, &resp); err != nil {
			s.Log.WithError(err).Warn("could not fetch indexer urls")
			continue
		}
		for _, indexer := range resp.Indexers {
			if indexer.URL != "" {
				results[strings.ToLower(indexer.ID)] = indexer.URL
			}
		}
	}
	return results
}
