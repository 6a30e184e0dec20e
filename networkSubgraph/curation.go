package networksubgraph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/grtinfo/grtinfo/constants"
	"github.com/grtinfo/grtinfo/utils"
)

func (s *NetworkSubgraph) SubgraphMetadata(ctx context.Context, deploymentID string) (*Deployment, error) {
	var resp struct {
		SubgraphDeployment *Deployment `json:"subgraphDeployment"`
	}
	if err := s.query(ctx, "SubgraphMetadata", SubgraphMetadataRequest, map[string]any{"id": deploymentID}, &resp); err != nil {
		return nil, err
	}
	if resp.SubgraphDeployment == nil {
		return nil, fmt.Errorf("%w: %s", ErrDeploymentNotFound, deploymentID)
	}
	return resp.SubgraphDeployment, nil
}

// NetworkTotals sums allocations and signal over every deployment, denied
// ones included, since they still dilute rewards on chain.
func (s *NetworkSubgraph) NetworkTotals(ctx context.Context) (NetworkTotals, error) {
	var totals NetworkTotals
	for skip := 0; ; skip += pageSize {
		var resp struct {
			SubgraphDeployments []Deployment `json:"subgraphDeployments"`
		}
		vars := map[string]any{"first": pageSize, "skip": skip}
		if err := s.query(ctx, "NetworkTotals", NetworkTotalsRequest, vars, &resp); err != nil {
			return NetworkTotals{}, err
		}
		for _, d := range resp.SubgraphDeployments {
			totals.Allocated += utils.GRT(d.StakedTokens)
			totals.Signal += utils.GRT(d.SignalAmount)
		}
		if (skip/pageSize+1)%5 == 0 {
			s.Log.Debugf("fetched %d deployments", skip+len(resp.SubgraphDeployments))
		}
		if len(resp.SubgraphDeployments) < pageSize {
			break
		}
	}
	s.Log.Infof("network totals: %.0f allocated, %.0f signal", totals.Allocated, totals.Signal)
	return totals, nil
}

// RewardProportion compares a deployment's allocation-to-signal ratio with
// the network's. Above 100 the deployment pays more per allocated GRT than
// the average.
func RewardProportion(subAllocated, subSignal, totalAllocated, totalSignal float64) (float64, bool) {
	if subSignal <= 0 || totalSignal <= 0 {
		return 0, false
	}
	subRatio := subAllocated / subSignal
	if subRatio <= 0 {
		return 0, false
	}
	return (totalAllocated / totalSignal) / subRatio * 100, true
}

// Metadata loads a deployment and, when the network totals are available,
// its reward proportion.
func (s *NetworkSubgraph) Metadata(ctx context.Context, deploymentID string) (*Metadata, error) {
	deployment, err := s.SubgraphMetadata(ctx, deploymentID)
	if err != nil {
		return nil, err
	}
	meta := &Metadata{Deployment: *deployment}

	totals, err := s.NetworkTotals(ctx)
	if err != nil {
		s.Log.WithError(err).Warn("could not compute network totals")
		return meta, nil
	}
	meta.RewardProportion, meta.HasProportion = RewardProportion(
		utils.GRT(deployment.StakedTokens), utils.GRT(deployment.SignalAmount),
		totals.Allocated, totals.Signal)
	return meta, nil
}

func (s *NetworkSubgraph) CurationSignal(ctx context.Context, deploymentID string, now time.Time) (*CurationSignal, error) {
	var resp struct {
		SubgraphDeployment *Deployment `json:"subgraphDeployment"`
		Signals            []Signal    `json:"signals"`
	}
	if err := s.query(ctx, "CurationSignal", CurationSignalRequest, map[string]any{"id": deploymentID}, &resp); err != nil {
		return nil, err
	}
	if resp.SubgraphDeployment == nil {
		return nil, nil
	}

	created := resp.SubgraphDeployment.CreatedAt.Int64()
	signal := &CurationSignal{
		SignalledTokens: resp.SubgraphDeployment.SignalledTokens,
		CreatedAt:       created,
		Signals:         resp.Signals,
	}
	if created > 0 {
		signal.IsNew = now.Sub(time.Unix(created, 0)) <= constants.NewDeploymentAge
	}
	return signal, nil
}

type upgradeInfo struct {
	oldID     string
	oldSignal string
	newID     string
	newHash   string
	newSignal string
	created   int64
}

func (s *NetworkSubgraph) findUpgrade(ctx context.Context, deploymentID string) (*upgradeInfo, error) {
	var resp struct {
		SubgraphDeployment *struct {
			Deployment
			Versions []struct {
				Subgraph struct {
					ID             string `json:"id"`
					CurrentVersion *struct {
						SubgraphDeployment *Deployment `json:"subgraphDeployment"`
					} `json:"currentVersion"`
				} `json:"subgraph"`
			} `json:"versions"`
		} `json:"subgraphDeployment"`
	}
	if err := s.query(ctx, "DeploymentUpgrade", DeploymentUpgradeRequest, map[string]any{"id": deploymentID}, &resp); err != nil {
		return nil, err
	}
	d := resp.SubgraphDeployment
	if d == nil {
		return nil, fmt.Errorf("%w: %s", ErrDeploymentNotFound, deploymentID)
	}
	if len(d.Versions) == 0 || d.Versions[0].Subgraph.CurrentVersion == nil {
		return nil, nil
	}
	current := d.Versions[0].Subgraph.CurrentVersion.SubgraphDeployment
	if current == nil || current.ID == "" || current.ID == d.ID {
		return nil, nil
	}
	return &upgradeInfo{
		oldID:     d.ID,
		oldSignal: d.SignalAmount,
		newID:     current.ID,
		newHash:   current.IPFSHash,
		newSignal: current.SignalAmount,
		created:   current.CreatedAt.Int64(),
	}, nil
}

func changeTypeFor(txType string) ChangeType {
	switch txType {
	case "SignalRemoved", "SignalWithdrawn":
		return ChangeUnsignal
	default:
		return ChangeSignal
	}
}

// SignalChanges lists signal movements on a deployment since the cutoff,
// newest first. When the owning subgraph has moved on to a newer deployment
// the transfer of signal out of this one is reported as an upgrade_out
// change and the activity of the new deployment is listed.
func (s *NetworkSubgraph) SignalChanges(ctx context.Context, deploymentID string, since time.Time) ([]SignalChange, error) {
	upgrade, err := s.findUpgrade(ctx, deploymentID)
	if errors.Is(err, ErrDeploymentNotFound) {
		return []SignalChange{}, nil
	}
	if err != nil {
		s.Log.WithError(err).Info("upgrade lookup failed, continuing without it")
		upgrade = nil
	}
	target := deploymentID
	if upgrade != nil {
		target = upgrade.newID
	}

	changes, err := s.signalTransactions(ctx, target, since)
	if err != nil {
		s.Log.WithError(err).Info("signal transactions unavailable, falling back to signals")
		changes, err = s.signalsSince(ctx, target, since)
		if err != nil {
			return nil, err
		}
		// signals carry no transfer history, so no upgrade row here
		upgrade = nil
	}

	if upgrade != nil {
		tokens := upgrade.oldSignal
		if utils.ParseWei(tokens).Sign() == 0 {
			tokens = upgrade.newSignal
		}
		change := SignalChange{
			Type:              ChangeUpgradeOut,
			Signaller:         "Subgraph Upgrade",
			Tokens:            tokens,
			Timestamp:         upgrade.created,
			NewDeploymentHash: upgrade.newHash,
		}
		if upgrade.newHash != "" {
			if id, err := s.SubgraphID(ctx, upgrade.newHash); err == nil {
				change.NewSubgraphID = id
			}
		}
		changes = append([]SignalChange{change}, changes...)
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Timestamp > changes[j].Timestamp
	})
	return changes, nil
}

func (s *NetworkSubgraph) signalTransactions(ctx context.Context, deploymentID string, since time.Time) ([]SignalChange, error) {
	var resp struct {
		SignalTransactions []signalTransaction `json:"signalTransactions"`
	}
	if err := s.query(ctx, "SignalTransactions", SignalTransactionsRequest, map[string]any{"since": since.Unix()}, &resp); err != nil {
		return nil, err
	}

	changes := make([]SignalChange, 0)
	for _, tx := range resp.SignalTransactions {
		if tx.Signal == nil || tx.Signal.SubgraphDeployment == nil || tx.Signal.SubgraphDeployment.ID != deploymentID {
			continue
		}
		curator := "Unknown"
		if tx.Signal.Curator != nil && tx.Signal.Curator.ID != "" {
			curator = tx.Signal.Curator.ID
		}
		changes = append(changes, SignalChange{
			Type:      changeTypeFor(tx.Type),
			Signaller: curator,
			Tokens:    tx.Signal.SignalledTokens,
			Timestamp: tx.Timestamp.Int64(),
		})
	}
	return changes, nil
}

func (s *NetworkSubgraph) signalsSince(ctx context.Context, deploymentID string, since time.Time) ([]SignalChange, error) {
	var resp struct {
		Signals []Signal `json:"signals"`
	}
	vars := map[string]any{"deployment": deploymentID, "since": since.Unix()}
	if err := s.query(ctx, "SignalsSince", SignalsSinceRequest, vars, &resp); err != nil {
		return nil, err
	}

	changes := make([]SignalChange, 0, len(resp.Signals))
	for _, sig := range resp.Signals {
		curator := "Unknown"
		if sig.Curator != nil && sig.Curator.ID != "" {
			curator = sig.Curator.ID
		}
		changes = append(changes, SignalChange{
			Type:      ChangeSignal,
			Signaller: curator,
			Tokens:    sig.SignalledTokens,
			Timestamp: sig.CreatedAt.Int64(),
		})
	}
	return changes, nil
}
