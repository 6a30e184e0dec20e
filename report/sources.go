package report

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	goerrors "github.com/go-errors/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/grtinfo/grtinfo/analytics"
	"github.com/grtinfo/grtinfo/constants"
	ensclient "github.com/grtinfo/grtinfo/ensClient"
	indexerstatus "github.com/grtinfo/grtinfo/indexerStatus"
	"github.com/grtinfo/grtinfo/logger"
	networksubgraph "github.com/grtinfo/grtinfo/networkSubgraph"
	"github.com/grtinfo/grtinfo/rewards"
	"github.com/grtinfo/grtinfo/utils"
)

var (
	ErrNoIndexer      = errors.New("no indexer found")
	ErrUnresolvedName = errors.New("could not resolve ENS name")
	ErrInvalidAddress = errors.New("invalid address format")
)

const topStatusTimeout = 15 * time.Second

// Sources gathers report data. Network is required; the other clients are
// optional and their sections degrade when nil.
type Sources struct {
	Network   *networksubgraph.NetworkSubgraph
	ENS       *ensclient.Client
	Rewards   *rewards.Client
	Analytics *analytics.Client

	StatusOptions indexerstatus.Options
	Log           *logrus.Entry
}

func NewSources(network *networksubgraph.NetworkSubgraph) *Sources {
	return &Sources{
		Network:       network,
		StatusOptions: indexerstatus.DefaultOptions(),
		Log:           logger.New("report"),
	}
}

func (s *Sources) names(ctx context.Context, ids []string) map[string]string {
	if s.ENS == nil {
		return map[string]string{}
	}
	return s.ENS.ResolveAddresses(ctx, ids)
}

func (s *Sources) debugStack(err error, msg string) {
	s.Log.WithError(err).Info(msg)
	s.Log.Debug(goerrors.Wrap(err, 1).ErrorStack())
}

// FindIndexers matches ENS names first when the term is not hex, then
// falls back to id prefix and URL matching.
func (s *Sources) FindIndexers(ctx context.Context, term string) ([]networksubgraph.Indexer, error) {
	term = strings.TrimSpace(term)
	if s.ENS != nil && !utils.IsHexLike(term) {
		found, err := s.indexersByENS(ctx, term)
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			return found, nil
		}
	}

	found, err := s.Network.SearchIndexers(ctx, term)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w matching '%s'", ErrNoIndexer, term)
	}
	return found, nil
}

func (s *Sources) indexersByENS(ctx context.Context, term string) ([]networksubgraph.Indexer, error) {
	domains, err := s.ENS.SearchByName(ctx, term)
	if err != nil {
		s.Log.WithError(err).Info("ENS search failed")
		return nil, nil
	}

	var found []networksubgraph.Indexer
	seen := make(map[string]bool)
	for _, d := range domains {
		addr := d.Address()
		if seen[addr] {
			continue
		}
		seen[addr] = true
		ind, err := s.Network.Indexer(ctx, addr)
		if err != nil {
			return nil, err
		}
		if ind == nil {
			continue
		}
		ind.ENSName = d.Name
		found = append(found, *ind)
	}
	return found, nil
}

// Names resolves ENS names for display, empty without an ENS client.
func (s *Sources) Names(ctx context.Context, ids []string) map[string]string {
	return s.names(ctx, utils.UniqueLower(ids))
}

// SubInfo gathers the subinfo report for a Qm hash or 0x deployment id.
func (s *Sources) SubInfo(ctx context.Context, hashOrID string, hours int, myIndexerID string, now time.Time) (*SubInfo, error) {
	deploymentID, err := networksubgraph.ResolveDeploymentID(hashOrID)
	if err != nil {
		return nil, err
	}
	hash, err := networksubgraph.DeploymentHashFromID(deploymentID)
	if err != nil {
		return nil, err
	}

	ok, err := s.Network.IsNetworkSubgraph(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, networksubgraph.ErrNotNetworkSubgraph
	}

	since := now.Add(-time.Duration(hours) * time.Hour)
	d := &SubInfo{Hash: hash, Hours: hours, MyIndexerID: strings.ToLower(myIndexerID)}

	if d.SubgraphID, err = s.Network.SubgraphID(ctx, hash); err != nil {
		s.Log.WithError(err).Info("could not look up subgraph id")
	}
	d.Metadata, err = s.Network.Metadata(ctx, deploymentID)
	if err != nil && !errors.Is(err, networksubgraph.ErrDeploymentNotFound) {
		return nil, err
	}
	if d.Signal, err = s.Network.CurationSignal(ctx, deploymentID, now); err != nil {
		return nil, err
	}
	if d.SignalChanges, err = s.Network.SignalChanges(ctx, deploymentID, since); err != nil {
		return nil, err
	}
	if d.Current, err = s.Network.CurrentAllocations(ctx, deploymentID); err != nil {
		return nil, err
	}
	if d.Created, err = s.Network.AllocationHistory(ctx, deploymentID, since); err != nil {
		return nil, err
	}
	if d.Unallocations, err = s.Network.Unallocations(ctx, deploymentID, since); err != nil {
		return nil, err
	}
	if d.POIs, err = s.Network.POISubmissions(ctx, deploymentID, since); err != nil {
		return nil, err
	}

	var ids, unallocated []string
	for _, group := range [][]networksubgraph.Allocation{d.Current, d.Created, d.Unallocations} {
		for i := range group {
			ids = append(ids, group[i].IndexerID())
		}
	}
	for i := range d.POIs {
		ids = append(ids, d.POIs[i].Allocation.IndexerID())
	}
	for i := range d.Unallocations {
		unallocated = append(unallocated, d.Unallocations[i].IndexerID())
	}
	ids = utils.UniqueLower(ids)

	// Status requests run while the remaining lookups complete.
	d.URLs = s.Network.IndexersURLs(ctx, ids)
	pending := indexerstatus.Start(ctx, d.URLs, hash, s.StatusOptions)

	d.Stakes = s.Network.IndexersStake(ctx, utils.UniqueLower(unallocated))
	d.Names = s.names(ctx, ids)
	s.myRewards(ctx, d)

	d.SyncStatuses, d.SyncErrors = pending.Collect()
	return d, nil
}

func (s *Sources) myRewards(ctx context.Context, d *SubInfo) {
	if d.MyIndexerID == "" {
		return
	}
	var mine []string
	for i := range d.Current {
		if d.mine(d.Current[i].IndexerID()) {
			mine = append(mine, d.Current[i].ID)
		}
	}
	if len(mine) == 0 {
		return
	}

	if ind, err := s.Network.Indexer(ctx, d.MyIndexerID); err != nil {
		s.Log.WithError(err).Info("could not fetch my indexer")
	} else if ind != nil {
		cut := ind.RewardCut()
		d.MyRewardCut = &cut
	}

	if s.Rewards == nil {
		return
	}
	total := new(big.Int)
	for _, id := range mine {
		amount, err := s.Rewards.AccruedRewards(ctx, id)
		if err != nil {
			s.debugStack(err, "could not read accrued rewards")
			return
		}
		total.Add(total, amount)
	}
	d.MyRewards = total
}

// IndexerInfo gathers the indexerinfo report for a resolved indexer.
func (s *Sources) IndexerInfo(ctx context.Context, ind *networksubgraph.Indexer, hours int, withRewards bool, now time.Time) (*IndexerInfo, error) {
	id := strings.ToLower(ind.ID)
	if ind.CreatedAt.Int64() == 0 {
		full, err := s.Network.Indexer(ctx, id)
		if err != nil {
			return nil, err
		}
		if full != nil {
			full.ENSName = ind.ENSName
			ind = full
		}
	}

	since := now.Add(-time.Duration(hours) * time.Hour)
	d := &IndexerInfo{Indexer: ind, ENSName: ind.ENSName, Hours: hours, Since: since, WithRewards: withRewards}
	if d.ENSName == "" && s.ENS != nil {
		d.ENSName = s.ENS.ResolveAddress(ctx, id)
	}

	var err error
	if s.Rewards != nil {
		if d.ContractCapacity, err = s.Rewards.TokensAvailable(ctx, id); err != nil {
			s.Log.WithError(err).Debug("could not read tokens available")
			d.ContractCapacity = nil
		}
	}
	if d.NetworkStats, err = s.Network.NetworkStats(ctx); err != nil {
		s.Log.WithError(err).Info("could not fetch network stats")
		d.NetworkStats = nil
	}
	if d.ActiveAllocations, err = s.Network.AllActiveAllocations(ctx, id); err != nil {
		s.Log.WithError(err).Info("could not fetch active allocations")
		d.ActiveAllocations = nil
	}

	if withRewards {
		if s.Rewards == nil {
			d.RPCUnavailable = true
		} else {
			ids := make([]string, 0, len(d.ActiveAllocations))
			for i := range d.ActiveAllocations {
				ids = append(ids, d.ActiveAllocations[i].ID)
			}
			d.Rewards = s.Rewards.AccruedRewardsBatch(ctx, ids, rewards.DefaultWorkers)
		}
	}

	if d.Active, d.Closed, err = s.Network.IndexerAllocations(ctx, id, since); err != nil {
		return nil, err
	}
	if d.POIs, err = s.Network.IndexerPOISubmissions(ctx, id, since); err != nil {
		return nil, err
	}
	if d.Delegations, d.Undelegations, err = s.Network.DelegationEvents(ctx, id, since); err != nil {
		return nil, err
	}

	if s.Rewards != nil {
		var legacy []networksubgraph.Allocation
		for _, a := range d.Closed {
			if a.IsLegacy && utils.ParseWei(a.IndexingRewards).Sign() == 0 {
				legacy = append(legacy, a)
			}
		}
		if len(legacy) > 0 {
			if d.Legacy, err = s.Rewards.LegacyRewards(ctx, id, legacy, now); err != nil {
				s.Log.WithError(err).Debug("could not read legacy rewards")
			}
		}
	}

	if d.Top, err = s.Network.TopAllocations(ctx, id, topAllocationLimit); err != nil {
		return nil, err
	}
	if len(d.Top) > 0 {
		if ind.URL == "" {
			d.StatusError = "No indexer URL in network subgraph"
		} else if d.TopStatuses, err = indexerstatus.NewClient(topStatusTimeout).DeploymentStatuses(ctx, ind.URL); err != nil {
			d.StatusError = err.Error()
		}
	}
	return d, nil
}

// ResolveDelegator accepts an address or an ENS name and returns the
// lowercase address with its display name.
func (s *Sources) ResolveDelegator(ctx context.Context, arg string) (string, string, error) {
	arg = strings.TrimSpace(arg)
	if strings.HasPrefix(strings.ToLower(arg), "0x") {
		addr := strings.ToLower(arg)
		name := ""
		if s.ENS != nil {
			name = s.ENS.ResolveAddress(ctx, addr)
		}
		return addr, name, nil
	}
	if s.ENS == nil {
		return "", "", fmt.Errorf("%w: ENS resolution not available", ErrInvalidAddress)
	}
	addr, err := s.ENS.ResolveName(ctx, arg)
	if err != nil {
		return "", "", fmt.Errorf("%w '%s': %v", ErrUnresolvedName, arg, err)
	}
	if addr == "" {
		return "", "", fmt.Errorf("%w '%s'", ErrUnresolvedName, arg)
	}
	return addr, arg, nil
}

// DelegatorInfo gathers a delegator's portfolio.
func (s *Sources) DelegatorInfo(ctx context.Context, delegator, ensName string) (*DelegatorInfo, error) {
	delegator = strings.ToLower(delegator)
	delegations, err := s.Network.DelegatorDelegations(ctx, delegator)
	if err != nil {
		return nil, err
	}

	var stats *analytics.DelegatorStats
	if s.Analytics != nil {
		if stats, err = s.Analytics.DelegatorStats(ctx, delegator); err != nil {
			s.Log.WithError(err).Info("analytics subgraph unavailable")
			stats = nil
		}
	}

	d := BuildPortfolio(delegator, delegations, stats, s.delegationBalances(ctx, delegator, delegations))
	d.ENSName = ensName
	if d.Empty {
		return d, nil
	}

	if stats == nil && len(d.Active) > 0 {
		s.accruedFromAllocations(ctx, d, delegations)
	}

	var ids []string
	for _, row := range d.Active {
		ids = append(ids, row.IndexerID)
	}
	for _, row := range d.ThawingRows {
		ids = append(ids, row.IndexerID)
	}
	d.SetNames(s.Names(ctx, ids))
	return d, nil
}

func (s *Sources) delegationBalances(ctx context.Context, delegator string, delegations []networksubgraph.DelegatedStake) map[string]*big.Int {
	balances := make(map[string]*big.Int)
	if s.Rewards == nil {
		return balances
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(rewards.DefaultWorkers)
	for _, ds := range delegations {
		if utils.ParseWei(ds.ShareAmount).Sign() <= 0 {
			continue
		}
		indexer := strings.ToLower(ds.Indexer.ID)
		g.Go(func() error {
			balance, err := s.Rewards.DelegationBalance(ctx, indexer, delegator)
			if err != nil {
				s.Log.WithError(err).WithField("indexer", indexer).Debug("could not read delegation balance")
				return nil
			}
			if balance != nil {
				mu.Lock()
				balances[indexer] = balance
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return balances
}

func (s *Sources) accruedFromAllocations(ctx context.Context, d *DelegatorInfo, delegations []networksubgraph.DelegatedStake) {
	ids := make([]string, 0, len(d.Active))
	for _, row := range d.Active {
		ids = append(ids, row.IndexerID)
	}
	allocations, err := s.Network.ActiveAllocationsForIndexers(ctx, ids)
	if err != nil {
		s.Log.WithError(err).Info("could not fetch active allocations")
		return
	}

	cuts := make(map[string]float64)
	for _, ds := range delegations {
		cuts[strings.ToLower(ds.Indexer.ID)] = float64(ds.Indexer.IndexingRewardCut) / constants.PPMBase
	}

	var rewardsByAllocation map[string]*big.Int
	if s.Rewards == nil {
		d.RPCUnavailable = true
	} else {
		var allocationIDs []string
		for _, allocs := range allocations {
			for _, a := range allocs {
				allocationIDs = append(allocationIDs, a.ID)
			}
		}
		rewardsByAllocation = s.Rewards.AccruedRewardsBatch(ctx, allocationIDs, rewards.DefaultWorkers)
	}

	for _, id := range ids {
		allocs := allocations[id]
		if len(allocs) == 0 {
			continue
		}
		row := AccruedRow{IndexerID: id}
		if cut, ok := cuts[id]; ok {
			row.Cut = &cut
		}
		if rewardsByAllocation != nil {
			total := new(big.Int)
			for _, a := range allocs {
				if amount := rewardsByAllocation[strings.ToLower(a.ID)]; amount != nil {
					total.Add(total, amount)
				}
			}
			row.Accrued = total
		}
		d.Accrued = append(d.Accrued, row)
	}
}
