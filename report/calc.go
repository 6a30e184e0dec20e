package report

import (
	"fmt"
	"math"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/grtinfo/grtinfo/constants"
	networksubgraph "github.com/grtinfo/grtinfo/networkSubgraph"
	"github.com/grtinfo/grtinfo/utils"
)

// ratio is a/b as a float, or 0 when b is zero.
func ratio(a, b *big.Int) float64 {
	if b == nil || b.Sign() == 0 || a == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(a), new(big.Float).SetInt(b)).Float64()
	return f
}

// StakeSummary is the indexer's stake position in wei.
type StakeSummary struct {
	Self          *big.Int
	Delegated     *big.Int
	MaxDelegation *big.Int
	Room          *big.Int
	Thawing       *big.Int
	Total         *big.Int
	Allocated     *big.Int
	Remaining     *big.Int

	UsedPct      float64
	RemainingPct float64
}

// Summarize derives the stake section. contractCapacity, when known,
// replaces the subgraph's tokenCapacity, which lags behind exchange rate
// updates.
func Summarize(ind *networksubgraph.Indexer, contractCapacity *big.Int) StakeSummary {
	self := utils.ParseWei(ind.StakedTokens)
	delegated := utils.ParseWei(ind.DelegatedTokens)
	allocated := utils.ParseWei(ind.AllocatedTokens)
	capacity := utils.ParseWei(ind.TokenCapacity)
	if contractCapacity != nil {
		capacity = contractCapacity
	}

	total := capacity
	if total.Sign() <= 0 {
		total = new(big.Int).Add(self, delegated)
	}
	remaining := new(big.Int).Sub(total, allocated)

	maxDelegation := new(big.Int).Mul(self, big.NewInt(constants.DelegationRatio))
	room := new(big.Int).Sub(maxDelegation, delegated)
	if room.Sign() < 0 {
		room.SetInt64(0)
	}

	return StakeSummary{
		Self:          self,
		Delegated:     delegated,
		MaxDelegation: maxDelegation,
		Room:          room,
		Thawing:       new(big.Int).Sub(delegated, utils.ParseWei(ind.DelegatedCapacity)),
		Total:         total,
		Allocated:     allocated,
		Remaining:     remaining,
		UsedPct:       ratio(delegated, maxDelegation) * 100,
		RemainingPct:  ratio(remaining, total) * 100,
	}
}

// EffectiveCut is the share of rewards delegators effectively give up once
// the indexer's own stake is accounted for. It equals raw when nothing is
// delegated.
func EffectiveCut(raw float64, self, delegated *big.Int) float64 {
	if delegated == nil || delegated.Sign() <= 0 {
		return raw
	}
	total := new(big.Int).Add(self, delegated)
	return 1 - (1-raw)*ratio(total, delegated)
}

// APR is the yearly reward estimate of an indexer's current allocations.
type APR struct {
	Expected         float64
	IndexerRewards   float64
	DelegatorRewards float64
	Indexer          float64
	Delegators       float64
}

// EstimateAPR projects yearly issuance onto each allocation by its
// deployment's share of network signal and its share of the deployment's
// stake. It reports false when nothing is expected.
func EstimateAPR(stats *networksubgraph.NetworkStats, allocations []networksubgraph.Allocation, self, delegated, cut float64) (APR, bool) {
	if stats == nil {
		return APR{}, false
	}
	annual := utils.GRT(stats.NetworkGRTIssuancePerBlock) * constants.BlocksPerYear
	totalSignal := utils.GRT(stats.TotalTokensSignalled)

	var expected float64
	for _, a := range allocations {
		if a.SubgraphDeployment == nil {
			continue
		}
		staked := utils.GRT(a.SubgraphDeployment.StakedTokens)
		if staked <= 0 || totalSignal <= 0 {
			continue
		}
		signal := utils.GRT(a.SubgraphDeployment.SignalledTokens)
		expected += annual * (signal / totalSignal) * (utils.GRT(a.AllocatedTokens) / staked)
	}
	if expected <= 0 {
		return APR{}, false
	}

	apr := APR{Expected: expected}
	apr.IndexerRewards, apr.DelegatorRewards = expected*cut, expected*(1-cut)
	if self > 0 {
		apr.Indexer = apr.IndexerRewards / self * 100
	}
	if delegated > 0 {
		apr.Delegators = apr.DelegatorRewards / delegated * 100
	}
	return apr, true
}

// Bucket groups accrued rewards by epochs left before allocations expire.
type Bucket struct {
	Label   string
	Start   int
	End     int
	Rewards float64
	Count   int
}

func newBuckets() []Bucket {
	return []Bucket{
		{Label: "exp!", Start: math.MinInt, End: -1},
		{Label: "0d", Start: 0, End: 0},
		{Label: "1-3d", Start: 1, End: 3},
		{Label: "4-7d", Start: 4, End: 7},
		{Label: "8-14d", Start: 8, End: 14},
		{Label: "15-21d", Start: 15, End: 21},
		{Label: "22-28d", Start: 22, End: constants.MaxAllocationEpochs},
	}
}

// EpochsRemaining counts whole epochs left before an allocation created at
// createdAt reaches its maximum age. It is negative once overdue.
func EpochsRemaining(createdAt int64, now time.Time) int {
	age := now.Unix() - createdAt
	epoch := int64(constants.EpochDuration / time.Second)
	return constants.MaxAllocationEpochs - int(age/epoch)
}

// EpochHistogram buckets accrued rewards (keyed by lowercase allocation id)
// of allocations with positive rewards.
func EpochHistogram(allocations []networksubgraph.Allocation, rewards map[string]*big.Int, now time.Time) []Bucket {
	buckets := newBuckets()
	for _, a := range allocations {
		created := a.CreatedAt.Int64()
		reward := rewards[strings.ToLower(a.ID)]
		if created <= 0 || reward == nil || reward.Sign() <= 0 {
			continue
		}
		left := EpochsRemaining(created, now)
		for i := range buckets {
			if left >= buckets[i].Start && left <= buckets[i].End {
				buckets[i].Rewards += utils.WeiToGRT(reward)
				buckets[i].Count++
				break
			}
		}
	}
	return buckets
}

// Bar renders value as a filled bar of width cells, scaled to top.
func Bar(value, top float64, width int) string {
	n := 0
	if top > 0 && value > 0 {
		n = int(value / top * float64(width))
		if n > width {
			n = width
		}
	}
	return strings.Repeat("█", n) + strings.Repeat("░", width-n)
}

// ThawRemaining describes the time left before thawing tokens undelegated
// at lastUndelegatedAt can be withdrawn.
func ThawRemaining(lastUndelegatedAt int64, now time.Time) string {
	if lastUndelegatedAt <= 0 {
		return "Unknown"
	}
	period := int64(constants.DefaultThawingPeriodDays * 24 * 3600)
	left := period - (now.Unix() - lastUndelegatedAt)
	if left <= 0 {
		return "Ready to withdraw"
	}

	days, hours, minutes := left/86400, left%86400/3600, left%3600/60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh remaining", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm remaining", hours, minutes)
	}
	return fmt.Sprintf("%dm remaining", minutes)
}

// SumRewards totals the positive amounts of a reward batch and counts the
// lookups that failed.
func SumRewards(rewards map[string]*big.Int) (*big.Int, int) {
	total := new(big.Int)
	failed := 0
	for _, r := range rewards {
		if r == nil {
			failed++
			continue
		}
		if r.Sign() > 0 {
			total.Add(total, r)
		}
	}
	return total, failed
}

type EventKind int

const (
	EventAllocate EventKind = iota
	EventUnallocate
	EventCollect
	EventDelegate
	EventUndelegate
)

// Event is one row of an activity timeline.
type Event struct {
	Kind       EventKind
	Timestamp  int64
	Indexer    string
	Tokens     string
	Rewards    *big.Int
	Status     string
	CreatedAt  int64
	ClosedAt   int64
	Deployment *networksubgraph.Deployment
	Legacy     bool

	Delegator string
	Remaining string
	New       bool
}

func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp > events[j].Timestamp
	})
}

// collectEvents turns POI submissions on still active allocations into
// collect events; closing POIs are already covered by the close itself.
func collectEvents(pois []networksubgraph.POISubmission) []Event {
	var events []Event
	for _, poi := range pois {
		a := poi.Allocation
		if !a.IsActive() {
			continue
		}
		events = append(events, Event{
			Kind:       EventCollect,
			Timestamp:  poi.PresentedAtTimestamp.Int64(),
			Indexer:    a.IndexerID(),
			Tokens:     a.AllocatedTokens,
			Rewards:    utils.ParseWei(a.IndexingRewards),
			Status:     a.Status,
			Deployment: a.SubgraphDeployment,
		})
	}
	return events
}

// DeploymentTimeline merges allocations created and closed on a deployment
// with reward collections, newest first.
func DeploymentTimeline(created, closed []networksubgraph.Allocation, pois []networksubgraph.POISubmission) []Event {
	events := make([]Event, 0, len(created)+len(closed)+len(pois))
	for _, a := range created {
		events = append(events, Event{
			Kind:      EventAllocate,
			Timestamp: a.CreatedAt.Int64(),
			Indexer:   a.IndexerID(),
			Tokens:    a.AllocatedTokens,
			Status:    a.Status,
			ClosedAt:  a.ClosedAt.Int64(),
		})
	}
	for _, a := range closed {
		events = append(events, Event{
			Kind:      EventUnallocate,
			Timestamp: a.ClosedAt.Int64(),
			Indexer:   a.IndexerID(),
			Tokens:    a.AllocatedTokens,
			Status:    a.Status,
			CreatedAt: a.CreatedAt.Int64(),
			Rewards:   utils.ParseWei(a.IndexingRewards),
		})
	}
	events = append(events, collectEvents(pois)...)
	sortEvents(events)
	return events
}

// TimelineTotals sums allocated and unallocated GRT. Collections move no
// stake and are not counted.
func TimelineTotals(events []Event) (float64, float64) {
	var allocated, unallocated float64
	for _, e := range events {
		switch e.Kind {
		case EventAllocate:
			allocated += utils.GRT(e.Tokens)
		case EventUnallocate:
			unallocated += utils.GRT(e.Tokens)
		}
	}
	return allocated, unallocated
}

// IndexerTimeline builds the allocation activity of one indexer within the
// window starting at since. legacy holds rewards recovered from chain logs
// for closed legacy allocations the subgraph reports as unrewarded.
func IndexerTimeline(active, closed []networksubgraph.Allocation, pois []networksubgraph.POISubmission, legacy map[string]*big.Int, since time.Time) []Event {
	var events []Event
	for _, a := range active {
		if a.CreatedAt.Int64() < since.Unix() {
			continue
		}
		events = append(events, Event{
			Kind:       EventAllocate,
			Timestamp:  a.CreatedAt.Int64(),
			Tokens:     a.AllocatedTokens,
			Status:     a.Status,
			Deployment: a.SubgraphDeployment,
		})
	}
	for _, a := range closed {
		rewards := utils.ParseWei(a.IndexingRewards)
		if a.IsLegacy && rewards.Sign() == 0 {
			if r, ok := legacy[strings.ToLower(a.ID)]; ok && r != nil {
				rewards = r
			}
		}
		events = append(events, Event{
			Kind:       EventUnallocate,
			Timestamp:  a.ClosedAt.Int64(),
			Tokens:     a.AllocatedTokens,
			Rewards:    rewards,
			Status:     a.Status,
			Deployment: a.SubgraphDeployment,
			Legacy:     a.IsLegacy,
		})
	}
	events = append(events, collectEvents(pois)...)
	sortEvents(events)
	return events
}

// DelegationTimeline lists delegations and undelegations, newest first. A
// delegation whose stake was created inside the window is new; otherwise it
// topped up an existing one.
func DelegationTimeline(delegations, undelegations []networksubgraph.DelegatedStake, since time.Time) []Event {
	var events []Event
	for _, d := range delegations {
		events = append(events, Event{
			Kind:      EventDelegate,
			Timestamp: d.LastDelegatedAt.Int64(),
			Tokens:    d.StakedTokens,
			Delegator: d.Delegator.ID,
			New:       d.CreatedAt.Int64() >= since.Unix(),
		})
	}
	for _, d := range undelegations {
		var at int64
		if d.LastUndelegatedAt != nil {
			at = d.LastUndelegatedAt.Int64()
		}
		events = append(events, Event{
			Kind:      EventUndelegate,
			Timestamp: at,
			Tokens:    d.LockedTokens,
			Remaining: d.StakedTokens,
			Delegator: d.Delegator.ID,
		})
	}
	sortEvents(events)
	return events
}
