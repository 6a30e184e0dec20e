package report

import (
	"bytes"
	"encoding/json"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grtinfo/grtinfo/analytics"
	"github.com/grtinfo/grtinfo/format"
	indexerstatus "github.com/grtinfo/grtinfo/indexerStatus"
	networksubgraph "github.com/grtinfo/grtinfo/networkSubgraph"
)

const (
	me    = "0xme00000000000000000000000000000000000000"
	other = "0xother0000000000000000000000000000000000"
)

func newTestPrinter() (*Printer, *bytes.Buffer) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, format.PlainStyles())
	p.Now = testNow
	return p, &buf
}

func plain(buf *bytes.Buffer) string {
	return format.StripANSI(buf.String())
}

func subInfoFixture() *SubInfo {
	cut := 0.1
	return &SubInfo{
		Hash:        "QmTest",
		Hours:       48,
		MyIndexerID: me,
		Metadata:    &networksubgraph.Metadata{RewardProportion: 1.5, HasProportion: true},
		Signal: &networksubgraph.CurationSignal{
			SignalledTokens: wei(5000),
			Signals:         make([]networksubgraph.Signal, 2),
		},
		SignalChanges: []networksubgraph.SignalChange{
			{Type: networksubgraph.ChangeSignal, Signaller: "0x1234567890abcdef", Tokens: wei(100), Timestamp: int64(ago(time.Hour))},
			{Type: networksubgraph.ChangeUnsignal, Signaller: "0xfedcba", Tokens: wei(40), Timestamp: int64(ago(2 * time.Hour))},
		},
		Current: []networksubgraph.Allocation{
			{ID: "0xa1", Indexer: networksubgraph.Ref{ID: me}, AllocatedTokens: wei(1000), CreatedAt: ago(2 * day), Status: networksubgraph.StatusActive},
			{ID: "0xa2", Indexer: networksubgraph.Ref{ID: other}, AllocatedTokens: wei(500), CreatedAt: ago(5 * day), Status: networksubgraph.StatusActive},
		},
		Unallocations: []networksubgraph.Allocation{
			{ID: "0xa3", Indexer: networksubgraph.Ref{ID: other}, AllocatedTokens: wei(40), CreatedAt: ago(10 * day), ClosedAt: ago(2 * time.Hour),
				Status: networksubgraph.StatusClosed, IndexingRewards: wei(3)},
		},
		Names:        map[string]string{me: "me.eth"},
		URLs:         map[string]string{me: "https://me.example.com", other: "https://other.example.com"},
		Stakes:       map[string]networksubgraph.StakeInfo{other: {Staked: 100, Allocated: 10}},
		SyncStatuses: map[string]indexerstatus.Status{me: {Synced: true, Health: "healthy"}},
		SyncErrors:   map[string]string{other: "timeout"},
		MyRewards:    grt(10),
		MyRewardCut:  &cut,
	}
}

func TestSubInfoReport(t *testing.T) {
	p, buf := newTestPrinter()
	p.SubInfo(subInfoFixture())
	out := plain(buf)

	assert.Contains(t, out, "Subgraph: QmTest")
	assert.Contains(t, out, "Network: Unknown")
	assert.Contains(t, out, "Reward Proportion: 1.50%")
	assert.Contains(t, out, "Total signal: 5,000 GRT")
	assert.Contains(t, out, "Signals: 2")
	assert.Contains(t, out, "Signal Changes (48h)")
	assert.Contains(t, out, "0x12345678...")
	assert.Contains(t, out, "Total: +100 | -40 | Net: 60 GRT")

	assert.Contains(t, out, "me.eth (0xme00..)")
	assert.Contains(t, out, "★")
	assert.Contains(t, out, "(timeout)")
	assert.Contains(t, out, "Total: 1,500 GRT")
	assert.Contains(t, out, "Allocated: 1,000 GRT for 2.0 days")
	assert.Contains(t, out, "Accrued rewards: 10.00 GRT")
	assert.Contains(t, out, "Indexer share (10.0%): 1.00 GRT")
	assert.Contains(t, out, "Delegator share (90.0%): 9.00 GRT")

	assert.Contains(t, out, "Allocations/Unallocations Timeline (48h)")
	assert.Contains(t, out, "40 GRT  closed → 3.00 GRT ⚠ 90% unallocated")
	assert.Contains(t, out, "Total: +0 | -40 GRT")

	assert.Contains(t, out, "✓ Synced: me.eth")
}

func TestSubInfoWithoutRPC(t *testing.T) {
	d := subInfoFixture()
	d.MyRewards = nil

	p, buf := newTestPrinter()
	p.SubInfo(d)
	assert.Contains(t, plain(buf), "Accrued rewards: (RPC unavailable)")
}

func TestSubInfoNoPOIYet(t *testing.T) {
	d := subInfoFixture()
	d.MyRewards = new(big.Int)

	p, buf := newTestPrinter()
	p.SubInfo(d)
	assert.Contains(t, plain(buf), "0 GRT (no POI submitted yet)")
}

func TestSubInfoEmpty(t *testing.T) {
	p, buf := newTestPrinter()
	p.SubInfo(&SubInfo{Hash: "QmEmpty", Hours: 24})
	out := plain(buf)

	assert.NotContains(t, out, "Subgraph Metadata")
	assert.Contains(t, out, "No curation signal found.")
	assert.Contains(t, out, "Signal Changes (24h)")
	assert.Contains(t, out, "No changes found.")
	assert.Contains(t, out, "No allocations found.")
	assert.Contains(t, out, "No events found.")
	assert.NotContains(t, out, "Sync Status")
}

func TestSubInfoNotSyncedWithoutLag(t *testing.T) {
	d := subInfoFixture()
	d.SyncStatuses[other] = indexerstatus.Status{Health: "healthy"}

	p, buf := newTestPrinter()
	p.SubInfo(d)
	out := plain(buf)
	assert.Contains(t, out, "✓ Synced: me.eth")
	assert.Contains(t, out, "… Not synced: 0xother000..")
}

func TestSubInfoNoURLHintWhenNoIndexerHasURL(t *testing.T) {
	d := subInfoFixture()
	d.URLs = nil
	d.SyncStatuses = nil
	d.SyncErrors = nil

	p, buf := newTestPrinter()
	p.SubInfo(d)
	assert.Equal(t, 2, strings.Count(plain(buf), "(no URL)"))
}

func indexerFixture() *IndexerInfo {
	ind := &networksubgraph.Indexer{
		ID:                   "0xabc0000000000000000000000000000000000000",
		URL:                  "https://indexer.example.com/",
		StakedTokens:         wei(100),
		DelegatedTokens:      wei(1000),
		DelegatedCapacity:    wei(1000),
		AllocatedTokens:      wei(1050),
		IndexingRewardCut:    100_000,
		QueryFeeCut:          50_000,
		AllocationCount:      3,
		TotalAllocationCount: "42",
	}
	deploymentA := &networksubgraph.Deployment{IPFSHash: "QmA", SignalledTokens: wei(10)}
	deploymentB := &networksubgraph.Deployment{IPFSHash: "QmB"}

	return &IndexerInfo{
		Indexer: ind,
		ENSName: "idx.eth",
		Hours:   48,
		Since:   testNow.Add(-48 * time.Hour),
		Active: []networksubgraph.Allocation{
			{ID: "0xa1", AllocatedTokens: wei(250), CreatedAt: ago(time.Hour), Status: networksubgraph.StatusActive, SubgraphDeployment: deploymentA},
		},
		Closed: []networksubgraph.Allocation{
			{ID: "0xC1", AllocatedTokens: wei(300), ClosedAt: ago(3 * time.Hour), IsLegacy: true, IndexingRewards: "0", SubgraphDeployment: deploymentB},
		},
		Legacy: map[string]*big.Int{"0xc1": grt(9)},
		Delegations: []networksubgraph.DelegatedStake{
			{Delegator: networksubgraph.Ref{ID: "0xd1"}, StakedTokens: wei(5), CreatedAt: ago(2 * time.Hour), LastDelegatedAt: ago(2 * time.Hour)},
		},
		Top: []networksubgraph.Allocation{
			{ID: "0xa1", AllocatedTokens: wei(250), CreatedAt: ago(time.Hour), SubgraphDeployment: deploymentA},
		},
		TopStatuses: map[string]indexerstatus.Status{"QmA": {Synced: true}},
	}
}

func TestIndexerInfoReport(t *testing.T) {
	p, buf := newTestPrinter()
	p.IndexerInfo(indexerFixture())
	out := plain(buf)

	assert.Contains(t, out, "Indexer: idx.eth (0xabc0000000000000000000000000000000000000)")
	assert.Contains(t, out, "https://indexer.example.com/")
	assert.Contains(t, out, "Self stake:      100 GRT")
	assert.Contains(t, out, "Delegated:       1,000 GRT / 1,600 GRT")
	assert.Contains(t, out, "Delegation room: 600 GRT")
	assert.Contains(t, out, "Total:           1,100 GRT")
	assert.Contains(t, out, "Remaining:       50 GRT (4.5%)")
	assert.Contains(t, out, "Indexing rewards: 10.0% raw, 1.0% effective on delegators")
	assert.Contains(t, out, "Unable to fetch network data")
	assert.NotContains(t, out, "Accrued Rewards")
	assert.Contains(t, out, "Active: 3 | Total: 42")

	assert.Contains(t, out, "Allocation Activity (48h)")
	assert.Contains(t, out, "QmA  250 GRT")
	assert.Contains(t, out, "QmB  300 GRT → 9 GRT (legacy)")
	assert.Contains(t, out, "Delegation Activity (48h)")
	assert.Contains(t, out, "0xd1  +5 GRT delegated")

	assert.Contains(t, out, "Top Active Allocations")
	assert.Contains(t, out, "✓ synced")
	assert.NotContains(t, out, "Sync status unavailable")
}

func TestIndexerInfoOverAllocated(t *testing.T) {
	d := indexerFixture()
	d.Indexer.AllocatedTokens = wei(1200)
	d.TopStatuses = nil
	d.StatusError = "No indexer URL in network subgraph"

	p, buf := newTestPrinter()
	p.IndexerInfo(d)
	out := plain(buf)

	assert.Contains(t, out, "⚠ OVER-ALLOCATED")
	assert.Contains(t, out, "⚠ Sync status unavailable: No indexer URL in network subgraph")
	assert.Contains(t, out, "signal: 10")
}

func TestIndexerInfoAccruedRewards(t *testing.T) {
	d := indexerFixture()
	d.WithRewards = true
	d.ActiveAllocations = []networksubgraph.Allocation{
		{ID: "0xr1", CreatedAt: ago(27 * day)},
		{ID: "0xr2", CreatedAt: ago(time.Hour)},
		{ID: "0xr3", CreatedAt: ago(time.Hour)},
	}
	d.Rewards = map[string]*big.Int{"0xr1": grt(10), "0xr2": grt(5), "0xr3": nil}

	p, buf := newTestPrinter()
	p.IndexerInfo(d)
	out := plain(buf)

	assert.Contains(t, out, "Accrued Rewards (3 allocations)")
	assert.Contains(t, out, "Total accrued:     15 GRT")
	assert.Contains(t, out, "⚠ 1 allocations failed to fetch")
	assert.Contains(t, out, "Rewards by epochs until expiration:")
	assert.Contains(t, out, "  1-3d "+Bar(10, 10, histogramWidth))
	assert.Contains(t, out, "22-28d "+Bar(5, 10, histogramWidth))
	assert.Contains(t, out, "Unable to fetch network data")
}

func TestIndexerInfoRewardsWithoutRPC(t *testing.T) {
	d := indexerFixture()
	d.WithRewards = true
	d.RPCUnavailable = true

	p, buf := newTestPrinter()
	p.IndexerInfo(d)
	assert.Contains(t, plain(buf), "RPC URL not configured")
}

func TestCandidates(t *testing.T) {
	p, buf := newTestPrinter()
	p.Candidates([]networksubgraph.Indexer{
		{ID: "0x1234567890aaaa", URL: "https://one.example.com", StakedTokens: wei(1500)},
		{ID: "0xabcdef0000bbbb", StakedTokens: wei(20), ENSName: "two.eth"},
	}, map[string]string{"0x1234567890aaaa": "one.eth"})
	p.Prompt(2)
	out := plain(buf)

	assert.Contains(t, out, "Multiple indexers found:")
	assert.Contains(t, out, "1. one.eth (0x12345678...) - 1.5K GRT - https://one.example.com")
	assert.Contains(t, out, "2. two.eth (0xabcdef00...) - 20 GRT - ")
	assert.Contains(t, out, "Select indexer (1-2): ")
}

func delegationsFixture() []networksubgraph.DelegatedStake {
	undelegatedAt := ago(27 * day)
	return []networksubgraph.DelegatedStake{
		{
			Indexer:      networksubgraph.StakePool{ID: "0xI1", DelegatedTokens: wei(1100), DelegatorShares: wei(1000), IndexingRewardCut: 250_000},
			StakedTokens: wei(100),
			ShareAmount:  wei(100),
			LockedTokens: "0",
		},
		{
			Indexer:           networksubgraph.StakePool{ID: "0xi2", DelegatedTokens: wei(500), DelegatorShares: wei(500)},
			StakedTokens:      wei(50),
			ShareAmount:       "0",
			LockedTokens:      wei(50),
			LastUndelegatedAt: &undelegatedAt,
		},
	}
}

func TestBuildPortfolio(t *testing.T) {
	d := BuildPortfolio("0xDEL", delegationsFixture(), nil, nil)

	require.False(t, d.Empty)
	require.Equal(t, "0xdel", d.Delegator)
	require.Equal(t, grt(100), d.Staked)
	require.Equal(t, grt(50), d.Thawing)
	require.Equal(t, grt(10), d.Accumulated)
	require.Equal(t, grt(160), d.Total())
	require.Len(t, d.Active, 1)
	require.Equal(t, "0xi1", d.Active[0].IndexerID)
	require.Equal(t, grt(10), d.Active[0].Accrued)
	require.Len(t, d.ThawingRows, 1)
	require.Equal(t, int64(ago(27*day)), d.ThawingRows[0].LastUndelegatedAt)
}

func TestBuildPortfolioPrefersContractBalance(t *testing.T) {
	d := BuildPortfolio("0xdel", delegationsFixture(), nil, map[string]*big.Int{"0xi1": grt(120)})
	require.Equal(t, grt(20), d.Accumulated)
	require.Equal(t, grt(20), d.Active[0].Accrued)
}

func TestBuildPortfolioWithAnalytics(t *testing.T) {
	var stats analytics.DelegatorStats
	require.NoError(t, json.Unmarshal([]byte(`{
		"totalUnrealizedRewards": "3e18",
		"totalUnstakedTokens": "80000000000000000000",
		"stakes": [
			{"indexer": {"id": "0xI1"}, "stakedTokens": "100000000000000000000", "lockedTokens": "0", "unrealizedRewards": "2e18"},
			{"indexer": {"id": "0xi2"}, "stakedTokens": "0", "lockedTokens": "50000000000000000000", "unrealizedRewards": "1e18"}
		]
	}`), &stats))

	d := BuildPortfolio("0xdel", delegationsFixture(), &stats, nil)
	require.True(t, d.HasAnalytics)
	require.Equal(t, grt(100), d.Staked)
	require.Equal(t, grt(50), d.Thawing)
	require.Equal(t, grt(2), d.Pending)
	require.Equal(t, grt(3), d.Unrealized)
	require.Equal(t, grt(30), d.Withdrawn)
	require.Equal(t, grt(10), d.Accumulated)
	require.Len(t, d.Active, 1)
}

func TestProfit(t *testing.T) {
	text, sign := Profit(grt(10), grt(100))
	require.Equal(t, "+10 GRT (+10%)", text)
	require.Equal(t, 1, sign)

	text, sign = Profit(new(big.Int).Neg(grt(5)), grt(100))
	require.Equal(t, "-5 GRT (-5%)", text)
	require.Equal(t, -1, sign)

	text, _ = Profit(big.NewInt(-1000), grt(100))
	require.Equal(t, "~0", text)

	text, _ = Profit(nil, grt(100))
	require.Equal(t, "-", text)
}

func TestDelegatorInfoReport(t *testing.T) {
	d := BuildPortfolio("0xdel", delegationsFixture(), nil, nil)
	cut := 0.25
	d.Accrued = []AccruedRow{{IndexerID: "0xi1", Accrued: grt(4), Cut: &cut}}
	d.SetNames(map[string]string{"0xi1": "one.eth"})

	p, buf := newTestPrinter()
	p.DelegatorInfo(d)
	out := plain(buf)

	assert.Contains(t, out, "Delegator: 0xdel")
	assert.Contains(t, out, "Portfolio")
	assert.Contains(t, out, "Total Value: 160 GRT")
	assert.Contains(t, out, "Active Delegations (1)")
	assert.Contains(t, out, "one.eth")
	assert.Contains(t, out, "110 GRT")
	assert.Contains(t, out, "+10 GRT (+10%)")
	assert.Contains(t, out, "Thawing Delegations")
	assert.Contains(t, out, "0xi2")
	assert.Contains(t, out, "1d 0h remaining")
	assert.Contains(t, out, "Accrued Rewards (from Active Allocations)")
	assert.Contains(t, out, "(your share: 3 GRT)")
	assert.Contains(t, out, "Total Accrued: 4 GRT")
	assert.Contains(t, out, "Your Share: 3 GRT")
	assert.NotContains(t, out, "Unrealized Rewards Summary")
}

func TestDelegatorInfoNoAccruedRewards(t *testing.T) {
	d := BuildPortfolio("0xdel", delegationsFixture(), nil, nil)
	d.Accrued = []AccruedRow{{IndexerID: "0xi1"}}
	d.RPCUnavailable = true

	p, buf := newTestPrinter()
	p.DelegatorInfo(d)
	assert.Contains(t, plain(buf), "No accrued rewards found (RPC unavailable)")
}

func TestDelegatorInfoOnlyThawing(t *testing.T) {
	d := BuildPortfolio("0xdel", delegationsFixture()[1:], nil, nil)
	d.ENSName = "del.eth"

	p, buf := newTestPrinter()
	p.DelegatorInfo(d)
	out := plain(buf)

	assert.Contains(t, out, "Delegator: del.eth (0xdel)")
	assert.Contains(t, out, "Total Value: 50 GRT")
	assert.Contains(t, out, "No active delegations.")
	assert.Contains(t, out, "Thawing Delegations")
}

func TestDelegatorInfoEmpty(t *testing.T) {
	p, buf := newTestPrinter()
	p.DelegatorInfo(BuildPortfolio("0xdel", nil, nil, nil))
	out := plain(buf)

	assert.Contains(t, out, "No delegations found.")
	assert.NotContains(t, out, "Portfolio")
}
