package report

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/grtinfo/grtinfo/format"
	indexerstatus "github.com/grtinfo/grtinfo/indexerStatus"
	networksubgraph "github.com/grtinfo/grtinfo/networkSubgraph"
	"github.com/grtinfo/grtinfo/rewards"
	"github.com/grtinfo/grtinfo/utils"
)

const (
	maxCandidates        = 10
	allocationEventLimit = 20
	delegationEventLimit = 15
	topAllocationLimit   = 10
	histogramWidth       = 30
)

var ErrInvalidChoice = errors.New("invalid selection")

// IndexerInfo is everything the indexerinfo report shows about one indexer.
type IndexerInfo struct {
	Indexer *networksubgraph.Indexer
	ENSName string
	Hours   int
	Since   time.Time

	// ContractCapacity is nil unless the staking contract answered.
	ContractCapacity *big.Int

	NetworkStats      *networksubgraph.NetworkStats
	ActiveAllocations []networksubgraph.Allocation

	WithRewards bool
	// RPCUnavailable is set when rewards were asked for without a usable
	// RPC endpoint.
	RPCUnavailable bool
	// Rewards maps lowercase allocation ids to accrued rewards; nil values
	// are failed lookups.
	Rewards map[string]*big.Int

	Active        []networksubgraph.Allocation
	Closed        []networksubgraph.Allocation
	POIs          []networksubgraph.POISubmission
	Delegations   []networksubgraph.DelegatedStake
	Undelegations []networksubgraph.DelegatedStake
	Legacy        map[string]*big.Int

	Top []networksubgraph.Allocation
	// TopStatuses is keyed by deployment hash.
	TopStatuses map[string]indexerstatus.Status
	StatusError string
}

// Candidates lists indexers matching an ambiguous search term.
func (p *Printer) Candidates(candidates []networksubgraph.Indexer, names map[string]string) {
	p.println(p.yellow("Multiple indexers found:"))
	for i, c := range candidates {
		if i == maxCandidates {
			break
		}
		id := strings.ToLower(c.ID)
		name := c.ENSName
		if name == "" {
			name = names[id]
		}
		if name != "" {
			name += " "
		}
		url := c.URL
		if len(url) > 40 {
			url = url[:40]
		}
		p.printf("  %d. %s(%s...) - %s GRT - %s\n", i+1, name, prefixOf(id, 10), format.TokensShort(c.StakedTokens), url)
	}
}

// Prompt asks for a choice among the first n candidates.
func (p *Printer) Prompt(n int) {
	p.printf("\n%s", p.cyan(fmt.Sprintf("Select indexer (1-%d): ", choices(n))))
}

func choices(n int) int {
	if n > maxCandidates {
		return maxCandidates
	}
	return n
}

// ParseChoice reads a 1-based answer to Prompt and returns the index.
func ParseChoice(answer string, n int) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil || v < 1 || v > choices(n) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidChoice, strings.TrimSpace(answer))
	}
	return v - 1, nil
}

func prefixOf(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func (p *Printer) IndexerInfo(d *IndexerInfo) {
	ind := d.Indexer
	if d.ENSName != "" {
		p.println(p.bold("Indexer:"), " ", p.cyan(d.ENSName), " (", ind.ID, ")")
	} else {
		p.println(p.bold("Indexer:"), " ", p.cyan(ind.ID))
	}
	if ind.URL != "" {
		p.println(p.dim(ind.URL))
	}

	stake := Summarize(ind, d.ContractCapacity)
	p.stake(stake)
	p.rewardCuts(ind, stake)
	p.instantAPR(d, stake)
	if d.WithRewards {
		p.accruedRewards(d)
	}

	p.section("Allocations")
	p.println("  Active: ", p.green(strconv.FormatInt(ind.AllocationCount, 10)), " | Total: ", ind.TotalAllocationCount)

	p.allocationActivity(d)
	p.delegationActivity(d)
	p.topAllocations(d)
	p.println()
}

func (p *Printer) stake(s StakeSummary) {
	p.section("Stake")
	p.println("  Self stake:      ", p.green(format.Tokens(s.Self.String())))

	delegated := p.cyan(format.Tokens(s.Delegated.String())) + " / " + format.Tokens(s.MaxDelegation.String()) +
		fmt.Sprintf(" (%.0f%%)", s.UsedPct)
	if s.Thawing.Sign() > 0 {
		delegated += " " + p.dim("("+format.Tokens(s.Thawing.String())+" thawing)")
	}
	p.println("  Delegated:       ", delegated)

	if s.Room.Sign() > 0 {
		p.println("  Delegation room: ", p.green(format.Tokens(s.Room.String())))
	} else {
		p.println("  Delegation room: ", p.red("FULL"))
	}
	p.println("  ", p.bold("Total:           "+format.Tokens(s.Total.String())))
	p.println("  Allocated:       ", format.Tokens(s.Allocated.String()))

	remaining := fmt.Sprintf("%s (%.1f%%)", format.Tokens(s.Remaining.String()), s.RemainingPct)
	switch {
	case s.Remaining.Sign() < 0:
		remaining = p.red(remaining + " ⚠ OVER-ALLOCATED")
	case s.RemainingPct < 10:
		remaining = p.green(remaining)
	case s.RemainingPct > 30:
		remaining = p.yellow(remaining)
	default:
		remaining = p.dim(remaining)
	}
	p.println("  Remaining:       ", remaining)
}

func (p *Printer) rewardCuts(ind *networksubgraph.Indexer, s StakeSummary) {
	p.section("Reward Cuts")
	raw := ind.RewardCut()
	query := ind.QueryCut()
	p.println("  Indexing rewards: ", p.cyan(fmt.Sprintf("%.1f%%", raw*100)), " raw, ",
		p.yellow(fmt.Sprintf("%.1f%%", EffectiveCut(raw, s.Self, s.Delegated)*100)), " effective on delegators")
	p.println("  Query fees:       ", p.cyan(fmt.Sprintf("%.1f%%", query*100)), " raw, ",
		p.yellow(fmt.Sprintf("%.1f%%", EffectiveCut(query, s.Self, s.Delegated)*100)), " effective on delegators")
}

func (p *Printer) instantAPR(d *IndexerInfo, s StakeSummary) {
	p.section("Instant APR (current allocations)")
	if d.NetworkStats == nil || len(d.ActiveAllocations) == 0 {
		p.println("  ", p.dim("Unable to fetch network data"))
		return
	}

	cut := d.Indexer.RewardCut()
	apr, ok := EstimateAPR(d.NetworkStats, d.ActiveAllocations, utils.WeiToGRT(s.Self), utils.WeiToGRT(s.Delegated), cut)
	if !ok {
		p.println("  ", p.dim("Unable to calculate APR"))
		return
	}
	p.println("  Expected rewards: ", p.cyan(format.Commas(apr.Expected, 0)+" GRT/year"))
	p.printf("  Indexer share (%.1f%%): %s GRT/year\n", cut*100, format.Commas(apr.IndexerRewards, 0))
	p.printf("  Delegator share (%.1f%%): %s GRT/year\n", (1-cut)*100, format.Commas(apr.DelegatorRewards, 0))
	p.println("  APR Indexer:    ", p.green(fmt.Sprintf("%.1f%%", apr.Indexer)))
	p.println("  APR Delegators: ", p.green(fmt.Sprintf("%.2f%%", apr.Delegators)))
}

func (p *Printer) accruedRewards(d *IndexerInfo) {
	if d.RPCUnavailable {
		p.section("Accrued Rewards")
		p.println("  ", p.dim("RPC URL not configured. Set RPC_URL or add rpc_url to config."))
		return
	}
	if len(d.ActiveAllocations) == 0 {
		p.section("Accrued Rewards")
		p.println("  ", p.dim("No active allocations found"))
		return
	}

	p.section(fmt.Sprintf("Accrued Rewards (%d allocations)", len(d.ActiveAllocations)))
	total, failed := SumRewards(d.Rewards)
	if missing := len(d.ActiveAllocations) - len(d.Rewards); missing > 0 {
		failed += missing
	}
	if total.Sign() <= 0 {
		p.println("  ", p.dim("No accrued rewards found (all allocations may be newly opened)"))
		return
	}

	cut := d.Indexer.RewardCut()
	grt := utils.WeiToGRT(total)
	indexer, delegators := rewards.Split(grt, cut)
	p.println("  Total accrued:     ", p.cyan(format.Commas(grt, 0)+" GRT"))
	p.println("  Indexer share:     ", p.green(format.Commas(indexer, 0)+" GRT"), fmt.Sprintf(" (%.1f%%)", cut*100))
	p.println("  Delegator share:   ", p.dim(format.Commas(delegators, 0)+" GRT"), fmt.Sprintf(" (%.1f%%)", (1-cut)*100))
	if failed > 0 {
		p.println("  ", p.dim(fmt.Sprintf("⚠ %d allocations failed to fetch", failed)))
	}

	buckets := EpochHistogram(d.ActiveAllocations, d.Rewards, p.Now)
	var largest float64
	for _, b := range buckets {
		if b.Rewards > largest {
			largest = b.Rewards
		}
	}
	if largest <= 0 {
		return
	}

	p.println()
	p.println("  ", p.bold("Rewards by epochs until expiration:"))
	p.println("  ", p.dim("(allocations expire after 28 epochs ≈ 28 days)"))
	for _, b := range buckets {
		var prefix string
		color := p.green
		switch {
		case b.End <= 0:
			prefix, color = "⚠️ ", p.red
		case b.Start <= 3:
			prefix, color = "⏰ ", p.yellow
		default:
			prefix = "   "
		}

		bar := Bar(b.Rewards, largest, histogramWidth)
		label := format.PadLeft(b.Label, 6)
		if b.Rewards > 0 {
			p.println("  ", prefix, label, " ", color(bar), " ", format.PadLeft(format.Commas(b.Rewards, 0), 10),
				fmt.Sprintf(" GRT (%3d)", b.Count))
		} else {
			p.println("  ", prefix, label, " ", p.dim(bar), "          - GRT")
		}
	}
}

func (p *Printer) allocationActivity(d *IndexerInfo) {
	events := IndexerTimeline(d.Active, d.Closed, d.POIs, d.Legacy, d.Since)
	if len(events) == 0 {
		return
	}
	p.section(fmt.Sprintf("Allocation Activity (%dh)", d.Hours))

	for i, e := range events {
		if i == allocationEventLimit {
			break
		}
		tokens := format.TokensShort(e.Tokens)
		target := p.deployment(e.Deployment)

		var symbol, details string
		switch e.Kind {
		case EventAllocate:
			symbol = p.green("+")
			details = tokens + " GRT"
		case EventUnallocate:
			symbol = p.red("-")
			details = tokens + " GRT"
			if e.Rewards != nil && e.Rewards.Sign() > 0 {
				details += " → " + format.Commas(utils.WeiToGRT(e.Rewards), 0) + " GRT"
				if e.Legacy {
					details += " " + p.dim("(legacy)")
				}
			}
		case EventCollect:
			symbol = p.cyan("$")
			details = format.Commas(utils.WeiToGRT(e.Rewards), 0) + " GRT collected"
		default:
			continue
		}
		p.println("  [", symbol, "] ", p.dim(format.Timestamp(e.Timestamp)), "  ", target, "  ", details)
	}
}

func (p *Printer) delegationActivity(d *IndexerInfo) {
	events := DelegationTimeline(d.Delegations, d.Undelegations, d.Since)
	if len(events) == 0 {
		return
	}
	p.section(fmt.Sprintf("Delegation Activity (%dh)", d.Hours))

	for i, e := range events {
		if i == delegationEventLimit {
			break
		}
		tokens := format.TokensShort(e.Tokens)
		delegator := e.Delegator
		if delegator == "" {
			delegator = "?"
		}

		var symbol, details string
		if e.Kind == EventDelegate {
			symbol = p.magenta("↑")
			if e.New {
				details = p.magenta("+" + tokens + " GRT delegated")
			} else {
				details = p.magenta("now " + tokens + " GRT (increased)")
			}
		} else {
			symbol = p.yellow("↓")
			remaining := "0"
			if r := utils.GRT(e.Remaining); r >= 1 {
				remaining = format.Commas(r, 0)
			}
			details = p.yellow(tokens + " GRT thawing, " + remaining + " remaining")
		}
		p.println("  [", symbol, "] ", p.dim(format.Timestamp(e.Timestamp)), "  ", delegator, "  ", details)
	}
}

func (p *Printer) topAllocations(d *IndexerInfo) {
	if len(d.Top) == 0 {
		return
	}
	p.section("Top Active Allocations")
	if d.StatusError != "" {
		p.println("  ", p.dim("⚠ Sync status unavailable: "+d.StatusError))
	}

	for i, a := range d.Top {
		if i == topAllocationLimit {
			break
		}
		link := p.deployment(a.SubgraphDeployment)
		tokens := format.PadLeft(format.Tokens(a.AllocatedTokens), 12)
		age := format.PadLeft(format.Duration(p.Now.Unix()-a.CreatedAt.Int64()), 8)

		if len(d.TopStatuses) > 0 {
			var status *indexerstatus.Status
			if a.SubgraphDeployment != nil {
				if s, ok := d.TopStatuses[a.SubgraphDeployment.IPFSHash]; ok {
					status = &s
				}
			}
			p.println("  ", link, "  ", tokens, "  ", p.dim(age), "  ", p.S.SyncStatus(status))
			continue
		}

		signal := 0.0
		if a.SubgraphDeployment != nil {
			signal = utils.GRT(a.SubgraphDeployment.SignalledTokens)
		}
		p.println("  ", link, "  ", tokens, "  ", p.dim(age+"  signal: "+format.Commas(signal, 0)))
	}
}
