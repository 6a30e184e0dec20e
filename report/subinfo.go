package report

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/grtinfo/grtinfo/format"
	indexerstatus "github.com/grtinfo/grtinfo/indexerStatus"
	networksubgraph "github.com/grtinfo/grtinfo/networkSubgraph"
	"github.com/grtinfo/grtinfo/rewards"
	"github.com/grtinfo/grtinfo/utils"
)

// SubInfo is everything the subinfo report shows about one deployment.
type SubInfo struct {
	Hash        string
	SubgraphID  string
	Hours       int
	MyIndexerID string

	Metadata      *networksubgraph.Metadata
	Signal        *networksubgraph.CurationSignal
	SignalChanges []networksubgraph.SignalChange

	Current       []networksubgraph.Allocation
	Created       []networksubgraph.Allocation
	Unallocations []networksubgraph.Allocation
	POIs          []networksubgraph.POISubmission

	// Keyed by lowercase indexer id.
	Names        map[string]string
	URLs         map[string]string
	Stakes       map[string]networksubgraph.StakeInfo
	SyncStatuses map[string]indexerstatus.Status
	SyncErrors   map[string]string

	// MyRewards is nil when the contract could not be asked.
	MyRewards *big.Int
	// MyRewardCut is nil when my indexer's cut is unknown.
	MyRewardCut *float64
}

func (d *SubInfo) mine(indexer string) bool {
	return d.MyIndexerID != "" && strings.EqualFold(indexer, d.MyIndexerID)
}

// indexerName is the allocation row label: ENS name, else service URL host.
func (d *SubInfo) indexerName(id string) string {
	id = strings.ToLower(id)
	ens := d.Names[id]
	url := ""
	if ens == "" {
		url = d.URLs[id]
	}
	return format.IndexerDisplay(id, ens, url, format.DefaultIndexerWidth)
}

func (d *SubInfo) shortName(id string) string {
	if name := d.Names[strings.ToLower(id)]; name != "" {
		return name
	}
	return format.ShortAddress(id)
}

func (p *Printer) SubInfo(d *SubInfo) {
	p.println(p.bold("Subgraph:"), " ", p.cyan(p.S.DeploymentLink(d.Hash, d.SubgraphID)))

	p.subgraphMetadata(d.Metadata)
	p.curationSignal(d.Signal)
	p.signalChanges(d.SignalChanges, d.Hours)
	p.activeAllocations(d)
	p.deploymentTimeline(d)
	p.syncSummary(d)
	p.println()
}

func (p *Printer) subgraphMetadata(meta *networksubgraph.Metadata) {
	if meta == nil {
		return
	}
	p.section("Subgraph Metadata")
	if network := meta.Deployment.Network(); network != "" {
		p.println(p.bold("Network:"), " ", p.cyan(network))
	} else {
		p.println(p.bold("Network:"), " ", p.dim("Unknown"))
	}
	if meta.HasProportion {
		p.println(p.bold("Reward Proportion:"), " ", p.cyan(fmt.Sprintf("%.2f%%", meta.RewardProportion)))
	}
}

func (p *Printer) curationSignal(signal *networksubgraph.CurationSignal) {
	p.section("Curation Signal")
	if signal == nil {
		p.println(p.dim("No curation signal found."))
		return
	}
	p.println(p.bold("Total signal:"), " ", p.cyan(format.Tokens(signal.SignalledTokens)))
	if signal.IsNew && signal.CreatedAt > 0 {
		p.println(p.yellow("⚠️  New deployment"), " (created ", p.dim(format.ShortTimestamp(signal.CreatedAt)), ")")
	}
	if len(signal.Signals) > 0 {
		p.println(p.dim(fmt.Sprintf("Signals: %d", len(signal.Signals))))
	}
}

func (p *Printer) signalChanges(changes []networksubgraph.SignalChange, hours int) {
	p.section(fmt.Sprintf("Signal Changes (%dh)", hours))
	if len(changes) == 0 {
		p.println(p.dim("No changes found."))
		return
	}

	var added, removed float64
	for _, c := range changes {
		amount := utils.GRT(c.Tokens)
		tokens := format.Tokens(c.Tokens)
		ts := p.dim(format.PadRight(format.ShortTimestamp(c.Timestamp), 16))

		switch c.Type {
		case networksubgraph.ChangeUpgradeOut:
			removed += amount
			link := c.NewDeploymentHash
			if link == "" {
				link = "Unknown"
			} else {
				link = p.S.DeploymentLink(c.NewDeploymentHash, c.NewSubgraphID)
			}
			p.println("  [", p.red("↑"), "]  ", ts, "  ", p.red("Upgraded → "+link), "  ", p.red(tokens))
		case networksubgraph.ChangeSignal:
			added += amount
			p.println("  [", p.green("+"), "]  ", ts, "  ", p.white(format.PadRight(signallerShort(c.Signaller), 35)),
				"  ", p.green(format.PadLeft(tokens, 18)))
		default:
			removed += amount
			p.println("  [", p.red("-"), "]  ", ts, "  ", p.white(format.PadRight(signallerShort(c.Signaller), 35)),
				"  ", p.red(format.PadLeft(tokens, 18)))
		}
	}

	net := added - removed
	netText := format.Commas(net, 0) + " GRT"
	if net >= 0 {
		netText = p.green(netText)
	} else {
		netText = p.red(netText)
	}
	p.println(p.bold("Total:"), " ", p.green("+"+format.Commas(added, 0)), " | ", p.red("-"+format.Commas(removed, 0)), " | Net: ", netText)
}

func signallerShort(s string) string {
	if s == "" {
		s = "Unknown"
	}
	if len(s) > 10 {
		return s[:10] + "..."
	}
	return s
}

func (p *Printer) syncIndicator(d *SubInfo, indexer string) string {
	if s, ok := d.SyncStatuses[indexer]; ok {
		return "  " + p.S.SyncStatus(&s)
	}
	if msg, ok := d.SyncErrors[indexer]; ok {
		return "  " + p.dim("("+msg+")")
	}
	if d.URLs[indexer] == "" {
		return "  " + p.dim("(no URL)")
	}
	return ""
}

func (p *Printer) activeAllocations(d *SubInfo) {
	p.section("Active Allocations")
	if len(d.Current) == 0 {
		p.println(p.dim("No allocations found."))
		return
	}

	total := new(big.Int)
	var mineAlloc *networksubgraph.Allocation
	for i, a := range d.Current {
		indexer := a.IndexerID()
		total.Add(total, utils.ParseWei(a.AllocatedTokens))

		mine := d.mine(indexer)
		name := format.PadRight(d.indexerName(indexer), format.DefaultIndexerWidth)
		if mine {
			name = p.yellow(name)
			if a.CreatedAt > 0 {
				mineAlloc = &d.Current[i]
			}
		} else {
			name = p.white(name)
		}

		status := a.Status
		if status == "" {
			status = networksubgraph.StatusActive
		}
		statusText := p.dim(status)
		if status == networksubgraph.StatusActive {
			statusText = p.green(status)
		}
		duration := ""
		if a.IsActive() && a.ClosedAt == 0 && a.CreatedAt > 0 {
			duration = p.dim(" (" + format.Duration(p.Now.Unix()-a.CreatedAt.Int64()) + ")")
		}

		p.println("  ", p.star(mine), "  ", name, "  ",
			p.green(format.PadLeft(format.Tokens(a.AllocatedTokens), 17)), "  ",
			p.dim(format.ShortTimestamp(a.CreatedAt.Int64())), "  ",
			statusText, duration, p.syncIndicator(d, indexer))
	}

	p.println(p.bold("Total: "), p.green(format.Tokens(total.String())))
	if mineAlloc != nil {
		p.myAllocation(d, mineAlloc)
	}
}

func (p *Printer) myAllocation(d *SubInfo, a *networksubgraph.Allocation) {
	star := p.star(true)
	days := float64(p.Now.Unix()-a.CreatedAt.Int64()) / 86400

	p.println(p.bold("Your Allocation:"))
	p.println("  ", star, " Allocated: ", p.green(format.Commas(utils.GRT(a.AllocatedTokens), 0)+" GRT"),
		" for ", p.dim(fmt.Sprintf("%.1f days", days)))

	switch {
	case d.MyRewards == nil:
		p.println("  ", star, " Accrued rewards: ", p.dim("(RPC unavailable)"))
	case d.MyRewards.Sign() > 0:
		accrued := utils.WeiToGRT(d.MyRewards)
		p.println("  ", star, " Accrued rewards: ", p.cyan(format.Commas(accrued, 2)+" GRT"))
		if d.MyRewardCut != nil {
			cut := *d.MyRewardCut
			indexer, delegators := rewards.Split(accrued, cut)
			p.println("  ", star, fmt.Sprintf(" Indexer share (%.1f%%): ", cut*100), p.green(format.Commas(indexer, 2)+" GRT"))
			p.println("  ", star, fmt.Sprintf(" Delegator share (%.1f%%): ", (1-cut)*100), p.dim(format.Commas(delegators, 2)+" GRT"))
		}
	default:
		p.println("  ", star, " Accrued rewards: ", p.dim("0 GRT (no POI submitted yet)"))
	}
}

func (p *Printer) deploymentTimeline(d *SubInfo) {
	p.section(fmt.Sprintf("Allocations/Unallocations Timeline (%dh)", d.Hours))
	events := DeploymentTimeline(d.Created, d.Unallocations, d.POIs)
	if len(events) == 0 {
		p.println(p.dim("No events found."))
		return
	}

	for _, e := range events {
		mine := d.mine(e.Indexer)
		name := format.PadRight(d.indexerName(e.Indexer), format.DefaultIndexerWidth)
		if mine {
			name = p.yellow(name)
		} else {
			name = p.white(name)
		}
		tokens := format.PadLeft(format.Tokens(e.Tokens), 17)

		var symbol, rest string
		switch e.Kind {
		case EventAllocate:
			symbol = p.green("+")
			status := p.dim(e.Status)
			if e.Status == networksubgraph.StatusActive {
				status = p.green(e.Status)
			}
			rest = p.green(tokens) + "  " + status
			if e.ClosedAt > 0 {
				rest += " → closed " + p.dim(format.ShortTimestamp(e.ClosedAt))
			}
		case EventCollect:
			symbol = p.cyan("$")
			rest = p.cyan(tokens) + "  " + p.cyan(format.Commas(utils.WeiToGRT(e.Rewards), 2)+" GRT collected")
		default:
			symbol = p.red("-")
			rest = p.red(tokens) + "  closed"
			if e.Rewards != nil && e.Rewards.Sign() > 0 {
				rest += " → " + p.cyan(format.Commas(utils.WeiToGRT(e.Rewards), 2)+" GRT")
			}
			if stake, ok := d.Stakes[e.Indexer]; ok && stake.UnallocatedPct() > 30 {
				rest += " " + p.yellow(fmt.Sprintf("⚠ %.0f%% unallocated", stake.UnallocatedPct()))
			}
		}

		p.println("  [", symbol, "] ", p.star(mine), "  ", p.dim(format.ShortTimestamp(e.Timestamp)), "  ", name, "  ", rest)
	}

	allocated, unallocated := TimelineTotals(events)
	p.println(p.bold("Total:"), " ", p.green("+"+format.Commas(allocated, 0)), " | ", p.red("-"+format.Commas(unallocated, 0)+" GRT"))
}

func blocksText(behind int64) string {
	if behind >= 1000 {
		return fmt.Sprintf("%.0fk", float64(behind)/1000)
	}
	return fmt.Sprintf("%d", behind)
}

// syncSummary groups the active allocations' indexers by sync state.
func (p *Printer) syncSummary(d *SubInfo) {
	if len(d.Current) == 0 || len(d.SyncStatuses) == 0 {
		return
	}

	type lagging struct {
		name   string
		behind int64
	}
	var synced []string
	var syncing []lagging
	var failed []indexerstatus.Status
	var failedNames []string
	var notSynced []string

	for _, a := range d.Current {
		indexer := a.IndexerID()
		s, ok := d.SyncStatuses[indexer]
		if !ok {
			continue
		}
		name := d.shortName(indexer)
		switch {
		case s.Failed():
			failed = append(failed, s)
			failedNames = append(failedNames, name)
		case s.Synced && s.BlocksBehind < 100:
			synced = append(synced, name)
		case s.BlocksBehind > 0:
			syncing = append(syncing, lagging{name: name, behind: s.BlocksBehind})
		default:
			notSynced = append(notSynced, name)
		}
	}

	p.section("Sync Status")
	if len(synced) > 0 {
		more := ""
		shown := synced
		if len(synced) > 5 {
			shown = synced[:5]
			more = fmt.Sprintf(" +%d", len(synced)-5)
		}
		p.println("  ", p.green("✓ Synced:"), " ", strings.Join(shown, ", "), more)
	}
	for i, l := range syncing {
		if i == 5 {
			p.println("  ", p.dim(fmt.Sprintf("  ...and %d more syncing", len(syncing)-5)))
			break
		}
		p.println("  ", p.yellow("↻ "+l.name+":"), " ", p.dim("-"+blocksText(l.behind)+" blocks"))
	}
	if len(notSynced) > 0 {
		more := ""
		shown := notSynced
		if len(notSynced) > 5 {
			shown = notSynced[:5]
			more = fmt.Sprintf(" +%d", len(notSynced)-5)
		}
		p.println("  ", p.yellow("… Not synced:"), " ", strings.Join(shown, ", "), more)
	}
	for i, s := range failed {
		if i == 3 {
			break
		}
		msg := s.FatalError
		if msg == "" {
			msg = "Unknown error"
		}
		if len(msg) > 50 {
			msg = msg[:50]
		}
		p.println("  ", p.red("✗ "+failedNames[i]+":"), " ", p.dim(msg))
	}
}
