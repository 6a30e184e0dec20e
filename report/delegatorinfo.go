package report

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/grtinfo/grtinfo/analytics"
	"github.com/grtinfo/grtinfo/format"
	networksubgraph "github.com/grtinfo/grtinfo/networkSubgraph"
	"github.com/grtinfo/grtinfo/utils"
)

type DelegationRow struct {
	IndexerID string
	Name      string
	Staked    *big.Int
	// Accrued is the pool value above the current stake, nil when unknown.
	Accrued *big.Int
}

type ThawingRow struct {
	IndexerID         string
	Name              string
	Locked            *big.Int
	LastUndelegatedAt int64
}

// AccruedRow is the pending reward of an indexer's active allocations.
type AccruedRow struct {
	IndexerID string
	Name      string
	Accrued   *big.Int
	// Cut is the indexer's reward cut, nil when unknown.
	Cut *float64
}

// DelegatorInfo is a delegator's portfolio. Amounts are wei.
type DelegatorInfo struct {
	Delegator string
	ENSName   string

	Empty        bool
	HasAnalytics bool

	Staked      *big.Int
	Accumulated *big.Int
	Thawing     *big.Int
	Pending     *big.Int
	Withdrawn   *big.Int
	Unrealized  *big.Int

	Active      []DelegationRow
	ThawingRows []ThawingRow

	// Accrued is only gathered without analytics.
	Accrued        []AccruedRow
	RPCUnavailable bool
}

// Total is staked plus accumulated plus thawing.
func (d *DelegatorInfo) Total() *big.Int {
	t := new(big.Int).Add(d.Staked, d.Accumulated)
	return t.Add(t, d.Thawing)
}

type stakeTotals struct {
	staked *big.Int
	locked *big.Int
}

// BuildPortfolio values a delegator's positions. With analytics, stakes are
// aggregated per indexer from it, since the network subgraph keeps
// undelegated amounts in stakedTokens. balances holds on-chain pool
// balances per lowercase indexer id; missing entries are derived from the
// subgraph's pool totals.
func BuildPortfolio(delegator string, delegations []networksubgraph.DelegatedStake, stats *analytics.DelegatorStats, balances map[string]*big.Int) *DelegatorInfo {
	d := &DelegatorInfo{
		Delegator:    strings.ToLower(delegator),
		Empty:        len(delegations) == 0,
		HasAnalytics: stats != nil,
		Staked:       new(big.Int),
		Accumulated:  new(big.Int),
		Thawing:      new(big.Int),
		Pending:      new(big.Int),
		Withdrawn:    new(big.Int),
		Unrealized:   new(big.Int),
	}

	currentStake := make(map[string]*big.Int)
	if stats != nil {
		totals := make(map[string]*stakeTotals)
		var order []string
		for _, s := range stats.Stakes {
			id := s.IndexerID()
			if id == "" {
				continue
			}
			t, ok := totals[id]
			if !ok {
				t = &stakeTotals{staked: new(big.Int), locked: new(big.Int)}
				totals[id] = t
				order = append(order, id)
			}
			t.staked.Add(t.staked, s.Staked())
			t.locked.Add(t.locked, s.Locked())
		}
		for _, id := range order {
			t := totals[id]
			switch {
			case t.staked.Sign() > 0 && t.locked.Sign() == 0:
				d.Staked.Add(d.Staked, t.staked)
				d.Active = append(d.Active, DelegationRow{IndexerID: id, Staked: t.staked})
			case t.locked.Sign() > 0:
				d.Thawing.Add(d.Thawing, t.locked)
			}
		}

		currentStake = stats.StakeByIndexer()
		for _, u := range stats.UnrealizedByIndexer() {
			d.Pending.Add(d.Pending, u)
		}
		d.Unrealized = utils.ParseWei(stats.TotalUnrealizedRewards)
		if withdrawn := new(big.Int).Sub(utils.ParseWei(stats.TotalUnstakedTokens), d.Thawing); withdrawn.Sign() > 0 {
			d.Withdrawn = withdrawn
		}
	} else {
		for _, s := range delegations {
			if s.Active() {
				staked := utils.ParseWei(s.StakedTokens)
				d.Staked.Add(d.Staked, staked)
				d.Active = append(d.Active, DelegationRow{IndexerID: strings.ToLower(s.Indexer.ID), Staked: staked})
			}
			d.Thawing.Add(d.Thawing, utils.ParseWei(s.LockedTokens))
		}
	}

	accrued := make(map[string]*big.Int)
	for _, s := range delegations {
		id := strings.ToLower(s.Indexer.ID)
		if id == "" {
			continue
		}
		stake := currentStake[id]
		if stake == nil || stake.Sign() == 0 {
			stake = utils.ParseWei(s.StakedTokens)
		}
		balance := balances[id]
		if balance == nil {
			balance = poolBalance(s)
		}
		if balance == nil || stake.Sign() <= 0 {
			continue
		}
		accrued[id] = new(big.Int).Sub(balance, stake)
	}
	for _, a := range accrued {
		if a.Sign() > 0 {
			d.Accumulated.Add(d.Accumulated, a)
		}
	}

	for i := range d.Active {
		d.Active[i].Accrued = accrued[d.Active[i].IndexerID]
	}
	sort.SliceStable(d.Active, func(i, j int) bool {
		return d.Active[i].Staked.Cmp(d.Active[j].Staked) > 0
	})

	for _, s := range delegations {
		locked := utils.ParseWei(s.LockedTokens)
		if locked.Sign() <= 0 {
			continue
		}
		row := ThawingRow{IndexerID: strings.ToLower(s.Indexer.ID), Locked: locked}
		if s.LastUndelegatedAt != nil {
			row.LastUndelegatedAt = s.LastUndelegatedAt.Int64()
		}
		d.ThawingRows = append(d.ThawingRows, row)
	}
	return d
}

// poolBalance values the delegation's shares at the subgraph's pool rate.
func poolBalance(s networksubgraph.DelegatedStake) *big.Int {
	poolTokens := utils.ParseWei(s.Indexer.DelegatedTokens)
	poolShares := utils.ParseWei(s.Indexer.DelegatorShares)
	shares := utils.ParseWei(s.ShareAmount)
	if poolShares.Sign() <= 0 || shares.Sign() <= 0 {
		return nil
	}
	balance := new(big.Int).Mul(poolTokens, shares)
	return balance.Quo(balance, poolShares)
}

// SetNames labels rows with ENS names where known.
func (d *DelegatorInfo) SetNames(names map[string]string) {
	for i := range d.Active {
		d.Active[i].Name = names[d.Active[i].IndexerID]
	}
	for i := range d.ThawingRows {
		d.ThawingRows[i].Name = names[d.ThawingRows[i].IndexerID]
	}
	for i := range d.Accrued {
		d.Accrued[i].Name = names[d.Accrued[i].IndexerID]
	}
}

func rowName(name, id string) string {
	if name != "" {
		return name
	}
	return format.ShortAddress(id)
}

func tokensOrDash(wei *big.Int) string {
	if wei == nil || wei.Sign() <= 0 {
		return "-"
	}
	return format.Tokens(wei.String())
}

func (p *Printer) DelegatorInfo(d *DelegatorInfo) {
	if d.ENSName != "" {
		p.println(p.bold("Delegator:"), " ", p.cyan(d.ENSName), " (", d.Delegator, ")")
	} else {
		p.println(p.bold("Delegator:"), " ", p.cyan(d.Delegator))
	}

	if d.Empty {
		p.println()
		p.println(p.dim("No delegations found."))
		return
	}

	if len(d.Active) == 0 {
		p.emptyPortfolio(d)
	} else {
		p.portfolio(d)
		p.activeDelegations(d)
	}
	p.thawingDelegations(d)

	if len(d.Active) > 0 && d.HasAnalytics && d.Unrealized.Sign() > 0 {
		p.section("Unrealized Rewards Summary")
		p.println(p.bold("Total Unrealized:"), " ", p.cyan(format.Tokens(d.Unrealized.String())))
		p.println()
	}
	if len(d.Active) > 0 && !d.HasAnalytics {
		p.accruedFromAllocations(d)
	}
}

func (p *Printer) withdrawn(d *DelegatorInfo) {
	if d.Withdrawn.Sign() > 0 {
		p.println("  ", p.dim("Withdrawn: "+format.Tokens(d.Withdrawn.String())+" (lifetime)"))
	}
}

func (p *Printer) emptyPortfolio(d *DelegatorInfo) {
	p.section("Portfolio")
	p.println("  ", p.dim(format.PadLeft("Staked", 20)+"  "+format.PadLeft("Thawing", 20)))
	thawing := p.dim(format.PadLeft("-", 20))
	if d.Thawing.Sign() > 0 {
		thawing = p.cyan(format.PadLeft(format.Tokens(d.Thawing.String()), 20))
	}
	p.println("  ", p.dim(format.PadLeft("-", 20)), "  ", thawing)
	if d.Thawing.Sign() > 0 {
		p.println()
		p.println("  ", p.bold("Total Value:"), " ", p.white(format.Tokens(d.Thawing.String())))
	}
	p.withdrawn(d)

	p.section("Active Delegations")
	p.println("  ", p.dim("No active delegations."))
}

func (p *Printer) portfolio(d *DelegatorInfo) {
	p.section("Portfolio")
	p.println("  ", p.dim(format.PadLeft("Staked", 20)+"  "+format.PadLeft("Accumulated", 20)+"  "+format.PadLeft("Thawing", 20)))

	thawing := p.dim(format.PadLeft("-", 20))
	if d.Thawing.Sign() > 0 {
		thawing = p.cyan(format.PadLeft(format.Tokens(d.Thawing.String()), 20))
	}
	p.println("  ", p.green(format.PadLeft(format.Tokens(d.Staked.String()), 20)), "  ",
		p.yellow(format.PadLeft(format.Tokens(d.Accumulated.String()), 20)), "  ", thawing)
	p.println()
	p.println("  ", p.bold("Total Value:"), " ", p.white(format.Tokens(d.Total().String())))
	if d.Pending.Sign() > 0 {
		p.println("  ", p.dim("+ Pending: "+format.Tokens(d.Pending.String())+" (from active allocations)"))
	}
	p.withdrawn(d)
}

// Profit renders the accrued amount with its percentage of stake. Small
// losses from share rounding read as "~0".
func Profit(accrued, staked *big.Int) (string, int) {
	if accrued == nil || accrued.Sign() == 0 {
		return "-", 0
	}
	pct := ratio(accrued, staked) * 100
	switch {
	case accrued.Sign() > 0:
		return fmt.Sprintf("+%s (%+.0f%%)", format.Tokens(accrued.String()), pct), 1
	case pct <= -1:
		return fmt.Sprintf("%s (%+.0f%%)", format.Tokens(accrued.String()), pct), -1
	}
	return "~0", 0
}

func (p *Printer) activeDelegations(d *DelegatorInfo) {
	p.section(fmt.Sprintf("Active Delegations (%d)", len(d.Active)))
	p.println("  ", p.dim(format.PadRight("Indexer", 28)+" "+format.PadLeft("Staked", 20)+"    "+
		format.PadLeft("Value", 20)+"  "+format.PadLeft("Profit", 20)))

	for _, row := range d.Active {
		value := new(big.Int).Set(row.Staked)
		if row.Accrued != nil {
			value.Add(value, row.Accrued)
		}
		profit, sign := Profit(row.Accrued, row.Staked)
		profit = format.PadLeft(profit, 20)
		switch sign {
		case 1:
			profit = p.yellow(profit)
		case -1:
			profit = p.red(profit)
		default:
			profit = p.dim(profit)
		}

		p.println("  ", p.white(format.PadRight(rowName(row.Name, row.IndexerID), 28)),
			" ", p.dim(format.PadLeft(format.Tokens(row.Staked.String()), 20)),
			" ", p.dim("→"),
			" ", p.green(format.PadLeft(tokensOrDash(value), 20)),
			"  ", profit)
	}
}

func (p *Printer) thawingDelegations(d *DelegatorInfo) {
	if len(d.ThawingRows) == 0 {
		return
	}
	p.section("Thawing Delegations")
	p.println("  ", p.dim(format.PadRight("Indexer", 35)+" "+format.PadLeft("Amount", 18)+" "+format.PadLeft("Status", 20)))
	for _, row := range d.ThawingRows {
		p.println("  ", p.white(format.PadRight(rowName(row.Name, row.IndexerID), 35)),
			"  ", p.yellow(format.PadLeft(format.Tokens(row.Locked.String()), 18)),
			"  ", p.dim(format.PadLeft(ThawRemaining(row.LastUndelegatedAt, p.Now), 20)))
	}
}

func (p *Printer) accruedFromAllocations(d *DelegatorInfo) {
	if len(d.Accrued) == 0 {
		return
	}
	p.section("Accrued Rewards (from Active Allocations)")

	total := new(big.Int)
	var share float64
	for _, row := range d.Accrued {
		if row.Accrued == nil || row.Accrued.Sign() <= 0 {
			continue
		}
		total.Add(total, row.Accrued)
		line := "  " + p.white(format.PadRight(rowName(row.Name, row.IndexerID), 35)) +
			"  " + p.cyan(format.PadLeft(format.Tokens(row.Accrued.String()), 18))
		if row.Cut != nil {
			mine := utils.WeiToGRT(row.Accrued) * (1 - *row.Cut)
			share += mine
			line += "  " + p.dim("(your share: "+format.GRT(mine)+")")
		}
		p.println(line)
	}

	if total.Sign() == 0 {
		msg := "No accrued rewards found"
		if d.RPCUnavailable {
			msg += " (RPC unavailable)"
		}
		p.println(p.dim(msg))
		return
	}
	p.println()
	p.println(p.bold("Total Accrued:"), " ", p.cyan(format.Tokens(total.String())))
	if share > 0 {
		p.println(p.bold("Your Share:"), " ", p.green(format.GRT(share)))
	}
}
