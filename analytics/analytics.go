package analytics

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/grtinfo/grtinfo/graphql"
	"github.com/grtinfo/grtinfo/logger"
	"github.com/grtinfo/grtinfo/utils"
)

var DelegatorStatsRequest = `query DelegatorStats($delegator: String!) {
  delegator(id: $delegator) {
    id
    totalStakedTokens
    totalRealizedRewards
    totalUnrealizedRewards
    totalUnstakedTokens
    stakes(first: 1000, orderBy: stakedTokens, orderDirection: desc) {
      id
      indexer { id }
      stakedTokens
      lockedTokens
      realizedRewards
      unrealizedRewards
    }
  }
}`

// Stake is a delegator's position with one indexer. Amounts are wei and may
// come back from the subgraph in scientific notation.
type Stake struct {
	ID      string `json:"id"`
	Indexer struct {
		ID string `json:"id"`
	} `json:"indexer"`
	StakedTokens      string `json:"stakedTokens"`
	LockedTokens      string `json:"lockedTokens"`
	RealizedRewards   string `json:"realizedRewards"`
	UnrealizedRewards string `json:"unrealizedRewards"`
}

func (s Stake) IndexerID() string {
	return strings.ToLower(s.Indexer.ID)
}

func (s Stake) Staked() *big.Int     { return utils.ParseWei(s.StakedTokens) }
func (s Stake) Locked() *big.Int     { return utils.ParseWei(s.LockedTokens) }
func (s Stake) Unrealized() *big.Int { return utils.ParseWei(s.UnrealizedRewards) }

// Active stakes hold tokens and have nothing thawing.
func (s Stake) Active() bool {
	return s.Staked().Sign() > 0 && s.Locked().Sign() == 0
}

type DelegatorStats struct {
	ID                     string  `json:"id"`
	TotalStakedTokens      string  `json:"totalStakedTokens"`
	TotalRealizedRewards   string  `json:"totalRealizedRewards"`
	TotalUnrealizedRewards string  `json:"totalUnrealizedRewards"`
	TotalUnstakedTokens    string  `json:"totalUnstakedTokens"`
	Stakes                 []Stake `json:"stakes"`
}

// StakeByIndexer sums staked tokens per indexer.
func (d *DelegatorStats) StakeByIndexer() map[string]*big.Int {
	out := make(map[string]*big.Int)
	for _, s := range d.Stakes {
		id := s.IndexerID()
		if _, ok := out[id]; !ok {
			out[id] = new(big.Int)
		}
		out[id].Add(out[id], s.Staked())
	}
	return out
}

// UnrealizedByIndexer sums unrealized rewards of active stakes.
func (d *DelegatorStats) UnrealizedByIndexer() map[string]*big.Int {
	out := make(map[string]*big.Int)
	for _, s := range d.Stakes {
		if !s.Active() {
			continue
		}
		id := s.IndexerID()
		if _, ok := out[id]; !ok {
			out[id] = new(big.Int)
		}
		out[id].Add(out[id], s.Unrealized())
	}
	return out
}

type Client struct {
	Client *graphql.Client
	Log    *logrus.Entry
}

func NewClient(url string) *Client {
	return &Client{
		Client: graphql.NewClient(url, graphql.DefaultTimeout),
		Log:    logger.New("analytics"),
	}
}

// DelegatorStats returns nil when the analytics subgraph does not know the
// delegator.
func (c *Client) DelegatorStats(ctx context.Context, delegator string) (*DelegatorStats, error) {
	var resp struct {
		Delegator *DelegatorStats `json:"delegator"`
	}
	vars := map[string]any{"delegator": strings.ToLower(delegator)}
	if err := c.Client.Do(ctx, DelegatorStatsRequest, vars, &resp); err != nil {
		return nil, fmt.Errorf("analytics query: %w", err)
	}
	return resp.Delegator, nil
}
