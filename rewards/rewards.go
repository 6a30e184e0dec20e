package rewards

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	goerrors "github.com/go-errors/errors"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/grtinfo/grtinfo/constants"
	"github.com/grtinfo/grtinfo/logger"
	networksubgraph "github.com/grtinfo/grtinfo/networkSubgraph"
)

var ErrNoRPC = errors.New("no RPC endpoint configured")

const DefaultWorkers = 5

// ChainReader is the part of ethclient.Client the reward lookups use.
type ChainReader interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

type Client struct {
	Chain ChainReader
	Log   *logrus.Entry

	rewardsManager abi.ABI
	staking        abi.ABI
}

func NewClient(chain ChainReader) (*Client, error) {
	rewardsManager, err := abi.JSON(strings.NewReader(rewardsManagerABI))
	if err != nil {
		return nil, fmt.Errorf("could not parse RewardsManager ABI: %w", err)
	}
	staking, err := abi.JSON(strings.NewReader(horizonStakingABI))
	if err != nil {
		return nil, fmt.Errorf("could not parse HorizonStaking ABI: %w", err)
	}
	if err := checkSelector(rewardsManager, "getRewards", constants.GetRewardsSelector); err != nil {
		return nil, err
	}
	if err := checkSelector(staking, "getDelegation", constants.GetDelegationSelector); err != nil {
		return nil, err
	}
	return &Client{
		Chain:          chain,
		Log:            logger.New("rewards"),
		rewardsManager: rewardsManager,
		staking:        staking,
	}, nil
}

func checkSelector(parsed abi.ABI, method, want string) error {
	m, ok := parsed.Methods[method]
	if !ok {
		return fmt.Errorf("ABI has no %s method", method)
	}
	if got := hexutil.Encode(m.ID); got != want {
		return fmt.Errorf("%s selector is %s, expected %s", method, got, want)
	}
	return nil
}

// Dial connects to an EVM JSON-RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*Client, error) {
	if strings.TrimSpace(rpcURL) == "" {
		return nil, ErrNoRPC
	}
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("could not dial %s: %w", rpcURL, err)
	}
	return NewClient(eth)
}

func (c *Client) call(ctx context.Context, contract abi.ABI, to, method string, args ...any) ([]any, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("could not pack %s: %w", method, err)
	}
	addr := common.HexToAddress(to)
	out, err := c.Chain.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}
	values, err := contract.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("could not unpack %s: %w", method, err)
	}
	return values, nil
}

func firstBig(values []any) *big.Int {
	if len(values) == 0 {
		return new(big.Int)
	}
	if v, ok := values[0].(*big.Int); ok && v != nil {
		return v
	}
	return new(big.Int)
}

// AccruedRewards reads pending rewards of an allocation, asking the
// RewardsManager under the Horizon issuer first and the legacy staking
// issuer second.
func (c *Client) AccruedRewards(ctx context.Context, allocationID string) (*big.Int, error) {
	allocation := common.HexToAddress(allocationID)
	var lastErr error
	for _, issuer := range []string{constants.SubgraphService, constants.HorizonStaking} {
		values, err := c.call(ctx, c.rewardsManager, constants.RewardsManager, "getRewards", common.HexToAddress(issuer), allocation)
		if err != nil {
			lastErr = err
			continue
		}
		if amount := firstBig(values); amount.Sign() > 0 {
			return amount, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return new(big.Int), nil
}

// AccruedRewardsBatch runs AccruedRewards over many allocations with at
// most workers calls in flight. Failed lookups map to nil.
func (c *Client) AccruedRewardsBatch(ctx context.Context, allocationIDs []string, workers int) map[string]*big.Int {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	results := make(map[string]*big.Int, len(allocationIDs))
	type result struct {
		id     string
		amount *big.Int
	}
	out := make(chan result, len(allocationIDs))

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for _, id := range allocationIDs {
		id := strings.ToLower(id)
		g.Go(func() error {
			amount, err := c.AccruedRewards(ctx, id)
			if err != nil {
				e := goerrors.Wrap(err, 0)
				c.Log.WithField("allocation", id).Debug(e.ErrorStack())
				amount = nil
			}
			out <- result{id: id, amount: amount}
			return nil
		})
	}
	_ = g.Wait()
	close(out)

	for r := range out {
		results[r.id] = r.amount
	}
	return results
}

// TokensAvailable is the indexer's stake usable for allocations under the
// subgraph service, delegation included up to the protocol ratio.
func (c *Client) TokensAvailable(ctx context.Context, indexer string) (*big.Int, error) {
	values, err := c.call(ctx, c.staking, constants.HorizonStaking, "getTokensAvailable",
		common.HexToAddress(indexer), common.HexToAddress(constants.SubgraphService), uint32(constants.DelegationRatio))
	if err != nil {
		return nil, err
	}
	return firstBig(values), nil
}

// DelegationBalance values the delegator's pool shares, rewards included.
// It returns nil when the delegator holds no shares or the pool is empty.
func (c *Client) DelegationBalance(ctx context.Context, indexer, delegator string) (*big.Int, error) {
	provider := common.HexToAddress(indexer)
	verifier := common.HexToAddress(constants.SubgraphService)

	values, err := c.call(ctx, c.staking, constants.HorizonStaking, "getDelegation", provider, verifier, common.HexToAddress(delegator))
	if err != nil {
		return nil, err
	}
	shares := firstBig(values)
	if shares.Sign() == 0 {
		return nil, nil
	}

	pool, err := c.call(ctx, c.staking, constants.HorizonStaking, "getDelegationPool", provider, verifier)
	if err != nil {
		return nil, err
	}
	if len(pool) < 2 {
		return nil, fmt.Errorf("unexpected getDelegationPool result of %d values", len(pool))
	}
	poolTokens, _ := pool[0].(*big.Int)
	poolShares, _ := pool[1].(*big.Int)
	if poolTokens == nil || poolShares == nil || poolShares.Sign() == 0 {
		return nil, nil
	}

	balance := new(big.Int).Mul(poolTokens, shares)
	return balance.Quo(balance, poolShares), nil
}

// LegacyRewards sums HorizonRewardsAssigned amounts paid to the indexer per
// allocation, looking back far enough to cover the oldest allocation.
func (c *Client) LegacyRewards(ctx context.Context, indexer string, allocations []networksubgraph.Allocation, now time.Time) (map[string]*big.Int, error) {
	rewards := make(map[string]*big.Int)
	if len(allocations) == 0 {
		return rewards, nil
	}

	current, err := c.Chain.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not get block number: %w", err)
	}

	earliest := allocations[0].CreatedAt.Int64()
	for _, a := range allocations[1:] {
		if created := a.CreatedAt.Int64(); created < earliest {
			earliest = created
		}
	}
	from := FromBlock(current, now.Sub(time.Unix(earliest, 0)))

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(current),
		Addresses: []common.Address{common.HexToAddress(constants.RewardsManager)},
		Topics: [][]common.Hash{
			{common.HexToHash(constants.HorizonRewardsAssignedTopic)},
			{common.HexToHash(PadAddress(indexer))},
		},
	}
	logs, err := c.Chain.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("could not filter reward logs: %w", err)
	}

	sums := make(map[string]*uint256.Int)
	for _, l := range logs {
		if len(l.Topics) < 3 || len(l.Data) < 32 {
			continue
		}
		allocation := "0x" + l.Topics[2].Hex()[26:]
		amount := new(uint256.Int).SetBytes(l.Data[:32])
		if sum, ok := sums[allocation]; ok {
			sum.Add(sum, amount)
		} else {
			sums[allocation] = amount
		}
	}
	for allocation, sum := range sums {
		rewards[allocation] = sum.ToBig()
	}
	c.Log.Debugf("found %d reward events for %d allocations from block %d", len(logs), len(rewards), from)
	return rewards, nil
}

// FromBlock estimates the block produced age ago, with a safety margin.
func FromBlock(current uint64, age time.Duration) uint64 {
	back := uint64(age/constants.ArbitrumBlockTime) + 10_000
	if age < 0 {
		back = 10_000
	}
	if back >= current {
		return 0
	}
	return current - back
}

// Split divides rewards between the indexer, who keeps cut, and its
// delegators.
func Split(total, cut float64) (float64, float64) {
	return total * cut, total * (1 - cut)
}

// PadAddress left-pads an address to a 32 byte topic.
func PadAddress(addr string) string {
	addr = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(addr)), "0x")
	if len(addr) < 64 {
		addr = strings.Repeat("0", 64-len(addr)) + addr
	}
	return "0x" + addr
}
