package constants

import "time"

// Arbitrum One deployments of the Graph protocol contracts.
var (
	RewardsManager  = "0x971B9d3d0Ae3ECa029CAB5eA1fB0F72c85e6a525"
	HorizonStaking  = "0x00669A4CF01450B64E8A2A20E9b1fcb71E61eF03"
	SubgraphService = "0xB2Bb92D0dE618878e438b55d5846cFEcD9301105"

	// HorizonRewardsAssigned(address indexed indexer, address indexed allocationID, uint256 amount)
	HorizonRewardsAssignedTopic = "0xa111914d7f2ea8beca61d12f1a1f38c5533de5f1823c3936422df4404ac2ec68"

	// getRewards(address _rewardsIssuer, address _allocationID)
	GetRewardsSelector = "0x779bcb9b"
	// getDelegation(address serviceProvider, address verifier, address delegator)
	GetDelegationSelector = "0xccebcabb"
)

var (
	DefaultRPCURL       = "https://arb1.arbitrum.io/rpc"
	ExplorerSubgraphURL = "https://thegraph.com/explorer/subgraphs/"
	ExplorerChain       = "arbitrum-one"
)

const (
	GRTDecimals = 18
	PPMBase     = 1_000_000

	DefaultThawingPeriodDays = 28
	MaxAllocationEpochs      = 28
	EpochDuration            = 24 * time.Hour

	// Protocol default maximum delegation per unit of self stake.
	DelegationRatio = 16

	// Issuance is quoted per L1 block (~12s).
	BlocksPerYear = 2_628_000

	ArbitrumBlockTime = 250 * time.Millisecond

	NewDeploymentAge = 7 * 24 * time.Hour
)
