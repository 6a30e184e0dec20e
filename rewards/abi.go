package rewards

const rewardsManagerABI = `[
  {"type":"function","name":"getRewards","stateMutability":"view",
   "inputs":[{"name":"_rewardsIssuer","type":"address"},{"name":"_allocationID","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]}
]`

// Struct returns are flattened; a tuple of static words encodes the same.
const horizonStakingABI = `[
  {"type":"function","name":"getTokensAvailable","stateMutability":"view",
   "inputs":[{"name":"serviceProvider","type":"address"},{"name":"verifier","type":"address"},{"name":"delegationRatio","type":"uint32"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getDelegation","stateMutability":"view",
   "inputs":[{"name":"serviceProvider","type":"address"},{"name":"verifier","type":"address"},{"name":"delegator","type":"address"}],
   "outputs":[{"name":"shares","type":"uint256"}]},
  {"type":"function","name":"getDelegationPool","stateMutability":"view",
   "inputs":[{"name":"serviceProvider","type":"address"},{"name":"verifier","type":"address"}],
   "outputs":[
     {"name":"tokens","type":"uint256"},
     {"name":"shares","type":"uint256"},
     {"name":"tokensThawing","type":"uint256"},
     {"name":"sharesThawing","type":"uint256"},
     {"name":"thawingNonce","type":"uint256"}]}
]`
