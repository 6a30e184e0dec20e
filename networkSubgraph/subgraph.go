package networksubgraph

import (
	"github.com/sirupsen/logrus"

	"github.com/grtinfo/grtinfo/graphql"
)

var (
	IsNetworkSubgraphRequest = `{ __type(name: "Allocation") { name } }`

	SubgraphIDRequest = `query SubgraphID($ipfsHash: String!) {
  subgraphDeployments(where: { ipfsHash: $ipfsHash }, first: 1) {
    versions(first: 1, orderBy: createdAt, orderDirection: desc) { subgraph { id } }
  }
}`

	CurrentAllocationsRequest = `query CurrentAllocations($deployment: String!) {
  allocations(
    where: { subgraphDeployment: $deployment, status: Active }
    orderBy: createdAt
    orderDirection: desc
    first: 1000
  ) {
    id
    indexer { id }
    allocatedTokens
    createdAt
    closedAt
    status
    indexingRewards
    indexingIndexerRewards
    indexingDelegatorRewards
  }
}`

	AllocationHistoryRequest = `query AllocationHistory($deployment: String!, $since: Int!) {
  allocations(
    where: { subgraphDeployment: $deployment, createdAt_gte: $since }
    orderBy: createdAt
    orderDirection: desc
    first: 1000
  ) {
    id
    indexer { id }
    allocatedTokens
    createdAt
    closedAt
    status
  }
}`

	UnallocationsRequest = `query Unallocations($deployment: String!, $since: Int!) {
  allocations(
    where: { subgraphDeployment: $deployment, status: Closed, closedAt_gte: $since }
    orderBy: closedAt
    orderDirection: desc
    first: 1000
  ) {
    id
    indexer { id }
    allocatedTokens
    createdAt
    closedAt
    status
    indexingRewards
  }
}`

	POISubmissionsRequest = `query POISubmissions($deployment: String!, $since: Int!) {
  poiSubmissions(
    where: { allocation_: { subgraphDeployment: $deployment }, presentedAtTimestamp_gte: $since }
    orderBy: presentedAtTimestamp
    orderDirection: desc
    first: 1000
  ) {
    id
    presentedAtTimestamp
    poi
    allocation {
      id
      status
      indexer { id }
      allocatedTokens
      indexingRewards
      createdAt
    }
  }
}`

	IndexersStakeRequest = `query IndexersStake($ids: [String!]!) {
  indexers(where: { id_in: $ids }, first: 1000) {
    id
    stakedTokens
    delegatedTokens
    allocatedTokens
  }
}`

	IndexersURLRequest = `query IndexersURL($ids: [String!]!) {
  indexers(where: { id_in: $ids }, first: 1000) {
    id
    url
  }
}`

	SubgraphMetadataRequest = `query SubgraphMetadata($id: String!) {
  subgraphDeployment(id: $id) {
    id
    ipfsHash
    signalAmount
    signalledTokens
    createdAt
    stakedTokens
    deniedAt
    manifest { network }
  }
}`

	NetworkTotalsRequest = `query NetworkTotals($first: Int!, $skip: Int!) {
  subgraphDeployments(first: $first, skip: $skip) {
    stakedTokens
    signalAmount
  }
}`

	CurationSignalRequest = `query CurationSignal($id: String!) {
  subgraphDeployment(id: $id) {
    id
    signalledTokens
    createdAt
  }
  signals(where: { subgraphDeployment: $id }, first: 100, orderBy: createdAt, orderDirection: desc) {
    id
    curator { id }
    signalledTokens
    createdAt
  }
}`

	DeploymentUpgradeRequest = `query DeploymentUpgrade($id: String!) {
  subgraphDeployment(id: $id) {
    id
    ipfsHash
    signalAmount
    createdAt
    versions(first: 1) {
      subgraph {
        id
        currentVersion {
          subgraphDeployment { id ipfsHash createdAt signalAmount }
        }
      }
    }
  }
}`

	SignalTransactionsRequest = `query SignalTransactions($since: Int!) {
  signalTransactions(
    where: { timestamp_gte: $since }
    orderBy: timestamp
    orderDirection: desc
    first: 500
  ) {
    id
    timestamp
    type
    signal {
      subgraphDeployment { id }
      signalledTokens
      curator { id }
    }
  }
}`

	SignalsSinceRequest = `query SignalsSince($deployment: String!, $since: Int!) {
  signals(
    where: { subgraphDeployment: $deployment, createdAt_gte: $since }
    orderBy: createdAt
    orderDirection: desc
  ) {
    id
    curator { id }
    signalledTokens
    createdAt
  }
}`

	indexerSummaryFields = `
    id
    url
    stakedTokens
    delegatedTokens
    allocatedTokens
    indexingRewardCut
    queryFeeCut
    indexingRewardEffectiveCut
    queryFeeEffectiveCut
    delegatorShares
    allocationCount`

	IndexerRangeRequest = `query IndexerRange($min: String!, $max: String!) {
  indexers(where: { id_gte: $min, id_lte: $max }, first: 10, orderBy: stakedTokens, orderDirection: desc) {` + indexerSummaryFields + `
  }
}`

	IndexerURLSearchRequest = `query IndexerURLSearch($search: String!) {
  indexers(where: { url_contains: $search }, first: 10, orderBy: stakedTokens, orderDirection: desc) {` + indexerSummaryFields + `
  }
}`

	IndexerRequest = `query Indexer($id: String!) {
  indexer(id: $id) {
    id
    url
    stakedTokens
    delegatedTokens
    delegatedCapacity
    delegatedThawingTokens
    allocatedTokens
    availableStake
    tokenCapacity
    lockedTokens
    unstakedTokens
    indexingRewardCut
    queryFeeCut
    indexingRewardEffectiveCut
    queryFeeEffectiveCut
    delegatorShares
    delegatorIndexingRewards
    delegatorQueryFees
    delegationExchangeRate
    allocationCount
    totalAllocationCount
    createdAt
  }
}`

	deploymentSummaryFields = `
    subgraphDeployment {
      ipfsHash
      signalledTokens
      versions(first: 1, orderBy: createdAt, orderDirection: desc) { subgraph { id } }
    }`

	IndexerActiveAllocationsRequest = `query IndexerActiveAllocations($indexer: String!) {
  allocations(where: { indexer: $indexer, status: Active }, orderBy: createdAt, orderDirection: desc, first: 100) {
    id
    allocatedTokens
    createdAt
    status` + deploymentSummaryFields + `
  }
}`

	IndexerClosedAllocationsRequest = `query IndexerClosedAllocations($indexer: String!, $since: Int!) {
  allocations(
    where: { indexer: $indexer, status: Closed, closedAt_gte: $since }
    orderBy: closedAt
    orderDirection: desc
    first: 100
  ) {
    id
    allocatedTokens
    createdAt
    closedAt
    status
    indexingRewards
    isLegacy` + deploymentSummaryFields + `
  }
}`

	IndexerPOISubmissionsRequest = `query IndexerPOISubmissions($indexer: String!, $since: Int!) {
  poiSubmissions(
    where: { allocation_: { indexer: $indexer, status: Active }, presentedAtTimestamp_gte: $since }
    orderBy: presentedAtTimestamp
    orderDirection: desc
    first: 100
  ) {
    id
    presentedAtTimestamp
    allocation {
      id
      status
      allocatedTokens
      indexingRewards` + deploymentSummaryFields + `
    }
  }
}`

	TopAllocationsRequest = `query TopAllocations($indexer: String!, $first: Int!) {
  allocations(where: { indexer: $indexer, status: Active }, orderBy: allocatedTokens, orderDirection: desc, first: $first) {
    id
    allocatedTokens
    createdAt
    status` + deploymentSummaryFields + `
  }
}`

	NetworkStatsRequest = `{
  graphNetwork(id: "1") {
    totalTokensAllocated
    totalTokensSignalled
    networkGRTIssuancePerBlock
  }
}`

	AllActiveAllocationsRequest = `query AllActiveAllocations($indexer: String!, $first: Int!, $skip: Int!) {
  allocations(where: { indexer: $indexer, status: Active }, first: $first, skip: $skip) {
    id
    createdAt
    allocatedTokens
    subgraphDeployment { signalledTokens stakedTokens }
  }
}`

	DelegationEventsRequest = `query DelegationEvents($indexer: String!, $since: Int!) {
  delegations: delegatedStakes(
    where: { indexer: $indexer, lastDelegatedAt_gte: $since }
    orderBy: lastDelegatedAt
    orderDirection: desc
    first: 100
  ) {
    id
    delegator { id }
    stakedTokens
    createdAt
    lastDelegatedAt
  }
  undelegations: delegatedStakes(
    where: { indexer: $indexer, lastUndelegatedAt_gte: $since }
    orderBy: lastUndelegatedAt
    orderDirection: desc
    first: 100
  ) {
    id
    delegator { id }
    stakedTokens
    lockedTokens
    lastUndelegatedAt
  }
}`

	DelegatorDelegationsRequest = `query DelegatorDelegations($delegator: String!) {
  delegatedStakes(where: { delegator: $delegator }, orderBy: createdAt, orderDirection: desc, first: 1000) {
    id
    indexer {
      id
      url
      delegatedTokens
      delegatorShares
      indexingRewardCut
    }
    stakedTokens
    shareAmount
    lockedTokens
    createdAt
    lastDelegatedAt
    lastUndelegatedAt
  }
}`

	IndexersActiveAllocationsRequest = `query IndexersActiveAllocations($indexers: [String!]!, $first: Int!, $skip: Int!) {
  allocations(where: { indexer_in: $indexers, status: Active }, first: $first, skip: $skip) {
    id
    indexer { id }
    allocatedTokens
    createdAt
    status
  }
}`
)

const (
	pageSize  = 1000
	batchSize = 100
)

type NetworkSubgraph struct {
	Client *graphql.Client
	URL    string
	Log    *logrus.Entry
}
