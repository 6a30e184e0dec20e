package networksubgraph

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/grtinfo/grtinfo/constants"
	"github.com/grtinfo/grtinfo/utils"
)

// Timestamp decodes the subgraph's Int and BigInt timestamps, which arrive
// either as JSON numbers or strings. Null decodes to zero.
type Timestamp int64

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*t = 0
		return nil
	}
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(string(b), 64)
		if ferr != nil {
			return err
		}
		v = int64(f)
	}
	*t = Timestamp(v)
	return nil
}

func (t Timestamp) Int64() int64 {
	return int64(t)
}

type Ref struct {
	ID string `json:"id"`
}

type Version struct {
	Subgraph Ref `json:"subgraph"`
}

type Deployment struct {
	ID              string    `json:"id"`
	IPFSHash        string    `json:"ipfsHash"`
	SignalledTokens string    `json:"signalledTokens"`
	SignalAmount    string    `json:"signalAmount"`
	StakedTokens    string    `json:"stakedTokens"`
	CreatedAt       Timestamp `json:"createdAt"`
	DeniedAt        Timestamp `json:"deniedAt"`
	Versions        []Version `json:"versions"`
	Manifest        *struct {
		Network string `json:"network"`
	} `json:"manifest"`
}

// SubgraphID is the subgraph owning the newest version queried alongside the
// deployment, or empty.
func (d *Deployment) SubgraphID() string {
	if d == nil || len(d.Versions) == 0 {
		return ""
	}
	return d.Versions[0].Subgraph.ID
}

func (d *Deployment) Network() string {
	if d == nil || d.Manifest == nil {
		return ""
	}
	return d.Manifest.Network
}

type Allocation struct {
	ID                       string      `json:"id"`
	Indexer                  Ref         `json:"indexer"`
	AllocatedTokens          string      `json:"allocatedTokens"`
	CreatedAt                Timestamp   `json:"createdAt"`
	ClosedAt                 Timestamp   `json:"closedAt"`
	Status                   string      `json:"status"`
	IndexingRewards          string      `json:"indexingRewards"`
	IndexingIndexerRewards   string      `json:"indexingIndexerRewards"`
	IndexingDelegatorRewards string      `json:"indexingDelegatorRewards"`
	IsLegacy                 bool        `json:"isLegacy"`
	SubgraphDeployment       *Deployment `json:"subgraphDeployment"`
}

const (
	StatusActive = "Active"
	StatusClosed = "Closed"
)

func (a *Allocation) IndexerID() string {
	return strings.ToLower(a.Indexer.ID)
}

func (a *Allocation) IsActive() bool {
	return a.Status == StatusActive
}

type POISubmission struct {
	ID                   string     `json:"id"`
	PresentedAtTimestamp Timestamp  `json:"presentedAtTimestamp"`
	POI                  string     `json:"poi"`
	Allocation           Allocation `json:"allocation"`
}

type Indexer struct {
	ID                         string    `json:"id"`
	URL                        string    `json:"url"`
	StakedTokens               string    `json:"stakedTokens"`
	DelegatedTokens            string    `json:"delegatedTokens"`
	DelegatedCapacity          string    `json:"delegatedCapacity"`
	DelegatedThawingTokens     string    `json:"delegatedThawingTokens"`
	AllocatedTokens            string    `json:"allocatedTokens"`
	AvailableStake             string    `json:"availableStake"`
	TokenCapacity              string    `json:"tokenCapacity"`
	LockedTokens               string    `json:"lockedTokens"`
	UnstakedTokens             string    `json:"unstakedTokens"`
	IndexingRewardCut          int64     `json:"indexingRewardCut"`
	QueryFeeCut                int64     `json:"queryFeeCut"`
	IndexingRewardEffectiveCut string    `json:"indexingRewardEffectiveCut"`
	QueryFeeEffectiveCut       string    `json:"queryFeeEffectiveCut"`
	DelegatorShares            string    `json:"delegatorShares"`
	DelegatorIndexingRewards   string    `json:"delegatorIndexingRewards"`
	DelegatorQueryFees         string    `json:"delegatorQueryFees"`
	DelegationExchangeRate     string    `json:"delegationExchangeRate"`
	AllocationCount            int64     `json:"allocationCount"`
	TotalAllocationCount       string    `json:"totalAllocationCount"`
	CreatedAt                  Timestamp `json:"createdAt"`

	// ENSName is filled in by the caller when the indexer was found through
	// an ENS search.
	ENSName string `json:"-"`
}

// RewardCut is the indexing reward cut as a fraction.
func (i *Indexer) RewardCut() float64 {
	return float64(i.IndexingRewardCut) / constants.PPMBase
}

func (i *Indexer) QueryCut() float64 {
	return float64(i.QueryFeeCut) / constants.PPMBase
}

// StakeInfo summarises an indexer's stake in GRT.
type StakeInfo struct {
	Staked    float64
	Delegated float64
	Allocated float64
}

func (s StakeInfo) Total() float64 {
	return s.Staked + s.Delegated
}

// UnallocatedPct is the share of total stake not allocated, in percent.
func (s StakeInfo) UnallocatedPct() float64 {
	total := s.Total()
	if total <= 0 {
		return 0
	}
	return (total - s.Allocated) / total * 100
}

func stakeInfoFromIndexer(i Indexer) StakeInfo {
	return StakeInfo{
		Staked:    utils.GRT(i.StakedTokens),
		Delegated: utils.GRT(i.DelegatedTokens),
		Allocated: utils.GRT(i.AllocatedTokens),
	}
}

type Signal struct {
	ID              string    `json:"id"`
	Curator         *Ref      `json:"curator"`
	SignalledTokens string    `json:"signalledTokens"`
	CreatedAt       Timestamp `json:"createdAt"`
}

// CurationSignal is the current signal on a deployment.
type CurationSignal struct {
	SignalledTokens string
	CreatedAt       int64
	IsNew           bool
	Signals         []Signal
}

type ChangeType string

const (
	ChangeSignal     ChangeType = "signal"
	ChangeUnsignal   ChangeType = "unsignal"
	ChangeUpgradeOut ChangeType = "upgrade_out"
)

type SignalChange struct {
	Type      ChangeType
	Signaller string
	Tokens    string
	Timestamp int64

	// Set for upgrade_out changes only.
	NewDeploymentHash string
	NewSubgraphID     string
}

type signalTransaction struct {
	ID        string    `json:"id"`
	Timestamp Timestamp `json:"timestamp"`
	Type      string    `json:"type"`
	Signal    *struct {
		SubgraphDeployment *Ref   `json:"subgraphDeployment"`
		SignalledTokens    string `json:"signalledTokens"`
		Curator            *Ref   `json:"curator"`
	} `json:"signal"`
}

// Metadata is what the report shows about a deployment.
type Metadata struct {
	Deployment       Deployment
	RewardProportion float64
	HasProportion    bool
}

type NetworkTotals struct {
	Allocated float64
	Signal    float64
}

type NetworkStats struct {
	TotalTokensAllocated       string `json:"totalTokensAllocated"`
	TotalTokensSignalled       string `json:"totalTokensSignalled"`
	NetworkGRTIssuancePerBlock string `json:"networkGRTIssuancePerBlock"`
}

type DelegatedStake struct {
	ID                string     `json:"id"`
	Delegator         Ref        `json:"delegator"`
	Indexer           StakePool  `json:"indexer"`
	StakedTokens      string     `json:"stakedTokens"`
	ShareAmount       string     `json:"shareAmount"`
	LockedTokens      string     `json:"lockedTokens"`
	CreatedAt         Timestamp  `json:"createdAt"`
	LastDelegatedAt   Timestamp  `json:"lastDelegatedAt"`
	LastUndelegatedAt *Timestamp `json:"lastUndelegatedAt"`
}

// StakePool is the indexer side of a delegation.
type StakePool struct {
	ID                string `json:"id"`
	URL               string `json:"url"`
	DelegatedTokens   string `json:"delegatedTokens"`
	DelegatorShares   string `json:"delegatorShares"`
	IndexingRewardCut int64  `json:"indexingRewardCut"`
}

// Active reports whether the delegation still earns: tokens staked, never
// undelegated, nothing locked and shares held.
func (d *DelegatedStake) Active() bool {
	if utils.ParseWei(d.StakedTokens).Sign() <= 0 {
		return false
	}
	if d.LastUndelegatedAt != nil {
		return false
	}
	if utils.ParseWei(d.LockedTokens).Sign() > 0 {
		return false
	}
	return utils.ParseWei(d.ShareAmount).Sign() > 0
}
