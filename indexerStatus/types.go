package indexerstatus

import "encoding/json"

const (
	HealthHealthy   = "healthy"
	HealthUnhealthy = "unhealthy"
	HealthFailed    = "failed"
)

// Status is the sync state of one deployment on one graph-node.
type Status struct {
	Synced         bool
	Health         string
	LatestBlock    int64
	ChainHeadBlock int64
	BlocksBehind   int64
	Network        string
	FatalError     string
}

func (s *Status) Failed() bool {
	return s != nil && s.Health == HealthFailed
}

// blockNumber accepts graph-node's BigInt numbers, quoted or not.
type blockNumber struct {
	Number json.Number `json:"number"`
}

func (b *blockNumber) value() int64 {
	if b == nil {
		return 0
	}
	n, err := b.Number.Int64()
	if err != nil {
		return 0
	}
	return n
}

type indexingStatus struct {
	Subgraph   string `json:"subgraph"`
	Synced     bool   `json:"synced"`
	Health     string `json:"health"`
	FatalError *struct {
		Message string `json:"message"`
	} `json:"fatalError"`
	Chains []struct {
		Network        string       `json:"network"`
		LatestBlock    *blockNumber `json:"latestBlock"`
		ChainHeadBlock *blockNumber `json:"chainHeadBlock"`
	} `json:"chains"`
}

func (s indexingStatus) toStatus() Status {
	status := Status{Synced: s.Synced, Health: s.Health}
	if status.Health == "" {
		status.Health = "unknown"
	}
	if s.FatalError != nil {
		status.FatalError = s.FatalError.Message
		if status.FatalError == "" {
			status.FatalError = "Unknown error"
		}
	}
	if len(s.Chains) > 0 {
		chain := s.Chains[0]
		status.Network = chain.Network
		status.LatestBlock = chain.LatestBlock.value()
		status.ChainHeadBlock = chain.ChainHeadBlock.value()
	}
	if behind := status.ChainHeadBlock - status.LatestBlock; behind > 0 {
		status.BlocksBehind = behind
	}
	return status
}
