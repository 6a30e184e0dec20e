package networksubgraph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

var ErrInvalidDeploymentHash = errors.New("invalid deployment hash")

// DeploymentIDFromHash converts a Qm deployment hash into the bytes32 id the
// network subgraph keys deployments by.
func DeploymentIDFromHash(ipfsHash string) (string, error) {
	c, err := cid.Decode(strings.TrimSpace(ipfsHash))
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidDeploymentHash, ipfsHash, err)
	}
	decoded, err := multihash.Decode(c.Hash())
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidDeploymentHash, ipfsHash, err)
	}
	if decoded.Code != multihash.SHA2_256 || len(decoded.Digest) != 32 {
		return "", fmt.Errorf("%w %q: not a sha2-256 digest", ErrInvalidDeploymentHash, ipfsHash)
	}
	return hexutil.Encode(decoded.Digest), nil
}

// DeploymentHashFromID is the inverse of DeploymentIDFromHash.
func DeploymentHashFromID(id string) (string, error) {
	digest, err := hexutil.Decode(id)
	if err != nil || len(digest) != 32 {
		return "", fmt.Errorf("%w: deployment id %q", ErrInvalidDeploymentHash, id)
	}
	mh, err := multihash.Encode(digest, multihash.SHA2_256)
	if err != nil {
		return "", err
	}
	return cid.NewCidV0(multihash.Multihash(mh)).String(), nil
}

// ResolveDeploymentID accepts either a Qm hash or a 0x deployment id.
func ResolveDeploymentID(hashOrID string) (string, error) {
	hashOrID = strings.TrimSpace(hashOrID)
	if strings.HasPrefix(hashOrID, "0x") {
		if _, err := DeploymentHashFromID(hashOrID); err != nil {
			return "", err
		}
		return strings.ToLower(hashOrID), nil
	}
	return DeploymentIDFromHash(hashOrID)
}
