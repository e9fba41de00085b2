package repository

import (
	"fmt"

	"credential-ledger/models"
)

// Key prefixes. Numeric ids are zero-padded so prefix scans come back in id order.
const (
	CheckpointKey = "checkpoint:head"

	IssuerPrefix      = "issuer:"
	CredentialPrefix  = "credential:"
	HolderIndexPrefix = "idx:holder:"
	IssuerIndexPrefix = "idx:issuer:"
	ProposalPrefix    = "proposal:"
	VotePrefix        = "vote:"
	TimelockPrefix    = "timelock:"
	PowerPrefix       = "power:"
	ReceiptPrefix     = "receipt:"
	CounterPrefix     = "counter:"
)

func IssuerKey(addr models.Address) string {
	return IssuerPrefix + addr.String()
}

func CredentialKey(id uint64) string {
	return fmt.Sprintf("%s%020d", CredentialPrefix, id)
}

func HolderIndexKey(holder models.Address) string {
	return HolderIndexPrefix + holder.String()
}

func IssuerIndexKey(issuer models.Address) string {
	return IssuerIndexPrefix + issuer.String()
}

func ProposalKey(id uint64) string {
	return fmt.Sprintf("%s%020d", ProposalPrefix, id)
}

// VoteKey is unique per (proposal, voter) pair.
func VoteKey(proposalID uint64, voter models.Address) string {
	return fmt.Sprintf("%s%020d:%s", VotePrefix, proposalID, voter)
}

// VotePrefixFor scopes a scan to one proposal's votes.
func VotePrefixFor(proposalID uint64) string {
	return fmt.Sprintf("%s%020d:", VotePrefix, proposalID)
}

func TimelockKey(operationID models.Hash) string {
	return TimelockPrefix + operationID.String()
}

func PowerKey(addr models.Address) string {
	return PowerPrefix + addr.String()
}

func ReceiptKey(seq uint64) string {
	return fmt.Sprintf("%s%020d", ReceiptPrefix, seq)
}

func CounterKey(name string) string {
	return CounterPrefix + name
}
