package models

// EventType names a structured event emitted by a ledger operation.
type EventType string

const (
	EventIssuerRegistered  EventType = "IssuerRegistered"
	EventIssuerAccredited  EventType = "IssuerAccredited"
	EventIssuerSuspended   EventType = "IssuerSuspended"
	EventIssuerReactivated EventType = "IssuerReactivated"
	EventIssuerRevoked     EventType = "IssuerRevoked"
	EventCredentialIssued  EventType = "CredentialIssued"
	EventCredentialRevoked EventType = "CredentialRevoked"
	EventCredentialRenewed EventType = "CredentialRenewed"
	EventVotingPowerSet    EventType = "VotingPowerSet"
	EventProposalCreated   EventType = "ProposalCreated"
	EventVoteCast          EventType = "VoteCast"
	EventProposalTallied   EventType = "ProposalTallied"
	EventProposalQueued    EventType = "ProposalQueued"
	EventProposalExecuted  EventType = "ProposalExecuted"
	EventProposalCanceled  EventType = "ProposalCanceled"
)

type Event struct {
	Type       EventType         `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Receipt is the durable record of one submitted operation, successful or not.
type Receipt struct {
	Seq       uint64  `json:"seq"`
	Op        string  `json:"op"`
	Caller    Address `json:"caller"`
	Timestamp int64   `json:"timestamp"` // unix seconds
	Success   bool    `json:"success"`
	Error     string  `json:"error,omitempty"`
	ErrorCode string  `json:"error_code,omitempty"`
	Events    []Event `json:"events,omitempty"`
	Parent    Hash    `json:"parent"`
	Hash      Hash    `json:"hash"`
}

// Checkpoint records the ledger head so a restarted process resumes the receipt chain.
type Checkpoint struct {
	Seq       uint64 `json:"seq"`
	Head      Hash   `json:"head"`
	Timestamp int64  `json:"timestamp"`
}
