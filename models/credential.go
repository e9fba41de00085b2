package models

// CredentialType is an informational category of credential. Only the
// declared categories are accepted at mint.
type CredentialType string

const (
	CredentialDegree        CredentialType = "degree"
	CredentialCertificate   CredentialType = "certificate"
	CredentialBadge         CredentialType = "badge"
	CredentialLicense       CredentialType = "license"
	CredentialTranscript    CredentialType = "transcript"
	CredentialCertification CredentialType = "certification"
)

func (t CredentialType) Valid() bool {
	switch t {
	case CredentialDegree, CredentialCertificate, CredentialBadge,
		CredentialLicense, CredentialTranscript, CredentialCertification:
		return true
	}
	return false
}

// Credential is a minted token. Everything except ExpiresAt and the revocation fields is fixed at mint.
type Credential struct {
	ID               uint64         `json:"id"`
	Issuer           Address        `json:"issuer"`
	Holder           Address        `json:"holder"`
	Type             CredentialType `json:"type"`
	MetadataRef      string         `json:"metadata_ref"`
	ContentHash      Hash           `json:"content_hash"`
	IssuedAt         int64          `json:"issued_at"`  // unix seconds
	ExpiresAt        int64          `json:"expires_at"` // unix seconds, 0 = never
	Revocable        bool           `json:"revocable"`
	IsRevoked        bool           `json:"is_revoked"`
	RevocationReason string         `json:"revocation_reason,omitempty"`
	RevokedAt        int64          `json:"revoked_at,omitempty"`
}

// IsExpired is a pure function of the stored deadline and now.
func (c *Credential) IsExpired(now int64) bool {
	return c.ExpiresAt != 0 && now > c.ExpiresAt
}

// IsActive reports not revoked and not expired.
func (c *Credential) IsActive(now int64) bool {
	return !c.IsRevoked && !c.IsExpired(now)
}

// Verdict is the multi-facet verification result for one credential id.
type Verdict struct {
	CredentialID     uint64  `json:"credential_id"`
	Exists           bool    `json:"exists"`
	IsActive         bool    `json:"is_active"`
	IsExpired        bool    `json:"is_expired"`
	IsRevoked        bool    `json:"is_revoked"`
	IssuerAccredited bool    `json:"issuer_accredited"`
	IsValid          bool    `json:"is_valid"`
	Issuer           Address `json:"issuer,omitempty"`
	Holder           Address `json:"holder,omitempty"`
	ExpiresAt        int64   `json:"expires_at,omitempty"`
	CheckedAt        int64   `json:"checked_at"`
}
