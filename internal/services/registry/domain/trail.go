package domain

import "time"

// TrailEntry records one ownership change of a certificate. Entries are
// append-only; the first one is written at certificate issuance and one more
// per subsequent transfer.
type TrailEntry struct {
	CertificateID    string
	AssetID          string
	OwnerFingerprint string
	TransferredOn    time.Time
}

// NewTrailEntry stamps a trail entry for the given certificate and owner.
func NewTrailEntry(certificateID, assetID, ownerFingerprint string) TrailEntry {
	return TrailEntry{
		CertificateID:    certificateID,
		AssetID:          assetID,
		OwnerFingerprint: ownerFingerprint,
		TransferredOn:    time.Now().UTC(),
	}
}
