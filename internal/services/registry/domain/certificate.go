package domain

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// Certificate is the non-fungible ownership certificate bound to exactly one
// asset. Its identity never changes across ownership transfers; only the
// trail records new owners.
type Certificate struct {
	ID        string
	AssetID   string
	Payload   string
	CreatedAt time.Time
}

// Issuer generates globally unique certificate payloads. One Issuer is
// constructed at startup and shared; its counter is the only mutable state
// shared across concurrent issuance calls.
type Issuer struct {
	counter atomic.Uint64
	entropy io.Reader
	clock   func() time.Time
}

// NewIssuer returns an issuer backed by the system clock and the
// cryptographically secure random source.
func NewIssuer() *Issuer {
	return &Issuer{entropy: rand.Reader, clock: time.Now}
}

// NewIssuerWithSources returns an issuer with injected entropy and clock.
func NewIssuerWithSources(entropy io.Reader, clock func() time.Time) *Issuer {
	return &Issuer{entropy: entropy, clock: clock}
}

// Issue creates the certificate for an asset. The payload digests a
// nanosecond timestamp, 64 random bytes, a per-issuer counter value and a
// per-call salt, hashed with SHA-512 and encoded as unpadded URL-safe
// base64. The counter advances exactly once per call, before any fallible
// step, so a failed call never releases its counter value for reuse.
func (i *Issuer) Issue(assetID string) (Certificate, error) {
	seq := i.counter.Add(1)

	now := i.clock().UTC()
	random := make([]byte, 64)
	if _, err := io.ReadFull(i.entropy, random); err != nil {
		return Certificate{}, fmt.Errorf("read certificate entropy: %w", err)
	}
	salt, err := i.salt(assetID)
	if err != nil {
		return Certificate{}, err
	}

	combined := fmt.Sprintf("%d*%s**%d*%s", now.UnixNano(), hex.EncodeToString(random), seq, salt)
	digest := sha512.Sum512([]byte(combined))
	payload := base64.RawURLEncoding.EncodeToString(digest[:])

	id, err := NewKey(DomainKeySize)
	if err != nil {
		return Certificate{}, fmt.Errorf("generate certificate id: %w", err)
	}
	return Certificate{
		ID:        id,
		AssetID:   assetID,
		Payload:   payload,
		CreatedAt: now,
	}, nil
}

// salt binds the digest to the asset with 16 fresh random bytes.
func (i *Issuer) salt(assetID string) (string, error) {
	var raw [16]byte
	if _, err := io.ReadFull(i.entropy, raw[:]); err != nil {
		return "", fmt.Errorf("read salt entropy: %w", err)
	}
	return assetID + "_" + base64.RawURLEncoding.EncodeToString(raw[:]), nil
}
