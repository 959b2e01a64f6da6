package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSource   = "bibcite/source/v1"
	DomainEntries  = "bibcite/entries/v1"
	DomainSnapshot = "bibcite/snapshot/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SourceHash identifies raw bibliography text.
// Used as the cache key for parsed bibliographies.
func SourceHash(src string) string {
	return hashWithDomain(DomainSource, []byte(src))
}

// EntriesHash identifies a set of entries independent of how they were
// loaded. Entries are hashed in the given order.
func EntriesHash(entries []Entry) (string, error) {
	list := make([]any, len(entries))
	for i, e := range entries {
		list[i] = e.CanonicalValue()
	}
	canonical, err := MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("EntriesHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEntries, canonical), nil
}

// SnapshotHash identifies a resolution snapshot.
func SnapshotHash(snapshot any) (string, error) {
	canonical, err := MarshalCanonical(snapshot)
	if err != nil {
		return "", fmt.Errorf("SnapshotHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

// MustEntriesHash is like EntriesHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustEntriesHash(entries []Entry) string {
	h, err := EntriesHash(entries)
	if err != nil {
		panic(err)
	}
	return h
}
