// Package lockid implements globallock's resource identity scheme: the
// (resource, scope) to resourceUID/partitionKey hashing, and the opaque
// lease-id codec shipped to callers.
//
// MD5 is used throughout as a name compressor (blob names, partition keys),
// never as a security primitive.
package lockid

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// DefaultScope is used when the caller does not supply one.
const DefaultScope = "default"

// Normalize trims surrounding whitespace and lower-cases s, matching the
// normalisation applied to resource and scope before hashing.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ResourceUID derives the stable identifier for a (resource, scope) pair. It
// is used as both the blob name and the in-process serialiser key.
func ResourceUID(resource, scope string) string {
	sum := md5.Sum([]byte(Normalize(resource) + Normalize(scope)))
	return hex.EncodeToString(sum[:])
}

// PartitionKey derives the journal partition key for scope.
func PartitionKey(scope string) string {
	sum := md5.Sum([]byte(Normalize(scope)))
	return hex.EncodeToString(sum[:])
}

// RecordID identifies a single journal row: the pair needed to look it up
// again (rowKey + partitionKey), as carried inside an opaque lease id.
type RecordID struct {
	RowKey       string
	PartitionKey string
}

// EncodeLeaseID packs a RecordID into the opaque, base64-encoded string
// handed back to callers as a Lease's id.
func EncodeLeaseID(id RecordID) string {
	raw := id.RowKey + "|" + id.PartitionKey
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// DecodeLeaseID reverses EncodeLeaseID. A malformed base64 payload, or one
// that does not split into exactly two '|'-separated non-empty parts, is
// reported as an error rather than silently accepted.
func DecodeLeaseID(leaseID string) (RecordID, error) {
	if leaseID == "" {
		return RecordID{}, fmt.Errorf("lockid: empty lease id")
	}

	raw, err := base64.StdEncoding.DecodeString(leaseID)
	if err != nil {
		return RecordID{}, fmt.Errorf("lockid: malformed lease id: %w", err)
	}

	parts := strings.Split(string(raw), "|")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return RecordID{}, fmt.Errorf("lockid: malformed lease id payload")
	}

	return RecordID{RowKey: parts[0], PartitionKey: parts[1]}, nil
}
