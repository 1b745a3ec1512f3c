package lockid

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceUIDIsNormalized(t *testing.T) {
	a := ResourceUID("  Tenant-1 ", "E2E")
	b := ResourceUID("tenant-1", "e2e")
	assert.Equal(t, a, b)
}

func TestResourceUIDDistinguishesScope(t *testing.T) {
	a := ResourceUID("tenant-1", "scope-a")
	b := ResourceUID("tenant-1", "scope-b")
	assert.NotEqual(t, a, b)
}

func TestResourceUIDIsHexMD5(t *testing.T) {
	uid := ResourceUID("tenant-1", "default")
	assert.Len(t, uid, 32)
}

func TestPartitionKeyIsNormalized(t *testing.T) {
	a := PartitionKey("scope-a")
	b := PartitionKey("SCOPE-A")
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
}

func TestLeaseIDRoundTrip(t *testing.T) {
	id := RecordID{RowKey: "abc123", PartitionKey: "def456"}
	encoded := EncodeLeaseID(id)
	decoded, err := DecodeLeaseID(encoded)
	require.NoError(t, err)
	assert.Equal(t, id, decoded)
}

// TestLeaseIDRoundTripProperty is testable property 5 from the spec: for
// every (rowKey, partitionKey) pair of non-empty strings without '|',
// decode(encode(pair)) == pair.
func TestLeaseIDRoundTripProperty(t *testing.T) {
	cases := []RecordID{
		{RowKey: "a", PartitionKey: "b"},
		{RowKey: "row-key-with-dashes", PartitionKey: "0123456789abcdef"},
		{RowKey: "UPPER_lower_123", PartitionKey: "x"},
		{RowKey: "unicode-résumé", PartitionKey: "🔒"},
		{RowKey: "   padded   ", PartitionKey: "trailing-newline\n"},
		{RowKey: "=base64=chars+/", PartitionKey: "==="},
	}
	for _, id := range cases {
		decoded, err := DecodeLeaseID(EncodeLeaseID(id))
		require.NoError(t, err)
		assert.Equal(t, id, decoded)
	}
}

func encodeRaw(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestDecodeLeaseIDRejectsMalformedBase64(t *testing.T) {
	_, err := DecodeLeaseID("not-valid-base64!!!")
	require.Error(t, err)
}

func TestDecodeLeaseIDRejectsMissingPipe(t *testing.T) {
	_, err := DecodeLeaseID(encodeRaw("no-pipe-here"))
	require.Error(t, err)
}

func TestDecodeLeaseIDRejectsEmptyParts(t *testing.T) {
	_, err := DecodeLeaseID(encodeRaw("|partitionkey"))
	require.Error(t, err)

	_, err = DecodeLeaseID(encodeRaw("rowkey|"))
	require.Error(t, err)
}

func TestDecodeLeaseIDRejectsEmptyString(t *testing.T) {
	_, err := DecodeLeaseID("")
	require.Error(t, err)
}

func TestDecodeLeaseIDRejectsTooManyPipes(t *testing.T) {
	_, err := DecodeLeaseID(encodeRaw("a|b|c"))
	require.Error(t, err)
}
