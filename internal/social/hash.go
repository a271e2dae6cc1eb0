package social

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Domain prefixes for content hashes.
// The version suffix leaves room for changing the encoding later.
const (
	DomainUserNode = "graphsync/user-node/v1"
	DomainEdge     = "graphsync/edge/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// marshalCanonical encodes v as compact JSON without HTML escaping.
// Struct field order is fixed by the type, so equal values give equal bytes.
func marshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// NodeHash returns a stable content hash of a user node.
// Strings are NFC-normalized first so visually identical names hash equal.
func NodeHash(n UserNode) (string, error) {
	interests := make([]string, len(n.Interests))
	for i, s := range n.Interests {
		interests[i] = norm.NFC.String(s)
	}
	data, err := marshalCanonical(UserNode{
		ID:            n.ID,
		Username:      norm.NFC.String(n.Username),
		Interests:     interests,
		ActivityScore: n.ActivityScore,
	})
	if err != nil {
		return "", fmt.Errorf("NodeHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainUserNode, data), nil
}

// EdgeHash returns a stable content hash of an edge, independent of which
// endpoint owns the record.
func EdgeHash(e FriendshipEdge) (string, error) {
	lo, hi := e.Pair()
	data, err := marshalCanonical(struct {
		Lo               string `json:"lo"`
		Hi               string `json:"hi"`
		Status           Status `json:"status"`
		InteractionCount int64  `json:"interaction_count"`
		LastInteraction  string `json:"last_interaction"`
	}{lo, hi, e.Status, e.InteractionCount, e.LastInteraction.UTC().Format(time.RFC3339Nano)})
	if err != nil {
		return "", fmt.Errorf("EdgeHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEdge, data), nil
}
