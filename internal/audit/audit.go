package audit

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Entry represents an audit log entry. Market communication is subject to
// regulatory review, so every acknowledgment and settlement trigger leaves a
// trail.
type Entry struct {
	ID             string
	CooperativeID  string
	Actor          string
	Action         string
	ResourceType   string
	ResourceID     string
	BalanceGroupID string
	Metadata       json.RawMessage
	PayloadDigest  string
	CreatedAt      time.Time
}

// Logger writes audit entries.
type Logger interface {
	Log(ctx context.Context, entry Entry) error
}

// NewID generates a random audit id.
func NewID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return "audit-" + hex.EncodeToString(buf)
}

// DigestJSON computes a SHA256 hex digest for metadata payloads.
func DigestJSON(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
