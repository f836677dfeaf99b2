package synclink

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/nantokaworks/gamerguard/internal/types"
)

// QueryParam is the query key carrying the sync token in a share link.
const QueryParam = "sync"

// ErrInvalidToken reports a malformed transport encoding or payload. Callers
// must treat decode failure as a no-op and leave local state untouched.
var ErrInvalidToken = errors.New("invalid sync token")

// Snapshot is the shareable subset of the ledger embedded in a sync link:
// the full roster plus the most recent few history and archive entries.
type Snapshot struct {
	Members  []types.Member        `json:"members"`
	History  []types.PenaltyRecord `json:"history"`
	Archives []types.GameRecord    `json:"archives,omitempty"`
}

// Encode serializes the snapshot into a URL-safe text token.
func Encode(snapshot Snapshot) (string, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to encode sync snapshot: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode parses a sync token. Tokens produced by older clients using padded
// standard base64 are accepted too.
func Decode(token string) (*Snapshot, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		data, err = base64.StdEncoding.DecodeString(token)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, "bad transport encoding")
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, "bad payload")
	}
	if snapshot.Members == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, "missing members")
	}
	return &snapshot, nil
}

// ShareURL builds the shareable link carrying the token.
func ShareURL(base, token string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?" + QueryParam + "=" + token
	}
	q := u.Query()
	q.Set(QueryParam, token)
	u.RawQuery = q.Encode()
	return u.String()
}
