package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/noah-isme/tutor-admin-api/internal/models"
	appErrors "github.com/noah-isme/tutor-admin-api/pkg/errors"
)

const versionTokenPrefix = "v1-"

var versionTokenPattern = regexp.MustCompile(`^v1-[0-9a-f]{32}$`)

// TokenState is the outcome of comparing a client token with the current record.
type TokenState int

const (
	TokenMatch TokenState = iota
	TokenStale
	TokenMalformed
)

// VersionCodec issues and checks opaque optimistic-concurrency tokens.
// Tokens are keyed HMACs over the record content and its store version, so a
// token is never reissued for a record once it has been written.
type VersionCodec struct {
	secret []byte
}

// NewVersionCodec constructs a codec keyed with secret.
func NewVersionCodec(secret string) *VersionCodec {
	return &VersionCodec{secret: []byte(secret)}
}

// Issue returns the token for the current state of record.
func (c *VersionCodec) Issue(record *models.Record) (string, error) {
	canonical, err := json.Marshal(record.Fields)
	if err != nil {
		return "", fmt.Errorf("encode record %d: %w", record.ID, err)
	}
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(canonical)
	var suffix [16]byte
	binary.BigEndian.PutUint64(suffix[:8], uint64(record.Version))
	binary.BigEndian.PutUint64(suffix[8:], uint64(record.UpdatedAt.UnixNano()))
	mac.Write(suffix[:])
	return versionTokenPrefix + hex.EncodeToString(mac.Sum(nil)[:16]), nil
}

// Compare classifies token against the current record.
func (c *VersionCodec) Compare(token string, current *models.Record) TokenState {
	normalized, ok := NormalizeVersionToken(token)
	if !ok {
		return TokenMalformed
	}
	expected, err := c.Issue(current)
	if err != nil {
		return TokenStale
	}
	if hmac.Equal([]byte(normalized), []byte(expected)) {
		return TokenMatch
	}
	return TokenStale
}

// Validate maps Compare onto the error taxonomy.
func (c *VersionCodec) Validate(token string, current *models.Record) error {
	switch c.Compare(token, current) {
	case TokenMatch:
		return nil
	case TokenMalformed:
		return appErrors.ErrInvalidVersionToken
	default:
		return appErrors.Clonef(appErrors.ErrVersionConflict, "record %d was modified since the version token was issued", current.ID)
	}
}

// NormalizeVersionToken strips optional surrounding quotes and checks the token shape.
// Wildcards and weak validators are rejected.
func NormalizeVersionToken(raw string) (string, bool) {
	token := strings.TrimSpace(raw)
	if len(token) >= 2 && strings.HasPrefix(token, `"`) && strings.HasSuffix(token, `"`) {
		token = token[1 : len(token)-1]
	}
	if !versionTokenPattern.MatchString(token) {
		return "", false
	}
	return token, true
}

// QuoteVersionToken formats a token as a strong ETag value.
func QuoteVersionToken(token string) string {
	return `"` + token + `"`
}
