package upstream

import (
	"context"
	"strings"
)

// TokenSource supplies bearer tokens. Obtaining and refreshing them is the
// caller's concern.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed bearer token.
type StaticToken string

// Token returns the token or ErrNotConfigured when it is empty.
func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", ErrNotConfigured
	}
	return string(t), nil
}

// RealmSlug lower-cases a realm, drops apostrophes and joins words with
// dashes.
func RealmSlug(realm string) string {
	s := strings.ToLower(strings.TrimSpace(realm))
	s = strings.ReplaceAll(s, "'", "")
	return strings.Join(strings.Fields(s), "-")
}
