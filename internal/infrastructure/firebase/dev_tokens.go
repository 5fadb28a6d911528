package firebase

import (
	"context"
	"fmt"
	"strings"
)

const devTokenPrefix = "dev:"

// DevTokenVerifier accepts tokens of the form "dev:<uid>". It is only wired
// when ENVIRONMENT=development and STORE_BACKEND=memory, so the API can be
// exercised locally without a Firebase project.
type DevTokenVerifier struct{}

func (DevTokenVerifier) VerifyToken(ctx context.Context, token string) (string, error) {
	uid := strings.TrimPrefix(token, devTokenPrefix)
	if uid == token || strings.TrimSpace(uid) == "" {
		return "", fmt.Errorf("not a development token")
	}
	return uid, nil
}

// DevToken returns the bearer token DevTokenVerifier maps to uid.
func DevToken(uid string) string {
	return devTokenPrefix + uid
}
