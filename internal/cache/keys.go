package cache

import (
	"fmt"
)

func TenantSlugKey(slug string) string {
	return fmt.Sprintf("tenant:slug:%s", slug)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}

func RefreshTokenKey(tokenHash string) string {
	return fmt.Sprintf("auth:refresh:%s", tokenHash)
}

// RevokedSinceKey holds the unix time in milliseconds at or before which a
// subject's tokens are no longer valid.
func RevokedSinceKey(subject string) string {
	return fmt.Sprintf("auth:revoked:%s", subject)
}
