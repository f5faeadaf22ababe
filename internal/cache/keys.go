package cache

import (
	"fmt"
	"time"
)

// RateLimitKey names the counter of one client IP in the minute holding at.
func RateLimitKey(clientIP string, at time.Time) string {
	return fmt.Sprintf("sitewatch:ratelimit:%s:%d", clientIP, at.Unix()/60)
}
