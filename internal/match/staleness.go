package match

import (
	"time"

	"mycelica/aka/internal/db"
)

// StaleAfter is how old evidence may be before a strong link becomes weak
const StaleAfter = 48 * time.Hour

// TrustFor returns Strong when lastSeen is at most StaleAfter before now
func TrustFor(lastSeen, now time.Time) db.Trust {
	if now.Sub(lastSeen) > StaleAfter {
		return db.Weak
	}
	return db.Strong
}

// TrustForMillis is TrustFor over Unix millisecond timestamps
func TrustForMillis(lastSeen, now int64) db.Trust {
	return TrustFor(time.UnixMilli(lastSeen), time.UnixMilli(now))
}
