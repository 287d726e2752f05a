package resolve

import "mycelica/aka/internal/match"

// Suspicious reports whether a STRONG link between two identities looks like
// a false positive: dissimilar nicks, and not both hosts behind a trusted cloak
func (r *Resolver) Suspicious(nick, host, otherNick, otherHost string) bool {
	if match.NormalizedDistance(nick, otherNick) < match.Threshold {
		return false
	}
	return !(r.trusted.MatchString(host) && r.trusted.MatchString(otherHost))
}
