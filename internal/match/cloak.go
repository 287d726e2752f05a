package match

import "strings"

// CloakResult is the outcome of comparing two possibly cloaked hosts
type CloakResult int

const (
	CloakUnknown  CloakResult = iota // at least one side is not cloaked
	CloakMatch                       // same trailing cloak segment
	CloakDistinct                    // both cloaked, different segments
)

func (r CloakResult) String() string {
	switch r {
	case CloakMatch:
		return "match"
	case CloakDistinct:
		return "distinct"
	default:
		return "unknown"
	}
}

// IsCloaked reports whether host carries a /-delimited cloak path
func IsCloaked(host string) bool {
	return strings.Contains(host, "/")
}

// CloakSegment returns the last path segment of a cloaked host
// (user/alice -> alice)
func CloakSegment(host string) (string, bool) {
	i := strings.LastIndexByte(host, '/')
	if i < 0 || i == len(host)-1 {
		return "", false
	}
	return host[i+1:], true
}

// CompareCloaks compares the trailing segments of two cloaked hosts. Two
// cloaks with different segments are provably different people.
func CompareCloaks(a, b string) CloakResult {
	sa, okA := CloakSegment(a)
	sb, okB := CloakSegment(b)
	if !okA || !okB {
		return CloakUnknown
	}
	if strings.EqualFold(sa, sb) {
		return CloakMatch
	}
	return CloakDistinct
}
