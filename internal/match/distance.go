package match

import (
	"regexp"

	"github.com/agnivade/levenshtein"
)

// Threshold is the normalized distance below which two hosts are the same
const Threshold = 0.50

// ipPattern finds a dotted-quad-like run in a reverse-DNS hostname
var ipPattern = regexp.MustCompile(`(\d+)[._-](\d+)[._-](\d+)[._-](\d+)`)

// literalIP matches a host that is a bare IPv4 address
var literalIP = regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+$`)

// NormalizedDistance returns the edit distance between a and b divided by the
// length of the longer string. Returns 1 when either side is empty.
func NormalizedDistance(a, b string) float64 {
	if a == "" || b == "" {
		return 1
	}
	longest := len([]rune(a))
	if n := len([]rune(b)); n > longest {
		longest = n
	}
	return float64(levenshtein.ComputeDistance(a, b)) / float64(longest)
}

// FuzzyHostMatch reports whether two hostnames are close enough to be the
// same connection after a reconnect
func FuzzyHostMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return NormalizedDistance(a, b) < Threshold
}

// IPFromHostname extracts an IPv4 address embedded in a hostname such as
// 99-57-140-149.example.net
func IPFromHostname(host string) (string, bool) {
	m := ipPattern.FindStringSubmatch(host)
	if m == nil {
		return "", false
	}
	return m[1] + "." + m[2] + "." + m[3] + "." + m[4], true
}

// IPHostMatch reports whether one host is a literal IP and the other a
// hostname embedding that same IP
func IPHostMatch(a, b string) bool {
	if literalIP.MatchString(b) {
		a, b = b, a
	}
	if !literalIP.MatchString(a) {
		return false
	}
	ip, ok := IPFromHostname(b)
	return ok && ip == a
}
