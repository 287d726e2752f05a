package resolve

import (
	"strings"

	"mycelica/aka/internal/db"
	"mycelica/aka/internal/graph"
	"mycelica/aka/internal/match"
)

// target is the identity closure members are tested against
type target struct {
	ID     int64 // 0 when the target has no account yet
	User   string
	Host   string
	Logins []string
}

func (r *Resolver) targetOf(h *db.Hostmask) (target, error) {
	logins, err := r.db.NickservNames(h.ID)
	if err != nil {
		return target{}, err
	}
	return target{ID: h.ID, User: h.User, Host: h.Host, Logins: logins}, nil
}

type verdict int

const (
	pass verdict = iota // test does not decide
	same                // same person
	stop                // provably different, skip the remaining tests
)

// test is one entry of the battery; member logins are passed alongside
type test struct {
	name  string
	check func(m db.Hostmask, logins []string, t target) verdict
}

// battery is evaluated in order, the first decisive test wins
var battery = []test{
	{"account", func(m db.Hostmask, _ []string, t target) verdict {
		if t.ID != 0 && m.ID == t.ID {
			return same
		}
		return pass
	}},
	{"userhost", func(m db.Hostmask, _ []string, t target) verdict {
		if m.User == t.User && m.Host == t.Host {
			return same
		}
		return pass
	}},
	{"nickserv", func(_ db.Hostmask, logins []string, t target) verdict {
		for _, a := range logins {
			for _, b := range t.Logins {
				if strings.EqualFold(a, b) {
					return same
				}
			}
		}
		return pass
	}},
	{"cloak", func(m db.Hostmask, _ []string, t target) verdict {
		switch match.CompareCloaks(m.Host, t.Host) {
		case match.CloakMatch:
			return same
		case match.CloakDistinct:
			return stop
		}
		return pass
	}},
	{"fuzzy-host", func(m db.Hostmask, _ []string, t target) verdict {
		if match.FuzzyHostMatch(m.Host, t.Host) {
			return same
		}
		return pass
	}},
	{"ip-host", func(m db.Hostmask, _ []string, t target) verdict {
		if match.IPHostMatch(m.Host, t.Host) {
			return same
		}
		return pass
	}},
}

// runBattery returns the name of the first test that proves m is t
func runBattery(m db.Hostmask, logins []string, t target) (string, bool) {
	for _, tst := range battery {
		switch tst.check(m, logins, t) {
		case same:
			return tst.name, true
		case stop:
			return "", false
		}
	}
	return "", false
}

// closureMatches expands seed over STRONG non-nick-change edges and runs the
// battery on every member hostmask. Returns the name of the test that fired.
func (r *Resolver) closureMatches(seed int64, t target) (string, bool, error) {
	c, err := r.graph.Closure(seed, graph.ClosureOptions{})
	if err != nil {
		return "", false, err
	}
	logins, err := r.db.NickservByIDs(c.IDs())
	if err != nil {
		return "", false, err
	}
	for _, m := range c.Hostmasks {
		if name, ok := runBattery(m, logins[m.ID], t); ok {
			return name, true, nil
		}
	}
	return "", false, nil
}
