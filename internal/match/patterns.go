package match

import "regexp"

var (
	guestNick   = regexp.MustCompile(`(?i)^Guest\d+$`)
	cloudHost   = regexp.MustCompile(`(?i)(?:^|\.)irccloud\.com$|^irccloud/`)
	cloudHostID = regexp.MustCompile(`(?i)(?:^|[./])id-(\d+)(?:\.|$)`)
	cloudIdent  = regexp.MustCompile(`^[us]id(\d+)$`)
	natHost     = regexp.MustCompile(`^nat/([^/]+)/x-`)
)

// IsGuestNick reports whether nick is a network-assigned GuestNNNN placeholder
func IsGuestNick(nick string) bool {
	return guestNick.MatchString(nick)
}

// IRCCloudUID extracts the numeric account id of an IRCCloud connection from
// its ident (uid1234 / sid1234) or its host (id-1234.*.irccloud.com). Hosts
// outside IRCCloud never yield a uid, whatever the ident.
func IRCCloudUID(user, host string) (string, bool) {
	if !cloudHost.MatchString(host) {
		return "", false
	}
	if m := cloudIdent.FindStringSubmatch(user); m != nil {
		return m[1], true
	}
	if m := cloudHostID.FindStringSubmatch(host); m != nil {
		return m[1], true
	}
	return "", false
}

// NATGateway returns the gateway name of a nat/<gateway>/x-... host
func NATGateway(host string) (string, bool) {
	m := natHost.FindStringSubmatch(host)
	if m == nil {
		return "", false
	}
	return m[1], true
}
