package db

import "fmt"

// Trust is the level of an alias edge, stored in Aliases.type
type Trust int

const (
	Weak   Trust = 0 // plausibly the same person
	Strong Trust = 1 // proven the same person
)

func (t Trust) String() string {
	if t == Strong {
		return "strong"
	}
	return "weak"
}

// Message modes
const (
	ModePrivmsg = "privmsg"
	ModeAction  = "action"
	ModeNotice  = "notice"
)

// Hostmask represents a row in the Hostmasks table
type Hostmask struct {
	Mask       string `db:"hostmask" json:"hostmask"`
	ID         int64  `db:"id" json:"id"`
	LastSeen   int64  `db:"last_seen" json:"last_seen"` // Unix millis
	Nickchange bool   `db:"nickchange" json:"nickchange"`
	Nick       string `db:"nick" json:"nick"`
	User       string `db:"user" json:"user"`
	Host       string `db:"host" json:"host"`
}

// FormatMask builds a nick!user@host string
func FormatMask(nick, user, host string) string {
	return fmt.Sprintf("%s!%s@%s", nick, user, host)
}

// Account represents a row in the Accounts table
type Account struct {
	ID       int64   `db:"id" json:"id"`
	Hostmask string  `db:"hostmask" json:"hostmask"`
	Nickserv *string `db:"nickserv" json:"nickserv"`
	Parent   *int64  `db:"parent" json:"parent"` // union-find pointer, nil means self
}

// Alias represents one direction of a row pair in the Aliases table
type Alias struct {
	ID    int64 `db:"id" json:"id"`
	Alias int64 `db:"alias" json:"alias"`
	Type  Trust `db:"type" json:"type"`
}

// NickservLogin represents a row in the Nickserv table
type NickservLogin struct {
	ID        int64  `db:"id" json:"id"`
	Nickserv  string `db:"nickserv" json:"nickserv"`
	Timestamp int64  `db:"timestamp" json:"timestamp"`
}

// GecosEntry represents a row in the Gecos table
type GecosEntry struct {
	ID        int64  `db:"id" json:"id"`
	Gecos     string `db:"gecos" json:"gecos"`
	Timestamp int64  `db:"timestamp" json:"timestamp"`
}

// ChannelState represents a row in the Channels table
type ChannelState struct {
	ID        int64  `db:"id" json:"id"`
	Channel   string `db:"channel" json:"channel"`
	Joins     int    `db:"joins" json:"joins"`
	Offenses  int    `db:"offenses" json:"offenses"`
	Validated bool   `db:"validated" json:"validated"`
	LastSeen  int64  `db:"last_seen" json:"last_seen"`
}

// Message represents a row in the Messages table
type Message struct {
	ID        int64  `db:"id" json:"id"`
	Channel   string `db:"channel" json:"channel"`
	Msg       string `db:"msg" json:"msg"`
	Timestamp int64  `db:"timestamp" json:"timestamp"`
	Mode      string `db:"mode" json:"mode"`
	Hostmask  string `db:"hostmask" json:"hostmask"`
}

// AccountSummary is an account with aggregate hostmask stats
type AccountSummary struct {
	ID       int64   `db:"id" json:"id"`
	Hostmask string  `db:"hostmask" json:"hostmask"`
	Nickserv *string `db:"nickserv" json:"nickserv"`
	Masks    int     `db:"masks" json:"masks"`
	LastSeen int64   `db:"last_seen" json:"last_seen"`
}
