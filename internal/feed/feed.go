// Package feed drives the history engine from raw IRC protocol lines.
package feed

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ergochat/irc-go/ircmsg"

	"mycelica/aka/internal/db"
)

// ErrNoSource is returned for lines that need a nick!user@host source but lack one
var ErrNoSource = errors.New("line has no user source")

// Engine is the part of history.Engine the dispatcher drives
type Engine interface {
	Observe(nick, user, host, priorNick string, at time.Time) int64
	RecordLogin(id int64, name string, at time.Time)
	RecordGecos(id int64, gecos string, at time.Time)
	AppendMessage(id int64, hostmask, channel, text string, at time.Time, mode string)
	JoinChannel(id int64, channel string, at time.Time)
	LookupByNick(nick string) (int64, string, bool)
	Link(id, other int64, trust db.Trust, force bool) (db.Trust, error)
}

// Dispatcher turns IRC lines into engine calls
type Dispatcher struct {
	engine Engine
	now    func() time.Time

	handlers map[string]func(*ircmsg.Message, time.Time) error
	handled  int
	skipped  int
}

// NewDispatcher creates a Dispatcher over engine
func NewDispatcher(engine Engine) *Dispatcher {
	d := &Dispatcher{engine: engine, now: time.Now}
	d.handlers = map[string]func(*ircmsg.Message, time.Time) error{
		"PRIVMSG": d.onMessage,
		"NOTICE":  d.onMessage,
		"JOIN":    d.onJoin,
		"PART":    d.onPresence,
		"QUIT":    d.onPresence,
		"KICK":    d.onPresence,
		"NICK":    d.onNick,
		"311":     d.onWhoisUser,
		"330":     d.onWhoisAccount,
		"ACCOUNT": d.onAccount,
		"CHGHOST": d.onChghost,
	}
	return d
}

// Stats returns how many lines were dispatched and how many ignored
func (d *Dispatcher) Stats() (handled, skipped int) {
	return d.handled, d.skipped
}

// Handle parses one raw line and dispatches it. Commands the engine does not
// care about are ignored without error.
func (d *Dispatcher) Handle(line string) error {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil
	}
	msg, err := ircmsg.ParseLine(line)
	if err != nil {
		return fmt.Errorf("parsing line: %w", err)
	}
	handler, ok := d.handlers[strings.ToUpper(msg.Command)]
	if !ok {
		d.skipped++
		return nil
	}
	if err := handler(&msg, d.timeOf(&msg)); err != nil {
		if errors.Is(err, ErrNoSource) {
			// server notices and the like
			d.skipped++
			return nil
		}
		return fmt.Errorf("%s: %w", msg.Command, err)
	}
	d.handled++
	return nil
}

// timeOf honours the IRCv3 server-time tag
func (d *Dispatcher) timeOf(msg *ircmsg.Message) time.Time {
	if ok, value := msg.GetTag("time"); ok {
		if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
			return t
		}
		slog.Debug("bad server-time tag", "value", value)
	}
	return d.now()
}

// source returns the parsed nick!user@host of a line
func source(msg *ircmsg.Message) (ircmsg.NUH, error) {
	nuh, err := ircmsg.ParseNUH(msg.Source)
	if err != nil {
		return nuh, err
	}
	if nuh.Name == "" || nuh.User == "" || nuh.Host == "" {
		return nuh, ErrNoSource
	}
	return nuh, nil
}

func (d *Dispatcher) observeSource(msg *ircmsg.Message, at time.Time) (int64, ircmsg.NUH, error) {
	nuh, err := source(msg)
	if err != nil {
		return 0, nuh, err
	}
	return d.engine.Observe(nuh.Name, nuh.User, nuh.Host, "", at), nuh, nil
}

func isChannel(target string) bool {
	return target != "" && strings.ContainsRune("#&+!", rune(target[0]))
}

func (d *Dispatcher) onMessage(msg *ircmsg.Message, at time.Time) error {
	if len(msg.Params) < 2 {
		return nil
	}
	id, nuh, err := d.observeSource(msg, at)
	if err != nil || id == 0 {
		return err
	}

	text, mode := msg.Params[1], db.ModePrivmsg
	if strings.EqualFold(msg.Command, "NOTICE") {
		mode = db.ModeNotice
	}
	if strings.HasPrefix(text, "\x01") {
		body := strings.TrimSuffix(strings.TrimPrefix(text, "\x01"), "\x01")
		if !strings.HasPrefix(body, "ACTION ") {
			return nil // other CTCP requests are not chat
		}
		text, mode = strings.TrimPrefix(body, "ACTION "), db.ModeAction
	}

	mask := db.FormatMask(nuh.Name, nuh.User, nuh.Host)
	for _, target := range strings.Split(msg.Params[0], ",") {
		if isChannel(target) {
			d.engine.AppendMessage(id, mask, target, text, at, mode)
		}
	}
	return nil
}

func (d *Dispatcher) onJoin(msg *ircmsg.Message, at time.Time) error {
	id, _, err := d.observeSource(msg, at)
	if err != nil || id == 0 || len(msg.Params) == 0 {
		return err
	}
	for _, channel := range strings.Split(msg.Params[0], ",") {
		d.engine.JoinChannel(id, channel, at)
	}
	// extended-join carries the account name
	if len(msg.Params) > 1 && msg.Params[1] != "*" {
		d.engine.RecordLogin(id, msg.Params[1], at)
	}
	return nil
}

func (d *Dispatcher) onPresence(msg *ircmsg.Message, at time.Time) error {
	_, _, err := d.observeSource(msg, at)
	return err
}

func (d *Dispatcher) onNick(msg *ircmsg.Message, at time.Time) error {
	if len(msg.Params) == 0 {
		return nil
	}
	nuh, err := source(msg)
	if err != nil {
		return err
	}
	d.engine.Observe(msg.Params[0], nuh.User, nuh.Host, nuh.Name, at)
	return nil
}

// onWhoisUser handles RPL_WHOISUSER: <me> <nick> <user> <host> * :<realname>
func (d *Dispatcher) onWhoisUser(msg *ircmsg.Message, at time.Time) error {
	if len(msg.Params) < 6 {
		return nil
	}
	nick, user, host, gecos := msg.Params[1], msg.Params[2], msg.Params[3], msg.Params[5]
	id := d.engine.Observe(nick, user, host, "", at)
	if id != 0 && gecos != "" {
		d.engine.RecordGecos(id, gecos, at)
	}
	return nil
}

// onWhoisAccount handles RPL_WHOISACCOUNT: <me> <nick> <account> :is logged in as
func (d *Dispatcher) onWhoisAccount(msg *ircmsg.Message, at time.Time) error {
	if len(msg.Params) < 3 {
		return nil
	}
	id, _, ok := d.engine.LookupByNick(msg.Params[1])
	if !ok {
		slog.Debug("login for unseen nick", "nick", msg.Params[1])
		return nil
	}
	d.engine.RecordLogin(id, msg.Params[2], at)
	return nil
}

func (d *Dispatcher) onAccount(msg *ircmsg.Message, at time.Time) error {
	if len(msg.Params) == 0 {
		return nil
	}
	id, _, err := d.observeSource(msg, at)
	if err != nil || id == 0 {
		return err
	}
	if account := msg.Params[0]; account != "*" {
		d.engine.RecordLogin(id, account, at)
	}
	return nil
}

// onChghost observes the new user@host. The connection is the same, so the
// old and new accounts are STRONG-linked.
func (d *Dispatcher) onChghost(msg *ircmsg.Message, at time.Time) error {
	if len(msg.Params) < 2 {
		return nil
	}
	old, nuh, err := d.observeSource(msg, at)
	if err != nil {
		return err
	}
	id := d.engine.Observe(nuh.Name, msg.Params[0], msg.Params[1], "", at)
	if old == 0 || id == 0 || old == id {
		return nil
	}
	_, err = d.engine.Link(id, old, db.Strong, false)
	return err
}
