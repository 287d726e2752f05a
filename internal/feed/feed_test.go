package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mycelica/aka/internal/db"
	"mycelica/aka/internal/graph"
	"mycelica/aka/internal/history"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newDispatcher(t *testing.T) (*Dispatcher, *history.Engine) {
	t.Helper()
	e, err := history.Open(":memory:", history.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	d := NewDispatcher(e)
	d.now = func() time.Time { return t0 }
	return d, e
}

func feed(t *testing.T, d *Dispatcher, lines ...string) {
	t.Helper()
	for _, line := range lines {
		require.NoError(t, d.Handle(line), line)
	}
}

func TestHandle_PrivmsgAndAction(t *testing.T) {
	d, e := newDispatcher(t)
	feed(t, d,
		":alice!a@host1.example.com PRIVMSG #chat :hello there",
		":alice!a@host1.example.com PRIVMSG #chat,bob :\x01ACTION waves\x01",
		":alice!a@host1.example.com PRIVMSG #chat :\x01VERSION\x01",
		":alice!a@host1.example.com NOTICE #chat :heads up",
		":alice!a@host1.example.com PRIVMSG bob :private",
	)

	id, _, ok := e.LookupByNick("alice")
	require.True(t, ok)
	msgs := e.RecentMessages(id, "#chat", 10, "")
	require.Len(t, msgs, 3)
	assert.Equal(t, "heads up", msgs[0].Msg)
	assert.Equal(t, db.ModeNotice, msgs[0].Mode)
	assert.Equal(t, "waves", msgs[1].Msg)
	assert.Equal(t, db.ModeAction, msgs[1].Mode)
	assert.Equal(t, "alice!a@host1.example.com", msgs[2].Hostmask)
	assert.Equal(t, t0.UnixMilli(), msgs[2].Timestamp)
}

func TestHandle_ServerTime(t *testing.T) {
	d, e := newDispatcher(t)
	feed(t, d, "@time=2023-05-06T07:08:09.123Z :alice!a@h.example.com PRIVMSG #chat :hi")

	id, _, _ := e.LookupByNick("alice")
	m := e.MessageByOffset(id, "#chat", 0, "")
	require.NotNil(t, m)
	want := time.Date(2023, 5, 6, 7, 8, 9, 123_000_000, time.UTC)
	assert.Equal(t, want.UnixMilli(), m.Timestamp)
}

func TestHandle_JoinAndExtendedJoin(t *testing.T) {
	d, e := newDispatcher(t)
	feed(t, d,
		":alice!a@h.example.com JOIN #chat",
		":alice!a@h.example.com JOIN #chat alice :Alice A.",
		":bob!b@b.example.com JOIN #chat * :Bob",
	)

	id, _, _ := e.LookupByNick("alice")
	c := e.ChannelState(id, "#chat")
	require.NotNil(t, c)
	assert.Equal(t, 2, c.Joins)

	aka := e.AlsoKnownAs("alice", graph.ClosureOptions{})
	assert.Equal(t, []string{"alice"}, aka["alice!a@h.example.com"].Nickservs)
	assert.Empty(t, e.AlsoKnownAs("bob", graph.ClosureOptions{})["bob!b@b.example.com"].Nickservs)
}

func TestHandle_NickChange(t *testing.T) {
	d, e := newDispatcher(t)
	feed(t, d,
		":alice!a@host1.example.com JOIN #chat",
		":alice!a@host1.example.com NICK Guest42",
	)

	alice, _, _ := e.LookupByNick("alice")
	guest, mask, ok := e.LookupByNick("Guest42")
	require.True(t, ok)
	assert.Equal(t, "Guest42!a@host1.example.com", mask)
	assert.Equal(t, alice, e.AncestorOf(guest))
}

func TestHandle_Whois(t *testing.T) {
	d, e := newDispatcher(t)
	feed(t, d,
		":irc.example.net 311 me carol c c.example.com * :Carol C.",
		":irc.example.net 330 me carol carolacct :is logged in as",
		":irc.example.net 330 me nobody acct :is logged in as",
	)

	aka := e.AlsoKnownAs("carol", graph.ClosureOptions{})
	entry, ok := aka["carol!c@c.example.com"]
	require.True(t, ok)
	assert.Equal(t, []string{"Carol C."}, entry.Gecos)
	assert.Equal(t, []string{"carolacct"}, entry.Nickservs)
}

func TestHandle_AccountAndChghost(t *testing.T) {
	d, e := newDispatcher(t)
	feed(t, d,
		":dave!d@d.example.com ACCOUNT dave",
		":dave!d@d.example.com ACCOUNT *",
		"@time=2024-03-01T12:05:00Z :dave!d@d.example.com CHGHOST d user/dave",
	)

	id, mask, ok := e.LookupByNick("dave")
	require.True(t, ok)
	assert.Equal(t, "dave!d@user/dave", mask)

	aka := e.AlsoKnownAs("dave", graph.ClosureOptions{})
	require.Len(t, aka, 2)
	old := aka["dave!d@d.example.com"]
	assert.Equal(t, []string{"dave"}, old.Nickservs)
	assert.Equal(t, old.ID, e.AncestorOf(id))
}

func TestHandle_Ignored(t *testing.T) {
	d, _ := newDispatcher(t)
	feed(t, d,
		"PING :irc.example.net",
		":irc.example.net NOTICE * :*** Looking up your hostname",
		":irc.example.net 001 me :Welcome",
		"",
	)
	handled, skipped := d.Stats()
	assert.Zero(t, handled)
	assert.Equal(t, 3, skipped)
}

func TestHandle_Malformed(t *testing.T) {
	d, _ := newDispatcher(t)
	assert.Error(t, d.Handle("@"))
}
