package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mycelica/aka/internal/db"
	"mycelica/aka/internal/graph"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Open(":memory:", Options{})
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestEngine_ObserveAndLookup(t *testing.T) {
	e := newEngine(t)
	id := e.Observe("alice", "a", "host1.example.com", "", t0)
	require.NotZero(t, id)

	got, mask, ok := e.LookupByNick("ALICE")
	require.True(t, ok)
	assert.Equal(t, id, got)
	assert.Equal(t, "alice!a@host1.example.com", mask)

	mask, ok = e.LookupByID(id)
	require.True(t, ok)
	assert.Equal(t, "alice!a@host1.example.com", mask)

	_, _, ok = e.LookupByNick("nobody")
	assert.False(t, ok)
	_, ok = e.LookupByID(999)
	assert.False(t, ok)
}

func TestEngine_AlsoKnownAs(t *testing.T) {
	e := newEngine(t)
	alice := e.Observe("alice", "a", "user/alice", "", t0)
	alt := e.Observe("alice_away", "b", "user/alice", "", t0.Add(time.Minute))
	zed := e.Observe("zed", "b", "user/alice", "alice_away", t0.Add(2*time.Minute))
	e.RecordLogin(alice, "alice", t0)
	e.RecordGecos(alt, "Alice A.", t0)

	aka := e.AlsoKnownAs("alice", graph.ClosureOptions{})
	require.Len(t, aka, 2)
	entry := aka["alice!a@user/alice"]
	assert.Equal(t, alice, entry.ID)
	assert.Equal(t, db.Strong, entry.Trust)
	assert.Equal(t, []string{"alice"}, entry.Nickservs)
	assert.Equal(t, []string{"Alice A."}, aka["alice_away!b@user/alice"].Gecos)

	// a nick change to an unknown nick only yields a weak, flagged account
	require.NotEqual(t, alt, zed)
	wide := e.AlsoKnownAs("alice", graph.ClosureOptions{IncludeWeak: true, IncludeNickchange: true})
	require.Len(t, wide, 3)
	z := wide["zed!b@user/alice"]
	assert.Equal(t, db.Weak, z.Trust)
	assert.True(t, z.Nickchange)

	assert.Nil(t, e.AlsoKnownAs("nobody", graph.ClosureOptions{}))
}

func TestEngine_AncestorOf(t *testing.T) {
	e := newEngine(t)
	first := e.Observe("alice", "a", "user/alice", "", t0)
	second := e.Observe("alice2", "b", "user/alice", "", t0)
	assert.Equal(t, first, e.AncestorOf(second))
	assert.Equal(t, int64(42), e.AncestorOf(42))
}

func TestEngine_MessagesAcrossIdentity(t *testing.T) {
	e := newEngine(t)
	first := e.Observe("alice", "a", "user/alice", "", t0)
	second := e.Observe("alice2", "b", "user/alice", "", t0)
	other := e.Observe("bob", "b", "bob.example.net", "", t0)

	e.AppendMessage(first, "alice!a@user/alice", "#chat", "hello there", t0, "")
	e.AppendMessage(second, "alice2!b@user/alice", "#chat", "waves", t0.Add(time.Second), db.ModeAction)
	e.AppendMessage(second, "alice2!b@user/alice", "#chat", "100% sure", t0.Add(2*time.Second), "")
	e.AppendMessage(other, "bob!b@bob.example.net", "#chat", "hello bob", t0.Add(3*time.Second), "")

	msgs := e.RecentMessages(first, "#chat", 10, "")
	require.Len(t, msgs, 3)
	assert.Equal(t, "100% sure", msgs[0].Msg)

	actions := e.RecentMessages(second, "#chat", 10, db.ModeAction)
	require.Len(t, actions, 1)
	assert.Equal(t, "waves", actions[0].Msg)

	m := e.MessageByOffset(second, "#chat", 2, "")
	require.NotNil(t, m)
	assert.Equal(t, "hello there", m.Msg)
	assert.Nil(t, e.MessageByOffset(second, "#chat", 3, ""))

	m = e.MessageByPattern(first, "#chat", "hel*", 0)
	require.NotNil(t, m)
	assert.Equal(t, "hello there", m.Msg)

	m = e.MessageByPattern(first, "#chat", "100%", 0)
	require.NotNil(t, m, "literal percent is a substring search")
	assert.Equal(t, "100% sure", m.Msg)

	assert.Nil(t, e.MessageByPattern(first, "#chat", "  ", 0))
	assert.Empty(t, e.RecentMessages(first, "#elsewhere", 10, ""))
}

func TestEngine_Link(t *testing.T) {
	e := newEngine(t)
	a := e.Observe("alice", "a", "alpha.example.com", "", t0)
	b := e.Observe("bob", "b", "zulu.example.net", "", t0)

	got, err := e.Link(a, b, db.Strong, false)
	require.NoError(t, err)
	assert.Equal(t, db.Strong, got)
	assert.Equal(t, a, e.AncestorOf(b))

	got, err = e.Link(a, b, db.Weak, false)
	require.NoError(t, err)
	assert.Equal(t, db.Strong, got, "no downgrade without force")

	got, err = e.Link(a, b, db.Weak, true)
	require.NoError(t, err)
	assert.Equal(t, db.Weak, got)
	assert.Equal(t, b, e.AncestorOf(b))

	_, err = e.Link(a, 999, db.Strong, false)
	assert.ErrorIs(t, err, ErrUnknownAccount)
}

func TestEngine_DeleteAccount(t *testing.T) {
	e := newEngine(t)
	first := e.Observe("alice", "a", "user/alice", "", t0)
	second := e.Observe("alice2", "b", "user/alice", "", t0.Add(time.Minute))
	third := e.Observe("alice3", "c", "user/alice", "", t0.Add(2*time.Minute))
	e.AppendMessage(first, "alice!a@user/alice", "#chat", "hi", t0, "")
	e.JoinChannel(first, "#chat", t0)
	e.RecordLogin(first, "alice", t0)
	e.RecordGecos(first, "Alice", t0)

	require.NoError(t, e.DeleteAccount(first))

	_, ok := e.LookupByID(first)
	assert.False(t, ok)
	assert.Empty(t, e.RecentMessages(first, "#chat", 10, ""))
	assert.Equal(t, second, e.AncestorOf(third), "identity re-rooted at the smallest survivor")

	err := e.DeleteAccount(first)
	assert.ErrorIs(t, err, ErrUnknownAccount)
}

func TestEngine_Channels(t *testing.T) {
	e := newEngine(t)
	id := e.Observe("alice", "a", "alpha.example.com", "", t0)

	c := e.ChannelState(id, "#new")
	require.NotNil(t, c)
	assert.Zero(t, c.Joins)

	e.JoinChannel(id, "#chat", t0)
	e.RecordOffense(id, "#chat", t0.Add(time.Minute))
	e.SetValidated(id, "#chat", true)

	c = e.ChannelState(id, "#chat")
	require.NotNil(t, c)
	assert.Equal(t, 1, c.Joins)
	assert.Equal(t, 1, c.Offenses)
	assert.True(t, c.Validated)
}

func TestEngine_FailSoft(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Close())

	assert.NotPanics(t, func() {
		assert.Zero(t, e.Observe("alice", "a", "alpha.example.com", "", t0))
		e.RecordLogin(1, "alice", t0)
		e.AppendMessage(1, "m", "#c", "x", t0, "")
		assert.Empty(t, e.RecentMessages(1, "#c", 10, ""))
		assert.Nil(t, e.ChannelState(1, "#c"))
		assert.Equal(t, int64(7), e.AncestorOf(7))
	})
	assert.ErrorIs(t, e.Vacuum(), db.ErrClosed)
}

func TestEngine_Vacuum(t *testing.T) {
	e := newEngine(t)
	id := e.Observe("alice", "a", "alpha.example.com", "", t0)
	require.NoError(t, e.Vacuum())
	_, mask, ok := e.LookupByNick("alice")
	require.True(t, ok)
	assert.Equal(t, "alice!a@alpha.example.com", mask)
	assert.Equal(t, id, e.AncestorOf(id))
}
