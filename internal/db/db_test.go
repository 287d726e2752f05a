package db

import (
	"context"
	"errors"
	"testing"
	"time"
)

// setupTestDB opens an in-memory database with the full schema
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(":memory:", Options{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func insertMask(t *testing.T, d *DB, nick, user, host string, lastSeen int64) Hostmask {
	t.Helper()
	mask := FormatMask(nick, user, host)
	id, err := d.CreateAccount(mask)
	if err != nil {
		t.Fatal(err)
	}
	h := Hostmask{Mask: mask, ID: id, LastSeen: lastSeen, Nick: nick, User: user, Host: host}
	if err := d.PutHostmask(h); err != nil {
		t.Fatal(err)
	}
	return h
}

func countRows(t *testing.T, d *DB, table string, id int64) int {
	t.Helper()
	var n int
	query := "SELECT COUNT(*) FROM " + table + " WHERE id = ?"
	if table == "Aliases" {
		query = "SELECT COUNT(*) FROM Aliases WHERE id = ?1 OR alias = ?1"
	}
	if _, err := d.get(&n, query, id); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestOpen_Schema(t *testing.T) {
	d := setupTestDB(t)
	for _, table := range []string{"Hostmasks", "Accounts", "Nickserv", "Gecos", "Channels", "Messages", "Aliases"} {
		var name string
		ok, err := d.get(&name, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Errorf("table %s missing", table)
		}
	}
}

func TestCommitIfDirty(t *testing.T) {
	d := setupTestDB(t)

	committed, err := d.CommitIfDirty()
	if err != nil {
		t.Fatal(err)
	}
	if committed {
		t.Error("clean batch should not commit")
	}

	insertMask(t, d, "alice", "a", "host1.example.com", 1000)
	if d.Pending() == 0 {
		t.Fatal("expected pending writes")
	}
	committed, err = d.CommitIfDirty()
	if err != nil {
		t.Fatal(err)
	}
	if !committed {
		t.Error("dirty batch should commit")
	}
	if d.Pending() != 0 {
		t.Errorf("pending after commit = %d, want 0", d.Pending())
	}

	// committed rows survive a rollback of the next batch
	if err := d.Rollback(); err != nil {
		t.Fatal(err)
	}
	h, err := d.GetHostmask("alice!a@host1.example.com")
	if err != nil {
		t.Fatal(err)
	}
	if h == nil {
		t.Fatal("committed hostmask lost after rollback")
	}
}

func TestRollback_DiscardsBatch(t *testing.T) {
	d := setupTestDB(t)
	insertMask(t, d, "bob", "b", "example.org", 1000)

	if err := d.Rollback(); err != nil {
		t.Fatal(err)
	}
	_, ok, err := d.MaskID("bob!b@example.org")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("rolled back hostmask still visible (cache not cleared?)")
	}
}

func TestPutHostmask_OneAccountPerMask(t *testing.T) {
	d := setupTestDB(t)
	h := insertMask(t, d, "alice", "a", "host", 1000)

	other, err := d.CreateAccount("x!y@z")
	if err != nil {
		t.Fatal(err)
	}
	h.ID = other
	h.LastSeen = 2000
	if err := d.PutHostmask(h); err != nil {
		t.Fatal(err)
	}

	id, ok, err := d.MaskID(h.Mask)
	if err != nil || !ok {
		t.Fatalf("MaskID: ok=%v err=%v", ok, err)
	}
	if id != other {
		t.Errorf("mask id = %d, want %d", id, other)
	}
	var n int
	if _, err := d.get(&n, `SELECT COUNT(*) FROM Hostmasks WHERE hostmask = ?`, h.Mask); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 row for mask, got %d", n)
	}
}

func TestHostmaskLookups(t *testing.T) {
	d := setupTestDB(t)
	insertMask(t, d, "alice", "a", "host1.example.com", 1000)
	insertMask(t, d, "alice", "a", "host2.example.com", 3000)
	insertMask(t, d, "carol", "uid12345", "id-12345.hampstead.irccloud.com", 2000)
	insertMask(t, d, "dave", "dv", "nat/ibm/x-abcdef", 2500)
	insertMask(t, d, "erin", "e", "user/erin", 2600)

	hs, err := d.HostmasksByNick("ALICE")
	if err != nil {
		t.Fatal(err)
	}
	if len(hs) != 2 {
		t.Fatalf("expected 2 records for alice (case-insensitive), got %d", len(hs))
	}
	if hs[0].Host != "host2.example.com" {
		t.Errorf("expected most recent first, got %s", hs[0].Host)
	}

	h, err := d.LatestByUserHost("a", "host1.example.com")
	if err != nil || h == nil {
		t.Fatalf("LatestByUserHost: %v %v", h, err)
	}

	h, err = d.LatestByCloudUID("12345")
	if err != nil || h == nil || h.Nick != "carol" {
		t.Fatalf("LatestByCloudUID: %v %v", h, err)
	}

	// non-IRCCloud hosts never answer a uid lookup
	insertMask(t, d, "mallory", "m", "squid-777.isp.net", 4000)
	insertMask(t, d, "bob", "uid777", "dsl.example.net", 4100)
	h, err = d.LatestByCloudUID("777")
	if err != nil {
		t.Fatal(err)
	}
	if h != nil {
		t.Errorf("LatestByCloudUID matched non-IRCCloud host %s", h.Mask)
	}
	insertMask(t, d, "frank", "~f", "id-7770.tooting.irccloud.com", 4200)
	h, err = d.LatestByCloudUID("777")
	if err != nil {
		t.Fatal(err)
	}
	if h != nil {
		t.Errorf("uid 777 must not match host id-7770: %s", h.Mask)
	}

	h, err = d.LatestByGateway("dave", "dv", "ibm")
	if err != nil || h == nil {
		t.Fatalf("LatestByGateway: %v %v", h, err)
	}
	h, err = d.LatestByGateway("dave", "dv", "i_m")
	if err != nil {
		t.Fatal(err)
	}
	if h != nil {
		t.Error("gateway LIKE metacharacters must be escaped")
	}

	h, err = d.LatestByHost("user/erin")
	if err != nil || h == nil {
		t.Fatalf("LatestByHost: %v %v", h, err)
	}

	h, err = d.GetHostmask("nobody!x@y")
	if err != nil {
		t.Fatal(err)
	}
	if h != nil {
		t.Error("unknown mask should be nil")
	}
}

func TestParent_DefaultsToSelf(t *testing.T) {
	d := setupTestDB(t)
	id, err := d.CreateAccount("a!b@c")
	if err != nil {
		t.Fatal(err)
	}
	p, err := d.Parent(id)
	if err != nil {
		t.Fatal(err)
	}
	if p != id {
		t.Errorf("parent = %d, want %d", p, id)
	}

	other, _ := d.CreateAccount("d!e@f")
	if err := d.SetParent(other, id); err != nil {
		t.Fatal(err)
	}
	if p, _ := d.Parent(other); p != id {
		t.Errorf("parent = %d, want %d", p, id)
	}
	if err := d.SetParent(other, other); err != nil {
		t.Fatal(err)
	}
	a, _ := d.GetAccount(other)
	if a.Parent != nil {
		t.Errorf("self parent should be stored as NULL, got %d", *a.Parent)
	}

	if p, _ := d.Parent(999); p != 999 {
		t.Errorf("unknown id should be its own parent, got %d", p)
	}
}

func TestPutAlias_Symmetric(t *testing.T) {
	d := setupTestDB(t)
	if err := d.PutAlias(1, 2, Strong); err != nil {
		t.Fatal(err)
	}
	for _, pair := range [][2]int64{{1, 2}, {2, 1}} {
		tr, ok, err := d.AliasType(pair[0], pair[1])
		if err != nil {
			t.Fatal(err)
		}
		if !ok || tr != Strong {
			t.Errorf("AliasType(%d,%d) = %v,%v want strong", pair[0], pair[1], tr, ok)
		}
	}

	if err := d.PutAlias(2, 1, Weak); err != nil {
		t.Fatal(err)
	}
	if tr, _, _ := d.AliasType(1, 2); tr != Weak {
		t.Errorf("overwrite should apply to both directions, got %v", tr)
	}

	all, err := d.AllAliases()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("expected one row per pair, got %d", len(all))
	}
}

func TestRecordNickserv(t *testing.T) {
	d := setupTestDB(t)
	h := insertMask(t, d, "alice", "a", "host", 1000)

	if err := d.RecordNickserv(h.ID, "alice", 1000); err != nil {
		t.Fatal(err)
	}
	if err := d.RecordNickserv(h.ID, "alice_alt", 2000); err != nil {
		t.Fatal(err)
	}
	if err := d.RecordNickserv(h.ID, "alice", 3000); err != nil {
		t.Fatal(err)
	}

	names, err := d.NickservNames(h.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "alice" {
		t.Errorf("names = %v, want [alice alice_alt]", names)
	}
	a, _ := d.GetAccount(h.ID)
	if a.Nickserv == nil || *a.Nickserv != "alice" {
		t.Errorf("current login = %v, want alice", a.Nickserv)
	}
}

func TestRecordGecos_Accumulates(t *testing.T) {
	d := setupTestDB(t)
	if err := d.RecordGecos(1, "Alice A", 1000); err != nil {
		t.Fatal(err)
	}
	if err := d.RecordGecos(1, "Alice A", 5000); err != nil {
		t.Fatal(err)
	}
	if err := d.RecordGecos(1, "alice from irc", 2000); err != nil {
		t.Fatal(err)
	}
	got, err := d.GecosByIDs([]int64{1})
	if err != nil {
		t.Fatal(err)
	}
	if len(got[1]) != 2 || got[1][0] != "Alice A" {
		t.Errorf("gecos = %v", got[1])
	}
}

func TestChannels(t *testing.T) {
	d := setupTestDB(t)

	c, err := d.GetChannelState(7, "#chat")
	if err != nil {
		t.Fatal(err)
	}
	if c == nil || c.Joins != 0 || c.Validated {
		t.Fatalf("lazy row should be zeroed, got %+v", c)
	}

	d.RecordJoin(7, "#chat", 1000)
	d.RecordJoin(7, "#chat", 2000)
	d.RecordOffense(7, "#chat", 2500)
	d.SetValidated(7, "#chat", true)
	d.SetValidated(7, "#other", true)

	c, _ = d.GetChannelState(7, "#CHAT")
	if c.Joins != 2 || c.Offenses != 1 || !c.Validated || c.LastSeen != 2500 {
		t.Errorf("unexpected state %+v", c)
	}

	if err := d.InvalidateChannels(7); err != nil {
		t.Fatal(err)
	}
	cs, _ := d.ChannelStates(7)
	for _, c := range cs {
		if c.Validated {
			t.Errorf("%s still validated", c.Channel)
		}
	}
}

func TestBuildLikePattern(t *testing.T) {
	tests := []struct {
		glob string
		want string
	}{
		{"hello", "%hello%"},
		{"hel*o", "hel%o"},
		{"h?llo*", "h_llo%"},
		{"100%", `%100\%%`},
		{"snake_case*", `snake\_case%`},
		{"   ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := BuildLikePattern(tt.glob); got != tt.want {
			t.Errorf("BuildLikePattern(%q) = %q, want %q", tt.glob, got, tt.want)
		}
	}
}

func TestSearchMessages(t *testing.T) {
	d := setupTestDB(t)
	msgs := []Message{
		{ID: 1, Channel: "#chat", Msg: "hello world", Timestamp: 1000},
		{ID: 1, Channel: "#chat", Msg: "waves", Timestamp: 2000, Mode: ModeAction},
		{ID: 2, Channel: "#chat", Msg: "hi alice", Timestamp: 3000},
		{ID: 1, Channel: "#other", Msg: "elsewhere", Timestamp: 4000},
		{ID: 3, Channel: "#chat", Msg: "unrelated", Timestamp: 5000},
	}
	for _, m := range msgs {
		if err := d.AppendMessage(m); err != nil {
			t.Fatal(err)
		}
	}

	got, err := d.SearchMessages(MessageQuery{IDs: []int64{1, 2}, Channel: "#chat"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].Msg != "hi alice" {
		t.Fatalf("unexpected recent messages %+v", got)
	}

	got, _ = d.SearchMessages(MessageQuery{IDs: []int64{1}, Mode: ModeAction})
	if len(got) != 1 || got[0].Msg != "waves" {
		t.Errorf("mode filter failed: %+v", got)
	}

	got, _ = d.SearchMessages(MessageQuery{IDs: []int64{1, 2}, Pattern: "h*o*"})
	if len(got) != 1 || got[0].Msg != "hello world" {
		t.Errorf("glob search failed: %+v", got)
	}

	m, err := d.MessageAt(MessageQuery{IDs: []int64{1, 2}, Channel: "#chat", Offset: 2})
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.Msg != "hello world" {
		t.Errorf("offset 2 = %+v, want hello world", m)
	}

	m, _ = d.MessageAt(MessageQuery{IDs: []int64{1}, Channel: "#chat", Offset: 10})
	if m != nil {
		t.Errorf("offset past end should be nil, got %+v", m)
	}

	got, _ = d.SearchMessages(MessageQuery{})
	if len(got) != 0 {
		t.Error("no ids should give no messages")
	}
}

func TestDeleteAccount_PurgesEverything(t *testing.T) {
	d := setupTestDB(t)
	h := insertMask(t, d, "alice", "a", "host", 1000)
	keep := insertMask(t, d, "bob", "b", "host", 1000)

	d.PutAlias(h.ID, keep.ID, Strong)
	d.AppendMessage(Message{ID: h.ID, Channel: "#c", Msg: "x", Timestamp: 1, Hostmask: h.Mask})
	d.RecordJoin(h.ID, "#c", 1)
	d.RecordNickserv(h.ID, "alice", 1)
	d.RecordGecos(h.ID, "Alice", 1)

	fixed := false
	if err := d.DeleteAccount(h.ID, func() error { fixed = true; return nil }); err != nil {
		t.Fatal(err)
	}
	if !fixed {
		t.Error("fixup not called")
	}
	for _, table := range []string{"Hostmasks", "Accounts", "Aliases", "Messages", "Channels", "Nickserv", "Gecos"} {
		if n := countRows(t, d, table, h.ID); n != 0 {
			t.Errorf("%s still has %d rows for deleted account", table, n)
		}
	}
	if _, ok, _ := d.MaskID(h.Mask); ok {
		t.Error("deleted mask still cached")
	}
	if n := countRows(t, d, "Hostmasks", keep.ID); n != 1 {
		t.Errorf("unrelated account touched, %d hostmasks left", n)
	}
}

func TestDeleteAccount_AtomicOnFailure(t *testing.T) {
	d := setupTestDB(t)
	h := insertMask(t, d, "alice", "a", "host", 1000)
	d.RecordGecos(h.ID, "Alice", 1)

	err := d.DeleteAccount(h.ID, func() error { return errors.New("boom") })
	if err == nil {
		t.Fatal("expected error from failing fixup")
	}
	for _, table := range []string{"Hostmasks", "Accounts", "Gecos"} {
		if n := countRows(t, d, table, h.ID); n != 1 {
			t.Errorf("%s: expected row restored by rollback, got %d", table, n)
		}
	}
}

func TestVacuum_KeepsData(t *testing.T) {
	d := setupTestDB(t)
	h := insertMask(t, d, "alice", "a", "host", 1000)
	if err := d.Vacuum(); err != nil {
		t.Fatal(err)
	}
	got, err := d.GetHostmask(h.Mask)
	if err != nil || got == nil {
		t.Fatalf("hostmask lost after vacuum: %v", err)
	}
	if d.Pending() != 0 {
		t.Error("vacuum should leave a clean batch")
	}
}

func TestCommitter_FinalCommit(t *testing.T) {
	d := setupTestDB(t)
	c := NewCommitter(d, time.Hour)
	c.SetInterval(2 * time.Hour)
	c.SetInterval(-1)

	insertMask(t, d, "alice", "a", "host", 1000)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("committer did not stop")
	}
	if d.Pending() != 0 {
		t.Error("expected final commit on shutdown")
	}
}

func TestCommitter_SetIntervalWhileRunning(t *testing.T) {
	d := setupTestDB(t)
	c := NewCommitter(d, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	insertMask(t, d, "alice", "a", "host", 1000)
	time.Sleep(20 * time.Millisecond)
	if d.Pending() == 0 {
		t.Fatal("nothing should commit on a 1h interval")
	}

	c.SetInterval(10 * time.Millisecond)

	deadline := time.Now().Add(5 * time.Second)
	for d.Pending() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("new interval never took effect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCommitter_Ticks(t *testing.T) {
	d := setupTestDB(t)
	c := NewCommitter(d, 10*time.Millisecond)
	insertMask(t, d, "alice", "a", "host", 1000)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for d.Pending() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("periodic commit never happened")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
