package db

import (
	"log/slog"
	"strings"

	"github.com/jellydator/ttlcache/v3"
	"github.com/jmoiron/sqlx"
)

const selectHostmasks = `SELECT hostmask, id, last_seen, nickchange, nick, user, host FROM Hostmasks`

// MaskID returns the account id owning an exact hostmask
func (d *DB) MaskID(mask string) (int64, bool, error) {
	if item := d.masks.Get(mask); item != nil {
		return item.Value(), true, nil
	}
	slog.Debug("hostmask cache miss", "hostmask", mask)
	var id int64
	ok, err := d.get(&id, `SELECT id FROM Hostmasks WHERE hostmask = ?`, mask)
	if ok {
		d.masks.Set(mask, id, ttlcache.DefaultTTL)
	}
	return id, ok, err
}

// GetHostmask returns a single hostmask record, or nil if not found
func (d *DB) GetHostmask(mask string) (*Hostmask, error) {
	var h Hostmask
	ok, err := d.get(&h, selectHostmasks+` WHERE hostmask = ?`, mask)
	if !ok {
		return nil, err
	}
	return &h, nil
}

// PutHostmask inserts a hostmask record, or moves an existing mask to h.ID
func (d *DB) PutHostmask(h Hostmask) error {
	_, err := d.exec(`
		INSERT INTO Hostmasks (hostmask, id, last_seen, nickchange, nick, user, host)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hostmask) DO UPDATE SET
			id = excluded.id,
			last_seen = excluded.last_seen,
			nickchange = excluded.nickchange
	`, h.Mask, h.ID, h.LastSeen, h.Nickchange, h.Nick, h.User, h.Host)
	if err != nil {
		return err
	}
	d.masks.Set(h.Mask, h.ID, ttlcache.DefaultTTL)
	return nil
}

// TouchHostmask refreshes the last-seen time of a mask
func (d *DB) TouchHostmask(mask string, lastSeen int64) error {
	_, err := d.exec(`UPDATE Hostmasks SET last_seen = ? WHERE hostmask = ?`, lastSeen, mask)
	return err
}

// HostmasksByNick returns every record that used nick, most recent first
func (d *DB) HostmasksByNick(nick string) ([]Hostmask, error) {
	var hs []Hostmask
	err := d.selectAll(&hs, selectHostmasks+` WHERE nick = ? ORDER BY last_seen DESC, rowid DESC`, nick)
	return hs, err
}

// LatestByNick returns the most recently seen record for nick, or nil
func (d *DB) LatestByNick(nick string) (*Hostmask, error) {
	var h Hostmask
	ok, err := d.get(&h, selectHostmasks+` WHERE nick = ? ORDER BY last_seen DESC, rowid DESC LIMIT 1`, nick)
	if !ok {
		return nil, err
	}
	return &h, nil
}

// LatestByUserHost returns the most recent record with the given user@host, or nil
func (d *DB) LatestByUserHost(user, host string) (*Hostmask, error) {
	var h Hostmask
	ok, err := d.get(&h, selectHostmasks+` WHERE user = ? AND host = ? ORDER BY last_seen DESC, rowid DESC LIMIT 1`, user, host)
	if !ok {
		return nil, err
	}
	return &h, nil
}

// LatestByHost returns the most recent record with exactly this host, or nil
func (d *DB) LatestByHost(host string) (*Hostmask, error) {
	var h Hostmask
	ok, err := d.get(&h, selectHostmasks+` WHERE host = ? ORDER BY last_seen DESC, rowid DESC LIMIT 1`, host)
	if !ok {
		return nil, err
	}
	return &h, nil
}

// LatestByCloudUID returns the most recent IRCCloud record whose host or
// ident carries uid, or nil. Only irccloud.com hosts and irccloud/ cloaks
// are candidates; the host id must start a host label.
func (d *DB) LatestByCloudUID(uid string) (*Hostmask, error) {
	id := "id-" + escapeLike(uid)
	var h Hostmask
	ok, err := d.get(&h, selectHostmasks+`
		WHERE (host LIKE '%.irccloud.com' OR host LIKE 'irccloud.com' OR host LIKE 'irccloud/%')
		  AND (host LIKE ? ESCAPE '\' OR host LIKE ? ESCAPE '\'
		       OR host LIKE ? ESCAPE '\' OR host LIKE ? ESCAPE '\'
		       OR user IN (?, ?))
		ORDER BY last_seen DESC, rowid DESC LIMIT 1
	`, id+".%", "%."+id+".%", "%/"+id+".%", "%/"+id, "uid"+uid, "sid"+uid)
	if !ok {
		return nil, err
	}
	return &h, nil
}

// LatestByGateway returns the most recent record of nick/user behind the
// nat/<gateway>/ host prefix, or nil
func (d *DB) LatestByGateway(nick, user, gateway string) (*Hostmask, error) {
	var h Hostmask
	ok, err := d.get(&h, selectHostmasks+`
		WHERE nick = ? AND user = ? AND host LIKE ? ESCAPE '\'
		ORDER BY last_seen DESC, rowid DESC LIMIT 1
	`, nick, user, "nat/"+escapeLike(gateway)+"/x-%")
	if !ok {
		return nil, err
	}
	return &h, nil
}

// HostmasksByID returns every mask owned by an account, most recent first
func (d *DB) HostmasksByID(id int64) ([]Hostmask, error) {
	var hs []Hostmask
	err := d.selectAll(&hs, selectHostmasks+` WHERE id = ? ORDER BY last_seen DESC, rowid DESC`, id)
	return hs, err
}

// HostmasksByIDs returns every mask owned by any of the accounts
func (d *DB) HostmasksByIDs(ids []int64) ([]Hostmask, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(selectHostmasks+` WHERE id IN (?) ORDER BY last_seen DESC, rowid DESC`, ids)
	if err != nil {
		return nil, err
	}
	var hs []Hostmask
	err = d.selectAll(&hs, d.conn.Rebind(query), args...)
	return hs, err
}

// escapeLike escapes LIKE metacharacters for use with ESCAPE '\'
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
