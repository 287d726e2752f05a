package db

import "github.com/jmoiron/sqlx"

// RecordNickserv stores a NickServ login for an account, refreshing its
// timestamp on reuse, and makes it the account's current login
func (d *DB) RecordNickserv(id int64, name string, at int64) error {
	_, err := d.exec(`
		INSERT INTO Nickserv (id, nickserv, timestamp) VALUES (?, ?, ?)
		ON CONFLICT(id, nickserv) DO UPDATE SET timestamp = excluded.timestamp
	`, id, name, at)
	if err != nil {
		return err
	}
	return d.SetAccountNickserv(id, name)
}

// NickservNames returns the logins ever used by an account, most recent first
func (d *DB) NickservNames(id int64) ([]string, error) {
	var names []string
	err := d.selectAll(&names, `SELECT nickserv FROM Nickserv WHERE id = ? ORDER BY timestamp DESC`, id)
	return names, err
}

// NickservByIDs groups the logins of several accounts by id
func (d *DB) NickservByIDs(ids []int64) (map[int64][]string, error) {
	out := make(map[int64][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`SELECT id, nickserv, timestamp FROM Nickserv WHERE id IN (?) ORDER BY timestamp DESC`, ids)
	if err != nil {
		return nil, err
	}
	var rows []NickservLogin
	if err := d.selectAll(&rows, d.conn.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = append(out[r.ID], r.Nickserv)
	}
	return out, nil
}

// RecordGecos stores a GECOS string for an account. Existing values are kept
// untouched; values accumulate per account.
func (d *DB) RecordGecos(id int64, gecos string, at int64) error {
	_, err := d.exec(`
		INSERT INTO Gecos (id, gecos, timestamp) VALUES (?, ?, ?)
		ON CONFLICT(id, gecos) DO NOTHING
	`, id, gecos, at)
	return err
}

// GecosByIDs groups the GECOS strings of several accounts by id, oldest first
func (d *DB) GecosByIDs(ids []int64) (map[int64][]string, error) {
	out := make(map[int64][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`SELECT id, gecos, timestamp FROM Gecos WHERE id IN (?) ORDER BY timestamp`, ids)
	if err != nil {
		return nil, err
	}
	var rows []GecosEntry
	if err := d.selectAll(&rows, d.conn.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = append(out[r.ID], r.Gecos)
	}
	return out, nil
}
