package db

import "fmt"

// CreateAccount mints a new account represented by mask and returns its id
func (d *DB) CreateAccount(mask string) (int64, error) {
	res, err := d.exec(`INSERT INTO Accounts (hostmask) VALUES (?)`, mask)
	if err != nil {
		return 0, fmt.Errorf("creating account: %w", err)
	}
	return res.LastInsertId()
}

// GetAccount returns a single account by id, or nil if not found
func (d *DB) GetAccount(id int64) (*Account, error) {
	var a Account
	ok, err := d.get(&a, `SELECT id, hostmask, nickserv, parent FROM Accounts WHERE id = ?`, id)
	if !ok {
		return nil, err
	}
	return &a, nil
}

// AllAccounts returns every account ordered by id
func (d *DB) AllAccounts() ([]Account, error) {
	var as []Account
	err := d.selectAll(&as, `SELECT id, hostmask, nickserv, parent FROM Accounts ORDER BY id`)
	return as, err
}

// SetAccountNickserv records the current NickServ login of an account
func (d *DB) SetAccountNickserv(id int64, name string) error {
	_, err := d.exec(`UPDATE Accounts SET nickserv = ? WHERE id = ?`, name, id)
	return err
}

// Parent returns the union-find parent of id. Unknown ids and roots are their own parent.
func (d *DB) Parent(id int64) (int64, error) {
	var parent int64
	ok, err := d.get(&parent, `SELECT COALESCE(parent, id) FROM Accounts WHERE id = ?`, id)
	if err != nil {
		return id, err
	}
	if !ok {
		return id, nil
	}
	return parent, nil
}

// SetParent updates the union-find parent of id. A self parent is stored as NULL.
func (d *DB) SetParent(id, parent int64) error {
	var value any = parent
	if parent == id {
		value = nil
	}
	_, err := d.exec(`UPDATE Accounts SET parent = ? WHERE id = ?`, value, id)
	return err
}

// AccountSummaries returns every account with its hostmask count and most
// recent sighting, ordered by id
func (d *DB) AccountSummaries() ([]AccountSummary, error) {
	var as []AccountSummary
	err := d.selectAll(&as, `
		SELECT a.id, a.hostmask, a.nickserv,
			COUNT(h.hostmask) AS masks,
			COALESCE(MAX(h.last_seen), 0) AS last_seen
		FROM Accounts a
		LEFT JOIN Hostmasks h ON h.id = a.id
		GROUP BY a.id
		ORDER BY a.id
	`)
	return as, err
}
