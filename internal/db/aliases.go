package db

// AliasType returns the trust of the edge between a and b, if any
func (d *DB) AliasType(a, b int64) (Trust, bool, error) {
	var t Trust
	ok, err := d.get(&t, `SELECT type FROM Aliases WHERE id = ? AND alias = ?`, a, b)
	return t, ok, err
}

// PutAlias writes the edge between a and b in both directions with trust t,
// overwriting any existing trust
func (d *DB) PutAlias(a, b int64, t Trust) error {
	const upsert = `
		INSERT INTO Aliases (id, alias, type) VALUES (?, ?, ?)
		ON CONFLICT(id, alias) DO UPDATE SET type = excluded.type
	`
	if _, err := d.exec(upsert, a, b, t); err != nil {
		return err
	}
	_, err := d.exec(upsert, b, a, t)
	return err
}

// AliasesOf returns every edge leaving id
func (d *DB) AliasesOf(id int64) ([]Alias, error) {
	var as []Alias
	err := d.selectAll(&as, `SELECT id, alias, type FROM Aliases WHERE id = ? ORDER BY alias`, id)
	return as, err
}

// AllAliases returns one row per unordered pair (id < alias)
func (d *DB) AllAliases() ([]Alias, error) {
	var as []Alias
	err := d.selectAll(&as, `SELECT id, alias, type FROM Aliases WHERE id < alias ORDER BY id, alias`)
	return as, err
}
