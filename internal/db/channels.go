package db

const selectChannels = `SELECT id, channel, joins, offenses, validated, last_seen FROM Channels`

// ensureChannel lazily creates the (id, channel) row
func (d *DB) ensureChannel(id int64, channel string) error {
	_, err := d.exec(`INSERT INTO Channels (id, channel) VALUES (?, ?) ON CONFLICT(id, channel) DO NOTHING`, id, channel)
	return err
}

// GetChannelState returns the moderation state of an account in a channel,
// creating it on first reference
func (d *DB) GetChannelState(id int64, channel string) (*ChannelState, error) {
	if err := d.ensureChannel(id, channel); err != nil {
		return nil, err
	}
	var c ChannelState
	ok, err := d.get(&c, selectChannels+` WHERE id = ? AND channel = ?`, id, channel)
	if !ok {
		return nil, err
	}
	return &c, nil
}

// ChannelStates returns every channel row of an account
func (d *DB) ChannelStates(id int64) ([]ChannelState, error) {
	var cs []ChannelState
	err := d.selectAll(&cs, selectChannels+` WHERE id = ? ORDER BY channel`, id)
	return cs, err
}

// RecordJoin counts a join and refreshes last-seen
func (d *DB) RecordJoin(id int64, channel string, at int64) error {
	_, err := d.exec(`
		INSERT INTO Channels (id, channel, joins, last_seen) VALUES (?, ?, 1, ?)
		ON CONFLICT(id, channel) DO UPDATE SET joins = joins + 1, last_seen = excluded.last_seen
	`, id, channel, at)
	return err
}

// RecordOffense counts an offense in a channel
func (d *DB) RecordOffense(id int64, channel string, at int64) error {
	_, err := d.exec(`
		INSERT INTO Channels (id, channel, offenses, last_seen) VALUES (?, ?, 1, ?)
		ON CONFLICT(id, channel) DO UPDATE SET offenses = offenses + 1, last_seen = excluded.last_seen
	`, id, channel, at)
	return err
}

// SetValidated marks an account as vetted (or not) in a channel
func (d *DB) SetValidated(id int64, channel string, validated bool) error {
	_, err := d.exec(`
		INSERT INTO Channels (id, channel, validated) VALUES (?, ?, ?)
		ON CONFLICT(id, channel) DO UPDATE SET validated = excluded.validated
	`, id, channel, validated)
	return err
}

// InvalidateChannels clears the validation flag of an account in every channel
func (d *DB) InvalidateChannels(id int64) error {
	_, err := d.exec(`UPDATE Channels SET validated = 0 WHERE id = ? AND validated != 0`, id)
	return err
}
