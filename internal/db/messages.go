package db

// AppendMessage logs one chat line
func (d *DB) AppendMessage(m Message) error {
	if m.Mode == "" {
		m.Mode = ModePrivmsg
	}
	_, err := d.exec(`
		INSERT INTO Messages (id, channel, msg, timestamp, mode, hostmask)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID, m.Channel, m.Msg, m.Timestamp, m.Mode, m.Hostmask)
	return err
}

// MessageAt returns the message at offset (0 = most recent), or nil
func (d *DB) MessageAt(q MessageQuery) (*Message, error) {
	q.Limit = 1
	msgs, err := d.SearchMessages(q)
	if err != nil || len(msgs) == 0 {
		return nil, err
	}
	return &msgs[0], nil
}
