package history

import "mycelica/aka/internal/db"

// MessageQuery selects messages of an identity
type MessageQuery struct {
	Channel string // empty means every channel
	Mode    string // empty means every mode
	Pattern string // glob: * any run, ? one character
	Limit   int
	Offset  int
}

// SearchMessages returns messages of every account in id's STRONG identity,
// most recent first
func (e *Engine) SearchMessages(id int64, q MessageQuery) []db.Message {
	msgs := []db.Message{}
	e.soft("search_messages", func() error {
		ids, err := e.graph.StrongComponent(id)
		if err != nil {
			return err
		}
		msgs, err = e.db.SearchMessages(db.MessageQuery{
			IDs:     ids,
			Channel: q.Channel,
			Mode:    q.Mode,
			Pattern: q.Pattern,
			Limit:   q.Limit,
			Offset:  q.Offset,
		})
		return err
	})
	if msgs == nil {
		return []db.Message{}
	}
	return msgs
}

// RecentMessages returns the latest messages of an identity in a channel
func (e *Engine) RecentMessages(id int64, channel string, limit int, mode string) []db.Message {
	return e.SearchMessages(id, MessageQuery{Channel: channel, Mode: mode, Limit: limit})
}

// MessageByOffset returns the message offset lines back (0 = latest), or nil
func (e *Engine) MessageByOffset(id int64, channel string, offset int, mode string) *db.Message {
	return e.messageAt(id, db.MessageQuery{Channel: channel, Mode: mode, Offset: offset})
}

// MessageByPattern returns the offset-th most recent message matching a glob,
// or nil. A pattern without wildcards matches as a substring.
func (e *Engine) MessageByPattern(id int64, channel, pattern string, offset int) *db.Message {
	if db.BuildLikePattern(pattern) == "" {
		return nil
	}
	return e.messageAt(id, db.MessageQuery{Channel: channel, Pattern: pattern, Offset: offset})
}

func (e *Engine) messageAt(id int64, q db.MessageQuery) *db.Message {
	var m *db.Message
	e.soft("message_at", func() error {
		var err error
		q.IDs, err = e.graph.StrongComponent(id)
		if err != nil {
			return err
		}
		m, err = e.db.MessageAt(q)
		return err
	})
	return m
}
