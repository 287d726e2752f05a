package db

import (
	"strings"

	"github.com/jmoiron/sqlx"
)

// BuildLikePattern translates a glob into a LIKE pattern for ESCAPE '\'.
// '*' matches any run, '?' one character; literal '%' and '_' are escaped.
// A glob without wildcards becomes a substring search.
func BuildLikePattern(glob string) string {
	glob = strings.TrimSpace(glob)
	if glob == "" {
		return ""
	}

	var b strings.Builder
	wild := false
	for _, r := range glob {
		switch r {
		case '*':
			b.WriteByte('%')
			wild = true
		case '?':
			b.WriteByte('_')
			wild = true
		case '%', '_', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	if !wild {
		return "%" + b.String() + "%"
	}
	return b.String()
}

// MessageQuery selects messages of a set of accounts
type MessageQuery struct {
	IDs     []int64
	Channel string // empty means every channel
	Mode    string // empty means every mode
	Pattern string // glob, empty means every text
	Limit   int
	Offset  int
}

// SearchMessages returns matching messages, most recent first.
// Returns an empty slice when IDs is empty or the glob is blank.
func (d *DB) SearchMessages(q MessageQuery) ([]Message, error) {
	if len(q.IDs) == 0 {
		return []Message{}, nil
	}

	where := []string{"id IN (?)"}
	args := []any{q.IDs}
	if q.Channel != "" {
		where = append(where, "channel = ?")
		args = append(args, q.Channel)
	}
	if q.Mode != "" {
		where = append(where, "mode = ?")
		args = append(args, q.Mode)
	}
	if q.Pattern != "" {
		like := BuildLikePattern(q.Pattern)
		if like == "" {
			return []Message{}, nil
		}
		where = append(where, `msg LIKE ? ESCAPE '\'`)
		args = append(args, like)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, q.Offset)

	query, args, err := sqlx.In(`
		SELECT id, channel, msg, timestamp, mode, hostmask FROM Messages
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY timestamp DESC, rowid DESC
		LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, err
	}

	msgs := []Message{}
	err = d.selectAll(&msgs, d.conn.Rebind(query), args...)
	return msgs, err
}
