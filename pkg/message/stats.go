package message

import (
	"bytes"
	"io"
	"time"
)

// MergeWindow is the largest gap between consecutive utterances that are
// still considered one burst.
const MergeWindow = 10 * time.Second

// Stats summarizes a chat export before it is uploaded.
type Stats struct {
	Rows      int
	UserRows  int
	Bursts    int
	First     time.Time
	Last      time.Time
	Chatroom  string
	UserName  string
	Truncated bool
}

// Summarize reads a chat export and counts what an upload for user would
// embed. A limit above zero caps the counted user rows.
func Summarize(fileName string, r io.Reader, user string, limit int) (Stats, error) {
	var raw bytes.Buffer
	users, err := ExtractUserMessages(fileName, io.TeeReader(r, &raw), user)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Chatroom: ChatroomID(fileName), UserName: user}
	err = readRows(&raw, func(row int, rec []string) error {
		if row > 1 || !isHeader(rec) {
			stats.Rows++
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	if limit > 0 && len(users) > limit {
		users = users[:limit]
		stats.Truncated = true
	}

	stats.UserRows = len(users)
	if len(users) > 0 {
		stats.First = users[0].Timestamp
		stats.Last = users[len(users)-1].Timestamp
	}
	stats.Bursts = len(Merge(users, MergeWindow))
	return stats, nil
}

// Merge joins consecutive messages of the same sender whose gap is below
// window into one message, content separated by newlines. The merged message
// carries the timestamp of its last part.
func Merge(msgs []Message, window time.Duration) []Message {
	var out []Message
	for _, m := range msgs {
		if n := len(out); n > 0 {
			prev := &out[n-1]
			if prev.Sender == m.Sender && prev.ChatroomID == m.ChatroomID && m.Timestamp.Sub(prev.Timestamp) < window {
				prev.Content += "\n" + m.Content
				prev.Timestamp = m.Timestamp
				continue
			}
		}
		out = append(out, m)
	}
	return out
}
