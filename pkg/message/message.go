// Package message parses the chat CSV exports and context snippets that are
// sent to the style-conversion backend.
package message

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// TimestampLayout is the timestamp format of every CSV row.
const TimestampLayout = "2006-01-02 15:04:05"

// Message is one chat utterance.
type Message struct {
	ChatroomID string
	Timestamp  time.Time
	Sender     string
	Content    string
}

// RowError reports a CSV row that could not be parsed. Row is 1-based.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

var errFieldCount = errors.New("expected timestamp,sender,content")

// ParseContext parses the conversation context given alongside a conversion
// query: CSV rows of "timestamp,sender,content" without a header.
func ParseContext(text string) ([]Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var out []Message
	err := readRows(strings.NewReader(text), func(row int, rec []string) error {
		msg, err := parseRecord(rec)
		if err != nil {
			return &RowError{Row: row, Err: err}
		}
		out = append(out, msg)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing context: %w", err)
	}
	return out, nil
}

// FormatContext renders messages one per line as "timestamp | sender: content".
func FormatContext(msgs []Message) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s | %s: %s", m.Timestamp.Format(TimestampLayout), m.Sender, m.Content)
	}
	return b.String()
}

// EncodeContext is the inverse of ParseContext.
func EncodeContext(msgs []Message) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	for _, m := range msgs {
		if err := w.Write([]string{m.Timestamp.Format(TimestampLayout), m.Sender, m.Content}); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}

// ChatroomID derives the chatroom id from an export file name the way the
// backend does: the third "_"-separated token of the base name, extension
// included when it is the last token. It returns "" when the name has fewer
// tokens; the backend rejects such uploads.
func ChatroomID(fileName string) string {
	parts := strings.Split(filepath.Base(fileName), "_")
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

// ExtractUserMessages returns the rows of an exported chat whose sender is
// user. An optional "timestamp,sender,content" header row is ignored.
func ExtractUserMessages(fileName string, r io.Reader, user string) ([]Message, error) {
	room := ChatroomID(fileName)

	var out []Message
	err := readRows(r, func(row int, rec []string) error {
		if row == 1 && isHeader(rec) {
			return nil
		}
		msg, err := parseRecord(rec)
		if err != nil {
			return &RowError{Row: row, Err: err}
		}
		if msg.Sender != user {
			return nil
		}
		msg.ChatroomID = room
		out = append(out, msg)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("extracting messages of %q: %w", user, err)
	}
	return out, nil
}

func readRows(r io.Reader, fn func(row int, rec []string) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return &RowError{Row: row, Err: err}
		}
		if err := fn(row, rec); err != nil {
			return err
		}
	}
}

func parseRecord(rec []string) (Message, error) {
	if len(rec) != 3 {
		return Message{}, fmt.Errorf("%w, got %d fields", errFieldCount, len(rec))
	}

	ts, err := time.Parse(TimestampLayout, strings.TrimSpace(rec[0]))
	if err != nil {
		return Message{}, fmt.Errorf("invalid timestamp %q", rec[0])
	}

	return Message{
		Timestamp: ts,
		Sender:    rec[1],
		Content:   rec[2],
	}, nil
}

func isHeader(rec []string) bool {
	return len(rec) == 3 &&
		strings.EqualFold(strings.TrimSpace(rec[0]), "timestamp") &&
		strings.EqualFold(strings.TrimSpace(rec[1]), "sender")
}
