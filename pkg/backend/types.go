package backend

import (
	"encoding/json"
	"sort"
)

// Progress statuses reported by the upload stream.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// ConvertRequest is the body of POST /convert.
type ConvertRequest struct {
	// Query is the sentence to rewrite in the user's style.
	Query string `json:"query"`

	// ContextMessages is the preceding conversation as CSV rows of
	// "timestamp,sender,content".
	ContextMessages string `json:"context_messages,omitempty"`
}

// ConvertResponse is the result of a style conversion.
type ConvertResponse struct {
	Status    string      `json:"status"`
	Converted Conversions `json:"converted"`
}

// Conversions maps a mood chosen by the backend to the converted sentence.
type Conversions map[string]string

// UnmarshalJSON accepts non-string values, keeping their JSON text, since the
// mapping is produced by a language model and is not strictly typed.
func (c *Conversions) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Conversions, len(raw))
	for mood, value := range raw {
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			out[mood] = s
			continue
		}
		out[mood] = string(value)
	}

	*c = out
	return nil
}

// Moods returns the moods in sorted order.
func (c Conversions) Moods() []string {
	moods := make([]string, 0, len(c))
	for mood := range c {
		moods = append(moods, mood)
	}
	sort.Strings(moods)
	return moods
}

// SearchResponse is the result of a similarity search over the loaded
// collection.
type SearchResponse struct {
	Status         string          `json:"status"`
	CollectionName string          `json:"collection_name"`
	Query          string          `json:"query"`
	TopK           int             `json:"top_k"`
	Messages       []ScoredMessage `json:"messages"`
}

// ScoredMessage is one search hit.
type ScoredMessage struct {
	Content string `json:"content"`

	// Timestamp is kept as sent; the backend serializes naive datetimes
	// without a zone.
	Timestamp string  `json:"timestamp"`
	Score     float64 `json:"score"`
}

// Progress is one event of the vector upload stream.
type Progress struct {
	Status     string  `json:"status"`
	Processed  int     `json:"processed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	Error      string  `json:"error,omitempty"`
}

// Terminal reports whether no further progress follows this event.
func (p Progress) Terminal() bool {
	return p.Status == StatusCompleted || p.Status == StatusError
}

// Fraction returns the completed share in [0, 1].
func (p Progress) Fraction() float64 {
	f := p.Percentage / 100
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

type collectionsResponse struct {
	Status      string   `json:"status"`
	Collections []string `json:"collections"`
}

type loadedCollectionResponse struct {
	Status           string  `json:"status"`
	LoadedCollection *string `json:"loaded_collection"`
}

type countResponse struct {
	Status         string `json:"status"`
	CollectionName string `json:"collection_name"`
	Count          int    `json:"count"`
}

type healthResponse struct {
	Status string `json:"status"`
}
