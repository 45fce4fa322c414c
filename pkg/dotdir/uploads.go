package dotdir

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	uploadsFile = "uploads.json"
)

// UploadRecord is one finished upload of a chat export.
type UploadRecord struct {
	// Path is the absolute path of the uploaded file.
	Path string `json:"path"`

	// Digest is the hex SHA-256 of the uploaded bytes.
	Digest string `json:"digest"`

	Collection string    `json:"collection"`
	UserName   string    `json:"user_name"`
	Status     string    `json:"status"`
	Processed  int       `json:"processed"`
	Total      int       `json:"total"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// UploadJournal is the persisted set of upload records, keyed by path and
// collection.
type UploadJournal struct {
	Records []UploadRecord `json:"records"`
}

// Digest returns the journal digest of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Find returns the record for path in collection, if any.
func (j *UploadJournal) Find(path, collection string) (UploadRecord, bool) {
	for _, r := range j.Records {
		if r.Path == path && r.Collection == collection {
			return r, true
		}
	}
	return UploadRecord{}, false
}

// Uploaded reports whether the same bytes were already embedded into
// collection successfully.
func (j *UploadJournal) Uploaded(path, collection, digest string) bool {
	r, ok := j.Find(path, collection)
	return ok && r.Digest == digest && r.Status == "completed"
}

// Record inserts or replaces the record for rec's path and collection, keeping
// records sorted by upload time.
func (j *UploadJournal) Record(rec UploadRecord) {
	for i, r := range j.Records {
		if r.Path == rec.Path && r.Collection == rec.Collection {
			j.Records = append(j.Records[:i], j.Records[i+1:]...)
			break
		}
	}
	j.Records = append(j.Records, rec)
	sort.SliceStable(j.Records, func(a, b int) bool {
		return j.Records[a].UploadedAt.Before(j.Records[b].UploadedAt)
	})
}

// LoadUploads loads the upload journal from a target .stylectl/uploads.json.
// A missing file yields an empty journal.
func (m *Manager) LoadUploads(overrideDir string) (*UploadJournal, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, uploadsFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &UploadJournal{}, nil
		}
		return nil, fmt.Errorf("reading upload journal: %w", err)
	}

	journal := &UploadJournal{}
	if err := json.Unmarshal(data, journal); err != nil {
		return nil, fmt.Errorf("parsing upload journal: %w", err)
	}

	return journal, nil
}

// SaveUploads persists the journal to a target .stylectl/uploads.json.
func (m *Manager) SaveUploads(journal *UploadJournal, overrideDir string) error {
	if journal == nil {
		return errors.New("cannot save nil upload journal")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(journal, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling upload journal: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, uploadsFile), data, 0o600); err != nil {
		return fmt.Errorf("writing upload journal: %w", err)
	}

	return nil
}

// ClearUploads removes the journal. It returns nil if there is none.
func (m *Manager) ClearUploads(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, uploadsFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing upload journal: %w", err)
	}

	return nil
}
