package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeUploadProgress is emitted for every progress event of a
	// vector upload.
	EventTypeUploadProgress = "stylectl.upload.progress"
)

// UploadProgressEvent is a transport-neutral event payload for one progress
// step of a vector upload.
type UploadProgressEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`

	// UploadID groups all events of one upload.
	UploadID   string `json:"upload_id"`
	Collection string `json:"collection"`
	UserName   string `json:"user_name"`
	FileName   string `json:"file_name"`

	Progress ProgressMeta `json:"progress"`
}

// ProgressMeta mirrors the backend's progress event.
type ProgressMeta struct {
	Status     string  `json:"status"`
	Processed  int     `json:"processed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	Error      string  `json:"error,omitempty"`
}

// NewUploadProgressEvent stamps a new event with an id and the current time.
func NewUploadProgressEvent(uploadID, collection, userName, fileName string, progress ProgressMeta) *UploadProgressEvent {
	return &UploadProgressEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeUploadProgress,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		UploadID:      uploadID,
		Collection:    collection,
		UserName:      userName,
		FileName:      fileName,
		Progress:      progress,
	}
}
