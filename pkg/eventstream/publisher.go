package eventstream

import "context"

// Publisher publishes upload progress events to an event stream backend.
type Publisher interface {
	PublishProgress(ctx context.Context, event *UploadProgressEvent) error
	Close() error
}
