package config

const (
	defaultBackendTarget = "http://localhost:8000"
	defaultAPIPrefix     = "/api/v1"
	defaultTimeout       = "60s"

	defaultUploadWorkers   = 2
	defaultUploadQueueSize = 64

	defaultServeListen = ":8090"

	defaultEventStreamProvider = "nop"
	defaultEventStreamTopic    = "stylectl.upload.progress"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Backend: BackendConfig{
			Target:    defaultBackendTarget,
			APIPrefix: defaultAPIPrefix,
			Timeout:   defaultTimeout,
		},
		Upload: UploadConfig{
			Workers:   defaultUploadWorkers,
			QueueSize: defaultUploadQueueSize,
		},
		Serve: ServeConfig{
			Listen: defaultServeListen,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
	}
}
