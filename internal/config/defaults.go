package config

const (
	defaultDataDir             = "~/.local/share/sift"
	defaultLogDir              = "~/.local/share/sift/logs"
	defaultCollectorBaseURL    = "http://127.0.0.1:8480"
	defaultCollectorTimeout    = 15
	defaultQueueMaxSize        = 500
	defaultQueueMaxRetries     = 3
	defaultQueueBatchSize      = 50
	defaultQueueSyncInterval   = 60
	defaultAudioBufferSeconds  = 30
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Collector: Collector{
			BaseURL:        defaultCollectorBaseURL,
			TimeoutSeconds: defaultCollectorTimeout,
		},
		Queue: Queue{
			MaxSize:             defaultQueueMaxSize,
			MaxRetries:          defaultQueueMaxRetries,
			BatchSize:           defaultQueueBatchSize,
			SyncIntervalSeconds: defaultQueueSyncInterval,
		},
		Capture: Capture{
			AudioBufferSeconds: defaultAudioBufferSeconds,
			EngagementEnabled:  true,
			FingerprintEnabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
