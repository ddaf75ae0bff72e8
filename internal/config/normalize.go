package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCollector()
	c.normalizeQueue()
	c.normalizeCapture()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCollector() {
	c.Collector.BaseURL = strings.TrimRight(strings.TrimSpace(c.Collector.BaseURL), "/")
	c.Collector.APIToken = strings.TrimSpace(c.Collector.APIToken)
	if c.Collector.TimeoutSeconds <= 0 {
		c.Collector.TimeoutSeconds = defaultCollectorTimeout
	}
}

func (c *Config) normalizeQueue() {
	if c.Queue.MaxSize <= 0 {
		c.Queue.MaxSize = defaultQueueMaxSize
	}
	if c.Queue.MaxRetries < 0 {
		c.Queue.MaxRetries = defaultQueueMaxRetries
	}
	if c.Queue.BatchSize <= 0 {
		c.Queue.BatchSize = defaultQueueBatchSize
	}
	if c.Queue.SyncIntervalSeconds <= 0 {
		c.Queue.SyncIntervalSeconds = defaultQueueSyncInterval
	}
}

func (c *Config) normalizeCapture() {
	if c.Capture.AudioBufferSeconds <= 0 {
		c.Capture.AudioBufferSeconds = defaultAudioBufferSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
