package config

import "time"

func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}

func NewLLMForTest(provider, geminiProject string, concurrency int64) *LLM {
	return &LLM{
		provider:       provider,
		geminiProject:  geminiProject,
		geminiLocation: "us-central1",
		timeout:        time.Minute,
		concurrency:    concurrency,
	}
}

func NewRepositoryForTest(backend, projectID string) *Repository {
	return &Repository{backend: backend, projectID: projectID}
}

func NewStorageForTest(backend, bucket string) *Storage {
	return &Storage{backend: backend, bucket: bucket}
}

func NewSlackForTest(botToken, apiURL string) *Slack {
	return &Slack{botToken: botToken, apiURL: apiURL}
}

func NewScraperForTest(enabled bool) *Scraper {
	return &Scraper{enabled: enabled, cacheSize: 8, maxBytes: 1 << 20, timeout: time.Second}
}
