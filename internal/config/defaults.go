package config

const (
	defaultWorkdirRoot         = "~/.local/share/deepcast/episodes"
	defaultLogDir              = "~/.local/share/deepcast/logs"
	defaultJournalPath         = "~/.local/share/deepcast/journal.db"
	defaultWorkerBinary        = "deepcast-worker"
	defaultFetchMaxAttempts    = 3
	defaultFetchBackoffSeconds = 2
	defaultLLMBaseURL          = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel            = "google/gemini-3-flash-preview"
	defaultLLMReferer          = "https://github.com/deepcast/deepcast"
	defaultLLMTitle            = "Deepcast Analysis"
	defaultLLMTimeoutSeconds   = 120
	defaultChunkChars          = 24000
	defaultMapConcurrency      = 3
	defaultBatchMaxConcurrent  = 2
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkdirRoot: defaultWorkdirRoot,
			LogDir:      defaultLogDir,
			JournalPath: defaultJournalPath,
		},
		Worker: Worker{
			Binary:              defaultWorkerBinary,
			FetchMaxAttempts:    defaultFetchMaxAttempts,
			FetchBackoffSeconds: defaultFetchBackoffSeconds,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Analysis: Analysis{
			ChunkChars:     defaultChunkChars,
			MapConcurrency: defaultMapConcurrency,
		},
		Batch: Batch{
			MaxConcurrent: defaultBatchMaxConcurrent,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
