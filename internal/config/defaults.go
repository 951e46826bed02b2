package config

const (
	defaultDataDir              = "~/.local/share/shotreel"
	defaultLogDir               = "~/.local/share/shotreel/logs"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLLMBaseURL           = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel             = "anthropic/claude-sonnet-4"
	defaultLLMReferer           = "https://github.com/shotreel/shotreel"
	defaultLLMTitle             = "shotreel"
	defaultLLMTimeoutSeconds    = 120
	defaultLLMMaxTokens         = 4096
	defaultRenderBaseURL        = "http://127.0.0.1:3000/api"
	defaultRenderTimeoutSeconds = 300
	defaultPollIntervalSeconds  = 3
	defaultShotMaxPolls         = 120
	defaultStitchMaxPolls       = 200
	defaultQueueSpacingSeconds  = 3
	defaultCodegenSpacingMillis = 1000
	defaultMaxAutoFixAttempts   = 2
	defaultNotifyTimeout        = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			MaxTokens:      defaultLLMMaxTokens,
		},
		Render: Render{
			BaseURL:             defaultRenderBaseURL,
			TimeoutSeconds:      defaultRenderTimeoutSeconds,
			PollIntervalSeconds: defaultPollIntervalSeconds,
			ShotMaxPolls:        defaultShotMaxPolls,
			StitchMaxPolls:      defaultStitchMaxPolls,
		},
		Pipeline: Pipeline{
			QueueSpacingSeconds:  defaultQueueSpacingSeconds,
			CodegenSpacingMillis: defaultCodegenSpacingMillis,
			MaxAutoFixAttempts:   defaultMaxAutoFixAttempts,
			AutoFix:              true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			ShotFailures:   true,
			RenderFinished: true,
			VideoReady:     true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
