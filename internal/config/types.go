package config

// Config is the on-disk (JSON or YAML) configuration, after environment
// overrides. Durations are Go duration strings ("30s", "5m").
//
// Example (YAML):
//
//	practicum:
//	  endpoint: https://practicum.yandex.ru/api/user_api/homework_statuses/
//	telegram:
//	  chat_id: "123456789"
//	poll:
//	  interval: 5m
//	logging:
//	  level: info
//	  file: { enabled: true, path: ./bot_errors.log }
//
// Tokens are normally supplied through the environment (TOKEN_PRACTIKUM, TOKEN).
type Config struct {
	Practicum PracticumConfig `json:"practicum"`
	Telegram  TelegramConfig  `json:"telegram"`
	Poll      PollConfig      `json:"poll"`
	Logging   LoggingConfig   `json:"logging"`
}

type PracticumConfig struct {
	Token    string `json:"token,omitempty"` // never logged
	Endpoint string `json:"endpoint,omitempty"`
	// Timeout bounds one API request. Default "30s".
	Timeout string `json:"timeout,omitempty"`
}

type TelegramConfig struct {
	Token    string `json:"token,omitempty"` // never logged
	ChatID   string `json:"chat_id"`
	ThreadID int    `json:"thread_id,omitempty"`
	// SendTimeout bounds one sendMessage call. Default "10s".
	SendTimeout string `json:"send_timeout,omitempty"`
	// DryRun logs notifications instead of sending them.
	DryRun bool `json:"dry_run,omitempty"`
}

type PollConfig struct {
	// Interval is a Go duration or "@every <duration>". Default "300s".
	Interval string `json:"interval,omitempty"`
	// AdvanceCursor moves from_date forward after each successful cycle.
	// Default false: every cycle re-requests from the process start time.
	AdvanceCursor  bool   `json:"advance_cursor,omitempty"`
	FailureMessage string `json:"failure_message,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Practicum: PracticumConfig{
			Endpoint: "https://practicum.yandex.ru/api/user_api/homework_statuses/",
			Timeout:  "30s",
		},
		Telegram: TelegramConfig{SendTimeout: "10s"},
		Poll:     PollConfig{Interval: "300s"},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			File:    LoggingFile{Enabled: true, Path: "./bot_errors.log"},
		},
	}
}
