package config

import (
	"strings"

	logx "hwbot/pkg/logx"
)

// SummarizeConfigChange returns the changed sections and safe structured
// attrs for logging. Tokens are never included, only whether they changed.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 4)
	attrs := make([]logx.Field, 0, 12)

	if strings.TrimSpace(oldCfg.Practicum.Endpoint) != strings.TrimSpace(newCfg.Practicum.Endpoint) ||
		strings.TrimSpace(oldCfg.Practicum.Timeout) != strings.TrimSpace(newCfg.Practicum.Timeout) ||
		oldCfg.Practicum.Token != newCfg.Practicum.Token {
		changed = append(changed, "practicum")
		attrs = append(attrs,
			logx.String("practicum.endpoint", strings.TrimSpace(newCfg.Practicum.Endpoint)),
			logx.String("practicum.timeout", strings.TrimSpace(newCfg.Practicum.Timeout)),
			logx.Bool("practicum.token_changed", oldCfg.Practicum.Token != newCfg.Practicum.Token),
		)
	}

	if strings.TrimSpace(oldCfg.Telegram.ChatID) != strings.TrimSpace(newCfg.Telegram.ChatID) ||
		oldCfg.Telegram.ThreadID != newCfg.Telegram.ThreadID ||
		strings.TrimSpace(oldCfg.Telegram.SendTimeout) != strings.TrimSpace(newCfg.Telegram.SendTimeout) ||
		oldCfg.Telegram.DryRun != newCfg.Telegram.DryRun ||
		oldCfg.Telegram.Token != newCfg.Telegram.Token {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.chat_changed", strings.TrimSpace(oldCfg.Telegram.ChatID) != strings.TrimSpace(newCfg.Telegram.ChatID)),
			logx.String("telegram.send_timeout", strings.TrimSpace(newCfg.Telegram.SendTimeout)),
			logx.Bool("telegram.dry_run", newCfg.Telegram.DryRun),
			logx.Bool("telegram.token_changed", oldCfg.Telegram.Token != newCfg.Telegram.Token),
		)
	}

	if strings.TrimSpace(oldCfg.Poll.Interval) != strings.TrimSpace(newCfg.Poll.Interval) ||
		oldCfg.Poll.AdvanceCursor != newCfg.Poll.AdvanceCursor ||
		oldCfg.Poll.FailureMessage != newCfg.Poll.FailureMessage {
		changed = append(changed, "poll")
		attrs = append(attrs,
			logx.String("poll.interval", strings.TrimSpace(newCfg.Poll.Interval)),
			logx.Bool("poll.advance_cursor", newCfg.Poll.AdvanceCursor),
		)
	}

	if oldCfg.Logging.Level != newCfg.Logging.Level ||
		oldCfg.Logging.Console != newCfg.Logging.Console ||
		oldCfg.Logging.File.Enabled != newCfg.Logging.File.Enabled ||
		strings.TrimSpace(oldCfg.Logging.File.Path) != strings.TrimSpace(newCfg.Logging.File.Path) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	return changed, attrs
}

// RestartRequired reports whether any changed section can only take effect
// after a restart. Only logging is applied live.
func RestartRequired(sections []string) bool {
	for _, s := range sections {
		if s != "logging" {
			return true
		}
	}
	return false
}
