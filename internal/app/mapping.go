package app

import (
	"fmt"
	"strings"

	"hwbot/internal/config"
	"hwbot/internal/homework"
	"hwbot/internal/notifier"
	"hwbot/internal/poller"
	"hwbot/internal/practicum"
	kit "hwbot/internal/transport"
	telegram "hwbot/internal/transport/telegram/adapter"
	logx "hwbot/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapPracticumConfig(cfg *config.Config) (practicum.Config, error) {
	timeout, err := config.ParseDurationOrDefault("practicum.timeout", cfg.Practicum.Timeout, 0)
	if err != nil {
		return practicum.Config{}, err
	}
	return practicum.Config{
		Endpoint: strings.TrimSpace(cfg.Practicum.Endpoint),
		Token:    strings.TrimSpace(cfg.Practicum.Token),
		Timeout:  timeout,
	}, nil
}

func mapTelegramConfig(cfg *config.Config) (telegram.Config, error) {
	timeout, err := config.ParseDurationOrDefault("telegram.send_timeout", cfg.Telegram.SendTimeout, 0)
	if err != nil {
		return telegram.Config{}, err
	}
	return telegram.Config{Token: strings.TrimSpace(cfg.Telegram.Token), Timeout: timeout}, nil
}

func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	chatID, err := cfg.ChatID()
	if err != nil {
		return notifier.Config{}, err
	}
	timeout, err := config.ParseDurationOrDefault("telegram.send_timeout", cfg.Telegram.SendTimeout, 0)
	if err != nil {
		return notifier.Config{}, err
	}
	return notifier.Config{
		Enabled:        !cfg.Telegram.DryRun,
		Target:         kit.ChatTarget{ChatID: chatID, ThreadID: cfg.Telegram.ThreadID},
		SendTimeout:    timeout,
		DisablePreview: true,
	}, nil
}

func mapPollerConfig(cfg *config.Config, catalog homework.Catalog) (poller.Config, error) {
	interval, err := poller.ParseInterval(cfg.Poll.Interval)
	if err != nil {
		return poller.Config{}, fmt.Errorf("poll.interval: %w", err)
	}
	return poller.Config{
		Interval:       interval,
		AdvanceCursor:  cfg.Poll.AdvanceCursor,
		FailureMessage: cfg.Poll.FailureMessage,
		Catalog:        catalog,
	}, nil
}
