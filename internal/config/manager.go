package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"hwbot/internal/poller"
	logx "hwbot/pkg/logx"
)

// Environment variables that override file values.
const (
	EnvPracticumToken = "TOKEN_PRACTIKUM"
	EnvTelegramToken  = "TOKEN"
	EnvChatID         = "CHAT_ID"
	EnvEndpoint       = "HWBOT_ENDPOINT"
	EnvLogLevel       = "HWBOT_LOG_LEVEL"
)

const reloadDebounce = 250 * time.Millisecond

type Manager struct {
	path      string
	lookupEnv func(string) (string, bool)

	mu       sync.RWMutex
	cfg      *Config
	lastHash uint64

	// reloadMu serializes reloads so onChange never runs concurrently.
	reloadMu sync.Mutex

	log logx.Logger
}

// NewManager returns a manager for the config file at path. An empty path
// means "defaults plus environment".
func NewManager(path string) *Manager {
	return &Manager{path: strings.TrimSpace(path), lookupEnv: os.LookupEnv}
}

func (m *Manager) SetLogger(log logx.Logger) { m.log = log }

// SetLookupEnv replaces os.LookupEnv (tests).
func (m *Manager) SetLookupEnv(fn func(string) (string, bool)) {
	if fn != nil {
		m.lookupEnv = fn
	}
}

func (m *Manager) Path() string { return m.path }

// Parse reads defaults, the file (if any) and the environment, in that order.
// It does not validate.
func (m *Manager) Parse() (*Config, error) {
	cfg := Default()
	if m.path != "" {
		b, err := os.ReadFile(m.path)
		if err != nil {
			return nil, err
		}
		if err := decodeInto(m.path, b, cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", m.path, err)
		}
	}
	m.applyEnv(cfg)
	return cfg, nil
}

func (m *Manager) applyEnv(cfg *Config) {
	set := func(key string, dst *string) {
		if v, ok := m.lookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(EnvPracticumToken, &cfg.Practicum.Token)
	set(EnvTelegramToken, &cfg.Telegram.Token)
	set(EnvChatID, &cfg.Telegram.ChatID)
	set(EnvEndpoint, &cfg.Practicum.Endpoint)
	set(EnvLogLevel, &cfg.Logging.Level)
}

// Load parses and validates the configuration and makes it current.
func (m *Manager) Load() (*Config, error) {
	cfg, err := m.Parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m.commit(cfg)
	return cfg, nil
}

func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) commit(cfg *Config) {
	m.mu.Lock()
	m.cfg = cfg
	m.lastHash = hashConfig(cfg)
	m.mu.Unlock()
}

func hashConfig(cfg *Config) uint64 {
	if cfg == nil {
		return 0
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}

// Validate checks required values and every duration field.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Practicum.Token) == "" {
		errs = append(errs, fmt.Errorf("practicum.token is required (or set %s)", EnvPracticumToken))
	}
	if strings.TrimSpace(c.Telegram.Token) == "" && !c.Telegram.DryRun {
		errs = append(errs, fmt.Errorf("telegram.token is required (or set %s)", EnvTelegramToken))
	}
	if _, err := c.ChatID(); err != nil {
		errs = append(errs, err)
	}
	if c.Telegram.ThreadID < 0 {
		errs = append(errs, errors.New("telegram.thread_id must be >= 0"))
	}
	if _, err := ParseDurationOrDefault("practicum.timeout", c.Practicum.Timeout, 0); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseDurationOrDefault("telegram.send_timeout", c.Telegram.SendTimeout, 0); err != nil {
		errs = append(errs, err)
	}
	if _, err := poller.ParseInterval(c.Poll.Interval); err != nil {
		errs = append(errs, fmt.Errorf("poll.interval: %w", err))
	}
	return errors.Join(errs...)
}

// ChatID parses telegram.chat_id. Negative ids (groups) are allowed.
func (c *Config) ChatID() (int64, error) {
	s := strings.TrimSpace(c.Telegram.ChatID)
	if s == "" {
		return 0, fmt.Errorf("telegram.chat_id is required (or set %s)", EnvChatID)
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("telegram.chat_id: invalid chat id %q", s)
	}
	return id, nil
}

// Watch reloads the file when it changes and calls onChange with each new,
// valid config, one call at a time. Invalid or unchanged content is skipped.
// It blocks until ctx is done. Without a config file it returns immediately.
func (m *Manager) Watch(ctx context.Context, onChange func(*Config)) error {
	if m.path == "" {
		return nil
	}
	dir := filepath.Dir(m.path)
	file := filepath.Base(m.path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	// Watch the directory: editors often replace the file instead of writing it.
	if err := w.Add(dir); err != nil {
		return err
	}
	m.log.Debug("config watcher started", logx.String("dir", dir), logx.String("file", file))

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(reloadDebounce, func() {
			if ctx.Err() != nil {
				return
			}
			m.reload(onChange)
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return errors.New("config watcher closed")
			}
			if strings.EqualFold(filepath.Base(ev.Name), file) &&
				ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				debounce()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return errors.New("config watcher closed")
			}
			m.log.Warn("config watch error", logx.Err(err), logx.String("dir", dir))
		}
	}
}

func (m *Manager) reload(onChange func(*Config)) {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()

	cfg, err := m.Parse()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		m.log.Warn("config reload rejected", logx.Err(err), logx.String("path", m.path))
		return
	}
	h := hashConfig(cfg)
	m.mu.RLock()
	unchanged := h != 0 && h == m.lastHash
	m.mu.RUnlock()
	if unchanged {
		m.log.Debug("config unchanged; skipping reload", logx.String("path", m.path))
		return
	}
	m.commit(cfg)
	if onChange != nil {
		onChange(cfg)
	}
}
