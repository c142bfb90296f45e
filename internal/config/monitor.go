package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"codeberg.org/mutker/metalsnapd/internal/logger"
)

// Monitor hands out immutable configuration snapshots and, when a
// config file is in use, picks up edits without a restart. The pipeline
// re-reads Current() at the top of every cycle.
type Monitor struct {
	v  *viper.Viper
	mu sync.RWMutex

	current Config
}

func newMonitor(v *viper.Viper, cfg Config) *Monitor {
	return &Monitor{v: v, current: cfg}
}

// Current returns a copy of the latest validated configuration.
func (m *Monitor) Current() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg := m.current
	cfg.Times = append([]string(nil), m.current.Times...)

	return cfg
}

// Watch starts watching the configuration file for changes. Edits that
// fail validation are logged and ignored; the previous snapshot stays
// in effect. No-op when no config file was read.
func (m *Monitor) Watch() {
	if m.v.ConfigFileUsed() == "" {
		return
	}

	m.v.OnConfigChange(func(_ fsnotify.Event) {
		m.reload()
	})
	m.v.WatchConfig()
}

// reload applies whatever viper currently holds. Edits that fail to
// unmarshal or validate are logged and dropped so a bad live edit can
// never take the schedule away.
func (m *Monitor) reload() {
	cfg := Config{}
	if err := m.v.Unmarshal(&cfg); err != nil {
		logger.Warn().Err(err).Msg("Ignoring config change: unmarshal failed")
		return
	}
	if err := cfg.Validate(); err != nil {
		logger.Warn().Err(err).Msg("Ignoring config change: validation failed")
		return
	}

	m.mu.Lock()
	m.current = cfg
	m.mu.Unlock()

	logger.Info().
		Strs("times", cfg.Times).
		Msg("Configuration reloaded")
}
