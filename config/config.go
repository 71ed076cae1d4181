// Package config holds the calendar engine configuration. The engine
// never reads ambient global state: a Provider hands out immutable
// snapshots that are threaded through each update request as a value.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/meridiancal/groupcal/calendar"
)

// AlarmSpec describes one configured default alarm. Trigger is a Go
// duration relative to the event start, negative meaning before.
type AlarmSpec struct {
	Action  string `yaml:"action"`
	Trigger string `yaml:"trigger"`
}

// Config is the engine configuration snapshot.
type Config struct {
	// EventQuota caps the number of stored events per context.
	// Zero disables the quota.
	EventQuota int64 `yaml:"event_quota"`

	// PurgeBatchSize bounds the per-iteration result set of folder purges.
	PurgeBatchSize int `yaml:"purge_batch_size"`

	// ConflictHorizon is how far into the future conflict checks look,
	// as a Go duration string.
	ConflictHorizon string `yaml:"conflict_horizon"`

	// DefaultAlarmsDateTime are the alarms inserted for newly added
	// internal attendees on timed events.
	DefaultAlarmsDateTime []AlarmSpec `yaml:"default_alarms_date_time"`

	// DefaultAlarmsDate is the all-day event variant.
	DefaultAlarmsDate []AlarmSpec `yaml:"default_alarms_date"`

	// FallbackFolder receives attendee copies when a user has no default
	// personal calendar folder.
	FallbackFolder string `yaml:"fallback_folder"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		PurgeBatchSize:  500,
		ConflictHorizon: "8760h", // one year
		DefaultAlarmsDateTime: []AlarmSpec{
			{Action: "DISPLAY", Trigger: "-15m"},
		},
		DefaultAlarmsDate: []AlarmSpec{
			{Action: "DISPLAY", Trigger: "-12h"},
		},
	}
}

// Validate checks that all duration strings parse.
func (c Config) Validate() error {
	if c.ConflictHorizon != "" {
		if _, err := time.ParseDuration(c.ConflictHorizon); err != nil {
			return fmt.Errorf("invalid conflict_horizon: %w", err)
		}
	}
	for _, spec := range append(append([]AlarmSpec(nil), c.DefaultAlarmsDateTime...), c.DefaultAlarmsDate...) {
		if _, err := time.ParseDuration(spec.Trigger); err != nil {
			return fmt.Errorf("invalid alarm trigger %q: %w", spec.Trigger, err)
		}
	}
	if c.PurgeBatchSize < 0 {
		return fmt.Errorf("purge_batch_size must not be negative")
	}
	return nil
}

// ConflictHorizonDuration returns the parsed horizon, defaulting to one
// year when unset or unparsable.
func (c Config) ConflictHorizonDuration() time.Duration {
	d, err := time.ParseDuration(c.ConflictHorizon)
	if err != nil || d <= 0 {
		return 365 * 24 * time.Hour
	}
	return d
}

// DefaultAlarms materializes the configured default alarms for an event,
// selecting the date or date-time variant by the all-day flag.
func (c Config) DefaultAlarms(allDay bool) []calendar.Alarm {
	specs := c.DefaultAlarmsDateTime
	if allDay {
		specs = c.DefaultAlarmsDate
	}
	alarms := make([]calendar.Alarm, 0, len(specs))
	for _, spec := range specs {
		d, err := time.ParseDuration(spec.Trigger)
		if err != nil {
			continue
		}
		action := spec.Action
		if action == "" {
			action = "DISPLAY"
		}
		dur := d
		alarms = append(alarms, calendar.Alarm{
			Action:  action,
			Trigger: calendar.Trigger{Duration: &dur},
		})
	}
	return alarms
}

// Load reads the configuration file at path, filling unset values from
// Default. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %q: %w", path, err)
	}
	if cfg.PurgeBatchSize == 0 {
		cfg.PurgeBatchSize = Default().PurgeBatchSize
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Provider is a reloadable configuration holder. It is an explicit,
// injectable collaborator; request handling code obtains one Snapshot at
// entry and passes it on as a value.
type Provider struct {
	mu      sync.RWMutex
	path    string
	current Config
}

// NewProvider loads the initial configuration from path.
func NewProvider(path string) (*Provider, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Provider{path: path, current: cfg}, nil
}

// NewStaticProvider wraps a fixed configuration, for tests and embedders
// that manage config themselves.
func NewStaticProvider(cfg Config) *Provider {
	return &Provider{current: cfg}
}

// Snapshot returns the current configuration by value.
func (p *Provider) Snapshot() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Reload re-reads the configuration file. The previous snapshot stays in
// effect when reloading fails.
func (p *Provider) Reload() error {
	if p.path == "" {
		return nil
	}
	cfg, err := Load(p.path)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.current = cfg
	p.mu.Unlock()
	return nil
}
