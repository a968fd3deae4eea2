// Package config loads and validates the YAML run configuration consumed by
// the backtest driver. Core packages never read configuration themselves;
// they take explicit parameters.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/fixed"
	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/simulator"
)

type Config struct {
	Run     RunConfig     `yaml:"run"`
	Data    DataConfig    `yaml:"data"`
	Fill    FillConfig    `yaml:"fill"`
	Audit   AuditConfig   `yaml:"audit"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

type RunConfig struct {
	Start       string                 `yaml:"start"`
	End         string                 `yaml:"end"`
	InitialCash fixed.Point            `yaml:"initialCash"`
	Instruments []string               `yaml:"instruments"`
	Targets     map[string]fixed.Point `yaml:"targets"`
	Holidays    []string               `yaml:"holidays"`
	Lenient     bool                   `yaml:"lenientLookahead"`
}

type DataConfig struct {
	DuckDBPath string `yaml:"duckdbPath"`
}

type FillConfig struct {
	SlippageBps          fixed.Point `yaml:"slippageBps"`
	UseVolumeConstraints bool        `yaml:"useVolumeConstraints"`
	MaxParticipationRate fixed.Point `yaml:"maxParticipationRate"`
	RemainderPolicy      string      `yaml:"remainderPolicy"`
	LimitFillProb        *float64    `yaml:"limitFillProb"`
	Seed                 int64       `yaml:"seed"`
	CommissionKind       string      `yaml:"commissionKind"`
	CommissionFlat       fixed.Point `yaml:"commissionFlat"`
	CommissionPerShare   fixed.Point `yaml:"commissionPerShare"`
	AbortOnDataError     bool        `yaml:"abortOnDataError"`
}

type AuditConfig struct {
	SQLitePath string `yaml:"sqlitePath"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Load reads the YAML config from path and validates it.
func Load(path string) (Config, error) {
	var cfg Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate aggregates every problem instead of stopping at the first.
func (c Config) Validate() error {
	var err error

	start, startErr := time.Parse(time.DateOnly, c.Run.Start)
	if startErr != nil {
		err = multierr.Append(err, fmt.Errorf("run.start: %w", startErr))
	}
	end, endErr := time.Parse(time.DateOnly, c.Run.End)
	if endErr != nil {
		err = multierr.Append(err, fmt.Errorf("run.end: %w", endErr))
	}
	if startErr == nil && endErr == nil && end.Before(start) {
		err = multierr.Append(err, errors.New("run.end before run.start"))
	}
	if !c.Run.InitialCash.IsPos() {
		err = multierr.Append(err, errors.New("run.initialCash must be positive"))
	}
	if len(c.Run.Instruments) == 0 {
		err = multierr.Append(err, errors.New("run.instruments is required"))
	}
	for _, holiday := range c.Run.Holidays {
		if _, hErr := time.Parse(time.DateOnly, holiday); hErr != nil {
			err = multierr.Append(err, fmt.Errorf("run.holidays: %w", hErr))
		}
	}
	if c.Data.DuckDBPath == "" {
		err = multierr.Append(err, errors.New("data.duckdbPath is required"))
	}
	err = multierr.Append(err, c.FillConfig().Validate())
	return err
}

// Window returns the parsed run window. Call after Validate.
func (c Config) Window() (time.Time, time.Time) {
	start, _ := time.Parse(time.DateOnly, c.Run.Start)
	end, _ := time.Parse(time.DateOnly, c.Run.End)
	return start, end
}

// HolidayDates returns the parsed holiday set. Call after Validate.
func (c Config) HolidayDates() []time.Time {
	out := make([]time.Time, 0, len(c.Run.Holidays))
	for _, holiday := range c.Run.Holidays {
		if day, err := time.Parse(time.DateOnly, holiday); err == nil {
			out = append(out, day)
		}
	}
	return out
}

// FillConfig maps the YAML section onto the simulator's fill configuration.
func (c Config) FillConfig() simulator.FillConfig {
	fill := simulator.FillConfig{
		SlippageBps:          c.Fill.SlippageBps,
		UseVolumeConstraints: c.Fill.UseVolumeConstraints,
		MaxParticipationRate: c.Fill.MaxParticipationRate,
		RemainderPolicy:      simulator.RemainderPolicy(c.Fill.RemainderPolicy),
		LimitFillProb:        1.0,
		Seed:                 c.Fill.Seed,
		AbortOnDataError:     c.Fill.AbortOnDataError,
		Commission: simulator.CommissionConfig{
			Kind:     simulator.CommissionKind(c.Fill.CommissionKind),
			Flat:     c.Fill.CommissionFlat,
			PerShare: c.Fill.CommissionPerShare,
		},
	}
	// An absent limitFillProb means limit orders always fill on a touch.
	// An explicit value passes through untouched, so a zero in the file is
	// rejected by Validate instead of being silently rewritten.
	if c.Fill.LimitFillProb != nil {
		fill.LimitFillProb = *c.Fill.LimitFillProb
	}
	return fill
}
