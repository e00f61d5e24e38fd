// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/neurlyn/internal/model"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Server     ServerConfig     `toml:"server"`
	Assessment AssessmentConfig `toml:"assessment"`
	Pathways   PathwaysConfig   `toml:"pathways"`
	Quality    QualityConfig    `toml:"quality"`
}

// ServerConfig maps settings of the serve command.
type ServerConfig struct {
	Addr          *string  `toml:"addr"`
	DB            *string  `toml:"db"`
	SweepInterval *string  `toml:"sweep-interval"`
	CORSOrigins   []string `toml:"cors-origins"`
	Debug         *bool    `toml:"debug"`
}

// AssessmentConfig maps session and selection settings.
type AssessmentConfig struct {
	DefaultTier     *string `toml:"default-tier"`
	Quick           *int    `toml:"quick"`
	Standard        *int    `toml:"standard"`
	Deep            *int    `toml:"deep"`
	BatchSize       *int    `toml:"batch-size"`
	InterleaveRatio *int    `toml:"interleave-ratio"`
	Shuffle         *bool   `toml:"shuffle"`
	SessionTTL      *string `toml:"session-ttl"`
	Retention       *string `toml:"retention"`
	Bank            *string `toml:"bank"`
	CacheSize       *int    `toml:"cache-size"`
}

// PathwaysConfig maps pathway activation settings.
type PathwaysConfig struct {
	Threshold *float64 `toml:"threshold"`
	MinCount  *int     `toml:"min-count"`
}

// QualityConfig maps data quality settings.
type QualityConfig struct {
	StraightLineRun *int     `toml:"straight-line-run"`
	MinAvgLatencyMs *float64 `toml:"min-avg-latency-ms"`
	MinVariability  *float64 `toml:"min-variability"`
	MinResponses    *int     `toml:"min-responses"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// ApplyPolicy overlays the values present in the file onto p and validates
// the result.
func (c FileConfig) ApplyPolicy(p *model.Policy) error {
	a := c.Assessment
	if a.DefaultTier != nil {
		p.DefaultTier = model.Tier(*a.DefaultTier)
	}
	setTier := func(t model.Tier, v *int) {
		if v != nil {
			p.Tiers[t] = *v
		}
	}
	if p.Tiers == nil {
		p.Tiers = map[model.Tier]int{}
	}
	setTier(model.TierQuick, a.Quick)
	setTier(model.TierStandard, a.Standard)
	setTier(model.TierDeep, a.Deep)
	setInt(&p.BatchSize, a.BatchSize)
	setInt(&p.InterleaveRatio, a.InterleaveRatio)
	if a.Shuffle != nil {
		p.Shuffle = *a.Shuffle
	}
	if err := setDuration(&p.SessionTTL, a.SessionTTL, "assessment.session-ttl"); err != nil {
		return err
	}
	if err := setDuration(&p.Retention, a.Retention, "assessment.retention"); err != nil {
		return err
	}

	setFloat(&p.PathwayThreshold, c.Pathways.Threshold)
	setInt(&p.PathwayMinCount, c.Pathways.MinCount)

	setInt(&p.StraightLineRun, c.Quality.StraightLineRun)
	setFloat(&p.MinAvgLatencyMs, c.Quality.MinAvgLatencyMs)
	setFloat(&p.MinVariability, c.Quality.MinVariability)
	setInt(&p.MinQualityResponses, c.Quality.MinResponses)

	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ParseDuration parses an optional duration value of the config file.
func ParseDuration(value *string, fallback time.Duration, key string) (time.Duration, error) {
	d := fallback
	if err := setDuration(&d, value, key); err != nil {
		return 0, err
	}
	return d, nil
}

func setInt(target, value *int) {
	if value != nil {
		*target = *value
	}
}

func setFloat(target, value *float64) {
	if value != nil {
		*target = *value
	}
}

func setDuration(target *time.Duration, value *string, key string) error {
	if value == nil {
		return nil
	}
	d, err := time.ParseDuration(*value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return fmt.Errorf("invalid %s: must be positive", key)
	}
	*target = d
	return nil
}
