// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers an optional YAML file and environment variables on top.
// - External errors must be wrapped via this package's sentinel errors.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/vaultsync/internal/domain/encounter"
	"github.com/okian/vaultsync/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// DefaultRegion is used for roster entries without a region.
	DefaultRegion string `koanf:"default_region"`

	// RaidInstance is the raid whose encounters are tracked.
	RaidInstance string `koanf:"raid_instance"`

	// BossCap clamps reconciled kills per difficulty. 0 disables the clamp.
	BossCap int `koanf:"boss_cap"`

	// HTTP client behaviour shared by all upstream clients.
	HTTPTimeout     time.Duration `koanf:"http_timeout"`
	RetryMax        int           `koanf:"retry_max"`
	RetryWaitMin    time.Duration `koanf:"retry_wait_min"`
	RetryWaitMax    time.Duration `koanf:"retry_wait_max"`
	CircuitCooldown time.Duration `koanf:"circuit_cooldown"`

	Blizzard     BlizzardConfig     `koanf:"blizzard"`
	RaiderIO     RaiderIOConfig     `koanf:"raiderio"`
	WarcraftLogs WarcraftLogsConfig `koanf:"warcraftlogs"`

	// Roster is a comma separated list of name-realm[-region] characters.
	Roster string `koanf:"roster"`

	// Characters lists the characters to sync, usually set from YAML.
	Characters []model.CharacterKey `koanf:"characters"`

	// StateFile persists baselines between runs. Empty keeps them in memory.
	StateFile string `koanf:"state_file"`

	// MetricsTextfile, when set, receives a metrics dump after each batch.
	MetricsTextfile string `koanf:"metrics_textfile"`
}

// BlizzardConfig configures the profile API client.
type BlizzardConfig struct {
	// BaseURL may contain {region}, e.g. https://{region}.api.blizzard.com.
	BaseURL       string        `koanf:"base_url"`
	Token         string        `koanf:"token"`
	Locale        string        `koanf:"locale"`
	GearTTL       time.Duration `koanf:"gear_ttl"`
	EncountersTTL time.Duration `koanf:"encounters_ttl"`
	StatsTTL      time.Duration `koanf:"stats_ttl"`
}

// RaiderIOConfig configures the leaderboard client.
type RaiderIOConfig struct {
	BaseURL string        `koanf:"base_url"`
	TTL     time.Duration `koanf:"ttl"`
}

// WarcraftLogsConfig configures the combat-log client.
type WarcraftLogsConfig struct {
	Endpoint    string        `koanf:"endpoint"`
	Token       string        `koanf:"token"`
	ZoneID      int           `koanf:"zone_id"`
	ReportLimit int           `koanf:"report_limit"`
	TTL         time.Duration `koanf:"ttl"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		DefaultRegion:   string(model.RegionUS),
		RaidInstance:    encounter.DefaultInstance,
		HTTPTimeout:     10 * time.Second,
		RetryMax:        3,
		RetryWaitMin:    2 * time.Second,
		RetryWaitMax:    30 * time.Second,
		CircuitCooldown: 5 * time.Minute,
		Blizzard: BlizzardConfig{
			BaseURL:       "https://{region}.api.blizzard.com",
			Locale:        "en_US",
			EncountersTTL: time.Hour,
		},
		RaiderIO: RaiderIOConfig{
			BaseURL: "https://raider.io",
			TTL:     6 * time.Hour,
		},
		WarcraftLogs: WarcraftLogsConfig{
			Endpoint:    "https://www.warcraftlogs.com/api/v2/client",
			ZoneID:      42,
			ReportLimit: 10,
			TTL:         time.Hour,
		},
	}
}

// Validate checks the invariants Load relies on.
func (c *Config) Validate() error {
	switch {
	case c.RetryMax < 0:
		return fmt.Errorf("%w: retry_max must not be negative", ErrInvalidConfig)
	case c.RetryWaitMin <= 0 || c.RetryWaitMax < c.RetryWaitMin:
		return fmt.Errorf("%w: retry waits must satisfy 0 < retry_wait_min <= retry_wait_max", ErrInvalidConfig)
	case c.HTTPTimeout <= 0:
		return fmt.Errorf("%w: http_timeout must be positive", ErrInvalidConfig)
	case c.RaidInstance == "":
		return fmt.Errorf("%w: raid_instance must not be empty", ErrInvalidConfig)
	case c.BossCap < 0:
		return fmt.Errorf("%w: boss_cap must not be negative", ErrInvalidConfig)
	}
	for _, ch := range c.Characters {
		if ch.Name == "" || ch.Realm == "" {
			return fmt.Errorf("%w: character %q needs a name and realm", ErrInvalidConfig, ch.String())
		}
	}
	return nil
}

// RosterKeys returns Characters followed by the parsed Roster entries, with
// regions normalized.
func (c *Config) RosterKeys() ([]model.CharacterKey, error) {
	def := model.ParseRegion(c.DefaultRegion)
	out := make([]model.CharacterKey, 0, len(c.Characters))
	for _, ch := range c.Characters {
		region := def
		if ch.Region != "" {
			region = model.ParseRegion(string(ch.Region))
		}
		out = append(out, model.CharacterKey{Name: ch.Name, Realm: ch.Realm, Region: region})
	}
	for _, item := range strings.Split(c.Roster, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key, err := ParseCharacter(item, def)
		if err != nil {
			return nil, err
		}
		out = append(out, key)
	}
	return out, nil
}

// ParseCharacter parses name-realm or name-realm-region. Realm slugs may
// contain dashes, so a trailing known region code is only taken as the region
// when three or more parts are present.
func ParseCharacter(s string, def model.Region) (model.CharacterKey, error) {
	parts := strings.Split(s, "-")
	if len(parts) < 2 || parts[0] == "" {
		return model.CharacterKey{}, fmt.Errorf("%w: character %q must be name-realm[-region]", ErrInvalidConfig, s)
	}
	region := def
	realmParts := parts[1:]
	if len(parts) >= 3 {
		last := strings.ToLower(parts[len(parts)-1])
		if r := model.Region(last); r == model.RegionUS || r == model.RegionEU || r == model.RegionKR || r == model.RegionTW {
			region = r
			realmParts = parts[1 : len(parts)-1]
		}
	}
	realm := strings.Join(realmParts, "-")
	if realm == "" {
		return model.CharacterKey{}, fmt.Errorf("%w: character %q has an empty realm", ErrInvalidConfig, s)
	}
	return model.CharacterKey{Name: parts[0], Realm: realm, Region: region}, nil
}
