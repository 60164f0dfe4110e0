// Package config provides Viper-based configuration loading for the arena.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// OutputPaths are zap sink URLs or file paths; empty means stderr.
	OutputPaths []string `mapstructure:"output_paths"`
}

// RNGConfig selects the random number generator every roll draws from.
type RNGConfig struct {
	// Algorithm is one of "pcg", "chacha8", "crypto".
	Algorithm string `mapstructure:"algorithm"`
	// Seed fixes the sequence for reproducible battles; 0 draws a fresh seed.
	Seed uint64 `mapstructure:"seed"`
	// TrackStats enables per-category draw counters.
	TrackStats bool `mapstructure:"track_stats"`
}

// CombatConfig holds the tunable constants of action resolution.
type CombatConfig struct {
	DamageFloor            int            `mapstructure:"damage_floor"`
	CritMultiplier         float64        `mapstructure:"crit_multiplier"`
	UnarmedMin             int            `mapstructure:"unarmed_min"`
	UnarmedMax             int            `mapstructure:"unarmed_max"`
	DefendReductionPercent int            `mapstructure:"defend_reduction_percent"`
	FleeBaseChance         float64        `mapstructure:"flee_base_chance"`
	FleeStep               float64        `mapstructure:"flee_step"`
	AbilityXPPerUse        int            `mapstructure:"ability_xp_per_use"`
	SpeedMods              map[string]int `mapstructure:"speed_mods"`
	// MaxRounds bounds an unattended battle; 0 means no limit.
	MaxRounds int `mapstructure:"max_rounds"`
}

// ContentConfig locates the YAML and Lua content directories.
type ContentConfig struct {
	Effects   string `mapstructure:"effects"`
	Abilities string `mapstructure:"abilities"`
	Weapons   string `mapstructure:"weapons"`
	Armor     string `mapstructure:"armor"`
	Items     string `mapstructure:"items"`
	NPCs      string `mapstructure:"npcs"`
	// Scripts is optional; empty disables Lua hooks.
	Scripts string `mapstructure:"scripts"`
}

// WithRoot returns a copy of c with every relative directory joined onto root.
func (c ContentConfig) WithRoot(root string) ContentConfig {
	join := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(root, p)
	}
	return ContentConfig{
		Effects:   join(c.Effects),
		Abilities: join(c.Abilities),
		Weapons:   join(c.Weapons),
		Armor:     join(c.Armor),
		Items:     join(c.Items),
		NPCs:      join(c.NPCs),
		Scripts:   join(c.Scripts),
	}
}

// ScriptingConfig holds Lua sandbox settings.
type ScriptingConfig struct {
	// InstructionLimit is the per-call VM instruction budget; 0 selects the default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// ArenaConfig names the combatant templates the CLI pits against each other.
type ArenaConfig struct {
	Party     []string `mapstructure:"party"`
	Encounter []string `mapstructure:"encounter"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	RNG       RNGConfig       `mapstructure:"rng"`
	Combat    CombatConfig    `mapstructure:"combat"`
	Content   ContentConfig   `mapstructure:"content"`
	Scripting ScriptingConfig `mapstructure:"scripting"`
	Arena     ArenaConfig     `mapstructure:"arena"`
	Database  DatabaseConfig  `mapstructure:"database"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	for _, err := range []error{
		validateLogging(c.Logging),
		validateRNG(c.RNG),
		validateCombat(c.Combat),
		validateContent(c.Content),
		validateScripting(c.Scripting),
		validateDatabase(c.Database),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	var errs []string
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		errs = append(errs, fmt.Sprintf("logging.level must be one of [debug, info, warn, error], got %q", l.Level))
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		errs = append(errs, fmt.Sprintf("logging.format must be one of [json, console], got %q", l.Format))
	}
	for i, p := range l.OutputPaths {
		if p == "" {
			errs = append(errs, fmt.Sprintf("logging.output_paths[%d] must not be empty", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateRNG(r RNGConfig) error {
	validAlgorithms := map[string]bool{"pcg": true, "chacha8": true, "crypto": true}
	if !validAlgorithms[r.Algorithm] {
		return fmt.Errorf("rng.algorithm must be one of [pcg, chacha8, crypto], got %q", r.Algorithm)
	}
	return nil
}

func validateCombat(c CombatConfig) error {
	var errs []string
	if c.DamageFloor < 0 {
		errs = append(errs, fmt.Sprintf("combat.damage_floor must be >= 0, got %d", c.DamageFloor))
	}
	if c.CritMultiplier < 1 {
		errs = append(errs, fmt.Sprintf("combat.crit_multiplier must be >= 1, got %v", c.CritMultiplier))
	}
	if c.UnarmedMin < 0 || c.UnarmedMax < c.UnarmedMin {
		errs = append(errs, fmt.Sprintf("combat.unarmed range [%d, %d] is invalid", c.UnarmedMin, c.UnarmedMax))
	}
	if c.DefendReductionPercent < 0 || c.DefendReductionPercent > 100 {
		errs = append(errs, fmt.Sprintf("combat.defend_reduction_percent must be 0-100, got %d", c.DefendReductionPercent))
	}
	if c.FleeBaseChance < 0 || c.FleeBaseChance > 1 {
		errs = append(errs, fmt.Sprintf("combat.flee_base_chance must be in [0,1], got %v", c.FleeBaseChance))
	}
	if c.FleeStep < 0 {
		errs = append(errs, fmt.Sprintf("combat.flee_step must be >= 0, got %v", c.FleeStep))
	}
	if c.AbilityXPPerUse < 0 {
		errs = append(errs, fmt.Sprintf("combat.ability_xp_per_use must be >= 0, got %d", c.AbilityXPPerUse))
	}
	validActions := map[string]bool{"attack": true, "defend": true, "ability": true, "item": true, "flee": true}
	actions := make([]string, 0, len(c.SpeedMods))
	for action := range c.SpeedMods {
		actions = append(actions, action)
	}
	sort.Strings(actions)
	for _, action := range actions {
		if !validActions[action] {
			errs = append(errs, fmt.Sprintf("combat.speed_mods has unknown action %q", action))
		}
	}
	if c.MaxRounds < 0 {
		errs = append(errs, fmt.Sprintf("combat.max_rounds must be >= 0, got %d", c.MaxRounds))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	for name, dir := range map[string]string{
		"effects":   c.Effects,
		"abilities": c.Abilities,
		"weapons":   c.Weapons,
		"armor":     c.Armor,
		"items":     c.Items,
		"npcs":      c.NPCs,
	} {
		if dir == "" {
			errs = append(errs, fmt.Sprintf("content.%s must not be empty", name))
		}
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateScripting(s ScriptingConfig) error {
	if s.InstructionLimit < 0 {
		return errors.New("scripting.instruction_limit must not be negative")
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path uses defaults and the
// environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with SKIRMISH_ prefix
	v.SetEnvPrefix("SKIRMISH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("rng.algorithm", "pcg")
	v.SetDefault("rng.seed", 0)
	v.SetDefault("rng.track_stats", true)

	v.SetDefault("combat.damage_floor", 1)
	v.SetDefault("combat.crit_multiplier", 1.5)
	v.SetDefault("combat.unarmed_min", 1)
	v.SetDefault("combat.unarmed_max", 4)
	v.SetDefault("combat.defend_reduction_percent", 50)
	v.SetDefault("combat.flee_base_chance", 0.5)
	v.SetDefault("combat.flee_step", 0.15)
	v.SetDefault("combat.ability_xp_per_use", 10)
	v.SetDefault("combat.speed_mods", map[string]int{"attack": -3, "defend": 3})
	v.SetDefault("combat.max_rounds", 100)

	v.SetDefault("content.effects", "content/effects")
	v.SetDefault("content.abilities", "content/abilities")
	v.SetDefault("content.weapons", "content/weapons")
	v.SetDefault("content.armor", "content/armor")
	v.SetDefault("content.items", "content/items")
	v.SetDefault("content.npcs", "content/npcs")
	v.SetDefault("content.scripts", "content/scripts")

	v.SetDefault("scripting.instruction_limit", 100000)

	v.SetDefault("arena.party", []string{"knight", "cleric"})
	v.SetDefault("arena.encounter", []string{"goblin", "goblin", "goblin_shaman"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "skirmish")
	v.SetDefault("database.password", "skirmish")
	v.SetDefault("database.name", "skirmish")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
}
