// Package config loads server configuration from ironhex.json, IRONHEX_*
// environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/talgya/ironhex/internal/rules"
	"github.com/talgya/ironhex/internal/weather"
	"github.com/talgya/ironhex/internal/world"
)

// Config is the resolved server configuration.
type Config struct {
	Listen   string
	DBPath   string
	LogLevel string
	LogFile  string
	AdminKey string

	DispatcherBuffer int
	Autosave         time.Duration

	Board BoardConfig
	Seed  uint64 // 0 draws one from the entropy source
	Wind  weather.Wind

	Options   rules.Options
	Modifiers []rules.ModifierSpec
	EndWhen   string

	RandomKey       string
	WeatherKey      string
	WeatherLocation string
}

// BoardConfig selects a board file or the generator settings.
type BoardConfig struct {
	File      string
	Width     int
	Height    int
	Seed      int64
	Buildings int
}

// envReplacer turns db.path into IRONHEX_DB_PATH.
var envReplacer = strings.NewReplacer(".", "_")

// optionDefaults maps option keys to their defaults.
func optionDefaults() map[string]any {
	d := rules.DefaultOptions()
	return map[string]any{
		"friendlyFire":           d.FriendlyFire,
		"doubleBlind":            d.DoubleBlind,
		"teamVision":             d.TeamVision,
		"teamInitiative":         d.TeamInitiative,
		"infantryMoveLater":      d.InfantryMoveLater,
		"infantryMoveMulti":      d.InfantryMoveMulti,
		"fireEnabled":            d.FireEnabled,
		"pushOffBoard":           d.PushOffBoard,
		"skipIneligiblePhysical": d.SkipIneligiblePhysical,
		"checkVictory":           d.CheckVictory,
		"visualRange":            d.VisualRange,
	}
}

func setDefaults() {
	viper.SetDefault("listen", ":8080")
	viper.SetDefault("db.path", "ironhex.db")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.file", "")
	viper.SetDefault("admin.key", "")
	viper.SetDefault("dispatcher.buffer", 256)
	viper.SetDefault("autosave.interval", "5m")

	gen := world.DefaultGenConfig()
	viper.SetDefault("board.file", "")
	viper.SetDefault("board.width", gen.Width)
	viper.SetDefault("board.height", gen.Height)
	viper.SetDefault("board.seed", 0)
	viper.SetDefault("board.buildings", gen.Buildings)

	viper.SetDefault("game.seed", 0)
	viper.SetDefault("wind.direction", 0)
	viper.SetDefault("wind.strength", 0)
	viper.SetDefault("wind.shifting", false)

	for k, v := range optionDefaults() {
		viper.SetDefault("options."+k, v)
	}
	viper.SetDefault("rules.endWhen", "")

	viper.SetDefault("random.apiKey", "")
	viper.SetDefault("weather.apiKey", "")
	viper.SetDefault("weather.location", "")
}

// Load reads ironhex.json from the given directories, then the working
// directory and /etc/ironhex. A missing file is not an error.
func Load(dirs ...string) (*Config, error) {
	setDefaults()

	viper.SetConfigName("ironhex")
	viper.SetConfigType("json")
	for _, d := range dirs {
		viper.AddConfigPath(d)
	}
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/ironhex")

	viper.SetEnvPrefix("IRONHEX")
	viper.SetEnvKeyReplacer(envReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Listen:           viper.GetString("listen"),
		DBPath:           viper.GetString("db.path"),
		LogLevel:         viper.GetString("log.level"),
		LogFile:          viper.GetString("log.file"),
		AdminKey:         viper.GetString("admin.key"),
		DispatcherBuffer: viper.GetInt("dispatcher.buffer"),
		Autosave:         viper.GetDuration("autosave.interval"),
		Board: BoardConfig{
			File:      viper.GetString("board.file"),
			Width:     viper.GetInt("board.width"),
			Height:    viper.GetInt("board.height"),
			Seed:      viper.GetInt64("board.seed"),
			Buildings: viper.GetInt("board.buildings"),
		},
		Seed: viper.GetUint64("game.seed"),
		Wind: weather.Wind{
			Direction: world.Facing(viper.GetInt("wind.direction")).Normalize(),
			Strength:  weather.Strength(viper.GetInt("wind.strength")),
			Shifting:  viper.GetBool("wind.shifting"),
		},
		Options:         loadOptions(),
		EndWhen:         viper.GetString("rules.endWhen"),
		RandomKey:       viper.GetString("random.apiKey"),
		WeatherKey:      viper.GetString("weather.apiKey"),
		WeatherLocation: viper.GetString("weather.location"),
	}
	if err := viper.UnmarshalKey("rules.modifiers", &cfg.Modifiers); err != nil {
		return nil, fmt.Errorf("decode rules.modifiers: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadOptions reads the options key by key. Decoding the "options" table as a
// whole would take the file's partial table in place of the defaults.
func loadOptions() rules.Options {
	opt := func(k string) string { return "options." + k }
	return rules.Options{
		FriendlyFire:           viper.GetBool(opt("friendlyFire")),
		DoubleBlind:            viper.GetBool(opt("doubleBlind")),
		TeamVision:             viper.GetBool(opt("teamVision")),
		TeamInitiative:         viper.GetBool(opt("teamInitiative")),
		InfantryMoveLater:      viper.GetBool(opt("infantryMoveLater")),
		InfantryMoveMulti:      viper.GetBool(opt("infantryMoveMulti")),
		FireEnabled:            viper.GetBool(opt("fireEnabled")),
		PushOffBoard:           viper.GetBool(opt("pushOffBoard")),
		SkipIneligiblePhysical: viper.GetBool(opt("skipIneligiblePhysical")),
		CheckVictory:           viper.GetBool(opt("checkVictory")),
		VisualRange:            viper.GetInt(opt("visualRange")),
	}
}

func (c *Config) validate() error {
	if c.DispatcherBuffer < 1 {
		return fmt.Errorf("dispatcher.buffer must be positive, got %d", c.DispatcherBuffer)
	}
	if c.Board.File == "" && (c.Board.Width < 1 || c.Board.Height < 1) {
		return fmt.Errorf("board size %dx%d is empty", c.Board.Width, c.Board.Height)
	}
	if c.Wind.Strength < weather.Calm || c.Wind.Strength > weather.Storm {
		return fmt.Errorf("wind.strength %d out of range", c.Wind.Strength)
	}
	if c.Options.VisualRange < 1 {
		return fmt.Errorf("options.visualRange must be positive, got %d", c.Options.VisualRange)
	}
	if _, err := rules.CompileModifiers(c.Modifiers); err != nil {
		return fmt.Errorf("rules.modifiers: %w", err)
	}
	if _, err := rules.CompileEndCondition(c.EndWhen); err != nil {
		return fmt.Errorf("rules.endWhen: %w", err)
	}
	return nil
}

// GenConfig returns the board generator settings.
func (c *Config) GenConfig() world.GenConfig {
	gen := world.DefaultGenConfig()
	gen.Width, gen.Height = c.Board.Width, c.Board.Height
	gen.Seed = c.Board.Seed
	gen.Buildings = c.Board.Buildings
	return gen
}
