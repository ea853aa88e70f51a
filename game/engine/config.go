package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// GameMessages holds the text shown to players for game events
type GameMessages struct {
	Welcome string `json:"welcome"`
	Food    string `json:"food"`
	Coin    string `json:"coin"`
	HitWall string `json:"hit_wall"`
	HitSelf string `json:"hit_self"`
}

// GameConfig represents the game configuration from JSON
type GameConfig struct {
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	Rows           int          `json:"rows"`
	Cols           int          `json:"cols"`
	Seed           int64        `json:"seed,omitempty"`
	TickIntervalMS int          `json:"tick_interval_ms"`
	Messages       GameMessages `json:"messages"`
}

// DefaultGameConfig returns the built-in configuration used when none is supplied
func DefaultGameConfig() *GameConfig {
	return &GameConfig{
		Name:           "classic",
		Description:    "Classic 20x20 board with one food and one coin",
		Rows:           20,
		Cols:           20,
		TickIntervalMS: DefaultTickIntervalMS,
		Messages:       DefaultMessages(),
	}
}

// DefaultMessages returns the stock event messages
func DefaultMessages() GameMessages {
	return GameMessages{
		Welcome: "Eat food (+1) and coins (+2). Don't hit the walls or yourself!",
		Food:    "Yum! Score: %d",
		Coin:    "Coin collected! Score: %d",
		HitWall: "Crashed into the wall! Game Over!",
		HitSelf: "Bit your own tail! Game Over!",
	}
}

// ValidateGameConfig validates a game configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	if config.Rows < MinRows || config.Rows > MaxGridSize {
		return fmt.Errorf("config validation: rows must be between %d and %d, got %d", MinRows, MaxGridSize, config.Rows)
	}
	if config.Cols < MinCols || config.Cols > MaxGridSize {
		return fmt.Errorf("config validation: cols must be between %d and %d, got %d", MinCols, MaxGridSize, config.Cols)
	}
	if config.TickIntervalMS < 0 {
		return fmt.Errorf("config validation: tick_interval_ms must not be negative, got %d", config.TickIntervalMS)
	}

	if config.Messages.Food != "" && !strings.Contains(config.Messages.Food, "%d") {
		return fmt.Errorf("config validation: messages.food must contain %%d for score")
	}
	if config.Messages.Coin != "" && !strings.Contains(config.Messages.Coin, "%d") {
		return fmt.Errorf("config validation: messages.coin must contain %%d for score")
	}

	return nil
}

// LoadGameConfig loads and validates a game configuration from a JSON file
func LoadGameConfig(filename string) (*GameConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var config GameConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", filename, err)
	}
	config.applyDefaults()

	if err := ValidateGameConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// applyDefaults fills in optional fields left empty in JSON
func (c *GameConfig) applyDefaults() {
	defaults := DefaultMessages()
	if c.Messages.Welcome == "" {
		c.Messages.Welcome = defaults.Welcome
	}
	if c.Messages.Food == "" {
		c.Messages.Food = defaults.Food
	}
	if c.Messages.Coin == "" {
		c.Messages.Coin = defaults.Coin
	}
	if c.Messages.HitWall == "" {
		c.Messages.HitWall = defaults.HitWall
	}
	if c.Messages.HitSelf == "" {
		c.Messages.HitSelf = defaults.HitSelf
	}
	if c.TickIntervalMS == 0 {
		c.TickIntervalMS = DefaultTickIntervalMS
	}
}

// Normalize fills in optional fields and returns the config for chaining
func (c *GameConfig) Normalize() *GameConfig {
	c.applyDefaults()
	return c
}
