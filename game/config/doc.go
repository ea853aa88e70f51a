// Package config provides configuration management for the snake game server.
//
// The config package handles:
//   - Loading game configurations from JSON files
//   - Configuration validation, including a short trial game
//   - Default configuration management
//   - Configuration discovery and listing
//
// Configuration Format:
//
// Game configurations are stored as JSON files in the configs directory.
// Each configuration defines:
//   - Board size (rows and cols)
//   - An optional item placement seed
//   - The tick interval used by the autoplay runner
//   - Game messages for food, coins and collisions
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameConfig, err := manager.LoadConfig("small")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
//
//	results, err := config.ValidateDir("configs")
package config
