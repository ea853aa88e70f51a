package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/wricardo/gridsnake/game/engine"
)

// smokeTicks bounds the trial run made for each valid configuration
const smokeTicks = 2 * engine.MaxGridSize

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational lines prefixed with "✓";
// otherwise it accumulates the problems that were found.
type ValidationResult struct {
	File   string   `json:"file"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// ValidateFile loads a configuration file, checks it and plays a short
// trial game on it.
func ValidateFile(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}
	fail := func(format string, args ...any) ValidationResult {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
		return result
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fail("Failed to read file: %v", err)
	}

	var config engine.GameConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return fail("Invalid JSON: %v", err)
	}
	config.Normalize()

	if err := engine.ValidateGameConfig(&config); err != nil {
		return fail("%v", err)
	}

	// Trial run: the snake heads right from a fresh board until it stops
	eng, err := engine.NewEngine(&config, engine.WithSeed(1))
	if err != nil {
		return fail("Failed to start a game: %v", err)
	}
	initial := eng.GetState()
	outcomes := eng.AdvanceN(smokeTicks)
	if !eng.IsGameOver() {
		return fail("Trial game did not end after %d ticks heading into a wall", len(outcomes))
	}

	free := engine.CountCellType(initial.Grid, engine.Empty)
	result.Errors = append(result.Errors,
		fmt.Sprintf("✓ Name: %s", config.Name),
		fmt.Sprintf("✓ Grid: %dx%d", config.Rows, config.Cols),
		fmt.Sprintf("✓ Snake starts at %s heading %s", initial.Snake[0], initial.Direction),
		fmt.Sprintf("✓ Free cells at start: %d", free),
		fmt.Sprintf("✓ Tick interval: %dms", config.TickIntervalMS),
		fmt.Sprintf("✓ Trial game ended after %d ticks", len(outcomes)),
	)
	if engine.CountCellType(initial.Grid, engine.Coin) == 0 {
		result.Errors = append(result.Errors, "✓ Board too small for a coin at start")
	}

	return result
}

// ValidateDir validates every *.json file in dir, sorted by file name
func ValidateDir(dir string) ([]ValidationResult, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list config files: %w", err)
	}
	sort.Strings(files)

	results := make([]ValidationResult, 0, len(files))
	for _, file := range files {
		results = append(results, ValidateFile(file))
	}
	return results, nil
}
