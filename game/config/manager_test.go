package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/gridsnake/game/engine"
)

func createValidConfig() *engine.GameConfig {
	return &engine.GameConfig{
		Name:           "Test Config",
		Description:    "Test configuration",
		Rows:           8,
		Cols:           10,
		TickIntervalMS: 120,
		Messages: engine.GameMessages{
			Welcome: "Welcome!",
			Food:    "Food! Score: %d",
			Coin:    "Coin! Score: %d",
			HitWall: "Wall!",
			HitSelf: "Self!",
		},
	}
}

func writeConfigFile(t *testing.T, dir, name string, config *engine.GameConfig) {
	t.Helper()
	data, err := json.MarshalIndent(config, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".json"), data, 0644))
}

func TestNewManager(t *testing.T) {
	t.Run("prefers classic", func(t *testing.T) {
		dir := t.TempDir()
		other := createValidConfig()
		other.Name = "Another"
		writeConfigFile(t, dir, "another", other)
		classic := createValidConfig()
		classic.Name = "Classic"
		writeConfigFile(t, dir, "classic", classic)

		manager, err := NewManager(dir)
		require.NoError(t, err)
		assert.Equal(t, "Classic", manager.GetDefault().Name)
	})

	t.Run("falls back to first config", func(t *testing.T) {
		dir := t.TempDir()
		first := createValidConfig()
		first.Name = "Alpha"
		writeConfigFile(t, dir, "alpha", first)
		second := createValidConfig()
		second.Name = "Beta"
		writeConfigFile(t, dir, "beta", second)

		manager, err := NewManager(dir)
		require.NoError(t, err)
		assert.Equal(t, "Alpha", manager.GetDefault().Name)
	})

	t.Run("non-existent directory", func(t *testing.T) {
		_, err := NewManager("/non/existent/path")
		assert.Error(t, err)
	})

	t.Run("empty directory uses built-in default", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		require.NoError(t, err)

		def := manager.GetDefault()
		require.NotNil(t, def)
		assert.Equal(t, "default", def.Name)
		assert.NoError(t, engine.ValidateGameConfig(def))
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "classic", createValidConfig())

	small := createValidConfig()
	small.Name = "Small"
	small.Rows = 5
	writeConfigFile(t, dir, "small", small)

	manager, err := NewManager(dir)
	require.NoError(t, err)

	t.Run("load existing config", func(t *testing.T) {
		config, err := manager.LoadConfig("small")
		require.NoError(t, err)
		assert.Equal(t, "Small", config.Name)
		assert.Equal(t, 5, config.Rows)
	})

	t.Run("load with .json extension", func(t *testing.T) {
		config, err := manager.LoadConfig("small.json")
		require.NoError(t, err)
		assert.Equal(t, "Small", config.Name)
	})

	t.Run("load from cache", func(t *testing.T) {
		first, err := manager.LoadConfig("small")
		require.NoError(t, err)
		second, err := manager.LoadConfig("small")
		require.NoError(t, err)
		assert.Same(t, first, second)
	})

	t.Run("load non-existent config", func(t *testing.T) {
		_, err := manager.LoadConfig("non-existent")
		assert.True(t, errors.Is(err, ErrConfigNotFound))
	})

	t.Run("reject path traversal", func(t *testing.T) {
		_, err := manager.LoadConfig("../secrets")
		assert.True(t, errors.Is(err, ErrInvalidConfig))
	})

	t.Run("load invalid config", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "invalid.json"), []byte(`{"name": ""}`), 0644))
		_, err := manager.LoadConfig("invalid")
		assert.True(t, errors.Is(err, ErrInvalidConfig))
	})

	t.Run("load malformed JSON", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "malformed.json"), []byte(`{"name": "Malformed", invalid json}`), 0644))
		_, err := manager.LoadConfig("malformed")
		assert.True(t, errors.Is(err, ErrInvalidConfig))
	})

	t.Run("fills in defaults", func(t *testing.T) {
		data := `{"name": "Bare", "description": "Only the basics", "rows": 6, "cols": 6}`
		require.NoError(t, os.WriteFile(filepath.Join(dir, "bare.json"), []byte(data), 0644))
		config, err := manager.LoadConfig("bare")
		require.NoError(t, err)
		assert.Equal(t, engine.DefaultTickIntervalMS, config.TickIntervalMS)
		assert.Equal(t, engine.DefaultMessages().HitSelf, config.Messages.HitSelf)
	})
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()
	names := []string{"classic", "easy", "medium", "hard"}
	for _, name := range names {
		config := createValidConfig()
		config.Name = "Display " + name
		writeConfigFile(t, dir, name, config)
	}
	// ignored: not JSON, and invalid JSON
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("readme"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644))

	manager, err := NewManager(dir)
	require.NoError(t, err)

	configs, err := manager.ListConfigs()
	require.NoError(t, err)
	require.Len(t, configs, 4)

	ids := make([]string, 0, len(configs))
	for _, info := range configs {
		ids = append(ids, info.ConfigID)
		assert.Equal(t, "Display "+info.ConfigID, info.Name)
		assert.Equal(t, info.ConfigID+".json", info.Filename)
		assert.Equal(t, 8, info.Rows)
		assert.Equal(t, 10, info.Cols)
		assert.Equal(t, 120, info.TickIntervalMS)
	}
	assert.Equal(t, []string{"classic", "easy", "hard", "medium"}, ids)
}

func TestManager_SaveConfig(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	require.NoError(t, err)

	config := createValidConfig()
	config.Name = "Saved"
	require.NoError(t, manager.SaveConfig("saved", config))
	assert.FileExists(t, filepath.Join(dir, "saved.json"))

	loaded, err := manager.LoadConfig("saved")
	require.NoError(t, err)
	assert.Equal(t, "Saved", loaded.Name)

	// a fresh manager reads it from disk
	fresh, err := NewManager(dir)
	require.NoError(t, err)
	reread, err := fresh.LoadConfig("saved")
	require.NoError(t, err)
	assert.Equal(t, config.Rows, reread.Rows)

	bad := createValidConfig()
	bad.Cols = 2
	assert.True(t, errors.Is(manager.SaveConfig("bad", bad), ErrInvalidConfig))
	assert.NoFileExists(t, filepath.Join(dir, "bad.json"))

	assert.True(t, errors.Is(manager.SaveConfig("", config), ErrInvalidConfig))
}

func TestManager_SetDefaultAndRefresh(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "classic", createValidConfig())
	alt := createValidConfig()
	alt.Name = "Alt"
	writeConfigFile(t, dir, "alt", alt)

	manager, err := NewManager(dir)
	require.NoError(t, err)

	require.NoError(t, manager.SetDefault("alt"))
	assert.Equal(t, "Alt", manager.GetDefault().Name)
	assert.Error(t, manager.SetDefault("missing"))

	// edit on disk, then refresh
	alt.Rows = 12
	writeConfigFile(t, dir, "alt", alt)
	require.NoError(t, manager.RefreshCache())

	reloaded, err := manager.LoadConfig("alt")
	require.NoError(t, err)
	assert.Equal(t, 12, reloaded.Rows)
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	for i := 1; i <= 5; i++ {
		config := createValidConfig()
		config.Name = fmt.Sprintf("Config%d", i)
		writeConfigFile(t, dir, fmt.Sprintf("config%d", i), config)
	}

	manager, err := NewManager(dir)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if _, err := manager.LoadConfig(fmt.Sprintf("config%d", id%5+1)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error during concurrent access: %v", err)
	}
	assert.GreaterOrEqual(t, manager.Count(), 5)
}

func TestRepositoryConfigsAreValid(t *testing.T) {
	results, err := ValidateDir("../../configs")
	require.NoError(t, err)
	require.NotEmpty(t, results)

	for _, result := range results {
		assert.True(t, result.Valid, "%s: %v", result.File, result.Errors)
	}
}
