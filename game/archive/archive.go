package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/wricardo/gridsnake/game/engine"
)

// Schema identifies the row layout written into each file's metadata
const Schema = "tick_history_v1"

var (
	ErrEmptyHistory   = errors.New("no ticks to archive")
	ErrUnknownSchema  = errors.New("unknown archive schema")
	ErrInvalidSession = errors.New("invalid session id")
)

// TickRow is one applied tick of one session run
type TickRow struct {
	RunID     string `parquet:"run_id,dict"`
	SessionID string `parquet:"session_id,dict"`
	Tick      int32  `parquet:"tick"`
	Direction string `parquet:"direction,dict"`
	FromRow   int32  `parquet:"from_row"`
	FromCol   int32  `parquet:"from_col"`
	ToRow     int32  `parquet:"to_row"`
	ToCol     int32  `parquet:"to_col"`
	Outcome   string `parquet:"outcome,dict"`
	Score     int32  `parquet:"score"`
	Length    int32  `parquet:"length"`
	Timestamp int64  `parquet:"timestamp"`
}

// Entry converts the row back into a history entry
func (r TickRow) Entry() engine.TickHistoryEntry {
	return engine.TickHistoryEntry{
		Tick:      int(r.Tick),
		Direction: engine.Direction(r.Direction),
		From:      engine.Position{Row: int(r.FromRow), Col: int(r.FromCol)},
		To:        engine.Position{Row: int(r.ToRow), Col: int(r.ToCol)},
		Outcome:   engine.TickOutcome(r.Outcome),
		Score:     int(r.Score),
		Length:    int(r.Length),
		Timestamp: r.Timestamp,
	}
}

// Rows converts a session's history into archive rows under a fresh run id
func Rows(sessionID string, history []engine.TickHistoryEntry) []TickRow {
	runID := uuid.New().String()
	rows := make([]TickRow, 0, len(history))
	for _, h := range history {
		rows = append(rows, TickRow{
			RunID:     runID,
			SessionID: sessionID,
			Tick:      int32(h.Tick),
			Direction: string(h.Direction),
			FromRow:   int32(h.From.Row),
			FromCol:   int32(h.From.Col),
			ToRow:     int32(h.To.Row),
			ToCol:     int32(h.To.Col),
			Outcome:   string(h.Outcome),
			Score:     int32(h.Score),
			Length:    int32(h.Length),
			Timestamp: h.Timestamp,
		})
	}
	return rows
}

// WriteSession archives history into dir as <session>_<run id>.parquet and
// returns the final path. Readers never observe a partial file.
func WriteSession(dir, sessionID string, history []engine.TickHistoryEntry) (string, error) {
	if sessionID == "" || strings.ContainsAny(sessionID, `/\.`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSession, sessionID)
	}
	if len(history) == 0 {
		return "", fmt.Errorf("%w: session %s", ErrEmptyHistory, sessionID)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	rows := Rows(sessionID, history)
	name := fmt.Sprintf("%s_%s.parquet", strings.ToLower(sessionID), rows[0].RunID)
	finalPath := filepath.Join(dir, name)
	tmpPath := finalPath + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", Schema),
		parquet.KeyValueMetadata("session_id", sessionID),
	); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return finalPath, nil
}

// ReadFile loads every row of an archive written by WriteSession
func ReadFile(path string) ([]TickRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	if schema, ok := pf.Lookup("schema"); !ok || schema != Schema {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchema, schema)
	}

	reader := parquet.NewGenericReader[TickRow](pf)
	defer reader.Close()

	rows := make([]TickRow, 0, reader.NumRows())
	buf := make([]TickRow, 256)
	for {
		n, err := reader.Read(buf)
		rows = append(rows, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet: %w", err)
		}
	}
	return rows, nil
}

// ListFiles returns the archives in dir, optionally only those of one session
func ListFiles(dir, sessionID string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	prefix := ""
	if sessionID != "" {
		prefix = strings.ToLower(sessionID) + "_"
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".parquet") || !strings.HasPrefix(name, prefix) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	return files, nil
}
