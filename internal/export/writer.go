// Package export writes, renders and pushes board snapshots.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wcatz/dashboard-grid/internal/grid"
)

// Snapshot is a point-in-time copy of a board.
type Snapshot struct {
	ExportedAt time.Time     `json:"exportedAt"`
	Config     grid.Config   `json:"config"`
	TotalRows  int           `json:"totalRows"`
	Widgets    []grid.Widget `json:"widgets"`
}

// NewSnapshot captures widgets laid out on cfg.
func NewSnapshot(cfg grid.Config, widgets []grid.Widget) Snapshot {
	return Snapshot{
		ExportedAt: time.Now().UTC(),
		Config:     cfg,
		TotalRows:  grid.TotalRows(widgets, cfg.MinRows),
		Widgets:    widgets,
	}
}

// WriteSnapshot writes a snapshot to a JSON file, returning the size.
func WriteSnapshot(snap Snapshot, fpath string, dryRun bool) (int, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("marshaling snapshot: %w", err)
	}
	data = append(data, '\n')
	size := len(data)
	filename := filepath.Base(fpath)

	if !dryRun {
		if err := os.WriteFile(fpath, data, 0644); err != nil {
			return 0, fmt.Errorf("writing %s: %w", fpath, err)
		}
	}

	fmt.Printf("  %s: %d widgets, %d rows, %s bytes\n", filename, len(snap.Widgets), snap.TotalRows, formatSize(size))
	return size, nil
}

func formatSize(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	s := fmt.Sprintf("%d", n)
	// insert commas
	var result []byte
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}

// PushSnapshot adds every widget of snap to the board served at serverURL.
// Widgets the target already holds are reported and skipped.
func PushSnapshot(ctx context.Context, snap Snapshot, serverURL string) (int, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	url := strings.TrimRight(serverURL, "/") + "/api/widgets"

	pushed := 0
	for _, w := range snap.Widgets {
		data, err := json.Marshal(w)
		if err != nil {
			return pushed, fmt.Errorf("marshaling widget '%s': %w", w.ID, err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return pushed, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return pushed, fmt.Errorf("pushing widget '%s': %w", w.ID, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusConflict:
			fmt.Printf("  skipped %s: %s\n", w.ID, strings.TrimSpace(string(body)))
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return pushed, fmt.Errorf("server returned %d for '%s': %s", resp.StatusCode, w.ID, string(body))
		default:
			pushed++
			fmt.Printf("  pushed %s\n", w.ID)
		}
	}
	return pushed, nil
}
