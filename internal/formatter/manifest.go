package formatter

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// DownloadEntry describes one job's downloaded results.
type DownloadEntry struct {
	JobID  string   `json:"job_id"`
	Kind   string   `json:"kind"`
	Status string   `json:"status"`
	Files  []string `json:"files,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// DownloadManifest summarizes a results download.
type DownloadManifest struct {
	CreatedAt  time.Time       `json:"created_at"`
	Directory  string          `json:"directory"`
	Total      int             `json:"total"`
	Successful int             `json:"successful"`
	Failed     int             `json:"failed"`
	Entries    []DownloadEntry `json:"entries"`
}

// WriteManifest writes m as indented JSON to path.
func WriteManifest(m DownloadManifest, path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
