// package formatter exports job history in various formats (CSV, Markdown, plain text, JSON) and fetches result images
package formatter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/thumbx/internal/models"
	"github.com/desertthunder/thumbx/internal/shared"
)

// Supported export formats
const (
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
	FormatJSON     = "json"
)

const timeLayout = "2006-01-02 15:04"

// JobView is the exported shape of a [models.JobRecord].
type JobView struct {
	ID           string    `json:"id"`
	Sequence     int       `json:"sequence"`
	Kind         string    `json:"kind"`
	Status       string    `json:"status"`
	RemoteID     string    `json:"remote_id,omitempty"`
	ResultURL    string    `json:"result_url,omitempty"`
	Message      string    `json:"message,omitempty"`
	Summary      string    `json:"summary,omitempty"`
	CreditsSpent int       `json:"credits_spent"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewJobView flattens job for export.
func NewJobView(job *models.JobRecord) JobView {
	return JobView{
		ID:           job.ID(),
		Sequence:     job.Sequence(),
		Kind:         string(job.Kind()),
		Status:       string(job.Status()),
		RemoteID:     job.RemoteID(),
		ResultURL:    job.ResultURL(),
		Message:      job.Message(),
		Summary:      job.Summary(),
		CreditsSpent: job.CreditsSpent(),
		CreatedAt:    job.CreatedAt(),
	}
}

// ExportToCSV converts jobs to CSV with columns: ID, Sequence, Kind, Status, Credits, Result, Summary, Created
func ExportToCSV(jobs []*models.JobRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Sequence", "Kind", "Status", "Credits", "Result", "Summary", "Created"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, job := range jobs {
		record := []string{
			job.ID(),
			strconv.Itoa(job.Sequence()),
			string(job.Kind()),
			string(job.Status()),
			strconv.Itoa(job.CreditsSpent()),
			job.ResultURL(),
			job.Summary(),
			job.CreatedAt().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders jobs as a Markdown table under title
func ExportToMarkdown(jobs []*models.JobRecord, title string) ([]byte, error) {
	var buf bytes.Buffer

	if title == "" {
		title = "Job History"
	}
	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Jobs**: %d\n", len(jobs))
	fmt.Fprintf(&buf, "**Credits spent**: %d\n\n", creditsSpent(jobs))

	if len(jobs) == 0 {
		buf.WriteString("_No jobs yet._\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("| # | Kind | Status | Created | Summary | Result |\n")
	buf.WriteString("|---|------|--------|---------|---------|--------|\n")
	for _, job := range jobs {
		result := ""
		if u := job.ResultURL(); u != "" && !strings.HasPrefix(u, "data:") {
			result = fmt.Sprintf("[open](%s)", u)
		}
		fmt.Fprintf(&buf, "| %d | %s | %s | %s | %s | %s |\n",
			job.Sequence(),
			job.Kind(),
			job.Status(),
			job.CreatedAt().Format(timeLayout),
			escapeCell(shared.Truncate(job.Summary(), 60)),
			result,
		)
	}

	return buf.Bytes(), nil
}

// ExportToText converts jobs to plain text, one line per job
func ExportToText(jobs []*models.JobRecord) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Jobs: %d\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Fprintf(&buf, "%d. [%s] %s %s", job.Sequence(), job.Status(), job.Kind(), job.CreatedAt().Format(timeLayout))
		if s := job.Summary(); s != "" {
			fmt.Fprintf(&buf, " - %s", s)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts jobs to indented JSON
func ExportToJSON(jobs []*models.JobRecord) ([]byte, error) {
	views := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, NewJobView(job))
	}
	return json.MarshalIndent(views, "", "  ")
}

// Export dispatches on format. JSON is the default.
func Export(jobs []*models.JobRecord, format string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(jobs)
	case FormatMarkdown, "md":
		return ExportToMarkdown(jobs, "")
	case FormatText, "text":
		return ExportToText(jobs)
	case FormatJSON, "":
		return ExportToJSON(jobs)
	}
	return nil, fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidArgument, format)
}

// WriteHistory exports jobs to path.
//
// Defaults to history.{ext} in the working directory.
func WriteHistory(jobs []*models.JobRecord, format, path string) (string, error) {
	data, err := Export(jobs, format)
	if err != nil {
		return "", err
	}
	if path == "" {
		path = "history." + Extension(format)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write history: %w", err)
	}
	return path, nil
}

// Extension returns the file extension for format
func Extension(format string) string {
	switch format {
	case FormatCSV:
		return "csv"
	case FormatMarkdown, "md":
		return "md"
	case FormatText, "text":
		return "txt"
	}
	return "json"
}

// DownloadImage fetches an image from url, which may also be an inline data:image URL.
// It returns the bytes and the content type.
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, string, error) {
	if url == "" {
		return nil, "", fmt.Errorf("%w: empty URL provided", shared.ErrMissingArgument)
	}
	if strings.HasPrefix(url, "data:") {
		return decodeDataURL(url)
	}

	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image data: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(imageData)
	}
	return imageData, contentType, nil
}

// ImageExtension picks a file extension for an image content type
func ImageExtension(contentType string) string {
	switch {
	case strings.Contains(contentType, "png"):
		return ".png"
	case strings.Contains(contentType, "webp"):
		return ".webp"
	case strings.Contains(contentType, "gif"):
		return ".gif"
	case strings.Contains(contentType, "mp4"):
		return ".mp4"
	}
	return ".jpg"
}

func decodeDataURL(url string) ([]byte, string, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(url, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: malformed data URL", shared.ErrInvalidInput)
	}
	contentType, encoding, _ := strings.Cut(meta, ";")
	if encoding != "base64" {
		return []byte(payload), contentType, nil
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: data URL: %v", shared.ErrInvalidInput, err)
	}
	return data, contentType, nil
}

func creditsSpent(jobs []*models.JobRecord) int {
	total := 0
	for _, job := range jobs {
		total += job.CreditsSpent()
	}
	return total
}

func escapeCell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}
