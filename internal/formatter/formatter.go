// package formatter renders song listings and pull manifests for the CLI
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/songrelay/internal/models"
	"github.com/desertthunder/songrelay/internal/shared"
)

// Formats accepted by [FormatListings].
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
)

// Formats lists the supported listing formats, in help-text order.
var Formats = []string{FormatText, FormatJSON, FormatCSV, FormatMarkdown}

// FormatListings renders listings in the named format. An empty format means text.
func FormatListings(listings []models.SongListing, format string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText, "txt":
		return ListingsToText(listings)
	case FormatJSON:
		return shared.MarshalJSON(listings, true)
	case FormatCSV:
		return ListingsToCSV(listings)
	case FormatMarkdown, "md":
		return ListingsToMarkdown(listings)
	default:
		return nil, fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidFlag, format, strings.Join(Formats, ", "))
	}
}

// ListingsToCSV converts listings to CSV with columns: Name, Slug, URL
func ListingsToCSV(listings []models.SongListing) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Name", "Slug", "URL"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, l := range listings {
		if err := writer.Write([]string{l.Name, l.Slug, l.URL}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ListingsToMarkdown renders listings as a numbered list of links.
func ListingsToMarkdown(listings []models.SongListing) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Songs\n\n")
	buf.WriteString(fmt.Sprintf("**Songs**: %d\n\n", len(listings)))

	for i, l := range listings {
		buf.WriteString(fmt.Sprintf("%d. [%s](%s) `%s`\n", i+1, escapeMarkdown(l.Name), l.URL, l.Slug))
	}
	return buf.Bytes(), nil
}

// ListingsToText converts listings to plain text
func ListingsToText(listings []models.SongListing) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Songs: %d\n\n", len(listings)))
	for i, l := range listings {
		buf.WriteString(fmt.Sprintf("%d. %s (%s)\n", i+1, l.Name, l.Slug))
		if l.URL != "" {
			buf.WriteString(fmt.Sprintf("   %s\n", l.URL))
		}
	}
	return buf.Bytes(), nil
}

// PullSummary renders a one-screen summary of a pull manifest.
func PullSummary(m *models.PullManifest) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Folder: %s\n", m.FolderID))
	buf.WriteString(fmt.Sprintf("Output: %s\n", m.OutputDir))
	buf.WriteString(fmt.Sprintf("Pulled: %d/%d (%s)\n", m.Succeeded, m.Total, FormatBytes(m.TotalBytes)))
	if !m.StartedAt.IsZero() && !m.FinishedAt.IsZero() {
		buf.WriteString(fmt.Sprintf("Took: %s\n", m.FinishedAt.Sub(m.StartedAt).Round(time.Millisecond)))
	}

	if m.Failed > 0 {
		buf.WriteString(fmt.Sprintf("\nFailed: %d\n", m.Failed))
		for _, r := range m.Results {
			if !r.Success {
				buf.WriteString(fmt.Sprintf("  - %s: %s\n", r.Name, r.Error))
			}
		}
	}
	return buf.Bytes()
}

// WritePullManifest writes the manifest as indented JSON, creating the parent directory if needed.
func WritePullManifest(m *models.PullManifest, path string) error {
	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// FormatBytes renders n with a binary unit suffix (B, KiB, MiB, GiB).
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := int64(unit), 0
	for v := n / unit; v >= unit && exp < 2; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMG"[exp])
}

func escapeMarkdown(s string) string {
	return strings.NewReplacer(`[`, `\[`, `]`, `\]`).Replace(s)
}
