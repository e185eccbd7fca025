// package formatter renders lists and their items as CSV, Markdown, plain text, YAML and JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/aura/internal/models"
	"github.com/desertthunder/aura/internal/shared"
	"gopkg.in/yaml.v3"
)

// Supported output formats.
const (
	FormatText     = "txt"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
	FormatYAML     = "yaml"
	FormatJSON     = "json"
)

// ParseFormat normalizes a format name, accepting common aliases.
func ParseFormat(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "txt", "text", "plain":
		return FormatText, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "yml", "yaml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, name)
}

// ExportToCSV converts a ListExport to CSV format with columns: Index, ID, Title, Kind, List, State, Changed
func ExportToCSV(export *models.ListExport) ([]byte, error) {
	return itemsToCSV(export.Items)
}

func itemsToCSV(items []models.TaskItem) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Index", "ID", "Title", "Kind", "List", "State", "Changed"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range items {
		record := []string{
			strconv.Itoa(item.Index),
			item.ID,
			item.Title,
			string(item.Kind),
			item.Label,
			string(item.State),
			formatTime(item.ChangedAt),
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

// ExportToMarkdown converts a ListExport to a Markdown checklist
func ExportToMarkdown(export *models.ListExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", export.Title))
	buf.WriteString(fmt.Sprintf("**Items**: %d\n", len(export.Items)))
	if !export.CreatedAt.IsZero() {
		buf.WriteString(fmt.Sprintf("**Created**: %s\n", formatTime(export.CreatedAt)))
	}
	buf.WriteString("\n## Items\n\n")

	for _, item := range export.Items {
		buf.WriteString(markdownLine(item))
	}

	return buf.Bytes(), nil
}

func markdownLine(item models.TaskItem) string {
	box := "[ ]"
	if item.State == models.StateDone {
		box = "[x]"
	}
	kind := ""
	if item.Kind != "" && item.Kind != models.KindTask {
		kind = fmt.Sprintf(" _(%s)_", item.Kind)
	}
	return fmt.Sprintf("- %s %s%s\n", box, item.Title, kind)
}

// ExportToText converts a ListExport to plain text format
func ExportToText(export *models.ListExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("List: %s\n", export.Title))
	buf.WriteString(fmt.Sprintf("Items: %d\n\n", len(export.Items)))

	for i, item := range export.Items {
		buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, item.Title))
	}

	return buf.Bytes(), nil
}

// ExportToYAML converts a ListExport to YAML
func ExportToYAML(export *models.ListExport) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(export); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// ToMetadataJSON generates a JSON representation of list metadata (without items)
func ToMetadataJSON(export *models.ListExport) ([]byte, error) {
	meta := struct {
		ID        string    `json:"id"`
		Title     string    `json:"title"`
		CreatedAt time.Time `json:"createdAt"`
		Items     int       `json:"items"`
	}{export.ID, export.Title, export.CreatedAt, len(export.Items)}
	return shared.MarshalJSON(meta, true)
}

// RenderItems writes a view of items to w in format.
//
// Text output groups rows under their list label and shows ordinals when present.
func RenderItems(w io.Writer, items []models.TaskItem, format string) error {
	format, err := ParseFormat(format)
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case FormatCSV:
		data, err = itemsToCSV(items)
	case FormatJSON:
		data, err = shared.MarshalJSON(items, true)
		data = append(data, '\n')
	case FormatYAML:
		data, err = yaml.Marshal(items)
	case FormatMarkdown:
		data = itemsToMarkdown(items)
	default:
		data = itemsToText(items)
	}
	if err != nil {
		return err
	}

	_, err = w.Write(data)
	return err
}

func itemsToText(items []models.TaskItem) []byte {
	var buf bytes.Buffer
	label := "\x00"
	for _, item := range items {
		if item.Label != label {
			label = item.Label
			if label != "" {
				buf.WriteString(fmt.Sprintf("%s:\n", label))
			}
		}
		if item.Index > 0 {
			buf.WriteString(fmt.Sprintf("  %d. %s\n", item.Index, item.Title))
		} else {
			buf.WriteString(fmt.Sprintf("  - %s\n", item.Title))
		}
	}
	return buf.Bytes()
}

func itemsToMarkdown(items []models.TaskItem) []byte {
	var buf bytes.Buffer
	label := "\x00"
	for _, item := range items {
		if item.Label != label {
			label = item.Label
			if buf.Len() > 0 {
				buf.WriteString("\n")
			}
			if label != "" {
				buf.WriteString(fmt.Sprintf("## %s\n\n", label))
			}
		}
		buf.WriteString(markdownLine(item))
	}
	return buf.Bytes()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	ItemsFile    string
	MetadataFile string
}

// WriteCSVExport exports a list to CSV format with accompanying metadata JSON file.
//
// Defaults to the list ID as the base filename & creates {base}_items.csv and {base}_metadata.json
func WriteCSVExport(export *models.ListExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.ID
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	itemsFile := baseFilepath + "_items.csv"
	if err := os.WriteFile(itemsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		ItemsFile:    itemsFile,
		MetadataFile: metadataFile,
	}, nil
}

// WriteMarkdownExport exports a list to {dir}/README.md, creating the directory.
//
// Directory name defaults to the list ID.
func WriteMarkdownExport(export *models.ListExport, outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = export.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	mdData, err := ExportToMarkdown(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return mdFile, nil
}

// WriteTextExport exports a list to plain text format.
//
// Defaults to {list.ID}_items.txt as the filename.
func WriteTextExport(export *models.ListExport, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_items.txt", export.ID)
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteYAMLExport exports a list to YAML. Defaults to {list.ID}.yaml as the filename.
func WriteYAMLExport(export *models.ListExport, path string) (string, error) {
	if path == "" {
		path = export.ID + ".yaml"
	}

	data, err := ExportToYAML(export)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}
	return path, nil
}

// WriteManifest writes v as indented JSON to path.
func WriteManifest(v any, path string) error {
	data, err := shared.MarshalJSON(v, true)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
