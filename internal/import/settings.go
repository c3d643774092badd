package importsettings

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"hijack-addon/hijack/internal/hostconfig"
)

// Result summarizes an import run.
type Result struct {
	Imported int
	Errors   []string
}

// Importer loads host settings from CSV into the store.
type Importer struct {
	store *hostconfig.Store
}

// NewImporter creates a new settings importer
func NewImporter(store *hostconfig.Store) *Importer {
	return &Importer{store: store}
}

// ImportFile imports the CSV file at csvPath.
func (i *Importer) ImportFile(ctx context.Context, csvPath string) (*Result, error) {
	log.Info().Str("csv", csvPath).Msg("Starting settings import")

	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	res, err := i.Import(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to import settings: %w", err)
	}
	return res, nil
}

// Import reads a CSV with "key" and "value" columns. Rows that fail are
// recorded in Result.Errors and skipped; values go through
// hostconfig.ParseValue.
func (i *Importer) Import(ctx context.Context, r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	keyIdx := findColumnIndex(header, "key")
	valueIdx := findColumnIndex(header, "value")
	if keyIdx < 0 || valueIdx < 0 {
		return nil, fmt.Errorf("CSV header must contain 'key' and 'value' columns, got %v", header)
	}

	res := &Result{}
	line := 1
	for {
		line++
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Warn().Err(err).Int("line", line).Msg("Error reading CSV line")
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		key := strings.TrimSpace(field(record, keyIdx))
		if key == "" {
			if len(record) == 1 && record[0] == "" {
				continue
			}
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: empty key", line))
			continue
		}

		if err := i.store.Set(ctx, key, hostconfig.ParseValue(field(record, valueIdx))); err != nil {
			log.Error().Err(err).Int("line", line).Str("key", key).Msg("Failed to store setting")
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		res.Imported++
	}

	log.Info().
		Int("imported", res.Imported).
		Int("errors", len(res.Errors)).
		Msg("Import summary")

	return res, nil
}

func findColumnIndex(header []string, columnName string) int {
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), columnName) {
			return i
		}
	}
	return -1
}

func field(record []string, index int) string {
	if index >= 0 && index < len(record) {
		return record[index]
	}
	return ""
}
