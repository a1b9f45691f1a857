package corpus

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Column names of the site table.
const (
	ColumnID          = "APPIC Number"
	ColumnDepartment  = "Site / Department"
	ColumnCity        = "City"
	ColumnState       = "State"
	ColumnCountry     = "Country"
	ColumnDueDate     = "Application Due Date"
	ColumnDescription = "web_data"
	ColumnWebsite     = "Website"
)

var requiredColumns = []string{
	ColumnID, ColumnDepartment, ColumnCity, ColumnState,
	ColumnCountry, ColumnDueDate, ColumnDescription,
}

var displayColumns = map[string]bool{
	ColumnID: true, ColumnDepartment: true, ColumnCity: true, ColumnState: true,
	ColumnCountry: true, ColumnDueDate: true, ColumnDescription: true, ColumnWebsite: true,
}

// LoadFile reads a site table from a CSV file. The corpus version is the
// SHA-256 of the file contents.
func LoadFile(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}
	sum := sha256.Sum256(data)
	return Load(bytes.NewReader(data), hex.EncodeToString(sum[:]))
}

// Load parses a site table. Columns other than the display columns whose
// values are all 0, 1 or empty become category flags.
func Load(r io.Reader, version string) (*Corpus, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("corpus is missing column %q", name)
		}
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus rows: %w", err)
	}

	flagNames := detectFlags(header, rows)
	records := make([]SiteRecord, 0, len(rows))
	for line, row := range rows {
		field := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		id, err := parseID(field(ColumnID))
		if err != nil {
			return nil, fmt.Errorf("corpus row %d: %w", line+2, err)
		}
		rec := SiteRecord{
			ID:          id,
			Department:  field(ColumnDepartment),
			City:        field(ColumnCity),
			State:       field(ColumnState),
			Country:     field(ColumnCountry),
			DueDate:     field(ColumnDueDate),
			Description: field(ColumnDescription),
			Website:     field(ColumnWebsite),
			Flags:       make(map[string]bool, len(flagNames)),
		}
		for _, name := range flagNames {
			rec.Flags[name] = isTrue(field(name))
		}
		records = append(records, rec)
	}

	return New(records, flagNames, version)
}

// WriteCSV writes the corpus back out with the display columns first and
// flags after, in the shape Load accepts.
func (c *Corpus) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	header := append([]string{}, requiredColumns...)
	header = append(header, ColumnWebsite)
	header = append(header, c.FlagNames...)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, rec := range c.Records {
		row := []string{
			strconv.Itoa(rec.ID), rec.Department, rec.City, rec.State,
			rec.Country, rec.DueDate, rec.Description, rec.Website,
		}
		for _, name := range c.FlagNames {
			if rec.Flags[name] {
				row = append(row, "1")
			} else {
				row = append(row, "0")
			}
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func detectFlags(header []string, rows [][]string) []string {
	var flags []string
	for i, raw := range header {
		name := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		if name == "" || displayColumns[name] {
			continue
		}
		boolean := true
		for _, row := range rows {
			if i >= len(row) {
				continue
			}
			switch strings.TrimSpace(row[i]) {
			case "", "0", "1", "0.0", "1.0":
			default:
				boolean = false
			}
			if !boolean {
				break
			}
		}
		if boolean {
			flags = append(flags, name)
		}
	}
	return flags
}

func isTrue(v string) bool {
	return v == "1" || v == "1.0"
}

// parseID accepts integer identifiers, also written as "1177.0" by
// spreadsheet exports.
func parseID(v string) (int, error) {
	if id, err := strconv.Atoi(v); err == nil {
		return id, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("invalid site identifier %q", v)
	}
	return int(f), nil
}
