// Package roster parses uploaded roster exports into the row shape the
// reconciliation engine consumes. Values are passed through as-is; all
// trimming and canonicalization happens inside the engine.
package roster

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/yigit/machzor/internal/app/models"
	"github.com/yigit/machzor/internal/pkg/apperrors"
)

// Roster fields addressable from a header cell.
const (
	fieldIDNumber  = "idNumber"
	fieldLastName  = "lastName"
	fieldFirstName = "firstName"
	fieldGrade     = "grade"
	fieldStream    = "stream"
	fieldGender    = "gender"
	fieldTrack     = "track"
)

// headerAliases maps header spellings seen in school information system
// exports onto roster fields. Hebrew exports carry the original column
// names; English ones come from spreadsheet re-exports. Lookup happens
// after normalizeHeader, so dots and quote marks are already gone.
var headerAliases = map[string]string{
	"idnumber":   fieldIDNumber,
	"id_number":  fieldIDNumber,
	"id":         fieldIDNumber,
	"תז":         fieldIDNumber,
	"תעודת זהות": fieldIDNumber,
	"מספר זהות":  fieldIDNumber,

	"lastname":  fieldLastName,
	"last_name": fieldLastName,
	"surname":   fieldLastName,
	"שם משפחה":  fieldLastName,
	"משפחה":     fieldLastName,

	"firstname":  fieldFirstName,
	"first_name": fieldFirstName,
	"שם פרטי":    fieldFirstName,
	"פרטי":       fieldFirstName,

	"grade": fieldGrade,
	"class": fieldGrade,
	"שכבה":  fieldGrade,

	"stream": fieldStream,
	"כיתה":   fieldStream,

	"gender": fieldGender,
	"sex":    fieldGender,
	"מין":    fieldGender,
	"מגדר":   fieldGender,

	"track": fieldTrack,
	"מגמה":  fieldTrack,
	"מסלול": fieldTrack,
}

// headerCleaner strips the punctuation that varies between exports of the
// same column: abbreviation marks (ת"ז, ת.ז. and friends), quotes and the
// UTF-8 BOM some spreadsheet tools prepend to the first cell.
var headerCleaner = strings.NewReplacer(
	"﻿", "",
	"׳", "",
	"״", "",
	"'", "",
	"\"", "",
	".", "",
)

func normalizeHeader(cell string) string {
	return strings.ToLower(strings.TrimSpace(headerCleaner.Replace(cell)))
}

// Parse dispatches on the file extension. Only CSV is accepted; xlsx
// exports have to be re-saved as CSV first.
func Parse(fileName string, r io.Reader) ([]models.RosterRow, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv", ".txt":
		return ParseCSV(r)
	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedRoster, fileName)
	}
}

// ParseCSV reads one roster export. The first non-blank record is the
// header; columns that resolve to no known field are ignored, so exports
// can carry extra columns without breaking the upload.
func ParseCSV(r io.Reader) ([]models.RosterRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := readHeader(reader)
	if err != nil {
		return nil, err
	}
	columns, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var rows []models.RosterRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading roster row: %w", err)
		}
		if isBlankRecord(record) {
			continue
		}

		get := func(field string) string {
			i, ok := columns[field]
			if !ok || i >= len(record) {
				return ""
			}
			return record[i]
		}
		rows = append(rows, models.RosterRow{
			IDNumber:  get(fieldIDNumber),
			LastName:  get(fieldLastName),
			FirstName: get(fieldFirstName),
			Grade:     get(fieldGrade),
			Stream:    get(fieldStream),
			Gender:    get(fieldGender),
			Track:     get(fieldTrack),
		})
	}

	if len(rows) == 0 {
		return nil, apperrors.ErrEmptyRoster
	}
	return rows, nil
}

// readHeader skips leading blank records and returns the first real one.
func readHeader(reader *csv.Reader) ([]string, error) {
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil, apperrors.ErrEmptyRoster
		}
		if err != nil {
			return nil, fmt.Errorf("error reading roster header: %w", err)
		}
		if !isBlankRecord(record) {
			return record, nil
		}
	}
}

// resolveColumns maps each roster field to its column position. When an
// export repeats a column the first occurrence wins.
func resolveColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int)
	for i, cell := range header {
		field, ok := headerAliases[normalizeHeader(cell)]
		if !ok {
			continue
		}
		if _, seen := columns[field]; !seen {
			columns[field] = i
		}
	}

	for _, field := range []string{fieldIDNumber, fieldLastName, fieldFirstName} {
		if _, ok := columns[field]; !ok {
			return nil, fmt.Errorf("%w: missing %s column", apperrors.ErrUnsupportedRoster, field)
		}
	}
	return columns, nil
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
