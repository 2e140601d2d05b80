package table

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/surveykit/poststrat/pkg/errors"
)

// Row is one dataset record keyed by column name. A missing cell is an
// empty string; callers decide what missingness means for each column.
type Row map[string]string

// Get returns the trimmed value of col and whether it is non-empty.
func (r Row) Get(col string) (string, bool) {
	v := strings.TrimSpace(r[col])
	return v, v != ""
}

// Read parses a tab-separated dataset with a header row from r.
// Every name in required must appear in the header, else the read fails
// with an INVALID_COLUMN error. Short rows are tolerated (trailing cells
// read as missing); headers are trimmed of surrounding whitespace.
func Read(r io.Reader, required ...string) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1 // ragged rows are common in survey exports

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "dataset has no header row")
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return nil, errors.New(errors.ErrCodeInvalidColumn, "missing column: %s", name)
		}
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read row %d", len(rows)+2)
		}
		row := make(Row, len(header))
		for name, i := range index {
			if i < len(rec) {
				row[name] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadFile reads a tab-separated dataset from path.
// See [Read] for the required-column contract.
func ReadFile(path string, required ...string) ([]Row, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeFileNotFound, "dataset not found: %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "open %s", path)
	}
	defer f.Close()
	return Read(f, required...)
}
