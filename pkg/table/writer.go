package table

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Distribution categories used in result tables.
const (
	CategoryWeighted  = "weighted"  // target survey under post-stratification weights
	CategoryReference = "reference" // reference survey, unweighted
)

// ResultRow is one line of the comparison output: the estimated probability
// mass of one outcome value under one distribution.
type ResultRow struct {
	OutcomeValue  float64 `json:"outcome_value"`
	EstimatedMass float64 `json:"estimated_mass"`
	Category      string  `json:"distribution_category"`
	Field         string  `json:"outcome_field"`
}

// resultHeader is the column order of the delimited output.
var resultHeader = []string{"outcome_value", "estimated_mass", "distribution_category", "outcome_field"}

// WriteResults encodes rows as tab-separated text with a header row.
func WriteResults(w io.Writer, rows []ResultRow) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := cw.Write(resultHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			strconv.FormatFloat(r.OutcomeValue, 'g', -1, 64),
			strconv.FormatFloat(r.EstimatedMass, 'g', -1, 64),
			r.Category,
			r.Field,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteResultsJSON encodes rows as indented JSON.
func WriteResultsJSON(w io.Writer, rows []ResultRow) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportResults writes rows to a file at path, choosing the encoding by
// extension: ".json" gets JSON, anything else tab-separated text.
// This is a convenience wrapper around [WriteResults] and [WriteResultsJSON].
func ExportResults(path string, rows []ResultRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if len(path) > 5 && path[len(path)-5:] == ".json" {
		return WriteResultsJSON(f, rows)
	}
	return WriteResults(f, rows)
}
