package classifier

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Sample is one labelled description from the training corpus.
type Sample struct {
	Description string
	Category    string
}

// LoadCorpus reads a CSV whose header has a description column and a
// category (or predicted category) column, matched case-insensitively. Rows
// missing either value are skipped.
func LoadCorpus(r io.Reader) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read corpus header: %w", err)
	}

	descCol, catCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "description":
			if descCol < 0 {
				descCol = i
			}
		case "category", "predicted category":
			if catCol < 0 {
				catCol = i
			}
		}
	}
	if descCol < 0 || catCol < 0 {
		return nil, fmt.Errorf("corpus header %v: need description and category columns", header)
	}

	var out []Sample
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read corpus line %d: %w", line, err)
		}
		if descCol >= len(rec) || catCol >= len(rec) {
			continue
		}
		s := Sample{
			Description: strings.TrimSpace(rec[descCol]),
			Category:    strings.TrimSpace(rec[catCol]),
		}
		if s.Description == "" || s.Category == "" {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// LoadCorpusFile opens path and calls LoadCorpus.
func LoadCorpusFile(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()
	return LoadCorpus(f)
}
