package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	appErr "github.com/xxxsen/reframe/internal/pkg/errors"
)

// BaseRow is one passage of the base dataset: the full text, the distorted
// span extracted from it and the dominant distortion label.
type BaseRow struct {
	Text  string
	Span  string
	Label string
}

// LabeledRow is a ready-to-train (text, label) pair.
type LabeledRow struct {
	Text  string
	Label string
}

type Columns struct {
	Text  string
	Span  string
	Label string
}

func ReadBase(r io.Reader, cols Columns) ([]BaseRow, error) {
	header, records, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	idx, err := columnIndex(header, cols.Text, cols.Span, cols.Label)
	if err != nil {
		return nil, err
	}
	rows := make([]BaseRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, BaseRow{
			Text:  field(rec, idx[0]),
			Span:  field(rec, idx[1]),
			Label: field(rec, idx[2]),
		})
	}
	return rows, nil
}

// ReadLabeled reads a dataset with "text" and "label" columns.
func ReadLabeled(r io.Reader) ([]LabeledRow, error) {
	header, records, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	idx, err := columnIndex(header, "text", "label")
	if err != nil {
		return nil, err
	}
	rows := make([]LabeledRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, LabeledRow{Text: field(rec, idx[0]), Label: field(rec, idx[1])})
	}
	return rows, nil
}

func LoadBaseFile(path string, cols Columns) ([]BaseRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open base dataset: %w", err)
	}
	defer file.Close()
	return ReadBase(file, cols)
}

func LoadLabeledFile(path string) ([]LabeledRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open augmented dataset: %w", err)
	}
	defer file.Close()
	return ReadLabeled(file)
}

func WriteLabeled(w io.Writer, rows []LabeledRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"text", "label"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write([]string{row.Text, row.Label}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readCSV(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%w: dataset has no header", appErr.ErrSchema)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read dataset header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read dataset: %w", err)
	}
	return header, records, nil
}

func columnIndex(header []string, names ...string) ([]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(h)] = i
	}
	idx := make([]int, len(names))
	var missing []string
	for i, name := range names {
		p, ok := pos[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		idx[i] = p
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s", appErr.ErrSchema, strings.Join(missing, ", "))
	}
	return idx, nil
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
