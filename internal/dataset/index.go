package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/tphakala/exoplanet-go/internal/conf"
	"github.com/tphakala/exoplanet-go/internal/errors"
)

// Index is an immutable in-memory copy of one dataset table.
type Index struct {
	spec    Spec
	path    string
	header  []string
	columns map[string]int
	rows    [][]string
	byID    map[string]int // identifier to first row carrying it
}

// Row is one candidate record. It stays valid for the lifetime of its Index.
type Row struct {
	index  *Index
	fields []string
}

// Load resolves spec.CSVFile against the search paths and parses it.
// A missing file fails with a not-found error.
func Load(spec Spec) (*Index, error) {
	path, ok := conf.ResolvePath(spec.CSVFile, spec.SearchPaths)
	if !ok {
		return nil, errors.Newf("dataset file %s not found for %s", spec.CSVFile, spec.Name).
			Component("dataset").
			Category(errors.CategoryNotFound).
			Context("dataset", spec.Name).
			Context("search_paths", len(spec.SearchPaths)).
			Build()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("dataset").
			Category(errors.CategoryFileIO).
			FileContext(path).
			Build()
	}
	defer func() { _ = f.Close() }()

	idx, err := parse(spec, f)
	if err != nil {
		return nil, err
	}
	idx.path = path
	return idx, nil
}

func parse(spec Spec, r io.Reader) (*Index, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, errors.New(err).
			Component("dataset").
			Category(errors.CategoryFileParsing).
			Context("dataset", spec.Name).
			Context("operation", "read_header").
			Build()
	}

	idx := &Index{
		spec:    spec,
		header:  header,
		columns: make(map[string]int, len(header)),
		byID:    make(map[string]int),
	}
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		header[i] = name
		if _, dup := idx.columns[name]; !dup {
			idx.columns[name] = i
		}
	}

	idCol, ok := idx.columns[spec.IDColumn]
	if !ok {
		return nil, errors.Newf("identifier column %s missing from %s", spec.IDColumn, spec.Name).
			Component("dataset").
			Category(errors.CategoryFeatureMismatch).
			Context("dataset", spec.Name).
			Build()
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.New(err).
				Component("dataset").
				Category(errors.CategoryFileParsing).
				Context("dataset", spec.Name).
				Context("row", len(idx.rows)+1).
				Build()
		}

		idx.rows = append(idx.rows, record)
		if idCol < len(record) {
			id := strings.TrimSpace(record[idCol])
			if _, seen := idx.byID[id]; !seen && id != "" {
				idx.byID[id] = len(idx.rows) - 1
			}
		}
	}

	return idx, nil
}

// Spec returns the dataset description the index was loaded from
func (idx *Index) Spec() Spec { return idx.spec }

// Path returns the resolved file path
func (idx *Index) Path() string { return idx.path }

// Header returns the column names in file order
func (idx *Index) Header() []string { return idx.header }

// Len returns the number of rows
func (idx *Index) Len() int { return len(idx.rows) }

// HasColumn reports whether the table has the named column
func (idx *Index) HasColumn(name string) bool {
	_, ok := idx.columns[name]
	return ok
}

// Lookup finds the first row whose identifier equals id exactly.
func (idx *Index) Lookup(id string) (Row, error) {
	if i, ok := idx.byID[strings.TrimSpace(id)]; ok {
		return Row{index: idx, fields: idx.rows[i]}, nil
	}
	return Row{}, errors.Newf("%s %s not found in %s dataset", idx.spec.IDField, id, idx.spec.Name).
		Component("dataset").
		Category(errors.CategoryNotFound).
		DatasetContext(idx.spec.Name, id).
		Build()
}

// Search returns the first row whose identifier contains query, ignoring case.
func (idx *Index) Search(query string) (Row, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	idCol := idx.columns[idx.spec.IDColumn]

	if needle != "" {
		for _, record := range idx.rows {
			if idCol < len(record) && strings.Contains(strings.ToLower(record[idCol]), needle) {
				return Row{index: idx, fields: record}, nil
			}
		}
	}

	return Row{}, errors.Newf("Exoplanet with ID %s not found in %s dataset", query, idx.spec.Name).
		Component("dataset").
		Category(errors.CategoryNotFound).
		DatasetContext(idx.spec.Name, query).
		Build()
}

// SecondaryKey returns the numeric survey ID for id, when the dataset has one.
func (idx *Index) SecondaryKey(id string) (int64, bool) {
	if idx.spec.SecondaryKey == "" {
		return 0, false
	}
	row, err := idx.Lookup(id)
	if err != nil {
		return 0, false
	}
	return row.Int(idx.spec.SecondaryKey)
}

// ID returns the candidate identifier
func (r Row) ID() string {
	v, _ := r.Get(r.index.spec.IDColumn)
	return strings.TrimSpace(v)
}

// Disposition returns the catalog disposition, empty when absent
func (r Row) Disposition() string {
	if r.index.spec.Disposition == "" {
		return ""
	}
	v, _ := r.Get(r.index.spec.Disposition)
	return strings.TrimSpace(v)
}

// Get returns the raw cell for column. ok is false when the column does not exist.
func (r Row) Get(column string) (string, bool) {
	i, ok := r.index.columns[column]
	if !ok {
		return "", false
	}
	if i >= len(r.fields) {
		return "", true
	}
	return r.fields[i], true
}

// Float parses column as a float. Empty, NaN and unparsable cells report ok=false.
func (r Row) Float(column string) (float64, bool) {
	raw, ok := r.Get(column)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Int parses column as an integer, accepting values written as floats such as "10797460.0"
func (r Row) Int(column string) (int64, bool) {
	raw, ok := r.Get(column)
	if !ok {
		return 0, false
	}
	raw = strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, true
	}
	f, ok := r.Float(column)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

// Map returns the row as column to value. Numeric cells become float64,
// empty cells become nil.
func (r Row) Map() map[string]any {
	out := make(map[string]any, len(r.index.header))
	for i, name := range r.index.header {
		if i >= len(r.fields) {
			out[name] = nil
			continue
		}
		cell := strings.TrimSpace(r.fields[i])
		if cell == "" {
			out[name] = nil
			continue
		}
		if v, err := strconv.ParseFloat(cell, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[name] = v
		} else {
			out[name] = cell
		}
	}
	return out
}
