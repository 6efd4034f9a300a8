// Package outcome records the pre-disconnection values of each removed
// element in both models and writes the sorted cross-model mismatch
// report.
package outcome

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"gridcontg/internal/casefs"
	"gridcontg/internal/format"
	"gridcontg/internal/model"
)

// Separator of the report columns.
const Separator = ';'

// Row is one element's pair of values in both models and their
// relative differences.
type Row struct {
	Name   string
	A1, B1 float64
	A2, B2 float64
	Diff1  float64
	Diff2  float64
	Score  float64
}

// Quantities returns the names of the two compared values of class:
// voltage magnitude and angle for buses, active and reactive power
// otherwise.
func Quantities(class model.Class) (string, string) {
	if class == model.Bus {
		return "U", "ANGLE"
	}
	return "P", "Q"
}

// FileName is the report's name for class.
func FileName(class model.Class) string {
	return fmt.Sprintf("contg_%s_pq_diffs.csv", class)
}

// PctDiff is the relative difference of b against a, in percent. A zero
// reference yields 0 when b is zero too and 100 otherwise.
func PctDiff(a, b float64) float64 {
	if a == 0 {
		if b == 0 {
			return 0
		}
		return 100
	}
	return 100 * (b - a) / math.Abs(a)
}

// NewRow computes the differences of one element.
func NewRow(name string, a1, b1, a2, b2 float64) Row {
	r := Row{Name: name, A1: a1, B1: b1, A2: a2, B2: b2}
	r.Diff1 = PctDiff(a1, b1)
	r.Diff2 = PctDiff(a2, b2)
	r.Score = math.Abs(r.Diff1) + math.Abs(r.Diff2)
	return r
}

// Recorder accumulates rows for one device class. It is safe for
// concurrent use.
type Recorder struct {
	class model.Class
	mu    sync.Mutex
	rows  []Row
}

// NewRecorder returns an empty recorder for class.
func NewRecorder(class model.Class) *Recorder {
	return &Recorder{class: class}
}

// Add records the values of a matched element disconnected with mode.
func (r *Recorder) Add(m model.Match, mode model.Mode) Row {
	a1, a2 := m.A.Values(mode)
	b1, b2 := m.B.Values(mode)
	row := NewRow(m.Name, a1, b1, a2, b2)
	r.mu.Lock()
	r.rows = append(r.rows, row)
	r.mu.Unlock()
	return row
}

// Rows returns the recorded rows by decreasing score, ties by name.
func (r *Recorder) Rows() []Row {
	r.mu.Lock()
	out := append([]Row(nil), r.rows...)
	r.mu.Unlock()
	Sort(out)
	return out
}

// Sort orders rows by decreasing score, ties by name.
func Sort(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].Name < rows[j].Name
	})
}

// Header returns the report's column names for class.
func Header(class model.Class) []string {
	v1, v2 := Quantities(class)
	return []string{
		"NAME",
		v1 + "_A", v1 + "_B",
		v2 + "_A", v2 + "_B",
		"DIFF_" + v1 + "(%)", "DIFF_" + v2 + "(%)",
		"SCORE",
	}
}

func (row Row) fields() []string {
	out := []string{row.Name}
	for _, v := range []float64{row.A1, row.B1, row.A2, row.B2, row.Diff1, row.Diff2, row.Score} {
		out = append(out, format.Value(v))
	}
	return out
}

// WriteCSV writes the sorted report.
func (r *Recorder) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = Separator
	if err := cw.Write(Header(r.class)); err != nil {
		return err
	}
	for _, row := range r.Rows() {
		if err := cw.Write(row.fields()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile atomically writes the report under dir and returns its path.
func (r *Recorder) WriteFile(dir string) (string, error) {
	var buf bytes.Buffer
	if err := r.WriteCSV(&buf); err != nil {
		return "", fmt.Errorf("outcome: %w", err)
	}
	path := filepath.Join(dir, FileName(r.class))
	if err := casefs.WriteAtomic(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

// Report is a report read back from disk.
type Report struct {
	Header []string
	Rows   []Row
}

// ReadCSV parses a report written by WriteCSV.
func ReadCSV(rd io.Reader) (*Report, error) {
	cr := csv.NewReader(rd)
	cr.Comma = Separator
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("outcome: read report: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("outcome: read report: empty file")
	}
	rep := &Report{Header: records[0]}
	for i, rec := range records[1:] {
		if len(rec) != 8 {
			return nil, fmt.Errorf("outcome: read report: line %d: %d fields, want 8", i+2, len(rec))
		}
		var vals [7]float64
		for j := range vals {
			v, err := strconv.ParseFloat(rec[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("outcome: read report: line %d: %w", i+2, err)
			}
			vals[j] = v
		}
		rep.Rows = append(rep.Rows, Row{
			Name:  rec[0],
			A1:    vals[0],
			B1:    vals[1],
			A2:    vals[2],
			B2:    vals[3],
			Diff1: vals[4],
			Diff2: vals[5],
			Score: vals[6],
		})
	}
	return rep, nil
}

// Table renders the top rows of a report; top <= 0 renders all.
func (rep *Report) Table(mode format.Mode, top int) string {
	rows := rep.Rows
	if top > 0 && len(rows) > top {
		rows = rows[:top]
	}
	tb := format.NewTable(mode)
	tb.Header(rep.Header...)
	for _, row := range rows {
		vals := make([]any, 0, 8)
		for _, f := range row.fields() {
			vals = append(vals, f)
		}
		tb.Row(vals...)
	}
	cols := make([]format.Column, 0, 7)
	for i := 2; i <= 8; i++ {
		cols = append(cols, format.Column{Number: i, Align: format.AlignRight})
	}
	tb.Columns(cols...)
	return tb.String()
}
