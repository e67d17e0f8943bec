// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mps reads linear programs in MPS format.
//
// The reader is whitespace-driven, so it accepts both fixed and free
// format files as long as names carry no embedded blanks. Supported
// sections are NAME, OBJSENSE, ROWS, COLUMNS (integrality markers are
// accepted and ignored), RHS, RANGES and BOUNDS. The first N row is the
// objective; an RHS entry on it becomes the negated objective offset.
package mps

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/curioloop/sparselp/simplex"
)

type rowInfo struct {
	name  string
	kind  byte // N, L, G, E
	lower float64
	upper float64
	rhs   float64
	// hasRHS distinguishes an explicit zero from the default.
	hasRHS bool
}

type colEntry struct {
	row   int
	value float64
}

type reader struct {
	name     string
	sense    int
	offset   float64
	objRow   int
	rows     []rowInfo
	rowIndex map[string]int

	colNames []string
	colIndex map[string]int
	colCost  []float64
	colLower []float64
	colUpper []float64
	entries  [][]colEntry

	section string
	line    int
}

// ReadFile parses the MPS file at path.
func ReadFile(path string) (*simplex.LP, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open MPS file")
	}
	defer f.Close()
	lp, err := Read(f)
	return lp, errors.Wrapf(err, "read %s", path)
}

// Read parses an MPS model from r.
func Read(r io.Reader) (*simplex.LP, error) {
	rd := &reader{
		sense:    1,
		objRow:   -1,
		rowIndex: make(map[string]int),
		colIndex: make(map[string]int),
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<16), 1<<20)
	for scanner.Scan() {
		rd.line++
		text := scanner.Text()
		if text == "" || text[0] == '*' {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if text[0] != ' ' && text[0] != '\t' {
			if err := rd.beginSection(fields); err != nil {
				return nil, err
			}
			continue
		}
		if err := rd.dataLine(fields); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan MPS")
	}
	return rd.finish()
}

func (rd *reader) errf(format string, args ...interface{}) error {
	return errors.Errorf("line %d: "+format, append([]interface{}{rd.line}, args...)...)
}

func (rd *reader) beginSection(fields []string) error {
	section := strings.ToUpper(fields[0])
	switch section {
	case "NAME":
		if len(fields) > 1 {
			rd.name = fields[1]
		}
	case "OBJSENSE":
		rd.section = section
		if len(fields) > 1 {
			return rd.setSense(fields[1])
		}
	case "ROWS", "COLUMNS", "RHS", "RANGES", "BOUNDS":
		rd.section = section
	case "ENDATA":
		rd.section = section
	default:
		return rd.errf("unknown section %q", fields[0])
	}
	return nil
}

func (rd *reader) setSense(word string) error {
	switch strings.ToUpper(word) {
	case "MIN", "MINIMIZE":
		rd.sense = 1
	case "MAX", "MAXIMIZE":
		rd.sense = -1
	default:
		return rd.errf("unknown objective sense %q", word)
	}
	return nil
}

func (rd *reader) dataLine(fields []string) error {
	switch rd.section {
	case "OBJSENSE":
		return rd.setSense(fields[0])
	case "ROWS":
		return rd.rowLine(fields)
	case "COLUMNS":
		return rd.columnLine(fields)
	case "RHS":
		return rd.rhsLine(fields)
	case "RANGES":
		return rd.rangeLine(fields)
	case "BOUNDS":
		return rd.boundLine(fields)
	case "ENDATA":
		return nil
	}
	return rd.errf("data before any section")
}

func (rd *reader) rowLine(fields []string) error {
	if len(fields) != 2 {
		return rd.errf("ROWS entry wants 2 fields, got %d", len(fields))
	}
	kind := byte(strings.ToUpper(fields[0])[0])
	name := fields[1]
	if _, dup := rd.rowIndex[name]; dup {
		return rd.errf("duplicate row %q", name)
	}
	switch kind {
	case 'N':
		if rd.objRow < 0 {
			rd.objRow = len(rd.rows)
		}
	case 'L', 'G', 'E':
	default:
		return rd.errf("unknown row type %q", fields[0])
	}
	rd.rowIndex[name] = len(rd.rows)
	rd.rows = append(rd.rows, rowInfo{name: name, kind: kind})
	return nil
}

func (rd *reader) column(name string) int {
	j, ok := rd.colIndex[name]
	if !ok {
		j = len(rd.colNames)
		rd.colIndex[name] = j
		rd.colNames = append(rd.colNames, name)
		rd.colCost = append(rd.colCost, 0)
		rd.colLower = append(rd.colLower, 0)
		rd.colUpper = append(rd.colUpper, simplex.Inf)
		rd.entries = append(rd.entries, nil)
	}
	return j
}

func (rd *reader) columnLine(fields []string) error {
	if len(fields) >= 3 && fields[1] == "'MARKER'" {
		// Integrality markers: the LP relaxation is what gets solved.
		return nil
	}
	if len(fields) != 3 && len(fields) != 5 {
		return rd.errf("COLUMNS entry wants 3 or 5 fields, got %d", len(fields))
	}
	j := rd.column(fields[0])
	for k := 1; k < len(fields); k += 2 {
		value, err := parseValue(fields[k+1])
		if err != nil {
			return rd.errf("bad value %q", fields[k+1])
		}
		i, ok := rd.rowIndex[fields[k]]
		if !ok {
			return rd.errf("unknown row %q", fields[k])
		}
		if rd.rows[i].kind == 'N' {
			if i == rd.objRow {
				rd.colCost[j] += value
			}
			continue
		}
		rd.entries[j] = append(rd.entries[j], colEntry{row: i, value: value})
	}
	return nil
}

func (rd *reader) rhsLine(fields []string) error {
	// The set name is optional in practice; detect it by parity.
	start := 1
	if len(fields)%2 == 0 {
		start = 0
	}
	if (len(fields)-start)%2 != 0 {
		return rd.errf("RHS entry has dangling fields")
	}
	for k := start; k < len(fields); k += 2 {
		value, err := parseValue(fields[k+1])
		if err != nil {
			return rd.errf("bad value %q", fields[k+1])
		}
		i, ok := rd.rowIndex[fields[k]]
		if !ok {
			return rd.errf("unknown row %q", fields[k])
		}
		if rd.rows[i].kind == 'N' {
			if i == rd.objRow {
				rd.offset = -value
			}
			continue
		}
		rd.rows[i].rhs = value
		rd.rows[i].hasRHS = true
	}
	return nil
}

func (rd *reader) rangeLine(fields []string) error {
	start := 1
	if len(fields)%2 == 0 {
		start = 0
	}
	if (len(fields)-start)%2 != 0 {
		return rd.errf("RANGES entry has dangling fields")
	}
	for k := start; k < len(fields); k += 2 {
		value, err := parseValue(fields[k+1])
		if err != nil {
			return rd.errf("bad value %q", fields[k+1])
		}
		i, ok := rd.rowIndex[fields[k]]
		if !ok {
			return rd.errf("unknown row %q", fields[k])
		}
		row := &rd.rows[i]
		rhs := row.rhs
		switch row.kind {
		case 'L':
			row.lower = rhs - absval(value)
			row.upper = rhs
			row.kind = 'R'
		case 'G':
			row.lower = rhs
			row.upper = rhs + absval(value)
			row.kind = 'R'
		case 'E':
			if value >= 0 {
				row.lower = rhs
				row.upper = rhs + value
			} else {
				row.lower = rhs + value
				row.upper = rhs
			}
			row.kind = 'R'
		}
	}
	return nil
}

func (rd *reader) boundLine(fields []string) error {
	if len(fields) < 3 {
		return rd.errf("BOUNDS entry wants at least 3 fields, got %d", len(fields))
	}
	kind := strings.ToUpper(fields[0])
	j, ok := rd.colIndex[fields[2]]
	if !ok {
		return rd.errf("unknown column %q", fields[2])
	}
	needValue := kind == "UP" || kind == "LO" || kind == "FX" || kind == "UI" || kind == "LI"
	var value float64
	if needValue {
		if len(fields) < 4 {
			return rd.errf("bound %s wants a value", kind)
		}
		var err error
		if value, err = parseValue(fields[3]); err != nil {
			return rd.errf("bad value %q", fields[3])
		}
	}
	switch kind {
	case "UP", "UI":
		rd.colUpper[j] = value
		if value < 0 && rd.colLower[j] == 0 {
			// The classical MPS quirk: a negative upper bound with no
			// explicit lower bound frees the lower side.
			rd.colLower[j] = -simplex.Inf
		}
	case "LO", "LI":
		rd.colLower[j] = value
	case "FX":
		rd.colLower[j] = value
		rd.colUpper[j] = value
	case "FR":
		rd.colLower[j] = -simplex.Inf
		rd.colUpper[j] = simplex.Inf
	case "MI":
		rd.colLower[j] = -simplex.Inf
	case "PL":
		rd.colUpper[j] = simplex.Inf
	case "BV":
		rd.colLower[j] = 0
		rd.colUpper[j] = 1
	default:
		return rd.errf("unknown bound type %q", fields[0])
	}
	return nil
}

func (rd *reader) finish() (*simplex.LP, error) {
	if rd.objRow < 0 && len(rd.rows) == 0 && len(rd.colNames) == 0 {
		return nil, errors.New("empty MPS model")
	}

	// Constraint rows keep their order of appearance; N rows drop out.
	constraint := make([]int, len(rd.rows))
	numRow := 0
	for i := range rd.rows {
		if rd.rows[i].kind == 'N' {
			constraint[i] = -1
			continue
		}
		constraint[i] = numRow
		numRow++
	}

	numCol := len(rd.colNames)
	lp := &simplex.LP{
		Name:     rd.name,
		NumCol:   numCol,
		NumRow:   numRow,
		Astart:   make([]int, numCol+1),
		ColCost:  rd.colCost,
		ColLower: rd.colLower,
		ColUpper: rd.colUpper,
		RowLower: make([]float64, numRow),
		RowUpper: make([]float64, numRow),
		Sense:    rd.sense,
		Offset:   rd.offset,
	}
	for i := range rd.rows {
		r := constraint[i]
		if r < 0 {
			continue
		}
		row := rd.rows[i]
		if row.kind == 'R' {
			lp.RowLower[r] = row.lower
			lp.RowUpper[r] = row.upper
			continue
		}
		switch row.kind {
		case 'L':
			lp.RowLower[r] = -simplex.Inf
			lp.RowUpper[r] = row.rhs
		case 'G':
			lp.RowLower[r] = row.rhs
			lp.RowUpper[r] = simplex.Inf
		case 'E':
			lp.RowLower[r] = row.rhs
			lp.RowUpper[r] = row.rhs
		}
	}

	nnz := 0
	for j := 0; j < numCol; j++ {
		nnz += len(rd.entries[j])
	}
	lp.Aindex = make([]int, 0, nnz)
	lp.Avalue = make([]float64, 0, nnz)
	for j := 0; j < numCol; j++ {
		lp.Astart[j] = len(lp.Aindex)
		for _, e := range rd.entries[j] {
			lp.Aindex = append(lp.Aindex, constraint[e.row])
			lp.Avalue = append(lp.Avalue, e.value)
		}
	}
	lp.Astart[numCol] = len(lp.Aindex)

	if err := lp.Validate(); err != nil {
		return nil, errors.Wrap(err, "assembled model")
	}
	return lp, nil
}

func parseValue(s string) (float64, error) {
	// Old decks write exponents with D instead of E.
	s = strings.ReplaceAll(strings.ReplaceAll(s, "D", "E"), "d", "e")
	return strconv.ParseFloat(s, 64)
}

func absval(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
