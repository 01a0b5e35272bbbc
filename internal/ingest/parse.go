package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MikeSquared-Agency/Collector/internal/store"
)

// DefaultMaxRows bounds the accepted rows of a single upload.
const DefaultMaxRows = 50000

// Column order is fixed; header names are not mapped.
const (
	colCustomerID = iota
	colAmount
	colDaysOverdue
	colPreviousContacts
	numColumns
)

var columnNames = [numColumns]string{"customerId", "amount", "daysOverdue", "previousContacts"}

var (
	ErrTooManyRows = errors.New("too many rows")
	ErrMalformed   = errors.New("malformed csv")
)

// ValidationError describes one rejected data row. Line is the 1-based line
// of the row in the uploaded file, counting the header.
type ValidationError struct {
	Line   int    `json:"line"`
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (e ValidationError) Error() string {
	var msg string
	if e.Field == "" {
		msg = e.Reason
	} else {
		msg = fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Reason)
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	return msg
}

// Result is the outcome of parsing one upload. Cases are in input order.
type Result struct {
	Cases  []*store.Case     `json:"cases"`
	Errors []ValidationError `json:"errors"`
	Rows   int               `json:"rows"`
}

func (r *Result) Accepted() int { return len(r.Cases) }
func (r *Result) Rejected() int { return len(r.Errors) }

// ByAgency counts accepted cases per assigned agency.
func (r *Result) ByAgency() map[string]int {
	out := make(map[string]int)
	for _, c := range r.Cases {
		out[string(c.AssignedTo)]++
	}
	return out
}

// Parse turns CSV text into scored Pending cases with ids startID+1,
// startID+2, ... in input order. Invalid rows are skipped and reported in
// Result.Errors; only an unreadable stream fails the whole batch.
func Parse(r io.Reader, startID int64, now time.Time) (*Result, error) {
	return ParseLimited(r, startID, now, DefaultMaxRows)
}

// ParseLimited is Parse with an explicit bound on accepted rows. A
// non-positive maxRows disables the bound.
func ParseLimited(r io.Reader, startID int64, now time.Time, maxRows int) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	res := &Result{Cases: []*store.Case{}, Errors: []ValidationError{}}
	header := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		if header {
			header = false
			continue
		}
		if isBlank(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		res.Rows++

		c, verr := parseRow(record, line, startID+int64(len(res.Cases))+1, now)
		if verr != nil {
			res.Errors = append(res.Errors, *verr)
			continue
		}
		if maxRows > 0 && len(res.Cases) >= maxRows {
			return nil, fmt.Errorf("%w: more than %d rows", ErrTooManyRows, maxRows)
		}
		res.Cases = append(res.Cases, c)
	}
	return res, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func parseRow(record []string, line int, id int64, now time.Time) (*store.Case, *ValidationError) {
	if len(record) < numColumns {
		return nil, &ValidationError{
			Line:   line,
			Reason: fmt.Sprintf("expected %d fields, got %d", numColumns, len(record)),
		}
	}
	fields := make([]string, numColumns)
	for i := range fields {
		fields[i] = strings.TrimSpace(record[i])
	}

	customerID := fields[colCustomerID]
	if customerID == "" {
		return nil, &ValidationError{Line: line, Field: columnNames[colCustomerID], Reason: "required"}
	}
	amount, verr := parseAmount(fields[colAmount], line)
	if verr != nil {
		return nil, verr
	}
	days, verr := parseCount(fields[colDaysOverdue], colDaysOverdue, line)
	if verr != nil {
		return nil, verr
	}
	contacts, verr := parseCount(fields[colPreviousContacts], colPreviousContacts, line)
	if verr != nil {
		return nil, verr
	}
	return store.NewCase(id, customerID, amount, days, contacts, now), nil
}

func parseAmount(field string, line int) (decimal.Decimal, *ValidationError) {
	verr := &ValidationError{Line: line, Field: columnNames[colAmount], Value: field}
	if field == "" {
		verr.Reason = "required"
		return decimal.Zero, verr
	}
	amount, err := decimal.NewFromString(field)
	if err != nil {
		verr.Reason = "not a decimal number"
		return decimal.Zero, verr
	}
	if amount.IsNegative() {
		verr.Reason = "must not be negative"
		return decimal.Zero, verr
	}
	return amount, nil
}

// parseCount accepts base-10 integers in [0, math.MaxInt32], the range of the
// INTEGER columns cases are stored in.
func parseCount(field string, col int, line int) (int, *ValidationError) {
	verr := &ValidationError{Line: line, Field: columnNames[col], Value: field}
	if field == "" {
		verr.Reason = "required"
		return 0, verr
	}
	n, err := strconv.ParseInt(field, 10, 32)
	if errors.Is(err, strconv.ErrRange) {
		verr.Reason = "out of range"
		return 0, verr
	}
	if err != nil {
		verr.Reason = "not a whole number"
		return 0, verr
	}
	if n < 0 {
		verr.Reason = "must not be negative"
		return 0, verr
	}
	return int(n), nil
}

// ParseAmount applies the amount column rules to a single value.
func ParseAmount(field string) (decimal.Decimal, error) {
	amount, verr := parseAmount(strings.TrimSpace(field), 0)
	if verr != nil {
		return decimal.Zero, verr
	}
	return amount, nil
}

// ParseDaysOverdue applies the daysOverdue column rules to a single value.
func ParseDaysOverdue(field string) (int, error) {
	return parseCountField(field, colDaysOverdue)
}

// ParsePreviousContacts applies the previousContacts column rules to a
// single value.
func ParsePreviousContacts(field string) (int, error) {
	return parseCountField(field, colPreviousContacts)
}

func parseCountField(field string, col int) (int, error) {
	n, verr := parseCount(strings.TrimSpace(field), col, 0)
	if verr != nil {
		return 0, verr
	}
	return n, nil
}
