// Package importer turns rent-roll spreadsheets into payment entries.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/condo/internal/ledger"
)

var (
	ErrUnknownFormat = errors.New("no matching rent-roll format found")
	ErrMalformedRow  = errors.New("malformed row")
)

// Parser reads rent-roll CSV exports. It auto-detects the layout by matching column
// headers against known profiles.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse returns one payment entry per data row. Payer and recipient are left for the
// caller to complete when a cell is empty. Rows without a due date, such as totals, are
// skipped; any other malformed row fails the whole file.
func (p *Parser) Parse(r io.Reader) ([]ledger.PaymentParams, error) {
	utf8r, err := utf8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	data, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	for i := range profiles {
		rows, err := readRows(data, profiles[i].Comma)
		if err != nil {
			continue
		}

		cols, headerIdx, ok := findHeader(&profiles[i], rows)
		if !ok {
			continue
		}

		return parseRows(&profiles[i], cols, rows[headerIdx+1:], headerIdx+1)
	}

	return nil, fmt.Errorf("%w: expected unit, payer, amount and due date columns", ErrUnknownFormat)
}

func readRows(data []byte, comma rune) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	return reader.ReadAll()
}

// colIndex maps column names to their index in the row.
type colIndex map[string]int

func (c colIndex) get(row []string, name string) string {
	idx, ok := c[name]
	if !ok || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}

// findHeader scans rows for the header of profile p.
func findHeader(p *Profile, rows [][]string) (colIndex, int, bool) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			if name := strings.TrimSpace(cell); name != "" {
				cols[name] = i
			}
		}

		matched := true

		for _, name := range p.requiredCols() {
			if _, ok := cols[name]; !ok {
				matched = false
				break
			}
		}

		if matched {
			return cols, rowIdx, true
		}
	}

	return nil, 0, false
}

// parseRows builds payment entries from data rows.
// headerRowNum is the 0-based index of the header in the original file (for error messages).
func parseRows(p *Profile, cols colIndex, rows [][]string, headerRowNum int) ([]ledger.PaymentParams, error) {
	var out []ledger.PaymentParams

	for i, row := range rows {
		rowNum := headerRowNum + i + 1 // 1-based

		due, err := time.Parse(p.DateLayout, cols.get(row, p.DueCol))
		if err != nil {
			continue
		}

		params, err := parseRow(p, cols, row)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrMalformedRow, rowNum, err)
		}

		params.DueDate = due
		out = append(out, params)
	}

	return out, nil
}

func parseRow(p *Profile, cols colIndex, row []string) (ledger.PaymentParams, error) {
	var params ledger.PaymentParams

	unitID, err := uuid.Parse(cols.get(row, p.UnitCol))
	if err != nil {
		return params, fmt.Errorf("bad %s: %w", p.UnitCol, err)
	}

	params.UnitID = &unitID

	if s := cols.get(row, p.PayerCol); s != "" {
		if params.PayerID, err = uuid.Parse(s); err != nil {
			return params, fmt.Errorf("bad %s: %w", p.PayerCol, err)
		}
	}

	amountCell := cols.get(row, p.AmountCol)
	if params.Amount, err = parseAmount(amountCell, p.Decimal); err != nil {
		return params, fmt.Errorf("bad %s %q: %w", p.AmountCol, amountCell, err)
	}

	typ, ok := p.paymentType(cols.get(row, p.TypeCol))
	if !ok {
		return params, fmt.Errorf("unknown payment type %q", cols.get(row, p.TypeCol))
	}

	params.Type = typ
	params.Description = cols.get(row, p.DescCol)

	return params, nil
}
