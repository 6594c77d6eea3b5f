// Package ingest loads the mutation and production ledgers from CSV and
// normalizes their dates before they reach the analysis core.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmmydply/bpizink-forecast-2025/internal/domain"
)

// DataLoadError signals a failure to read or parse an input file.
type DataLoadError struct {
	Path   string
	Reason string
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("load %s: %s", e.Path, e.Reason)
}

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "")

func normalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return columnNameSanitizer.Replace(name)
}

// LoadMutationLedger reads the warehouse mutation CSV. Recognized columns
// (case and separator insensitive): tanggal/date, debet/debit, kredit/credit,
// nobar/item_code, nabar/item_name.
func LoadMutationLedger(path string) ([]domain.LedgerRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &DataLoadError{Path: path, Reason: err.Error()}
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, &DataLoadError{Path: path, Reason: "missing header: " + err.Error()}
	}

	idx := newColumnIndex(header)
	idxDate := idx.find("tanggal", "date")
	idxDebit := idx.find("debet", "debit", "inflow", "inflowqty")
	idxCredit := idx.find("kredit", "credit", "outflow", "outflowqty")
	idxItemCode := idx.find("nobar", "itemcode")
	idxItemName := idx.find("nabar", "itemname")

	if idxDate < 0 || idxDebit < 0 || idxCredit < 0 {
		return nil, &DataLoadError{Path: path, Reason: "required columns tanggal/debet/kredit not found"}
	}

	records := make([]domain.LedgerRecord, 0)
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DataLoadError{Path: path, Reason: fmt.Sprintf("line %d: %v", line, err)}
		}
		line++

		date, err := parseLedgerDate(field(row, idxDate))
		if err != nil {
			return nil, &DataLoadError{Path: path, Reason: fmt.Sprintf("line %d: %v", line, err)}
		}

		inflow, err := parseAmount(field(row, idxDebit))
		if err != nil {
			return nil, &DataLoadError{Path: path, Reason: fmt.Sprintf("line %d: %v", line, err)}
		}
		outflow, err := parseAmount(field(row, idxCredit))
		if err != nil {
			return nil, &DataLoadError{Path: path, Reason: fmt.Sprintf("line %d: %v", line, err)}
		}

		records = append(records, domain.LedgerRecord{
			Date:     date,
			Inflow:   inflow,
			Outflow:  outflow,
			ItemCode: field(row, idxItemCode),
			ItemName: field(row, idxItemName),
		})
	}

	return records, nil
}

// LoadProductionLedger reads the production CSV and sums the three shift
// weights per row. Recognized columns: tanggal/date, kg_shift1..kg_shift3.
func LoadProductionLedger(path string) ([]domain.ProductionRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &DataLoadError{Path: path, Reason: err.Error()}
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, &DataLoadError{Path: path, Reason: "missing header: " + err.Error()}
	}

	idx := newColumnIndex(header)
	idxDate := idx.find("tanggal", "date")
	idxShift1 := idx.find("kgshift1", "shift1qty", "shift1")
	idxShift2 := idx.find("kgshift2", "shift2qty", "shift2")
	idxShift3 := idx.find("kgshift3", "shift3qty", "shift3")

	if idxDate < 0 || idxShift1 < 0 {
		return nil, &DataLoadError{Path: path, Reason: "required columns tanggal/kg_shift1 not found"}
	}

	records := make([]domain.ProductionRecord, 0)
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DataLoadError{Path: path, Reason: fmt.Sprintf("line %d: %v", line, err)}
		}
		line++

		date, err := parseLedgerDate(field(row, idxDate))
		if err != nil {
			return nil, &DataLoadError{Path: path, Reason: fmt.Sprintf("line %d: %v", line, err)}
		}

		produced := 0.0
		for _, idx := range []int{idxShift1, idxShift2, idxShift3} {
			amount, err := parseAmount(field(row, idx))
			if err != nil {
				return nil, &DataLoadError{Path: path, Reason: fmt.Sprintf("line %d: %v", line, err)}
			}
			produced += amount
		}

		records = append(records, domain.ProductionRecord{
			Date:     date,
			Produced: produced,
		})
	}

	return records, nil
}

type columnIndex struct {
	byName map[string]int
}

func newColumnIndex(header []string) columnIndex {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		byName[normalizeColumnName(h)] = i
	}
	return columnIndex{byName: byName}
}

func (c columnIndex) find(names ...string) int {
	for _, name := range names {
		if i, ok := c.byName[normalizeColumnName(name)]; ok {
			return i
		}
	}
	return -1
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseAmount(v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	stripped := strings.ReplaceAll(v, ",", "")
	f, err := strconv.ParseFloat(stripped, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", v)
	}
	return f, nil
}

var ledgerDateLayouts = []string{
	"02/01/2006",
	"02/01/06",
	"2006-01-02",
	"2/1/2006",
	"2/1/06",
}

// parseLedgerDate parses the supported date layouts and corrects
// century-truncated values: two-digit years that land before 2000 are
// shifted forward by a century, matching the source data convention.
func parseLedgerDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range ledgerDateLayouts {
		t, err := time.Parse(layout, v)
		if err != nil {
			continue
		}
		if t.Year() < 2000 {
			t = t.AddDate(100, 0, 0)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", v)
}
