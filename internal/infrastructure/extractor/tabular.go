package extractor

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/xuri/excelize/v2"
)

// previewRows is how many data rows follow the header in a rendered table.
const previewRows = 20

func extractTabular(data []byte, ext string) (string, error) {
	var (
		rows [][]string
		err  error
	)
	switch ext {
	case ".xlsx", ".xlsm":
		rows, err = readWorkbook(data)
	case ".tsv":
		rows, err = readDelimited(data, '\t')
	default:
		rows, err = readDelimited(data, ',')
	}
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", errors.New("table has no header row")
	}
	return renderTable(rows[0], rows[1:]), nil
}

func readDelimited(data []byte, comma rune) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.Comma = comma
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	var rows [][]string
	for len(rows) <= previewRows {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read delimited row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func readWorkbook(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) > previewRows+1 {
		rows = rows[:previewRows+1]
	}
	return rows, nil
}

// renderTable prints the header and the first data rows as an aligned grid with a row index column.
func renderTable(header []string, rows [][]string) string {
	if len(rows) > previewRows {
		rows = rows[:previewRows]
	}
	width := len(header)
	for _, row := range rows {
		width = max(width, len(row))
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetColumnSeparator("")
	table.SetCenterSeparator("")
	table.SetRowSeparator("")
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)

	table.SetHeader(append([]string{""}, pad(header, width)...))
	for i, row := range rows {
		table.Append(append([]string{strconv.Itoa(i)}, pad(row, width)...))
	}
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.Join(lines, "\n")
}

func pad(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}
