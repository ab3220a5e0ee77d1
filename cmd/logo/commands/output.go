package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/logo-objects/internal/constants"
	"github.com/fivetwenty-io/logo-objects/pkg/logo"
)

// printer renders command results in the selected output format.
type printer struct {
	writer io.Writer
	format string
	file   string
}

func newPrinter(cmd *cobra.Command) *printer {
	format := strings.ToLower(viper.GetString("output"))
	if format == "" {
		format = constants.FormatTable
	}

	return &printer{
		writer: cmd.OutOrStdout(),
		format: format,
		file:   viper.GetString("output_file"),
	}
}

func validFormat(format string) bool {
	switch format {
	case constants.FormatTable, constants.FormatJSON, constants.FormatYAML, constants.FormatXLSX:
		return true
	default:
		return false
	}
}

// Value renders a single value. Tables are only produced for records and
// action results; anything else is printed as JSON.
func (p *printer) Value(value interface{}) error {
	switch p.format {
	case constants.FormatJSON:
		return p.JSON(value)
	case constants.FormatYAML:
		return p.YAML(value)
	case constants.FormatTable, constants.FormatXLSX:
	default:
		return fmt.Errorf("%w: '%s'", constants.ErrUnknownFormat, p.format)
	}

	switch typed := value.(type) {
	case logo.Record:
		if p.format == constants.FormatXLSX {
			return p.Records("", []logo.Record{typed}, nil, nil)
		}

		return p.recordTable(typed)
	case *logo.ActionResult:
		return p.actionTable(typed)
	default:
		return p.JSON(value)
	}
}

// Records renders a list of records. columns fixes the column order; when
// empty the sorted union of all keys is used.
func (p *printer) Records(sheet string, records []logo.Record, columns []string, total *int) error {
	if len(columns) == 0 {
		columns = recordColumns(records)
	}

	switch p.format {
	case constants.FormatJSON:
		return p.JSON(logo.ListResponse[logo.Record]{Data: records, TotalCount: total})
	case constants.FormatYAML:
		return p.YAML(logo.ListResponse[logo.Record]{Data: records, TotalCount: total})
	case constants.FormatXLSX:
		return p.workbook(sheet, columns, records)
	case constants.FormatTable:
	default:
		return fmt.Errorf("%w: '%s'", constants.ErrUnknownFormat, p.format)
	}

	headers := make([]string, len(columns))
	for index, column := range columns {
		headers[index] = headerTitle(column)
	}

	rows := make([][]string, 0, len(records))

	for _, record := range records {
		row := make([]string, len(columns))
		for index, column := range columns {
			row[index] = formatCell(record[column])
		}

		rows = append(rows, row)
	}

	err := p.Table(headers, rows)
	if err != nil {
		return err
	}

	if total != nil {
		_, _ = fmt.Fprintf(p.writer, "Showing %d of %d\n", len(records), *total)
	}

	return nil
}

// Table writes a table with the given headers and rows.
func (p *printer) Table(headers []string, rows [][]string) error {
	header := make([]any, len(headers))
	for index, title := range headers {
		header[index] = title
	}

	table := tablewriter.NewWriter(p.writer)
	table.Header(header...)

	for _, row := range rows {
		err := table.Append(row)
		if err != nil {
			return fmt.Errorf("failed to append table row: %w", err)
		}
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

// JSON writes value as indented JSON.
func (p *printer) JSON(value interface{}) error {
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", strings.Repeat(" ", constants.JSONIndentSize))

	err := encoder.Encode(value)
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

// YAML writes value as YAML.
func (p *printer) YAML(value interface{}) error {
	encoder := yaml.NewEncoder(p.writer)
	encoder.SetIndent(constants.JSONIndentSize)

	err := encoder.Encode(value)
	if err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return encoder.Close()
}

func (p *printer) recordTable(record logo.Record) error {
	columns := recordColumns([]logo.Record{record})
	rows := make([][]string, 0, len(columns))

	for _, column := range columns {
		rows = append(rows, []string{column, formatCell(record[column])})
	}

	return p.Table([]string{"Field", "Value"}, rows)
}

func (p *printer) actionTable(result *logo.ActionResult) error {
	if len(result.Parameters) == 0 {
		if len(result.Raw) == 0 {
			_, _ = fmt.Fprintf(p.writer, "Status: %d\n", result.StatusCode)

			return nil
		}

		var decoded interface{}

		err := json.Unmarshal(result.Raw, &decoded)
		if err != nil {
			_, _ = fmt.Fprintln(p.writer, string(result.Raw))

			return nil //nolint:nilerr // non-JSON raw bodies are printed verbatim
		}

		if record, ok := decoded.(map[string]interface{}); ok {
			return p.recordTable(record)
		}

		return p.JSON(decoded)
	}

	rows := make([][]string, 0, len(result.Parameters))
	for _, param := range result.Parameters {
		rows = append(rows, []string{param.Key, param.Value})
	}

	return p.Table([]string{"Key", "Value"}, rows)
}

// workbook writes records to the --output-file spreadsheet using the raw
// field names as the header row.
func (p *printer) workbook(sheet string, columns []string, records []logo.Record) error {
	if p.file == "" {
		return constants.ErrOutputFileRequired
	}

	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	defaultSheet := file.GetSheetName(0)
	if sheet == "" {
		sheet = defaultSheet
	}

	if sheet != defaultSheet {
		err := file.SetSheetName(defaultSheet, sheet)
		if err != nil {
			return fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	header := make([]interface{}, len(columns))
	for index, column := range columns {
		header[index] = column
	}

	err := file.SetSheetRow(sheet, "A1", &header)
	if err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	if len(columns) > 0 {
		err = styleHeader(file, sheet, len(columns))
		if err != nil {
			return err
		}
	}

	for index, record := range records {
		row := make([]interface{}, len(columns))
		for column, key := range columns {
			row[column] = cellValue(record[key])
		}

		cell, err := excelize.CoordinatesToCellName(1, index+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", index+2, err)
		}

		err = file.SetSheetRow(sheet, cell, &row)
		if err != nil {
			return fmt.Errorf("failed to write row %d: %w", index+2, err)
		}
	}

	err = file.SaveAs(p.file)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", p.file, err)
	}

	_, _ = fmt.Fprintf(p.writer, "Wrote %d rows to %s\n", len(records), p.file)

	return nil
}

func styleHeader(file *excelize.File, sheet string, columns int) error {
	style, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	last, err := excelize.CoordinatesToCellName(columns, 1)
	if err != nil {
		return fmt.Errorf("failed to address header: %w", err)
	}

	err = file.SetCellStyle(sheet, "A1", last, style)
	if err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	return nil
}

func recordColumns(records []logo.Record) []string {
	seen := make(map[string]struct{})
	columns := make([]string, 0)

	for _, record := range records {
		for key := range record {
			if _, ok := seen[key]; ok {
				continue
			}

			seen[key] = struct{}{}
			columns = append(columns, key)
		}
	}

	sort.Strings(columns)

	return columns
}

func headerTitle(key string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}

// cellValue keeps scalars typed for spreadsheets and flattens the rest.
func cellValue(value interface{}) interface{} {
	switch value.(type) {
	case nil:
		return ""
	case string, float64, bool:
		return value
	default:
		return formatCell(value)
	}
}

func formatCell(value interface{}) string {
	var text string

	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		text = typed
	case float64:
		text = strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		text = strconv.FormatBool(typed)
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			text = fmt.Sprint(typed)
		} else {
			text = string(encoded)
		}
	}

	if utf8.RuneCountInString(text) > constants.MaxCellWidth {
		runes := []rune(text)
		text = string(runes[:constants.MaxCellWidth-3]) + "..."
	}

	return text
}
