// Package render fills spreadsheet document templates. A template is an
// xlsx file whose cells contain {{field}} placeholders; rendering scans the
// placeholders and replaces each one with its mapped value, running mapping
// expressions through the formula evaluator.
package render

import (
	"fmt"
	"regexp"
	"time"

	"github.com/xuri/excelize/v2"

	"omnify/internal/formula"
)

// placeholderPattern matches {{field}} markers inside cell text.
var placeholderPattern = regexp.MustCompile(`\{\{(.*?)\}\}`)

// Field is one placeholder found in a template.
type Field struct {
	Sheet      string
	Coordinate string
	Name       string
}

// ScanTemplate lists every placeholder in the template, sheet by sheet in
// workbook order.
func ScanTemplate(path string) ([]Field, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open template: %w", err)
	}
	defer f.Close()

	var fields []Field
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		for r, row := range rows {
			for c, value := range row {
				m := placeholderPattern.FindStringSubmatch(value)
				if m == nil {
					continue
				}
				coord, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					return nil, err
				}
				fields = append(fields, Field{Sheet: sheet, Coordinate: coord, Name: m[1]})
			}
		}
	}
	return fields, nil
}

// Render fills the template with mapped values and writes the result to
// outPath. mappings binds field names to mapping expressions; each
// expression runs through the formula evaluator, so both literals and
// formulas work. Placeholders without a mapping are left in place.
func Render(templatePath, outPath string, mappings map[string]string, parser *formula.Parser) error {
	fields, err := ScanTemplate(templatePath)
	if err != nil {
		return err
	}

	f, err := excelize.OpenFile(templatePath)
	if err != nil {
		return fmt.Errorf("open template: %w", err)
	}
	defer f.Close()

	for _, field := range fields {
		mapping, ok := mappings[field.Name]
		if !ok {
			continue
		}
		value, err := parser.Evaluate(mapping)
		if err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
		if err := f.SetCellValue(field.Sheet, field.Coordinate, cellValue(value)); err != nil {
			return fmt.Errorf("set %s!%s: %w", field.Sheet, field.Coordinate, err)
		}
	}

	if err := f.SaveAs(outPath); err != nil {
		return fmt.Errorf("save rendered document: %w", err)
	}
	return nil
}

// cellValue converts evaluator output into something excelize renders
// sensibly. Dates become date strings rather than raw timestamps.
func cellValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.Format("2006-01-02")
	}
	return v
}
