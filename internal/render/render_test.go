package render

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"omnify/internal/formula"
)

func buildTemplate(t *testing.T, cells map[string]string) string {
	t.Helper()
	f := excelize.NewFile()
	for coord, value := range cells {
		require.NoError(t, f.SetCellValue("Sheet1", coord, value))
	}
	path := filepath.Join(t.TempDir(), "template.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func TestScanTemplate(t *testing.T) {
	path := buildTemplate(t, map[string]string{
		"A1": "請求書",
		"B2": "{{customer_name}}",
		"C5": "{{total}}",
		"D7": "plain text",
	})

	fields, err := ScanTemplate(path)
	require.NoError(t, err)
	require.Len(t, fields, 2)

	byName := map[string]Field{}
	for _, f := range fields {
		byName[f.Name] = f
	}
	assert.Equal(t, "B2", byName["customer_name"].Coordinate)
	assert.Equal(t, "C5", byName["total"].Coordinate)
	assert.Equal(t, "Sheet1", byName["total"].Sheet)
}

func TestRender_FillsMappedFields(t *testing.T) {
	path := buildTemplate(t, map[string]string{
		"B2": "{{customer_name}}",
		"C5": "{{total}}",
		"C6": "{{tax}}",
		"D1": "{{unmapped}}",
	})

	datasource := map[string]any{
		"customer": map[string]any{"name": "Tanaka"},
	}
	parser := formula.NewParser(nil, datasource)

	out := filepath.Join(t.TempDir(), "out.xlsx")
	err := Render(path, out, map[string]string{
		"customer_name": `CONCAT($customer.name, " 様")`,
		"total":         "1200",
		"tax":           "ROUND(120.456, 1)",
	}, parser)
	require.NoError(t, err)

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()

	get := func(coord string) string {
		v, err := f.GetCellValue("Sheet1", coord)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "Tanaka 様", get("B2"))
	assert.Equal(t, "1200", get("C5"), "non-formula mappings pass through")
	assert.Equal(t, "120.5", get("C6"))
	assert.Equal(t, "{{unmapped}}", get("D1"), "unmapped placeholders stay put")
}

func TestRender_FormulaErrorSurfaces(t *testing.T) {
	path := buildTemplate(t, map[string]string{"A1": "{{x}}"})

	err := Render(path, filepath.Join(t.TempDir(), "out.xlsx"),
		map[string]string{"x": "NOPE(1)"}, formula.NewParser(nil, nil))
	assert.ErrorIs(t, err, formula.ErrUnsupportedFunction)
}
