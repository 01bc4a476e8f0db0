package bom

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const sampleCSV = `"Refs","Value","Footprint","Qty","DNP"
"C1,C2,C3","100nF","C_0402","3",""
"R1","10k","R_0603","1","DNP"
`

func TestConvertCSV(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "Board-R1-BoM.csv")
	xlsxPath := filepath.Join(dir, "Board-R1-BoM.xlsx")
	require.NoError(t, os.WriteFile(csvPath, []byte(sampleCSV), 0644))

	n, err := ConvertCSV(csvPath, xlsxPath, Options{Title: "Board R1"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f, err := excelize.OpenFile(xlsxPath)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Refs", "Value", "Footprint", "Qty", "DNP"}, rows[0])
	assert.Equal(t, "C1,C2,C3", rows[1][0])
	assert.Equal(t, "3", rows[1][3])
	assert.Equal(t, "DNP", rows[2][4])
}

func TestConvertCSVCustomDelimiter(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "bom.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("Reference;Value\nR1;10k\n"), 0644))

	n, err := ConvertCSV(csvPath, filepath.Join(dir, "bom.xlsx"), Options{Delimiter: ';'})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestConvertCSVEmpty(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "bom.csv")
	require.NoError(t, os.WriteFile(csvPath, nil, 0644))

	_, err := ConvertCSV(csvPath, filepath.Join(dir, "bom.xlsx"), Options{})
	assert.Error(t, err)

	_, err = ConvertCSV(filepath.Join(dir, "missing.csv"), filepath.Join(dir, "bom.xlsx"), Options{})
	assert.Error(t, err)
}

func TestStyleFor(t *testing.T) {
	assert.True(t, StyleFor("Qty").Numeric)
	assert.True(t, StyleFor(" Reference ").Wrap)
	assert.Equal(t, defaultStyle, StyleFor("Manufacturer"))
}
