package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const boardText = `(kicad_pcb (version 20240108) (generator "pcbnew")
  (general (thickness 1.6))
  (paper "A4")
  (title_block
    (title "Mitayi Pico \"RP2040\"")
    (date "2024-08-29")
    (rev "1.0")
    (company "CIRCUITSTATE Electronics")
    (comment 2 "Second")
    (comment 1 "First")
  )
  (gr_text "(rev \"9.9\")" (at 10 10))
)`

func TestParse(t *testing.T) {
	id := Parse(boardText, "/work/Mitayi Pico RP2040.kicad_pcb")

	assert.Equal(t, "Mitayi-Pico-RP2040", id.ProjectName)
	assert.Equal(t, "1.0", id.Revision)
	assert.Equal(t, `Mitayi Pico "RP2040"`, id.Title)
	assert.Equal(t, "2024-08-29", id.Date)
	assert.Equal(t, "CIRCUITSTATE Electronics", id.Company)
	assert.Equal(t, []string{"First", "Second"}, id.Comments)
	assert.Equal(t, "R1.0", id.Tag())
	assert.Equal(t, "Mitayi-Pico-RP2040-R1.0", id.Prefix())
}

func TestParseWithoutTitleBlock(t *testing.T) {
	id := Parse(`(kicad_sch (version 20231120))`, "board.kicad_sch")

	assert.Equal(t, "board", id.ProjectName)
	assert.Equal(t, DefaultRevision, id.Revision)
	assert.Empty(t, id.Title)
	assert.Empty(t, id.Comments)
}

func TestSanitizeRevision(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.0", "1.0"},
		{" 2.1 ", "2.1"},
		{"A/B", "A_B"},
		{`1\2`, "1_2"},
		{"Rev A", "Rev_A"},
		{"", DefaultRevision},
		{"///", DefaultRevision},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeRevision(tt.in))
		})
	}
}

func TestProjectName(t *testing.T) {
	assert.Equal(t, "My-Board", ProjectName("dir/My  Board.kicad_pcb"))
	assert.Equal(t, "plain", ProjectName("plain.kicad_sch"))
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Mitayi.kicad_pcb")
	require.NoError(t, os.WriteFile(path, []byte(boardText), 0644))

	id, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Mitayi", id.ProjectName)
	assert.Equal(t, "1.0", id.Revision)

	_, err = FromFile(filepath.Join(t.TempDir(), "missing.kicad_pcb"))
	assert.Error(t, err)
}
