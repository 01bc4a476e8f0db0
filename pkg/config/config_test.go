package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePreservesOptionOrder(t *testing.T) {
	doc := `{
	"version": "1.1.0",
	"commands": ["gerbers", ["ddd", "VRML"]],
	"data": {
		"pcb_pdf": {
			"--theme": "",
			"--layers": ["F.Cu", "B.Cu"],
			"--mirror": false,
			"--drill-shape-opt": 2,
			"kie_single_file": true,
			"kie_presets": {"top": {"--side": "top"}}
		}
	}
}`
	tree, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, "1.1.0", tree.Version)
	assert.Equal(t, []CommandSpec{{Name: "gerbers"}, {Name: "ddd", Variant: "VRML"}}, tree.Commands)

	opts, ok := tree.Options("pcb_pdf")
	require.True(t, ok)
	assert.Equal(t,
		[]string{"--theme", "--layers", "--mirror", "--drill-shape-opt", "kie_single_file", "kie_presets"},
		opts.Keys())

	tests := []struct {
		key  string
		kind Kind
	}{
		{"--theme", KindText},
		{"--layers", KindList},
		{"--mirror", KindFlag},
		{"--drill-shape-opt", KindNumber},
		{"kie_single_file", KindFlag},
		{"kie_presets", KindTable},
	}
	for _, tt := range tests {
		v, ok := opts.Get(tt.key)
		require.True(t, ok, tt.key)
		assert.Equal(t, tt.kind, v.Kind(), tt.key)
	}

	v, _ := opts.Get("--drill-shape-opt")
	assert.Equal(t, "2", v.AsText())
	presets, _ := opts.Get("kie_presets")
	top, ok := presets.AsTable().Get("top")
	require.True(t, ok)
	side, _ := top.AsTable().Get("--side")
	assert.Equal(t, "top", side.AsText())
}

func TestParseAcceptsTabIndentedJSON(t *testing.T) {
	doc := "{\n\t\"version\": \"1.0.0\",\n\t\"data\": {\n\t\t\"svg\": {\n\t\t\t\"--negative\": true\n\t\t}\n\t}\n}\n"
	tree, err := Parse([]byte(doc))
	require.NoError(t, err)

	opts, ok := tree.Options("svg")
	require.True(t, ok)
	v, _ := opts.Get("--negative")
	assert.True(t, v.AsBool())
}

func TestParseRejectsMalformedCommands(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"commands not a list", `{"commands": "gerbers"}`},
		{"three element pair", `{"commands": [["ddd", "STEP", "extra"]]}`},
		{"object entry", `{"commands": [{"name": "gerbers"}]}`},
		{"data not an object", `{"data": []}`},
		{"top level list", `["gerbers"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestDefaultsAreComplete(t *testing.T) {
	d := Defaults()
	assert.Equal(t, CurrentVersion, d.Version)

	for _, typ := range []string{
		"gerbers", "drills", "positions", "sch_pdf", "pcb_pdf", "bom",
		"ibom", "ddd", "svg", "pcb_render", "pcb_drc", "sch_erc", "source",
	} {
		opts, ok := d.Options(typ)
		require.True(t, ok, typ)
		_, ok = opts.Get(OutputKey)
		assert.True(t, ok, "%s has no %s", typ, OutputKey)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.False(t, r.Loaded())
	assert.Equal(t, CurrentVersion, r.Version())
	assert.NotEmpty(t, r.Commands())
	assert.True(t, r.Bool("gerbers", "kie_include_drill"))
}

func TestResolverFallsBackPerKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	doc := `{"version": "1.0.0", "data": {"pcb_pdf": {"--layers": ["F.Cu"], "kie_single_file": false}}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	r, err := Load(path)
	require.NoError(t, err)
	assert.True(t, r.Loaded())

	// Present in the user file.
	assert.Equal(t, []string{"F.Cu"}, r.Strings("pcb_pdf", "--layers"))
	assert.False(t, r.Bool("pcb_pdf", "kie_single_file"))

	// Missing key falls back to the defaults.
	assert.Equal(t, []string{"Edge.Cuts"}, r.Strings("pcb_pdf", "kie_common_layers"))

	// Missing type falls back to the defaults as a whole.
	assert.Equal(t, "excellon", r.String("drills", "--format"))
	assert.Equal(t, []string{"--layers", "kie_single_file"}, r.Options("pcb_pdf").Keys())

	// Unknown everywhere is absent, not a panic.
	assert.True(t, r.Option("nope", "--nothing").IsAbsent())

	// No user commands: default run list.
	assert.Equal(t, Defaults().Commands, r.Commands())
}

func TestDeclaredEmptyCommandsStayEmpty(t *testing.T) {
	tree, err := Parse([]byte(`{"commands": []}`))
	require.NoError(t, err)

	r := NewResolver(Defaults(), tree)
	assert.Empty(t, r.Commands())
}

func TestLookupFallbackIsLazy(t *testing.T) {
	current, err := Parse([]byte(`{"data": {"svg": {"--theme": "dark"}}}`))
	require.NoError(t, err)
	r := NewResolver(Defaults(), current)

	called := false
	v := r.Lookup("svg", "--theme", func() Value {
		called = true
		return Text("unused")
	})
	assert.Equal(t, "dark", v.AsText())
	assert.False(t, called, "fallback evaluated for a present key")

	v = r.Lookup("svg", "--negative", func() Value {
		called = true
		return Flag(true)
	})
	assert.True(t, v.AsBool())
	assert.True(t, called)
}

func TestDeclaresVersion(t *testing.T) {
	tree, err := Parse([]byte(`{"data": {"svg": {"--negative": true}}}`))
	require.NoError(t, err)
	r := NewResolver(Defaults(), tree)
	assert.False(t, r.DeclaresVersion())
	assert.Equal(t, CurrentVersion, r.Version())

	assert.True(t, NewResolver(Defaults(), nil).DeclaresVersion())
}

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		version   string
		wantNewer bool
		wantErr   error
	}{
		{"1.0.0", false, nil},
		{CurrentVersion, false, nil},
		{"1.1", false, nil},
		{"2.0.0", true, nil},
		{"v1.3.0", true, nil},
		{"0.9.9", false, ErrVersionTooOld},
		{"banana", false, ErrInvalidVersion},
		{"", false, ErrInvalidVersion},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			newer, err := CheckVersion(tt.version)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantNewer, newer)
		})
	}
}

func TestWriteDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, WriteDefaults(path, false))
	assert.Error(t, WriteDefaults(path, false))
	require.NoError(t, WriteDefaults(path, true))

	r, err := Load(path)
	require.NoError(t, err)
	assert.True(t, r.Loaded())
	assert.Equal(t, CurrentVersion, r.Version())
}

func TestValueEmpty(t *testing.T) {
	assert.True(t, Absent().Empty())
	assert.True(t, Flag(false).Empty())
	assert.True(t, Text("").Empty())
	assert.True(t, List().Empty())
	assert.False(t, Flag(true).Empty())
	assert.False(t, Number(0).Empty())
	assert.False(t, Text("x").Empty())
}
