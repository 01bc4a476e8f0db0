package export

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/vishnumaiea/kiexport/pkg/argsynth"
	"github.com/vishnumaiea/kiexport/pkg/artifact"
	"github.com/vishnumaiea/kiexport/pkg/bom"
	"github.com/vishnumaiea/kiexport/pkg/config"
)

// Input is the design file a command reads.
type Input int

const (
	InputPCB Input = iota
	InputSchematic
)

func (i Input) String() string {
	if i == InputSchematic {
		return "schematic"
	}
	return "pcb"
}

// Descriptor describes one artifact type.
type Descriptor struct {
	Name       string // run-list name: "gerbers"
	Label      string // archive label: "Gerber"
	Subfolder  string // directory below base/R<rev>/<date>
	Input      Input
	Subcommand []string // kicad-cli tokens before --output
	Exts       []string // extensions produced, purged and archived
	Variants   []string // documented variants, nil when the type has none
	RuleCheck  bool     // scan tool output for a DRC/ERC summary

	// VariantsFrom names a table directive whose keys are the accepted
	// variants, for types whose variants are configured.
	VariantsFrom string

	// PurgePlanned purges and archives only the files this run plans to
	// write instead of every file with one of Exts, so variants written to
	// the same directory do not clobber each other.
	PurgePlanned bool

	plan      func(j *Job) ([]Invocation, error)
	post      func(j *Job) error
	postStage string
}

// Invocation is one planned tool call of a job.
type Invocation struct {
	Item       string   // what this call produces: a layer, side or preset
	Tool       string   // executable, "" for kicad-cli
	Lead       []string // tokens before the output flag, nil for Descriptor.Subcommand
	OutputFlag string   // "" for --output
	Output     string   // file or directory passed to the output flag
	Options    *config.Options
	Context    argsynth.Context
	Extra      []string // tokens after the flags, before the input file
}

const (
	DefaultKiCadCLI = "kicad-cli"
	DefaultPython   = "python3"
)

var (
	gerberExts = []string{
		".gbr", ".gbrjob", ".gtl", ".gbl", ".gtp", ".gbp", ".gto", ".gbo",
		".gts", ".gbs", ".gm1", ".gko", ".g1", ".g2", ".drl",
	}
	drillExts = []string{".drl", ".gbr", ".pdf", ".ps", ".dxf", ".svg"}

	drillSubcommand = []string{"pcb", "export", "drill"}
)

var descriptors = []*Descriptor{
	{
		Name:       "gerbers",
		Label:      "Gerber",
		Subfolder:  "Gerber",
		Input:      InputPCB,
		Subcommand: []string{"pcb", "export", "gerbers"},
		Exts:       gerberExts,
		plan:       planGerbers,
		post:       tagRename,
		postStage:  "rename",
	},
	{
		Name:       "drills",
		Label:      "Drill",
		Subfolder:  "Drill",
		Input:      InputPCB,
		Subcommand: drillSubcommand,
		Exts:       drillExts,
		plan:       planDirectory,
		post:       tagRename,
		postStage:  "rename",
	},
	{
		Name:       "positions",
		Label:      "Position",
		Subfolder:  "Assembly",
		Input:      InputPCB,
		Subcommand: []string{"pcb", "export", "pos"},
		Exts:       []string{".csv", ".pos", ".gbr"},
		plan:       planPositions,
	},
	{
		Name:       "sch_pdf",
		Label:      "Schematic",
		Subfolder:  "Schematic",
		Input:      InputSchematic,
		Subcommand: []string{"sch", "export", "pdf"},
		Exts:       []string{".pdf"},
		plan:       planFile("Schematic", ".pdf"),
	},
	{
		Name:       "pcb_pdf",
		Label:      "PCB",
		Subfolder:  "PCB",
		Input:      InputPCB,
		Subcommand: []string{"pcb", "export", "pdf"},
		Exts:       []string{".pdf"},
		plan:       planLayers(".pdf"),
		post:       mergeLayers,
		postStage:  "merge",
	},
	{
		Name:       "bom",
		Label:      "BoM",
		Subfolder:  "BoM",
		Input:      InputSchematic,
		Subcommand: []string{"sch", "export", "bom"},
		Exts:       []string{".csv", ".xlsx"},
		plan:       planFile("BoM", ".csv"),
		post:       convertBOM,
		postStage:  "convert",
	},
	{
		Name:      "ibom",
		Label:     "iBoM",
		Subfolder: "iBoM",
		Input:     InputPCB,
		Exts:      []string{".html"},
		plan:      planIBOM,
	},
	{
		Name:         "ddd",
		Label:        "3D",
		Subfolder:    "3D",
		Input:        InputPCB,
		Exts:         []string{".step", ".wrl"},
		Variants:     []string{"STEP", "VRML"},
		PurgePlanned: true,
		plan:         planModel,
	},
	{
		Name:       "svg",
		Label:      "SVG",
		Subfolder:  "SVG",
		Input:      InputPCB,
		Subcommand: []string{"pcb", "export", "svg"},
		Exts:       []string{".svg"},
		plan:       planSVG,
	},
	{
		Name:         "pcb_render",
		Label:        "Render",
		Subfolder:    "Render",
		Input:        InputPCB,
		Subcommand:   []string{"pcb", "render"},
		Exts:         []string{".png", ".jpg", ".jpeg"},
		VariantsFrom: "kie_presets",
		PurgePlanned: true,
		plan:         planRender,
	},
	{
		Name:       "pcb_drc",
		Label:      "DRC",
		Subfolder:  "DRC",
		Input:      InputPCB,
		Subcommand: []string{"pcb", "drc"},
		Exts:       []string{".rpt", ".json"},
		RuleCheck:  true,
		plan:       planReport("DRC"),
	},
	{
		Name:       "sch_erc",
		Label:      "ERC",
		Subfolder:  "ERC",
		Input:      InputSchematic,
		Subcommand: []string{"sch", "erc"},
		Exts:       []string{".rpt", ".json"},
		RuleCheck:  true,
		plan:       planReport("ERC"),
	},
}

// Descriptors returns the known artifact types in their canonical order.
func Descriptors() []*Descriptor {
	out := make([]*Descriptor, len(descriptors))
	copy(out, descriptors)
	return out
}

// Lookup returns the descriptor of the named type.
func Lookup(name string) (*Descriptor, bool) {
	for _, d := range descriptors {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// Names returns the names of the known artifact types.
func Names() []string {
	names := make([]string, len(descriptors))
	for i, d := range descriptors {
		names[i] = d.Name
	}
	return names
}

// Validate checks a run list before anything is executed: it must be
// non-empty, every name must be known and every variant must be one the
// type accepts. Configured variants are looked up in cfg; a nil cfg means
// the built-in defaults.
func Validate(cmds []config.CommandSpec, cfg *config.Resolver) error {
	if len(cmds) == 0 {
		return ErrNoCommands
	}
	if cfg == nil {
		cfg = config.NewResolver(config.Defaults(), nil)
	}

	var unknown, badVariants []string
	for _, c := range cmds {
		d, ok := Lookup(c.Name)
		if !ok {
			unknown = append(unknown, c.Name)
			continue
		}
		if c.Variant != "" && !d.AcceptsVariant(cfg, c.Variant) {
			badVariants = append(badVariants, c.String())
		}
	}

	var errs []error
	if len(unknown) > 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownCommand, strings.Join(unknown, ", ")))
	}
	if len(badVariants) > 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownVariant, strings.Join(badVariants, ", ")))
	}
	return errors.Join(errs...)
}

// AcceptsVariant reports whether v selects a variant of the type. Types
// without variants accept none.
func (d *Descriptor) AcceptsVariant(cfg *config.Resolver, v string) bool {
	if d.VariantsFrom != "" {
		_, ok := cfg.Option(d.Name, d.VariantsFrom).AsTable().Get(v)
		return ok
	}
	for _, known := range d.Variants {
		if strings.EqualFold(known, v) {
			return true
		}
	}
	return false
}

func planDirectory(j *Job) ([]Invocation, error) {
	return []Invocation{{Item: j.Desc.Name, Output: j.Dir.Dir()}}, nil
}

func planGerbers(j *Job) ([]Invocation, error) {
	if _, err := argsynth.Layers(j.Options, argsynth.LayersFlag); err != nil {
		return nil, err
	}
	invs := []Invocation{{Item: "gerbers", Output: j.Dir.Dir()}}
	if j.Option("kie_include_drill").AsBool() {
		invs = append(invs, Invocation{
			Item:    "drills",
			Lead:    drillSubcommand,
			Output:  j.Dir.Dir(),
			Options: j.Env.Config.Options("drills"),
		})
	}
	return invs, nil
}

func planFile(suffix, ext string) func(j *Job) ([]Invocation, error) {
	return func(j *Job) ([]Invocation, error) {
		return []Invocation{{Item: suffix, Output: j.Path(suffix, ext)}}, nil
	}
}

func planReport(suffix string) func(j *Job) ([]Invocation, error) {
	return func(j *Job) ([]Invocation, error) {
		ext := ".rpt"
		if v, _ := j.Options.Get("--format"); v.AsText() == "json" {
			ext = ".json"
		}
		return []Invocation{{Item: suffix, Output: j.Path(suffix, ext)}}, nil
	}
}

func planPositions(j *Job) ([]Invocation, error) {
	sides := j.Option("kie_sides").AsList()
	if len(sides) == 0 {
		sides = []string{"both"}
	}

	ext := ".csv"
	if v, _ := j.Options.Get("--format"); v.AsText() != "" {
		switch v.AsText() {
		case "ascii":
			ext = ".pos"
		case "gerber":
			ext = ".gbr"
		}
	}

	invs := make([]Invocation, 0, len(sides))
	for _, side := range sides {
		ov := config.NewOptions()
		ov.Set("--side", config.Text(side))
		invs = append(invs, Invocation{
			Item:    side,
			Output:  j.Path("Position-"+capitalize(side), ext),
			Context: argsynth.Context{Overrides: ov},
		})
	}
	return invs, nil
}

func planLayers(ext string) func(j *Job) ([]Invocation, error) {
	return func(j *Job) ([]Invocation, error) {
		layers, err := argsynth.Layers(j.Options, argsynth.LayersFlag)
		if err != nil {
			return nil, err
		}
		common := j.Option("kie_common_layers").AsList()

		invs := make([]Invocation, 0, len(layers))
		for _, layer := range layers {
			invs = append(invs, Invocation{
				Item:    layer,
				Output:  j.Path(artifact.SanitizeName(layer), ext),
				Context: argsynth.Context{Layer: layer, CommonLayers: common},
			})
		}
		return invs, nil
	}
}

func planSVG(j *Job) ([]Invocation, error) {
	if _, err := argsynth.Layers(j.Options, argsynth.LayersFlag); err != nil {
		return nil, err
	}
	return []Invocation{{Item: "svg", Output: j.Path("PCB", ".svg")}}, nil
}

func planIBOM(j *Job) ([]Invocation, error) {
	plugin := j.Env.IBOMPlugin
	if plugin == "" {
		plugin = j.Option("kie_plugin_path").AsText()
	}
	if plugin == "" {
		return nil, errors.New("no interactive BOM plugin configured")
	}
	python := j.Env.Python
	if python == "" {
		python = DefaultPython
	}
	return []Invocation{{
		Item:       "ibom",
		Tool:       python,
		Lead:       []string{plugin},
		OutputFlag: "--dest-dir",
		Output:     j.Dir.Path,
		Extra:      []string{"--name-format", j.Env.Identity.Prefix() + "-iBoM"},
	}}, nil
}

func planModel(j *Job) ([]Invocation, error) {
	variant := strings.ToUpper(j.Variant)
	var sub, ext string
	switch variant {
	case "STEP":
		sub, ext = "step", ".step"
	case "VRML":
		sub, ext = "vrml", ".wrl"
	default:
		return nil, fmt.Errorf("%w %q for ddd", ErrUnknownVariant, j.Variant)
	}

	var ov *config.Options
	if v, ok := j.Option("kie_variants").AsTable().Get(variant); ok {
		ov = v.AsTable()
	}
	return []Invocation{{
		Item:    variant,
		Lead:    []string{"pcb", "export", sub},
		Output:  j.Path("3D", ext),
		Context: argsynth.Context{Overrides: ov},
	}}, nil
}

func planRender(j *Job) ([]Invocation, error) {
	presets := j.Option("kie_presets").AsTable()
	if presets.Len() == 0 {
		return nil, errors.New("no render presets configured")
	}

	names := presets.Keys()
	if j.Variant != "" {
		if _, ok := presets.Get(j.Variant); !ok {
			return nil, fmt.Errorf("%w %q for pcb_render", ErrUnknownVariant, j.Variant)
		}
		names = []string{j.Variant}
	}

	format := j.Option("kie_format").AsText()
	if format == "" {
		format = "png"
	}

	invs := make([]Invocation, 0, len(names))
	for _, name := range names {
		preset, _ := presets.Get(name)
		invs = append(invs, Invocation{
			Item:    name,
			Output:  j.Path("Render-"+artifact.SanitizeName(name), "."+format),
			Context: argsynth.Context{Overrides: preset.AsTable()},
		})
	}
	return invs, nil
}

// defaultVariant fills in the variant of types that need one.
func defaultVariant(j *Job) string {
	if j.Desc.Name != "ddd" {
		return ""
	}
	if v := j.Option("kie_default_variant").AsText(); v != "" {
		return v
	}
	return j.Desc.Variants[0]
}

func tagRename(j *Job) error {
	renamed, err := artifact.TagRename(j.Dir.Path, j.toolPrefix(), j.Env.Identity.ProjectName, j.Env.Identity.Revision, j.Desc.Exts)
	if err != nil {
		return err
	}
	j.Env.logger().Infof("%s: tagged %d files with %s", j.Desc.Name, len(renamed), j.Env.Identity.Tag())
	return nil
}

func mergeLayers(j *Job) error {
	if !j.Option("kie_single_file").AsBool() {
		return nil
	}
	files := make([]string, 0, len(j.Planned))
	for _, inv := range j.Planned {
		files = append(files, baseName(inv.Output))
	}
	out, err := artifact.MergeWith(j.Env.merger(), j.Dir.Path, files, j.Name("PCB", ".pdf"))
	if err != nil {
		return err
	}
	j.Env.logger().Infof("%s: merged %d layers into %s", j.Desc.Name, len(files), baseName(out))
	return nil
}

func convertBOM(j *Job) error {
	if !j.Option("kie_xlsx").AsBool() {
		return nil
	}
	opts := bom.Options{Title: j.Env.Identity.Title}
	if opts.Title == "" {
		opts.Title = j.Env.Identity.Prefix()
	}
	if v, _ := j.Options.Get("--field-delimiter"); v.AsText() != "" {
		opts.Delimiter, _ = utf8.DecodeRuneInString(v.AsText())
	}

	n, err := bom.ConvertCSV(j.Path("BoM", ".csv"), j.Path("BoM", ".xlsx"), opts)
	if err != nil {
		return err
	}
	j.Env.logger().Infof("%s: wrote %d rows to %s", j.Desc.Name, n, j.Name("BoM", ".xlsx"))
	return nil
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return strings.ToUpper(string(r)) + s[size:]
}
