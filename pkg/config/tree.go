package config

// CommandSpec is one entry of the run list: an artifact type and an
// optional variant ("STEP", "VRML", a render preset name).
type CommandSpec struct {
	Name    string
	Variant string
}

func (c CommandSpec) String() string {
	if c.Variant == "" {
		return c.Name
	}
	return c.Name + ":" + c.Variant
}

// Tree is one decoded configuration document.
type Tree struct {
	Name        string
	Version     string
	ProjectName string
	Commands    []CommandSpec
	Data        map[string]*Options

	types []string // data keys in document order
}

// Options returns the option map for an artifact type.
func (t *Tree) Options(typ string) (*Options, bool) {
	if t == nil {
		return nil, false
	}
	o, ok := t.Data[typ]
	return o, ok
}

// Types returns the artifact types present in the data section, in
// document order.
func (t *Tree) Types() []string {
	if t == nil {
		return nil
	}
	cp := make([]string, len(t.types))
	copy(cp, t.types)
	return cp
}

func (t *Tree) lookup(typ, key string) (Value, bool) {
	o, ok := t.Options(typ)
	if !ok {
		return Absent(), false
	}
	return o.Get(key)
}
