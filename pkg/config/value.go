package config

import (
	"strconv"
	"strings"
)

// Kind identifies the shape of a configured option value.
type Kind int

const (
	KindAbsent Kind = iota
	KindFlag
	KindText
	KindNumber
	KindList
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindFlag:
		return "flag"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindList:
		return "list"
	case KindTable:
		return "table"
	default:
		return "absent"
	}
}

// Value is a single option value. The shape is decided once when the
// configuration is decoded, so consumers switch on Kind instead of
// inspecting raw JSON types.
type Value struct {
	kind  Kind
	flag  bool
	text  string
	num   float64
	list  []string
	table *Options
}

// Absent returns the value used for missing or null options.
func Absent() Value { return Value{} }

// Flag returns a boolean value.
func Flag(b bool) Value { return Value{kind: KindFlag, flag: b} }

// Text returns a string value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// List returns an ordered list of strings.
func List(items ...string) Value {
	cp := make([]string, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

// Table returns a nested option map, e.g. a render preset.
func Table(o *Options) Value { return Value{kind: KindTable, table: o} }

func (v Value) Kind() Kind        { return v.kind }
func (v Value) IsAbsent() bool    { return v.kind == KindAbsent }
func (v Value) AsBool() bool      { return v.kind == KindFlag && v.flag }
func (v Value) AsNumber() float64 { return v.num }

// AsText returns the text of a Text value, or the formatted number of a
// Number value. Other kinds return "".
func (v Value) AsText() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return FormatNumber(v.num)
	default:
		return ""
	}
}

// AsList returns a copy of the list items. A Text value is returned as a
// single-item list so that "F.Cu" and ["F.Cu"] are interchangeable.
func (v Value) AsList() []string {
	switch v.kind {
	case KindList:
		cp := make([]string, len(v.list))
		copy(cp, v.list)
		return cp
	case KindText:
		if v.text == "" {
			return nil
		}
		return []string{v.text}
	default:
		return nil
	}
}

// AsTable returns the nested options of a Table value, or nil.
func (v Value) AsTable() *Options {
	if v.kind != KindTable {
		return nil
	}
	return v.table
}

// Empty reports whether the value must be left out of a command line:
// absent, false, or an empty string.
func (v Value) Empty() bool {
	switch v.kind {
	case KindAbsent:
		return true
	case KindFlag:
		return !v.flag
	case KindText:
		return v.text == ""
	case KindList:
		return len(v.list) == 0
	case KindTable:
		return v.table == nil || v.table.Len() == 0
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindFlag:
		return strconv.FormatBool(v.flag)
	case KindText:
		return v.text
	case KindNumber:
		return FormatNumber(v.num)
	case KindList:
		return "[" + strings.Join(v.list, ", ") + "]"
	case KindTable:
		if v.table == nil {
			return "{}"
		}
		return "{" + strings.Join(v.table.Keys(), ", ") + "}"
	default:
		return "<absent>"
	}
}

// FormatNumber renders n without trailing zeros: 6 -> "6", 0.5 -> "0.5".
func FormatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
