package dataset

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// CellKind tags the value held by a Cell.
type CellKind uint8

const (
	KindNull CellKind = iota
	KindNumber
	KindText
)

// Cell is one raw table value: null, a number, or text.
type Cell struct {
	kind CellKind
	num  float64
	text string
}

func Null() Cell              { return Cell{} }
func Number(f float64) Cell   { return Cell{kind: KindNumber, num: f} }
func Text(s string) Cell      { return Cell{kind: KindText, text: s} }
func (c Cell) Kind() CellKind { return c.kind }
func (c Cell) IsNull() bool   { return c.kind == KindNull }

// IsEmpty reports an empty string cell. Null cells are not empty.
func (c Cell) IsEmpty() bool { return c.kind == KindText && c.text == "" }

// Present reports a cell that is neither null nor empty.
func (c Cell) Present() bool { return !c.IsNull() && !c.IsEmpty() }

// Float returns the numeric payload when the cell holds a number.
func (c Cell) Float() (float64, bool) {
	if c.kind != KindNumber {
		return 0, false
	}
	return c.num, true
}

// String renders the text form used by classifiers and group keys.
func (c Cell) String() string {
	switch c.kind {
	case KindNumber:
		return strconv.FormatFloat(c.num, 'f', -1, 64)
	case KindText:
		return c.text
	default:
		return ""
	}
}

// Equal is raw equality: same kind and same payload.
func (c Cell) Equal(o Cell) bool {
	if c.kind != o.kind {
		return false
	}
	switch c.kind {
	case KindNumber:
		return c.num == o.num
	case KindText:
		return c.text == o.text
	default:
		return true
	}
}

// Key identifies the raw value for grouping. Number 1 and text "1" differ.
func (c Cell) Key() string {
	return fmt.Sprintf("%d:%s", c.kind, c.String())
}

func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case KindNumber:
		return json.Marshal(c.num)
	case KindText:
		return json.Marshal(c.text)
	default:
		return []byte("null"), nil
	}
}

func (c *Cell) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	cell, err := FromAny(v)
	if err != nil {
		return err
	}
	*c = cell
	return nil
}

// Any returns the cell as nil, float64 or string.
func (c Cell) Any() any {
	switch c.kind {
	case KindNumber:
		return c.num
	case KindText:
		return c.text
	default:
		return nil
	}
}

func (c Cell) MarshalYAML() (any, error) { return c.Any(), nil }

func (c *Cell) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	cell, err := FromAny(v)
	if err != nil {
		return err
	}
	*c = cell
	return nil
}

// FromAny converts a decoded JSON/YAML scalar into a Cell.
func FromAny(v any) (Cell, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case string:
		return Text(x), nil
	case float64:
		return Number(x), nil
	case float32:
		return Number(float64(x)), nil
	case int:
		return Number(float64(x)), nil
	case int64:
		return Number(float64(x)), nil
	case uint64:
		return Number(float64(x)), nil
	case bool:
		return Text(strconv.FormatBool(x)), nil
	default:
		return Null(), fmt.Errorf("unsupported cell value %T", v)
	}
}
