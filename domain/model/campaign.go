package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

const (
	CampaignIDField        = "id"
	CampaignFetchTimestamp = "fetch_timestamp"
)

// Kind tags the dynamic type held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return "unknown"
}

// Value is one field of a server-defined record. Numbers keep their literal
// text so large integer ids survive a decode/encode cycle untouched.
type Value struct {
	kind Kind
	b    bool
	n    json.Number
	s    string
	arr  []Value
	obj  map[string]Value
}

func Null() Value { return Value{kind: KindNull} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func String(s string) Value { return Value{kind: KindString, s: s} }
func Number(n json.Number) Value { return Value{kind: KindNumber, n: n} }
func Array(items ...Value) Value { return Value{kind: KindArray, arr: items} }
func Object(fields map[string]Value) Value { return Value{kind: KindObject, obj: fields} }

func Int(i int64) Value { return Number(json.Number(strconv.FormatInt(i, 10))) }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }
func (v Value) AsBool() bool { return v.b }
func (v Value) AsNumber() json.Number { return v.n }
func (v Value) AsString() string { return v.s }
func (v Value) AsArray() []Value { return v.arr }
func (v Value) AsObject() map[string]Value { return v.obj }

// Truthy mirrors how the upstream service treats optional values: null, false,
// zero, the empty string and empty containers are all "absent".
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		f, err := v.n.Float64()
		return err != nil || f != 0
	case KindString:
		return v.s != ""
	case KindArray:
		return len(v.arr) > 0
	case KindObject:
		return len(v.obj) > 0
	}
	return false
}

// Text renders scalars the way they appear in the source document.
func (v Value) Text() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return v.n.String()
	case KindString:
		return v.s
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		if v.n == "" {
			return []byte("0"), nil
		}
		return []byte(v.n), nil
	case KindString:
		return json.Marshal(v.s)
	case KindArray:
		if v.arr == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.arr)
	case KindObject:
		if v.obj == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.obj)
	}
	return nil, fmt.Errorf("unknown value kind %d", v.kind)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	converted, err := valueOf(raw)
	if err != nil {
		return err
	}
	*v = converted
	return nil
}

func valueOf(raw interface{}) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(t), nil
	case string:
		return String(t), nil
	case []interface{}:
		items := make([]Value, 0, len(t))
		for _, item := range t {
			v, err := valueOf(item)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return Array(items...), nil
	case map[string]interface{}:
		fields := make(map[string]Value, len(t))
		for k, item := range t {
			v, err := valueOf(item)
			if err != nil {
				return Value{}, err
			}
			fields[k] = v
		}
		return Object(fields), nil
	}
	return Value{}, fmt.Errorf("unsupported json type %T", raw)
}

// Campaign is a single record from the campaigns listing. Its schema is
// defined by the server; only "id" is relied upon.
type Campaign map[string]Value

// ID returns the string form of the campaign id and whether it is usable as
// a natural key.
func (c Campaign) ID() (string, bool) {
	v, ok := c[CampaignIDField]
	if !ok || !v.Truthy() {
		return "", false
	}
	id := v.Text()
	return id, id != ""
}

func (c Campaign) SetFetchTimestamp(ts string) {
	c[CampaignFetchTimestamp] = String(ts)
}

// Fields returns the field names in a stable order.
func (c Campaign) Fields() []string {
	names := make([]string, 0, len(c))
	for k := range c {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// DistinctIDs collects the usable ids of a batch in first-seen order.
func DistinctIDs(campaigns []Campaign) []string {
	seen := make(map[string]struct{}, len(campaigns))
	ids := make([]string, 0, len(campaigns))
	for _, c := range campaigns {
		id, ok := c.ID()
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
