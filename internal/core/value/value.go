// Package value implements a dynamic, JSON-compatible value used for
// prediction inputs whose shape is only known to the caller.
//
// A Value is a closed tagged union: null, string, bool, signed and unsigned
// integers, floats, timestamps, URLs, lists, string-keyed maps and opaque
// encodables (any json.Marshaler). Values are immutable once built.
//
//	input := value.Of(map[string]any{
//	    "prompt": "a photo of an astronaut",
//	    "steps":  30,
//	    "seeds":  []any{1, 2, nil},
//	})
//	body, err := json.Marshal(input)
//
// Acyclicity is a precondition: Of does not detect self-referencing graphs.
package value

import (
	"encoding/json"
	"net/url"
	"reflect"
	"time"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindBool
	KindInt
	KindUint
	KindFloat
	KindTime
	KindURL
	KindList
	KindMap
	KindOpaque
	kindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindTime:
		return "time"
	case KindURL:
		return "url"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindOpaque:
		return "opaque"
	default:
		return "unsupported"
	}
}

// Value is a dynamic JSON-compatible value. The zero Value is null.
type Value struct {
	kind   Kind
	s      string
	b      bool
	i      int64
	u      uint64
	f      float64
	t      time.Time
	url    *url.URL
	list   []Value
	fields map[string]Value
	opaque json.Marshaler
	raw    any
}

// Equaler is implemented by opaque values that define their own equality.
type Equaler interface {
	Equal(other json.Marshaler) bool
}

// Hasher is implemented by opaque values that define their own hash.
// It must agree with Equal.
type Hasher interface {
	Hash() uint64
}

// Null returns the null value.
func Null() Value { return Value{} }

func String(s string) Value { return Value{kind: KindString, s: s} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func Int(i int64) Value { return Value{kind: KindInt, i: i} }

func Uint(u uint64) Value { return Value{kind: KindUint, u: u} }

func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Time returns a timestamp value, encoded as RFC 3339 in UTC.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

// List returns a list value. The items are copied.
func List(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

// URL returns a URL value. A nil URL yields null.
func URL(u *url.URL) Value {
	if u == nil {
		return Null()
	}
	cp := *u
	return Value{kind: KindURL, url: &cp}
}

// Map returns a map value. The map is copied.
func Map(fields map[string]Value) Value {
	cp := make(map[string]Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Value{kind: KindMap, fields: cp}
}

// Encodable wraps a caller-supplied value that serializes itself.
// Equality is decided by the value's Equal method when it implements
// Equaler, otherwise by identity.
func Encodable(m json.Marshaler) Value {
	if m == nil {
		return Null()
	}
	return Value{kind: KindOpaque, opaque: m}
}

// Of builds a Value from an arbitrary Go value. It never fails: values whose
// shape matches no variant are kept and reported when encoded.
func Of(raw any) Value {
	switch v := raw.(type) {
	case nil:
		return Null()
	case Value:
		return v
	case *Value:
		if v == nil {
			return Null()
		}
		return *v
	case string:
		return String(v)
	case bool:
		return Bool(v)
	case int:
		return Int(int64(v))
	case int8:
		return Int(int64(v))
	case int16:
		return Int(int64(v))
	case int32:
		return Int(int64(v))
	case int64:
		return Int(v)
	case uint:
		return Uint(uint64(v))
	case uint8:
		return Uint(uint64(v))
	case uint16:
		return Uint(uint64(v))
	case uint32:
		return Uint(uint64(v))
	case uint64:
		return Uint(v)
	case float32:
		return Float(float64(v))
	case float64:
		return Float(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return Int(i)
		}
		if f, err := v.Float64(); err == nil {
			return Float(f)
		}
		return unsupported(v)
	case time.Time:
		return Time(v)
	case *time.Time:
		if v == nil {
			return Null()
		}
		return Time(*v)
	case url.URL:
		return URL(&v)
	case *url.URL:
		return URL(v)
	case []Value:
		return List(v...)
	case map[string]Value:
		return Map(v)
	case []any:
		if v == nil {
			return Null()
		}
		items := make([]Value, len(v))
		for i, item := range v {
			items[i] = Of(item)
		}
		return Value{kind: KindList, list: items}
	case map[string]any:
		if v == nil {
			return Null()
		}
		fields := make(map[string]Value, len(v))
		for k, item := range v {
			fields[k] = Of(item)
		}
		return Value{kind: KindMap, fields: fields}
	case json.Marshaler:
		return Encodable(v)
	}
	return reflected(raw)
}

func reflected(raw any) Value {
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null()
		}
		return Of(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Null()
		}
		items := make([]Value, rv.Len())
		for i := range items {
			items[i] = Of(rv.Index(i).Interface())
		}
		return Value{kind: KindList, list: items}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return unsupported(raw)
		}
		if rv.IsNil() {
			return Null()
		}
		fields := make(map[string]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			fields[iter.Key().String()] = Of(iter.Value().Interface())
		}
		return Value{kind: KindMap, fields: fields}
	case reflect.Struct:
		return Encodable(structEncodable{v: raw})
	case reflect.String:
		return String(rv.String())
	case reflect.Bool:
		return Bool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Uint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float())
	}
	return unsupported(raw)
}

func unsupported(raw any) Value {
	return Value{kind: kindUnsupported, raw: raw}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Raw returns the Go representation of v: nil, string, bool, int64, uint64,
// float64, time.Time, *url.URL, []Value, map[string]Value or the opaque
// json.Marshaler. Lists and maps are returned as copies.
func (v Value) Raw() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindString:
		return v.s
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindUint:
		return v.u
	case KindFloat:
		return v.f
	case KindTime:
		return v.t
	case KindURL:
		cp := *v.url
		return &cp
	case KindList:
		cp := make([]Value, len(v.list))
		copy(cp, v.list)
		return cp
	case KindMap:
		cp := make(map[string]Value, len(v.fields))
		for k, item := range v.fields {
			cp[k] = item
		}
		return cp
	case KindOpaque:
		return v.opaque
	}
	return v.raw
}

// Len returns the number of elements of a list or map, 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.fields)
	}
	return 0
}

// Get returns the map entry for key.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	item, ok := v.fields[key]
	return item, ok
}

// structEncodable carries plain structs through encoding/json.
type structEncodable struct {
	v any
}

func (e structEncodable) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.v)
}

func (e structEncodable) Equal(other json.Marshaler) bool {
	o, ok := other.(structEncodable)
	return ok && reflect.DeepEqual(e.v, o.v)
}

func (e structEncodable) Hash() uint64 {
	b, err := e.MarshalJSON()
	if err != nil {
		return 0
	}
	return hashBytes(b)
}
