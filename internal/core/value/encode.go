package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// ErrUnencodable matches every *EncodeError.
var ErrUnencodable = errors.New("unencodable value")

// EncodeError reports a value that could not be serialized.
type EncodeError struct {
	// Path locates the value inside the document, e.g. "$.items[2]".
	Path string
	// Type is the Go type of the offending value.
	Type string
	Err  error
}

func (e *EncodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unencodable value %s at %s: %v", e.Type, e.Path, e.Err)
	}
	return fmt.Sprintf("unencodable value %s at %s", e.Type, e.Path)
}

func (e *EncodeError) Unwrap() error { return e.Err }

func (e *EncodeError) Is(target error) bool { return target == ErrUnencodable }

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf, "$"); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer, path string) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindString:
		writeString(buf, v.s)
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case KindUint:
		buf.WriteString(strconv.FormatUint(v.u, 10))
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return &EncodeError{Path: path, Type: "float64", Err: errors.New("non-finite number")}
		}
		b, err := json.Marshal(v.f)
		if err != nil {
			return &EncodeError{Path: path, Type: "float64", Err: err}
		}
		buf.Write(b)
	case KindTime:
		writeString(buf, v.t.UTC().Format(time.RFC3339))
	case KindURL:
		writeString(buf, v.url.String())
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMap:
		keys := make([]string, 0, len(v.fields))
		for k := range v.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k)
			buf.WriteByte(':')
			if err := v.fields[k].encode(buf, path+"."+k); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case KindOpaque:
		b, err := v.opaque.MarshalJSON()
		if err != nil {
			return &EncodeError{Path: path, Type: fmt.Sprintf("%T", v.opaque), Err: err}
		}
		if !json.Valid(b) {
			return &EncodeError{
				Path: path,
				Type: fmt.Sprintf("%T", v.opaque),
				Err:  errors.New("marshaler produced invalid JSON"),
			}
		}
		buf.Write(b)
	default:
		return &EncodeError{Path: path, Type: fmt.Sprintf("%T", v.raw)}
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) {
	// Marshaling a string cannot fail.
	b, _ := json.Marshal(s)
	buf.Write(b)
}
