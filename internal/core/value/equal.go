package value

import (
	"encoding/binary"
	"encoding/json"
	"hash"
	"hash/fnv"
	"math"
	"reflect"
)

// Equal reports whether v and o hold the same variant with equal contents.
// Values of different variants are never equal, so Int(1) != Uint(1).
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.s == o.s
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindUint:
		return v.u == o.u
	case KindFloat:
		return v.f == o.f
	case KindTime:
		return v.t.Equal(o.t)
	case KindURL:
		return v.url.String() == o.url.String()
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.fields) != len(o.fields) {
			return false
		}
		for k, item := range v.fields {
			other, ok := o.fields[k]
			if !ok || !item.Equal(other) {
				return false
			}
		}
		return true
	case KindOpaque:
		if eq, ok := v.opaque.(Equaler); ok {
			return eq.Equal(o.opaque)
		}
		return identical(v.opaque, o.opaque)
	}
	return false
}

// identical compares two marshalers by identity. Types that cannot be
// compared with == are never identical.
func identical(a, b json.Marshaler) (same bool) {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	// Comparable structs may still hold incomparable values in interface fields.
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

// Hash returns a hash of v consistent with Equal.
func (v Value) Hash() uint64 {
	h := fnv.New64a()
	v.hash(h)
	return h.Sum64()
}

func (v Value) hash(h hash.Hash64) {
	h.Write([]byte{byte(v.kind)})
	switch v.kind {
	case KindString:
		writeLenString(h, v.s)
	case KindBool:
		if v.b {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	case KindInt:
		writeUint64(h, uint64(v.i))
	case KindUint:
		writeUint64(h, v.u)
	case KindFloat:
		f := v.f
		if f == 0 {
			f = 0 // -0 == +0
		}
		writeUint64(h, math.Float64bits(f))
	case KindTime:
		writeUint64(h, uint64(v.t.UnixNano()))
	case KindURL:
		writeLenString(h, v.url.String())
	case KindList:
		writeUint64(h, uint64(len(v.list)))
		for _, item := range v.list {
			item.hash(h)
		}
	case KindMap:
		// Entry hashes are summed so key order does not matter.
		var sum uint64
		for k, item := range v.fields {
			eh := fnv.New64a()
			writeLenString(eh, k)
			item.hash(eh)
			sum += eh.Sum64()
		}
		writeUint64(h, uint64(len(v.fields)))
		writeUint64(h, sum)
	case KindOpaque:
		switch o := v.opaque.(type) {
		case Hasher:
			writeUint64(h, o.Hash())
		case Equaler:
			// Custom equality without a hash: only the kind is known to agree.
		default:
			if b, err := o.MarshalJSON(); err == nil {
				h.Write(b)
			}
		}
	}
}

func writeUint64(h hash.Hash64, n uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	h.Write(b[:])
}

func writeLenString(h hash.Hash64, s string) {
	writeUint64(h, uint64(len(s)))
	h.Write([]byte(s))
}

func hashBytes(b []byte) uint64 {
	h := fnv.New64a()
	h.Write(b)
	return h.Sum64()
}
