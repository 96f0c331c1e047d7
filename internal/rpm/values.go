package rpm

import (
	"bytes"
	"encoding/binary"
)

// Decode reads count elements of type t from buf starting at offset.
func Decode(t ValueType, buf []byte, offset, count int) (Value, error) {
	if offset < 0 || offset > len(buf) || count < 0 {
		return nil, newError(ErrTruncated, "", "offset %d count %d outside %d byte blob", offset, count, len(buf))
	}

	if t.isString() {
		return decodeStrings(buf, offset, count)
	}

	w := t.width()
	if w == 0 {
		return nil, newError(ErrInvalidValue, "", "cannot decode type %s", t)
	}
	end := offset + w*count
	if end > len(buf) {
		return nil, newError(ErrTruncated, "", "%s[%d] at %d overruns %d byte blob", t, count, offset, len(buf))
	}
	data := buf[offset:end]

	switch t {
	case TypeChar, TypeInt8:
		return Chars(append([]byte{}, data...)), nil
	case TypeBinary:
		return Binary(append([]byte{}, data...)), nil
	case TypeInt16:
		v := make(Int16s, count)
		for i := range v {
			v[i] = binary.BigEndian.Uint16(data[i*2:])
		}
		return v, nil
	case TypeInt32:
		v := make(Int32s, count)
		for i := range v {
			v[i] = binary.BigEndian.Uint32(data[i*4:])
		}
		return v, nil
	case TypeInt64:
		v := make(Int64s, count)
		for i := range v {
			v[i] = binary.BigEndian.Uint64(data[i*8:])
		}
		return v, nil
	}
	return nil, newError(ErrInvalidValue, "", "cannot decode type %s", t)
}

func decodeStrings(buf []byte, offset, count int) (Value, error) {
	// every string takes at least its NUL
	out := make(Strings, 0, min(count, len(buf)-offset))
	pos := offset
	for i := 0; i < count; i++ {
		n := bytes.IndexByte(buf[pos:], 0)
		if n < 0 {
			return nil, newError(ErrMalformedString, "", "found %d of %d NUL terminated strings at offset %d", i, count, offset)
		}
		out = append(out, string(buf[pos:pos+n]))
		pos += n + 1
	}
	return out, nil
}

// Encode returns the on-disk bytes of v as type t.
func Encode(t ValueType, v Value) ([]byte, error) {
	if !fits(t, v) {
		return nil, newError(ErrInvalidValue, "", "%T cannot be stored as %s", v, t)
	}

	switch val := v.(type) {
	case Chars:
		return append([]byte{}, val...), nil
	case Binary:
		return append([]byte{}, val...), nil
	case Int16s:
		out := make([]byte, 2*len(val))
		for i, n := range val {
			binary.BigEndian.PutUint16(out[i*2:], n)
		}
		return out, nil
	case Int32s:
		out := make([]byte, 4*len(val))
		for i, n := range val {
			binary.BigEndian.PutUint32(out[i*4:], n)
		}
		return out, nil
	case Int64s:
		out := make([]byte, 8*len(val))
		for i, n := range val {
			binary.BigEndian.PutUint64(out[i*8:], n)
		}
		return out, nil
	case Strings:
		if t == TypeString && len(val) != 1 {
			return nil, newError(ErrInvalidValue, "", "STRING holds exactly one value, got %d", len(val))
		}
		var buf bytes.Buffer
		for _, s := range val {
			if bytes.IndexByte([]byte(s), 0) >= 0 {
				return nil, newError(ErrMalformedString, "", "string %q contains NUL", s)
			}
			buf.WriteString(s)
			buf.WriteByte(0)
		}
		return buf.Bytes(), nil
	}
	return nil, newError(ErrInvalidValue, "", "unsupported value %T", v)
}
