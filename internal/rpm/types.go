package rpm

import "fmt"

// ValueType is the on-disk type ordinal of an index record.
type ValueType uint32

const (
	TypeNull ValueType = iota
	TypeChar
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt64
	TypeString
	TypeBinary
	TypeStringArray
	TypeI18NString
)

// String returns the string representation of ValueType
func (t ValueType) String() string {
	switch t {
	case TypeNull:
		return "NULL"
	case TypeChar:
		return "CHAR"
	case TypeInt8:
		return "INT8"
	case TypeInt16:
		return "INT16"
	case TypeInt32:
		return "INT32"
	case TypeInt64:
		return "INT64"
	case TypeString:
		return "STRING"
	case TypeBinary:
		return "BIN"
	case TypeStringArray:
		return "STRING_ARRAY"
	case TypeI18NString:
		return "I18NSTRING"
	default:
		return fmt.Sprintf("TYPE(%d)", uint32(t))
	}
}

// width is the fixed element size, or 0 for variable-width types.
func (t ValueType) width() int {
	switch t {
	case TypeChar, TypeInt8, TypeBinary:
		return 1
	case TypeInt16:
		return 2
	case TypeInt32:
		return 4
	case TypeInt64:
		return 8
	default:
		return 0
	}
}

// alignment is the blob offset boundary a value of this type starts on.
func (t ValueType) alignment() int {
	switch t {
	case TypeInt16, TypeInt32, TypeInt64:
		return t.width()
	default:
		return 1
	}
}

func (t ValueType) isString() bool {
	return t == TypeString || t == TypeStringArray || t == TypeI18NString
}

// Value is a decoded tag value. The concrete type is one of Chars, Int16s,
// Int32s, Int64s, Strings or Binary.
type Value interface {
	// Len is the element count recorded in the index record.
	Len() int
	isValue()
}

// Chars holds CHAR and INT8 values.
type Chars []byte

// Int16s holds INT16 values. Bit patterns are preserved, so file modes such
// as 0100755 read back unchanged.
type Int16s []uint16

// Int32s holds INT32 values.
type Int32s []uint32

// Int64s holds INT64 values.
type Int64s []uint64

// Strings holds STRING, STRING_ARRAY and I18NSTRING values.
type Strings []string

// Binary holds BIN values.
type Binary []byte

func (v Chars) Len() int   { return len(v) }
func (v Int16s) Len() int  { return len(v) }
func (v Int32s) Len() int  { return len(v) }
func (v Int64s) Len() int  { return len(v) }
func (v Strings) Len() int { return len(v) }
func (v Binary) Len() int  { return len(v) }

func (Chars) isValue()   {}
func (Int16s) isValue()  {}
func (Int32s) isValue()  {}
func (Int64s) isValue()  {}
func (Strings) isValue() {}
func (Binary) isValue()  {}

// fits reports whether v is the Go representation of t.
func fits(t ValueType, v Value) bool {
	switch v.(type) {
	case Chars:
		return t == TypeChar || t == TypeInt8
	case Int16s:
		return t == TypeInt16
	case Int32s:
		return t == TypeInt32
	case Int64s:
		return t == TypeInt64
	case Strings:
		return t.isString()
	case Binary:
		return t == TypeBinary
	default:
		return false
	}
}

// concat returns a followed by b. Both must be of the same concrete type.
func concat(a, b Value) (Value, bool) {
	switch av := a.(type) {
	case Chars:
		bv, ok := b.(Chars)
		return append(append(Chars{}, av...), bv...), ok
	case Int16s:
		bv, ok := b.(Int16s)
		return append(append(Int16s{}, av...), bv...), ok
	case Int32s:
		bv, ok := b.(Int32s)
		return append(append(Int32s{}, av...), bv...), ok
	case Int64s:
		bv, ok := b.(Int64s)
		return append(append(Int64s{}, av...), bv...), ok
	case Strings:
		bv, ok := b.(Strings)
		return append(append(Strings{}, av...), bv...), ok
	case Binary:
		bv, ok := b.(Binary)
		return append(append(Binary{}, av...), bv...), ok
	default:
		return nil, false
	}
}
