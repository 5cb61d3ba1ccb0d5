package ply

import "errors"

// Common errors returned by the parser
var (
	ErrBadMagic          = errors.New("ply: missing 'ply' magic token")
	ErrBadFormat         = errors.New("ply: unsupported format declaration")
	ErrBadHeader         = errors.New("ply: malformed header line")
	ErrMissingEndHeader  = errors.New("ply: header not terminated by end_header")
	ErrMissingElement    = errors.New("ply: required element not present")
	ErrTruncatedPayload  = errors.New("ply: payload ended before all declared records were read")
	ErrUnknownScalarType = errors.New("ply: unknown scalar type")
)

// Format identifies the payload encoding declared in the header.
type Format int

const (
	// FormatASCII is the whitespace-separated text payload encoding.
	FormatASCII Format = iota

	// FormatBinaryLittleEndian is the little-endian binary payload encoding.
	FormatBinaryLittleEndian

	// FormatBinaryBigEndian is the big-endian binary payload encoding.
	FormatBinaryBigEndian
)

// ScalarType identifies a PLY scalar property type.
type ScalarType int

const (
	// TypeInvalid is the zero value, never produced by a successful parse.
	TypeInvalid ScalarType = iota
	TypeChar
	TypeUChar
	TypeShort
	TypeUShort
	TypeInt
	TypeUInt
	TypeFloat
	TypeDouble
)

// scalarTypeNames maps header type tokens to scalar types, including the
// sized aliases some exporters emit.
var scalarTypeNames = map[string]ScalarType{
	"char":    TypeChar,
	"int8":    TypeChar,
	"uchar":   TypeUChar,
	"uint8":   TypeUChar,
	"short":   TypeShort,
	"int16":   TypeShort,
	"ushort":  TypeUShort,
	"uint16":  TypeUShort,
	"int":     TypeInt,
	"int32":   TypeInt,
	"uint":    TypeUInt,
	"uint32":  TypeUInt,
	"float":   TypeFloat,
	"float32": TypeFloat,
	"double":  TypeDouble,
	"float64": TypeDouble,
}

// scalarTypeSizes maps scalar types to their payload size in bytes.
var scalarTypeSizes = map[ScalarType]int{
	TypeChar:   1,
	TypeUChar:  1,
	TypeShort:  2,
	TypeUShort: 2,
	TypeInt:    4,
	TypeUInt:   4,
	TypeFloat:  4,
	TypeDouble: 8,
}

// Property describes one typed property declaration of an element.
type Property struct {
	// Name is the property name as declared in the header.
	Name string

	// List is true for variable-length list properties.
	List bool

	// CountType is the scalar type of the list length prefix. Only set for lists.
	CountType ScalarType

	// Type is the scalar type of the property value, or of the list entries.
	Type ScalarType
}

// Element describes one element declaration and its parsed payload records.
type Element struct {
	// Name is the element name declared in the header (e.g. "vertex", "face").
	Name string

	// Count is the declared record count.
	Count int

	// Properties are the ordered property declarations for this element.
	Properties []Property

	// Data holds one record per declared instance, keyed by property name.
	Data []map[string]Value
}

// Document is a fully parsed PLY document.
type Document struct {
	// Format is the payload encoding declared in the header.
	Format Format

	// Version is the format version string from the header (normally "1.0").
	Version string

	// Comments holds comment and obj_info header lines verbatim.
	Comments []string

	// Elements are the parsed elements in declaration order.
	Elements []Element
}

// Element retrieves a parsed element by name.
//
// Parameters:
//   - name: the element name to look up
//
// Returns:
//   - *Element: the element, or nil if not declared
func (d *Document) Element(name string) *Element {
	for i := range d.Elements {
		if d.Elements[i].Name == name {
			return &d.Elements[i]
		}
	}
	return nil
}

// RequireElement retrieves a parsed element by name, failing when absent.
//
// Parameters:
//   - name: the element name to look up
//
// Returns:
//   - *Element: the element
//   - error: ErrMissingElement wrapped with the element name when not declared
func (d *Document) RequireElement(name string) (*Element, error) {
	if e := d.Element(name); e != nil {
		return e, nil
	}
	return nil, &missingElementError{name: name}
}

// missingElementError carries the missing element name while unwrapping to
// ErrMissingElement.
type missingElementError struct {
	name string
}

func (e *missingElementError) Error() string {
	return "ply: required element " + e.name + " not present"
}

func (e *missingElementError) Unwrap() error {
	return ErrMissingElement
}

// Value is a single parsed property value with its declared type retained.
// Typed accessors return false when the stored value has a different type
// tag, mirroring the declared schema rather than coercing.
type Value struct {
	typ    ScalarType
	isList bool
	num    float64
	list   []float64
}

// newScalarValue builds a scalar Value with its declared type.
func newScalarValue(typ ScalarType, num float64) Value {
	return Value{typ: typ, num: num}
}

// newListValue builds a list Value whose entries share the declared type.
func newListValue(typ ScalarType, entries []float64) Value {
	return Value{typ: typ, isList: true, list: entries}
}

// Type returns the declared scalar type of the value (for lists, the entry type).
func (v Value) Type() ScalarType {
	return v.typ
}

// IsList reports whether the value is a variable-length list.
func (v Value) IsList() bool {
	return v.isList
}

// Float returns the value as float32 when it was declared as a float scalar.
//
// Returns:
//   - float32: the value
//   - bool: true only when the declared type is float
func (v Value) Float() (float32, bool) {
	if v.isList || v.typ != TypeFloat {
		return 0, false
	}
	return float32(v.num), true
}

// Double returns the value as float64 when it was declared as a double scalar.
//
// Returns:
//   - float64: the value
//   - bool: true only when the declared type is double
func (v Value) Double() (float64, bool) {
	if v.isList || v.typ != TypeDouble {
		return 0, false
	}
	return v.num, true
}

// UChar returns the value as uint8 when it was declared as a uchar scalar.
//
// Returns:
//   - uint8: the value
//   - bool: true only when the declared type is uchar
func (v Value) UChar() (uint8, bool) {
	if v.isList || v.typ != TypeUChar {
		return 0, false
	}
	return uint8(v.num), true
}

// Int returns the value as int32 when it was declared as an int scalar.
//
// Returns:
//   - int32: the value
//   - bool: true only when the declared type is int
func (v Value) Int() (int32, bool) {
	if v.isList || v.typ != TypeInt {
		return 0, false
	}
	return int32(v.num), true
}

// UInt returns the value as uint32 when it was declared as a uint scalar.
//
// Returns:
//   - uint32: the value
//   - bool: true only when the declared type is uint
func (v Value) UInt() (uint32, bool) {
	if v.isList || v.typ != TypeUInt {
		return 0, false
	}
	return uint32(v.num), true
}

// Number returns the stored value widened to float64 regardless of type.
// Intended for diagnostics; typed accessors should be preferred.
func (v Value) Number() float64 {
	return v.num
}

// IntList returns the list entries widened to int64 when the value is a list
// with an integer entry type.
//
// Returns:
//   - []int64: the list entries
//   - bool: true only when the value is an integer-typed list
func (v Value) IntList() ([]int64, bool) {
	if !v.isList {
		return nil, false
	}
	switch v.typ {
	case TypeChar, TypeUChar, TypeShort, TypeUShort, TypeInt, TypeUInt:
	default:
		return nil, false
	}
	out := make([]int64, len(v.list))
	for i, e := range v.list {
		out[i] = int64(e)
	}
	return out, true
}

// List returns the raw list entries widened to float64 for any list value.
//
// Returns:
//   - []float64: the list entries
//   - bool: true only when the value is a list
func (v Value) List() ([]float64, bool) {
	if !v.isList {
		return nil, false
	}
	return v.list, true
}
