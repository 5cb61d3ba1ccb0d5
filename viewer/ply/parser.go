package ply

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// parserImpl is the implementation of the Parser interface.
type parserImpl struct{}

// parseState carries the decode state for one document. Each Parse call gets
// its own, which keeps a single Parser safe for concurrent use.
type parseState struct {
	reader *bufio.Reader
	format Format

	// tokens buffers whitespace-separated fields of the current ASCII payload
	// line; refilled a line at a time so binary payloads are never over-read.
	tokens []string
}

// Parser defines the interface for parsing PLY documents. It handles the
// self-describing header (magic, format, element and property declarations)
// and the payload in ASCII, binary little-endian, or binary big-endian form.
// A Parser holds no per-document state and may be shared across goroutines.
type Parser interface {
	// Parse reads a complete PLY document from the reader.
	//
	// Parameters:
	//   - r: reader positioned at the start of the document
	//
	// Returns:
	//   - *Document: the parsed document
	//   - error: error if the header is malformed or the payload is truncated
	Parse(r io.Reader) (*Document, error)
}

var _ Parser = &parserImpl{}

// NewParser creates a new PLY document parser.
//
// Returns:
//   - Parser: the newly created parser
func NewParser() Parser {
	return &parserImpl{}
}

func (p *parserImpl) Parse(r io.Reader) (*Document, error) {
	st := &parseState{reader: bufio.NewReader(r)}

	doc, err := st.parseHeader()
	if err != nil {
		return nil, err
	}
	st.format = doc.Format

	for i := range doc.Elements {
		if err := st.parsePayload(&doc.Elements[i]); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// parseHeader consumes the header up to and including end_header and returns
// a Document with element declarations but no payload data.
func (p *parseState) parseHeader() (*Document, error) {
	magic, err := p.readHeaderLine()
	if err != nil {
		return nil, ErrBadMagic
	}
	if magic != "ply" {
		return nil, ErrBadMagic
	}

	doc := &Document{}
	seenFormat := false

	for {
		line, err := p.readHeaderLine()
		if err != nil {
			return nil, ErrMissingEndHeader
		}
		if line == "" {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "end_header":
			if !seenFormat {
				return nil, ErrBadFormat
			}
			return doc, nil

		case "format":
			if len(fields) != 3 {
				return nil, ErrBadFormat
			}
			switch fields[1] {
			case "ascii":
				doc.Format = FormatASCII
			case "binary_little_endian":
				doc.Format = FormatBinaryLittleEndian
			case "binary_big_endian":
				doc.Format = FormatBinaryBigEndian
			default:
				return nil, ErrBadFormat
			}
			doc.Version = fields[2]
			seenFormat = true

		case "comment", "obj_info":
			doc.Comments = append(doc.Comments, line)

		case "element":
			if len(fields) != 3 {
				return nil, fmt.Errorf("%w: %q", ErrBadHeader, line)
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil || count < 0 {
				return nil, fmt.Errorf("%w: bad element count in %q", ErrBadHeader, line)
			}
			doc.Elements = append(doc.Elements, Element{
				Name:  fields[1],
				Count: count,
			})

		case "property":
			if len(doc.Elements) == 0 {
				return nil, fmt.Errorf("%w: property before any element in %q", ErrBadHeader, line)
			}
			prop, err := parsePropertyLine(fields)
			if err != nil {
				return nil, err
			}
			elem := &doc.Elements[len(doc.Elements)-1]
			elem.Properties = append(elem.Properties, prop)

		default:
			return nil, fmt.Errorf("%w: %q", ErrBadHeader, line)
		}
	}
}

// parsePropertyLine parses a "property ..." header line into a Property.
// Both scalar ("property float x") and list
// ("property list uchar int vertex_indices") declarations are supported.
func parsePropertyLine(fields []string) (Property, error) {
	if len(fields) >= 2 && fields[1] == "list" {
		if len(fields) != 5 {
			return Property{}, fmt.Errorf("%w: %q", ErrBadHeader, strings.Join(fields, " "))
		}
		countType, ok := scalarTypeNames[fields[2]]
		if !ok {
			return Property{}, fmt.Errorf("%w: %q", ErrUnknownScalarType, fields[2])
		}
		entryType, ok := scalarTypeNames[fields[3]]
		if !ok {
			return Property{}, fmt.Errorf("%w: %q", ErrUnknownScalarType, fields[3])
		}
		return Property{
			Name:      fields[4],
			List:      true,
			CountType: countType,
			Type:      entryType,
		}, nil
	}

	if len(fields) != 3 {
		return Property{}, fmt.Errorf("%w: %q", ErrBadHeader, strings.Join(fields, " "))
	}
	typ, ok := scalarTypeNames[fields[1]]
	if !ok {
		return Property{}, fmt.Errorf("%w: %q", ErrUnknownScalarType, fields[1])
	}
	return Property{Name: fields[2], Type: typ}, nil
}

// parsePayload reads exactly elem.Count records for the element in
// declaration order.
func (p *parseState) parsePayload(elem *Element) error {
	elem.Data = make([]map[string]Value, 0, elem.Count)
	for i := 0; i < elem.Count; i++ {
		record := make(map[string]Value, len(elem.Properties))
		for _, prop := range elem.Properties {
			value, err := p.readValue(prop)
			if err != nil {
				return fmt.Errorf("ply: element %q record %d property %q: %w", elem.Name, i, prop.Name, err)
			}
			record[prop.Name] = value
		}
		elem.Data = append(elem.Data, record)
	}
	return nil
}

// readValue reads one property value (scalar or list) in the document format.
func (p *parseState) readValue(prop Property) (Value, error) {
	if !prop.List {
		num, err := p.readScalar(prop.Type)
		if err != nil {
			return Value{}, err
		}
		return newScalarValue(prop.Type, num), nil
	}

	countRaw, err := p.readScalar(prop.CountType)
	if err != nil {
		return Value{}, err
	}
	count := int(countRaw)
	if count < 0 {
		return Value{}, fmt.Errorf("%w: negative list length", ErrTruncatedPayload)
	}
	entries := make([]float64, count)
	for i := 0; i < count; i++ {
		entries[i], err = p.readScalar(prop.Type)
		if err != nil {
			return Value{}, err
		}
	}
	return newListValue(prop.Type, entries), nil
}

// readScalar reads one scalar of the given type, widened to float64.
func (p *parseState) readScalar(typ ScalarType) (float64, error) {
	if p.format == FormatASCII {
		return p.readASCIIScalar(typ)
	}
	return p.readBinaryScalar(typ)
}

// readASCIIScalar consumes the next whitespace-separated payload token.
func (p *parseState) readASCIIScalar(typ ScalarType) (float64, error) {
	token, err := p.nextToken()
	if err != nil {
		return 0, err
	}
	switch typ {
	case TypeFloat, TypeDouble:
		return strconv.ParseFloat(token, 64)
	default:
		n, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			// uint-range values above MaxInt64 are not representable anyway
			// once widened to float64; reparse unsigned for completeness.
			u, uerr := strconv.ParseUint(token, 10, 64)
			if uerr != nil {
				return 0, err
			}
			return float64(u), nil
		}
		return float64(n), nil
	}
}

// nextToken returns the next field of the ASCII payload, reading further
// lines as needed.
func (p *parseState) nextToken() (string, error) {
	for len(p.tokens) == 0 {
		line, err := p.reader.ReadString('\n')
		if line == "" && err != nil {
			return "", ErrTruncatedPayload
		}
		p.tokens = strings.Fields(line)
		if len(p.tokens) == 0 && err != nil {
			return "", ErrTruncatedPayload
		}
	}
	token := p.tokens[0]
	p.tokens = p.tokens[1:]
	return token, nil
}

// readBinaryScalar decodes one scalar in the declared byte order.
func (p *parseState) readBinaryScalar(typ ScalarType) (float64, error) {
	size := scalarTypeSizes[typ]
	var buf [8]byte
	if _, err := io.ReadFull(p.reader, buf[:size]); err != nil {
		return 0, ErrTruncatedPayload
	}

	var order binary.ByteOrder = binary.LittleEndian
	if p.format == FormatBinaryBigEndian {
		order = binary.BigEndian
	}

	switch typ {
	case TypeChar:
		return float64(int8(buf[0])), nil
	case TypeUChar:
		return float64(buf[0]), nil
	case TypeShort:
		return float64(int16(order.Uint16(buf[:2]))), nil
	case TypeUShort:
		return float64(order.Uint16(buf[:2])), nil
	case TypeInt:
		return float64(int32(order.Uint32(buf[:4]))), nil
	case TypeUInt:
		return float64(order.Uint32(buf[:4])), nil
	case TypeFloat:
		return float64(math.Float32frombits(order.Uint32(buf[:4]))), nil
	case TypeDouble:
		return math.Float64frombits(order.Uint64(buf[:8])), nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownScalarType, typ)
	}
}

// readHeaderLine reads one header line with the trailing newline and any
// carriage return stripped.
func (p *parseState) readHeaderLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
