package program

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// vertexFormatInfo pairs a wgpu vertex format with its byte size.
type vertexFormatInfo struct {
	format wgpu.VertexFormat
	size   uint64
}

// wgslVertexFormatMap maps WGSL type names to their corresponding wgpu vertex
// format and byte size.
var wgslVertexFormatMap = map[string]vertexFormatInfo{
	"f32":       {wgpu.VertexFormatFloat32, 4},
	"vec2f":     {wgpu.VertexFormatFloat32x2, 8},
	"vec2<f32>": {wgpu.VertexFormatFloat32x2, 8},
	"vec3f":     {wgpu.VertexFormatFloat32x3, 12},
	"vec3<f32>": {wgpu.VertexFormatFloat32x3, 12},
	"vec4f":     {wgpu.VertexFormatFloat32x4, 16},
	"vec4<f32>": {wgpu.VertexFormatFloat32x4, 16},
	"i32":       {wgpu.VertexFormatSint32, 4},
	"vec2i":     {wgpu.VertexFormatSint32x2, 8},
	"vec2<i32>": {wgpu.VertexFormatSint32x2, 8},
	"vec3i":     {wgpu.VertexFormatSint32x3, 12},
	"vec3<i32>": {wgpu.VertexFormatSint32x3, 12},
	"vec4i":     {wgpu.VertexFormatSint32x4, 16},
	"vec4<i32>": {wgpu.VertexFormatSint32x4, 16},
	"u32":       {wgpu.VertexFormatUint32, 4},
	"vec2u":     {wgpu.VertexFormatUint32x2, 8},
	"vec2<u32>": {wgpu.VertexFormatUint32x2, 8},
	"vec3u":     {wgpu.VertexFormatUint32x3, 12},
	"vec3<u32>": {wgpu.VertexFormatUint32x3, 12},
	"vec4u":     {wgpu.VertexFormatUint32x4, 16},
	"vec4<u32>": {wgpu.VertexFormatUint32x4, 16},
}

// wgslTypeLayout is the byte size and alignment of a WGSL host-shareable type.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// wgslUniformLayoutMap maps WGSL type names to their byte size and alignment
// per the WGSL specification.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var wgslUniformLayoutMap = map[string]wgslTypeLayout{
	"f32":  {4, 4},
	"i32":  {4, 4},
	"u32":  {4, 4},
	"bool": {4, 4},

	"vec2<f32>": {8, 8},
	"vec2f":     {8, 8},
	"vec3<f32>": {12, 16},
	"vec3f":     {12, 16},
	"vec4<f32>": {16, 16},
	"vec4f":     {16, 16},

	"mat2x2<f32>": {16, 8},
	"mat3x3<f32>": {48, 16},
	"mat4x4<f32>": {64, 16},
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct field line: optional attributes, name, colon, type
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// vertexEntryRegex matches @vertex functions and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// uniformDeclRegex captures group, binding, variable name, and type from
	// declarations like: @group(0) @binding(0) var<uniform> matrices: Matrices;
	uniformDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var<uniform>\s+(\w+)\s*:\s*([^;]+?)\s*;`)

	// lineCommentRegex matches // comments to end of line
	lineCommentRegex = regexp.MustCompile(`//[^\n]*`)

	// blockCommentRegex matches /* ... */ comments, non-nesting
	blockCommentRegex = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// parsedField is one field of a parsed WGSL struct.
type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
}

// parsedStruct is a WGSL struct declaration with its parsed fields.
type parsedStruct struct {
	name   string
	fields []parsedField
}

// stripComments removes // and /* */ comments from WGSL source.
func stripComments(source string) string {
	source = blockCommentRegex.ReplaceAllString(source, "")
	return lineCommentRegex.ReplaceAllString(source, "")
}

// parseEntryPoints extracts the @vertex and @fragment entry point function
// names from cleaned WGSL source. Either name is empty when the stage is not
// declared in the source.
func parseEntryPoints(cleaned string) (vertex, fragment string) {
	if m := vertexEntryRegex.FindStringSubmatch(cleaned); m != nil {
		vertex = m[1]
	}
	if m := fragmentEntryRegex.FindStringSubmatch(cleaned); m != nil {
		fragment = m[1]
	}
	return vertex, fragment
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL
// source and parses their fields including @location and @builtin attributes.
func parseStructBlocks(cleaned string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(cleaned, -1)
	structs := make([]parsedStruct, 0, len(matches))

	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseStructFields(match[2]),
		})
	}
	return structs
}

// parseStructFields parses the body of a struct block into individual fields,
// extracting @location and @builtin attributes along with the field name and type.
func parseStructFields(body string) []parsedField {
	lines := strings.Split(body, ",")
	fields := make([]parsedField, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var field parsedField
		field.isBuiltin = builtinRegex.MatchString(line)

		if locMatch := locationRegex.FindStringSubmatch(line); locMatch != nil {
			loc, err := strconv.Atoi(locMatch[1])
			if err == nil {
				field.location = loc
			}
		} else {
			field.location = -1
		}

		fm := fieldRegex.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		field.name = fm[1]
		field.typeName = strings.TrimSpace(fm[2])

		fields = append(fields, field)
	}
	return fields
}

// isVertexInputStruct reports whether a struct is a pure vertex input: every
// field carries an @location attribute and none is a builtin.
func isVertexInputStruct(ps parsedStruct) bool {
	if len(ps.fields) == 0 {
		return false
	}
	for _, f := range ps.fields {
		if f.isBuiltin || f.location < 0 {
			return false
		}
	}
	return true
}

// attributeInfo describes one named vertex attribute resolved from a vertex
// input struct.
type attributeInfo struct {
	slot   int
	format wgpu.VertexFormat
	size   uint64
}

// parseVertexAttributes resolves the vertex input struct of cleaned WGSL
// source into named attributes. The first struct whose fields all carry
// @location attributes is taken as the vertex input. Returns an empty map if
// no such struct exists or a field uses an unrecognized type.
func parseVertexAttributes(cleaned string) map[string]attributeInfo {
	attrs := make(map[string]attributeInfo)
	for _, ps := range parseStructBlocks(cleaned) {
		if !isVertexInputStruct(ps) {
			continue
		}
		for _, f := range ps.fields {
			info, ok := wgslVertexFormatMap[f.typeName]
			if !ok {
				return map[string]attributeInfo{}
			}
			attrs[f.name] = attributeInfo{
				slot:   f.location,
				format: info.format,
				size:   info.size,
			}
		}
		return attrs
	}
	return attrs
}

// roundUpAlign rounds value up to the next multiple of alignment.
// Alignment must be a power of two.
func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// uniformBlock is a resolved var<uniform> declaration: its bind group slot
// and the byte layout of its struct members.
type uniformBlock struct {
	group   int
	binding int
	name    string
	offsets map[string]uint64
	size    uint64
}

// parseUniformBlock resolves the first var<uniform> declaration of cleaned
// WGSL source into member byte offsets using WGSL struct layout rules: each
// member is placed at the next offset aligned to its type, and the total size
// is rounded up to the struct's alignment. Returns false when the source
// declares no uniform, references an undeclared struct, or uses a member
// type with no known layout.
func parseUniformBlock(cleaned string) (uniformBlock, bool) {
	m := uniformDeclRegex.FindStringSubmatch(cleaned)
	if m == nil {
		return uniformBlock{}, false
	}

	group, _ := strconv.Atoi(m[1])
	binding, _ := strconv.Atoi(m[2])
	varName := m[3]
	typeName := strings.TrimSpace(m[4])

	var target *parsedStruct
	for _, ps := range parseStructBlocks(cleaned) {
		if ps.name == typeName {
			target = &ps
			break
		}
	}
	if target == nil {
		return uniformBlock{}, false
	}

	offsets := make(map[string]uint64, len(target.fields))
	offset := uint64(0)
	maxAlign := uint64(1)
	for _, f := range target.fields {
		layout, ok := wgslUniformLayoutMap[f.typeName]
		if !ok {
			return uniformBlock{}, false
		}
		offset = roundUpAlign(layout.align, offset)
		offsets[f.name] = offset
		offset += layout.size
		if layout.align > maxAlign {
			maxAlign = layout.align
		}
	}

	return uniformBlock{
		group:   group,
		binding: binding,
		name:    varName,
		offsets: offsets,
		size:    roundUpAlign(maxAlign, offset),
	}, true
}
