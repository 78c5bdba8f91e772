// Package strings provides pooled string building for SQL statement generation
package strings

import (
	"fmt"
	"strconv"
	"sync"
	"unsafe"
)

// BytesToString converts byte slice to string without allocation
// WARNING: The returned string shares memory with the byte slice.
// Do not modify the byte slice after calling this function.
func BytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// Builder is an append-only byte buffer
type Builder struct {
	buf []byte
}

// NewBuilder creates a new string builder
func NewBuilder(capacity int) *Builder {
	return &Builder{
		buf: make([]byte, 0, capacity),
	}
}

// WriteString appends a string to the builder
func (b *Builder) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

// WriteByte appends a single byte
func (b *Builder) WriteByte(c byte) {
	b.buf = append(b.buf, c)
}

// Write implements io.Writer interface
func (b *Builder) Write(p []byte) (n int, err error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// String returns the built string using zero-copy conversion.
// The result is only valid until the builder is reset.
func (b *Builder) String() string {
	return BytesToString(b.buf)
}

// Len returns the length of the built string
func (b *Builder) Len() int {
	return len(b.buf)
}

// Reset resets the builder for reuse
func (b *Builder) Reset() {
	b.buf = b.buf[:0]
}

// Grow grows the buffer capacity
func (b *Builder) Grow(n int) {
	if cap(b.buf)-len(b.buf) < n {
		newBuf := make([]byte, len(b.buf), 2*cap(b.buf)+n)
		copy(newBuf, b.buf)
		b.buf = newBuf
	}
}

// Clone creates a copy of a string (useful when you need to own the memory)
func Clone(s string) string {
	if len(s) == 0 {
		return ""
	}
	b := make([]byte, len(s))
	copy(b, s)
	return BytesToString(b)
}

var (
	// Small strings (< 1KB): identifiers, DDL, single literals
	smallBuilderPool = &sync.Pool{
		New: func() interface{} {
			return NewBuilder(1024)
		},
	}

	// Medium strings (1KB - 16KB): short INSERT chunks
	mediumBuilderPool = &sync.Pool{
		New: func() interface{} {
			return NewBuilder(16 * 1024)
		},
	}

	// Large strings (16KB+): full 10k-row INSERT chunks
	largeBuilderPool = &sync.Pool{
		New: func() interface{} {
			return NewBuilder(64 * 1024)
		},
	}
)

// BuilderSize represents different builder sizes
type BuilderSize int

const (
	Small  BuilderSize = iota // < 1KB
	Medium                    // 1KB - 16KB
	Large                     // 16KB+
)

// SizeFor picks the pool bucket for an estimated output length.
func SizeFor(estimated int) BuilderSize {
	switch {
	case estimated > 16*1024:
		return Large
	case estimated > 1024:
		return Medium
	default:
		return Small
	}
}

func poolFor(size BuilderSize) *sync.Pool {
	switch size {
	case Medium:
		return mediumBuilderPool
	case Large:
		return largeBuilderPool
	default:
		return smallBuilderPool
	}
}

// GetBuilder retrieves a pooled builder of the specified size
func GetBuilder(size BuilderSize) *Builder {
	builder := poolFor(size).Get().(*Builder)
	builder.Reset()
	return builder
}

// PutBuilder returns a builder to the appropriate pool
func PutBuilder(builder *Builder, size BuilderSize) {
	if builder == nil {
		return
	}
	builder.Reset()
	poolFor(size).Put(builder)
}

// Sprintf provides a pooled alternative to fmt.Sprintf
func Sprintf(format string, args ...interface{}) string {
	if len(args) == 0 {
		return format
	}

	size := SizeFor(len(format) + len(args)*16)
	builder := GetBuilder(size)
	defer PutBuilder(builder, size)

	fmt.Fprintf(builder, format, args...)

	return Clone(builder.String())
}

// SQLBuilder provides pooled SQL statement building
type SQLBuilder struct {
	builder *Builder
	size    BuilderSize
}

// NewSQLBuilder creates a new SQL builder
func NewSQLBuilder(estimatedLength int) *SQLBuilder {
	size := SizeFor(estimatedLength)
	b := GetBuilder(size)
	b.Grow(estimatedLength)
	return &SQLBuilder{
		builder: b,
		size:    size,
	}
}

// WriteQuery writes a SQL query part
func (sb *SQLBuilder) WriteQuery(query string) *SQLBuilder {
	sb.builder.WriteString(query)
	return sb
}

// WriteChar writes a single byte
func (sb *SQLBuilder) WriteChar(c byte) *SQLBuilder {
	sb.builder.WriteByte(c)
	return sb
}

// WriteSpace adds a space
func (sb *SQLBuilder) WriteSpace() *SQLBuilder {
	sb.builder.WriteByte(' ')
	return sb
}

// WriteStringLiteral writes a quoted string literal, doubling single quotes
func (sb *SQLBuilder) WriteStringLiteral(value string) *SQLBuilder {
	AppendStringLiteral(sb.builder, value, false)
	return sb
}

// WriteIdentifier writes a double-quoted identifier
func (sb *SQLBuilder) WriteIdentifier(name string) *SQLBuilder {
	AppendQuoted(sb.builder, name, '"')
	return sb
}

// WriteInt writes an integer value
func (sb *SQLBuilder) WriteInt(value int64) *SQLBuilder {
	sb.builder.buf = strconv.AppendInt(sb.builder.buf, value, 10)
	return sb
}

// Len returns the number of bytes written so far
func (sb *SQLBuilder) Len() int {
	return sb.builder.Len()
}

// String returns the built SQL query
func (sb *SQLBuilder) String() string {
	return Clone(sb.builder.String())
}

// Close releases the builder back to the pool
func (sb *SQLBuilder) Close() {
	if sb.builder != nil {
		PutBuilder(sb.builder, sb.size)
		sb.builder = nil
	}
}

// AppendStringLiteral writes value as a single-quoted SQL literal. Every
// single quote is doubled; with escapeBackslash every backslash is doubled
// as well, for engines that treat backslash as an escape inside literals.
func AppendStringLiteral(b *Builder, value string, escapeBackslash bool) {
	b.WriteByte('\'')
	for i := 0; i < len(value); i++ {
		switch c := value[i]; {
		case c == '\'':
			b.WriteString("''")
		case c == '\\' && escapeBackslash:
			b.WriteString(`\\`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('\'')
}

// AppendQuoted writes name between quote characters, doubling any embedded quote.
func AppendQuoted(b *Builder, name string, quote byte) {
	b.WriteByte(quote)
	for i := 0; i < len(name); i++ {
		if name[i] == quote {
			b.WriteByte(quote)
		}
		b.WriteByte(name[i])
	}
	b.WriteByte(quote)
}

const hexDigits = "0123456789abcdef"

// AppendHex writes the lowercase hex encoding of data.
func AppendHex(b *Builder, data []byte) {
	b.Grow(2 * len(data))
	for _, c := range data {
		b.buf = append(b.buf, hexDigits[c>>4], hexDigits[c&0x0f])
	}
}

// BuildWith provides a functional approach to string building
func BuildWith(size BuilderSize, fn func(*Builder)) string {
	builder := GetBuilder(size)
	defer PutBuilder(builder, size)

	fn(builder)
	return Clone(builder.String())
}

// BuildString provides a simple way to build strings with a function
func BuildString(fn func(*Builder)) string {
	return BuildWith(Small, fn)
}
