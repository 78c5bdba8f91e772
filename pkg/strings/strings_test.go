package strings

import (
	"strings"
	"testing"
)

func TestBytesToString(t *testing.T) {
	b := []byte("hello world")
	s := BytesToString(b)

	if s != "hello world" {
		t.Errorf("expected 'hello world', got '%s'", s)
	}

	empty := BytesToString([]byte{})
	if empty != "" {
		t.Errorf("expected empty string, got '%s'", empty)
	}
}

func TestBuilder(t *testing.T) {
	builder := NewBuilder(32)

	builder.WriteString("hello")
	builder.WriteByte(' ')
	builder.WriteString("world")

	result := builder.String()
	if result != "hello world" {
		t.Errorf("expected 'hello world', got '%s'", result)
	}

	if builder.Len() != 11 {
		t.Errorf("expected length 11, got %d", builder.Len())
	}
}

func TestBuilderReset(t *testing.T) {
	builder := NewBuilder(32)
	builder.WriteString("test")

	builder.Reset()
	if builder.Len() != 0 {
		t.Errorf("expected length 0 after reset, got %d", builder.Len())
	}
}

func TestPooledBuilderIsReset(t *testing.T) {
	b := GetBuilder(Medium)
	b.WriteString("leftover")
	PutBuilder(b, Medium)

	b2 := GetBuilder(Medium)
	defer PutBuilder(b2, Medium)
	if b2.Len() != 0 {
		t.Errorf("expected reset builder, got length %d", b2.Len())
	}
}

func TestSizeFor(t *testing.T) {
	tests := []struct {
		n    int
		want BuilderSize
	}{
		{0, Small},
		{1024, Small},
		{1025, Medium},
		{16 * 1024, Medium},
		{16*1024 + 1, Large},
	}
	for _, tt := range tests {
		if got := SizeFor(tt.n); got != tt.want {
			t.Errorf("SizeFor(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestAppendStringLiteral(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		backslash bool
		want      string
	}{
		{"plain", "abc", false, "'abc'"},
		{"quote", "O'Brien", false, "'O''Brien'"},
		{"only quotes", "''", false, "''''''"},
		{"backslash kept", `a\b`, false, `'a\b'`},
		{"backslash doubled", `a\'b`, true, `'a\\''b'`},
		{"empty", "", false, "''"},
		{"utf8", "zoë's", false, "'zoë''s'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildString(func(b *Builder) { AppendStringLiteral(b, tt.in, tt.backslash) })
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAppendQuoted(t *testing.T) {
	got := BuildString(func(b *Builder) { AppendQuoted(b, `we"ird`, '"') })
	if got != `"we""ird"` {
		t.Errorf("got %s", got)
	}
	got = BuildString(func(b *Builder) { AppendQuoted(b, "na`me", '`') })
	if got != "`na``me`" {
		t.Errorf("got %s", got)
	}
}

func TestAppendHex(t *testing.T) {
	got := BuildString(func(b *Builder) { AppendHex(b, []byte{0x00, 0x0a, 0xff}) })
	if got != "000aff" {
		t.Errorf("got %s", got)
	}
}

func TestSQLBuilder(t *testing.T) {
	sb := NewSQLBuilder(64)
	defer sb.Close()

	sb.WriteQuery("INSERT INTO").WriteSpace().
		WriteIdentifier("people").WriteSpace().
		WriteQuery("VALUES (").WriteInt(-7).WriteQuery(", ").
		WriteStringLiteral("it's").WriteChar(')')

	want := `INSERT INTO "people" VALUES (-7, 'it''s')`
	if sb.String() != want {
		t.Errorf("got %s, want %s", sb.String(), want)
	}
}

func TestSprintf(t *testing.T) {
	if got := Sprintf("%s=%d", "rows", 3); got != "rows=3" {
		t.Errorf("got %s", got)
	}
	if got := Sprintf("no args"); got != "no args" {
		t.Errorf("got %s", got)
	}
}

func BenchmarkSQLBuilding(b *testing.B) {
	values := []string{"John Doe", "O'Brien", strings.Repeat("x", 64)}

	b.Run("PooledSQLBuilder", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			builder := NewSQLBuilder(200)
			builder.WriteQuery("INSERT INTO").WriteSpace().
				WriteIdentifier("users").WriteSpace().
				WriteQuery("VALUES (").
				WriteStringLiteral(values[0]).WriteQuery(", ").
				WriteStringLiteral(values[1]).WriteQuery(", ").
				WriteStringLiteral(values[2]).WriteQuery(")")
			_ = builder.String()
			builder.Close()
		}
	})
}
