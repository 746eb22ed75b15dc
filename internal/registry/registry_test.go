package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Spec
		wantErr bool
	}{
		{
			name:  "exact member",
			input: "java/lang/Object.<init>",
			want:  Spec{Owner: "java/lang/Object", Member: "<init>"},
		},
		{
			name:  "any member",
			input: "net/java/btrace/BTraceUtils.*",
			want:  Spec{Owner: "net/java/btrace/BTraceUtils", Member: "*"},
		},
		{
			name:  "package wildcard",
			input: "net/java/btrace/ext/**.*",
			want:  Spec{Owner: "net/java/btrace/ext/**", Member: "*"},
		},
		{
			name:  "dotted owner",
			input: "java.lang.Math.max",
			want:  Spec{Owner: "java/lang/Math", Member: "max"},
		},
		{
			name:  "surrounding space",
			input: "  a/B.c  ",
			want:  Spec{Owner: "a/B", Member: "c"},
		},
		{
			name:    "no member",
			input:   "java/lang/Object",
			wantErr: true,
		},
		{
			name:    "trailing dot",
			input:   "java/lang/Object.",
			wantErr: true,
		},
		{
			name:    "leading dot",
			input:   ".foo",
			wantErr: true,
		},
		{
			name:    "wildcard in the middle",
			input:   "net/*/ext/Printer.println",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidSpec)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSpecMatches(t *testing.T) {
	tests := []struct {
		spec   string
		owner  string
		member string
		want   bool
	}{
		{"java/lang/Object.<init>", "java/lang/Object", "<init>", true},
		{"java/lang/Object.<init>", "java/lang/Object", "hashCode", false},
		{"a/B.*", "a/B", "anything", true},
		{"a/B.*", "a/BB", "anything", false},
		{"a/**.*", "a/B", "x", true},
		{"a/**.*", "a/b/C", "x", true},
		{"a/**.*", "ab/C", "x", false},
		{"a/**.*", "a", "x", false},
		{"a/**.only", "a/C", "only", true},
		{"a/**.only", "a/C", "other", false},
	}

	for _, tt := range tests {
		t.Run(tt.spec+"/"+tt.owner+"."+tt.member, func(t *testing.T) {
			assert.Equal(t, tt.want, MustParse(tt.spec).Matches(tt.owner, tt.member))
		})
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := New(Builtin()...)

	assert.True(t, reg.Lookup("java/lang/Object", "<init>"))
	assert.True(t, reg.Lookup("net/java/btrace/BTraceUtils", "println"))
	assert.True(t, reg.Lookup("net/java/btrace/ext/Printer", "println"))
	assert.True(t, reg.Lookup("net/java/btrace/ext/collections/Collections", "newHashMap"))
	assert.False(t, reg.Lookup("java/lang/System", "exit"))
	assert.False(t, reg.Lookup("java/lang/Object", "wait"))
	assert.Equal(t, 3, reg.Len())
}

func TestNilRegistryApprovesNothing(t *testing.T) {
	var reg *Registry
	assert.False(t, reg.Lookup("java/lang/Object", "<init>"))
}

func TestRegistrySpecs(t *testing.T) {
	reg := New(MustParse("a/B.c"), MustParse("a/B.d"), MustParse("x/**.*"))

	specs := reg.Specs()
	assert.Len(t, specs, 3)
	assert.Equal(t, MustParse("x/**.*"), specs[2], "patterns come last")
	assert.ElementsMatch(t, []Spec{MustParse("a/B.c"), MustParse("a/B.d")}, specs[:2])
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.yaml")
	content := "targets:\n  - com/example/Helpers.format\n  - com.example.util.Strings.*\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	specs, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []Spec{
		{Owner: "com/example/Helpers", Member: "format"},
		{Owner: "com/example/util/Strings", Member: "*"},
	}, specs)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("targets:\n  - nodot\n"), 0o644))
	_, err = LoadFile(bad)
	require.ErrorIs(t, err, ErrInvalidSpec)
}
