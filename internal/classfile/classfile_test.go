package classfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpyw/probeguard/internal/classfile"
	"github.com/mpyw/probeguard/internal/classfile/classfiletest"
	"github.com/mpyw/probeguard/unit"
)

const annotations = "Lnet/java/btrace/annotations/"

func histo() *unit.Unit {
	return &unit.Unit{
		Name:   "samples/Histo",
		Super:  unit.RootObject,
		Access: unit.AccPublic | unit.AccSuper,
		Annotations: []unit.Annotation{
			{Type: annotations + "BTrace;", Visible: true},
		},
		Fields: []unit.Field{
			{Name: "hits", Desc: "Ljava/util/Map;", Access: unit.AccPrivate | unit.AccStatic},
		},
		Methods: []unit.Method{
			{
				Name:   unit.Constructor,
				Desc:   "()V",
				Access: unit.AccPublic,
				Body: []unit.Instruction{
					{Offset: 0, Opcode: 0x2a}, // aload_0
					{Offset: 1, Opcode: unit.OpInvokespecial, Owner: unit.RootObject, Name: unit.Constructor, Desc: "()V"},
					{Offset: 4, Opcode: unit.OpReturn},
				},
			},
			{
				Name:   "onAdd",
				Desc:   "(Ljava/lang/Object;)V",
				Access: unit.AccPublic | unit.AccStatic,
				Annotations: []unit.Annotation{
					{
						Type:    annotations + "OnMethod;",
						Visible: true,
						Elements: []unit.Element{
							{Name: "clazz", Value: unit.String("java.util.ArrayList")},
							{Name: "method", Value: unit.String("add")},
							{Name: "location", Value: &unit.Annotation{
								Type: annotations + "Location;",
								Elements: []unit.Element{
									{Name: "value", Value: unit.Enum{Type: annotations + "Kind;", Const: "CALL"}},
									{Name: "where", Value: unit.Enum{Type: annotations + "Where;", Const: "AFTER"}},
									{Name: "line", Value: unit.Int(42)},
								},
							}},
						},
					},
				},
				ParamAnnotations: [][]unit.Annotation{
					{{Type: annotations + "Self;", Visible: true}},
				},
				Body: []unit.Instruction{
					{Offset: 0, Opcode: unit.OpGetstatic, Owner: "samples/Histo", Name: "hits", Desc: "Ljava/util/Map;"},
					{Offset: 3, Opcode: unit.OpIfnull, Targets: []int{10}},
					{Offset: 6, Opcode: unit.OpInvokestatic, Owner: "net/java/btrace/BTraceUtils", Name: "println", Desc: "(Ljava/lang/Object;)V"},
					{Offset: 9, Opcode: 0x00},
					{Offset: 10, Opcode: unit.OpReturn},
				},
			},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	want := histo()

	got, err := classfile.Parse(classfiletest.MustAssemble(t, want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRoundTripNesting(t *testing.T) {
	want := &unit.Unit{
		Name:           "samples/Outer$1",
		Super:          unit.RootObject,
		Access:         unit.AccSuper,
		Interfaces:     []string{"java/lang/Runnable"},
		EnclosingClass: "samples/Outer",
		InnerClasses: []unit.InnerClass{
			{Inner: "samples/Outer$1"},
			{Inner: "samples/Outer$Inner", Outer: "samples/Outer", InnerName: "Inner", Access: unit.AccStatic},
		},
	}

	got, err := classfile.Parse(classfiletest.MustAssemble(t, want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestElementValues(t *testing.T) {
	values := []unit.Value{
		unit.String("héllo \x00 wörld 𝄞"),
		unit.Int(-7),
		unit.Long(1 << 40),
		unit.Float(1.5),
		unit.Double(-2.25),
		unit.Bool(true),
		unit.Char('x'),
		unit.Enum{Type: "Ljava/lang/annotation/RetentionPolicy;", Const: "RUNTIME"},
		unit.ClassRef("Ljava/lang/String;"),
		unit.Array{unit.Int(1), unit.Long(2), unit.Double(3)},
		&unit.Annotation{Type: "LNested;", Elements: []unit.Element{{Name: "v", Value: unit.Bool(false)}}},
	}

	ann := unit.Annotation{Type: "LValues;"}
	for i, v := range values {
		ann.Elements = append(ann.Elements, unit.Element{Name: string(rune('a' + i)), Value: v})
	}
	u := &unit.Unit{Name: "V", Super: unit.RootObject, Annotations: []unit.Annotation{ann}}

	got, err := classfile.Parse(classfiletest.MustAssemble(t, u))
	require.NoError(t, err)
	require.Len(t, got.Annotations, 1)
	assert.False(t, got.Annotations[0].Visible)
	assert.Equal(t, ann.Elements, got.Annotations[0].Elements)
}

func TestBranchTargets(t *testing.T) {
	tableAt := 3
	tableSize := classfiletest.SwitchSize(unit.OpTableswitch, tableAt, 3)
	lookupAt := tableAt + tableSize
	lookupSize := classfiletest.SwitchSize(unit.OpLookupswitch, lookupAt, 2)
	gotoWAt := lookupAt + lookupSize
	end := gotoWAt + 5

	body := []unit.Instruction{
		{Offset: 0, Opcode: unit.OpGoto, Targets: []int{tableAt}},
		{Offset: tableAt, Opcode: unit.OpTableswitch, Targets: []int{end, lookupAt, 0}},
		{Offset: lookupAt, Opcode: unit.OpLookupswitch, Targets: []int{end, gotoWAt}},
		{Offset: gotoWAt, Opcode: unit.OpGotoW, Targets: []int{0}},
		{Offset: end, Opcode: unit.OpReturn},
	}
	u := &unit.Unit{
		Name:  "B",
		Super: unit.RootObject,
		Methods: []unit.Method{
			{Name: "m", Desc: "()V", Access: unit.AccStatic, Body: body, ExceptionHandlers: 2},
		},
	}

	got, err := classfile.Parse(classfiletest.MustAssemble(t, u))
	require.NoError(t, err)
	require.Len(t, got.Methods, 1)
	assert.Equal(t, body, got.Methods[0].Body)
	assert.Equal(t, 2, got.Methods[0].ExceptionHandlers)
}

func TestMemberInstructions(t *testing.T) {
	body := []unit.Instruction{
		{Offset: 0, Opcode: unit.OpInvokeinterface, Owner: "java/util/List", Name: "size", Desc: "()I"},
		{Offset: 5, Opcode: unit.OpInvokedynamic, Name: "run", Desc: "()Ljava/lang/Runnable;"},
		{Offset: 10, Opcode: unit.OpNew, Owner: "java/lang/StringBuilder"},
		{Offset: 13, Opcode: unit.OpMultianewarray, Owner: "[[I"},
		{Offset: 17, Opcode: unit.OpMonitorenter},
		{Offset: 18, Opcode: unit.OpAthrow},
	}
	u := &unit.Unit{
		Name:    "M",
		Super:   unit.RootObject,
		Methods: []unit.Method{{Name: "m", Desc: "()V", Body: body}},
	}

	got, err := classfile.Parse(classfiletest.MustAssemble(t, u))
	require.NoError(t, err)
	assert.Equal(t, body, got.Methods[0].Body)
}

func TestParseErrors(t *testing.T) {
	valid := classfiletest.MustAssemble(t, histo())

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{name: "empty", data: nil, want: classfile.ErrBadMagic},
		{name: "bad magic", data: []byte{0xca, 0xfe, 0xd0, 0x0d, 0, 0, 0, 52}, want: classfile.ErrBadMagic},
		{name: "header only", data: valid[:8], want: classfile.ErrTruncated},
		{name: "cut in constant pool", data: valid[:40], want: classfile.ErrTruncated},
		{name: "cut at the end", data: valid[:len(valid)-1], want: classfile.ErrTruncated},
		{name: "unknown constant tag", data: append(append([]byte{}, valid[:10]...), 2, 0, 0), want: classfile.ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := classfile.Parse(tt.data)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseUnknownOpcode(t *testing.T) {
	u := &unit.Unit{
		Name:    "X",
		Super:   unit.RootObject,
		Methods: []unit.Method{{Name: "m", Desc: "()V", Body: []unit.Instruction{{Opcode: 0xfe}}}},
	}

	_, err := classfile.Parse(classfiletest.MustAssemble(t, u))
	require.ErrorIs(t, err, classfile.ErrMalformed)
	assert.Contains(t, err.Error(), "method m()V")
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := classfiletest.WriteFile(t, dir, histo())
	assert.Equal(t, filepath.Join(dir, "samples", "Histo.class"), path)

	u, err := classfile.ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "samples/Histo", u.Name)

	_, err = classfile.ParseFile(filepath.Join(dir, "missing.class"))
	require.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.class")
	require.NoError(t, os.WriteFile(bad, []byte("not a class"), 0o644))
	_, err = classfile.ParseFile(bad)
	require.ErrorIs(t, err, classfile.ErrBadMagic)
}
