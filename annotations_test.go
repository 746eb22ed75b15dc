package probeguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpyw/probeguard/internal/diag"
	"github.com/mpyw/probeguard/probe"
	"github.com/mpyw/probeguard/unit"
)

func enumValue(c string) unit.Enum {
	return unit.Enum{Type: annotationPackage + "Kind;", Const: c}
}

func locationAnnotation(elems ...unit.Element) *unit.Annotation {
	return &unit.Annotation{Type: descLocation, Elements: elems}
}

func TestDecodeLocation(t *testing.T) {
	tests := []struct {
		name    string
		elems   []unit.Element
		want    probe.Location
		wantErr error
	}{
		{
			name: "defaults",
			want: probe.Location{Kind: probe.KindEntry, Where: probe.Before},
		},
		{
			name: "every element",
			elems: []unit.Element{
				{Name: "value", Value: enumValue("FIELD_GET")},
				{Name: "where", Value: enumValue("AFTER")},
				{Name: "clazz", Value: unit.String("java.lang.System")},
				{Name: "method", Value: unit.String("currentTimeMillis")},
				{Name: "type", Value: unit.String("long")},
				{Name: "field", Value: unit.String("out")},
				{Name: "line", Value: unit.Int(17)},
			},
			want: probe.Location{
				Kind:   probe.KindFieldGet,
				Where:  probe.After,
				Clazz:  "java.lang.System",
				Method: "currentTimeMillis",
				Type:   "long",
				Field:  "out",
				Line:   17,
			},
		},
		{
			name: "unknown kind keeps the other elements",
			elems: []unit.Element{
				{Name: "value", Value: enumValue("LOOP")},
				{Name: "where", Value: enumValue("AFTER")},
			},
			want:    probe.Location{Kind: probe.KindEntry, Where: probe.After},
			wantErr: probe.ErrUnknownKind,
		},
		{
			name: "unknown where",
			elems: []unit.Element{
				{Name: "value", Value: enumValue("RETURN")},
				{Name: "where", Value: enumValue("AROUND")},
			},
			want:    probe.Location{Kind: probe.KindReturn, Where: probe.Before},
			wantErr: probe.ErrUnknownWhere,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeLocation(locationAnnotation(tt.elems...))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeLocationRejectsNonEnum(t *testing.T) {
	_, err := decodeLocation(locationAnnotation(unit.Element{Name: "value", Value: unit.String("CALL")}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "location.value")
}

func TestDecodeMethodAnnotation(t *testing.T) {
	t.Run("foreign annotation", func(t *testing.T) {
		ann, err := decodeMethodAnnotation(&unit.Annotation{Type: "Ljava/lang/Deprecated;"})
		require.NoError(t, err)
		assert.Nil(t, ann)
	})

	t.Run("plain handler", func(t *testing.T) {
		ann, err := decodeMethodAnnotation(&unit.Annotation{Type: annotationPackage + "OnTimer;"})
		require.NoError(t, err)
		assert.Equal(t, plainHandlerAnnotation{}, ann)
	})

	t.Run("probe", func(t *testing.T) {
		ann, err := decodeMethodAnnotation(&unit.Annotation{
			Type: descOnProbe,
			Elements: []unit.Element{
				{Name: "namespace", Value: unit.String("jvm")},
				{Name: "name", Value: unit.String("gc-begin")},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, onProbeAnnotation{namespace: "jvm", name: "gc-begin"}, ann)
	})

	t.Run("method without location", func(t *testing.T) {
		ann, err := decodeMethodAnnotation(&unit.Annotation{
			Type: descOnMethod,
			Elements: []unit.Element{
				{Name: "clazz", Value: unit.String("java.util.ArrayList")},
				{Name: "method", Value: unit.String("add")},
				{Name: "type", Value: unit.String("boolean (java.lang.Object)")},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, onMethodAnnotation{
			clazz:    "java.util.ArrayList",
			method:   "add",
			typ:      "boolean (java.lang.Object)",
			location: probe.Location{Kind: probe.KindEntry, Where: probe.Before},
		}, ann)
	})

	t.Run("method with location", func(t *testing.T) {
		ann, err := decodeMethodAnnotation(&unit.Annotation{
			Type: descOnMethod,
			Elements: []unit.Element{
				{Name: "location", Value: locationAnnotation(unit.Element{Name: "value", Value: enumValue("RETURN")})},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, probe.KindReturn, ann.(onMethodAnnotation).location.Kind)
	})

	t.Run("location of the wrong type", func(t *testing.T) {
		ann, err := decodeMethodAnnotation(&unit.Annotation{
			Type: descOnMethod,
			Elements: []unit.Element{
				{Name: "clazz", Value: unit.String("A")},
				{Name: "location", Value: unit.String("RETURN")},
			},
		})
		require.Error(t, err)
		assert.Equal(t, "A", ann.(onMethodAnnotation).clazz)
	})
}

func TestDecodeParamAnnotation(t *testing.T) {
	b, ok := decodeParamAnnotation(&unit.Annotation{
		Type:     descProbeMethodName,
		Elements: []unit.Element{{Name: "fqn", Value: unit.Bool(true)}},
	}, 2)
	require.True(t, ok)
	assert.Equal(t, paramBinding{role: roleMethodName, index: 2, fqn: true}, b)

	_, ok = decodeParamAnnotation(&unit.Annotation{Type: "Ljavax/annotation/Nonnull;"}, 0)
	assert.False(t, ok)
}

func TestApplyParamBinding(t *testing.T) {
	loc := func(k probe.Kind, w probe.Where) probe.Location {
		return probe.Location{Kind: k, Where: w}
	}

	tests := []struct {
		name     string
		location probe.Location
		binding  paramBinding
		wantCode string
		check    func(t *testing.T, om *probe.OnMethod)
	}{
		{
			name:     "self anywhere",
			location: loc(probe.KindThrow, probe.Before),
			binding:  paramBinding{role: roleSelf, index: 0},
			check:    func(t *testing.T, om *probe.OnMethod) { assert.Equal(t, 0, om.SelfParameter) },
		},
		{
			name:     "class name anywhere",
			location: loc(probe.KindLine, probe.Before),
			binding:  paramBinding{role: roleClassName, index: 1},
			check:    func(t *testing.T, om *probe.OnMethod) { assert.Equal(t, 1, om.ClassNameParameter) },
		},
		{
			name:     "method name with fqn",
			location: loc(probe.KindEntry, probe.Before),
			binding:  paramBinding{role: roleMethodName, index: 2, fqn: true},
			check: func(t *testing.T, om *probe.OnMethod) {
				assert.Equal(t, 2, om.MethodParameter)
				assert.True(t, om.MethodFqn)
			},
		},
		{
			name:     "return at RETURN",
			location: loc(probe.KindReturn, probe.Before),
			binding:  paramBinding{role: roleReturn, index: 1},
			check:    func(t *testing.T, om *probe.OnMethod) { assert.Equal(t, 1, om.ReturnParameter) },
		},
		{
			name:     "return after CALL",
			location: loc(probe.KindCall, probe.After),
			binding:  paramBinding{role: roleReturn, index: 1},
			check:    func(t *testing.T, om *probe.OnMethod) { assert.Equal(t, 1, om.ReturnParameter) },
		},
		{
			name:     "return before CALL",
			location: loc(probe.KindCall, probe.Before),
			binding:  paramBinding{role: roleReturn, index: 1},
			wantCode: diag.CodeReturnDescInvalid,
		},
		{
			name:     "return at FIELD_SET",
			location: loc(probe.KindFieldSet, probe.After),
			binding:  paramBinding{role: roleReturn, index: 1},
			wantCode: diag.CodeReturnDescInvalid,
		},
		{
			name:     "target member at FIELD_SET",
			location: loc(probe.KindFieldSet, probe.Before),
			binding:  paramBinding{role: roleTargetMember, index: 3, fqn: true},
			check: func(t *testing.T, om *probe.OnMethod) {
				assert.Equal(t, 3, om.TargetMethodOrFieldParameter)
				assert.True(t, om.TargetMethodOrFieldFqn)
			},
		},
		{
			name:     "target member at ENTRY",
			location: loc(probe.KindEntry, probe.Before),
			binding:  paramBinding{role: roleTargetMember, index: 3},
			wantCode: diag.CodeCalledMethodInvalid,
		},
		{
			name:     "target instance at CALL",
			location: loc(probe.KindCall, probe.Before),
			binding:  paramBinding{role: roleTargetInstance, index: 4},
			check:    func(t *testing.T, om *probe.OnMethod) { assert.Equal(t, 4, om.TargetInstanceParameter) },
		},
		{
			name:     "target instance at NEW",
			location: loc(probe.KindNew, probe.After),
			binding:  paramBinding{role: roleTargetInstance, index: 4},
			wantCode: diag.CodeCalledInstanceInvalid,
		},
		{
			name:     "duration at ERROR",
			location: loc(probe.KindError, probe.Before),
			binding:  paramBinding{role: roleDuration, index: 5},
			check:    func(t *testing.T, om *probe.OnMethod) { assert.Equal(t, 5, om.DurationParameter) },
		},
		{
			name:     "duration at CALL",
			location: loc(probe.KindCall, probe.After),
			binding:  paramBinding{role: roleDuration, index: 5},
			wantCode: diag.CodeDurationDescInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			om := probe.NewOnMethod("h", "()V")
			om.Location = tt.location
			before := *om

			code, ok := applyParamBinding(om, tt.binding)
			if tt.wantCode != "" {
				assert.False(t, ok)
				assert.Equal(t, tt.wantCode, code)
				assert.Equal(t, before, *om, "rejected binding must not change the metadata")
				return
			}
			require.True(t, ok)
			tt.check(t, om)
		})
	}
}
