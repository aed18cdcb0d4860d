package types

import (
	"fmt"
	"net"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/funcli/pkgs/errors"
)

func TestFromExprScalars(t *testing.T) {
	sc := NewScope()
	reg := NewRegistry()

	tests := []struct {
		expr string
		kind Kind
		gt   reflect.Type
	}{
		{"int", KindScalar, reflect.TypeOf(0)},
		{"str", KindScalar, reflect.TypeOf("")},
		{"string", KindScalar, reflect.TypeOf("")},
		{"float", KindScalar, reflect.TypeOf(float64(0))},
		{"bool", KindBool, reflect.TypeOf(false)},
		{"duration", KindScalar, reflect.TypeOf(time.Duration(0))},
		{"span", KindCustom, reflect.TypeOf(Span{})},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			d, err := FromExpr(tt.expr, sc, reg)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, d.Kind)
			assert.Equal(t, tt.gt, d.Go)
		})
	}
}

func TestFromExprUnknownName(t *testing.T) {
	_, err := FromExpr("widget", NewScope(), NewRegistry())
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.ErrUnknownType))
}

func TestFromExprContainers(t *testing.T) {
	sc := NewScope()
	reg := NewRegistry()

	d, err := FromExpr("[]int", sc, reg)
	require.NoError(t, err)
	assert.Equal(t, KindList, d.Kind)
	assert.Equal(t, KindScalar, d.Elem.Kind)
	assert.Equal(t, reflect.TypeOf([]int{}), d.Go)

	d, err = FromExpr("list[string]", sc, reg)
	require.NoError(t, err)
	assert.Equal(t, KindList, d.Kind)
	assert.Equal(t, reflect.TypeOf([]string{}), d.Go)

	d, err = FromExpr("tuple[int, string]", sc, reg)
	require.NoError(t, err)
	assert.Equal(t, KindTuple, d.Kind)
	require.Len(t, d.Fields, 2)
	assert.Equal(t, reflect.TypeOf(0), d.Fields[0].Type.Go)
	assert.Equal(t, reflect.TypeOf(""), d.Fields[1].Type.Go)
}

func TestFromExprNullable(t *testing.T) {
	sc := NewScope()
	reg := NewRegistry()

	for _, expr := range []string{"*int", "int or nil", "nil or int", "int or none"} {
		t.Run(expr, func(t *testing.T) {
			d, err := FromExpr(expr, sc, reg)
			require.NoError(t, err)
			assert.Equal(t, KindScalar, d.Kind)
			assert.True(t, d.Nullable)
		})
	}
}

func TestFromExprUnion(t *testing.T) {
	sc := NewScope()
	reg := NewRegistry()

	d, err := FromExpr("int or string", sc, reg)
	require.NoError(t, err)
	require.Equal(t, KindUnion, d.Kind)
	require.Len(t, d.Members, 2)
	assert.Equal(t, "int", d.Members[0].Name)
	assert.Equal(t, "string", d.Members[1].Name)
	assert.False(t, d.Nullable)

	// Members are tried left to right.
	v, err := d.Parse("12")
	require.NoError(t, err)
	assert.Equal(t, 12, v)
	v, err = d.Parse("twelve")
	require.NoError(t, err)
	assert.Equal(t, "twelve", v)
}

func TestFromExprUnionRejectsContainers(t *testing.T) {
	sc := NewScope()
	reg := NewRegistry()

	_, err := FromExpr("[]int or string", sc, reg)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.ErrUnsupportedUnion))

	// An optional list is the one allowed combination.
	d, err := FromExpr("[]int or nil", sc, reg)
	require.NoError(t, err)
	assert.Equal(t, KindList, d.Kind)
	assert.True(t, d.Nullable)
}

func TestFromExprUnionInsideBrackets(t *testing.T) {
	// " or " inside brackets belongs to the element type, not to a
	// top-level union.
	d, err := FromExpr("list[int or string]", NewScope(), NewRegistry())
	require.NoError(t, err)
	require.Equal(t, KindList, d.Kind)
	assert.Equal(t, KindUnion, d.Elem.Kind)
}

type color int

func TestChoiceResolution(t *testing.T) {
	sc := NewScope()
	reg := NewRegistry()
	sc.RegisterChoices("color", []Choice{
		{Label: "red", Value: color(0)},
		{Label: "green", Value: color(1)},
		{Label: "blue", Value: color(2)},
	})

	byName, err := FromExpr("color", sc, reg)
	require.NoError(t, err)
	byType, err := FromGoType(reflect.TypeOf(color(0)), sc, reg)
	require.NoError(t, err)

	for _, d := range []*Descriptor{byName, byType} {
		assert.Equal(t, KindChoice, d.Kind)
		assert.Equal(t, []string{"red", "green", "blue"}, d.Labels())

		v, err := d.Parse("green")
		require.NoError(t, err)
		assert.Equal(t, color(1), v)

		_, err = d.Parse("mauve")
		require.Error(t, err)
		assert.Equal(t, `invalid choice: "mauve" (choose from red, green, blue)`, err.Error())
	}
}

func TestLiteralRegistration(t *testing.T) {
	sc := NewScope()
	sc.RegisterLiteral("level", 1, 2, 3)
	d, err := FromExpr("level", sc, NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, KindChoice, d.Kind)
	assert.Equal(t, []string{"1", "2", "3"}, d.Labels())

	v, err := d.Parse("2")
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

type coords struct {
	X int
	Y int
}

func TestFromGoTypeStructTuple(t *testing.T) {
	d, err := FromGoType(reflect.TypeOf(coords{}), NewScope(), NewRegistry())
	require.NoError(t, err)
	require.Equal(t, KindTuple, d.Kind)
	require.Len(t, d.Fields, 2)
	assert.Equal(t, "x", d.Fields[0].Name)
	assert.Equal(t, "y", d.Fields[1].Name)

	v, err := d.BuildTuple([]any{3, 4})
	require.NoError(t, err)
	assert.Equal(t, coords{X: 3, Y: 4}, v)
}

func TestFromGoTypeArrayTuple(t *testing.T) {
	d, err := FromGoType(reflect.TypeOf([2]int{}), NewScope(), NewRegistry())
	require.NoError(t, err)
	require.Equal(t, KindTuple, d.Kind)
	require.Len(t, d.Fields, 2)
	assert.Empty(t, d.Fields[0].Name)

	v, err := d.BuildTuple([]any{7, 9})
	require.NoError(t, err)
	assert.Equal(t, [2]int{7, 9}, v)
}

func TestFromGoTypePointerIsNullable(t *testing.T) {
	d, err := FromGoType(reflect.TypeOf((*int)(nil)), NewScope(), NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, KindScalar, d.Kind)
	assert.True(t, d.Nullable)
}

func TestFromGoTypeTextUnmarshaler(t *testing.T) {
	d, err := FromGoType(reflect.TypeOf(net.IP{}), NewScope(), NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, KindCustom, d.Kind)

	v, err := d.Parse("10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, net.ParseIP("10.0.0.1"), v)

	_, err = d.Parse("not-an-address")
	assert.Error(t, err)
}

func TestRegisteredParserWins(t *testing.T) {
	reg := NewRegistry()
	reg.Register(reflect.TypeOf(net.IP{}), func(s string) (any, error) {
		return nil, fmt.Errorf("custom parser called with %q", s)
	})
	d, err := FromGoType(reflect.TypeOf(net.IP{}), NewScope(), reg)
	require.NoError(t, err)
	_, err = d.Parse("10.0.0.1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "custom parser called")
}

func TestResolveBothSides(t *testing.T) {
	sc := NewScope()
	reg := NewRegistry()

	d, err := Resolve("int", reflect.TypeOf(0), sc, reg)
	require.NoError(t, err)
	assert.Equal(t, KindScalar, d.Kind)

	_, err = Resolve("string", reflect.TypeOf(0), sc, reg)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.ErrAmbiguousType))
	assert.Contains(t, err.Error(), "annotation type int conflicts with documented type string")
}

func TestResolveNamedTupleAgainstDocTuple(t *testing.T) {
	// A documented tuple[int, int] must match an annotated named-field
	// struct of the same shape.
	d, err := Resolve("tuple[int, int]", reflect.TypeOf(coords{}), NewScope(), NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, KindTuple, d.Kind)
	assert.Equal(t, "x", d.Fields[0].Name)
}

func TestResolveChoiceRefinesAnnotation(t *testing.T) {
	// A documented enumeration over the annotation's own Go type narrows it.
	sc := NewScope()
	sc.RegisterLiteral("fruit", "apple", "banana")

	d, err := Resolve("fruit", reflect.TypeOf(""), sc, NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, KindChoice, d.Kind)
	assert.Equal(t, []string{"apple", "banana"}, d.Labels())
}

func TestResolveNoInformation(t *testing.T) {
	d, err := Resolve("", nil, NewScope(), NewRegistry())
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestBuildList(t *testing.T) {
	sc := NewScope()
	d, err := FromExpr("[]int", sc, NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, d.BuildList([]any{1, 2, 3}))
	assert.Equal(t, []int{}, d.BuildList(nil))
}
