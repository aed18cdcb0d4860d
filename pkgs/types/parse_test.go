package types

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(n int) *int { return &n }

func TestParseSpan(t *testing.T) {
	tests := []struct {
		in   string
		want Span
	}{
		{"1:10:2", Span{Start: intp(1), Stop: intp(10), Step: intp(2)}},
		{"::", Span{}},
		{"1::", Span{Start: intp(1)}},
		{":10:", Span{Stop: intp(10)}},
		{"::2", Span{Step: intp(2)}},
		{"-3:5:", Span{Start: intp(-3), Stop: intp(5)}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := parseSpan(tt.in)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, v); diff != "" {
				t.Errorf("span mismatch (-want +got):\n%s", diff)
			}
		})
	}

	for _, in := range []string{"1:10", "1", "1:10:2:3", "a:b:c", ""} {
		t.Run("bad/"+in, func(t *testing.T) {
			_, err := parseSpan(in)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "not a valid span string")
		})
	}
}

func TestSpanString(t *testing.T) {
	assert.Equal(t, "1:10:2", Span{Start: intp(1), Stop: intp(10), Step: intp(2)}.String())
	assert.Equal(t, "::", Span{}.String())
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"1", "t", "T", "true", "TRUE", "True"} {
		v, err := ParseBool(s)
		require.NoError(t, err, s)
		assert.Equal(t, true, v, s)
	}
	for _, s := range []string{"0", "f", "F", "false", "FALSE"} {
		v, err := ParseBool(s)
		require.NoError(t, err, s)
		assert.Equal(t, false, v, s)
	}
	for _, s := range []string{"yes", "no", "on", "off", "2", ""} {
		_, err := ParseBool(s)
		require.Error(t, err, s)
	}
}

func TestScalarParserNamedType(t *testing.T) {
	type port uint16
	fn := scalarParser(reflect.TypeOf(port(0)))
	require.NotNil(t, fn)
	v, err := fn("8080")
	require.NoError(t, err)
	assert.Equal(t, port(8080), v)

	_, err = fn("70000")
	assert.Error(t, err)
}

func TestScalarParserDuration(t *testing.T) {
	fn := scalarParser(reflect.TypeOf(time.Duration(0)))
	require.NotNil(t, fn)
	v, err := fn("1h30m")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, v)
}

func TestNullableUnionNoneFirst(t *testing.T) {
	// With a none parser registered, tokens it accepts become nil even when
	// a later member could also parse them.
	reg := NewRegistry()
	reg.RegisterNone(func(s string) (any, error) {
		if s == "nil" {
			return nil, nil
		}
		return nil, fmt.Errorf("%q is not nil", s)
	})

	d, err := FromExpr("string or nil", NewScope(), reg)
	require.NoError(t, err)
	require.True(t, d.Nullable)

	v, err := d.Parse("nil")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = d.Parse("value")
	require.NoError(t, err)
	assert.Equal(t, "value", v)
}

func TestNullableWithoutNoneParser(t *testing.T) {
	// Without an opt-in none parser, no token parses to nil.
	d, err := FromExpr("string or nil", NewScope(), NewRegistry())
	require.NoError(t, err)
	v, err := d.Parse("nil")
	require.NoError(t, err)
	assert.Equal(t, "nil", v)
}

func TestUnionParseFailure(t *testing.T) {
	d, err := FromExpr("int or duration", NewScope(), NewRegistry())
	require.NoError(t, err)
	_, err = d.Parse("wednesday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not be parsed as any of int or duration")
}
