package classlang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseSimple(t *testing.T, text string) Result {
	t.Helper()
	return Parse(text, nil, "test.hpp")
}

func TestParse_TrivialHierarchy(t *testing.T) {
	res := parseSimple(t, "class Base {}; class Derived : Base {};")
	require.Len(t, res.Records, 2)
	assert.Equal(t, "Base", res.Records[0].Name)
	assert.Equal(t, "Derived", res.Records[1].Name)
	assert.Equal(t, "Base", res.Records[1].Parent)
	assert.Empty(t, res.Diagnostics)
}

func TestParse_ForwardDeclaration(t *testing.T) {
	res := parseSimple(t, "class Foo;")
	require.Len(t, res.Records, 1)
	assert.True(t, res.Records[0].ForwardDecl)
	assert.Empty(t, res.Records[0].Properties)
}

func TestParse_PropertiesAndArray(t *testing.T) {
	res := parseSimple(t, `class X {
		scope = 2;
		displayName = "Rifle";
		magazines[] = {"30Rnd_556x45"};
	};`)
	require.Len(t, res.Records, 1)
	props := res.Records[0].Properties
	require.Len(t, props, 3)

	assert.Equal(t, "scope", props[0].Name)
	assert.Equal(t, ValueInt, props[0].Value.Kind)
	assert.EqualValues(t, 2, props[0].Value.Int)

	assert.Equal(t, "displayName", props[1].Name)
	assert.Equal(t, ValueString, props[1].Value.Kind)
	assert.Equal(t, "Rifle", props[1].Value.Str)

	assert.Equal(t, "magazines", props[2].Name)
	assert.True(t, props[2].IsArray)
	assert.Equal(t, ValueArray, props[2].Value.Kind)
	require.Len(t, props[2].Value.Array, 1)
	assert.Equal(t, "30Rnd_556x45", props[2].Value.Array[0].Str)
}

func TestParse_FloatPreservedWhenIntegerExpected(t *testing.T) {
	res := parseSimple(t, "class X { coefGravity = 0.1; };")
	require.Len(t, res.Records, 1)
	require.Len(t, res.Records[0].Properties, 1)
	assert.Equal(t, ValueFloat, res.Records[0].Properties[0].Value.Kind)
	assert.InDelta(t, 0.1, res.Records[0].Properties[0].Value.Float, 1e-9)
}

func TestParse_UnresolvedIdentifierBecomesClassRef(t *testing.T) {
	res := parseSimple(t, "class X { parentRef = SomeOtherClass; };")
	require.Len(t, res.Records[0].Properties, 1)
	v := res.Records[0].Properties[0].Value
	assert.Equal(t, ValueClassRef, v.Kind)
	assert.Equal(t, "SomeOtherClass", v.Str)
}

func TestParse_SyntaxErrorRecoversAtNextSemicolon(t *testing.T) {
	res := parseSimple(t, "class X { a = ; b = 1; };")
	require.Len(t, res.Records, 1)
	require.NotEmpty(t, res.Diagnostics)
	// Recovery should let "b = 1" still parse.
	found := false
	for _, p := range res.Records[0].Properties {
		if p.Name == "b" {
			found = true
			assert.EqualValues(t, 1, p.Value.Int)
		}
	}
	assert.True(t, found, "expected property b to survive recovery")
}

func TestParse_StringWithEscapedQuote(t *testing.T) {
	res := parseSimple(t, `class X { text = "say ""hi"" now"; };`)
	require.Len(t, res.Records[0].Properties, 1)
	assert.Equal(t, `say "hi" now`, res.Records[0].Properties[0].Value.Str)
}
