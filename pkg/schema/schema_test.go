package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageSchema() Schema {
	return Schema{Fields: []Field{
		{Name: "characterId", Kind: KindString, Required: true, MinLen: 1, MaxLen: 64},
		{Name: "content", Kind: KindString, Required: true, MinLen: 1, MaxLen: 2000},
		{Name: "stream", Kind: KindBool},
	}}
}

func TestValidate_AcceptsValidPayload(t *testing.T) {
	out, err := Validate(messageSchema(), map[string]any{
		"characterId": "aria",
		"content":     "hello",
		"stream":      true,
	})
	require.NoError(t, err)
	assert.Equal(t, "aria", out["characterId"])
	assert.Equal(t, "hello", out["content"])
	assert.Equal(t, true, out["stream"])
}

func TestValidate_DropsUndeclaredFields(t *testing.T) {
	out, err := Validate(messageSchema(), map[string]any{
		"characterId": "aria",
		"content":     "hi",
		"isAdmin":     true,
		"role":        "admin",
	})
	require.NoError(t, err)
	assert.NotContains(t, out, "isAdmin")
	assert.NotContains(t, out, "role")
}

func TestValidate_RequiredField(t *testing.T) {
	_, err := Validate(messageSchema(), map[string]any{"content": "hi"})
	var v *ViolationError
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "characterId", v.Field)
	assert.Equal(t, `Field "characterId" is required.`, v.Message)

	// Explicit null counts as absent.
	_, err = Validate(messageSchema(), map[string]any{"characterId": nil, "content": "hi"})
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "characterId", v.Field)
}

func TestValidate_FirstViolationWins(t *testing.T) {
	_, err := Validate(messageSchema(), map[string]any{
		"characterId": 42,
		"content":     false,
	})
	var v *ViolationError
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "characterId", v.Field, "violations must surface in declaration order")
}

func TestValidate_StringBounds(t *testing.T) {
	s := Schema{Fields: []Field{{Name: "content", Kind: KindString, MinLen: 1, MaxLen: 5}}}

	_, err := Validate(s, map[string]any{"content": ""})
	var v *ViolationError
	require.ErrorAs(t, err, &v)
	assert.Equal(t, `Field "content" must be at least 1 characters.`, v.Message)

	_, err = Validate(s, map[string]any{"content": "123456"})
	require.ErrorAs(t, err, &v)
	assert.Equal(t, `Field "content" must be at most 5 characters.`, v.Message)
}

func TestValidate_TypeMismatches(t *testing.T) {
	s := Schema{Fields: []Field{
		{Name: "name", Kind: KindString},
		{Name: "age", Kind: KindNumber},
		{Name: "active", Kind: KindBool},
	}}

	cases := []struct {
		name    string
		payload map[string]any
		field   string
	}{
		{"number for string", map[string]any{"name": 1.0}, "name"},
		{"string for number", map[string]any{"age": "old"}, "age"},
		{"string for bool", map[string]any{"active": "yes"}, "active"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Validate(s, tc.payload)
			var v *ViolationError
			require.ErrorAs(t, err, &v)
			assert.Equal(t, tc.field, v.Field)
		})
	}
}

func TestValidate_Enum(t *testing.T) {
	s := Schema{Fields: []Field{{Name: "visibility", Kind: KindEnum, Enum: []string{"public", "private"}}}}

	out, err := Validate(s, map[string]any{"visibility": "public"})
	require.NoError(t, err)
	assert.Equal(t, "public", out["visibility"])

	_, err = Validate(s, map[string]any{"visibility": "unlisted"})
	var v *ViolationError
	require.ErrorAs(t, err, &v)
	assert.Equal(t, `Field "visibility" must be one of [public private].`, v.Message)
}

func TestValidate_EmailFormat(t *testing.T) {
	s := Schema{Fields: []Field{{Name: "email", Kind: KindString, Format: "email"}}}

	_, err := Validate(s, map[string]any{"email": "user@example.com"})
	require.NoError(t, err)

	_, err = Validate(s, map[string]any{"email": "not-an-email"})
	var v *ViolationError
	require.ErrorAs(t, err, &v)
	assert.Equal(t, `Field "email" must be a valid email address.`, v.Message)
}

func TestValidate_ArrayElements(t *testing.T) {
	s := Schema{Fields: []Field{{
		Name:   "tags",
		Kind:   KindArray,
		MaxLen: 3,
		Elem:   &Field{Kind: KindString, MaxLen: 10},
	}}}

	out, err := Validate(s, map[string]any{"tags": []any{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, out["tags"])

	_, err = Validate(s, map[string]any{"tags": []any{"a", "b", "c", "d"}})
	var v *ViolationError
	require.ErrorAs(t, err, &v)
	assert.Equal(t, `Field "tags" must contain at most 3 items.`, v.Message)

	_, err = Validate(s, map[string]any{"tags": []any{"ok", 9.0}})
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "tags[1]", v.Field)
}

func TestValidate_OptionalFieldAbsent(t *testing.T) {
	out, err := Validate(messageSchema(), map[string]any{
		"characterId": "aria",
		"content":     "hi",
	})
	require.NoError(t, err)
	assert.NotContains(t, out, "stream")
}
