package shape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func mustNode(t *testing.T, src string) *yaml.Node {
	t.Helper()
	var n yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &n))
	return &n
}

func newTestResolver(t *testing.T, definitions string) *Resolver {
	t.Helper()
	var defs *yaml.Node
	if definitions != "" {
		defs = mustNode(t, definitions)
	}
	r, err := NewResolver(defs)
	require.NoError(t, err)
	return r
}

func TestResolve_ScalarKinds(t *testing.T) {
	r := newTestResolver(t, "")
	tests := []struct {
		decl string
		kind Kind
	}{
		{`{type: string}`, KindString},
		{`{type: string, format: date-time}`, KindDatetime},
		{`{type: string, format: byte}`, KindBlob},
		{`{type: integer}`, KindInteger},
		{`{type: integer, format: int64}`, KindLong},
		{`{type: number}`, KindFloat},
		{`{type: number, format: double}`, KindDouble},
		{`{type: boolean}`, KindBoolean},
	}
	for _, tc := range tests {
		s, err := r.Resolve("", mustNode(t, tc.decl))
		require.NoError(t, err, tc.decl)
		assert.Equal(t, tc.kind, s.Kind, tc.decl)
		assert.True(t, s.Kind.IsScalar())
	}
}

func TestResolve_ObjectMembersKeepDeclarationOrder(t *testing.T) {
	r := newTestResolver(t, "")
	s, err := r.Resolve("User", mustNode(t, `
type: object
required: [userId]
properties:
  userId: {type: string}
  creationDate: {type: string, format: date-time}
  roles:
    type: array
    items: {type: string}
`))
	require.NoError(t, err)
	assert.Equal(t, KindObject, s.Kind)

	members := s.Members()
	require.Len(t, members, 3)
	assert.Equal(t, "userId", members[0].Name)
	assert.Equal(t, "creationDate", members[1].Name)
	assert.Equal(t, "roles", members[2].Name)
	assert.Equal(t, KindDatetime, members[1].Shape.Kind)
	assert.Equal(t, KindArray, members[2].Shape.Kind)
	assert.Equal(t, KindString, members[2].Shape.ArrayMember.Kind)

	assert.True(t, s.IsRequired("userId"))
	assert.False(t, s.IsRequired("roles"))
	assert.Equal(t, []string{"userId"}, s.RequiredMembers())
}

func TestResolve_TypedAdditionalPropertiesBecomesMap(t *testing.T) {
	r := newTestResolver(t, "")
	s, err := r.Resolve("Tags", mustNode(t, `
type: object
additionalProperties: {type: string}
`))
	require.NoError(t, err)
	assert.Equal(t, KindMap, s.Kind)
	assert.Equal(t, KindString, s.MapKey.Kind)
	assert.Equal(t, KindString, s.MapValue.Kind)
}

func TestResolve_StructuralErrors(t *testing.T) {
	r := newTestResolver(t, "")

	_, err := r.Resolve("NoType", mustNode(t, `{description: oops}`))
	assert.ErrorIs(t, err, ErrMissingType)

	_, err = r.Resolve("Freeform", mustNode(t, `{type: object, additionalProperties: true}`))
	assert.ErrorIs(t, err, ErrFreeformMap)

	_, err = r.Resolve("Weird", mustNode(t, `{type: tuple}`))
	assert.ErrorIs(t, err, ErrUnsupportedKind)

	_, err = r.ResolveRef("#/definitions/Nope")
	assert.ErrorIs(t, err, ErrUnknownReference)
}

func TestResolve_ReferencesAndMemoization(t *testing.T) {
	r := newTestResolver(t, `
User:
  type: object
  properties:
    name: {type: string}
Request:
  type: object
  properties:
    user: {$ref: '#/definitions/User'}
    other: {$ref: '#/definitions/User'}
`)
	req, err := r.ResolveRef("#/definitions/Request")
	require.NoError(t, err)

	user, ok := req.MemberShape("user")
	require.True(t, ok)
	other, ok := req.MemberShape("other")
	require.True(t, ok)
	assert.Same(t, user, other, "repeated references resolve to the memoized instance")

	// A second resolver over the same definitions owns its own arena.
	r2 := newTestResolver(t, `
User:
  type: object
  properties:
    name: {type: string}
`)
	user2, err := r2.ResolveRef("#/definitions/User")
	require.NoError(t, err)
	assert.NotSame(t, user, user2)
}

func TestResolve_Annotations(t *testing.T) {
	r := newTestResolver(t, "")
	s, err := r.Resolve("PageSize", mustNode(t, `
type: integer
minimum: 1
maximum: 500
x-paging-page-size: true
`))
	require.NoError(t, err)
	require.NotNil(t, s.Annotations.Minimum)
	require.NotNil(t, s.Annotations.Maximum)
	assert.Equal(t, 1.0, *s.Annotations.Minimum)
	assert.Equal(t, 500.0, *s.Annotations.Maximum)
	assert.True(t, s.Annotations.PagingPageSize)

	s, err = r.Resolve("Status", mustNode(t, `
type: string
minLength: 1
maxLength: 16
enum: [ACTIVE, DELETED]
x-undocumented: true
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"ACTIVE", "DELETED"}, s.Annotations.Enum)
	assert.Equal(t, 1, *s.Annotations.MinLength)
	assert.Equal(t, 16, *s.Annotations.MaxLength)
	assert.True(t, s.Annotations.Undocumented)
}

func TestResolve_SelfReferenceTerminates(t *testing.T) {
	r := newTestResolver(t, `
Node:
  type: object
  properties:
    value: {type: string}
    next: {$ref: '#/definitions/Node'}
`)
	s, err := r.ResolveRef("#/definitions/Node")
	require.NoError(t, err)
	next, ok := s.MemberShape("next")
	require.True(t, ok)
	assert.Same(t, s, next)
}
