// Package shape models the declarative type graph that service documents
// describe: scalars, objects, arrays and maps, together with the constraint
// and pagination annotations the rest of the engine consults.
package shape

// Kind identifies the resolved type of a Shape. It is a closed set; every
// component that dispatches on Kind must handle all values.
type Kind int

const (
	KindString Kind = iota
	KindInteger
	KindLong
	KindFloat
	KindDouble
	KindBoolean
	KindBlob
	KindDatetime
	KindObject
	KindArray
	KindMap
)

var kindNames = map[Kind]string{
	KindString:   "string",
	KindInteger:  "integer",
	KindLong:     "long",
	KindFloat:    "float",
	KindDouble:   "double",
	KindBoolean:  "boolean",
	KindBlob:     "blob",
	KindDatetime: "datetime",
	KindObject:   "object",
	KindArray:    "array",
	KindMap:      "map",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// IsScalar reports whether the kind is a leaf value rather than a container.
func (k Kind) IsScalar() bool {
	switch k {
	case KindObject, KindArray, KindMap:
		return false
	}
	return true
}

// Annotations carries the optional per-shape metadata resolved from the
// declaration. Bounds use pointers so "absent" and "zero" stay distinct.
type Annotations struct {
	Minimum   *float64
	Maximum   *float64
	MinLength *int
	MaxLength *int
	Enum      []string

	// Pagination roles. At most one member of an operation's input or
	// output shape carries each role.
	PagingInputToken  bool
	PagingOutputToken bool
	PagingResult      bool
	PagingPageSize    bool

	// NoParamFile excludes the member from external reference-file
	// expansion performed by the CLI layer.
	NoParamFile bool

	// Undocumented hides the member from generated documentation.
	Undocumented bool
}

// Member is one named member of an object shape, in declaration order.
type Member struct {
	Name  string
	Shape *Shape
}

// Shape is one node of the resolved type graph. Shapes are immutable once
// returned by a Resolver and may be shared freely.
type Shape struct {
	Name          string
	Kind          Kind
	Documentation string
	Annotations   Annotations

	members  []Member
	required map[string]struct{}

	// ArrayMember is the element shape of an array.
	ArrayMember *Shape

	// MapKey and MapValue describe a map shape. MapKey is always a
	// string shape.
	MapKey   *Shape
	MapValue *Shape
}

// Members returns the object members in declaration order. Nil for
// non-object shapes.
func (s *Shape) Members() []Member {
	return s.members
}

// MemberShape looks up an object member by name.
func (s *Shape) MemberShape(name string) (*Shape, bool) {
	for _, m := range s.members {
		if m.Name == name {
			return m.Shape, true
		}
	}
	return nil, false
}

// IsRequired reports whether the named member is in the object's required
// set.
func (s *Shape) IsRequired(name string) bool {
	_, ok := s.required[name]
	return ok
}

// RequiredMembers returns the required member names in declaration order.
func (s *Shape) RequiredMembers() []string {
	var names []string
	for _, m := range s.members {
		if s.IsRequired(m.Name) {
			names = append(names, m.Name)
		}
	}
	return names
}
