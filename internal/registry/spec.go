package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSpec is returned for malformed target specifications.
var ErrInvalidSpec = errors.New("invalid target spec")

const (
	// AnyMember matches every member of the owner.
	AnyMember = "*"
	// packageSuffix marks an owner that matches every unit below a package.
	packageSuffix = "/**"
)

// Spec holds parsed components of an allowed-target specification.
// Format: "owner.member", where owner is an internal unit name
// ("java/lang/Object") or a package prefix ("net/java/btrace/ext/**"),
// and member is a method name or "*".
type Spec struct {
	Owner  string
	Member string
}

// Parse parses a single target specification string into components.
func Parse(s string) (Spec, error) {
	s = strings.TrimSpace(s)

	lastDot := strings.LastIndex(s, ".")
	if lastDot <= 0 || lastDot == len(s)-1 {
		return Spec{}, fmt.Errorf("%w: %q: want owner.member", ErrInvalidSpec, s)
	}

	spec := Spec{Owner: s[:lastDot], Member: s[lastDot+1:]}

	// Dotted owners are accepted for convenience.
	if strings.Contains(spec.Owner, ".") {
		spec.Owner = strings.ReplaceAll(spec.Owner, ".", "/")
	}

	if strings.Contains(strings.TrimSuffix(spec.Owner, packageSuffix), "*") {
		return Spec{}, fmt.Errorf("%w: %q: wildcard only allowed as trailing /**", ErrInvalidSpec, s)
	}

	return spec, nil
}

// MustParse is like Parse but panics on error. For static tables only.
func MustParse(s string) Spec {
	spec, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return spec
}

// Matches reports whether the spec covers member of owner.
func (s Spec) Matches(owner, member string) bool {
	if s.Member != AnyMember && s.Member != member {
		return false
	}

	if pkg, ok := strings.CutSuffix(s.Owner, packageSuffix); ok {
		return strings.HasPrefix(owner, pkg+"/")
	}

	return s.Owner == owner
}

// String returns the spec in its parseable form.
func (s Spec) String() string {
	return s.Owner + "." + s.Member
}

func (s Spec) isExact() bool {
	return s.Member != AnyMember && !strings.HasSuffix(s.Owner, packageSuffix)
}
