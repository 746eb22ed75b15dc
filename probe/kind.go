package probe

import (
	"errors"
	"fmt"
)

// ErrUnknownKind is returned when a Kind constant is not recognized.
var ErrUnknownKind = errors.New("unknown location kind")

// ErrUnknownWhere is returned when a Where constant is not recognized.
var ErrUnknownWhere = errors.New("unknown location where")

// Kind identifies the target operation a probe attaches to.
type Kind int

// Location kinds.
const (
	KindEntry Kind = iota
	KindArrayGet
	KindArraySet
	KindCall
	KindCatch
	KindCheckcast
	KindError
	KindFieldGet
	KindFieldSet
	KindInstanceof
	KindLine
	KindNew
	KindNewArray
	KindReturn
	KindSyncEntry
	KindSyncExit
	KindThrow
)

var kindNames = [...]string{
	KindEntry:      "ENTRY",
	KindArrayGet:   "ARRAY_GET",
	KindArraySet:   "ARRAY_SET",
	KindCall:       "CALL",
	KindCatch:      "CATCH",
	KindCheckcast:  "CHECKCAST",
	KindError:      "ERROR",
	KindFieldGet:   "FIELD_GET",
	KindFieldSet:   "FIELD_SET",
	KindInstanceof: "INSTANCEOF",
	KindLine:       "LINE",
	KindNew:        "NEW",
	KindNewArray:   "NEWARRAY",
	KindReturn:     "RETURN",
	KindSyncEntry:  "SYNC_ENTRY",
	KindSyncExit:   "SYNC_EXIT",
	KindThrow:      "THROW",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText encodes the kind as its constant name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseKind parses the constant name of a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Where places a probe before or after the target operation.
type Where int

// Where values.
const (
	Before Where = iota
	After
)

func (w Where) String() string {
	switch w {
	case Before:
		return "BEFORE"
	case After:
		return "AFTER"
	}
	return fmt.Sprintf("Where(%d)", int(w))
}

// MarshalText encodes the placement as its constant name.
func (w Where) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// ParseWhere parses the constant name of a Where.
func ParseWhere(s string) (Where, error) {
	switch s {
	case "BEFORE":
		return Before, nil
	case "AFTER":
		return After, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownWhere, s)
}
