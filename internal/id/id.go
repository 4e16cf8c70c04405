// Package id implements the tagged stream/topic/partition/user identifier
// used throughout the wire protocol: either a numeric u32 or a validated
// UTF-8 name.
package id

import (
	"encoding/binary"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind tags how an Identifier is represented on the wire.
type Kind uint8

const (
	KindNumeric Kind = 1
	KindNamed   Kind = 2
)

const (
	MinNameLength = 1
	MaxNameLength = 255
)

var nameRegex = regexp.MustCompile(`^[\w.\-\s]+$`)

// Identifier is either a numeric id or a name, never both.
type Identifier struct {
	Kind  Kind
	Value uint32
	Name  string
}

// Numeric builds a numeric Identifier.
func Numeric(value uint32) Identifier {
	return Identifier{Kind: KindNumeric, Value: value}
}

// Named builds a name Identifier, validating length and charset.
func Named(name string) (Identifier, error) {
	if err := ValidateName(name); err != nil {
		return Identifier{}, err
	}
	return Identifier{Kind: KindNamed, Name: name}, nil
}

// IsNumeric reports whether the identifier carries a numeric id.
func (i Identifier) IsNumeric() bool { return i.Kind == KindNumeric }

func (i Identifier) String() string {
	if i.IsNumeric() {
		return strconv.FormatUint(uint64(i.Value), 10)
	}
	return i.Name
}

// ParseIdentifier accepts either a decimal number or a name, matching the
// pipe-separated textual command form.
func ParseIdentifier(s string) (Identifier, error) {
	if s == "" {
		return Identifier{}, fmt.Errorf("id: empty identifier")
	}
	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		return Numeric(uint32(n)), nil
	}
	return Named(s)
}

// AsBytes encodes the identifier as [kind u8][len u8][bytes].
func (i Identifier) AsBytes() []byte {
	if i.IsNumeric() {
		buf := make([]byte, 2+4)
		buf[0] = byte(KindNumeric)
		buf[1] = 4
		binary.LittleEndian.PutUint32(buf[2:], i.Value)
		return buf
	}
	name := []byte(i.Name)
	buf := make([]byte, 2+len(name))
	buf[0] = byte(KindNamed)
	buf[1] = byte(len(name))
	copy(buf[2:], name)
	return buf
}

// FromBytes decodes an Identifier and returns the number of bytes consumed.
func FromBytes(b []byte) (Identifier, int, error) {
	if len(b) < 2 {
		return Identifier{}, 0, fmt.Errorf("id: short buffer")
	}
	kind := Kind(b[0])
	length := int(b[1])
	switch kind {
	case KindNumeric:
		if length != 4 || len(b) < 2+4 {
			return Identifier{}, 0, fmt.Errorf("id: invalid numeric length %d", length)
		}
		return Numeric(binary.LittleEndian.Uint32(b[2:6])), 6, nil
	case KindNamed:
		if length < MinNameLength || length > MaxNameLength || len(b) < 2+length {
			return Identifier{}, 0, fmt.Errorf("id: invalid name length %d", length)
		}
		name := string(b[2 : 2+length])
		if err := ValidateName(name); err != nil {
			return Identifier{}, 0, err
		}
		return Identifier{Kind: KindNamed, Name: name}, 2 + length, nil
	default:
		return Identifier{}, 0, fmt.Errorf("id: unknown kind %d", kind)
	}
}

// ValidateName checks the length and charset rules for a resource name.
func ValidateName(name string) error {
	n := len(name)
	if n < MinNameLength || n > MaxNameLength {
		return fmt.Errorf("id: name length %d out of range [%d,%d]", n, MinNameLength, MaxNameLength)
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("id: name %q fails validation", name)
	}
	return nil
}

// IsValidName is the boolean form used outside error-returning contexts,
// e.g. CLI argument checks.
func IsValidName(name string) bool {
	return ValidateName(name) == nil
}

// Normalize lowercases a name and collapses whitespace runs to a single
// '.', the canonical form used for name-index lookups.
func Normalize(name string) string {
	lower := strings.ToLower(name)
	fields := strings.Fields(lower)
	return strings.Join(fields, ".")
}
