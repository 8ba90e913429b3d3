package errors

import (
	"fmt"
	"strings"
)

// Code identifies a failure as "package.name" or "package.sub.name".
// Segments are lowercase ASCII letters, digits and underscores and start
// with a letter. A code never repeats "err" or "error": it already is one.
type Code struct {
	value string
}

// Codes shared by every package
var (
	CommonInternal      = MustNewCode("common.internal")
	CommonNotFound      = MustNewCode("common.not_found")
	CommonValidation    = MustNewCode("common.validation")
	CommonUnsupported   = MustNewCode("common.unsupported")
	CommonInvalidInput  = MustNewCode("common.invalid_input")
	CommonAlreadyExists = MustNewCode("common.already_exists")
)

const maxCodeSegments = 3

// NewCode validates s and wraps it as a Code.
func NewCode(s string) (Code, error) {
	segments := strings.Split(s, ".")
	if len(segments) < 2 || len(segments) > maxCodeSegments {
		return Code{}, fmt.Errorf("code %q: want package.name or package.sub.name", s)
	}
	for _, seg := range segments {
		if !validSegment(seg) {
			return Code{}, fmt.Errorf("code %q: segment %q must be lowercase letters, digits or underscores, starting with a letter", s, seg)
		}
	}
	if strings.Contains(s, "err") {
		return Code{}, fmt.Errorf("code %q: drop the 'err'/'error' wording", s)
	}
	return Code{value: s}, nil
}

func validSegment(seg string) bool {
	if seg == "" || seg[0] < 'a' || seg[0] > 'z' {
		return false
	}
	for i := 1; i < len(seg); i++ {
		c := seg[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '_' {
			return false
		}
	}
	return true
}

// MustNewCode is NewCode for package-level declarations; it panics on a bad code.
func MustNewCode(s string) Code {
	code, err := NewCode(s)
	if err != nil {
		panic(err)
	}
	return code
}

func (c Code) String() string { return c.value }

// Package is the first segment.
func (c Code) Package() string {
	pkg, _, _ := strings.Cut(c.value, ".")
	return pkg
}

// Name is the last segment.
func (c Code) Name() string {
	return c.value[strings.LastIndex(c.value, ".")+1:]
}

func (c Code) Equals(other Code) bool {
	return c.value == other.value
}
