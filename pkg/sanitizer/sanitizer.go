// Package sanitizer normalizes free-form contact fields before they are
// validated and persisted.
package sanitizer

import (
	"strings"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

func trim(s string) string {
	return strings.TrimSpace(s)
}

func lower(s string) string {
	return strings.ToLower(s)
}

func stripInnerSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// SanitizeEmail trims, drops inner whitespace and lower-cases an address.
// An all-blank input sanitizes to "" so the required check still fires.
func SanitizeEmail(input string) string {
	p := Pipeline{
		trim,
		stripInnerSpaces,
		lower,
	}
	return p.Apply(input)
}

// SanitizeFullName trims and collapses runs of whitespace, keeping case.
func SanitizeFullName(input string) string {
	p := Pipeline{
		trim,
		collapseSpaces,
	}
	return p.Apply(input)
}
