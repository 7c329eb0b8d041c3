// Package ident generates short human-facing identifiers (referral codes,
// community join codes, site slugs) that must be unique within their table.
package ident

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/obs"
)

const (
	// CodeAlphabet is used for referral and join codes.
	CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

	DefaultMaxAttempts = 10
	maxSlugBase        = 40
)

// ErrExhausted is returned when every attempt produced a taken identifier.
var ErrExhausted = errors.New("ident: no free identifier found")

// Checker reports whether a candidate is already taken.
type Checker interface {
	Exists(ctx context.Context, candidate string) (bool, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, candidate string) (bool, error)

func (f CheckerFunc) Exists(ctx context.Context, candidate string) (bool, error) {
	return f(ctx, candidate)
}

// Strategy draws candidates. attempt starts at 0.
type Strategy interface {
	Kind() string
	Next(attempt int) (string, error)
}

// Generator draws candidates from a Strategy until one is free.
type Generator struct {
	maxAttempts int
}

// NewGenerator returns a Generator bounded to maxAttempts draws.
func NewGenerator(maxAttempts int) *Generator {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Generator{maxAttempts: maxAttempts}
}

// Generate returns the first candidate the checker reports as free. It gives
// up with ErrExhausted after the configured number of attempts; checker errors
// abort immediately.
func (g *Generator) Generate(ctx context.Context, s Strategy, c Checker) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate, err := s.Next(attempt)
		if err != nil {
			return "", fmt.Errorf("ident: draw %s: %w", s.Kind(), err)
		}
		taken, err := c.Exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("ident: check %s: %w", s.Kind(), err)
		}
		if !taken {
			return candidate, nil
		}
		obs.IdentifierCollision(s.Kind())
	}
	return "", fmt.Errorf("%w: %s after %d attempts", ErrExhausted, s.Kind(), g.maxAttempts)
}

// Code draws a fixed-length code; every attempt is an independent draw.
type Code struct {
	Label    string
	Length   int
	Alphabet string
}

// ReferralCode returns the strategy for profile referral codes.
func ReferralCode(length int) Code {
	return Code{Label: "referral_code", Length: length, Alphabet: CodeAlphabet}
}

// JoinCode returns the strategy for community join codes.
func JoinCode(length int) Code {
	return Code{Label: "join_code", Length: length, Alphabet: CodeAlphabet}
}

func (c Code) Kind() string {
	if c.Label == "" {
		return "code"
	}
	return c.Label
}

func (c Code) Next(int) (string, error) {
	alphabet := c.Alphabet
	if alphabet == "" {
		alphabet = CodeAlphabet
	}
	return gonanoid.Generate(alphabet, c.Length)
}

// Slug derives a URL-safe subdomain from a display name. The first attempt
// is the bare base; later attempts append a fresh random suffix to it.
type Slug struct {
	Base         string
	SuffixLength int
}

// NewSlug builds the slug strategy for name.
func NewSlug(name string) Slug {
	base := slug.Make(name)
	if len(base) > maxSlugBase {
		base = strings.TrimRight(base[:maxSlugBase], "-")
	}
	if base == "" {
		base = "site"
	}
	return Slug{Base: base, SuffixLength: 4}
}

func (s Slug) Kind() string { return "slug" }

func (s Slug) Next(attempt int) (string, error) {
	if attempt == 0 {
		return s.Base, nil
	}
	suffix, err := gonanoid.Generate(suffixAlphabet, s.SuffixLength)
	if err != nil {
		return "", err
	}
	return s.Base + "-" + suffix, nil
}

// NormalizeCode trims and upper-cases user input.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidCode reports whether code has the given length and only uses CodeAlphabet.
func ValidCode(code string, length int) bool {
	if len(code) != length {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(CodeAlphabet, r) {
			return false
		}
	}
	return true
}
