package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Limits for text that reaches an editor from a terminal, a pipe or the network.
const (
	// DefaultMaxInputSize caps one command line, in bytes.
	DefaultMaxInputSize = 4096
	// MaxLabelLength caps dot and connection labels, in runes.
	MaxLabelLength = 256
	// MaxColorLength caps color names, in bytes.
	MaxColorLength = 64
)

// EnvMaxInputSize overrides DefaultMaxInputSize.
const EnvMaxInputSize = "DOTMAP_MAX_INPUT_SIZE"

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
	ErrLabelTooLong  = errors.New("label too long")
	ErrInvalidColor  = errors.New("invalid color")
)

// IsInvalidInput reports whether err came from one of the sanitizers.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInputTooLarge) ||
		errors.Is(err, ErrInvalidUTF8) ||
		errors.Is(err, ErrLabelTooLong) ||
		errors.Is(err, ErrInvalidColor)
}

// SanitizeInput checks one command line. Oversized or malformed lines are
// rejected whole so a half command never runs. Control characters other than
// tab, newline and carriage return are dropped.
func SanitizeInput(input string) (string, error) {
	if limit := MaxInputSize(); len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return -1
		}
		return r
	}, input), nil
}

// SanitizeLabel normalizes a dot or connection label to a single trimmed line.
// Line breaks and tabs become spaces; other control characters are dropped.
// The empty string is valid and clears a label.
func SanitizeLabel(label string) (string, error) {
	if !utf8.ValidString(label) {
		return "", ErrInvalidUTF8
	}
	clean := strings.TrimSpace(strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, label))
	if n := utf8.RuneCountInString(clean); n > MaxLabelLength {
		return "", fmt.Errorf("%w: %d runes, limit %d", ErrLabelTooLong, n, MaxLabelLength)
	}
	return clean, nil
}

// SanitizeColor accepts a hex color (#rgb, #rgba, #rrggbb, #rrggbbaa) or a
// letters-only name such as "teal". Colors end up inside Mermaid style
// statements, so anything else is refused. The empty string clears a color.
func SanitizeColor(color string) (string, error) {
	c := strings.TrimSpace(color)
	if c == "" {
		return "", nil
	}
	if len(c) > MaxColorLength {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrInvalidColor, len(c), MaxColorLength)
	}
	if hex, ok := strings.CutPrefix(c, "#"); ok {
		switch len(hex) {
		case 3, 4, 6, 8:
		default:
			return "", fmt.Errorf("%w: %q", ErrInvalidColor, color)
		}
		for _, r := range hex {
			if !isHexDigit(r) {
				return "", fmt.Errorf("%w: %q", ErrInvalidColor, color)
			}
		}
		return strings.ToLower(c), nil
	}
	for _, r := range c {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return "", fmt.Errorf("%w: %q", ErrInvalidColor, color)
		}
	}
	return strings.ToLower(c), nil
}

// SanitizeOptional applies fn to *v, leaving nil alone.
func SanitizeOptional(v *string, fn func(string) (string, error)) (*string, error) {
	if v == nil {
		return nil, nil
	}
	clean, err := fn(*v)
	if err != nil {
		return nil, err
	}
	return &clean, nil
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// MaxInputSize returns the command line limit in bytes, honoring EnvMaxInputSize.
func MaxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}
