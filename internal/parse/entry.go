package parse

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const (
	// MinNameLength is the shortest accepted item name, counted in runes after trimming.
	MinNameLength = 3
	// MaxNameLength is the longest accepted item name, in runes. It keeps a
	// row well inside the payload limit of a change notification.
	MaxNameLength = 100
	// DefaultQuantity is used when the quantity field is left blank.
	DefaultQuantity = "1"
	// MaxQuantityLength bounds the free-form quantity string.
	MaxQuantityLength = 32
)

var (
	// ErrNameTooShort is returned for names shorter than MinNameLength.
	ErrNameTooShort = errors.New("item name must be at least 3 characters")
	// ErrNameTooLong is returned for names longer than MaxNameLength.
	ErrNameTooLong = errors.New("item name must be at most 100 characters")
	// ErrQuantityTooLong is returned for quantities longer than MaxQuantityLength.
	ErrQuantityTooLong = errors.New("quantity is too long")

	spaceRe = regexp.MustCompile(`\s+`)
	strict  = bluemonday.StrictPolicy()

	// plain decodes the escapes the sanitizer adds to ordinary text. Angle
	// brackets stay escaped so markup never comes back.
	plain = strings.NewReplacer("&amp;", "&", "&#39;", "'", "&#34;", `"`, "&#13;", "\r")
)

// Entry is a validated add-item request.
type Entry struct {
	Name     string
	Quantity string
}

// ParseEntry cleans and validates raw form input.
func ParseEntry(rawName, rawQuantity string) (Entry, error) {
	name := CleanText(rawName)
	switch n := utf8.RuneCountInString(name); {
	case n < MinNameLength:
		return Entry{}, ErrNameTooShort
	case n > MaxNameLength:
		return Entry{}, ErrNameTooLong
	}

	qty := CleanText(rawQuantity)
	if qty == "" {
		qty = DefaultQuantity
	}
	if utf8.RuneCountInString(qty) > MaxQuantityLength {
		return Entry{}, ErrQuantityTooLong
	}
	return Entry{Name: name, Quantity: qty}, nil
}

// CleanText strips markup and collapses whitespace. Ampersands and quotes
// survive unchanged, so "Salt & Pepper" stays as typed.
func CleanText(raw string) string {
	s := plain.Replace(strict.Sanitize(raw))
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// Key is the case-insensitive identity of an item name.
func Key(name string) string {
	return strings.ToLower(strings.TrimSpace(spaceRe.ReplaceAllString(name, " ")))
}

// SameName reports whether two names refer to the same item.
func SameName(a, b string) bool {
	return Key(a) == Key(b)
}
