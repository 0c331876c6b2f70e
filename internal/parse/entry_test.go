package parse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEntry(t *testing.T) {
	testCases := []struct {
		name      string
		rawName   string
		rawQty    string
		expected  Entry
		expectErr error
	}{
		{
			name:     "Standard entry",
			rawName:  "Milk",
			rawQty:   "2",
			expected: Entry{Name: "Milk", Quantity: "2"},
		},
		{
			name:     "Blank quantity defaults to one",
			rawName:  "Bread",
			rawQty:   "   ",
			expected: Entry{Name: "Bread", Quantity: DefaultQuantity},
		},
		{
			name:     "Surrounding whitespace is trimmed",
			rawName:  "   Eggs  ",
			rawQty:   " 12 ",
			expected: Entry{Name: "Eggs", Quantity: "12"},
		},
		{
			name:     "Inner whitespace collapses",
			rawName:  "Peanut \t  butter",
			rawQty:   "1 jar",
			expected: Entry{Name: "Peanut butter", Quantity: "1 jar"},
		},
		{
			name:     "Exactly three characters",
			rawName:  "Tea",
			expected: Entry{Name: "Tea", Quantity: DefaultQuantity},
		},
		{
			name:     "Three runes of multibyte text",
			rawName:  "パン屋",
			expected: Entry{Name: "パン屋", Quantity: DefaultQuantity},
		},
		{
			name:     "Ampersand survives sanitizing",
			rawName:  "Salt & Pepper",
			expected: Entry{Name: "Salt & Pepper", Quantity: DefaultQuantity},
		},
		{
			name:     "Markup is stripped",
			rawName:  "<b>Butter</b><script>alert(1)</script>",
			expected: Entry{Name: "Butter", Quantity: DefaultQuantity},
		},
		{
			name:     "Quotes survive sanitizing",
			rawName:  `Mom's "best" cookies`,
			expected: Entry{Name: `Mom's "best" cookies`, Quantity: DefaultQuantity},
		},
		{
			name:     "Escaped markup is not decoded into tags",
			rawName:  "&lt;b&gt;Butter",
			expected: Entry{Name: "&lt;b&gt;Butter", Quantity: DefaultQuantity},
		},
		{
			name:     "Bare angle bracket stays escaped",
			rawName:  "Eggs < 12",
			expected: Entry{Name: "Eggs &lt; 12", Quantity: DefaultQuantity},
		},
		{
			name:     "Longest accepted name",
			rawName:  strings.Repeat("a", MaxNameLength),
			expected: Entry{Name: strings.Repeat("a", MaxNameLength), Quantity: DefaultQuantity},
		},
		{
			name:     "Longest name in multibyte text",
			rawName:  strings.Repeat("パ", MaxNameLength),
			expected: Entry{Name: strings.Repeat("パ", MaxNameLength), Quantity: DefaultQuantity},
		},
		{name: "Name too long", rawName: strings.Repeat("a", MaxNameLength+1), expectErr: ErrNameTooLong},
		{name: "Tag-like name is stripped", rawName: "<ab>", expectErr: ErrNameTooShort},
		{name: "Empty name", rawName: "", expectErr: ErrNameTooShort},
		{name: "One character", rawName: "a", expectErr: ErrNameTooShort},
		{name: "Two characters after trim", rawName: "  ab  ", expectErr: ErrNameTooShort},
		{name: "Only markup", rawName: "<i></i>", expectErr: ErrNameTooShort},
		{
			name:      "Quantity too long",
			rawName:   "Rice",
			rawQty:    strings.Repeat("9", MaxQuantityLength+1),
			expectErr: ErrQuantityTooLong,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			entry, err := ParseEntry(tc.rawName, tc.rawQty)
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, entry)
		})
	}
}

func TestSameName(t *testing.T) {
	assert.True(t, SameName("Milk", "milk"))
	assert.True(t, SameName("  Oat  Milk ", "oat milk"))
	assert.False(t, SameName("Milk", "Milks"))
	assert.Equal(t, "oat milk", Key(" Oat   MILK "))
}
