package isbn

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValid13(t *testing.T) {
	assert.True(t, IsValid13("978-3-16-148410-0"))
	assert.True(t, IsValid13("9783161484100"))
	assert.True(t, IsValid13("9780132350884")) // Clean Code

	// altering any single digit must break the checksum
	const valid = "9783161484100"
	for i := 0; i < len(valid); i++ {
		mutated := []byte(valid)
		mutated[i] = '0' + (valid[i]-'0'+1)%10
		assert.False(t, IsValid13(string(mutated)), "mutation at index %d", i)
	}

	assert.False(t, IsValid13("978316148410"))   // 12 digits
	assert.False(t, IsValid13("97831614841000")) // 14 digits
	assert.False(t, IsValid13(""))
}

func TestIsValid10(t *testing.T) {
	assert.True(t, IsValid10("0-306-40615-2"))
	assert.True(t, IsValid10("0306406152"))
	assert.True(t, IsValid10("080442957X")) // X check character

	// changed check character
	assert.False(t, IsValid10("0-306-40615-3"))
	assert.False(t, IsValid10("0306406151"))

	// non-digit in positions 0-8
	assert.False(t, IsValid10("X306406152"))
	assert.False(t, IsValid10("030640615"))
	assert.False(t, IsValid10(""))
}

func TestIsValidDispatch(t *testing.T) {
	assert.True(t, IsValid("978-3-16-148410-0"))
	assert.True(t, IsValid("0-306-40615-2"))
	assert.False(t, IsValid("12345"))
	assert.False(t, IsValid("not an isbn"))
	assert.False(t, IsValid(""))
}

func TestGenerate13(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := Generate13()

		require.True(t, IsValid13(code), "generated %q", code)
		assert.True(t, strings.HasPrefix(code, "978-"))

		// 3-1-2-6-1 hyphenated groups
		parts := strings.Split(code, "-")
		require.Len(t, parts, 5)
		assert.Equal(t, []int{3, 1, 2, 6, 1},
			[]int{len(parts[0]), len(parts[1]), len(parts[2]), len(parts[3]), len(parts[4])})
	}
}
