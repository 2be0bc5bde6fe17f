package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateID(t *testing.T) {
	id := GenerateID("CTR")
	assert.Regexp(t, regexp.MustCompile(`^CTR-[0-9A-F]{12}$`), id)

	// IDs must be unique across calls
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		next := GenerateID("POS")
		assert.False(t, seen[next], "duplicate id %s", next)
		seen[next] = true
	}
}

func TestGenerateNFTID(t *testing.T) {
	id := GenerateNFTID()
	assert.Regexp(t, regexp.MustCompile(`^0x[0-9a-f]{40}$`), id)
	assert.NotEqual(t, id, GenerateNFTID())
}

func TestParseCSV(t *testing.T) {
	assert.Nil(t, ParseCSV(""))
	assert.Equal(t, []string{"AAA", "AA"}, ParseCSV("AAA, AA"))
	assert.Equal(t, []string{"A"}, ParseCSV(" A , , "))
	assert.Equal(t, "AAA,AA", JoinCSV([]string{"AAA", "AA"}))
}
