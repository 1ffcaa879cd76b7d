package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected Ordering
	}{
		{"equal simple", "1.0.0", "1.0.0", Equal},
		{"patch bump", "1.0.0", "1.0.1", Less},
		{"major bump", "2.0.0", "1.9.9", Greater},
		{"epoch wins over upstream", "1:1.0.0", "2:0.0.1", Less},
		{"epoch default zero", "1.0.0", "0:1.0.0", Equal},
		{"release differs", "1.0.0-1", "1.0.0-2", Less},
		{"missing release equals zero", "1.0.0", "1.0.0-0", Equal},
		{"tilde sorts before everything", "1.0~rc1", "1.0", Less},
		{"tilde before empty suffix", "1.0~", "1.0", Less},
		{"alpha before numeric suffix", "1.0a", "1.0.1", Less},
		{"numeric run longer wins", "1.10", "1.9", Greater},
		{"leading zeros ignored", "1.01", "1.1", Equal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Parse(tt.a)
			require.NoError(t, err)
			b, err := Parse(tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, Compare(a, b), "Compare(%s, %s)", tt.a, tt.b)
			assert.Equal(t, invert(tt.expected), Compare(b, a), "Compare(%s, %s)", tt.b, tt.a)
		})
	}
}

func TestParseRejectsEmpty(t *testing.T) {
	_, err := Parse("")
	assert.Error(t, err)
}

func TestParseRejectsBadEpoch(t *testing.T) {
	_, err := Parse("x:1.0.0")
	assert.Error(t, err)
}

func TestCompareReflexive(t *testing.T) {
	v := MustParse("3:1.2.3-4")
	assert.Equal(t, Equal, Compare(v, v))
}
