package delta

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeApplyRoundTrip(t *testing.T) {
	base := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog. ", 20))
	target := append([]byte("PREFIX-"), base...)
	target = append(target, []byte("-SUFFIX")...)

	encoded, err := Compute(base, target)
	require.NoError(t, err)

	reconstructed, err := Apply(base, encoded)
	require.NoError(t, err)
	require.True(t, bytes.Equal(target, reconstructed))
}

func TestComputeApplyIdentical(t *testing.T) {
	base := []byte(strings.Repeat("ABCDEFGH", 100))

	encoded, err := Compute(base, base)
	require.NoError(t, err)
	require.Less(t, len(encoded), len(base))

	reconstructed, err := Apply(base, encoded)
	require.NoError(t, err)
	require.True(t, bytes.Equal(base, reconstructed))
}

func TestComputeApplyEmptyBase(t *testing.T) {
	target := []byte("entirely new content with no shared history")

	encoded, err := Compute(nil, target)
	require.NoError(t, err)

	reconstructed, err := Apply(nil, encoded)
	require.NoError(t, err)
	require.True(t, bytes.Equal(target, reconstructed))
}
