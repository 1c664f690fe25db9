package launcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitedBuffer(t *testing.T) {
	t.Parallel()

	b := newLimitedBuffer(5)

	n, err := b.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.False(t, b.truncated)

	n, err = b.Write([]byte("defg"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.True(t, b.truncated)

	n, err = b.Write([]byte("h"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "abcde", b.String())
}
