package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBytePoolGetGrowsPastDefaultCap(t *testing.T) {
	p := NewBytePool(16)

	small := p.Get(8)
	require.Len(t, small, 8)
	p.Put(small)

	big := p.Get(64)
	require.Len(t, big, 64)
}

func TestBytePoolDropsOversizedBuffers(t *testing.T) {
	p := NewBytePool(16)

	huge := make([]byte, 16*16+1)
	p.Put(huge) // beyond keep cap, must not be pinned

	b := p.Get(8)
	require.Len(t, b, 8)
	require.Less(t, cap(b), len(huge))
}

func TestBytePoolPutNilIsSafe(t *testing.T) {
	p := NewBytePool(16)
	p.Put(nil)
	require.Len(t, p.Get(4), 4)
}
