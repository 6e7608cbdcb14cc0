package ringid_test

import (
	"crypto/sha1"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/retorded/chordring/internal/ringid"
)

func TestHash_MatchesReferenceDefinition(t *testing.T) {
	// L2: hash(endpoint) == int.from_bytes(SHA1(utf8(endpoint)), 'big') mod 2^m
	const m = 10
	for _, endpoint := range []string{"127.0.0.1:5000", "10.0.0.7:9001", "x"} {
		digest := sha1.Sum([]byte(endpoint))
		want := new(big.Int).Mod(new(big.Int).SetBytes(digest[:]), new(big.Int).Lsh(big.NewInt(1), m)).Int64()
		require.EqualValues(t, want, ringid.Hash(endpoint, m))
	}
}

func TestHash_Deterministic(t *testing.T) {
	require.Equal(t, ringid.Hash("same", 16), ringid.Hash("same", 16))
}

func TestInOpenClosed_SelfLoop(t *testing.T) {
	// L3: in_open_closed(x, a, a) true for all x != a; false for x == a.
	const a = 7
	for x := 0; x < 16; x++ {
		got := ringid.InOpenClosed(x, a, a)
		if x == a {
			require.False(t, got, "in_open_closed(a, a, a) must be false")
		} else {
			require.True(t, got, "in_open_closed(x, a, a) must be true for x=%d", x)
		}
	}
}

func TestInOpenClosed_NonWrapping(t *testing.T) {
	require.False(t, ringid.InOpenClosed(3, 3, 8))
	require.True(t, ringid.InOpenClosed(4, 3, 8))
	require.True(t, ringid.InOpenClosed(8, 3, 8))
	require.False(t, ringid.InOpenClosed(9, 3, 8))
}

func TestInOpenClosed_Wrapping(t *testing.T) {
	// a=14, b=2 on a 16-id ring: arc is {15, 0, 1, 2}
	require.True(t, ringid.InOpenClosed(15, 14, 2))
	require.True(t, ringid.InOpenClosed(0, 14, 2))
	require.True(t, ringid.InOpenClosed(2, 14, 2))
	require.False(t, ringid.InOpenClosed(3, 14, 2))
	require.False(t, ringid.InOpenClosed(14, 14, 2))
}

func TestInOpenOpen_ExcludesBothEndpoints(t *testing.T) {
	require.False(t, ringid.InOpenOpen(3, 3, 8))
	require.True(t, ringid.InOpenOpen(4, 3, 8))
	require.False(t, ringid.InOpenOpen(8, 3, 8))
}

func TestInOpenOpen_Wrapping(t *testing.T) {
	require.True(t, ringid.InOpenOpen(15, 14, 2))
	require.False(t, ringid.InOpenOpen(2, 14, 2))
	require.False(t, ringid.InOpenOpen(14, 14, 2))
}
