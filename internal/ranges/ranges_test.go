package ranges_test

import (
	"testing"

	"github.com/netforge-labs/pktizr/internal/ranges"
	"github.com/stretchr/testify/require"
)

func TestRanges_ParsePorts_CountAndPick(t *testing.T) {
	t.Parallel()

	l, err := ranges.ParsePorts("22,80-82,443")
	require.NoError(t, err)
	require.EqualValues(t, 5, l.Count())

	want := []uint32{22, 80, 81, 82, 443}
	for i, w := range want {
		require.Equal(t, w, l.Pick(uint64(i)))
	}
}

func TestRanges_ParsePorts_RejectsOutOfRange(t *testing.T) {
	t.Parallel()

	_, err := ranges.ParsePorts("70000")
	require.Error(t, err)
}

func TestRanges_Coalescing_AdjacentIntervalsMerge(t *testing.T) {
	t.Parallel()

	a, err := ranges.ParsePorts("1-3,4-6")
	require.NoError(t, err)
	b, err := ranges.ParsePorts("1-6")
	require.NoError(t, err)

	require.Equal(t, a.Count(), b.Count())
	require.Len(t, a.Intervals(), 1)
	for i := uint64(0); i < a.Count(); i++ {
		require.Equal(t, b.Pick(i), a.Pick(i))
	}
}

func TestRanges_Coalescing_OverlappingIntervalsMerge(t *testing.T) {
	t.Parallel()

	l, err := ranges.ParsePorts("1-10,5-15")
	require.NoError(t, err)
	require.Len(t, l.Intervals(), 1)
	require.EqualValues(t, 15, l.Count())
}

func TestRanges_Pick_StrictlyIncreasing(t *testing.T) {
	t.Parallel()

	l, err := ranges.ParsePorts("1-5,100,200-203")
	require.NoError(t, err)
	var prev uint32
	for i := uint64(0); i < l.Count(); i++ {
		v := l.Pick(i)
		if i > 0 {
			require.Greater(t, v, prev)
		}
		prev = v
	}
}

func TestRanges_Pick_OutOfRangePanics(t *testing.T) {
	t.Parallel()

	l, err := ranges.ParsePorts("1-5")
	require.NoError(t, err)
	require.Panics(t, func() { l.Pick(5) })
}

func TestRanges_ParseIPv4_DottedQuadAndRange(t *testing.T) {
	t.Parallel()

	l, err := ranges.ParseIPv4("10.0.0.1-10.0.0.3,10.0.0.10")
	require.NoError(t, err)
	require.EqualValues(t, 4, l.Count())
	require.Equal(t, "10.0.0.1", ranges.Uint32ToIP(l.Pick(0)).String())
	require.Equal(t, "10.0.0.3", ranges.Uint32ToIP(l.Pick(2)).String())
	require.Equal(t, "10.0.0.10", ranges.Uint32ToIP(l.Pick(3)).String())
}

func TestRanges_ParseIPv4_CIDR(t *testing.T) {
	t.Parallel()

	l, err := ranges.ParseIPv4("192.168.1.0/30")
	require.NoError(t, err)
	require.EqualValues(t, 4, l.Count())
	require.Equal(t, "192.168.1.0", ranges.Uint32ToIP(l.Pick(0)).String())
	require.Equal(t, "192.168.1.3", ranges.Uint32ToIP(l.Pick(3)).String())
}

func TestRanges_ParseIPv4_RejectsInvalid(t *testing.T) {
	t.Parallel()

	_, err := ranges.ParseIPv4("not-an-ip")
	require.Error(t, err)
}

func TestRanges_CountEqualsSumOfCoalescedWidths(t *testing.T) {
	t.Parallel()

	l, err := ranges.ParsePorts("1-100,50-60,200,300-305")
	require.NoError(t, err)

	var sum uint64
	for _, iv := range l.Intervals() {
		sum += iv.Width()
	}
	require.Equal(t, sum, l.Count())
}
