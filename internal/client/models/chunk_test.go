package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const MiB = 1 << 20

func TestPartitionChunks_Deterministic(t *testing.T) {
	a := PartitionChunks(250*MiB, 100*MiB)
	b := PartitionChunks(250*MiB, 100*MiB)
	require.Equal(t, a, b)
}

func TestPartitionChunks_Scenario250MiB(t *testing.T) {
	chunks := PartitionChunks(250*MiB, 100*MiB)

	require.Len(t, chunks, 3)
	require.Equal(t, int64(100*MiB), chunks[0].Size())
	require.Equal(t, int64(100*MiB), chunks[1].Size())
	require.Equal(t, int64(50*MiB), chunks[2].Size())
}

func TestPartitionChunks_ContiguousNonOverlappingFullCoverage(t *testing.T) {
	cases := []struct {
		fileSize  int64
		chunkSize int64
	}{
		{1, 100},
		{100, 100},
		{101, 100},
		{1024*1024*1024 + 7, 100 * MiB},
		{5, 1},
	}

	for _, tc := range cases {
		chunks := PartitionChunks(tc.fileSize, tc.chunkSize)
		require.NotEmpty(t, chunks)

		var sum int64
		var cursor int64
		for i, c := range chunks {
			require.Equal(t, i, c.Index)
			require.Equal(t, cursor, c.ByteRangeStart, "chunks must be contiguous")
			require.Greater(t, c.ByteRangeEnd, c.ByteRangeStart)
			cursor = c.ByteRangeEnd
			sum += c.Size()
		}
		require.Equal(t, tc.fileSize, sum, "chunk sizes must sum to the file size")
	}
}

func TestPartitionChunks_DegenerateInputs(t *testing.T) {
	require.Nil(t, PartitionChunks(0, 100))
	require.Nil(t, PartitionChunks(100, 0))
	require.Nil(t, PartitionChunks(-1, 100))
}
