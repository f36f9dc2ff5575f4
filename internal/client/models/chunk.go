package models

// Chunk is a fixed-size contiguous byte range of the envelope; the unit of
// transfer and retry. Identity is the index, not a content hash, so
// recomputing the partition for the same (fileSize, chunkSize) is idempotent.
type Chunk struct {
	Index          int   `json:"index"`
	ByteRangeStart int64 `json:"byteRangeStart"`
	ByteRangeEnd   int64 `json:"byteRangeEnd"` // exclusive
	Uploaded       bool  `json:"uploaded"`
	RetryCount     int   `json:"retryCount"`
}

// Size returns the number of bytes in the chunk.
func (c Chunk) Size() int64 {
	return c.ByteRangeEnd - c.ByteRangeStart
}

// PartitionChunks deterministically splits fileSize bytes into contiguous,
// non-overlapping chunks of chunkSize; the last chunk may be shorter.
func PartitionChunks(fileSize, chunkSize int64) []Chunk {
	if fileSize <= 0 || chunkSize <= 0 {
		return nil
	}

	total := int((fileSize + chunkSize - 1) / chunkSize)
	chunks := make([]Chunk, 0, total)
	for i := 0; i < total; i++ {
		start := int64(i) * chunkSize
		end := start + chunkSize
		if end > fileSize {
			end = fileSize
		}
		chunks = append(chunks, Chunk{Index: i, ByteRangeStart: start, ByteRangeEnd: end})
	}
	return chunks
}
