package audio

// ChunkSamples splits samples into fixed bytesPerChunk chunks, carrying any
// leftover bytes across calls in leftover. This mirrors
// original_source/wyoming_satellite/utils.py's chunk_samples generator: a
// caller feeds it successive reads from a mic and gets back exactly the
// full chunks that are ready, with partial remainders buffered for the
// next call rather than dropped or padded.
func ChunkSamples(samples []byte, bytesPerChunk int, leftover *Buffer) [][]byte {
	if leftover.Len()+len(samples) < bytesPerChunk {
		_ = leftover.Append(samples)
		return nil
	}

	var chunks [][]byte
	next := 0

	if !leftover.Empty() {
		toCopy := bytesPerChunk - leftover.Len()
		_ = leftover.Append(samples[:toCopy])
		next = toCopy

		chunks = append(chunks, leftover.Bytes())
		leftover.Clear()
	}

	for next <= len(samples)-bytesPerChunk {
		chunks = append(chunks, samples[next:next+bytesPerChunk])
		next += bytesPerChunk
	}

	if rest := samples[next:]; len(rest) > 0 {
		_ = leftover.Append(rest)
	}

	return chunks
}
