package linktree

// chunkLimit is the per-property text length cap imposed by the record store.
const chunkLimit = 2000

// defaultSplitParts is how many named properties a long logical value is
// partitioned across.
const defaultSplitParts = 3

// ChunkText splits value into ordered segments of at most limit bytes.
// Empty input yields no chunks, which the store interprets as a cleared
// field. Joining the chunks in order reproduces value exactly.
func ChunkText(value string, limit int) []string {
	if limit <= 0 {
		limit = chunkLimit
	}
	if value == "" {
		return nil
	}
	chunks := make([]string, 0, (len(value)+limit-1)/limit)
	for len(value) > limit {
		chunks = append(chunks, value[:limit])
		value = value[limit:]
	}
	return append(chunks, value)
}

// JoinChunks concatenates chunks in order with no separator.
func JoinChunks(chunks []string) string {
	switch len(chunks) {
	case 0:
		return ""
	case 1:
		return chunks[0]
	}
	total := 0
	for _, chunk := range chunks {
		total += len(chunk)
	}
	joined := make([]byte, 0, total)
	for _, chunk := range chunks {
		joined = append(joined, chunk...)
	}
	return string(joined)
}

// SplitParts partitions value into parts roughly equal segments. Segment i
// starts at ceil(len/parts)*i; the last segment takes the remainder. An
// empty value still yields parts segments so every companion property gets
// an explicit empty write.
func SplitParts(value string, parts int) []string {
	if parts <= 0 {
		parts = 1
	}
	segments := make([]string, parts)
	if value == "" {
		return segments
	}
	step := (len(value) + parts - 1) / parts
	for i := 0; i < parts; i++ {
		start := step * i
		if start > len(value) {
			start = len(value)
		}
		end := start + step
		if i == parts-1 || end > len(value) {
			end = len(value)
		}
		segments[i] = value[start:end]
	}
	return segments
}
