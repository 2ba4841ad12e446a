package ingestion

// SplitTextIntoChunks splits text into consecutive chunks of at most maxSize
// characters (runes). There is no overlap and no boundary awareness: the same
// input always yields the same chunks, and concatenating them reproduces the
// input exactly. Empty text yields no chunks; the final chunk may be short.
func SplitTextIntoChunks(text string, maxSize int) []string {
	if text == "" || maxSize <= 0 {
		return nil
	}

	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+maxSize-1)/maxSize)
	for start := 0; start < len(runes); start += maxSize {
		end := start + maxSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks
}
