package utils

import "strings"

func ChunkSlice(slice []string, chunkSize int) [][]string {
	var chunks [][]string
	if chunkSize <= 0 {
		return chunks
	}
	for {
		if len(slice) == 0 {
			break
		}

		// necessary check to avoid slicing beyond
		// slice capacity
		if len(slice) < chunkSize {
			chunkSize = len(slice)
		}

		chunks = append(chunks, slice[0:chunkSize])
		slice = slice[chunkSize:]
	}

	return chunks
}

// UniqueLower lowercases ids, dropping empties and duplicates while keeping
// first-seen order.
func UniqueLower(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// IsHexLike reports whether s reads as an address fragment: a 0x prefix or
// nothing but hex digits.
func IsHexLike(s string) bool {
	s = strings.ToLower(s)
	if strings.HasPrefix(s, "0x") {
		return true
	}
	if s == "" {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return false
		}
	}
	return true
}
