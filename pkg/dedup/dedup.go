// Package dedup filters duplicate entries out of ordered collections.
// Used wherever multiple sources contribute overlapping results: image
// URL lists, nearby places, enrichment batches.
package dedup

// ByKey removes items whose derived key was already seen. The first
// occurrence wins and keeps its position, so the relative order of the
// output matches the input. An empty key is a legitimate key and is
// deduplicated like any other.
func ByKey[T any](items []T, key func(T) string) []T {
	if len(items) < 2 {
		return items
	}

	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := key(item)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}
	return out
}

// Strings removes duplicate strings, keeping first occurrences in order.
func Strings(items []string) []string {
	return ByKey(items, func(s string) string { return s })
}
