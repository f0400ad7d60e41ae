package imagery

import "fernweh/pkg/dedup"

// Flatten concatenates the per-level images in the given order (specific
// to generic as returned by Resolve), drops duplicate URLs keeping the
// first occurrence, and truncates to max. max <= 0 means no cap.
func Flatten(results []Result, max int) []string {
	var urls []string
	for _, res := range results {
		urls = append(urls, res.Images...)
	}
	urls = dedup.Strings(urls)
	if max > 0 && len(urls) > max {
		urls = urls[:max]
	}
	return urls
}

// Count sums the images across results before any flattening.
func Count(results []Result) int {
	n := 0
	for _, res := range results {
		n += len(res.Images)
	}
	return n
}
