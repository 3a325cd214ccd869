package store

// DedupeStrings drops empty and repeated values, preserving order.
// A fully-empty input collapses to nil so "no filter" stays nil.
func DedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// MergeProperties overlays src onto dst without letting nil values
// erase existing ones. dst may be nil; the merged map is returned.
func MergeProperties(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for key, value := range src {
		if value == nil {
			continue
		}
		dst[key] = value
	}
	return dst
}
