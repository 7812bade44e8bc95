package conf

// MergeDefaults merges the given maps into one, prefixing every key with
// the given namespace. An empty namespace merges the maps as they are,
// which allows combining already-namespaced defaults.
func MergeDefaults[M ~map[string]V, V any](ns string, maps ...M) M {
	prefix := ""
	if ns != "" {
		prefix = ns + "."
	}

	fullCap := 0
	for _, m := range maps {
		fullCap += len(m)
	}

	merged := make(M, fullCap)
	for _, m := range maps {
		for key, val := range m {
			merged[prefix+key] = val
		}
	}

	return merged
}
