package vulkan

// missing returns the entries of required not present in available. Used for
// extension and layer support checks.
func missing(required, available []string) []string {
	have := make(map[string]struct{}, len(available))
	for _, a := range available {
		have[trimNul(a)] = struct{}{}
	}
	var out []string
	for _, r := range required {
		if _, ok := have[trimNul(r)]; !ok {
			out = append(out, r)
		}
	}
	return out
}

// terminated returns copies of strs ending in a NUL byte as Vulkan expects
// in name lists.
func terminated(strs []string) []string {
	if len(strs) == 0 {
		return nil
	}
	out := make([]string, len(strs))
	for i, s := range strs {
		out[i] = trimNul(s) + "\x00"
	}
	return out
}

func trimNul(s string) string {
	for len(s) > 0 && s[len(s)-1] == 0 {
		s = s[:len(s)-1]
	}
	return s
}
