package textsim

// Jaccard returns |A ∩ B| / |A ∪ B| for the sets formed by a and b.
// Repeated elements are counted once. Either set empty yields 0.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	sa, sb := toSet(a), toSet(b)
	inter := overlap(sa, sb)
	union := len(sa) + len(sb) - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func toSet(xs []string) map[string]struct{} {
	m := make(map[string]struct{}, len(xs))
	for _, x := range xs {
		m[x] = struct{}{}
	}
	return m
}

// overlap counts shared keys, iterating the smaller map.
func overlap(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
