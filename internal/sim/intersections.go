package sim

// ActiveIntersections reduces a static intersection topology to the
// roads currently in the active set. Pure function of its inputs: the
// result is freshly built, neither argument is mutated.
func ActiveIntersections(static map[int]map[int]struct{}, active map[int]struct{}) map[int]map[int]struct{} {
	out := make(map[int]map[int]struct{})
	for road := range active {
		crossing, ok := static[road]
		if !ok {
			continue
		}
		var filtered map[int]struct{}
		for other := range crossing {
			if _, on := active[other]; on {
				if filtered == nil {
					filtered = make(map[int]struct{})
				}
				filtered[other] = struct{}{}
			}
		}
		if filtered != nil {
			out[road] = filtered
		}
	}
	return out
}
