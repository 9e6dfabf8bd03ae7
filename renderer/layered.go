package renderer

import "sort"

// Layered is anything drawn in depth-isolated layers.
type Layered interface {
	Layer() int
}

// drawLayered draws layer-0 items (negative layers count as 0) in input
// order, then each positive layer in ascending order. Each positive layer is
// preceded by one call to clearDepth. It returns the number of depth clears.
func drawLayered[T Layered](items []T, draw func(T) error, clearDepth func()) (int, error) {
	var (
		buckets map[int][]T
		layers  []int
	)
	for _, it := range items {
		l := it.Layer()
		if l <= 0 {
			if err := draw(it); err != nil {
				return 0, err
			}
			continue
		}
		if buckets == nil {
			buckets = make(map[int][]T)
		}
		if _, ok := buckets[l]; !ok {
			layers = append(layers, l)
		}
		buckets[l] = append(buckets[l], it)
	}

	sort.Ints(layers)
	clears := 0
	for _, l := range layers {
		clearDepth()
		clears++
		for _, it := range buckets[l] {
			if err := draw(it); err != nil {
				return clears, err
			}
		}
	}
	return clears, nil
}
