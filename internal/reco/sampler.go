package reco

import "math/rand"

// Item is one catalog entry tagged with the pool it came from.
type Item struct {
	SourceID    string
	Title       string
	Artists     []string
	ExternalRef string
}

// Sample draws up to n distinct items. Each step first picks a source with
// probability proportional to its weight among sources that still have items,
// then picks uniformly inside that source. Sources missing from weights count
// as DefaultWeight. n <= 0 is treated as 1.
func Sample(rng *rand.Rand, items []Item, weights map[string]float64, n int) ([]Item, error) {
	if len(items) == 0 {
		return nil, ErrEmptyPool
	}
	if n <= 0 {
		n = 1
	}

	type bucket struct {
		id     string
		weight float64
		items  []Item
	}
	var (
		buckets []*bucket
		byID    = map[string]*bucket{}
	)
	for _, it := range items {
		b := byID[it.SourceID]
		if b == nil {
			w, ok := weights[it.SourceID]
			if !ok {
				w = DefaultWeight
			}
			b = &bucket{id: it.SourceID, weight: w}
			byID[it.SourceID] = b
			buckets = append(buckets, b)
		}
		b.items = append(b.items, it)
	}

	eligible := buckets[:0:0]
	for _, b := range buckets {
		if b.weight > 0 {
			eligible = append(eligible, b)
		}
	}
	if len(eligible) == 0 {
		return nil, ErrNoEligibleSource
	}

	out := make([]Item, 0, min(n, len(items)))
	live := make([]*bucket, 0, len(eligible))
	for len(out) < n {
		live = live[:0]
		total := 0.0
		for _, b := range eligible {
			if len(b.items) > 0 {
				live = append(live, b)
				total += b.weight
			}
		}
		if len(live) == 0 {
			break
		}

		pick := live[len(live)-1]
		r := rng.Float64() * total
		for _, b := range live {
			if r < b.weight {
				pick = b
				break
			}
			r -= b.weight
		}

		j := rng.Intn(len(pick.items))
		out = append(out, pick.items[j])
		last := len(pick.items) - 1
		pick.items[j] = pick.items[last]
		pick.items = pick.items[:last]
	}
	return out, nil
}
