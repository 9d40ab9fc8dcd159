package series

// Profile is a frequency-weighted set used for the rolling attendee and topic
// profiles of a series. Weights decay as new occurrences arrive so recent
// occurrences matter more than distant ones.
type Profile map[string]float64

// NewProfile returns an empty profile.
func NewProfile() Profile {
	return make(Profile)
}

// Observe decays all existing weights by factor and then adds weight 1.0 for
// each item present in the new occurrence. Factor must be in (0, 1].
func (p Profile) Observe(items []string, factor float64) {
	if factor <= 0 || factor > 1 {
		factor = 1
	}
	for k, w := range p {
		decayed := w * factor
		if decayed < 0.01 {
			// Drop negligible entries so profiles do not grow without bound.
			delete(p, k)
			continue
		}
		p[k] = decayed
	}
	for _, item := range items {
		p[item] += 1.0
	}
}

// Weight returns the weight for item, 0 if absent.
func (p Profile) Weight(item string) float64 {
	return p[item]
}

// Total returns the sum of all weights.
func (p Profile) Total() float64 {
	total := 0.0
	for _, w := range p {
		total += w
	}
	return total
}

// Clone returns a copy of the profile.
func (p Profile) Clone() Profile {
	out := make(Profile, len(p))
	for k, w := range p {
		out[k] = w
	}
	return out
}
