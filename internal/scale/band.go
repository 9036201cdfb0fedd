package scale

import "math"

// Band divides a continuous range into uniform bands, one per domain key.
type Band struct {
	keys         []string
	index        map[string]int
	r0, r1       float64
	paddingInner float64
	paddingOuter float64
	align        float64

	step, bandwidth, start float64
}

// NewBand returns a band scale over keys spanning [r0, r1].
func NewBand(keys []string, r0, r1 float64) *Band {
	b := &Band{r0: r0, r1: r1, align: 0.5}
	b.index = make(map[string]int, len(keys))
	for _, k := range keys {
		if _, dup := b.index[k]; !dup {
			b.index[k] = len(b.keys)
			b.keys = append(b.keys, k)
		}
	}
	b.rescale()
	return b
}

// Padding sets both inner and outer padding, as fractions of the step.
func (b *Band) Padding(p float64) *Band {
	b.paddingInner = math.Min(1, p)
	b.paddingOuter = p
	b.rescale()
	return b
}

// PaddingInner sets the gap between bands.
func (b *Band) PaddingInner(p float64) *Band {
	b.paddingInner = math.Min(1, p)
	b.rescale()
	return b
}

// PaddingOuter sets the gap before the first and after the last band.
func (b *Band) PaddingOuter(p float64) *Band {
	b.paddingOuter = p
	b.rescale()
	return b
}

// Keys returns the domain.
func (b *Band) Keys() []string { return append([]string(nil), b.keys...) }

// Bandwidth is the width of each band.
func (b *Band) Bandwidth() float64 { return b.bandwidth }

// Step is the distance between the starts of adjacent bands.
func (b *Band) Step() float64 { return b.step }

// Map returns the start of the band for key. ok is false for unknown keys.
func (b *Band) Map(key string) (float64, bool) {
	i, ok := b.index[key]
	if !ok {
		return 0, false
	}
	return b.start + b.step*float64(i), true
}

// Center returns the middle of the band for key.
func (b *Band) Center(key string) (float64, bool) {
	x, ok := b.Map(key)
	return x + b.bandwidth/2, ok
}

func (b *Band) rescale() {
	n := float64(len(b.index))
	start, stop := b.r0, b.r1
	reverse := stop < start
	if reverse {
		start, stop = stop, start
	}
	b.step = (stop - start) / math.Max(1, n-b.paddingInner+b.paddingOuter*2)
	start += (stop - start - b.step*(n-b.paddingInner)) * b.align
	b.bandwidth = b.step * (1 - b.paddingInner)
	if reverse {
		// walk the range from the far end
		start = start + b.step*(n-1)
		b.step = -b.step
	}
	b.start = start
}
