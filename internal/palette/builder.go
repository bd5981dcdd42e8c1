package palette

// Builder accumulates the distinct colors seen in a frame and aborts as
// soon as more than MaxColors distinct colors have been observed, which
// is the signal the encoder uses to fall back to RawBitmap.
type Builder struct {
	set   map[uint32]struct{}
	order []Color
}

// NewBuilder returns an empty Builder with capacity for a full palette.
func NewBuilder() *Builder {
	return &Builder{set: make(map[uint32]struct{}, MaxColors+1)}
}

// Reset empties the builder for reuse across frames.
func (b *Builder) Reset() {
	for k := range b.set {
		delete(b.set, k)
	}
	b.order = b.order[:0]
}

// Add records c. It returns false once the distinct count has exceeded
// MaxColors; once false is returned the builder must be treated as
// overflowed and Build must not be called.
func (b *Builder) Add(c Color) bool {
	key := c.packed()
	if _, ok := b.set[key]; ok {
		return len(b.order) <= MaxColors
	}
	b.set[key] = struct{}{}
	b.order = append(b.order, c)
	return len(b.order) <= MaxColors
}

// Overflowed reports whether more than MaxColors distinct colors have
// been added.
func (b *Builder) Overflowed() bool {
	return len(b.order) > MaxColors
}

// Build returns the accumulated colors as a sorted Palette. It must only
// be called when Overflowed() is false.
func (b *Builder) Build() Palette {
	colors := make([]Color, len(b.order))
	copy(colors, b.order)
	sortColors(colors)
	p, _ := New(colors)
	return p
}

// sortColors sorts in canonical (R, G, B) order. Frame palettes are
// small (<=256 entries), so a simple insertion sort keeps this
// allocation-free and is plenty fast at this size.
func sortColors(colors []Color) {
	for i := 1; i < len(colors); i++ {
		c := colors[i]
		j := i - 1
		for j >= 0 && c.Less(colors[j]) {
			colors[j+1] = colors[j]
			j--
		}
		colors[j+1] = c
	}
}
