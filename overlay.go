package imgprep

import "sync"

// Overlay is an ordered set of graphics drawn over an image. Changes made
// while a render pass is running wait for the pass to finish.
type Overlay struct {
	mu       sync.Mutex
	graphics []Graphic
}

// Add appends g.
func (o *Overlay) Add(g Graphic) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.graphics = append(o.graphics, g)
}

// Remove removes the first occurrence of g and reports whether it was found.
func (o *Overlay) Remove(g Graphic) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, v := range o.graphics {
		if v == g {
			o.graphics = append(o.graphics[:i], o.graphics[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes all graphics.
func (o *Overlay) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.graphics = nil
}

// Len returns the number of graphics.
func (o *Overlay) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.graphics)
}

// Render calls fn with the graphics while holding the overlay lock. fn must
// not modify the overlay.
func (o *Overlay) Render(fn func([]Graphic) error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return fn(o.graphics)
}
