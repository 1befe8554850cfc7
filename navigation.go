package authclient

import "sync"

// Location is a navigation instruction
type Location struct {
	Path string
	// Replace swaps the current history entry instead of pushing a new one.
	Replace bool
	// From is the Pending-Destination attached to a login redirect.
	From string
}

// History is an in-memory Navigator for hosts without a UI router
type History struct {
	mu          sync.Mutex
	entries     []Location
	navigations int
}

// NewHistory returns an empty history
func NewHistory() *History {
	return &History{}
}

// Navigate implements Navigator.
func (h *History) Navigate(loc Location) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.navigations++
	if loc.Replace && len(h.entries) > 0 {
		h.entries[len(h.entries)-1] = loc
		return
	}
	h.entries = append(h.entries, loc)
}

// Current returns the location on top of the stack
func (h *History) Current() (Location, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return Location{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// Entries returns a copy of the stack
func (h *History) Entries() []Location {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Location, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the stack depth
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Navigations counts every Navigate call, replaced entries included.
func (h *History) Navigations() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.navigations
}

// PendingDestination remembers the protected path a user was sent away from
// and hands it back exactly once.
type PendingDestination struct {
	mu   sync.Mutex
	path string
	set  bool
}

// Capture stores path, replacing any earlier value. Empty paths are ignored.
func (p *PendingDestination) Capture(path string) bool {
	if path == "" {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.path = path
	p.set = true
	return true
}

// Take returns and clears the stored path
func (p *PendingDestination) Take() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.set {
		return "", false
	}
	path := p.path
	p.path = ""
	p.set = false
	return path, true
}

// Peek returns the stored path without consuming it
func (p *PendingDestination) Peek() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.path, p.set
}

// Clear drops the stored path
func (p *PendingDestination) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.path = ""
	p.set = false
}
