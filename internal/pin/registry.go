package pin

import (
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"
)

// ErrExhausted is returned when no free pin could be found. With a million
// possible pins and a handful of live sessions this only happens when the
// registry is misused.
var ErrExhausted = errors.New("pin space exhausted")

const maxAttempts = 1000

// Registry maps 6-digit pins to active session ids. Pins are unique among
// active sessions only; Release frees a pin for reuse.
type Registry struct {
	mu     sync.Mutex
	rnd    *rand.Rand
	active map[string]string
}

func NewRegistry() *Registry {
	return NewRegistryWithSeed(time.Now().UnixNano())
}

func NewRegistryWithSeed(seed int64) *Registry {
	return &Registry{
		rnd:    rand.New(rand.NewSource(seed)),
		active: map[string]string{},
	}
}

// Allocate picks a random pin not currently mapped and binds it to sessionID.
func (r *Registry) Allocate(sessionID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 0; i < maxAttempts; i++ {
		pin := formatPin(r.rnd.Intn(1000000))
		if _, taken := r.active[pin]; taken {
			continue
		}
		r.active[pin] = sessionID
		return pin, nil
	}
	return "", ErrExhausted
}

func (r *Registry) Release(pin string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, pin)
}

// Lookup resolves a pin to the session id it is bound to.
func (r *Registry) Lookup(pin string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.active[pin]
	return id, ok
}

func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

func formatPin(n int) string {
	s := strconv.Itoa(n)
	for len(s) < 6 {
		s = "0" + s
	}
	return s
}
