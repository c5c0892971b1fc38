package crypto

import (
	"runtime"
	"sync"
)

// SecureBytes holds sensitive bytes and zeroes them on Clear. A finalizer
// clears the buffer if the owner forgets to.
type SecureBytes struct {
	mu      sync.RWMutex
	data    []byte
	cleared bool
}

// NewSecureBytes copies src into a new guarded buffer. The caller still
// owns src and should clear it.
func NewSecureBytes(src []byte) *SecureBytes {
	sb := &SecureBytes{data: make([]byte, len(src))}
	copy(sb.data, src)
	runtime.SetFinalizer(sb, (*SecureBytes).Clear)
	return sb
}

// takeSecureBytes adopts buf without copying.
func takeSecureBytes(buf []byte) *SecureBytes {
	sb := &SecureBytes{data: buf}
	runtime.SetFinalizer(sb, (*SecureBytes).Clear)
	return sb
}

// Use runs fn with read access to the buffer. fn must not retain the slice.
func (sb *SecureBytes) Use(fn func(b []byte) error) error {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	if sb.cleared {
		return ErrCleared
	}
	return fn(sb.data)
}

// Len returns the buffer length, 0 after Clear.
func (sb *SecureBytes) Len() int {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return len(sb.data)
}

// Clear zeroes the buffer. Safe to call more than once.
func (sb *SecureBytes) Clear() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if sb.cleared {
		return
	}
	Zeroize(sb.data)
	sb.data = nil
	sb.cleared = true
	runtime.SetFinalizer(sb, nil)
}

// Zeroize overwrites b with zeros.
func Zeroize(b []byte) {
	clear(b)
	runtime.KeepAlive(b)
}
