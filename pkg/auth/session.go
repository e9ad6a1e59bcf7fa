package auth

import "sync"

// Session holds the authorization codes already exchanged within one user
// session. Implementations are supplied by the caller: browser cookies,
// a state file or memory.
type Session interface {
	PendingCodes() []string
	SetPendingCodes(codes []string)
}

// MemorySession is an in-memory Session.
type MemorySession struct {
	mu    sync.Mutex
	codes []string
}

// NewMemorySession creates an empty session.
func NewMemorySession() *MemorySession {
	return &MemorySession{}
}

// PendingCodes returns a copy of the stored codes.
func (s *MemorySession) PendingCodes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.codes))
	copy(out, s.codes)
	return out
}

// SetPendingCodes replaces the stored codes.
func (s *MemorySession) SetPendingCodes(codes []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.codes = append([]string(nil), codes...)
}

// appendCode adds code to codes, keeping at most limit of the most recent.
func appendCode(codes []string, code string, limit int) []string {
	codes = append(codes, code)
	if limit > 0 && len(codes) > limit {
		codes = codes[len(codes)-limit:]
	}
	return codes
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
