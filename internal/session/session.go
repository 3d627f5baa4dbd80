// ABOUTME: Single-slot conversation session state shared by the whole process
// ABOUTME: Lazily creates the thread on first use; Reset abandons it without remote cleanup

package session

import (
	"context"
	"sync"
)

// Creator creates a new conversation thread on the remote service.
// *foundry.Client satisfies this.
type Creator interface {
	CreateThread(ctx context.Context) (string, error)
}

// Session holds zero or one conversation thread handle for the process.
//
// This is deliberately process-global, single-slot state: every caller
// shares the same conversation. A multi-user deployment would need handles
// keyed per client session instead; this design is for single-tenant use.
type Session struct {
	mu       sync.Mutex
	threadID string
}

// New returns an empty Session.
func New() *Session {
	return &Session{}
}

// Ensure returns the current thread handle, creating one via the creator
// when none exists. A creation failure leaves the slot empty and propagates
// the error.
func (s *Session) Ensure(ctx context.Context, creator Creator) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.threadID != "" {
		return s.threadID, nil
	}

	id, err := creator.CreateThread(ctx)
	if err != nil {
		return "", err
	}
	s.threadID = id
	return id, nil
}

// Reset clears the stored handle unconditionally. The remote thread is
// abandoned, not deleted; the next Ensure starts a fresh conversation.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threadID = ""
}

// Current returns the stored handle, or "" when no conversation exists.
// Introspection only; it never creates.
func (s *Session) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threadID
}
