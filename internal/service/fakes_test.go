package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"admin-panel/internal/domain"
	"admin-panel/internal/remote"
	"admin-panel/internal/repository"
)

type verifyCall struct {
	email string
	code  string
}

type fakeOTP struct {
	mu       sync.Mutex
	sends    []string
	verifies []verifyCall

	sendErr    error
	verifyResp domain.VerificationResponse
	verifyErr  error

	sendGate      chan struct{}
	verifyGate    chan struct{}
	sendStarted   chan struct{}
	verifyStarted chan struct{}
}

func newFakeOTP() *fakeOTP {
	return &fakeOTP{
		sendStarted:   make(chan struct{}, 8),
		verifyStarted: make(chan struct{}, 8),
	}
}

func (f *fakeOTP) SendOTP(ctx context.Context, email string) error {
	f.mu.Lock()
	f.sends = append(f.sends, email)
	gate, err := f.sendGate, f.sendErr
	f.mu.Unlock()
	f.sendStarted <- struct{}{}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return &remote.TransportError{Op: "otp_send", Err: ctx.Err()}
		}
	}
	return err
}

func (f *fakeOTP) VerifyOTP(ctx context.Context, email, code string) (domain.VerificationResponse, error) {
	f.mu.Lock()
	f.verifies = append(f.verifies, verifyCall{email: email, code: code})
	gate, resp, err := f.verifyGate, f.verifyResp, f.verifyErr
	f.mu.Unlock()
	f.verifyStarted <- struct{}{}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.VerificationResponse{}, &remote.TransportError{Op: "otp_verify", Err: ctx.Err()}
		}
	}
	return resp, err
}

func (f *fakeOTP) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

func (f *fakeOTP) verifyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.verifies)
}

type failingStore struct {
	repository.SessionStore
	writeErr error
	clearErr error
}

func (s failingStore) Write(ctx context.Context, identity domain.Identity) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	return s.SessionStore.Write(ctx, identity)
}

func (s failingStore) Clear(ctx context.Context) error {
	if s.clearErr != nil {
		return s.clearErr
	}
	return s.SessionStore.Clear(ctx)
}

var errDiskFull = errors.New("disk full")

func newMemoryStore() repository.SessionStore {
	return repository.NewSessionStore(nil, repository.NewMemoryBackend(), nil, "")
}

func newReadySession(t *testing.T, store repository.SessionStore) *SessionContext {
	t.Helper()
	s := NewSessionContext(nil, store, nil)
	s.Init(context.Background())
	return s
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
