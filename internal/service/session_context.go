package service

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"admin-panel/internal/domain"
	"admin-panel/internal/repository"
)

// ErrInvalidIdentity se devuelve al intentar loguear una identidad sin userId ni email.
var ErrInvalidIdentity = errors.New("identity requires user id or email")

// SessionContext mantiene el estado de sesion vivo del proceso. Es el unico escritor del SessionStore.
type SessionContext struct {
	logger  *zap.Logger
	store   repository.SessionStore
	metrics Recorder

	initOnce sync.Once
	// txMu serializa transiciones y su notificacion; mu protege el estado.
	txMu sync.Mutex

	mu        sync.Mutex
	loading   bool
	identity  *domain.Identity
	nextObsID int
	observers map[int]func(domain.Session)
}

func NewSessionContext(logger *zap.Logger, store repository.SessionStore, metrics Recorder) *SessionContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NopRecorder{}
	}
	return &SessionContext{
		logger:    logger,
		store:     store,
		metrics:   metrics,
		loading:   true,
		observers: make(map[int]func(domain.Session)),
	}
}

// Init lee el store una sola vez y resuelve Initializing en Authenticated o Unauthenticated.
func (s *SessionContext) Init(ctx context.Context) {
	s.initOnce.Do(func() {
		s.txMu.Lock()
		defer s.txMu.Unlock()

		identity, ok := s.store.Read(ctx)

		s.mu.Lock()
		if ok {
			s.identity = &identity
		}
		s.loading = false
		snap := s.snapshotLocked()
		observers := s.observersLocked()
		s.mu.Unlock()

		if ok {
			s.logger.Info("session restored", zap.String("email", identity.Email))
			s.metrics.SessionTransition("restored")
		}
		notify(observers, snap)
	})
}

// Login persiste la identidad y pasa a Authenticated. Repetir con la misma identidad no tiene efecto.
func (s *SessionContext) Login(ctx context.Context, identity domain.Identity) error {
	if !identity.Valid() {
		return ErrInvalidIdentity
	}
	s.Init(ctx)

	s.txMu.Lock()
	defer s.txMu.Unlock()

	if current, ok := s.Identity(); ok && current == identity {
		return nil
	}
	if err := s.store.Write(ctx, identity); err != nil {
		s.logger.Error("session write failed", zap.Error(err))
		return err
	}

	s.mu.Lock()
	s.identity = &identity
	snap := s.snapshotLocked()
	observers := s.observersLocked()
	s.mu.Unlock()

	s.logger.Info("session login", zap.String("email", identity.Email), zap.String("user_id", identity.UserID))
	s.metrics.SessionTransition("login")
	notify(observers, snap)
	return nil
}

// Logout limpia el store y pasa a Unauthenticated. Es seguro llamarlo sin sesion.
func (s *SessionContext) Logout(ctx context.Context) error {
	s.Init(ctx)

	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := s.store.Clear(ctx); err != nil {
		s.logger.Error("session clear failed", zap.Error(err))
		return err
	}

	s.mu.Lock()
	wasAuthenticated := s.identity != nil
	s.identity = nil
	snap := s.snapshotLocked()
	observers := s.observersLocked()
	s.mu.Unlock()

	if wasAuthenticated {
		s.logger.Info("session logout")
		s.metrics.SessionTransition("logout")
	}
	notify(observers, snap)
	return nil
}

func (s *SessionContext) Snapshot() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Identity devuelve la identidad cacheada, si hay sesion.
func (s *SessionContext) Identity() (domain.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return domain.Identity{}, false
	}
	return *s.identity, true
}

// Subscribe registra un observador que recibe cada cambio de sesion de forma sincronica.
// Los observadores pueden leer Snapshot pero no deben llamar de vuelta a Login o Logout.
func (s *SessionContext) Subscribe(fn func(domain.Session)) (cancel func()) {
	s.mu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *SessionContext) snapshotLocked() domain.Session {
	session := domain.Session{IsLoading: s.loading}
	if s.identity != nil {
		identity := *s.identity
		session.Identity = &identity
		session.IsAuthenticated = true
	}
	return session
}

func (s *SessionContext) observersLocked() []func(domain.Session) {
	out := make([]func(domain.Session), 0, len(s.observers))
	for _, fn := range s.observers {
		out = append(out, fn)
	}
	return out
}

func notify(observers []func(domain.Session), snap domain.Session) {
	for _, fn := range observers {
		fn(snap)
	}
}
