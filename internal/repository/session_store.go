package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"admin-panel/internal/domain"
)

// DefaultSessionKey es la clave bajo la que se guarda la identidad serializada.
const DefaultSessionKey = "auth_user"

// ErrMalformedSession indica contenido persistido que no tiene la forma de una identidad.
var ErrMalformedSession = errors.New("malformed session")

// SessionStore define la persistencia durable de la identidad autenticada.
// Read nunca falla: contenido ausente o invalido se reporta como ausente.
type SessionStore interface {
	Read(ctx context.Context) (domain.Identity, bool)
	Write(ctx context.Context, identity domain.Identity) error
	Clear(ctx context.Context) error
}

// BlobBackend es el almacenamiento clave-valor crudo detras de un SessionStore.
type BlobBackend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// IdentityCodec serializa identidades hacia y desde el backend.
type IdentityCodec interface {
	Encode(identity domain.Identity) ([]byte, error)
	Decode(data []byte) (domain.Identity, error)
}

// JSONCodec guarda la identidad como JSON plano.
type JSONCodec struct{}

func (JSONCodec) Encode(identity domain.Identity) ([]byte, error) {
	return json.Marshal(identity)
}

func (JSONCodec) Decode(data []byte) (domain.Identity, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return domain.Identity{}, ErrMalformedSession
	}
	var identity domain.Identity
	if err := json.Unmarshal(trimmed, &identity); err != nil {
		return domain.Identity{}, ErrMalformedSession
	}
	if !identity.Valid() {
		return domain.Identity{}, ErrMalformedSession
	}
	return identity, nil
}

type identityStore struct {
	logger  *zap.Logger
	backend BlobBackend
	codec   IdentityCodec
	key     string
}

// NewSessionStore arma un SessionStore sobre un backend y un codec.
func NewSessionStore(logger *zap.Logger, backend BlobBackend, codec IdentityCodec, key string) SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if codec == nil {
		codec = JSONCodec{}
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultSessionKey
	}
	return &identityStore{
		logger:  logger,
		backend: backend,
		codec:   codec,
		key:     key,
	}
}

func (s *identityStore) Read(ctx context.Context) (domain.Identity, bool) {
	data, ok, err := s.backend.Get(ctx, s.key)
	if err != nil {
		s.logger.Warn("session read failed", zap.String("key", s.key), zap.Error(err))
		return domain.Identity{}, false
	}
	if !ok {
		return domain.Identity{}, false
	}
	identity, err := s.codec.Decode(data)
	if err != nil {
		s.logger.Warn("stored session discarded", zap.String("key", s.key), zap.Error(err))
		return domain.Identity{}, false
	}
	return identity, true
}

func (s *identityStore) Write(ctx context.Context, identity domain.Identity) error {
	data, err := s.codec.Encode(identity)
	if err != nil {
		return err
	}
	return s.backend.Put(ctx, s.key, data)
}

func (s *identityStore) Clear(ctx context.Context) error {
	return s.backend.Delete(ctx, s.key)
}

// MemoryBackend guarda blobs en memoria del proceso.
type MemoryBackend struct {
	mu    sync.Mutex
	items map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: make(map[string][]byte)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(data), true, nil
}

func (m *MemoryBackend) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = bytes.Clone(value)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}
