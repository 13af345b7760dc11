package mrzworker

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
)

var ErrSessionClosed = errors.New("session is closed")

// Session owns one initialized engine. Calls to Recognize are serialized.
type Session struct {
	mu     deadlock.Mutex
	engine MrzEngine
	closed bool
}

// NewSession initializes the engine once. The engine is de-initialized by Close.
func NewSession(ctx context.Context, engine MrzEngine, engineConfig EngineConfig) (*Session, error) {
	if engine == nil {
		return nil, errors.New("no engine")
	}
	res, err := engine.Init(ctx, engineConfig)
	if err := CheckResult("init", res, err); err != nil {
		return nil, err
	}
	return &Session{engine: engine}, nil
}

func (s *Session) Engine() MrzEngine {
	return s.engine
}

// Recognize runs the engine on the frame and returns the engine JSON.
func (s *Session) Recognize(ctx context.Context, frame *Frame) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrSessionClosed
	}

	start := time.Now()
	res, err := s.engine.Process(ctx, frame)
	engineDuration.WithLabelValues(s.engine.Name()).Observe(time.Since(start).Seconds())
	if err := CheckResult("process", res, err); err != nil {
		return "", err
	}
	zonesTotal.WithLabelValues(s.engine.Name()).Add(float64(res.NumZones))
	return res.JSON, nil
}

// Close de-initializes the engine. Only the first call reaches the engine.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	res, err := s.engine.DeInit()
	return CheckResult("deInit", res, err)
}

// SessionRegistry lazily creates one session per engine type.
type SessionRegistry struct {
	mu           deadlock.Mutex
	engineConfig EngineConfig
	sessions     map[MrzEngineType]*Session
	newEngine    func(MrzEngineType) MrzEngine
}

func NewSessionRegistry(engineConfig EngineConfig) *SessionRegistry {
	return &SessionRegistry{
		engineConfig: engineConfig,
		sessions:     make(map[MrzEngineType]*Session),
		newEngine:    NewMrzEngine,
	}
}

// Session returns the session of the engine type, initializing it on first use.
// A failed init is not cached.
func (r *SessionRegistry) Session(ctx context.Context, engineType MrzEngineType) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.sessions[engineType]; ok {
		return session, nil
	}

	engine := r.newEngine(engineType)
	if engine == nil {
		return nil, errors.Errorf("unsupported engine type %d", engineType)
	}
	log.Info().Str("component", "MRZ_SESSION").Str("engine", engineType.String()).
		Msg("starting engine session")
	session, err := NewSession(ctx, engine, r.engineConfig)
	if err != nil {
		return nil, err
	}
	r.sessions[engineType] = session
	return session, nil
}

// Close closes every session and returns the first error.
func (r *SessionRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for engineType, session := range r.sessions {
		if err := session.Close(); err != nil {
			log.Error().Err(err).Str("component", "MRZ_SESSION").Str("engine", engineType.String()).
				Msg("could not close session")
			if first == nil {
				first = err
			}
		}
		delete(r.sessions, engineType)
	}
	return first
}
