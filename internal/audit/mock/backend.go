package mock

import (
	"context"
	"sync"

	"github.com/kiranshivaraju/sitewatch/internal/audit"
	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

// MockBackend satisfies audit.Backend for testing.
type MockBackend struct {
	Name_       string
	AcquireFunc func(ctx context.Context) (audit.Session, error)

	mu       sync.Mutex
	acquired int
}

func (m *MockBackend) Name() string { return m.Name_ }

func (m *MockBackend) Acquire(ctx context.Context) (audit.Session, error) {
	m.mu.Lock()
	m.acquired++
	m.mu.Unlock()
	if m.AcquireFunc != nil {
		return m.AcquireFunc(ctx)
	}
	return NewMockSession(models.Scores{}), nil
}

// Acquired returns how many times Acquire was called.
func (m *MockBackend) Acquired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired
}

// MockSession satisfies audit.Session for testing.
type MockSession struct {
	NavigateFunc   func(ctx context.Context, url string) error
	ScreenshotFunc func(ctx context.Context) ([]byte, error)
	AuditFunc      func(ctx context.Context, url string) (models.Scores, error)

	mu     sync.Mutex
	closed int
}

func (s *MockSession) Navigate(ctx context.Context, url string) error {
	if s.NavigateFunc != nil {
		return s.NavigateFunc(ctx, url)
	}
	return nil
}

func (s *MockSession) Screenshot(ctx context.Context) ([]byte, error) {
	if s.ScreenshotFunc != nil {
		return s.ScreenshotFunc(ctx)
	}
	return []byte("\x89PNG\r\n"), nil
}

func (s *MockSession) Audit(ctx context.Context, url string) (models.Scores, error) {
	if s.AuditFunc != nil {
		return s.AuditFunc(ctx, url)
	}
	return models.Scores{}, nil
}

func (s *MockSession) Close() error {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
	return nil
}

// Closed returns how many times Close was called.
func (s *MockSession) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// NewMockSession returns a session whose audit reports the given native
// (0..1) scores.
func NewMockSession(native models.Scores) *MockSession {
	return &MockSession{
		AuditFunc: func(_ context.Context, _ string) (models.Scores, error) {
			return native, nil
		},
	}
}

// NewMockBackend returns a backend that always hands out session.
func NewMockBackend(session *MockSession) *MockBackend {
	return &MockBackend{
		Name_: "mock",
		AcquireFunc: func(_ context.Context) (audit.Session, error) {
			return session, nil
		},
	}
}

// NewFailingBackend returns a backend whose Acquire always fails with err.
func NewFailingBackend(err error) *MockBackend {
	return &MockBackend{
		Name_: "mock-failing",
		AcquireFunc: func(_ context.Context) (audit.Session, error) {
			return nil, err
		},
	}
}

// StaticProber reports a fixed uptime.
type StaticProber struct {
	Uptime models.Uptime
}

func (p StaticProber) Probe(_ context.Context, _ string) models.Uptime { return p.Uptime }

// Compile-time checks.
var (
	_ audit.Backend = (*MockBackend)(nil)
	_ audit.Session = (*MockSession)(nil)
	_ audit.Prober  = StaticProber{}
)
