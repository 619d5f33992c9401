package service

import (
	"context"
	"sort"
	"time"

	"github.com/yndnr/sessbox-go/internal/core/cache"
	"github.com/yndnr/sessbox-go/internal/core/domain"
	"github.com/yndnr/sessbox-go/internal/telemetry/logger"
)

// Submitter hands a local mutation to the sync engine.
type Submitter interface {
	Submit(ctx context.Context, op *domain.Operation) error
}

// SessionService handles local session mutations and queries.
type SessionService struct {
	cache     *cache.Cache
	sync      Submitter
	blocklist *BlocklistService
	now       func() time.Time
	logger    logger.Logger
}

// Option configures the SessionService.
type Option func(*SessionService)

// WithClock overrides the time source used to stamp operations.
func WithClock(now func() time.Time) Option {
	return func(s *SessionService) {
		s.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *SessionService) {
		s.logger = l
	}
}

// NewSessionService creates a new SessionService. blocklist may be nil.
func NewSessionService(c *cache.Cache, sync Submitter, blocklist *BlocklistService, opts ...Option) *SessionService {
	s := &SessionService{
		cache:     c,
		sync:      sync,
		blocklist: blocklist,
		now:       time.Now,
		logger:    logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "session-service")
	return s
}

// ============================================================================
// Mutations
// ============================================================================

// CreateSessionRequest contains parameters for session creation.
type CreateSessionRequest struct {
	Domain     string         // Required
	Name       string         // Required
	FaviconURL string         // Optional
	Payload    domain.Payload // Captured cookies and storage
}

// Create saves a new session. HasRestrictedContent is derived from the
// payload: it is set when any cookie is HttpOnly.
func (s *SessionService) Create(ctx context.Context, req *CreateSessionRequest) (*domain.Session, error) {
	if req == nil {
		return nil, domain.ErrInvalidArgument.WithDetails("request is required")
	}
	if err := s.checkDomain(req.Domain); err != nil {
		return nil, err
	}

	created, err := s.cache.Create(ctx, &domain.Session{
		Domain:               req.Domain,
		Name:                 req.Name,
		FaviconURL:           req.FaviconURL,
		Payload:              req.Payload,
		HasRestrictedContent: hasHTTPOnly(req.Payload),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("session created", "session_id", created.LocalID, "domain", created.Domain)

	if err := s.submit(ctx, domain.OpCreate, created); err != nil {
		return created, err
	}
	return created, nil
}

// UpdateSessionRequest contains parameters for a partial update.
// Nil fields are left unchanged.
type UpdateSessionRequest struct {
	ID         string // Local or remote ID, required
	Name       *string
	Domain     *string
	FaviconURL *string
	Payload    *domain.Payload
}

// Update applies a partial update.
func (s *SessionService) Update(ctx context.Context, req *UpdateSessionRequest) (*domain.Session, error) {
	if req == nil || req.ID == "" {
		return nil, domain.ErrInvalidArgument.WithDetails("session id is required")
	}
	patch := domain.SessionPatch{
		Name:       req.Name,
		Domain:     req.Domain,
		FaviconURL: req.FaviconURL,
		Payload:    req.Payload,
	}
	if patch.IsEmpty() {
		return s.cache.Get(req.ID)
	}
	if req.Domain != nil {
		if err := s.checkDomain(*req.Domain); err != nil {
			return nil, err
		}
	}
	if req.Payload != nil {
		restricted := hasHTTPOnly(*req.Payload)
		patch.HasRestrictedContent = &restricted
	}

	updated, err := s.cache.Update(ctx, req.ID, patch)
	if err != nil {
		return nil, err
	}
	s.logger.Info("session updated", "session_id", updated.LocalID)

	if err := s.submit(ctx, domain.OpUpdate, updated); err != nil {
		return updated, err
	}
	return updated, nil
}

// Touch records that a session was restored.
func (s *SessionService) Touch(ctx context.Context, id string) (*domain.Session, error) {
	touched, err := s.cache.Touch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.submit(ctx, domain.OpUpdate, touched); err != nil {
		return touched, err
	}
	return touched, nil
}

// Delete removes a session. Deleting an unknown id fails with NotFound.
func (s *SessionService) Delete(ctx context.Context, id string) (*domain.Session, error) {
	deleted, err := s.cache.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("session deleted", "session_id", deleted.LocalID, "remote_id", deleted.RemoteID)

	if err := s.submit(ctx, domain.OpDelete, deleted); err != nil {
		return deleted, err
	}
	return deleted, nil
}

// submit hands the mutation to the sync engine. The local change is
// already durable when this fails.
func (s *SessionService) submit(ctx context.Context, kind domain.OpKind, sess *domain.Session) error {
	if s.sync == nil {
		return nil
	}
	op := domain.NewOperation(kind, sess, s.now().UnixMilli())
	if err := s.sync.Submit(ctx, op); err != nil {
		s.logger.Error("failed to record pending operation", "op", op.String(), "error", err)
		return err
	}
	return nil
}

func (s *SessionService) checkDomain(d string) error {
	if s.blocklist != nil && s.blocklist.Blocked(d) {
		return domain.ErrDomainBlocked.WithDetails(domain.NormalizeDomain(d))
	}
	return nil
}

func hasHTTPOnly(p domain.Payload) bool {
	for _, c := range p.Cookies {
		if c.HTTPOnly {
			return true
		}
	}
	return false
}

// ============================================================================
// Queries
// ============================================================================

// Get returns the session with the given local or remote ID.
func (s *SessionService) Get(id string) (*domain.Session, error) {
	return s.cache.Get(id)
}

// List returns all sessions, most recently modified first.
func (s *SessionService) List() []*domain.Session {
	return byRecency(s.cache.List())
}

// ListByDomain returns the sessions for one domain, most recently
// modified first.
func (s *SessionService) ListByDomain(d string) []*domain.Session {
	return byRecency(s.cache.ListByDomain(d))
}

func byRecency(list []*domain.Session) []*domain.Session {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].ModifiedAt != list[j].ModifiedAt {
			return list[i].ModifiedAt > list[j].ModifiedAt
		}
		return list[i].LocalID < list[j].LocalID
	})
	return list
}
