// Package domain defines the core domain models for SessBox.
//
// Domain models are pure value objects and entities without any
// IO dependencies or framework coupling.
package domain

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spaolacci/murmur3"
)

// Session constraints.
const (
	MaxNameLength   = 256
	MaxDomainLength = 253

	// LocalIDPrefix is the prefix for client-generated session IDs.
	LocalIDPrefix = "sbl-"
)

// Cookie is a captured browser cookie. Its content is opaque to sync.
type Cookie struct {
	Name           string  `json:"name"`
	Value          string  `json:"value"`
	Domain         string  `json:"domain"`
	Path           string  `json:"path"`
	Secure         bool    `json:"secure"`
	HTTPOnly       bool    `json:"httpOnly"`
	HostOnly       bool    `json:"hostOnly"`
	SameSite       string  `json:"sameSite,omitempty"`
	ExpirationDate float64 `json:"expirationDate,omitempty"`
}

// Payload is the captured client-side state of a site.
type Payload struct {
	Cookies        []Cookie          `json:"cookies"`
	LocalStorage   map[string]string `json:"localStorage"`
	SessionStorage map[string]string `json:"sessionStorage"`
}

// Clone returns a deep copy of the payload.
func (p Payload) Clone() Payload {
	out := Payload{}
	if p.Cookies != nil {
		out.Cookies = make([]Cookie, len(p.Cookies))
		copy(out.Cookies, p.Cookies)
	}
	out.LocalStorage = cloneStrings(p.LocalStorage)
	out.SessionStorage = cloneStrings(p.SessionStorage)
	return out
}

func cloneStrings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Session is a saved snapshot of a site's authentication state.
//
// A session without a RemoteID has never been acknowledged by the server.
type Session struct {
	// LocalID is the client-generated identifier, stable for the record's
	// local lifetime. Format: sbl-{ulid_lowercase}.
	LocalID string `json:"localId"`

	// RemoteID is the server-assigned identifier; empty until the first
	// successful remote create.
	RemoteID string `json:"remoteId,omitempty"`

	Domain     string  `json:"domain"`
	Name       string  `json:"name"`
	FaviconURL string  `json:"faviconUrl,omitempty"`
	Payload    Payload `json:"payload"`

	// HasRestrictedContent flags HttpOnly session cookies; carried unchanged.
	HasRestrictedContent bool `json:"hasRestrictedContent"`

	// Timestamps are Unix milliseconds.
	CreatedAt    int64 `json:"createdAt"`
	LastUsed     int64 `json:"lastUsed"`
	ModifiedAt   int64 `json:"modifiedAt"`
	LastSyncedAt int64 `json:"lastSyncedAt,omitempty"`
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewLocalID generates a new client-side session ID.
func NewLocalID() (string, error) {
	entropyMu.Lock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	entropyMu.Unlock()
	if err != nil {
		return "", ErrInternal.WithCause(err)
	}
	return LocalIDPrefix + strings.ToLower(id.String()), nil
}

// IsLocalID reports whether id has the client-generated format.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Payload = s.Payload.Clone()
	return &c
}

// Synced reports whether the server has acknowledged this record.
func (s *Session) Synced() bool {
	return s.RemoteID != ""
}

// Validate validates the session fields against constraints.
func (s *Session) Validate() error {
	var violations []string

	if strings.TrimSpace(s.Domain) == "" {
		violations = append(violations, "domain is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		violations = append(violations, "name is required")
	}
	if len(s.Domain) > MaxDomainLength {
		violations = append(violations, fmt.Sprintf("domain exceeds %d characters", MaxDomainLength))
	}
	if len(s.Name) > MaxNameLength {
		violations = append(violations, fmt.Sprintf("name exceeds %d characters", MaxNameLength))
	}

	if len(violations) > 0 {
		return ErrValidation.WithDetails(strings.Join(violations, "; "))
	}
	return nil
}

// content is the mutable, sync-relevant part of a session.
type content struct {
	Domain               string  `json:"domain"`
	Name                 string  `json:"name"`
	FaviconURL           string  `json:"faviconUrl"`
	Payload              Payload `json:"payload"`
	HasRestrictedContent bool    `json:"hasRestrictedContent"`
	LastUsed             int64   `json:"lastUsed"`
}

// Fingerprint hashes the mutable content of the session. Two records with
// the same fingerprint hold the same values regardless of identifiers or
// ModifiedAt.
func (s *Session) Fingerprint() string {
	// encoding/json sorts map keys, so the encoding is canonical.
	data, err := json.Marshal(content{
		Domain:               s.Domain,
		Name:                 s.Name,
		FaviconURL:           s.FaviconURL,
		Payload:              s.Payload,
		HasRestrictedContent: s.HasRestrictedContent,
		LastUsed:             s.LastUsed,
	})
	if err != nil {
		return ""
	}
	h1, h2 := murmur3.Sum128(data)
	return fmt.Sprintf("%016x%016x", h1, h2)
}

// AdoptContent overwrites the mutable fields of s with those of src,
// keeping s's identifiers.
func (s *Session) AdoptContent(src *Session) {
	s.Domain = src.Domain
	s.Name = src.Name
	s.FaviconURL = src.FaviconURL
	s.Payload = src.Payload.Clone()
	s.HasRestrictedContent = src.HasRestrictedContent
	s.LastUsed = src.LastUsed
	s.ModifiedAt = src.ModifiedAt
	if s.CreatedAt == 0 {
		s.CreatedAt = src.CreatedAt
	}
}

// SessionPatch carries a partial update. Nil fields are left unchanged.
type SessionPatch struct {
	Name                 *string
	Domain               *string
	FaviconURL           *string
	Payload              *Payload
	HasRestrictedContent *bool
	LastUsed             *int64
}

// IsEmpty reports whether the patch changes nothing.
func (p SessionPatch) IsEmpty() bool {
	return p.Name == nil && p.Domain == nil && p.FaviconURL == nil &&
		p.Payload == nil && p.HasRestrictedContent == nil && p.LastUsed == nil
}

// Apply merges the patch into s. It does not touch ModifiedAt.
func (p SessionPatch) Apply(s *Session) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Domain != nil {
		s.Domain = *p.Domain
	}
	if p.FaviconURL != nil {
		s.FaviconURL = *p.FaviconURL
	}
	if p.Payload != nil {
		s.Payload = p.Payload.Clone()
	}
	if p.HasRestrictedContent != nil {
		s.HasRestrictedContent = *p.HasRestrictedContent
	}
	if p.LastUsed != nil {
		s.LastUsed = *p.LastUsed
	}
}

// NextModifiedAt returns a timestamp for a new write to a record last
// modified at prev. Timestamps never go backwards per record.
func NextModifiedAt(prev int64, now time.Time) int64 {
	ts := now.UnixMilli()
	if ts <= prev {
		return prev + 1
	}
	return ts
}
