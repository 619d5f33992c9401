package remote

import (
	"bytes"
	"encoding/json"

	"github.com/yndnr/sessbox-go/internal/core/domain"
)

// Record is a session as held by the remote store.
type Record struct {
	ID string `json:"id"`

	// ClientID echoes the LocalID the record was created from.
	ClientID string `json:"clientId,omitempty"`

	Domain               string         `json:"domain"`
	Name                 string         `json:"name"`
	FaviconURL           string         `json:"faviconUrl,omitempty"`
	Payload              domain.Payload `json:"payload"`
	HasRestrictedContent bool           `json:"hasRestrictedContent"`

	// Unix milliseconds.
	CreatedAt  int64 `json:"createdAt,omitempty"`
	LastUsed   int64 `json:"lastUsed,omitempty"`
	ModifiedAt int64 `json:"modifiedAt"`
}

// UnmarshalJSON accepts "_id" as an alias of "id".
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	var aux struct {
		plain
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Record(aux.plain)
	if r.ID == "" {
		r.ID = aux.MongoID
	}
	return nil
}

// Session converts the record into a cache entry without a LocalID.
func (r *Record) Session() *domain.Session {
	return &domain.Session{
		RemoteID:             r.ID,
		Domain:               r.Domain,
		Name:                 r.Name,
		FaviconURL:           r.FaviconURL,
		Payload:              r.Payload.Clone(),
		HasRestrictedContent: r.HasRestrictedContent,
		CreatedAt:            r.CreatedAt,
		LastUsed:             r.LastUsed,
		ModifiedAt:           r.ModifiedAt,
	}
}

// RecordFrom builds the request body for s.
func RecordFrom(s *domain.Session) *Record {
	return &Record{
		ID:                   s.RemoteID,
		ClientID:             s.LocalID,
		Domain:               s.Domain,
		Name:                 s.Name,
		FaviconURL:           s.FaviconURL,
		Payload:              s.Payload.Clone(),
		HasRestrictedContent: s.HasRestrictedContent,
		CreatedAt:            s.CreatedAt,
		LastUsed:             s.LastUsed,
		ModifiedAt:           s.ModifiedAt,
	}
}

// envelopeKeys are the wrappers servers put around a response body.
var envelopeKeys = []string{"data", "session", "sessions"}

// unwrap strips a {"data": ...} style envelope, if any.
func unwrap(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return trimmed
	}
	if _, ok := obj["id"]; ok {
		return trimmed
	}
	for _, k := range envelopeKeys {
		inner, ok := obj[k]
		if !ok {
			continue
		}
		inner = bytes.TrimSpace(inner)
		if len(inner) > 0 && (inner[0] == '{' || inner[0] == '[') {
			return unwrap(inner)
		}
	}
	return trimmed
}
