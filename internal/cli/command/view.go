package command

import (
	"sort"
	"strconv"

	"github.com/yndnr/sessbox-go/internal/cli/output"
	"github.com/yndnr/sessbox-go/internal/core/domain"
)

// sessionView is the display form of a session. The payload is
// summarized unless requested, since it carries credentials.
type sessionView struct {
	ID                   string          `json:"id" yaml:"id"`
	RemoteID             string          `json:"remoteId,omitempty" yaml:"remote_id,omitempty"`
	Name                 string          `json:"name" yaml:"name"`
	Domain               string          `json:"domain" yaml:"domain"`
	FaviconURL           string          `json:"faviconUrl,omitempty" yaml:"favicon_url,omitempty"`
	HasRestrictedContent bool            `json:"hasRestrictedContent" yaml:"has_restricted_content"`
	Cookies              int             `json:"cookies" yaml:"cookies"`
	LocalStorageKeys     []string        `json:"localStorageKeys,omitempty" yaml:"local_storage_keys,omitempty"`
	SessionStorageKeys   []string        `json:"sessionStorageKeys,omitempty" yaml:"session_storage_keys,omitempty"`
	CreatedAt            int64           `json:"createdAt" yaml:"created_at"`
	LastUsed             int64           `json:"lastUsed" yaml:"last_used"`
	ModifiedAt           int64           `json:"modifiedAt" yaml:"modified_at"`
	LastSyncedAt         int64           `json:"lastSyncedAt,omitempty" yaml:"last_synced_at,omitempty"`
	Payload              *domain.Payload `json:"payload,omitempty" yaml:"payload,omitempty"`
}

func newSessionView(s *domain.Session, withPayload bool) *sessionView {
	v := &sessionView{
		ID:                   s.LocalID,
		RemoteID:             s.RemoteID,
		Name:                 s.Name,
		Domain:               s.Domain,
		FaviconURL:           s.FaviconURL,
		HasRestrictedContent: s.HasRestrictedContent,
		Cookies:              len(s.Payload.Cookies),
		LocalStorageKeys:     keys(s.Payload.LocalStorage),
		SessionStorageKeys:   keys(s.Payload.SessionStorage),
		CreatedAt:            s.CreatedAt,
		LastUsed:             s.LastUsed,
		ModifiedAt:           s.ModifiedAt,
		LastSyncedAt:         s.LastSyncedAt,
	}
	if withPayload {
		p := s.Payload.Clone()
		v.Payload = &p
	}
	return v
}

// Table implements output.Tabular as a field/value listing.
func (v *sessionView) Table(bool) *output.Table {
	t := output.NewTable("FIELD", "VALUE")
	t.AddRow("id", v.ID)
	t.AddRow("remote id", v.RemoteID)
	t.AddRow("name", v.Name)
	t.AddRow("domain", v.Domain)
	t.AddRow("favicon", v.FaviconURL)
	t.AddRow("restricted", strconv.FormatBool(v.HasRestrictedContent))
	t.AddRow("cookies", strconv.Itoa(v.Cookies))
	t.AddRow("local storage", strconv.Itoa(len(v.LocalStorageKeys))+" keys")
	t.AddRow("session storage", strconv.Itoa(len(v.SessionStorageKeys))+" keys")
	t.AddRow("created", output.Millis(v.CreatedAt))
	t.AddRow("last used", output.Millis(v.LastUsed))
	t.AddRow("modified", output.Millis(v.ModifiedAt))
	t.AddRow("last synced", output.Millis(v.LastSyncedAt))
	return t
}

type sessionListView []*sessionView

func newSessionListView(list []*domain.Session) sessionListView {
	out := make(sessionListView, 0, len(list))
	for _, s := range list {
		out = append(out, newSessionView(s, false))
	}
	return out
}

// Table implements output.Tabular.
func (l sessionListView) Table(wide bool) *output.Table {
	t := output.NewTable("ID", "NAME", "DOMAIN", "MODIFIED", "SYNCED")
	if wide {
		t.Headers = append(t.Headers, "REMOTE ID", "LAST USED", "COOKIES")
	}
	for _, v := range l {
		id := v.ID
		if !wide {
			id = output.Truncate(id, 16)
		}
		synced := "pending"
		if v.RemoteID != "" {
			synced = "yes"
		}
		row := []string{id, v.Name, v.Domain, output.Millis(v.ModifiedAt), synced}
		if wide {
			row = append(row, v.RemoteID, output.Millis(v.LastUsed), strconv.Itoa(v.Cookies))
		}
		t.AddRow(row...)
	}
	return t
}

type operationList []*domain.Operation

// Table implements output.Tabular.
func (l operationList) Table(wide bool) *output.Table {
	t := output.NewTable("SEQ", "KIND", "TARGET", "ATTEMPTS", "NEXT ATTEMPT", "LAST ERROR")
	if wide {
		t.Headers = append(t.Headers, "REMOTE ID", "ENQUEUED")
	}
	for _, op := range l {
		target := op.TargetID
		lastErr := op.LastError
		if !wide {
			target = output.Truncate(target, 16)
			lastErr = output.Truncate(lastErr, 40)
		}
		row := []string{
			strconv.FormatInt(op.Seq, 10),
			string(op.Kind),
			target,
			strconv.Itoa(op.Attempts),
			output.Millis(op.NextAttemptAt),
			lastErr,
		}
		if wide {
			row = append(row, op.RemoteID, output.Millis(op.EnqueuedAt))
		}
		t.AddRow(row...)
	}
	return t
}

func keys(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
