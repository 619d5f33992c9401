// Package remotetest provides an in-memory session server for tests.
package remotetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yndnr/sessbox-go/internal/remote"
)

// Token is the bearer token the server accepts by default.
const Token = "test-token"

// Server is an in-memory implementation of the remote session API.
//
// Records get IDs "R1", "R2", ... and a ModifiedAt taken from the server
// clock on every write.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	records     map[string]*remote.Record
	idempotency map[string]string
	nextID      int
	token       string
	now         func() int64
	envelope    string

	unauthorized bool
	down         bool
	failNext     []int
	loseAcks     int
	requests     map[string]int
}

// NewServer starts a new server. Close it when done.
func NewServer() *Server {
	s := &Server{
		records:     make(map[string]*remote.Record),
		idempotency: make(map[string]string),
		token:       Token,
		now:         func() int64 { return time.Now().UnixMilli() },
		requests:    make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// SetClock sets the clock used to stamp ModifiedAt.
func (s *Server) SetClock(now func() int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetEnvelope wraps responses as {"<key>": body}; "" sends bare bodies.
func (s *Server) SetEnvelope(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envelope = key
}

// SetUnauthorized makes every authenticated route return 401.
func (s *Server) SetUnauthorized(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unauthorized = v
}

// SetDown makes every route, including /health, return 503.
func (s *Server) SetDown(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = v
}

// FailNext makes the next len(statuses) session requests fail with the
// given statuses, without side effects.
func (s *Server) FailNext(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = append(s.failNext, statuses...)
}

// LoseAcks applies the next n mutations but answers them with 502, as if
// the response was lost on the way back.
func (s *Server) LoseAcks(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loseAcks = n
}

// Put stores rec as-is, as a write from another device would. An empty
// ID is assigned.
func (s *Server) Put(rec remote.Record) *remote.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = s.newIDLocked()
	}
	if rec.ModifiedAt == 0 {
		rec.ModifiedAt = s.now()
	}
	c := rec
	c.Payload = rec.Payload.Clone()
	s.records[rec.ID] = &c
	return copyRecord(&c)
}

// Remove deletes a record directly.
func (s *Server) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
}

// Get returns a copy of a record.
func (s *Server) Get(id string) (*remote.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, false
	}
	return copyRecord(r), true
}

// Records returns copies of all records sorted by ID.
func (s *Server) Records() []*remote.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked()
}

// Len returns the number of records.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Requests returns how many requests were received for a method.
func (s *Server) Requests(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[method]
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests[r.Method]++

	if s.down {
		writeError(w, http.StatusServiceUnavailable, "unavailable")
		return
	}
	if r.URL.Path == "/health" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if s.unauthorized || r.Header.Get("Authorization") != "Bearer "+s.token {
		writeError(w, http.StatusUnauthorized, "not authorized")
		return
	}
	if len(s.failNext) > 0 {
		status := s.failNext[0]
		s.failNext = s.failNext[1:]
		writeError(w, status, "injected failure")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/sessions/")
	switch {
	case r.URL.Path == "/sessions" && r.Method == http.MethodGet:
		s.write(w, http.StatusOK, s.listLocked())
	case r.URL.Path == "/sessions" && r.Method == http.MethodPost:
		s.create(w, r)
	case id != r.URL.Path && id != "" && r.Method == http.MethodPut:
		s.update(w, r, id)
	case id != r.URL.Path && id != "" && r.Method == http.MethodDelete:
		s.delete(w, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "unsupported route")
	}
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var body remote.Record
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if body.Domain == "" || body.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "domain and name are required")
		return
	}

	key := r.Header.Get(remote.IdempotencyHeader)
	if key != "" {
		if id, ok := s.idempotency[key]; ok {
			if rec, ok := s.records[id]; ok {
				s.ack(w, http.StatusOK, copyRecord(rec))
				return
			}
		}
	}

	body.ID = s.newIDLocked()
	body.ModifiedAt = s.now()
	if body.CreatedAt == 0 {
		body.CreatedAt = body.ModifiedAt
	}
	s.records[body.ID] = &body
	if key != "" {
		s.idempotency[key] = body.ID
	}
	s.ack(w, http.StatusCreated, copyRecord(&body))
}

func (s *Server) update(w http.ResponseWriter, r *http.Request, id string) {
	cur, ok := s.records[id]
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	var body remote.Record
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	body.ID = id
	body.ClientID = cur.ClientID
	body.CreatedAt = cur.CreatedAt
	body.ModifiedAt = s.now()
	if body.ModifiedAt <= cur.ModifiedAt {
		body.ModifiedAt = cur.ModifiedAt + 1
	}
	s.records[id] = &body
	s.ack(w, http.StatusOK, copyRecord(&body))
}

func (s *Server) delete(w http.ResponseWriter, id string) {
	if _, ok := s.records[id]; !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	delete(s.records, id)
	s.ack(w, http.StatusOK, map[string]string{"message": "session deleted"})
}

// ack answers a successful mutation, or drops the answer when a lost
// acknowledgement is pending.
func (s *Server) ack(w http.ResponseWriter, status int, v any) {
	if s.loseAcks > 0 {
		s.loseAcks--
		writeError(w, http.StatusBadGateway, "upstream reset")
		return
	}
	s.write(w, status, v)
}

func (s *Server) write(w http.ResponseWriter, status int, v any) {
	if s.envelope != "" {
		v = map[string]any{"message": "ok", s.envelope: v}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) listLocked() []*remote.Record {
	out := make([]*remote.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, copyRecord(r))
	}
	sort.Slice(out, func(i, j int) bool {
		return idNum(out[i].ID) < idNum(out[j].ID)
	})
	return out
}

func (s *Server) newIDLocked() string {
	for {
		s.nextID++
		id := "R" + strconv.Itoa(s.nextID)
		if _, taken := s.records[id]; !taken {
			return id
		}
	}
}

func idNum(id string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(id, "R"))
	if err != nil {
		return 1 << 30
	}
	return n
}

func copyRecord(r *remote.Record) *remote.Record {
	c := *r
	c.Payload = r.Payload.Clone()
	return &c
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
