package session

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"cloudnine-chatbot/internal/nlp"
)

const (
	// DefaultTimeout is how long a session stays live without being updated.
	DefaultTimeout = time.Hour

	// Above this many live sessions, every update eagerly purges expired ones.
	defaultMaxSessions = 1000
)

// Store owns the session map. All mutation of a single session happens as
// one critical section, so concurrent turns for the same identifier resolve
// last-write-wins rather than corrupting state.
type Store struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	timeout     time.Duration
	maxSessions int
	now         func() time.Time
	log         *slog.Logger
}

// NewStore builds an empty store. A non-positive timeout selects the
// one-hour default.
func NewStore(timeout time.Duration, log *slog.Logger) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		sessions:    make(map[string]*Session),
		timeout:     timeout,
		maxSessions: defaultMaxSessions,
		now:         time.Now,
		log:         log,
	}
}

func (s *Store) stale(sess *Session) bool {
	return s.now().Sub(sess.LastUpdated) > s.timeout
}

// getOrCreateLocked returns the live session for id, transparently replacing
// an expired one with fresh state under the same identifier.
func (s *Store) getOrCreateLocked(id string) *Session {
	sess, ok := s.sessions[id]
	if ok && !s.stale(sess) {
		return sess
	}
	if ok {
		s.log.Debug("session expired, resetting", "session_id", id)
	}
	sess = newSession(id, s.now())
	s.sessions[id] = sess
	return sess
}

// GetOrCreate returns a deep copy of the live session, allocating fresh
// state for unseen or expired identifiers. It never fails.
func (s *Store) GetOrCreate(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(id).Clone()
}

// Get returns a deep copy of the live session, or false when the id is
// unknown or expired. Unlike GetOrCreate it never allocates or resets.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok || s.stale(sess) {
		return nil, false
	}
	return sess.Clone(), true
}

// Update records one completed turn: staleness check, turn append, entity
// merge and appointment-flag recompute run under a single lock acquisition.
// An update landing on an expired session discards the old state first, so
// the update always applies to a valid session.
func (s *Store) Update(id, userMessage, botResponse string, entities nlp.Entities, intent nlp.Intent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(id)
	now := s.now()
	sess.LastUpdated = now
	sess.TurnCount++
	sess.History = append(sess.History, Turn{
		Timestamp:   now,
		UserMessage: userMessage,
		BotResponse: botResponse,
		Entities:    entities.Clone(),
		Intent:      intent,
	})

	if len(entities) > 0 {
		s.mergeEntities(sess, entities)
	}

	if len(s.sessions) > s.maxSessions {
		s.sweepLocked()
	}
}

// mergeEntities folds one turn's entities into the accumulated knowledge.
// Multi-valued categories accumulate, single-valued ones take the newest
// value.
func (s *Store) mergeEntities(sess *Session, entities nlp.Entities) {
	info := &sess.Collected

	if name := entities.First(nlp.CategoryPerson); name != "" {
		info.Personal.Name = name
	}

	for _, symptom := range entities[nlp.CategorySymptom] {
		if !containsFold(info.Medical.Symptoms, symptom) {
			info.Medical.Symptoms = append(info.Medical.Symptoms, symptom)
		}
	}

	if visits := entities[nlp.CategoryPreviousVisit]; len(visits) > 0 {
		if resolved := nlp.ResolvePreviousVisit(visits); resolved != "" {
			info.Medical.PreviousVisit = resolved
		}
	}

	appointmentTouched := false

	if dept := entities.First(nlp.CategoryDepartment); dept != "" {
		info.Preferences.Department = dept
		appointmentTouched = true
	}
	if doctor := entities.First(nlp.CategoryDoctor); doctor != "" {
		info.Preferences.Doctor = doctor
		appointmentTouched = true
	}

	temporal := Appointment{}
	if date := entities.First(nlp.CategoryDate); date != "" {
		temporal["date"] = date
	}
	if t := entities.First(nlp.CategoryTime); t != "" {
		temporal["time"] = t
	}
	if len(temporal) > 0 {
		appointmentTouched = true
		if len(info.Appointments) == 0 {
			info.Appointments = append(info.Appointments, Appointment{})
		}
		last := info.Appointments[len(info.Appointments)-1]
		for k, v := range temporal {
			last[k] = v
		}
	}

	if appointmentTouched {
		if len(info.Appointments) > 0 {
			last := info.Appointments[len(info.Appointments)-1]
			// Scheduled latches true and is never unset within a session.
			if last["date"] != "" && last["time"] != "" {
				sess.AppointmentScheduled = true
			}
		}
		if info.Preferences.Doctor != "" || info.Preferences.Department != "" {
			sess.AppointmentConfirmed = true
		}
	}
}

// History projects stored turns into user/assistant pairs. Turns missing
// either side are silently dropped from the projection, not from storage.
// A positive lastN keeps only the most recent N pairs, in original order.
func (s *Store) History(id string, lastN int) []Exchange {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok || s.stale(sess) {
		return nil
	}

	out := make([]Exchange, 0, len(sess.History))
	for _, t := range sess.History {
		if t.UserMessage == "" || t.BotResponse == "" {
			continue
		}
		out = append(out, Exchange{User: t.UserMessage, Assistant: t.BotResponse})
	}
	if lastN > 0 && len(out) > lastN {
		out = out[len(out)-lastN:]
	}
	return out
}

// SetCurrentTurn overwrites the transient context of the turn in flight.
func (s *Store) SetCurrentTurn(id string, turn TurnContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreateLocked(id).CurrentTurn = turn
}

// MergeAux copies caller-supplied auxiliary context into the session's side
// map without touching the typed fields.
func (s *Store) MergeAux(id string, aux map[string]string) {
	if len(aux) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.getOrCreateLocked(id)
	if sess.Aux == nil {
		sess.Aux = make(map[string]string, len(aux))
	}
	for k, v := range aux {
		sess.Aux[k] = v
	}
}

// ConsumeFirstInteraction reports whether this is the session's first ever
// turn, marking it consumed as a single atomic step.
func (s *Store) ConsumeFirstInteraction(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.getOrCreateLocked(id)
	was := sess.FirstInteraction
	sess.FirstInteraction = false
	return was
}

// TryAsk marks the clarifying question for key as asked and reports whether
// it had not been asked before. Each question fires at most once per
// session, whether or not it was ever answered.
func (s *Store) TryAsk(id string, key AskKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.getOrCreateLocked(id)
	if sess.Asked[key] {
		return false
	}
	sess.Asked[key] = true
	return true
}

// PushPendingQuestion queues a question to surface on a later turn.
func (s *Store) PushPendingQuestion(id, question string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.getOrCreateLocked(id)
	sess.PendingQuestions = append(sess.PendingQuestions, question)
}

// PopPendingQuestion dequeues the oldest pending question, or returns "".
func (s *Store) PopPendingQuestion(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || len(sess.PendingQuestions) == 0 {
		return ""
	}
	q := sess.PendingQuestions[0]
	sess.PendingQuestions = sess.PendingQuestions[1:]
	return q
}

// Clear removes the session. Idempotent.
func (s *Store) Clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len reports the number of sessions currently held, expired ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SweepExpired removes all sessions past the timeout and reports how many
// were dropped.
func (s *Store) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

func (s *Store) sweepLocked() int {
	removed := 0
	for id, sess := range s.sessions {
		if s.stale(sess) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		s.log.Info("swept expired sessions", "removed", removed, "live", len(s.sessions))
	}
	return removed
}

// RunSweeper purges expired sessions on the given interval until stop is
// closed. Intended to run as a background goroutine.
func (s *Store) RunSweeper(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.SweepExpired()
		case <-stop:
			return
		}
	}
}

func containsFold(values []string, v string) bool {
	for _, x := range values {
		if strings.EqualFold(x, v) {
			return true
		}
	}
	return false
}
