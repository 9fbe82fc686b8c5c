package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Export serializes the live session for id as JSON. Timestamps serialize
// as RFC 3339 so a snapshot round-trips to an equivalent session.
func (s *Store) Export(id string) ([]byte, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	var cp *Session
	if ok {
		cp = sess.Clone()
	}
	s.mu.RUnlock()

	if cp == nil {
		return nil, fmt.Errorf("session %q not found", id)
	}
	return json.MarshalIndent(cp, "", "  ")
}

// Import restores a previously exported snapshot, replacing any live
// session under the same identifier. Restoring counts as a touch: the
// session's idle clock restarts, so a snapshot archived long ago is not
// immediately reaped as stale.
func (s *Store) Import(data []byte) error {
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return fmt.Errorf("decode session snapshot: %w", err)
	}
	if sess.ID == "" {
		return errors.New("session snapshot missing session_id")
	}
	if sess.Asked == nil {
		sess.Asked = map[AskKey]bool{}
	}
	if sess.History == nil {
		sess.History = []Turn{}
	}
	sess.LastUpdated = s.now()

	s.mu.Lock()
	s.sessions[sess.ID] = &sess
	s.mu.Unlock()
	return nil
}
