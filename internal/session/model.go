package session

import (
	"time"

	"cloudnine-chatbot/internal/nlp"
)

// Previous-visit values recorded under collected medical info.
const (
	VisitYes     = "yes"
	VisitNo      = "no"
	VisitUnknown = "unknown"
)

// AskKey identifies a clarifying question that is asked at most once per
// session.
type AskKey string

const (
	AskSymptoms              AskKey = "symptoms"
	AskPatientHistory        AskKey = "patient_history"
	AskAppointmentPreference AskKey = "appointment_preference"
)

// PersonalInfo holds identity facts volunteered by the patient.
type PersonalInfo struct {
	Name string `json:"name,omitempty"`
}

// MedicalInfo accumulates medical facts across turns. Symptoms are additive
// and deduplicated; PreviousVisit is yes/no/unknown.
type MedicalInfo struct {
	Symptoms      []string `json:"symptoms,omitempty"`
	PreviousVisit string   `json:"previous_visit,omitempty"`
}

// Preferences are single-valued, newest wins.
type Preferences struct {
	Doctor     string `json:"doctor,omitempty"`
	Department string `json:"department,omitempty"`
}

// Appointment is a partial appointment record. The most recent record is
// mutated in place until both "date" and "time" are present.
type Appointment map[string]string

// CollectedInfo is the per-session knowledge merged from entity extraction.
type CollectedInfo struct {
	Personal     PersonalInfo  `json:"personal"`
	Medical      MedicalInfo   `json:"medical"`
	Preferences  Preferences   `json:"preferences"`
	Appointments []Appointment `json:"appointments,omitempty"`
}

// Turn is one completed exchange. Immutable once appended to history.
type Turn struct {
	Timestamp   time.Time    `json:"timestamp"`
	UserMessage string       `json:"user_message"`
	BotResponse string       `json:"bot_response"`
	Entities    nlp.Entities `json:"entities,omitempty"`
	Intent      nlp.Intent   `json:"intent,omitempty"`
}

// TurnContext is the transient state of the turn in flight, overwritten on
// every inbound message.
type TurnContext struct {
	UserMessage string       `json:"user_message,omitempty"`
	Intent      nlp.Intent   `json:"intent,omitempty"`
	Entities    nlp.Entities `json:"entities,omitempty"`
}

// Exchange is the history projection handed to the generation collaborator.
type Exchange struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// Session tracks one user's ongoing conversation.
type Session struct {
	ID                   string          `json:"session_id"`
	CreatedAt            time.Time       `json:"created_at"`
	LastUpdated          time.Time       `json:"last_updated_at"`
	TurnCount            int             `json:"turn_count"`
	History              []Turn          `json:"history"`
	Collected            CollectedInfo   `json:"collected_info"`
	CurrentTurn          TurnContext     `json:"current_turn"`
	FirstInteraction     bool            `json:"is_first_interaction"`
	Asked                map[AskKey]bool `json:"asked,omitempty"`
	PendingQuestions     []string        `json:"pending_questions,omitempty"`
	AppointmentScheduled bool            `json:"appointment_scheduled"`
	AppointmentConfirmed bool            `json:"appointment_confirmed"`

	// Aux carries narrow caller-supplied context (platform, urgency label,
	// personalization hints). It is never merged into the typed fields.
	Aux map[string]string `json:"aux,omitempty"`
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		ID:               id,
		CreatedAt:        now,
		LastUpdated:      now,
		History:          []Turn{},
		FirstInteraction: true,
		Asked:            map[AskKey]bool{},
	}
}

// Clone returns a deep copy safe to hand outside the store's lock.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s

	out.History = make([]Turn, len(s.History))
	for i, t := range s.History {
		out.History[i] = t
		out.History[i].Entities = t.Entities.Clone()
	}
	out.CurrentTurn.Entities = s.CurrentTurn.Entities.Clone()

	out.Collected.Medical.Symptoms = append([]string(nil), s.Collected.Medical.Symptoms...)
	out.Collected.Appointments = make([]Appointment, len(s.Collected.Appointments))
	for i, a := range s.Collected.Appointments {
		cp := make(Appointment, len(a))
		for k, v := range a {
			cp[k] = v
		}
		out.Collected.Appointments[i] = cp
	}

	out.Asked = make(map[AskKey]bool, len(s.Asked))
	for k, v := range s.Asked {
		out.Asked[k] = v
	}
	out.PendingQuestions = append([]string(nil), s.PendingQuestions...)
	if s.Aux != nil {
		out.Aux = make(map[string]string, len(s.Aux))
		for k, v := range s.Aux {
			out.Aux[k] = v
		}
	}
	return &out
}
