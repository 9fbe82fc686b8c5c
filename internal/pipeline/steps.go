package pipeline

import (
	"cloudnine-chatbot/internal/nlp"
	"cloudnine-chatbot/internal/session"
)

// Step is one static entry of the clarification pipeline: the question to
// ask, the entity categories that would satisfy it, and the session key the
// answer is recorded under.
type Step struct {
	Question   string
	Categories []nlp.Category
	ContextKey session.AskKey
}

// DefaultSteps returns the fixed clarification sequence. Steps are static
// configuration, never derived at runtime.
func DefaultSteps() []Step {
	return []Step{
		{
			Question:   "👋 Hi! How can I assist you with your healthcare needs today?",
			Categories: nil,
			ContextKey: "greeting",
		},
		{
			Question:   "Could you share if you're experiencing any specific symptoms? 🏥",
			Categories: []nlp.Category{nlp.CategorySymptom},
			ContextKey: session.AskSymptoms,
		},
		{
			Question:   "Have you visited Cloud9 Hospitals before? 🏨",
			Categories: []nlp.Category{nlp.CategoryPreviousVisit},
			ContextKey: session.AskPatientHistory,
		},
		{
			Question:   "Would you prefer to schedule an appointment with a specific doctor or department? 👨‍⚕️",
			Categories: []nlp.Category{nlp.CategoryDoctor, nlp.CategoryDepartment},
			ContextKey: session.AskAppointmentPreference,
		},
	}
}

func (p *Pipeline) stepByKey(key session.AskKey) (Step, bool) {
	for _, st := range p.steps {
		if st.ContextKey == key {
			return st, true
		}
	}
	return Step{}, false
}
