package pipeline

import "cloudnine-chatbot/internal/nlp"

const maxSuggestedActions = 3

// DefaultActions returns the static per-intent suggested-action labels.
// The "_confirmed" variant of appointment booking applies once a time
// entity has been captured this turn.
func DefaultActions() map[string][]string {
	return map[string][]string{
		string(nlp.IntentAppointmentBooking): {
			"📅 Select a date",
			"⏰ Choose time slot",
			"👨‍⚕️ View available doctors",
		},
		string(nlp.IntentAppointmentBooking) + "_confirmed": {
			"✅ Confirm appointment",
			"📍 Get directions",
			"📝 Add to calendar",
		},
		string(nlp.IntentSymptomInquiry): {
			"Find relevant department",
			"Book urgent consultation",
			"View medical guidelines",
		},
		string(nlp.IntentMedicalRecords): {
			"Download reports",
			"View prescription history",
			"Schedule follow-up",
		},
		"default": {
			"Book an appointment",
			"View our services",
			"Contact support",
		},
	}
}

// suggestedActions resolves up to three action labels for the intent,
// falling back to the generic triple when the intent yields none.
func (p *Pipeline) suggestedActions(intent nlp.Intent, entities nlp.Entities) []string {
	key := string(intent)
	if intent == nlp.IntentAppointmentBooking && entities.Has(nlp.CategoryTime) {
		key += "_confirmed"
	}

	actions := p.actions[key]
	if len(actions) == 0 {
		actions = p.actions["default"]
	}
	if len(actions) > maxSuggestedActions {
		actions = actions[:maxSuggestedActions]
	}
	return append([]string(nil), actions...)
}
