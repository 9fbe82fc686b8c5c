package chat

import (
	"encoding/json"
	"net/http"
	"strings"

	"cloudnine-chatbot/internal/pipeline"
)

// HandleWebhook processes an inbound WhatsApp message. Plivo posts either
// JSON or form-encoded payloads; the sender's number becomes the session
// identifier so each phone holds one conversation.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	message, sender, ok := parseWebhookPayload(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
		return
	}
	if message == "" || sender == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required fields"})
		return
	}

	sender = strings.TrimPrefix(sender, "whatsapp:")
	log := h.log.With("sender", sender)
	log.Info("processing webhook message")

	result := h.pipe.Process(r.Context(), message, sender, map[string]string{"platform": "whatsapp"})
	reply := formatWebhookReply(result)

	status := "skipped"
	if h.wa != nil {
		if err := h.wa.SendMessage(r.Context(), sender, reply); err != nil {
			log.Error("whatsapp send failed", "error", err)
			status = "error"
		} else {
			status = "success"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":       status,
		"from":         sender,
		"user_message": message,
		"bot_response": reply,
	})
}

// parseWebhookPayload accepts Plivo's JSON and form encodings, tolerating
// both capitalized and lowercase field names.
func parseWebhookPayload(r *http.Request) (message, sender string, ok bool) {
	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.Contains(contentType, "application/json"):
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", "", false
		}
		message = firstNonEmpty(body["Body"], body["message"])
		sender = firstNonEmpty(body["From"], body["from"])
		return message, sender, true
	case strings.Contains(contentType, "application/x-www-form-urlencoded"):
		if err := r.ParseForm(); err != nil {
			return "", "", false
		}
		message = firstNonEmpty(r.PostFormValue("Body"), r.PostFormValue("message"))
		sender = firstNonEmpty(r.PostFormValue("From"), r.PostFormValue("from"))
		return message, sender, true
	default:
		return "", "", false
	}
}

// formatWebhookReply flattens a turn result into one WhatsApp message:
// reply text, suggested-action bullets, then the next question.
func formatWebhookReply(result pipeline.Result) string {
	var b strings.Builder
	b.WriteString(result.Response)
	if len(result.SuggestedActions) > 0 {
		b.WriteString("\n\n*Suggested Actions:*")
		for _, action := range result.SuggestedActions {
			b.WriteString("\n• " + action)
		}
	}
	if result.NextQuestion != "" {
		b.WriteString("\n\n" + result.NextQuestion)
	}
	return b.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
