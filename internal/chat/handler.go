package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"cloudnine-chatbot/internal/config"
	"cloudnine-chatbot/internal/pipeline"
	"cloudnine-chatbot/internal/report"
	"cloudnine-chatbot/internal/session"
)

// DefaultSessionID is used when a caller does not supply one.
const DefaultSessionID = "new_session"

const emptyMessageReply = "I didn't receive any message. Could you please try again?"

// Handler exposes the conversation pipeline over HTTP.
type Handler struct {
	pipe    *pipeline.Pipeline
	archive session.Repository
	reports *report.Service
	intents []config.IntentDef
	wa      WebhookSender
	log     *slog.Logger
}

// WebhookSender delivers outbound webhook replies.
type WebhookSender interface {
	SendMessage(ctx context.Context, to, text string) error
}

func NewHandler(pipe *pipeline.Pipeline, archive session.Repository, reports *report.Service, intents []config.IntentDef, wa WebhookSender, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		pipe:    pipe,
		archive: archive,
		reports: reports,
		intents: intents,
		wa:      wa,
		log:     log,
	}
}

// RegisterRoutes mounts all chat endpoints on the router.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/health", h.HandleHealth)
	r.Get("/intents", h.HandleIntents)
	r.Post("/chat", h.HandleChat)
	r.Post("/sessions", h.HandleCreateSession)
	r.Get("/sessions/{id}", h.HandleGetSession)
	r.Delete("/sessions/{id}", h.HandleDeleteSession)
	r.Post("/sessions/{id}/restore", h.HandleRestoreSession)
	r.Post("/sessions/{id}/report", h.HandleSessionReport)
	r.Post("/whatsapp/webhook", h.HandleWebhook)
}

type ChatRequest struct {
	Message   string            `json:"message"`
	SessionID string            `json:"session_id,omitempty"`
	Context   map[string]string `json:"context,omitempty"`
}

type ChatResponse struct {
	Response         string           `json:"response"`
	NextQuestion     string           `json:"next_question,omitempty"`
	SessionID        string           `json:"session_id"`
	Context          *session.Session `json:"context,omitempty"`
	SuggestedActions []string         `json:"suggested_actions,omitempty"`
}

// HandleChat processes one conversation turn. Empty input is answered with
// a fixed clarifying reply without invoking the pipeline; the endpoint only
// fails hard when the orchestration itself panics, mapped by the recoverer
// to a generic error.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusOK, ChatResponse{
			Response:  formatResponse(emptyMessageReply),
			SessionID: sessionID,
		})
		return
	}

	result := h.pipe.Process(r.Context(), req.Message, sessionID, req.Context)

	writeJSON(w, http.StatusOK, ChatResponse{
		Response:         formatResponse(result.Response),
		NextQuestion:     result.NextQuestion,
		SessionID:        result.SessionID,
		Context:          result.Context,
		SuggestedActions: result.SuggestedActions,
	})
}

func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "Cloud9 Hospitals chatbot is running",
	})
}

func (h *Handler) HandleIntents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"intents": h.intents})
}

func (h *Handler) HandleCreateSession(w http.ResponseWriter, _ *http.Request) {
	id := uuid.New().String()
	h.pipe.Store().GetOrCreate(id)
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

// HandleGetSession is a pure read: unknown or expired sessions yield 404
// rather than allocating state as a side effect.
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, ok := h.pipe.Store().Get(id)
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// HandleDeleteSession resets the session, archiving the final snapshot
// first when an archive is configured.
func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if h.archive != nil {
		if snapshot, err := h.pipe.Store().Export(id); err == nil {
			if err := h.archive.Save(r.Context(), snapshot, id); err != nil {
				h.log.Warn("session archive failed", "session_id", id, "error", err)
			}
		}
	}

	h.pipe.Reset(id)
	w.WriteHeader(http.StatusNoContent)
}

// HandleRestoreSession loads an archived snapshot back into the live store.
func (h *Handler) HandleRestoreSession(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		http.Error(w, "Session archive not configured", http.StatusNotImplemented)
		return
	}
	id := chi.URLParam(r, "id")

	snapshot, err := h.archive.Load(r.Context(), id)
	if err != nil {
		http.Error(w, "Archived session not found", http.StatusNotFound)
		return
	}
	if err := h.pipe.Store().Import(snapshot); err != nil {
		h.log.Error("session restore failed", "session_id", id, "error", err)
		http.Error(w, "Failed to restore session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.pipe.Store().GetOrCreate(id))
}

// HandleSessionReport renders the conversation report PDF and returns it,
// notifying the care coordinator in passing.
func (h *Handler) HandleSessionReport(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		http.Error(w, "Reports not configured", http.StatusNotImplemented)
		return
	}
	id := chi.URLParam(r, "id")
	sess := h.pipe.Store().GetOrCreate(id)

	pdf, err := h.reports.Render(sess)
	if err != nil {
		h.log.Error("report rendering failed", "session_id", id, "error", err)
		http.Error(w, "Failed to render report", http.StatusInternalServerError)
		return
	}
	h.reports.Notify(r.Context(), sess)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="report_`+id+`.pdf"`)
	w.Write(pdf)
}

// formatResponse decorates the reply with a topic emoji prefix and invites
// a follow-up on longer answers.
func formatResponse(text string) string {
	lowered := strings.ToLower(text)
	switch {
	case strings.Contains(lowered, "appointment"):
		text = "🗓 " + text
	case strings.Contains(lowered, "emergency"):
		text = "🚨 " + text
	case strings.Contains(lowered, "doctor"), strings.Contains(lowered, "medical"):
		text = "👨‍⚕️ " + text
	case strings.Contains(lowered, "pregnancy"), strings.Contains(lowered, "baby"):
		text = "👶 " + text
	}
	if len(text) > 100 {
		text += "\n\n💫 Is there anything else you'd like to know?"
	}
	return text
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
