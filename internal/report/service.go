package report

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/signintech/gopdf"

	"cloudnine-chatbot/internal/session"
)

// Sender notifies a care coordinator that a report is ready.
type Sender interface {
	SendMessage(ctx context.Context, to, text string) error
}

// Service renders conversation reports as PDF and optionally notifies over
// WhatsApp.
type Service struct {
	sender          Sender
	coordinatorNum  string
	log             *slog.Logger
	transcriptTurns int
}

func NewService(sender Sender, coordinatorNumber string, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		sender:          sender,
		coordinatorNum:  coordinatorNumber,
		log:             log,
		transcriptTurns: 10,
	}
}

// Render produces the PDF for one session snapshot.
func (s *Service) Render(sess *session.Session) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	// Probe common font locations; gopdf needs a TTF for non-builtin glyphs.
	fontPaths := []string{
		"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	}
	var fontErr error
	fontLoaded := false
	for _, path := range fontPaths {
		if err := pdf.AddTTFFont("DejaVu", path); err == nil {
			fontLoaded = true
			break
		} else {
			fontErr = err
		}
	}
	if !fontLoaded {
		return nil, pkgerrors.Wrap(fontErr, "failed to load font for PDF, ensure ttf-dejavu is installed")
	}

	if err := pdf.SetFont("DejaVu", "", 20); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Cloud9 Hospitals - Conversation Report")
	pdf.Br(30)

	if err := pdf.SetFont("DejaVu", "", 12); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Date: %s", time.Now().Format("02.01.2006 15:04")))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Session: %s", sess.ID))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Turns: %d", sess.TurnCount))
	pdf.Br(25)

	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Collected information:")
	pdf.Br(15)

	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, err
	}
	for _, line := range collectedLines(sess) {
		wrapped, _ := pdf.SplitText(line, 500)
		for _, l := range wrapped {
			pdf.Cell(nil, l)
			pdf.Br(12)
		}
	}
	pdf.Br(15)

	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Recent transcript:")
	pdf.Br(15)

	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, err
	}
	history := sess.History
	if len(history) > s.transcriptTurns {
		history = history[len(history)-s.transcriptTurns:]
	}
	if len(history) == 0 {
		pdf.Cell(nil, "- No completed turns.")
		pdf.Br(12)
	}
	for _, t := range history {
		for _, line := range []string{
			fmt.Sprintf("Patient: %s", t.UserMessage),
			fmt.Sprintf("Assistant: %s", t.BotResponse),
		} {
			wrapped, _ := pdf.SplitText(line, 500)
			for _, l := range wrapped {
				pdf.Cell(nil, l)
				pdf.Br(12)
			}
		}
		pdf.Br(5)
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to write PDF")
	}
	return buf.Bytes(), nil
}

// Notify sends a short report summary to the care coordinator, when a
// sender and destination are configured.
func (s *Service) Notify(ctx context.Context, sess *session.Session) {
	if s.sender == nil || s.coordinatorNum == "" {
		return
	}
	summary := fmt.Sprintf(
		"Conversation report ready for session %s: %d turns, symptoms [%s], appointment scheduled: %t.",
		sess.ID,
		sess.TurnCount,
		strings.Join(sess.Collected.Medical.Symptoms, ", "),
		sess.AppointmentScheduled,
	)
	if err := s.sender.SendMessage(ctx, s.coordinatorNum, summary); err != nil {
		s.log.Warn("report notification failed", "session_id", sess.ID, "error", err)
	}
}

func collectedLines(sess *session.Session) []string {
	info := sess.Collected
	lines := []string{}
	if info.Personal.Name != "" {
		lines = append(lines, "- Name: "+info.Personal.Name)
	}
	if len(info.Medical.Symptoms) > 0 {
		lines = append(lines, "- Symptoms: "+strings.Join(info.Medical.Symptoms, ", "))
	}
	visit := info.Medical.PreviousVisit
	if visit == "" {
		visit = session.VisitUnknown
	}
	lines = append(lines, "- Previous visit: "+visit)
	if info.Preferences.Doctor != "" {
		lines = append(lines, "- Preferred doctor: "+info.Preferences.Doctor)
	}
	if info.Preferences.Department != "" {
		lines = append(lines, "- Preferred department: "+info.Preferences.Department)
	}
	for _, appt := range info.Appointments {
		lines = append(lines, fmt.Sprintf("- Appointment: date %q, time %q", appt["date"], appt["time"]))
	}
	lines = append(lines, fmt.Sprintf("- Appointment scheduled: %t, confirmed: %t",
		sess.AppointmentScheduled, sess.AppointmentConfirmed))
	return lines
}
