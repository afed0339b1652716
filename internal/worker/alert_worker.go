package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/makingtools/rapidbites-sub001/internal/dto"
	"github.com/makingtools/rapidbites-sub001/internal/infra"

	"github.com/rs/zerolog/log"
)

// Sender delivers a plain-text message. *infra.Mailer satisfies it.
type Sender interface {
	Send(to, subject, body string) error
}

// AlertWorker e-mails supervisors when a drawer closes outside the normal band.
type AlertWorker struct {
	sender Sender
	to     string
}

func NewAlertWorker(sender Sender, to string) *AlertWorker {
	return &AlertWorker{sender: sender, to: to}
}

func (w *AlertWorker) Process(_ context.Context, raw json.RawMessage) error {
	var alert dto.ClosingAlert
	if err := json.Unmarshal(raw, &alert); err != nil {
		// Retrying cannot fix a bad payload.
		log.Error().Err(err).Msg("alert_worker: invalid payload")
		return nil
	}
	if w.to == "" {
		log.Warn().Str("closing_id", alert.ClosingID).Msg("alert_worker: ALERT_EMAIL_TO empty, skipping")
		return nil
	}

	err := w.sender.Send(w.to, alertSubject(alert), alertBody(alert))
	if errors.Is(err, infra.ErrMailerNotConfigured) {
		log.Warn().Str("closing_id", alert.ClosingID).Msg("alert_worker: SMTP not configured, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("sending closing alert: %w", err)
	}
	log.Info().Str("closing_id", alert.ClosingID).Str("to", w.to).Msg("alert_worker: closing alert sent")
	return nil
}

func alertSubject(a dto.ClosingAlert) string {
	return fmt.Sprintf("[%s] Cash drawer closed with difference %s", strings.ToUpper(a.Classification), a.TotalDifference)
}

func alertBody(a dto.ClosingAlert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Operator:       %s\n", a.OperatorName)
	fmt.Fprintf(&b, "Session:        %s\n", a.CashSessionID)
	fmt.Fprintf(&b, "Closing:        %s\n", a.ClosingID)
	fmt.Fprintf(&b, "Closed at:      %s\n", a.ClosingDate)
	fmt.Fprintf(&b, "Difference:     %s (%s)\n", a.TotalDifference, a.DifferencePct)
	fmt.Fprintf(&b, "Classification: %s\n", a.Classification)
	if a.Notes != "" {
		fmt.Fprintf(&b, "\nOperator notes:\n%s\n", a.Notes)
	}
	return b.String()
}
