package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/Shivanand-hulikatti/checkedin/internal/model"
	"github.com/Shivanand-hulikatti/checkedin/internal/realtime"
)

// Text shown when the quota towards someone is used up.
const quotaExhaustedText = "Te has quedado sin mensajes. Es momento de verificar con quién hablas: " +
	"asegúrate de que es la persona correcta, haz contacto visual y/o saluda."

const timeLayout = "15:04"

// RenderVenues lists the venues one per line.
func RenderVenues(w io.Writer, venues []model.Venue) error {
	if len(venues) == 0 {
		_, err := fmt.Fprintln(w, "No hay sedes activas.")
		return err
	}
	for _, v := range venues {
		if _, err := fmt.Fprintf(w, "%4d  %s\n", v.ID, v.Name); err != nil {
			return err
		}
	}
	return nil
}

// RenderSession prints the one-line identity of the session.
func RenderSession(w io.Writer, s model.Session) error {
	_, err := fmt.Fprintf(w, "Estás como %s - %s. Interés: %s.\n",
		s.Nickname, s.Gender.Label(), s.InterestedIn.Label())
	return err
}

// RenderMatches lists the matches with the caller's remaining quota.
func RenderMatches(w io.Writer, matches []model.Match) error {
	if len(matches) == 0 {
		_, err := fmt.Fprintln(w, "Aún no hay personas compatibles en esta sede.")
		return err
	}
	for i, m := range matches {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%s (%s)\n", m.Nickname, m.Gender.Label())
		if m.Description != "" {
			fmt.Fprintf(&b, "  %s\n", m.Description)
		}
		if m.Instagram != nil {
			fmt.Fprintf(&b, "  IG: @%s\n", *m.Instagram)
		}
		fmt.Fprintf(&b, "  %s\n", quotaLine(m.Nickname, m.Quota))
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}

func quotaLine(nickname string, q model.Quota) string {
	if q.Exhausted() {
		return quotaExhaustedText
	}
	return fmt.Sprintf("Te quedan %d mensajes con %s", q.Remaining, nickname)
}

// RenderQuota prints the remaining quota towards nickname.
func RenderQuota(w io.Writer, nickname string, q model.Quota) error {
	_, err := fmt.Fprintln(w, quotaLine(nickname, q))
	return err
}

// RenderMessages lists messages, newest first as given.
func RenderMessages(w io.Writer, msgs []model.Message) error {
	if len(msgs) == 0 {
		_, err := fmt.Fprintln(w, "Sin mensajes")
		return err
	}
	for _, m := range msgs {
		marker := " "
		if !m.Read {
			marker = "*"
		}
		if _, err := fmt.Fprintf(w, "%s [%s] %s: %s\n",
			marker, m.CreatedAt.Format(timeLayout), m.FromNickname, m.Text); err != nil {
			return err
		}
	}
	return nil
}

// RenderCheckout prints the outcome of a checkout attempt.
func RenderCheckout(w io.Writer, out model.CheckoutOutcome) error {
	var err error
	switch out.Status {
	case model.CheckoutTooEarly:
		_, err = fmt.Fprintf(w, "Aún no puedes hacer check-out: la estancia mínima es de %d minutos.\n", out.MinStayMinutes)
	default:
		_, err = fmt.Fprintln(w, "Check-out completado. ¡Hasta pronto!")
	}
	return err
}

// RenderIncoming prints the notification for a message event.
func RenderIncoming(w io.Writer, ev realtime.Event) error {
	if ev.Message == nil {
		return nil
	}
	_, err := fmt.Fprintf(w, "Nuevo mensaje de %s: %s\n", ev.Message.FromNickname, ev.Message.Text)
	return err
}
