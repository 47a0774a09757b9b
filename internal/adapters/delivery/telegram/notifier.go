package telegram

import (
	"context"
	"fmt"
	"html"
	"time"

	"doseclock/internal/platform/logger"
	"doseclock/internal/ports/delivery"
)

// Notifier implementa delivery.Notifier sobre el bot.
// Mensajes sin ChatID se ignoran: el usuario no vinculó Telegram.
type Notifier struct {
	client *Client
	loc    *time.Location
	log    logger.Logger
}

func NewNotifier(client *Client, loc *time.Location, log logger.Logger) *Notifier {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Notifier{client: client, loc: loc, log: log}
}

func (n *Notifier) Notify(ctx context.Context, m delivery.Message) error {
	if m.ChatID == "" {
		return nil
	}

	text, markup := Render(m, n.loc)
	id, err := n.client.SendMessage(ctx, m.ChatID, text, markup)
	if err != nil {
		return err
	}

	n.log.Debug("telegram message sent", map[string]any{
		"dose_id":    m.DoseID,
		"kind":       m.Kind,
		"message_id": id,
	})
	return nil
}

// Render arma el texto HTML según el tipo de aviso.
func Render(m delivery.Message, loc *time.Location) (string, *InlineKeyboard) {
	name := html.EscapeString(m.MedicationName)
	at := m.ScheduledAt.In(loc)

	switch m.Kind {
	case "advance":
		return fmt.Sprintf(
			"<b>⏰ Recordatorio Anticipado</b>\n\nEn <b>%d minutos</b> debes tomar:\n<b>💊 %s</b>\n\n<i>Prepara tu medicamento.</i>",
			m.MinutesUntil, name,
		), nil
	case "missed":
		return fmt.Sprintf(
			"<b>⚠️ Toma No Confirmada</b>\n\nNo confirmaste la toma de:\n<b>💊 %s</b>\nProgramada para las <b>%s</b>\n\n<i>Si ya la tomaste, puedes confirmarla igual.</i>",
			name, at.Format("15:04"),
		), nil
	default:
		text := fmt.Sprintf(
			"<b>💊 Recordatorio de Medicamento</b>\n\n<b>Medicamento:</b> %s\n<b>Hora programada:</b> %s\n<b>Fecha:</b> %s\n\n<i>Recuerda tomar tu medicamento a tiempo.</i>",
			name, at.Format("15:04"), at.Format("02/01/2006"),
		)
		return text, &InlineKeyboard{InlineKeyboard: [][]InlineButton{
			{{Text: "✅ Confirmar Toma", CallbackData: "confirm_" + m.DoseID}},
		}}
	}
}
