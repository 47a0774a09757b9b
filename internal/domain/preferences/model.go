package preferences

import (
	"errors"
	"time"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("preferences not found")
)

// Preferences de notificación por usuario.
type Preferences struct {
	UserID string

	NotificationsEnabled bool
	AdvanceReminder      bool

	TelegramChatID  string
	TelegramEnabled bool

	UpdatedAt time.Time
}

// Defaults para un usuario sin fila guardada.
func Defaults(userID string) Preferences {
	return Preferences{
		UserID:               userID,
		NotificationsEnabled: true,
		AdvanceReminder:      true,
	}
}

// AllowsAdvance: el recordatorio anticipado se puede apagar por separado.
func (p Preferences) AllowsAdvance() bool {
	return p.NotificationsEnabled && p.AdvanceReminder
}

// TelegramReady: hay chat vinculado y el canal está activo.
func (p Preferences) TelegramReady() bool {
	return p.TelegramEnabled && p.TelegramChatID != ""
}
