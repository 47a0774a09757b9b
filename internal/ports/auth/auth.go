package auth

import "context"

// Claims es lo que el resto del servicio sabe del usuario autenticado.
type Claims struct {
	UserID string
	Email  string
}

// AuthVerifier valida un bearer token. La implementación actual es jwtauth.
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}
