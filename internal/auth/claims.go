package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for this service.
// Every token is bound to one device: DeviceID must be present for all
// activity so reconciliation can tell which device observed an event.
// Device capabilities (primary vs linked) live in internal/devices.
type Claims struct {
	jwt.RegisteredClaims

	UserID     string    `json:"user_id"`
	DeviceID   string    `json:"device_id"`
	DeviceRole string    `json:"device_role"`
	TokenType  TokenType `json:"token_type"`
}
