package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const recoveryTokenTTL = 24 * time.Hour

// RecoveryClaims carries the identity triple a client needs to resume its
// prior role after a reconnect.
type RecoveryClaims struct {
	SessionID     string `json:"session_id"`
	ParticipantID string `json:"participant_id"`
	IsManager     bool   `json:"is_manager"`
	jwt.RegisteredClaims
}

func (s *Service) IssueRecoveryToken(sessionID, participantID string, isManager bool) (string, error) {
	claims := RecoveryClaims{
		SessionID:     sessionID,
		ParticipantID: participantID,
		IsManager:     isManager,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(recoveryTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) ParseRecoveryToken(token string) (*RecoveryClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &RecoveryClaims{}, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*RecoveryClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("token invalid")
	}
	return claims, nil
}
