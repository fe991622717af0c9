package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrSecretRequired aborts boot when a production process has no signing secret.
var ErrSecretRequired = errors.New("auth: signing secret is required in production (set CURAMED_AUTH_SECRET)")

// SigningSecret is the key material behind the token codec. It is constructed
// once at boot by one of the two strategies below and passed in explicitly;
// request-handling code never reads it from ambient state.
type SigningSecret struct {
	value     []byte
	ephemeral bool
}

func (s SigningSecret) Bytes() []byte   { return s.value }
func (s SigningSecret) Ephemeral() bool { return s.ephemeral }

// RequiredSecret is the production strategy: the configured value must be
// present or the process must not start.
func RequiredSecret(raw string) (SigningSecret, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return SigningSecret{}, ErrSecretRequired
	}
	return SigningSecret{value: []byte(raw)}, nil
}

// EphemeralDevSecret is the non-production strategy: generate a random secret
// for this process lifetime and warn loudly that every issued token dies with
// the process.
func EphemeralDevSecret(log logrus.FieldLogger) (SigningSecret, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return SigningSecret{}, fmt.Errorf("generate ephemeral secret: %w", err)
	}
	log.Warn("CURAMED_AUTH_SECRET is not set; generated an ephemeral signing secret. " +
		"All tokens will be invalidated on restart; unsuitable for production")
	return SigningSecret{value: []byte(base64.RawURLEncoding.EncodeToString(buf)), ephemeral: true}, nil
}

// LoadSigningSecret selects the strategy once at boot: required in production,
// ephemeral fallback elsewhere when the configured value is absent.
func LoadSigningSecret(raw string, production bool, log logrus.FieldLogger) (SigningSecret, error) {
	if strings.TrimSpace(raw) != "" {
		return RequiredSecret(raw)
	}
	if production {
		return SigningSecret{}, ErrSecretRequired
	}
	return EphemeralDevSecret(log)
}
