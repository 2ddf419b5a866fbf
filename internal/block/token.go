package block

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const tokenTTL = 600 * time.Second

// protectionToken issues the HS256 token the AES/PlayReady key delivery
// service checks against the block's verification key.
func protectionToken(f Fields, now time.Time) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(f.VerificationKey)
	if err != nil {
		return "", fmt.Errorf("verification key: %w", err)
	}
	tok, err := jwt.NewBuilder().
		Issuer(f.TokenIssuer).
		Audience([]string{f.TokenScope}).
		Expiration(now.Add(tokenTTL)).
		Build()
	if err != nil {
		return "", err
	}
	tok.Options().Enable(jwt.FlattenAudience)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, secret))
	if err != nil {
		return "", fmt.Errorf("sign protection token: %w", err)
	}
	return string(signed), nil
}

// playerDOMID only has to be unique on the page.
func playerDOMID() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:])
}
