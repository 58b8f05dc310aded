package internal

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	pkgerrs "github.com/jamesprial/go-topgg/pkg/errors"
)

// TokenClaims is the subset of a Top.gg API token's payload the client uses.
type TokenClaims struct {
	BotID snowflake.ID
	IsBot bool
}

type tokenPayload struct {
	ID  snowflake.ID `json:"id"`
	Bot bool         `json:"bot"`
}

// ParseToken decodes the payload segment of a Top.gg API token. Top.gg issues
// JWTs whose payload names the bot the token belongs to. The signature is not
// verified; only Top.gg can do that.
func ParseToken(token string) (*TokenClaims, error) {
	if token == "" {
		return nil, &pkgerrs.ConfigError{Field: "Token", Message: "token cannot be empty"}
	}

	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		return nil, &pkgerrs.ConfigError{Field: "Token", Message: fmt.Sprintf("malformed token: expected 3 segments, got %d", len(segments))}
	}

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(segments[1], "="))
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "Token", Message: "malformed token payload: " + err.Error()}
	}

	var payload tokenPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &pkgerrs.ConfigError{Field: "Token", Message: "malformed token payload: " + err.Error()}
	}
	if payload.ID == 0 {
		return nil, &pkgerrs.ConfigError{Field: "Token", Message: "token payload does not name a bot"}
	}

	return &TokenClaims{BotID: payload.ID, IsBot: payload.Bot}, nil
}
