package api

import (
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"

	"aura-api/domain"
)

const (
	defaultJWKSCacheTTL = 15 * time.Minute
	defaultPersonaClaim = "persona"
	envLocalAuthMode    = "LOCAL_AUTH_MODE"
	envLocalAuthSecret  = "LOCAL_AUTH_SHARED_SECRET"
	envJWKSCacheTTL     = "JWKS_CACHE_TTL"
	envPersonaClaim     = "AUTH_PERSONA_CLAIM"
)

// Identity is what a validated token says about its bearer. Persona is
// empty when the token does not carry one.
type Identity struct {
	Subject string
	Name    string
	Email   string
	Persona domain.Persona
}

// User converts the identity to the claims used to provision a user.
func (i Identity) User() domain.User {
	return domain.User{ID: i.Subject, Name: i.Name, Email: i.Email, Persona: i.Persona}
}

// Auth validates incoming JWT tokens.
type Auth struct {
	JWKS         *keyfunc.JWKS
	Audience     string
	Issuer       string
	TestMode     bool
	TestSecret   []byte
	PersonaClaim string

	parser      *jwt.Parser
	keyCache    sync.Map
	keyCacheTTL time.Duration
}

type cachedKey struct {
	key       any
	expiresAt time.Time
}

// NewAuth creates a new Auth instance. LOCAL_AUTH_MODE=hs256 switches to
// shared-secret tokens for local runs.
func NewAuth(jwks *keyfunc.JWKS, audience, issuer string) (*Auth, error) {
	a := &Auth{JWKS: jwks, Audience: audience, Issuer: issuer, PersonaClaim: defaultPersonaClaim}
	ttl, err := parseCacheTTL()
	if err != nil {
		return nil, err
	}
	a.keyCacheTTL = ttl
	if claim := os.Getenv(envPersonaClaim); claim != "" {
		a.PersonaClaim = claim
	}

	if mode := strings.ToLower(os.Getenv(envLocalAuthMode)); mode != "" {
		if mode != "hs256" {
			return nil, domain.MissingSetting(envLocalAuthMode)
		}
		secret := os.Getenv(envLocalAuthSecret)
		if secret == "" {
			return nil, domain.MissingSetting(envLocalAuthSecret)
		}
		a.TestMode = true
		a.TestSecret = []byte(secret)
	}

	if a.TestMode {
		a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	} else {
		a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"RS256"}))
	}
	return a, nil
}

func parseCacheTTL() (time.Duration, error) {
	ttl := defaultJWKSCacheTTL
	if raw := os.Getenv(envJWKSCacheTTL); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			return 0, &domain.ConfigurationError{Setting: envJWKSCacheTTL, Message: "invalid JWKS_CACHE_TTL"}
		}
		ttl = parsed
	}
	return ttl, nil
}

// IdentityFromAuthHeader validates the bearer token in the Authorization header.
func (a *Auth) IdentityFromAuthHeader(h string) (Identity, error) {
	token, err := bearerToken(h)
	if err != nil {
		return Identity{}, err
	}
	return a.IdentityFromBearer(token)
}

// IdentityFromBearer validates a raw bearer token.
func (a *Auth) IdentityFromBearer(token string) (Identity, error) {
	if token == "" {
		return Identity{}, errBadAuthorization
	}

	var parsedToken *jwt.Token
	var err error
	if a.TestMode {
		parsedToken, err = a.parser.Parse(token, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return a.TestSecret, nil
		})
	} else {
		parsedToken, err = a.parser.Parse(token, a.keyForToken)
	}
	if err != nil {
		return Identity{}, err
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, errors.New("invalid claims")
	}

	now := time.Now().Add(time.Minute).Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return Identity{}, errors.New("token expired")
	}
	if !claims.VerifyNotBefore(now, false) {
		return Identity{}, errors.New("token not valid yet")
	}
	if !claims.VerifyIssuedAt(now, false) {
		return Identity{}, errors.New("token used before issued")
	}
	if a.Audience != "" && !claims.VerifyAudience(a.Audience, false) {
		return Identity{}, errors.New("invalid audience")
	}
	if a.Issuer != "" && !claims.VerifyIssuer(a.Issuer, false) {
		return Identity{}, errors.New("invalid issuer")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return Identity{}, errors.New("missing sub")
	}

	id := Identity{Subject: sub}
	id.Name, _ = claims["name"].(string)
	id.Email, _ = claims["email"].(string)
	claim := a.PersonaClaim
	if claim == "" {
		claim = defaultPersonaClaim
	}
	id.Persona = personaFromClaim(claims[claim])
	return id, nil
}

// personaFromClaim accepts a single role string or a list of roles.
func personaFromClaim(v any) domain.Persona {
	switch val := v.(type) {
	case string:
		if val == "" {
			return ""
		}
		return domain.ParsePersona(strings.ToLower(val))
	case []any:
		if len(val) == 0 {
			return ""
		}
		for _, r := range val {
			if s, ok := r.(string); ok && strings.EqualFold(s, string(domain.PersonaAdmin)) {
				return domain.PersonaAdmin
			}
		}
		return domain.PersonaEmployee
	}
	return ""
}

func (a *Auth) keyForToken(token *jwt.Token) (any, error) {
	if a.JWKS == nil {
		return nil, errors.New("jwks not configured")
	}

	kid, _ := token.Header["kid"].(string)
	if kid != "" && a.keyCacheTTL > 0 {
		if cached, ok := a.keyCache.Load(kid); ok {
			entry := cached.(cachedKey)
			if time.Now().Before(entry.expiresAt) {
				return entry.key, nil
			}
			a.keyCache.Delete(kid)
		}
	}

	key, err := a.JWKS.Keyfunc(token)
	if err != nil {
		return nil, err
	}

	if kid != "" && a.keyCacheTTL > 0 {
		a.keyCache.Store(kid, cachedKey{key: key, expiresAt: time.Now().Add(a.keyCacheTTL)})
	}
	return key, nil
}
