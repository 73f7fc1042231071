package service

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainauth "github.com/target/todo-platform/internal/domain/auth"
	"github.com/target/todo-platform/internal/observability/metrics"
)

// DefaultTokenTTL applies when TokenAuthorityConfig.TTL is unset.
const DefaultTokenTTL = 10 * time.Hour

// TokenAuthorityConfig holds signing material and token lifetime.
type TokenAuthorityConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	Now    func() time.Time // Optional: defaults to time.Now
}

// TokenAuthorityOptions groups dependencies for TokenAuthority.
type TokenAuthorityOptions struct {
	Config    TokenAuthorityConfig
	Telemetry Telemetry
}

// TokenAuthority issues and validates stateless HS256 bearer tokens bound to a username.
// It has no relationship to sessions and is not consulted by the admin gate.
type TokenAuthority struct {
	secret  []byte
	ttl     time.Duration
	issuer  string
	now     func() time.Time
	parser  *jwt.Parser
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewTokenAuthority constructs a new TokenAuthority.
func NewTokenAuthority(opts TokenAuthorityOptions) *TokenAuthority {
	cfg := opts.Config
	if len(cfg.Secret) == 0 {
		panic("token secret is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTokenTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(cfg.Now),
	}
	if cfg.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(cfg.Issuer))
	}

	return &TokenAuthority{
		secret:  append([]byte(nil), cfg.Secret...),
		ttl:     cfg.TTL,
		issuer:  cfg.Issuer,
		now:     cfg.Now,
		parser:  jwt.NewParser(parserOpts...),
		log:     opts.Telemetry.logger().With("component", "token_authority"),
		metrics: opts.Telemetry.Metrics,
	}
}

// Issue signs a token for username. It does not check that the user exists.
func (a *TokenAuthority) Issue(username string) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	a.metrics.ObserveToken("issue", err)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	a.log.Info("token issued", "op", "issue", "username", username, "token_fp", Fingerprint(signed))
	return signed, nil
}

// Validate reports whether token is well-formed, correctly signed and unexpired.
// It fails closed and never returns an error.
func (a *TokenAuthority) Validate(token string) bool {
	_, err := a.parse(token)
	a.metrics.ObserveToken("validate", err)
	if err != nil {
		a.log.Info("token rejected", "op", "validate", "token_fp", Fingerprint(token), "error", err)
		return false
	}
	return true
}

// ExtractUsername returns the username bound to token.
// Invalid or expired tokens yield a *domainauth.TokenError.
func (a *TokenAuthority) ExtractUsername(token string) (string, error) {
	claims, err := a.parse(token)
	a.metrics.ObserveToken("extract", err)
	if err != nil {
		a.log.Info("token rejected", "op", "extract_username", "token_fp", Fingerprint(token), "error", err)
		return "", err
	}
	return claims.Subject, nil
}

func (a *TokenAuthority) parse(token string) (*jwt.RegisteredClaims, error) {
	if token == "" {
		return nil, &domainauth.TokenError{Reason: "empty token"}
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := a.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, &domainauth.TokenError{Reason: tokenFailureReason(err), Err: err}
	}
	if !parsed.Valid {
		return nil, &domainauth.TokenError{Reason: "invalid"}
	}
	return claims, nil
}

func tokenFailureReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "bad signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "wrong issuer"
	default:
		return "invalid"
	}
}

// Fingerprint returns a short stable digest of token safe to log.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:6])
}
