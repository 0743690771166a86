package authadapter

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
	"golang.org/x/crypto/bcrypt"

	sserr "github.com/StricklySoft/cypher-gateway/pkg/errors"
)

// Runner is the subset of the Bolt driver the adapter needs to run the
// impersonation probe: a single auto-commit query against a read-mode
// session opened with the service identity's own credentials.
type Runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error)
}

// Config holds the credentials and signing material Authenticate checks
// incoming requests against.
type Config struct {
	// ServiceUsername is the username of the gateway's own configured
	// service identity.
	ServiceUsername string

	// ServicePasswordHash is a bcrypt hash of the service identity's
	// password.
	ServicePasswordHash Secret

	// JWTSigningKey, when non-empty, enables the supplementary bearer-token
	// path: a platform-issued HS256 JWT whose "sub" claim becomes the
	// impersonated username.
	JWTSigningKey Secret
}

// Adapter authenticates HTTP Basic credentials (and, optionally, a bearer
// service JWT) into a Principal.
type Adapter struct {
	cfg    Config
	runner Runner
	logger *slog.Logger

	warnMissingImpersonation sync.Once
}

// New constructs an Adapter. logger defaults to slog.Default() if nil.
func New(cfg Config, runner Runner, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{cfg: cfg, runner: runner, logger: logger}
}

// Authenticate checks (username, password) against the configured service
// identity first, then falls back to the Neo4j impersonation probe. The
// password bytes are never retained beyond this call except inside the
// returned Principal's opaque credentials, which the caller must discard
// when the request completes.
func (a *Adapter) Authenticate(ctx context.Context, username, password string) (Principal, error) {
	if a.isServiceIdentity(username, password) {
		return NewServicePrincipal(username), nil
	}
	return a.authenticateByImpersonation(ctx, username, password)
}

func (a *Adapter) isServiceIdentity(username, password string) bool {
	if subtle.ConstantTimeCompare([]byte(username), []byte(a.cfg.ServiceUsername)) != 1 {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(a.cfg.ServicePasswordHash.Value()), []byte(password))
	return err == nil
}

func (a *Adapter) authenticateByImpersonation(ctx context.Context, username, password string) (Principal, error) {
	records, err := a.runner.Run(ctx,
		"RETURN impersonation.authenticate($u, $p) = 'SUCCESS' AS result",
		map[string]any{"u": username, "p": password})
	if err != nil {
		if isImpersonationUnavailable(err) {
			a.warnMissingImpersonation.Do(func() {
				a.logger.Warn("authadapter: impersonation.authenticate is not installed on the database; impersonated login is unavailable")
			})
		}
		return Principal{}, sserr.Wrap(err, sserr.CodeAuthentication, "authadapter: impersonation probe failed")
	}
	if len(records) == 0 {
		return Principal{}, sserr.New(sserr.CodeAuthentication, "authadapter: impersonation probe returned no result")
	}
	ok, _ := records[0].Get("result")
	if success, _ := ok.(bool); !success {
		return Principal{}, sserr.New(sserr.CodeAuthentication, "authadapter: invalid credentials")
	}
	return NewImpersonatedPrincipal(username, Secret(password)), nil
}

// isImpersonationUnavailable reports whether err indicates the database has
// no impersonation.authenticate procedure installed, rather than an
// ordinary credential rejection or transport failure.
func isImpersonationUnavailable(err error) bool {
	if !neo4j.IsNeo4jError(err) {
		return false
	}
	dbErr, ok := err.(*db.Neo4jError)
	if !ok {
		return false
	}
	return strings.HasPrefix(dbErr.Code, "Neo.ClientError.Statement.") ||
		strings.HasPrefix(dbErr.Code, "Neo.ClientError.Procedure.")
}

// AuthenticateServiceToken verifies a platform-issued HS256 bearer token
// (the supplementary Authorization: Bearer path) and returns the Principal
// it authorizes, impersonating the token's "sub" claim. It returns ok=false
// for any token that does not validate, including when JWTSigningKey is
// unset — callers should fall through to Basic-auth handling in that case.
func (a *Adapter) AuthenticateServiceToken(tokenStr string) (principal Principal, ok bool) {
	if a.cfg.JWTSigningKey == "" {
		return Principal{}, false
	}

	token, err := jwt.Parse(tokenStr, func(*jwt.Token) (any, error) {
		return []byte(a.cfg.JWTSigningKey.Value()), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return Principal{}, false
	}

	claims, valid := token.Claims.(jwt.MapClaims)
	if !valid {
		return Principal{}, false
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Principal{}, false
	}
	return NewImpersonatedPrincipal(sub, ""), true
}
