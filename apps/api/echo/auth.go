package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/studentdir/core"
	"github.com/trezcool/studentdir/core/user"
)

const (
	tokenContextKey   = "userToken"
	headerTokenLookup = "header:" + echo.HeaderAuthorization
	// browsers cannot set headers on WebSocket handshakes
	queryTokenLookup = "query:token"
)

// Claims represents the authorization claims transmitted via a JWT.
// The role is resolved at login and travels with the token.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64     `json:"oriat,omitempty"`
	Name         string    `json:"name,omitempty"`
	Email        string    `json:"email,omitempty"`
	Role         user.Role `json:"role,omitempty"`
}

// Caller returns the identity the request is made on behalf of.
func (c Claims) Caller() user.Caller {
	return user.Caller{ID: c.Subject, Name: c.Name, Email: c.Email, Role: c.Role}
}

// GetUserClaims returns fresh claims for caller. origIat is the issue time of the first token of the session.
func GetUserClaims(conf *core.Config, caller user.Caller, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   caller.ID,
			Audience:  "Student Directory",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         caller.Name,
		Email:        caller.Email,
		Role:         caller.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

type authenticator struct {
	conf      *core.Config
	jwtConfig middleware.JWTConfig
}

func newAuthenticator(conf *core.Config) *authenticator {
	return &authenticator{
		conf: conf,
		jwtConfig: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    tokenContextKey,
			Claims:        new(Claims),
		},
	}
}

// middleware returns the JWT auth middleware reading tokens from lookup.
func (a *authenticator) middleware(lookup string) echo.MiddlewareFunc {
	cfg := a.jwtConfig
	cfg.TokenLookup = lookup
	return middleware.JWTWithConfig(cfg)
}

func (a *authenticator) token(caller user.Caller, origIat ...int64) (string, error) {
	return GenerateToken(a.conf, GetUserClaims(a.conf, caller, origIat...))
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextCaller(ctx echo.Context) (user.Caller, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.Caller{}, err
	}
	return claims.Caller(), nil
}

func (a *authenticator) refreshToken(ctx echo.Context, svc *user.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if core.IsNotFound(err) {
			return "", errUnauthorized
		}
		return "", errors.Wrap(err, "finding user by ID")
	}

	// check if user is still active
	if !usr.IsActive {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	// the role is resolved again: the admin email may have changed
	token, err := a.token(svc.Caller(usr), claims.OrigIssuedAt)
	return token, errors.Wrap(err, "generating token")
}
