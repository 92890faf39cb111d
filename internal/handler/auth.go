package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Shivanand-hulikatti/checkedin/internal/model"
)

// ErrInvalidToken is returned for missing, malformed, or expired tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims carry the whole session so that no server-side session state is
// needed.
type Claims struct {
	model.Session
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies session tokens (HS256).
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret cannot be empty")
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for sess.
func (t *TokenIssuer) Issue(sess model.Session) (string, error) {
	now := t.now()
	claims := Claims{
		Session: sess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d:%s", sess.VenueID, sess.Nickname),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies token and returns the session it carries.
func (t *TokenIssuer) Parse(token string) (model.Session, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !parsed.Valid {
		return model.Session{}, ErrInvalidToken
	}
	if claims.VenueID <= 0 || claims.Nickname == "" ||
		!claims.Gender.Valid() || !claims.InterestedIn.Valid() {
		return model.Session{}, ErrInvalidToken
	}
	return claims.Session, nil
}

type sessionKey struct{}

// Authenticate requires a valid bearer token whose checkin is still active
// and stores the current session in the request context. A token outlives
// its checkin, so every request re-checks it.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		sess, err := h.authorize(r, token)
		if err != nil {
			writeServiceError(w, r, err, "failed to verify session")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

// authorize parses token and confirms its checkin is still the active one
// for that venue and nickname.
func (h *Handler) authorize(r *http.Request, token string) (model.Session, error) {
	claimed, err := h.tokens.Parse(token)
	if err != nil {
		return model.Session{}, err
	}
	return h.checkins.Restore(r.Context(), claimed)
}

// sessionFrom returns the session stored by Authenticate.
func sessionFrom(ctx context.Context) model.Session {
	sess, _ := ctx.Value(sessionKey{}).(model.Session)
	return sess
}
