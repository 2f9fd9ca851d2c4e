package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	hmac          []byte
	ownerUser     string
	ownerPassHash string
}

func NewAuthService(secret, ownerUser, ownerPassHash string) *AuthService {
	return &AuthService{hmac: []byte(secret), ownerUser: ownerUser, ownerPassHash: ownerPassHash}
}

type Claims struct {
	Sub   string `json:"sub"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"` // "owner" or "respondent"
	jwt.RegisteredClaims
}

func (a *AuthService) IssueJWT(sub, email, role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Sub:   sub,
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "zeink-forms",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(8 * time.Hour)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	})
	if err != nil || !token.Valid {
		return nil, err
	}
	c, _ := token.Claims.(*Claims)
	return c, nil
}

// POST /auth/login
// Owners authenticate with the configured credential (bcrypt hash from env);
// respondents just state an email to get an identity token, or skip login
// entirely and submit anonymously.
func LoginHandler(a *AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username,omitempty"`
			Password string `json:"password,omitempty"`
			Email    string `json:"email,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}

		var tok string
		var err error
		switch {
		case req.Username != "":
			if req.Username != a.ownerUser ||
				bcrypt.CompareHashAndPassword([]byte(a.ownerPassHash), []byte(req.Password)) != nil {
				http.Error(w, "invalid credentials", http.StatusUnauthorized)
				return
			}
			tok, err = a.IssueJWT(req.Username, "", "owner")
		case req.Email != "":
			tok, err = a.IssueJWT(req.Email, req.Email, "respondent")
		default:
			http.Error(w, "username or email required", http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": tok})
	}
}

type ctxKey struct{}

var claimsKey ctxKey

// Middleware attaches parsed claims when a bearer token is present. It does
// not reject anonymous requests; handlers that need an identity check for
// claims themselves.
func Middleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if strings.HasPrefix(h, "Bearer ") {
				if c, err := a.Parse(strings.TrimPrefix(h, "Bearer ")); err == nil && c != nil {
					r = r.WithContext(context.WithValue(r.Context(), claimsKey, c))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwner guards owner-only routes.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := FromContext(r.Context())
		if c == nil || c.Role != "owner" {
			http.Error(w, "owner token required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func FromContext(ctx context.Context) *Claims {
	if v := ctx.Value(claimsKey); v != nil {
		if c, ok := v.(*Claims); ok {
			return c
		}
	}
	return nil
}
