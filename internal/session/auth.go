package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

var (
	ErrCloudDisabled = errors.New("cloud sync not configured")
	// ErrAuthRejected is surfaced to callers as a user-visible failure.
	// Local-mode library availability is unaffected.
	ErrAuthRejected = errors.New("authentication rejected")
)

// Identity is a successful cloud authentication result.
type Identity struct {
	UserID      string
	Email       string
	AccessToken string
}

// Authenticator signs email/password credentials in against a
// Supabase-style auth endpoint, creating the account when sign-in is
// rejected for an unknown user.
type Authenticator struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

func NewAuthenticator(baseURL, apiKey string, log zerolog.Logger) *Authenticator {
	return &Authenticator{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 12 * time.Second},
		log:     log,
	}
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// SignIn exchanges credentials for an identity, falling back to sign-up
// when the password grant is rejected.
func (a *Authenticator) SignIn(ctx context.Context, email, password string) (Identity, error) {
	ident, err := a.post(ctx, "/auth/v1/token?grant_type=password", email, password)
	if err == nil {
		return ident, nil
	}
	if !errors.Is(err, ErrAuthRejected) {
		return Identity{}, err
	}

	a.log.Info().Str("email", email).Msg("sign-in rejected, attempting sign-up")
	ident, err = a.post(ctx, "/auth/v1/signup", email, password)
	if err != nil {
		return Identity{}, err
	}
	return ident, nil
}

func (a *Authenticator) post(ctx context.Context, path, email, password string) (Identity, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return Identity{}, fmt.Errorf("encode credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return Identity{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("auth request: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized ||
		resp.StatusCode == http.StatusUnprocessableEntity {
		return Identity{}, fmt.Errorf("%w: status %d", ErrAuthRejected, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Identity{}, fmt.Errorf("auth status %d: %s", resp.StatusCode, string(body))
	}

	var ar authResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return Identity{}, fmt.Errorf("decode auth response: %w", err)
	}
	if ar.AccessToken == "" {
		return Identity{}, fmt.Errorf("auth response missing access token")
	}

	userID := ar.User.ID
	if userID == "" {
		userID = subjectOf(ar.AccessToken)
	}
	if userID == "" {
		return Identity{}, fmt.Errorf("auth response missing user id")
	}

	return Identity{UserID: userID, Email: strings.TrimSpace(ar.User.Email), AccessToken: ar.AccessToken}, nil
}

// subjectOf extracts the user id from the access token's sub claim. The
// token is issued by the provider we just talked to over TLS; signature
// verification happens provider-side on every data request.
func subjectOf(token string) string {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return ""
	}
	return claims.Subject
}
