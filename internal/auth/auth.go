// Package auth verifies Firebase ID tokens on incoming requests and carries
// the caller's uid in the request context.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// TokenVerifier verifies an ID token. *firebaseauth.Client implements it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

type ctxKey struct{}

// NewClient creates a Firebase auth client for projectID. An empty
// credentialsFile uses Application Default Credentials.
func NewClient(ctx context.Context, projectID, credentialsFile string) (*firebaseauth.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app init failed: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth init failed: %w", err)
	}
	return client, nil
}

// WithUserID returns a context carrying uid.
func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, ctxKey{}, uid)
}

// UserID returns the authenticated uid, if any.
func UserID(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(ctxKey{}).(string)
	if !ok || uid == "" {
		return "", false
	}
	return uid, true
}

// Middleware verifies the bearer token of every request and rejects the
// request with 401 when it is missing or invalid.
func Middleware(verifier TokenVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "unauthorized: missing bearer token", http.StatusUnauthorized)
				return
			}
			idToken := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if idToken == "" {
				http.Error(w, "unauthorized: empty bearer token", http.StatusUnauthorized)
				return
			}

			token, err := verifier.VerifyIDToken(r.Context(), idToken)
			if err != nil {
				logger.Debug("token rejected", zap.Error(err))
				http.Error(w, "unauthorized: invalid token", http.StatusUnauthorized)
				return
			}
			uid := strings.TrimSpace(token.UID)
			if uid == "" {
				http.Error(w, "unauthorized: invalid uid in token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
		})
	}
}

// Header trusts the X-User-ID header. It is meant for local development
// when token verification is disabled.
func Header(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := strings.TrimSpace(r.Header.Get("X-User-ID"))
		if uid == "" {
			http.Error(w, "unauthorized: missing X-User-ID", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
	})
}
