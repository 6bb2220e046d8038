package modules

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/harkutabhilash/justpressedinternalapp/pkg/gateway"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/session"
)

// Authenticator runs the backend login action and records the resulting
// user in the session. Credential verification stays on the backend; this
// side only carries the identity for audit columns.
type Authenticator struct {
	caller Caller
	sess   *session.Session
	logger *zap.SugaredLogger
}

// AuthOption customises the authenticator.
type AuthOption func(*Authenticator)

// WithAuthLogger injects a structured logger.
func WithAuthLogger(logger *zap.SugaredLogger) AuthOption {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAuthenticator constructs an authenticator over the gateway and session.
func NewAuthenticator(caller Caller, sess *session.Session, options ...AuthOption) *Authenticator {
	a := &Authenticator{
		caller: caller,
		sess:   sess,
		logger: zap.NewNop().Sugar(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(a)
	}
	return a
}

// Login verifies the credentials through the "login" action and stores the
// returned user record in the session.
func (a *Authenticator) Login(ctx context.Context, username, password string) (session.User, error) {
	raw, err := a.caller.Call(ctx, "login", gateway.Payload{"username": username, "password": password})
	if err != nil {
		return session.User{}, fmt.Errorf("modules: login %q: %w", username, err)
	}

	user, err := decodeUser(raw)
	if err != nil {
		return session.User{}, fmt.Errorf("modules: login %q: %w", username, err)
	}
	if user.Username == "" {
		user.Username = username
	}
	if err := a.sess.Login(user); err != nil {
		return session.User{}, err
	}
	a.logger.Infow("logged in", "username", user.Username, "role", user.Role)
	return user, nil
}

// Logout clears the session and with it every cache namespace.
func (a *Authenticator) Logout() {
	a.sess.Logout()
}

func decodeUser(raw any) (session.User, error) {
	record, ok := raw.(map[string]any)
	if !ok {
		return session.User{}, fmt.Errorf("login response has unknown shape")
	}
	// The backend may nest the record under "data" or "user".
	for _, key := range []string{"data", "user"} {
		if inner, exists := record[key].(map[string]any); exists {
			record = inner
		}
	}
	if status, exists := record["status"]; exists {
		if text, isString := status.(string); isString && text != "ok" && text != "success" {
			return session.User{}, fmt.Errorf("login rejected: %s", text)
		}
	}

	user := session.User{}
	if name, exists := record["username"].(string); exists {
		user.Username = name
	}
	if role, exists := record["role"].(string); exists {
		user.Role = role
	}
	return user, nil
}
