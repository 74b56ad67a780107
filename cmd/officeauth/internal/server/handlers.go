package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"strings"
	"time"

	officeauth "github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002"
	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/middleware"
	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/password"
	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/userstore"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 16

var errInvalidCredentials = errors.New("invalid credentials")

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type userResponse struct {
	User *userstore.User `json:"user"`
}

type tokenResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	User      *userstore.User `json:"user"`
}

/*
register creates a CLIENT account awaiting approval.

POST /api/auth/register

  - 201: the created user
  - 400: malformed body, bad email or password
  - 409: email already registered
*/
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decodeJSON(r, &in); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := validateRegistration(in); msg != "" {
		middleware.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooShort) || errors.Is(err, password.ErrPasswordTooLong) {
			middleware.WriteError(w, http.StatusBadRequest, "Password does not meet length requirements")
			return
		}
		s.internalError(w, r, "hash password", err)
		return
	}

	u := &userstore.User{
		Email:        in.Email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		Role:         officeauth.RoleClient,
		Status:       userstore.StatusPending,
	}
	if err := s.users.Create(r.Context(), u); err != nil {
		switch {
		case errors.Is(err, userstore.ErrDuplicateEmail):
			middleware.WriteError(w, http.StatusConflict, "Email already registered")
		case errors.Is(err, userstore.ErrInvalidUser):
			middleware.WriteError(w, http.StatusBadRequest, "Invalid registration")
		default:
			s.internalError(w, r, "create user", err)
		}
		return
	}

	s.logger.Info("client registered", zap.String("user_id", u.ID))
	middleware.WriteJSON(w, http.StatusCreated, userResponse{User: u})
}

/*
login starts a web session.

POST /api/auth/login

  - 200: the user, with the session cookie set
  - 401: unknown email or wrong password
  - 403: account pending or suspended
*/
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	u, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	cookie, err := s.engine.StartSession(r.Context(), u.Identity(), officeauth.NewRequestContext(r).ClientIP())
	if err != nil {
		s.internalError(w, r, "start session", err)
		return
	}

	http.SetCookie(w, cookie)
	middleware.WriteJSON(w, http.StatusOK, userResponse{User: u})
}

/*
mobileLogin issues a bearer token for the mobile app.

POST /api/auth/mobile/login

  - 200: {token, expiresAt, user}
  - 401 / 403: as for login
  - 503: no signing secret configured
*/
func (s *Server) mobileLogin(w http.ResponseWriter, r *http.Request) {
	u, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	token, expiresAt, err := s.engine.IssueToken(r.Context(), u.Identity())
	if err != nil {
		if errors.Is(err, officeauth.ErrTokenIssueFailed) && !s.engine.TokensConfigured() {
			middleware.WriteError(w, http.StatusServiceUnavailable, "Token login is not available")
			return
		}
		s.internalError(w, r, "issue token", err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, tokenResponse{Token: token, ExpiresAt: expiresAt, User: u})
}

/*
logout revokes the current session and clears the cookie. It always succeeds
from the client's point of view.

POST /api/auth/logout
*/
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := s.engine.EndSession(r.Context(), officeauth.NewRequestContext(r))
	if err != nil {
		s.logger.Warn("session revoke failed", zap.String("request_id", middleware.RequestIDFromContext(r.Context())), zap.Error(err))
	}
	if cookie != nil {
		http.SetCookie(w, cookie)
	}
	w.WriteHeader(http.StatusNoContent)
}

// me returns the identity resolved for the request.
func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	id, _ := officeauth.IdentityFromContext(r.Context())
	middleware.WriteJSON(w, http.StatusOK, map[string]*officeauth.Identity{"user": id})
}

func (s *Server) listClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.users.ListByRole(r.Context(), officeauth.RoleClient)
	if err != nil {
		s.internalError(w, r, "list clients", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string][]*userstore.User{"clients": clients})
}

/*
updateClientStatus approves or suspends a client. Suspension also revokes
every live session of the account.

PATCH /api/admin/clients/{id}/status

  - 200: the updated user
  - 400: unknown status
  - 404: no such client
*/
func (s *Server) updateClientStatus(w http.ResponseWriter, r *http.Request) {
	var in statusRequest
	if err := decodeJSON(r, &in); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	status := userstore.Status(strings.ToUpper(strings.TrimSpace(in.Status)))
	if !status.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "Unknown status")
		return
	}

	id := chi.URLParam(r, "id")
	current, err := s.users.FindByID(r.Context(), id)
	if err != nil || current.Role != officeauth.RoleClient {
		if err == nil || errors.Is(err, userstore.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Client not found")
			return
		}
		s.internalError(w, r, "find client", err)
		return
	}

	updated, err := s.users.UpdateStatus(r.Context(), id, status)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Client not found")
			return
		}
		s.internalError(w, r, "update status", err)
		return
	}

	// Suspension ends web sessions at once. Bearer tokens are stateless and
	// stay valid until they expire (AUTH_TOKEN_TTL); only new logins are
	// refused. Lower AUTH_TOKEN_TTL when a shorter window matters.
	if status == userstore.StatusSuspended {
		if _, err := s.engine.RevokeUserSessions(r.Context(), id); err != nil {
			s.logger.Warn("revoke sessions after suspension failed", zap.String("user_id", id), zap.Error(err))
		}
	}

	actor, _ := officeauth.IdentityFromContext(r.Context())
	s.logger.Info("client status changed",
		zap.String("user_id", id),
		zap.String("status", string(status)),
		zap.String("actor_id", actor.ID),
	)
	middleware.WriteJSON(w, http.StatusOK, userResponse{User: updated})
}

// authenticate checks the login body against the store and writes the
// failure response itself.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (*userstore.User, bool) {
	var in loginRequest
	if err := decodeJSON(r, &in); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Email and password are required")
		return nil, false
	}

	u, err := s.checkCredentials(r.Context(), in.Email, in.Password)
	switch {
	case errors.Is(err, errInvalidCredentials):
		middleware.WriteError(w, http.StatusUnauthorized, "Invalid email or password")
		return nil, false
	case err != nil:
		s.internalError(w, r, "check credentials", err)
		return nil, false
	}

	if !u.CanLogin() {
		middleware.WriteError(w, http.StatusForbidden, accountStateMessage(u.Status))
		return nil, false
	}
	return u, true
}

func (s *Server) checkCredentials(ctx context.Context, email, plain string) (*userstore.User, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	ok, err := s.hasher.Verify(plain, u.PasswordHash)
	if err != nil {
		s.logger.Warn("stored password hash unusable", zap.String("user_id", u.ID), zap.Error(err))
		return nil, errInvalidCredentials
	}
	if !ok {
		return nil, errInvalidCredentials
	}

	if upgrade, _ := s.hasher.NeedsUpgrade(u.PasswordHash); upgrade {
		s.rehash(ctx, u, plain)
	}
	return u, nil
}

func (s *Server) rehash(ctx context.Context, u *userstore.User, plain string) {
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		s.logger.Warn("password rehash failed", zap.String("user_id", u.ID), zap.Error(err))
		return
	}
	if err := s.users.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		s.logger.Warn("password rehash not stored", zap.String("user_id", u.ID), zap.Error(err))
		return
	}
	u.PasswordHash = hash
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.logger.Error(op+" failed",
		zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
		zap.Error(err),
	)
	middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
}

func accountStateMessage(status userstore.Status) string {
	switch status {
	case userstore.StatusPending:
		return "Account is awaiting approval"
	case userstore.StatusSuspended:
		return "Account is suspended"
	default:
		return "Account cannot log in"
	}
}

func validateRegistration(in registerRequest) string {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return "Email and password are required"
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "Invalid email address"
	}
	if len(in.Password) < password.MinLength {
		return fmt.Sprintf("Password must be at least %d characters", password.MinLength)
	}
	return ""
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected trailing data")
	}
	return nil
}
