package passgate

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// AccessTokenHeader is the response header carrying the session token.
const AccessTokenHeader = "x-access-token"

// Session variable names stored through scs.
const (
	sessionUserIDVar = "loggedInUserID"
	sessionTokenVar  = "authToken"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=4"`
}

// parseCredentials accepts JSON and urlencoded-form bodies.
func parseCredentials(r *http.Request) (*credentialsRequest, *AuthError) {
	var req credentialsRequest
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseForm(); err != nil {
			return nil, NewAuthError(ErrCodeMissingField, "Error parsing form", "")
		}
		req.Email = r.FormValue("email")
		req.Password = r.FormValue("password")
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, NewAuthError(ErrCodeMissingField, "Invalid request body", "")
		}
	}
	return &req, nil
}

// validateCredentials rejects malformed input before anything touches the
// store. Password minimum length is 4, matching the reference behavior.
func validateCredentials(req *credentialsRequest) *AuthError {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return NewAuthError(ErrCodeMissingField, "Email or password is not valid", "")
	}
	fe := fieldErrs[0]
	switch fe.Field() {
	case "Email":
		return NewAuthError(ErrCodeInvalidEmail, "Email is not valid", "email")
	default:
		if fe.Tag() == "min" {
			return NewAuthError(ErrCodeWeakPassword, "Password must be at least 4 characters", "password")
		}
		return NewAuthError(ErrCodeMissingField, "Password cannot be blank", "password")
	}
}

// HandleSignUp processes local registration: POST /signup.
//
// Responds 200 on success, 404 on validation failure or duplicate email and
// 500 on a store failure. The 404-for-auth-failures convention is inherited
// from the reference behavior.
func (g *Gateway) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	req, authErr := parseCredentials(r)
	if authErr == nil {
		authErr = validateCredentials(req)
	}
	if authErr != nil {
		writeAuthError(w, authErr, http.StatusNotFound)
		return
	}

	user, err := g.Engine.SignUp(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			writeAuthError(w, NewAuthError(ErrCodeEmailExists, "User already exists", "email"), http.StatusNotFound)
			return
		}
		slog.Error("signup failed", "err", err)
		writeAuthError(w, NewAuthError(ErrCodeStoreFailure, "Server error", ""), http.StatusInternalServerError)
		return
	}

	g.startSession(w, r, user)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true, "user_id": user.ID})
}

// HandleSignIn processes local authentication: POST /signin.
//
// All authentication failures collapse into one 404 response so the caller
// cannot tell an unknown email from a wrong password.
func (g *Gateway) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	req, authErr := parseCredentials(r)
	if authErr == nil {
		authErr = validateCredentials(req)
	}
	if authErr != nil {
		writeAuthError(w, authErr, http.StatusNotFound)
		return
	}

	user, err := g.Engine.AuthenticateLocal(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrInvalidCredentials) {
			writeAuthError(w, NewAuthError(ErrCodeInvalidCreds, "Invalid email or password", ""), http.StatusNotFound)
			return
		}
		slog.Error("signin failed", "err", err)
		writeAuthError(w, NewAuthError(ErrCodeStoreFailure, "Server error", ""), http.StatusInternalServerError)
		return
	}

	token := g.startSession(w, r, user)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"user_id": user.ID,
		"token":   token,
	})
}

// HandleSignOut destroys the server-side session: GET /signout.
func (g *Gateway) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	if g.Session != nil {
		if err := g.Session.Destroy(r.Context()); err != nil {
			slog.Warn("error destroying session", "err", err)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

func writeAuthError(w http.ResponseWriter, authErr *AuthError, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(authErr)
}
