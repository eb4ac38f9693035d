package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/pkg/accountsdk"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
)

// AuthHandler serves the self-service account endpoints under /api/auth.
type AuthHandler struct {
	Accounts *service.AccountService
	Now      func() time.Time
}

func (h *AuthHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// HandleRegister handles POST /api/auth/register
//
//	@Summary		Register
//	@Description	Creates an unverified account and emails a verification link. No session is issued.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		accountsdk.RegisterRequest	true	"Registration details"
//	@Success		201		{object}	accountsdk.RegisterResponse	"email, message"
//	@Failure		400		{object}	accountsdk.ErrorResponse	"Validation failed"
//	@Failure		409		{object}	accountsdk.ErrorResponse	"Email already registered"
//	@Failure		500		{object}	accountsdk.ErrorResponse
//	@Router			/api/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req accountsdk.RegisterRequest
	if !decodeBody(w, r, &req) || !validate(w, r, req.Validate()) {
		return
	}

	result, err := h.Accounts.Register(r.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, accountsdk.RegisterResponse{
		Email:   result.Email,
		Message: result.Message,
	})
}

// HandleVerifyEmail handles GET /api/auth/verify-email
//
//	@Summary		Verify Email
//	@Description	Redeems the token from a verification link and marks the account's email as verified.
//	@Tags			Auth
//	@Produce		json
//	@Param			token	query		string						true	"Verification token"
//	@Success		200		{object}	accountsdk.MessageResponse	"message"
//	@Failure		400		{object}	accountsdk.ErrorResponse	"Invalid, expired or used token"
//	@Failure		500		{object}	accountsdk.ErrorResponse
//	@Router			/api/auth/verify-email [get].
func (h *AuthHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if strings.TrimSpace(token) == "" {
		httpx.WriteValidationError(w, r, map[string]string{"token": "Token is required"})
		return
	}

	msg, err := h.Accounts.ConfirmEmail(r.Context(), token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, accountsdk.MessageResponse{Message: msg})
}

// HandleLogin handles POST /api/auth/login
//
//	@Summary		Login
//	@Description	Checks a password. Accounts without MFA get a session token. Accounts with MFA get
//	@Description	{mfaRequired: true, message} and a code by email; finish with /api/auth/verify-mfa.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		accountsdk.LoginRequest			true	"Credentials"
//	@Success		200		{object}	accountsdk.AuthResponse			"Session issued"
//	@Success		200		{object}	accountsdk.MFAPendingResponse	"MFA code sent"
//	@Failure		400		{object}	accountsdk.ErrorResponse		"Validation failed"
//	@Failure		401		{object}	accountsdk.ErrorResponse		"Invalid Email or Password"
//	@Failure		417		{object}	accountsdk.ErrorResponse		"Email needs to be verified before logging in"
//	@Failure		500		{object}	accountsdk.ErrorResponse
//	@Router			/api/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req accountsdk.LoginRequest
	if !decodeBody(w, r, &req) || !validate(w, r, req.Validate()) {
		return
	}

	result, err := h.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	switch result.Outcome {
	case domain.LoginMFARequired:
		httpx.WriteJSON(w, http.StatusOK, accountsdk.MFAPendingResponse{
			MFARequired: true,
			Message:     result.Message,
		})
	default:
		httpx.WriteJSON(w, http.StatusOK, toAuthResponse(result.Session, h.now()))
	}
}

// HandleVerifyMFA handles POST /api/auth/verify-mfa
//
//	@Summary		Verify MFA Code
//	@Description	Exchanges the emailed one-time code for a session token.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		accountsdk.VerifyMFARequest	true	"Email and code"
//	@Success		200		{object}	accountsdk.AuthResponse		"Session issued"
//	@Failure		400		{object}	accountsdk.ErrorResponse	"Validation failed"
//	@Failure		401		{object}	accountsdk.ErrorResponse	"Invalid or expired MFA code"
//	@Failure		500		{object}	accountsdk.ErrorResponse
//	@Router			/api/auth/verify-mfa [post].
func (h *AuthHandler) HandleVerifyMFA(w http.ResponseWriter, r *http.Request) {
	var req accountsdk.VerifyMFARequest
	if !decodeBody(w, r, &req) || !validate(w, r, req.Validate()) {
		return
	}

	session, err := h.Accounts.VerifyMFA(r.Context(), req.Email, strings.TrimSpace(req.Code))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAuthResponse(session, h.now()))
}

// HandleForgotPassword handles POST /api/auth/forgot-password
//
//	@Summary		Forgot Password
//	@Description	Emails a password reset link if an account exists. The response is identical either way.
//	@Tags			Auth
//	@Produce		json
//	@Param			email	query		string						true	"Account email"
//	@Success		200		{object}	accountsdk.MessageResponse	"message"
//	@Failure		400		{object}	accountsdk.ErrorResponse	"Validation failed"
//	@Failure		500		{object}	accountsdk.ErrorResponse
//	@Router			/api/auth/forgot-password [post].
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	req := accountsdk.ForgotPasswordRequest{Email: r.FormValue("email")}
	if !validate(w, r, req.Validate()) {
		return
	}

	msg, err := h.Accounts.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, accountsdk.MessageResponse{Message: msg})
}

// HandleResetPassword handles POST /api/auth/reset-password
//
//	@Summary		Reset Password
//	@Description	Redeems a password reset token and sets a new password. Does not log the user in.
//	@Tags			Auth
//	@Produce		json
//	@Param			token		query		string						true	"Password reset token"
//	@Param			newPassword	query		string						true	"New password"
//	@Success		200			{object}	accountsdk.MessageResponse	"message"
//	@Failure		400			{object}	accountsdk.ErrorResponse	"Invalid, expired or used token"
//	@Failure		500			{object}	accountsdk.ErrorResponse
//	@Router			/api/auth/reset-password [post].
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	req := accountsdk.ResetPasswordRequest{
		Token:       r.FormValue("token"),
		NewPassword: r.FormValue("newPassword"),
	}
	if !validate(w, r, req.Validate()) {
		return
	}

	msg, err := h.Accounts.ResetPassword(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, accountsdk.MessageResponse{Message: msg})
}

// HandleMe handles GET /api/auth/me
//
//	@Summary		Current User
//	@Description	Returns the account behind the session token.
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	accountsdk.UserResponse
//	@Failure		401	{object}	accountsdk.ErrorResponse	"Missing or invalid session token"
//	@Failure		404	{object}	accountsdk.ErrorResponse	"Account no longer exists"
//	@Router			/api/auth/me [get].
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	email, ok := httpx.SubjectFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, http.StatusUnauthorized, "Full authentication is required to access this resource")
		return
	}

	user, err := h.Accounts.CurrentUser(r.Context(), email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}
