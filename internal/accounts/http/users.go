package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/pkg/accountsdk"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
)

// UsersHandler handles the administrative /api/users endpoints. Every route
// is behind AuthnMiddleware and RequireRole(ADMIN).
type UsersHandler struct {
	Users *service.UserService
}

// HandleList handles GET /api/users
//
//	@Summary		List Users
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}		accountsdk.UserResponse
//	@Failure		401	{object}	accountsdk.ErrorResponse
//	@Failure		403	{object}	accountsdk.ErrorResponse	"Access denied"
//	@Router			/api/users [get].
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]accountsdk.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /api/users/{id}
//
//	@Summary		Get User
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		int	true	"User ID"
//	@Success		200	{object}	accountsdk.UserResponse
//	@Failure		401	{object}	accountsdk.ErrorResponse
//	@Failure		403	{object}	accountsdk.ErrorResponse
//	@Failure		404	{object}	accountsdk.ErrorResponse	"User not found"
//	@Router			/api/users/{id} [get].
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	user, err := h.Users.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// HandleCreate handles POST /api/users
//
//	@Summary		Create User
//	@Description	Creates an unverified USER account and emails it a verification link.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		accountsdk.CreateUserRequest	true	"New account"
//	@Success		201		{object}	accountsdk.UserResponse
//	@Failure		400		{object}	accountsdk.ErrorResponse	"Validation failed"
//	@Failure		401		{object}	accountsdk.ErrorResponse
//	@Failure		403		{object}	accountsdk.ErrorResponse
//	@Failure		409		{object}	accountsdk.ErrorResponse	"Email already registered"
//	@Router			/api/users [post].
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req accountsdk.CreateUserRequest
	if !decodeBody(w, r, &req) || !validate(w, r, req.Validate()) {
		return
	}

	user, err := h.Users.Create(r.Context(), service.CreateUserInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

// HandleUpdate handles PUT /api/users/{id}
//
//	@Summary		Update User
//	@Description	Partial update; omitted fields are left unchanged.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		int								true	"User ID"
//	@Param			request	body		accountsdk.UpdateUserRequest	true	"Fields to change"
//	@Success		200		{object}	accountsdk.UserResponse
//	@Failure		400		{object}	accountsdk.ErrorResponse	"Validation failed"
//	@Failure		404		{object}	accountsdk.ErrorResponse	"User not found"
//	@Failure		409		{object}	accountsdk.ErrorResponse	"Email already registered"
//	@Router			/api/users/{id} [put].
func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	var req accountsdk.UpdateUserRequest
	if !decodeBody(w, r, &req) || !validate(w, r, req.Validate()) {
		return
	}

	user, err := h.Users.Update(r.Context(), id, service.UpdateUserInput{
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		MFAEnabled: req.MFAEnabled,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// HandleDelete handles DELETE /api/users/{id}
//
//	@Summary		Delete User
//	@Tags			Users
//	@Security		BearerAuth
//	@Param			id	path	int	true	"User ID"
//	@Success		204
//	@Failure		404	{object}	accountsdk.ErrorResponse	"User not found"
//	@Router			/api/users/{id} [delete].
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	if err := h.Users.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteValidationError(w, r, map[string]string{"id": "must be a positive integer"})
		return 0, false
	}
	return id, true
}
