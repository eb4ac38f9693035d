package accountsdk

import (
	"context"
	"net/http"
	"strconv"
)

// Administrative operations. The service answers 403 unless the session
// belongs to an ADMIN account.

// ListUsers returns every account.
func (s *Session) ListUsers(ctx context.Context) ([]UserResponse, error) {
	resp, err := s.client.doRequest(ctx, http.MethodGet, "/api/users", s.accessToken, nil)
	if err != nil {
		return nil, err
	}

	var users []UserResponse
	if err := decodeJSON(resp, &users, http.StatusOK); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Session) GetUser(ctx context.Context, id int64) (*UserResponse, error) {
	resp, err := s.client.doRequest(ctx, http.MethodGet, userPath(id), s.accessToken, nil)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser adds an account. Like self-registration it starts unverified
// and the user is emailed a verification link.
func (s *Session) CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	resp, err := s.client.doRequest(ctx, http.MethodPost, "/api/users", s.accessToken, req)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusCreated); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Session) UpdateUser(ctx context.Context, id int64, req UpdateUserRequest) (*UserResponse, error) {
	resp, err := s.client.doRequest(ctx, http.MethodPut, userPath(id), s.accessToken, req)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Session) DeleteUser(ctx context.Context, id int64) error {
	resp, err := s.client.doRequest(ctx, http.MethodDelete, userPath(id), s.accessToken, nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

func userPath(id int64) string {
	return "/api/users/" + strconv.FormatInt(id, 10)
}
