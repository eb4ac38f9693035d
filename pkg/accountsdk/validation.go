package accountsdk

import (
	"net/mail"
	"strings"
)

const (
	minPasswordLength = 8
	maxNameLength     = 50
)

// Validate checks the registration fields. Returns a map of field names to
// error messages, or nil if all fields are valid.
func (r RegisterRequest) Validate() map[string]string {
	errs := make(map[string]string)
	validateEmail(errs, r.Email)
	required(errs, "password", "Password is required", r.Password)
	required(errs, "firstName", "First name is required", r.FirstName)
	required(errs, "lastName", "Last name is required", r.LastName)
	return nilIfEmpty(errs)
}

func (r LoginRequest) Validate() map[string]string {
	errs := make(map[string]string)
	validateEmail(errs, r.Email)
	required(errs, "password", "Password is required", r.Password)
	return nilIfEmpty(errs)
}

func (r VerifyMFARequest) Validate() map[string]string {
	errs := make(map[string]string)
	validateEmail(errs, r.Email)
	required(errs, "code", "Code is required", r.Code)
	return nilIfEmpty(errs)
}

func (r ForgotPasswordRequest) Validate() map[string]string {
	errs := make(map[string]string)
	validateEmail(errs, r.Email)
	return nilIfEmpty(errs)
}

func (r ResetPasswordRequest) Validate() map[string]string {
	errs := make(map[string]string)
	required(errs, "token", "Token is required", r.Token)
	required(errs, "newPassword", "Password is required", r.NewPassword)
	return nilIfEmpty(errs)
}

// Validate applies the administrative rules, which are stricter than
// self-registration: passwords need 8 characters and names are capped.
func (r CreateUserRequest) Validate() map[string]string {
	errs := make(map[string]string)
	validateEmail(errs, r.Email)
	validatePassword(errs, r.Password)
	if required(errs, "firstName", "First name is required", r.FirstName) {
		maxLength(errs, "firstName", "First name", r.FirstName)
	}
	if required(errs, "lastName", "Last name is required", r.LastName) {
		maxLength(errs, "lastName", "Last name", r.LastName)
	}
	return nilIfEmpty(errs)
}

// Validate checks only the fields that are present.
func (r UpdateUserRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.Email != nil && !isEmail(*r.Email) {
		errs["email"] = "Must be a valid Email"
	}
	if r.Password != nil && len(*r.Password) < minPasswordLength {
		errs["password"] = "Password must be at least 8 characters"
	}
	if r.FirstName != nil {
		maxLength(errs, "firstName", "First name", *r.FirstName)
	}
	if r.LastName != nil {
		maxLength(errs, "lastName", "Last name", *r.LastName)
	}
	return nilIfEmpty(errs)
}

func validateEmail(errs map[string]string, email string) {
	switch {
	case strings.TrimSpace(email) == "":
		errs["email"] = "Email is required"
	case !isEmail(email):
		errs["email"] = "Must be a valid Email"
	}
}

func validatePassword(errs map[string]string, pw string) {
	switch {
	case strings.TrimSpace(pw) == "":
		errs["password"] = "Password is required"
	case len(pw) < minPasswordLength:
		errs["password"] = "Password must be at least 8 characters"
	}
}

// required records msg when v is blank and reports whether v was present.
func required(errs map[string]string, field, msg, v string) bool {
	if strings.TrimSpace(v) == "" {
		errs[field] = msg
		return false
	}
	return true
}

func maxLength(errs map[string]string, field, label, v string) {
	if len([]rune(v)) > maxNameLength {
		errs[field] = label + " must not exceed 50 characters"
	}
}

// isEmail accepts a bare address only; display names and angle brackets
// are rejected.
func isEmail(v string) bool {
	addr, err := mail.ParseAddress(v)
	return err == nil && addr.Address == v
}

func nilIfEmpty(errs map[string]string) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	return errs
}
