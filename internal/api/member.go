// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/kkamji/weasel-tui/internal/attach"
)

// Backend result codes for login and registration.
const (
	ResultOK             = 1
	ResultBadCredentials = -1
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateCredentials performs the client-side checks done before any
// login or registration request.
func ValidateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return ErrMissingCredentials
	}
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// checkResult maps a result envelope to an error. A missing result code on
// a 2xx response counts as success.
func checkResult(op string, r resultResponse) error {
	if r.ResultCode == nil || *r.ResultCode == ResultOK {
		return nil
	}
	if *r.ResultCode == ResultBadCredentials {
		return ErrBadCredentials
	}
	return &ResultError{Op: op, Code: *r.ResultCode, Message: r.Msg}
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

// Login signs in. On success the session cookie is stored in the jar.
func (c *Client) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if err := ValidateCredentials(email, password); err != nil {
		return err
	}

	var r resultResponse
	if err := c.postJSON(ctx, "login", "/login", Credentials{Email: email, Password: password}, &r); err != nil {
		// Some backends answer bad credentials with 401 instead of a result code
		if IsAuthError(err) {
			return ErrBadCredentials
		}
		return err
	}
	return checkResult("login", r)
}

// Register creates an account. photo may be nil.
func (c *Client) Register(ctx context.Context, email, password string, photo *attach.Image) error {
	email = strings.TrimSpace(email)
	if err := ValidateCredentials(email, password); err != nil {
		return err
	}

	form := newForm()
	form.jsonField("memberDTOstr", Credentials{Email: email, Password: password})
	form.image("file", photo)

	var r resultResponse
	if err := c.sendForm(ctx, "register", http.MethodPost, c.endpoint("/member/join", nil), form, &r); err != nil {
		return err
	}
	return checkResult("register", r)
}

// Logout ends the session on the backend.
func (c *Client) Logout(ctx context.Context) error {
	return c.get(ctx, "logout", "/logout", nil)
}

// =============================================================================
// PROFILE
// =============================================================================

// ViewProfile fetches the signed-in member.
func (c *Client) ViewProfile(ctx context.Context) (*Profile, error) {
	var r profileResponse
	if err := c.get(ctx, "view profile", "/member/view", &r); err != nil {
		return nil, err
	}
	photo := r.PhotoURL
	if photo == "" {
		photo = r.ProfilePhoto
	}
	return &Profile{
		ID:       string(r.ID),
		Email:    r.Email,
		PhotoURL: c.ResolveImage(photo),
	}, nil
}

// ProfileUpdate holds the optional changes of a profile update.
type ProfileUpdate struct {
	Password string
	Photo    *attach.Image
}

// UpdateProfile changes the password and/or photo and returns the new photo
// URL (empty when the photo was not changed).
func (c *Client) UpdateProfile(ctx context.Context, u ProfileUpdate) (string, error) {
	if u.Password == "" && u.Photo == nil {
		return "", ErrNothingToUpdate
	}

	form := newForm()
	form.image("profilePhoto", u.Photo)
	if u.Password != "" {
		form.jsonField("updatedMemberDTOstr", passwordDTO{Password: u.Password})
	}

	var r updateProfileResponse
	if err := c.sendForm(ctx, "update profile", http.MethodPatch, c.endpoint("/member/update", nil), form, &r); err != nil {
		return "", err
	}
	return c.ResolveImage(r.PhotoURL), nil
}
