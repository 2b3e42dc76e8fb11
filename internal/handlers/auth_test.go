package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"controlling_roaster/internal/service"
)

func TestAuthHandlers(t *testing.T) {
	const creds = `{"username":"roastmaster","password":"s3cret"}`

	cases := []struct {
		name     string
		auth     *mockAuth
		path     string
		body     string
		wantCode int
		wantKey  string
		wantVal  any
	}{
		{"sign-up", &mockAuth{signUpID: 42}, "/auth/sign-up", creds, http.StatusOK, "id", 42.0},
		{"sign-in", &mockAuth{genTokenToken: "tok123"}, "/auth/sign-in", creds, http.StatusOK, "token", "tok123"},
		{"sign-up missing password", &mockAuth{}, "/auth/sign-up", `{"username":"roastmaster"}`, http.StatusBadRequest, "", nil},
		{"sign-in wrong type", &mockAuth{}, "/auth/sign-in", `{"username":1}`, http.StatusBadRequest, "", nil},
		{"sign-up rejected", &mockAuth{signUpErr: service.ErrInvalidUsername}, "/auth/sign-up", creds, http.StatusBadRequest, "error", service.ErrInvalidUsername.Error()},
		{"sign-up duplicate", &mockAuth{signUpErr: fmt.Errorf("%w: %q", service.ErrOperatorExists, "roastmaster")}, "/auth/sign-up", creds, http.StatusConflict, "", nil},
		// the cause of a failed sign-in never reaches the client
		{"sign-in wrong password", &mockAuth{genTokenErr: service.ErrInvalidPassword}, "/auth/sign-in", creds, http.StatusUnauthorized, "error", errInvalidCredentials},
		{"sign-in store down", &mockAuth{genTokenErr: errors.New("database is locked")}, "/auth/sign-in", creds, http.StatusUnauthorized, "error", errInvalidCredentials},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(&service.Service{Authorization: tc.auth})
			w := do(r, http.MethodPost, tc.path, tc.body)
			if w.Code != tc.wantCode {
				t.Fatalf("status=%d; want %d, body=%s", w.Code, tc.wantCode, w.Body.String())
			}
			if tc.wantKey == "" {
				return
			}
			var m map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if m[tc.wantKey] != tc.wantVal {
				t.Fatalf("%s=%v; want %v", tc.wantKey, m[tc.wantKey], tc.wantVal)
			}
		})
	}
}

func TestAuthHandlers_PassCredentialsThrough(t *testing.T) {
	auth := &mockAuth{genTokenToken: "tok"}
	r := newTestRouter(&service.Service{Authorization: auth})

	do(r, http.MethodPost, "/auth/sign-up", `{"username":"roastmaster","password":"one"}`)
	do(r, http.MethodPost, "/auth/sign-in", `{"username":"apprentice","password":"two"}`)

	if auth.lastSignUpUsername != "roastmaster" || auth.lastSignUpPassword != "one" {
		t.Fatalf("sign-up got %q/%q", auth.lastSignUpUsername, auth.lastSignUpPassword)
	}
	if auth.lastGenUsername != "apprentice" || auth.lastGenPassword != "two" {
		t.Fatalf("sign-in got %q/%q", auth.lastGenUsername, auth.lastGenPassword)
	}
}
