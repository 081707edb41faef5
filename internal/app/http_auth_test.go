package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeJSON(t, rec)
	code, _ := body["code"].(string)
	if code == "" {
		t.Fatalf("response has no error code: %q", rec.Body.String())
	}
	return code
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", sessionCookieName)
	return nil
}

func TestRegisterSetsSessionCookie(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/auth/register",
		`{"name":"Asha","email":"asha@example.com","password":"password123"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}

	cookie := sessionCookie(t, rec)
	if cookie.Value == "" || !cookie.HttpOnly {
		t.Fatalf("session cookie not set correctly: %+v", cookie)
	}

	body := decodeJSON(t, rec)
	user, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("register response has no user: %s", rec.Body.String())
	}
	if user["anonymousName"] == "" {
		t.Fatal("registered user has no anonymous name")
	}
	if _, leaked := user["password"]; leaked {
		t.Fatal("password leaked in register response")
	}

	// The cookie must open a session.
	session, err := env.service.SessionFromToken(context.Background(), cookie.Value)
	if err != nil {
		t.Fatalf("session from cookie: %v", err)
	}
	if session.Name != "Asha" {
		t.Fatalf("session name = %q, want Asha", session.Name)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Asha", "asha@example.com", "user", "")

	rec := env.request(t, http.MethodPost, "/api/auth/register",
		`{"name":"Other","email":"asha@example.com","password":"password123"}`, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if code := errorCode(t, rec); code != "EMAIL_EXISTS" {
		t.Fatalf("code = %q, want EMAIL_EXISTS", code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Asha", "asha@example.com", "user", "")

	rec := env.request(t, http.MethodPost, "/api/auth/login",
		`{"email":"asha@example.com","password":"wrong-password"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if code := errorCode(t, rec); code != "INVALID_CREDENTIALS" {
		t.Fatalf("code = %q, want INVALID_CREDENTIALS", code)
	}
}

func TestLoginThenProfile(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Asha", "asha@example.com", "user", "")

	rec := env.request(t, http.MethodPost, "/api/auth/login",
		`{"email":"asha@example.com","password":"password123"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	cookie := sessionCookie(t, rec)

	req := httptest.NewRequest(http.MethodGet, "/api/users/profile", nil)
	req.AddCookie(cookie)
	out := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(out, req)
	if out.Code != http.StatusOK {
		t.Fatalf("profile status = %d, body %s", out.Code, out.Body.String())
	}
	body := decodeJSON(t, out)
	user := body["user"].(map[string]any)
	if user["email"] != "asha@example.com" {
		t.Fatalf("profile email = %v", user["email"])
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "Asha", "asha@example.com", "user", "")
	session := env.sessionFor(t, user)

	rec := env.request(t, http.MethodPost, "/api/auth/logout", "", &session)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}
	cookie := sessionCookie(t, rec)
	if cookie.MaxAge >= 0 {
		t.Fatalf("logout should clear the cookie, got MaxAge %d", cookie.MaxAge)
	}

	// The old token is dead even though it has not expired.
	after := env.request(t, http.MethodGet, "/api/users/profile", "", &session)
	if after.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token status = %d, want 401", after.Code)
	}
}

func TestBlockedUserRejected(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "Asha", "asha@example.com", "user", "")
	session := env.sessionFor(t, user)

	if err := env.store.SetUserBlocked(context.Background(), user.ID, true); err != nil {
		t.Fatalf("block user: %v", err)
	}

	rec := env.request(t, http.MethodGet, "/api/users/profile", "", &session)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if code := errorCode(t, rec); code != "USER_BLOCKED" {
		t.Fatalf("code = %q, want USER_BLOCKED", code)
	}
}

func TestMissingSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/api/users/profile", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestGarbageToken(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/users/profile", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "not.a.token"})
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
