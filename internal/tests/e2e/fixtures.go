package e2e

import (
	"net/http"
	"testing"
)

// Session is a signed-in test user
type Session struct {
	UserID       string
	Phone        string
	AccessToken  string
	RefreshToken string
}

// SignIn runs signup and verify-otp for the phone and returns the session
func (ts *TestServer) SignIn(t *testing.T, phone, name string) *Session {
	t.Helper()

	signup := ts.Do(t, http.MethodPost, "/functions/v1/signup", "", map[string]string{
		"phoneNumber":      phone,
		"displayName":      name,
		"preferredChannel": "sms",
	})
	if signup.Status != http.StatusOK {
		t.Fatalf("signup failed: %d %v", signup.Status, signup.Body)
	}
	code, _ := signup.Body["dev_otp"].(string)

	verify := ts.Do(t, http.MethodPost, "/functions/v1/verify-otp", "", map[string]string{
		"phoneNumber": phone,
		"otp":         code,
	})
	if verify.Status != http.StatusOK {
		t.Fatalf("verify failed: %d %v", verify.Status, verify.Body)
	}

	user, _ := verify.Body["user"].(map[string]interface{})
	return &Session{
		UserID:       user["id"].(string),
		Phone:        user["phone_number"].(string),
		AccessToken:  verify.Body["access_token"].(string),
		RefreshToken: verify.Body["refresh_token"].(string),
	}
}
