package flash

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAddThenPop(t *testing.T) {
	store := NewStore("test-secret", false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/playerSettings", nil)
	if err := store.Add(rec, req, SettingsReload, SettingsToast); err != nil {
		t.Fatalf("add flashes: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a flash cookie")
	}

	next := httptest.NewRequest(http.MethodGet, "/playerSettings", nil)
	for _, c := range cookies {
		next.AddCookie(c)
	}
	popRec := httptest.NewRecorder()
	flags := store.Pop(popRec, next)

	if !flags[SettingsReload] || !flags[SettingsToast] {
		t.Errorf("expected both flags, got %v", flags)
	}

	// The cleared session must not replay the flags.
	again := httptest.NewRequest(http.MethodGet, "/playerSettings", nil)
	for _, c := range popRec.Result().Cookies() {
		again.AddCookie(c)
	}
	if flags := store.Pop(httptest.NewRecorder(), again); len(flags) != 0 {
		t.Errorf("expected flags to be consumed, got %v", flags)
	}
}

func TestPop_NoCookie(t *testing.T) {
	store := NewStore("test-secret", false)

	flags := store.Pop(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/playerSettings", nil))
	if len(flags) != 0 {
		t.Errorf("expected no flags, got %v", flags)
	}
}

func TestPop_ForeignSecretIgnored(t *testing.T) {
	writer := NewStore("secret-one", false)
	reader := NewStore("secret-two", false)

	rec := httptest.NewRecorder()
	if err := writer.Add(rec, httptest.NewRequest(http.MethodPost, "/", nil), SettingsToast); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	if flags := reader.Pop(httptest.NewRecorder(), req); len(flags) != 0 {
		t.Errorf("expected forged flags to be ignored, got %v", flags)
	}
}

func TestNewStore_SecureCookie(t *testing.T) {
	store := NewStore("test-secret", true)

	rec := httptest.NewRecorder()
	if err := store.Add(rec, httptest.NewRequest(http.MethodPost, "/", nil), SettingsToast); err != nil {
		t.Fatal(err)
	}
	for _, c := range rec.Result().Cookies() {
		if !c.Secure || !c.HttpOnly {
			t.Errorf("expected secure http-only cookie, got %+v", c)
		}
	}
}
