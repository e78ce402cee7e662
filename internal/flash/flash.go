package flash

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
)

const sessionName = "flash"

const (
	SettingsReload = "settings_reload"
	SettingsToast  = "settings_toast"
)

// Flags are the flash keys present on the current request.
type Flags map[string]bool

// Store keeps one-shot flags in a signed cookie so they survive the
// redirect after a form post.
type Store struct {
	cookies *sessions.CookieStore
}

func NewStore(secret string, secure bool) *Store {
	key := sha256.Sum256([]byte("flash:" + secret))
	cookies := sessions.NewCookieStore(key[:])
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Store{cookies: cookies}
}

func (s *Store) Add(w http.ResponseWriter, r *http.Request, keys ...string) error {
	session := s.session(r)
	for _, key := range keys {
		session.AddFlash(key)
	}
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("save flash session: %w", err)
	}
	return nil
}

// Pop returns and clears the pending flags.
func (s *Store) Pop(w http.ResponseWriter, r *http.Request) Flags {
	session := s.session(r)
	pending := session.Flashes()
	flags := make(Flags, len(pending))
	if len(pending) == 0 {
		return flags
	}
	for _, v := range pending {
		if key, ok := v.(string); ok {
			flags[key] = true
		}
	}
	if err := session.Save(r, w); err != nil {
		slog.Error("flash: failed to clear flash session", "error", err)
	}
	return flags
}

func (s *Store) session(r *http.Request) *sessions.Session {
	session, err := s.cookies.Get(r, sessionName)
	if err != nil {
		// Tampered or stale cookie; Get still hands back a fresh session.
		slog.Debug("flash: discarding unreadable flash cookie", "error", err)
	}
	return session
}
