package auth

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/libresonic/playersettings/internal/httputil"
)

var loginPageTemplate = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>Sign in</title>
    <style nonce="{{.Nonce}}">
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; background: #f4f4f4; }
        form { max-width: 320px; margin: 4rem auto; padding: 2rem; background: #fff; border-radius: 6px; }
        label, input { display: block; width: 100%; margin-bottom: 0.75rem; }
        .error { color: #b00020; }
    </style>
</head>
<body>
<form method="post" action="/api/auth/login">
    {{if .Failed}}<p class="error">Wrong username or password.</p>{{end}}
    <label for="username">Username</label>
    <input id="username" name="username" autocomplete="username" required>
    <label for="password">Password</label>
    <input id="password" name="password" type="password" autocomplete="current-password" required>
    <button type="submit">Sign in</button>
</form>
</body>
</html>`))

type loginPageData struct {
	Nonce  string
	Failed bool
}

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := loginPageTemplate.Execute(w, loginPageData{
		Nonce:  httputil.NonceFromContext(r.Context()),
		Failed: r.URL.Query().Get("error") != "",
	}); err != nil {
		slog.Error("auth: failed to render login page", "error", err)
	}
}
