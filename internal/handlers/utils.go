// internal/handlers/utils.go
package handlers

import "net/http"

// sessionCookieName is the cookie the browser client stores its
// session-scoped JWT under.
const sessionCookieName = "session_token"

// sessionToken pulls the session JWT from a request: the token query
// parameter wins, then the session cookie. Empty when neither is set.
func sessionToken(r *http.Request) string {
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok
	}
	if c, err := r.Cookie(sessionCookieName); err == nil {
		return c.Value
	}
	return ""
}
