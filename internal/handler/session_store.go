package handler

import (
	"github.com/gorilla/sessions"
)

// sessionName is the cookie that carries the signed-in user's id.
const sessionName = "gothic_session"

// NewSessionStore builds the cookie store backing login sessions. Sessions
// last 30 days; Secure is left off so local HTTP callbacks work.
func NewSessionStore(secret []byte) *sessions.CookieStore {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
	}
	return store
}
