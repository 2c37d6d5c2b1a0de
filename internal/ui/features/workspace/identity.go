package workspace

import (
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/shaped-ai/playground/internal/workspace"
)

// Cookie names for the assumed-identity markers.
const (
	// SessionCookie lives for the browser session only.
	SessionCookie = "playground-session"
	// IdentityCookie outlives the browser session.
	IdentityCookie = "playground-identity"

	identityKey = "identity"
)

// identityFromRequest reads both markers. Unreadable cookies count as absent.
func identityFromRequest(store sessions.Store, r *http.Request) workspace.StaticIdentity {
	return workspace.StaticIdentity{
		Session:    readMarker(store, r, SessionCookie),
		Persistent: readMarker(store, r, IdentityCookie),
	}
}

func readMarker(store sessions.Store, r *http.Request, name string) string {
	session, err := store.Get(r, name)
	if err != nil {
		return ""
	}
	marker, _ := session.Values[identityKey].(string)
	return strings.TrimSpace(marker)
}

// writeIdentity stores identity in the session marker and, when persist is
// set, in the long-lived marker too. An empty identity clears both.
func writeIdentity(store sessions.Store, w http.ResponseWriter, r *http.Request, identity string, persist bool) error {
	identity = strings.TrimSpace(identity)

	session, _ := store.Get(r, SessionCookie)
	if identity == "" {
		session.Options.MaxAge = -1
	} else {
		session.Options.MaxAge = 0
		session.Values[identityKey] = identity
	}
	if err := session.Save(r, w); err != nil {
		return err
	}

	if identity != "" && !persist {
		return nil
	}
	persistent, _ := store.Get(r, IdentityCookie)
	if identity == "" {
		persistent.Options.MaxAge = -1
	} else {
		persistent.Values[identityKey] = identity
	}
	return persistent.Save(r, w)
}
