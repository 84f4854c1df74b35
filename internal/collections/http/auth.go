package collectionshttp

import (
	"crypto/subtle"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// BasicAuth guards mutating routes with a single operator account. A zero
// hash disables the guard.
type BasicAuth struct {
	User  string
	Hash  []byte
	Realm string
}

// NewBasicAuth builds a guard from a bcrypt hash.
func NewBasicAuth(user, hash string) *BasicAuth {
	if hash == "" {
		return nil
	}
	return &BasicAuth{User: user, Hash: []byte(hash), Realm: "arcollect"}
}

// Enabled reports whether credentials are required.
func (a *BasicAuth) Enabled() bool {
	return a != nil && len(a.Hash) > 0
}

// Middleware rejects requests without valid credentials.
func (a *BasicAuth) Middleware(next http.Handler) http.Handler {
	if !a.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || !a.check(user, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="`+a.Realm+`", charset="UTF-8"`)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *BasicAuth) check(user, pass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(a.User)) == 1
	passOK := bcrypt.CompareHashAndPassword(a.Hash, []byte(pass)) == nil
	return userOK && passOK
}
