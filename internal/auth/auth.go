// Package auth checks caller tokens derived from shared secrets.
//
// A regular caller's token is the hex SHA-512 digest of account+login+Salt.
// The admin login instead uses the current hour, formatted YYYYMMDDHH in
// local time, followed by AdminSalt; an admin token is therefore only valid
// within the hour it was issued.
package auth

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"time"
)

// Defaults for an Authenticator built without configuration.
const (
	DefaultSalt       = "Otus"
	DefaultAdminLogin = "admin"
	DefaultAdminSalt  = "42"
)

// Identity is the part of a request the token is derived from.
type Identity struct {
	Account string
	Login   string
	Token   string
}

// Authenticator derives and verifies tokens. It is stateless and safe for
// concurrent use.
type Authenticator struct {
	Salt       string
	AdminLogin string
	AdminSalt  string

	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
}

// New returns an Authenticator using the given secrets.
func New(salt, adminLogin, adminSalt string) *Authenticator {
	return &Authenticator{
		Salt:       salt,
		AdminLogin: adminLogin,
		AdminSalt:  adminSalt,
		Now:        time.Now,
	}
}

// IsAdmin reports whether login is the admin identity.
func (a *Authenticator) IsAdmin(login string) bool {
	return login == a.AdminLogin
}

// Token returns the expected token for an account and login.
func (a *Authenticator) Token(account, login string) string {
	var seed string
	if a.IsAdmin(login) {
		seed = a.now().Format("2006010215") + a.AdminSalt
	} else {
		seed = account + login + a.Salt
	}
	sum := sha512.Sum512([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// Check reports whether id.Token matches the expected token exactly.
func (a *Authenticator) Check(id Identity) bool {
	want := a.Token(id.Account, id.Login)
	return subtle.ConstantTimeCompare([]byte(want), []byte(id.Token)) == 1
}

func (a *Authenticator) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}
