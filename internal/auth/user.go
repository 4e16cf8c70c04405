// Package auth implements the user store, password hashing, session
// tracking and permission evaluation described in §3 ("User / Session")
// and §4.7.
package auth

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ericlarwa/gridline/internal/id"
	"github.com/ericlarwa/gridline/internal/wire"
)

// User is one stored account: credentials, status and the full permission
// set granted to it.
type User struct {
	ID           uint32
	Username     string
	PasswordHash string
	Active       bool
	CreatedAt    uint64
	Permissions  wire.Permissions
}

func hashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", wire.New(wire.KindIOError, "auth: hash password: %v", err)
	}
	return string(h), nil
}

func (u *User) checkPassword(password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return wire.New(wire.KindInvalidCredentials, "auth: invalid credentials")
	}
	return nil
}

func newUser(id uint32, username, password string, active bool, perms wire.Permissions) (*User, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	return &User{
		ID: id, Username: username, PasswordHash: hash, Active: active,
		CreatedAt: uint64(time.Now().UnixMicro()), Permissions: perms,
	}, nil
}

func validateUsername(name string) error {
	if err := id.ValidateName(name); err != nil {
		return wire.New(wire.KindResourceNameInvalid, "auth: %v", err)
	}
	return nil
}
