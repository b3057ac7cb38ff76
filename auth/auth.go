/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package auth verifies HTTP Basic credentials for the REST surface and
// the websocket handshake. Every failure path produces the same error so
// callers cannot tell a bad username from a bad password.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"net/http"

	"golang.org/x/crypto/pbkdf2"

	"github.com/JWalen/NetworkTap-sub002/config"
)

const (
	RoleAdmin  Role = `admin`
	RoleViewer Role = `viewer`

	// Iterations is the PBKDF2-SHA256 work factor for stored hashes.
	Iterations = 120000
	KeyLen     = 32
)

var (
	ErrUnauthenticated = errors.New("authentication required")

	// dummySalt keeps the verify path doing real KDF work when the
	// username matches no principal
	dummySalt = []byte(`networktap-dummy-salt-value-0000`)
)

type Role string

// Principal identifies an authenticated caller.
type Principal struct {
	User string `json:"user"`
	Role Role   `json:"role"`
}

func (p Principal) Admin() bool {
	return p.Role == RoleAdmin
}

// Gate derives its credential set from the live config snapshot, so a
// credential rotation is just a config patch.
type Gate struct {
	store *config.Store
}

func NewGate(store *config.Store) *Gate {
	return &Gate{store: store}
}

// HashPassword derives the stored hash for a password and salt.
func HashPassword(pass string, salt []byte) []byte {
	return pbkdf2.Key([]byte(pass), salt, Iterations, KeyLen, sha256.New)
}

// equalFold-free constant time string equality over digests, so length
// differences do not shortcut the compare
func ctEqual(a, b string) bool {
	da := sha256.Sum256([]byte(a))
	db := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(da[:], db[:]) == 1
}

// verify runs the full KDF regardless of whether the user matched, and
// folds both match bits together at the end.
func verify(user, pass, wantUser string, wantHash, salt []byte) bool {
	userOK := ctEqual(user, wantUser)
	if salt == nil {
		salt = dummySalt
	}
	derived := HashPassword(pass, salt)
	passOK := len(wantHash) > 0 && subtle.ConstantTimeCompare(derived, wantHash) == 1
	return userOK && passOK
}

// Authenticate checks the request's Basic credentials against the
// configured principals. The admin principal is checked first, then the
// optional viewer principal, both run the KDF so response timing does
// not depend on which (if either) matched.
func (g *Gate) Authenticate(r *http.Request) (p Principal, err error) {
	user, pass, ok := r.BasicAuth()
	if !ok {
		err = ErrUnauthenticated
		return
	}
	return g.Check(user, pass)
}

// Check verifies a raw credential pair.
func (g *Gate) Check(user, pass string) (p Principal, err error) {
	cfg := g.store.Get()
	adminOK := verify(user, pass, cfg.WebUser, cfg.PassHash(), cfg.PassSalt())
	viewerOK := cfg.ViewerUser != `` &&
		verify(user, pass, cfg.ViewerUser, cfg.ViewerHash(), cfg.ViewerSalt())
	switch {
	case adminOK:
		p = Principal{User: cfg.WebUser, Role: RoleAdmin}
	case viewerOK:
		p = Principal{User: cfg.ViewerUser, Role: RoleViewer}
	default:
		err = ErrUnauthenticated
	}
	return
}
