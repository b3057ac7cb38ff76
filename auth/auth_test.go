/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package auth

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/JWalen/NetworkTap-sub002/config"
)

const (
	adminPass  = `correct-horse`
	viewerPass = `battery-staple`
)

func mkStore(t *testing.T) *config.Store {
	t.Helper()
	adminSalt := []byte(`salt-admin-0123456789abcdef01234`)
	viewerSalt := []byte(`salt-view-0123456789abcdef012345`)
	body := fmt.Sprintf(`MODE=span
NIC1=eth0
NIC2=eth1
WEB_PORT=8443
WEB_USER=admin
WEB_PASS_HASH=%s
WEB_PASS_SALT=%s
WEB_VIEWER_USER=viewer
WEB_VIEWER_PASS_HASH=%s
WEB_VIEWER_PASS_SALT=%s
`,
		hex.EncodeToString(HashPassword(adminPass, adminSalt)),
		hex.EncodeToString(adminSalt),
		hex.EncodeToString(HashPassword(viewerPass, viewerSalt)),
		hex.EncodeToString(viewerSalt))
	p := filepath.Join(t.TempDir(), `networktap.conf`)
	if err := os.WriteFile(p, []byte(body), 0640); err != nil {
		t.Fatal(err)
	}
	s, err := config.NewStore(p)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestAdminCredentials(t *testing.T) {
	g := NewGate(mkStore(t))
	pr, err := g.Check(`admin`, adminPass)
	if err != nil {
		t.Fatal(err)
	}
	if pr.User != `admin` || pr.Role != RoleAdmin || !pr.Admin() {
		t.Fatalf("bad principal: %+v", pr)
	}
}

func TestViewerCredentials(t *testing.T) {
	g := NewGate(mkStore(t))
	pr, err := g.Check(`viewer`, viewerPass)
	if err != nil {
		t.Fatal(err)
	}
	if pr.Role != RoleViewer || pr.Admin() {
		t.Fatalf("bad principal: %+v", pr)
	}
}

func TestFailureShapeIdentical(t *testing.T) {
	g := NewGate(mkStore(t))
	badUser := []string{`admin`, `viewer`, `nobody`, ``}
	badPass := []string{`wrong`, adminPass + `x`, ``}
	for _, u := range badUser {
		for _, p := range badPass {
			if _, err := g.Check(u, p); err != ErrUnauthenticated {
				t.Fatalf("Check(%q, %q) = %v, want ErrUnauthenticated", u, p, err)
			}
		}
	}
	//cross credentials are also a failure
	if _, err := g.Check(`admin`, viewerPass); err != ErrUnauthenticated {
		t.Fatalf("cross credential accepted: %v", err)
	}
}

func TestAuthenticateHeader(t *testing.T) {
	g := NewGate(mkStore(t))
	r := httptest.NewRequest(http.MethodGet, `/system/status`, nil)
	if _, err := g.Authenticate(r); err != ErrUnauthenticated {
		t.Fatalf("missing header: %v", err)
	}
	r.SetBasicAuth(`admin`, adminPass)
	pr, err := g.Authenticate(r)
	if err != nil {
		t.Fatal(err)
	}
	if pr.Role != RoleAdmin {
		t.Fatalf("bad role: %+v", pr)
	}
	r.Header.Set(`Authorization`, `Basic not-base64!!!`)
	if _, err = g.Authenticate(r); err != ErrUnauthenticated {
		t.Fatalf("malformed header: %v", err)
	}
}

func TestHashDeterministic(t *testing.T) {
	salt := []byte(`0123456789abcdef0123456789abcdef`)
	a := HashPassword(`pw`, salt)
	b := HashPassword(`pw`, salt)
	if hex.EncodeToString(a) != hex.EncodeToString(b) {
		t.Fatal("hash not deterministic")
	}
	if len(a) != KeyLen {
		t.Fatalf("bad key length %d", len(a))
	}
	c := HashPassword(`pw`, []byte(`different-salt-different-salt-00`))
	if hex.EncodeToString(a) == hex.EncodeToString(c) {
		t.Fatal("salt had no effect")
	}
}
