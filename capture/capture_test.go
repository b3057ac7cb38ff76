/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JWalen/NetworkTap-sub002/host"
)

func mkSupervisor(t *testing.T) (*Supervisor, string) {
	t.Helper()
	root := t.TempDir()
	for _, sub := range []string{ActiveDir, ArchiveDir} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0750); err != nil {
			t.Fatal(err)
		}
	}
	s, err := NewSupervisor(host.NewAdapter(``, nil), root, nil)
	if err != nil {
		t.Fatal(err)
	}
	return s, root
}

func seedArtifacts(t *testing.T, root string, n int) {
	t.Helper()
	base := time.Now().Add(-time.Duration(n) * time.Hour)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("capture_202506%02d_%02d0000.pcap", (i%27)+1, i%24)
		p := filepath.Join(root, ArchiveDir, name)
		if err := os.WriteFile(p, []byte(`pcapdata`), 0640); err != nil {
			t.Fatal(err)
		}
		mt := base.Add(time.Duration(i) * time.Hour)
		if err := os.Chtimes(p, mt, mt); err != nil {
			t.Fatal(err)
		}
	}
}

func TestListSortedAndPaged(t *testing.T) {
	s, root := mkSupervisor(t)
	seedArtifacts(t, root, 25)

	page, total, _, err := s.List(context.Background(), 0, 10, ``)
	if err != nil {
		t.Fatal(err)
	}
	if total != 25 || len(page) != 10 {
		t.Fatalf("total %d page %d", total, len(page))
	}
	for i := 1; i < len(page); i++ {
		if page[i].ModTime.After(page[i-1].ModTime) {
			t.Fatal("not sorted mtime descending")
		}
	}
	page2, _, _, err := s.List(context.Background(), 20, 10, ``)
	if err != nil {
		t.Fatal(err)
	}
	if len(page2) != 5 {
		t.Fatalf("expected trailing page of 5, got %d", len(page2))
	}
	empty, _, _, err := s.List(context.Background(), 100, 10, ``)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Fatal("page past the end not empty")
	}
}

func TestListFilter(t *testing.T) {
	s, root := mkSupervisor(t)
	seedArtifacts(t, root, 5)
	other := filepath.Join(root, ArchiveDir, `capture_20251231_235959.pcap`)
	if err := os.WriteFile(other, []byte(`x`), 0640); err != nil {
		t.Fatal(err)
	}
	s.InvalidateScan()
	page, total, _, err := s.List(context.Background(), 0, 10, `20251231`)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(page) != 1 {
		t.Fatalf("filter missed: total %d", total)
	}
}

func TestListIgnoresNonPcap(t *testing.T) {
	s, root := mkSupervisor(t)
	if err := os.WriteFile(filepath.Join(root, ArchiveDir, `notes.txt`), []byte(`x`), 0640); err != nil {
		t.Fatal(err)
	}
	_, total, _, err := s.List(context.Background(), 0, 10, ``)
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Fatal("non-pcap file listed")
	}
}

func TestStatRejectsTraversal(t *testing.T) {
	s, _ := mkSupervisor(t)
	if _, err := s.Stat(`../../etc/passwd`); !errors.Is(err, host.ErrPathEscapes) {
		t.Fatalf("traversal not rejected: %v", err)
	}
}

func TestStatMissing(t *testing.T) {
	s, _ := mkSupervisor(t)
	if _, err := s.Stat(`archive/never_existed.pcap`); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOpenReadsBack(t *testing.T) {
	s, root := mkSupervisor(t)
	p := filepath.Join(root, ActiveDir, `capture_20250601_000000.pcap`)
	if err := os.WriteFile(p, []byte(`payload`), 0640); err != nil {
		t.Fatal(err)
	}
	f, art, err := s.Open(`active/capture_20250601_000000.pcap`)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if art.Size != int64(len(`payload`)) {
		t.Fatalf("bad size %d", art.Size)
	}
}

func TestValidateRange(t *testing.T) {
	if err := ValidateRange(0, 99, 100); err != nil {
		t.Fatal(err)
	}
	if err := ValidateRange(100, 100, 100); err == nil {
		t.Fatal("range starting at size accepted")
	}
	if err := ValidateRange(-1, 10, 100); err == nil {
		t.Fatal("negative start accepted")
	}
	if err := ValidateRange(50, 40, 100); err == nil {
		t.Fatal("inverted range accepted")
	}
}
