/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package retention

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func mkRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, sub := range []string{activeDir, archiveDir} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0750); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// seedSpread writes n pcaps with mtimes spread one per spreadDays/n days
// back from now, oldest first in the returned slice.
func seedSpread(t *testing.T, root string, n, spreadDays int) (paths []string) {
	t.Helper()
	for i := 0; i < n; i++ {
		ageDays := spreadDays - i*spreadDays/n
		p := filepath.Join(root, archiveDir, fmt.Sprintf("capture_%03d.pcap", i))
		if err := os.WriteFile(p, []byte(`data`), 0640); err != nil {
			t.Fatal(err)
		}
		mt := time.Now().Add(-time.Duration(ageDays) * 24 * time.Hour)
		if err := os.Chtimes(p, mt, mt); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	return
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func TestAgePass(t *testing.T) {
	root := mkRoot(t)
	paths := seedSpread(t, root, 10, 30)
	e := NewEngine(root, nil, nil)
	e.freePctFunc = func(string) (float64, error) { return 90, nil }

	rep, err := e.Run(context.Background(), Params{RetentionDays: 7, MinFreePct: 20})
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range paths {
		fi, serr := os.Stat(p)
		if serr != nil {
			continue //deleted
		}
		if time.Since(fi.ModTime()) > 7*24*time.Hour {
			t.Fatalf("stale artifact survived: %s", p)
		}
	}
	if len(rep.Deleted) == 0 {
		t.Fatal("nothing deleted from a 30 day spread")
	}
	for _, d := range rep.Deleted {
		if d.Path == `` || d.Size == 0 {
			t.Fatalf("incomplete delete record: %+v", d)
		}
	}
}

func TestEmergencyEviction(t *testing.T) {
	root := mkRoot(t)
	//10 fresh files, none stale, so only the free space pass evicts
	paths := seedSpread(t, root, 10, 5)
	e := NewEngine(root, nil, nil)
	//each remaining file costs one percent: 10 files reads as 15 free,
	//the 20 percent floor needs 5 evictions
	e.freePctFunc = func(string) (float64, error) {
		var n float64
		for _, p := range paths {
			if exists(p) {
				n++
			}
		}
		return 25 - n, nil
	}

	rep, err := e.Run(context.Background(), Params{RetentionDays: 7, MinFreePct: 20})
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Deleted) != 5 {
		t.Fatalf("expected 5 evictions, got %d", len(rep.Deleted))
	}
	if rep.FreePct < 20 {
		t.Fatalf("sweep ended below the floor: %f", rep.FreePct)
	}
	//oldest evicted first, newest half intact
	for i := 0; i < 5; i++ {
		if exists(paths[i]) {
			t.Fatalf("oldest artifact %d survived", i)
		}
	}
	for i := 5; i < 10; i++ {
		if !exists(paths[i]) {
			t.Fatalf("recent artifact %d evicted", i)
		}
	}
}

func TestNewestNeverDeleted(t *testing.T) {
	root := mkRoot(t)
	paths := seedSpread(t, root, 3, 60)
	e := NewEngine(root, nil, nil)
	e.freePctFunc = func(string) (float64, error) { return 1, nil }

	if _, err := e.Run(context.Background(), Params{RetentionDays: 7, MinFreePct: 50}); err != nil {
		t.Fatal(err)
	}
	if !exists(paths[len(paths)-1]) {
		t.Fatal("current capture file evicted")
	}
	if exists(paths[0]) || exists(paths[1]) {
		t.Fatal("old artifacts survived an emergency pass")
	}
}

func TestRunIdempotent(t *testing.T) {
	root := mkRoot(t)
	seedSpread(t, root, 10, 30)
	e := NewEngine(root, nil, nil)
	e.freePctFunc = func(string) (float64, error) { return 90, nil }

	p := Params{RetentionDays: 7, MinFreePct: 20}
	if _, err := e.Run(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	rep2, err := e.Run(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if len(rep2.Deleted) != 0 {
		t.Fatalf("second sweep deleted %d files", len(rep2.Deleted))
	}
}

func TestEveRotation(t *testing.T) {
	root := mkRoot(t)
	eve := filepath.Join(root, `eve.json`)
	body := make([]byte, 4096)
	for i := range body {
		body[i] = 'a'
	}
	if err := os.WriteFile(eve, body, 0640); err != nil {
		t.Fatal(err)
	}
	e := NewEngine(root, nil, nil)
	e.freePctFunc = func(string) (float64, error) { return 90, nil }

	rep, err := e.Run(context.Background(), Params{
		RetentionDays:  7,
		MinFreePct:     10,
		EveLog:         eve,
		MaxEveLogBytes: 1024,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !rep.RotatedEve {
		t.Fatal("oversized event log not rotated")
	}
	if exists(eve) {
		t.Fatal("original event log still present after rotate-by-rename")
	}
	ents, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	var foundGz bool
	for _, ent := range ents {
		if filepath.Ext(ent.Name()) == `.gz` {
			foundGz = true
		}
	}
	if !foundGz {
		t.Fatal("rotated log not compressed")
	}
}

func TestEveUnderThresholdUntouched(t *testing.T) {
	root := mkRoot(t)
	eve := filepath.Join(root, `eve.json`)
	if err := os.WriteFile(eve, []byte(`small`), 0640); err != nil {
		t.Fatal(err)
	}
	e := NewEngine(root, nil, nil)
	e.freePctFunc = func(string) (float64, error) { return 90, nil }
	rep, err := e.Run(context.Background(), Params{
		RetentionDays:  7,
		MinFreePct:     10,
		EveLog:         eve,
		MaxEveLogBytes: 1024,
	})
	if err != nil {
		t.Fatal(err)
	}
	if rep.RotatedEve || !exists(eve) {
		t.Fatal("small event log was rotated")
	}
}
