package state

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsEmpty(t *testing.T) {
	cs, err := Load(filepath.Join(t.TempDir(), "nonexistent.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs.Last != nil {
		t.Errorf("expected no record, got %+v", cs.Last)
	}
}

func TestLoadCorruptFileReturnsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.json")
	if err := os.WriteFile(path, []byte("{invalid json"), 0o644); err != nil {
		t.Fatal(err)
	}
	cs, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs.Last != nil {
		t.Errorf("expected no record, got %+v", cs.Last)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "state.json")
	now := time.Now().UTC().Truncate(time.Second)
	cs := &CompileState{Last: &Record{
		Fingerprint:  "sha256:abc",
		DocumentHash: "sha256:def",
		CompiledAt:   now,
		Session:      "s-1",
		Frames:       300,
		Playlists:    2,
		Chapters:     1,
	}}
	if err := cs.Save(path); err != nil {
		t.Fatalf("save error: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Last == nil || *loaded.Last != *cs.Last {
		t.Errorf("round trip = %+v, want %+v", loaded.Last, cs.Last)
	}
}

func TestStoreUpdateSerializes(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "state.json"), filepath.Join(dir, "state.lock"))

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.Update(context.Background(), func(cs *CompileState) error {
				if cs.Last == nil {
					cs.Last = &Record{}
				}
				cs.Last.Frames++
				return nil
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	cs, err := store.Read()
	if err != nil {
		t.Fatal(err)
	}
	if cs.Last == nil || cs.Last.Frames != workers {
		t.Errorf("frames = %+v, want %d increments", cs.Last, workers)
	}
}

func TestStoreUpdateHonorsContext(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "state.lock")
	holder := NewStore(filepath.Join(dir, "state.json"), lockPath)
	waiter := NewStore(filepath.Join(dir, "state.json"), lockPath)

	release := make(chan struct{})
	held := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- holder.Update(context.Background(), func(*CompileState) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := waiter.Update(ctx, func(*CompileState) error { return nil }); err == nil {
		t.Error("expected lock timeout")
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}
