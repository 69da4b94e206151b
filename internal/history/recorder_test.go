package history

import (
	"path/filepath"
	"testing"
	"time"
)

func openTemp(t *testing.T) (*Recorder, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history", "credential-history.solo")
	r, err := Open(path, time.Hour, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return r, path
}

func TestRecordAndLast(t *testing.T) {
	r, _ := openTemp(t)
	defer r.Close()

	if err := r.Record("git:https://github.com", "alice", true); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	rec, found, err := r.Last("git:https://github.com")
	if err != nil {
		t.Fatalf("Last failed: %v", err)
	}
	if !found {
		t.Fatal("Expected a record")
	}
	if rec.Name != "git:https://github.com" || rec.Username != "alice" || !rec.OK {
		t.Errorf("Unexpected record: %+v", rec)
	}
	if rec.UpdatedAt.IsZero() {
		t.Error("Expected an update time")
	}
}

func TestRecordReplaces(t *testing.T) {
	r, _ := openTemp(t)
	defer r.Close()

	_ = r.Record("a", "alice", true)
	_ = r.Record("a", "alice", false)

	rec, found, err := r.Last("a")
	if err != nil || !found {
		t.Fatalf("Expected record, got found=%v err=%v", found, err)
	}
	if rec.OK {
		t.Error("Expected the later failed attempt to replace the earlier one")
	}
}

func TestLastMissing(t *testing.T) {
	r, _ := openTemp(t)
	defer r.Close()

	_, found, err := r.Last("never-written")
	if err != nil {
		t.Fatalf("Last failed: %v", err)
	}
	if found {
		t.Error("Expected no record")
	}
}

func TestRecordSurvivesReopen(t *testing.T) {
	r, path := openTemp(t)
	if err := r.Record("a", "alice", true); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r2, err := Open(path, time.Hour, false)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer r2.Close()

	if _, found, err := r2.Last("a"); err != nil || !found {
		t.Errorf("Expected record after reopen, got found=%v err=%v", found, err)
	}
}

func TestRecordExpires(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credential-history.solo")
	// Expiry is kept in whole seconds, so the record must already be stale
	// when it is written.
	r, err := Open(path, -2*time.Second, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	if err := r.Record("old", "alice", true); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	if _, found, _ := r.Last("old"); found {
		t.Error("Expected record older than the retention period to be gone")
	}
}

func TestForget(t *testing.T) {
	r, _ := openTemp(t)
	defer r.Close()

	_ = r.Record("a", "alice", true)
	if err := r.Forget("a"); err != nil {
		t.Fatalf("Forget failed: %v", err)
	}
	if _, found, _ := r.Last("a"); found {
		t.Error("Expected record to be removed")
	}
	if err := r.Forget("a"); err != nil {
		t.Errorf("Forgetting twice must not fail: %v", err)
	}
}

func TestDisabled(t *testing.T) {
	r, err := Open("", time.Hour, true)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := r.Record("a", "alice", true); err != nil {
		t.Errorf("Record failed: %v", err)
	}
	if _, found, err := r.Last("a"); found || err != nil {
		t.Errorf("Disabled recorder must store nothing, got found=%v err=%v", found, err)
	}
	if r.Stats() != (Stats{}) {
		t.Error("Expected empty stats")
	}
	if err := r.Compact(); err != nil {
		t.Errorf("Compact failed: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
