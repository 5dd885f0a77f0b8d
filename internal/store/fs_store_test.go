package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// setupTestStore creates a temporary directory and returns an FSStore for testing.
func setupTestStore(t *testing.T) (*FSStore, string) {
	t.Helper()

	tempDir := t.TempDir()
	store, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	return store, tempDir
}

// createTestRun creates a run manifest with test data.
func createTestRun(runID string) *Run {
	return &Run{
		RunID:  runID,
		Status: StatusCompleted,
		Config: RunConfig{
			InputDir:     "KITTI_2015_subset",
			OutputDir:    "output/handcrafted_stereo",
			WindowSize:   5,
			MaxDisparity: 50,
		},
		Frames:         20,
		Processed:      20,
		HasGroundTruth: true,
		MeanEPE:        4.2,
		MeanD1:         0.31,
		Started:        time.Now(),
		Finished:       time.Now(),
	}
}

func TestNewFSStore(t *testing.T) {
	base := filepath.Join(t.TempDir(), "nested", "data")

	store, err := NewFSStore(base)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	if store.BaseDir() != base {
		t.Errorf("BaseDir = %s, want %s", store.BaseDir(), base)
	}
	if _, err := os.Stat(base); err != nil {
		t.Fatalf("Base directory was not created: %v", err)
	}
}

func TestSaveRun(t *testing.T) {
	store, tempDir := setupTestStore(t)

	run := createTestRun("run-123")
	if err := store.SaveRun(run); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	dir := filepath.Join(tempDir, "runs", "run-123")
	if _, err := os.Stat(filepath.Join(dir, "manifest.json")); err != nil {
		t.Fatalf("Manifest was not created: %v", err)
	}

	// Only the manifest should remain; temp files are renamed away.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected 1 file in run directory, found %d", len(entries))
	}
}

func TestSaveRun_InvalidInput(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.SaveRun(nil); err == nil {
		t.Error("Expected error for nil run")
	}
	if err := store.SaveRun(createTestRun("")); err == nil {
		t.Error("Expected error for empty runID")
	}
}

func TestSaveRun_Overwrite(t *testing.T) {
	store, _ := setupTestStore(t)

	run := createTestRun("run-overwrite")
	run.Status = StatusRunning
	run.Processed = 3
	if err := store.SaveRun(run); err != nil {
		t.Fatalf("First save failed: %v", err)
	}

	run.Status = StatusCompleted
	run.Processed = 20
	if err := store.SaveRun(run); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	loaded, err := store.LoadRun("run-overwrite")
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}
	if loaded.Status != StatusCompleted || loaded.Processed != 20 {
		t.Errorf("Expected overwritten manifest, got status=%s processed=%d", loaded.Status, loaded.Processed)
	}
}

func TestLoadRun(t *testing.T) {
	store, _ := setupTestStore(t)

	original := createTestRun("run-load")
	if err := store.SaveRun(original); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	loaded, err := store.LoadRun("run-load")
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}
	if loaded.Config != original.Config {
		t.Errorf("Config mismatch: got %+v, want %+v", loaded.Config, original.Config)
	}
	if loaded.MeanD1 != original.MeanD1 || loaded.MeanEPE != original.MeanEPE {
		t.Errorf("Scores mismatch: got %f/%f", loaded.MeanD1, loaded.MeanEPE)
	}
	if !loaded.Started.Equal(original.Started) {
		t.Errorf("Started mismatch: got %v, want %v", loaded.Started, original.Started)
	}
	if err := loaded.Validate(); err != nil {
		t.Errorf("Loaded manifest should validate: %v", err)
	}
}

func TestLoadRun_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.LoadRun("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.RunID != "missing" {
		t.Errorf("Expected NotFoundError carrying the run ID, got %v", err)
	}
}

func TestLoadRun_Corrupted(t *testing.T) {
	store, tempDir := setupTestStore(t)

	dir := filepath.Join(tempDir, "runs", "broken")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := store.LoadRun("broken")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Expected a decode error, got %v", err)
	}
}

func TestListRuns_Empty(t *testing.T) {
	store, _ := setupTestStore(t)

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("Expected no runs, got %d", len(infos))
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	store, tempDir := setupTestStore(t)

	base := time.Now()
	for i := 0; i < 3; i++ {
		run := createTestRun(fmt.Sprintf("run-%d", i))
		run.Started = base.Add(time.Duration(i) * time.Minute)
		run.Config.WindowSize = 3 + 2*i
		if err := store.SaveRun(run); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	// A stray directory without manifest and a corrupted manifest are skipped.
	os.MkdirAll(filepath.Join(tempDir, "runs", "empty"), 0755)
	os.MkdirAll(filepath.Join(tempDir, "runs", "corrupt"), 0755)
	os.WriteFile(filepath.Join(tempDir, "runs", "corrupt", "manifest.json"), []byte("]"), 0644)

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("Expected 3 runs, got %d", len(infos))
	}
	for i, want := range []string{"run-2", "run-1", "run-0"} {
		if infos[i].RunID != want {
			t.Errorf("infos[%d] = %s, want %s", i, infos[i].RunID, want)
		}
	}
	if infos[0].WindowSize != 7 {
		t.Errorf("Expected window size 7 for newest run, got %d", infos[0].WindowSize)
	}
}

func TestDeleteRun(t *testing.T) {
	store, tempDir := setupTestStore(t)

	if err := store.SaveRun(createTestRun("run-del")); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	tw, err := NewTraceWriter(tempDir, "run-del", false)
	if err != nil {
		t.Fatalf("NewTraceWriter failed: %v", err)
	}
	tw.Write(FrameEntry{Index: 0})
	tw.Close()

	if err := store.DeleteRun("run-del"); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "runs", "run-del")); !os.IsNotExist(err) {
		t.Error("Run directory should be removed")
	}
	if _, err := store.LoadRun("run-del"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestDeleteRun_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.DeleteRun("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := store.DeleteRun(""); err == nil {
		t.Error("Expected error for empty runID")
	}
}

func TestConcurrentSave(t *testing.T) {
	store, _ := setupTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			run := createTestRun("run-concurrent")
			run.Processed = n
			if err := store.SaveRun(run); err != nil {
				t.Errorf("Concurrent save failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	loaded, err := store.LoadRun("run-concurrent")
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}
	if loaded.Processed < 0 || loaded.Processed >= 10 {
		t.Errorf("Unexpected processed count %d", loaded.Processed)
	}
}

func TestRun_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(r *Run)
		field  string
	}{
		{"valid", func(r *Run) {}, ""},
		{"empty id", func(r *Run) { r.RunID = "" }, "RunID"},
		{"unknown status", func(r *Run) { r.Status = "paused" }, "Status"},
		{"no input", func(r *Run) { r.Config.InputDir = "" }, "Config.InputDir"},
		{"zero window", func(r *Run) { r.Config.WindowSize = 0 }, "Config.WindowSize"},
		{"zero disparity", func(r *Run) { r.Config.MaxDisparity = 0 }, "Config.MaxDisparity"},
		{"processed overflow", func(r *Run) { r.Processed = 21 }, "Processed"},
		{"d1 range", func(r *Run) { r.MeanD1 = 1.5 }, "MeanD1"},
		{"zero start", func(r *Run) { r.Started = time.Time{} }, "Started"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := createTestRun("run-validate")
			tt.modify(run)
			err := run.Validate()

			if tt.field == "" {
				if err != nil {
					t.Fatalf("Expected valid run, got %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %s, want %s", ve.Field, tt.field)
			}
		})
	}
}

func TestRun_ToInfoAndDone(t *testing.T) {
	run := NewRun(NewRunID(), RunConfig{InputDir: "in", WindowSize: 9, MaxDisparity: 50})
	if run.Status != StatusRunning || run.Done() {
		t.Errorf("New run should be running, got %s", run.Status)
	}
	if len(run.RunID) != 36 {
		t.Errorf("Expected uuid run ID, got %q", run.RunID)
	}

	run.Frames, run.Processed, run.MeanD1 = 4, 4, 0.2
	run.Status = StatusCancelled
	if !run.Done() {
		t.Error("Cancelled run should be done")
	}

	info := run.ToInfo()
	if info.RunID != run.RunID || info.WindowSize != 9 || info.InputDir != "in" || info.Processed != 4 || info.MeanD1 != 0.2 {
		t.Errorf("Unexpected info %+v", info)
	}
}
