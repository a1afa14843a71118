package archive

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestArchiveDatabase(t *testing.T) {
	// Create temp directory
	tmpDir := t.TempDir()

	// Create a database with WAL sidecar files
	dbPath := filepath.Join(tmpDir, "cache.db")
	for _, name := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.WriteFile(name, []byte("test content"), 0644); err != nil {
			t.Fatalf("Failed to create %s: %v", name, err)
		}
	}

	// Archive the database
	archivedPath, err := ArchiveDatabase(dbPath)
	if err != nil {
		t.Fatalf("ArchiveDatabase failed: %v", err)
	}

	// Check that the database no longer exists
	for _, name := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if _, err := os.Stat(name); !os.IsNotExist(err) {
			t.Errorf("%s still exists after archiving", name)
		}
	}

	// Check that archive directory was created
	archiveDir := filepath.Join(tmpDir, "archive")
	if filepath.Dir(archivedPath) != archiveDir {
		t.Errorf("Archived to %s, expected directory %s", archivedPath, archiveDir)
	}

	// Verify the archived name (should be cache-YYYYMMDD-HHMMSS.db)
	archivedName := filepath.Base(archivedPath)
	if !strings.HasPrefix(archivedName, "cache-") || !strings.HasSuffix(archivedName, ".db") {
		t.Errorf("Invalid archive name format: %s", archivedName)
	}

	// Check that archived files exist
	for _, name := range []string{archivedPath, archivedPath + "-wal", archivedPath + "-shm"} {
		if _, err := os.Stat(name); os.IsNotExist(err) {
			t.Errorf("%s not found in archive", name)
		}
	}
}

func TestArchiveDatabase_WithoutSidecars(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "cache.db")
	if err := os.WriteFile(dbPath, []byte("db"), 0644); err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}

	archivedPath, err := ArchiveDatabase(dbPath)
	if err != nil {
		t.Fatalf("ArchiveDatabase failed: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(archivedPath))
	if err != nil {
		t.Fatalf("Failed to read archive directory: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected 1 entry in archive directory, got %d", len(entries))
	}
}

func TestArchiveDatabase_NonExistent(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := ArchiveDatabase(filepath.Join(tmpDir, "missing.db"))
	if err == nil {
		t.Fatal("Expected error for non-existent database")
	}

	if !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("Expected 'does not exist' error, got: %v", err)
	}
}

func TestArchiveDatabase_MultipleArchives(t *testing.T) {
	// Create temp directory
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "cache.db")

	// Archive twice to ensure unique names
	for i := 0; i < 2; i++ {
		content := []byte("test content " + string(rune('a'+i)))
		if err := os.WriteFile(dbPath, content, 0644); err != nil {
			t.Fatalf("Failed to create database: %v", err)
		}

		// Small delay to ensure different timestamps
		if i == 1 {
			time.Sleep(10 * time.Millisecond)
		}

		if _, err := ArchiveDatabase(dbPath); err != nil {
			t.Fatalf("ArchiveDatabase failed on iteration %d: %v", i, err)
		}
	}

	// Check that we have 2 archives
	entries, err := os.ReadDir(filepath.Join(tmpDir, "archive"))
	if err != nil {
		t.Fatalf("Failed to read archive directory: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries in archive directory, got %d", len(entries))
	}

	// Verify both archives have different names
	if entries[0].Name() == entries[1].Name() {
		t.Error("Archive names are not unique")
	}
}
