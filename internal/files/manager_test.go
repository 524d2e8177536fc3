package files

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"studybot/internal/models"
	"studybot/internal/storage/stubs"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir(), 1024*1024, stubs.NewMockDB(), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	return m
}

func TestFileType(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"notes.pdf", models.FileTypePDF},
		{"NOTES.PDF", models.FileTypePDF},
		{"photo.jpg", models.FileTypeImage},
		{"diagram.png", models.FileTypeImage},
		{"lecture.mp3", models.FileTypeAudio},
		{"lecture.mp4", models.FileTypeVideo},
		{"essay.txt", models.FileTypeDocument},
		{"data.bin", models.FileTypeOther},
		{"noextension", models.FileTypeOther},
	}
	for _, tt := range tests {
		if got := FileType(tt.filename); got != tt.want {
			t.Errorf("FileType(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestSafeFilename(t *testing.T) {
	name := SafeFilename(123, "my physics notes!.pdf")
	if !strings.HasPrefix(name, "123_") {
		t.Errorf("Expected user ID prefix, got %q", name)
	}
	if !strings.HasSuffix(name, ".pdf") {
		t.Errorf("Expected extension preserved, got %q", name)
	}
	if strings.Contains(name, "!") || strings.Contains(name, " ") {
		t.Errorf("Expected unsafe characters removed, got %q", name)
	}
	if !strings.Contains(name, "my_physics_notes") {
		t.Errorf("Expected spaces turned into underscores, got %q", name)
	}
}

func TestStoreAndList(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	stored, err := m.Store(ctx, 123, "algebra.pdf", strings.NewReader("pdf content here"), "algebra basics", []string{"math"})
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if stored.FileType != models.FileTypePDF {
		t.Errorf("Expected pdf type, got %q", stored.FileType)
	}
	if stored.FileSize != int64(len("pdf content here")) {
		t.Errorf("Unexpected file size %d", stored.FileSize)
	}
	if len(stored.SHA256) != 64 {
		t.Errorf("Expected sha256 hex digest, got %q", stored.SHA256)
	}

	listed, err := m.List(ctx, 123, "", 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(listed) != 1 || listed[0].Filename != "algebra.pdf" {
		t.Errorf("Expected stored file in list, got %+v", listed)
	}

	// Other users see nothing
	listed, err = m.List(ctx, 999, "", 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("Expected no files for other user, got %d", len(listed))
	}
}

func TestStoreRejectsOversizedFile(t *testing.T) {
	db := stubs.NewMockDB()
	m, err := NewManager(t.TempDir(), 10, db, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	_, err = m.Store(context.Background(), 123, "big.pdf", strings.NewReader("this content is longer than ten bytes"), "", nil)
	if err == nil {
		t.Fatal("Expected error for oversized file")
	}

	files, _ := db.ListFiles(context.Background(), 123, "", 10)
	if len(files) != 0 {
		t.Error("Expected no record for rejected file")
	}
}

func TestSearchAndSuggest(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.Store(ctx, 123, "physics_optics.pdf", strings.NewReader("a"), "ray optics chapter", nil)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	_, err = m.Store(ctx, 123, "biology.pdf", strings.NewReader("b"), "genetics", nil)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	found, err := m.Search(ctx, 123, "optics")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(found) != 1 || found[0].Filename != "physics_optics.pdf" {
		t.Errorf("Expected optics file, got %+v", found)
	}

	suggested, err := m.Suggest(ctx, 123, "can you send the optics notes")
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if len(suggested) == 0 {
		t.Fatal("Expected a suggestion for optics request")
	}
	if suggested[0].Filename != "physics_optics.pdf" {
		t.Errorf("Expected optics file suggested, got %q", suggested[0].Filename)
	}
}

func TestDelete(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	stored, err := m.Store(ctx, 123, "old.pdf", strings.NewReader("x"), "", nil)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := m.Delete(ctx, 123, stored.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	listed, err := m.List(ctx, 123, "", 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("Expected deactivated file hidden from list, got %d", len(listed))
	}
}

func TestKeywords(t *testing.T) {
	keywords := Keywords("Can you send me the Physics notes for optics?")
	joined := strings.Join(keywords, " ")
	if !strings.Contains(joined, "physics") || !strings.Contains(joined, "optics") {
		t.Errorf("Expected physics and optics keywords, got %v", keywords)
	}
	for _, k := range keywords {
		if k == "the" || k == "for" || k == "can" {
			t.Errorf("Stop word %q should be filtered", k)
		}
	}
}
