// Package files stores user uploads on disk, categorized by type, and keeps
// their metadata in storage.
package files

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"studybot/internal/models"
	"studybot/internal/storage"
)

// Extensions common in study material that the platform mime table may
// not know about
func init() {
	for ext, mimeType := range map[string]string{
		".mp3":  "audio/mpeg",
		".wav":  "audio/wav",
		".ogg":  "audio/ogg",
		".mp4":  "video/mp4",
		".mkv":  "video/x-matroska",
		".doc":  "application/msword",
		".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		".txt":  "text/plain",
		".rtf":  "application/rtf",
	} {
		mime.AddExtensionType(ext, mimeType)
	}
}

// Manager stores uploads under baseDir/<type>/ and records them in storage
type Manager struct {
	baseDir     string
	maxFileSize int64
	db          storage.Storage
	logger      *zap.Logger
}

// NewManager creates a file manager and its type subdirectories
func NewManager(baseDir string, maxFileSize int64, db storage.Storage, logger *zap.Logger) (*Manager, error) {
	for _, sub := range []string{
		models.FileTypePDF, models.FileTypeImage, models.FileTypeDocument,
		models.FileTypeAudio, models.FileTypeVideo, models.FileTypeOther,
	} {
		if err := os.MkdirAll(filepath.Join(baseDir, sub+"s"), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create files directory: %w", err)
		}
	}
	return &Manager{
		baseDir:     baseDir,
		maxFileSize: maxFileSize,
		db:          db,
		logger:      logger,
	}, nil
}

// FileType maps a filename to a storage category by its MIME type
func FileType(filename string) string {
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	switch {
	case mimeType == "":
		return models.FileTypeOther
	case strings.HasPrefix(mimeType, "image/"):
		return models.FileTypeImage
	case mimeType == "application/pdf":
		return models.FileTypePDF
	case strings.HasPrefix(mimeType, "audio/"):
		return models.FileTypeAudio
	case strings.HasPrefix(mimeType, "video/"):
		return models.FileTypeVideo
	case mimeType == "application/msword",
		strings.HasPrefix(mimeType, "application/vnd.openxmlformats-officedocument.wordprocessingml"),
		strings.HasPrefix(mimeType, "text/"),
		mimeType == "application/rtf":
		return models.FileTypeDocument
	default:
		return models.FileTypeOther
	}
}

// SafeFilename builds a unique on-disk name: <userID>_<timestamp>_<clean name>
func SafeFilename(userID int64, original string) string {
	ext := filepath.Ext(original)
	name := strings.TrimSuffix(original, ext)

	var clean strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			clean.WriteRune(r)
		case r == ' ':
			clean.WriteRune('_')
		}
	}

	timestamp := time.Now().Format("20060102_150405")
	return fmt.Sprintf("%d_%s_%s%s", userID, timestamp, clean.String(), ext)
}

// Store copies content into the managed tree and records it in storage.
// It returns the stored file record.
func (m *Manager) Store(ctx context.Context, userID int64, originalName string, content io.Reader, description string, tags []string) (*models.File, error) {
	fileType := FileType(originalName)
	targetPath := filepath.Join(m.baseDir, fileType+"s", SafeFilename(userID, originalName))

	out, err := os.Create(targetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", targetPath, err)
	}
	defer out.Close()

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(out, hasher), io.LimitReader(content, m.maxFileSize+1))
	if err != nil {
		os.Remove(targetPath)
		return nil, fmt.Errorf("failed to write %s: %w", targetPath, err)
	}
	if size > m.maxFileSize {
		os.Remove(targetPath)
		return nil, fmt.Errorf("file %s exceeds maximum size of %d bytes", originalName, m.maxFileSize)
	}

	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		tagsJSON = []byte("[]")
	}

	record := models.File{
		ID:          uuid.New().String(),
		UserID:      userID,
		Filename:    originalName,
		Filepath:    targetPath,
		FileType:    fileType,
		FileSize:    size,
		Description: description,
		Tags:        string(tagsJSON),
		SHA256:      hex.EncodeToString(hasher.Sum(nil)),
		Active:      true,
		CreatedAt:   time.Now(),
	}
	if err := m.db.AddFile(ctx, record); err != nil {
		os.Remove(targetPath)
		return nil, err
	}

	m.logger.Info("File stored",
		zap.Int64("user_id", userID),
		zap.String("filename", originalName),
		zap.String("file_type", fileType),
		zap.Int64("size", size),
	)
	return &record, nil
}

// List returns the user's active files, newest first
func (m *Manager) List(ctx context.Context, userID int64, fileType string, limit int) ([]models.File, error) {
	return m.db.ListFiles(ctx, userID, fileType, limit)
}

// Search matches query words against the user's file metadata
func (m *Manager) Search(ctx context.Context, userID int64, query string) ([]models.File, error) {
	return m.db.SearchFiles(ctx, userID, query)
}

// Suggest returns up to five files matching keywords extracted from free text
func (m *Manager) Suggest(ctx context.Context, userID int64, text string) ([]models.File, error) {
	seen := make(map[string]bool)
	var suggestions []models.File

	for _, keyword := range Keywords(text) {
		matches, err := m.db.SearchFiles(ctx, userID, keyword)
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			if seen[match.ID] {
				continue
			}
			seen[match.ID] = true
			suggestions = append(suggestions, match)
			if len(suggestions) == 5 {
				return suggestions, nil
			}
		}
	}
	return suggestions, nil
}

// Delete soft-deletes the record; the file stays on disk
func (m *Manager) Delete(ctx context.Context, userID int64, fileID string) error {
	return m.db.DeactivateFile(ctx, userID, fileID)
}

// Stats summarizes the user's stored files
func (m *Manager) Stats(ctx context.Context, userID int64) (*models.FileStats, error) {
	return m.db.FileStats(ctx, userID)
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "have": true, "has": true,
	"had": true, "do": true, "does": true, "did": true, "will": true,
	"would": true, "could": true, "should": true, "may": true,
	"might": true, "can": true, "must": true,
}

// Keywords extracts up to ten search terms from free text
func Keywords(text string) []string {
	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:")
		if len(word) <= 2 || stopWords[word] {
			continue
		}
		keywords = append(keywords, word)
		if len(keywords) == 10 {
			break
		}
	}
	return keywords
}
