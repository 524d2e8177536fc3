package storage

import (
	"context"
	"time"

	"studybot/internal/models"
)

// Storage defines the interface for data storage operations
type Storage interface {
	// User operations
	UpsertUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, userID int64) (*models.User, error)

	// TouchUser bumps the user's message counter and last-active timestamp
	TouchUser(ctx context.Context, userID int64) error

	// Conversation operations

	// AddMessage appends a turn to the user's conversation history
	AddMessage(ctx context.Context, userID int64, message, sender, messageType string) error

	// GetHistory returns up to limit most recent turns in chronological order
	GetHistory(ctx context.Context, userID int64, limit int) ([]models.Conversation, error)

	// Context operations
	GetUserContext(ctx context.Context, userID int64) (*models.UserContext, error)
	UpdateUserContext(ctx context.Context, userID int64, topic, contextData, lastQuery string) error

	// File operations
	AddFile(ctx context.Context, file models.File) error
	ListFiles(ctx context.Context, userID int64, fileType string, limit int) ([]models.File, error)

	// SearchFiles matches query against filename, description, and tags of
	// the user's active files
	SearchFiles(ctx context.Context, userID int64, query string) ([]models.File, error)
	DeactivateFile(ctx context.Context, userID int64, fileID string) error
	FileStats(ctx context.Context, userID int64) (*models.FileStats, error)

	// Quiz operations
	AddQuiz(ctx context.Context, quiz models.Quiz) error
	GetQuiz(ctx context.Context, quizID string) (*models.Quiz, error)
	ListQuizzes(ctx context.Context, userID int64, limit int) ([]models.Quiz, error)
	AddAttempt(ctx context.Context, attempt models.QuizAttempt) error
	UserStats(ctx context.Context, userID int64) (*models.UserStats, error)

	// Group operations
	UpsertGroup(ctx context.Context, group models.Group) error
	AddGroupMember(ctx context.Context, groupID, userID int64, role string) error
	AddGroupResults(ctx context.Context, results []models.GroupQuizResult) error

	// GroupLeaderboard ranks members by average percentage, then by the
	// number of quizzes played
	GroupLeaderboard(ctx context.Context, groupID int64, limit int) ([]models.LeaderboardEntry, error)

	// ClearHistory deletes the user's conversation turns and resets their
	// rolling context, reporting how many turns were removed
	ClearHistory(ctx context.Context, userID int64) (int64, error)

	// PruneConversations deletes turns older than the cutoff and reports how
	// many rows were removed
	PruneConversations(ctx context.Context, olderThan time.Time) (int64, error)

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}
