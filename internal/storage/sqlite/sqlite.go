package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"studybot/internal/models"
)

// DB is the gorm-backed SQLite implementation of storage.Storage
type DB struct {
	db *gorm.DB
}

// New opens (or creates) the SQLite database at path
func New(path string) (*DB, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database at %s: %w", path, err)
	}
	return &DB{db: gdb}, nil
}

// Initialize migrates the schema
func (d *DB) Initialize(ctx context.Context) error {
	err := d.db.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.Conversation{},
		&models.File{},
		&models.Quiz{},
		&models.QuizAttempt{},
		&models.UserContext{},
		&models.Group{},
		&models.GroupMember{},
		&models.GroupQuizResult{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// UpsertUser creates the user on first contact and refreshes profile fields
// afterwards. A fresh user also gets an empty context row.
func (d *DB) UpsertUser(ctx context.Context, user models.User) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.User
		err := tx.First(&existing, "id = ?", user.ID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			now := time.Now()
			user.CreatedAt = now
			user.LastActive = now
			if user.Status == "" {
				user.Status = "active"
			}
			if user.Preferences == "" {
				user.Preferences = "{}"
			}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("failed to create user %d: %w", user.ID, err)
			}
			uc := models.UserContext{
				UserID:       user.ID,
				ContextData:  "{}",
				SessionStart: now,
				LastUpdated:  now,
			}
			if err := tx.Create(&uc).Error; err != nil {
				return fmt.Errorf("failed to create context for user %d: %w", user.ID, err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("failed to look up user %d: %w", user.ID, err)
		}
		updates := map[string]interface{}{
			"username":      user.Username,
			"first_name":    user.FirstName,
			"last_name":     user.LastName,
			"language_code": user.LanguageCode,
			"last_active":   time.Now(),
		}
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update user %d: %w", user.ID, err)
		}
		return nil
	})
}

// GetUser returns the user or nil when unknown
func (d *DB) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	err := d.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	return &user, nil
}

// TouchUser bumps the message counter and last-active timestamp
func (d *DB) TouchUser(ctx context.Context, userID int64) error {
	err := d.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"total_messages": gorm.Expr("total_messages + 1"),
			"last_active":    time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to touch user %d: %w", userID, err)
	}
	return nil
}

// AddMessage appends a conversation turn and updates the user's context row
func (d *DB) AddMessage(ctx context.Context, userID int64, message, sender, messageType string) error {
	if messageType == "" {
		messageType = "text"
	}
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		turn := models.Conversation{
			UserID:      userID,
			Message:     message,
			Sender:      sender,
			MessageType: messageType,
			ContextData: "{}",
			CreatedAt:   time.Now(),
		}
		if err := tx.Create(&turn).Error; err != nil {
			return fmt.Errorf("failed to add message for user %d: %w", userID, err)
		}
		if sender == models.SenderUser {
			err := tx.Model(&models.UserContext{}).
				Where("user_id = ?", userID).
				Updates(map[string]interface{}{
					"last_query":   message,
					"query_count":  gorm.Expr("query_count + 1"),
					"last_updated": time.Now(),
				}).Error
			if err != nil {
				return fmt.Errorf("failed to update context for user %d: %w", userID, err)
			}
		}
		return nil
	})
}

// GetHistory returns the most recent turns in chronological order
func (d *DB) GetHistory(ctx context.Context, userID int64, limit int) ([]models.Conversation, error) {
	var turns []models.Conversation
	err := d.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&turns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get history for user %d: %w", userID, err)
	}
	// Reverse into chronological order
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// GetUserContext returns the context row or nil when absent
func (d *DB) GetUserContext(ctx context.Context, userID int64) (*models.UserContext, error) {
	var uc models.UserContext
	err := d.db.WithContext(ctx).First(&uc, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get context for user %d: %w", userID, err)
	}
	return &uc, nil
}

// UpdateUserContext updates the provided fields, skipping empty ones
func (d *DB) UpdateUserContext(ctx context.Context, userID int64, topic, contextData, lastQuery string) error {
	updates := map[string]interface{}{"last_updated": time.Now()}
	if topic != "" {
		updates["current_topic"] = topic
	}
	if contextData != "" {
		updates["context_data"] = contextData
	}
	if lastQuery != "" {
		updates["last_query"] = lastQuery
	}
	err := d.db.WithContext(ctx).Model(&models.UserContext{}).
		Where("user_id = ?", userID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update context for user %d: %w", userID, err)
	}
	return nil
}

// AddFile stores a file record
func (d *DB) AddFile(ctx context.Context, file models.File) error {
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now()
	}
	if file.Tags == "" {
		file.Tags = "[]"
	}
	file.Active = true
	if err := d.db.WithContext(ctx).Create(&file).Error; err != nil {
		return fmt.Errorf("failed to add file %s: %w", file.Filename, err)
	}
	return nil
}

// ListFiles returns the user's active files, newest first
func (d *DB) ListFiles(ctx context.Context, userID int64, fileType string, limit int) ([]models.File, error) {
	q := d.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("created_at DESC").
		Limit(limit)
	if fileType != "" {
		q = q.Where("file_type = ?", fileType)
	}
	var files []models.File
	if err := q.Find(&files).Error; err != nil {
		return nil, fmt.Errorf("failed to list files for user %d: %w", userID, err)
	}
	return files, nil
}

// SearchFiles matches the query against filename, description, and tags
func (d *DB) SearchFiles(ctx context.Context, userID int64, query string) ([]models.File, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	var files []models.File
	err := d.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Where("LOWER(filename) LIKE ? OR LOWER(description) LIKE ? OR LOWER(tags) LIKE ?",
			pattern, pattern, pattern).
		Order("created_at DESC").
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search files for user %d: %w", userID, err)
	}
	return files, nil
}

// DeactivateFile soft-deletes a file record
func (d *DB) DeactivateFile(ctx context.Context, userID int64, fileID string) error {
	res := d.db.WithContext(ctx).Model(&models.File{}).
		Where("id = ? AND user_id = ?", fileID, userID).
		Update("active", false)
	if res.Error != nil {
		return fmt.Errorf("failed to deactivate file %s: %w", fileID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("file %s not found for user %d", fileID, userID)
	}
	return nil
}

// FileStats aggregates the user's active files
func (d *DB) FileStats(ctx context.Context, userID int64) (*models.FileStats, error) {
	var rows []struct {
		FileType string
		Count    int
		Size     int64
	}
	err := d.db.WithContext(ctx).Model(&models.File{}).
		Select("file_type, COUNT(*) AS count, COALESCE(SUM(file_size), 0) AS size").
		Where("user_id = ? AND active = ?", userID, true).
		Group("file_type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get file stats for user %d: %w", userID, err)
	}
	stats := &models.FileStats{ByType: make(map[string]int)}
	for _, row := range rows {
		stats.TotalFiles += row.Count
		stats.TotalSize += row.Size
		stats.ByType[row.FileType] = row.Count
	}
	return stats, nil
}

// AddQuiz stores a generated quiz
func (d *DB) AddQuiz(ctx context.Context, quiz models.Quiz) error {
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = time.Now()
	}
	if err := d.db.WithContext(ctx).Create(&quiz).Error; err != nil {
		return fmt.Errorf("failed to add quiz %q: %w", quiz.Title, err)
	}
	return nil
}

// GetQuiz returns the quiz or nil when unknown
func (d *DB) GetQuiz(ctx context.Context, quizID string) (*models.Quiz, error) {
	var quiz models.Quiz
	err := d.db.WithContext(ctx).First(&quiz, "id = ?", quizID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz %s: %w", quizID, err)
	}
	return &quiz, nil
}

// ListQuizzes returns the user's quizzes, newest first
func (d *DB) ListQuizzes(ctx context.Context, userID int64, limit int) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	err := d.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&quizzes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes for user %d: %w", userID, err)
	}
	return quizzes, nil
}

// AddAttempt records a quiz attempt
func (d *DB) AddAttempt(ctx context.Context, attempt models.QuizAttempt) error {
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now()
	}
	if attempt.Answers == "" {
		attempt.Answers = "[]"
	}
	if err := d.db.WithContext(ctx).Create(&attempt).Error; err != nil {
		return fmt.Errorf("failed to add attempt for quiz %s: %w", attempt.QuizID, err)
	}
	return nil
}

// UserStats aggregates activity counters for a user
func (d *DB) UserStats(ctx context.Context, userID int64) (*models.UserStats, error) {
	user, err := d.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	stats := &models.UserStats{
		TotalMessages: user.TotalMessages,
		MemberSince:   user.CreatedAt,
		LastActive:    user.LastActive,
	}

	var fileCount int64
	if err := d.db.WithContext(ctx).Model(&models.File{}).
		Where("user_id = ? AND active = ?", userID, true).
		Count(&fileCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count files for user %d: %w", userID, err)
	}
	stats.FilesUploaded = int(fileCount)

	var quizCount int64
	if err := d.db.WithContext(ctx).Model(&models.Quiz{}).
		Where("user_id = ?", userID).
		Count(&quizCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count quizzes for user %d: %w", userID, err)
	}
	stats.QuizzesMade = int(quizCount)

	var attempt struct {
		Count int
		Avg   float64
	}
	err = d.db.WithContext(ctx).Model(&models.QuizAttempt{}).
		Select("COUNT(*) AS count, COALESCE(AVG(score), 0) AS avg").
		Where("user_id = ?", userID).
		Scan(&attempt).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate attempts for user %d: %w", userID, err)
	}
	stats.QuizAttempts = attempt.Count
	stats.AverageScore = attempt.Avg

	return stats, nil
}

// UpsertGroup registers a group chat, keeping the original admin
func (d *DB) UpsertGroup(ctx context.Context, group models.Group) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Group
		err := tx.First(&existing, "id = ?", group.ID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			group.Active = true
			group.CreatedAt = time.Now()
			if group.Settings == "" {
				group.Settings = "{}"
			}
			if err := tx.Create(&group).Error; err != nil {
				return fmt.Errorf("failed to create group %d: %w", group.ID, err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("failed to look up group %d: %w", group.ID, err)
		}
		err = tx.Model(&models.Group{}).Where("id = ?", group.ID).
			Updates(map[string]interface{}{"title": group.Title, "type": group.Type, "active": true}).Error
		if err != nil {
			return fmt.Errorf("failed to update group %d: %w", group.ID, err)
		}
		return nil
	})
}

// AddGroupMember adds a member or reactivates a previous one
func (d *DB) AddGroupMember(ctx context.Context, groupID, userID int64, role string) error {
	if role == "" {
		role = "member"
	}
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.GroupMember
		err := tx.First(&existing, "group_id = ? AND user_id = ?", groupID, userID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			member := models.GroupMember{
				GroupID:  groupID,
				UserID:   userID,
				Role:     role,
				Active:   true,
				JoinedAt: time.Now(),
			}
			if err := tx.Create(&member).Error; err != nil {
				return fmt.Errorf("failed to add member %d to group %d: %w", userID, groupID, err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("failed to look up member %d in group %d: %w", userID, groupID, err)
		}
		err = tx.Model(&models.GroupMember{}).
			Where("group_id = ? AND user_id = ?", groupID, userID).
			Updates(map[string]interface{}{"active": true, "joined_at": time.Now()}).Error
		if err != nil {
			return fmt.Errorf("failed to reactivate member %d in group %d: %w", userID, groupID, err)
		}
		return nil
	})
}

// AddGroupResults stores the final scores of a group quiz in one batch
func (d *DB) AddGroupResults(ctx context.Context, results []models.GroupQuizResult) error {
	if len(results) == 0 {
		return nil
	}
	now := time.Now()
	for i := range results {
		if results[i].CreatedAt.IsZero() {
			results[i].CreatedAt = now
		}
	}
	if err := d.db.WithContext(ctx).Create(&results).Error; err != nil {
		return fmt.Errorf("failed to store group quiz results: %w", err)
	}
	return nil
}

// GroupLeaderboard ranks members by average percentage, then quiz count
func (d *DB) GroupLeaderboard(ctx context.Context, groupID int64, limit int) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	err := d.db.WithContext(ctx).Model(&models.GroupQuizResult{}).
		Select("user_id, first_name, AVG(percentage) AS average_pct, COUNT(*) AS quizzes_played").
		Where("group_id = ?", groupID).
		Group("user_id, first_name").
		Order("average_pct DESC, quizzes_played DESC").
		Limit(limit).
		Scan(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard for group %d: %w", groupID, err)
	}
	return entries, nil
}

// ClearHistory wipes the user's conversation turns and resets their context
func (d *DB) ClearHistory(ctx context.Context, userID int64) (int64, error) {
	var removed int64
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ?", userID).Delete(&models.Conversation{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return tx.Model(&models.UserContext{}).
			Where("user_id = ?", userID).
			Updates(map[string]interface{}{
				"current_topic": "",
				"context_data":  "{}",
				"last_query":    "",
				"query_count":   0,
				"last_updated":  time.Now(),
			}).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to clear history for user %d: %w", userID, err)
	}
	return removed, nil
}

// PruneConversations deletes user turns older than the cutoff
func (d *DB) PruneConversations(ctx context.Context, olderThan time.Time) (int64, error) {
	res := d.db.WithContext(ctx).
		Where("created_at < ? AND sender = ?", olderThan, models.SenderUser).
		Delete(&models.Conversation{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune conversations: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Close closes the underlying connection pool
func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get raw DB connection: %w", err)
	}
	return sqlDB.Close()
}
