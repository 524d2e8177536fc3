package stubs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"studybot/internal/models"
)

// MockDB is an in-memory implementation of the Storage interface for testing
type MockDB struct {
	mu       sync.RWMutex
	users    map[int64]models.User
	contexts map[int64]models.UserContext
	turns    []models.Conversation
	files    map[string]models.File
	quizzes  map[string]models.Quiz
	attempts []models.QuizAttempt
	groups   map[int64]models.Group
	members  []models.GroupMember
	results  []models.GroupQuizResult
	nextID   uint
}

// NewMockDB creates a new mock database
func NewMockDB() *MockDB {
	return &MockDB{
		users:    make(map[int64]models.User),
		contexts: make(map[int64]models.UserContext),
		files:    make(map[string]models.File),
		quizzes:  make(map[string]models.Quiz),
		groups:   make(map[int64]models.Group),
	}
}

// Initialize is a no-op for the mock
func (m *MockDB) Initialize(ctx context.Context) error { return nil }

func (m *MockDB) UpsertUser(ctx context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if existing, ok := m.users[user.ID]; ok {
		existing.Username = user.Username
		existing.FirstName = user.FirstName
		existing.LastName = user.LastName
		existing.LanguageCode = user.LanguageCode
		existing.LastActive = now
		m.users[user.ID] = existing
		return nil
	}
	user.CreatedAt = now
	user.LastActive = now
	if user.Status == "" {
		user.Status = "active"
	}
	m.users[user.ID] = user
	m.contexts[user.ID] = models.UserContext{
		UserID:       user.ID,
		ContextData:  "{}",
		SessionStart: now,
		LastUpdated:  now,
	}
	return nil
}

func (m *MockDB) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (m *MockDB) TouchUser(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return nil
	}
	user.TotalMessages++
	user.LastActive = time.Now()
	m.users[userID] = user
	return nil
}

func (m *MockDB) AddMessage(ctx context.Context, userID int64, message, sender, messageType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if messageType == "" {
		messageType = "text"
	}
	m.nextID++
	m.turns = append(m.turns, models.Conversation{
		ID:          m.nextID,
		UserID:      userID,
		Message:     message,
		Sender:      sender,
		MessageType: messageType,
		ContextData: "{}",
		CreatedAt:   time.Now(),
	})
	if sender == models.SenderUser {
		uc := m.contexts[userID]
		uc.UserID = userID
		uc.LastQuery = message
		uc.QueryCount++
		uc.LastUpdated = time.Now()
		m.contexts[userID] = uc
	}
	return nil
}

func (m *MockDB) GetHistory(ctx context.Context, userID int64, limit int) ([]models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var turns []models.Conversation
	for _, turn := range m.turns {
		if turn.UserID == userID {
			turns = append(turns, turn)
		}
	}
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns, nil
}

func (m *MockDB) GetUserContext(ctx context.Context, userID int64) (*models.UserContext, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	uc, ok := m.contexts[userID]
	if !ok {
		return nil, nil
	}
	return &uc, nil
}

func (m *MockDB) UpdateUserContext(ctx context.Context, userID int64, topic, contextData, lastQuery string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	uc := m.contexts[userID]
	uc.UserID = userID
	if topic != "" {
		uc.CurrentTopic = topic
	}
	if contextData != "" {
		uc.ContextData = contextData
	}
	if lastQuery != "" {
		uc.LastQuery = lastQuery
	}
	uc.LastUpdated = time.Now()
	m.contexts[userID] = uc
	return nil
}

func (m *MockDB) AddFile(ctx context.Context, file models.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now()
	}
	if file.Tags == "" {
		file.Tags = "[]"
	}
	file.Active = true
	m.files[file.ID] = file
	return nil
}

func (m *MockDB) ListFiles(ctx context.Context, userID int64, fileType string, limit int) ([]models.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var files []models.File
	for _, f := range m.files {
		if f.UserID != userID || !f.Active {
			continue
		}
		if fileType != "" && f.FileType != fileType {
			continue
		}
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].CreatedAt.After(files[j].CreatedAt)
	})
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

func (m *MockDB) SearchFiles(ctx context.Context, userID int64, query string) ([]models.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q := strings.ToLower(query)
	var files []models.File
	for _, f := range m.files {
		if f.UserID != userID || !f.Active {
			continue
		}
		if strings.Contains(strings.ToLower(f.Filename), q) ||
			strings.Contains(strings.ToLower(f.Description), q) ||
			strings.Contains(strings.ToLower(f.Tags), q) {
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].CreatedAt.After(files[j].CreatedAt)
	})
	return files, nil
}

func (m *MockDB) DeactivateFile(ctx context.Context, userID int64, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.files[fileID]
	if !ok || f.UserID != userID {
		return fmt.Errorf("file %s not found for user %d", fileID, userID)
	}
	f.Active = false
	m.files[fileID] = f
	return nil
}

func (m *MockDB) FileStats(ctx context.Context, userID int64) (*models.FileStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &models.FileStats{ByType: make(map[string]int)}
	for _, f := range m.files {
		if f.UserID != userID || !f.Active {
			continue
		}
		stats.TotalFiles++
		stats.TotalSize += f.FileSize
		stats.ByType[f.FileType]++
	}
	return stats, nil
}

func (m *MockDB) AddQuiz(ctx context.Context, quiz models.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = time.Now()
	}
	m.quizzes[quiz.ID] = quiz
	return nil
}

func (m *MockDB) GetQuiz(ctx context.Context, quizID string) (*models.Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	quiz, ok := m.quizzes[quizID]
	if !ok {
		return nil, nil
	}
	return &quiz, nil
}

func (m *MockDB) ListQuizzes(ctx context.Context, userID int64, limit int) ([]models.Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var quizzes []models.Quiz
	for _, q := range m.quizzes {
		if q.UserID == userID {
			quizzes = append(quizzes, q)
		}
	}
	sort.Slice(quizzes, func(i, j int) bool {
		return quizzes[i].CreatedAt.After(quizzes[j].CreatedAt)
	})
	if limit > 0 && len(quizzes) > limit {
		quizzes = quizzes[:limit]
	}
	return quizzes, nil
}

func (m *MockDB) AddAttempt(ctx context.Context, attempt models.QuizAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now()
	}
	m.attempts = append(m.attempts, attempt)
	return nil
}

func (m *MockDB) UserStats(ctx context.Context, userID int64) (*models.UserStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	stats := &models.UserStats{
		TotalMessages: user.TotalMessages,
		MemberSince:   user.CreatedAt,
		LastActive:    user.LastActive,
	}
	for _, f := range m.files {
		if f.UserID == userID && f.Active {
			stats.FilesUploaded++
		}
	}
	for _, q := range m.quizzes {
		if q.UserID == userID {
			stats.QuizzesMade++
		}
	}
	var total int
	for _, a := range m.attempts {
		if a.UserID == userID {
			stats.QuizAttempts++
			total += a.Score
		}
	}
	if stats.QuizAttempts > 0 {
		stats.AverageScore = float64(total) / float64(stats.QuizAttempts)
	}
	return stats, nil
}

func (m *MockDB) UpsertGroup(ctx context.Context, group models.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.groups[group.ID]; ok {
		existing.Title = group.Title
		existing.Type = group.Type
		existing.Active = true
		m.groups[group.ID] = existing
		return nil
	}
	group.Active = true
	group.CreatedAt = time.Now()
	if group.Settings == "" {
		group.Settings = "{}"
	}
	m.groups[group.ID] = group
	return nil
}

func (m *MockDB) AddGroupMember(ctx context.Context, groupID, userID int64, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if role == "" {
		role = "member"
	}
	for i, member := range m.members {
		if member.GroupID == groupID && member.UserID == userID {
			m.members[i].Active = true
			m.members[i].JoinedAt = time.Now()
			return nil
		}
	}
	m.nextID++
	m.members = append(m.members, models.GroupMember{
		ID:       m.nextID,
		GroupID:  groupID,
		UserID:   userID,
		Role:     role,
		Active:   true,
		JoinedAt: time.Now(),
	})
	return nil
}

func (m *MockDB) AddGroupResults(ctx context.Context, results []models.GroupQuizResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for _, r := range results {
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		m.results = append(m.results, r)
	}
	return nil
}

func (m *MockDB) GroupLeaderboard(ctx context.Context, groupID int64, limit int) ([]models.LeaderboardEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type agg struct {
		name  string
		total float64
		count int
	}
	byUser := make(map[int64]*agg)
	for _, r := range m.results {
		if r.GroupID != groupID {
			continue
		}
		a, ok := byUser[r.UserID]
		if !ok {
			a = &agg{name: r.FirstName}
			byUser[r.UserID] = a
		}
		a.total += r.Percentage
		a.count++
	}

	var entries []models.LeaderboardEntry
	for userID, a := range byUser {
		entries = append(entries, models.LeaderboardEntry{
			UserID:        userID,
			FirstName:     a.name,
			AveragePct:    a.total / float64(a.count),
			QuizzesPlayed: a.count,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].AveragePct != entries[j].AveragePct {
			return entries[i].AveragePct > entries[j].AveragePct
		}
		return entries[i].QuizzesPlayed > entries[j].QuizzesPlayed
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *MockDB) ClearHistory(ctx context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var kept []models.Conversation
	var removed int64
	for _, turn := range m.turns {
		if turn.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, turn)
	}
	m.turns = kept

	if uc, ok := m.contexts[userID]; ok {
		uc.CurrentTopic = ""
		uc.ContextData = "{}"
		uc.LastQuery = ""
		uc.QueryCount = 0
		uc.LastUpdated = time.Now()
		m.contexts[userID] = uc
	}
	return removed, nil
}

func (m *MockDB) PruneConversations(ctx context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var kept []models.Conversation
	var removed int64
	for _, turn := range m.turns {
		if turn.Sender == models.SenderUser && turn.CreatedAt.Before(olderThan) {
			removed++
			continue
		}
		kept = append(kept, turn)
	}
	m.turns = kept
	return removed, nil
}

// Close does nothing for the mock
func (m *MockDB) Close() error { return nil }
