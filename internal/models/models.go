package models

import "time"

// User is a Telegram user known to the bot
type User struct {
	ID            int64  `gorm:"primaryKey"`
	Username      string `gorm:"type:varchar(255)"`
	FirstName     string `gorm:"type:varchar(255)"`
	LastName      string `gorm:"type:varchar(255)"`
	LanguageCode  string `gorm:"type:varchar(16)"`
	TotalMessages int
	Preferences   string `gorm:"type:text;default:'{}'"`
	Status        string `gorm:"type:varchar(32);default:'active'"`
	CreatedAt     time.Time
	LastActive    time.Time
}

// Sender values for conversation turns
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// Conversation is a single turn of a user/bot dialog
type Conversation struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	UserID      int64  `gorm:"index;not null"`
	Message     string `gorm:"type:text"`
	Sender      string `gorm:"type:varchar(8);not null"`
	MessageType string `gorm:"type:varchar(32);default:'text'"`
	ContextData string `gorm:"type:text;default:'{}'"`
	CreatedAt   time.Time
}

// File categories used for storage subdirectories
const (
	FileTypePDF      = "pdf"
	FileTypeImage    = "image"
	FileTypeDocument = "document"
	FileTypeAudio    = "audio"
	FileTypeVideo    = "video"
	FileTypeOther    = "other"
)

// File is a stored upload
type File struct {
	ID          string `gorm:"primaryKey;type:uuid"`
	UserID      int64  `gorm:"index;not null"`
	Filename    string `gorm:"type:varchar(255);not null"`
	Filepath    string `gorm:"type:varchar(512);not null"`
	FileType    string `gorm:"type:varchar(16);index"`
	FileSize    int64
	Description string `gorm:"type:text"`
	Tags        string `gorm:"type:text;default:'[]'"`
	SHA256      string `gorm:"type:varchar(64);index"`
	Active      bool   `gorm:"default:true"`
	CreatedAt   time.Time
}

// Question is a single multiple-choice question.
// Answer holds the letter of the correct option ("A".."D").
type Question struct {
	Text        string   `json:"question"`
	Options     []string `json:"options"`
	Answer      string   `json:"correct_answer"`
	Explanation string   `json:"explanation,omitempty"`
	Difficulty  string   `json:"difficulty,omitempty"`
}

// Quiz is a generated multiple-choice quiz. Questions are stored as JSON.
type Quiz struct {
	ID             string `gorm:"primaryKey;type:uuid"`
	UserID         int64  `gorm:"index;not null"`
	Title          string `gorm:"type:varchar(255)"`
	Questions      string `gorm:"type:text"`
	TotalQuestions int
	SourceFile     string `gorm:"type:varchar(512)"`
	Subject        string `gorm:"type:varchar(64)"`
	Difficulty     string `gorm:"type:varchar(16);default:'medium'"`
	CreatedAt      time.Time
}

// QuizAttempt records one run of a quiz by a user
type QuizAttempt struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	QuizID         string `gorm:"index;type:uuid;not null"`
	UserID         int64  `gorm:"index;not null"`
	Answers        string `gorm:"type:text;default:'[]'"`
	Score          int
	TotalQuestions int
	TimeTaken      int
	CreatedAt      time.Time
}

// UserContext is the rolling conversational context for a user
type UserContext struct {
	UserID       int64  `gorm:"primaryKey"`
	CurrentTopic string `gorm:"type:varchar(64)"`
	ContextData  string `gorm:"type:text;default:'{}'"`
	LastQuery    string `gorm:"type:text"`
	QueryCount   int
	SessionStart time.Time
	LastUpdated  time.Time
}

// Group is a Telegram group chat the bot was added to
type Group struct {
	ID          int64  `gorm:"primaryKey"`
	Title       string `gorm:"type:varchar(255)"`
	Type        string `gorm:"type:varchar(32)"`
	AdminUserID int64
	Active      bool   `gorm:"default:true"`
	Settings    string `gorm:"type:text;default:'{}'"`
	CreatedAt   time.Time
}

// GroupMember is a user's membership in a group
type GroupMember struct {
	ID       uint  `gorm:"primaryKey;autoIncrement"`
	GroupID  int64 `gorm:"index;not null"`
	UserID   int64 `gorm:"index;not null"`
	Role     string `gorm:"type:varchar(32);default:'member'"`
	Active   bool   `gorm:"default:true"`
	JoinedAt time.Time
}

// GroupQuizResult is one participant's final score in a group quiz
type GroupQuizResult struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	GroupID        int64  `gorm:"index;not null"`
	QuizTitle      string `gorm:"type:varchar(255)"`
	UserID         int64  `gorm:"index;not null"`
	FirstName      string `gorm:"type:varchar(255)"`
	Score          int
	TotalQuestions int
	Percentage     float64
	CreatedAt      time.Time
}

// UserStats is an aggregate view over a user's activity
type UserStats struct {
	TotalMessages int
	FilesUploaded int
	QuizzesMade   int
	QuizAttempts  int
	AverageScore  float64
	MemberSince   time.Time
	LastActive    time.Time
}

// FileStats summarizes a user's stored files
type FileStats struct {
	TotalFiles int
	TotalSize  int64
	ByType     map[string]int
}

// LeaderboardEntry is one row of a group leaderboard
type LeaderboardEntry struct {
	UserID        int64
	FirstName     string
	AveragePct    float64
	QuizzesPlayed int
}
