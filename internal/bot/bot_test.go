package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"studybot/internal/config"
	"studybot/internal/files"
	"studybot/internal/intent"
	"studybot/internal/models"
	"studybot/internal/quiz"
	"studybot/internal/storage/stubs"
)

// Note: tgbotapi.BotAPI cannot easily be mocked, so tests exercise the
// internal logic with a nil API and verify side effects in storage.

const stubQuestionJSON = `[
	{"question": "What is 2+2?", "options": ["3", "4", "5", "6"], "correct_answer": "B", "explanation": "Addition"},
	{"question": "Unit of force?", "options": ["Joule", "Watt", "Newton", "Pascal"], "correct_answer": "C"}
]`

// stubAI is a canned AIClient for tests
type stubAI struct{}

func (stubAI) Reply(ctx context.Context, message string, history []models.Conversation) (string, error) {
	return "stub reply", nil
}

func (stubAI) GenerateQuestions(ctx context.Context, text string, count int, subject string) (string, error) {
	return stubQuestionJSON, nil
}

func (stubAI) SolveDoubt(ctx context.Context, ocrText string) (string, error) {
	return "stub solution", nil
}

func (stubAI) DescribeImage(ctx context.Context, imageData []byte) (string, error) {
	return "stub vision answer", nil
}

func newTestBot(t *testing.T) (*Bot, *stubs.MockDB) {
	t.Helper()

	db := stubs.NewMockDB()
	if err := db.Initialize(context.Background()); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}

	cfg := &config.Config{
		MaxQuizQuestions:   10,
		QuizTimeLimit:      30,
		MaxHistoryMessages: 100,
		ContextWindowSize:  10,
		MaxFileSize:        1024 * 1024,
		AdminUserIDs:       []int64{777},
	}

	fileManager, err := files.NewManager(t.TempDir(), cfg.MaxFileSize, db, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create file manager: %v", err)
	}

	return &Bot{
		api:        nil, // Not needed for internal logic tests
		db:         db,
		cfg:        cfg,
		ai:         stubAI{},
		classifier: intent.NewClassifier(),
		files:      fileManager,
		quizzes:    quiz.NewGenerator(stubAI{}, cfg.MaxQuizQuestions, zap.NewNop()),
		logger:     zap.NewNop(),
		states:     make(map[int64]*ConversationState),
		sessions:   make(map[int64]*groupRun),
	}, db
}

func privateMessage(userID, chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID, FirstName: "Amit"},
		Chat: &tgbotapi.Chat{ID: chatID, Type: "private"},
		Text: text,
	}
}

func TestTextMessageStoresBothTurns(t *testing.T) {
	bot, db := newTestBot(t)
	ctx := context.Background()

	bot.handleText(ctx, privateMessage(123, 456, "what is entropy"))

	history, err := db.GetHistory(ctx, 123, 10)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected user and bot turns, got %d", len(history))
	}
	if history[0].Sender != models.SenderUser || history[0].Message != "what is entropy" {
		t.Errorf("Unexpected first turn: %+v", history[0])
	}
	if history[1].Sender != models.SenderBot || history[1].Message != "stub reply" {
		t.Errorf("Unexpected second turn: %+v", history[1])
	}

	uc, err := db.GetUserContext(ctx, 123)
	if err != nil {
		t.Fatalf("GetUserContext failed: %v", err)
	}
	if uc.LastQuery != "what is entropy" {
		t.Errorf("Expected last query recorded, got %q", uc.LastQuery)
	}
}

func TestFileRequestListsStoredFiles(t *testing.T) {
	bot, db := newTestBot(t)
	ctx := context.Background()

	err := db.AddFile(ctx, models.File{
		ID: "f1", UserID: 123, Filename: "optics_notes.pdf",
		FileType: models.FileTypePDF, Active: true, CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("AddFile failed: %v", err)
	}

	bot.handleText(ctx, privateMessage(123, 456, "send me optics notes"))

	history, err := db.GetHistory(ctx, 123, 10)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	reply := history[len(history)-1]
	if reply.Sender != models.SenderBot {
		t.Fatalf("Expected bot reply, got %+v", reply)
	}
	if !strings.Contains(reply.Message, "optics_notes.pdf") {
		t.Errorf("Expected file listed in reply, got %q", reply.Message)
	}
}

func TestThanksGetsSurpriseLink(t *testing.T) {
	bot, db := newTestBot(t)
	ctx := context.Background()

	bot.handleText(ctx, privateMessage(123, 456, "thanks a lot"))

	history, _ := db.GetHistory(ctx, 123, 10)
	reply := history[len(history)-1]
	if !strings.Contains(reply.Message, "https://youtu.be/") {
		t.Errorf("Expected surprise link in thanks reply, got %q", reply.Message)
	}
}

func TestQuizConversationFlow(t *testing.T) {
	bot, db := newTestBot(t)
	ctx := context.Background()

	if err := db.UpsertUser(ctx, models.User{ID: 123, FirstName: "Amit"}); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}

	// /quiz opens the conversation
	bot.handleQuizStart(ctx, privateMessage(123, 456, "/quiz"))

	state, ok := bot.getState(123)
	if !ok || state.Command != "quiz" || state.Step != 1 {
		t.Fatalf("Expected quiz conversation at step 1, got %+v", state)
	}

	// Topic text triggers generation and starts the run
	bot.handleQuizConversation(ctx, privateMessage(123, 456, "thermodynamics"), state)

	state, ok = bot.getState(123)
	if !ok || state.Command != "quiz_run" || state.Step != 0 {
		t.Fatalf("Expected quiz_run at step 0, got %+v", state)
	}

	quizzes, err := db.ListQuizzes(ctx, 123, 10)
	if err != nil || len(quizzes) != 1 {
		t.Fatalf("Expected stored quiz, got %v %v", quizzes, err)
	}
	questions, err := quiz.DecodeQuestions(&quizzes[0])
	if err != nil {
		t.Fatalf("DecodeQuestions failed: %v", err)
	}

	// Answer every question correctly
	for i, q := range questions {
		query := &tgbotapi.CallbackQuery{
			ID:      "cb",
			From:    &tgbotapi.User{ID: 123, FirstName: "Amit"},
			Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 456, Type: "private"}},
			Data:    fmt.Sprintf("ans:%d:%s", i, q.Answer),
		}
		bot.handleAnswerCallback(ctx, query)
	}

	// Finished: state cleared, attempt recorded with full score
	if _, ok := bot.getState(123); ok {
		t.Error("Expected state cleared after last question")
	}
	stats, err := db.UserStats(ctx, 123)
	if err != nil {
		t.Fatalf("UserStats failed: %v", err)
	}
	if stats.QuizAttempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", stats.QuizAttempts)
	}
	if stats.AverageScore != float64(len(questions)) {
		t.Errorf("Expected average score %d, got %v", len(questions), stats.AverageScore)
	}
}

func TestAnswerCallbackIgnoresStaleButtons(t *testing.T) {
	bot, db := newTestBot(t)
	ctx := context.Background()

	bot.handleQuizStart(ctx, privateMessage(123, 456, "/quiz"))
	state, _ := bot.getState(123)
	bot.handleQuizConversation(ctx, privateMessage(123, 456, "algebra"), state)

	quizzes, _ := db.ListQuizzes(ctx, 123, 1)
	questions, _ := quiz.DecodeQuestions(&quizzes[0])

	// Press a button for question 1 while question 0 is active
	query := &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: 123},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 456, Type: "private"}},
		Data:    fmt.Sprintf("ans:1:%s", questions[1].Answer),
	}
	bot.handleAnswerCallback(ctx, query)

	state, ok := bot.getState(123)
	if !ok || state.Step != 0 {
		t.Errorf("Expected step unchanged for stale button, got %+v", state)
	}
}

func TestAnswerCallbackConcurrentPressesScoreOnce(t *testing.T) {
	bot, db := newTestBot(t)
	ctx := context.Background()

	bot.handleQuizStart(ctx, privateMessage(123, 456, "/quiz"))
	state, _ := bot.getState(123)
	bot.handleQuizConversation(ctx, privateMessage(123, 456, "optics"), state)

	quizzes, _ := db.ListQuizzes(ctx, 123, 1)
	questions, _ := quiz.DecodeQuestions(&quizzes[0])

	query := &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: 123},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 456, Type: "private"}},
		Data:    fmt.Sprintf("ans:0:%s", questions[0].Answer),
	}

	// Double-click on the same answer button
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bot.handleAnswerCallback(ctx, query)
		}()
	}
	wg.Wait()

	state, ok := bot.getState(123)
	if !ok {
		t.Fatal("Expected quiz still running")
	}
	if state.Step != 1 {
		t.Errorf("Expected exactly one advance, got step %d", state.Step)
	}
	if score, _ := state.Data["score"].(int); score != 1 {
		t.Errorf("Expected the press counted once, got score %d", score)
	}
}

func TestAnswerCallbackMissingQuiz(t *testing.T) {
	bot, _ := newTestBot(t)
	ctx := context.Background()

	bot.setState(123, &ConversationState{
		Command: "quiz_run",
		Step:    0,
		Data:    map[string]interface{}{"quiz_id": "ghost", "score": 0},
	})

	query := &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: 123},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 456, Type: "private"}},
		Data:    "ans:0:A",
	}
	bot.handleAnswerCallback(ctx, query)

	if _, ok := bot.getState(123); ok {
		t.Error("Expected state cleared when the quiz no longer exists")
	}
}

func TestMemoryClearCallback(t *testing.T) {
	bot, db := newTestBot(t)
	ctx := context.Background()

	bot.handleText(ctx, privateMessage(123, 456, "hello there, tell me about algebra"))
	history, _ := db.GetHistory(ctx, 123, 10)
	if len(history) == 0 {
		t.Fatal("Expected history before clearing")
	}

	query := &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: 123},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 456, Type: "private"}},
		Data:    "mem:clear",
	}
	bot.handleMemoryCallback(ctx, query)

	history, _ = db.GetHistory(ctx, 123, 10)
	if len(history) != 0 {
		t.Errorf("Expected empty history after clear, got %d turns", len(history))
	}
}

func TestGroupQuizFlow(t *testing.T) {
	bot, db := newTestBot(t)
	ctx := context.Background()
	groupID := int64(-100500)

	// The host needs a quiz first
	bot.handleQuizStart(ctx, privateMessage(123, 456, "/quiz"))
	state, _ := bot.getState(123)
	bot.handleQuizConversation(ctx, privateMessage(123, 456, "gravity"), state)
	bot.clearState(123)

	groupMsg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: 123, FirstName: "Amit"},
		Chat: &tgbotapi.Chat{ID: groupID, Type: "group", Title: "Study Group"},
		Text: "/groupquiz",
	}
	bot.handleGroupQuizStart(ctx, groupMsg)

	bot.sessionsMu.RLock()
	run, ok := bot.sessions[groupID]
	bot.sessionsMu.RUnlock()
	if !ok {
		t.Fatal("Expected a lobby session")
	}
	if run.initiatorID != 123 {
		t.Errorf("Expected initiator 123, got %d", run.initiatorID)
	}

	// Players join via callback
	join := func(userID int64, name string) {
		bot.handleGroupQuizCallback(ctx, &tgbotapi.CallbackQuery{
			ID:      "cb",
			From:    &tgbotapi.User{ID: userID, FirstName: name},
			Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: groupID, Type: "group"}},
			Data:    "gq:join",
		})
	}
	join(123, "Amit")
	join(200, "Priya")
	if run.session.PlayerCount() != 2 {
		t.Fatalf("Expected 2 players, got %d", run.session.PlayerCount())
	}

	// Drive the session directly instead of the timed loop
	if err := run.session.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	questions := run.session.Questions
	for i := range questions {
		bot.handleGroupQuizCallback(ctx, &tgbotapi.CallbackQuery{
			ID:      "cb",
			From:    &tgbotapi.User{ID: 200, FirstName: "Priya"},
			Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: groupID, Type: "group"}},
			Data:    fmt.Sprintf("gq:ans:%d:%s", i, questions[i].Answer),
		})
		run.session.Advance()
	}

	bot.finishGroupQuiz(ctx, run)

	// Session removed and results persisted
	bot.sessionsMu.RLock()
	_, stillThere := bot.sessions[groupID]
	bot.sessionsMu.RUnlock()
	if stillThere {
		t.Error("Expected session removed after finish")
	}

	entries, err := db.GroupLeaderboard(ctx, groupID, 10)
	if err != nil {
		t.Fatalf("GroupLeaderboard failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 leaderboard entries, got %d", len(entries))
	}
	if entries[0].FirstName != "Priya" || entries[0].AveragePct != 100 {
		t.Errorf("Expected Priya on top with 100%%, got %+v", entries[0])
	}
}

func TestGroupQuizRejectsSecondLobby(t *testing.T) {
	bot, _ := newTestBot(t)
	ctx := context.Background()
	groupID := int64(-42)

	bot.handleQuizStart(ctx, privateMessage(123, 456, "/quiz"))
	state, _ := bot.getState(123)
	bot.handleQuizConversation(ctx, privateMessage(123, 456, "optics"), state)
	bot.clearState(123)

	groupMsg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: 123, FirstName: "Amit"},
		Chat: &tgbotapi.Chat{ID: groupID, Type: "group"},
		Text: "/groupquiz",
	}
	bot.handleGroupQuizStart(ctx, groupMsg)
	bot.handleGroupQuizStart(ctx, groupMsg)

	bot.sessionsMu.RLock()
	count := len(bot.sessions)
	bot.sessionsMu.RUnlock()
	if count != 1 {
		t.Errorf("Expected a single session, got %d", count)
	}
}

func TestGroupQuizConcurrentStartsKeepOneLobby(t *testing.T) {
	bot, _ := newTestBot(t)
	ctx := context.Background()
	groupID := int64(-77)

	bot.handleQuizStart(ctx, privateMessage(123, 456, "/quiz"))
	state, _ := bot.getState(123)
	bot.handleQuizConversation(ctx, privateMessage(123, 456, "waves"), state)
	bot.clearState(123)

	groupMsg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: 123, FirstName: "Amit"},
		Chat: &tgbotapi.Chat{ID: groupID, Type: "group"},
		Text: "/groupquiz",
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bot.handleGroupQuizStart(ctx, groupMsg)
		}()
	}
	wg.Wait()

	bot.sessionsMu.RLock()
	count := len(bot.sessions)
	bot.sessionsMu.RUnlock()
	if count != 1 {
		t.Errorf("Expected a single lobby, got %d", count)
	}
}

