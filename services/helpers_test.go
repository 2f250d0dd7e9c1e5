package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"voltflow-backend/config"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	testCustomer = "+61412345678"
	testTradie   = "+61499999999"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	sqlDB, err := config.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", Conn: sqlDB}, &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	return db
}

func setupTestStore(t *testing.T) *GormStore {
	t.Helper()
	return NewGormStore(setupTestDB(t))
}

func testBusiness() config.BusinessConfig {
	return config.BusinessConfig{
		TradiePhone:      testTradie,
		CallingCode:      "61",
		TradeCategory:    "electrician",
		CallbackTime:     "4 pm",
		IntroMessage:     config.DefaultIntroMessage,
		ReintroduceAfter: 30 * 24 * time.Hour,
	}
}

type sentMessage struct {
	To   string
	Body string
}

// recordingMessenger keeps every message instead of sending it. failTo makes
// sends to that number fail.
type recordingMessenger struct {
	mu     sync.Mutex
	sent   []sentMessage
	failTo string
}

func (m *recordingMessenger) Send(_ context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTo != "" && to == m.failTo {
		return errors.New("provider unavailable")
	}
	m.sent = append(m.sent, sentMessage{To: to, Body: body})
	return nil
}

func (m *recordingMessenger) To(phone string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.sent {
		if s.To == phone {
			out = append(out, s.Body)
		}
	}
	return out
}

type stubGenerator struct {
	reply string
	err   error
	calls int
}

func (g *stubGenerator) Reply(_ context.Context, _, _ string) (string, error) {
	g.calls++
	return g.reply, g.err
}

type mockChatClient struct {
	mock.Mock
}

func (m *mockChatClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openai.ChatCompletionResponse), args.Error(1)
}

func chatResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}
}
