package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// botServer fakes the Bot API. sendMessage fails failures times first.
type botServer struct {
	*httptest.Server
	mu       sync.Mutex
	failures int
	sent     []map[string]string
}

func newBotServer(t *testing.T, failures int) *botServer {
	s := &botServer{failures: failures}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"bot","username":"smb_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			_ = r.ParseForm()
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.failures > 0 {
				s.failures--
				_, _ = w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests"}`))
				return
			}
			s.sent = append(s.sent, map[string]string{
				"chat_id":    r.Form.Get("chat_id"),
				"text":       r.Form.Get("text"),
				"parse_mode": r.Form.Get("parse_mode"),
			})
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func newTestTelegram(t *testing.T, s *botServer, retries int) *Telegram {
	tg, err := NewTelegram(TelegramConfig{
		Token:          "123:abc",
		ChatID:         42,
		MaxRetries:     retries,
		RetryDelayBase: time.Millisecond,
		Endpoint:       s.URL + "/bot%s/%s",
		HTTPClient:     s.Client(),
	})
	require.NoError(t, err)
	return tg
}

func TestTelegramNotify(t *testing.T) {
	s := newBotServer(t, 0)
	tg := newTestTelegram(t, s, 3)

	require.NoError(t, tg.Notify(context.Background(), "Bought MintA, tx 5x.y"))

	require.Len(t, s.sent, 1)
	assert.Equal(t, "42", s.sent[0]["chat_id"])
	assert.Equal(t, "MarkdownV2", s.sent[0]["parse_mode"])
	assert.Equal(t, "🤖 *Smart money bot*\nBought MintA, tx 5x\\.y", s.sent[0]["text"])
}

func TestTelegramNotifyRetries(t *testing.T) {
	s := newBotServer(t, 2)
	tg := newTestTelegram(t, s, 3)

	require.NoError(t, tg.Notify(context.Background(), "hello"))
	assert.Len(t, s.sent, 1)
}

func TestTelegramNotifyGivesUp(t *testing.T) {
	s := newBotServer(t, 5)
	tg := newTestTelegram(t, s, 2)

	err := tg.Notify(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 2 retries")
	assert.Empty(t, s.sent)
}

func TestNewTelegramRequiresChat(t *testing.T) {
	_, err := NewTelegram(TelegramConfig{Token: "123:abc"})
	assert.Error(t, err)
}

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello World"},
		{"Sold 0.5 SOL", "Sold 0\\.5 SOL"},
		{"take_profit (2x)!", "take\\_profit \\(2x\\)\\!"},
		{"a-b=c|d", "a\\-b\\=c\\|d"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, escapeMarkdownV2(tt.input))
		})
	}
}
