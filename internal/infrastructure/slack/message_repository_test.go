package slack

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tattsum/norrisbot/internal/domain"
)

// newTestClient はhandlerをSlack APIとして使うクライアントを作成する
func newTestClient(t *testing.T, handler http.Handler) *slack.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return slack.New("xoxb-test", slack.OptionAPIURL(srv.URL+"/"))
}

type postedMessage struct {
	Channel string
	Text    string
	AsUser  string
}

func TestMessageRepository_Send(t *testing.T) {
	var mu sync.Mutex
	var posted []postedMessage
	mux := http.NewServeMux()
	mux.HandleFunc("/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		mu.Lock()
		posted = append(posted, postedMessage{
			Channel: r.FormValue("channel"),
			Text:    r.FormValue("text"),
			AsUser:  r.FormValue("as_user"),
		})
		mu.Unlock()
		fmt.Fprintf(w, `{"ok":true,"channel":%q,"ts":"1700000000.000100"}`, r.FormValue("channel"))
	})
	repo := NewMessageRepository(newTestClient(t, mux))

	ctx := context.Background()
	require.NoError(t, repo.SendToChannel(ctx, domain.Destination{Kind: domain.KindChannel, Name: "general", ID: "C123"}, "joke one"))
	require.NoError(t, repo.SendToGroup(ctx, domain.Destination{Kind: domain.KindGroup, Name: "secret", ID: "G777"}, "joke two"))

	assert.Equal(t, []postedMessage{
		{Channel: "C123", Text: "joke one", AsUser: "true"},
		{Channel: "G777", Text: "joke two", AsUser: "true"},
	}, posted)
}

func TestMessageRepository_RetriesOnRateLimit(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"ok":true,"channel":"C123","ts":"1.2"}`)
	})
	repo := NewMessageRepository(newTestClient(t, mux))
	var waited []time.Duration
	repo.sleep = func(ctx context.Context, d time.Duration) error {
		waited = append(waited, d)
		return nil
	}

	err := repo.SendToChannel(context.Background(), domain.Destination{Kind: domain.KindChannel, Name: "general", ID: "C123"}, "joke")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{2 * time.Second}, waited)
}

func TestMessageRepository_NoRetryOnOtherErrors(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"ok":false,"error":"channel_not_found"}`)
	})
	repo := NewMessageRepository(newTestClient(t, mux))

	err := repo.SendToGroup(context.Background(), domain.Destination{Kind: domain.KindGroup, Name: "secret", ID: "G1"}, "joke")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
	assert.Equal(t, 1, calls)
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected time.Duration
		limited  bool
	}{
		{
			name:     "レート制限",
			err:      &slack.RateLimitedError{RetryAfter: 10 * time.Second},
			expected: 10 * time.Second,
			limited:  true,
		},
		{
			name:     "ラップされたレート制限",
			err:      fmt.Errorf("投稿エラー: %w", &slack.RateLimitedError{RetryAfter: 5 * time.Second}),
			expected: 5 * time.Second,
			limited:  true,
		},
		{
			name:    "その他のエラー",
			err:     errors.New("slack rate limit exceeded, retry after 10s"),
			limited: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, limited := retryAfter(tt.err)
			if limited != tt.limited || got != tt.expected {
				t.Errorf("retryAfter(%v) = (%v, %v), want (%v, %v)", tt.err, got, limited, tt.expected, tt.limited)
			}
		})
	}
}

func TestParseSlackTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		ts      string
		want    time.Time
		wantErr bool
	}{
		{name: "マイクロ秒付き", ts: "1700000000.000100", want: time.Unix(1700000000, 100000)},
		{name: "秒のみ", ts: "1700000000", want: time.Unix(1700000000, 0)},
		{name: "空文字列", ts: "", wantErr: true},
		{name: "数値でない", ts: "abc.def", wantErr: true},
		{name: "小数部が数値でない", ts: "1700000000.x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSlackTimestamp(tt.ts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
		})
	}
}

func TestConvertToDomainMessage(t *testing.T) {
	ev := &slackevents.MessageEvent{
		Type:      "message",
		SubType:   "",
		Text:      "Hey Chuck Norris!",
		Channel:   "C123",
		User:      "U999",
		TimeStamp: "1700000000.000100",
	}

	msg := convertToDomainMessage(ev)

	assert.Equal(t, "message", msg.Type)
	assert.Equal(t, "Hey Chuck Norris!", msg.Text)
	assert.Equal(t, "C123", msg.ChannelID)
	assert.Equal(t, "U999", msg.UserID)
	assert.Equal(t, int64(1700000000), msg.Timestamp.Unix())
}
