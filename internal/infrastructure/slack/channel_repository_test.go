package slack

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tattsum/norrisbot/internal/domain"
)

// conversationsHandler はカーソルで2ページに分けて一覧を返す
func conversationsHandler(calls *int) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/conversations.list", func(w http.ResponseWriter, r *http.Request) {
		*calls++
		_ = r.ParseForm()
		if r.FormValue("cursor") == "" {
			fmt.Fprint(w, `{"ok":true,"channels":[
				{"id":"C1","name":"general","is_channel":true,"is_private":false},
				{"id":"G1","name":"secret","is_group":true,"is_private":true}
			],"response_metadata":{"next_cursor":"page2"}}`)
			return
		}
		fmt.Fprint(w, `{"ok":true,"channels":[
			{"id":"C2","name":"random","is_channel":true,"is_private":false}
		],"response_metadata":{"next_cursor":""}}`)
	})
	return mux
}

func TestChannelRepository_FindAll(t *testing.T) {
	calls := 0
	repo := NewChannelRepository(newTestClient(t, conversationsHandler(&calls)), time.Minute)

	directory, err := repo.FindAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []domain.Channel{{ID: "C1", Name: "general"}, {ID: "C2", Name: "random"}}, directory.Channels)
	assert.Equal(t, []domain.Channel{{ID: "G1", Name: "secret"}}, directory.Groups)
	assert.Equal(t, 2, calls)
}

func TestChannelRepository_SnapshotCache(t *testing.T) {
	calls := 0
	repo := NewChannelRepository(newTestClient(t, conversationsHandler(&calls)), time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := repo.Snapshot(ctx)
	require.NoError(t, err)
	_, err = repo.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "キャッシュ有効中は再取得しない")

	repo.Invalidate()
	_, err = repo.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, calls)

	now = now.Add(2 * time.Minute)
	_, err = repo.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, calls)
}

func TestChannelRepository_SnapshotError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/conversations.list", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":false,"error":"invalid_auth"}`)
	})
	repo := NewChannelRepository(newTestClient(t, mux), time.Minute)

	_, err := repo.Snapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_auth")
}

// blockingConversationsHandler はreleaseが閉じられるまで応答を保留する
func blockingConversationsHandler(calls *atomic.Int32, entered chan<- struct{}, release <-chan struct{}) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/conversations.list", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			close(entered)
		}
		<-release
		fmt.Fprint(w, `{"ok":true,"channels":[
			{"id":"C1","name":"general","is_channel":true,"is_private":false}
		],"response_metadata":{"next_cursor":""}}`)
	})
	return mux
}

func TestChannelRepository_SnapshotConcurrentRefresh(t *testing.T) {
	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	repo := NewChannelRepository(newTestClient(t, blockingConversationsHandler(&calls, entered, release)), time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*domain.Directory, 5)
	errs := make([]error, 5)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = repo.Snapshot(ctx)
	}()
	<-entered

	for i := 1; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = repo.Snapshot(ctx)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, []domain.Channel{{ID: "C1", Name: "general"}}, results[i].Channels)
	}
	assert.Equal(t, int32(1), calls.Load(), "同時の再取得は1回にまとめる")
}

func TestChannelRepository_InvalidateDuringRefresh(t *testing.T) {
	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	repo := NewChannelRepository(newTestClient(t, blockingConversationsHandler(&calls, entered, release)), time.Minute)

	done := make(chan error, 1)
	go func() {
		_, err := repo.Snapshot(context.Background())
		done <- err
	}()
	<-entered

	invalidated := make(chan struct{})
	go func() {
		repo.Invalidate()
		close(invalidated)
	}()
	select {
	case <-invalidated:
	case <-time.After(time.Second):
		t.Fatal("取得中のInvalidateがブロックしました")
	}

	close(release)
	require.NoError(t, <-done)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Nil(t, repo.cached, "取得中に破棄された一覧はキャッシュしない")
}
