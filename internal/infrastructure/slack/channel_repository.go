package slack

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Tattsum/norrisbot/internal/domain"
	"github.com/slack-go/slack"
)

// ChannelRepository はSlack APIを使用してチャンネルとグループの一覧を取得するリポジトリ
// 取得結果はttlの間キャッシュする
type ChannelRepository struct {
	client *slack.Client
	ttl    time.Duration
	now    func() time.Time

	// refreshMu はAPIからの再取得を1本に絞る。muはキャッシュの読み書きだけを守る
	refreshMu  sync.Mutex
	mu         sync.Mutex
	cached     *domain.Directory
	fetchedAt  time.Time
	generation uint64
}

// NewChannelRepository は新しいChannelRepositoryを作成する
func NewChannelRepository(client *slack.Client, ttl time.Duration) *ChannelRepository {
	return &ChannelRepository{
		client: client,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Snapshot はチャンネルとグループの一覧を返す
// キャッシュが有効ならAPIを呼ばない。同時に呼ばれた場合の再取得は1回だけ行う
func (r *ChannelRepository) Snapshot(ctx context.Context) (*domain.Directory, error) {
	if directory, ok := r.fresh(); ok {
		return directory, nil
	}

	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	// 待っている間に他の呼び出しが取得を済ませていればそれを使う
	if directory, ok := r.fresh(); ok {
		return directory, nil
	}

	r.mu.Lock()
	generation := r.generation
	r.mu.Unlock()

	directory, err := r.FindAll(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		if r.cached != nil {
			// 取得に失敗した場合は古い一覧で続行する
			return r.cached, nil
		}
		return nil, err
	}
	// 取得中にInvalidateされた場合は結果を返すだけにして、次回は取り直す
	if generation == r.generation {
		r.cached = directory
		r.fetchedAt = r.now()
	}
	return directory, nil
}

func (r *ChannelRepository) fresh() (*domain.Directory, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached != nil && r.now().Sub(r.fetchedAt) < r.ttl {
		return r.cached, true
	}
	return nil, false
}

// Invalidate はキャッシュを破棄し、次回のSnapshotで再取得させる
// 取得中でも待たずに戻る
func (r *ChannelRepository) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = nil
	r.generation++
}

// FindAll はすべてのチャンネルとグループを取得する
// 公開チャンネルはChannels、プライベートチャンネルはGroupsに振り分ける
func (r *ChannelRepository) FindAll(ctx context.Context) (*domain.Directory, error) {
	directory := &domain.Directory{}
	cursor := ""

	for {
		conversations, nextCursor, err := r.client.GetConversationsContext(ctx, &slack.GetConversationsParameters{
			ExcludeArchived: true,
			Limit:           1000,
			Cursor:          cursor,
			Types:           []string{"public_channel", "private_channel"},
		})
		if err != nil {
			return nil, fmt.Errorf("チャンネル一覧取得エラー: %w", err)
		}

		for _, conversation := range conversations {
			c := domain.Channel{
				ID:   conversation.ID,
				Name: conversation.Name,
			}
			if conversation.IsPrivate {
				directory.Groups = append(directory.Groups, c)
			} else {
				directory.Channels = append(directory.Channels, c)
			}
		}

		if nextCursor == "" {
			break
		}
		cursor = nextCursor
	}

	return directory, nil
}
