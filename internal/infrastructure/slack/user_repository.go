package slack

import (
	"context"
	"fmt"

	"github.com/Tattsum/norrisbot/internal/domain"
	"github.com/slack-go/slack"
)

// UserRepository はSlack APIを使用してユーザー情報を取得するリポジトリ
type UserRepository struct {
	client *slack.Client
}

// NewUserRepository は新しいUserRepositoryを作成する
func NewUserRepository(client *slack.Client) *UserRepository {
	return &UserRepository{
		client: client,
	}
}

// Self はトークンに紐づくBot自身のアカウントを返す
// nameが指定されていればトリガー名としてそれを使う
func (r *UserRepository) Self(ctx context.Context, name string) (domain.BotIdentity, error) {
	resp, err := r.client.AuthTestContext(ctx)
	if err != nil {
		return domain.BotIdentity{}, fmt.Errorf("%w: auth.test に失敗しました: %v", domain.ErrConnection, err)
	}

	identity := domain.BotIdentity{
		ID:   resp.UserID,
		Name: resp.User,
	}
	if name != "" {
		identity.Name = name
	}
	return identity, nil
}
