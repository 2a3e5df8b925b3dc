package slack

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Tattsum/norrisbot/internal/domain"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

const maxSendAttempts = 3

// MessageRepository はSlack APIを使用してBotとしてメッセージを投稿するリポジトリ
type MessageRepository struct {
	client *slack.Client
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewMessageRepository は新しいMessageRepositoryを作成する
func NewMessageRepository(client *slack.Client) *MessageRepository {
	return &MessageRepository{
		client: client,
		sleep:  sleepContext,
	}
}

// SendToChannel は公開チャンネルへBot自身として投稿する
func (r *MessageRepository) SendToChannel(ctx context.Context, dest domain.Destination, text string) error {
	if err := r.post(ctx, dest.ID, text); err != nil {
		return fmt.Errorf("チャンネル #%s への投稿エラー: %w", dest.Name, err)
	}
	return nil
}

// SendToGroup はプライベートグループへBot自身として投稿する
func (r *MessageRepository) SendToGroup(ctx context.Context, dest domain.Destination, text string) error {
	if err := r.post(ctx, dest.ID, text); err != nil {
		return fmt.Errorf("グループ %s への投稿エラー: %w", dest.Name, err)
	}
	return nil
}

// post はレート制限に達した場合のみ指定時間待って再試行する
func (r *MessageRepository) post(ctx context.Context, channelID, text string) error {
	var err error
	for attempt := 0; attempt < maxSendAttempts; attempt++ {
		_, _, err = r.client.PostMessageContext(ctx, channelID,
			slack.MsgOptionText(text, false),
			slack.MsgOptionAsUser(true),
		)
		if err == nil {
			return nil
		}

		wait, limited := retryAfter(err)
		if !limited {
			return err
		}
		if serr := r.sleep(ctx, wait); serr != nil {
			return serr
		}
	}
	return err
}

// retryAfter はレート制限エラーであれば待機時間を返す
func retryAfter(err error) (time.Duration, bool) {
	var rle *slack.RateLimitedError
	if errors.As(err, &rle) {
		return rle.RetryAfter, true
	}
	return 0, false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// convertToDomainMessage はEvents APIのメッセージイベントをドメインモデルに変換する
func convertToDomainMessage(ev *slackevents.MessageEvent) *domain.Message {
	timestamp, _ := parseSlackTimestamp(ev.TimeStamp)

	return &domain.Message{
		Type:      ev.Type,
		SubType:   ev.SubType,
		Text:      ev.Text,
		ChannelID: ev.Channel,
		UserID:    ev.User,
		Timestamp: timestamp,
	}
}

// parseSlackTimestamp はSlackのタイムスタンプ文字列（秒.マイクロ秒）をtime.Timeに変換する
func parseSlackTimestamp(ts string) (time.Time, error) {
	secPart, fracPart, _ := strings.Cut(ts, ".")
	if secPart == "" {
		return time.Time{}, fmt.Errorf("無効なタイムスタンプ: %q", ts)
	}

	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("タイムスタンプ解析エラー: %w", err)
	}

	var nsec int64
	if fracPart != "" {
		if len(fracPart) > 9 {
			fracPart = fracPart[:9]
		}
		frac, err := strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("タイムスタンプ解析エラー: %w", err)
		}
		for i := len(fracPart); i < 9; i++ {
			frac *= 10
		}
		nsec = frac
	}

	return time.Unix(sec, nsec), nil
}
