// Package slack はSlack APIとSocket Modeを使ったBotセッションとリポジトリを提供する
package slack

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Tattsum/norrisbot/internal/domain"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

// MessageHandler は受信したメッセージごとに呼ばれる
type MessageHandler func(ctx context.Context, msg *domain.Message)

// NewClient はBotトークンとApp-Levelトークンを設定したSlackクライアントを作成する
func NewClient(token, appToken string, options ...slack.Option) *slack.Client {
	opts := append([]slack.Option{slack.OptionAppLevelToken(appToken)}, options...)
	return slack.New(token, opts...)
}

// Session はSocket Modeのリアルタイム接続を管理する
// イベントは1本の接続から到着順に読み出す
type Session struct {
	socket    *socketmode.Client
	ack       func(req socketmode.Request)
	directory *ChannelRepository
	logger    *slog.Logger

	// startedAt より前に投稿されたメッセージは再送とみなして処理しない
	startedAt time.Time

	onConnect   func(ctx context.Context)
	connectOnce sync.Once
	hooks       sync.WaitGroup
}

// NewSession は新しいSessionを作成する
// onConnectは最初の接続確立時に一度だけ呼ばれる（nil可）
func NewSession(client *slack.Client, directory *ChannelRepository, logger *slog.Logger, onConnect func(ctx context.Context)) *Session {
	socket := socketmode.New(client)
	return &Session{
		socket:    socket,
		ack:       func(req socketmode.Request) { socket.Ack(req) },
		directory: directory,
		logger:    logger,
		startedAt: time.Now(),
		onConnect: onConnect,
	}
}

// Run は接続を確立してイベントを読み続ける。ctxが終了すると戻る
// 接続できない場合はErrConnectionを返す
func (s *Session) Run(ctx context.Context, handler MessageHandler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-s.socket.Events:
				if !ok {
					return
				}
				s.handleEvent(ctx, evt, handler)
			}
		}
	}()

	err := s.socket.RunContext(ctx)
	stopped := ctx.Err() != nil
	cancel()
	wg.Wait()
	s.hooks.Wait()

	if stopped {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConnection, err)
	}
	return nil
}

// handleEvent はSocket Modeのイベントを1件処理する
// 応答が必要なリクエストは内容を解釈する前にAckする。Ackしないと同じイベントが再送される
func (s *Session) handleEvent(ctx context.Context, evt socketmode.Event, handler MessageHandler) {
	if evt.Request != nil && s.ack != nil {
		s.ack(*evt.Request)
	}

	switch evt.Type {
	case socketmode.EventTypeConnecting:
		s.logger.Info("Slackに接続しています")
	case socketmode.EventTypeConnectionError:
		s.logger.Warn("Slackへの接続に失敗しました。再接続します")
	case socketmode.EventTypeConnected:
		s.logger.Info("Slackに接続しました")
		if s.onConnect != nil {
			// 挨拶の送信がイベントの読み出しを止めないよう別ゴルーチンで実行する
			s.connectOnce.Do(func() {
				s.hooks.Add(1)
				go func() {
					defer s.hooks.Done()
					s.onConnect(ctx)
				}()
			})
		}
	case socketmode.EventTypeEventsAPI:
		eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			s.logger.Debug("未対応のイベントを無視します", slog.Any("data", evt.Data))
			return
		}
		if eventsAPIEvent.Type != slackevents.CallbackEvent {
			return
		}

		switch ev := eventsAPIEvent.InnerEvent.Data.(type) {
		case *slackevents.MessageEvent:
			msg := convertToDomainMessage(ev)
			if s.isStale(msg) {
				s.logger.Debug("起動前のメッセージを無視します", slog.String("channel", msg.ChannelID), slog.Time("ts", msg.Timestamp))
				return
			}
			handler(ctx, msg)
		case *slackevents.MemberJoinedChannelEvent, *slackevents.ChannelCreatedEvent, *slackevents.ChannelRenameEvent:
			// 参加先が変わったので次の返信時に一覧を取り直す
			s.directory.Invalidate()
		}
	}
}

// isStale はセッション開始より前に投稿されたメッセージかどうかを返す
// タイムスタンプが読めないメッセージは処理対象とする
func (s *Session) isStale(msg *domain.Message) bool {
	if s.startedAt.IsZero() || msg.Timestamp.IsZero() {
		return false
	}
	return msg.Timestamp.Before(s.startedAt.Truncate(time.Second))
}
