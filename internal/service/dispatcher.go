package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/Tattsum/norrisbot/internal/domain"
	"github.com/Tattsum/norrisbot/internal/logger"
	"github.com/Tattsum/norrisbot/internal/metrics"
)

// ErrRateLimited は返信の頻度制限により返信を見送ったことを表す
var ErrRateLimited = errors.New("返信の頻度制限に達しました")

// Dispatcher は受信メッセージを判定し、ジョークを返信するサービス
type Dispatcher struct {
	self      domain.BotIdentity
	trigger   string
	directory domain.DirectoryRepository
	jokes     domain.JokeSource
	messenger domain.Messenger

	limiter *rate.Limiter
	metrics *metrics.Metrics
	logger  *slog.Logger

	wg sync.WaitGroup
}

// Option はDispatcherの任意設定
type Option func(*Dispatcher)

// WithTrigger はトリガーフレーズを変更する
func WithTrigger(trigger string) Option {
	return func(d *Dispatcher) {
		if trigger != "" {
			d.trigger = trigger
		}
	}
}

// WithRateLimit は1秒あたりの返信数とバースト数を設定する。perSecond <= 0 の場合は無制限
func WithRateLimit(perSecond float64, burst int) Option {
	return func(d *Dispatcher) {
		if perSecond <= 0 {
			d.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithMetrics はメトリクスを設定する
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithLogger はロガーを設定する
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher は新しいDispatcherサービスを作成する
func NewDispatcher(self domain.BotIdentity, directory domain.DirectoryRepository, jokes domain.JokeSource, messenger domain.Messenger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		self:      self,
		trigger:   DefaultTrigger,
		directory: directory,
		jokes:     jokes,
		messenger: messenger,
		logger:    logger.L,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OnMessage は受信イベントごとに呼ばれる
// 判定は呼び出し元のゴルーチンで行い、返信処理は別ゴルーチンで実行するため次のイベントの受信を妨げない
func (d *Dispatcher) OnMessage(ctx context.Context, msg *domain.Message) {
	d.metrics.MessageReceived()
	if !ShouldRespond(msg, d.self, d.trigger) {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		_ = d.Reply(ctx, msg)
	}()
}

// Reply は返信先の解決、ジョークの取得、送信、使用回数の記録を順に行う
// 失敗はログに記録して返す。リトライはしない
func (d *Dispatcher) Reply(ctx context.Context, msg *domain.Message) error {
	log := d.logger.With(
		slog.String("event_id", uuid.NewString()),
		slog.String("channel", msg.ChannelID),
		slog.String("user", msg.UserID),
	)
	ctx = logger.WithContext(ctx, log)

	directory, err := d.directory.Snapshot(ctx)
	if err != nil {
		log.Error("ディレクトリの取得に失敗しました", slog.Any("error", err))
		d.metrics.ReplyDropped(metrics.DropNotFound)
		return fmt.Errorf("%w: %v", domain.ErrDestinationNotFound, err)
	}

	dest, err := Resolve(msg.ChannelID, directory)
	if err != nil {
		log.Warn("返信先が見つからないため返信しません", slog.Any("error", err))
		d.metrics.ReplyDropped(metrics.DropNotFound)
		return err
	}

	if d.limiter != nil && !d.limiter.Allow() {
		log.Warn("頻度制限のため返信しません", slog.String("destination", dest.Name))
		d.metrics.ReplyDropped(metrics.DropRateLimited)
		return ErrRateLimited
	}

	joke, err := d.jokes.GetJoke(ctx)
	if err == nil {
		joke.Text = sanitize(joke.Text)
		if joke.Text == "" {
			err = fmt.Errorf("%w: 本文が空です", domain.ErrJokeFetch)
		}
	}
	if err != nil {
		log.Error("ジョークの取得に失敗しました", slog.Any("error", err))
		d.metrics.ReplyDropped(metrics.DropJokeFetch)
		return err
	}

	if err := send(ctx, d.messenger, dest, joke.Text); err != nil {
		log.Error("返信の送信に失敗しました", slog.String("destination", dest.Name), slog.Any("error", err))
		d.metrics.ReplyDropped(metrics.DropSendFailed)
		return err
	}
	log.Info("ジョークを送信しました", slog.String("destination", dest.Name), slog.String("kind", dest.Kind.String()), slog.Int64("joke_id", joke.ID))
	d.metrics.ReplySent(dest.Kind.String())

	if recorder, ok := d.jokes.(domain.UsageRecorder); ok && joke.Tracked {
		d.recordUsage(ctx, recorder, joke.ID)
	}
	return nil
}

// recordUsage は送信済みジョークの使用回数を非同期に記録する
// 失敗しても送信は取り消さない
func (d *Dispatcher) recordUsage(ctx context.Context, recorder domain.UsageRecorder, jokeID int64) {
	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := recorder.RecordUsage(ctx, jokeID); err != nil {
			logger.FromContext(ctx).Error("使用回数の記録に失敗しました", slog.Int64("joke_id", jokeID), slog.Any("error", err))
			d.metrics.UsageRecordFailed()
		}
	}()
}

// Wait は実行中の返信処理と使用回数の記録が終わるまで待つ
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// send は返信先の種別に応じた送信手段でメッセージを送る
func send(ctx context.Context, messenger domain.Messenger, dest domain.Destination, text string) error {
	switch dest.Kind {
	case domain.KindChannel:
		return messenger.SendToChannel(ctx, dest, text)
	case domain.KindGroup:
		return messenger.SendToGroup(ctx, dest, text)
	default:
		return fmt.Errorf("不明な返信先の種別です: %d", dest.Kind)
	}
}

// sanitize は送信前にHTMLエンティティを戻し、前後の空白を取り除く
func sanitize(text string) string {
	return strings.TrimSpace(html.UnescapeString(text))
}
