package service

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/Tattsum/norrisbot/internal/domain"
)

// fakeDirectory はDirectoryRepositoryのモック実装
type fakeDirectory struct {
	directory *domain.Directory
	err       error
}

func (f *fakeDirectory) Snapshot(ctx context.Context) (*domain.Directory, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.directory, nil
}

type sentMessage struct {
	Kind domain.DestinationKind
	Name string
	ID   string
	Text string
}

// fakeMessenger は送信内容を記録するMessengerのモック実装
type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeMessenger) SendToChannel(ctx context.Context, dest domain.Destination, text string) error {
	return f.record(domain.KindChannel, dest, text)
}

func (f *fakeMessenger) SendToGroup(ctx context.Context, dest domain.Destination, text string) error {
	return f.record(domain.KindGroup, dest, text)
}

func (f *fakeMessenger) record(kind domain.DestinationKind, dest domain.Destination, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{Kind: kind, Name: dest.Name, ID: dest.ID, Text: text})
	return nil
}

func (f *fakeMessenger) Sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

// fakeJokeSource はリモート取得を模したJokeSourceのモック実装
type fakeJokeSource struct {
	joke *domain.Joke
	err  error
}

func (f *fakeJokeSource) GetJoke(ctx context.Context) (*domain.Joke, error) {
	if f.err != nil {
		return nil, f.err
	}
	j := *f.joke
	return &j, nil
}

// fakeStoreSource は使用回数を記録するJokeSourceのモック実装
type fakeStoreSource struct {
	fakeJokeSource
	mu        sync.Mutex
	recorded  []int64
	recordErr error
}

func (f *fakeStoreSource) RecordUsage(ctx context.Context, jokeID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	f.recorded = append(f.recorded, jokeID)
	return nil
}

func (f *fakeStoreSource) Recorded() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.recorded...)
}

// fakeMarkers はMarkerRepositoryのモック実装
type fakeMarkers struct {
	values map[string]string
	puts   int
	err    error
}

func (f *fakeMarkers) Get(ctx context.Context, name string) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	v, ok := f.values[name]
	return v, ok, nil
}

func (f *fakeMarkers) Put(ctx context.Context, name, val string) error {
	if f.err != nil {
		return f.err
	}
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.values[name] = val
	f.puts++
	return nil
}

// syncBuffer はゴルーチンから書き込まれるログを集める
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
