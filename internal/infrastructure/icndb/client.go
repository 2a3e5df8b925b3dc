// Package icndb はInternet Chuck Norris Database互換のAPIからジョークを取得する
package icndb

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/Tattsum/norrisbot/internal/domain"
)

// DefaultBaseURL は既定の取得先
const DefaultBaseURL = "https://api.icndb.com"

const randomPath = "/jokes/random"

// レスポンスの上限サイズ
const maxBodySize = 1 << 20

// Client はリモートAPIからランダムなジョークを取得するクライアント
// 状態を持たず、リトライもしない
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient は新しいClientを作成する
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetJoke はランダムなジョークを1件取得する
// 通信エラー、2xx以外のステータス、不正なJSON、value.jokeの欠落はErrJokeFetchになる
func (c *Client) GetJoke(ctx context.Context) (*domain.Joke, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+randomPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrJokeFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrJokeFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: ステータス %d", domain.ErrJokeFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: レスポンスの読み込みに失敗しました: %v", domain.ErrJokeFetch, err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: 不正なJSONです", domain.ErrJokeFetch)
	}

	value := gjson.GetBytes(body, "value.joke")
	if value.Type != gjson.String || value.String() == "" {
		return nil, fmt.Errorf("%w: value.joke がありません", domain.ErrJokeFetch)
	}

	return &domain.Joke{Text: Unescape(value.String())}, nil
}

// Unescape はAPIが返すHTMLエンティティ（&quot; など）を元の文字に戻す
func Unescape(text string) string {
	return html.UnescapeString(text)
}
