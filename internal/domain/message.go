package domain

import (
	"strings"
	"time"
)

// MessageType はリアルタイムイベントのうちチャットメッセージを表すイベント種別
const MessageType = "message"

// ID先頭文字による名前空間の判定に使うマーカー
const (
	ChannelMarker = 'C'
	GroupMarker   = 'G'
)

// 本文を持つユーザー発言として扱うサブタイプ
var userSubTypes = map[string]bool{
	"":                 true,
	"thread_broadcast": true,
	"file_share":       true,
	"me_message":       true,
}

// Message はリアルタイムで受信したSlackイベントを表すドメインモデル
type Message struct {
	Type      string
	SubType   string // 空文字列の場合は通常のユーザー発言
	Text      string
	ChannelID string
	UserID    string
	Timestamp time.Time
}

// IsChatMessage はユーザーが送信したチャットメッセージかどうかを返す
// presenceやtypingなどのイベント、本文のないメッセージは対象外
func (m *Message) IsChatMessage() bool {
	return m.Type == MessageType && m.Text != "" && userSubTypes[m.SubType]
}

// IsChannelConversation はチャンネルまたはグループへの投稿かどうかを返す
// DMや不正なイベントはfalse
func (m *Message) IsChannelConversation() bool {
	if m.ChannelID == "" {
		return false
	}
	switch m.ChannelID[0] {
	case ChannelMarker, GroupMarker:
		return true
	default:
		return false
	}
}

// IsFrom は指定したユーザーが送信したメッセージかどうかを返す
func (m *Message) IsFrom(userID string) bool {
	return m.UserID == userID
}

// Mentions は本文にいずれかのフレーズが含まれるかどうかを返す（大文字小文字を区別しない）
func (m *Message) Mentions(phrases ...string) bool {
	text := strings.ToLower(m.Text)
	for _, phrase := range phrases {
		if phrase == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}
