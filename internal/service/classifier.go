package service

import "github.com/Tattsum/norrisbot/internal/domain"

// DefaultTrigger は既定のトリガーフレーズ
const DefaultTrigger = "chuck norris"

// ShouldRespond はメッセージに返信すべきかどうかを判定する
// 以下をすべて満たす場合のみtrue
//  1. ユーザーのチャットメッセージである
//  2. チャンネルまたはグループへの投稿である
//  3. Bot自身の投稿ではない（返信の無限ループ防止）
//  4. トリガーフレーズまたはBot名が含まれる
func ShouldRespond(msg *domain.Message, self domain.BotIdentity, trigger string) bool {
	if msg == nil {
		return false
	}
	return msg.IsChatMessage() &&
		msg.IsChannelConversation() &&
		!msg.IsFrom(self.ID) &&
		msg.Mentions(trigger, self.Name)
}
