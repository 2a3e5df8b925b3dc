package service

import (
	"fmt"

	"github.com/Tattsum/norrisbot/internal/domain"
)

// Resolve はチャンネルIDから返信先を解決する
// チャンネル一覧を先に、次にグループ一覧を検索し、最初に一致したものを返す
func Resolve(channelID string, directory *domain.Directory) (domain.Destination, error) {
	if directory != nil {
		for _, c := range directory.Channels {
			if c.ID == channelID {
				return domain.Destination{Kind: domain.KindChannel, Name: c.Name, ID: c.ID}, nil
			}
		}
		for _, g := range directory.Groups {
			if g.ID == channelID {
				return domain.Destination{Kind: domain.KindGroup, Name: g.Name, ID: g.ID}, nil
			}
		}
	}
	return domain.Destination{}, fmt.Errorf("%w: %s", domain.ErrDestinationNotFound, channelID)
}
