package domain

// Channel はSlackチャンネルまたはグループを表すドメインモデル
type Channel struct {
	ID   string
	Name string
}

// DestinationKind は返信先の種別
type DestinationKind int

const (
	// KindChannel は公開チャンネル
	KindChannel DestinationKind = iota + 1
	// KindGroup は招待制のプライベートグループ
	KindGroup
)

func (k DestinationKind) String() string {
	switch k {
	case KindChannel:
		return "channel"
	case KindGroup:
		return "group"
	default:
		return "unknown"
	}
}

// Destination は返信先を表す値オブジェクト
type Destination struct {
	Kind DestinationKind
	Name string
	ID   string
}

// Directory はチャンネルとグループの一覧のスナップショット
type Directory struct {
	Channels []Channel
	Groups   []Channel
}

// First は最初のチャンネルを、チャンネルがなければ最初のグループを返す
func (d *Directory) First() (Destination, bool) {
	if d == nil {
		return Destination{}, false
	}
	if len(d.Channels) > 0 {
		c := d.Channels[0]
		return Destination{Kind: KindChannel, Name: c.Name, ID: c.ID}, true
	}
	if len(d.Groups) > 0 {
		g := d.Groups[0]
		return Destination{Kind: KindGroup, Name: g.Name, ID: g.ID}, true
	}
	return Destination{}, false
}
