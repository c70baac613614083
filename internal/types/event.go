package types

// Role は配信チャット上での発言者の属性。
type Role string

const (
	RoleViewer     Role = "viewer"
	RoleSubscriber Role = "subscriber"
	RoleModerator  Role = "moderator"
	RoleOwner      Role = "owner"
)

// IsSubscriber reports whether the role counts for subscriber-only games.
// The broadcaster always qualifies.
func (r Role) IsSubscriber() bool {
	return r == RoleSubscriber || r == RoleOwner
}

// Event は上流のチャットクライアントから届く正規化済みイベント。
// DonationAmount が 0 より大きいものはドネーション、それ以外は通常チャット。
type Event struct {
	Nickname       string `json:"nickname"`
	UserIDHash     string `json:"user_id_hash"`
	Role           Role   `json:"role"`
	Message        string `json:"message"`
	DonationAmount int    `json:"donation_amount,omitempty"`
}

// IsDonation reports whether the event carries money.
func (e Event) IsDonation() bool {
	return e.DonationAmount > 0
}

// Valid は取り込み境界での最低限のフィールド検証。
// 欠損イベントは黙って捨てる（上流は信頼しない）。
func (e Event) Valid() bool {
	return e.Nickname != "" && e.Message != ""
}
