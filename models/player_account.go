package models

import "time"

// PlayerAccount tracks a player's Chain Code balance and weekly counters
// within one guild. Rows are created lazily on first access with zero
// balances; only committed ledger entries mutate them.
type PlayerAccount struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	PlayerID uint64 `gorm:"uniqueIndex:idx_player_guild,priority:1;not null" json:"player_id"`
	GuildID  uint64 `gorm:"uniqueIndex:idx_player_guild,priority:2;not null" json:"guild_id"`
	CC       int    `gorm:"default:0" json:"cc"`
	// DiversionCC accumulates CC earned from diversion-limited activities in
	// the current weekly window; zeroed by the weekly reset.
	DiversionCC int `gorm:"default:0" json:"diversion_cc"`
	// HandicapGrantedCC is the catch-up bonus already drawn this week. It
	// only grows between resets and never exceeds the guild's cap.
	HandicapGrantedCC int       `gorm:"default:0" json:"handicap_granted_cc"`
	RewardPoints      int       `gorm:"default:0" json:"reward_points"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
