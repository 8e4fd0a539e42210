package models

import "time"

// LogEntry is an immutable ledger record of a single balance-changing event.
// Rows are append-only and never physically deleted: nullifying an entry
// flips Invalid and writes a compensating MOD entry, the original stays for
// audit.
type LogEntry struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AuthorID     uint64    `gorm:"index;not null" json:"author_id"`
	PlayerID     uint64    `gorm:"index:idx_log_player,priority:1;not null" json:"player_id"`
	GuildID      uint64    `gorm:"index:idx_log_player,priority:2;not null" json:"guild_id"`
	CharacterID  *uint     `gorm:"index" json:"character_id"`
	ActivityID   uint      `gorm:"index;not null" json:"activity_id"`
	CCDelta      int       `json:"cc_delta"`
	CreditsDelta int       `json:"credits_delta"`
	Notes        string    `gorm:"size:1024" json:"notes"`
	AdventureID  *uint64   `json:"adventure_id"`
	FactionID    *uint64   `json:"faction_id"`
	RenownDelta  int       `gorm:"default:0" json:"renown_delta"`
	Invalid      bool      `gorm:"default:false" json:"invalid"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`

	Activity *Activity `gorm:"foreignKey:ActivityID" json:"activity,omitempty"`
}
