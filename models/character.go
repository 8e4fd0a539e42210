package models

import "time"

// CharacterAccount holds a character's Credit balance. Credits are spent in
// the marketplace and are convertible from CC at a level-dependent rate.
type CharacterAccount struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	PlayerID  uint64            `gorm:"index;not null" json:"player_id"`
	GuildID   uint64            `gorm:"index;not null" json:"guild_id"`
	Name      string            `gorm:"size:128" json:"name"`
	Credits   int               `gorm:"default:0" json:"credits"`
	Level     int               `gorm:"default:1" json:"level"`
	Renown    []CharacterRenown `gorm:"foreignKey:CharacterID" json:"renown,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// CharacterRenown is the per-character per-faction reputation sub-ledger,
// one row per (character, faction) pair. The engine applies deltas without a
// floor clamp; callers that refuse negative renown enforce it at the edge.
type CharacterRenown struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	CharacterID uint   `gorm:"uniqueIndex:idx_character_faction,priority:1;not null" json:"character_id"`
	FactionID   uint64 `gorm:"uniqueIndex:idx_character_faction,priority:2;not null" json:"faction_id"`
	Renown      int    `gorm:"default:0" json:"renown"`
}
