package models

// Activity kinds. Spend activities must pass an affordability check before
// the ledger commits them; system activities are reserved for entries the
// engine writes on its own behalf.
const (
	ActivityKindEarn   = "earn"
	ActivityKindSpend  = "spend"
	ActivityKindSystem = "system"
)

// Reserved activity keys the engine depends on. They are seeded at install
// time and must not be removed from the catalog.
const (
	ActivityKeyLogReward  = "LOG_REWARD"
	ActivityKeyMod        = "MOD"
	ActivityKeyStipend    = "STIPEND"
	ActivityKeyConversion = "CONVERSION"
)

// Activity is a catalog entry describing a rewardable action. Rows are
// reference data: the engine only ever reads them through a catalog snapshot.
type Activity struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	Key              string `gorm:"size:64;uniqueIndex;not null" json:"key"`
	Name             string `gorm:"size:128" json:"name"`
	BaseCC           *int   `json:"base_cc"`
	DiversionLimited bool   `gorm:"default:false" json:"diversion_limited"`
	PointValue       int    `gorm:"default:0" json:"point_value"`
	Kind             string `gorm:"size:16;default:earn" json:"kind"`
	// TerminalReward marks the dedicated author-reward activity; entries
	// logged against it never trigger a further author reward.
	TerminalReward bool `gorm:"default:false" json:"terminal_reward"`
	// SkipHandicap disables the catch-up bonus for this activity type
	// (market purchases and conversions never draw from the handicap pool).
	SkipHandicap bool `gorm:"default:false" json:"skip_handicap"`
}
