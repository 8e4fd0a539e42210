package models

import "time"

// GuildPolicy holds the per-community reward configuration and the weekly
// reset bookkeeping. WeeksElapsed and LastResetAt are mutated only by the
// weekly reset scheduler.
type GuildPolicy struct {
	GuildID      uint64 `gorm:"primaryKey;autoIncrement:false" json:"guild_id"`
	Name         string `gorm:"size:128" json:"name"`
	WeeksElapsed int    `gorm:"default:0" json:"weeks_elapsed"`
	// ResetDay follows time.Weekday numbering (0 = Sunday).
	ResetDay    int       `gorm:"default:0" json:"reset_day"`
	ResetHour   int       `gorm:"default:0" json:"reset_hour"`
	LastResetAt time.Time `json:"last_reset_at"`
	// CampaignDate is the in-game calendar date, advanced on each reset.
	CampaignDate         time.Time       `json:"campaign_date"`
	HandicapCapCC        int             `gorm:"default:0" json:"handicap_cap_cc"`
	DiversionLimitCC     int             `gorm:"default:0" json:"diversion_limit_cc"`
	RewardPointThreshold *int            `json:"reward_point_threshold"`
	Stipends             []WeeklyStipend `gorm:"foreignKey:GuildID;references:GuildID" json:"stipends"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// WeeklyStipend is a recurring CC grant tied to role membership, disbursed at
// weekly reset. LeadershipOnly stipends are mutually exclusive within one
// sweep: a player keeps only the highest-amount one.
type WeeklyStipend struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	GuildID        uint64 `gorm:"index;not null" json:"guild_id"`
	RoleID         uint64 `gorm:"not null" json:"role_id"`
	AmountCC       int    `gorm:"not null" json:"amount_cc"`
	Reason         string `gorm:"size:255" json:"reason"`
	LeadershipOnly bool   `gorm:"default:false" json:"leadership_only"`
	SkipHandicap   bool   `gorm:"default:false" json:"skip_handicap"`
}

// RoleMembership is the read model the scheduler resolves stipend eligibility
// against. Membership lifecycle itself is maintained by an external service.
type RoleMembership struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	GuildID  uint64 `gorm:"index:idx_role_member,priority:1;not null" json:"guild_id"`
	RoleID   uint64 `gorm:"index:idx_role_member,priority:2;not null" json:"role_id"`
	PlayerID uint64 `gorm:"index:idx_role_member,priority:3;not null" json:"player_id"`
}
