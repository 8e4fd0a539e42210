package ledger

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lorekeep/lorekeep/models"
)

// openTestDB returns an isolated in-memory database with the full schema.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	err = db.AutoMigrate(
		&models.Activity{},
		&models.GuildPolicy{},
		&models.WeeklyStipend{},
		&models.RoleMembership{},
		&models.PlayerAccount{},
		&models.CharacterAccount{},
		&models.CharacterRenown{},
		&models.LogEntry{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func intPtr(v int) *int { return &v }

// seedActivities installs the system activities plus a few rewardable ones.
func seedActivities(t *testing.T, db *gorm.DB) {
	t.Helper()
	acts := []models.Activity{
		{Key: "RP", Name: "Roleplay", BaseCC: intPtr(5), DiversionLimited: true, PointValue: 1, Kind: models.ActivityKindEarn},
		{Key: "ADVENTURE", Name: "Adventure", BaseCC: intPtr(10), PointValue: 2, Kind: models.ActivityKindEarn},
		{Key: "PURCHASE", Name: "Market Purchase", Kind: models.ActivityKindSpend, SkipHandicap: true},
		{Key: models.ActivityKeyLogReward, Name: "Author Reward", BaseCC: intPtr(4), Kind: models.ActivityKindEarn, TerminalReward: true, SkipHandicap: true},
		{Key: models.ActivityKeyMod, Name: "Moderation", Kind: models.ActivityKindSystem, SkipHandicap: true},
		{Key: models.ActivityKeyStipend, Name: "Weekly Stipend", Kind: models.ActivityKindEarn},
		{Key: models.ActivityKeyConversion, Name: "Currency Conversion", Kind: models.ActivityKindSpend, SkipHandicap: true},
	}
	if err := db.Create(&acts).Error; err != nil {
		t.Fatalf("seed activities: %v", err)
	}
}

// newTestEngine builds an engine over a fresh database and seeded catalog.
func newTestEngine(t *testing.T) (*Engine, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	seedActivities(t, db)
	catalog, err := NewCatalog(db)
	if err != nil {
		t.Fatalf("catalog load: %v", err)
	}
	return NewEngine(db, catalog, NopNotifier{}), db
}

// newTestPolicy persists and returns a guild policy with the given caps.
func newTestPolicy(t *testing.T, db *gorm.DB, guildID uint64, divLimit, handicapCap int, threshold *int) *models.GuildPolicy {
	t.Helper()
	policy := models.GuildPolicy{
		GuildID:              guildID,
		DiversionLimitCC:     divLimit,
		HandicapCapCC:        handicapCap,
		RewardPointThreshold: threshold,
		LastResetAt:          time.Now().Add(-24 * time.Hour),
		CampaignDate:         time.Date(1372, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := db.Create(&policy).Error; err != nil {
		t.Fatalf("seed policy: %v", err)
	}
	return &policy
}

func mustActivity(t *testing.T, e *Engine, key string) *models.Activity {
	t.Helper()
	act, err := e.Catalog().Get(key)
	if err != nil {
		t.Fatalf("activity %s: %v", key, err)
	}
	return act
}

func loadAccount(t *testing.T, db *gorm.DB, playerID, guildID uint64) models.PlayerAccount {
	t.Helper()
	var acct models.PlayerAccount
	if err := db.Where("player_id = ? AND guild_id = ?", playerID, guildID).First(&acct).Error; err != nil {
		t.Fatalf("load account %d/%d: %v", playerID, guildID, err)
	}
	return acct
}
