package ledger

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/lorekeep/lorekeep/models"
)

func newTestScheduler(t *testing.T) (*Scheduler, *Engine, *gorm.DB) {
	t.Helper()
	e, db := newTestEngine(t)
	return NewScheduler(db, e, NopNotifier{}), e, db
}

func TestLeadershipStipendDedupe(t *testing.T) {
	s, _, db := newTestScheduler(t)
	policy := newTestPolicy(t, db, 1, 0, 0, nil)

	stipends := []models.WeeklyStipend{
		{GuildID: 1, RoleID: 10, AmountCC: 50, Reason: "council seat", LeadershipOnly: true},
		{GuildID: 1, RoleID: 20, AmountCC: 20, Reason: "guide duty"},
	}
	if err := db.Create(&stipends).Error; err != nil {
		t.Fatal(err)
	}
	members := []models.RoleMembership{
		{GuildID: 1, RoleID: 10, PlayerID: 7},
		{GuildID: 1, RoleID: 20, PlayerID: 7},
		{GuildID: 1, RoleID: 20, PlayerID: 8},
	}
	if err := db.Create(&members).Error; err != nil {
		t.Fatal(err)
	}
	policy.Stipends = stipends

	report, err := s.ResetGuild(policy, time.Now().UTC())
	if err != nil {
		t.Fatalf("ResetGuild: %v", err)
	}

	// Player 7 holds both roles but the leadership stipend wins outright.
	seven := loadAccount(t, db, 7, 1)
	if seven.CC != 50 {
		t.Errorf("player 7 cc = %d, want 50 (not 70)", seven.CC)
	}
	eight := loadAccount(t, db, 8, 1)
	if eight.CC != 20 {
		t.Errorf("player 8 cc = %d, want 20", eight.CC)
	}
	if report.StipendsPaid != 2 {
		t.Errorf("stipends paid = %d, want 2", report.StipendsPaid)
	}
	if report.PlayersCredited != 2 {
		t.Errorf("players credited = %d, want 2", report.PlayersCredited)
	}
}

func TestLeadershipHighestAmountWins(t *testing.T) {
	s, _, db := newTestScheduler(t)
	policy := newTestPolicy(t, db, 1, 0, 0, nil)

	// Two leadership roles; insertion order is ascending to prove sorting.
	stipends := []models.WeeklyStipend{
		{GuildID: 1, RoleID: 11, AmountCC: 30, Reason: "officer", LeadershipOnly: true},
		{GuildID: 1, RoleID: 10, AmountCC: 80, Reason: "guildmaster", LeadershipOnly: true},
	}
	if err := db.Create(&stipends).Error; err != nil {
		t.Fatal(err)
	}
	members := []models.RoleMembership{
		{GuildID: 1, RoleID: 10, PlayerID: 7},
		{GuildID: 1, RoleID: 11, PlayerID: 7},
	}
	if err := db.Create(&members).Error; err != nil {
		t.Fatal(err)
	}
	policy.Stipends = stipends

	if _, err := s.ResetGuild(policy, time.Now().UTC()); err != nil {
		t.Fatal(err)
	}
	acct := loadAccount(t, db, 7, 1)
	if acct.CC != 80 {
		t.Errorf("cc = %d, want 80 (single highest leadership stipend)", acct.CC)
	}
}

func TestResetGuildCounters(t *testing.T) {
	s, _, db := newTestScheduler(t)
	policy := newTestPolicy(t, db, 1, 10, 20, nil)
	accounts := []models.PlayerAccount{
		{PlayerID: 1, GuildID: 1, CC: 40, DiversionCC: 10, HandicapGrantedCC: 20},
		{PlayerID: 2, GuildID: 1, CC: 5, DiversionCC: 3, HandicapGrantedCC: 7},
		{PlayerID: 3, GuildID: 2, CC: 9, DiversionCC: 9, HandicapGrantedCC: 9}, // other guild
	}
	if err := db.Create(&accounts).Error; err != nil {
		t.Fatal(err)
	}
	beforeDate := policy.CampaignDate
	now := time.Now().UTC()

	if _, err := s.ResetGuild(policy, now); err != nil {
		t.Fatal(err)
	}

	var got models.GuildPolicy
	if err := db.First(&got, "guild_id = ?", uint64(1)).Error; err != nil {
		t.Fatal(err)
	}
	if got.WeeksElapsed != 1 {
		t.Errorf("weeks elapsed = %d, want 1", got.WeeksElapsed)
	}
	if !got.LastResetAt.Equal(now) && got.LastResetAt.Unix() != now.Unix() {
		t.Errorf("last reset = %v, want %v", got.LastResetAt, now)
	}
	drift := int(got.CampaignDate.Sub(beforeDate).Hours() / 24)
	if drift < 13 || drift > 16 {
		t.Errorf("campaign date advanced %d days, want 13..16", drift)
	}

	for _, pid := range []uint64{1, 2} {
		acct := loadAccount(t, db, pid, 1)
		if acct.DiversionCC != 0 || acct.HandicapGrantedCC != 0 {
			t.Errorf("player %d counters not reset: %+v", pid, acct)
		}
		if acct.CC == 0 {
			t.Errorf("player %d cc was wiped", pid)
		}
	}
	// Accounts under other guilds are untouched.
	other := loadAccount(t, db, 3, 2)
	if other.DiversionCC != 9 || other.HandicapGrantedCC != 9 {
		t.Errorf("other guild account mutated: %+v", other)
	}
}

func TestSweepSelectsDueGuilds(t *testing.T) {
	s, _, db := newTestScheduler(t)
	now := time.Date(2026, 3, 2, 4, 30, 0, 0, time.UTC) // Monday 04:xx

	policies := []models.GuildPolicy{
		{GuildID: 1, ResetDay: 1, ResetHour: 4, LastResetAt: now.Add(-7 * 24 * time.Hour)},  // due
		{GuildID: 2, ResetDay: 1, ResetHour: 4, LastResetAt: now.Add(-24 * time.Hour)},      // too recent
		{GuildID: 3, ResetDay: 1, ResetHour: 5, LastResetAt: now.Add(-7 * 24 * time.Hour)},  // wrong hour
		{GuildID: 4, ResetDay: 2, ResetHour: 4, LastResetAt: now.Add(-30 * 24 * time.Hour)}, // wrong day
	}
	for i := range policies {
		if err := db.Create(&policies[i]).Error; err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.Sweep(now)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Errorf("guilds swept = %d, want 1", n)
	}

	var got models.GuildPolicy
	if err := db.First(&got, "guild_id = ?", uint64(1)).Error; err != nil {
		t.Fatal(err)
	}
	if got.WeeksElapsed != 1 {
		t.Errorf("due guild weeks = %d, want 1", got.WeeksElapsed)
	}
	for _, gid := range []uint64{2, 3, 4} {
		var p models.GuildPolicy
		if err := db.First(&p, "guild_id = ?", gid).Error; err != nil {
			t.Fatal(err)
		}
		if p.WeeksElapsed != 0 {
			t.Errorf("guild %d was swept, want untouched", gid)
		}
	}
}

func TestStipendSkipHandicap(t *testing.T) {
	s, _, db := newTestScheduler(t)
	policy := newTestPolicy(t, db, 1, 0, 100, nil) // generous handicap pool

	stipends := []models.WeeklyStipend{
		{GuildID: 1, RoleID: 10, AmountCC: 50, Reason: "boosted"},
		{GuildID: 1, RoleID: 20, AmountCC: 40, Reason: "flat", SkipHandicap: true},
	}
	if err := db.Create(&stipends).Error; err != nil {
		t.Fatal(err)
	}
	members := []models.RoleMembership{
		{GuildID: 1, RoleID: 10, PlayerID: 7},
		{GuildID: 1, RoleID: 20, PlayerID: 8},
	}
	if err := db.Create(&members).Error; err != nil {
		t.Fatal(err)
	}
	policy.Stipends = stipends

	if _, err := s.ResetGuild(policy, time.Now().UTC()); err != nil {
		t.Fatal(err)
	}

	// Handicap doubles the default stipend but not the skip-handicap one.
	seven := loadAccount(t, db, 7, 1)
	if seven.CC != 100 {
		t.Errorf("player 7 cc = %d, want 100 (50 doubled)", seven.CC)
	}
	eight := loadAccount(t, db, 8, 1)
	if eight.CC != 40 {
		t.Errorf("player 8 cc = %d, want 40 (flat)", eight.CC)
	}
}
