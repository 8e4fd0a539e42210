package ledger

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lorekeep/lorekeep/models"
	"github.com/lorekeep/lorekeep/utils"
)

// Scheduler runs the weekly reset batch: zero the per-guild weekly counters
// and disburse role-based stipends through the ledger engine.
type Scheduler struct {
	db     *gorm.DB
	engine *Engine
	notify Notifier
}

// NewScheduler wires the scheduler with its engine and notification sink.
func NewScheduler(db *gorm.DB, engine *Engine, notify Notifier) *Scheduler {
	if notify == nil {
		notify = NopNotifier{}
	}
	return &Scheduler{db: db, engine: engine, notify: notify}
}

// SweepReport summarizes one guild reset.
type SweepReport struct {
	RunID           string        `json:"run_id"`
	GuildID         uint64        `json:"guild_id"`
	StipendsPaid    int           `json:"stipends_paid"`
	PlayersCredited int           `json:"players_credited"`
	Elapsed         time.Duration `json:"elapsed"`
}

// Run launches the background sweep loop. It is best-effort and logs
// failures; a missed tick is retried on the next one.
func (s *Scheduler) Run(interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	go func() {
		for {
			time.Sleep(interval)
			if _, err := s.Sweep(time.Now().UTC()); err != nil {
				utils.Sugar.Errorf("weekly sweep failed: %v", err)
			}
		}
	}()
}

// Sweep resets every guild whose reset slot matches now and whose last reset
// is older than six days, so a slot is never processed twice in one week.
func (s *Scheduler) Sweep(now time.Time) (int, error) {
	var policies []models.GuildPolicy
	cutoff := now.Add(-6 * 24 * time.Hour)
	err := s.db.Preload("Stipends").
		Where("reset_day = ? AND reset_hour = ? AND last_reset_at < ?", int(now.Weekday()), now.Hour(), cutoff).
		Find(&policies).Error
	if err != nil {
		return 0, err
	}
	for i := range policies {
		if _, err := s.ResetGuild(&policies[i], now); err != nil {
			utils.Sugar.Errorf("guild reset failed guild=%d err=%v", policies[i].GuildID, err)
		}
	}
	return len(policies), nil
}

// ResetGuild advances the guild's week, bulk-zeroes the weekly counters and
// pays out stipends ordered by amount descending. A player holding several
// leadership roles receives only the single highest-amount leadership
// stipend; once leadership-credited they are skipped by every later stipend
// in the same sweep.
func (s *Scheduler) ResetGuild(policy *models.GuildPolicy, now time.Time) (*SweepReport, error) {
	start := time.Now()
	report := &SweepReport{RunID: uuid.NewString(), GuildID: policy.GuildID}

	policy.WeeksElapsed++
	policy.LastResetAt = now
	// The in-game calendar drifts 13-16 days per real week.
	policy.CampaignDate = policy.CampaignDate.AddDate(0, 0, 13+rand.Intn(4))

	err := s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"weeks_elapsed": policy.WeeksElapsed,
			"last_reset_at": policy.LastResetAt,
			"campaign_date": policy.CampaignDate,
		}
		if err := tx.Model(&models.GuildPolicy{}).Where("guild_id = ?", policy.GuildID).Updates(updates).Error; err != nil {
			return err
		}
		// Single aggregate update, no per-row ledger entries.
		return tx.Model(&models.PlayerAccount{}).
			Where("guild_id = ?", policy.GuildID).
			Updates(map[string]interface{}{"diversion_cc": 0, "handicap_granted_cc": 0}).Error
	})
	if err != nil {
		return nil, err
	}

	stipendAct, err := s.engine.Catalog().Get(models.ActivityKeyStipend)
	if err != nil {
		return nil, err
	}

	stipends := make([]models.WeeklyStipend, len(policy.Stipends))
	copy(stipends, policy.Stipends)
	sort.SliceStable(stipends, func(i, j int) bool {
		return stipends[i].AmountCC > stipends[j].AmountCC
	})

	leadershipCredited := make(map[uint64]bool)
	credited := make(map[uint64]bool)
	for _, st := range stipends {
		members, err := s.roleMembers(policy.GuildID, st.RoleID)
		if err != nil {
			utils.Sugar.Errorf("stipend member lookup failed guild=%d role=%d err=%v", policy.GuildID, st.RoleID, err)
			continue
		}
		for _, playerID := range members {
			if leadershipCredited[playerID] {
				continue
			}
			amount := st.AmountCC
			req := LogRequest{
				AuthorID:   playerID,
				PlayerID:   playerID,
				Notes:      st.Reason,
				CCOverride: &amount,
			}
			if st.SkipHandicap {
				skip := true
				req.IgnoreHandicap = &skip
			}
			if _, err := s.engine.CreateLog(policy, stipendAct, req); err != nil {
				utils.Sugar.Errorf("stipend grant failed guild=%d player=%d err=%v", policy.GuildID, playerID, err)
				continue
			}
			if st.LeadershipOnly {
				leadershipCredited[playerID] = true
			}
			credited[playerID] = true
			report.StipendsPaid++

			ev := NewEvent(EventStipendPaid, policy.GuildID)
			ev.PlayerID = playerID
			ev.AmountCC = amount
			ev.Message = st.Reason
			s.notify.Publish(ev)
		}
	}
	report.PlayersCredited = len(credited)
	report.Elapsed = time.Since(start)

	ev := NewEvent(EventSweepDone, policy.GuildID)
	ev.Message = fmt.Sprintf("week %d reset: %d stipends to %d players in %s",
		policy.WeeksElapsed, report.StipendsPaid, report.PlayersCredited, report.Elapsed.Round(time.Millisecond))
	s.notify.Publish(ev)

	utils.Sugar.Infof("guild %d reset complete run=%s stipends=%d players=%d elapsed=%s",
		policy.GuildID, report.RunID, report.StipendsPaid, report.PlayersCredited, report.Elapsed)
	return report, nil
}

func (s *Scheduler) roleMembers(guildID, roleID uint64) ([]uint64, error) {
	var ids []uint64
	err := s.db.Model(&models.RoleMembership{}).
		Where("guild_id = ? AND role_id = ?", guildID, roleID).
		Order("player_id").
		Pluck("player_id", &ids).Error
	return ids, err
}
