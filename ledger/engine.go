package ledger

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lorekeep/lorekeep/models"
	"github.com/lorekeep/lorekeep/utils"
)

// Engine computes reward amounts, enforces the weekly diversion and handicap
// invariants, and commits ledger entries together with their balance
// mutations. Every public operation runs inside a single database
// transaction: either the entry, the balances, the renown delta and the
// author reward all commit, or none of them do.
type Engine struct {
	db      *gorm.DB
	catalog *Catalog
	notify  Notifier
}

// NewEngine wires the engine with its catalog and notification sink.
func NewEngine(db *gorm.DB, catalog *Catalog, notify Notifier) *Engine {
	if notify == nil {
		notify = NopNotifier{}
	}
	return &Engine{db: db, catalog: catalog, notify: notify}
}

// Catalog exposes the engine's activity catalog.
func (e *Engine) Catalog() *Catalog { return e.catalog }

// LogRequest carries the optional fields of a ledger operation. CCOverride
// replaces the activity's base CC when set; IgnoreHandicap overrides the
// activity-type default when set.
type LogRequest struct {
	AuthorID       uint64
	PlayerID       uint64
	CharacterID    *uint
	Notes          string
	CCOverride     *int
	CreditsDelta   int
	AdventureID    *uint64
	FactionID      *uint64
	RenownDelta    int
	IgnoreHandicap *bool
}

// baseAmount resolves the starting CC amount: override, then activity base.
func (r LogRequest) baseAmount(activity *models.Activity) int {
	if r.CCOverride != nil {
		return *r.CCOverride
	}
	if activity.BaseCC != nil {
		return *activity.BaseCC
	}
	return 0
}

// skipHandicap resolves the effective handicap setting for this request.
func (r LogRequest) skipHandicap(activity *models.Activity) bool {
	if r.IgnoreHandicap != nil {
		return *r.IgnoreHandicap
	}
	return activity.SkipHandicap
}

// applyReward runs the reward pipeline against an account in memory: clip
// diversion-limited amounts to the weekly room, then top up from the handicap
// pool. Returns the final CC delta. The diversion counter accumulates only
// the clipped base portion so it can never exceed the guild limit.
func applyReward(policy *models.GuildPolicy, activity *models.Activity, acct *models.PlayerAccount, base int, skipHandicap bool) int {
	reward := base
	divPortion := 0
	if activity.DiversionLimited && reward > 0 {
		room := policy.DiversionLimitCC - acct.DiversionCC
		if room < 0 {
			room = 0
		}
		if reward > room {
			// Overflow beyond the weekly cap is discarded, not deferred.
			reward = room
		}
		divPortion = reward
	}
	if !skipHandicap && reward > 0 && acct.HandicapGrantedCC < policy.HandicapCapCC {
		bonus := policy.HandicapCapCC - acct.HandicapGrantedCC
		if bonus > reward {
			bonus = reward
		}
		reward += bonus
		acct.HandicapGrantedCC += bonus
	}
	acct.CC += reward
	acct.DiversionCC += divPortion
	return reward
}

// PreviewAmount replicates the reward computation without persisting
// anything, for UI previews. Deterministic given the account's balances.
func (e *Engine) PreviewAmount(policy *models.GuildPolicy, activity *models.Activity, acct *models.PlayerAccount, override *int) int {
	req := LogRequest{CCOverride: override}
	scratch := *acct
	return applyReward(policy, activity, &scratch, req.baseAmount(activity), req.skipHandicap(activity))
}

// CreateLog computes the reward for an activity, commits the ledger entry and
// all balance mutations, and cascades the author reward when the author's
// points cross the guild threshold. Spend-kind activities are checked for
// affordability before any mutation; earn-kind callers are expected to
// pre-validate negative overrides themselves.
func (e *Engine) CreateLog(policy *models.GuildPolicy, activity *models.Activity, req LogRequest) (*models.LogEntry, error) {
	var entry *models.LogEntry
	var events []Event
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var err error
		entry, events, err = e.createLogTx(tx, policy, activity, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		e.notify.Publish(ev)
	}
	return entry, nil
}

func (e *Engine) createLogTx(tx *gorm.DB, policy *models.GuildPolicy, activity *models.Activity, req LogRequest) (*models.LogEntry, []Event, error) {
	acct, err := lockPlayerAccount(tx, req.PlayerID, policy.GuildID)
	if err != nil {
		return nil, nil, err
	}

	var char *models.CharacterAccount
	if req.CharacterID != nil {
		char, err = lockCharacter(tx, *req.CharacterID)
		if err != nil {
			return nil, nil, err
		}
	}

	base := req.baseAmount(activity)
	if activity.Kind == models.ActivityKindSpend {
		if base < 0 && acct.CC+base < 0 {
			return nil, nil, &AffordabilityError{Currency: "cc", Need: -base, Have: acct.CC}
		}
		if req.CreditsDelta < 0 {
			if char == nil {
				return nil, nil, ErrCharacterRequired
			}
			if char.Credits+req.CreditsDelta < 0 {
				return nil, nil, &AffordabilityError{Currency: "credits", Need: -req.CreditsDelta, Have: char.Credits}
			}
		}
	}

	reward := applyReward(policy, activity, acct, base, req.skipHandicap(activity))

	if req.FactionID != nil && char != nil && req.RenownDelta != 0 {
		if err := upsertRenown(tx, char.ID, *req.FactionID, req.RenownDelta); err != nil {
			return nil, nil, err
		}
	}

	if char != nil && req.CreditsDelta != 0 {
		char.Credits += req.CreditsDelta
		if err := tx.Save(char).Error; err != nil {
			return nil, nil, err
		}
	}

	entry := &models.LogEntry{
		AuthorID:     req.AuthorID,
		PlayerID:     req.PlayerID,
		GuildID:      policy.GuildID,
		CharacterID:  req.CharacterID,
		ActivityID:   activity.ID,
		CCDelta:      reward,
		CreditsDelta: req.CreditsDelta,
		Notes:        req.Notes,
		AdventureID:  req.AdventureID,
		FactionID:    req.FactionID,
		RenownDelta:  req.RenownDelta,
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, nil, err
	}
	act := *activity
	entry.Activity = &act

	var events []Event
	// Author reward: a single bounded extra grant. Entries for the terminal
	// reward activity never cascade again.
	if !activity.TerminalReward && policy.RewardPointThreshold != nil && *policy.RewardPointThreshold > 0 {
		cascadeEvents, err := e.cascadeAuthorReward(tx, policy, activity, req, acct)
		if err != nil {
			return nil, nil, err
		}
		events = cascadeEvents
	}

	if err := tx.Save(acct).Error; err != nil {
		return nil, nil, err
	}
	return entry, events, nil
}

// cascadeAuthorReward accumulates the activity's point value on the author's
// account and, when the threshold is crossed, grants the terminal reward
// activity once for the full number of earned multiples.
func (e *Engine) cascadeAuthorReward(tx *gorm.DB, policy *models.GuildPolicy, activity *models.Activity, req LogRequest, playerAcct *models.PlayerAccount) ([]Event, error) {
	authorAcct := playerAcct
	if req.AuthorID != req.PlayerID {
		var err error
		authorAcct, err = lockPlayerAccount(tx, req.AuthorID, policy.GuildID)
		if err != nil {
			return nil, err
		}
	}

	authorAcct.RewardPoints += activity.PointValue
	threshold := *policy.RewardPointThreshold

	var events []Event
	if authorAcct.RewardPoints >= threshold {
		rewardAct, err := e.catalog.Get(models.ActivityKeyLogReward)
		if err != nil {
			// A missing terminal activity is a catalog misconfiguration;
			// keep the points so the grant fires after it is restored.
			utils.Sugar.Warnf("author reward skipped: %s activity missing from catalog", models.ActivityKeyLogReward)
			return nil, nil
		}
		qty := authorAcct.RewardPoints / threshold
		if qty < 1 {
			qty = 1
		}
		base := 0
		if rewardAct.BaseCC != nil {
			base = *rewardAct.BaseCC * qty
		}
		granted := applyReward(policy, rewardAct, authorAcct, base, rewardAct.SkipHandicap)

		bonus := &models.LogEntry{
			AuthorID:   req.AuthorID,
			PlayerID:   req.AuthorID,
			GuildID:    policy.GuildID,
			ActivityID: rewardAct.ID,
			CCDelta:    granted,
			Notes:      fmt.Sprintf("author reward x%d", qty),
		}
		if err := tx.Create(bonus).Error; err != nil {
			return nil, err
		}

		authorAcct.RewardPoints -= threshold * qty
		if authorAcct.RewardPoints < 0 {
			authorAcct.RewardPoints = 0
		}

		ev := NewEvent(EventRewardGranted, policy.GuildID)
		ev.PlayerID = req.AuthorID
		ev.AmountCC = granted
		ev.Message = fmt.Sprintf("earned %d CC for logging activity", granted)
		events = append(events, ev)
	}

	if authorAcct != playerAcct {
		if err := tx.Save(authorAcct).Error; err != nil {
			return nil, err
		}
	}
	return events, nil
}

// Nullify flags an entry invalid and writes a compensating MOD entry with the
// negated deltas. The diversion counter is reversed only when the original
// entry was diversion-limited and still inside the open weekly window. The
// original row is retained for audit.
func (e *Engine) Nullify(logID uint, reason string) (*models.LogEntry, error) {
	var comp *models.LogEntry
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var orig models.LogEntry
		if err := tx.First(&orig, logID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrLogNotFound
			}
			return err
		}
		if orig.Invalid {
			return ErrLogAlreadyInvalid
		}

		activity, err := e.catalog.ByID(orig.ActivityID)
		if err != nil {
			return err
		}
		modAct, err := e.catalog.Get(models.ActivityKeyMod)
		if err != nil {
			return err
		}

		var policy models.GuildPolicy
		if err := tx.First(&policy, "guild_id = ?", orig.GuildID).Error; err != nil {
			return err
		}

		acct, err := lockPlayerAccount(tx, orig.PlayerID, orig.GuildID)
		if err != nil {
			return err
		}
		acct.CC -= orig.CCDelta
		if activity.DiversionLimited && orig.CreatedAt.After(policy.LastResetAt) {
			acct.DiversionCC -= orig.CCDelta
			if acct.DiversionCC < 0 {
				acct.DiversionCC = 0
			}
		}
		if err := tx.Save(acct).Error; err != nil {
			return err
		}

		if orig.CharacterID != nil && orig.CreditsDelta != 0 {
			char, err := lockCharacter(tx, *orig.CharacterID)
			if err != nil {
				return err
			}
			char.Credits -= orig.CreditsDelta
			if err := tx.Save(char).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&orig).Update("invalid", true).Error; err != nil {
			return err
		}

		comp = &models.LogEntry{
			AuthorID:     orig.AuthorID,
			PlayerID:     orig.PlayerID,
			GuildID:      orig.GuildID,
			CharacterID:  orig.CharacterID,
			ActivityID:   modAct.ID,
			CCDelta:      -orig.CCDelta,
			CreditsDelta: -orig.CreditsDelta,
			Notes:        reason,
		}
		if err := tx.Create(comp).Error; err != nil {
			return err
		}
		act := *modAct
		comp.Activity = &act
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comp, nil
}

// Purchase commits a marketplace spend. When the character's credits cannot
// cover the cost, the shortfall is auto-converted from the player's CC at the
// character's level rate; conversion and purchase commit in one transaction.
func (e *Engine) Purchase(policy *models.GuildPolicy, activity *models.Activity, req LogRequest) (*models.LogEntry, error) {
	if req.CharacterID == nil {
		return nil, ErrCharacterRequired
	}
	var entry *models.LogEntry
	var events []Event
	err := e.db.Transaction(func(tx *gorm.DB) error {
		char, err := lockCharacter(tx, *req.CharacterID)
		if err != nil {
			return err
		}
		acct, err := lockPlayerAccount(tx, req.PlayerID, policy.GuildID)
		if err != nil {
			return err
		}

		if projected := char.Credits + req.CreditsDelta; projected < 0 {
			rate := ConversionRate(char.Level)
			needCC := convertedCCFor(-projected, rate)
			if acct.CC < needCC {
				return &AffordabilityError{Currency: "cc", Need: needCC, Have: acct.CC}
			}
			convAct, err := e.catalog.Get(models.ActivityKeyConversion)
			if err != nil {
				return err
			}
			acct.CC -= needCC
			char.Credits += needCC * rate
			conv := &models.LogEntry{
				AuthorID:     req.AuthorID,
				PlayerID:     req.PlayerID,
				GuildID:      policy.GuildID,
				CharacterID:  req.CharacterID,
				ActivityID:   convAct.ID,
				CCDelta:      -needCC,
				CreditsDelta: needCC * rate,
				Notes:        "automatic conversion",
			}
			if err := tx.Create(conv).Error; err != nil {
				return err
			}
			if err := tx.Save(acct).Error; err != nil {
				return err
			}
			if err := tx.Save(char).Error; err != nil {
				return err
			}
		}

		entry, events, err = e.createLogTx(tx, policy, activity, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		e.notify.Publish(ev)
	}
	return entry, nil
}

// lockPlayerAccount upserts and row-locks the (player, guild) account inside
// the current transaction. SQLite serializes writers on its own, so the FOR
// UPDATE clause is applied only on MySQL.
func lockPlayerAccount(tx *gorm.DB, playerID, guildID uint64) (*models.PlayerAccount, error) {
	acct := models.PlayerAccount{PlayerID: playerID, GuildID: guildID}
	q := tx
	if tx.Dialector.Name() == "mysql" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.Where("player_id = ? AND guild_id = ?", playerID, guildID).
		FirstOrCreate(&acct).Error; err != nil {
		return nil, err
	}
	return &acct, nil
}

func lockCharacter(tx *gorm.DB, id uint) (*models.CharacterAccount, error) {
	var char models.CharacterAccount
	q := tx
	if tx.Dialector.Name() == "mysql" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&char, id).Error; err != nil {
		return nil, err
	}
	return &char, nil
}

// upsertRenown creates the (character, faction) row if absent, else adds the
// delta. No floor clamp here: negative renown is a legitimate outcome.
func upsertRenown(tx *gorm.DB, characterID uint, factionID uint64, delta int) error {
	var row models.CharacterRenown
	err := tx.Where("character_id = ? AND faction_id = ?", characterID, factionID).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		row = models.CharacterRenown{CharacterID: characterID, FactionID: factionID, Renown: delta}
		return tx.Create(&row).Error
	}
	if err != nil {
		return err
	}
	row.Renown += delta
	return tx.Save(&row).Error
}
