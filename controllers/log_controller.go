package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lorekeep/lorekeep/ledger"
	"github.com/lorekeep/lorekeep/middleware"
	"github.com/lorekeep/lorekeep/models"
	"github.com/lorekeep/lorekeep/utils"
)

// LogController exposes the ledger engine over HTTP.
type LogController struct {
	db     *gorm.DB
	engine *ledger.Engine
}

// NewLogController creates a new controller instance.
func NewLogController(db *gorm.DB, engine *ledger.Engine) *LogController {
	return &LogController{db: db, engine: engine}
}

type createLogRequest struct {
	GuildID        uint64  `json:"guild_id" binding:"required"`
	PlayerID       uint64  `json:"player_id" binding:"required"`
	ActivityKey    string  `json:"activity_key" binding:"required"`
	CharacterID    *uint   `json:"character_id"`
	Notes          string  `json:"notes"`
	CCOverride     *int    `json:"cc_override"`
	CreditsDelta   int     `json:"credits_delta"`
	AdventureID    *uint64 `json:"adventure_id"`
	FactionID      *uint64 `json:"faction_id"`
	RenownDelta    int     `json:"renown_delta"`
	IgnoreHandicap *bool   `json:"ignore_handicap"`
}

// Create commits a new ledger entry for an activity.
func (l *LogController) Create(ctx *gin.Context) {
	var req createLogRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid log payload")
		return
	}

	authorID, _ := ctx.Get(middleware.ContextPlayerIDKey)
	author, _ := authorID.(uint64)
	if author == 0 {
		author = req.PlayerID
	}

	activity, err := l.engine.Catalog().Get(req.ActivityKey)
	if err != nil {
		respondLedgerError(ctx, err)
		return
	}

	policy, ok := loadPolicy(ctx, l.db, req.GuildID)
	if !ok {
		return
	}

	entry, err := l.engine.CreateLog(policy, activity, ledger.LogRequest{
		AuthorID:       author,
		PlayerID:       req.PlayerID,
		CharacterID:    req.CharacterID,
		Notes:          utils.SanitizeNotes(req.Notes),
		CCOverride:     req.CCOverride,
		CreditsDelta:   req.CreditsDelta,
		AdventureID:    req.AdventureID,
		FactionID:      req.FactionID,
		RenownDelta:    req.RenownDelta,
		IgnoreHandicap: req.IgnoreHandicap,
	})
	if err != nil {
		respondLedgerError(ctx, err)
		return
	}

	utils.Success(ctx, entry)
}

type nullifyRequest struct {
	Reason string `json:"reason" binding:"required,max=255"`
}

// Nullify flags a ledger entry invalid and commits the compensating entry.
func (l *LogController) Nullify(ctx *gin.Context) {
	id, ok := paramUint64(ctx, "id")
	if !ok {
		return
	}
	var req nullifyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40012, "nullify reason required")
		return
	}

	comp, err := l.engine.Nullify(uint(id), utils.SanitizeNotes(req.Reason))
	if err != nil {
		respondLedgerError(ctx, err)
		return
	}
	utils.Success(ctx, comp)
}

// Preview returns the CC amount a log would grant, without persisting. The
// result is cached briefly since previews are refreshed on every keystroke in
// some clients.
func (l *LogController) Preview(ctx *gin.Context) {
	guildID, ok := paramUint64(ctx, "guildId")
	if !ok {
		return
	}
	playerID, ok := paramUint64(ctx, "playerId")
	if !ok {
		return
	}
	key := ctx.Query("activity")

	var override *int
	if raw := ctx.Query("override"); raw != "" {
		var v int
		if _, err := fmt.Sscanf(raw, "%d", &v); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40013, "invalid override")
			return
		}
		override = &v
	}

	cacheKey := fmt.Sprintf("preview:%d:%d:%s:%v", guildID, playerID, key, override != nil)
	if override == nil {
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			var amount int
			if json.Unmarshal(b, &amount) == nil {
				utils.Success(ctx, gin.H{"amount_cc": amount})
				return
			}
		}
	}

	activity, err := l.engine.Catalog().Get(key)
	if err != nil {
		respondLedgerError(ctx, err)
		return
	}
	policy, ok := loadPolicy(ctx, l.db, guildID)
	if !ok {
		return
	}

	var acct models.PlayerAccount
	if err := l.db.Where("player_id = ? AND guild_id = ?", playerID, guildID).First(&acct).Error; err != nil {
		// Unknown accounts preview against zero balances.
		acct = models.PlayerAccount{PlayerID: playerID, GuildID: guildID}
	}

	amount := l.engine.PreviewAmount(policy, activity, &acct, override)
	if override == nil {
		utils.CacheSetJSON(cacheKey, amount, 30*time.Second)
	}
	utils.Success(ctx, gin.H{"amount_cc": amount})
}

// ListPlayerLogs returns a player's recent ledger entries.
func (l *LogController) ListPlayerLogs(ctx *gin.Context) {
	guildID, ok := paramUint64(ctx, "guildId")
	if !ok {
		return
	}
	playerID, ok := paramUint64(ctx, "playerId")
	if !ok {
		return
	}

	limit := 50
	if raw := ctx.Query("limit"); raw != "" {
		fmt.Sscanf(raw, "%d", &limit)
		if limit < 1 || limit > 200 {
			limit = 50
		}
	}

	var entries []models.LogEntry
	if err := l.db.Preload("Activity").
		Where("player_id = ? AND guild_id = ?", playerID, guildID).
		Order("id DESC").Limit(limit).Find(&entries).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to list log entries")
		return
	}
	utils.Success(ctx, entries)
}
