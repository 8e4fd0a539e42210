package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lorekeep/lorekeep/ledger"
	"github.com/lorekeep/lorekeep/models"
	"github.com/lorekeep/lorekeep/utils"
)

// AdminController exposes guild maintenance operations: manual resets,
// catalog reloads and stipend management.
type AdminController struct {
	db        *gorm.DB
	engine    *ledger.Engine
	scheduler *ledger.Scheduler
}

// NewAdminController creates a new controller instance.
func NewAdminController(db *gorm.DB, engine *ledger.Engine, scheduler *ledger.Scheduler) *AdminController {
	return &AdminController{db: db, engine: engine, scheduler: scheduler}
}

// ResetGuild runs the weekly reset for one guild immediately.
func (a *AdminController) ResetGuild(ctx *gin.Context) {
	guildID, ok := paramUint64(ctx, "guildId")
	if !ok {
		return
	}
	policy, ok := loadPolicy(ctx, a.db, guildID)
	if !ok {
		return
	}

	report, err := a.scheduler.ResetGuild(policy, time.Now().UTC())
	if err != nil {
		utils.Sugar.Errorf("manual guild reset failed guild=%d err=%v", guildID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50040, "guild reset failed")
		return
	}
	utils.Success(ctx, report)
}

// ReloadCatalog swaps in a fresh activity snapshot.
func (a *AdminController) ReloadCatalog(ctx *gin.Context) {
	if err := a.engine.Catalog().Reload(); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "catalog reload failed")
		return
	}
	utils.Success(ctx, gin.H{"reloaded": true})
}

// ListStipends returns the guild's configured weekly stipends.
func (a *AdminController) ListStipends(ctx *gin.Context) {
	guildID, ok := paramUint64(ctx, "guildId")
	if !ok {
		return
	}
	var stipends []models.WeeklyStipend
	if err := a.db.Where("guild_id = ?", guildID).Order("amount_cc DESC").Find(&stipends).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to list stipends")
		return
	}
	utils.Success(ctx, stipends)
}

type createStipendRequest struct {
	RoleID         uint64 `json:"role_id" binding:"required"`
	AmountCC       int    `json:"amount_cc" binding:"required,min=1"`
	Reason         string `json:"reason" binding:"required,max=255"`
	LeadershipOnly bool   `json:"leadership_only"`
	SkipHandicap   bool   `json:"skip_handicap"`
}

// CreateStipend adds a weekly stipend to a guild.
func (a *AdminController) CreateStipend(ctx *gin.Context) {
	guildID, ok := paramUint64(ctx, "guildId")
	if !ok {
		return
	}
	if _, ok := loadPolicy(ctx, a.db, guildID); !ok {
		return
	}

	var req createStipendRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40015, "invalid stipend payload")
		return
	}

	stipend := models.WeeklyStipend{
		GuildID:        guildID,
		RoleID:         req.RoleID,
		AmountCC:       req.AmountCC,
		Reason:         utils.SanitizeNotes(req.Reason),
		LeadershipOnly: req.LeadershipOnly,
		SkipHandicap:   req.SkipHandicap,
	}
	if err := a.db.Create(&stipend).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to create stipend")
		return
	}
	utils.Success(ctx, stipend)
}
