package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lorekeep/lorekeep/ledger"
	"github.com/lorekeep/lorekeep/models"
	"github.com/lorekeep/lorekeep/utils"
)

// loadPolicy fetches the guild policy or answers 404.
func loadPolicy(ctx *gin.Context, db *gorm.DB, guildID uint64) (*models.GuildPolicy, bool) {
	var policy models.GuildPolicy
	if err := db.Preload("Stipends").First(&policy, "guild_id = ?", guildID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "guild not found")
		} else {
			utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to load guild policy")
		}
		return nil, false
	}
	return &policy, true
}

// paramUint64 parses a uint64 path parameter, answering 400 on failure.
func paramUint64(ctx *gin.Context, name string) (uint64, bool) {
	v, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid "+name)
		return 0, false
	}
	return v, true
}

// respondLedgerError maps engine errors onto the API envelope.
func respondLedgerError(ctx *gin.Context, err error) {
	var afford *ledger.AffordabilityError
	switch {
	case errors.As(err, &afford):
		utils.Error(ctx, http.StatusBadRequest, 40020, afford.Error())
	case errors.Is(err, ledger.ErrActivityNotFound):
		utils.Error(ctx, http.StatusNotFound, 40420, "activity not found")
	case errors.Is(err, ledger.ErrLogNotFound):
		utils.Error(ctx, http.StatusNotFound, 40421, "log entry not found")
	case errors.Is(err, ledger.ErrLogAlreadyInvalid):
		utils.Error(ctx, http.StatusBadRequest, 40021, "log entry already nullified")
	case errors.Is(err, ledger.ErrCharacterRequired):
		utils.Error(ctx, http.StatusBadRequest, 40022, "character required")
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.Error(ctx, http.StatusNotFound, 40422, "record not found")
	default:
		utils.Sugar.Errorf("ledger operation failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50020, "ledger operation failed")
	}
}
