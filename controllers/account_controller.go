package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lorekeep/lorekeep/models"
	"github.com/lorekeep/lorekeep/utils"
)

// AccountController serves player and character balances.
type AccountController struct {
	db *gorm.DB
}

// NewAccountController creates a new controller instance.
func NewAccountController(db *gorm.DB) *AccountController {
	return &AccountController{db: db}
}

// GetPlayer returns the player's guild account, creating it lazily with zero
// balances on first access.
func (a *AccountController) GetPlayer(ctx *gin.Context) {
	guildID, ok := paramUint64(ctx, "guildId")
	if !ok {
		return
	}
	playerID, ok := paramUint64(ctx, "playerId")
	if !ok {
		return
	}

	acct := models.PlayerAccount{PlayerID: playerID, GuildID: guildID}
	if err := a.db.Where("player_id = ? AND guild_id = ?", playerID, guildID).
		FirstOrCreate(&acct).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to load player account")
		return
	}
	utils.Success(ctx, acct)
}

// GetCharacter returns a character account with its renown rows.
func (a *AccountController) GetCharacter(ctx *gin.Context) {
	id, ok := paramUint64(ctx, "id")
	if !ok {
		return
	}

	var char models.CharacterAccount
	if err := a.db.Preload("Renown").First(&char, uint(id)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40430, "character not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to load character")
		return
	}
	utils.Success(ctx, char)
}

// GetRenown returns the per-faction reputation rows for a character.
func (a *AccountController) GetRenown(ctx *gin.Context) {
	id, ok := paramUint64(ctx, "id")
	if !ok {
		return
	}

	var rows []models.CharacterRenown
	if err := a.db.Where("character_id = ?", uint(id)).Find(&rows).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to load renown")
		return
	}
	utils.Success(ctx, rows)
}
