package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lorekeep/lorekeep/ledger"
	"github.com/lorekeep/lorekeep/middleware"
	"github.com/lorekeep/lorekeep/utils"
)

// MarketController handles marketplace purchases with automatic CC to Credit
// conversion.
type MarketController struct {
	db     *gorm.DB
	engine *ledger.Engine
}

// NewMarketController creates a new controller instance.
func NewMarketController(db *gorm.DB, engine *ledger.Engine) *MarketController {
	return &MarketController{db: db, engine: engine}
}

type purchaseRequest struct {
	GuildID     uint64 `json:"guild_id" binding:"required"`
	PlayerID    uint64 `json:"player_id" binding:"required"`
	CharacterID uint   `json:"character_id" binding:"required"`
	ActivityKey string `json:"activity_key" binding:"required"`
	Cost        int    `json:"cost" binding:"required,min=1"`
	Notes       string `json:"notes"`
}

// Purchase commits a spend entry; when credits fall short, the engine
// converts the difference from the player's CC at the character's level rate.
func (m *MarketController) Purchase(ctx *gin.Context) {
	var req purchaseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40014, "invalid purchase payload")
		return
	}

	authorID, _ := ctx.Get(middleware.ContextPlayerIDKey)
	author, _ := authorID.(uint64)
	if author == 0 {
		author = req.PlayerID
	}

	activity, err := m.engine.Catalog().Get(req.ActivityKey)
	if err != nil {
		respondLedgerError(ctx, err)
		return
	}

	policy, ok := loadPolicy(ctx, m.db, req.GuildID)
	if !ok {
		return
	}

	characterID := req.CharacterID
	entry, err := m.engine.Purchase(policy, activity, ledger.LogRequest{
		AuthorID:     author,
		PlayerID:     req.PlayerID,
		CharacterID:  &characterID,
		Notes:        utils.SanitizeNotes(req.Notes),
		CreditsDelta: -req.Cost,
	})
	if err != nil {
		respondLedgerError(ctx, err)
		return
	}

	utils.Success(ctx, entry)
}
