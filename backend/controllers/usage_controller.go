package controllers

import (
	"cactus/backend/config"
	"cactus/backend/models"
	"cactus/backend/store"
	"cactus/backend/utils"

	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"
)

type UsageController struct {
	Store store.Store
	Cfg   *config.Config
}

func NewUsageController(s store.Store, cfg *config.Config) *UsageController {
	return &UsageController{Store: s, Cfg: cfg}
}

// RecordMood godoc
// @Summary Check in a mood for the current cycle
// @Tags usage
// @Accept json
// @Produce json
// @Param input body object true "Mood (energized|focused|neutral|tired|stressed)"
// @Success 200 {object} utils.SuccessResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 429 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /mood [post]
func (uc *UsageController) RecordMood(c *fiber.Ctx) error {
	id, ok := identity(c)
	if !ok {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input struct {
		Mood string `json:"mood"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	mood, err := models.ParseMood(input.Mood)
	if err != nil {
		return utils.ValidationError(c, map[string]string{"mood": err.Error()})
	}

	p, err := uc.Store.RecordMood(c.UserContext(), id.UserID, mood, uc.Cfg.Rules.Usage.MoodChecksPerCycle)
	if err != nil {
		return storeError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, p)
}

// RecordUsage godoc
// @Summary Count one AI-assisted action against the cycle's allowance
// @Tags usage
// @Produce json
// @Param kind path string true "ai_split or ai_schedule"
// @Success 200 {object} utils.SuccessResponse
// @Failure 429 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /usage/{kind} [post]
func (uc *UsageController) RecordUsage(c *fiber.Ctx) error {
	id, ok := identity(c)
	if !ok {
		return utils.Unauthorized(c, "Unauthorized")
	}

	kind := store.UsageKind(fiberutils.CopyString(c.Params("kind")))
	if !kind.IsValid() {
		return utils.BadRequest(c, "Unknown usage kind")
	}
	limit := uc.Cfg.Rules.Usage.AISplitsPerCycle
	if kind == store.UsageAISchedule {
		limit = uc.Cfg.Rules.Usage.AIScheduleUsesLimit
	}

	p, err := uc.Store.IncrementUsage(c.UserContext(), id.UserID, kind, limit)
	if err != nil {
		return storeError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, p)
}
