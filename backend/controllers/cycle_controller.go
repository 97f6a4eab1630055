package controllers

import (
	"cactus/backend/config"
	"cactus/backend/cycle"
	"cactus/backend/notify"
	"cactus/backend/scheduler"
	"cactus/backend/store"
	"cactus/backend/utils"
	"log"

	"github.com/gofiber/fiber/v2"
)

type CycleController struct {
	Coord     *cycle.Coordinator
	Store     store.Store
	Notifier  *notify.Notifier
	Scheduler *scheduler.Scheduler
	Cfg       *config.Config
	Logger    *log.Logger
}

func NewCycleController(coord *cycle.Coordinator, s store.Store, notifier *notify.Notifier, sched *scheduler.Scheduler, cfg *config.Config, logger *log.Logger) *CycleController {
	if logger == nil {
		logger = utils.DiscardLogger()
	}
	return &CycleController{Coord: coord, Store: s, Notifier: notifier, Scheduler: sched, Cfg: cfg, Logger: logger}
}

// GetStatus godoc
// @Summary Get cycle status
// @Description Returns whether a reset is due and how many hours remain in the current cycle
// @Tags cycle
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /cycle/status [get]
func (cc *CycleController) GetStatus(c *fiber.Ctx) error {
	id, ok := identity(c)
	if !ok {
		return utils.Unauthorized(c, "Unauthorized")
	}

	status, err := cc.Coord.Status(c.UserContext(), id.UserID)
	if err != nil {
		cc.Logger.Printf("status for %s: %v", id.UserID, err)
		return utils.InternalServerError(c, "Could not read cycle status")
	}
	return utils.Success(c, fiber.StatusOK, status)
}

// Check godoc
// @Summary Opportunistic cycle check
// @Description Called on page load. Closes the cycle if it is due; a failed reset is reported as "not reset"
// @Tags cycle
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /cycle/check [post]
func (cc *CycleController) Check(c *fiber.Ctx) error {
	id, ok := identity(c)
	if !ok {
		return utils.Unauthorized(c, "Unauthorized")
	}

	res, err := cc.Coord.CheckAndResetAs(c.UserContext(), id.UserID, id.Email)
	if err != nil {
		// The next page load or sweep retries; the user just keeps yesterday's cycle.
		cc.Logger.Printf("page-load reset for %s failed: %v", id.UserID, err)
	}
	cc.Notifier.DeliverSummary(c.UserContext(), res)
	return utils.Success(c, fiber.StatusOK, res)
}

// Reset godoc
// @Summary Perform reset now
// @Description Closes the cycle if due. With ALLOW_TEST_RESET the cycle is closed regardless of its age
// @Tags cycle
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /cycle/reset [post]
func (cc *CycleController) Reset(c *fiber.Ctx) error {
	id, ok := identity(c)
	if !ok {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var (
		res cycle.Result
		err error
	)
	if cc.Cfg.AllowTestReset {
		res, err = cc.Coord.ResetNow(c.UserContext(), id.UserID)
	} else {
		res, err = cc.Coord.CheckAndResetAs(c.UserContext(), id.UserID, id.Email)
	}
	if err != nil {
		cc.Logger.Printf("reset for %s failed: %v", id.UserID, err)
		return utils.ServiceUnavailable(c, "Reset failed, try again later")
	}

	cc.Notifier.DeliverSummary(c.UserContext(), res)
	return utils.Success(c, fiber.StatusOK, res)
}

// GetSummary godoc
// @Summary Collect the last cycle summary
// @Description Returns the summary of the most recent reset once, then clears it
// @Tags cycle
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Success 204
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /cycle/summary [get]
func (cc *CycleController) GetSummary(c *fiber.Ctx) error {
	id, ok := identity(c)
	if !ok {
		return utils.Unauthorized(c, "Unauthorized")
	}

	summary, err := cc.Store.TakePendingSummary(c.UserContext(), id.UserID)
	if err != nil {
		return storeError(c, err)
	}
	if summary == nil {
		return utils.NoContent(c)
	}
	return utils.Success(c, fiber.StatusOK, summary)
}

// Lock godoc
// @Summary Commit to the current cycle
// @Tags cycle
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /cycle/lock [post]
func (cc *CycleController) Lock(c *fiber.Ctx) error {
	id, ok := identity(c)
	if !ok {
		return utils.Unauthorized(c, "Unauthorized")
	}

	p, err := cc.Store.Lock(c.UserContext(), id.UserID)
	if err != nil {
		return storeError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, p)
}

// Sweep godoc
// @Summary Run one scheduler tick
// @Description Entry point for an external cron. Requires the X-Sweep-Secret header
// @Tags internal
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 403 {object} utils.ErrorResponse
// @Router /internal/sweep [post]
func (cc *CycleController) Sweep(c *fiber.Ctx) error {
	report := cc.Scheduler.Tick(c.UserContext())
	return utils.Success(c, fiber.StatusOK, report)
}
