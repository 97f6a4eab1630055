package controllers

import (
	"cactus/backend/store"
	"cactus/backend/utils"
	"errors"

	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"
)

// identity returns the caller stored by the auth middleware.
func identity(c *fiber.Ctx) (utils.Identity, bool) {
	return utils.CurrentIdentity(c)
}

// storeError maps store sentinels onto HTTP responses.
func storeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return utils.NotFound(c, "Not found")
	case errors.Is(err, store.ErrArchived):
		return utils.Conflict(c, "Archived tasks cannot be changed")
	case errors.Is(err, store.ErrLocked):
		return utils.Conflict(c, "Cycle is locked")
	case errors.Is(err, store.ErrLimitReached):
		return utils.TooManyRequests(c, "Daily limit reached")
	default:
		return utils.InternalServerError(c, "Could not query database")
	}
}

// taskID copies the :id route param. Fiber reuses the request buffer behind
// c.Params once the handler returns.
func taskID(c *fiber.Ctx) string {
	return fiberutils.CopyString(c.Params("id"))
}
