package controllers

import (
	"cactus/backend/config"
	"cactus/backend/cycle"
	"cactus/backend/models"
	"cactus/backend/store"
	"cactus/backend/utils"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const maxTitleLength = 200

type TasksController struct {
	Store store.Store
	Clock cycle.Clock
	Cfg   *config.Config
}

func NewTasksController(s store.Store, clock cycle.Clock, cfg *config.Config) *TasksController {
	return &TasksController{Store: s, Clock: clock, Cfg: cfg}
}

// ListTasks godoc
// @Summary List tasks
// @Description Returns the current cycle's tasks; archived=true adds the archive
// @Tags tasks
// @Produce json
// @Param archived query bool false "Include archived tasks" default(false)
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /tasks [get]
func (tc *TasksController) ListTasks(c *fiber.Ctx) error {
	id, ok := identity(c)
	if !ok {
		return utils.Unauthorized(c, "Unauthorized")
	}

	tasks, err := tc.Store.ListTasks(c.UserContext(), id.UserID, c.QueryBool("archived", false))
	if err != nil {
		return storeError(c, err)
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return utils.Success(c, fiber.StatusOK, tasks)
}

// CreateTask godoc
// @Summary Create a task in the current cycle
// @Tags tasks
// @Accept json
// @Produce json
// @Param input body object true "Task title"
// @Success 201 {object} utils.SuccessResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /tasks [post]
func (tc *TasksController) CreateTask(c *fiber.Ctx) error {
	id, ok := identity(c)
	if !ok {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input struct {
		Title string `json:"title"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	title := strings.TrimSpace(input.Title)
	switch {
	case title == "":
		return utils.ValidationError(c, map[string]string{"title": "required"})
	case len(title) > maxTitleLength:
		return utils.ValidationError(c, map[string]string{"title": "too long"})
	case models.HasArchiveMarker(title):
		return utils.ValidationError(c, map[string]string{"title": "must not start with an archive marker"})
	}

	now := tc.Clock.Now().UTC()
	if _, _, err := tc.Store.EnsureProgress(c.UserContext(), id.UserID, id.Email, now); err != nil {
		return storeError(c, err)
	}

	task := models.Task{UserID: id.UserID, Title: title, CreatedAt: now}
	if err := tc.Store.CreateTask(c.UserContext(), &task); err != nil {
		return storeError(c, err)
	}
	return utils.Created(c, task)
}

// CompleteTask godoc
// @Summary Mark a task completed
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /tasks/{id}/complete [post]
func (tc *TasksController) CompleteTask(c *fiber.Ctx) error {
	id, ok := identity(c)
	if !ok {
		return utils.Unauthorized(c, "Unauthorized")
	}

	task, err := tc.Store.CompleteTask(c.UserContext(), id.UserID, taskID(c), tc.Clock.Now().UTC())
	if err != nil {
		return storeError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, task)
}

// DeleteTask godoc
// @Summary Delete a task
// @Description Archived tasks are kept for good and cannot be deleted
// @Tags tasks
// @Param id path string true "Task ID"
// @Success 204
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /tasks/{id} [delete]
func (tc *TasksController) DeleteTask(c *fiber.Ctx) error {
	id, ok := identity(c)
	if !ok {
		return utils.Unauthorized(c, "Unauthorized")
	}

	if err := tc.Store.DeleteTask(c.UserContext(), id.UserID, taskID(c)); err != nil {
		return storeError(c, err)
	}
	return utils.NoContent(c)
}
