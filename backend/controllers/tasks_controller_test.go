package controllers_test

import (
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTaskValidation(t *testing.T) {
	env := setup(t)

	resp, _ := env.do(t, "POST", "/api/tasks", map[string]string{"title": "   "}, "u1")
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = env.do(t, "POST", "/api/tasks", map[string]string{"title": strings.Repeat("a", 201)}, "u1")
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = env.do(t, "POST", "/api/tasks", map[string]string{"title": "[Archived 2026-01-01] sneaky"}, "u1")
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	resp, result := env.do(t, "POST", "/api/tasks", map[string]string{"title": "  meditate "}, "u1")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "meditate", data(t, result)["title"])
}

func TestCompletingTaskRaisesMoodScore(t *testing.T) {
	env := setup(t)
	_, created := env.do(t, "POST", "/api/tasks", map[string]string{"title": "run"}, "u1")
	id := data(t, created)["id"].(string)

	resp, result := env.do(t, "POST", "/api/tasks/"+id+"/complete", nil, "u1")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, data(t, result)["completed"])

	_, result = env.do(t, "GET", "/api/cycle/status", nil, "u1")
	assert.Equal(t, float64(1), data(t, result)["mood_score"])

	resp, _ = env.do(t, "POST", "/api/tasks/"+id+"/complete", nil, "u2")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestDeleteTask(t *testing.T) {
	env := setup(t)
	_, created := env.do(t, "POST", "/api/tasks", map[string]string{"title": "maybe later"}, "u1")
	openID := data(t, created)["id"].(string)
	_, created = env.do(t, "POST", "/api/tasks", map[string]string{"title": "keep"}, "u1")
	keepID := data(t, created)["id"].(string)
	env.do(t, "POST", "/api/tasks/"+keepID+"/complete", nil, "u1")

	resp, _ := env.do(t, "DELETE", "/api/tasks/"+openID, nil, "u1")
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	env.clock.Advance(24 * time.Hour)
	env.do(t, "POST", "/api/cycle/check", nil, "u1")

	resp, _ = env.do(t, "DELETE", "/api/tasks/"+keepID, nil, "u1")
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = env.do(t, "DELETE", "/api/tasks/missing", nil, "u1")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestUsageLimits(t *testing.T) {
	env := setup(t)
	env.cfg.Rules.Usage.AIScheduleUsesLimit = 1
	env.do(t, "POST", "/api/cycle/check", nil, "u1")

	resp, _ := env.do(t, "POST", "/api/usage/ai_schedule", nil, "u1")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = env.do(t, "POST", "/api/usage/ai_schedule", nil, "u1")
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	resp, _ = env.do(t, "POST", "/api/usage/telepathy", nil, "u1")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, "POST", "/api/mood", map[string]string{"mood": "grumpy"}, "u1")
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCompletedTaskIsArchivedAfterLaterRequests(t *testing.T) {
	env := setup(t)
	env.do(t, "POST", "/api/cycle/check", nil, "u1")
	_, created := env.do(t, "POST", "/api/tasks", map[string]string{"title": "stretch"}, "u1")
	id := data(t, created)["id"].(string)

	resp, _ := env.do(t, "POST", "/api/tasks/"+id+"/complete", nil, "u1")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	// reuse the request buffers before the cycle closes
	for i := 0; i < 3; i++ {
		env.do(t, "DELETE", "/api/tasks/00000000-0000-0000-0000-00000000000"+string(rune('0'+i)), nil, "u1")
	}

	env.clock.Advance(24 * time.Hour)
	resp, result := env.do(t, "POST", "/api/cycle/check", nil, "u1")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, true, data(t, result)["reset_performed"])

	_, result = env.do(t, "GET", "/api/tasks?archived=true", nil, "u1")
	tasks := result["data"].([]interface{})
	require.Len(t, tasks, 1)
	archived := tasks[0].(map[string]interface{})
	assert.Equal(t, id, archived["id"])
	assert.Equal(t, true, archived["archived"])
	assert.Equal(t, true, archived["completed"])
}
