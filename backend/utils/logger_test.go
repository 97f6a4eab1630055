package utils_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"cactus/backend/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLoggerWritesOneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	logger := utils.InitLogger(utils.LoggerConfig{Format: "json", Output: &buf, Component: "sweep", EnableColors: true})

	logger.Printf("sweep done: %d users", 3)
	logger.Println("second")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]string
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "sweep", first["component"])
	assert.Equal(t, "sweep done: 3 users", first["msg"])
	assert.NotEmpty(t, first["time"])
	assert.NotContains(t, buf.String(), "\033[")
}

func TestTextLoggerColorsOnlyWhenEnabled(t *testing.T) {
	var plain, tinted bytes.Buffer
	utils.InitLogger(utils.LoggerConfig{Output: &plain, Component: "cycle"}).Print("hi")
	utils.InitLogger(utils.LoggerConfig{Output: &tinted, Component: "cycle", EnableColors: true}).Print("hi")

	assert.True(t, strings.HasPrefix(plain.String(), "[Cactus:cycle] "))
	assert.NotContains(t, plain.String(), "\033[")
	assert.Contains(t, tinted.String(), "\033[36m[Cactus:cycle] ")
}

func TestColorEnabled(t *testing.T) {
	var buf bytes.Buffer
	assert.True(t, utils.ColorEnabled("true", &buf))
	assert.False(t, utils.ColorEnabled("false", &buf))
	assert.False(t, utils.ColorEnabled("auto", &buf), "a buffer is not a terminal")
	assert.False(t, utils.ColorEnabled("", &buf))
}
