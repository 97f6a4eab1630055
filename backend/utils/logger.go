package utils

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
)

// LoggerConfig configures InitLogger.
type LoggerConfig struct {
	// Format is "text" (default) or "json", one object per line
	Format string
	// Output defaults to os.Stdout
	Output io.Writer
	// EnableColors tints the prefix; ignored for json
	EnableColors bool
	// Component is added to the prefix, e.g. "sweep"
	Component string
}

// InitLogger builds the application logger.
func InitLogger(config ...LoggerConfig) *log.Logger {
	var cfg LoggerConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	if cfg.Format == "json" {
		return log.New(&jsonLineWriter{out: cfg.Output, component: cfg.Component}, "", 0)
	}

	prefix := "[Cactus] "
	if cfg.Component != "" {
		prefix = "[Cactus:" + cfg.Component + "] "
	}
	if cfg.EnableColors {
		prefix = "\033[36m" + prefix + "\033[0m" // cyan
	}
	return log.New(cfg.Output, prefix, log.LstdFlags|log.Lshortfile|log.LUTC)
}

// ColorEnabled resolves a LOG_COLOR setting: "true", "false" or "auto", which
// enables colours only when out is a terminal.
func ColorEnabled(setting string, out io.Writer) bool {
	switch strings.ToLower(setting) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DiscardLogger is used by tests and by callers that pass a nil logger.
func DiscardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// jsonLineWriter wraps every line log.Logger writes into a JSON object.
type jsonLineWriter struct {
	out       io.Writer
	component string
}

type jsonLine struct {
	Time      string `json:"time"`
	Component string `json:"component,omitempty"`
	Msg       string `json:"msg"`
}

func (w *jsonLineWriter) Write(p []byte) (int, error) {
	b, err := json.Marshal(jsonLine{
		Time:      time.Now().UTC().Format(time.RFC3339Nano),
		Component: w.component,
		Msg:       strings.TrimRight(string(p), "\n"),
	})
	if err != nil {
		return 0, err
	}
	if _, err := w.out.Write(append(b, '\n')); err != nil {
		return 0, err
	}
	return len(p), nil
}
