package logkit_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/JailtonJunior94/logkit/pkg/logentry"
	"github.com/JailtonJunior94/logkit/pkg/logkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func consoleEntry(level logentry.Level, msg string) logentry.Entry {
	return logentry.Entry{
		Timestamp:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Source:     logentry.DefaultSource,
		Level:      level,
		Layer:      logentry.LayerComponent,
		Message:    msg,
		Module:     "features.registration",
		Function:   "Submit",
		FilePath:   logentry.StringPtr("features/registration/form.go"),
		LineNumber: logentry.IntPtr(42),
		RequestID:  "req-1",
		ExtraData:  logentry.Extra{"formId": "register"},
	}
}

func TestSlogConsoleRoutesBySeverity(t *testing.T) {
	var out, warn, errOut bytes.Buffer
	c := logkit.NewSlogConsole(logkit.ConsoleText, &out, &warn, &errOut)

	c.Print(consoleEntry(logentry.LevelDebug, "debugging"))
	c.Print(consoleEntry(logentry.LevelInfo, "saved"))
	c.Print(consoleEntry(logentry.LevelWarning, "slow"))
	c.Print(consoleEntry(logentry.LevelError, "failed"))
	c.Print(consoleEntry(logentry.LevelCritical, "down"))

	assert.Contains(t, out.String(), `msg="[DEBUG][Component] debugging"`)
	assert.Contains(t, out.String(), `msg="[INFO][Component] saved"`)
	assert.Contains(t, out.String(), "module=features.registration")
	assert.Contains(t, out.String(), "line_number=42")
	assert.Contains(t, out.String(), "request_id=req-1")

	assert.Contains(t, warn.String(), "[WARNING][Component] slow")
	assert.NotContains(t, warn.String(), "failed")

	assert.Contains(t, errOut.String(), "[ERROR][Component] failed")
	assert.Contains(t, errOut.String(), "[CRITICAL][Component] down")
	assert.Contains(t, errOut.String(), "level=CRITICAL")
	assert.NotContains(t, out.String(), "slow")
}

func TestSlogConsoleJSON(t *testing.T) {
	var out bytes.Buffer
	c := logkit.NewSlogConsole(logkit.ConsoleJSON, &out, nil, nil)

	c.Print(consoleEntry(logentry.LevelInfo, "saved"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &line))
	assert.Equal(t, "[INFO][Component] saved", line["msg"])
	assert.Equal(t, "features/registration/form.go", line["file_path"])
	assert.Equal(t, map[string]any{"formId": "register"}, line["extra_data"])
}

func TestZapConsoleLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := logkit.NewZapConsole(zap.New(core))

	c.Print(consoleEntry(logentry.LevelDebug, "debugging"))
	c.Print(consoleEntry(logentry.LevelWarning, "slow"))
	c.Print(consoleEntry(logentry.LevelCritical, "down"))

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "[DEBUG][Component] debugging", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)

	fields := entries[2].ContextMap()
	assert.Equal(t, "CRITICAL", fields["severity"])
	assert.Equal(t, "Component", fields["layer"])
	assert.Equal(t, "features.registration", fields["module"])
	assert.Equal(t, int64(42), fields["line_number"])
	assert.NoError(t, c.Sync())
}

func TestZapLoggerSplitsSinks(t *testing.T) {
	var out, errOut bytes.Buffer
	c := logkit.NewZapConsole(logkit.NewZapLogger(logkit.EnvProduction, &out, &errOut))

	c.Print(consoleEntry(logentry.LevelInfo, "saved"))
	c.Print(consoleEntry(logentry.LevelError, "failed"))

	assert.Contains(t, out.String(), `"msg":"[INFO][Component] saved"`)
	assert.NotContains(t, out.String(), "failed")
	assert.Contains(t, errOut.String(), `"level":"ERROR"`)
	assert.Contains(t, errOut.String(), `"request_id":"req-1"`)
}

func TestNilZapLoggerIsNop(t *testing.T) {
	c := logkit.NewZapConsole(nil)

	assert.NotPanics(t, func() {
		c.Print(consoleEntry(logentry.LevelError, "ignored"))
	})
}
