package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/tj/assert"
)

func Test_ParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zerolog.FatalLevel, ParseLevel("fatal"))
	assert.Equal(t, zerolog.Disabled, ParseLevel("disabled"))
}

func Test_InitializeWithFile(t *testing.T) {
	defer func() {
		Logger = zerolog.Nop()
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	}()

	path := filepath.Join(t.TempDir(), "farm.log")
	Initialize(Options{Level: "info", JSON: true, File: path})

	component := GetForComponent("ledger")
	component.Info().Str("op", "deposit").Msg("applied")
	component.Debug().Msg("filtered out")

	contents, err := os.ReadFile(path)
	assert.Nil(t, err)
	assert.True(t, strings.Contains(string(contents), `"component":"ledger"`))
	assert.True(t, strings.Contains(string(contents), `"op":"deposit"`))
	assert.False(t, strings.Contains(string(contents), "filtered out"))
}
