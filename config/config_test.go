package config

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/SundaeSwap-finance/sundae-farm/ledger"
	"github.com/SundaeSwap-finance/sundae-farm/types"
	"github.com/tj/assert"
)

const signatureScript = "d8799f581c6a5cf1e931c3bd034543b93ef9731cf16847e038b020033db359786dff"

const sampleConfig = `
[program]
ID = "lp-farm"
RewardAsset = "farm.REWARD"
RewardPerBlock = "100"
StartBlock = 300
BonusEndBlock = 1000

[storage]
DataDir = "/var/lib/farm"

[log]
Level = "debug"

[admin]
AllowList = ["admin"]
`

func writeConfig(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "farm.toml")
	assert.Nil(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func Test_Load(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	assert.Nil(t, err)
	assert.Equal(t, "lp-farm", cfg.Program.ID)
	assert.Equal(t, "/var/lib/farm", cfg.Storage.DataDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched sections keep their defaults
	assert.Equal(t, ":8080", cfg.API.ListenAddress)
	assert.EqualValues(t, 10, cfg.Program.BonusMultiplier)

	program, err := cfg.ToProgram()
	assert.Nil(t, err)
	assert.EqualValues(t, 100, program.RewardPerBlock.Uint64())
	assert.EqualValues(t, 300, program.StartBlock)
	assert.EqualValues(t, "farm.REWARD", program.RewardAsset)

	authority, err := cfg.Authority()
	assert.Nil(t, err)
	assert.True(t, authority.IsPrivileged(types.Caller{ID: "admin"}, 0))
	assert.False(t, authority.IsPrivileged(types.Caller{ID: "bob"}, 0))
}

func Test_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Nil(t, err)
	assert.Equal(t, Default(), cfg)
}

func Test_EnvironmentOverrides(t *testing.T) {
	t.Setenv("FARM_REWARD_PER_BLOCK", "250")
	t.Setenv("FARM_START_BLOCK", "42")
	t.Setenv("FARM_DATA_DIR", "/tmp/farm")
	t.Setenv("FARM_ADMIN_SCRIPT", signatureScript)

	cfg, err := Load(writeConfig(t, sampleConfig))
	assert.Nil(t, err)
	assert.Equal(t, "250", cfg.Program.RewardPerBlock)
	assert.EqualValues(t, 42, cfg.Program.StartBlock)
	assert.Equal(t, "/tmp/farm", cfg.Storage.DataDir)

	authority, err := cfg.Authority()
	assert.Nil(t, err)
	_, ok := authority.(ledger.ScriptAuthority)
	assert.True(t, ok)
	keyHash, err := hex.DecodeString("6a5cf1e931c3bd034543b93ef9731cf16847e038b020033db359786d")
	assert.Nil(t, err)
	assert.True(t, authority.IsPrivileged(types.Caller{ID: "anyone", KeyHashes: [][]byte{keyHash}}, 0))
	// The script wins over the allow list
	assert.False(t, authority.IsPrivileged(types.Caller{ID: "admin"}, 0))
}

func Test_Validate(t *testing.T) {
	t.Setenv("FARM_REWARD_PER_BLOCK", "lots")
	_, err := Load(writeConfig(t, sampleConfig))
	assert.NotNil(t, err)

	t.Setenv("FARM_REWARD_PER_BLOCK", "1")
	t.Setenv("FARM_START_BLOCK", "-5")
	_, err = Load(writeConfig(t, sampleConfig))
	assert.NotNil(t, err)

	cfg := Default()
	cfg.Admin.Script = "zz"
	assert.NotNil(t, cfg.Validate())

	cfg = Default()
	cfg.Audit.Driver = "sqlite"
	assert.NotNil(t, cfg.Validate())

	_, err = Default().ToProgram()
	assert.NotNil(t, err)
}

func Test_WriteRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Program.RewardAsset = "farm.REWARD"
	cfg.Admin.AllowList = []string{"ops"}
	path := filepath.Join(t.TempDir(), "written.toml")
	assert.Nil(t, cfg.Write(path))

	loaded, err := Load(path)
	assert.Nil(t, err)
	assert.Equal(t, cfg, loaded)
}
