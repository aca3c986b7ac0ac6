// Package config loads the farm's settings from a TOML file, then lets FARM_* environment
// variables (optionally from a .env file) override them.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/SundaeSwap-finance/ogmigo/v6/ouroboros/shared"
	"github.com/SundaeSwap-finance/sundae-farm/calculation"
	"github.com/SundaeSwap-finance/sundae-farm/ledger"
	"github.com/SundaeSwap-finance/sundae-farm/logger"
	"github.com/SundaeSwap-finance/sundae-farm/types"
	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"
	"github.com/joho/godotenv"
)

type Program struct {
	ID              string `toml:"ID"`
	RewardAsset     string `toml:"RewardAsset"`
	RewardPerBlock  string `toml:"RewardPerBlock"`
	StartBlock      uint64 `toml:"StartBlock"`
	BonusEndBlock   uint64 `toml:"BonusEndBlock"`
	BonusMultiplier uint64 `toml:"BonusMultiplier"`
}

type Storage struct {
	DataDir   string `toml:"DataDir"`
	CacheSize int    `toml:"CacheSize"`
}

type API struct {
	ListenAddress string `toml:"ListenAddress"`
}

type Log struct {
	Level      string `toml:"Level"`
	JSON       bool   `toml:"JSON"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
}

// Admin names the privileged caller, either as a hex encoded multisig script or by caller id
type Admin struct {
	Script    string   `toml:"Script"`
	AllowList []string `toml:"AllowList"`
}

type Audit struct {
	Driver string `toml:"Driver"`
	DSN    string `toml:"DSN"`
}

type Config struct {
	Program Program `toml:"program"`
	Storage Storage `toml:"storage"`
	API     API     `toml:"api"`
	Log     Log     `toml:"log"`
	Admin   Admin   `toml:"admin"`
	Audit   Audit   `toml:"audit"`
}

func Default() *Config {
	return &Config{
		Program: Program{
			ID:              "farm",
			RewardPerBlock:  "0",
			BonusMultiplier: calculation.DefaultBonusMultiplier,
		},
		Storage: Storage{DataDir: "./data", CacheSize: 16},
		API:     API{ListenAddress: ":8080"},
		Log:     Log{Level: "info"},
	}
}

// Load reads path (a missing file leaves the defaults in place), applies environment overrides and
// validates the result
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			meta, err := toml.DecodeFile(path, cfg)
			if err != nil {
				return nil, fmt.Errorf("failed to decode %v: %w", path, err)
			}
			for _, undecoded := range meta.Undecoded() {
				logger.Get().Warn().Str("key", undecoded.String()).Msg("Ignoring unknown config key")
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key string, target *string) {
	if value, ok := os.LookupEnv(key); ok {
		*target = strings.TrimSpace(value)
	}
}

func getEnvAsUint64(key string, target *uint64) error {
	value, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	parsed, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %v: %w", key, err)
	}
	*target = parsed
	return nil
}

func (c *Config) applyEnv() error {
	getEnv("FARM_PROGRAM_ID", &c.Program.ID)
	getEnv("FARM_REWARD_ASSET", &c.Program.RewardAsset)
	getEnv("FARM_REWARD_PER_BLOCK", &c.Program.RewardPerBlock)
	getEnv("FARM_DATA_DIR", &c.Storage.DataDir)
	getEnv("FARM_API_LISTEN", &c.API.ListenAddress)
	getEnv("FARM_LOG_LEVEL", &c.Log.Level)
	getEnv("FARM_LOG_FILE", &c.Log.File)
	getEnv("FARM_ADMIN_SCRIPT", &c.Admin.Script)
	getEnv("FARM_AUDIT_DRIVER", &c.Audit.Driver)
	getEnv("FARM_AUDIT_DSN", &c.Audit.DSN)
	if value, ok := os.LookupEnv("FARM_ADMIN_ALLOW"); ok {
		c.Admin.AllowList = strings.Split(value, ",")
	}
	if err := getEnvAsUint64("FARM_START_BLOCK", &c.Program.StartBlock); err != nil {
		return err
	}
	return getEnvAsUint64("FARM_BONUS_END_BLOCK", &c.Program.BonusEndBlock)
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Program.ID) == "" {
		return fmt.Errorf("program ID must be set")
	}
	if _, err := c.RewardPerBlock(); err != nil {
		return err
	}
	if c.Program.BonusMultiplier == 0 {
		return fmt.Errorf("program BonusMultiplier must be positive")
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage DataDir must be set")
	}
	if c.Audit.Driver != "" && c.Audit.DSN == "" {
		return fmt.Errorf("audit DSN must be set when a driver is configured")
	}
	if _, err := c.AdminScript(); err != nil {
		return err
	}
	return nil
}

func (c *Config) RewardPerBlock() (*uint256.Int, error) {
	rate, err := uint256.FromDecimal(c.Program.RewardPerBlock)
	if err != nil {
		return nil, fmt.Errorf("invalid RewardPerBlock %q: %w", c.Program.RewardPerBlock, err)
	}
	return rate, nil
}

// ToProgram is the emission program the ledger is initialized with
func (c *Config) ToProgram() (types.Program, error) {
	rate, err := c.RewardPerBlock()
	if err != nil {
		return types.Program{}, err
	}
	if c.Program.RewardAsset == "" {
		return types.Program{}, fmt.Errorf("program RewardAsset must be set")
	}
	return types.Program{
		ID:              c.Program.ID,
		RewardAsset:     shared.AssetID(c.Program.RewardAsset),
		RewardPerBlock:  *rate,
		StartBlock:      c.Program.StartBlock,
		BonusEndBlock:   c.Program.BonusEndBlock,
		BonusMultiplier: c.Program.BonusMultiplier,
	}, nil
}

func (c *Config) AdminScript() (*types.MultisigScript, error) {
	if c.Admin.Script == "" {
		return nil, nil
	}
	bytes, err := hex.DecodeString(c.Admin.Script)
	if err != nil {
		return nil, fmt.Errorf("admin Script must be hex encoded: %w", err)
	}
	var script types.MultisigScript
	if err := cbor.Unmarshal(bytes, &script); err != nil {
		return nil, fmt.Errorf("failed to decode admin Script: %w", err)
	}
	return &script, nil
}

// Authority prefers the admin script; without one only the allow list is privileged
func (c *Config) Authority() (ledger.Authority, error) {
	script, err := c.AdminScript()
	if err != nil {
		return nil, err
	}
	if script != nil {
		return ledger.ScriptAuthority{Script: *script}, nil
	}
	return ledger.AllowList(c.Admin.AllowList), nil
}

func (c *Config) LoggerOptions() logger.Options {
	return logger.Options{
		Level:      c.Log.Level,
		JSON:       c.Log.JSON,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
	}
}

// Write stores the configuration as TOML, e.g. to seed a new data directory
func (c *Config) Write(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}
