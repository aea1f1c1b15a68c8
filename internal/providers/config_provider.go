package providers

import (
	"amuletbot/internal/structures"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const AppName = "AmuletBot"

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	v := viper.New()
	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")

	v.SetDefault("game.amuletTimeout", "60s")
	v.SetDefault("webServer.host", "127.0.0.1")
	v.SetDefault("webServer.port", 8080)
	v.SetDefault("persistence.filePath", "data/db.json")
	v.SetDefault("persistence.backupDir", "data/backups")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.mode", 0644)
	v.SetDefault("logger.dir", ".")
	v.SetDefault("cache.size", 16)
	v.SetDefault("cache.ttl", 5)

	v.BindEnv("discord.token", "AMULET_DISCORD_TOKEN")
	v.BindEnv("logger.level", "AMULET_LOG_LEVEL")
	v.BindEnv("persistence.filePath", "AMULET_DB_PATH")
	v.BindEnv("persistence.backupDir", "AMULET_BACKUP_DIR")
	v.BindEnv("game.amuletTimeout", "AMULET_TIMEOUT")

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = AppName
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
