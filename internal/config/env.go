package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Settings are process-level knobs read from the environment (JOBLAWN_*), never from config.yml.
type Settings struct {
	DataDir       string
	DefaultConfig string
	Addr          string
	LogLevel      string
	LogFormat     string
	RedisAddr     string
	RedisPassword string
}

// LoadSettings loads the optional dotenv files (".env" when none are given) and then reads
// JOBLAWN_* variables through viper.
func LoadSettings(envFiles ...string) (Settings, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, err
		}
	}

	v := viper.New()
	v.SetEnvPrefix("JOBLAWN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("data_dir", ".")
	v.SetDefault("default_config", "config/config.yml")
	v.SetDefault("addr", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")

	return Settings{
		DataDir:       strings.TrimSpace(v.GetString("data_dir")),
		DefaultConfig: strings.TrimSpace(v.GetString("default_config")),
		Addr:          strings.TrimSpace(v.GetString("addr")),
		LogLevel:      strings.ToLower(strings.TrimSpace(v.GetString("log_level"))),
		LogFormat:     strings.ToLower(strings.TrimSpace(v.GetString("log_format"))),
		RedisAddr:     strings.TrimSpace(v.GetString("redis_addr")),
		RedisPassword: v.GetString("redis_password"),
	}, nil
}
