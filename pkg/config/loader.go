package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix: RTBLOB_EXTERNAL_STORAGE_TYPE 覆盖 external_storage.type
const EnvPrefix = "RTBLOB"

// Load 初始化 Viper 配置
// cfgFile: 可选，用户显式指定的配置文件路径
func Load(cfgFile string) error {
	// 1. 设置默认值 (Defaults)
	setDefaults()

	// 2. 配置搜索路径
	if cfgFile != "" {
		// 如果用户指定了文件，直接使用
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		// 搜索顺序：当前目录 > ./.rtblob > ~/.rtblob
		viper.AddConfigPath(".")
		viper.AddConfigPath(".rtblob")
		viper.AddConfigPath(filepath.Join(home, ".rtblob"))

		viper.SetConfigType("yaml")
		viper.SetConfigName("config") // 找 config.yaml
	}

	// 3. 读取环境变量 (RTBLOB_DATABASE_HOST 等)
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 4. 读取配置文件
	// stdout 留给命令输出，提示信息都走 stderr
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Fprintln(os.Stderr, "⚠️  No config file found, using defaults/env vars")
		} else {
			return fmt.Errorf("fatal error config file: %w", err)
		}
	} else {
		fmt.Fprintln(os.Stderr, "🔧 Using config file:", viper.ConfigFileUsed())
	}

	return nil
}

func setDefaults() {
	// 日志
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")

	// 数据库默认值：本地 sqlite，生产环境切到 postgres
	wd, _ := os.Getwd()
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.path", filepath.Join(wd, ".rtblob", "rt.db"))
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")

	// 外部存储：不设置 type (默认关闭)
	viper.SetDefault("external_storage.write", true)
	viper.SetDefault("external_storage.cutoff_size", DefaultCutoff)
	viper.SetDefault("external_storage.cache.ttl", "24h")
}
