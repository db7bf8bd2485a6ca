package config

import (
	"rtblob/pkg/external"
	"rtblob/pkg/logging"
	"rtblob/pkg/meta"
	"rtblob/pkg/policy"
	"rtblob/pkg/storage"

	"github.com/spf13/viper"
)

const DefaultCutoff = policy.DefaultCutoff

// storageSection 下面这些键不是后端参数
var reservedStorageKeys = map[string]bool{
	"type":        true,
	"write":       true,
	"cutoff_size": true,
	"cache":       true,
}

// backendOptionKeys 列出各后端认识的参数，用于从环境变量取值
// (viper 的 GetStringMap 看不到只存在于环境变量里的键)
var backendOptionKeys = []string{
	"path", "bucket", "accesskeyid", "secretaccesskey", "region", "endpoint", "inmemory",
}

// Storage 从 external_storage 段构造外部存储配置
func Storage() external.Config {
	opts := storage.NewOptions(viper.GetStringMap("external_storage"))
	for k := range reservedStorageKeys {
		delete(opts, k)
	}
	for _, k := range backendOptionKeys {
		if v := viper.GetString("external_storage." + k); v != "" {
			opts.Set(k, v)
		}
	}

	return external.Config{
		Type:    viper.GetString("external_storage.type"),
		Write:   viper.GetBool("external_storage.write"),
		Options: opts,
		Cache: external.CacheConfig{
			RedisURL: viper.GetString("external_storage.cache.redis_url"),
			TTL:      viper.GetDuration("external_storage.cache.ttl"),
		},
	}
}

// Policy 返回外置策略；cutoff_size 未设置或非法时使用默认阈值
func Policy() policy.Policy {
	return policy.New(viper.GetInt64("external_storage.cutoff_size"))
}

func Log() logging.Config {
	return logging.Config{
		Level:      viper.GetString("log.level"),
		Format:     viper.GetString("log.format"),
		OutputPath: viper.GetString("log.output"),
	}
}

func Database() meta.Config {
	return meta.Config{
		Driver:   viper.GetString("database.driver"),
		Path:     viper.GetString("database.path"),
		Host:     viper.GetString("database.host"),
		Port:     viper.GetInt("database.port"),
		User:     viper.GetString("database.user"),
		Password: viper.GetString("database.password"),
		DBName:   viper.GetString("database.dbname"),
		SSLMode:  viper.GetString("database.sslmode"),
		Debug:    viper.GetBool("database.debug"),
	}
}
