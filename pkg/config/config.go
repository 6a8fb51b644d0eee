package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App   AppConfig   `mapstructure:"app"`
	Redis RedisConfig `mapstructure:"redis"`
	Kafka KafkaConfig `mapstructure:"kafka"`
	Fee   FeeConfig   `mapstructure:"fee"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	HttpPort string `mapstructure:"http_port"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	MQType   string `mapstructure:"mq_type"` // "redis" or "kafka"
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

type FeeConfig struct {
	Network         string        `mapstructure:"network"`
	RpcUrl          string        `mapstructure:"rpc_url"`           // 为空时使用静态估算 (开发/测试)
	DefaultGasLimit uint64        `mapstructure:"default_gas_limit"` // 请求未带 gas 时使用
	Store           string        `mapstructure:"store"`             // memory, redis, tiered
	LockTTL         time.Duration `mapstructure:"lock_ttl"`          // 编辑锁过期时间
	DraftTopic      string        `mapstructure:"draft_topic"`       // 草稿提交事件主题，为空则不发布
	DraftIdleTTL    time.Duration `mapstructure:"draft_idle_ttl"`    // 超过该时间无人访问的草稿由定时任务清理
	LocalCacheTTL   time.Duration `mapstructure:"local_cache_ttl"`   // tiered 模式下 L1 缓存过期时间
}

var Global Config

func Init() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// 环境变量设置: FEE_STORE=redis 覆盖 fee.store
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(replacer())

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Warning: Config file not found, using defaults and environment variables")
		} else {
			log.Fatalf("Fatal error config file: %s \n", err)
		}
	}

	if err := viper.Unmarshal(&Global); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	log.Printf("Configuration loaded successfully. Env: %s", Global.App.Env)
}

func replacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

func setDefaults() {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.http_port", "8080")

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.mq_type", "redis")

	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})

	viper.SetDefault("fee.network", "mainnet")
	viper.SetDefault("fee.default_gas_limit", 21000)
	viper.SetDefault("fee.store", "memory")
	viper.SetDefault("fee.lock_ttl", 10*time.Minute)
	viper.SetDefault("fee.draft_topic", "")
	viper.SetDefault("fee.draft_idle_ttl", 30*time.Minute)
	viper.SetDefault("fee.local_cache_ttl", time.Minute)
}
