package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	DB      DBConfig      `mapstructure:"db"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Device  DeviceConfig  `mapstructure:"device"`
	Session SessionConfig `mapstructure:"session"`
	Chains  ChainsConfig  `mapstructure:"chains"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	HttpPort string `mapstructure:"http_port"`
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
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

// DeviceConfig 模拟硬件签名设备的出厂配置
type DeviceConfig struct {
	Name         string `mapstructure:"name"`
	PinLength    int    `mapstructure:"pin_length"` // 4, 5 或 6，出厂后不可变
	PinHash      string `mapstructure:"pin_hash"`   // blake3(pin) 的 hex，绝不存明文
	KeystorePath string `mapstructure:"keystore_path"`
	Password     string `mapstructure:"password"` // Keystore 密码 (通常通过环境变量 DEVICE_PASSWORD 传入)
	SeedGroups   int    `mapstructure:"seed_groups"`
	Resettable   bool   `mapstructure:"resettable"` // 固件是否支持 factory reset
}

type SessionConfig struct {
	UnlockTTLMinutes int `mapstructure:"unlock_ttl_minutes"`
}

// ChainsConfig 各网络的 RPC 端点，key 是网络 chain id (字符串形式)
type ChainsConfig struct {
	Endpoints map[string]string `mapstructure:"endpoints"`
}

var Global Config

func Init() {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// 环境变量设置
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 设置默认值
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

func setDefaults() {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.http_port", "8080")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.user", "custody_user")
	viper.SetDefault("db.password", "custody_password")
	viper.SetDefault("db.name", "custody_db")

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.mq_type", "redis")

	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})

	viper.SetDefault("device.name", "SimuSigner One")
	viper.SetDefault("device.pin_length", 6)
	viper.SetDefault("device.keystore_path", "device.json")
	viper.SetDefault("device.seed_groups", 1)
	viper.SetDefault("device.resettable", true)

	viper.SetDefault("session.unlock_ttl_minutes", 5)
}
