package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	DB       DBConfig       `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Wallet   WalletConfig   `mapstructure:"wallet"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
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
	SSLMode  string `mapstructure:"sslmode"`
	Debug    bool   `mapstructure:"debug"` // 打印 SQL
}

// DSN PostgreSQL 连接串
func (c DBConfig) DSN() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.Host, c.User, c.Password, c.Name, c.Port, sslmode)
}

// URL golang-migrate 使用的连接串
func (c DBConfig) URL() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(c.User), url.QueryEscape(c.Password), c.Host, c.Port, c.Name, sslmode)
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	MQType   string `mapstructure:"mq_type"` // "redis" or "kafka"
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// WalletConfig 钱包接入方式
// mode=rpc: 通过 JSON-RPC 连接外部钱包 (支持 wallet_sendCalls 等能力)
// mode=local: 使用本地 Keystore 派生的私钥, 只走授权签名和普通交易
type WalletConfig struct {
	Mode           string `mapstructure:"mode"`
	RpcUrl         string `mapstructure:"rpc_url"`
	Account        string `mapstructure:"account"`
	KeystorePath   string `mapstructure:"keystore_path"`
	Password       string `mapstructure:"password"` // 通常通过环境变量 WALLET_PASSWORD 传入
	DerivationPath string `mapstructure:"derivation_path"`
	NodeRpcUrl     string `mapstructure:"node_rpc_url"` // local 模式广播普通交易用的节点
}

type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DispatchConfig struct {
	PollMaxAttempts    int           `mapstructure:"poll_max_attempts"`
	PollInterval       time.Duration `mapstructure:"poll_interval"`
	RequireGaslessFlag bool          `mapstructure:"require_gasless_flag"`
	LockTTL            time.Duration `mapstructure:"lock_ttl"`
	SendCallsVersion   string        `mapstructure:"send_calls_version"`
	EventTopic         string        `mapstructure:"event_topic"`
}

var Global Config

func Init() {
	cfg, err := Load("")
	if err != nil {
		log.Fatalf("Fatal error config file: %s \n", err)
	}
	Global = *cfg
	log.Printf("Configuration loaded successfully. Env: %s", Global.App.Env)
}

// Load 读取配置, path 为空时按默认路径查找 config.yaml
// 单独暴露出来给 CLI 的 --config 和测试使用
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// 环境变量设置
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Printf("Warning: Config file not found, using defaults and environment variables")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.http_port", "8080")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "dispatch_user")
	v.SetDefault("db.password", "dispatch_password")
	v.SetDefault("db.name", "dispatch_db")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.mq_type", "redis")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "dispatch_events")

	v.SetDefault("wallet.mode", "rpc")
	v.SetDefault("wallet.rpc_url", "http://localhost:8545")
	v.SetDefault("wallet.keystore_path", "wallet.json")
	v.SetDefault("wallet.derivation_path", "m/44'/60'/0'/0/0")

	v.SetDefault("backend.base_url", "http://localhost:9000/api")
	v.SetDefault("backend.timeout", 15*time.Second)

	v.SetDefault("dispatch.poll_max_attempts", 5)
	v.SetDefault("dispatch.poll_interval", 2*time.Second)
	v.SetDefault("dispatch.require_gasless_flag", true)
	v.SetDefault("dispatch.lock_ttl", 2*time.Minute)
	v.SetDefault("dispatch.send_calls_version", "2.0.0")
	v.SetDefault("dispatch.event_topic", "dispatch_events")
}
