package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	AWS      AWSConfig
	DynamoDB DynamoDBConfig
	Server   ServerConfig
	NATS     NATSConfig
	Redis    RedisConfig
	Rewards  RewardsConfig
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

type DynamoDBConfig struct {
	TableName        string
	MaxRetries       int
	BatchSize        int
	UseLocalEndpoint bool
}

type ServerConfig struct {
	GRPCPort    int
	MetricsPort int
	Environment string
	LogLevel    string
	LogFormat   string
}

type NATSConfig struct {
	URL                  string
	MaxReconnect         int
	ReconnectWaitSeconds int
	TimeoutSeconds       int
}

type RedisConfig struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

type RewardsConfig struct {
	DailyWindowHours     int
	NotificationsEnabled bool
}

// DailyWindow is the trailing window used by the daily-activity gate.
func (c RewardsConfig) DailyWindow() time.Duration {
	if c.DailyWindowHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.DailyWindowHours) * time.Hour
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	v.AddConfigPath(configPath)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("aws.region", "eu-central-1")
	v.SetDefault("dynamodb.tablename", "rewards")
	v.SetDefault("dynamodb.maxretries", 3)
	v.SetDefault("dynamodb.batchsize", 25)
	v.SetDefault("server.grpcport", 50053)
	v.SetDefault("server.metricsport", 9102)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.loglevel", "info")
	v.SetDefault("server.logformat", "json")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.maxreconnect", -1)
	v.SetDefault("nats.reconnectwaitseconds", 2)
	v.SetDefault("nats.timeoutseconds", 5)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.keyprefix", "rewards")
	v.SetDefault("rewards.dailywindowhours", 24)
	v.SetDefault("rewards.notificationsenabled", true)
}

func (c *Config) Validate() error {
	if c.DynamoDB.TableName == "" {
		return errors.New("dynamodb table name is required")
	}
	if c.NATS.URL == "" {
		return errors.New("nats url is required")
	}
	if c.DynamoDB.BatchSize <= 0 || c.DynamoDB.BatchSize > 25 {
		return errors.New("dynamodb batch size must be between 1 and 25")
	}
	return nil
}
