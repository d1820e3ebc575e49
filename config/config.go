package config

import (
	"log"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var Cfg Config

type Config struct {
	// 服务配置
	ServerPort  string `env:"SERVER_PORT" envDefault:"8888"`
	ServerHost  string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production
	ServiceName string `env:"SERVICE_NAME" envDefault:"facetrack"`

	// 组织时区：考勤判定全部使用固定时区，不允许依赖服务器本地时区
	OrgTimezone string `env:"ORG_TIMEZONE" envDefault:"Asia/Shanghai"`

	// PostgreSQL 配置
	PostgreSQLHost     string `env:"POSTGRESQL_HOST" envDefault:"localhost"`
	PostgreSQLPort     string `env:"POSTGRESQL_PORT" envDefault:"5432"`
	PostgreSQLUser     string `env:"POSTGRESQL_USER" envDefault:"postgres"`
	PostgreSQLPassword string `env:"POSTGRESQL_PASSWORD" envDefault:"postgres"`
	PostgreSQLDatabase string `env:"POSTGRESQL_DATABASE" envDefault:"facetrack"`
	PostgreSQLSchema   string `env:"POSTGRESQL_SCHEMA" envDefault:"public"`
	PostgreSQLSSLMode  string `env:"POSTGRESQL_SSLMODE" envDefault:"disable"`
	PostgreSQLMaxIdle  int    `env:"POSTGRESQL_MAX_IDLE" envDefault:"30"`
	PostgreSQLMaxOpen  int    `env:"POSTGRESQL_MAX_OPEN" envDefault:"200"`

	// Redis 配置
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"ftrk"`

	// RabbitMQ 配置
	RabbitMQAddr     string `env:"RABBITMQ_ADDR" envDefault:"localhost"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUsername string `env:"RABBITMQ_USERNAME" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQVhost    string `env:"RABBITMQ_VHOST" envDefault:"/"`

	// 人脸比对服务配置
	FaceProvider    string `env:"FACE_PROVIDER" envDefault:"facepp"` // facepp, mock
	FaceAPIEndpoint string `env:"FACE_API_ENDPOINT" envDefault:"https://api-cn.faceplusplus.com/facepp/v3/compare"`
	FaceAPIKey      string `env:"FACE_API_KEY"`
	FaceAPISecret   string `env:"FACE_API_SECRET"`
	FaceTimeoutSec  int    `env:"FACE_TIMEOUT_SECONDS" envDefault:"10"`
	// 阈值策略：fixed 使用 FACE_THRESHOLD，suggested 使用比对服务返回的推荐阈值
	FaceThresholdMode string  `env:"FACE_THRESHOLD_MODE" envDefault:"fixed"`
	FaceThreshold     float64 `env:"FACE_THRESHOLD" envDefault:"70"`

	// 图片来源白名单，逗号分隔的域名列表
	ImageHostAllowList []string `env:"IMAGE_HOST_ALLOW_LIST" envSeparator:"," envDefault:"i.ibb.co,ibb.co"`

	// 地理围栏配置
	GeofenceDefaultRadius float64 `env:"GEOFENCE_DEFAULT_RADIUS" envDefault:"500"` // 米

	// 对账任务配置
	ReconcileArchiveAt    string `env:"RECONCILE_ARCHIVE_AT" envDefault:"00:05"` // 组织时区内的归档时刻
	ReconcileSweepMinutes int    `env:"RECONCILE_SWEEP_MINUTES" envDefault:"10"` // no_checkout 扫描间隔
	ReconcileBatchSize    int    `env:"RECONCILE_BATCH_SIZE" envDefault:"200"`

	// Snowflake ID 生成器配置
	SnowflakeMachineID  int64 `env:"SNOWFLAKE_MACHINE_ID" envDefault:"1"`
	SnowflakeDataCenter int64 `env:"SNOWFLAKE_DATACENTER_ID" envDefault:"1"`

	// 日志配置
	LoggerLevel      string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stdout"`

	// 链路追踪配置
	TracingEnabled  bool    `env:"TRACING_ENABLED" envDefault:"false"`
	TracingEndpoint string  `env:"TRACING_ENDPOINT" envDefault:"localhost:4317"`
	TracingSampler  float64 `env:"TRACING_SAMPLER" envDefault:"0.1"`

	// 速率限制总开关，窗口参数配置在中间件内
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
}

func init() {

	if err := godotenv.Load(); err != nil {

		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	Cfg = Config{}
	if err := env.Parse(&Cfg); err != nil {
		log.Fatalf("Failed to parse environment variables: %v", err)
	}

	validateConfig()
}

func validateConfig() {
	if Cfg.FaceAPIKey == "" {
		log.Printf("WARN: FACE_API_KEY is not set, face comparison will not work against the real provider")
	}

	if Cfg.FaceThresholdMode != "fixed" && Cfg.FaceThresholdMode != "suggested" {
		log.Fatalf("FACE_THRESHOLD_MODE must be fixed or suggested, got %q", Cfg.FaceThresholdMode)
	}

	if Cfg.FaceThreshold <= 0 || Cfg.FaceThreshold > 100 {
		log.Fatalf("FACE_THRESHOLD must be in (0,100], got %v", Cfg.FaceThreshold)
	}

	if Cfg.GeofenceDefaultRadius <= 0 {
		log.Fatalf("GEOFENCE_DEFAULT_RADIUS must be positive, got %v", Cfg.GeofenceDefaultRadius)
	}

	if len(Cfg.ImageHostAllowList) == 0 {
		log.Printf("WARN: IMAGE_HOST_ALLOW_LIST is empty, all scan requests will be rejected")
	}
}

func (c *Config) GetDSN() string {
	return "host=" + c.PostgreSQLHost +
		" port=" + c.PostgreSQLPort +
		" user=" + c.PostgreSQLUser +
		" password=" + c.PostgreSQLPassword +
		" dbname=" + c.PostgreSQLDatabase +
		" sslmode=" + c.PostgreSQLSSLMode +
		" search_path=" + c.PostgreSQLSchema
}

func (c *Config) GetRabbitMQURL() string {
	return "amqp://" + c.RabbitMQUsername + ":" + c.RabbitMQPassword + "@" + c.RabbitMQAddr + ":" + c.RabbitMQPort + c.RabbitMQVhost
}

// ImageHostAllowed 判断图片 URL 的域名是否在白名单内
func (c *Config) ImageHostAllowed(host string) bool {
	host = strings.ToLower(host)
	for _, allowed := range c.ImageHostAllowList {
		if host == strings.ToLower(strings.TrimSpace(allowed)) {
			return true
		}
	}
	return false
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
