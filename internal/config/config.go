package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"120"` // 同步生成行程可能比较耗时
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	JWT struct {
		Expiration int    `env:"EXPIRATION" envDefault:"1209600"` // 14 天
		Secret     string `env:"SECRET,required"`
	} `envPrefix:"JWT_"`
	Email struct {
		SMTP struct {
			Username    string `env:"USERNAME"`
			Password    string `env:"PASSWORD"`
			Host        string `env:"HOST"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		Queue          string `env:"QUEUE" envDefault:"itinerary_queue"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host                string `env:"HOST" envDefault:"localhost"`
		Port                int    `env:"PORT" envDefault:"6379"`
		Password            string `env:"PASSWORD"`
		ConnectTimeout      int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		OperationExpiration int    `env:"OPERATION_EXPIRATION" envDefault:"10"`
	} `envPrefix:"REDIS_"`
	Google    GoogleConfig    `envPrefix:"GOOGLE_"`
	Scheduler SchedulerConfig `envPrefix:"SCHEDULER_"`
	Job       struct {
		ResultTTL int `env:"RESULT_TTL" envDefault:"86400"` // 任务结果在 redis 中保留的秒数
	} `envPrefix:"JOB_"`
}

type GoogleConfig struct {
	APIKey          string  `env:"API_KEY"` // 为空时使用直线距离估算出行矩阵
	TravelMode      string  `env:"TRAVEL_MODE" envDefault:"WALK"`
	RequestsPerSec  float64 `env:"REQUESTS_PER_SEC" envDefault:"5"`
	RequestTimeout  int     `env:"REQUEST_TIMEOUT" envDefault:"30"`
	MatrixCacheTTL  int     `env:"MATRIX_CACHE_TTL" envDefault:"86400"`
	FallbackSpeedKm float64 `env:"FALLBACK_SPEED_KMH" envDefault:"30"`
}

// SchedulerConfig 遗传算法的默认参数，请求中可以逐项覆盖
type SchedulerConfig struct {
	PopulationSize  int     `env:"POPULATION_SIZE" envDefault:"50"`
	MaxGenerations  int     `env:"MAX_GENERATIONS" envDefault:"100"`
	MutationRate    float64 `env:"MUTATION_RATE" envDefault:"0.1"`
	CrossoverRate   float64 `env:"CROSSOVER_RATE" envDefault:"0.7"`
	EliteCount      int     `env:"ELITE_COUNT" envDefault:"2"`
	TournamentSize  int     `env:"TOURNAMENT_SIZE" envDefault:"3"`
	DailyMinutes    int     `env:"DAILY_MINUTES" envDefault:"240"`
	DayStartMinute  int     `env:"DAY_START_MINUTE" envDefault:"480"` // 08:00
	StagnationLimit int     `env:"STAGNATION_LIMIT" envDefault:"5"`
	Workers         int     `env:"WORKERS" envDefault:"4"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	return cfg, nil
}

// LoadSection 只解析配置中带有指定前缀的一部分，命令行工具不需要数据库等必填项
func LoadSection[T any](prefix string) (*T, error) {
	section := new(T)
	if err := env.ParseWithOptions(section, env.Options{Prefix: prefix}); err != nil {
		return nil, err
	}
	return section, nil
}
