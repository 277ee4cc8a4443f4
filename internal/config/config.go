package config

import (
	"fmt"

	"github.com/LolHubFun/server-vps/internal/logger"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Task     TaskConfig     `mapstructure:"task"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"` // redis://[:password@]host:port/db
}

// ChainConfig 多链配置
type ChainConfig struct {
	// 默认链ID，未知链一律回落到这里
	DefaultChainId int64 `mapstructure:"default_chain_id"`
	// 工厂合约地址（TokenCreated 事件来源）
	FactoryAddress string `mapstructure:"factory_address"`
	// 各链带鉴权的兜底RPC节点: chain_id -> url
	RpcUrls map[string]string `mapstructure:"rpc_urls"`
}

// FallbackRpcUrl 返回指定链的兜底RPC地址，未配置时返回空串
func (c ChainConfig) FallbackRpcUrl(chainId int64) string {
	return c.RpcUrls[fmt.Sprintf("%d", chainId)]
}

type TaskConfig struct {
	TokenPollInterval    int `mapstructure:"token_poll_interval"`   // 秒
	ProjectPollInterval  int `mapstructure:"project_poll_interval"` // 秒
	MetricsInterval      int `mapstructure:"metrics_interval"`      // 秒
	ConsistencyInterval  int `mapstructure:"consistency_interval"`  // 秒
	ProjectPollBatchSize int `mapstructure:"project_poll_batch_size"`
	MetricsBatchSize     int `mapstructure:"metrics_batch_size"`
}

// PipelineConfig 内容生成管线配置
type PipelineConfig struct {
	// 图像生成服务令牌，缺失则进程不允许启动
	ReplicateToken string `mapstructure:"replicate_token"`
	// 取最近多少条建议参与生成
	SuggestionLimit int `mapstructure:"suggestion_limit"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, stderr, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

// GetLevel 实现 logger.LogConfig 接口
func (l LogConfig) GetLevel() string {
	return l.Level
}

// GetOutput 实现 logger.LogConfig 接口
func (l LogConfig) GetOutput() string {
	return l.Output
}

// GetFile 实现 logger.LogConfig 接口
func (l LogConfig) GetFile() string {
	return l.File
}

func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/lolhub")

	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "lolhub")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("redis.url", "redis://localhost:6379/0")
	viper.SetDefault("chain.default_chain_id", 80002)
	viper.SetDefault("task.token_poll_interval", 15)
	viper.SetDefault("task.project_poll_interval", 30)
	viper.SetDefault("task.metrics_interval", 600)
	viper.SetDefault("task.consistency_interval", 21600)
	viper.SetDefault("task.project_poll_batch_size", 10)
	viper.SetDefault("task.metrics_batch_size", 10)
	viper.SetDefault("pipeline.suggestion_limit", 50)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.file", "logs/app.log")

	// 自动读取环境变量
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logger.Warn("Warning: Could not read config file: %v", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		logger.Fatal("Unable to decode config into struct: %v", err)
	}

	// 缺少必需配置时直接终止进程
	if err := config.Validate(); err != nil {
		logger.Fatal("Invalid configuration: %v", err)
	}

	return &config
}

// Validate 校验启动必需项：默认链RPC、工厂地址、生成服务令牌
func (c *Config) Validate() error {
	if c.Chain.FactoryAddress == "" {
		return fmt.Errorf("chain.factory_address is required")
	}
	if c.Chain.FallbackRpcUrl(c.Chain.DefaultChainId) == "" {
		return fmt.Errorf("chain.rpc_urls is missing an entry for default chain %d", c.Chain.DefaultChainId)
	}
	if c.Pipeline.ReplicateToken == "" {
		return fmt.Errorf("pipeline.replicate_token is required")
	}
	return nil
}
