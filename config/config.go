// config.go

package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config 服务器配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Battle   BattleConfig   `mapstructure:"battle"`
}

// ServerConfig 服务器基本配置
type ServerConfig struct {
	BattlePort  int    `mapstructure:"battle_port"`
	GatewayPort int    `mapstructure:"gateway_port"`
	Debug       bool   `mapstructure:"debug"`
	LogLevel    string `mapstructure:"log_level"`
	JWTSecret   string `mapstructure:"jwt_secret"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// BattleConfig 对战规则默认配置
// 零值字段在加载阶段统一填充默认值，使用处不再做兜底
type BattleConfig struct {
	TickInterval   time.Duration `mapstructure:"tick_interval"`   // 回合收益间隔
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"` // 待确认操作超时时间
	StartingHealth int           `mapstructure:"starting_health"` // 初始生命值
	StartingPoints int           `mapstructure:"starting_points"` // 初始行动点
	MovePointCost  int           `mapstructure:"move_point_cost"` // 每格移动消耗
	ShotPointCost  int           `mapstructure:"shot_point_cost"` // 每次射击消耗
	KillReward     int           `mapstructure:"kill_reward"`     // 击杀奖励
	TickIncome     int           `mapstructure:"tick_income"`     // 每回合收益
	MapWidth       int           `mapstructure:"map_width"`       // 地图宽度
	MapHeight      int           `mapstructure:"map_height"`      // 地图高度
}

var (
	// GlobalConfig 全局配置实例
	GlobalConfig Config
)

// LoadConfig 从文件加载配置
func LoadConfig(configPath string) error {
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("无法读取配置文件: %w", err)
	}

	if err := viper.Unmarshal(&GlobalConfig); err != nil {
		return fmt.Errorf("无法解析配置文件: %w", err)
	}

	ApplyBattleDefaults(&GlobalConfig.Battle)

	return nil
}

// ApplyBattleDefaults 填充对战规则默认值
func ApplyBattleDefaults(c *BattleConfig) {
	if c.TickInterval <= 0 {
		c.TickInterval = 60 * time.Second
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = 15 * time.Minute
	}
	if c.StartingHealth <= 0 {
		c.StartingHealth = 100
	}
	if c.StartingPoints <= 0 {
		c.StartingPoints = 20
	}
	if c.MovePointCost <= 0 {
		c.MovePointCost = 5
	}
	if c.ShotPointCost <= 0 {
		c.ShotPointCost = 10
	}
	if c.KillReward <= 0 {
		c.KillReward = 10
	}
	if c.TickIncome <= 0 {
		c.TickIncome = 5
	}
	if c.MapWidth <= 0 {
		c.MapWidth = 12
	}
	if c.MapHeight <= 0 {
		c.MapHeight = 12
	}
}

// GetDSN 获取PostgreSQL连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GetRedisAddr 获取Redis连接地址
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
