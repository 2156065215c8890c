// redis.go

package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jacl-coder/TankStorm-Server/config"
)

// RedisClient 全局Redis客户端，服务于胜场排行榜
var RedisClient *redis.Client

// Ctx 排行榜操作共用的根上下文
var Ctx = context.Background()

// InitRedis 初始化Redis连接并做一次连通性检查
func InitRedis() error {
	cfg := config.GlobalConfig.Redis

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(Ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis连通性检查失败: %w", err)
	}

	RedisClient = client
	log.Printf("Redis已就绪: %s", cfg.GetRedisAddr())
	return nil
}

// CloseRedis 关闭Redis连接
func CloseRedis() {
	if RedisClient == nil {
		return
	}
	if err := RedisClient.Close(); err != nil {
		log.Printf("关闭Redis连接失败: %v", err)
		return
	}
	log.Println("Redis连接已关闭")
}
