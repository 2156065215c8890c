// postgres.go

package db

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/jacl-coder/TankStorm-Server/config"
	_ "github.com/lib/pq"
)

// DB 全局数据库连接池，承载对局状态写穿与战绩落盘
var DB *sql.DB

// InitPostgres 初始化PostgreSQL连接池
func InitPostgres() error {
	dsn := config.GlobalConfig.Database.GetDSN()

	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("打开数据库失败: %w", err)
	}

	// 写穿都是小的单行upsert，连接数不需要太大
	conn.SetMaxOpenConns(16)
	conn.SetMaxIdleConns(4)
	conn.SetConnMaxLifetime(30 * time.Minute)

	if err := conn.Ping(); err != nil {
		return fmt.Errorf("数据库连通性检查失败: %w", err)
	}

	DB = conn
	log.Printf("PostgreSQL已就绪: %s/%s",
		config.GlobalConfig.Database.Host, config.GlobalConfig.Database.DBName)
	return nil
}

// Close 关闭数据库连接池
func Close() {
	if DB == nil {
		return
	}
	if err := DB.Close(); err != nil {
		log.Printf("关闭数据库连接失败: %v", err)
		return
	}
	log.Println("PostgreSQL连接已关闭")
}
