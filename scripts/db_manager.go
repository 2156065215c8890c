// db_manager.go

package main

import (
	"flag"
	"log"

	"github.com/jacl-coder/TankStorm-Server/config"
	"github.com/jacl-coder/TankStorm-Server/internal/models"
	"github.com/jacl-coder/TankStorm-Server/pkg/db"
)

func main() {
	// 解析命令行参数
	configPath := flag.String("config", "config/config.yaml", "配置文件路径")
	action := flag.String("action", "help", "操作类型: reset, init, seed, help")
	flag.Parse()

	// 显示帮助信息
	if *action == "help" {
		showHelp()
		return
	}

	// 加载配置
	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 初始化数据库连接
	if err := db.InitPostgres(); err != nil {
		log.Fatalf("初始化PostgreSQL失败: %v", err)
	}
	defer db.Close()

	// 执行操作
	switch *action {
	case "reset":
		resetDatabase()
	case "init":
		initDatabase()
	case "seed":
		seedWeapons()
	default:
		log.Fatalf("未知的操作类型: %s", *action)
	}
}

// showHelp 显示帮助信息
func showHelp() {
	log.Println("TankStorm 数据库管理工具")
	log.Println("用法: go run scripts/db_manager.go -action=<操作> [-config=<配置文件>]")
	log.Println("操作:")
	log.Println("  reset  删除所有表")
	log.Println("  init   创建所有表")
	log.Println("  seed   写入默认武器数据")
}

// resetDatabase 重置数据库
func resetDatabase() {
	if err := db.DropAllTables(); err != nil {
		log.Fatalf("删除数据库表失败: %v", err)
	}
	log.Println("✓ 数据库表已删除")
}

// initDatabase 初始化数据库表结构
func initDatabase() {
	if err := db.InitAllTables(); err != nil {
		log.Fatalf("初始化数据库表失败: %v", err)
	}
	log.Println("✓ 数据库表初始化完成")
}

// seedWeapons 写入默认武器数据
func seedWeapons() {
	query := `
		INSERT INTO weapons (name, description, damage, radius, range)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE SET
			description = EXCLUDED.description,
			damage = EXCLUDED.damage,
			radius = EXCLUDED.radius,
			range = EXCLUDED.range
	`

	for _, w := range models.DefaultWeapons {
		if _, err := db.DB.Exec(query, w.Name, w.Description, w.Damage, w.Radius, w.Range); err != nil {
			log.Fatalf("写入武器 %s 失败: %v", w.Name, err)
		}
	}
	log.Printf("✓ 已写入 %d 件默认武器", len(models.DefaultWeapons))
}
