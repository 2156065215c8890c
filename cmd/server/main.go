// main.go

package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jacl-coder/TankStorm-Server/config"
	"github.com/jacl-coder/TankStorm-Server/internal/battle"
	"github.com/jacl-coder/TankStorm-Server/internal/gateway"
	"github.com/jacl-coder/TankStorm-Server/internal/models"
	"github.com/jacl-coder/TankStorm-Server/internal/store"
	"github.com/jacl-coder/TankStorm-Server/pkg/db"
)

func main() {
	// 解析命令行参数
	configPath := flag.String("config", "config/config.yaml", "配置文件路径")
	serviceType := flag.String("service", "all", "服务类型 (battle, gateway, all)")
	flag.Parse()

	// 加载配置
	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 初始化数据库连接
	if err := db.InitPostgres(); err != nil {
		log.Fatalf("初始化PostgreSQL失败: %v", err)
	}
	defer db.Close()

	// 初始化Redis连接
	if err := db.InitRedis(); err != nil {
		log.Fatalf("初始化Redis失败: %v", err)
	}
	defer db.CloseRedis()

	// 创建对局管理器，终局时通过Redis记录胜场
	manager := battle.NewManager(&config.GlobalConfig, store.NewPostgresStore())
	manager.SetLeaderboard(models.NewRedisLeaderboard())

	var battleServer *battle.BattleServer
	var gatewayServer *gateway.Gateway

	// 根据服务类型启动不同的服务
	switch *serviceType {
	case "battle":
		battleServer = startBattleServer(manager)
	case "gateway":
		gatewayServer = startGatewayServer(manager)
	case "all":
		battleServer = startBattleServer(manager)
		gatewayServer = startGatewayServer(manager)
	default:
		log.Fatalf("未知的服务类型: %s", *serviceType)
	}

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("接收到关闭信号，正在关闭服务器...")

	// 先停服务，再停回合调度，避免残留后台任务
	if gatewayServer != nil {
		if err := gatewayServer.Stop(); err != nil {
			log.Printf("关闭网关失败: %v", err)
		}
	}
	if battleServer != nil {
		if err := battleServer.Stop(); err != nil {
			log.Printf("关闭对战服务器失败: %v", err)
		}
	} else {
		manager.Stop()
	}

	log.Println("服务器已安全关闭")
}

// startBattleServer 启动对战服务器
func startBattleServer(manager *battle.Manager) *battle.BattleServer {
	server := battle.NewBattleServer(&config.GlobalConfig, manager)

	if err := server.Start(); err != nil {
		log.Fatalf("启动对战服务器失败: %v", err)
	}

	log.Println("对战服务器已启动")
	return server
}

// startGatewayServer 启动网关服务器
func startGatewayServer(manager *battle.Manager) *gateway.Gateway {
	gatewayServer := gateway.NewGateway(&config.GlobalConfig, manager)

	if err := gatewayServer.Start(); err != nil {
		log.Fatalf("启动网关服务失败: %v", err)
	}

	log.Println("网关服务已启动")
	return gatewayServer
}
