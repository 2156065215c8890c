package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jacl-coder/TankStorm-Server/config"
	"github.com/jacl-coder/TankStorm-Server/internal/battle"
	"github.com/jacl-coder/TankStorm-Server/internal/models"
	"github.com/jacl-coder/TankStorm-Server/internal/protocol"
	"github.com/jacl-coder/TankStorm-Server/pkg/db"
)

// Gateway API网关：对外提供对局查询、武器目录与排行榜的HTTP接口
type Gateway struct {
	config      *config.Config
	manager     *battle.Manager
	leaderboard *models.RedisLeaderboard
	auth        *AuthHandler
	httpServer  *http.Server
	isRunning   bool
}

// NewGateway 创建新的网关
func NewGateway(cfg *config.Config, manager *battle.Manager) *Gateway {
	return &Gateway{
		config:      cfg,
		manager:     manager,
		leaderboard: models.NewRedisLeaderboard(),
		auth:        NewAuthHandler(cfg.Server.JWTSecret),
	}
}

// Start 启动网关
func (g *Gateway) Start() error {
	if g.isRunning {
		return fmt.Errorf("网关已经在运行")
	}

	mux := http.NewServeMux()
	cache := NewCacheMiddleware()
	rateLimiter := NewRateLimiter(120, 40)

	// 公开端点
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/auth/token", g.auth.HandleToken)

	// 认证端点
	mux.Handle("/battle/state", g.auth.Middleware(http.HandlerFunc(g.handleBattleState)))
	mux.Handle("/battle/log", g.auth.Middleware(http.HandlerFunc(g.handleBattleLog)))

	// 可缓存端点
	mux.Handle("/weapons", cache.Wrap(http.HandlerFunc(g.handleWeapons), 10*time.Minute))
	mux.Handle("/leaderboard", cache.Wrap(http.HandlerFunc(g.handleLeaderboard), 2*time.Minute))

	g.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", g.config.Server.GatewayPort),
		Handler: rateLimiter.Middleware(mux),
	}

	go func() {
		log.Printf("网关服务器启动，监听端口: %d", g.config.Server.GatewayPort)
		if err := g.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("网关HTTP服务器错误: %v", err)
		}
	}()

	g.isRunning = true
	return nil
}

// Stop 停止网关
func (g *Gateway) Stop() error {
	if !g.isRunning {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := g.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("网关关闭错误: %w", err)
	}

	g.isRunning = false
	log.Println("网关已停止")
	return nil
}

// handleHealth 处理健康检查请求
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleBattleState 查询频道对局的状态快照
func (g *Gateway) handleBattleState(w http.ResponseWriter, r *http.Request) {
	channelID := r.URL.Query().Get("channel_id")
	if channelID == "" {
		writeError(w, http.StatusBadRequest, "缺少channel_id参数")
		return
	}

	m, ok := g.manager.GetOrRestoreMatch(channelID)
	if !ok {
		writeError(w, http.StatusNotFound, "该频道没有进行中的对局")
		return
	}

	winners, winningTeam := m.Winners()
	writeJSON(w, http.StatusOK, protocol.StateSnapshot{
		ChannelID:   m.ChannelID,
		Status:      string(m.Status()),
		Living:      protocol.ConvertCombatantsToInfo(m.Living()),
		Fallen:      protocol.ConvertCombatantsToInfo(m.Fallen()),
		Winners:     winners,
		WinningTeam: winningTeam,
	})
}

// handleBattleLog 查询频道对局的战报
func (g *Gateway) handleBattleLog(w http.ResponseWriter, r *http.Request) {
	channelID := r.URL.Query().Get("channel_id")
	if channelID == "" {
		writeError(w, http.StatusBadRequest, "缺少channel_id参数")
		return
	}

	m, ok := g.manager.GetOrRestoreMatch(channelID)
	if !ok {
		writeError(w, http.StatusNotFound, "该频道没有进行中的对局")
		return
	}

	events := m.EventLog()
	infos := make([]protocol.EventInfo, 0, len(events))
	for _, e := range events {
		infos = append(infos, protocol.EventInfo(e))
	}
	writeJSON(w, http.StatusOK, infos)
}

// handleWeapons 查询武器目录，数据库不可用时使用内置预设兜底
func (g *Gateway) handleWeapons(w http.ResponseWriter, r *http.Request) {
	weapons, err := listWeapons()
	if err != nil {
		log.Printf("查询武器目录失败，使用内置预设: %v", err)
		weapons = models.DefaultWeapons
	}
	writeJSON(w, http.StatusOK, weapons)
}

// handleLeaderboard 查询胜场排行榜
func (g *Gateway) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := g.leaderboard.GetTopWinners(20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "查询排行榜失败")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// listWeapons 从数据库读取武器目录
func listWeapons() ([]models.Weapon, error) {
	rows, err := db.DB.Query(`SELECT id, name, COALESCE(description, ''), damage, radius, range FROM weapons ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var weapons []models.Weapon
	for rows.Next() {
		var weapon models.Weapon
		if err := rows.Scan(&weapon.ID, &weapon.Name, &weapon.Description,
			&weapon.Damage, &weapon.Radius, &weapon.Range); err != nil {
			return nil, err
		}
		weapons = append(weapons, weapon)
	}
	return weapons, rows.Err()
}

// writeJSON 输出JSON响应
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("序列化响应失败: %v", err)
	}
}

// writeError 输出错误响应
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
