// manager.go

package battle

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jacl-coder/TankStorm-Server/config"
	"github.com/jacl-coder/TankStorm-Server/internal/models"
	"github.com/jacl-coder/TankStorm-Server/internal/store"
	"github.com/jacl-coder/TankStorm-Server/internal/tilemap"
)

// Manager 对局管理器：每个频道至多一场对局，不同频道完全独立
type Manager struct {
	cfg   *config.Config
	store store.Store

	matches map[string]*Match
	mutex   sync.RWMutex

	// 恢复流程的串行化锁，见GetOrRestoreMatch
	restoreMu sync.Mutex

	notifier    Notifier
	leaderboard WinRecorder

	shutdown  chan struct{}
	isRunning bool
}

// NewManager 创建对局管理器
func NewManager(cfg *config.Config, st store.Store) *Manager {
	return &Manager{
		cfg:      cfg,
		store:    st,
		matches:  make(map[string]*Match),
		shutdown: make(chan struct{}),
	}
}

// SetNotifier 设置战报推送能力，对之后创建的对局生效
func (mgr *Manager) SetNotifier(n Notifier) {
	mgr.notifier = n
}

// SetLeaderboard 设置胜场记录能力
func (mgr *Manager) SetLeaderboard(lb WinRecorder) {
	mgr.leaderboard = lb
}

// Start 启动管理器的清理循环
func (mgr *Manager) Start() {
	if mgr.isRunning {
		return
	}
	mgr.isRunning = true
	go mgr.cleanupLoop()
}

// Stop 停止管理器并关闭所有对局的回合调度
func (mgr *Manager) Stop() {
	if !mgr.isRunning {
		return
	}
	mgr.isRunning = false
	close(mgr.shutdown)

	mgr.mutex.Lock()
	defer mgr.mutex.Unlock()
	for _, m := range mgr.matches {
		m.StopTick()
	}
	log.Println("对局管理器已停止")
}

// rulesFromConfig 从全局配置构造对局规则
func (mgr *Manager) rulesFromConfig(teams []string) models.RuleSet {
	bc := mgr.cfg.Battle
	return models.RuleSet{
		TickInterval:   bc.TickInterval,
		ConfirmTimeout: bc.ConfirmTimeout,
		StartingHealth: bc.StartingHealth,
		StartingPoints: bc.StartingPoints,
		MovePointCost:  bc.MovePointCost,
		ShotPointCost:  bc.ShotPointCost,
		KillReward:     bc.KillReward,
		TickIncome:     bc.TickIncome,
		Teams:          teams,
	}
}

// CreateMatch 为频道创建新对局
func (mgr *Manager) CreateMatch(channelID string, teams []string) (*Match, error) {
	mgr.mutex.Lock()
	defer mgr.mutex.Unlock()

	if existing, ok := mgr.matches[channelID]; ok && existing.Status() != MatchEnded {
		return nil, fmt.Errorf("频道 %s 已有进行中的对局", channelID)
	}

	rules := mgr.rulesFromConfig(teams)
	tileMap := tilemap.NewMap(mgr.cfg.Battle.MapWidth, mgr.cfg.Battle.MapHeight, rules.MovePointCost)

	m, err := NewMatch(channelID, rules, tileMap, mgr.store)
	if err != nil {
		return nil, err
	}
	m.SetNotifier(mgr.notifier)
	m.SetLeaderboard(mgr.leaderboard)

	mgr.matches[channelID] = m
	log.Printf("为频道 %s 创建对局 %s", channelID, m.ID)
	return m, nil
}

// GetMatch 获取频道的对局
func (mgr *Manager) GetMatch(channelID string) (*Match, bool) {
	mgr.mutex.RLock()
	defer mgr.mutex.RUnlock()
	m, ok := mgr.matches[channelID]
	return m, ok
}

// GetOrRestoreMatch 获取频道的对局，内存中不存在时尝试从持久化恢复
// 没有存档记录时返回(nil, false)，不视为错误
func (mgr *Manager) GetOrRestoreMatch(channelID string) (*Match, bool) {
	if m, ok := mgr.GetMatch(channelID); ok {
		return m, true
	}

	// 串行化恢复：并发恢复同一频道时，后到者必须拿到先到者建好的对局
	mgr.restoreMu.Lock()
	defer mgr.restoreMu.Unlock()

	if m, ok := mgr.GetMatch(channelID); ok {
		return m, true
	}

	m, err := mgr.RestoreMatch(channelID)
	if err != nil {
		log.Printf("恢复频道 %s 的对局失败: %v", channelID, err)
		return nil, false
	}
	return m, m != nil
}

// RestoreMatch 从持久化记录恢复频道的对局
// 零条记录视为没有存档，返回(nil, nil)
func (mgr *Manager) RestoreMatch(channelID string) (*Match, error) {
	rows, err := mgr.store.LoadChannel(channelID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	// 恢复时沿用存储的队伍名构造队伍列表
	var teams []string
	seen := make(map[string]bool)
	for _, row := range rows {
		if row.Team != "" && !seen[row.Team] {
			seen[row.Team] = true
			teams = append(teams, row.Team)
		}
	}
	if len(teams) == 1 {
		teams = nil
	}

	m, err := mgr.CreateMatch(channelID, teams)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		if row.HP <= 0 {
			// 阵亡玩家直接进入阵亡名单，保证重启后依然无法重新加入
			m.RestoreFallen(row)
			continue
		}
		hp, points := row.HP, row.Points
		coords := models.Coord{X: row.CoordX, Y: row.CoordY}
		if _, err := m.Join(row.UserID, JoinOptions{
			Health: &hp,
			Points: &points,
			Coords: &coords,
			Team:   row.Team,
			Weapon: row.Weapon,
		}); err != nil {
			log.Printf("恢复玩家 %s 失败: %v", row.UserID, err)
		}
	}
	m.Resume()

	log.Printf("已从持久化记录恢复频道 %s 的对局（%d 条记录）", channelID, len(rows))
	return m, nil
}

// cleanupLoop 定期清理已结束的对局
func (mgr *Manager) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mgr.cleanupMatches()
		case <-mgr.shutdown:
			return
		}
	}
}

// cleanupMatches 移除可清理的对局
func (mgr *Manager) cleanupMatches() {
	mgr.mutex.Lock()
	defer mgr.mutex.Unlock()

	for id, m := range mgr.matches {
		if m.ShouldCleanup() {
			m.StopTick()
			delete(mgr.matches, id)
			log.Printf("清理已结束的对局: 频道 %s", id)
		}
	}
}
