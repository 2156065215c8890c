// match.go

package battle

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jacl-coder/TankStorm-Server/internal/models"
	"github.com/jacl-coder/TankStorm-Server/internal/store"
	"github.com/jacl-coder/TankStorm-Server/internal/tilemap"
)

// MatchStatus 对局状态
type MatchStatus string

const (
	// MatchWaiting 等待玩家加入
	MatchWaiting MatchStatus = "waiting"
	// MatchActive 对局进行中
	MatchActive MatchStatus = "active"
	// MatchEnded 对局已结束
	MatchEnded MatchStatus = "ended"
)

// LogEntry 战报条目
type LogEntry struct {
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// Notifier 战报推送能力，由外部消息层实现
type Notifier interface {
	Notify(channelID, text string)
}

// WinRecorder 胜场记录能力
type WinRecorder interface {
	RecordWin(userID string) error
}

// Match 一场对局，从首次加入到结束条件达成
// 对局独占其名单、战报与地图，所有状态变更都必须持有互斥锁
type Match struct {
	ID        string
	ChannelID string
	Rules     models.RuleSet
	Map       *tilemap.Map
	CreatedAt time.Time

	mu     sync.Mutex
	status MatchStatus
	living map[string]*models.Combatant
	fallen map[string]*models.Combatant
	events []LogEntry

	// 结束信息
	winners     []string
	winningTeam string
	endedAt     time.Time

	// 回合调度
	tickStarted bool
	tickStopped bool
	tickStop    chan struct{}

	// 外部能力
	store       store.Store
	notifier    Notifier
	leaderboard WinRecorder

	// 命中判定掷骰，范围[0,1)，测试中可替换
	roll func() float64
}

// NewMatch 创建新对局
func NewMatch(channelID string, rules models.RuleSet, tileMap *tilemap.Map, st store.Store) (*Match, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	return &Match{
		ID:        uuid.New().String(),
		ChannelID: channelID,
		Rules:     rules,
		Map:       tileMap,
		CreatedAt: time.Now(),
		status:    MatchWaiting,
		living:    make(map[string]*models.Combatant),
		fallen:    make(map[string]*models.Combatant),
		store:     st,
		roll:      defaultRoll,
	}, nil
}

// SetNotifier 设置战报推送能力
func (m *Match) SetNotifier(n Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifier = n
}

// SetLeaderboard 设置胜场记录能力
func (m *Match) SetLeaderboard(lb WinRecorder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaderboard = lb
}

// JoinOptions 加入对局的可选参数，主要用于从持久化记录恢复
type JoinOptions struct {
	Health *int          // 为nil时使用规则默认值
	Points *int          // 为nil时使用规则默认值
	Coords *models.Coord // 为nil或已被占据时自动分配
	Team   string        // 恢复时保留原队伍
	Weapon string        // 武器名称，空时使用默认武器
	Perk   models.Perk
}

// Join 玩家加入对局
func (m *Match) Join(userID string, opts JoinOptions) (*models.Combatant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == MatchEnded {
		return nil, fmt.Errorf("对局已结束，无法加入")
	}
	if _, ok := m.living[userID]; ok {
		return nil, fmt.Errorf("玩家 %s 已在对局中", userID)
	}
	if _, ok := m.fallen[userID]; ok {
		return nil, fmt.Errorf("玩家 %s 已被击败，不能重新加入", userID)
	}

	// 落点：优先使用指定坐标，无效或被占据时自动分配
	var tile *tilemap.Tile
	if opts.Coords != nil {
		if t := m.Map.TryGetTile(*opts.Coords); t != nil && t.Passable && !t.Occupied() {
			tile = t
		}
	}
	if tile == nil {
		tile = m.Map.UnoccupiedTile()
	}
	if tile == nil {
		return nil, fmt.Errorf("对局已满：没有空余格子")
	}

	health := m.Rules.StartingHealth
	if opts.Health != nil {
		health = *opts.Health
	}
	points := m.Rules.StartingPoints
	if opts.Points != nil {
		points = *opts.Points
	}

	c := models.NewCombatant(userID, health, points, tile.Coord, models.WeaponByName(opts.Weapon))
	c.Perk = opts.Perk
	if m.Rules.TeamsEnabled() {
		c.Team = m.assignTeamLocked(opts.Team)
	}

	m.living[userID] = c
	m.Map.SetOccupant(tile.Coord, userID)

	if c.Team != "" {
		m.appendLogLocked(fmt.Sprintf("%s 加入了战场（队伍：%s）", userID, c.Team))
	} else {
		m.appendLogLocked(fmt.Sprintf("%s 加入了战场", userID))
	}
	m.persistCombatantLocked(c)

	// 第二名玩家加入的瞬间启动回合调度，之后不再触发
	if len(m.living)+len(m.fallen) >= 2 {
		m.startTickLocked()
	}

	return c, nil
}

// assignTeamLocked 分配队伍：优先恢复原队伍，否则选择存活人数最少的队伍
// 平局时按配置顺序取先出现的队伍
func (m *Match) assignTeamLocked(stored string) string {
	for _, t := range m.Rules.Teams {
		if t == stored {
			return t
		}
	}

	counts := make(map[string]int, len(m.Rules.Teams))
	for _, c := range m.living {
		counts[c.Team]++
	}

	best := m.Rules.Teams[0]
	for _, t := range m.Rules.Teams[1:] {
		if counts[t] < counts[best] {
			best = t
		}
	}
	return best
}

// RestoreFallen 将持久化的阵亡玩家直接恢复到阵亡名单
// 阵亡玩家不占据地图格子，仅用于阻止其重新加入
func (m *Match) RestoreFallen(row *store.PlayerRow) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := models.NewCombatant(row.UserID, 0, row.Points,
		models.Coord{X: row.CoordX, Y: row.CoordY}, models.WeaponByName(row.Weapon))
	c.Team = row.Team
	m.fallen[row.UserID] = c
}

// Resume 恢复对局运行状态：参与者曾达到两人即重启回合调度，
// 并立即重检结束条件（存档可能落后于终局至多一次操作）
func (m *Match) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.living)+len(m.fallen) >= 2 {
		m.startTickLocked()
	}
	m.checkEndLocked()
}

// Status 当前对局状态
func (m *Match) Status() MatchStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Winners 对局结束后的胜者名单与获胜队伍
func (m *Match) Winners() ([]string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.winners...), m.winningTeam
}

// Living 存活玩家快照
func (m *Match) Living() []*models.Combatant {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*models.Combatant, 0, len(m.living))
	for _, c := range m.living {
		result = append(result, c)
	}
	return result
}

// Fallen 阵亡玩家快照
func (m *Match) Fallen() []*models.Combatant {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*models.Combatant, 0, len(m.fallen))
	for _, c := range m.fallen {
		result = append(result, c)
	}
	return result
}

// GetCombatant 查找玩家（存活或阵亡）
func (m *Match) GetCombatant(userID string) (*models.Combatant, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.living[userID]; ok {
		return c, true
	}
	c, ok := m.fallen[userID]
	return c, ok
}

// EventLog 战报快照
func (m *Match) EventLog() []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LogEntry(nil), m.events...)
}

// ShouldCleanup 对局是否可以被清理
func (m *Match) ShouldCleanup() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status == MatchEnded && time.Since(m.endedAt) > 2*time.Minute
}

// checkEndLocked 结束条件检测：无人存活、仅剩一人、或存活者同属一队
// 满足时执行终局清理并返回true
func (m *Match) checkEndLocked() bool {
	if m.status != MatchActive {
		return false
	}

	switch {
	case len(m.living) == 0:
		m.endMatchLocked(nil, "")
		return true
	case len(m.living) == 1:
		var winner string
		for id := range m.living {
			winner = id
		}
		m.endMatchLocked([]string{winner}, "")
		return true
	case m.Rules.TeamsEnabled():
		team := ""
		single := true
		for _, c := range m.living {
			if team == "" {
				team = c.Team
			} else if c.Team != team {
				single = false
				break
			}
		}
		if single && team != "" {
			winners := make([]string, 0, len(m.living))
			for id := range m.living {
				winners = append(winners, id)
			}
			m.endMatchLocked(winners, team)
			return true
		}
	}
	return false
}

// endMatchLocked 终局处理：停止回合调度、清除持久化记录、记录结果
// 清理为尽力而为，失败只记录日志，不回滚已生效的战斗结果
func (m *Match) endMatchLocked(winners []string, winningTeam string) {
	m.status = MatchEnded
	m.endedAt = time.Now()
	m.winners = winners
	m.winningTeam = winningTeam
	m.stopTickLocked()

	switch {
	case winningTeam != "":
		m.appendLogLocked(fmt.Sprintf("对局结束，%s 获胜！", winningTeam))
	case len(winners) == 1:
		m.appendLogLocked(fmt.Sprintf("对局结束，%s 是最后的幸存者！", winners[0]))
	default:
		m.appendLogLocked("对局结束，无人生还")
	}

	if err := m.store.PurgeChannel(m.ChannelID); err != nil {
		log.Printf("清除对局 %s 的持久化记录失败: %v", m.ChannelID, err)
	}
	if err := m.store.RecordResult(m.ChannelID, winners, winningTeam); err != nil {
		log.Printf("记录对局 %s 的结果失败: %v", m.ChannelID, err)
	}
	if m.leaderboard != nil {
		for _, w := range winners {
			if err := m.leaderboard.RecordWin(w); err != nil {
				log.Printf("记录玩家 %s 胜场失败: %v", w, err)
			}
		}
	}

	log.Printf("频道 %s 的对局已结束", m.ChannelID)
}

// appendLogLocked 追加战报条目并推送
func (m *Match) appendLogLocked(text string) {
	m.events = append(m.events, LogEntry{Time: time.Now(), Text: text})
	if m.notifier != nil {
		m.notifier.Notify(m.ChannelID, text)
	}
}

// persistCombatantLocked 写穿单个玩家的持久化行，失败只记录日志
func (m *Match) persistCombatantLocked(c *models.Combatant) {
	row := &store.PlayerRow{
		ChannelID: m.ChannelID,
		UserID:    c.UserID,
		CoordX:    c.Position.X,
		CoordY:    c.Position.Y,
		HP:        c.Health,
		Points:    c.Points,
		Team:      c.Team,
		Weapon:    c.Weapon.Name,
	}
	if err := m.store.UpsertPlayer(row); err != nil {
		log.Printf("持久化玩家 %s 失败: %v", c.UserID, err)
	}
}

// persistAllLocked 写穿全部名单
func (m *Match) persistAllLocked() {
	for _, c := range m.living {
		m.persistCombatantLocked(c)
	}
	for _, c := range m.fallen {
		m.persistCombatantLocked(c)
	}
}
