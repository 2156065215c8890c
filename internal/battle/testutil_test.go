package battle

import (
	"sync"
	"testing"
	"time"

	"github.com/jacl-coder/TankStorm-Server/internal/models"
	"github.com/jacl-coder/TankStorm-Server/internal/store"
	"github.com/jacl-coder/TankStorm-Server/internal/tilemap"
)

// fakeStore 内存版持久化实现，用于测试
type fakeStore struct {
	mu      sync.Mutex
	rows    map[string]map[string]*store.PlayerRow
	purged  []string
	results []fakeResult
}

type fakeResult struct {
	channelID   string
	winners     []string
	winningTeam string
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]map[string]*store.PlayerRow)}
}

func (f *fakeStore) UpsertPlayer(row *store.PlayerRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows[row.ChannelID] == nil {
		f.rows[row.ChannelID] = make(map[string]*store.PlayerRow)
	}
	cp := *row
	f.rows[row.ChannelID][row.UserID] = &cp
	return nil
}

func (f *fakeStore) LoadChannel(channelID string) ([]*store.PlayerRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*store.PlayerRow
	for _, row := range f.rows[channelID] {
		cp := *row
		result = append(result, &cp)
	}
	return result, nil
}

func (f *fakeStore) PurgeChannel(channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, channelID)
	f.purged = append(f.purged, channelID)
	return nil
}

func (f *fakeStore) RecordResult(channelID string, winners []string, winningTeam string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, fakeResult{channelID, winners, winningTeam})
	return nil
}

func (f *fakeStore) row(channelID, userID string) *store.PlayerRow {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows[channelID] == nil {
		return nil
	}
	return f.rows[channelID][userID]
}

// fakeWinRecorder 内存版胜场记录
type fakeWinRecorder struct {
	mu   sync.Mutex
	wins map[string]int
}

func (f *fakeWinRecorder) RecordWin(userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.wins == nil {
		f.wins = make(map[string]int)
	}
	f.wins[userID]++
	return nil
}

// testRules 测试用规则，回合与确认超时拉长避免干扰
func testRules(teams ...string) models.RuleSet {
	return models.RuleSet{
		TickInterval:   time.Hour,
		ConfirmTimeout: time.Hour,
		StartingHealth: 100,
		StartingPoints: 20,
		MovePointCost:  5,
		ShotPointCost:  10,
		KillReward:     10,
		TickIncome:     5,
		Teams:          teams,
	}
}

// newTestMatch 创建10x10地图上的测试对局，命中判定默认必中
func newTestMatch(t *testing.T, st store.Store, teams ...string) *Match {
	t.Helper()
	rules := testRules(teams...)
	m, err := NewMatch("chan-1", rules, tilemap.NewMap(10, 10, rules.MovePointCost), st)
	if err != nil {
		t.Fatalf("创建对局失败: %v", err)
	}
	m.roll = func() float64 { return 0 }
	t.Cleanup(m.StopTick)
	return m
}

// joinAtHP 在指定坐标以指定生命值加入玩家
func joinAtHP(t *testing.T, m *Match, userID string, x, y, hp int) *models.Combatant {
	t.Helper()
	coords := models.Coord{X: x, Y: y}
	c, err := m.Join(userID, JoinOptions{Coords: &coords, Health: &hp})
	if err != nil {
		t.Fatalf("玩家 %s 加入失败: %v", userID, err)
	}
	return c
}

// joinAt 在指定坐标加入玩家
func joinAt(t *testing.T, m *Match, userID string, x, y int) *models.Combatant {
	t.Helper()
	coords := models.Coord{X: x, Y: y}
	c, err := m.Join(userID, JoinOptions{Coords: &coords})
	if err != nil {
		t.Fatalf("玩家 %s 加入失败: %v", userID, err)
	}
	if c.Position != coords {
		t.Fatalf("玩家 %s 落点错误: 期望 %v，实际 %v", userID, coords, c.Position)
	}
	return c
}
