package battle

import (
	"strings"
	"testing"

	"github.com/jacl-coder/TankStorm-Server/internal/models"
	"github.com/jacl-coder/TankStorm-Server/internal/store"
	"github.com/jacl-coder/TankStorm-Server/internal/tilemap"
)

func TestJoinStartsTickAtSecondPlayer(t *testing.T) {
	m := newTestMatch(t, newFakeStore())

	joinAt(t, m, "A", 0, 0)
	if m.Status() != MatchWaiting {
		t.Fatalf("单人加入后对局不应开始，状态为 %s", m.Status())
	}

	joinAt(t, m, "B", 2, 2)
	if m.Status() != MatchActive {
		t.Fatalf("两人加入后对局应开始，状态为 %s", m.Status())
	}
}

func TestJoinRejectsDuplicate(t *testing.T) {
	m := newTestMatch(t, newFakeStore())
	joinAt(t, m, "A", 0, 0)

	if _, err := m.Join("A", JoinOptions{}); err == nil {
		t.Fatalf("重复加入应被拒绝")
	}
}

func TestJoinRejectsEliminated(t *testing.T) {
	m := newTestMatch(t, newFakeStore())
	joinAt(t, m, "A", 0, 0)
	joinAtHP(t, m, "B", 2, 2, 25)
	joinAt(t, m, "C", 7, 7)

	// B仅剩25点生命，一炮即被击杀
	if _, err := m.Attack("A", models.Coord{X: 2, Y: 2}); err != nil {
		t.Fatalf("射击失败: %v", err)
	}
	if _, ok := m.living["B"]; ok {
		t.Fatalf("B 应已阵亡")
	}

	_, err := m.Join("B", JoinOptions{})
	if err == nil {
		t.Fatalf("阵亡玩家重新加入应被拒绝")
	}
	if !strings.Contains(err.Error(), "已被击败") {
		t.Fatalf("错误信息应指明已被击败: %v", err)
	}
}

func TestJoinRejectsWhenMapFull(t *testing.T) {
	rules := testRules()
	m, err := NewMatch("chan-1", rules, tilemap.NewMap(1, 1, rules.MovePointCost), newFakeStore())
	if err != nil {
		t.Fatalf("创建对局失败: %v", err)
	}
	t.Cleanup(m.StopTick)

	if _, err := m.Join("A", JoinOptions{}); err != nil {
		t.Fatalf("首名玩家加入失败: %v", err)
	}
	if _, err := m.Join("B", JoinOptions{}); err == nil {
		t.Fatalf("地图占满后加入应被拒绝")
	}
}

func TestJoinRejectsAfterMatchEnded(t *testing.T) {
	st := newFakeStore()
	m := newTestMatch(t, st)
	joinAt(t, m, "A", 0, 0)
	joinAtHP(t, m, "B", 2, 2, 30)

	// A击杀B后仅剩一人，对局结束
	if _, err := m.Attack("A", models.Coord{X: 2, Y: 2}); err != nil {
		t.Fatalf("射击失败: %v", err)
	}
	if m.Status() != MatchEnded {
		t.Fatalf("对局应已结束，状态为 %s", m.Status())
	}

	if _, err := m.Join("C", JoinOptions{}); err == nil {
		t.Fatalf("对局结束后加入应被拒绝")
	}
}

func TestJoinAssignsFewestTeam(t *testing.T) {
	m := newTestMatch(t, newFakeStore(), "红队", "蓝队", "绿队")

	// 构造存活人数 [红:3, 蓝:1, 绿:2]
	stored := []struct {
		user string
		team string
	}{
		{"r1", "红队"}, {"r2", "红队"}, {"r3", "红队"},
		{"b1", "蓝队"},
		{"g1", "绿队"}, {"g2", "绿队"},
	}
	for i, s := range stored {
		coords := models.Coord{X: i, Y: 0}
		if _, err := m.Join(s.user, JoinOptions{Coords: &coords, Team: s.team}); err != nil {
			t.Fatalf("玩家 %s 加入失败: %v", s.user, err)
		}
	}

	c, err := m.Join("new", JoinOptions{})
	if err != nil {
		t.Fatalf("加入失败: %v", err)
	}
	if c.Team != "蓝队" {
		t.Fatalf("应被分配到人数最少的蓝队，实际为 %s", c.Team)
	}
}

func TestJoinTeamTieBreakByConfiguredOrder(t *testing.T) {
	m := newTestMatch(t, newFakeStore(), "红队", "蓝队")

	c1, err := m.Join("p1", JoinOptions{})
	if err != nil {
		t.Fatalf("加入失败: %v", err)
	}
	if c1.Team != "红队" {
		t.Fatalf("平局时应按配置顺序分配红队，实际为 %s", c1.Team)
	}

	c2, err := m.Join("p2", JoinOptions{})
	if err != nil {
		t.Fatalf("加入失败: %v", err)
	}
	if c2.Team != "蓝队" {
		t.Fatalf("第二名玩家应分配到蓝队，实际为 %s", c2.Team)
	}
}

func TestJoinRestoresStoredTeam(t *testing.T) {
	m := newTestMatch(t, newFakeStore(), "红队", "蓝队")

	// 即便蓝队人数更少，恢复时也保留原队伍
	joinAt(t, m, "p1", 0, 0)
	c, err := m.Join("p2", JoinOptions{Team: "红队"})
	if err != nil {
		t.Fatalf("加入失败: %v", err)
	}
	if c.Team != "红队" {
		t.Fatalf("应恢复存储的红队，实际为 %s", c.Team)
	}
}

func TestJoinPersistsCombatant(t *testing.T) {
	st := newFakeStore()
	m := newTestMatch(t, st)
	joinAt(t, m, "A", 3, 4)

	row := st.row("chan-1", "A")
	if row == nil {
		t.Fatalf("加入后应写入持久化行")
	}
	if row.CoordX != 3 || row.CoordY != 4 || row.HP != 100 || row.Points != 20 {
		t.Fatalf("持久化行内容错误: %+v", row)
	}
}

func TestLivingPositionsUnique(t *testing.T) {
	m := newTestMatch(t, newFakeStore())

	// 指定同一落点时后来者被自动分配到其他格子
	coords := models.Coord{X: 2, Y: 2}
	if _, err := m.Join("A", JoinOptions{Coords: &coords}); err != nil {
		t.Fatalf("加入失败: %v", err)
	}
	b, err := m.Join("B", JoinOptions{Coords: &coords})
	if err != nil {
		t.Fatalf("加入失败: %v", err)
	}
	if b.Position == coords {
		t.Fatalf("两名玩家不应占据同一格")
	}

	seen := make(map[models.Coord]bool)
	for _, c := range m.Living() {
		if seen[c.Position] {
			t.Fatalf("坐标 %v 被多名玩家占据", c.Position)
		}
		seen[c.Position] = true
		tile := m.Map.GetTile(c.Position)
		if tile.Occupant != c.UserID {
			t.Fatalf("玩家 %s 的坐标与地图占据记录不一致", c.UserID)
		}
	}
}

func TestResumeRestoresTickAndEndCheck(t *testing.T) {
	st := newFakeStore()
	rules := testRules()
	m, err := NewMatch("chan-1", rules, tilemap.NewMap(10, 10, rules.MovePointCost), st)
	if err != nil {
		t.Fatalf("创建对局失败: %v", err)
	}
	t.Cleanup(m.StopTick)

	hp, points := 40, 12
	coords := models.Coord{X: 1, Y: 1}
	if _, err := m.Join("A", JoinOptions{Health: &hp, Points: &points, Coords: &coords}); err != nil {
		t.Fatalf("恢复玩家失败: %v", err)
	}
	m.RestoreFallen(&store.PlayerRow{ChannelID: "chan-1", UserID: "B", Points: 3})

	m.Resume()

	// 仅剩一名存活玩家，恢复后立即判定终局
	if m.Status() != MatchEnded {
		t.Fatalf("恢复后应判定终局，状态为 %s", m.Status())
	}
	winners, _ := m.Winners()
	if len(winners) != 1 || winners[0] != "A" {
		t.Fatalf("胜者应为A，实际为 %v", winners)
	}
}
