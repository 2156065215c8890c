package battle

import (
	"strings"
	"testing"

	"github.com/jacl-coder/TankStorm-Server/internal/models"
)

func TestAttackMissConsumesCostAndRecordsShot(t *testing.T) {
	st := newFakeStore()
	m := newTestMatch(t, st)
	m.roll = func() float64 { return 0.99 } // 高于基础命中率，必定未命中

	a := joinAt(t, m, "A", 0, 0)
	joinAt(t, m, "B", 7, 7)

	target := models.Coord{X: 2, Y: 2}
	outcome, err := m.Attack("A", target)
	if err != nil {
		t.Fatalf("射击失败: %v", err)
	}
	if outcome.Hit {
		t.Fatalf("掷骰高于命中率时不应命中")
	}
	if a.Points != 10 {
		t.Fatalf("未命中也应消耗行动点，期望10，实际 %d", a.Points)
	}

	// 射击历史已记录：对同一坐标的下一次预览命中率提升一档
	preview, err := m.CanAttack("A", target)
	if err != nil {
		t.Fatalf("预检失败: %v", err)
	}
	if preview.HitChance != models.BaseHitChance+models.HitChanceStep {
		t.Fatalf("命中率应随射击历史提升，期望 %v，实际 %v",
			models.BaseHitChance+models.HitChanceStep, preview.HitChance)
	}

	row := st.row("chan-1", "A")
	if row == nil || row.Points != 10 {
		t.Fatalf("未命中后应写穿攻击者状态: %+v", row)
	}
}

func TestAttackDamagesAllOccupantsInRadius(t *testing.T) {
	m := newTestMatch(t, newFakeStore())
	joinAt(t, m, "A", 0, 0)
	b := joinAt(t, m, "B", 3, 3)
	c := joinAt(t, m, "C", 4, 4)

	// 标准炮半径1，目标格与相邻格的占据者都受到伤害
	outcome, err := m.Attack("A", models.Coord{X: 3, Y: 3})
	if err != nil {
		t.Fatalf("射击失败: %v", err)
	}
	if !outcome.Hit {
		t.Fatalf("掷骰为0时应必定命中")
	}
	if len(outcome.Affected) != 2 {
		t.Fatalf("爆炸范围内应有2名受影响玩家，实际 %d", len(outcome.Affected))
	}
	if b.Health != 70 || c.Health != 70 {
		t.Fatalf("两名占据者都应受到30点伤害，实际 B=%d C=%d", b.Health, c.Health)
	}
}

func TestAttackFriendlyFireZeroDamage(t *testing.T) {
	m := newTestMatch(t, newFakeStore(), "红队", "蓝队")
	// 加入顺序决定队伍：A红队、B蓝队、C按平局规则回到红队
	joinAt(t, m, "A", 0, 0)
	joinAt(t, m, "B", 9, 9)
	c := joinAt(t, m, "C", 2, 2)

	if c.Team != "红队" {
		t.Fatalf("前置条件失败：C 应在红队，实际 %s", c.Team)
	}

	outcome, err := m.Attack("A", models.Coord{X: 2, Y: 2})
	if err != nil {
		t.Fatalf("射击失败: %v", err)
	}
	if len(outcome.Affected) != 1 {
		t.Fatalf("队友应计入受影响范围，实际 %d 人", len(outcome.Affected))
	}
	hit := outcome.Affected[0]
	if !hit.FriendlyFire || hit.Damage != 0 {
		t.Fatalf("队友不应受到伤害: %+v", hit)
	}
	if c.Health != 100 {
		t.Fatalf("队友生命值不应变化，实际 %d", c.Health)
	}
	if m.Status() != MatchActive {
		t.Fatalf("误伤队友不应结束对局")
	}
}

func TestAttackKillRewardAndSoloVictory(t *testing.T) {
	st := newFakeStore()
	m := newTestMatch(t, st)
	lb := &fakeWinRecorder{}
	m.SetLeaderboard(lb)

	a := joinAt(t, m, "A", 0, 0)
	joinAtHP(t, m, "B", 2, 2, 30)

	outcome, err := m.Attack("A", models.Coord{X: 2, Y: 2})
	if err != nil {
		t.Fatalf("射击失败: %v", err)
	}
	if len(outcome.Kills) != 1 || outcome.Kills[0] != "B" {
		t.Fatalf("B 应被击杀: %+v", outcome.Kills)
	}
	if !outcome.MatchEnded {
		t.Fatalf("仅剩一人时对局应结束")
	}
	// 20 - 10（射击）+ 10（击杀奖励）
	if a.Points != 20 {
		t.Fatalf("击杀奖励结算错误，期望20，实际 %d", a.Points)
	}

	winners, team := m.Winners()
	if len(winners) != 1 || winners[0] != "A" || team != "" {
		t.Fatalf("胜者名单错误: %v / %q", winners, team)
	}
	if len(st.purged) != 1 || st.purged[0] != "chan-1" {
		t.Fatalf("终局应清除频道的持久化记录: %v", st.purged)
	}
	if len(st.results) != 1 || st.results[0].winners[0] != "A" {
		t.Fatalf("终局应记录对局结果: %+v", st.results)
	}
	if lb.wins["A"] != 1 {
		t.Fatalf("终局应记录胜者胜场: %v", lb.wins)
	}

	if _, ok := m.fallen["B"]; !ok {
		t.Fatalf("B 应进入阵亡名单")
	}
	if m.Map.GetTile(models.Coord{X: 2, Y: 2}).Occupied() {
		t.Fatalf("阵亡玩家应释放地图格子")
	}
}

func TestAttackTeamVictory(t *testing.T) {
	m := newTestMatch(t, newFakeStore(), "红队", "蓝队")
	lb := &fakeWinRecorder{}
	m.SetLeaderboard(lb)

	joinAt(t, m, "A", 0, 0) // 红队
	coords := models.Coord{X: 2, Y: 2}
	hp := 30
	if _, err := m.Join("B", JoinOptions{Coords: &coords, Health: &hp}); err != nil { // 蓝队
		t.Fatalf("加入失败: %v", err)
	}
	joinAt(t, m, "C", 7, 7) // 红队

	outcome, err := m.Attack("A", coords)
	if err != nil {
		t.Fatalf("射击失败: %v", err)
	}
	if !outcome.MatchEnded {
		t.Fatalf("存活者同属一队时对局应结束")
	}

	winners, team := m.Winners()
	if team != "红队" || len(winners) != 2 {
		t.Fatalf("红队全员应为胜者: %v / %q", winners, team)
	}
	if lb.wins["A"] != 1 || lb.wins["C"] != 1 {
		t.Fatalf("每名胜者都应记录胜场: %v", lb.wins)
	}
}

func TestKamikaze(t *testing.T) {
	m := newTestMatch(t, newFakeStore())
	m.roll = func() float64 { return 0.99 } // 自爆无视掷骰，必定命中

	hp := 80
	selfPos := models.Coord{X: 2, Y: 2}
	a, err := m.Join("A", JoinOptions{Coords: &selfPos, Health: &hp, Perk: models.PerkSelfDestruct})
	if err != nil {
		t.Fatalf("加入失败: %v", err)
	}
	// B在切比雪夫距离2处：超出标准炮半径1，但在自爆半径2内
	b := joinAt(t, m, "B", 4, 4)

	preview, err := m.CanAttack("A", selfPos)
	if err != nil {
		t.Fatalf("预检失败: %v", err)
	}
	if !preview.Kamikaze || preview.HitChance != 1.0 || preview.Radius != models.KamikazeRadius {
		t.Fatalf("自爆预览错误: %+v", preview)
	}

	outcome, err := m.Attack("A", selfPos)
	if err != nil {
		t.Fatalf("自爆失败: %v", err)
	}
	if !outcome.Hit || !outcome.Kamikaze {
		t.Fatalf("自爆应必定命中: %+v", outcome)
	}

	var selfHit, splash *AffectedPlayer
	for i := range outcome.Affected {
		switch outcome.Affected[i].UserID {
		case "A":
			selfHit = &outcome.Affected[i]
		case "B":
			splash = &outcome.Affected[i]
		}
	}
	if selfHit == nil || selfHit.Damage != 80 || !selfHit.Killed {
		t.Fatalf("自爆者应受到等于自身生命值的伤害并阵亡: %+v", selfHit)
	}
	if splash == nil || splash.Damage != models.DefaultStartingHealth/2 {
		t.Fatalf("溅射伤害应为默认初始生命值的一半: %+v", splash)
	}
	if a.Health != 0 || b.Health != 50 {
		t.Fatalf("自爆后生命值错误: A=%d B=%d", a.Health, b.Health)
	}

	winners, _ := m.Winners()
	if m.Status() != MatchEnded || len(winners) != 1 || winners[0] != "B" {
		t.Fatalf("自爆后仅剩B，对局应结束且B获胜: %v", winners)
	}
}

func TestKamikazeRequiresPerk(t *testing.T) {
	m := newTestMatch(t, newFakeStore())
	joinAt(t, m, "A", 2, 2)
	joinAt(t, m, "B", 7, 7)

	// 没有自爆能力时，瞄准自己只是普通射击
	preview, err := m.CanAttack("A", models.Coord{X: 2, Y: 2})
	if err != nil {
		t.Fatalf("预检失败: %v", err)
	}
	if preview.Kamikaze || preview.HitChance != models.BaseHitChance {
		t.Fatalf("无自爆能力时不应进入自爆模式: %+v", preview)
	}
}

func TestAttackRejectsOutOfRange(t *testing.T) {
	m := newTestMatch(t, newFakeStore())
	joinAt(t, m, "A", 0, 0)
	joinAt(t, m, "B", 9, 9)

	if _, err := m.Attack("A", models.Coord{X: 9, Y: 9}); err == nil {
		t.Fatalf("超出射程的射击应被拒绝")
	}
	if _, err := m.Attack("A", models.Coord{X: 20, Y: 20}); err == nil ||
		!strings.Contains(err.Error(), "超出地图范围") {
		t.Fatalf("地图外坐标应被拒绝: %v", err)
	}
}

func TestAttackRejectsInsufficientPoints(t *testing.T) {
	m := newTestMatch(t, newFakeStore())
	coords := models.Coord{X: 0, Y: 0}
	points := 5
	a, err := m.Join("A", JoinOptions{Coords: &coords, Points: &points})
	if err != nil {
		t.Fatalf("加入失败: %v", err)
	}
	joinAt(t, m, "B", 2, 2)

	if _, err := m.Attack("A", models.Coord{X: 2, Y: 2}); err == nil ||
		!strings.Contains(err.Error(), "行动点不足") {
		t.Fatalf("行动点不足应被拒绝: %v", err)
	}
	if a.Points != 5 {
		t.Fatalf("被拒绝的射击不应消耗行动点，实际 %d", a.Points)
	}
}

// 两名玩家的完整对局推演：移动、互射、回合收益交替进行，直至一方被击杀
func TestScenarioTwoPlayerBattle(t *testing.T) {
	st := newFakeStore()
	m := newTestMatch(t, st)

	a := joinAt(t, m, "A", 0, 0)
	b := joinAt(t, m, "B", 2, 2)

	// A移动一格：消耗5点
	aPos := models.Coord{X: 0, Y: 1}
	if err := m.MoveTo("A", aPos); err != nil {
		t.Fatalf("移动失败: %v", err)
	}
	if a.Points != 15 {
		t.Fatalf("移动后A应剩15点，实际 %d", a.Points)
	}

	// B命中A
	if _, err := m.Attack("B", aPos); err != nil {
		t.Fatalf("射击失败: %v", err)
	}
	if a.Health != 70 || b.Points != 10 {
		t.Fatalf("首轮射击结算错误: A.hp=%d B.points=%d", a.Health, b.Points)
	}

	// A反击
	if _, err := m.Attack("A", b.Position); err != nil {
		t.Fatalf("射击失败: %v", err)
	}
	if b.Health != 70 || a.Points != 5 {
		t.Fatalf("反击结算错误: B.hp=%d A.points=%d", b.Health, a.Points)
	}

	// 一次回合收益后B再次命中
	m.runTick()
	if a.Points != 10 || b.Points != 15 {
		t.Fatalf("回合收益错误: A=%d B=%d", a.Points, b.Points)
	}
	if _, err := m.Attack("B", aPos); err != nil {
		t.Fatalf("射击失败: %v", err)
	}
	if a.Health != 40 || b.Points != 5 {
		t.Fatalf("第二轮射击结算错误: A.hp=%d B.points=%d", a.Health, b.Points)
	}

	// 再次收益后B打出致命一击前的最后一轮
	m.runTick()
	if _, err := m.Attack("B", aPos); err != nil {
		t.Fatalf("射击失败: %v", err)
	}
	if a.Health != 10 || b.Points != 0 {
		t.Fatalf("第三轮射击结算错误: A.hp=%d B.points=%d", a.Health, b.Points)
	}

	// 积攒两轮收益后补刀
	m.runTick()
	m.runTick()
	if b.Points != 10 {
		t.Fatalf("两轮收益后B应有10点，实际 %d", b.Points)
	}
	outcome, err := m.Attack("B", aPos)
	if err != nil {
		t.Fatalf("射击失败: %v", err)
	}
	if !outcome.MatchEnded || a.Health != 0 {
		t.Fatalf("A被击杀后对局应结束: hp=%d ended=%v", a.Health, outcome.MatchEnded)
	}
	// 0（射击后）+ 10（击杀奖励）
	if b.Points != 10 {
		t.Fatalf("终局B应有10点，实际 %d", b.Points)
	}

	winners, _ := m.Winners()
	if len(winners) != 1 || winners[0] != "B" {
		t.Fatalf("B 应为唯一胜者: %v", winners)
	}
	if len(st.purged) != 1 {
		t.Fatalf("终局应清除持久化记录: %v", st.purged)
	}
}
