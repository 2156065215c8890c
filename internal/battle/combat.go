// combat.go

package battle

import (
	"fmt"
	"math/rand"

	"github.com/jacl-coder/TankStorm-Server/internal/models"
)

// defaultRoll 默认命中判定掷骰
func defaultRoll() float64 {
	return rand.Float64()
}

// ShotPreview 射击预览，不改变任何状态
type ShotPreview struct {
	Target    models.Coord `json:"target"`
	PointCost int          `json:"point_cost"`
	HitChance float64      `json:"hit_chance"`
	Radius    int          `json:"radius"`
	Damage    int          `json:"damage"`
	Kamikaze  bool         `json:"kamikaze"`
}

// AffectedPlayer 一次射击中受影响的玩家
type AffectedPlayer struct {
	UserID       string `json:"user_id"`
	Damage       int    `json:"damage"`
	HealthBefore int    `json:"health_before"`
	HealthAfter  int    `json:"health_after"`
	Killed       bool   `json:"killed"`
	FriendlyFire bool   `json:"friendly_fire"` // 队友：计入受影响范围但不受伤害
}

// ShotOutcome 射击结算结果
type ShotOutcome struct {
	Target     models.Coord     `json:"target"`
	Hit        bool             `json:"hit"`
	HitChance  float64          `json:"hit_chance"`
	Kamikaze   bool             `json:"kamikaze"`
	Affected   []AffectedPlayer `json:"affected,omitempty"`
	Kills      []string         `json:"kills,omitempty"`
	MatchEnded bool             `json:"match_ended"`
}

// CanAttack 射击预检：返回射击预览，不改变任何状态
func (m *Match) CanAttack(userID string, coord models.Coord) (*ShotPreview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, preview, err := m.canAttackLocked(userID, coord)
	return preview, err
}

// canAttackLocked 射击校验：对局进行中 → 玩家存活 → 目标格存在 → 射程内 → 行动点足够
func (m *Match) canAttackLocked(userID string, coord models.Coord) (*models.Combatant, *ShotPreview, error) {
	if err := m.requireActiveLocked(); err != nil {
		return nil, nil, err
	}

	attacker, ok := m.living[userID]
	if !ok {
		return nil, nil, fmt.Errorf("玩家 %s 不在对局中或已被击败", userID)
	}

	if m.Map.TryGetTile(coord) == nil {
		return nil, nil, fmt.Errorf("目标坐标 (%d,%d) 超出地图范围", coord.X, coord.Y)
	}

	if m.Map.DistanceStraightLine(attacker.Position, coord) > float64(attacker.Weapon.Range) {
		return nil, nil, fmt.Errorf("目标超出射程：%s 的射程为 %d 格", attacker.Weapon.Name, attacker.Weapon.Range)
	}

	if attacker.Points < m.Rules.ShotPointCost {
		return nil, nil, fmt.Errorf("行动点不足：需要 %d 点，当前仅有 %d 点", m.Rules.ShotPointCost, attacker.Points)
	}

	// 自爆模式：瞄准自己所在格且持有自爆能力，半径固定且必定命中
	kamikaze := coord == attacker.Position && attacker.Perk == models.PerkSelfDestruct
	preview := &ShotPreview{
		Target:    coord,
		PointCost: m.Rules.ShotPointCost,
		HitChance: attacker.HitChance(coord),
		Radius:    attacker.Weapon.Radius,
		Damage:    attacker.Weapon.Damage,
		Kamikaze:  kamikaze,
	}
	if kamikaze {
		preview.HitChance = 1.0
		preview.Radius = models.KamikazeRadius
		preview.Damage = attacker.Health
	}

	return attacker, preview, nil
}

// Attack 执行射击：先做命中判定，命中后对爆炸范围内的占据者结算伤害
// 每次命中后都重新检测结束条件
func (m *Match) Attack(userID string, coord models.Coord) (*ShotOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	attacker, preview, err := m.canAttackLocked(userID, coord)
	if err != nil {
		return nil, err
	}

	attacker.Points -= preview.PointCost
	if attacker.Points < 0 {
		// 预检保证不会走到这里，留作代价表不一致的观测点
		attacker.Points = 0
	}

	outcome := &ShotOutcome{
		Target:    coord,
		HitChance: preview.HitChance,
		Kamikaze:  preview.Kamikaze,
	}

	// 命中判定：命中率随对同一坐标的射击历史递增，自爆必定命中
	hit := preview.Kamikaze || m.roll() < preview.HitChance
	attacker.RecordShot(coord)

	if !hit {
		m.appendLogLocked(fmt.Sprintf("%s 向 (%d,%d) 开火，未命中", userID, coord.X, coord.Y))
		m.persistCombatantLocked(attacker)
		return outcome, nil
	}

	outcome.Hit = true
	m.resolveBlastLocked(attacker, coord, preview, outcome)

	// 结算击杀：名单转移、清除占据、发放击杀奖励
	for _, victim := range outcome.Kills {
		c := m.living[victim]
		delete(m.living, victim)
		m.fallen[victim] = c
		m.Map.ClearOccupant(c.Position)
		attacker.Points += m.Rules.KillReward
		m.appendLogLocked(fmt.Sprintf("%s 被击败了", victim))
	}

	m.appendLogLocked(fmt.Sprintf("%s 向 (%d,%d) 开火，命中 %d 个目标",
		userID, coord.X, coord.Y, len(outcome.Affected)))

	if m.checkEndLocked() {
		outcome.MatchEnded = true
	} else {
		m.persistAllLocked()
	}

	return outcome, nil
}

// resolveBlastLocked 范围伤害结算
// 队友（非本人）不受伤害；自爆对本人造成当前全部生命值的伤害，
// 对其他占据者造成全局默认初始生命值一半的溅射伤害
func (m *Match) resolveBlastLocked(attacker *models.Combatant, target models.Coord, preview *ShotPreview, outcome *ShotOutcome) {
	for _, tile := range m.Map.TilesInRadius(target, preview.Radius, false) {
		if !tile.Occupied() {
			continue
		}
		occupant, ok := m.living[tile.Occupant]
		if !ok {
			continue
		}

		if occupant.UserID != attacker.UserID && occupant.SameTeam(attacker) {
			outcome.Affected = append(outcome.Affected, AffectedPlayer{
				UserID:       occupant.UserID,
				HealthBefore: occupant.Health,
				HealthAfter:  occupant.Health,
				FriendlyFire: true,
			})
			m.appendLogLocked(fmt.Sprintf("%s 在爆炸范围内，但队友的炮火绕开了TA", occupant.UserID))
			continue
		}

		damage := attacker.Weapon.Damage
		if preview.Kamikaze {
			if occupant.UserID == attacker.UserID {
				damage = occupant.Health
			} else {
				damage = models.DefaultStartingHealth / 2
			}
		}

		before, after, killed := occupant.ApplyDamage(damage)
		outcome.Affected = append(outcome.Affected, AffectedPlayer{
			UserID:       occupant.UserID,
			Damage:       damage,
			HealthBefore: before,
			HealthAfter:  after,
			Killed:       killed,
		})
		if killed {
			outcome.Kills = append(outcome.Kills, occupant.UserID)
		}

		m.appendLogLocked(fmt.Sprintf("%s 受到 %d 点伤害（%d → %d）",
			occupant.UserID, damage, before, after))
	}
}
