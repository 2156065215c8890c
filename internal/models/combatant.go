// combatant.go

package models

// Coord 地图坐标
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Perk 特殊能力
type Perk string

const (
	// PerkNone 无特殊能力
	PerkNone Perk = ""
	// PerkSelfDestruct 自爆：仅在瞄准自己所在格时生效
	PerkSelfDestruct Perk = "self_destruct"
)

// DefaultStartingHealth 全局默认初始生命值
// 自爆对周围单位的溅射伤害固定按该常量的一半计算，与对局配置无关
const DefaultStartingHealth = 100

// 命中率参数
const (
	// BaseHitChance 基础命中率
	BaseHitChance = 0.5
	// HitChanceStep 对同一坐标每多射击一次提升的命中率
	HitChanceStep = 0.1
	// MaxHitChance 命中率上限
	MaxHitChance = 0.95
)

// Combatant 参战玩家的战斗状态
type Combatant struct {
	UserID   string `json:"user_id"`
	Health   int    `json:"health"`
	Points   int    `json:"points"`
	Position Coord  `json:"position"`
	Team     string `json:"team,omitempty"`
	Weapon   Weapon `json:"weapon"`
	Perk     Perk   `json:"perk,omitempty"`

	// ShotHistory 按目标坐标累计的射击次数，用于提高后续命中率
	ShotHistory map[Coord]int `json:"-"`
}

// NewCombatant 创建参战玩家
func NewCombatant(userID string, health, points int, pos Coord, weapon Weapon) *Combatant {
	return &Combatant{
		UserID:      userID,
		Health:      health,
		Points:      points,
		Position:    pos,
		Weapon:      weapon,
		ShotHistory: make(map[Coord]int),
	}
}

// IsAlive 是否存活
func (c *Combatant) IsAlive() bool {
	return c.Health > 0
}

// ApplyDamage 应用伤害，生命值不会低于0
// 返回扣除前后的生命值以及本次是否被击杀
func (c *Combatant) ApplyDamage(damage int) (before, after int, killed bool) {
	before = c.Health
	after = before - damage
	if after < 0 {
		after = 0
	}
	c.Health = after
	return before, after, before > 0 && after == 0
}

// HitChance 对指定坐标的命中率，随历史射击次数递增
func (c *Combatant) HitChance(target Coord) float64 {
	chance := BaseHitChance + HitChanceStep*float64(c.shotCount(target))
	if chance > MaxHitChance {
		chance = MaxHitChance
	}
	return chance
}

// RecordShot 记录一次对指定坐标的射击
func (c *Combatant) RecordShot(target Coord) {
	if c.ShotHistory == nil {
		c.ShotHistory = make(map[Coord]int)
	}
	c.ShotHistory[target]++
}

// shotCount 历史射击次数
func (c *Combatant) shotCount(target Coord) int {
	if c.ShotHistory == nil {
		return 0
	}
	return c.ShotHistory[target]
}

// SameTeam 是否与另一名玩家同队
func (c *Combatant) SameTeam(other *Combatant) bool {
	return c.Team != "" && c.Team == other.Team
}
