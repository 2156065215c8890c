package protocol

import (
	"time"

	"github.com/jacl-coder/TankStorm-Server/internal/models"
)

// CombatantInfo 玩家战斗状态的线上表示
type CombatantInfo struct {
	UserID string `json:"user_id"`
	Health int    `json:"health"`
	Points int    `json:"points"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Team   string `json:"team,omitempty"`
	Weapon string `json:"weapon"`
	Perk   string `json:"perk,omitempty"`
	Alive  bool   `json:"alive"`
}

// EventInfo 战报条目的线上表示
type EventInfo struct {
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// StateSnapshot 对局状态快照
type StateSnapshot struct {
	ChannelID   string          `json:"channel_id"`
	Status      string          `json:"status"`
	Living      []CombatantInfo `json:"living"`
	Fallen      []CombatantInfo `json:"fallen"`
	Events      []EventInfo     `json:"events,omitempty"`
	Winners     []string        `json:"winners,omitempty"`
	WinningTeam string          `json:"winning_team,omitempty"`
}

// PreviewAttachment 待确认操作的预览附件，作为不透明负载随确认请求下发
type PreviewAttachment struct {
	ActionID       string  `json:"action_id"`
	Kind           string  `json:"kind"`
	UserID         string  `json:"user_id"`
	X              int     `json:"x"`
	Y              int     `json:"y"`
	PointsRequired int     `json:"points_required"`
	TilesTraversed int     `json:"tiles_traversed,omitempty"`
	HitChance      float64 `json:"hit_chance,omitempty"`
	Radius         int     `json:"radius,omitempty"`
	Damage         int     `json:"damage,omitempty"`
	Kamikaze       bool    `json:"kamikaze,omitempty"`
	ExpiresAt      int64   `json:"expires_at"`
}

// ConvertCombatantToInfo 将玩家模型转换为线上表示
func ConvertCombatantToInfo(c *models.Combatant) CombatantInfo {
	return CombatantInfo{
		UserID: c.UserID,
		Health: c.Health,
		Points: c.Points,
		X:      c.Position.X,
		Y:      c.Position.Y,
		Team:   c.Team,
		Weapon: c.Weapon.Name,
		Perk:   string(c.Perk),
		Alive:  c.IsAlive(),
	}
}

// ConvertCombatantsToInfo 批量转换
func ConvertCombatantsToInfo(cs []*models.Combatant) []CombatantInfo {
	infos := make([]CombatantInfo, 0, len(cs))
	for _, c := range cs {
		infos = append(infos, ConvertCombatantToInfo(c))
	}
	return infos
}
