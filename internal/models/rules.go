// rules.go

package models

import (
	"fmt"
	"time"
)

// RuleSet 对局规则，创建对局时固定
type RuleSet struct {
	TickInterval   time.Duration `json:"tick_interval"`   // 回合收益间隔
	ConfirmTimeout time.Duration `json:"confirm_timeout"` // 待确认操作超时时间
	StartingHealth int           `json:"starting_health"` // 初始生命值
	StartingPoints int           `json:"starting_points"` // 初始行动点
	MovePointCost  int           `json:"move_point_cost"` // 每格移动消耗
	ShotPointCost  int           `json:"shot_point_cost"` // 每次射击消耗
	KillReward     int           `json:"kill_reward"`     // 击杀奖励
	TickIncome     int           `json:"tick_income"`     // 每回合收益

	// Teams 可选的队伍名称列表，启用时至少两队
	Teams []string `json:"teams,omitempty"`
}

// Validate 校验规则合法性
func (r *RuleSet) Validate() error {
	if len(r.Teams) == 1 {
		return fmt.Errorf("启用队伍模式时至少需要两个队伍")
	}
	if r.TickInterval <= 0 {
		return fmt.Errorf("回合间隔必须为正数")
	}
	if r.StartingHealth <= 0 {
		return fmt.Errorf("初始生命值必须为正数")
	}
	return nil
}

// TeamsEnabled 是否启用队伍模式
func (r *RuleSet) TeamsEnabled() bool {
	return len(r.Teams) >= 2
}
