// movement.go

package battle

import (
	"fmt"
	"log"

	"github.com/jacl-coder/TankStorm-Server/internal/models"
	"github.com/jacl-coder/TankStorm-Server/internal/tilemap"
)

// CanMove 移动预检：返回代价预览，不改变任何状态
func (m *Match) CanMove(userID string, coord models.Coord) (*tilemap.MoveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, res, err := m.canMoveLocked(userID, coord)
	return res, err
}

// MoveTo 执行移动：扣除行动点、转移占据、更新坐标并写穿持久化
func (m *Match) MoveTo(userID string, coord models.Coord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, res, err := m.canMoveLocked(userID, coord)
	if err != nil {
		return err
	}

	origin := c.Position
	c.Points -= res.PointsRequired

	// 防御性检查：预检通过后不应出现负余额，出现则说明代价表不一致
	if c.Points < 0 {
		log.Printf("异常：玩家 %s 移动后行动点为负数 (%d)，已修正为0", userID, c.Points)
		c.Points = 0
	}

	m.Map.ClearOccupant(origin)
	m.Map.SetOccupant(coord, userID)
	c.Position = coord

	m.appendLogLocked(fmt.Sprintf("%s 从 (%d,%d) 移动到 (%d,%d)，消耗 %d 点",
		userID, origin.X, origin.Y, coord.X, coord.Y, res.PointsRequired))
	m.persistCombatantLocked(c)

	return nil
}

// canMoveLocked 移动校验：对局进行中 → 玩家存活 → 目标可达 → 行动点足够
func (m *Match) canMoveLocked(userID string, coord models.Coord) (*models.Combatant, *tilemap.MoveResult, error) {
	if err := m.requireActiveLocked(); err != nil {
		return nil, nil, err
	}

	c, ok := m.living[userID]
	if !ok {
		return nil, nil, fmt.Errorf("玩家 %s 不在对局中或已被击败", userID)
	}

	res, err := m.Map.CanMoveTo(coord, c)
	if err != nil {
		return nil, nil, err
	}

	if c.Points < res.PointsRequired {
		return nil, nil, fmt.Errorf("行动点不足：需要 %d 点，当前仅有 %d 点", res.PointsRequired, c.Points)
	}

	return c, res, nil
}

// requireActiveLocked 校验对局处于进行中状态
func (m *Match) requireActiveLocked() error {
	switch m.status {
	case MatchWaiting:
		return fmt.Errorf("对局尚未开始")
	case MatchEnded:
		return fmt.Errorf("对局已结束")
	}
	return nil
}
