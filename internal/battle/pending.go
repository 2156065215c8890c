// pending.go

package battle

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jacl-coder/TankStorm-Server/internal/models"
	"github.com/jacl-coder/TankStorm-Server/internal/tilemap"
)

// PendingState 待确认操作的状态，三个终态互斥
type PendingState string

const (
	// PendingProposed 已提议，等待发起者确认
	PendingProposed PendingState = "proposed"
	// PendingCommitted 已确认并提交执行
	PendingCommitted PendingState = "committed"
	// PendingDeclined 发起者主动取消
	PendingDeclined PendingState = "declined"
	// PendingExpired 超时未确认
	PendingExpired PendingState = "expired"
)

// ActionKind 操作类型
type ActionKind string

const (
	// ActionMove 移动
	ActionMove ActionKind = "move"
	// ActionAttack 射击
	ActionAttack ActionKind = "attack"
)

// PendingAction 待确认操作：包裹一次移动或射击的两段式确认流程
// 仅存在于提议与确认/超时之间，从不持久化
type PendingAction struct {
	ID        string
	Kind      ActionKind
	UserID    string
	Target    models.Coord
	CreatedAt time.Time

	// 预览，提议时计算，不改变对局状态
	MovePreview *tilemap.MoveResult
	ShotPreview *ShotPreview

	match *Match

	mu    sync.Mutex
	state PendingState
	timer *time.Timer
}

// ProposeMove 提议一次移动，计算预览并启动确认计时
func (m *Match) ProposeMove(userID string, coord models.Coord) (*PendingAction, error) {
	preview, err := m.CanMove(userID, coord)
	if err != nil {
		return nil, err
	}

	p := m.newPendingAction(ActionMove, userID, coord)
	p.MovePreview = preview
	return p, nil
}

// ProposeAttack 提议一次射击，计算预览并启动确认计时
func (m *Match) ProposeAttack(userID string, coord models.Coord) (*PendingAction, error) {
	preview, err := m.CanAttack(userID, coord)
	if err != nil {
		return nil, err
	}

	p := m.newPendingAction(ActionAttack, userID, coord)
	p.ShotPreview = preview
	return p, nil
}

// newPendingAction 创建待确认操作并启动超时计时器
func (m *Match) newPendingAction(kind ActionKind, userID string, coord models.Coord) *PendingAction {
	p := &PendingAction{
		ID:        uuid.New().String(),
		Kind:      kind,
		UserID:    userID,
		Target:    coord,
		CreatedAt: time.Now(),
		match:     m,
		state:     PendingProposed,
	}
	p.timer = time.AfterFunc(m.Rules.ConfirmTimeout, p.expire)
	return p
}

// State 当前状态
func (p *PendingAction) State() PendingState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Accept 发起者确认操作并提交执行
// 无论底层执行成败，状态都会进入已提交；执行错误返回给调用方，不重试
func (p *PendingAction) Accept(userID string) (*ShotOutcome, error) {
	if err := p.transition(userID, PendingCommitted); err != nil {
		return nil, err
	}

	switch p.Kind {
	case ActionMove:
		return nil, p.match.MoveTo(p.UserID, p.Target)
	case ActionAttack:
		return p.match.Attack(p.UserID, p.Target)
	}
	return nil, fmt.Errorf("未知的操作类型: %s", p.Kind)
}

// Decline 发起者取消操作，不产生任何副作用
func (p *PendingAction) Decline(userID string) error {
	return p.transition(userID, PendingDeclined)
}

// transition 从已提议迁移到指定终态，仅发起者本人可触发
func (p *PendingAction) transition(userID string, to PendingState) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if userID != p.UserID {
		return fmt.Errorf("只有发起者可以处理该操作")
	}
	if p.state != PendingProposed {
		return fmt.Errorf("该操作已处理（%s）", p.state)
	}

	p.state = to
	p.timer.Stop()
	return nil
}

// expire 超时处理：已提议状态下迁移到已过期，不产生任何副作用
func (p *PendingAction) expire() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != PendingProposed {
		return
	}
	p.state = PendingExpired
}
