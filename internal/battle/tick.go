// tick.go

package battle

import (
	"fmt"
	"log"
	"time"
)

// startTickLocked 启动回合调度，仅在第二名玩家加入时触发一次
func (m *Match) startTickLocked() {
	if m.tickStarted {
		return
	}
	m.tickStarted = true
	m.status = MatchActive
	m.tickStop = make(chan struct{})

	go m.tickLoop()

	m.appendLogLocked("对局开始！")
	log.Printf("频道 %s 的回合调度已启动，间隔 %s", m.ChannelID, m.Rules.TickInterval)
}

// tickLoop 回合调度主循环，随对局生命周期存在
func (m *Match) tickLoop() {
	ticker := time.NewTicker(m.Rules.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.runTick()
		case <-m.tickStop:
			return
		}
	}
}

// runTick 一次回合结算：为每名存活玩家发放行动点收益并写穿名单
// 持久化失败只记录日志，不中断调度
func (m *Match) runTick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != MatchActive {
		return
	}

	for _, c := range m.living {
		c.Points += m.Rules.TickIncome
		m.appendLogLocked(fmt.Sprintf("%s 获得 %d 点行动点（当前 %d 点）",
			c.UserID, m.Rules.TickIncome, c.Points))
	}

	m.persistAllLocked()
}

// StopTick 停止回合调度，可重复调用
// 对局结束与进程关闭时都必须调用，避免残留的后台任务
func (m *Match) StopTick() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTickLocked()
}

// stopTickLocked 幂等的调度停止
func (m *Match) stopTickLocked() {
	if !m.tickStarted || m.tickStopped {
		return
	}
	m.tickStopped = true
	close(m.tickStop)
}
