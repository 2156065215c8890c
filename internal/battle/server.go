package battle

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/jacl-coder/TankStorm-Server/config"
	"github.com/jacl-coder/TankStorm-Server/internal/models"
	"github.com/jacl-coder/TankStorm-Server/internal/protocol"
)

// BattleServer 对战服务器：承载WebSocket连接并把玩家请求派发到对局
type BattleServer struct {
	config     *config.Config
	manager    *Manager
	httpServer *http.Server

	connections map[string]*PlayerConnection
	connMutex   sync.RWMutex

	// 关闭信号
	shutdown  chan struct{}
	isRunning bool
}

// PlayerConnection 玩家连接
type PlayerConnection struct {
	ID         string
	UserID     string
	ChannelID  string
	LastActive time.Time

	// 通信通道
	Send chan []byte

	// 该连接上尚未处理的待确认操作
	pending   map[string]*PendingAction
	pendingMu sync.Mutex
}

// NewBattleServer 创建对战服务器
func NewBattleServer(cfg *config.Config, manager *Manager) *BattleServer {
	s := &BattleServer{
		config:      cfg,
		manager:     manager,
		connections: make(map[string]*PlayerConnection),
		shutdown:    make(chan struct{}),
	}
	// 战报通过连接推送给同频道的所有玩家
	manager.SetNotifier(s)
	return s
}

// Start 启动对战服务器
func (s *BattleServer) Start() error {
	if s.isRunning {
		return fmt.Errorf("服务器已经在运行")
	}

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Server.BattlePort),
		Handler: s.createHandler(),
	}

	go func() {
		log.Printf("对战服务器启动，监听端口: %d", s.config.Server.BattlePort)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP服务器错误: %v", err)
		}
	}()

	s.manager.Start()
	s.isRunning = true
	return nil
}

// Stop 停止对战服务器
func (s *BattleServer) Stop() error {
	if !s.isRunning {
		return nil
	}

	close(s.shutdown)
	s.manager.Stop()

	s.closeAllConnections()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP服务器关闭错误: %w", err)
	}

	s.isRunning = false
	log.Println("对战服务器已停止")
	return nil
}

// createHandler 创建HTTP处理器
func (s *BattleServer) createHandler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket 连接端点
	mux.HandleFunc("/ws", s.handleWSConnection)

	// 健康检查端点
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return mux
}

// Notify 向频道内的所有连接推送战报
func (s *BattleServer) Notify(channelID, text string) {
	data, err := protocol.Encode(protocol.MsgEvent, protocol.EventNotice{
		ChannelID: channelID,
		Text:      text,
	})
	if err != nil {
		log.Printf("序列化战报失败: %v", err)
		return
	}

	s.connMutex.RLock()
	defer s.connMutex.RUnlock()

	for _, conn := range s.connections {
		if conn.ChannelID != channelID {
			continue
		}
		select {
		case conn.Send <- data:
			// 消息已发送
		default:
			// 通道已满，跳过
		}
	}
}

// handleMessage 处理接收到的消息
func (s *BattleServer) handleMessage(conn *PlayerConnection, data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("解析消息失败: %v", err)
		return
	}

	switch msg.Type {
	case protocol.MsgJoin:
		s.handleJoin(conn, msg.Payload)
	case protocol.MsgMove:
		s.handlePropose(conn, msg.Payload, ActionMove)
	case protocol.MsgAttack:
		s.handlePropose(conn, msg.Payload, ActionAttack)
	case protocol.MsgConfirm:
		s.handleResolve(conn, msg.Payload, true)
	case protocol.MsgCancel:
		s.handleResolve(conn, msg.Payload, false)
	case protocol.MsgState:
		s.handleState(conn, msg.Payload)
	default:
		log.Printf("未知消息类型: %s", msg.Type)
	}
}

// handleJoin 处理加入对局请求
func (s *BattleServer) handleJoin(conn *PlayerConnection, payload json.RawMessage) {
	var req protocol.JoinRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(conn, "无效的加入请求")
		return
	}

	m, ok := s.manager.GetOrRestoreMatch(req.ChannelID)
	if !ok {
		var err error
		m, err = s.manager.CreateMatch(req.ChannelID, req.Teams)
		if err != nil {
			s.sendError(conn, err.Error())
			return
		}
	}

	// 先绑定频道，加入时的战报广播才能送达本人
	prev := conn.ChannelID
	conn.ChannelID = req.ChannelID

	if _, err := m.Join(conn.UserID, JoinOptions{
		Weapon: req.Weapon,
		Perk:   models.Perk(req.Perk),
	}); err != nil {
		conn.ChannelID = prev
		s.sendError(conn, err.Error())
		return
	}

	s.sendSnapshot(conn, m, false)
}

// handlePropose 处理移动/射击提议：计算预览并下发待确认附件
func (s *BattleServer) handlePropose(conn *PlayerConnection, payload json.RawMessage, kind ActionKind) {
	var req protocol.ActionRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(conn, "无效的操作请求")
		return
	}

	m, ok := s.manager.GetOrRestoreMatch(req.ChannelID)
	if !ok {
		s.sendError(conn, "该频道没有进行中的对局")
		return
	}

	coord := models.Coord{X: req.X, Y: req.Y}
	var p *PendingAction
	var err error
	if kind == ActionMove {
		p, err = m.ProposeMove(conn.UserID, coord)
	} else {
		p, err = m.ProposeAttack(conn.UserID, coord)
	}
	if err != nil {
		s.sendError(conn, err.Error())
		return
	}

	conn.pendingMu.Lock()
	conn.pending[p.ID] = p
	conn.pendingMu.Unlock()

	attachment := protocol.PreviewAttachment{
		ActionID:  p.ID,
		Kind:      string(p.Kind),
		UserID:    p.UserID,
		X:         p.Target.X,
		Y:         p.Target.Y,
		ExpiresAt: p.CreatedAt.Add(m.Rules.ConfirmTimeout).Unix(),
	}
	if p.MovePreview != nil {
		attachment.PointsRequired = p.MovePreview.PointsRequired
		attachment.TilesTraversed = p.MovePreview.TilesTraversed
	}
	if p.ShotPreview != nil {
		attachment.PointsRequired = p.ShotPreview.PointCost
		attachment.HitChance = p.ShotPreview.HitChance
		attachment.Radius = p.ShotPreview.Radius
		attachment.Damage = p.ShotPreview.Damage
		attachment.Kamikaze = p.ShotPreview.Kamikaze
	}

	s.send(conn, protocol.MsgPreview, attachment)
}

// handleResolve 处理待确认操作的确认或取消
func (s *BattleServer) handleResolve(conn *PlayerConnection, payload json.RawMessage, accept bool) {
	var req protocol.ResolveRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(conn, "无效的确认请求")
		return
	}

	conn.pendingMu.Lock()
	p, ok := conn.pending[req.ActionID]
	delete(conn.pending, req.ActionID)
	conn.pendingMu.Unlock()

	if !ok {
		s.sendError(conn, "没有找到对应的待确认操作")
		return
	}

	if !accept {
		if err := p.Decline(conn.UserID); err != nil {
			s.sendError(conn, err.Error())
		}
		return
	}

	outcome, err := p.Accept(conn.UserID)
	if err != nil {
		// 提交后的执行失败只反馈给玩家，不重试
		s.sendError(conn, err.Error())
		return
	}

	if outcome != nil {
		s.send(conn, protocol.MsgOutcome, outcome)
	}
}

// handleState 处理对局状态查询
func (s *BattleServer) handleState(conn *PlayerConnection, payload json.RawMessage) {
	var req protocol.StateRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(conn, "无效的查询请求")
		return
	}

	m, ok := s.manager.GetOrRestoreMatch(req.ChannelID)
	if !ok {
		s.sendError(conn, "该频道没有进行中的对局")
		return
	}

	s.sendSnapshot(conn, m, true)
}

// sendSnapshot 下发对局状态快照
func (s *BattleServer) sendSnapshot(conn *PlayerConnection, m *Match, withEvents bool) {
	winners, winningTeam := m.Winners()
	snapshot := protocol.StateSnapshot{
		ChannelID:   m.ChannelID,
		Status:      string(m.Status()),
		Living:      protocol.ConvertCombatantsToInfo(m.Living()),
		Fallen:      protocol.ConvertCombatantsToInfo(m.Fallen()),
		Winners:     winners,
		WinningTeam: winningTeam,
	}
	if withEvents {
		for _, e := range m.EventLog() {
			snapshot.Events = append(snapshot.Events, protocol.EventInfo(e))
		}
	}
	s.send(conn, protocol.MsgSnapshot, snapshot)
}

// send 向连接发送消息
// 持有读锁期间连接不可能被关闭，发送前先确认连接仍在列表中
func (s *BattleServer) send(conn *PlayerConnection, msgType string, payload interface{}) {
	data, err := protocol.Encode(msgType, payload)
	if err != nil {
		log.Printf("序列化消息失败: %v", err)
		return
	}

	s.connMutex.RLock()
	defer s.connMutex.RUnlock()
	if _, ok := s.connections[conn.ID]; !ok {
		return
	}

	select {
	case conn.Send <- data:
		// 消息已发送到通道
	default:
		// 通道已满，异步关闭该连接
		go s.closeConnection(conn)
	}
}

// sendError 向连接发送错误回复
func (s *BattleServer) sendError(conn *PlayerConnection, message string) {
	s.send(conn, protocol.MsgError, protocol.ErrorResponse{Message: message})
}
