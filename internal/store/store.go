// store.go

package store

// PlayerRow 持久化的玩家行，按(频道ID, 玩家ID)唯一
type PlayerRow struct {
	ChannelID string
	UserID    string
	CoordX    int
	CoordY    int
	HP        int
	Points    int
	Team      string
	Weapon    string
}

// Store 持久化桥接接口
// 每次状态变更后写穿，进程重启时按频道恢复，对局结束时清除
type Store interface {
	// UpsertPlayer 按键写入或更新玩家行
	UpsertPlayer(row *PlayerRow) error
	// LoadChannel 读取频道的全部玩家行，无记录时返回空切片
	LoadChannel(channelID string) ([]*PlayerRow, error)
	// PurgeChannel 删除频道的全部玩家行
	PurgeChannel(channelID string) error
	// RecordResult 记录一场对局结果（尽力而为）
	RecordResult(channelID string, winners []string, winningTeam string) error
}
