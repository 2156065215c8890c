// postgres.go

package store

import (
	"fmt"

	"github.com/jacl-coder/TankStorm-Server/pkg/db"
	"github.com/lib/pq"
)

// PostgresStore 基于PostgreSQL的持久化实现
type PostgresStore struct{}

// NewPostgresStore 创建PostgreSQL持久化实例
func NewPostgresStore() *PostgresStore {
	return &PostgresStore{}
}

// UpsertPlayer 按键写入或更新玩家行
func (s *PostgresStore) UpsertPlayer(row *PlayerRow) error {
	query := `
		INSERT INTO battle_players (channel_id, user_id, coord_x, coord_y, hp, points, team, weapon, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP)
		ON CONFLICT (channel_id, user_id) DO UPDATE SET
			coord_x = EXCLUDED.coord_x,
			coord_y = EXCLUDED.coord_y,
			hp = EXCLUDED.hp,
			points = EXCLUDED.points,
			team = EXCLUDED.team,
			weapon = EXCLUDED.weapon,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := db.DB.Exec(query, row.ChannelID, row.UserID, row.CoordX, row.CoordY,
		row.HP, row.Points, nullable(row.Team), nullable(row.Weapon))
	if err != nil {
		return fmt.Errorf("写入玩家行失败: %w", err)
	}
	return nil
}

// LoadChannel 读取频道的全部玩家行
func (s *PostgresStore) LoadChannel(channelID string) ([]*PlayerRow, error) {
	query := `
		SELECT channel_id, user_id, coord_x, coord_y, hp, points,
		       COALESCE(team, ''), COALESCE(weapon, '')
		FROM battle_players
		WHERE channel_id = $1
	`

	rows, err := db.DB.Query(query, channelID)
	if err != nil {
		return nil, fmt.Errorf("查询玩家行失败: %w", err)
	}
	defer rows.Close()

	var result []*PlayerRow
	for rows.Next() {
		row := &PlayerRow{}
		if err := rows.Scan(&row.ChannelID, &row.UserID, &row.CoordX, &row.CoordY,
			&row.HP, &row.Points, &row.Team, &row.Weapon); err != nil {
			return nil, fmt.Errorf("扫描玩家行失败: %w", err)
		}
		result = append(result, row)
	}

	return result, rows.Err()
}

// PurgeChannel 删除频道的全部玩家行
func (s *PostgresStore) PurgeChannel(channelID string) error {
	_, err := db.DB.Exec(`DELETE FROM battle_players WHERE channel_id = $1`, channelID)
	if err != nil {
		return fmt.Errorf("清除频道记录失败: %w", err)
	}
	return nil
}

// RecordResult 记录一场对局结果
func (s *PostgresStore) RecordResult(channelID string, winners []string, winningTeam string) error {
	query := `
		INSERT INTO battle_results (channel_id, winners, winning_team)
		VALUES ($1, $2, $3)
	`

	_, err := db.DB.Exec(query, channelID, pq.Array(winners), nullable(winningTeam))
	if err != nil {
		return fmt.Errorf("记录对局结果失败: %w", err)
	}
	return nil
}

// nullable 空字符串转为NULL
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
