// schema.go

package db

// 统一的数据库表结构定义

// CreateAllTablesSQL 创建所有表的SQL语句
const CreateAllTablesSQL = `
-- 对战玩家表：每行对应一个频道内的一名玩家
CREATE TABLE IF NOT EXISTS battle_players (
    channel_id VARCHAR(64) NOT NULL,
    user_id VARCHAR(64) NOT NULL,
    coord_x INT NOT NULL,
    coord_y INT NOT NULL,
    hp INT NOT NULL,
    points INT NOT NULL,
    team VARCHAR(50),
    weapon VARCHAR(50),
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (channel_id, user_id)
);

-- 武器表
CREATE TABLE IF NOT EXISTS weapons (
    id SERIAL PRIMARY KEY,
    name VARCHAR(50) UNIQUE NOT NULL,
    description TEXT,
    damage INT NOT NULL,
    radius INT NOT NULL,
    range INT NOT NULL
);

-- 对战结果表：每场结束的对战一行
CREATE TABLE IF NOT EXISTS battle_results (
    id SERIAL PRIMARY KEY,
    channel_id VARCHAR(64) NOT NULL,
    winners TEXT[] NOT NULL,
    winning_team VARCHAR(50),
    ended_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
);

-- 创建索引以提高查询性能
CREATE INDEX IF NOT EXISTS idx_battle_players_channel_id ON battle_players(channel_id);
CREATE INDEX IF NOT EXISTS idx_battle_results_channel_id ON battle_results(channel_id);
CREATE INDEX IF NOT EXISTS idx_weapons_name ON weapons(name);
`

// DropAllTablesSQL 删除所有表的SQL语句
const DropAllTablesSQL = `
DROP TABLE IF EXISTS battle_players;
DROP TABLE IF EXISTS battle_results;
DROP TABLE IF EXISTS weapons;
`

// InitAllTables 初始化所有数据库表
func InitAllTables() error {
	_, err := DB.Exec(CreateAllTablesSQL)
	if err != nil {
		return err
	}
	return nil
}

// DropAllTables 删除所有数据库表
func DropAllTables() error {
	_, err := DB.Exec(DropAllTablesSQL)
	if err != nil {
		return err
	}
	return nil
}
