// tilemap.go

package tilemap

import (
	"fmt"
	"math"

	"github.com/jacl-coder/TankStorm-Server/internal/models"
)

// Tile 地图格子
type Tile struct {
	Coord    models.Coord `json:"coord"`
	Passable bool         `json:"passable"`
	Occupant string       `json:"occupant,omitempty"` // 占据该格的玩家ID，空字符串表示无人
}

// Occupied 该格是否被占据
func (t *Tile) Occupied() bool {
	return t.Occupant != ""
}

// Map 战场网格地图
// 不变量：每个格子最多一名占据者，玩家记录的坐标与占据格一致
type Map struct {
	width    int
	height   int
	tiles    [][]Tile
	moveCost int // 每格移动消耗的行动点
}

// NewMap 创建全部可通行的网格地图
func NewMap(width, height, moveCost int) *Map {
	tiles := make([][]Tile, height)
	for y := 0; y < height; y++ {
		tiles[y] = make([]Tile, width)
		for x := 0; x < width; x++ {
			tiles[y][x] = Tile{
				Coord:    models.Coord{X: x, Y: y},
				Passable: true,
			}
		}
	}

	return &Map{
		width:    width,
		height:   height,
		tiles:    tiles,
		moveCost: moveCost,
	}
}

// Width 地图宽度
func (m *Map) Width() int { return m.width }

// Height 地图高度
func (m *Map) Height() int { return m.height }

// SetObstacle 将指定格设为不可通行
func (m *Map) SetObstacle(coord models.Coord) {
	if t := m.TryGetTile(coord); t != nil {
		t.Passable = false
	}
}

// TryGetTile 获取格子，越界时返回nil
func (m *Map) TryGetTile(coord models.Coord) *Tile {
	if coord.X < 0 || coord.X >= m.width || coord.Y < 0 || coord.Y >= m.height {
		return nil
	}
	return &m.tiles[coord.Y][coord.X]
}

// GetTile 获取格子，调用方保证坐标存在
func (m *Map) GetTile(coord models.Coord) *Tile {
	return &m.tiles[coord.Y][coord.X]
}

// UnoccupiedTile 返回任意一个可通行且无人占据的格子，没有时返回nil
func (m *Map) UnoccupiedTile() *Tile {
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			t := &m.tiles[y][x]
			if t.Passable && !t.Occupied() {
				return t
			}
		}
	}
	return nil
}

// SetOccupant 设置格子的占据者
func (m *Map) SetOccupant(coord models.Coord, userID string) {
	if t := m.TryGetTile(coord); t != nil {
		t.Occupant = userID
	}
}

// ClearOccupant 清除格子的占据者
func (m *Map) ClearOccupant(coord models.Coord) {
	if t := m.TryGetTile(coord); t != nil {
		t.Occupant = ""
	}
}

// MoveResult 移动代价预览
type MoveResult struct {
	PointsRequired int `json:"points_required"`
	TilesTraversed int `json:"tiles_traversed"`
}

// CanMoveTo 检查玩家能否移动到目标格并计算代价
// 目标格必须存在、可通行且无人占据，途经格必须可通行
func (m *Map) CanMoveTo(coord models.Coord, c *models.Combatant) (*MoveResult, error) {
	dest := m.TryGetTile(coord)
	if dest == nil {
		return nil, fmt.Errorf("目标坐标 (%d,%d) 超出地图范围", coord.X, coord.Y)
	}
	if !dest.Passable {
		return nil, fmt.Errorf("目标格 (%d,%d) 不可通行", coord.X, coord.Y)
	}
	if dest.Occupied() {
		return nil, fmt.Errorf("目标格 (%d,%d) 已被占据", coord.X, coord.Y)
	}
	if coord == c.Position {
		return nil, fmt.Errorf("已经位于目标格")
	}

	path := m.TilesBetween(c.Position, coord, false)
	for _, t := range path {
		if !t.Passable {
			return nil, fmt.Errorf("途经格 (%d,%d) 不可通行", t.Coord.X, t.Coord.Y)
		}
	}

	traversed := len(path)
	return &MoveResult{
		PointsRequired: traversed * m.moveCost,
		TilesTraversed: traversed,
	}, nil
}

// DistanceStraightLine 两点间的直线距离
func (m *Map) DistanceStraightLine(a, b models.Coord) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// TilesInRadius 获取以coord为中心、半径radius内的所有格子
// diagonal为false时使用方形(切比雪夫)范围，为true时使用菱形(曼哈顿)范围
func (m *Map) TilesInRadius(coord models.Coord, radius int, diagonal bool) []*Tile {
	var tiles []*Tile
	for y := coord.Y - radius; y <= coord.Y+radius; y++ {
		for x := coord.X - radius; x <= coord.X+radius; x++ {
			c := models.Coord{X: x, Y: y}
			t := m.TryGetTile(c)
			if t == nil {
				continue
			}
			if diagonal {
				if abs(x-coord.X)+abs(y-coord.Y) > radius {
					continue
				}
			}
			tiles = append(tiles, t)
		}
	}
	return tiles
}

// TilesBetween 获取从a到b直线路径上的格子（不含起点，含终点）
// diagonal为false时按切比雪夫步进采样，与移动代价几何保持一致
func (m *Map) TilesBetween(a, b models.Coord, diagonal bool) []*Tile {
	steps := chebyshev(a, b)
	if diagonal {
		steps = abs(a.X-b.X) + abs(a.Y-b.Y)
	}
	if steps == 0 {
		return nil
	}

	var tiles []*Tile
	for i := 1; i <= steps; i++ {
		c := models.Coord{
			X: a.X + roundDiv((b.X-a.X)*i, steps),
			Y: a.Y + roundDiv((b.Y-a.Y)*i, steps),
		}
		if t := m.TryGetTile(c); t != nil {
			tiles = append(tiles, t)
		}
	}
	return tiles
}

// chebyshev 切比雪夫距离
func chebyshev(a, b models.Coord) int {
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	if dx > dy {
		return dx
	}
	return dy
}

// roundDiv 四舍五入的整数除法
func roundDiv(n, d int) int {
	if (n < 0) != (d < 0) {
		return -((-n + d/2) / d)
	}
	return (n + d/2) / d
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
