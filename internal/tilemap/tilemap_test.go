package tilemap

import (
	"testing"

	"github.com/jacl-coder/TankStorm-Server/internal/models"
)

func newCombatantAt(x, y int) *models.Combatant {
	return models.NewCombatant("A", 100, 100, models.Coord{X: x, Y: y}, models.WeaponByName(""))
}

func TestCanMoveToValidation(t *testing.T) {
	m := NewMap(5, 5, 5)
	c := newCombatantAt(0, 0)
	m.SetOccupant(c.Position, c.UserID)

	if _, err := m.CanMoveTo(models.Coord{X: 9, Y: 9}, c); err == nil {
		t.Fatalf("越界目标应被拒绝")
	}
	if _, err := m.CanMoveTo(models.Coord{X: 0, Y: 0}, c); err == nil {
		t.Fatalf("原地移动应被拒绝")
	}

	m.SetOccupant(models.Coord{X: 2, Y: 2}, "B")
	if _, err := m.CanMoveTo(models.Coord{X: 2, Y: 2}, c); err == nil {
		t.Fatalf("被占据的目标应被拒绝")
	}

	m.SetObstacle(models.Coord{X: 0, Y: 2})
	if _, err := m.CanMoveTo(models.Coord{X: 0, Y: 2}, c); err == nil {
		t.Fatalf("不可通行的目标应被拒绝")
	}
	// 途经障碍格同样被拒绝
	if _, err := m.CanMoveTo(models.Coord{X: 0, Y: 4}, c); err == nil {
		t.Fatalf("途经障碍格应被拒绝")
	}
}

func TestCanMoveToCost(t *testing.T) {
	m := NewMap(10, 10, 5)
	c := newCombatantAt(0, 0)

	// 直线3格
	res, err := m.CanMoveTo(models.Coord{X: 0, Y: 3}, c)
	if err != nil {
		t.Fatalf("预检失败: %v", err)
	}
	if res.TilesTraversed != 3 || res.PointsRequired != 15 {
		t.Fatalf("直线移动代价错误: %+v", res)
	}

	// 斜向按切比雪夫距离计步：(0,0)→(3,3)为3步
	res, err = m.CanMoveTo(models.Coord{X: 3, Y: 3}, c)
	if err != nil {
		t.Fatalf("预检失败: %v", err)
	}
	if res.TilesTraversed != 3 || res.PointsRequired != 15 {
		t.Fatalf("斜向移动代价错误: %+v", res)
	}
}

func TestTilesBetweenExcludesOrigin(t *testing.T) {
	m := NewMap(10, 10, 5)

	tiles := m.TilesBetween(models.Coord{X: 0, Y: 0}, models.Coord{X: 0, Y: 3}, false)
	if len(tiles) != 3 {
		t.Fatalf("路径长度错误: %d", len(tiles))
	}
	if tiles[0].Coord == (models.Coord{X: 0, Y: 0}) {
		t.Fatalf("路径不应包含起点")
	}
	if tiles[len(tiles)-1].Coord != (models.Coord{X: 0, Y: 3}) {
		t.Fatalf("路径应以终点结尾: %v", tiles[len(tiles)-1].Coord)
	}

	if m.TilesBetween(models.Coord{X: 2, Y: 2}, models.Coord{X: 2, Y: 2}, false) != nil {
		t.Fatalf("起终点相同的路径应为空")
	}
}

func TestTilesInRadiusShapes(t *testing.T) {
	m := NewMap(10, 10, 5)
	center := models.Coord{X: 5, Y: 5}

	// 方形范围：(2r+1)^2
	square := m.TilesInRadius(center, 1, false)
	if len(square) != 9 {
		t.Fatalf("方形半径1应含9格，实际 %d", len(square))
	}

	// 菱形范围：曼哈顿距离过滤
	diamond := m.TilesInRadius(center, 1, true)
	if len(diamond) != 5 {
		t.Fatalf("菱形半径1应含5格，实际 %d", len(diamond))
	}

	// 贴边时自动裁剪到地图内
	corner := m.TilesInRadius(models.Coord{X: 0, Y: 0}, 1, false)
	if len(corner) != 4 {
		t.Fatalf("角落的方形半径1应含4格，实际 %d", len(corner))
	}

	// 半径0仅含目标格本身
	if got := m.TilesInRadius(center, 0, false); len(got) != 1 {
		t.Fatalf("半径0应仅含目标格，实际 %d", len(got))
	}
}

func TestUnoccupiedTileExhaustion(t *testing.T) {
	m := NewMap(2, 1, 5)

	first := m.UnoccupiedTile()
	if first == nil {
		t.Fatalf("空地图应有空余格子")
	}
	m.SetOccupant(first.Coord, "A")

	second := m.UnoccupiedTile()
	if second == nil || second.Coord == first.Coord {
		t.Fatalf("应分配另一个空余格子: %+v", second)
	}
	m.SetOccupant(second.Coord, "B")

	if m.UnoccupiedTile() != nil {
		t.Fatalf("占满后不应再有空余格子")
	}
}
