// weapon.go

package models

// Weapon 武器模型
type Weapon struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	// 战斗属性
	Damage int `json:"damage"` // 单发伤害
	Radius int `json:"radius"` // 爆炸半径(格)
	Range  int `json:"range"`  // 射程(格)
}

// KamikazeRadius 自爆模式的固定爆炸半径，与武器半径无关
const KamikazeRadius = 2

// DefaultWeapons 内置武器预设，数据库种子数据与离线兜底共用
var DefaultWeapons = []Weapon{
	{Name: "标准炮", Description: "均衡的默认主炮", Damage: 30, Radius: 1, Range: 5},
	{Name: "重型榴弹", Description: "大范围溅射，射程较短", Damage: 25, Radius: 2, Range: 4},
	{Name: "狙击炮", Description: "超远射程单体打击", Damage: 35, Radius: 0, Range: 8},
	{Name: "速射机炮", Description: "低伤害低消耗的骚扰武器", Damage: 15, Radius: 1, Range: 6},
}

// WeaponByName 按名称查找武器预设，未找到时返回标准炮
func WeaponByName(name string) Weapon {
	for _, w := range DefaultWeapons {
		if w.Name == name {
			return w
		}
	}
	return DefaultWeapons[0]
}
