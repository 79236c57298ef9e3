package domain

// TravelMatrix 地点之间的有向出行代价，行是出发地，列是目的地
type TravelMatrix struct {
	Places   []string `json:"places"`
	Duration [][]int  `json:"duration"` // 分钟
	Distance [][]int  `json:"distance"` // 米
}

// Index 返回名称到行/列下标的映射
func (m *TravelMatrix) Index() map[string]int {
	index := make(map[string]int, len(m.Places))
	for i, name := range m.Places {
		index[name] = i
	}
	return index
}
