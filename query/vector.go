package query

// Vector 相似度检索的查询向量
type Vector []float64

// Dim 向量维度
func (v Vector) Dim() int {
	return len(v)
}

// Score 相似度得分阈值
type Score float64

// ScoreRange 相似度得分区间，闭区间 [Min, Max]
type ScoreRange struct {
	Min Score
	Max Score
}

// Contains 判断得分是否落在区间内
func (r ScoreRange) Contains(s Score) bool {
	return s >= r.Min && s <= r.Max
}

// Projection 动态投影参数：指定返回结果收窄到的目标类型名
// 由生成代码在运行时据此选择投影列
type Projection struct {
	Target string
}
