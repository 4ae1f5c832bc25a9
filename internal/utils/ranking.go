package utils

import (
	"math"
	"time"
)

type RankConfig struct {
	Gravity        float64 // 时间重力
	WeightComment  float64
	WeightUpvote   float64
	WeightDownvote float64
	ScaleFactor    float64 // 放大系数
}

var DefaultRankConfig = RankConfig{
	Gravity:        1.5,
	WeightComment:  2.0,
	WeightUpvote:   1.0,
	WeightDownvote: 1.5,
	ScaleFactor:    100.0,
}

// CalculateScore is the trending ("hot") score of a post: log-smoothed
// weighted engagement divided by a time-decay term.
func CalculateScore(createdAt time.Time, up, down, comments int) float64 {
	return DefaultRankConfig.score(time.Since(createdAt).Hours(), up, down, comments)
}

func (c RankConfig) score(hours float64, up, down, comments int) float64 {
	if hours < 0 {
		hours = 0
	}

	weighted := float64(up)*c.WeightUpvote +
		float64(comments)*c.WeightComment -
		float64(down)*c.WeightDownvote
	if weighted < 0 {
		weighted = 0 // 防止负数无法取对数
	}

	numerator := math.Log10(weighted+1) * c.ScaleFactor
	decay := math.Pow(hours+2, c.Gravity)
	return numerator / decay
}
