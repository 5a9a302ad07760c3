package analytics

import (
	"sort"

	"freightdash/internal/filter"
	"freightdash/internal/model"
)

// Bucket 分组取值及数量
type Bucket struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Group 单个维度的分组结果
type Group struct {
	Dimension filter.Dimension `json:"dimension"`
	Label     string           `json:"label"`
	Buckets   []Bucket         `json:"buckets"`
}

// GroupBy 按维度分组计数，空值归入 "Não informado"
// 结果按数量降序、取值升序排列
func GroupBy(records []*model.ShipmentRecord, dim filter.DimensionInfo) []Bucket {
	counts := make(map[string]int)
	for _, r := range records {
		counts[dim.BucketOf(r)]++
	}

	buckets := make([]Bucket, 0, len(counts))
	for v, n := range counts {
		buckets = append(buckets, Bucket{Value: v, Count: n})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Value < buckets[j].Value
	})
	return buckets
}

// GroupAll 对所有维度分组
func GroupAll(records []*model.ShipmentRecord) []Group {
	dims := filter.Dimensions()
	groups := make([]Group, len(dims))
	for i, d := range dims {
		groups[i] = Group{Dimension: d.Name, Label: d.Label, Buckets: GroupBy(records, d)}
	}
	return groups
}
