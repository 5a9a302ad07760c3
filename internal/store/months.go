package store

import (
	"context"
	"fmt"
)

// MonthStat 按月统计的运单数据
type MonthStat struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	First string `json:"first"` // 当月最早日期 YYYY-MM-DD
	Last  string `json:"last"`

	Shipments    int     `json:"shipments"`
	TotalFreight float64 `json:"totalFreight"`
}

// ListAvailableMonths 列出当前数据库中存在运单的年月（按年/月倒序）
func (s *Store) ListAvailableMonths(ctx context.Context) ([]MonthStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			CAST(substr(date, 1, 4) AS INTEGER) AS y,
			CAST(substr(date, 6, 2) AS INTEGER) AS m,
			MIN(date),
			MAX(date),
			COUNT(1),
			COALESCE(SUM(total_freight), 0)
		FROM shipments
		GROUP BY y, m
		ORDER BY y DESC, m DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query available months failed: %w", err)
	}
	defer rows.Close()

	out := []MonthStat{}
	for rows.Next() {
		var it MonthStat
		if err := rows.Scan(&it.Year, &it.Month, &it.First, &it.Last, &it.Shipments, &it.TotalFreight); err != nil {
			return nil, fmt.Errorf("scan available months failed: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate available months failed: %w", err)
	}
	return out, nil
}
