package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ColumnInfo PRAGMA table_info 的一行
type ColumnInfo struct {
	CID          int     `json:"cid"`
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	NotNull      bool    `json:"notNull"`
	DefaultValue *string `json:"defaultValue,omitempty"`
	PrimaryKey   bool    `json:"primaryKey"`
}

// SchemaInfo 运单表结构（仅用于诊断）
type SchemaInfo struct {
	Table       string       `json:"table"`
	TableExists bool         `json:"tableExists"`
	Columns     []ColumnInfo `json:"columns,omitempty"`
}

// DescribeSchema 返回运单表是否存在及其列定义
func (s *Store) DescribeSchema(ctx context.Context) (*SchemaInfo, error) {
	info := &SchemaInfo{Table: "shipments"}

	var name string
	err := s.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", info.Table,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return info, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check table: %w", err)
	}
	info.TableExists = true

	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info(shipments)")
	if err != nil {
		return nil, fmt.Errorf("failed to read table info: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			col     ColumnInfo
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&col.CID, &col.Name, &col.Type, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		col.NotNull = notNull != 0
		col.PrimaryKey = pk != 0
		if dflt.Valid {
			v := dflt.String
			col.DefaultValue = &v
		}
		info.Columns = append(info.Columns, col)
	}

	return info, rows.Err()
}
