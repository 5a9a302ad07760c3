package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"freightdash/internal/model"
)

// ErrMissingRequiredField 必填字段为空
var ErrMissingRequiredField = errors.New("missing required field")

// MissingFieldsError 列出为空的必填字段
type MissingFieldsError struct {
	Fields []model.FieldName
}

func (e *MissingFieldsError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = string(f)
	}
	return fmt.Sprintf("missing required fields: %s", strings.Join(names, ", "))
}

func (e *MissingFieldsError) Unwrap() error {
	return ErrMissingRequiredField
}

var (
	insertShipmentSQL = fmt.Sprintf(
		"INSERT INTO shipments (%s) VALUES (%s)",
		strings.Join(model.Columns(), ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(model.Fields)), ", "),
	)
	selectShipmentSQL = fmt.Sprintf("SELECT id, %s FROM shipments", strings.Join(model.Columns(), ", "))
)

// InsertOne 插入单条运单，返回自增 id
func (s *Store) InsertOne(ctx context.Context, r *model.ShipmentRecord) (int64, error) {
	if missing := r.MissingRequired(); len(missing) > 0 {
		return 0, &MissingFieldsError{Fields: missing}
	}

	res, err := s.db.ExecContext(ctx, insertShipmentSQL, r.Values()...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert shipment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get shipment id: %w", err)
	}
	r.ID = id
	return id, nil
}

// InsertBatch 在单个事务中批量插入；必填字段为空的记录被跳过，
// 任何存储层错误都会回滚整批。返回成功插入的条数。
func (s *Store) InsertBatch(ctx context.Context, records []*model.ShipmentRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertShipmentSQL)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	ids := make([]int64, len(records))
	for i, r := range records {
		if len(r.MissingRequired()) > 0 {
			continue
		}
		res, err := stmt.ExecContext(ctx, r.Values()...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert record %d: %w", i+1, err)
		}
		if ids[i], err = res.LastInsertId(); err != nil {
			return 0, fmt.Errorf("failed to get shipment id: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	for i, r := range records {
		if ids[i] > 0 {
			r.ID = ids[i]
		}
	}
	return inserted, nil
}

// GetAll 全表扫描
func (s *Store) GetAll(ctx context.Context) ([]*model.ShipmentRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectShipmentSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	return scanShipments(rows)
}

// ShipmentQuery 运单查询条件；空字段不构成约束，条件之间为 AND
type ShipmentQuery struct {
	Date             string `form:"date" json:"date"`
	OriginCity       string `form:"originCity" json:"originCity"`             // 包含匹配
	OriginState      string `form:"originState" json:"originState"`
	DestinationCity  string `form:"destinationCity" json:"destinationCity"`   // 包含匹配
	DestinationState string `form:"destinationState" json:"destinationState"`
	InvoiceNumber    string `form:"invoiceNumber" json:"invoiceNumber"`
}

// IsEmpty 是否没有任何条件
func (q ShipmentQuery) IsEmpty() bool {
	return q == ShipmentQuery{}
}

// Search 条件查询
func (s *Store) Search(ctx context.Context, q ShipmentQuery) ([]*model.ShipmentRecord, error) {
	query := selectShipmentSQL + " WHERE 1=1"
	args := []interface{}{}

	if q.Date != "" {
		query += " AND date = ?"
		args = append(args, q.Date)
	}
	if q.OriginCity != "" {
		query += ` AND origin_city LIKE ? ESCAPE '\'`
		args = append(args, containsPattern(q.OriginCity))
	}
	if q.OriginState != "" {
		query += " AND origin_state = ?"
		args = append(args, q.OriginState)
	}
	if q.DestinationCity != "" {
		query += ` AND destination_city LIKE ? ESCAPE '\'`
		args = append(args, containsPattern(q.DestinationCity))
	}
	if q.DestinationState != "" {
		query += " AND destination_state = ?"
		args = append(args, q.DestinationState)
	}
	if q.InvoiceNumber != "" {
		query += " AND invoice_number = ?"
		args = append(args, q.InvoiceNumber)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	return scanShipments(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// containsPattern 包含匹配的 LIKE 模式，输入中的 % 和 _ 按字面匹配
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// Count 运单总数
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM shipments").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	return count, nil
}

func scanShipments(rows *sql.Rows) ([]*model.ShipmentRecord, error) {
	results := []*model.ShipmentRecord{}

	for rows.Next() {
		r := &model.ShipmentRecord{}
		err := rows.Scan(
			&r.ID,
			&r.Date, &r.OriginCity, &r.OriginState, &r.OriginBase, &r.InvoiceNumber,
			&r.InvoiceValue, &r.VolumeCount, &r.RealWeight, &r.CubicWeight,
			&r.DestinationCity, &r.DestinationState, &r.DestinationBase, &r.Sector,
			&r.FreightWeightCost, &r.InsuranceValue, &r.TotalFreight,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return results, nil
}
