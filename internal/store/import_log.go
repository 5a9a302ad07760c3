package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"freightdash/internal/model"
)

// 导入日志状态
const (
	ImportStatusProcessing = "processing"
	ImportStatusCompleted  = "completed"
	ImportStatusFailed     = "failed"
)

// CreateImportLog 创建导入日志，返回日志 id
func (s *Store) CreateImportLog(ctx context.Context, filename string, fileSize int64, checksum string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO import_logs (id, filename, file_size, checksum, status)
		VALUES (?, ?, ?, ?, ?)
	`, id, filename, fileSize, checksum, ImportStatusProcessing)
	if err != nil {
		return "", fmt.Errorf("failed to create import log: %w", err)
	}
	return id, nil
}

// FinishImportLog 完成导入日志更新
func (s *Store) FinishImportLog(ctx context.Context, id string, totalRows, insertedRows, failedRows int, status, errorMessage string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE import_logs SET
			total_rows = ?,
			inserted_rows = ?,
			failed_rows = ?,
			status = ?,
			error_message = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, totalRows, insertedRows, failedRows, status, errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to update import log: %w", err)
	}
	return nil
}

// ListImportLogs 按开始时间倒序列出导入日志
func (s *Store) ListImportLogs(ctx context.Context, limit int) ([]*model.ImportLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, checksum, file_size, total_rows, inserted_rows, failed_rows,
			status, error_message, started_at, completed_at
		FROM import_logs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query import logs: %w", err)
	}
	defer rows.Close()

	logs := []*model.ImportLog{}
	for rows.Next() {
		l := &model.ImportLog{}
		var completedAt sql.NullString
		if err := rows.Scan(&l.ID, &l.Filename, &l.Checksum, &l.FileSize, &l.TotalRows,
			&l.InsertedRows, &l.FailedRows, &l.Status, &l.ErrorMessage, &l.StartedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan import log: %w", err)
		}
		if completedAt.Valid {
			v := completedAt.String
			l.CompletedAt = &v
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
