package importer

import (
	"errors"
	"fmt"
	"strings"

	"freightdash/internal/model"
	"freightdash/internal/parser"
)

var (
	// ErrNoFile 未上传文件
	ErrNoFile = errors.New("no file uploaded")
	// ErrEmptyWorkbook 文件为空或没有有效数据行
	ErrEmptyWorkbook = parser.ErrNoDataRows
	// ErrUnreadableWorkbook 文件不是可读取的 xlsx
	ErrUnreadableWorkbook = parser.ErrUnreadableWorkbook
)

// MissingColumnsError 必填列缺失，整个导入被拒绝
type MissingColumnsError struct {
	Missing       []model.MissingField
	HeadersFound  []string
	FieldsMatched []model.FieldMatch
}

func (e *MissingColumnsError) Error() string {
	parts := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		parts[i] = fmt.Sprintf("%s (aceita: %s)", m.Field, strings.Join(m.AcceptedHeaders, ", "))
	}
	return "missing required columns: " + strings.Join(parts, "; ")
}
