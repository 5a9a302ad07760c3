package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"freightdash/internal/model"
	"freightdash/internal/parser"
	"freightdash/internal/store"
)

// Store 导入流程依赖的存储能力
type Store interface {
	InsertOne(ctx context.Context, r *model.ShipmentRecord) (int64, error)
	CreateImportLog(ctx context.Context, filename string, fileSize int64, checksum string) (string, error)
	FinishImportLog(ctx context.Context, id string, totalRows, insertedRows, failedRows int, status, errorMessage string) error
}

// Coordinator 导入协调器
type Coordinator struct {
	store      Store
	mapper     *parser.FieldMapper
	normalizer *parser.Normalizer
	logger     *slog.Logger
}

// NewCoordinator 创建导入协调器
func NewCoordinator(st Store, aliases parser.AliasTable, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if aliases == nil {
		aliases = parser.DefaultAliases()
	}
	return &Coordinator{
		store:      st,
		mapper:     parser.NewFieldMapper(aliases),
		normalizer: parser.NewNormalizer(time.Now),
		logger:     logger,
	}
}

// WithClock 替换日期兜底使用的时钟
func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.normalizer = parser.NewNormalizer(now)
	return c
}

// Mapper 当前使用的字段映射器
func (c *Coordinator) Mapper() *parser.FieldMapper {
	return c.mapper
}

// ImportOptions 导入选项
type ImportOptions struct {
	Filename string
	Data     []byte
	// Progress 可选的进度回调
	Progress func(ProgressEvent)
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`    // start/info/row_error/done/error
	Message   string      `json:"message"` // 事件消息
	Data      interface{} `json:"data"`    // 附加数据
	Timestamp time.Time   `json:"timestamp"`
}

// importContext 单次导入的上下文
type importContext struct {
	opts      ImportOptions
	logID     string
	startTime time.Time
	report    *model.ImportReport
}

// ImportReader 读取完整上传内容后执行导入
func (c *Coordinator) ImportReader(ctx context.Context, filename string, r io.Reader, progress func(ProgressEvent)) (*model.ImportReport, error) {
	if r == nil {
		return nil, ErrNoFile
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return c.Import(ctx, ImportOptions{Filename: filename, Data: data, Progress: progress})
}

// Stream 在后台执行导入，通过通道返回进度事件
func (c *Coordinator) Stream(ctx context.Context, opts ImportOptions) <-chan ProgressEvent {
	progressChan := make(chan ProgressEvent, 100)
	userProgress := opts.Progress

	go func() {
		defer close(progressChan)
		opts.Progress = func(evt ProgressEvent) {
			if userProgress != nil {
				userProgress(evt)
			}
			select {
			case progressChan <- evt:
			case <-ctx.Done():
			}
		}
		report, err := c.Import(ctx, opts)
		if err != nil {
			c.emit(opts, ProgressEvent{Type: "error", Message: err.Error(), Data: errorData(err)})
			return
		}
		c.emit(opts, ProgressEvent{Type: "done", Message: "importação concluída", Data: report})
	}()

	return progressChan
}

// Import 执行一次尽力而为的导入
//
// 单行失败只记入报告，只有文件不可读、必填列缺失或存储不可用才返回错误。
func (c *Coordinator) Import(ctx context.Context, opts ImportOptions) (*model.ImportReport, error) {
	if len(opts.Data) == 0 {
		return nil, ErrNoFile
	}

	ic := &importContext{
		opts:      opts,
		startTime: time.Now(),
		report: &model.ImportReport{
			Filename: filepath.Base(opts.Filename),
			Checksum: FileChecksum(opts.Data),
			Failures: []model.RowFailure{},
			Warnings: []model.RowWarning{},
		},
	}

	c.emit(opts, ProgressEvent{
		Type:    "start",
		Message: "iniciando importação da planilha",
		Data: map[string]interface{}{
			"filename": ic.report.Filename,
			"checksum": ic.report.Checksum,
			"size":     len(opts.Data),
		},
	})

	logID, err := c.store.CreateImportLog(ctx, ic.report.Filename, int64(len(opts.Data)), ic.report.Checksum)
	if err != nil {
		return nil, fmt.Errorf("create import log: %w", err)
	}
	ic.logID = logID
	ic.report.ImportID = logID

	report, err := c.run(ctx, ic)
	if err != nil {
		c.finishLog(ic, store.ImportStatusFailed, err.Error())
		c.logger.Error("import failed", "filename", ic.report.Filename, "importId", logID, "err", err)
		return nil, err
	}
	c.finishLog(ic, store.ImportStatusCompleted, "")
	c.logger.Info("import completed",
		"filename", report.Filename,
		"importId", logID,
		"total", report.TotalRows,
		"inserted", report.Inserted,
		"failed", len(report.Failures),
		"warnings", len(report.Warnings),
	)
	return report, nil
}

func (c *Coordinator) run(ctx context.Context, ic *importContext) (*model.ImportReport, error) {
	sheet, err := parser.ReadWorkbook(bytes.NewReader(ic.opts.Data))
	if err != nil {
		if errors.Is(err, parser.ErrNoDataRows) {
			return nil, ErrEmptyWorkbook
		}
		return nil, err
	}

	ic.report.TotalRows = len(sheet.Rows)
	ic.report.HeadersFound = sheet.Headers

	c.emit(ic.opts, ProgressEvent{
		Type:    "info",
		Message: fmt.Sprintf("aba %s: %d linhas de dados", sheet.SheetName, len(sheet.Rows)),
		Data: map[string]interface{}{
			"sheet_name": sheet.SheetName,
			"total_rows": len(sheet.Rows),
			"headers":    sheet.Headers,
		},
	})

	mapping := c.mapper.Map(sheet.Headers)
	ic.report.FieldsUsed = mapping.FieldsUsed()
	if !mapping.OK() {
		return nil, &MissingColumnsError{
			Missing:       mapping.Missing,
			HeadersFound:  sheet.Headers,
			FieldsMatched: ic.report.FieldsUsed,
		}
	}

	for _, row := range sheet.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.processRow(ctx, ic, mapping, row)
	}

	ic.report.DurationMs = time.Since(ic.startTime).Milliseconds()
	return ic.report, nil
}

// processRow 处理单行，失败只记录不返回
func (c *Coordinator) processRow(ctx context.Context, ic *importContext, mapping *parser.MappingResult, row parser.DataRow) {
	rec := &model.ShipmentRecord{}
	for _, spec := range model.Fields {
		header, ok := mapping.Matched[spec.Name]
		if !ok {
			continue
		}
		raw, ok := row.Values[header]
		if !ok || isBlank(raw) {
			continue
		}
		if msg := c.normalizer.Apply(rec, spec, raw); msg != "" {
			c.logger.Warn("normalization anomaly",
				"filename", ic.report.Filename,
				"row", row.Index,
				"field", spec.Name,
				"raw", fmt.Sprint(raw),
			)
			ic.report.Warnings = append(ic.report.Warnings, model.RowWarning{
				RowIndex: row.Index,
				Field:    spec.Name,
				Raw:      fmt.Sprint(raw),
				Message:  msg,
			})
		}
	}

	if missing := rec.MissingRequired(); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, m := range missing {
			names[i] = string(m)
		}
		c.fail(ic, row, "campos obrigatórios ausentes: "+strings.Join(names, ", "))
		return
	}

	if _, err := c.store.InsertOne(ctx, rec); err != nil {
		c.fail(ic, row, err.Error())
		return
	}
	ic.report.Inserted++
}

func (c *Coordinator) fail(ic *importContext, row parser.DataRow, reason string) {
	ic.report.Failures = append(ic.report.Failures, model.RowFailure{
		RowIndex: row.Index,
		Reason:   reason,
		Raw:      row.Values,
	})
	c.logger.Error("row rejected", "filename", ic.report.Filename, "row", row.Index, "reason", reason)
	c.emit(ic.opts, ProgressEvent{
		Type:    "row_error",
		Message: fmt.Sprintf("linha %d: %s", row.Index, reason),
		Data: map[string]interface{}{
			"row_index": row.Index,
			"reason":    reason,
		},
	})
}

func (c *Coordinator) finishLog(ic *importContext, status, errMsg string) {
	if ic.logID == "" {
		return
	}
	// 导入本身可能已因 ctx 取消而失败，日志收尾不再受其影响
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	failed := len(ic.report.Failures)
	if err := c.store.FinishImportLog(ctx, ic.logID, ic.report.TotalRows, ic.report.Inserted, failed, status, errMsg); err != nil {
		c.logger.Error("finish import log", "importId", ic.logID, "err", err)
	}
}

// emit 发送进度事件
func (c *Coordinator) emit(opts ImportOptions, evt ProgressEvent) {
	if opts.Progress == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	opts.Progress(evt)
}

func errorData(err error) interface{} {
	var mce *MissingColumnsError
	if errors.As(err, &mce) {
		return map[string]interface{}{
			"missingFields": mce.Missing,
			"headersFound":  mce.HeadersFound,
			"fieldsUsed":    mce.FieldsMatched,
		}
	}
	return nil
}

func isBlank(v interface{}) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}
