package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"freightdash/internal/analytics"
	"freightdash/internal/filter"
	"freightdash/internal/model"
)

const (
	SheetShipments  = "Envios"
	SheetSummary    = "Resumo"
	SheetDimensions = "Dimensões"
)

// fieldLabels 导出表头
var fieldLabels = map[model.FieldName]string{
	model.FieldDate:              "Data",
	model.FieldOriginCity:        "Cidade Origem",
	model.FieldOriginState:       "UF Origem",
	model.FieldOriginBase:        "Base Origem",
	model.FieldInvoiceNumber:     "NF",
	model.FieldInvoiceValue:      "Valor NF",
	model.FieldVolumeCount:       "Volumes",
	model.FieldRealWeight:        "Peso Real",
	model.FieldCubicWeight:       "Peso Cubado",
	model.FieldDestinationCity:   "Cidade Destino",
	model.FieldDestinationState:  "UF Destino",
	model.FieldDestinationBase:   "Base Destino",
	model.FieldSector:            "Setor",
	model.FieldFreightWeightCost: "Frete Peso",
	model.FieldInsuranceValue:    "Seguro",
	model.FieldTotalFreight:      "Total Frete",
}

// Exporter 看板筛选结果导出器
type Exporter struct{}

// NewExporter 创建导出器
func NewExporter() *Exporter {
	return &Exporter{}
}

// ExportOptions 导出选项
type ExportOptions struct {
	Records   []*model.ShipmentRecord
	Summary   *analytics.Summary
	Filters   []filter.Predicate
	DateStart string
	DateEnd   string
	Progress  func(ProgressEvent)
}

// Export 导出当前筛选结果、汇总与维度分组
func (e *Exporter) Export(opts ExportOptions) (*excelize.File, error) {
	summary := opts.Summary
	if summary == nil {
		summary = analytics.Summarize(opts.Records, nil)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetShipments); err != nil {
		_ = f.Close()
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	reportProgress(opts.Progress, 0, "envios")
	if err := e.writeShipments(f, opts.Records, headerStyle, opts.Progress); err != nil {
		_ = f.Close()
		return nil, err
	}

	reportProgress(opts.Progress, 80, "resumo")
	if err := e.writeSummary(f, summary, opts, headerStyle); err != nil {
		_ = f.Close()
		return nil, err
	}

	reportProgress(opts.Progress, 90, "dimensões")
	if err := e.writeDimensions(f, summary.Groups, headerStyle); err != nil {
		_ = f.Close()
		return nil, err
	}

	f.SetActiveSheet(0)
	reportProgress(opts.Progress, 100, "concluído")
	return f, nil
}

func (e *Exporter) writeShipments(f *excelize.File, records []*model.ShipmentRecord, headerStyle int, progress func(ProgressEvent)) error {
	sheet := SheetShipments

	header := make([]interface{}, 0, len(model.Fields)+1)
	header = append(header, "ID")
	for _, spec := range model.Fields {
		header = append(header, fieldLabels[spec.Name])
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("写入表头失败: %w", err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return err
	}

	total := len(records)
	for i, r := range records {
		row := make([]interface{}, 0, len(header))
		row = append(row, r.ID)
		row = append(row, r.Values()...)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("写入第 %d 行失败: %w", i+2, err)
		}
		if total > 0 && i%500 == 0 {
			reportProgress(progress, i*80/total, "envios")
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", "A", 8); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "B", lastColumn(len(header)), 16)
}

func (e *Exporter) writeSummary(f *excelize.File, s *analytics.Summary, opts ExportOptions, headerStyle int) error {
	sheet := SheetSummary
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	period := "Todo o período"
	if opts.DateStart != "" {
		period = fmt.Sprintf("%s a %s", opts.DateStart, opts.DateEnd)
	}
	filters := "Nenhum"
	if len(opts.Filters) > 0 {
		filters = ""
		for i, p := range opts.Filters {
			if i > 0 {
				filters += "; "
			}
			filters += fmt.Sprintf("%s = %s", p.Dimension, p.Value)
		}
	}

	rows := [][]interface{}{
		{"Período", period},
		{"Filtros", filters},
		{"Envios", s.Count},
		{"Dias úteis", s.BusinessDays},
		{"Dias com envio", s.ActiveDays},
		{},
		{"Indicador", "Total", "Por dia útil", "Por dia com envio", "Por envio"},
	}
	metrics := []struct {
		label string
		m     analytics.Metric
	}{
		{"Envios", s.Shipments},
		{"Peso Real", s.RealWeight},
		{"Volumes", s.VolumeCount},
		{"Valor NF", s.InvoiceValue},
		{"Total Frete", s.TotalFreight},
	}
	for _, it := range metrics {
		rows = append(rows, []interface{}{it.label, it.m.Total, it.m.PerBusinessDay, it.m.PerActiveDay, it.m.PerShipment})
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("写入汇总失败: %w", err)
		}
	}
	if err := f.SetRowStyle(sheet, 7, 7, headerStyle); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", "E", 20)
}

func (e *Exporter) writeDimensions(f *excelize.File, groups []analytics.Group, headerStyle int) error {
	sheet := SheetDimensions
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	for i, g := range groups {
		col := i*3 + 1
		labelCell, _ := excelize.CoordinatesToCellName(col, 1)
		if err := f.SetSheetRow(sheet, labelCell, &[]interface{}{g.Label, "Envios"}); err != nil {
			return err
		}
		for j, b := range g.Buckets {
			cell, _ := excelize.CoordinatesToCellName(col, j+2)
			if err := f.SetSheetRow(sheet, cell, &[]interface{}{b.Value, b.Count}); err != nil {
				return err
			}
		}
		first, _ := excelize.ColumnNumberToName(col)
		if err := f.SetColWidth(sheet, first, first, 22); err != nil {
			return err
		}
	}
	return f.SetRowStyle(sheet, 1, 1, headerStyle)
}

func lastColumn(n int) string {
	name, err := excelize.ColumnNumberToName(n)
	if err != nil {
		return "A"
	}
	return name
}
