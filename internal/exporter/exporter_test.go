package exporter

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"freightdash/internal/analytics"
	"freightdash/internal/filter"
	"freightdash/internal/model"
)

func TestExport_WritesAllSheets(t *testing.T) {
	t.Parallel()

	records := []*model.ShipmentRecord{
		{ID: 1, Date: "2024-03-04", OriginCity: "Campinas", OriginState: "SP", OriginBase: "CPQ", InvoiceNumber: "001", DestinationBase: "STS", TotalFreight: 12.5, VolumeCount: 2},
		{ID: 2, Date: "2024-03-05", OriginCity: "Campinas", OriginState: "SP", OriginBase: "CPQ", InvoiceNumber: "002", TotalFreight: 7.5, VolumeCount: 1},
	}
	r, err := filter.NewDateRange(mustDate(t, "2024-03-04"), mustDate(t, "2024-03-08"))
	require.NoError(t, err)

	var stages []string
	f, err := NewExporter().Export(ExportOptions{
		Records:   records,
		Summary:   analytics.Summarize(records, &r),
		Filters:   []filter.Predicate{{Dimension: filter.DimOriginState, Value: "SP"}},
		DateStart: "2024-03-04",
		DateEnd:   "2024-03-08",
		Progress:  func(p ProgressEvent) { stages = append(stages, p.Stage) },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	assert.Equal(t, []string{SheetShipments, SheetSummary, SheetDimensions}, f.GetSheetList())
	assert.Contains(t, stages, "concluído")

	// 回读验证
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	rf, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer rf.Close()

	rows, err := rf.GetRows(SheetShipments)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "Data", rows[0][1])
	assert.Equal(t, "NF", rows[0][5])
	assert.Equal(t, "001", rows[1][5])
	assert.Equal(t, "12.5", rows[1][len(rows[1])-1])

	summary, err := rf.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"Período", "2024-03-04 a 2024-03-08"}, summary[0])
	assert.Equal(t, []string{"Filtros", "originState = SP"}, summary[1])
	assert.Equal(t, []string{"Dias úteis", "5"}, summary[3])
	assert.Equal(t, "Total Frete", summary[11][0])
	assert.Equal(t, "20", summary[11][1])
	assert.Equal(t, "4", summary[11][2])

	dims, err := rf.GetRows(SheetDimensions)
	require.NoError(t, err)
	assert.Equal(t, "Filial", dims[0][0])
	assert.Equal(t, "Não informado", dims[1][0])
	assert.Equal(t, "STS", dims[2][0])
}

func TestExport_EmptyRecords(t *testing.T) {
	t.Parallel()

	f, err := NewExporter().Export(ExportOptions{})
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetShipments)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"Período", "Todo o período"}, summary[0])
	assert.Equal(t, []string{"Filtros", "Nenhum"}, summary[1])
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(model.DateLayout, s)
	require.NoError(t, err)
	return d
}
