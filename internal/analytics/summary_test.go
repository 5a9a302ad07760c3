package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freightdash/internal/filter"
	"freightdash/internal/model"
)

func shipment(date, branch string, weight float64, volumes int, freight float64) *model.ShipmentRecord {
	return &model.ShipmentRecord{
		Date:            date,
		OriginCity:      "Campinas",
		OriginState:     "SP",
		OriginBase:      "CPQ",
		InvoiceNumber:   "1",
		DestinationBase: branch,
		RealWeight:      weight,
		VolumeCount:     volumes,
		InvoiceValue:    100,
		TotalFreight:    freight,
	}
}

func TestBusinessDays(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{"ten days with one weekend", date(2024, 3, 4), date(2024, 3, 13), 8},
		{"single weekday", date(2024, 3, 4), date(2024, 3, 4), 1},
		{"weekend only", date(2024, 3, 9), date(2024, 3, 10), 0},
		{"time of day ignored", time.Date(2024, 3, 8, 23, 0, 0, 0, time.UTC), time.Date(2024, 3, 11, 1, 0, 0, 0, time.UTC), 2},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, BusinessDays(tt.start, tt.end))
		})
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSummarize_WithRange(t *testing.T) {
	t.Parallel()

	records := []*model.ShipmentRecord{
		shipment("2024-03-04", "CPQ", 10.5, 2, 100),
		shipment("2024-03-04", "CPQ", 4.5, 1, 50),
		shipment("2024-03-06", "STS", 5, 3, 30.3),
		shipment("2024-03-09", "", 20, 4, 19.7),
	}
	r, err := filter.NewDateRange(date(2024, 3, 4), date(2024, 3, 13))
	require.NoError(t, err)

	s := Summarize(records, &r)

	assert.Equal(t, 4, s.Count)
	assert.True(t, s.HasRange)
	assert.Equal(t, 8, s.BusinessDays)
	assert.Equal(t, 3, s.ActiveDays)

	assert.InDelta(t, 40.0, s.RealWeight.Total, 1e-9)
	assert.InDelta(t, 5.0, s.RealWeight.PerBusinessDay, 1e-9)
	assert.InDelta(t, 13.333, s.RealWeight.PerActiveDay, 1e-9)
	assert.InDelta(t, 10.0, s.RealWeight.PerShipment, 1e-9)

	assert.InDelta(t, 200.0, s.TotalFreight.Total, 1e-9)
	assert.InDelta(t, 25.0, s.TotalFreight.PerBusinessDay, 1e-9)
	assert.InDelta(t, 10.0, s.VolumeCount.Total, 1e-9)
	assert.InDelta(t, 400.0, s.InvoiceValue.Total, 1e-9)
	assert.InDelta(t, 0.5, s.Shipments.PerBusinessDay, 1e-9)

	require.NotNil(t, s.Period)
	assert.Equal(t, "2024-03-04", s.Period.First)
	assert.Equal(t, "2024-03-09", s.Period.Last)

	require.Len(t, s.Daily, 3)
	assert.Equal(t, DailyPoint{Date: "2024-03-04", Count: 2, RealWeight: 15, Volumes: 3}, s.Daily[0])

	assert.Equal(t, "Segunda", s.Weekdays[1].Weekday)
	assert.Equal(t, 2, s.Weekdays[1].Count)
	assert.Equal(t, 1, s.Weekdays[6].Count)
}

func TestSummarize_WithoutRangeDegeneratesToTotal(t *testing.T) {
	t.Parallel()

	records := []*model.ShipmentRecord{
		shipment("2024-03-04", "CPQ", 3, 1, 10),
		shipment("2024-03-05", "CPQ", 1, 1, 20),
	}
	s := Summarize(records, nil)

	assert.False(t, s.HasRange)
	assert.Zero(t, s.BusinessDays)
	assert.Equal(t, Metric{Total: 30, PerBusinessDay: 30, PerActiveDay: 30, PerShipment: 15}, s.TotalFreight)
}

func TestSummarize_NonFiniteValuesCountAsZero(t *testing.T) {
	t.Parallel()

	bad := shipment("2024-03-04", "CPQ", math.Inf(1), 1, math.Inf(1))
	bad.InvoiceValue = math.NaN()
	records := []*model.ShipmentRecord{
		bad,
		shipment("2024-03-04", "CPQ", 2, 1, 10),
	}

	var s *Summary
	require.NotPanics(t, func() { s = Summarize(records, nil) })
	assert.Equal(t, 2, s.Count)
	assert.Equal(t, 10.0, s.TotalFreight.Total)
	assert.Equal(t, 2.0, s.RealWeight.Total)
	assert.Equal(t, 100.0, s.InvoiceValue.Total)
	require.Len(t, s.Daily, 1)
	assert.Equal(t, 2.0, s.Daily[0].RealWeight)
}

func TestSummarize_Empty(t *testing.T) {
	t.Parallel()

	r, err := filter.NewDateRange(date(2024, 3, 9), date(2024, 3, 10))
	require.NoError(t, err)
	s := Summarize(nil, &r)

	assert.Zero(t, s.Count)
	assert.Nil(t, s.Period)
	assert.Empty(t, s.Daily)
	assert.Zero(t, s.TotalFreight.PerBusinessDay)
	assert.Zero(t, s.TotalFreight.PerShipment)
}

func TestGroupBy(t *testing.T) {
	t.Parallel()

	records := []*model.ShipmentRecord{
		shipment("2024-03-04", "STS", 1, 1, 1),
		shipment("2024-03-04", "CPQ", 1, 1, 1),
		shipment("2024-03-04", "", 1, 1, 1),
		shipment("2024-03-04", "  ", 1, 1, 1),
		shipment("2024-03-04", "CPQ", 1, 1, 1),
		shipment("2024-03-04", "AAA", 1, 1, 1),
	}
	dim, err := filter.LookupDimension("branch")
	require.NoError(t, err)

	got := GroupBy(records, dim)
	assert.Equal(t, []Bucket{
		{Value: "CPQ", Count: 2},
		{Value: filter.NotInformed, Count: 2},
		{Value: "AAA", Count: 1},
		{Value: "STS", Count: 1},
	}, got)

	groups := GroupAll(records)
	require.Len(t, groups, len(filter.Dimensions()))
	assert.Equal(t, filter.DimBranch, groups[0].Dimension)
}

func TestActiveDays(t *testing.T) {
	t.Parallel()

	records := []*model.ShipmentRecord{
		shipment("2024-03-04", "", 0, 0, 0),
		shipment("2024-03-04", "", 0, 0, 0),
		shipment("2024-03-07", "", 0, 0, 0),
		shipment("invalid", "", 0, 0, 0),
	}
	assert.Equal(t, 2, ActiveDays(records))
}
