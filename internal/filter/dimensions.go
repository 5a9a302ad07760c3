package filter

import (
	"fmt"
	"strings"

	"freightdash/internal/model"
)

// Dimension 可点击筛选的分类维度
type Dimension string

const (
	DimBranch           Dimension = "branch"
	DimSector           Dimension = "sector"
	DimDestinationState Dimension = "destinationState"
	DimDestinationCity  Dimension = "destinationCity"
	DimOriginBase       Dimension = "originBase"
	DimOriginState      Dimension = "originState"
	DimOriginCity       Dimension = "originCity"
)

// NotInformed 空值分组的显示名称
const NotInformed = "Não informado"

// DimensionInfo 维度定义
type DimensionInfo struct {
	Name  Dimension       `json:"name"`
	Field model.FieldName `json:"field"`
	Label string          `json:"label"`
}

var dimensions = []DimensionInfo{
	{DimBranch, model.FieldDestinationBase, "Filial"},
	{DimSector, model.FieldSector, "Setor"},
	{DimDestinationState, model.FieldDestinationState, "UF Destino"},
	{DimDestinationCity, model.FieldDestinationCity, "Cidade Destino"},
	{DimOriginBase, model.FieldOriginBase, "Base Origem"},
	{DimOriginState, model.FieldOriginState, "UF Origem"},
	{DimOriginCity, model.FieldOriginCity, "Cidade Origem"},
}

var dimensionIndex = func() map[Dimension]DimensionInfo {
	m := make(map[Dimension]DimensionInfo, len(dimensions))
	for _, d := range dimensions {
		m[d.Name] = d
	}
	return m
}()

// Dimensions 按展示顺序返回所有维度
func Dimensions() []DimensionInfo {
	out := make([]DimensionInfo, len(dimensions))
	copy(out, dimensions)
	return out
}

// LookupDimension 按名称查找维度
func LookupDimension(name string) (DimensionInfo, error) {
	d, ok := dimensionIndex[Dimension(name)]
	if !ok {
		return DimensionInfo{}, fmt.Errorf("unknown dimension: %q", name)
	}
	return d, nil
}

// ValueOf 记录在该维度上的值，空值返回空串
func (d DimensionInfo) ValueOf(r *model.ShipmentRecord) string {
	return strings.TrimSpace(r.Text(d.Field))
}

// BucketOf 记录在该维度上的分组名，空值归入 NotInformed
func (d DimensionInfo) BucketOf(r *model.ShipmentRecord) string {
	if v := d.ValueOf(r); v != "" {
		return v
	}
	return NotInformed
}

// Matches 精确匹配，NotInformed 匹配空值
func (d DimensionInfo) Matches(r *model.ShipmentRecord, value string) bool {
	return d.BucketOf(r) == value
}
