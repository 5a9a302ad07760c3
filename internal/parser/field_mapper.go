package parser

import (
	"freightdash/internal/model"
)

// FieldMapper 字段映射器：把任意表头映射到规范字段
type FieldMapper struct {
	aliases    AliasTable
	normalized map[string]model.FieldName
	variants   map[model.FieldName][]string
}

// NewFieldMapper 创建字段映射器
func NewFieldMapper(aliases AliasTable) *FieldMapper {
	normalized := make(map[string]model.FieldName, len(aliases))
	for header, field := range aliases {
		normalized[NormalizeHeader(header)] = field
	}
	return &FieldMapper{
		aliases:    aliases,
		normalized: normalized,
		variants:   aliases.Variants(),
	}
}

// MappingResult 字段映射结果
type MappingResult struct {
	Matched map[model.FieldName]string // 规范字段 -> 本文件命中的表头
	Missing []model.MissingField       // 未命中的必填字段
	Headers []string                   // 文件中的全部表头
}

// Map 映射一组表头；同一字段有多个表头命中时取第一个
func (m *FieldMapper) Map(headers []string) *MappingResult {
	result := &MappingResult{
		Matched: make(map[model.FieldName]string),
		Headers: append([]string(nil), headers...),
	}

	for _, header := range headers {
		field, ok := m.Resolve(header)
		if !ok {
			continue
		}
		if _, exists := result.Matched[field]; !exists {
			result.Matched[field] = header
		}
	}

	for _, field := range model.RequiredFields() {
		if _, ok := result.Matched[field]; !ok {
			result.Missing = append(result.Missing, model.MissingField{
				Field:           field,
				AcceptedHeaders: m.variants[field],
			})
		}
	}

	return result
}

// Resolve 单个表头对应的规范字段：先精确匹配，再宽松匹配
func (m *FieldMapper) Resolve(header string) (model.FieldName, bool) {
	if field, ok := m.aliases[header]; ok {
		return field, true
	}
	key := NormalizeHeader(header)
	if key == "" {
		return "", false
	}
	field, ok := m.normalized[key]
	return field, ok
}

// AcceptedHeaders 某字段可接受的表头写法
func (m *FieldMapper) AcceptedHeaders(field model.FieldName) []string {
	return m.variants[field]
}

// OK 必填字段是否全部命中
func (r *MappingResult) OK() bool {
	return len(r.Missing) == 0
}

// FieldsUsed 按规范字段顺序列出实际使用的映射
func (r *MappingResult) FieldsUsed() []model.FieldMatch {
	out := []model.FieldMatch{}
	for _, f := range model.Fields {
		if header, ok := r.Matched[f.Name]; ok {
			out = append(out, model.FieldMatch{Field: f.Name, Header: header})
		}
	}
	return out
}
