package parser

import (
	"strings"

	"freightdash/internal/util"
)

// NormalizeHeader 规范化表头，用于别名的宽松匹配
// 去除首尾空白、重音与下划线，转小写，压缩多个空格
func NormalizeHeader(name string) string {
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "\n", " ")
	name = strings.ReplaceAll(name, "\r", " ")
	name = strings.ReplaceAll(name, "\t", " ")
	return util.FoldText(name)
}
