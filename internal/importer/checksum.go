package importer

import (
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// FileChecksum 上传文件内容的 xxhash64 摘要
func FileChecksum(data []byte) string {
	hasher := xxhash.New()
	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil))
}
