package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// AppConfig 应用配置
type AppConfig struct {
	Server    ServerConfig    `toml:"server"`
	Data      DataConfig      `toml:"data"`
	Import    ImportConfig    `toml:"import"`
	Dashboard DashboardConfig `toml:"dashboard"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir string `toml:"data_dir"`
	DBFile  string `toml:"db_file"`
}

// ImportConfig 上传导入配置
type ImportConfig struct {
	MaxUploadMB int    `toml:"max_upload_mb"`
	AliasFile   string `toml:"alias_file"` // 额外的表头别名 YAML，可为空
	KeepUploads bool   `toml:"keep_uploads"`
}

// DashboardConfig 看板会话配置
type DashboardConfig struct {
	DebounceMS        int `toml:"debounce_ms"`
	SessionTTLMinutes int `toml:"session_ttl_minutes"`
}

// Debounce 筛选防抖时长
func (c DashboardConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// SessionTTL 会话空闲过期时长
func (c DashboardConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	PortSpecified bool
	// BaseDir 相对路径的基准目录（config.toml 所在目录）
	BaseDir string
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20262,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir: "data",
			DBFile:  "freightdash.db",
		},
		Import: ImportConfig{
			MaxUploadMB: 32,
		},
		Dashboard: DashboardConfig{
			DebounceMS:        300,
			SessionTTLMinutes: 30,
		},
	}
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// LoadConfigWithInfo 从可执行文件同目录的 config.toml 加载配置
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}
	return LoadConfigFrom(exeDir)
}

// LoadConfigFrom 从指定目录加载 .env 与 config.toml，再应用环境变量覆盖
func LoadConfigFrom(dir string) (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{BaseDir: dir}
	config := DefaultConfig()

	// .env 只补充未设置的环境变量
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, info, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "config.toml"))
	switch {
	case err == nil:
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, fmt.Errorf("parse config.toml: %w", err)
		}
	case os.IsNotExist(err):
		// 配置文件不存在，使用默认配置
	default:
		return nil, info, err
	}

	portFromEnv, err := applyEnv(config)
	if err != nil {
		return nil, info, err
	}
	if portFromEnv {
		info.PortSpecified = true
	}
	return config, info, nil
}

// applyEnv 环境变量覆盖，返回端口是否由环境变量指定
func applyEnv(config *AppConfig) (bool, error) {
	portSet := false
	if v := os.Getenv("FREIGHTDASH_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return false, fmt.Errorf("invalid FREIGHTDASH_PORT: %q", v)
		}
		config.Server.Port = port
		portSet = true
	}
	if v := os.Getenv("FREIGHTDASH_DATA_DIR"); v != "" {
		config.Data.DataDir = v
	}
	if v := os.Getenv("FREIGHTDASH_DB_FILE"); v != "" {
		config.Data.DBFile = v
	}
	if v := os.Getenv("FREIGHTDASH_ALIAS_FILE"); v != "" {
		config.Import.AliasFile = v
	}
	if v := os.Getenv("FREIGHTDASH_DEBOUNCE_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms < 0 {
			return false, fmt.Errorf("invalid FREIGHTDASH_DEBOUNCE_MS: %q", v)
		}
		config.Dashboard.DebounceMS = ms
	}
	return portSet, nil
}

// LoadConfig 从 config.toml 加载配置
// 配置文件位于可执行文件同目录下
func LoadConfig() (*AppConfig, error) {
	config, _, err := LoadConfigWithInfo()
	return config, err
}

// SaveConfig 保存配置到指定目录的 config.toml
func SaveConfig(dir string, config *AppConfig) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.toml"), data, 0644)
}

// ResolvePath 相对路径按 baseDir 解析
func ResolvePath(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

// EnsureDataDir 确保数据目录及 uploads/exports 子目录存在
func EnsureDataDir(baseDir string, config *AppConfig) (string, error) {
	dataDir := ResolvePath(baseDir, config.Data.DataDir)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	for _, subdir := range []string{"uploads", "exports"} {
		if err := os.MkdirAll(filepath.Join(dataDir, subdir), 0755); err != nil {
			return "", err
		}
	}

	return dataDir, nil
}

// DBPath SQLite 数据库文件路径
func DBPath(dataDir string, config *AppConfig) string {
	return ResolvePath(dataDir, config.Data.DBFile)
}

// GetDataPath 获取数据子目录下的文件路径
func GetDataPath(dataDir, subdir, filename string) string {
	return filepath.Join(dataDir, subdir, filename)
}
