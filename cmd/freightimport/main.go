package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"freightdash/internal/config"
	"freightdash/internal/importer"
	"freightdash/internal/model"
	"freightdash/internal/parser"
	"freightdash/internal/store"
)

// 无界面导入：freightimport -file fretes.xlsx [-dataDir data]
var (
	filePath = flag.String("file", "", "要导入的 .xlsx 文件")
	dataDir  = flag.String("dataDir", "", "数据目录 (覆盖配置文件)")
	verbose  = flag.Bool("v", false, "输出每一行的错误")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

// run 执行一次导入并返回进程退出码，延迟关闭的资源都在返回前释放
func run() int {
	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "usage: freightimport -file <planilha.xlsx>")
		return 2
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg, info, err := config.LoadConfigWithInfo()
	if err != nil {
		logger.Warn("加载配置失败，使用默认配置", "err", err)
		cfg = config.DefaultConfig()
		info = config.LoadConfigInfo{BaseDir: "."}
	}
	if *dataDir != "" {
		cfg.Data.DataDir = *dataDir
	}

	resolvedDataDir, err := config.EnsureDataDir(info.BaseDir, cfg)
	if err != nil {
		return fail("falha ao criar o diretório de dados", err)
	}

	aliases := parser.DefaultAliases()
	if p := config.ResolvePath(info.BaseDir, cfg.Import.AliasFile); p != "" {
		if aliases, err = parser.LoadAliasFile(p, aliases); err != nil {
			return fail("falha ao carregar o arquivo de aliases", err)
		}
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		return fail("falha ao ler o arquivo", err)
	}

	dbPath := config.DBPath(resolvedDataDir, cfg)
	st, err := store.New(dbPath)
	if err != nil {
		return fail("falha ao abrir o banco de dados", err)
	}
	defer func() { _ = st.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	coord := importer.NewCoordinator(st, aliases, logger)
	events := coord.Stream(ctx, importer.ImportOptions{
		Filename: filepath.Base(*filePath),
		Data:     data,
	})

	var (
		report   *model.ImportReport
		fatalMsg string
	)
	for evt := range events {
		switch evt.Type {
		case "error":
			fatalMsg = evt.Message
		case "row_error":
			if *verbose {
				fmt.Println("  ", evt.Message)
			}
		case "done":
			report, _ = evt.Data.(*model.ImportReport)
		default:
			fmt.Println(evt.Message)
		}
	}
	if fatalMsg != "" {
		fmt.Fprintln(os.Stderr, "falha na importação:", fatalMsg)
		return 1
	}
	if report == nil {
		return 1
	}

	fmt.Printf("importação concluída: %d/%d linhas inseridas, %d com erro, %d avisos (%d ms)\n",
		report.Inserted, report.TotalRows, len(report.Failures), len(report.Warnings), report.DurationMs)
	fmt.Println("banco de dados:", dbPath)
	return 0
}

func fail(msg string, err error) int {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	return 1
}
