package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"memorybook-parser/internal/adapters/archive"
	"memorybook-parser/internal/adapters/exporter"
	"memorybook-parser/internal/adapters/parser"
	"memorybook-parser/internal/adapters/source"
	"memorybook-parser/internal/cache"
	"memorybook-parser/internal/core/services"
	"memorybook-parser/internal/log"
	"memorybook-parser/internal/pkg/config"
	"memorybook-parser/internal/ports"
	"memorybook-parser/internal/server/usecase"
)

// Локальный одноразовый запуск конвейера: файл экспорта разбирается
// на месте и результат выводится в консоль или сохраняется в xlsx.
func main() {
	var outputPath string
	var poolSize int
	flag.StringVar(&outputPath, "o", "", "Path to xlsx output (console output if empty)")
	flag.IntVar(&poolSize, "pool", config.DefaultExtractionPoolSize, "Image extraction pool size")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: cli [flags] <export-file>")
		os.Exit(1)
	}

	logger := log.NewMaskedLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	cfg := &config.Config{}
	cfg.Processing.CacheTTLMinutes = 1
	cfg.Extraction.PoolSize = poolSize

	processor := usecase.NewProcessExportUseCase(cfg,
		archive.NewZipReader(),
		parser.NewJsonParser(),
		parser.NewWhatsappParser(),
		services.NewImageExtractionService(services.WithPoolSize(poolSize)),
		services.NewIdentityService(),
		services.NewLinkerService(),
		services.NewAggregateService(),
		cache.NewCacheStore())

	result, err := processor.ProcessExport(context.Background(), source.NewCliSource(flag.Arg(0)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not read this file: %v\n", err)
		os.Exit(1)
	}
	defer result.Release()

	var exp ports.Exporter
	if outputPath != "" {
		exp = exporter.NewExcelExporter(outputPath)
	} else {
		exp = exporter.NewConsoleExporter()
	}

	if err := exp.Export(result); err != nil {
		fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
		os.Exit(1)
	}

	if outputPath != "" {
		fmt.Printf("Saved %d messages to %s\n", result.Metadata.TotalMessages, outputPath)
	}
}
