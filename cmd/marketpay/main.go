package main

import (
	"fmt"
	"os"

	"github.com/askarbek/marketpay/internal/auth"
	"github.com/askarbek/marketpay/internal/config"
	"github.com/askarbek/marketpay/internal/db"
	"github.com/askarbek/marketpay/internal/excel"
	httphandler "github.com/askarbek/marketpay/internal/http"
	"github.com/askarbek/marketpay/internal/http/middleware"
	"github.com/askarbek/marketpay/internal/logger"
	"github.com/askarbek/marketpay/internal/pdf"
	"github.com/askarbek/marketpay/internal/repository"
	"github.com/askarbek/marketpay/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	ledgerRepo := repository.NewLedgerRepository(database)
	reportRepo := repository.NewReportRepository(database)

	contractService := service.NewContractService(ledgerRepo)
	paymentService := service.NewPaymentService(ledgerRepo, pdf.NewGenerator(), cfg)
	reportService := service.NewReportService(reportRepo, excel.NewGenerator(), cfg)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(contractService, paymentService, reportService, log)
	authMiddleware := middleware.Auth(tokenParser, ledgerRepo, log)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting marketpay service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
