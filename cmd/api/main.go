package main

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"gaplend-backend/internal/adapter/chain"
	httpadp "gaplend-backend/internal/adapter/http"
	"gaplend-backend/internal/adapter/middleware"
	"gaplend-backend/internal/adapter/repository/mysql"
	"gaplend-backend/internal/config"
	domain "gaplend-backend/internal/domain/listing"
	"gaplend-backend/internal/infrastructure/cache"
	"gaplend-backend/internal/infrastructure/db"
	"gaplend-backend/internal/usecase/funding"
	"gaplend-backend/internal/usecase/listing"
	"gaplend-backend/pkg/valuation"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("config: %v", err)
	}

	gdb, err := db.OpenGorm(cfg.MySQLDSN())
	if err != nil {
		logrus.Fatalf("mysql: %v", err)
	}
	if err := gdb.AutoMigrate(&domain.Listing{}, &domain.FundingEvent{}); err != nil {
		logrus.Fatalf("migrate: %v", err)
	}

	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logrus.Fatalf("redis: %v", err)
	}

	gw, err := chain.NewGateway(chain.Config{
		RPCURL:       cfg.ChainRPCURL,
		PrivateKey:   cfg.ChainPrivateKey,
		ContractAddr: cfg.ChainContractAddr,
		ChainID:      cfg.ChainID,
	})
	if err != nil {
		logrus.Fatalf("chain: %v", err)
	}

	listings := mysql.NewListingRepository(gdb)
	events := mysql.NewEventRepository(gdb)
	tx := mysql.NewGormUoW(gdb)

	decay := valuation.DecayLinearTime
	if cfg.RateDecay == "funded_fraction" {
		decay = valuation.DecayFundedFraction
	}

	policy := funding.Policy{
		ReceiptPolls:        cfg.ReceiptPolls,
		ReceiptPollInterval: time.Duration(cfg.ReceiptPollIntervalMS) * time.Millisecond,
		LedgerRetries:       cfg.LedgerRetries,
		LedgerRetryBase:     time.Duration(cfg.LedgerRetryBaseMS) * time.Millisecond,
	}

	fundingUC := funding.NewUsecase(listings, events, gw, tx, policy)
	listingUC := listing.NewUsecase(listings, events, decay)

	h := httpadp.NewHandler()
	lh := httpadp.NewListingHandler(listingUC)
	fh := httpadp.NewFundingHandler(fundingUC)

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(echomw.Logger(), echomw.Recover())

	idemp := middleware.IdempotencyMiddleware(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second)

	// routes
	e.GET("/health", h.Health)

	api := e.Group("/api")
	api.POST("/listings", lh.CreateListing, idemp)
	api.GET("/listings", lh.ListListings)
	api.GET("/listings/:listing_id", lh.GetListing)
	api.GET("/listings/:listing_id/events", lh.ListFundingEvents)

	api.POST("/fund", fh.Fund, idemp)
	api.POST("/withdraw", fh.Withdraw, idemp)
	api.GET("/settlements/:tx_ref", fh.SettlementStatus)

	addr := ":" + cfg.AppPort
	logrus.Infof("listening on %s", addr)
	if err := e.Start(addr); err != nil {
		logrus.Fatal(err)
	}
}
