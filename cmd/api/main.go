package main

import (
	"log"
	"net/http"

	"github.com/ecothread/marketplace/internal/config"
	"github.com/ecothread/marketplace/internal/database"
	"github.com/ecothread/marketplace/internal/httpapi"
	"github.com/ecothread/marketplace/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database successfully")

	engine := service.NewSustainabilityEngine(db, service.DefaultImpactTable())
	policy := service.QuietPeriodPolicy{Period: cfg.Orders.QuietPeriod}

	srv := &httpapi.Server{
		Cart:           service.NewCartService(db),
		Checkout:       service.NewCheckoutService(db),
		Orders:         service.NewOrderService(db, engine, policy),
		Catalog:        service.NewCatalogService(db, engine),
		Sustainability: engine,
		Rewards:        service.NewRewardsService(db),
		JWTSecret:      cfg.Auth.JWTSecret,
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Printf("Server starting on port %s", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
