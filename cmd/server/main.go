// Command server runs the PulseEcho screening backend.
package main

import (
	"context"
	"log"

	"pulseecho/backend/internal/alerting"
	"pulseecho/backend/internal/apigateway"
	"pulseecho/backend/internal/auth"
	"pulseecho/backend/internal/config"
	"pulseecho/backend/internal/coreengine/classification"
	"pulseecho/backend/internal/datastore"
	"pulseecho/backend/internal/metrics"
	"pulseecho/backend/internal/objectstore"
	"pulseecho/backend/internal/patients"
	"pulseecho/backend/internal/screening"
	"pulseecho/backend/internal/upload"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	db, err := datastore.Open(cfg.DB.DSN())
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	store := datastore.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure database schema: %v", err)
	}

	minioClient, err := objectstore.NewMinioClient(ctx, cfg.Minio)
	if err != nil {
		log.Fatalf("Failed to initialize MinIO client: %v", err)
	}

	classifier, err := classification.ForConfig(cfg.Model)
	if err != nil {
		log.Fatalf("Failed to initialize classifier: %v", err)
	}

	m := metrics.New()
	validator := upload.NewValidator(cfg.Upload)
	sender := alerting.SenderForConfig(cfg.Twilio)
	dispatcher := alerting.NewDispatcher(sender, cfg.Alert.ClinicPhone)

	svc := screening.NewService(validator, classifier, store, minioClient, dispatcher, m, cfg.Alert.Threshold)

	router := apigateway.SetupRouter(apigateway.Deps{
		Screening: screening.NewHandlers(svc, store, minioClient),
		Patients:  patients.NewHandlers(store),
		Alerts:    alerting.NewHandlers(store, sender),
		Auth:      auth.New(cfg.Admin),
		Metrics:   m,
	})

	log.Printf("Starting PulseEcho backend on :%s (model mode: %s)", cfg.Server.Port, cfg.Model.Mode)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
