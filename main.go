package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"coopmarket/internal/alerts"
	apihttp "coopmarket/internal/api/http"
	"coopmarket/internal/audit"
	balancegroup "coopmarket/internal/balancegroup/domain"
	grouprepo "coopmarket/internal/balancegroup/infrastructure/postgres"
	"coopmarket/internal/config"
	ediapp "coopmarket/internal/edi/application"
	edi "coopmarket/internal/edi/domain"
	edihttp "coopmarket/internal/edi/interfaces/http"
	"coopmarket/internal/eventing"
	eventingrepo "coopmarket/internal/eventing/infrastructure/postgres"
	"coopmarket/internal/observability/metrics"
	readingsapp "coopmarket/internal/readings/application"
	readingsrepo "coopmarket/internal/readings/infrastructure/postgres"
	readingshttp "coopmarket/internal/readings/interfaces/http"
	"coopmarket/internal/settlement/adapters/forecast"
	settlementapp "coopmarket/internal/settlement/application"
	settlementrepo "coopmarket/internal/settlement/infrastructure/postgres"
	settlementinterfaces "coopmarket/internal/settlement/interfaces"
	settlementhttp "coopmarket/internal/settlement/interfaces/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init()

	grammars, err := edi.LoadGrammars(cfg.GrammarPath)
	if err != nil {
		logger.Fatalf("grammar load error: %v", err)
	}

	bus := eventing.NewInMemoryBus()
	registry := eventing.NewRegistry()
	registry.Register(ediapp.ReadingExtracted{})
	registry.Register(ediapp.InterchangeAcknowledged{})
	registry.Register(settlementapp.SettlementCompleted{})

	outboxStore := eventingrepo.NewOutboxStore(db)
	processedStore := eventingrepo.NewProcessedStore(db)
	dlqStore := eventingrepo.NewDLQStore(db)
	dispatcher := eventing.NewDispatcher(bus, outboxStore, registry, dlqStore)
	publisher := eventing.NewPublisher(outboxStore, dispatcher, cfg.CooperativeID, bus)

	auditRepo := audit.NewRepository(db)
	builder := edi.AperakBuilder{SenderID: cfg.SenderID, MaxReported: cfg.AperakMaxErrors}
	processor, err := ediapp.NewProcessor(grammars, builder, publisher, auditRepo, nil, logger)
	if err != nil {
		logger.Fatalf("edi processor error: %v", err)
	}

	groupRepo := grouprepo.NewGroupRepository(db)
	readingRepo := readingsrepo.NewReadingRepository(db)
	normalizer := readingsapp.NewNormalizer(groupRepo)

	detector, err := readingsapp.NewAnomalyDetector(readingRepo, cfg.AnomalyThreshold)
	if err != nil {
		logger.Fatalf("anomaly detector error: %v", err)
	}
	notifiers := []alerts.Notifier{alerts.NewLogNotifier(logger)}
	if cfg.AlertWebhookURL != "" {
		webhook, err := alerts.NewWebhookNotifier(cfg.AlertWebhookURL, nil)
		if err != nil {
			logger.Fatalf("alert webhook error: %v", err)
		}
		notifiers = append(notifiers, webhook)
	}
	monitor, err := readingsapp.NewAnomalyMonitor(detector, alerts.NewMultiNotifier(notifiers...), 0, logger)
	if err != nil {
		logger.Fatalf("anomaly monitor error: %v", err)
	}

	ingest, err := readingsapp.NewIngestService(readingRepo, normalizer, nil, logger,
		readingsapp.WithAnomalyMonitor(monitor))
	if err != nil {
		logger.Fatalf("ingest service error: %v", err)
	}
	consumer, err := readingsapp.NewExtractConsumer(ingest, logger)
	if err != nil {
		logger.Fatalf("extract consumer error: %v", err)
	}
	consumer.Register(bus, processedStore)

	aggregator := balancegroup.NewAggregator(readingRepo)
	runRepo := settlementrepo.NewRunRepository(db)
	forecasts := forecast.NewPostgresProvider(db)
	settlementPublisher := settlementinterfaces.NewOutboxPublisher(publisher, cfg.CooperativeID)
	engine, err := settlementapp.NewEngine(
		groupRepo, aggregator, runRepo, forecasts, settlementPublisher,
		cfg.DefaultPriceCtPerKWh, nil, logger,
	)
	if err != nil {
		logger.Fatalf("settlement engine error: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/v1/edi/interchanges", edihttp.NewInterchangeHandler(processor))
	mux.Handle("/api/v1/readings", readingshttp.NewSubmitHandler(ingest))
	mux.Handle("/api/v1/readings/csv", readingshttp.NewBulkCSVHandler(ingest))
	mux.Handle("/api/v1/readings/anomalies", readingshttp.NewAnomalyHandler(detector))
	mux.Handle("/api/v1/settlements", settlementhttp.NewSettleHandler(engine))
	mux.Handle("/api/v1/settlements/report", settlementhttp.NewReportHandler(runRepo))
	mux.Handle("/api/v1/settlements/export", settlementhttp.NewExportHandler(runRepo))
	mux.Handle("/api/v1/settlements/runs", apihttp.NewSettlementRunsHandler(db))
	mux.Handle("/api/v1/exports/settlements.csv", apihttp.NewExportRunsCSVHandler(db))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(mux, logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
