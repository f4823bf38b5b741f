package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/NunoCorreia78/Biodesk-sub000/internal/api"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/cache"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/config"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/consent"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/documents"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/logging"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/middleware"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/migrate"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/seed"
	"github.com/NunoCorreia78/Biodesk-sub000/migrations"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	mainLog := logging.For(log, "main")

	// SQLite de ficheiro único, partilhado com a aplicação desktop. WAL e
	// busy timeout para conviver com leitores externos; um único writer.
	db, err := gorm.Open(sqlite.Open(cfg.DBPath+"?_busy_timeout=5000&_journal_mode=WAL"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		mainLog.WithError(err).Fatal("abrir base de dados")
	}
	sqlDB, err := db.DB()
	if err != nil {
		mainLog.WithError(err).Fatal("base de dados")
	}
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()

	if err := migrate.Run(context.Background(), db, migrations.FS); err != nil {
		mainLog.WithError(err).Fatal("migrações")
	}
	if cfg.SeedDemo {
		if err := seed.Run(context.Background(), db, logging.For(log, "seed")); err != nil {
			mainLog.WithError(err).Warn("seed de demonstração")
		}
	}

	// TTLs por prefixo herdados do cache da aplicação desktop.
	ttlCache := cache.New(cache.Options{
		PrefixTTLs: map[string]time.Duration{
			"consent_status:":  5 * time.Minute,
			"consent_history:": 5 * time.Minute,
			"templates:":       10 * time.Minute,
			"system_config:":   24 * time.Hour,
		},
		DefaultTTL: 5 * time.Minute,
		MaxEntries: 1000,
	})

	manager := consent.New(db, ttlCache, logging.For(log, "consent"))
	docs := documents.NewStore(cfg.DocsDir)
	h := &api.Handler{
		Cfg:     cfg,
		Consent: manager,
		Docs:    docs,
		Log:     logging.For(log, "api"),
	}

	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	r.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := sqlDB.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"db unhealthy"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	// Rotas sem sessão: o login e a verificação pública apontada pelo QR
	// dos PDFs.
	r.HandleFunc("/api/auth/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/api/public/declaracoes/estado", h.GetDeclarationFileStatus).Methods(http.MethodGet)

	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(middleware.RequireAuthMiddleware(cfg.JWTSecret))
	protected.HandleFunc("/pacientes/{pacienteID}/consentimentos", h.GetStatusSummary).Methods(http.MethodGet)
	protected.HandleFunc("/pacientes/{pacienteID}/consentimentos", h.PostConsent).Methods(http.MethodPost)
	protected.HandleFunc("/pacientes/{pacienteID}/consentimentos/historico", h.GetHistory).Methods(http.MethodGet)
	protected.HandleFunc("/pacientes/{pacienteID}/consentimentos/{tipo}/anulacao", h.GetVoidPreview).Methods(http.MethodGet)
	protected.HandleFunc("/pacientes/{pacienteID}/consentimentos/{tipo}/anular", h.PostVoid).Methods(http.MethodPost)
	protected.HandleFunc("/consentimentos/{id}", h.GetRecord).Methods(http.MethodGet)
	protected.HandleFunc("/consentimentos/{id}/assinaturas", h.GetSignaturesComplete).Methods(http.MethodGet)
	protected.HandleFunc("/consentimentos/{id}/assinaturas/{papel}", h.PutSignatureSlot).Methods(http.MethodPut)
	protected.HandleFunc("/pacientes/{pacienteID}/declaracoes", h.PostDeclaration).Methods(http.MethodPost)
	protected.HandleFunc("/pacientes/{pacienteID}/declaracoes/assinaturas", h.PostDeclarationSignature).Methods(http.MethodPost)
	protected.HandleFunc("/pacientes/{pacienteID}/declaracoes/anterior", h.GetPreviousDeclaration).Methods(http.MethodGet)
	protected.HandleFunc("/declaracoes/{id}/substituir", h.PostMarkSuperseded).Methods(http.MethodPost)
	protected.HandleFunc("/pacientes/{pacienteID}/assinaturas/{tipo}/{papel}", h.GetStoredSignature).Methods(http.MethodGet)
	protected.HandleFunc("/pacientes/{pacienteID}/documentos", h.GetDocuments).Methods(http.MethodGet)
	protected.HandleFunc("/pacientes/{pacienteID}/documentos/consentimento", h.PostConsentDocument).Methods(http.MethodPost)
	protected.HandleFunc("/pacientes/{pacienteID}/documentos/declaracao", h.PostDeclarationDocument).Methods(http.MethodPost)
	protected.HandleFunc("/pacientes/{pacienteID}/documentos/anulacao", h.PostVoidCertificate).Methods(http.MethodPost)
	protected.HandleFunc("/pacientes/{pacienteID}/auditoria", h.GetAuditEvents).Methods(http.MethodGet)

	chain := middleware.Recover(logging.For(log, "http"))(
		middleware.RequestID(
			middleware.Timeout(cfg.RequestTimeoutSec)(
				middleware.CORS(cfg.CORSOrigins)(
					middleware.Gzip(r)))))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      chain,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		mainLog.WithField("port", cfg.Port).Info("serviço de consentimentos a escutar")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			mainLog.WithError(err).Fatal("servidor HTTP")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		mainLog.WithError(err).Warn("shutdown")
	}
	mainLog.Info("serviço parado")
}
