package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/maktab/apps/api/echo"
	"github.com/trezcool/maktab/core"
	"github.com/trezcool/maktab/core/catalog"
	"github.com/trezcool/maktab/core/chat"
	"github.com/trezcool/maktab/services/llm"
	logsvc "github.com/trezcool/maktab/services/logger"
	"github.com/trezcool/maktab/services/metrics"
	"github.com/trezcool/maktab/storage/database"
	inmemdb "github.com/trezcool/maktab/storage/database/inmem"
	sqlxrepos "github.com/trezcool/maktab/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	ctx := context.Background()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up storage
	var repo catalog.Repository
	if conf.Database.InMemory() {
		logger.Warn("using in-memory catalog: data will be lost on restart")
		repo = inmemdb.NewCatalogRepository(inmemdb.Open())
	} else {
		db, err := setUpDB(ctx, conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		defer func() {
			if err = db.Close(); err != nil {
				dbLogger.Error("Failed to close", err)
			}
		}()
		repo = sqlxrepos.NewCatalogRepository(db)
	}

	// set up model provider
	provider, err := llm.New(ctx, conf.LLM)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up %s model: %v", conf.LLM.Provider, err), err)
	}
	defer func() { _ = provider.Close() }()

	// set up services
	collector := metrics.NewCollector("maktab")
	catalogSvc := catalog.NewService(repo)
	chatSvc := chat.NewService(chat.Deps{
		Catalog:     catalogSvc,
		Model:       provider,
		Files:       provider,
		Recorder:    collector,
		Temperature: conf.LLM.Temperature,
	})

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q, model %q", conf.Build, conf.LLM.Provider))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("llm").Set(conf.LLM.Provider)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			CatalogSvc: catalogSvc,
			ChatSvc:    chatSvc,
			Metrics:    collector,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(ctx, conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
