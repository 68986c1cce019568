package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/maktab/core"
	"github.com/trezcool/maktab/core/catalog"
	"github.com/trezcool/maktab/core/chat"
	"github.com/trezcool/maktab/services/llm"
	logsvc "github.com/trezcool/maktab/services/logger"
	"github.com/trezcool/maktab/storage/database"
	sqlxrepos "github.com/trezcool/maktab/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	ctx := context.Background()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	if conf.Database.InMemory() {
		logger.Fatal("the admin CLI needs a postgres database (database.engine=memory)")
	}

	// set up DB
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		logger.Fatal("creating database", err)
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}

	provider, err := llm.New(ctx, conf.LLM)
	if err != nil {
		_ = db.Close()
		logger.Fatal("setting up model provider", err)
	}

	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	catalogSvc := catalog.NewService(sqlxrepos.NewCatalogRepository(db))
	cli := commandLine{
		db:         db.DB,
		validate:   validate,
		catalogSvc: catalogSvc,
		chatSvc:    chat.NewService(chat.Deps{Catalog: catalogSvc, Model: provider, Files: provider}),
		out:        os.Stdout,
	}
	err = cli.run(os.Args)

	_ = provider.Close()
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		os.Exit(1)
	}
}
