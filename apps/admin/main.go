package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/studio/core"
	appfs "github.com/trezcool/studio/fs"
	emailsvc "github.com/trezcool/studio/services/email"
	logsvc "github.com/trezcool/studio/services/logger"
	"github.com/trezcool/studio/storage"
)

func main() {
	stdLogger := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	if err != nil {
		stdLogger.Fatal(err)
	}
	logger := logsvc.NewRollbarLogger(stdLogger, conf)

	if err = run(conf, logger, os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed: "+err.Error(), err)
		}
		logger.Close()
		os.Exit(1)
	}
	logger.Close()
}

func run(conf *core.Config, logger core.Logger, args []string) error {
	core.ParseEmailTemplates(appfs.Templates, appfs.EmailTemplatesDir, conf.Debug, logger)

	// set up storage
	st, err := storage.Open(context.Background(), conf, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	// start CLI
	cli := commandLine{
		conf:    conf,
		out:     os.Stdout,
		db:      st.DB(),
		st:      st,
		mailSvc: emailsvc.NewService(conf, logger),
		logger:  logger,
	}
	return cli.run(args)
}
