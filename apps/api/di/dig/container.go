package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/studio/apps/api/echo"
	"github.com/trezcool/studio/core"
	"github.com/trezcool/studio/core/payment"
	emailsvc "github.com/trezcool/studio/services/email"
	logsvc "github.com/trezcool/studio/services/logger"
	"github.com/trezcool/studio/storage"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	return logger
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam) *storage.Storage {
	st, err := storage.Setup(context.Background(), conf, loggerParam.Logger)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	return st
}

func newValidator() (*validator.Validate, ut.Translator) {
	return payment.NewValidator()
}

func newServerOptions(
	conf *core.Config,
	logger core.Logger,
	st *storage.Storage,
	mailSvc core.EmailService,
	validate *validator.Validate,
	translator ut.Translator,
) *echoapi.Options {
	return &echoapi.Options{
		Conf:       conf,
		Logger:     logger,
		Roster:     st.Roster,
		Payments:   st.Payments,
		MailSvc:    mailSvc,
		Validate:   validate,
		Translator: translator,
	}
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(emailsvc.NewService))
	must(c.Provide(newValidator))
	must(c.Provide(newServerOptions))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
