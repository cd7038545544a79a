package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/studio/core"
	"github.com/trezcool/studio/storage"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf    *core.Config
	out     io.Writer
	db      *sql.DB // nil unless the storage driver is postgres
	st      *storage.Storage
	mailSvc core.EmailService
	logger  core.Logger
}

func (cli *commandLine) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cli.out, format, args...)
}

func (cli *commandLine) printUsage() {
	cli.printf("Usage:\n")
	cli.printf("  migrate COMMAND [ARGS]                       - run a goose migration command (up, down, status, ...)\n")
	cli.printf("  hashpassword                                 - hash a password for AUTH_ADMINPASSWORDHASH\n")
	cli.printf("  outstanding [-month YYYY-MM] [-severity SEV] - print the outstanding payments worklist\n")
	cli.printf("  remind [-month YYYY-MM] [-severity SEV]      - email reminders to students owing tuition\n")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "hashpassword":
		cli.printf("Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		cli.printf("\n")
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			cli.printUsage()
			return errHelp
		}
		return cli.hashPassword(pwd)

	case "outstanding":
		cmd := flag.NewFlagSet("outstanding", flag.ContinueOnError)
		cmd.SetOutput(cli.out)
		month := cmd.String("month", "", "The billing month (YYYY-MM). Defaults to the current month.")
		severity := cmd.String("severity", "recent", "The lowest severity listed: recent, urgent or critical.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.outstanding(*month, *severity)

	case "remind":
		cmd := flag.NewFlagSet("remind", flag.ContinueOnError)
		cmd.SetOutput(cli.out)
		month := cmd.String("month", "", "The billing month (YYYY-MM). Defaults to the current month.")
		severity := cmd.String("severity", cli.conf.Reminders.MinSeverity, "The lowest severity reminded: recent, urgent or critical.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.remind(*month, *severity)

	default:
		cli.printUsage()
		return errHelp
	}
}
