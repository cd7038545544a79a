package main

import (
	"github.com/trezcool/studio/core/outstanding"
)

func (cli *commandLine) remind(month, severity string) error {
	month, floor, w, err := cli.worklist(month, severity)
	if err != nil {
		return err
	}
	queued := outstanding.NewReminder(cli.mailSvc, cli.logger).Send(w, month, floor)
	cli.printf("%d reminder(s) queued for %s (severity >= %s)\n", queued, month, floor)
	return nil
}
