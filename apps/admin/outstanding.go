package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/studio/core"
	"github.com/trezcool/studio/core/billing"
	"github.com/trezcool/studio/core/outstanding"
	"github.com/trezcool/studio/core/payment"
)

// worklist collects the charges of month & keeps the entries at or above severity, as of today.
func (cli *commandLine) worklist(month, severity string) (string, outstanding.Severity, outstanding.Worklist, error) {
	var ref time.Time
	if month = core.CleanString(month); month == "" {
		ref = billing.Today()
		month = billing.MonthOf(ref)
	} else {
		var err error
		if ref, err = billing.ParseMonth(month); err != nil {
			return "", 0, outstanding.Worklist{}, errors.Errorf("invalid month %q, expected YYYY-MM", month)
		}
	}
	floor, err := outstanding.ParseSeverity(severity)
	if err != nil {
		return "", 0, outstanding.Worklist{}, err
	}

	ledger := payment.NewLedger(cli.st.Payments, cli.st.Roster, cli.logger)
	students, err := outstanding.NewSource(cli.st.Roster, ledger).Collect(context.Background(), ref)
	if err != nil {
		return "", 0, outstanding.Worklist{}, errors.Wrap(err, "collecting pending charges")
	}
	return month, floor, outstanding.Aggregate(students, billing.Today()).Filter(floor), nil
}

func (cli *commandLine) outstanding(month, severity string) error {
	month, _, w, err := cli.worklist(month, severity)
	if err != nil {
		return err
	}

	cli.printf("Outstanding payments for %s as of %s\n\n", month, w.AsOf.Format(core.DateLayout))
	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STUDENT\tEMAIL\tCLASSES\tOWED\tLATE FEE\tDUE\tDAYS\tSEVERITY")
	for _, e := range w.Entries {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%d\t%s\n",
			e.StudentName, e.Email, len(e.Charges),
			e.TotalOwed.StringFixed(2), e.LateFeeOwed.StringFixed(2), e.TotalDue().StringFixed(2),
			e.DaysOverdue, e.Severity)
	}
	if err = tw.Flush(); err != nil {
		return err
	}
	cli.printf("\n%d student(s), %s owed, %s late fees\n",
		w.Totals.Students, w.Totals.TotalOwed.StringFixed(2), w.Totals.LateFeeOwed.StringFixed(2))
	return nil
}
