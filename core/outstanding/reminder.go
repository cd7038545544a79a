package outstanding

import (
	"net/mail"

	"github.com/trezcool/studio/core"
)

// ReminderTemplate is the email template of payment reminders.
const ReminderTemplate = "payment_reminder"

type (
	ReminderLine struct {
		ClassName string
		Amount    string
	}

	ReminderData struct {
		StudentName string
		Month       string
		DaysOverdue int
		Severity    string
		Lines       []ReminderLine
		TotalOwed   string
		LateFeeOwed string
		TotalDue    string
	}
)

// Reminder emails students of the worklist about their unpaid tuition.
type Reminder struct {
	mailSvc core.EmailService
	logger  core.Logger
}

func NewReminder(mailSvc core.EmailService, logger core.Logger) *Reminder {
	return &Reminder{mailSvc: mailSvc, logger: logger}
}

// Messages builds one reminder per entry at or above floor. Students without an email are skipped.
func (r *Reminder) Messages(w Worklist, month string, floor Severity) []*core.EmailMessage {
	var msgs []*core.EmailMessage
	for _, e := range w.Filter(floor).Entries {
		if e.Email == "" {
			r.logger.Warn("reminder skipped: no email", map[string]interface{}{"studentId": e.StudentID})
			continue
		}
		lines := make([]ReminderLine, 0, len(e.Charges))
		for _, c := range e.Charges {
			lines = append(lines, ReminderLine{ClassName: c.ClassName, Amount: c.Amount().StringFixed(2)})
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: e.StudentName, Address: e.Email}},
			Subject:      "Tuition reminder for " + month,
			TemplateName: ReminderTemplate,
			TemplateData: ReminderData{
				StudentName: e.StudentName,
				Month:       month,
				DaysOverdue: e.DaysOverdue,
				Severity:    e.Severity.String(),
				Lines:       lines,
				TotalOwed:   e.TotalOwed.StringFixed(2),
				LateFeeOwed: e.LateFeeOwed.StringFixed(2),
				TotalDue:    e.TotalDue().StringFixed(2),
			},
		})
	}
	return msgs
}

// Send sends the reminders & returns how many were queued.
func (r *Reminder) Send(w Worklist, month string, floor Severity) int {
	msgs := r.Messages(w, month, floor)
	if len(msgs) > 0 {
		r.mailSvc.SendMessages(msgs...)
	}
	r.logger.Info("payment reminders queued", map[string]interface{}{
		"month":    month,
		"severity": floor.String(),
		"count":    len(msgs),
	})
	return len(msgs)
}
