package billing

import (
	"context"

	"github.com/xraph/billing/bill"
)

var (
	dueStatuses     = []bill.Status{bill.StatusUnpaid, bill.StatusPartiallyPaid}
	overdueStatuses = []bill.Status{bill.StatusUnpaid, bill.StatusPartiallyPaid, bill.StatusOverdue}
)

// SendDueReminders notifies every unpaid bill falling due between today and
// ReminderWindowDays from now. It returns how many reminders were queued.
func (e *Engine) SendDueReminders(ctx context.Context) (int, error) {
	today := e.today()
	bills, err := e.store.ListBills(ctx, bill.ListOpts{
		DueFrom:  today,
		DueTo:    today.AddDate(0, 0, e.config.ReminderWindowDays),
		Statuses: dueStatuses,
	})
	if err != nil {
		return 0, err
	}

	for _, b := range bills {
		e.remind(ctx, b, false)
	}
	return len(bills), nil
}

// SendOverdueReminders notifies every unpaid bill whose due date has
// passed. The bills' status is left alone; marking them OVERDUE belongs to
// an external sweep.
func (e *Engine) SendOverdueReminders(ctx context.Context) (int, error) {
	yesterday := e.today().AddDate(0, 0, -1)
	bills, err := e.store.ListBills(ctx, bill.ListOpts{
		DueTo:    yesterday,
		Statuses: overdueStatuses,
	})
	if err != nil {
		return 0, err
	}

	for _, b := range bills {
		e.remind(ctx, b, true)
	}
	return len(bills), nil
}

// remind queues a reminder. OnReminderSent fires only once the notifier
// has delivered it.
func (e *Engine) remind(ctx context.Context, b *bill.Bill, overdue bool) {
	e.after(ctx, "notify_reminder", func(ctx context.Context) error {
		if err := e.notifier.NotifyReminder(ctx, b, overdue); err != nil {
			return err
		}
		e.plugins.EmitReminderSent(ctx, b, overdue)
		return nil
	})
}
