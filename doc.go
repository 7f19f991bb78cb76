// Package billing is a utility billing and ledger engine.
//
// It turns meter readings into priced, due-dated bills, applies standing
// customer credit, records payments and runs month-wide batch generation.
// The engine is a library: the surrounding application owns HTTP, auth and
// reference data administration, and plugs in a store, a notifier and a
// document renderer.
//
// # Quick Start
//
//	s, err := postgres.Open(ctx, databaseURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	eng := billing.New(s,
//	    billing.WithLogger(slog.Default()),
//	    billing.WithNotifier(kafka.NewNotifier(producer, "billing-events")),
//	    billing.WithPlugin(audithook.New(recorder)),
//	)
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
//	b, err := eng.GenerateBill(ctx, readingID, "clerk-17")
//
// # Pricing
//
// Consumption is rated progressively over the tariff's slabs, then fixed
// charge and meter rent are added. Electricity duty, fuel adjustment and
// wheeling rules are evaluated over that subtotal. Subsidies reduce the
// gross, never below zero. Late fees accrue per outstanding bill from the
// day after its grace period ends.
//
// # Ledger
//
// Each account gets at most one bill per billing month. A bill's balance
// only decreases: advance credit and payments move money from Balance into
// AmountPaid, and the status follows (UNPAID, PARTIALLY_PAID, PAID). The
// engine never marks bills OVERDUE; that belongs to an external sweep.
//
// Every operation runs in one store unit of work. Rendering, notifications
// and plugin hooks run after commit and cannot fail the operation.
//
// # Errors
//
// Failures are classified by IsNotFound, IsConflict, IsInvalidArgument and
// IsUnresolvable. Validation failures carry a human-readable message with
// the relevant figure, such as the exact outstanding balance.
package billing
