// Command billingctl runs billing jobs against a configured store:
//
//	billingctl [-config billing.yaml] migrate
//	billingctl [-config billing.yaml] generate -month 2024-03 [-actor cron]
//	billingctl [-config billing.yaml] remind
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/xraph/billing"
	"github.com/xraph/billing/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "billingctl: %v\n", err)
		os.Exit(1)
	}
}

func usage(fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprintf(fs.Output(), "usage: billingctl [-config file] <migrate|generate|remind> [flags]\n")
		fs.PrintDefaults()
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("billingctl", flag.ContinueOnError)
	fs.Usage = usage(fs)
	configPath := fs.String("config", "", "path to the YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	var job func(ctx context.Context, eng *billing.Engine) error
	switch cmd {
	case "migrate":
		job = func(context.Context, *billing.Engine) error {
			logger.Info("store migrated", "driver", cfg.Store.Driver)
			return nil
		}
	case "generate":
		job, err = generateCmd(cmdArgs, logger)
	case "remind":
		job = remindCmd(logger)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		return err
	}

	return execute(ctx, cfg, logger, job)
}

func generateCmd(args []string, logger *slog.Logger) (func(context.Context, *billing.Engine) error, error) {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	month := fs.String("month", "", "billing month, YYYY-MM")
	actor := fs.String("actor", "billingctl", "actor recorded on created bills")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *month == "" {
		return nil, errors.New("generate: -month is required")
	}

	return func(ctx context.Context, eng *billing.Engine) error {
		summary, err := eng.GenerateBillsForMonth(ctx, *month, *actor)
		if err != nil {
			return err
		}
		logger.Info("batch completed",
			"month", summary.Month,
			"evaluated", summary.Evaluated,
			"created", summary.Created,
			"skipped", summary.Skipped,
			"failed", len(summary.Errors),
		)
		for _, msg := range summary.Errors {
			logger.Warn("bill not generated", "detail", msg)
		}
		return nil
	}, nil
}

func remindCmd(logger *slog.Logger) func(context.Context, *billing.Engine) error {
	return func(ctx context.Context, eng *billing.Engine) error {
		due, err := eng.SendDueReminders(ctx)
		if err != nil {
			return fmt.Errorf("due reminders: %w", err)
		}
		overdue, err := eng.SendOverdueReminders(ctx)
		if err != nil {
			return fmt.Errorf("overdue reminders: %w", err)
		}
		logger.Info("reminders queued", "due", due, "overdue", overdue)
		return nil
	}
}
