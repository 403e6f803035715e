package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cosmasken/paymebro-backend-sub000/internal/reporting"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "run the payment monitor loop headlessly, without the HTTP surface",
	RunE:  runMonitorOnly,
}

func runMonitorOnly(cmd *cobra.Command, args []string) error {
	defer reporting.Flush()

	ctx := newContext()
	a, err := buildApp(ctx)
	if err != nil {
		reporting.CaptureException(err)
		return err
	}

	notifyCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.monitor.Start(ctx)
	awaitShutdown(notifyCtx, a)
	return nil
}
