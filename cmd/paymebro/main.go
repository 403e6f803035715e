// Command paymebro runs the payment Monitor Loop and, optionally, a
// minimal HTTP surface for health/metrics — the process entrypoint for the
// Payment Monitor & Transaction Constructor, cobra/viper-wired the way the
// teacher's services/payments/cmd package wires its own subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func init() {
	for _, flag := range []struct {
		name, def, usage, env string
	}{
		{"rpc-endpoint", "https://api.mainnet-beta.solana.com", "Solana-compatible RPC endpoint", "RPC_ENDPOINT"},
		{"database-url", "", "Postgres connection string", "DATABASE_URL"},
		{"migrations-path", "file://migrations", "golang-migrate source URL", "MIGRATIONS_PATH"},
		{"redis-addr", "127.0.0.1:6379", "Redis address for live-notification fan-out", "REDIS_ADDR"},
		{"webhook-endpoint", "", "URL notified on payment.confirmed", "WEBHOOK_ENDPOINT"},
		{"http-addr", ":8080", "address for the health/metrics HTTP surface", "HTTP_ADDR"},
		{"sentry-dsn", "", "Sentry DSN for critical-error reporting (disabled if empty)", "SENTRY_DSN"},
	} {
		rootCmd.PersistentFlags().String(flag.name, flag.def, flag.usage)
		must(viper.BindPFlag(flag.name, rootCmd.PersistentFlags().Lookup(flag.name)))
		must(viper.BindEnv(flag.name, flag.env))
	}

	for _, flag := range []struct {
		name string
		def  int
		usage, env string
	}{
		{"batch-size", 50, "max pending payments fetched per monitor cycle", "MONITOR_BATCH_SIZE"},
		{"max-concurrency", 8, "max payments checked concurrently per cycle", "MONITOR_MAX_CONCURRENCY"},
	} {
		rootCmd.PersistentFlags().Int(flag.name, flag.def, flag.usage)
		must(viper.BindPFlag(flag.name, rootCmd.PersistentFlags().Lookup(flag.name)))
		must(viper.BindEnv(flag.name, flag.env))
	}

	rootCmd.PersistentFlags().Bool("fallback-enabled", false, "enable the native-path fallback (operator opt-in; advisory, never silent)")
	must(viper.BindPFlag("fallback-enabled", rootCmd.PersistentFlags().Lookup("fallback-enabled")))
	must(viper.BindEnv("fallback-enabled", "MONITOR_FALLBACK_ENABLED"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(migrateCmd)
}

var rootCmd = &cobra.Command{
	Use:   "paymebro",
	Short: "Solana-compatible payment monitor and transaction constructor",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
