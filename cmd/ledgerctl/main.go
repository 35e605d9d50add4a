// ledgerctl is the operator CLI for the mobility finance ledger.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mobility-finance/ledger-backend/internal/app"
	"mobility-finance/ledger-backend/internal/config"
	"mobility-finance/ledger-backend/internal/gateway"
	"mobility-finance/ledger-backend/internal/ledger"
	"mobility-finance/ledger-backend/internal/logger"
	"mobility-finance/ledger-backend/internal/statements"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
)

var (
	cfg *config.Config
	log *zap.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "ledgerctl",
	Short:         "Operate the mobility finance ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		var err error
		cfg, err = config.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		log, err = logger.New(cfg.Logging)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "config.json", "config file path")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(statementCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ledgerctl %s (%s)\n", version, commit)
	},
}

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Print the state digest of every contract",
	RunE: func(cmd *cobra.Command, args []string) error {
		ledgerApp, err := app.New(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer ledgerApp.Close()

		digest, err := ledger.Digest(cmd.Context(), ledgerApp.Store, ledgerApp.Contracts.Names()...)
		if err != nil {
			return err
		}
		fmt.Println(digest)
		return nil
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Rebuild state from the journal and print its digest",
	Long: `Replays every journaled transaction in sequence order against an
empty in-memory store. With --verify the result is compared against the
digest of the configured store and a mismatch exits non-zero.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ledgerApp, err := app.New(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer ledgerApp.Close()

		replayer, err := ledgerApp.Replayer()
		if err != nil {
			return err
		}
		res, err := replayer.Replay(ctx)
		if err != nil {
			return err
		}

		out := map[string]any{
			"records":  res.Records,
			"last_seq": res.LastSeq,
			"digest":   res.Digest,
		}

		verify, _ := cmd.Flags().GetBool("verify")
		if verify {
			live, err := ledger.Digest(ctx, ledgerApp.Store, ledgerApp.Contracts.Names()...)
			if err != nil {
				return err
			}
			out["live_digest"] = live
			out["match"] = live == res.Digest
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
		if verify && out["match"] == false {
			return errors.New("replayed state does not match the live store")
		}
		return nil
	},
}

func init() {
	replayCmd.Flags().Bool("verify", false, "compare the replayed digest with the live store")
}

var tokenCmd = &cobra.Command{
	Use:   "token [principal]",
	Short: "Issue an API token for a principal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Security.JWTSecret == "" {
			return errors.New("security.jwt_secret is not configured")
		}
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if ttl <= 0 {
			ttl = cfg.Security.TokenTTL
		}

		token, err := gateway.NewTokenManager(cfg.Security.JWTSecret, ttl).Issue(ledger.Address(args[0]), role)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("role", "", "role claim")
	tokenCmd.Flags().Duration("ttl", 0, "token lifetime (default security.token_ttl)")
}

var statementCmd = &cobra.Command{
	Use:   "statement",
	Short: "Export an investor payout statement",
	Long: `Renders the payouts of one distribution (--distribution) or of every
distribution of an asset (--asset) as csv, xlsx or pdf. Output goes to
stdout unless --out is given. --archive uploads the document to the
configured statements bucket instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		distID, _ := cmd.Flags().GetString("distribution")
		assetID, _ := cmd.Flags().GetString("asset")
		if (distID == "") == (assetID == "") {
			return errors.New("exactly one of --distribution or --asset is required")
		}
		formatName, _ := cmd.Flags().GetString("format")
		format, err := statements.ParseFormat(formatName)
		if err != nil {
			return err
		}

		ledgerApp, err := app.New(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer ledgerApp.Close()

		svc := statements.NewService(ledgerApp.Contracts.Revenue, ledger.SystemClock{})
		var st *statements.Statement
		if distID != "" {
			st, err = svc.ForDistribution(ctx, ledger.Symbol(distID))
		} else {
			st, err = svc.ForAsset(ctx, ledger.Symbol(assetID))
		}
		if err != nil {
			return err
		}

		if archive, _ := cmd.Flags().GetBool("archive"); archive {
			name := "distribution_" + distID
			if assetID != "" {
				name = "asset_" + assetID
			}
			store, err := statements.NewS3Archive(ctx, cfg.Statements)
			if err != nil {
				return err
			}
			archived, err := store.Store(ctx, name, format, st)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(archived)
		}

		out := cmd.OutOrStdout()
		if path, _ := cmd.Flags().GetString("out"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		return statements.Render(out, format, st)
	},
}

func init() {
	statementCmd.Flags().String("distribution", "", "distribution id")
	statementCmd.Flags().String("asset", "", "asset id")
	statementCmd.Flags().String("format", "csv", "output format (csv, xlsx, pdf)")
	statementCmd.Flags().String("out", "", "output file (default stdout)")
	statementCmd.Flags().Bool("archive", false, "upload to statements.bucket and print a download link")
}
