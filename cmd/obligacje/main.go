// Command obligacje automates the treasury-bond brokerage account:
// login with push-notification two-factor codes, portfolio and catalog
// listings, guarded purchases, disposition history and issuance
// documents.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mpapierski/obligacjeskarbowe/internal/client"
	"github.com/mpapierski/obligacjeskarbowe/internal/config"
	"github.com/mpapierski/obligacjeskarbowe/internal/documents"
	"github.com/mpapierski/obligacjeskarbowe/internal/family"
	"github.com/mpapierski/obligacjeskarbowe/internal/protocol"
	"github.com/mpapierski/obligacjeskarbowe/internal/report"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "obligacje",
	Short: "Automates the zakup.obligacjeskarbowe.pl retail bond account",
	Long: `obligacje drives the treasury retail bond brokerage through its web
interface: portfolio and catalog listings, disposition history, document
retrieval and guarded bond purchases. One-time login codes are read from
an ntfy.sh topic.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		switch lvl, _ := cmd.Flags().GetString("log-level"); lvl {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		configFile, _ := cmd.Flags().GetString("config")
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ~/.config/obligacjeskarbowe.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(portfolioCmd)
	rootCmd.AddCommand(bondsCmd)
	rootCmd.AddCommand(buyCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(requireBalanceCmd)
	rootCmd.AddCommand(documentsCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(familyCmd)
}

// newClient builds a brokerage client from the loaded config.
func newClient() (*client.Client, error) {
	if err := cfg.ValidateLogin(); err != nil {
		return nil, err
	}
	return client.New(client.Options{
		BaseURL:     cfg.BaseURL,
		Username:    cfg.Username,
		Password:    cfg.Password,
		NtfyTopic:   cfg.NtfyTopic,
		SessionPath: cfg.SessionPath,
		Logger:      logger,
	})
}

// withSession runs fn inside a logged-in session and logs out afterwards.
func withSession(cmd *cobra.Command, fn func(*client.Client) error) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if err := c.Login(ctx); err != nil {
		return err
	}
	defer func() {
		if err := c.Logout(ctx); err != nil {
			logger.Warn("logout failed", "error", err)
		}
	}()
	return fn(c)
}

// --- Version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("obligacje %s (%s)\n", version, commit)
	},
}

// --- Login / Logout ---

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and persist the session for later commands",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		// The code stream has no timeout of its own; bound the whole
		// login, including the wait for the human-approved code, here.
		timeout, _ := cmd.Flags().GetDuration("timeout")
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		if err := c.Login(ctx); err != nil {
			return err
		}
		fmt.Println("Logged in.")
		return nil
	},
}

func init() {
	loginCmd.Flags().Duration("timeout", 2*time.Minute, "overall login deadline, including the one-time code wait")
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and discard the persisted session",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Logout(cmd.Context()); err != nil && !errors.Is(err, protocol.ErrNotLoggedIn) {
			return err
		}
		return nil
	},
}

// --- Portfolio ---

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "List owned bonds with a totals row",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(c *client.Client) error {
			bonds, err := c.ListPortfolio(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println("Obligacje:")
			return report.Portfolio(os.Stdout, bonds)
		})
	},
}

// --- Bonds (catalog) ---

var bondsCmd = &cobra.Command{
	Use:   "bonds",
	Short: "List all currently purchasable bond issues",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(c *client.Client) error {
			catalog, err := c.ListBonds(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println("Zakup - dostępne emisje obligacji")
			fmt.Printf("Saldo środków pieniężnych: %s\n", catalog.Balance)
			if catalog.FamilyNominal != nil {
				fmt.Printf("Wartość nominalna obligacji zakupionych w ramach programów wsparcia rodziny: %s\n", *catalog.FamilyNominal)
			}
			return report.Catalog(os.Stdout, catalog.Bonds)
		})
	},
}

// --- Buy ---

var buyCmd = &cobra.Command{
	Use:   "buy [symbol]",
	Short: `Buy the newest issue matching a symbol prefix, e.g. "ROD"`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol := strings.ToUpper(args[0])
		units, _ := cmd.Flags().GetInt("amount")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		force, _ := cmd.Flags().GetBool("force")

		return withSession(cmd, func(c *client.Client) error {
			if dryRun {
				catalog, err := c.ListBonds(cmd.Context())
				if err != nil {
					return err
				}
				for _, bond := range catalog.Bonds {
					if strings.HasPrefix(bond.IssueCode, symbol) {
						fmt.Printf("Would buy %d × %s at %s%%\n", units, bond.IssueCode, bond.Rate.StringFixed(2))
						return nil
					}
				}
				return fmt.Errorf("symbol %s not found", symbol)
			}
			receipt, err := c.Purchase(cmd.Context(), symbol, units, force)
			if err != nil {
				return err
			}
			fmt.Printf("Purchased %d × %s, accepted at %s\n",
				receipt.Units, receipt.IssueCode, receipt.AcceptedAt.Format("2006-01-02 15:04:05"))
			return nil
		})
	},
}

func init() {
	buyCmd.Flags().Int("amount", 1, "number of bonds to buy")
	buyCmd.Flags().Bool("dry-run", false, "resolve the symbol but do not place an order")
	buyCmd.Flags().Bool("force", false, "skip the insufficient-funds check")
}

// --- History ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List dispositions on the account",
	RunE: func(cmd *cobra.Command, args []string) error {
		fromFlag, _ := cmd.Flags().GetString("from-date")
		toFlag, _ := cmd.Flags().GetString("to-date")
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		to := time.Now()
		from := to.AddDate(0, -3, 0)
		var err error
		if fromFlag != "" {
			if from, err = time.Parse("2006-01-02", fromFlag); err != nil {
				return fmt.Errorf("invalid --from-date: %w", err)
			}
		}
		if toFlag != "" {
			if to, err = time.Parse("2006-01-02", toFlag); err != nil {
				return fmt.Errorf("invalid --to-date: %w", err)
			}
		}

		return withSession(cmd, func(c *client.Client) error {
			entries, err := c.History(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			out := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			switch format {
			case "":
				return report.History(out, entries)
			case "csv":
				return report.HistoryCSV(out, entries)
			case "json":
				return report.HistoryJSON(out, entries)
			default:
				return fmt.Errorf("unknown format %q (want csv or json)", format)
			}
		})
	},
}

func init() {
	historyCmd.Flags().String("from-date", "", "start date YYYY-MM-DD (default: 3 months ago)")
	historyCmd.Flags().String("to-date", "", "end date YYYY-MM-DD (default: today)")
	historyCmd.Flags().String("format", "", "export format: csv or json (default: table)")
	historyCmd.Flags().String("output", "", "write to file instead of stdout")
}

// --- Require balance ---

var requireBalanceCmd = &cobra.Command{
	Use:   "require-balance [amount]",
	Short: "Exit non-zero unless the cash balance equals the given amount",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		want, err := decimal.NewFromString(args[0])
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", args[0], err)
		}
		return withSession(cmd, func(c *client.Client) error {
			balance, err := c.Balance(cmd.Context())
			if err != nil {
				return err
			}
			if !balance.Amount.Equal(want) {
				return fmt.Errorf("balance is %s, expected %s %s", balance, want.StringFixed(2), balance.Currency)
			}
			return nil
		})
	},
}

// --- Documents ---

var documentsCmd = &cobra.Command{
	Use:   "documents [code...]",
	Short: "Download letters of issue for the given issue codes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		codes := make([]string, len(args))
		for i, arg := range args {
			codes[i] = strings.ToUpper(arg)
		}
		svc := documents.NewService(logger)
		if err := svc.DownloadAll(cmd.Context(), codes, dir); err != nil {
			return err
		}
		fmt.Printf("Saved %d document(s) to %s\n", len(codes), dir)
		return nil
	},
}

func init() {
	documentsCmd.Flags().String("dir", ".", "directory to save documents into")
}

// --- News ---

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Show the latest bond issuance announcements",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		svc := documents.NewService(logger)
		items, err := svc.Announcements(cmd.Context(), limit)
		if err != nil {
			return err
		}
		for _, item := range items {
			fmt.Printf("%s  %s\n    %s\n", item.Published.Format("2006-01-02"), item.Title, item.Link)
		}
		return nil
	},
}

func init() {
	newsCmd.Flags().Int("limit", 10, "maximum number of announcements")
}

// --- Family benefit ---

var familyCmd = &cobra.Command{
	Use:   "family",
	Short: "Compute accumulated family benefit and remaining family-bond capacity",
	Long: `Computes the "Rodzina 800+" benefit accumulated for the children listed
in the config file, then compares it with the nominal value of family
bonds already purchased to tell how many more 100 PLN units the benefit
covers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(cfg.Kids) == 0 {
			return errors.New("no kids configured; add a kids: list to the config file")
		}
		children := make([]family.Child, 0, len(cfg.Kids))
		for _, kid := range cfg.Kids {
			birth, err := time.Parse("2006-01-02", kid.BirthDate)
			if err != nil {
				return fmt.Errorf("kid %q: invalid birth_date: %w", kid.Name, err)
			}
			children = append(children, family.Child{Name: kid.Name, BirthDate: birth})
		}
		summary := family.TotalCompensation(children, time.Now())
		for _, child := range summary.Children {
			fmt.Printf("%s: %s PLN (500+ months: %d, 800+ months: %d, first month: %s PLN)\n",
				child.Name, child.Total.StringFixed(2), child.Months500, child.Months800,
				child.FirstMonth.StringFixed(2))
		}
		fmt.Printf("Total compensation: %s PLN\n", summary.Total.StringFixed(2))

		offline, _ := cmd.Flags().GetBool("offline")
		if offline {
			return nil
		}
		return withSession(cmd, func(c *client.Client) error {
			catalog, err := c.ListBonds(cmd.Context())
			if err != nil {
				return err
			}
			if catalog.FamilyNominal == nil {
				return errors.New("the family catalog page did not report a purchased nominal value")
			}
			units := family.AvailableBonds(summary.Total, catalog.FamilyNominal.Amount)
			fmt.Printf("Family bonds purchased so far: %s\n", *catalog.FamilyNominal)
			fmt.Printf("Units still covered by the benefit: %d\n", units)
			return nil
		})
	},
}

func init() {
	familyCmd.Flags().Bool("offline", false, "only compute the benefit, do not query the brokerage")
}
