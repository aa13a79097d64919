// papertrader is a command line paper trading simulator backed by the
// Alpha Vantage market data API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/papertrader/papertrader/internal/clients/alphavantage"
	"github.com/papertrader/papertrader/internal/common"
	"github.com/papertrader/papertrader/internal/interfaces"
	"github.com/papertrader/papertrader/internal/services/trading"
	"github.com/papertrader/papertrader/internal/services/watchlist"
	"github.com/papertrader/papertrader/internal/storage"
)

var configPath string

// app holds the wired services shared by all subcommands.
type app struct {
	config  *common.Config
	logger  *common.Logger
	kv      storage.KVStore
	quotes  interfaces.QuoteClient
	trader  *trading.Service
	watcher *watchlist.Service
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "papertrader",
		Short:         "Simulated stock trading with live market data",
		Version:       common.GetFullVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	root.AddCommand(
		newSearchCmd(),
		newQuoteCmd(),
		newBuyCmd(),
		newSellCmd(),
		newPortfolioCmd(),
		newHistoryCmd(),
		newWatchCmd(),
		newResetCmd(),
	)
	return root
}

// newApp loads configuration and wires storage, the quote client and both
// services. Callers must Close the returned app.
func newApp(ctx context.Context) (*app, error) {
	config, err := common.LoadConfig("papertrader.toml", configPath)
	if err != nil {
		return nil, err
	}

	logger := common.NewLogger(config.Logging.Level)

	kv, err := storage.NewFileStore(logger, config.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data directory: %w", err)
	}

	av := config.Clients.AlphaVantage
	quotes := alphavantage.NewClient(av.APIKey,
		alphavantage.WithBaseURL(av.BaseURL),
		alphavantage.WithRateLimit(av.RateLimit),
		alphavantage.WithQuoteTimeout(av.GetTimeout()),
		alphavantage.WithLogger(logger),
	)

	ledgerStore := storage.NewLedgerStore(kv, logger, config.Trading.StartingCash)
	watchStore := storage.NewWatchlistStore(ctx, kv, logger)

	return &app{
		config:  config,
		logger:  logger,
		kv:      kv,
		quotes:  quotes,
		trader:  trading.NewService(ctx, ledgerStore, quotes, logger),
		watcher: watchlist.NewService(watchStore, quotes, logger),
	}, nil
}

func (a *app) Close() {
	if err := a.kv.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("failed to close store")
	}
}

// runWithApp wraps a subcommand body with app construction and teardown.
func runWithApp(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd.Context(), a, args)
	}
}

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search for stock symbols",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
			matches, err := a.quotes.Search(ctx, args[0])
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				fmt.Println("no matches")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SYMBOL\tNAME\tREGION\tCURRENCY")
			for _, m := range matches {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.Symbol, m.Name, m.Region, m.Currency)
			}
			return w.Flush()
		}),
	}
}

func newQuoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quote <symbol>...",
		Short: "Fetch current quotes",
		Args:  cobra.MinimumNArgs(1),
		RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
			for _, symbol := range args {
				stock, err := a.quotes.Quote(ctx, symbol)
				if err != nil {
					fmt.Printf("%s: %v\n", symbol, err)
					continue
				}
				fmt.Printf("%s  %s  %s (%s)\n",
					stock.Symbol, stock.FormattedPrice(), stock.FormattedChange(), stock.FormattedPercentChange())
			}
			return nil
		}),
	}
}

func parseQuantity(arg string) (int, error) {
	quantity, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q", arg)
	}
	return quantity, nil
}

func newBuyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "buy <symbol> <quantity>",
		Short: "Buy shares at the current market price",
		Args:  cobra.ExactArgs(2),
		RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
			quantity, err := parseQuantity(args[1])
			if err != nil {
				return err
			}
			result := a.trader.Buy(ctx, args[0], quantity)
			fmt.Println(result.Message())
			if !result.IsSuccess() {
				os.Exit(1)
			}
			return nil
		}),
	}
}

func newSellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sell <symbol> <quantity>",
		Short: "Sell shares at the current market price",
		Args:  cobra.ExactArgs(2),
		RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
			quantity, err := parseQuantity(args[1])
			if err != nil {
				return err
			}
			result := a.trader.Sell(ctx, args[0], quantity)
			fmt.Println(result.Message())
			if !result.IsSuccess() {
				os.Exit(1)
			}
			return nil
		}),
	}
}

func newPortfolioCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Show cash, holdings and performance",
		Args:  cobra.NoArgs,
		RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
			if refresh {
				a.trader.RefreshPrices(ctx)
			}
			ledger := a.trader.Snapshot()

			fmt.Printf("Cash:        $%.2f\n", ledger.CashBalance)
			fmt.Printf("Invested:    $%.2f\n", ledger.TotalInvested)
			fmt.Printf("Stock value: $%.2f\n", ledger.TotalStockValue())
			fmt.Printf("Total value: $%.2f\n", ledger.TotalValue())
			fmt.Printf("Gain/loss:   $%.2f (%.2f%%)\n\n", ledger.TotalGainLoss(), ledger.TotalGainLossPercent())

			if len(ledger.Holdings) == 0 {
				fmt.Println("no holdings")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SYMBOL\tSHARES\tAVG COST\tPRICE\tVALUE\tGAIN/LOSS")
			for _, h := range ledger.Holdings {
				fmt.Fprintf(w, "%s\t%d\t$%.2f\t$%.2f\t$%.2f\t$%.2f (%.2f%%)\n",
					h.Symbol, h.Shares, h.AverageCost, h.CurrentPrice,
					h.CurrentValue(), h.GainLoss(), h.GainLossPercent())
			}
			return w.Flush()
		}),
	}
	cmd.Flags().BoolVarP(&refresh, "refresh", "r", false, "refresh prices before showing")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent transactions",
		Args:  cobra.NoArgs,
		RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
			transactions := a.trader.History(limit)
			if len(transactions) == 0 {
				fmt.Println("no transactions")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tKIND\tSYMBOL\tSHARES\tPRICE\tTOTAL")
			for _, t := range transactions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t$%.2f\t$%.2f\n",
					t.Timestamp.Format("2006-01-02 15:04"), t.Kind, t.Symbol, t.Quantity, t.Price, t.TotalAmount())
			}
			return w.Flush()
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of transactions to show")
	return cmd
}

func newWatchCmd() *cobra.Command {
	watch := &cobra.Command{
		Use:   "watch",
		Short: "Manage the watchlist",
	}

	watch.AddCommand(&cobra.Command{
		Use:   "add <symbol>",
		Short: "Add a stock to the watchlist",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
			stock, err := a.watcher.Add(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("added %s at %s\n", stock.Symbol, stock.FormattedPrice())
			return nil
		}),
	})

	watch.AddCommand(&cobra.Command{
		Use:   "remove <symbol>",
		Short: "Remove a stock from the watchlist",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
			a.watcher.Remove(ctx, args[0])
			fmt.Printf("removed %s\n", args[0])
			return nil
		}),
	})

	watch.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show watched stocks",
		Args:  cobra.NoArgs,
		RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
			return printWatchlist(a)
		}),
	})

	watch.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Refresh watchlist prices",
		Args:  cobra.NoArgs,
		RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
			a.watcher.Refresh(ctx)
			return printWatchlist(a)
		}),
	})

	return watch
}

func printWatchlist(a *app) error {
	stocks := a.watcher.List()
	if len(stocks) == 0 {
		fmt.Println("watchlist is empty")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tNAME\tPRICE\tCHANGE")
	for _, s := range stocks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s (%s)\n",
			s.Symbol, s.CompanyName, s.FormattedPrice(), s.FormattedChange(), s.FormattedPercentChange())
	}
	return w.Flush()
}

func newResetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset the account to its starting cash balance",
		Args:  cobra.NoArgs,
		RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset without --yes")
			}
			a.trader.Reset(ctx, a.config.Trading.StartingCash)
			fmt.Printf("account reset to $%.2f\n", a.config.Trading.StartingCash)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
