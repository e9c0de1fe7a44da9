package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"goldwallet/internal/ledger"
	"goldwallet/internal/market"
	"goldwallet/internal/valuation"
	"goldwallet/internal/wallet"
	"goldwallet/types"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultAPIURL   = "http://localhost:5000"
	defaultCacheTTL = 5 * time.Minute
)

const usageText = `goldwallet <command> [flags]

commands:
  show               load market data and print the full portfolio
  txs <asset>        list the ledger transactions of one asset
  assets             list the tradeable assets quoted by the backend
  price <asset>      print the current price (-sell for the selling price)
  add                add a transaction (-asset -amount [-price] [-sell] [-date])
  update <id>        replace a transaction (same flags as add)
  rm <id>            delete one transaction
  rm-asset <asset>   delete a whole position

environment:
  WALLET_API_URL      backend base URL (default ` + defaultAPIURL + `)
  WALLET_LEDGER_FILE  ledger file path (default ~/.goldwallet/transactions.json)
  WALLET_DB_URL       when set, use Postgres instead of the ledger file
  WALLET_LOAD_TIMEOUT bound on one load cycle, e.g. 10s
`

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}

	ctx := context.Background()
	svc, closeStore, err := buildService(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer closeStore()

	if err := dispatch(ctx, svc, os.Args[1], os.Args[2:]); err != nil {
		// Show the failure message verbatim; the user retries by rerunning.
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildService(ctx context.Context, log zerolog.Logger) (*wallet.Service, func(), error) {
	apiURL := envOr("WALLET_API_URL", defaultAPIURL)
	timeout := wallet.DefaultLoadTimeout
	if raw := os.Getenv("WALLET_LOAD_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("WALLET_LOAD_TIMEOUT: %w", err)
		}
		timeout = d
	}

	var store ledger.Store
	closeStore := func() {}
	if dbURL := os.Getenv("WALLET_DB_URL"); dbURL != "" {
		pg, err := ledger.NewPGStore(ctx, dbURL)
		if err != nil {
			return nil, nil, err
		}
		store = pg
		closeStore = pg.Close
	} else {
		fs, err := ledger.NewFileStore(ledgerPath())
		if err != nil {
			return nil, nil, err
		}
		store = fs
	}

	client := market.NewClient(apiURL, nil, market.NewCache(defaultCacheTTL), log)
	return wallet.NewService(store, client, log, wallet.NewConfig(timeout)), closeStore, nil
}

func ledgerPath() string {
	if path := os.Getenv("WALLET_LEDGER_FILE"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "transactions.json"
	}
	return filepath.Join(home, ".goldwallet", "transactions.json")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func dispatch(ctx context.Context, svc *wallet.Service, cmd string, args []string) error {
	switch cmd {
	case "show":
		return runShow(ctx, svc)
	case "txs":
		if len(args) < 1 {
			return fmt.Errorf("usage: goldwallet txs <asset>")
		}
		return runTxs(ctx, svc, args[0])
	case "assets":
		return runAssets(ctx, svc)
	case "price":
		return runPrice(ctx, svc, args)
	case "add":
		return runAdd(ctx, svc, args)
	case "update":
		return runUpdate(ctx, svc, args)
	case "rm":
		if len(args) < 1 {
			return fmt.Errorf("usage: goldwallet rm <id>")
		}
		return svc.DeleteTransaction(ctx, args[0])
	case "rm-asset":
		if len(args) < 1 {
			return fmt.Errorf("usage: goldwallet rm-asset <asset>")
		}
		return svc.DeleteAsset(ctx, args[0])
	default:
		fmt.Fprint(os.Stderr, usageText)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runShow(ctx context.Context, svc *wallet.Service) error {
	view, err := svc.LoadData(ctx)
	if err != nil {
		return err
	}
	byAsset := valuation.GroupByAsset(view.Transactions)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Asset", "Net Amount", "Avg Buy", "Profit", "Day %"})
	for _, asset := range view.Assets {
		dayPct := "-"
		if pct, ok := view.Percentages[market.NormalizeAsset(asset)]; ok {
			dayPct = pct.Selling.StringFixed(2)
		}
		table.Append([]string{
			asset,
			valuation.NetAmount(byAsset[asset]).String(),
			view.AveragePrices[asset].StringFixed(2),
			view.Profits[asset].StringFixed(2),
			dayPct,
		})
	}
	table.SetFooter([]string{"", "", "", "Total", view.TotalValue.StringFixed(2)})
	table.Render()
	return nil
}

func runTxs(ctx context.Context, svc *wallet.Service, asset string) error {
	txs, err := svc.TransactionsForAsset(ctx, asset)
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Type", "Amount", "Price", "Date"})
	for _, tx := range txs {
		table.Append([]string{tx.ID, string(tx.Type), tx.Amount.String(), tx.Price.String(), tx.Date})
	}
	table.Render()
	return nil
}

func runAssets(ctx context.Context, svc *wallet.Service) error {
	if _, err := svc.LoadData(ctx); err != nil {
		return err
	}
	for _, asset := range svc.AvailableAssets() {
		fmt.Println(asset)
	}
	return nil
}

func runPrice(ctx context.Context, svc *wallet.Service, args []string) error {
	fs := flag.NewFlagSet("price", flag.ExitOnError)
	sell := fs.Bool("sell", false, "print the selling price instead of the buying price")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: goldwallet price [-sell] <asset>")
	}
	if _, err := svc.LoadData(ctx); err != nil {
		return err
	}
	fmt.Println(svc.CurrentPrice(fs.Arg(0), !*sell).StringFixed(2))
	return nil
}

type txFlags struct {
	asset  string
	amount string
	price  string
	sell   bool
	date   string
}

func bindTxFlags(fs *flag.FlagSet) *txFlags {
	f := &txFlags{}
	fs.StringVar(&f.asset, "asset", "", "asset name, e.g. \"Gram Altın\"")
	fs.StringVar(&f.amount, "amount", "", "transaction amount")
	fs.StringVar(&f.price, "price", "", "unit price; defaults to the current market price")
	fs.BoolVar(&f.sell, "sell", false, "record a sell instead of a buy")
	fs.StringVar(&f.date, "date", "", "ISO-8601 timestamp; defaults to now")
	return f
}

func (f *txFlags) transaction(ctx context.Context, svc *wallet.Service) (types.Transaction, error) {
	typ := types.Buy
	if f.sell {
		typ = types.Sell
	}
	amount, err := decimal.NewFromString(f.amount)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("amount: %w", err)
	}

	var price decimal.Decimal
	if f.price != "" {
		price, err = decimal.NewFromString(f.price)
		if err != nil {
			return types.Transaction{}, fmt.Errorf("price: %w", err)
		}
	} else {
		// Pre-fill from the live quote, like the entry form does.
		if _, err := svc.LoadData(ctx); err != nil {
			return types.Transaction{}, err
		}
		price = svc.CurrentPrice(f.asset, typ == types.Buy)
	}

	date := f.date
	if date == "" {
		date = time.Now().UTC().Format(time.RFC3339)
	}
	return types.NewTransaction(f.asset, typ, amount, price, date), nil
}

func runAdd(ctx context.Context, svc *wallet.Service, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	f := bindTxFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	tx, err := f.transaction(ctx, svc)
	if err != nil {
		return err
	}
	stored, err := svc.AddTransaction(ctx, tx)
	if err != nil {
		return err
	}
	fmt.Println(stored.ID)
	return nil
}

func runUpdate(ctx context.Context, svc *wallet.Service, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: goldwallet update <id> [flags]")
	}
	id := args[0]
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	f := bindTxFlags(fs)
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	tx, err := f.transaction(ctx, svc)
	if err != nil {
		return err
	}
	return svc.UpdateTransaction(ctx, id, tx)
}
