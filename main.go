package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"bazaar-flipper/internal/api"
	"bazaar-flipper/internal/bazaar"
	"bazaar-flipper/internal/catalog"
	"bazaar-flipper/internal/config"
	"bazaar-flipper/internal/db"
	"bazaar-flipper/internal/engine"
	"bazaar-flipper/internal/logger"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "flipper.toml", "TOML config file (optional)")
	serve := flag.Bool("serve", false, "run the HTTP API instead of a one-shot scan")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	importDir := flag.String("import", "", "build the item catalog from a directory of item JSON files and exit")
	auctions := flag.Bool("auctions", false, "scan the auction house for the cheapest BIN ingredient listings")
	top := flag.Int("top", 0, "number of results to print (overrides config)")
	flag.Parse()

	logger.Banner(version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Config", err.Error())
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Port = *port
	}
	if *top > 0 {
		cfg.TopResults = *top
	}

	if *importDir != "" {
		if err := runImport(*importDir, cfg.CatalogPath); err != nil {
			logger.Error("Import", err.Error())
			os.Exit(1)
		}
		return
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("DB", fmt.Sprintf("Failed to open database: %v", err))
		os.Exit(1)
	}
	defer database.Close()

	client := bazaar.NewClient(bazaar.Options{
		BazaarURL:   cfg.BazaarURL,
		AuctionsURL: cfg.AuctionsURL,
		Timeout:     cfg.HTTPTimeout.Duration,
		SnapshotTTL: cfg.SnapshotTTL.Duration,
		MaxConns:    cfg.AuctionWorkers,
	})
	scanner := engine.NewScanner(client, catalog.FileProvider{Path: cfg.CatalogPath})
	scanner.Auctions = client
	scanner.Params = api.ParamsFromConfig(cfg)

	srv := api.NewServer(cfg, scanner, client, database)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *serve:
		err = runServer(ctx, srv, cfg.Port)
	case *auctions:
		err = runAuctions(ctx, srv)
	default:
		err = runScan(ctx, srv, cfg.TopResults)
	}
	if err != nil {
		logger.Error("Main", err.Error())
		os.Exit(1)
	}
}

func progress(msg string) {
	logger.Info("Scan", msg)
}

func runImport(dir, catalogPath string) error {
	cat, err := catalog.ImportItems(dir)
	if err != nil {
		return err
	}
	if err := cat.Save(catalogPath); err != nil {
		return err
	}
	logger.Success("Import", fmt.Sprintf("Saved %d items to %s", cat.Len(), catalogPath))
	return nil
}

func runScan(ctx context.Context, srv *api.Server, top int) error {
	out, err := srv.RunScan(ctx, progress)
	if err != nil {
		return err
	}
	res := out.Result

	logger.Section("Summary")
	logger.Stats("Tradable items", res.Summary.Count)
	logger.Stats("Craftable", res.Summary.Craftable)
	logger.Stats("Total craft profit", res.Summary.TotalCraftProfit)
	if !res.SnapshotTime.IsZero() {
		logger.Stats("Bazaar updated", humanize.Time(res.SnapshotTime))
	}

	printTop("Top crafts", engine.FilterCraftable(res.Records), top, func(r engine.ProfitRecord) string {
		return fmt.Sprintf("%-32s craft +%s  (cost %s, sells %s)", r.Name,
			humanize.Comma(int64(r.Craft.CraftProfit)),
			humanize.CommafWithDigits(r.Craft.CraftCost, 1),
			humanize.CommafWithDigits(r.SellPrice, 1))
	}, engine.SortByCraftProfit)

	printTop("Top flips", res.Records, top, func(r engine.ProfitRecord) string {
		return fmt.Sprintf("%-32s %s per unit  (buy %s, sell %s, %s/wk)", r.Name,
			humanize.CommafWithDigits(r.Profit, 1),
			humanize.CommafWithDigits(r.BuyPrice, 1),
			humanize.CommafWithDigits(r.SellPrice, 1),
			humanize.Comma(r.WeeklyBuyVolume))
	}, engine.SortByProfit)
	return nil
}

func printTop(title string, records []engine.ProfitRecord, n int, line func(engine.ProfitRecord) string, sortFn func([]engine.ProfitRecord)) {
	sorted := make([]engine.ProfitRecord, len(records))
	copy(sorted, records)
	sortFn(sorted)
	if n > 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	logger.Section(title)
	if len(sorted) == 0 {
		logger.Info("Scan", "none")
		return
	}
	for i, r := range sorted {
		fmt.Printf("  %2d. %s\n", i+1, line(r))
	}
}

func runAuctions(ctx context.Context, srv *api.Server) error {
	out, err := srv.RunAuctionScan(ctx, progress)
	if err != nil {
		return err
	}
	logger.Section("Lowest BIN")
	for _, a := range out.Scan.Lowest {
		fmt.Printf("  %-32s %s\n", a.ItemName, humanize.CommafWithDigits(a.Price, 1))
	}
	return nil
}

func runServer(ctx context.Context, srv *api.Server, port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Server(addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Server", "Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}
