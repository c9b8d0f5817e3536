// Command arbfind runs one scan of the arbitrage/quant-strategy discovery
// engine against an in-memory market data source and prints the ranked
// opportunities and proposed portfolio, grounded on the reference
// architecture's cmd/live_server/main.go startup sequence (flag parsing,
// config load, logger init, telemetry init, graceful shutdown).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"arbfind/internal/config"
	"arbfind/internal/gateway"
	"arbfind/internal/graph"
	"arbfind/internal/obs"
	"arbfind/internal/ports"
	"arbfind/internal/ports/memsource"
	"arbfind/internal/scan"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "configs/arbfind.yaml", "Path to configuration file")
	capitalFlag := flag.Float64("capital", 100_000, "Total capital to allocate, in USD")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("arbfind version %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := obs.NewLogger(cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *obs.Metrics
	if cfg.Telemetry.EnableMetrics {
		serviceName := cfg.Telemetry.ServiceName
		if serviceName == "" {
			serviceName = "arbfind"
		}
		telemetry, err := obs.Setup(serviceName)
		if err != nil {
			logger.Warn("telemetry setup failed, continuing without it", "error", err)
		} else {
			defer telemetry.Shutdown(ctx)
			metrics = obs.NewMetrics(telemetry.Meter("arbfind"))
		}
	}

	source := demoSource()
	gw := gateway.New(source, []ports.MarketDataSource{source}, cfg.GatewayConfig(), ports.SystemClock{}, logger, metrics)

	snapshot, diagnostics := scan.BuildSnapshot(ctx, gw, ports.SystemClock{}, scan.Universe{
		SpotSymbols:   []string{"BTCUSDT", "ETHUSDT"},
		BasisSymbols:  []string{"BTCUSDT"},
		FiatPairs:     [][2]string{{"USDT", "COP"}, {"USDT", "VES"}},
		P2PPairs:      [][2]string{{"USDT", "COP"}},
		HistoryWindow: cfg.Strategy.StatArbWindow,
	})
	for _, d := range diagnostics {
		logger.Warn("snapshot assembly diagnostic", "detail", d)
	}

	pool := graph.NewCyclePool(8, 256, logger)
	defer pool.StopAndWait()

	scanner := scan.NewScanner(cfg, pool, logger, metrics)
	result := scanner.Run(ctx, scan.Request{
		Snapshot:  snapshot,
		Capital:   decimal.NewFromFloat(*capitalFlag),
		Policy:    ports.RankByScore,
		RankLimit: cfg.Scanning.MaxCandidates,
	})

	logger.Info("scan complete",
		"scan_id", result.ScanID,
		"status", result.Status,
		"opportunities", len(result.Opportunities),
		"allocations", len(result.Portfolio.Allocations),
	)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Error("failed to marshal scan result", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

// demoSource seeds a deterministic in-memory MarketDataSource so the binary
// produces output without any live venue credentials. A real deployment
// wires a venue-specific ports.MarketDataSource implementation here.
func demoSource() *memsource.Source {
	now := time.Now()
	return memsource.New("demo-exchange").
		WithTicker(ports.SpotTicker{Symbol: "BTCUSDT", Bid: decimal.NewFromInt(59990), Ask: decimal.NewFromInt(60000), Timestamp: now}).
		WithTicker(ports.SpotTicker{Symbol: "ETHUSDT", Bid: decimal.NewFromFloat(2999.5), Ask: decimal.NewFromInt(3000), Timestamp: now}).
		WithFunding(ports.FundingRateSample{Symbol: "BTCUSDT-PERP", FundingRate: decimal.NewFromFloat(0.0008), MarkPrice: decimal.NewFromInt(60010), IndexPrice: decimal.NewFromInt(60000), NextFundingTime: now.Add(8 * time.Hour), Timestamp: now}).
		WithBasis(ports.FuturesBasis{Symbol: "BTCUSDT", SpotPrice: decimal.NewFromInt(60000), FuturesPrice: decimal.NewFromInt(60450), ExpiryOrPerp: "PERP", Basis: decimal.NewFromFloat(0.0075), Timestamp: now}).
		WithFiat(ports.FiatRate{Base: "USDT", Quote: "COP", Rate: decimal.NewFromInt(4000), Source: "official", Timestamp: now}).
		WithFiat(ports.FiatRate{Base: "USDT", Quote: "VES", Rate: decimal.NewFromFloat(36.5), Source: "official", Timestamp: now}).
		WithP2PAd(ports.P2PAd{Asset: "USDT", Fiat: "COP", Side: ports.P2PBuy, Price: decimal.NewFromInt(4180), MinQty: decimal.NewFromInt(10), MaxQty: decimal.NewFromInt(5000), MerchantScore: decimal.NewFromInt(96), CompletedTrades: 1200, Timestamp: now})
}
