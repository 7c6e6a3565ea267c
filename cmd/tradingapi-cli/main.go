package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paaliaq/tradingapi/internal/broker"
	"github.com/paaliaq/tradingapi/internal/broker/alpaca"
	"github.com/paaliaq/tradingapi/internal/broker/ibgw"
	"github.com/paaliaq/tradingapi/internal/broker/sim"
	"github.com/paaliaq/tradingapi/internal/config"
	"github.com/paaliaq/tradingapi/internal/util"
)

const version = "0.1.0"

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: tradingapi-cli [options] <command>\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  version      Print the CLI version\n")
	fmt.Fprintf(os.Stderr, "  account      Show the trading account\n")
	fmt.Fprintf(os.Stderr, "  clock        Show the market clock\n")
	fmt.Fprintf(os.Stderr, "  calendar     Show trading days (-start, -end)\n")
	fmt.Fprintf(os.Stderr, "  orders       List orders (-status)\n")
	fmt.Fprintf(os.Stderr, "  positions    List open positions\n")
	fmt.Fprintf(os.Stderr, "  close-all    Liquidate every open position\n")
	fmt.Fprintf(os.Stderr, "\nOptions:\n")
	flag.PrintDefaults()
}

func main() {
	var (
		cfgPath    = flag.String("config", "config/tradingapi.yaml", "path to configuration file")
		brokerName = flag.String("broker", "sim", "broker to use: alpaca, ibgw, or sim")
		status     = flag.String("status", "open", "order status filter: open, closed, or all")
		startStr   = flag.String("start", "", "calendar range start (YYYY-MM-DD)")
		endStr     = flag.String("end", "", "calendar range end (YYYY-MM-DD)")
	)
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}
	command := flag.Arg(0)

	if command == "version" {
		fmt.Printf("tradingapi-cli %s\n", version)
		return
	}

	if p := os.Getenv("TRADINGAPI_CONFIG"); p != "" {
		*cfgPath = p
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	b, err := newBroker(*brokerName, cfg)
	if err != nil {
		log.Fatalf("failed to create broker: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, b, command, *status, *startStr, *endStr); err != nil {
		log.Fatalf("%s: %v", command, err)
	}
}

func newBroker(name string, cfg *config.Config) (broker.Broker, error) {
	switch name {
	case "alpaca":
		return alpaca.New(cfg.AlpacaSettings())
	case "ibgw":
		return ibgw.New(cfg.IBSettings())
	case "sim":
		return sim.New(cfg.SimSettings())
	default:
		return nil, fmt.Errorf("unknown broker %q (want alpaca, ibgw, or sim)", name)
	}
}

func run(ctx context.Context, b broker.Broker, command, status, startStr, endStr string) error {
	switch command {
	case "account":
		acct, err := b.GetAccount(ctx)
		if err != nil {
			return err
		}
		return printJSON(acct)

	case "clock":
		clock, err := b.GetClock(ctx)
		if err != nil {
			return err
		}
		return printJSON(clock)

	case "calendar":
		start, end, err := calendarRange(startStr, endStr)
		if err != nil {
			return err
		}
		days, err := b.GetTradingDays(ctx, start, end)
		if err != nil {
			return err
		}
		return printJSON(days)

	case "orders":
		orders, err := b.ListOrders(ctx, broker.ListOrdersFilter{Status: status})
		if err != nil {
			return err
		}
		return printJSON(orders)

	case "positions":
		positions, err := b.ListPositions(ctx)
		if err != nil {
			return err
		}
		return printJSON(positions)

	case "close-all":
		results, err := b.CloseAllPositions(ctx)
		if err != nil {
			return err
		}
		return printJSON(results)

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func calendarRange(startStr, endStr string) (time.Time, time.Time, error) {
	now := time.Now()
	start, end := now, now.AddDate(0, 0, 7)

	var err error
	if startStr != "" {
		if start, err = time.Parse("2006-01-02", startStr); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("bad -start: %w", err)
		}
	}
	if endStr != "" {
		if end, err = time.Parse("2006-01-02", endStr); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("bad -end: %w", err)
		}
	}
	return start, end, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
