package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"kucoin-signal-bot/config"
	"kucoin-signal-bot/internal/tracker"
)

type symbolStats struct {
	Symbol       string
	TotalSignals int
	Wins         int
	Losses       int
	Expired      int
	AvgMaxProfit float64
	AvgMaxLoss   float64
	WinRate      float64
}

func main() {
	days := flag.Int("days", 30, "how many days of history to summarize from the postgres archive")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("================================================================================")
	fmt.Println("📊 SIGNAL PERFORMANCE REPORT")
	fmt.Println("================================================================================")

	store := tracker.NewFileStore(cfg.TrackerConfig.ActiveFile, cfg.TrackerConfig.HistoryFile)
	history, err := store.LoadHistory()
	if err != nil {
		fmt.Printf("❌ Failed to load signal history: %v\n", err)
		os.Exit(1)
	}
	if len(history) == 0 {
		fmt.Println("\nNo completed signals in the history file yet.")
	} else {
		printHistory(history)
	}

	if cfg.PostgresConfig.Enabled && cfg.PostgresConfig.DSN != "" {
		printArchiveSummary(cfg.PostgresConfig.DSN, *days)
	}
}

func printHistory(history []*tracker.TrackedSignal) {
	perSymbol := make(map[string]*symbolStats)
	totalWins, totalLosses, totalExpired := 0, 0, 0

	for _, sig := range history {
		stats, ok := perSymbol[sig.Symbol]
		if !ok {
			stats = &symbolStats{Symbol: sig.Symbol}
			perSymbol[sig.Symbol] = stats
		}
		stats.TotalSignals++
		stats.AvgMaxProfit += sig.MaxProfitPercentage
		stats.AvgMaxLoss += sig.MaxLossPercentage

		switch sig.Status {
		case tracker.StatusTP1Hit, tracker.StatusTP2Hit, tracker.StatusTP3Hit:
			stats.Wins++
			totalWins++
		case tracker.StatusStopLoss:
			stats.Losses++
			totalLosses++
		case tracker.StatusExpired:
			stats.Expired++
			totalExpired++
		}
	}

	ranked := make([]*symbolStats, 0, len(perSymbol))
	for _, stats := range perSymbol {
		stats.AvgMaxProfit /= float64(stats.TotalSignals)
		stats.AvgMaxLoss /= float64(stats.TotalSignals)
		decided := stats.Wins + stats.Losses
		if decided > 0 {
			stats.WinRate = float64(stats.Wins) / float64(decided) * 100
		}
		ranked = append(ranked, stats)
	}
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].TotalSignals > ranked[j].TotalSignals
	})

	fmt.Printf("\n📈 Completed signals: %d (✅ %d TP / ❌ %d SL / ⏳ %d expired)\n\n",
		len(history), totalWins, totalLosses, totalExpired)

	fmt.Printf("%-14s %8s %6s %6s %8s %10s %12s %11s\n",
		"SYMBOL", "SIGNALS", "WINS", "LOSSES", "EXPIRED", "WIN RATE", "AVG MAX P%", "AVG MAX L%")
	fmt.Println("--------------------------------------------------------------------------------")
	for _, stats := range ranked {
		fmt.Printf("%-14s %8d %6d %6d %8d %9.1f%% %11.2f%% %10.2f%%\n",
			stats.Symbol, stats.TotalSignals, stats.Wins, stats.Losses, stats.Expired,
			stats.WinRate, stats.AvgMaxProfit, stats.AvgMaxLoss)
	}
}

func printArchiveSummary(dsn string, days int) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	archive, err := tracker.NewPostgresArchive(ctx, dsn)
	if err != nil {
		fmt.Printf("\n❌ Failed to connect to the postgres archive: %v\n", err)
		return
	}
	defer archive.Close()

	since := time.Now().UTC().AddDate(0, 0, -days)
	summary, err := archive.Summary(ctx, since)
	if err != nil {
		fmt.Printf("\n❌ Failed to query the archive summary: %v\n", err)
		return
	}

	fmt.Println("\n================================================================================")
	fmt.Printf("🗄️  ARCHIVE SUMMARY (last %d days)\n", days)
	fmt.Println("================================================================================")
	fmt.Printf("Total signals:   %d\n", summary.Total)
	fmt.Printf("Take profits:    %d (TP2: %d, TP3: %d)\n", summary.TP1Hits, summary.TP2Hits, summary.TP3Hits)
	fmt.Printf("Stop losses:     %d\n", summary.StopLosses)
	fmt.Printf("Expired:         %d\n", summary.Expired)
	fmt.Printf("Win rate:        %.1f%%\n", summary.WinRate)
	fmt.Printf("Avg max profit:  %.2f%%\n", summary.AvgMaxProfit)
	fmt.Printf("Avg max loss:    %.2f%%\n", summary.AvgMaxLoss)
}
