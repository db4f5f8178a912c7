// Command plan prints one investment plan computed from local price files.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"slices"
	"time"

	"FinAlloc/internal/domain/models"
	domsvc "FinAlloc/internal/domain/service"
	internalrepo "FinAlloc/internal/repository"
	"FinAlloc/internal/services/forecast"
	"FinAlloc/internal/services/portfolio"
	"FinAlloc/internal/usecase"
	applogger "FinAlloc/pkg/logger"
)

func main() {
	amount := flag.Float64("amount", 5000, "savings amount")
	profile := flag.String("profile", "Balanced", "risk profile: Conservative, Balanced or Aggressive")
	dataDir := flag.String("data", "data", "price history root (one directory per class)")
	weights := flag.String("weights", "", "model weights file; random weights when empty")
	rule := flag.String("rule", string(models.RuleExpTilt), "in-class rule: exp_tilt or markowitz")
	verbose := flag.Bool("v", false, "log warnings")
	flag.Parse()

	l := applogger.Nop()
	if *verbose {
		var err error
		if l, err = applogger.New(&applogger.Config{Level: "warn", Format: "console", Output: "stderr"}); err != nil {
			log.Fatalf("logger: %v", err)
		}
	}

	p, err := models.ParseRiskProfile(*profile)
	if err != nil {
		log.Fatal(err)
	}

	var model domsvc.SequencePredictor
	if *weights == "" {
		model, err = forecast.New(forecast.InitWeights(forecast.DefaultArchitecture(), 42))
	} else {
		model, err = forecast.Load(*weights, forecast.DefaultArchitecture())
	}
	if err != nil {
		log.Fatalf("model: %v", err)
	}

	history := internalrepo.NewCSVPriceHistory(*dataDir)
	history.SetLogger(l)
	pipeline, err := usecase.NewAllocationPipeline(
		history,
		usecase.NewReturnForecaster(model, usecase.WithForecasterLogger(l)),
		portfolio.DefaultTable(),
		usecase.WithRule(models.AllocationRule(*rule)),
		usecase.WithPipelineLogger(l),
	)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	plan, err := pipeline.Run(ctx, *amount, p)
	if err != nil {
		log.Fatal(err)
	}
	printPlan(plan)
	if len(plan.Allocations) == 0 {
		os.Exit(1)
	}
}

func printPlan(plan *models.InvestmentPlan) {
	fmt.Printf("Investment plan for $%.2f (%s)\n", plan.Amount, plan.RiskProfile)
	for _, cls := range models.AllAssetClasses() {
		if msg, ok := plan.Errors[cls]; ok {
			fmt.Printf("\n%s: skipped (%s)\n", cls, msg)
			continue
		}
		res, ok := plan.Allocations[cls]
		if !ok {
			continue
		}
		fmt.Printf("\n%s: $%.2f [%s]", cls, res.TotalAmount, res.Rule)
		if res.Volatility != nil {
			fmt.Printf(" volatility %.4f", *res.Volatility)
		}
		fmt.Println()
		per := slices.Clone(res.PerAsset)
		slices.SortStableFunc(per, func(a, b models.AssetAllocation) int {
			switch {
			case a.Amount > b.Amount:
				return -1
			case a.Amount < b.Amount:
				return 1
			}
			return 0
		})
		for _, a := range per {
			fmt.Printf("  %-12s $%10.2f  (forecast %+.4f)\n", a.Symbol, a.Amount, a.PredictedReturn)
		}
	}
}
