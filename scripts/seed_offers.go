// seed_offers.go: standalone script to load lender offers into a running service.
//
// Usage:
//
//	go run scripts/seed_offers.go -api http://localhost:8000 -token $PATHFINDER_ADMIN_TOKEN [-file offers.yaml] [-retrain]
//
// Without -file the built-in lender catalogue is posted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Pathfinder/internal/client"
	"github.com/MikeSquared-Agency/Pathfinder/internal/marketplace"
	"github.com/MikeSquared-Agency/Pathfinder/internal/store"
)

type offerFile struct {
	Offers []offerEntry `yaml:"offers"`
}

type offerEntry struct {
	LenderName       string  `yaml:"lender_name"`
	MinAPR           float64 `yaml:"min_apr"`
	MaxAPR           float64 `yaml:"max_apr"`
	MinAmount        float64 `yaml:"min_amount"`
	MaxAmount        float64 `yaml:"max_amount"`
	MaxTenureMonths  int     `yaml:"max_tenure_months"`
	FundingDays      int     `yaml:"funding_days"`
	CommissionWeight float64 `yaml:"commission_weight"`
}

func main() {
	apiURL := flag.String("api", "http://localhost:8000", "service base URL")
	token := flag.String("token", os.Getenv("PATHFINDER_ADMIN_TOKEN"), "admin bearer token")
	file := flag.String("file", "", "YAML file of offers (defaults to the built-in catalogue)")
	dryRun := flag.Bool("dry-run", false, "print offers without posting")
	retrain := flag.Bool("retrain", false, "retrain the models after seeding")
	flag.Parse()

	offers := marketplace.DefaultOffers()
	if *file != "" {
		var err error
		offers, err = readOffers(*file)
		if err != nil {
			log.Fatalf("read offers: %v", err)
		}
	}

	for _, o := range offers {
		if err := o.Validate(); err != nil {
			log.Fatalf("invalid offer %q: %v", o.LenderName, err)
		}
	}
	log.Printf("loaded %d offers", len(offers))

	if *dryRun {
		for i, o := range offers {
			fmt.Printf("[%d] %s (apr=%.2f-%.2f, amount=%.0f-%.0f, tenure<=%d, funding=%dd)\n",
				i+1, o.LenderName, o.MinAPR, o.MaxAPR, o.MinAmount, o.MaxAmount, o.MaxTenureMonths, o.FundingDays)
		}
		return
	}

	ctx := context.Background()
	c := client.NewHTTPClient(*apiURL, *token)
	stored, skipped := 0, 0
	for _, o := range offers {
		if err := c.UpsertOffer(ctx, o); err != nil {
			log.Printf("skip %q: %v", o.LenderName, err)
			skipped++
			continue
		}
		stored++
	}

	log.Printf("done: %d stored, %d skipped", stored, skipped)

	if *retrain {
		info, err := c.Retrain(ctx)
		if err != nil {
			log.Fatalf("retrain: %v", err)
		}
		log.Printf("serving release %s (lrs_r2=%.3f apr_r2=%.3f approval_accuracy=%.3f)",
			info.Release, info.Metrics.ReadinessR2, info.Metrics.APRR2, info.Metrics.ApprovalAccuracy)
	}
}

func readOffers(path string) ([]store.Offer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f offerFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	out := make([]store.Offer, 0, len(f.Offers))
	for _, e := range f.Offers {
		out = append(out, store.Offer{
			LenderName:       e.LenderName,
			MinAPR:           e.MinAPR,
			MaxAPR:           e.MaxAPR,
			MinAmount:        e.MinAmount,
			MaxAmount:        e.MaxAmount,
			MaxTenureMonths:  e.MaxTenureMonths,
			FundingDays:      e.FundingDays,
			CommissionWeight: e.CommissionWeight,
		})
	}
	return out, nil
}
