package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/realapp_backend/config"
	"bitbucket.org/mmdatafocus/realapp_backend/utils"
	"bitbucket.org/mmdatafocus/realapp_backend/workflow"
)

// Recomputes the derived fields of units and their cost sheets after a settings or formula change.
func main() {
	businessID := flag.String("business-id", "", "Required: business id")
	unitID := flag.Int("unit-id", 0, "Optional: recalculate a single unit")
	withRedis := flag.Bool("redis", false, "Read settings through the redis cache")
	flag.Parse()

	if strings.TrimSpace(*businessID) == "" {
		fmt.Fprintln(os.Stderr, "--business-id is required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	if *withRedis {
		config.ConnectRedisWithRetry()
	}

	ctx := utils.SetBusinessIdInContext(context.Background(), strings.TrimSpace(*businessID))
	ctx = utils.SetUsernameInContext(ctx, "System")

	if *unitID > 0 {
		unit, costSheets, err := workflow.RecalculateUnit(ctx, *unitID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "recalculate unit %d: %v\n", *unitID, err)
			os.Exit(1)
		}
		fmt.Printf("unit=%s aos_value=%s cost_sheets=%d\n", unit.Name, unit.AosValue.StringFixed(2), costSheets)
		return
	}

	summary, err := workflow.RecalculateAllUnits(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "recalculate units: %v\n", err)
		os.Exit(1)
	}
	for id, msg := range summary.Errors {
		fmt.Fprintf(os.Stderr, "unit %d failed: %s\n", id, msg)
	}
	fmt.Printf("units=%d cost_sheets=%d failed=%d\n", summary.Units, summary.CostSheets, summary.Failed)
	if summary.Failed > 0 {
		os.Exit(2)
	}
}
