// Package cmd - CLI command: azure-costs run
package cmd

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"azure-costs/adapters/elastic"
	"azure-costs/adapters/storage"
	"azure-costs/core/pipeline"
	"azure-costs/internal/errors"
)

const argCount = 9

var runCmd = &cobra.Command{
	Use: "run <tenantId> <clientId> <clientSecret> <startDate> <endDate> <offerId>" +
		" <elasticUrl> <elasticUsername> <elasticPassword> [-- -l <lowercaseFields>]",
	Short: "Retrieve usage and rates, compute costs, load into Elasticsearch",
	Long: `Run the full pipeline: acquire a token, retrieve subscriptions, rate
cards and usage aggregates for the date window, compute a cost per usage
record, dedupe, and bulk-load into azurecosts-YYYY.MM indices.

lowercaseFields is a comma-separated list of gjson paths whose string values
are lowercased before indexing; escape dots inside a key with a backslash.`,
	Args: cobra.ArbitraryArgs,
	RunE: runPipeline,
}

func runPipeline(cmd *cobra.Command, args []string) error {
	positional := args
	var trailing []string
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		positional = args[:dash]
		trailing = args[dash:]
	}

	_, lowercaseFields, _ := ExtractFlag(trailing, "-l", true)

	if len(positional) != argCount {
		return errors.Newf(errors.TypeInput, "expected %d arguments, got %d", argCount, len(positional))
	}

	startDate, err := parseDate(positional[3])
	if err != nil {
		return errors.Wrap(errors.TypeInput, "invalid start date", err)
	}
	endDate, err := parseDate(positional[4])
	if err != nil {
		return errors.Wrap(errors.TypeInput, "invalid end date", err)
	}

	var fields []string
	if lowercaseFields != "" {
		fields = strings.Split(lowercaseFields, ",")
	}

	clientID := positional[1]
	store := storage.NewSnapshotStore(cfg.SnapshotDir, clientID)
	indexer := elastic.NewIndexer(elastic.Config{
		URL:       positional[6],
		Username:  positional[7],
		Password:  positional[8],
		DebugDump: cfg.Debug.Elastic,
		DumpDir:   cfg.SnapshotDir,
	})
	defer indexer.Close()

	p := pipeline.New(pipeline.Config{
		TenantID:        positional[0],
		ClientID:        clientID,
		ClientSecret:    positional[2],
		StartDate:       startDate,
		EndDate:         endDate,
		OfferID:         positional[5],
		LowercaseFields: fields,
		RestDebug:       cfg.Debug.Rest,
	}, store, indexer)

	cmd.SilenceUsage = true
	return p.Run(cmd.Context())
}

func parseDate(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		t, err := time.ParseInLocation(layout, value, time.UTC)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
