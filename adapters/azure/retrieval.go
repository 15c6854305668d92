package azure

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"azure-costs/core/document"
	"azure-costs/internal/logging"
)

const (
	subscriptionsAPIVersion = "2016-06-01"
	rateCardAPIVersion      = "2016-08-31-preview"
	usageAPIVersion         = "2015-06-01-preview"

	// validNextLinkDomain is the only domain continuation links may point at.
	// Links are stripped to a relative path before reuse; anything else is a
	// protocol violation.
	validNextLinkDomain = "https://management.azure.com:443"

	dateFormat = "2006-01-02"
)

// Rate card queries are pinned to one offer context. Only the offer id
// varies per run.
const (
	rateCurrency = "SEK"
	rateLocale   = "en-US"
	rateRegion   = "SE"
)

// Subscriptions lists all subscriptions visible to the credential.
func (c *Client) Subscriptions(ctx context.Context) ([]document.Document, error) {
	doc, err := c.GetJSON(ctx, "/subscriptions?api-version="+subscriptionsAPIVersion, nil, nil)
	if err != nil {
		return nil, err
	}

	subscriptions := doc.Array("value")
	logging.Info("found subscriptions", zap.Int("count", len(subscriptions)))
	return subscriptions, nil
}

// Rates collects the tiered rate cards of every subscription into one flat
// meter sequence. A 302 from the rate-card endpoint means the subscription
// has no rate card and is skipped.
func (c *Client) Rates(ctx context.Context, subscriptions []document.Document, offerID string) ([]document.Document, error) {
	var rates []document.Document

	for _, subscription := range subscriptions {
		subscriptionID, ok := subscription.GetString("id")
		if !ok {
			logging.Warn("skipping subscription without id", zap.String("subscription", subscription.String()))
			continue
		}

		filter := fmt.Sprintf("OfferDurableId eq '%s' and Currency eq '%s' and Locale eq '%s' and RegionInfo eq '%s'",
			offerID, rateCurrency, rateLocale, rateRegion)
		rateCardURL := fmt.Sprintf("%s/providers/Microsoft.Commerce/RateCard?api-version=%s&$filter=%s",
			subscriptionID, rateCardAPIVersion, url.QueryEscape(filter))

		doc, err := c.GetJSON(ctx, rateCardURL, []int{http.StatusFound}, nil)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			continue
		}

		rates = append(rates, doc.Array("Meters")...)
	}

	return rates, nil
}

// Usages pages through the usage aggregates of every subscription across
// [startDate, endDate]. When the API rejects a page because the end date is
// in the future, the working end date is decremented one day between retry
// attempts; that state lives in the retry closure and does not leak across
// pages or subscriptions.
func (c *Client) Usages(ctx context.Context, subscriptions []document.Document, startDate, endDate time.Time) ([]document.Document, error) {
	started := time.Now()

	var usages []document.Document

	for _, subscription := range subscriptions {
		subscriptionID, ok := subscription.GetString("id")
		if !ok {
			logging.Warn("skipping subscription without id", zap.String("subscription", subscription.String()))
			continue
		}

		decreasableEndDate := endDate
		usagesURL := buildUsagesURL(subscriptionID, startDate, decreasableEndDate)

		for page := 1; usagesURL != ""; page++ {
			logging.Info("fetching usage page", zap.Int("page", page))

			doc, err := c.GetJSON(ctx, usagesURL, []int{http.StatusFound}, func(rawBody string) string {
				if body, ok := document.TryParse(rawBody); ok {
					code, _ := body.GetString("error.code")
					message, _ := body.GetString("error.message")
					if code == "InvalidInput" && message == "reportedendtime cannot be in the future." {
						newEndDate := decreasableEndDate.AddDate(0, 0, -1)
						logging.Info("decreasing end date",
							zap.String("from", decreasableEndDate.Format(dateFormat)),
							zap.String("to", newEndDate.Format(dateFormat)))
						decreasableEndDate = newEndDate
					}
				}
				return buildUsagesURL(subscriptionID, startDate, decreasableEndDate)
			})
			if err != nil {
				return nil, err
			}

			values := doc.Array("value")
			for _, value := range values {
				usages = append(usages, document.NormalizeInstanceData(value))
			}

			if doc == nil || len(values) == 0 || !doc.Exists("nextLink") {
				if len(usages) == 0 {
					logging.Info("got no values")
				}
				usagesURL = ""
				continue
			}

			nextLink, _ := doc.GetString("nextLink")
			if !strings.HasPrefix(nextLink, validNextLinkDomain) {
				logging.Warn("got unknown nextLink", zap.String("nextLink", nextLink))
				return usages, nil
			}
			usagesURL = nextLink[len(validNextLinkDomain):]
		}
	}

	logging.Info("usage retrieval done", zap.Duration("elapsed", time.Since(started)))

	return usages, nil
}

func buildUsagesURL(subscriptionID string, startDate, endDate time.Time) string {
	return fmt.Sprintf("%s/providers/Microsoft.Commerce/UsageAggregates?api-version=%s&reportedstarttime=%s&reportedendtime=%s",
		subscriptionID, usageAPIVersion, startDate.Format(dateFormat), endDate.Format(dateFormat))
}
