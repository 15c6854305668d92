package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"azure-costs/core/document"
	"azure-costs/internal/logging"
)

// SubscriptionNames builds the subscriptionId to displayName mapping.
// Malformed subscription entries are logged and ignored.
func SubscriptionNames(subscriptions []document.Document) map[string]string {
	names := make(map[string]string, len(subscriptions))

	for _, subscription := range subscriptions {
		id, ok := subscription.GetString("subscriptionId")
		if !ok {
			logging.Warn("ignoring name from malformed subscription", zap.String("subscription", subscription.String()))
			continue
		}
		name, ok := subscription.GetString("displayName")
		if !ok {
			logging.Warn("ignoring name from malformed subscription", zap.String("subscription", subscription.String()))
			continue
		}

		logging.Info("got subscription", zap.String("id", id), zap.String("name", name))
		names[id] = name
	}

	return names
}

// AnnotateSubscriptionNames returns usage records enriched with their
// subscription's display name. Records the mapping cannot cover pass through
// unchanged; a summary of what was and wasn't annotated is logged.
func AnnotateSubscriptionNames(usages []document.Document, names map[string]string) []document.Document {
	var missingProperties, missingSubscriptionID, missingName int64
	addedNames := make(map[string]int64)
	missingIDs := make(map[string]int64)

	out := make([]document.Document, len(usages))
	for i, usage := range usages {
		out[i] = usage

		if !usage.Exists("properties") {
			missingProperties++
			continue
		}
		id, ok := usage.GetString("properties.subscriptionId")
		if !ok {
			missingSubscriptionID++
			continue
		}
		name, ok := names[id]
		if !ok {
			missingName++
			missingIDs[id]++
			continue
		}

		annotated, err := usage.Set("properties.subscriptionName", name)
		if err != nil {
			missingName++
			continue
		}
		out[i] = annotated
		addedNames[fmt.Sprintf("%s (%s)", name, id)]++
	}

	logging.Info("subscription annotation",
		zap.Int64("missing_properties", missingProperties),
		zap.Int64("missing_subscription_id", missingSubscriptionID),
		zap.Int64("missing_subscription_name", missingName))
	for name, count := range addedNames {
		logging.Info("added names", zap.String("name", name), zap.Int64("count", count))
	}
	for id, count := range missingIDs {
		logging.Info("missing names", zap.String("id", id), zap.Int64("count", count))
	}

	return out
}
