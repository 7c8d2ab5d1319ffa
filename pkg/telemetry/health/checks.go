package health

import (
	"context"
	"fmt"
	"strings"

	"cpathways/cprules/pkg/audit"
	"cpathways/cprules/pkg/rules"
)

// RulesCheck reports unhealthy when any action has no decision function
// registered on the chain.
func RulesCheck(chain *rules.Chain) CheckFunc {
	return func(ctx context.Context) error {
		if chain == nil {
			return fmt.Errorf("rule chain not configured")
		}
		var missing []string
		for _, action := range rules.Actions() {
			if chain.Len(action) == 0 {
				missing = append(missing, action.String())
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("no rules registered for: %s", strings.Join(missing, ", "))
		}
		return nil
	}
}

// StorageCheck reports unhealthy when the audit storage cannot answer a count.
func StorageCheck(storage audit.Storage) CheckFunc {
	return func(ctx context.Context) error {
		if _, err := storage.Count(ctx, &audit.Query{}); err != nil {
			return fmt.Errorf("audit storage: %w", err)
		}
		return nil
	}
}
