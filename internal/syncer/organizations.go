package syncer

import (
	"context"
	"time"

	"github.com/Martian-dev/crm-sync-infra/internal/hubspot"
	"github.com/Martian-dev/crm-sync-infra/internal/queue"
	"github.com/Martian-dev/crm-sync-infra/internal/store"
)

// OrganizationSource syncs companies. No enrichment: the property bag maps
// straight onto the action.
type OrganizationSource struct{}

func (*OrganizationSource) Entity() store.Entity { return store.EntityOrganizations }

func (*OrganizationSource) ObjectType() string { return hubspot.ObjectCompanies }

func (*OrganizationSource) Properties() []string {
	return []string{
		"name",
		"domain",
		"country",
		"industry",
		"description",
		"annualrevenue",
		"numberofemployees",
		"hs_lead_status",
	}
}

func (*OrganizationSource) DateProperty() string { return "hs_lastmodifieddate" }

func (*OrganizationSource) BuildActions(_ context.Context, records []hubspot.Record, checkpoint time.Time) ([]queue.Action, error) {
	var actions []queue.Action
	for _, r := range records {
		if r.Properties == nil {
			continue
		}

		verb, ts := classify(r, checkpoint)

		props := map[string]any{
			"organization_id": r.ID,
		}
		putNonEmpty(props, "organization_domain", r.Properties["domain"])
		putNonEmpty(props, "organization_industry", r.Properties["industry"])

		actions = append(actions, newAction("Organization "+verb, ts, "", props))
	}
	return actions, nil
}
