package syncer

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/Martian-dev/crm-sync-infra/internal/hubspot"
	"github.com/Martian-dev/crm-sync-infra/internal/queue"
	"github.com/Martian-dev/crm-sync-infra/internal/store"
)

// PersonSource syncs contacts. Each page is enriched with one batched
// association read resolving contacts to their company. Contacts without
// an email cannot be matched to a sink identity and are skipped.
type PersonSource struct {
	Client *hubspot.Client
}

func (*PersonSource) Entity() store.Entity { return store.EntityPeople }

func (*PersonSource) ObjectType() string { return hubspot.ObjectContacts }

func (*PersonSource) Properties() []string {
	return []string{
		"firstname",
		"lastname",
		"jobtitle",
		"email",
		"hubspotscore",
		"hs_lead_status",
		"hs_analytics_source",
		"hs_latest_source",
	}
}

func (*PersonSource) DateProperty() string { return "lastmodifieddate" }

func (s *PersonSource) BuildActions(ctx context.Context, records []hubspot.Record, checkpoint time.Time) ([]queue.Action, error) {
	companies, err := s.companyAssociations(ctx, records)
	if err != nil {
		return nil, err
	}

	var actions []queue.Action
	for _, r := range records {
		if r.Properties == nil || r.Properties["email"] == "" {
			continue
		}

		verb, ts := classify(r, checkpoint)

		props := map[string]any{}
		putNonEmpty(props, "company_id", companies[r.ID])
		putNonEmpty(props, "person_name", strings.TrimSpace(r.Properties["firstname"]+" "+r.Properties["lastname"]))
		putNonEmpty(props, "person_title", r.Properties["jobtitle"])
		putNonEmpty(props, "person_source", r.Properties["hs_analytics_source"])
		putNonEmpty(props, "person_status", r.Properties["hs_lead_status"])

		score, _ := strconv.Atoi(r.Properties["hubspotscore"])
		props["person_score"] = score

		actions = append(actions, newAction("Person "+verb, ts, r.Properties["email"], props))
	}
	return actions, nil
}

// companyAssociations resolves each contact of the page to its first
// associated company. Association entries without a "from" reference are
// ignored; contacts with no resolved company are simply absent.
func (s *PersonSource) companyAssociations(ctx context.Context, records []hubspot.Record) (map[string]string, error) {
	if len(records) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}

	results, err := s.Client.BatchReadAssociations(ctx, "CONTACTS", "COMPANIES", ids)
	if err != nil {
		return nil, err
	}

	companies := make(map[string]string, len(results))
	for _, a := range results {
		if a.From == nil || len(a.To) == 0 {
			continue
		}
		companies[a.From.ID] = a.To[0].ID
	}
	return companies, nil
}
