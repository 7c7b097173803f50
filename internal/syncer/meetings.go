package syncer

import (
	"context"
	"time"

	"github.com/Martian-dev/crm-sync-infra/internal/hubspot"
	"github.com/Martian-dev/crm-sync-infra/internal/queue"
	"github.com/Martian-dev/crm-sync-infra/internal/store"
)

// MeetingSource syncs meetings, fanning each one out to an action per
// attendee whose contact record resolves to an email. Attendee and contact
// lookups run sequentially per meeting; fine at expected attendee volumes,
// a throughput ceiling if they grow.
type MeetingSource struct {
	Client *hubspot.Client
}

func (*MeetingSource) Entity() store.Entity { return store.EntityMeetings }

func (*MeetingSource) ObjectType() string { return hubspot.ObjectMeetings }

func (*MeetingSource) Properties() []string {
	return []string{
		"hs_meeting_title",
		"hs_meeting_body",
		"hs_meeting_start_time",
		"hs_meeting_end_time",
		"hs_timestamp",
		"hs_meeting_outcome",
	}
}

func (*MeetingSource) DateProperty() string { return "hs_lastmodifieddate" }

func (s *MeetingSource) BuildActions(ctx context.Context, records []hubspot.Record, checkpoint time.Time) ([]queue.Action, error) {
	var actions []queue.Action
	for _, m := range records {
		if m.Properties == nil {
			continue
		}

		attendees, err := s.Client.ListAssociations(ctx, hubspot.ObjectMeetings, m.ID, hubspot.ObjectContacts)
		if err != nil {
			return nil, err
		}

		// Classification and instant are per-meeting, shared by the fan-out.
		verb, ts := classify(m, checkpoint)

		for _, attendee := range attendees {
			contact, err := s.Client.GetObject(ctx, hubspot.ObjectContacts, attendee.ID, []string{"email"})
			if err != nil {
				return nil, err
			}

			email := contact.Properties["email"]
			if email == "" {
				continue
			}

			props := map[string]any{
				"meeting_id": m.ID,
			}
			putNonEmpty(props, "meeting_title", m.Properties["hs_meeting_title"])
			putNonEmpty(props, "meeting_start_time", m.Properties["hs_meeting_start_time"])
			putNonEmpty(props, "meeting_end_time", m.Properties["hs_meeting_end_time"])
			putNonEmpty(props, "meeting_outcome", m.Properties["hs_meeting_outcome"])

			actions = append(actions, newAction("Meeting "+verb, ts, email, props))
		}
	}
	return actions, nil
}
