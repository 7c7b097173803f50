package natsjs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Martian-dev/crm-sync-infra/internal/queue"
)

func TestSubjectFor(t *testing.T) {
	tests := []struct {
		action string
		want   string
	}{
		{action: "Organization Created", want: "crm.actions.organization.created"},
		{action: "Organization Updated", want: "crm.actions.organization.updated"},
		{action: "Person Created", want: "crm.actions.person.created"},
		{action: "Meeting Updated", want: "crm.actions.meeting.updated"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, subjectFor(queue.Action{Name: tt.action}))
	}
}
