package domain

import (
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestDecodeEventMetadata(t *testing.T) {
	t.Parallel()

	agent := strPtr("agent-1")
	tests := []struct {
		name string
		meta EventMetadata
		want TicketEventType
	}{
		{"status", StatusChange{From: TicketStatusOpen, To: TicketStatusResolved}, EventStatusChanged},
		{"priority", PriorityChange{From: TicketPriorityLow, To: TicketPriorityUrgent}, EventPriorityChanged},
		{"assigned", AssignmentChange{From: nil, To: agent}, EventAssigned},
		{"unassigned", AssignmentChange{From: agent, To: nil}, EventUnassigned},
		{"escalation", SLAEscalation{Priority: TicketPriorityHigh, AssignedAgentID: agent, Recipients: 3}, EventSLAEscalated},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.meta.EventType(); got != tt.want {
				t.Fatalf("EventType: got %s, want %s", got, tt.want)
			}
			raw, err := EncodeEventMetadata(tt.meta)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			decoded, err := DecodeEventMetadata(tt.want, raw)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if decoded.EventType() != tt.want {
				t.Errorf("decoded type: got %s, want %s", decoded.EventType(), tt.want)
			}
		})
	}
}

func TestDecodePriorityChangeFields(t *testing.T) {
	t.Parallel()
	decoded, err := DecodeEventMetadata(EventPriorityChanged, []byte(`{"from":"LOW","to":"URGENT"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	change, ok := decoded.(PriorityChange)
	if !ok {
		t.Fatalf("decoded type: got %T, want PriorityChange", decoded)
	}
	if change.From != TicketPriorityLow || change.To != TicketPriorityUrgent {
		t.Errorf("got %+v, want LOW->URGENT", change)
	}
}

func TestDecodeUnknownEventType(t *testing.T) {
	t.Parallel()
	if _, err := DecodeEventMetadata("REOPENED", []byte(`{}`)); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestSLAPolicyBreached(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	policy := SLAPolicy{Priority: TicketPriorityUrgent, ResponseTimeMinutes: 15, ResolutionTimeMinutes: 120}
	responded := t0.Add(5 * time.Minute)

	tests := []struct {
		name      string
		assigned  *time.Time
		responded *time.Time
		at        time.Duration
		want      bool
	}{
		{"before response deadline", nil, nil, 10 * time.Minute, false},
		{"exactly at response deadline", nil, nil, 15 * time.Minute, false},
		{"past response deadline without response", nil, nil, 16 * time.Minute, true},
		{"assigned but no public comment", &responded, nil, 16 * time.Minute, true},
		{"past response deadline with response", &responded, &responded, 16 * time.Minute, false},
		{"past resolution deadline with response", &responded, &responded, 121 * time.Minute, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ticket := &Ticket{CreatedAt: t0, FirstRespondedAt: tt.assigned, PublicResponseAt: tt.responded}
			if got := policy.Breached(ticket, t0.Add(tt.at)); got != tt.want {
				t.Errorf("Breached: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRoles(t *testing.T) {
	t.Parallel()
	if RoleCustomer.IsStaff() {
		t.Error("customer must not be staff")
	}
	if !RoleAgent.IsStaff() || RoleAgent.IsManagement() {
		t.Error("agent is staff but not management")
	}
	for _, r := range ManagementRoles {
		if !r.IsManagement() || !r.IsStaff() {
			t.Errorf("%s should be management staff", r)
		}
	}
	if RoleManager.IsAdmin() || !RoleSuperAdmin.IsAdmin() {
		t.Error("admin check mismatch")
	}
}

func TestParsePriority(t *testing.T) {
	t.Parallel()
	if p, ok := ParsePriority(" urgent "); !ok || p != TicketPriorityUrgent {
		t.Errorf("ParsePriority: got %q %v", p, ok)
	}
	if _, ok := ParsePriority("critical"); ok {
		t.Error("critical should not parse")
	}
	if st, ok := ParseStatus("in_progress"); !ok || st != TicketStatusInProgress {
		t.Errorf("ParseStatus: got %q %v", st, ok)
	}
	if _, ok := ParseStatus("archived"); ok {
		t.Error("archived should not parse")
	}
}

func TestMaxThresholdDeadlineStaysInRange(t *testing.T) {
	t.Parallel()
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	policy := SLAPolicy{ResponseTimeMinutes: MaxThresholdMinutes, ResolutionTimeMinutes: MaxThresholdMinutes}

	deadline := policy.ResolutionDeadline(created)
	if !deadline.After(created.Add(365 * 24 * time.Hour)) {
		t.Fatalf("resolution deadline: got %v, want about a year after %v", deadline, created)
	}
	if policy.Breached(&Ticket{CreatedAt: created}, created.Add(time.Minute)) {
		t.Error("fresh ticket breached under the largest allowed policy")
	}
}
