package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/deskline/helpdesk/internal/clock"
	"github.com/deskline/helpdesk/internal/domain"
	"github.com/deskline/helpdesk/internal/repository"
)

var errStorageDown = errors.New("storage unavailable")

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fakeTicketRepo struct {
	mu            sync.Mutex
	seq           int
	tickets       map[string]*domain.Ticket
	history       *fakeEventRepo
	listErr       error
	failBreachFor map[string]bool
	breachWrites  int
}

func newFakeTicketRepo(history *fakeEventRepo) *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]*domain.Ticket{}, history: history, failBreachFor: map[string]bool{}}
}

func (r *fakeTicketRepo) Create(_ context.Context, t *domain.Ticket, history ...*domain.TicketEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.history.failing(); err != nil {
		return err
	}
	r.seq++
	t.ID = fmt.Sprintf("ticket-%d", r.seq)
	cp := *t
	r.tickets[t.ID] = &cp
	r.history.commit(t.ID, history)
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, t *domain.Ticket, history ...*domain.TicketEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[t.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if err := r.history.failing(); err != nil {
		return err
	}
	cp := *t
	cp.SLABreached = stored.SLABreached
	cp.PublicResponseAt = stored.PublicResponseAt
	if stored.FirstRespondedAt != nil {
		cp.FirstRespondedAt = stored.FirstRespondedAt
	}
	r.tickets[t.ID] = &cp
	r.history.commit(t.ID, history)
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTicketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.tickets {
		if filter.CustomerID != nil && t.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.AssignedAgentID != nil && !t.IsAssignedTo(*filter.AssignedAgentID) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTicketRepo) ListNonTerminal(_ context.Context) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.Ticket
	for _, t := range r.tickets {
		if !t.Status.IsTerminal() {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTicketRepo) UpdateSLABreached(_ context.Context, id string, breached bool, history ...*domain.TicketEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failBreachFor[id] {
		return errStorageDown
	}
	t, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if err := r.history.failing(); err != nil {
		return err
	}
	t.SLABreached = breached
	r.breachWrites++
	r.history.commit(id, history)
	return nil
}

// recordResponse mirrors the comment repository stamping the ticket.
func (r *fakeTicketRepo) recordResponse(id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if t.PublicResponseAt == nil {
		t.PublicResponseAt = &at
	}
	if t.FirstRespondedAt == nil {
		t.FirstRespondedAt = &at
	}
	return nil
}

func (r *fakeTicketRepo) get(t *testing.T, id string) domain.Ticket {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		t.Fatalf("ticket %s not stored", id)
	}
	return *ticket
}

type fakeUserRepo struct {
	users   []domain.User
	listErr error
}

func (r *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	u.ID = fmt.Sprintf("user-%d", len(r.users)+1)
	r.users = append(r.users, *u)
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, u *domain.User) error {
	for i := range r.users {
		if r.users[i].ID == u.ID {
			r.users[i] = *u
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			cp := u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) ListActiveByRoles(_ context.Context, roles []domain.Role) ([]domain.User, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.User
	for _, u := range r.users {
		if !u.Active {
			continue
		}
		for _, role := range roles {
			if u.Role == role {
				out = append(out, u)
				break
			}
		}
	}
	return out, nil
}

type fakePolicyRepo struct {
	policies map[domain.TicketPriority]domain.SLAPolicy
	listErr  error
}

func defaultPolicies() *fakePolicyRepo {
	return &fakePolicyRepo{policies: map[domain.TicketPriority]domain.SLAPolicy{
		domain.TicketPriorityLow:    {Priority: domain.TicketPriorityLow, ResponseTimeMinutes: 480, ResolutionTimeMinutes: 2880},
		domain.TicketPriorityMedium: {Priority: domain.TicketPriorityMedium, ResponseTimeMinutes: 240, ResolutionTimeMinutes: 1440},
		domain.TicketPriorityHigh:   {Priority: domain.TicketPriorityHigh, ResponseTimeMinutes: 60, ResolutionTimeMinutes: 480},
		domain.TicketPriorityUrgent: {Priority: domain.TicketPriorityUrgent, ResponseTimeMinutes: 15, ResolutionTimeMinutes: 120},
	}}
}

func (r *fakePolicyRepo) Get(_ context.Context, p domain.TicketPriority) (*domain.SLAPolicy, error) {
	policy, ok := r.policies[p]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &policy, nil
}

func (r *fakePolicyRepo) List(_ context.Context) ([]domain.SLAPolicy, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.SLAPolicy
	for _, p := range domain.Priorities {
		if policy, ok := r.policies[p]; ok {
			out = append(out, policy)
		}
	}
	return out, nil
}

func (r *fakePolicyRepo) Upsert(_ context.Context, p *domain.SLAPolicy) error {
	p.UpdatedAt = t0
	r.policies[p.Priority] = *p
	return nil
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events []domain.TicketEvent
	err    error
}

// failing returns the injected error that aborts a whole write.
func (r *fakeEventRepo) failing() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *fakeEventRepo) commit(ticketID string, history []*domain.TicketEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range history {
		e.TicketID = ticketID
		e.ID = fmt.Sprintf("event-%d", len(r.events)+1)
		r.events = append(r.events, *e)
	}
}

func (r *fakeEventRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketEvent
	for _, e := range r.events {
		if e.TicketID == ticketID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) ofType(ticketID string, typ domain.TicketEventType) []domain.TicketEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketEvent
	for _, e := range r.events {
		if e.TicketID == ticketID && e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type fakeCommentRepo struct {
	tickets  *fakeTicketRepo
	comments []domain.Comment
}

func (r *fakeCommentRepo) Create(_ context.Context, c *domain.Comment, staffResponse bool, history ...*domain.TicketEvent) error {
	if err := r.tickets.history.failing(); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = fmt.Sprintf("comment-%d", len(r.comments)+1)
	}
	if staffResponse {
		if err := r.tickets.recordResponse(c.TicketID, c.CreatedAt); err != nil {
			return err
		}
	}
	r.comments = append(r.comments, *c)
	r.tickets.history.commit(c.TicketID, history)
	return nil
}

func (r *fakeCommentRepo) ListByTicket(_ context.Context, ticketID string, includeInternal bool) ([]domain.Comment, error) {
	var out []domain.Comment
	for _, c := range r.comments {
		if c.TicketID != ticketID {
			continue
		}
		if !includeInternal && c.Visibility != domain.CommentPublic {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications []*domain.Notification
	outbox        []domain.EmailOutboxEntry
	failFor       map[string]bool
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{failFor: map[string]bool{}}
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *domain.Notification, outbox *domain.EmailOutboxEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor[n.UserID] {
		return errStorageDown
	}
	n.ID = fmt.Sprintf("notification-%d", len(r.notifications)+1)
	cp := *n
	r.notifications = append(r.notifications, &cp)
	if outbox != nil {
		outbox.NotificationID = n.ID
		outbox.UserID = n.UserID
		outbox.Status = domain.OutboxPending
		r.outbox = append(r.outbox, *outbox)
	}
	return nil
}

func (r *fakeNotificationRepo) GetByID(_ context.Context, id string) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notifications {
		if n.ID == id {
			cp := *n
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notifications {
		if n.ID == id && n.Status == domain.NotificationUnread {
			n.Status = domain.NotificationRead
			n.ReadAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeNotificationRepo) MarkAllRead(_ context.Context, userID string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, n := range r.notifications {
		if n.UserID == userID && n.Status == domain.NotificationUnread {
			n.Status = domain.NotificationRead
			n.ReadAt = &at
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) List(_ context.Context, userID string, filter repository.NotificationFilter) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for i := len(r.notifications) - 1; i >= 0; i-- {
		n := r.notifications[i]
		if n.UserID != userID || (filter.Status != nil && n.Status != *filter.Status) {
			continue
		}
		out = append(out, *n)
		if len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) CountUnread(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, n := range r.notifications {
		if n.UserID == userID && n.Status == domain.NotificationUnread {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.notifications {
		if n.ID == id {
			r.notifications = append(r.notifications[:i], r.notifications[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeNotificationRepo) forUser(userID string, typ domain.NotificationType) []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for _, n := range r.notifications {
		if n.UserID == userID && (typ == "" || n.Type == typ) {
			out = append(out, *n)
		}
	}
	return out
}

func (r *fakeNotificationRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notifications)
}

type fakeCache struct {
	counts        map[string]int64
	invalidations int
	getErr        error
}

func newFakeCache() *fakeCache { return &fakeCache{counts: map[string]int64{}} }

func (c *fakeCache) Get(_ context.Context, userID string) (int64, bool, error) {
	if c.getErr != nil {
		return 0, false, c.getErr
	}
	count, ok := c.counts[userID]
	return count, ok, nil
}

func (c *fakeCache) Set(_ context.Context, userID string, count int64) error {
	c.counts[userID] = count
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, userID string) error {
	delete(c.counts, userID)
	c.invalidations++
	return nil
}

type failingRouter struct{}

func (failingRouter) RecipientsFor(context.Context, *domain.Ticket) ([]string, error) {
	return nil, errStorageDown
}

// harness wires the real services over in-memory repositories.
type harness struct {
	clock         *clock.FakeClock
	tickets       *fakeTicketRepo
	users         *fakeUserRepo
	policies      *fakePolicyRepo
	events        *fakeEventRepo
	comments      *fakeCommentRepo
	notifications *fakeNotificationRepo
	cache         *fakeCache

	eventLog  *EventLog
	notifier  *NotificationService
	router    *EscalationRouter
	evaluator *SLAEvaluator
	ticketSvc *TicketService
	policySvc *SLAPolicyService
}

const (
	customerID   = "customer-1"
	agentID      = "agent-1"
	otherAgentID = "agent-2"
	managerID    = "manager-1"
	adminID      = "admin-1"
	superAdminID = "super-1"
)

func newHarness(t *testing.T) *harness {
	t.Helper()
	history := &fakeEventRepo{}
	tickets := newFakeTicketRepo(history)
	h := &harness{
		clock:   clock.Fake(t0),
		tickets: tickets,
		users: &fakeUserRepo{users: []domain.User{
			{ID: customerID, Name: "Casey", Role: domain.RoleCustomer, Active: true},
			{ID: agentID, Name: "Alex", Role: domain.RoleAgent, Active: true},
			{ID: otherAgentID, Name: "Blair", Role: domain.RoleAgent, Active: true},
			{ID: managerID, Name: "Morgan", Role: domain.RoleManager, Active: true},
			{ID: adminID, Name: "Avery", Role: domain.RoleAdmin, Active: true},
			{ID: superAdminID, Name: "Sam", Role: domain.RoleSuperAdmin, Active: true},
			{ID: "manager-inactive", Name: "Robin", Role: domain.RoleManager, Active: false},
		}},
		policies:      defaultPolicies(),
		events:        history,
		comments:      &fakeCommentRepo{tickets: tickets},
		notifications: newFakeNotificationRepo(),
		cache:         newFakeCache(),
	}
	logger := zap.NewNop()
	h.eventLog = NewEventLog(EventLogDependencies{
		EventRepo:  h.events,
		TicketRepo: h.tickets,
		Producer:   "helpdesk-test",
		Logger:     logger,
	})
	h.notifier = NewNotificationService(NotificationDependencies{
		Repo:         h.notifications,
		Cache:        h.cache,
		Clock:        h.clock,
		Logger:       logger,
		EmailEnabled: true,
	})
	h.router = NewEscalationRouter(h.users)
	h.evaluator = NewSLAEvaluator(SLAEvaluatorDependencies{
		TicketRepo: h.tickets,
		PolicyRepo: h.policies,
		Router:     h.router,
		Notifier:   h.notifier,
		Events:     h.eventLog,
		Clock:      h.clock,
		Logger:     logger,
	})
	h.ticketSvc = NewTicketService(TicketDependencies{
		TicketRepo:  h.tickets,
		CommentRepo: h.comments,
		UserRepo:    h.users,
		Events:      h.eventLog,
		Notifier:    h.notifier,
		Clock:       h.clock,
		Logger:      logger,
	})
	h.policySvc = NewSLAPolicyService(h.policies, logger)
	return h
}

func (h *harness) createTicket(t *testing.T, priority domain.TicketPriority) *domain.Ticket {
	t.Helper()
	ticket, err := h.ticketSvc.Create(context.Background(), customerID, TicketCreateInput{
		Subject:     "Printer on fire",
		Description: "Smoke everywhere",
		Priority:    priority,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return ticket
}

func actor(id string, role domain.Role) domain.Actor {
	return domain.Actor{ID: id, Role: role}
}

func strPtr(s string) *string { return &s }

func statusPtr(s domain.TicketStatus) *domain.TicketStatus { return &s }

func priorityPtr(p domain.TicketPriority) *domain.TicketPriority { return &p }
