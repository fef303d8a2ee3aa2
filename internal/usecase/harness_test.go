package usecase

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/riskibarqy/arisan/internal/domain/arisan"
	"github.com/riskibarqy/arisan/internal/infrastructure/repository/memory"
	proofmock "github.com/riskibarqy/arisan/internal/mocks/domain/proof"
	idgen "github.com/riskibarqy/arisan/internal/platform/id"
	"github.com/riskibarqy/arisan/internal/platform/logging"
	"github.com/riskibarqy/arisan/internal/platform/random"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

type recordedEvents struct {
	mu            sync.Mutex
	started       int
	advanced      []int
	submitted     int
	reviewed      map[arisan.PaymentStatus]int
	draws         int
	refusals      int
	lastPot       int64
	cycleComplete bool
}

func (r *recordedEvents) PeriodStarted(string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recordedEvents) CycleAdvanced(_ string, cycle int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advanced = append(r.advanced, cycle)
}

func (r *recordedEvents) PaymentSubmitted(string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submitted++
}

func (r *recordedEvents) PaymentReviewed(_ string, status arisan.PaymentStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reviewed == nil {
		r.reviewed = make(map[arisan.PaymentStatus]int)
	}
	r.reviewed[status]++
}

func (r *recordedEvents) DrawPerformed(_ string, pot int64, complete bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draws++
	r.lastPot = pot
	r.cycleComplete = complete
}

func (r *recordedEvents) DrawRefused(string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refusals++
}

type harness struct {
	repo     *memory.ArisanRepository
	proofs   *proofmock.Store
	events   *recordedEvents
	groups   *GroupService
	payments *PaymentService
	periods  *PeriodService
	cycles   *CycleService
	draws    *DrawService
}

func newHarness(t *testing.T, picker random.Picker) *harness {
	t.Helper()

	repo := memory.NewArisanRepository()
	proofs := proofmock.NewStore(t)
	proofs.
		On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(func(_ context.Context, name, _ string, _ io.Reader, _ int64) (string, error) {
			return name, nil
		}).
		Maybe()

	clock := &testClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	events := &recordedEvents{}
	logger := logging.NewNop()
	ids := &idgen.Sequence{Prefix: "id"}

	cycles := NewCycleService(repo, logger)
	payments := NewPaymentService(repo, proofs, ids, logger, events)
	periods := NewPeriodService(repo, payments, cycles, ids, logger, events)
	draws := NewDrawService(repo, periods, payments, cycles, picker, ids, logger, events)
	groups := NewGroupService(repo, proofs, ids, logger)

	cycles.now = clock.Now
	payments.now = clock.Now
	periods.now = clock.Now
	draws.now = clock.Now
	groups.now = clock.Now

	return &harness{
		repo:     repo,
		proofs:   proofs,
		events:   events,
		groups:   groups,
		payments: payments,
		periods:  periods,
		cycles:   cycles,
		draws:    draws,
	}
}

// newGroup creates a group with creator u1 and members u2..uN.
func (h *harness) newGroup(t *testing.T, memberCount int) arisan.Group {
	t.Helper()

	others := make([]string, 0, memberCount-1)
	for i := 2; i <= memberCount; i++ {
		others = append(others, "u"+string(rune('0'+i)))
	}
	group, err := h.groups.Create(t.Context(), CreateGroupInput{
		UserID:              "u1",
		Name:                "Arisan Kantor",
		ContributionAmount:  50000,
		PeriodDurationWeeks: 4,
		MemberUserIDs:       others,
	})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	return group
}

func (h *harness) submit(t *testing.T, groupID, userID string) arisan.Payment {
	t.Helper()

	payment, err := h.payments.Submit(t.Context(), SubmitPaymentInput{
		UserID:      userID,
		GroupID:     groupID,
		ContentType: "image/jpeg",
		Body:        bytes.NewReader([]byte("img")),
		Size:        3,
	})
	if err != nil {
		t.Fatalf("submit payment for %s: %v", userID, err)
	}
	return payment
}

func (h *harness) payAll(t *testing.T, groupID string, userIDs ...string) {
	t.Helper()

	for _, userID := range userIDs {
		payment := h.submit(t, groupID, userID)
		if _, err := h.payments.Approve(t.Context(), ReviewPaymentInput{UserID: "u1", GroupID: groupID, PaymentID: payment.ID}); err != nil {
			t.Fatalf("approve payment for %s: %v", userID, err)
		}
	}
}

func (h *harness) startPeriod(t *testing.T, groupID string) arisan.Period {
	t.Helper()

	period, err := h.periods.StartPeriod(t.Context(), StartPeriodInput{UserID: "u1", GroupID: groupID})
	if err != nil {
		t.Fatalf("start period: %v", err)
	}
	return period
}

func (h *harness) group(t *testing.T, groupID string) arisan.Group {
	t.Helper()

	group, ok, err := h.repo.GetGroup(t.Context(), groupID)
	if err != nil || !ok {
		t.Fatalf("get group %s: ok=%v err=%v", groupID, ok, err)
	}
	return group
}
