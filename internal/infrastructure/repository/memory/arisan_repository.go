package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/arisan/internal/domain/arisan"
)

type state struct {
	groups   map[string]arisan.Group
	members  map[string]map[string]arisan.Member
	periods  map[string]arisan.Period
	payments map[string]arisan.Payment
	draws    map[string]arisan.Draw
}

func newState() *state {
	return &state{
		groups:   make(map[string]arisan.Group),
		members:  make(map[string]map[string]arisan.Member),
		periods:  make(map[string]arisan.Period),
		payments: make(map[string]arisan.Payment),
		draws:    make(map[string]arisan.Draw),
	}
}

func (s *state) clone() *state {
	out := newState()
	for k, v := range s.groups {
		out.groups[k] = v
	}
	for groupID, byUser := range s.members {
		copied := make(map[string]arisan.Member, len(byUser))
		for userID, m := range byUser {
			copied[userID] = m
		}
		out.members[groupID] = copied
	}
	for k, v := range s.periods {
		out.periods[k] = v
	}
	for k, v := range s.payments {
		out.payments[k] = v
	}
	for k, v := range s.draws {
		out.draws[k] = v
	}
	return out
}

// ArisanRepository keeps all arisan data in process. Transactions hold the
// write lock for their whole duration and commit by swapping in a working copy,
// so they are serializable and roll back cleanly.
type ArisanRepository struct {
	mu sync.RWMutex
	st *state
}

func NewArisanRepository() *ArisanRepository {
	return &ArisanRepository{st: newState()}
}

func (r *ArisanRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx arisan.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	work := r.st.clone()
	if err := fn(ctx, &txView{view: view{st: work}}); err != nil {
		return err
	}
	r.st = work
	return nil
}

func (r *ArisanRepository) read() view {
	return view{st: r.st}
}

func (r *ArisanRepository) GetGroup(ctx context.Context, groupID string) (arisan.Group, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.read().GetGroup(ctx, groupID)
}

func (r *ArisanRepository) ListGroupsByUser(ctx context.Context, userID string) ([]arisan.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.read().ListGroupsByUser(ctx, userID)
}

func (r *ArisanRepository) ListMembers(ctx context.Context, groupID string) ([]arisan.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.read().ListMembers(ctx, groupID)
}

func (r *ArisanRepository) GetMember(ctx context.Context, groupID, userID string) (arisan.Member, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.read().GetMember(ctx, groupID, userID)
}

func (r *ArisanRepository) GetActivePeriod(ctx context.Context, groupID string) (arisan.Period, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.read().GetActivePeriod(ctx, groupID)
}

func (r *ArisanRepository) GetPeriod(ctx context.Context, groupID, periodID string) (arisan.Period, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.read().GetPeriod(ctx, groupID, periodID)
}

func (r *ArisanRepository) ListPeriods(ctx context.Context, groupID string) ([]arisan.Period, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.read().ListPeriods(ctx, groupID)
}

func (r *ArisanRepository) MaxPeriodNumber(ctx context.Context, groupID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.read().MaxPeriodNumber(ctx, groupID)
}

func (r *ArisanRepository) GetPayment(ctx context.Context, groupID, paymentID string) (arisan.Payment, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.read().GetPayment(ctx, groupID, paymentID)
}

func (r *ArisanRepository) GetPaymentByMember(ctx context.Context, periodID, userID string) (arisan.Payment, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.read().GetPaymentByMember(ctx, periodID, userID)
}

func (r *ArisanRepository) ListPaymentsByPeriod(ctx context.Context, periodID string) ([]arisan.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.read().ListPaymentsByPeriod(ctx, periodID)
}

func (r *ArisanRepository) ListPaymentsByGroup(ctx context.Context, groupID string) ([]arisan.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.read().ListPaymentsByGroup(ctx, groupID)
}

func (r *ArisanRepository) ListDrawsByGroup(ctx context.Context, groupID string) ([]arisan.Draw, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.read().ListDrawsByGroup(ctx, groupID)
}

func (r *ArisanRepository) ListDrawsByCycle(ctx context.Context, groupID string, cycle int) ([]arisan.Draw, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.read().ListDrawsByCycle(ctx, groupID, cycle)
}

func (r *ArisanRepository) GetDrawByPeriod(ctx context.Context, periodID string) (arisan.Draw, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.read().GetDrawByPeriod(ctx, periodID)
}

// view reads a state without locking; the caller holds the lock.
type view struct {
	st *state
}

func (v view) GetGroup(_ context.Context, groupID string) (arisan.Group, bool, error) {
	g, ok := v.st.groups[groupID]
	return g, ok, nil
}

func (v view) ListGroupsByUser(_ context.Context, userID string) ([]arisan.Group, error) {
	out := make([]arisan.Group, 0)
	for groupID, byUser := range v.st.members {
		if _, ok := byUser[userID]; ok {
			out = append(out, v.st.groups[groupID])
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (v view) ListMembers(_ context.Context, groupID string) ([]arisan.Member, error) {
	byUser := v.st.members[groupID]
	out := make([]arisan.Member, 0, len(byUser))
	for _, m := range byUser {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (v view) GetMember(_ context.Context, groupID, userID string) (arisan.Member, bool, error) {
	m, ok := v.st.members[groupID][userID]
	return m, ok, nil
}

func (v view) GetActivePeriod(_ context.Context, groupID string) (arisan.Period, bool, error) {
	for _, p := range v.st.periods {
		if p.GroupID == groupID && p.Status == arisan.PeriodStatusActive {
			return p, true, nil
		}
	}
	return arisan.Period{}, false, nil
}

func (v view) GetPeriod(_ context.Context, groupID, periodID string) (arisan.Period, bool, error) {
	p, ok := v.st.periods[periodID]
	if !ok || p.GroupID != groupID {
		return arisan.Period{}, false, nil
	}
	return p, true, nil
}

func (v view) ListPeriods(_ context.Context, groupID string) ([]arisan.Period, error) {
	out := make([]arisan.Period, 0)
	for _, p := range v.st.periods {
		if p.GroupID == groupID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (v view) MaxPeriodNumber(_ context.Context, groupID string) (int, error) {
	maxNumber := 0
	for _, p := range v.st.periods {
		if p.GroupID == groupID && p.Number > maxNumber {
			maxNumber = p.Number
		}
	}
	return maxNumber, nil
}

func (v view) GetPayment(_ context.Context, groupID, paymentID string) (arisan.Payment, bool, error) {
	p, ok := v.st.payments[paymentID]
	if !ok || p.GroupID != groupID {
		return arisan.Payment{}, false, nil
	}
	return p, true, nil
}

func (v view) GetPaymentByMember(_ context.Context, periodID, userID string) (arisan.Payment, bool, error) {
	for _, p := range v.st.payments {
		if p.PeriodID == periodID && p.UserID == userID {
			return p, true, nil
		}
	}
	return arisan.Payment{}, false, nil
}

func (v view) ListPaymentsByPeriod(_ context.Context, periodID string) ([]arisan.Payment, error) {
	out := make([]arisan.Payment, 0)
	for _, p := range v.st.payments {
		if p.PeriodID == periodID {
			out = append(out, p)
		}
	}
	sortPayments(out, false)
	return out, nil
}

func (v view) ListPaymentsByGroup(_ context.Context, groupID string) ([]arisan.Payment, error) {
	out := make([]arisan.Payment, 0)
	for _, p := range v.st.payments {
		if p.GroupID == groupID {
			out = append(out, p)
		}
	}
	sortPayments(out, true)
	return out, nil
}

func (v view) ListDrawsByGroup(_ context.Context, groupID string) ([]arisan.Draw, error) {
	out := make([]arisan.Draw, 0)
	for _, d := range v.st.draws {
		if d.GroupID == groupID {
			out = append(out, d)
		}
	}
	sortDraws(out, true)
	return out, nil
}

func (v view) ListDrawsByCycle(_ context.Context, groupID string, cycle int) ([]arisan.Draw, error) {
	out := make([]arisan.Draw, 0)
	for _, d := range v.st.draws {
		if d.GroupID == groupID && d.CycleNumber == cycle {
			out = append(out, d)
		}
	}
	sortDraws(out, false)
	return out, nil
}

func (v view) GetDrawByPeriod(_ context.Context, periodID string) (arisan.Draw, bool, error) {
	for _, d := range v.st.draws {
		if d.PeriodID == periodID {
			return d, true, nil
		}
	}
	return arisan.Draw{}, false, nil
}

type txView struct {
	view
}

func (t *txView) LockGroup(ctx context.Context, groupID string) (arisan.Group, bool, error) {
	return t.GetGroup(ctx, groupID)
}

func (t *txView) CreateGroup(_ context.Context, group arisan.Group) error {
	if _, exists := t.st.groups[group.ID]; exists {
		return fmt.Errorf("group %s already exists", group.ID)
	}
	t.st.groups[group.ID] = group
	return nil
}

func (t *txView) UpdateGroup(_ context.Context, group arisan.Group) error {
	if _, exists := t.st.groups[group.ID]; !exists {
		return fmt.Errorf("group %s not found", group.ID)
	}
	t.st.groups[group.ID] = group
	return nil
}

func (t *txView) DeleteGroup(_ context.Context, groupID string) error {
	delete(t.st.groups, groupID)
	delete(t.st.members, groupID)
	for id, p := range t.st.periods {
		if p.GroupID == groupID {
			delete(t.st.periods, id)
		}
	}
	for id, p := range t.st.payments {
		if p.GroupID == groupID {
			delete(t.st.payments, id)
		}
	}
	for id, d := range t.st.draws {
		if d.GroupID == groupID {
			delete(t.st.draws, id)
		}
	}
	return nil
}

func (t *txView) AddMember(_ context.Context, member arisan.Member) error {
	if _, exists := t.st.groups[member.GroupID]; !exists {
		return fmt.Errorf("group %s not found", member.GroupID)
	}
	byUser := t.st.members[member.GroupID]
	if byUser == nil {
		byUser = make(map[string]arisan.Member)
		t.st.members[member.GroupID] = byUser
	}
	if _, exists := byUser[member.UserID]; exists {
		return arisan.ErrAlreadyMember
	}
	byUser[member.UserID] = member
	return nil
}

func (t *txView) RemoveMember(_ context.Context, groupID, userID string) error {
	if _, exists := t.st.members[groupID][userID]; !exists {
		return arisan.ErrNotMember
	}
	delete(t.st.members[groupID], userID)
	return nil
}

func (t *txView) SetCurrentCycle(_ context.Context, groupID string, cycle int, at time.Time) error {
	g, exists := t.st.groups[groupID]
	if !exists {
		return fmt.Errorf("group %s not found", groupID)
	}
	g.CurrentCycle = cycle
	g.UpdatedAt = at
	t.st.groups[groupID] = g
	return nil
}

func (t *txView) CreatePeriod(_ context.Context, period arisan.Period) error {
	if _, exists := t.st.groups[period.GroupID]; !exists {
		return fmt.Errorf("group %s not found", period.GroupID)
	}
	for _, p := range t.st.periods {
		if p.GroupID != period.GroupID {
			continue
		}
		if p.Number == period.Number {
			return fmt.Errorf("period number %d already used", period.Number)
		}
		if period.Status == arisan.PeriodStatusActive && p.Status == arisan.PeriodStatusActive {
			return arisan.ErrAlreadyActive
		}
	}
	t.st.periods[period.ID] = period
	return nil
}

func (t *txView) CompletePeriod(_ context.Context, periodID string, at time.Time) error {
	p, exists := t.st.periods[periodID]
	if !exists || p.Status != arisan.PeriodStatusActive {
		return arisan.ErrNoActivePeriod
	}
	p.Status = arisan.PeriodStatusCompleted
	p.UpdatedAt = at
	t.st.periods[periodID] = p
	return nil
}

func (t *txView) CreatePayment(_ context.Context, payment arisan.Payment) error {
	for _, p := range t.st.payments {
		if p.GroupID == payment.GroupID && p.PeriodID == payment.PeriodID && p.UserID == payment.UserID {
			return arisan.ErrConflict
		}
	}
	t.st.payments[payment.ID] = payment
	return nil
}

func (t *txView) DeletePayment(_ context.Context, paymentID string) error {
	delete(t.st.payments, paymentID)
	return nil
}

func (t *txView) UpdatePaymentStatus(_ context.Context, payment arisan.Payment) error {
	stored, exists := t.st.payments[payment.ID]
	if !exists || stored.Status != arisan.PaymentStatusPending {
		return arisan.ErrInvalidTransition
	}
	stored.Status = payment.Status
	stored.ReviewedAt = payment.ReviewedAt
	stored.UpdatedAt = payment.UpdatedAt
	t.st.payments[payment.ID] = stored
	return nil
}

func (t *txView) CreateDraw(_ context.Context, draw arisan.Draw) error {
	for _, d := range t.st.draws {
		if d.PeriodID == draw.PeriodID {
			return arisan.ErrAlreadyDrawn
		}
	}
	t.st.draws[draw.ID] = draw
	return nil
}

func sortPayments(items []arisan.Payment, newestFirst bool) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].PaidAt.Equal(items[j].PaidAt) {
			if newestFirst {
				return items[i].PaidAt.After(items[j].PaidAt)
			}
			return items[i].PaidAt.Before(items[j].PaidAt)
		}
		return items[i].ID < items[j].ID
	})
}

func sortDraws(items []arisan.Draw, newestFirst bool) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].DrawnAt.Equal(items[j].DrawnAt) {
			if newestFirst {
				return items[i].DrawnAt.After(items[j].DrawnAt)
			}
			return items[i].DrawnAt.Before(items[j].DrawnAt)
		}
		return items[i].ID < items[j].ID
	})
}
