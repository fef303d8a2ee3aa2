package usecase

import "github.com/riskibarqy/arisan/internal/domain/arisan"

// EventRecorder receives business events after they are committed.
type EventRecorder interface {
	PeriodStarted(groupID string, number int)
	CycleAdvanced(groupID string, cycle int)
	PaymentSubmitted(groupID string, replacedRejected bool)
	PaymentReviewed(groupID string, status arisan.PaymentStatus)
	DrawPerformed(groupID string, pot int64, cycleComplete bool)
	DrawRefused(groupID string, reason error)
}

type nopRecorder struct{}

func (nopRecorder) PeriodStarted(string, int) {}
func (nopRecorder) CycleAdvanced(string, int) {}
func (nopRecorder) PaymentSubmitted(string, bool) {}
func (nopRecorder) PaymentReviewed(string, arisan.PaymentStatus) {}
func (nopRecorder) DrawPerformed(string, int64, bool) {}
func (nopRecorder) DrawRefused(string, error) {}

func recorderOrNop(r EventRecorder) EventRecorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}
