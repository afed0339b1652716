package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/makingtools/rapidbites-sub001/internal/dto"
	"github.com/makingtools/rapidbites-sub001/internal/infra"
	"github.com/makingtools/rapidbites-sub001/internal/model"
	"github.com/makingtools/rapidbites-sub001/internal/repository/memory"
	"github.com/makingtools/rapidbites-sub001/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── Fixtures ──────────────────────────────────────────────────────────────────

type mockAlerts struct{ mock.Mock }

func (m *mockAlerts) EnqueueClosingAlert(ctx context.Context, a dto.ClosingAlert) error {
	return m.Called(ctx, a).Error(0)
}

// failingClosings refuses every write, as a full disk or lost connection would.
type failingClosings struct{ *memory.Store }

func (failingClosings) SaveClosingTx(context.Context, *gorm.DB, *model.CashClosing) error {
	return errors.New("write refused")
}

func newSessionService(store *memory.Store, alerts service.AlertDispatcher) service.SessionService {
	return service.NewSessionService(service.SessionDeps{
		Sessions:  store,
		Closings:  store,
		Invoices:  store,
		Operators: store,
		Locker:    infra.NewLocalLocker(),
		Alerts:    alerts,
	}, service.SessionOptions{})
}

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func addPaid(store *memory.Store, sessionID uuid.UUID, method string, total int64) {
	store.AddInvoice(model.Invoice{
		Number:        uuid.NewString()[:8],
		Total:         d(total),
		PaymentMethod: method,
		Status:        model.InvoiceStatusPaid,
		CashSessionID: &sessionID,
	})
}

func open(t *testing.T, svc service.SessionService, userID uuid.UUID, balance int64) *model.CashSession {
	t.Helper()
	s, err := svc.OpenSession(context.Background(), userID, dto.OpenSessionRequest{OpeningBalance: d(balance)})
	require.NoError(t, err)
	return s
}

// ── OpenSession ───────────────────────────────────────────────────────────────

func TestOpenSession(t *testing.T) {
	store := memory.New()
	svc := newSessionService(store, nil)
	userID := uuid.New()

	s := open(t, svc, userID, 50000)

	assert.NotEqual(t, uuid.Nil, s.ID)
	assert.Equal(t, userID, s.UserID)
	assert.Equal(t, model.SessionStatusActive, s.Status)
	assert.Nil(t, s.ClosingDate)
	assert.Equal(t, "50000", s.OpeningBalance.String())

	active, err := svc.GetActive(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, active.ID)
}

func TestOpenSession_ZeroBalanceAllowed(t *testing.T) {
	svc := newSessionService(memory.New(), nil)
	s := open(t, svc, uuid.New(), 0)
	assert.True(t, s.OpeningBalance.IsZero())
}

func TestOpenSession_NegativeBalance(t *testing.T) {
	store := memory.New()
	svc := newSessionService(store, nil)
	userID := uuid.New()

	_, err := svc.OpenSession(context.Background(), userID, dto.OpenSessionRequest{OpeningBalance: d(-1)})
	assert.ErrorIs(t, err, service.ErrInvalidAmount)

	active, err := svc.GetActive(context.Background(), userID)
	require.NoError(t, err)
	assert.Nil(t, active, "no session may be created for a rejected amount")
}

func TestOpenSession_AlreadyActive(t *testing.T) {
	svc := newSessionService(memory.New(), nil)
	userID := uuid.New()
	first := open(t, svc, userID, 1000)

	_, err := svc.OpenSession(context.Background(), userID, dto.OpenSessionRequest{OpeningBalance: d(2000)})
	assert.ErrorIs(t, err, service.ErrSessionAlreadyActive)

	active, err := svc.GetActive(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)
	assert.Equal(t, "1000", active.OpeningBalance.String())
}

func TestOpenSession_OtherOperatorsIndependent(t *testing.T) {
	svc := newSessionService(memory.New(), nil)
	open(t, svc, uuid.New(), 1000)
	open(t, svc, uuid.New(), 1000)
}

func TestOpenSession_ConcurrentOpensCreateOne(t *testing.T) {
	store := memory.New()
	svc := newSessionService(store, nil)
	userID := uuid.New()

	const n = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.OpenSession(context.Background(), userID, dto.OpenSessionRequest{OpeningBalance: d(100)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, service.ErrSessionAlreadyActive):
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, n-1, rejected)

	_, total, err := svc.ListSessions(context.Background(), 1, 50)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestOpenSession_AfterCloseAllowed(t *testing.T) {
	svc := newSessionService(memory.New(), nil)
	userID := uuid.New()
	s := open(t, svc, userID, 100)

	_, err := svc.CloseSession(context.Background(), s.ID, dto.CloseSessionRequest{Counted: dto.CountedAmounts{Cash: d(100)}})
	require.NoError(t, err)

	next := open(t, svc, userID, 200)
	assert.NotEqual(t, s.ID, next.ID)
}

// ── CloseSession ──────────────────────────────────────────────────────────────

func TestCloseSession_ExactCount(t *testing.T) {
	store := memory.New()
	svc := newSessionService(store, nil)
	s := open(t, svc, uuid.New(), 50000)
	addPaid(store, s.ID, model.PaymentMethodCash, 120000)

	closing, err := svc.CloseSession(context.Background(), s.ID, dto.CloseSessionRequest{
		Counted: dto.CountedAmounts{Cash: d(170000)},
	})
	require.NoError(t, err)

	assert.Equal(t, "170000", closing.ExpectedCash.String())
	assert.Equal(t, "0", closing.CashDifference.String())
	assert.Equal(t, "0", closing.CardDifference.String())
	assert.Equal(t, "0", closing.TransferDifference.String())
	assert.Equal(t, "0", closing.OtherDifference.String())
	assert.Equal(t, "120000", closing.TotalSystemSales.String())
	assert.Equal(t, "120000", closing.TotalCountedSales.String())
	assert.Equal(t, "0", closing.TotalDifference.String())
	assert.Equal(t, model.VarianceNormal, closing.Classification)

	closed, err := svc.GetSession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosingDate)
	assert.Equal(t, closing.ClosingDate, *closed.ClosingDate)
}

func TestCloseSession_CashShortage(t *testing.T) {
	store := memory.New()
	svc := newSessionService(store, nil)
	s := open(t, svc, uuid.New(), 50000)
	addPaid(store, s.ID, model.PaymentMethodCash, 120000)

	closing, err := svc.CloseSession(context.Background(), s.ID, dto.CloseSessionRequest{
		Counted: dto.CountedAmounts{Cash: d(165000)},
	})
	require.NoError(t, err)

	assert.Equal(t, "-5000", closing.CashDifference.String())
	assert.Equal(t, "-5000", closing.TotalDifference.String())
	assert.Equal(t, "115000", closing.TotalCountedSales.String())
	// -5000 / 170000 = -2.94% → between the default thresholds
	assert.Equal(t, "-2.94", closing.DifferencePct.String())
	assert.Equal(t, model.VarianceWarning, closing.Classification)
}

func TestCloseSession_MixedMethods(t *testing.T) {
	store := memory.New()
	svc := newSessionService(store, nil)
	s := open(t, svc, uuid.New(), 1000)
	addPaid(store, s.ID, model.PaymentMethodCash, 3000)
	addPaid(store, s.ID, model.PaymentMethodCard, 1500)
	addPaid(store, s.ID, model.PaymentMethodTransfer, 700)
	addPaid(store, s.ID, "voucher", 300)

	closing, err := svc.CloseSession(context.Background(), s.ID, dto.CloseSessionRequest{
		Counted: dto.CountedAmounts{Cash: d(3900), Card: d(1500), Transfer: d(750), Other: d(300)},
	})
	require.NoError(t, err)

	assert.Equal(t, "-100", closing.CashDifference.String())
	assert.Equal(t, "0", closing.CardDifference.String())
	assert.Equal(t, "50", closing.TransferDifference.String())
	assert.Equal(t, "0", closing.OtherDifference.String())
	assert.Equal(t, "5500", closing.TotalSystemSales.String())
	assert.Equal(t, "5450", closing.TotalCountedSales.String())

	sum := closing.CashDifference.Add(closing.CardDifference).Add(closing.TransferDifference).Add(closing.OtherDifference)
	assert.True(t, sum.Equal(closing.TotalDifference), "sum %s != total %s", sum, closing.TotalDifference)
}

func TestCloseSession_NoInvoices(t *testing.T) {
	store := memory.New()
	svc := newSessionService(store, nil)
	s := open(t, svc, uuid.New(), 2500)

	closing, err := svc.CloseSession(context.Background(), s.ID, dto.CloseSessionRequest{
		Counted: dto.CountedAmounts{Cash: d(2500)},
	})
	require.NoError(t, err)
	assert.Equal(t, "2500", closing.ExpectedCash.String())
	assert.True(t, closing.TotalSystemSales.IsZero())
	assert.True(t, closing.TotalDifference.IsZero())
}

func TestCloseSession_AlreadyClosed(t *testing.T) {
	store := memory.New()
	svc := newSessionService(store, nil)
	s := open(t, svc, uuid.New(), 100)
	req := dto.CloseSessionRequest{Counted: dto.CountedAmounts{Cash: d(100)}}

	_, err := svc.CloseSession(context.Background(), s.ID, req)
	require.NoError(t, err)

	_, err = svc.CloseSession(context.Background(), s.ID, req)
	assert.ErrorIs(t, err, service.ErrSessionAlreadyClosed)

	closings, err := store.ListClosingsBySession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Len(t, closings, 1)
}

func TestCloseSession_ConcurrentClosesRecordOnce(t *testing.T) {
	store := memory.New()
	svc := newSessionService(store, nil)
	s := open(t, svc, uuid.New(), 100)

	const n = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CloseSession(context.Background(), s.ID, dto.CloseSessionRequest{Counted: dto.CountedAmounts{Cash: d(100)}})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	closings, err := store.ListClosingsBySession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Len(t, closings, 1)
}

func TestCloseSession_NotFound(t *testing.T) {
	svc := newSessionService(memory.New(), nil)
	_, err := svc.CloseSession(context.Background(), uuid.New(), dto.CloseSessionRequest{})
	assert.ErrorIs(t, err, service.ErrSessionNotFound)
}

func TestCloseSession_SaveFailureKeepsSessionActive(t *testing.T) {
	store := memory.New()
	svc := service.NewSessionService(service.SessionDeps{
		Sessions: store,
		Closings: failingClosings{store},
		Invoices: store,
	}, service.SessionOptions{})
	s := open(t, svc, uuid.New(), 100)

	_, err := svc.CloseSession(context.Background(), s.ID, dto.CloseSessionRequest{Counted: dto.CountedAmounts{Cash: d(100)}})
	assert.ErrorIs(t, err, service.ErrPersistence)

	after, err := svc.GetSession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.True(t, after.IsActive())
}

func TestCloseSession_IgnoresForeignAndUnpaidInvoices(t *testing.T) {
	store := memory.New()
	svc := newSessionService(store, nil)
	s := open(t, svc, uuid.New(), 0)
	other := open(t, svc, uuid.New(), 0)

	addPaid(store, s.ID, model.PaymentMethodCard, 400)
	addPaid(store, other.ID, model.PaymentMethodCard, 9999)
	store.AddInvoice(model.Invoice{Total: d(5000), PaymentMethod: model.PaymentMethodCard, Status: "voided", CashSessionID: &s.ID})

	closing, err := svc.CloseSession(context.Background(), s.ID, dto.CloseSessionRequest{Counted: dto.CountedAmounts{Card: d(400)}})
	require.NoError(t, err)
	assert.Equal(t, "400", closing.ExpectedCard.String())
	assert.True(t, closing.TotalDifference.IsZero())
}

// ── Alerts ────────────────────────────────────────────────────────────────────

func TestCloseSession_CriticalVarianceQueuesAlert(t *testing.T) {
	store := memory.New()
	op := store.AddOperator(model.Operator{Username: "ana", Name: "Ana Ruiz", Role: model.RoleCashier, Active: true})
	alerts := &mockAlerts{}
	alerts.On("EnqueueClosingAlert", mock.Anything, mock.MatchedBy(func(a dto.ClosingAlert) bool {
		return a.Classification == model.VarianceCritical && a.OperatorName == "Ana Ruiz" && a.TotalDifference == "-1,000.00"
	})).Return(nil).Once()

	svc := newSessionService(store, alerts)
	s := open(t, svc, op.ID, 10000)

	closing, err := svc.CloseSession(context.Background(), s.ID, dto.CloseSessionRequest{Counted: dto.CountedAmounts{Cash: d(9000)}})
	require.NoError(t, err)
	assert.Equal(t, model.VarianceCritical, closing.Classification)
	alerts.AssertExpectations(t)
}

func TestCloseSession_NormalVarianceSkipsAlert(t *testing.T) {
	store := memory.New()
	alerts := &mockAlerts{}
	svc := newSessionService(store, alerts)
	s := open(t, svc, uuid.New(), 10000)

	_, err := svc.CloseSession(context.Background(), s.ID, dto.CloseSessionRequest{Counted: dto.CountedAmounts{Cash: d(10000)}})
	require.NoError(t, err)
	alerts.AssertNotCalled(t, "EnqueueClosingAlert", mock.Anything, mock.Anything)
}

func TestCloseSession_AlertFailureDoesNotFailClose(t *testing.T) {
	store := memory.New()
	alerts := &mockAlerts{}
	alerts.On("EnqueueClosingAlert", mock.Anything, mock.Anything).Return(errors.New("queue down"))
	svc := newSessionService(store, alerts)
	s := open(t, svc, uuid.New(), 10000)

	_, err := svc.CloseSession(context.Background(), s.ID, dto.CloseSessionRequest{Counted: dto.CountedAmounts{Cash: d(5000)}})
	require.NoError(t, err)

	after, err := svc.GetSession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusClosed, after.Status)
}

// ── Expected ──────────────────────────────────────────────────────────────────

func TestExpected_IsRepeatable(t *testing.T) {
	store := memory.New()
	svc := newSessionService(store, nil)
	s := open(t, svc, uuid.New(), 50000)
	addPaid(store, s.ID, model.PaymentMethodCash, 120000)
	addPaid(store, s.ID, model.PaymentMethodCard, 30000)

	first, err := svc.Expected(context.Background(), s.ID)
	require.NoError(t, err)
	second, err := svc.Expected(context.Background(), s.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "170000", first.Expected.Cash.String())
	assert.Equal(t, "30000", first.Expected.Card.String())
	assert.Equal(t, "200000", first.Expected.Total.String())

	still, err := svc.GetSession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.True(t, still.IsActive())
}

func TestExpected_NotFound(t *testing.T) {
	svc := newSessionService(memory.New(), nil)
	_, err := svc.Expected(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrSessionNotFound)
}

func TestGetActive_None(t *testing.T) {
	svc := newSessionService(memory.New(), nil)
	s, err := svc.GetActive(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestCloseSession_ExtremeVarianceStillCloses(t *testing.T) {
	store := memory.New()
	svc := newSessionService(store, nil)
	s := open(t, svc, uuid.New(), 10)

	closing, err := svc.CloseSession(context.Background(), s.ID, dto.CloseSessionRequest{
		Counted: dto.CountedAmounts{Cash: d(10010)},
	})
	require.NoError(t, err)
	assert.Equal(t, "100000", closing.DifferencePct.String())
	assert.Equal(t, model.VarianceCritical, closing.Classification)

	got, err := svc.GetSession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusClosed, got.Status)
}

func TestCloseSession_ShortageWithoutSales(t *testing.T) {
	store := memory.New()
	svc := newSessionService(store, nil)
	s := open(t, svc, uuid.New(), 100)

	closing, err := svc.CloseSession(context.Background(), s.ID, dto.CloseSessionRequest{
		Counted: dto.CountedAmounts{Cash: d(90)},
	})
	require.NoError(t, err)
	assert.True(t, closing.TotalSystemSales.IsZero())
	// measured against the 100 float that should still be in the drawer
	assert.Equal(t, "-10", closing.DifferencePct.String())
	assert.Equal(t, model.VarianceCritical, closing.Classification)
}

func TestCloseSession_RoundsCountsToCents(t *testing.T) {
	store := memory.New()
	svc := newSessionService(store, nil)
	s := open(t, svc, uuid.New(), 100)

	closing, err := svc.CloseSession(context.Background(), s.ID, dto.CloseSessionRequest{
		Counted: dto.CountedAmounts{Cash: decimal.RequireFromString("100.004"), Card: decimal.RequireFromString("0.006")},
	})
	require.NoError(t, err)
	assert.Equal(t, "100", closing.CountedCash.String())
	assert.Equal(t, "0.01", closing.CountedCard.String())
	assert.True(t, closing.TotalDifference.Equal(closing.CashDifference.Add(closing.CardDifference)))
}
