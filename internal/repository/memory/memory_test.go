package memory

import (
	"context"
	"testing"
	"time"

	"github.com/makingtools/rapidbites-sub001/internal/model"
	"github.com/makingtools/rapidbites-sub001/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSessionRejectsSecondActivePerUser(t *testing.T) {
	s := New()
	ctx := context.Background()
	user := uuid.New()

	first := &model.CashSession{UserID: user, OpeningBalance: decimal.NewFromInt(100)}
	require.NoError(t, s.CreateSession(ctx, first))
	assert.Equal(t, model.SessionStatusActive, first.Status)

	err := s.CreateSession(ctx, &model.CashSession{UserID: user})
	assert.ErrorIs(t, err, repository.ErrConflict)

	// Another operator is unaffected.
	require.NoError(t, s.CreateSession(ctx, &model.CashSession{UserID: uuid.New()}))
}

func TestMarkSessionClosedFreesScope(t *testing.T) {
	s := New()
	ctx := context.Background()
	user := uuid.New()

	sess := &model.CashSession{UserID: user}
	require.NoError(t, s.CreateSession(ctx, sess))

	closedAt := time.Now().UTC()
	require.NoError(t, s.MarkSessionClosedTx(ctx, nil, sess.ID, closedAt))
	assert.ErrorIs(t, s.MarkSessionClosedTx(ctx, nil, sess.ID, closedAt), repository.ErrConflict)

	got, err := s.FindSessionByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusClosed, got.Status)
	require.NotNil(t, got.ClosingDate)

	_, err = s.FindActiveSessionByUser(ctx, user)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	require.NoError(t, s.CreateSession(ctx, &model.CashSession{UserID: user}))
}

func TestListClosingsBySessionIsChronological(t *testing.T) {
	s := New()
	ctx := context.Background()
	sessionID := uuid.New()
	base := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveClosing(ctx, &model.CashClosing{CashSessionID: sessionID, CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, s.SaveClosing(ctx, &model.CashClosing{CashSessionID: uuid.New(), CreatedAt: base}))
	require.NoError(t, s.SaveClosing(ctx, &model.CashClosing{CashSessionID: sessionID, CreatedAt: base}))

	got, err := s.ListClosingsBySession(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].CreatedAt.Before(got[1].CreatedAt))
	assert.NotEqual(t, uuid.Nil, got[0].ID)

	page, total, err := s.ListClosings(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 1)
}

func TestListPaidInvoicesBySessionFilters(t *testing.T) {
	s := New()
	sessionID := uuid.New()
	other := uuid.New()

	s.AddInvoice(model.Invoice{Total: decimal.NewFromInt(10), PaymentMethod: "cash", Status: "paid", CashSessionID: &sessionID})
	s.AddInvoice(model.Invoice{Total: decimal.NewFromInt(20), PaymentMethod: "cash", Status: "pending", CashSessionID: &sessionID})
	s.AddInvoice(model.Invoice{Total: decimal.NewFromInt(30), PaymentMethod: "card", Status: "paid", CashSessionID: &other})
	s.AddInvoice(model.Invoice{Total: decimal.NewFromInt(40), PaymentMethod: "card", Status: "paid"})

	got, err := s.ListPaidInvoicesBySession(context.Background(), sessionID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "10", got[0].Total.String())
}

func TestFindOperatorByUsernameSkipsInactive(t *testing.T) {
	s := New()
	s.AddOperator(model.Operator{Username: "ana", Name: "Ana", Role: model.RoleCashier, Active: false})

	_, err := s.FindOperatorByUsername(context.Background(), "ana")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	op := s.AddOperator(model.Operator{Username: "bruno", Name: "Bruno", Role: model.RoleCashier, Active: true})
	got, err := s.FindOperatorByUsername(context.Background(), "BRUNO")
	require.NoError(t, err)
	assert.Equal(t, op.ID, got.ID)
}
