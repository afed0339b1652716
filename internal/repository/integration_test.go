//go:build integration

package repository_test

// Run with: go test -tags integration ./internal/repository/... -v

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/makingtools/rapidbites-sub001/internal/dto"
	"github.com/makingtools/rapidbites-sub001/internal/infra"
	"github.com/makingtools/rapidbites-sub001/internal/model"
	"github.com/makingtools/rapidbites-sub001/internal/repository"
	"github.com/makingtools/rapidbites-sub001/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("cashdrawer_test"),
		tcPostgres.WithUsername("cashdrawer"),
		tcPostgres.WithPassword("cashdrawer"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres container")
	}

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatal().Err(err).Msg("postgres dsn")
	}
	testDB, err = infra.NewDatabase(dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connect")
	}

	code := m.Run()
	_ = pgC.Terminate(ctx)
	os.Exit(code)
}

// brokenMark fails the state change after the closing row was written.
type brokenMark struct{ repository.SessionRepository }

func (brokenMark) MarkSessionClosedTx(context.Context, *gorm.DB, uuid.UUID, time.Time) error {
	return errors.New("connection reset")
}

func newService(sessions repository.SessionRepository) service.SessionService {
	return service.NewSessionService(service.SessionDeps{
		Sessions:  sessions,
		Closings:  repository.NewClosingRepository(testDB),
		Invoices:  repository.NewInvoiceRepository(testDB),
		Operators: repository.NewOperatorRepository(testDB),
		Locker:    infra.NewLocalLocker(),
	}, service.SessionOptions{PersistTimeout: 5 * time.Second})
}

func addInvoice(t *testing.T, sessionID uuid.UUID, method, status string, total int64) {
	t.Helper()
	require.NoError(t, testDB.Create(&model.Invoice{
		ID:            uuid.New(),
		Number:        uuid.NewString()[:8],
		Total:         decimal.NewFromInt(total),
		PaymentMethod: method,
		Status:        status,
		CashSessionID: &sessionID,
		IssueDate:     time.Now(),
	}).Error)
}

func TestPartialUniqueIndexRejectsSecondActiveSession(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewSessionRepository(testDB)
	userID := uuid.New()

	first := &model.CashSession{UserID: userID, OpeningBalance: decimal.NewFromInt(10), OpeningDate: time.Now(), Status: model.SessionStatusActive}
	require.NoError(t, repo.CreateSession(ctx, first))

	second := &model.CashSession{UserID: userID, OpeningBalance: decimal.NewFromInt(20), OpeningDate: time.Now(), Status: model.SessionStatusActive}
	assert.ErrorIs(t, repo.CreateSession(ctx, second), repository.ErrConflict)
}

func TestCloseSessionPostgres(t *testing.T) {
	ctx := context.Background()
	sessions := repository.NewSessionRepository(testDB)
	svc := newService(sessions)

	s, err := svc.OpenSession(ctx, uuid.New(), dto.OpenSessionRequest{OpeningBalance: decimal.NewFromInt(50000)})
	require.NoError(t, err)
	addInvoice(t, s.ID, "cash", model.InvoiceStatusPaid, 120000)
	addInvoice(t, s.ID, "card", "voided", 999)

	closing, err := svc.CloseSession(ctx, s.ID, dto.CloseSessionRequest{Counted: dto.CountedAmounts{Cash: decimal.NewFromInt(165000)}})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, closing.ID)
	assert.True(t, closing.TotalDifference.Equal(decimal.NewFromInt(-5000)))

	stored, err := sessions.FindSessionByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusClosed, stored.Status)
	assert.NotNil(t, stored.ClosingDate)

	_, err = svc.CloseSession(ctx, s.ID, dto.CloseSessionRequest{})
	assert.ErrorIs(t, err, service.ErrSessionAlreadyClosed)

	rows, err := repository.NewClosingRepository(testDB).ListClosingsBySession(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].CashDifference.Equal(decimal.NewFromInt(-5000)))
}

func TestCloseSessionStoresExtremeVariance(t *testing.T) {
	ctx := context.Background()
	sessions := repository.NewSessionRepository(testDB)
	svc := newService(sessions)

	s, err := svc.OpenSession(ctx, uuid.New(), dto.OpenSessionRequest{OpeningBalance: decimal.NewFromInt(10)})
	require.NoError(t, err)

	counted := decimal.RequireFromString("999999999999.99")
	_, err = svc.CloseSession(ctx, s.ID, dto.CloseSessionRequest{Counted: dto.CountedAmounts{Cash: counted, Other: counted.Neg()}})
	require.NoError(t, err)

	rows, err := repository.NewClosingRepository(testDB).ListClosingsBySession(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].CountedCash.Equal(counted))
	assert.True(t, rows[0].DifferencePct.Equal(decimal.RequireFromString("-100")), rows[0].DifferencePct.String())

	s, err = svc.OpenSession(ctx, uuid.New(), dto.OpenSessionRequest{OpeningBalance: decimal.RequireFromString("0.01")})
	require.NoError(t, err)
	_, err = svc.CloseSession(ctx, s.ID, dto.CloseSessionRequest{Counted: dto.CountedAmounts{Cash: counted}})
	require.NoError(t, err)

	rows, err = repository.NewClosingRepository(testDB).ListClosingsBySession(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].DifferencePct.Equal(decimal.RequireFromString("9999999999999800")), rows[0].DifferencePct.String())
}

func TestCloseSessionRollsBackClosingOnFailure(t *testing.T) {
	ctx := context.Background()
	sessions := repository.NewSessionRepository(testDB)
	s, err := newService(sessions).OpenSession(ctx, uuid.New(), dto.OpenSessionRequest{OpeningBalance: decimal.NewFromInt(100)})
	require.NoError(t, err)

	_, err = newService(brokenMark{sessions}).CloseSession(ctx, s.ID, dto.CloseSessionRequest{Counted: dto.CountedAmounts{Cash: decimal.NewFromInt(100)}})
	assert.ErrorIs(t, err, service.ErrPersistence)

	rows, err := repository.NewClosingRepository(testDB).ListClosingsBySession(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, rows, "closing row must roll back with the failed state change")

	stored, err := sessions.FindSessionByID(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive())
}

func TestOperatorLookup(t *testing.T) {
	ctx := context.Background()
	op := &model.Operator{Username: "op-" + uuid.NewString()[:8], Name: "Lookup", PasswordHash: "x", Role: model.RoleCashier, Active: true}
	require.NoError(t, testDB.Create(op).Error)

	repo := repository.NewOperatorRepository(testDB)
	found, err := repo.FindOperatorByUsername(ctx, op.Username)
	require.NoError(t, err)
	assert.Equal(t, op.ID, found.ID)

	_, err = repo.FindOperatorByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
