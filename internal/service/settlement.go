package service

import (
	"context"
	"crypto/rand"
	"errors"
	"strings"
	"time"

	"github.com/mansoorceksport/clubdesk/internal/domain"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const archiveTimeout = 10 * time.Second

// SettlementDependencies wires the collaborators of a SettlementService
type SettlementDependencies struct {
	Plans         domain.PlanRepository
	Members       domain.MemberRepository
	Memberships   domain.MembershipRepository
	Payments      domain.PaymentRepository
	Receipts      domain.ReceiptRepository
	Sequences     domain.SequenceRepository
	Transactions  domain.TransactionRunner
	Locker        domain.MemberLocker
	Archive       domain.ReceiptArchive // optional
	ReceiptPrefix string
}

// SettlementService sells a plan to a member: it supersedes the member's active membership,
// records the payment and issues the receipt as one unit of work.
type SettlementService struct {
	plans       domain.PlanRepository
	members     domain.MemberRepository
	memberships domain.MembershipRepository
	payments    domain.PaymentRepository
	receipts    domain.ReceiptRepository
	sequences   domain.SequenceRepository
	tx          domain.TransactionRunner
	locker      domain.MemberLocker
	archive     domain.ReceiptArchive
	issuer      *ReceiptIssuer
	logger      *zap.Logger

	tracer   trace.Tracer
	settled  metric.Int64Counter
	duration metric.Float64Histogram

	now          func() time.Time
	newReference func() string
}

// NewSettlementService creates a new SettlementService
func NewSettlementService(deps SettlementDependencies, logger *zap.Logger) *SettlementService {
	logger = logger.Named("settlement")
	meter := otel.Meter("clubdesk/settlement")

	settled, err := meter.Int64Counter("settlements_total",
		metric.WithDescription("Settlement attempts by outcome"))
	if err != nil {
		logger.Warn("settlement counter unavailable", zap.Error(err))
		settled = noop.Int64Counter{}
	}
	duration, err := meter.Float64Histogram("settlement_duration_ms",
		metric.WithDescription("Settlement latency"), metric.WithUnit("ms"))
	if err != nil {
		logger.Warn("settlement histogram unavailable", zap.Error(err))
		duration = noop.Float64Histogram{}
	}

	return &SettlementService{
		plans:       deps.Plans,
		members:     deps.Members,
		memberships: deps.Memberships,
		payments:    deps.Payments,
		receipts:    deps.Receipts,
		sequences:   deps.Sequences,
		tx:          deps.Transactions,
		locker:      deps.Locker,
		archive:     deps.Archive,
		issuer:      NewReceiptIssuer(deps.Receipts, deps.Sequences, deps.ReceiptPrefix),
		logger:      logger,
		tracer:      otel.Tracer("clubdesk/settlement"),
		settled:     settled,
		duration:    duration,
		now:         time.Now,
		newReference: func() string {
			return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
		},
	}
}

// Settle runs the settlement workflow. Without an idempotency key every call creates a new
// settlement; with a key, repeats of the same request return the original outcome.
func (s *SettlementService) Settle(ctx context.Context, req domain.SettleRequest) (*domain.Settlement, error) {
	ctx, span := s.tracer.Start(ctx, "settlement.settle", trace.WithAttributes(
		attribute.Int64("member.id", req.MemberID),
		attribute.Int64("plan.id", req.PlanID),
		attribute.Bool("idempotent", req.IdempotencyKey != ""),
	))
	defer span.End()
	started := time.Now()

	result, err := s.settle(ctx, req)

	outcome := "settled"
	switch {
	case err != nil:
		outcome = string(domain.Code(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	case result.Replayed:
		outcome = "replayed"
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	s.settled.Add(ctx, 1, attrs)
	s.duration.Record(ctx, float64(time.Since(started).Microseconds())/1000, attrs)

	fields := []zap.Field{
		zap.Int64("member_id", req.MemberID),
		zap.Int64("plan_id", req.PlanID),
		zap.String("outcome", outcome),
		zap.Duration("elapsed", time.Since(started)),
	}
	if err != nil {
		if domain.Code(err) == domain.CodePersistenceError {
			s.logger.Error("settlement failed", append(fields, zap.Error(err))...)
		} else {
			s.logger.Info("settlement rejected", append(fields, zap.Error(err))...)
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("payment.id", result.PaymentID),
		attribute.String("receipt.number", result.ReceiptNumber),
	)
	s.logger.Info("settlement committed", append(fields,
		zap.Int64("payment_id", result.PaymentID),
		zap.Int64("membership_id", result.MembershipID),
		zap.String("receipt_number", result.ReceiptNumber),
	)...)
	return result, nil
}

func (s *SettlementService) settle(ctx context.Context, req domain.SettleRequest) (*domain.Settlement, error) {
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)
	if prior, err := s.replay(ctx, req); !errors.Is(err, domain.ErrReceiptNotFound) {
		return prior, err
	}

	plan, member, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	method, err := domain.ParsePaymentMethod(req.Method)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, member.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	// the same key may have been committed by a request we waited on
	if prior, err := s.replay(ctx, req); !errors.Is(err, domain.ErrReceiptNotFound) {
		return prior, err
	}

	// taken under the lock so a later holder never starts before the membership it supersedes
	start := s.now().UTC()
	end := domain.CalculateEndDate(start, plan.DurationDays)

	ids, err := s.reserve(ctx)
	if err != nil {
		return nil, domain.Persistence(err)
	}

	membership := &domain.Membership{
		ID:        ids.membership,
		MemberID:  member.ID,
		PlanID:    plan.ID,
		StartDate: start,
		EndDate:   end,
	}
	payment := &domain.Payment{
		ID:           ids.payment,
		MemberID:     member.ID,
		MembershipID: membership.ID,
		Amount:       plan.Price,
		Method:       method,
		Concept:      domain.PaymentConcept(plan.Name),
		Reference:    s.newReference(),
		PaidAt:       start,
	}

	var receipt *domain.Receipt
	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.memberships.Open(txCtx, membership); err != nil {
			return err
		}
		if err := s.payments.Record(txCtx, payment); err != nil {
			return err
		}
		issued, err := s.issuer.Issue(txCtx, IssueInput{
			Reservation:    ids.receipt,
			Payment:        payment,
			Membership:     membership,
			Member:         member,
			Plan:           plan,
			IdempotencyKey: req.IdempotencyKey,
			IssuedAt:       start,
		})
		if err != nil {
			return err
		}
		receipt = issued
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateIdempotencyKey):
			prior, replayErr := s.replay(ctx, req)
			if errors.Is(replayErr, domain.ErrReceiptNotFound) {
				return nil, domain.Persistence(err)
			}
			return prior, replayErr
		case errors.Is(err, domain.ErrConcurrentSettlement):
			return nil, err
		}
		return nil, domain.Persistence(err)
	}

	if s.archive != nil {
		go s.archiveReceipt(receipt)
	}

	return domain.SettlementFromReceipt(receipt), nil
}

// replay returns ErrReceiptNotFound when there is nothing to replay.
func (s *SettlementService) replay(ctx context.Context, req domain.SettleRequest) (*domain.Settlement, error) {
	if req.IdempotencyKey == "" {
		return nil, domain.ErrReceiptNotFound
	}

	prior, err := s.receipts.GetByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		if errors.Is(err, domain.ErrReceiptNotFound) {
			return nil, err
		}
		return nil, domain.Persistence(err)
	}

	method, err := domain.ParsePaymentMethod(req.Method)
	if prior.MemberID != req.MemberID || prior.PlanID != req.PlanID || err != nil || method != prior.Method {
		return nil, domain.ErrIdempotencyKeyReused
	}

	result := domain.SettlementFromReceipt(prior)
	result.Replayed = true
	return result, nil
}

// resolve looks plan and member up concurrently. Each lookup keeps its own error so a
// missing plan is reported ahead of a missing member.
func (s *SettlementService) resolve(ctx context.Context, req domain.SettleRequest) (*domain.Plan, *domain.Member, error) {
	var (
		g         errgroup.Group
		plan      *domain.Plan
		member    *domain.Member
		planErr   error
		memberErr error
	)
	g.Go(func() error {
		plan, planErr = s.plans.GetByID(ctx, req.PlanID)
		return nil
	})
	g.Go(func() error {
		member, memberErr = s.members.GetByID(ctx, req.MemberID)
		return nil
	})
	_ = g.Wait()

	switch {
	case domain.IsNotFound(planErr):
		return nil, nil, domain.ErrPlanNotFound
	case planErr != nil:
		return nil, nil, domain.Persistence(planErr)
	case !plan.IsActive:
		return nil, nil, domain.ErrPlanInactive
	}
	if err := plan.Validate(); err != nil {
		return nil, nil, err
	}

	switch {
	case domain.IsNotFound(memberErr):
		return nil, nil, domain.ErrMemberNotFound
	case memberErr != nil:
		return nil, nil, domain.Persistence(memberErr)
	}
	return plan, member, nil
}

type reservedIDs struct {
	membership int64
	payment    int64
	receipt    ReceiptReservation
}

// reserve draws ids outside the transaction; the transaction body may be retried and must
// reuse them.
func (s *SettlementService) reserve(ctx context.Context) (reservedIDs, error) {
	var ids reservedIDs
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		id, err := s.sequences.Next(gCtx, domain.SequenceMemberships)
		ids.membership = id
		return err
	})
	g.Go(func() error {
		id, err := s.sequences.Next(gCtx, domain.SequencePayments)
		ids.payment = id
		return err
	})
	g.Go(func() error {
		r, err := s.issuer.Reserve(gCtx)
		ids.receipt = r
		return err
	})

	return ids, g.Wait()
}

func (s *SettlementService) archiveReceipt(receipt *domain.Receipt) {
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	url, err := s.archive.Archive(ctx, receipt)
	if err != nil {
		s.logger.Warn("failed to archive receipt",
			zap.String("receipt_number", receipt.Number), zap.Error(err))
		return
	}
	s.logger.Debug("receipt archived", zap.String("receipt_number", receipt.Number), zap.String("url", url))
}
