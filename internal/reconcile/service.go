package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/perpfolio/reconciler-backend/internal/credentials"
	"github.com/perpfolio/reconciler-backend/internal/ledger"
	"github.com/perpfolio/reconciler-backend/internal/matcher"
	"github.com/perpfolio/reconciler-backend/internal/models"
	"github.com/perpfolio/reconciler-backend/internal/notifications"
)

// FillSource fetches normalized fills for a wallet address.
type FillSource interface {
	FetchFills(ctx context.Context, walletAddress string) ([]models.Fill, error)
}

// UserDirectory lists accounts eligible for reconciliation.
type UserDirectory interface {
	ListEligible(ctx context.Context) ([]models.FollowerUser, error)
	GetByID(ctx context.Context, id int64) (*models.FollowerUser, error)
}

// Service runs the fetch -> match -> write pipeline per account. All
// collaborators are injected; the service owns only the control flow.
type Service struct {
	users     UserDirectory
	source    FillSource
	matcher   *matcher.Matcher
	writer    *ledger.Writer
	decryptor *credentials.Decryptor // nil when no encryption key is configured
	notify    *notifications.Sender
	lookback  time.Duration
}

func NewService(users UserDirectory, source FillSource, m *matcher.Matcher,
	w *ledger.Writer, dec *credentials.Decryptor, notify *notifications.Sender,
	lookback time.Duration) *Service {
	return &Service{
		users:     users,
		source:    source,
		matcher:   m,
		writer:    w,
		decryptor: dec,
		notify:    notify,
		lookback:  lookback,
	}
}

// RunAll reconciles every eligible account. Per-account failures are
// logged and skipped; only the user listing itself can fail the run.
func (s *Service) RunAll(ctx context.Context) error {
	fmt.Println("[RECONCILE] Starting reconciliation run for all users")

	users, err := s.users.ListEligible(ctx)
	if err != nil {
		return fmt.Errorf("list eligible users: %w", err)
	}
	fmt.Printf("[RECONCILE] Found %d users with credentials\n", len(users))

	var total models.BackfillSummary
	reconciled := 0
	for _, u := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		sum, ok := s.reconcileUser(ctx, u)
		if !ok {
			continue
		}
		reconciled++
		total.Inserted += sum.Inserted
		total.Duplicates += sum.Duplicates
		total.Failed += sum.Failed
		total.TotalPnL += sum.TotalPnL
		total.TotalFees += sum.TotalFees
	}

	fmt.Printf("[RECONCILE] Run complete: %d/%d users | inserted %d | P&L $%.2f | fees $%.2f\n",
		reconciled, len(users), total.Inserted, total.TotalPnL, total.TotalFees)
	s.notify.Send(fmt.Sprintf("Reconciliation complete: %d users, %d trades inserted, P&L $%.2f, fees $%.2f",
		reconciled, total.Inserted, total.TotalPnL, total.TotalFees))
	return nil
}

// RunUser reconciles a single account by id.
func (s *Service) RunUser(ctx context.Context, userID int64) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user %d: %w", userID, err)
	}
	if u == nil {
		return fmt.Errorf("user %d not found", userID)
	}

	sum, ok := s.reconcileUser(ctx, *u)
	if !ok {
		return fmt.Errorf("user %d skipped (see log)", userID)
	}
	s.notify.Send(fmt.Sprintf("Reconciled %s: %d trades inserted, P&L $%.2f, fees $%.2f",
		u.Email, sum.Inserted, sum.TotalPnL, sum.TotalFees))
	return nil
}

// reconcileUser runs the pipeline for one account. Returns false when
// the account was skipped (bad credentials, fetch failure); skipping is
// never escalated.
func (s *Service) reconcileUser(ctx context.Context, u models.FollowerUser) (models.BackfillSummary, bool) {
	fmt.Printf("[RECONCILE] User %d (%s)\n", u.ID, u.Email)

	wallet, err := s.walletAddress(u)
	if err != nil {
		fmt.Printf("[RECONCILE] Skipping user %d: %v\n", u.ID, err)
		return models.BackfillSummary{}, false
	}

	// A failed fetch abandons the whole account for this run: matching a
	// truncated stream would fabricate positions.
	fills, err := s.source.FetchFills(ctx, wallet)
	if err != nil {
		fmt.Printf("[RECONCILE] Fetch failed for user %d, abandoning: %v\n", u.ID, err)
		return models.BackfillSummary{}, false
	}

	since := time.Now().UTC().Add(-s.lookback)
	roundTrips := s.matcher.Match(fills, since)
	if len(roundTrips) == 0 {
		fmt.Printf("[RECONCILE] No closed trades for user %d\n", u.ID)
		return models.BackfillSummary{}, true
	}

	sum := s.writer.Backfill(ctx, u.ID, roundTrips, u.FeeTier)
	fmt.Printf("[RECONCILE] User %d: inserted %d (dup %d, failed %d) | P&L $%.2f | fees $%.2f\n",
		u.ID, sum.Inserted, sum.Duplicates, sum.Failed, sum.TotalPnL, sum.TotalFees)
	return sum, true
}

// walletAddress resolves the account's venue address: the stored one if
// present, otherwise derived from the decrypted private key.
func (s *Service) walletAddress(u models.FollowerUser) (string, error) {
	if u.WalletAddress != nil && *u.WalletAddress != "" {
		return *u.WalletAddress, nil
	}
	if s.decryptor == nil {
		return "", fmt.Errorf("no wallet address and no decryption key configured")
	}
	if u.PrivateKeyEncrypted == nil || *u.PrivateKeyEncrypted == "" {
		return "", fmt.Errorf("no wallet address and no stored private key")
	}
	pk, err := s.decryptor.Decrypt(*u.PrivateKeyEncrypted)
	if err != nil {
		return "", fmt.Errorf("decrypt credentials: %w", err)
	}
	addr, err := credentials.DeriveWalletAddress(pk)
	if err != nil {
		return "", fmt.Errorf("derive wallet address: %w", err)
	}
	return addr, nil
}
