package services

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/propscan/internal/client/balance"
	"github.com/dmitrijs2005/propscan/internal/client/client"
	"github.com/dmitrijs2005/propscan/internal/client/models"
	"github.com/dmitrijs2005/propscan/internal/client/session"
	"github.com/dmitrijs2005/propscan/internal/logging"
)

// UsageService runs the billable actions. The backend bills each successful
// call itself; the service mirrors the charge on the cached balance right
// away so the user sees it before the next sync.
type UsageService struct {
	client     client.Client
	session    *session.Manager
	reconciler *balance.Reconciler
	log        logging.Logger
}

func NewUsageService(c client.Client, s *session.Manager, r *balance.Reconciler, log logging.Logger) *UsageService {
	return &UsageService{client: c, session: s, reconciler: r, log: log}
}

func (u *UsageService) Scan(ctx context.Context, url string) (*models.ScanResult, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, client.ErrEmptyInput
	}
	uid, err := u.afford(ctx, models.UsageScan)
	if err != nil {
		return nil, err
	}
	res, err := u.client.Scan(ctx, url)
	if err != nil {
		return nil, err
	}
	u.deduct(ctx, uid, models.UsageScan)
	return res, nil
}

func (u *UsageService) Compare(ctx context.Context, propertyIDs []string) (*models.Comparison, error) {
	ids := make([]string, 0, len(propertyIDs))
	for _, id := range propertyIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) < 2 {
		return nil, client.ErrEmptyInput
	}
	uid, err := u.afford(ctx, models.UsageCompare)
	if err != nil {
		return nil, err
	}
	res, err := u.client.Compare(ctx, ids)
	if err != nil {
		return nil, err
	}
	u.deduct(ctx, uid, models.UsageCompare)
	return res, nil
}

func (u *UsageService) Ask(ctx context.Context, propertyID, question string) (*models.Answer, error) {
	propertyID, question = strings.TrimSpace(propertyID), strings.TrimSpace(question)
	if propertyID == "" || question == "" {
		return nil, client.ErrEmptyInput
	}
	uid, err := u.afford(ctx, models.UsageQuestion)
	if err != nil {
		return nil, err
	}
	res, err := u.client.AskQuestion(ctx, propertyID, question)
	if err != nil {
		return nil, err
	}
	u.deduct(ctx, uid, models.UsageQuestion)
	return res, nil
}

// Record bills an action that was performed without a backend call of its
// own, such as a scan served from a share link.
func (u *UsageService) Record(ctx context.Context, kind models.UsageKind) (*models.UsageReceipt, error) {
	if kind.Cost() == 0 {
		return nil, client.ErrEmptyInput
	}
	uid, err := u.afford(ctx, kind)
	if err != nil {
		return nil, err
	}
	res, err := u.client.RecordUsage(ctx, kind, kind.Cost())
	if err != nil {
		return nil, err
	}
	u.deduct(ctx, uid, kind)
	return res, nil
}

func (u *UsageService) History(ctx context.Context) ([]models.HistoryItem, error) {
	if _, err := currentUser(ctx, u.session); err != nil {
		return nil, err
	}
	return u.client.History(ctx)
}

// afford checks the session and, when a balance is cached, that it covers
// the action. Without a cached balance the backend decides.
func (u *UsageService) afford(ctx context.Context, kind models.UsageKind) (string, error) {
	uid, err := currentUser(ctx, u.session)
	if err != nil {
		return "", err
	}
	if b, ok := u.reconciler.Current(ctx, uid); ok && !b.CanAfford(kind.Cost()) {
		u.log.Info(ctx, "usage: blocked by local balance", "user_id", uid, "kind", kind, "remaining", b.Remaining)
		return "", ErrInsufficientBalance
	}
	return uid, nil
}

func (u *UsageService) deduct(ctx context.Context, uid string, kind models.UsageKind) {
	b := u.reconciler.Deduct(ctx, uid, kind.Cost())
	u.log.Debug(ctx, "usage: charged", "user_id", uid, "kind", kind, "remaining", b.Remaining)
}
