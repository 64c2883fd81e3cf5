package client

import (
	"context"

	"github.com/dmitrijs2005/propscan/internal/client/models"
)

type Client interface {
	Close() error
	Register(ctx context.Context, email, password, name string) (*models.AuthResult, error)
	Login(ctx context.Context, email, password string) (*models.AuthResult, error)
	Profile(ctx context.Context) (*models.User, error)
	Scan(ctx context.Context, url string) (*models.ScanResult, error)
	History(ctx context.Context) ([]models.HistoryItem, error)
	Compare(ctx context.Context, propertyIDs []string) (*models.Comparison, error)
	AskQuestion(ctx context.Context, propertyID, question string) (*models.Answer, error)
	RecordUsage(ctx context.Context, kind models.UsageKind, amount float64) (*models.UsageReceipt, error)
	Ping(ctx context.Context) error
}
