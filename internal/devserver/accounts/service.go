package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/propscan/internal/client/models"
	"github.com/dmitrijs2005/propscan/internal/common"
	"github.com/dmitrijs2005/propscan/internal/cryptox"
	"github.com/dmitrijs2005/propscan/internal/devserver/auth"
	"github.com/google/uuid"
)

var (
	ErrBadCredentials = errors.New("incorrect email or password")
	ErrQuotaExceeded  = errors.New("scan limit reached")
)

const minPasswordLength = 8

// FieldError is a validation failure of one request field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *FieldError) Unwrap() error {
	return common.ErrValidation
}

type Config struct {
	SecretKey         []byte
	TokenTTL          time.Duration
	ScanLimit         int
	StaleProfileReads int
}

type Service struct {
	repo Repository
	cfg  Config
	now  func() time.Time
}

func NewService(repo Repository, cfg Config) *Service {
	if cfg.ScanLimit <= 0 {
		cfg.ScanLimit = common.DefaultScanLimit
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	return &Service{repo: repo, cfg: cfg, now: time.Now}
}

func (s *Service) Register(ctx context.Context, email, password, name string) (string, *Account, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return "", nil, &FieldError{Field: "email", Message: "value is not a valid email address"}
	}
	if len(password) < minPasswordLength {
		return "", nil, &FieldError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", minPasswordLength)}
	}

	salt, err := cryptox.NewSalt()
	if err != nil {
		return "", nil, err
	}

	a := &Account{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		Salt:         salt,
		PasswordHash: cryptox.HashPassword([]byte(password), salt),
		Plan:         "free",
		Limit:        s.cfg.ScanLimit,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return "", nil, fmt.Errorf("create account: %w", err)
	}

	token, err := auth.GenerateToken(a.ID, s.cfg.SecretKey, s.cfg.TokenTTL)
	if err != nil {
		return "", nil, err
	}
	return token, a, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (string, *Account, error) {
	a, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", nil, ErrBadCredentials
		}
		return "", nil, err
	}
	if !cryptox.VerifyPassword([]byte(password), a.Salt, a.PasswordHash) {
		return "", nil, ErrBadCredentials
	}

	token, err := auth.GenerateToken(a.ID, s.cfg.SecretKey, s.cfg.TokenTTL)
	if err != nil {
		return "", nil, err
	}
	return token, a, nil
}

// Authenticate returns the account id the token was issued for.
func (s *Service) Authenticate(token string) (string, error) {
	return auth.GetUserIDFromToken(token, s.cfg.SecretKey)
}

// Profile renders the account as the client sees it. Uninitialized accounts
// and accounts with stale reads left report zero used and remaining.
func (s *Service) Profile(ctx context.Context, id string) (models.User, error) {
	var stale bool
	a, err := s.repo.Update(ctx, id, func(a *Account) error {
		stale = a.Initialized && a.StaleReads > 0
		if stale {
			a.StaleReads--
		}
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return s.user(a, a.Initialized && !stale), nil
}

func (s *Service) user(a *Account, fresh bool) models.User {
	u := models.User{
		ID:        a.ID,
		Email:     a.Email,
		Name:      a.Name,
		Plan:      a.Plan,
		ScanLimit: a.Limit,
		CreatedAt: a.CreatedAt,
	}
	if fresh {
		u.ScansUsed = a.Used
		u.ScansRemaining = a.Remaining()
	}
	return u
}

// Charge bills amount scan units, initialising the account on first use.
func (s *Service) Charge(ctx context.Context, id string, amount float64) (*Account, error) {
	if amount <= 0 {
		return nil, &FieldError{Field: "amount", Message: "amount must be positive"}
	}
	return s.repo.Update(ctx, id, func(a *Account) error {
		if !a.Initialized {
			a.Initialized = true
			a.StaleReads = s.cfg.StaleProfileReads
		}
		if a.Remaining() < amount {
			return ErrQuotaExceeded
		}
		a.Used += amount
		return nil
	})
}

// Receipt describes the account after a charge.
func (s *Service) Receipt(a *Account, kind models.UsageKind, amount float64) models.UsageReceipt {
	return models.UsageReceipt{Kind: kind, Amount: amount, ScansUsed: a.Used, ScansRemaining: a.Remaining()}
}

func (s *Service) AddScan(ctx context.Context, id string, p models.Property) (Scan, error) {
	scan := Scan{ID: uuid.NewString(), Property: p, ScannedAt: s.now().UTC()}
	_, err := s.repo.Update(ctx, id, func(a *Account) error {
		a.Scans = append(a.Scans, scan)
		return nil
	})
	if err != nil {
		return Scan{}, err
	}
	return scan, nil
}

// History returns the account's scans, newest first.
func (s *Service) History(ctx context.Context, id string) ([]Scan, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	scans := a.Scans
	sort.SliceStable(scans, func(i, j int) bool { return scans[i].ScannedAt.After(scans[j].ScannedAt) })
	return scans, nil
}

// Property finds a previously scanned property of the account.
func (s *Service) Property(ctx context.Context, id, propertyID string) (models.Property, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return models.Property{}, err
	}
	for i := len(a.Scans) - 1; i >= 0; i-- {
		if a.Scans[i].Property.ID == propertyID {
			return a.Scans[i].Property, nil
		}
	}
	return models.Property{}, fmt.Errorf("property %s: %w", propertyID, common.ErrNotFound)
}
