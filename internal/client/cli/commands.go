package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/propscan/internal/client/balance"
	"github.com/dmitrijs2005/propscan/internal/client/models"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for email, name and password and creates the account.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	name, err := getSimpleText(a.reader, "Enter name (optional)", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}

	u, err := a.auth.Register(ctx, email, password, name)
	if err != nil {
		return err
	}
	a.loggedIn(u, email)
	a.println("Account created.")
	return a.Balance(ctx)
}

func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}

	u, err := a.auth.Login(ctx, email, password)
	if err != nil {
		return err
	}
	a.loggedIn(u, email)
	a.println("Login successful.")
	return a.Balance(ctx)
}

func (a *App) loggedIn(u *models.User, email string) {
	if u != nil && u.Email != "" {
		email = u.Email
	}
	a.mu.Lock()
	a.email = email
	a.mu.Unlock()
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	a.mu.Lock()
	a.email = ""
	a.mu.Unlock()
	a.println("Logged out.")
	return nil
}

func (a *App) Balance(ctx context.Context) error {
	b, err := a.balance.Balance(ctx)
	if err != nil {
		return err
	}
	a.println(formatBalance(b))
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	b, err := a.balance.Refresh(ctx)
	if err != nil {
		return err
	}
	a.println(formatBalance(b))
	return nil
}

func (a *App) Scan(ctx context.Context, url string) error {
	res, err := a.usage.Scan(ctx, url)
	if err != nil {
		return err
	}
	p := res.Property
	a.printf("%s\n  id:       %s\n  address:  %s\n  price:    %s %s\n  size:     %d bed, %s bath, %s m2\n",
		p.Title, p.ID, p.Address, num(p.Price), p.Currency, p.Bedrooms, num(p.Bathrooms), num(p.AreaSqm))
	if p.Summary != "" {
		a.println(" ", p.Summary)
	}
	return a.Balance(ctx)
}

func (a *App) Compare(ctx context.Context, ids []string) error {
	res, err := a.usage.Compare(ctx, ids)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tTITLE\tPRICE\tM2")
	for _, p := range res.Properties {
		mark := ""
		if p.ID == res.WinnerID {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s\t%s\n", mark, p.ID, p.Title, num(p.Price), p.Currency, num(p.AreaSqm))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if res.Summary != "" {
		a.println(res.Summary)
	}
	return a.Balance(ctx)
}

func (a *App) Ask(ctx context.Context, propertyID, question string) error {
	res, err := a.usage.Ask(ctx, propertyID, question)
	if err != nil {
		return err
	}
	a.println(res.Answer)
	return a.Balance(ctx)
}

func (a *App) History(ctx context.Context) error {
	items, err := a.usage.History(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		a.println("No scans yet.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROPERTY\tSCANNED\tTITLE")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", it.PropertyID, it.ScannedAt.Local().Format(time.DateTime), it.Title)
	}
	return tw.Flush()
}

func (a *App) Stats(ctx context.Context) error {
	if a.stats == nil {
		a.println("No statistics available.")
		return nil
	}
	lines, err := a.stats.Summary()
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		a.println("No requests made yet.")
		return nil
	}
	for _, l := range lines {
		a.println(l)
	}
	return nil
}

func formatBalance(b balance.Balance) string {
	s := fmt.Sprintf("Scans: %s used, %s remaining of %d (%s plan)", num(b.Used), num(b.Remaining), b.TotalLimit, b.Plan)
	if b.IsNewAccount {
		s += ", new account"
	}
	return s
}

// num prints half units without trailing zeros: 1, 0.5, 12.5.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
