package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/shelfkeeper/internal/client/client"
	"github.com/dmitrijs2005/shelfkeeper/internal/common"
)

var errNoTenant = errors.New("no tenant selected, use 'use <tenant>' or 'login'")

func (a *App) isLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.user != ""
}

func (a *App) currentTenant() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.tenant == "" {
		return "", errNoTenant
	}
	return a.tenant, nil
}

// report prints err in a user-facing form and returns it unchanged.
func (a *App) report(err error) error {
	switch {
	case err == nil:
	case errors.Is(err, client.ErrNotLoggedIn):
		fmt.Fprintln(a.out, "Not logged in, use 'login'")
		a.mu.Lock()
		a.user = ""
		a.mu.Unlock()
	case errors.Is(err, client.ErrUnavailable):
		fmt.Fprintln(a.out, "Server unavailable")
	default:
		fmt.Fprintln(a.out, "Error:", err)
	}
	return err
}

func (a *App) Register(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "-Enter library name", a.out)
	if err != nil {
		return a.report(err)
	}
	sub, err := GetSimpleText(a.reader, "-Enter subdomain", a.out)
	if err != nil {
		return a.report(err)
	}

	reg, err := a.auth.Register(ctx, name, sub)
	if err != nil {
		return a.report(err)
	}

	a.mu.Lock()
	a.tenant = reg.Tenant.Subdomain
	a.mu.Unlock()

	fmt.Fprintf(a.out, "Tenant %q registered at %s\n", reg.Tenant.Name, reg.Tenant.URL)
	fmt.Fprintf(a.out, "Log in as %q with the bootstrap password and change it\n", reg.AdminUsername)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	tenant, _ := a.currentTenant()
	if tenant == "" {
		t, err := GetSimpleText(a.reader, "-Enter tenant", a.out)
		if err != nil {
			return a.report(err)
		}
		tenant = t
	}

	username, err := GetSimpleText(a.reader, "-Enter username", a.out)
	if err != nil {
		return a.report(err)
	}

	password, err := GetPassword(a.out)
	if err != nil {
		return a.report(err)
	}
	defer common.WipeByteArray(password)

	if _, err := a.auth.Login(ctx, tenant, username, password); err != nil {
		return a.report(err)
	}

	a.mu.Lock()
	a.tenant, a.user = tenant, username
	a.mu.Unlock()

	fmt.Fprintln(a.out, "Login successful")
	return nil
}

func (a *App) Use(ctx context.Context, tenant string) error {
	tenant = strings.ToLower(strings.TrimSpace(tenant))
	if tenant == "" {
		return a.report(errNoTenant)
	}

	list, err := a.auth.Sessions(ctx)
	if err != nil {
		return a.report(err)
	}

	a.mu.Lock()
	a.tenant, a.user = tenant, ""
	for _, s := range list {
		if s.Tenant == tenant {
			a.user = s.Username
		}
	}
	a.mu.Unlock()
	return nil
}

func (a *App) Sessions(ctx context.Context) error {
	list, err := a.auth.Sessions(ctx)
	if err != nil {
		return a.report(err)
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No saved sessions")
	}
	for _, s := range list {
		fmt.Fprintf(a.out, "%s\t%s\texpires %s\n", s.Tenant, s.Username, s.ExpiresAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func (a *App) Whoami(ctx context.Context) error {
	tenant, err := a.currentTenant()
	if err != nil {
		return a.report(err)
	}
	u, err := a.auth.Whoami(ctx, tenant)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "%s (id %d) is %s in %s\n", u.Username, u.ID, u.Role, tenant)
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	tenant, err := a.currentTenant()
	if err != nil {
		return a.report(err)
	}
	s, err := a.auth.Refresh(ctx, tenant)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, "Tokens refreshed, access token valid until", s.ExpiresAt.Format("15:04:05"))
	return nil
}

func (a *App) ChangePassword(ctx context.Context) error {
	tenant, err := a.currentTenant()
	if err != nil {
		return a.report(err)
	}

	oldPassword, err := GetNamedPassword(a.out, "Current password")
	if err != nil {
		return a.report(err)
	}
	defer common.WipeByteArray(oldPassword)

	newPassword, err := GetNamedPassword(a.out, "New password")
	if err != nil {
		return a.report(err)
	}
	defer common.WipeByteArray(newPassword)

	if err := a.auth.ChangePassword(ctx, tenant, oldPassword, newPassword); err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, "Password changed")
	return nil
}

func (a *App) Books(ctx context.Context) error {
	tenant, err := a.currentTenant()
	if err != nil {
		return a.report(err)
	}
	list, err := a.auth.ListBooks(ctx, tenant)
	if err != nil {
		return a.report(err)
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No books")
	}
	for _, b := range list {
		fmt.Fprintf(a.out, "%d\t%s\t%s\t%s\n", b.ID, b.Title, b.Author, b.ISBN)
	}
	return nil
}

func (a *App) AddBook(ctx context.Context) error {
	tenant, err := a.currentTenant()
	if err != nil {
		return a.report(err)
	}

	var b client.Book
	if b.Title, err = GetSimpleText(a.reader, "-Enter title", a.out); err != nil {
		return a.report(err)
	}
	if b.Author, err = GetSimpleText(a.reader, "-Enter author", a.out); err != nil {
		return a.report(err)
	}
	if b.ISBN, err = GetSimpleText(a.reader, "-Enter ISBN (optional)", a.out); err != nil {
		return a.report(err)
	}

	created, err := a.auth.AddBook(ctx, tenant, b)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "Book %d added\n", created.ID)
	return nil
}

func (a *App) DeleteBook(ctx context.Context, arg string) error {
	tenant, err := a.currentTenant()
	if err != nil {
		return a.report(err)
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return a.report(fmt.Errorf("invalid book id %q", arg))
	}
	if err := a.auth.DeleteBook(ctx, tenant, id); err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "Book %d deleted\n", id)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	tenant, err := a.currentTenant()
	if err != nil {
		return a.report(err)
	}
	if err := a.auth.Logout(ctx, tenant); err != nil {
		return a.report(err)
	}

	a.mu.Lock()
	a.user = ""
	a.mu.Unlock()

	fmt.Fprintln(a.out, "Logged out")
	return nil
}
