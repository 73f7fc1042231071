package devauth

// Package devauth provides the built-in demo accounts used when the user store
// cannot serve a login.

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	domainauth "github.com/target/todo-platform/internal/domain/auth"
)

// Config controls the demo accounts.
// Accounts are "username:id" pairs; Secret is shared by every account.
type Config struct {
	Accounts []string
	Secret   string
}

// DemoAccounts implements ports.DemoLogin from a fixed account table.
// It is immutable after construction.
type DemoAccounts struct {
	ids    map[string]int64
	secret string
}

// NewDemoAccounts parses Config into a DemoAccounts table.
func NewDemoAccounts(cfg Config) (*DemoAccounts, error) {
	if cfg.Secret == "" {
		return nil, errors.New("demo accounts: Secret is required")
	}
	ids := make(map[string]int64, len(cfg.Accounts))
	for _, entry := range cfg.Accounts {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, rawID, ok := strings.Cut(entry, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("demo accounts: invalid entry %q (want username:id)", entry)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("demo accounts: invalid id in %q", entry)
		}
		ids[name] = id
	}
	if len(ids) == 0 {
		return nil, errors.New("demo accounts: at least one account is required")
	}
	return &DemoAccounts{ids: ids, secret: cfg.Secret}, nil
}

// Default returns the stock admin(1)/user(2) accounts with the given secret.
func Default(secret string) *DemoAccounts {
	return &DemoAccounts{ids: map[string]int64{"admin": 1, "user": 2}, secret: secret}
}

// IsDemoAccount reports whether username is one of the demo accounts.
func (d *DemoAccounts) IsDemoAccount(username string) bool {
	_, ok := d.ids[username]
	return ok
}

// Principal returns the demo principal when username and secret both match.
func (d *DemoAccounts) Principal(username, secret string) (domainauth.Principal, bool) {
	id, ok := d.ids[username]
	if !ok {
		return domainauth.Principal{}, false
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(d.secret)) != 1 {
		return domainauth.Principal{}, false
	}
	return domainauth.Principal{UserID: id, Username: username}, true
}

// Usernames returns the demo usernames for display on the login page.
func (d *DemoAccounts) Usernames() []string {
	out := make([]string, 0, len(d.ids))
	for name := range d.ids {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
