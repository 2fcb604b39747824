package presenter

import (
	"context"

	"bookdot/internal/models"
	"bookdot/internal/stream"
)

// Accounts is the identity surface the account screen drives.
type Accounts interface {
	CreateAccount(ctx context.Context) (*models.AuthUser, error)
	Login(ctx context.Context, accountID string) (*models.AuthUser, error)
	UpdateDisplayName(ctx context.Context, name string) (*models.AuthUser, error)
	Logout(ctx context.Context)
	CheckLoginStatus(ctx context.Context) (*models.AuthUser, error)
}

type AuthState struct {
	CurrentUser   *models.AuthUser
	IsLoading     bool
	Error         string
	IsNameUpdated bool
}

type AuthPresenter struct {
	accounts Accounts
	state    *holder[AuthState]
}

func NewAuthPresenter(accounts Accounts) *AuthPresenter {
	return &AuthPresenter{accounts: accounts, state: newHolder(AuthState{})}
}

func (p *AuthPresenter) State() AuthState { return p.state.get() }

func (p *AuthPresenter) Watch(ctx context.Context) *stream.Subscription[AuthState] {
	return p.state.watch(ctx)
}

// CreateAccount shows the new account. It is not signed in.
func (p *AuthPresenter) CreateAccount(ctx context.Context) {
	p.run(ctx, "Account creation failed", p.accounts.CreateAccount, false)
}

func (p *AuthPresenter) Login(ctx context.Context, accountID string) {
	p.run(ctx, "Login failed", func(ctx context.Context) (*models.AuthUser, error) {
		return p.accounts.Login(ctx, accountID)
	}, false)
}

func (p *AuthPresenter) UpdateDisplayName(ctx context.Context, name string) {
	p.run(ctx, "Name change failed", func(ctx context.Context) (*models.AuthUser, error) {
		return p.accounts.UpdateDisplayName(ctx, name)
	}, true)
}

func (p *AuthPresenter) run(ctx context.Context, fallback string, op func(context.Context) (*models.AuthUser, error), nameUpdate bool) {
	p.state.update(func(s AuthState) AuthState {
		s.IsLoading = true
		s.Error = ""
		return s
	})
	user, err := op(ctx)
	p.state.update(func(s AuthState) AuthState {
		s.IsLoading = false
		if err != nil {
			s.Error = message(err, fallback)
			return s
		}
		s.CurrentUser = user
		if nameUpdate {
			s.IsNameUpdated = true
		}
		return s
	})
}

// Logout resets the screen to its initial state.
func (p *AuthPresenter) Logout(ctx context.Context) {
	p.accounts.Logout(ctx)
	p.state.update(func(AuthState) AuthState { return AuthState{} })
}

// CheckLoginStatus restores the account of an existing session. Failures
// leave the screen signed out without an error.
func (p *AuthPresenter) CheckLoginStatus(ctx context.Context) {
	user, err := p.accounts.CheckLoginStatus(ctx)
	if err != nil {
		user = nil
	}
	p.state.update(func(s AuthState) AuthState {
		s.CurrentUser = user
		return s
	})
}

func (p *AuthPresenter) ClearError() {
	p.state.update(func(s AuthState) AuthState {
		s.Error = ""
		return s
	})
}

func (p *AuthPresenter) ResetNameUpdated() {
	p.state.update(func(s AuthState) AuthState {
		s.IsNameUpdated = false
		return s
	})
}
