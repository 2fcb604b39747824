// Package identity manages anonymous accounts. An account is known to its
// owner only by a generated account id; signing in binds that id to a fresh
// anonymous session and carries the profile over to the new uid.
package identity

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"bookdot/internal/auth"
	"bookdot/internal/docstore"
	"bookdot/internal/models"
	"bookdot/internal/observability"
	"bookdot/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

const (
	CollectionUsers      = "users"
	CollectionAccountIDs = "userAccountIds"

	DefaultBio = "Hello! I'm new to Book dot."
)

// Sessions is the anonymous sign-in provider as seen from the device.
type Sessions interface {
	SignInAnonymously(ctx context.Context) (*auth.Session, error)
	SignOut(ctx context.Context)
	CurrentUserID() string
}

// ProfileCache receives profiles so local repositories can resolve authors.
type ProfileCache interface {
	Upsert(ctx context.Context, users ...*models.User) error
}

// Service implements account creation, login and profile naming.
type Service struct {
	sessions Sessions
	docs     *docstore.Store
	profiles ProfileCache
	log      *observability.RepoLogger

	intN func(n int) int
	now  func() time.Time

	mu      sync.RWMutex
	current *models.AuthUser
}

// NewService wires the identity service. profiles may be nil.
func NewService(sessions Sessions, docs *docstore.Store, profiles ProfileCache) *Service {
	return &Service{
		sessions: sessions,
		docs:     docs,
		profiles: profiles,
		log:      observability.NewRepoLogger(CollectionUsers),
		intN:     rand.IntN,
		now:      time.Now,
	}
}

// randomPart returns a uniform integer in [1000, 9999).
func (s *Service) randomPart() int {
	return 1000 + s.intN(8999)
}

// GenerateAccountID returns four random four-digit groups joined by dashes.
func (s *Service) GenerateAccountID() string {
	parts := make([]string, 4)
	for i := range parts {
		parts[i] = fmt.Sprint(s.randomPart())
	}
	return strings.Join(parts, "-")
}

// CreateAccount registers a new anonymous account and signs out again; the
// caller logs in with the returned account id.
func (s *Service) CreateAccount(ctx context.Context) (_ *models.AuthUser, err error) {
	span, ctx := observability.NewSpan(ctx, "identity.CreateAccount")
	defer span.End()
	defer func() { s.record(ctx, "create_account", err) }()

	accountID := s.GenerateAccountID()
	displayName := fmt.Sprintf("User%d", s.randomPart())
	span.SetAttributes(attribute.String("account.id", accountID))

	session, err := s.sessions.SignInAnonymously(ctx)
	if err != nil {
		span.SetError(err)
		return nil, models.AsAppError(err)
	}
	defer s.sessions.SignOut(ctx)

	now := s.now()
	profile := models.UserDocument{
		ID:          session.UID,
		Username:    strings.ReplaceAll(accountID, "-", ""),
		DisplayName: displayName,
		Bio:         DefaultBio,
		CreatedAt:   now.UnixMilli(),
	}
	if err := s.docs.Collection(CollectionUsers).Doc(session.UID).Set(ctx, profile); err != nil {
		span.SetError(err)
		return nil, models.NewInternalError(err)
	}
	if err := s.docs.Collection(CollectionAccountIDs).Doc(accountID).Set(ctx, models.AccountMapping{UID: session.UID}); err != nil {
		span.SetError(err)
		return nil, models.NewInternalError(err)
	}

	s.log.LogCreate(ctx, map[string]interface{}{"account_id": accountID, "uid": session.UID})
	return &models.AuthUser{
		AccountID:   accountID,
		DisplayName: displayName,
		IsLoggedIn:  false,
		CreatedAt:   now,
	}, nil
}

// Login binds accountID to a new anonymous session. The profile is copied to
// the new uid; the previous uid's profile document stays behind.
func (s *Service) Login(ctx context.Context, accountID string) (_ *models.AuthUser, err error) {
	span, ctx := observability.NewSpan(ctx, "identity.Login")
	defer span.End()
	defer func() { s.record(ctx, "login", err) }()

	accountID = strings.TrimSpace(accountID)
	if err := validation.AccountID(accountID); err != nil {
		return nil, err
	}

	var mapping models.AccountMapping
	found, err := s.docs.Collection(CollectionAccountIDs).Doc(accountID).Get(ctx, &mapping)
	if err != nil {
		span.SetError(err)
		return nil, models.NewInternalError(err)
	}
	if !found || mapping.UID == "" {
		return nil, models.NewNotFoundError("account", accountID)
	}

	var profile models.UserDocument
	found, err = s.docs.Collection(CollectionUsers).Doc(mapping.UID).Get(ctx, &profile)
	if err != nil {
		span.SetError(err)
		return nil, models.NewInternalError(err)
	}
	if !found {
		return nil, models.NewNotFoundError("profile", mapping.UID)
	}

	s.sessions.SignOut(ctx)
	session, err := s.sessions.SignInAnonymously(ctx)
	if err != nil {
		span.SetError(err)
		return nil, models.AsAppError(err)
	}

	if err := s.docs.Collection(CollectionAccountIDs).Doc(accountID).Set(ctx, models.AccountMapping{UID: session.UID}); err != nil {
		span.SetError(err)
		return nil, models.NewInternalError(err)
	}
	profile.ID = session.UID
	if err := s.docs.Collection(CollectionUsers).Doc(session.UID).Set(ctx, profile); err != nil {
		span.SetError(err)
		return nil, models.NewInternalError(err)
	}
	s.cacheProfile(ctx, profile)

	createdAt := s.now()
	if profile.CreatedAt > 0 {
		createdAt = time.UnixMilli(profile.CreatedAt).UTC()
	}
	user := &models.AuthUser{
		AccountID:   accountID,
		DisplayName: profile.DisplayName,
		IsLoggedIn:  true,
		CreatedAt:   createdAt,
	}
	s.setCurrent(user)
	s.log.LogUpdate(ctx, map[string]interface{}{"account_id": accountID, "uid": session.UID, "previous_uid": mapping.UID})
	return user, nil
}

// UpdateDisplayName renames the signed-in user.
func (s *Service) UpdateDisplayName(ctx context.Context, name string) (_ *models.AuthUser, err error) {
	span, ctx := observability.NewSpan(ctx, "identity.UpdateDisplayName")
	defer span.End()
	defer func() { s.record(ctx, "update_display_name", err) }()

	uid := s.sessions.CurrentUserID()
	if uid == "" {
		return nil, models.NewNotAuthenticatedError()
	}
	name = strings.TrimSpace(name)
	if err := validation.Struct(models.UpdateProfileInput{DisplayName: name}); err != nil {
		return nil, err
	}

	users := s.docs.Collection(CollectionUsers)
	if err := users.Doc(uid).Update(ctx, map[string]any{"displayName": name}); err != nil {
		span.SetError(err)
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewNotFoundError("profile", uid)
		}
		return nil, models.NewInternalError(err)
	}

	accountID, err := s.accountIDFor(ctx, uid)
	if err != nil {
		span.SetError(err)
		return nil, models.NewInternalError(err)
	}

	createdAt := s.now()
	if cur := s.CurrentUser(); cur != nil && !cur.CreatedAt.IsZero() {
		createdAt = cur.CreatedAt
	}
	var profile models.UserDocument
	if found, err := users.Doc(uid).Get(ctx, &profile); err == nil && found {
		s.cacheProfile(ctx, profile)
		if profile.CreatedAt > 0 {
			createdAt = time.UnixMilli(profile.CreatedAt).UTC()
		}
	}

	user := &models.AuthUser{
		AccountID:   accountID,
		DisplayName: name,
		IsLoggedIn:  true,
		CreatedAt:   createdAt,
	}
	s.setCurrent(user)
	s.log.LogUpdate(ctx, map[string]interface{}{"uid": uid, "display_name": name})
	return user, nil
}

// Logout ends the session. It never fails.
func (s *Service) Logout(ctx context.Context) {
	s.sessions.SignOut(ctx)
	s.setCurrent(nil)
	s.record(ctx, "logout", nil)
}

// IsLoggedIn reports whether a session exists.
func (s *Service) IsLoggedIn() bool {
	return s.sessions.CurrentUserID() != ""
}

// CurrentUserID returns the session uid or "".
func (s *Service) CurrentUserID() string {
	return s.sessions.CurrentUserID()
}

// CurrentUser returns the signed-in account as last seen by this service.
func (s *Service) CurrentUser() *models.AuthUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	u := *s.current
	return &u
}

// CheckLoginStatus rebuilds the current account from an existing session.
// It returns nil when nobody is signed in.
func (s *Service) CheckLoginStatus(ctx context.Context) (*models.AuthUser, error) {
	uid := s.sessions.CurrentUserID()
	if uid == "" {
		s.setCurrent(nil)
		return nil, nil
	}

	var profile models.UserDocument
	found, err := s.docs.Collection(CollectionUsers).Doc(uid).Get(ctx, &profile)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !found {
		return nil, models.NewNotFoundError("profile", uid)
	}
	accountID, err := s.accountIDFor(ctx, uid)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.AuthUser{
		AccountID:   accountID,
		DisplayName: profile.DisplayName,
		IsLoggedIn:  true,
		CreatedAt:   time.UnixMilli(profile.CreatedAt).UTC(),
	}
	s.setCurrent(user)
	return user, nil
}

// accountIDFor finds the account id currently bound to uid, or "".
func (s *Service) accountIDFor(ctx context.Context, uid string) (string, error) {
	snaps, err := s.docs.Collection(CollectionAccountIDs).Where("uid", uid).Limit(1).Get(ctx)
	if err != nil {
		return "", err
	}
	if len(snaps) == 0 {
		return "", nil
	}
	return snaps[0].ID, nil
}

func (s *Service) cacheProfile(ctx context.Context, profile models.UserDocument) {
	if s.profiles == nil {
		return
	}
	if err := s.profiles.Upsert(ctx, profile.ToUser()); err != nil {
		s.log.LogError(ctx, err, "cache_profile")
	}
}

func (s *Service) setCurrent(u *models.AuthUser) {
	s.mu.Lock()
	s.current = u
	s.mu.Unlock()
}

func (s *Service) record(ctx context.Context, event string, err error) {
	result := "ok"
	if err != nil {
		result = models.ErrorCode(err)
		if result == "" {
			result = "error"
		}
		s.log.LogError(ctx, err, event)
	}
	observability.IdentityEvents.WithLabelValues(event, result).Inc()
}
