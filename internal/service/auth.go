package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/reservita/internal/model"
	"github.com/iliyamo/reservita/internal/repository"
	"github.com/iliyamo/reservita/internal/utils"
)

const minPasswordLen = 8

// UserView is a user as returned to its owner.
type UserView struct {
	ID          uint64    `json:"id"`
	FullName    string    `json:"full_name"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	Role        string    `json:"role"`
	IsAgency    bool      `json:"is_agency"`
	CreatedAt   time.Time `json:"created_at"`
}

func newUserView(u model.User) UserView {
	return UserView{
		ID:          u.ID,
		FullName:    u.FullName,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Role:        u.Role,
		IsAgency:    u.Role == model.RoleAgency,
		CreatedAt:   u.CreatedAt,
	}
}

// TokenView is a freshly issued token pair.
type TokenView struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	TokenType        string    `json:"token_type"`
}

type AuthResult struct {
	User   UserView  `json:"user"`
	Tokens TokenView `json:"tokens"`
}

type RegisterInput struct {
	FullName    string
	Email       string
	Password    string
	PhoneNumber string
	IsAgency    bool
}

type AuthDeps struct {
	Tx     Transactor
	Users  UserStore
	Tokens RefreshTokenStore
	Issuer SessionIssuer
	Hasher PasswordHasher
	Log    logrus.FieldLogger
}

// AuthService registers users and manages their sessions.
type AuthService struct {
	tx     Transactor
	users  UserStore
	tokens RefreshTokenStore
	issuer SessionIssuer
	hasher PasswordHasher
	log    logrus.FieldLogger
}

func NewAuthService(d AuthDeps) *AuthService {
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	return &AuthService{tx: d.Tx, users: d.Users, tokens: d.Tokens, issuer: d.Issuer, hasher: d.Hasher, log: d.Log}
}

var errInvalidCredentials = unauthenticated("Invalid email or password")

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = repository.NormalizeEmail(in.Email)
	if in.FullName == "" || in.Email == "" {
		return AuthResult{}, invalidInput("invalid_registration", "Full name and email are required")
	}
	if len(in.Password) < minPasswordLen {
		return AuthResult{}, invalidInput("weak_password", "Password must be at least 8 characters")
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return AuthResult{}, internal("hash password", err)
	}
	role := model.RoleCustomer
	if in.IsAgency {
		role = model.RoleAgency
	}
	u := model.User{
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: hash,
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
		Role:         role,
	}
	if err := s.users.Create(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return AuthResult{}, conflict("email_taken", "Email is already registered")
		}
		return AuthResult{}, internal("create user", err)
	}
	s.log.WithFields(logrus.Fields{"user_id": u.ID, "role": u.Role}).Info("user registered")
	return s.session(ctx, u)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return AuthResult{}, errInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, internal("load user", err)
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return AuthResult{}, errInvalidCredentials
	}
	if !u.IsActive {
		return AuthResult{}, unauthenticated("Account is disabled")
	}
	return s.session(ctx, u)
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (AuthResult, error) {
	hash := utils.HashRefreshRaw(rawRefresh)
	userID, err := s.tokens.ValidateRefresh(ctx, hash, s.issuer.Now())
	if errors.Is(err, repository.ErrNotFound) {
		return AuthResult{}, unauthenticated("Invalid or expired refresh token")
	}
	if err != nil {
		return AuthResult{}, internal("validate refresh", err)
	}
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return AuthResult{}, unauthenticated("Invalid or expired refresh token")
	}
	if err != nil {
		return AuthResult{}, internal("load user", err)
	}
	if !u.IsActive {
		return AuthResult{}, unauthenticated("Account is disabled")
	}
	if err := s.tokens.RevokeByHash(ctx, hash); err != nil {
		return AuthResult{}, internal("revoke refresh", err)
	}
	return s.session(ctx, u)
}

// Logout revokes the presented refresh token, or every session of userID
// when no token is given.
func (s *AuthService) Logout(ctx context.Context, userID uint64, rawRefresh string) error {
	if rawRefresh != "" {
		if err := s.tokens.RevokeByHash(ctx, utils.HashRefreshRaw(rawRefresh)); err != nil {
			return internal("revoke refresh", err)
		}
		return nil
	}
	if userID == 0 {
		return invalidInput("missing_refresh_token", "refresh_token is required")
	}
	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return internal("revoke sessions", err)
	}
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID uint64) (UserView, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return UserView{}, notFound("user_not_found", "User not found")
	}
	if err != nil {
		return UserView{}, internal("load user", err)
	}
	return newUserView(u), nil
}

// ProfileInput carries the editable profile fields; nil means keep.
type ProfileInput struct {
	FullName    *string
	PhoneNumber *string
}

// UpdateProfile changes the caller's name and phone number.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uint64, in ProfileInput) (UserView, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return UserView{}, notFound("user_not_found", "User not found")
	}
	if err != nil {
		return UserView{}, internal("load user", err)
	}
	fullName, phone := u.FullName, u.PhoneNumber
	if in.FullName != nil {
		fullName = strings.TrimSpace(*in.FullName)
		if fullName == "" {
			return UserView{}, invalidInput("invalid_full_name", "Full name must not be empty")
		}
	}
	if in.PhoneNumber != nil {
		phone = strings.TrimSpace(*in.PhoneNumber)
	}
	updated, err := s.users.UpdateProfile(ctx, userID, fullName, phone)
	if errors.Is(err, repository.ErrNotFound) {
		return UserView{}, notFound("user_not_found", "User not found")
	}
	if err != nil {
		return UserView{}, internal("update profile", err)
	}
	return newUserView(updated), nil
}

// ChangePassword replaces the caller's password after checking the
// current one.  Every refresh token of the user is revoked with it, so
// other devices have to log in again.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return invalidInput("weak_password", "Password must be at least 8 characters")
	}
	if oldPassword == newPassword {
		return invalidInput("password_unchanged", "New password must differ from the current one")
	}
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound("user_not_found", "User not found")
	}
	if err != nil {
		return internal("load user", err)
	}
	if !s.hasher.Verify(u.PasswordHash, oldPassword) {
		return invalidInput("wrong_password", "Current password is incorrect")
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return internal("hash password", err)
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
			return internal("store password", err)
		}
		if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
			return internal("revoke sessions", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.WithField("user_id", userID).Info("password changed")
	return nil
}

func (s *AuthService) session(ctx context.Context, u model.User) (AuthResult, error) {
	at, err := s.issuer.NewAccessToken(u.ID, u.Role)
	if err != nil {
		return AuthResult{}, internal("sign access token", err)
	}
	rt, err := s.issuer.NewRefreshToken()
	if err != nil {
		return AuthResult{}, internal("generate refresh token", err)
	}
	if err := s.tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(rt.Raw), rt.Exp); err != nil {
		return AuthResult{}, internal("store refresh token", err)
	}
	return AuthResult{
		User: newUserView(u),
		Tokens: TokenView{
			AccessToken:      at.Token,
			AccessExpiresAt:  at.Exp,
			RefreshToken:     rt.Raw,
			RefreshExpiresAt: rt.Exp,
			TokenType:        "Bearer",
		},
	}, nil
}
