package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/templui/taskboard/internal/model"
	"github.com/templui/taskboard/internal/repository"
	"github.com/templui/taskboard/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

// CookieName holds the browser's copy of the session access token.
const CookieName = "auth_token"

var (
	ErrInvalidCredentials    = errors.New("invalid login credentials")
	ErrEmailNotConfirmed     = errors.New("email not confirmed")
	ErrUserAlreadyRegistered = errors.New("user already registered")
	ErrInvalidEmail          = errors.New("invalid email address")
	ErrWeakPassword          = errors.New("weak password")
	ErrInvalidConfirmLink    = errors.New("invalid or expired confirmation link")
	ErrInvalidSession        = errors.New("invalid session")
)

// ConfirmationSender delivers the sign-up confirmation link.
type ConfirmationSender interface {
	SendConfirmationEmail(email, token string) error
}

// SessionClaims is the payload of an access token.
type SessionClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type AuthService struct {
	userRepository          repository.UserRepository
	tokenRepository         repository.TokenRepository
	emailService            ConfirmationSender
	jwtSecret               string
	isProduction            bool
	jwtExpiry               time.Duration
	tokenEmailConfirmExpiry time.Duration
}

func NewAuthService(
	userRepository repository.UserRepository,
	tokenRepository repository.TokenRepository,
	emailService ConfirmationSender,
	jwtSecret string,
	isProduction bool,
	jwtExpiry time.Duration,
	tokenEmailConfirmExpiry time.Duration,
) *AuthService {
	return &AuthService{
		userRepository:          userRepository,
		tokenRepository:         tokenRepository,
		emailService:            emailService,
		jwtSecret:               jwtSecret,
		isProduction:            isProduction,
		jwtExpiry:               jwtExpiry,
		tokenEmailConfirmExpiry: tokenEmailConfirmExpiry,
	}
}

// SignUp registers a password account and mails a confirmation link. Signing up
// again with an unconfirmed address replaces the password and re-sends the link.
func (s *AuthService) SignUp(email, password string) (*model.User, error) {
	email = validation.NormalizeEmail(email)

	err := validation.ValidateEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEmail, err)
	}

	err = validation.ValidatePassword(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepository.ByEmail(email)
	switch {
	case err == nil && user.IsConfirmed():
		return nil, ErrUserAlreadyRegistered
	case err == nil:
		user.PasswordHash = hash
		err = s.userRepository.Update(user)
		if err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	case errors.Is(err, repository.ErrUserNotFound):
		user = &model.User{
			ID:           uuid.New().String(),
			Email:        email,
			PasswordHash: hash,
			CreatedAt:    time.Now(),
		}
		err = s.userRepository.Create(user)
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrUserAlreadyRegistered
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		slog.Info("new user created", "email", email, "user_id", user.ID)
	default:
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	err = s.tokenRepository.DeleteByUserAndType(user.ID, model.TokenTypeEmailConfirm)
	if err != nil {
		slog.Warn("failed to delete old confirmation tokens", "error", err, "user_id", user.ID)
	}

	confirmToken, err := s.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	err = s.tokenRepository.Create(&model.Token{
		UserID:    user.ID,
		Type:      model.TokenTypeEmailConfirm,
		Token:     confirmToken,
		ExpiresAt: time.Now().Add(s.tokenEmailConfirmExpiry),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	err = s.emailService.SendConfirmationEmail(user.Email, confirmToken)
	if err != nil {
		slog.Error("failed to send confirmation email", "error", err, "email", user.Email)
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	return user, nil
}

// ConfirmEmail consumes a confirmation token and marks the address confirmed.
func (s *AuthService) ConfirmEmail(token string) (*model.User, error) {
	// ConsumeToken atomically marks token as used (prevents race conditions)
	tokenModel, err := s.tokenRepository.ConsumeToken(token)
	if err != nil {
		return nil, ErrInvalidConfirmLink
	}

	if tokenModel.Type != model.TokenTypeEmailConfirm {
		return nil, ErrInvalidConfirmLink
	}

	user, err := s.userRepository.ByID(tokenModel.UserID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	if !user.IsConfirmed() {
		now := time.Now()
		user.EmailConfirmedAt = &now
		err = s.userRepository.Update(user)
		if err != nil {
			return nil, fmt.Errorf("failed to confirm email: %w", err)
		}
	}

	slog.Info("email confirmed", "user_id", user.ID, "email", user.Email)
	return user, nil
}

func (s *AuthService) SignIn(email, password string) (*model.User, error) {
	email = validation.NormalizeEmail(email)

	user, err := s.userRepository.ByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	err = s.ComparePassword(password, user.PasswordHash)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsConfirmed() {
		return nil, ErrEmailNotConfirmed
	}

	return user, nil
}

// Refresh re-issues an access token for a still-valid session.
func (s *AuthService) Refresh(tokenString string) (*model.User, string, time.Time, error) {
	claims, err := s.VerifyJWT(tokenString)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	user, err := s.userRepository.ByID(claims.UserID)
	if err != nil {
		return nil, "", time.Time{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	token, expiresAt, err := s.GenerateJWT(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, expiresAt, nil
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *AuthService) ComparePassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func (s *AuthService) GenerateToken() (string, error) {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func (s *AuthService) GenerateJWT(user *model.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.jwtExpiry)

	claims := SessionClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

func (s *AuthService) VerifyJWT(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidSession
	}

	return claims, nil
}

func (s *AuthService) SetJWTCookie(w http.ResponseWriter, token string, expiry time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Expires:  expiry,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *AuthService) ClearJWTCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}
