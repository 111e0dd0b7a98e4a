package identities

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/nikohapp/nikoh-api/internal/events"
	"github.com/nikohapp/nikoh-api/pkg/metrics"
	"github.com/nikohapp/nikoh-api/pkg/models"
)

// Service errors
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrPhoneTaken         = errors.New("phone already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account suspended or banned")
	ErrUserNotFound       = errors.New("user not found")
	Err2FAAlreadyEnabled  = errors.New("2fa already enabled")
	Err2FANotEnabled      = errors.New("2fa not enabled")
	ErrInvalid2FACode     = errors.New("invalid 2fa code")
)

// IdentityService defines user identity operations
type IdentityService interface {
	Start() error
	Stop() error
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, login, password string) (*models.LoginResponse, error)
	Verify2FA(ctx context.Context, userID uuid.UUID, code string) (*models.LoginResponse, error)
	Enable2FA(ctx context.Context, userID uuid.UUID) (secret, url string, err error)
	Verify2FASetup(ctx context.Context, userID uuid.UUID, code string) error
	Disable2FA(ctx context.Context, userID uuid.UUID, code string) error
	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	ValidateToken(token string) (uuid.UUID, error)
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
	TouchLastActive(ctx context.Context, userID uuid.UUID)
}

// Service implements IdentityService
type Service struct {
	logger             *zap.Logger
	db                 *gorm.DB
	redis              *redis.Client
	bus                events.Bus
	jwtSecret          string
	jwtExpirationHours int
}

// NewService creates a new IdentityService. The Redis client and event
// bus are optional; pass nil and a nop bus respectively when unused.
func NewService(logger *zap.Logger, db *gorm.DB, rdb *redis.Client, bus events.Bus, jwtSecret string, jwtExpirationHours int) (IdentityService, error) {
	if bus == nil {
		bus = events.NewNopBus()
	}
	if jwtExpirationHours <= 0 {
		jwtExpirationHours = 168
	}
	return &Service{
		logger:             logger,
		db:                 db,
		redis:              rdb,
		bus:                bus,
		jwtSecret:          jwtSecret,
		jwtExpirationHours: jwtExpirationHours,
	}, nil
}

// Start starts the identities service
func (s *Service) Start() error {
	s.logger.Info("Identities service started")
	return nil
}

// Stop stops the identities service
func (s *Service) Stop() error {
	s.logger.Info("Identities service stopped")
	return nil
}

// Register registers a new user
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	if req.Phone != nil && *req.Phone != "" {
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("phone = ?", *req.Phone).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to check phone: %w", err)
		}
		if count > 0 {
			return nil, ErrPhoneTaken
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	lang := req.PreferredLanguage
	if lang == "" {
		lang = "ru"
	}

	user := &models.User{
		ID:                 uuid.New(),
		Email:              req.Email,
		Phone:              req.Phone,
		PasswordHash:       string(hashedPassword),
		Status:             models.UserStatusPending,
		PreferredLanguage:  lang,
		VerificationStatus: models.VerificationStatusUnverified,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	metrics.RegistrationsTotal.Inc()
	if err := s.bus.Publish(ctx, events.UserRegistered, map[string]interface{}{"user_id": user.ID}); err != nil {
		s.logger.Warn("Failed to publish registration event", zap.Error(err))
	}

	return user, nil
}

// Login authenticates a user by email or phone and issues a bearer token
func (s *Service) Login(ctx context.Context, login, password string) (*models.LoginResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ? OR phone = ?", login, login).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if user.Status == models.UserStatusSuspended || user.Status == models.UserStatusBanned {
		return nil, ErrAccountDisabled
	}

	if user.MFAEnabled {
		return &models.LoginResponse{
			Requires2FA: true,
			UserID:      user.ID,
		}, nil
	}

	token, err := s.generateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.TouchLastActive(ctx, user.ID)

	return &models.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        &user,
	}, nil
}

// Verify2FA completes a login that requires a TOTP code
func (s *Service) Verify2FA(ctx context.Context, userID uuid.UUID, code string) (*models.LoginResponse, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.MFAEnabled || user.TOTPSecret == "" {
		return nil, Err2FANotEnabled
	}
	if !totp.Validate(code, user.TOTPSecret) {
		return nil, ErrInvalid2FACode
	}

	token, err := s.generateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.TouchLastActive(ctx, user.ID)

	return &models.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	}, nil
}

// Enable2FA generates a TOTP secret for the user. The secret is saved
// but 2FA only becomes active after Verify2FASetup succeeds.
func (s *Service) Enable2FA(ctx context.Context, userID uuid.UUID) (string, string, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return "", "", err
	}
	if user.MFAEnabled {
		return "", "", Err2FAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "Nikoh",
		AccountName: user.Email,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to generate TOTP secret: %w", err)
	}

	user.TOTPSecret = key.Secret()
	user.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return "", "", fmt.Errorf("failed to save user: %w", err)
	}

	return key.Secret(), key.URL(), nil
}

// Verify2FASetup confirms the TOTP secret and activates 2FA
func (s *Service) Verify2FASetup(ctx context.Context, userID uuid.UUID, code string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.MFAEnabled {
		return Err2FAAlreadyEnabled
	}
	if user.TOTPSecret == "" || !totp.Validate(code, user.TOTPSecret) {
		return ErrInvalid2FACode
	}

	user.MFAEnabled = true
	user.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// Disable2FA turns off 2FA after validating a current TOTP code
func (s *Service) Disable2FA(ctx context.Context, userID uuid.UUID, code string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.MFAEnabled {
		return Err2FANotEnabled
	}
	if !totp.Validate(code, user.TOTPSecret) {
		return ErrInvalid2FACode
	}

	user.MFAEnabled = false
	user.TOTPSecret = ""
	user.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// GetUser gets a user by ID
func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// ValidateToken validates a JWT bearer token and returns the user ID
func (s *Service) ValidateToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return uuid.Nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, fmt.Errorf("invalid token claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("invalid subject claim")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user ID in token: %w", err)
	}
	return userID, nil
}

// IsAdmin checks if a user has admin rights
func (s *Service) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}

// TouchLastActive records user activity. Updates are throttled through
// Redis to one DB write per user per minute when Redis is available.
func (s *Service) TouchLastActive(ctx context.Context, userID uuid.UUID) {
	if s.redis != nil {
		key := fmt.Sprintf("last_active:%s", userID)
		ok, err := s.redis.SetNX(ctx, key, 1, time.Minute).Result()
		if err == nil && !ok {
			return
		}
	}
	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		Update("last_active_at", now).Error; err != nil {
		s.logger.Warn("Failed to update last active", zap.Error(err), zap.String("user_id", userID.String()))
	}
}

// generateToken generates a signed JWT for the user
func (s *Service) generateToken(userID uuid.UUID) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(time.Hour * time.Duration(s.jwtExpirationHours)).Unix(),
	})
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}
