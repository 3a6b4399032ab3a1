package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/internal/resolve"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrUsernameExists     = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const tokenTTL = 7 * 24 * time.Hour

// Service handles authentication for both account kinds. Tokens carry
// the account id and kind; the kind is re-verified against the store
// on every validation via the actor resolver.
type Service struct {
	db        *gorm.DB
	jwtSecret []byte
	resolver  *resolve.Resolver
}

// NewService creates a new authentication service
func NewService(db *gorm.DB, jwtSecret []byte) *Service {
	return &Service{
		db:        db,
		jwtSecret: jwtSecret,
		resolver:  resolve.NewResolver(db),
	}
}

// RegisterUserRequest represents a user registration request
type RegisterUserRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Username    string `json:"username" binding:"required,min=3,max=30"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"required,min=1,max=50"`
}

// RegisterProfessionalRequest represents a professional registration request
type RegisterProfessionalRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Username     string `json:"username" binding:"required,min=3,max=30"`
	Password     string `json:"password" binding:"required,min=8"`
	BusinessName string `json:"business_name" binding:"required,min=1,max=100"`
	Profession   string `json:"profession" binding:"max=100"`
}

// LoginRequest represents a login request for either account kind
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents an authentication response
type AuthResponse struct {
	Token     string      `json:"token"`
	Account   interface{} `json:"account"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// RegisterUser creates a plain user account
func (s *Service) RegisterUser(req RegisterUserRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if err := s.checkEmailAndUsername(email, req.Username); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Email:        email,
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.buildAuthResponse(user.ID, models.KindUser, user)
}

// RegisterProfessional creates a professional account
func (s *Service) RegisterProfessional(req RegisterProfessionalRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if err := s.checkEmailAndUsername(email, req.Username); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	professional := models.Professional{
		Email:        email,
		Username:     req.Username,
		BusinessName: req.BusinessName,
		Profession:   req.Profession,
		PasswordHash: string(hash),
	}
	if err := s.db.Create(&professional).Error; err != nil {
		return nil, fmt.Errorf("failed to create professional: %w", err)
	}

	return s.buildAuthResponse(professional.ID, models.KindProfessional, professional)
}

// LoginUser authenticates a plain user account
func (s *Service) LoginUser(req LoginRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	err := s.db.First(&user, "LOWER(email) = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	return s.buildAuthResponse(user.ID, models.KindUser, user)
}

// LoginProfessional authenticates a professional account
func (s *Service) LoginProfessional(req LoginRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var professional models.Professional
	err := s.db.First(&professional, "LOWER(email) = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up professional: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(professional.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	return s.buildAuthResponse(professional.ID, models.KindProfessional, professional)
}

// ValidateToken parses and validates a JWT, returning the actor
// reference it was issued for. Existence is re-checked against the
// store so tokens for deleted accounts stop working.
func (s *Service) ValidateToken(tokenString string) (models.Ref, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return models.Ref{}, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return models.Ref{}, errors.New("invalid token claims")
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return models.Ref{}, errors.New("token missing expiration")
	}
	if time.Unix(int64(exp), 0).Before(time.Now()) {
		return models.Ref{}, errors.New("token expired")
	}

	accountID, ok := claims["account_id"].(string)
	if !ok || accountID == "" {
		return models.Ref{}, errors.New("invalid account_id in token")
	}

	actor, err := s.resolver.ResolveActor(accountID)
	if err != nil {
		return models.Ref{}, ErrAccountNotFound
	}

	return actor, nil
}

// checkEmailAndUsername enforces uniqueness across both account tables,
// since the two kinds are disjoint but share login and mention
// namespaces.
func (s *Service) checkEmailAndUsername(email, username string) error {
	var count int64
	s.db.Model(&models.User{}).Where("LOWER(email) = ?", email).Count(&count)
	if count == 0 {
		s.db.Model(&models.Professional{}).Where("LOWER(email) = ?", email).Count(&count)
	}
	if count > 0 {
		return ErrEmailExists
	}

	s.db.Model(&models.User{}).Where("LOWER(username) = LOWER(?)", username).Count(&count)
	if count == 0 {
		s.db.Model(&models.Professional{}).Where("LOWER(username) = LOWER(?)", username).Count(&count)
	}
	if count > 0 {
		return ErrUsernameExists
	}

	return nil
}

// GetAccount loads the full account record behind an actor reference.
func (s *Service) GetAccount(actor models.Ref) (interface{}, error) {
	switch actor.Kind {
	case models.KindUser:
		var user models.User
		if err := s.db.First(&user, "id = ?", actor.ID).Error; err != nil {
			return nil, ErrAccountNotFound
		}
		return &user, nil
	case models.KindProfessional:
		var professional models.Professional
		if err := s.db.First(&professional, "id = ?", actor.ID).Error; err != nil {
			return nil, ErrAccountNotFound
		}
		return &professional, nil
	}
	return nil, ErrAccountNotFound
}

func (s *Service) buildAuthResponse(accountID string, kind models.EntityKind, account interface{}) (*AuthResponse, error) {
	expiresAt := time.Now().Add(tokenTTL)

	claims := jwt.MapClaims{
		"account_id":   accountID,
		"account_kind": string(kind),
		"exp":          expiresAt.Unix(),
		"iat":          time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &AuthResponse{
		Token:     signed,
		Account:   account,
		ExpiresAt: expiresAt,
	}, nil
}
