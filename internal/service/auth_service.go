package service

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/crsp-mall/internal/config"
	"github.com/crsp-mall/internal/logger"
	"github.com/crsp-mall/internal/models"
	"github.com/crsp-mall/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	jwtIssuer          = "mall-admin"
	defaultJWTLifetime = 24 * time.Hour
	credentialsMessage = "用户名或密码错误"
	minPasswordLength  = 6
	maxPasswordLength  = 32
)

// 账号不存在时也做一次 bcrypt 比较，响应时间与密码错误一致
var dummyPasswordHash, _ = bcrypt.GenerateFromPassword([]byte("mall-dummy-password"), bcrypt.DefaultCost)

// JWTClaims 管理员令牌声明
type JWTClaims struct {
	AdminID  uint   `json:"admin_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// LoginResult 登录成功返回的令牌与管理员
type LoginResult struct {
	Admin     *models.Admin `json:"admin"`
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// AuthService 管理员认证
type AuthService struct {
	secret   []byte
	lifetime time.Duration
	admins   repository.AdminRepository
}

// NewAuthService 创建认证服务
func NewAuthService(cfg config.JWTConfig, admins repository.AdminRepository) *AuthService {
	lifetime := defaultJWTLifetime
	if cfg.ExpireHours > 0 {
		lifetime = time.Duration(cfg.ExpireHours) * time.Hour
	}
	return &AuthService{secret: []byte(cfg.SecretKey), lifetime: lifetime, admins: admins}
}

// HashPassword bcrypt 哈希
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

// Login 校验账号密码并签发 JWT
func (s *AuthService) Login(username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, newBizError(ErrInvalidCredentials, "%s", credentialsMessage)
	}
	admin, err := s.admins.GetByUsername(username)
	if err != nil {
		return nil, storeFault(err)
	}
	hash := dummyPasswordHash
	if admin != nil {
		hash = []byte(admin.PasswordHash)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || admin == nil {
		logger.Warnw("admin_login_rejected", "username", username, "known_user", admin != nil)
		return nil, newBizError(ErrInvalidCredentials, "%s", credentialsMessage)
	}

	token, expiresAt, err := s.issue(admin, time.Now())
	if err != nil {
		return nil, storeFault(err)
	}
	now := time.Now()
	if err := s.admins.TouchLogin(admin.ID, now); err != nil {
		logger.Warnw("admin_touch_login_failed", "admin_id", admin.ID, "error", err)
	} else {
		admin.LastLoginAt = &now
	}
	return &LoginResult{Admin: admin, Token: token, ExpiresAt: expiresAt}, nil
}

// ChangePassword 校验原密码后更新为新密码
func (s *AuthService) ChangePassword(adminID uint, oldPassword, newPassword, confirmPassword string) error {
	if n := len(newPassword); n < minPasswordLength || n > maxPasswordLength {
		return newBizError(ErrValidation, "新密码长度须为%d-%d个字符", minPasswordLength, maxPasswordLength)
	}
	if newPassword != confirmPassword {
		return newBizError(ErrValidation, "两次输入的密码不一致")
	}
	admin, err := s.admins.GetByID(adminID)
	if err != nil {
		return storeFault(err)
	}
	if admin == nil {
		return newBizError(ErrUnauthorized, "管理员不存在")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(oldPassword)); err != nil {
		logger.Warnw("admin_password_change_rejected", "admin_id", adminID)
		return newBizError(ErrValidation, "原密码错误")
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return storeFault(err)
	}
	if err := s.admins.UpdatePassword(adminID, hash); err != nil {
		return storeFault(err)
	}
	logger.Infow("admin_password_changed", "admin_id", adminID)
	return nil
}

func (s *AuthService) issue(admin *models.Admin, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(s.lifetime)
	claims := JWTClaims{
		AdminID:  admin.ID,
		Username: admin.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    jwtIssuer,
			Subject:   strconv.FormatUint(uint64(admin.ID), 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	return signed, expiresAt, err
}

// ParseJWT 校验签名、签发方与有效期
func (s *AuthService) ParseJWT(tokenString string) (*JWTClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(jwtIssuer),
		jwt.WithExpirationRequired(),
	)
	claims := &JWTClaims{}
	if _, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}); err != nil {
		return nil, err
	}
	if claims.AdminID == 0 {
		return nil, errors.New("token missing admin id")
	}
	return claims, nil
}
