package service

import (
	"context"
	"crypto/subtle"
	"time"

	"atomics-registration-be/internal/dto"
	"atomics-registration-be/internal/pkg/apperror"
	"atomics-registration-be/internal/pkg/logger"
	"atomics-registration-be/internal/pkg/serverutils"

	"golang.org/x/crypto/bcrypt"
)

const adminModule = "AdminService"

const (
	defaultLogLimit = 100
	maxLogLimit     = 1000
)

type IAdminService interface {
	Login(ctx context.Context, req *dto.AdminLoginRequest) (*dto.AdminLoginResponse, error)
	GetSystemLogs(ctx context.Context, query *dto.LogListQuery) ([]*dto.LogListResponse, error)
}

type adminService struct {
	username     string
	passwordHash []byte
	jwtSecret    string
	tokenTTL     time.Duration
	logger       logger.ILogger
}

func NewAdminService(username, passwordHash, jwtSecret string, tokenTTL time.Duration, log logger.ILogger) IAdminService {
	return &adminService{
		username:     username,
		passwordHash: []byte(passwordHash),
		jwtSecret:    jwtSecret,
		tokenTTL:     tokenTTL,
		logger:       log,
	}
}

func (s *adminService) Login(ctx context.Context, req *dto.AdminLoginRequest) (*dto.AdminLoginResponse, error) {
	if len(s.passwordHash) == 0 || s.jwtSecret == "" {
		s.logger.Error(adminModule, "Admin login is not configured", nil)
		return nil, apperror.Unauthorized("Invalid credentials")
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.username)) == 1
	// Always run bcrypt so a wrong username costs the same as a wrong password.
	passErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password))
	if !userOK || passErr != nil {
		s.logger.Warn(adminModule, "Failed admin login", map[string]interface{}{"username": req.Username})
		return nil, apperror.Unauthorized("Invalid credentials")
	}

	token, expiresAt, err := serverutils.GenerateAdminToken(s.jwtSecret, s.username, s.tokenTTL)
	if err != nil {
		return nil, apperror.Internal("failed to issue token", err)
	}

	s.logger.Info(adminModule, "Admin logged in", map[string]interface{}{"username": s.username})
	return &dto.AdminLoginResponse{AccessToken: token, ExpiresAt: expiresAt}, nil
}

func (s *adminService) GetSystemLogs(ctx context.Context, query *dto.LogListQuery) ([]*dto.LogListResponse, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultLogLimit
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	entries, err := s.logger.GetLogs(query.Level, limit, offset)
	if err != nil {
		return nil, apperror.Internal("failed to read logs", err)
	}

	res := make([]*dto.LogListResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, &dto.LogListResponse{
			Id:        e.Id,
			Timestamp: e.Timestamp,
			Level:     e.Level,
			Module:    e.Module,
			Message:   e.Message,
			Details:   e.Details,
		})
	}
	return res, nil
}
