package service

import (
	"context"

	"github.com/kyungseok/storefront-checkout-go/common/errors"
	"github.com/kyungseok/storefront-checkout-go/internal/repository"
)

// GatewayTokenSettingKey 운영 설정 테이블의 게이트웨이 토큰 키
const GatewayTokenSettingKey = "GATEWAY_ACCESS_TOKEN"

// SettingsTokenSource 운영 설정 우선, 환경 변수 폴백의 토큰 소스
//
// 토큰은 요청마다 조회되므로 설정 테이블에서 교체하면 재시작 없이 반영된다.
type SettingsTokenSource struct {
	catalog  repository.CatalogRepository
	envToken string
}

// NewSettingsTokenSource 설정 기반 토큰 소스 생성
func NewSettingsTokenSource(catalog repository.CatalogRepository, envToken string) *SettingsTokenSource {
	return &SettingsTokenSource{
		catalog:  catalog,
		envToken: envToken,
	}
}

// AccessToken 게이트웨이 접근 토큰 해석
func (s *SettingsTokenSource) AccessToken(ctx context.Context) (string, error) {
	value, err := s.catalog.SettingValue(ctx, GatewayTokenSettingKey)
	if err == nil && value != "" {
		return value, nil
	}

	if s.envToken != "" {
		return s.envToken, nil
	}

	return "", errors.New(errors.ErrCodeConfigurationError, "gateway access token not configured")
}
