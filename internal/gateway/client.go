package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kyungseok/storefront-checkout-go/common/errors"
)

// TokenSource 게이트웨이 접근 토큰 공급자
//
// 토큰은 요청마다 조회한다. 운영 설정 테이블의 값이 환경 변수보다 우선하며
// 재시작 없이 교체될 수 있다.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// StaticToken 고정 토큰 소스 (테스트용)
type StaticToken string

func (t StaticToken) AccessToken(ctx context.Context) (string, error) {
	return string(t), nil
}

// Payment 게이트웨이 결제 레코드 와이어 포맷
type Payment struct {
	ID                 int64               `json:"id"`
	Status             string              `json:"status"`
	StatusDetail       string              `json:"status_detail"`
	ExternalReference  string              `json:"external_reference"`
	PointOfInteraction *PointOfInteraction `json:"point_of_interaction,omitempty"`
	TransactionDetails *TransactionDetails `json:"transaction_details,omitempty"`
	Barcode            *Barcode            `json:"barcode,omitempty"`
}

// PaymentID 게이트웨이 결제 ID 문자열 표현
func (p *Payment) PaymentID() string {
	return fmt.Sprintf("%d", p.ID)
}

// PointOfInteraction 즉시이체(pix) 응답 데이터
type PointOfInteraction struct {
	TransactionData *TransactionData `json:"transaction_data,omitempty"`
}

// TransactionData pix QR 코드 페이로드
type TransactionData struct {
	QRCode       string `json:"qr_code"`
	QRCodeBase64 string `json:"qr_code_base64"`
	TicketURL    string `json:"ticket_url"`
}

// TransactionDetails 볼레토 문서 URL
type TransactionDetails struct {
	ExternalResourceURL string `json:"external_resource_url"`
}

// Barcode 볼레토 바코드
type Barcode struct {
	Content string `json:"content"`
}

// WebhookEvent 게이트웨이 웹훅 이벤트 봉투
type WebhookEvent struct {
	ID     json.Number `json:"id"`
	Type   string      `json:"type"`
	Action string      `json:"action,omitempty"`
	Data   struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

// Client 결제 게이트웨이 REST 클라이언트
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *zap.Logger
}

// NewClient 게이트웨이 클라이언트 생성
func NewClient(baseURL string, tokens TokenSource, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		logger:     logger,
	}
}

// CreatePayment 결제 생성
//
// X-Idempotency-Key를 주문 ID로 고정해 동일 주문의 재시도가 게이트웨이 측에서
// 중복 청구로 이어지지 않게 한다.
func (c *Client) CreatePayment(ctx context.Context, input CreatePaymentInput) (*Payment, error) {
	wireReq, err := buildRequest(input, time.Now())
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSerializationError, "failed to marshal payment request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payments", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeGatewayError, "failed to build payment request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Idempotency-Key", input.OrderID)

	payment := &Payment{}
	if err := c.do(ctx, req, payment); err != nil {
		return nil, err
	}

	c.logger.Info("gateway payment created",
		zap.String("orderId", input.OrderID),
		zap.Int64("paymentId", payment.ID),
		zap.String("status", payment.Status))

	return payment, nil
}

// GetPayment 결제 레코드 조회 (웹훅 재검증용 권위 있는 소스)
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/payments/"+paymentID, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeGatewayError, "failed to build payment fetch request", err)
	}

	payment := &Payment{}
	if err := c.do(ctx, req, payment); err != nil {
		return nil, err
	}

	return payment, nil
}

func (c *Client) do(ctx context.Context, req *http.Request, out interface{}) error {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConfigurationError, "failed to resolve gateway access token", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return errors.Wrap(errors.ErrCodeTimeoutError, "gateway call timed out", err)
		}
		return errors.Wrap(errors.ErrCodeGatewayError, "gateway call failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("gateway returned error response",
			zap.Int("statusCode", resp.StatusCode),
			zap.ByteString("body", snippet))
		return errors.New(errors.ErrCodeGatewayError,
			fmt.Sprintf("gateway returned status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(errors.ErrCodeGatewayError, "failed to decode gateway response", err)
	}

	return nil
}
