package gateway

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kyungseok/storefront-checkout-go/common/errors"
	"github.com/kyungseok/storefront-checkout-go/internal/domain"
)

// boletoDueDays 볼레토 만기일 (생성 시점 + 3일)
const boletoDueDays = 3

// CardData 카드 결제 입력 (투명 체크아웃)
type CardData struct {
	Number      string
	HolderName  string
	ExpiryMonth string
	ExpiryYear  string
	CVV         string
}

// Payer 지불자 정보
type Payer struct {
	Name     string
	Email    string
	Document string
}

// CreatePaymentInput 결제 생성 입력
type CreatePaymentInput struct {
	OrderID         string
	Amount          decimal.Decimal
	Description     string
	Method          domain.PaymentMethod
	Payer           Payer
	Card            *CardData
	Installments    int
	NotificationURL string
}

// paymentRequest 게이트웨이 결제 생성 요청 와이어 포맷
type paymentRequest struct {
	TransactionAmount json.Number       `json:"transaction_amount"`
	Description       string            `json:"description"`
	ExternalReference string            `json:"external_reference"`
	PaymentMethodID   string            `json:"payment_method_id"`
	Installments      int               `json:"installments,omitempty"`
	DateOfExpiration  string            `json:"date_of_expiration,omitempty"`
	NotificationURL   string            `json:"notification_url,omitempty"`
	Payer             payerPayload      `json:"payer"`
	Card              *cardPayload      `json:"card,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

type payerPayload struct {
	Email          string          `json:"email"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	Identification *identification `json:"identification,omitempty"`
}

type identification struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type cardPayload struct {
	Number          string     `json:"number"`
	SecurityCode    string     `json:"security_code"`
	ExpirationMonth int        `json:"expiration_month"`
	ExpirationYear  int        `json:"expiration_year"`
	Cardholder      cardholder `json:"cardholder"`
}

type cardholder struct {
	Name           string          `json:"name"`
	Identification *identification `json:"identification,omitempty"`
}

// DetectCardBrand 카드 번호 선두 자릿수로 브랜드 판별
func DetectCardBrand(number string) string {
	n := strings.ReplaceAll(number, " ", "")
	switch {
	case strings.HasPrefix(n, "4"):
		return "visa"
	case strings.HasPrefix(n, "5"), strings.HasPrefix(n, "2"):
		return "master"
	case strings.HasPrefix(n, "3"):
		return "amex"
	case strings.HasPrefix(n, "6"):
		return "elo"
	default:
		return "visa"
	}
}

// documentIdentification 문서 길이로 CPF/CNPJ 판별 (11자리 이하 CPF)
func documentIdentification(document string) *identification {
	if document == "" {
		return nil
	}
	docType := "CPF"
	if len(document) > 11 {
		docType = "CNPJ"
	}
	return &identification{Type: docType, Number: document}
}

// splitName 지불자 이름을 first/last로 분리 (last 없으면 "N/A")
func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", "N/A"
	}
	if len(parts) == 1 {
		return parts[0], "N/A"
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// buildRequest 결제 수단별 와이어 요청 조립
func buildRequest(input CreatePaymentInput, now time.Time) (*paymentRequest, error) {
	firstName, lastName := splitName(input.Payer.Name)

	req := &paymentRequest{
		TransactionAmount: json.Number(input.Amount.StringFixed(2)),
		Description:       input.Description,
		ExternalReference: input.OrderID,
		NotificationURL:   input.NotificationURL,
		Payer: payerPayload{
			Email:          input.Payer.Email,
			FirstName:      firstName,
			LastName:       lastName,
			Identification: documentIdentification(input.Payer.Document),
		},
		Metadata: map[string]string{"order_id": input.OrderID},
	}

	switch input.Method {
	case domain.PaymentMethodPix:
		req.PaymentMethodID = "pix"

	case domain.PaymentMethodCreditCard:
		if input.Card == nil {
			return nil, errors.New(errors.ErrCodeInvalidCheckout, "card data required for credit card payment")
		}

		number := strings.ReplaceAll(input.Card.Number, " ", "")
		month, err := strconv.Atoi(input.Card.ExpiryMonth)
		if err != nil {
			return nil, errors.New(errors.ErrCodeInvalidCheckout, "invalid card expiry month")
		}
		year, err := strconv.Atoi(input.Card.ExpiryYear)
		if err != nil {
			return nil, errors.New(errors.ErrCodeInvalidCheckout, "invalid card expiry year")
		}
		if year < 100 {
			year += 2000
		}

		req.PaymentMethodID = DetectCardBrand(number)
		req.Installments = input.Installments
		req.Card = &cardPayload{
			Number:          number,
			SecurityCode:    input.Card.CVV,
			ExpirationMonth: month,
			ExpirationYear:  year,
			Cardholder: cardholder{
				Name:           input.Card.HolderName,
				Identification: documentIdentification(input.Payer.Document),
			},
		}

	case domain.PaymentMethodBoleto:
		req.PaymentMethodID = "bolbradesco"
		req.DateOfExpiration = now.AddDate(0, 0, boletoDueDays).Format("2006-01-02")

	default:
		return nil, errors.New(errors.ErrCodeInvalidCheckout, "unsupported payment method")
	}

	return req, nil
}
