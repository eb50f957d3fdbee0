package esewa

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platform_jasa/internal/config"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/models"
)

// SignedFieldNames is the fixed field order of the outbound signature.
const SignedFieldNames = "total_amount,transaction_uuid,product_code"

var (
	ErrInvalidPayload   = errors.New("esewa: callback payload is not base64 encoded JSON")
	ErrInvalidSignature = errors.New("esewa: callback signature mismatch")
)

type EsewaService struct {
	SecretKey   string
	ProductCode string
	FormURL     string
	// VerifyResponse requires a valid signature on callback payloads.
	VerifyResponse bool
	// NewTransactionID mints the transaction_uuid of each attempt.
	NewTransactionID func() string
}

func NewEsewaService(cfg config.Config) *EsewaService {
	return &EsewaService{
		SecretKey:        cfg.EsewaSecretKey,
		ProductCode:      cfg.EsewaProductCode,
		FormURL:          cfg.EsewaFormURL,
		VerifyResponse:   cfg.EsewaVerifyResponse,
		NewTransactionID: uuid.NewString,
	}
}

// PaymentRequest holds the form fields posted to the gateway.
type PaymentRequest struct {
	FormURL               string `json:"form_url"`
	Amount                int64  `json:"amount"`
	TaxAmount             int64  `json:"tax_amount"`
	TotalAmount           int64  `json:"total_amount"`
	TransactionUUID       string `json:"transaction_uuid"`
	ProductCode           string `json:"product_code"`
	ProductServiceCharge  int64  `json:"product_service_charge"`
	ProductDeliveryCharge int64  `json:"product_delivery_charge"`
	SuccessURL            string `json:"success_url"`
	FailureURL            string `json:"failure_url"`
	SignedFieldNames      string `json:"signed_field_names"`
	Signature             string `json:"signature"`
}

// SigningMessage builds "total_amount=<n>,transaction_uuid=<u>,product_code=<c>".
func SigningMessage(totalAmount int64, transactionUUID, productCode string) string {
	return fmt.Sprintf("total_amount=%d,transaction_uuid=%s,product_code=%s", totalAmount, transactionUUID, productCode)
}

// Sign returns base64(HMAC-SHA256(secret, message)) over the raw digest.
func (s *EsewaService) Sign(message string) string {
	h := hmac.New(sha256.New, []byte(s.SecretKey))
	h.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func (s *EsewaService) VerifySignature(message, signature string) bool {
	expected := s.Sign(message)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// BuildPaymentRequest signs a new attempt for the booking. The booking's
// Service must be loaded. Every call mints a new transaction id.
func (s *EsewaService) BuildPaymentRequest(b *models.Booking, baseURL string) (*PaymentRequest, error) {
	if b == nil || b.Service == nil {
		return nil, errors.New("esewa: booking service not loaded")
	}
	total := b.Service.Price
	txID := s.NewTransactionID()
	base := strings.TrimRight(baseURL, "/")

	return &PaymentRequest{
		FormURL:               s.FormURL,
		Amount:                total,
		TaxAmount:             0,
		TotalAmount:           total,
		TransactionUUID:       txID,
		ProductCode:           s.ProductCode,
		ProductServiceCharge:  0,
		ProductDeliveryCharge: 0,
		SuccessURL:            fmt.Sprintf("%s/api/payments/esewa/%d/success", base, b.ID),
		FailureURL:            fmt.Sprintf("%s/api/payments/esewa/%d/failure", base, b.ID),
		SignedFieldNames:      SignedFieldNames,
		Signature:             s.Sign(SigningMessage(total, txID, s.ProductCode)),
	}, nil
}

// CallbackResult is the decoded redirect payload.
type CallbackResult struct {
	Status          string
	Complete        bool
	TransactionUUID string
	TransactionCode string
	TotalAmount     string
	Raw             map[string]interface{}
	// JSON is the decoded payload as received.
	JSON []byte
}

// VerifyCallback decodes the base64 JSON the gateway appends as ?data=.
// Any decode or signature failure leaves the caller free to reject the
// request without touching the booking.
func (s *EsewaService) VerifyCallback(data string) (*CallbackResult, error) {
	raw, err := decodeBase64(data)
	if err != nil {
		return nil, ErrInvalidPayload
	}

	var fields map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return nil, ErrInvalidPayload
	}

	if s.VerifyResponse {
		if err := s.verifyResponseSignature(fields); err != nil {
			return nil, err
		}
	}

	status := stringField(fields, "status")
	return &CallbackResult{
		Status:          status,
		Complete:        strings.EqualFold(status, "complete"),
		TransactionUUID: stringField(fields, "transaction_uuid"),
		TransactionCode: stringField(fields, "transaction_code"),
		TotalAmount:     stringField(fields, "total_amount"),
		Raw:             fields,
		JSON:            raw,
	}, nil
}

// ParseAmount reads a callback total such as "1000.0" or "1,000.0" as whole
// rupees. Fractional or unparsable values report false.
func ParseAmount(v string) (int64, bool) {
	v = strings.ReplaceAll(strings.TrimSpace(v), ",", "")
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

// verifyResponseSignature rebuilds "k1=v1,k2=v2" in signed_field_names order.
func (s *EsewaService) verifyResponseSignature(fields map[string]interface{}) error {
	names := stringField(fields, "signed_field_names")
	sig := stringField(fields, "signature")
	if names == "" || sig == "" {
		return ErrInvalidSignature
	}

	parts := make([]string, 0, 8)
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if _, ok := fields[name]; !ok {
			return ErrInvalidSignature
		}
		parts = append(parts, name+"="+stringField(fields, name))
	}
	if !s.VerifySignature(strings.Join(parts, ","), sig) {
		return ErrInvalidSignature
	}
	return nil
}

// decodeBase64 accepts std base64 with or without padding, including
// query strings where '+' arrived as a space.
func decodeBase64(data string) ([]byte, error) {
	data = strings.TrimSpace(strings.ReplaceAll(data, " ", "+"))
	if data == "" {
		return nil, errors.New("empty payload")
	}
	if b, err := base64.StdEncoding.DecodeString(data); err == nil {
		return b, nil
	}
	if b, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(data, "=")); err == nil {
		return b, nil
	}
	return base64.URLEncoding.DecodeString(data)
}

func stringField(fields map[string]interface{}, key string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
