package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const Provider = "vnpay"

const timeLayout = "20060102150405"

// VNPayGateway signs pay-URL parameters and validates confirmation callbacks
// with the merchant's HMAC-SHA512 secret. It performs no network I/O itself;
// the user is redirected to the returned URL and the rail calls back.
type VNPayGateway struct {
	baseURL      string
	merchantCode string
	hashSecret   []byte
}

func NewVNPayGateway(baseURL, merchantCode, hashSecret string) *VNPayGateway {
	return &VNPayGateway{
		baseURL:      baseURL,
		merchantCode: merchantCode,
		hashSecret:   []byte(hashSecret),
	}
}

func (g *VNPayGateway) CreatePaymentURL(_ context.Context, req PaymentURLRequest) (string, error) {
	params := url.Values{}
	params.Set("vnp_Version", "2.1.0")
	params.Set("vnp_Command", "pay")
	params.Set("vnp_TmnCode", g.merchantCode)
	params.Set("vnp_TxnRef", req.TransactionID)
	params.Set("vnp_Amount", strconv.FormatInt(req.AmountMinor, 10))
	params.Set("vnp_CurrCode", req.Currency)
	params.Set("vnp_CreateDate", time.Now().UTC().Format(timeLayout))
	params.Set("vnp_ExpireDate", req.ExpiresAt.UTC().Format(timeLayout))
	params.Set("vnp_ReturnUrl", req.ReturnURL)
	params.Set("vnp_IpAddr", req.IPAddress)
	params.Set("vnp_SecureHash", g.sign(params))
	return g.baseURL + "?" + params.Encode(), nil
}

func (g *VNPayGateway) ProcessConfirmationCallback(params url.Values) (CallbackResult, error) {
	received := params.Get("vnp_SecureHash")
	if received == "" {
		return CallbackResult{}, ErrMalformedCallback
	}
	unsigned := url.Values{}
	for key, values := range params {
		if key == "vnp_SecureHash" || key == "vnp_SecureHashType" {
			continue
		}
		for _, value := range values {
			unsigned.Add(key, value)
		}
	}
	if !hmac.Equal([]byte(g.sign(unsigned)), []byte(strings.ToLower(received))) {
		return CallbackResult{}, ErrInvalidSignature
	}
	amount, err := strconv.ParseInt(params.Get("vnp_Amount"), 10, 64)
	if err != nil {
		return CallbackResult{}, ErrMalformedCallback
	}
	transactionID := params.Get("vnp_TxnRef")
	if transactionID == "" {
		return CallbackResult{}, ErrMalformedCallback
	}
	return CallbackResult{
		Success:               params.Get("vnp_ResponseCode") == "00",
		AmountMinor:           amount,
		ProviderTransactionID: params.Get("vnp_TransactionNo"),
		TransactionID:         transactionID,
	}, nil
}

// sign hashes the alphabetically ordered key=value pairs, the same canonical
// form the rail uses on its side.
func (g *VNPayGateway) sign(params url.Values) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var builder strings.Builder
	for i, key := range keys {
		if i > 0 {
			builder.WriteByte('&')
		}
		builder.WriteString(key)
		builder.WriteByte('=')
		builder.WriteString(url.QueryEscape(params.Get(key)))
	}
	mac := hmac.New(sha512.New, g.hashSecret)
	mac.Write([]byte(builder.String()))
	return hex.EncodeToString(mac.Sum(nil))
}
