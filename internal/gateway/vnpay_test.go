package gateway

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"
)

func testGateway() *VNPayGateway {
	return NewVNPayGateway("https://sandbox.vnpayment.vn/paymentv2/vpcpay.html", "TESTTMN", "secret-key")
}

func signedCallback(g *VNPayGateway, overrides map[string]string) url.Values {
	params := url.Values{}
	params.Set("vnp_TxnRef", "ext-1")
	params.Set("vnp_Amount", "50000")
	params.Set("vnp_ResponseCode", "00")
	params.Set("vnp_TransactionNo", "vnp-77")
	for key, value := range overrides {
		params.Set(key, value)
	}
	params.Set("vnp_SecureHash", g.sign(params))
	return params
}

func TestCreatePaymentURLIsSigned(t *testing.T) {
	g := testGateway()
	raw, err := g.CreatePaymentURL(context.Background(), PaymentURLRequest{
		TransactionID: "ext-1",
		AmountMinor:   50000,
		Currency:      "VND",
		ExpiresAt:     time.Now().Add(15 * time.Minute),
		ReturnURL:     "https://app.example/return",
		IPAddress:     "10.0.0.1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(raw, "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html?") {
		t.Fatalf("unexpected url: %s", raw)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("unparseable url: %v", err)
	}
	query := parsed.Query()
	if query.Get("vnp_TxnRef") != "ext-1" || query.Get("vnp_Amount") != "50000" {
		t.Fatalf("unexpected query: %v", query)
	}
	if query.Get("vnp_SecureHash") == "" {
		t.Fatalf("payment url not signed")
	}
}

func TestProcessConfirmationCallbackRoundTrip(t *testing.T) {
	g := testGateway()
	result, err := g.ProcessConfirmationCallback(signedCallback(g, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success for response code 00")
	}
	if result.TransactionID != "ext-1" || result.AmountMinor != 50000 || result.ProviderTransactionID != "vnp-77" {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestProcessConfirmationCallbackFailureCode(t *testing.T) {
	g := testGateway()
	result, err := g.ProcessConfirmationCallback(signedCallback(g, map[string]string{"vnp_ResponseCode": "24"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Fatalf("expected failure for non-00 response code")
	}
}

func TestProcessConfirmationCallbackTamperedAmount(t *testing.T) {
	g := testGateway()
	params := signedCallback(g, nil)
	params.Set("vnp_Amount", "99999")
	_, err := g.ProcessConfirmationCallback(params)
	if err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestProcessConfirmationCallbackWrongSecret(t *testing.T) {
	other := NewVNPayGateway("https://sandbox.vnpayment.vn/paymentv2/vpcpay.html", "TESTTMN", "other-secret")
	params := signedCallback(other, nil)
	_, err := testGateway().ProcessConfirmationCallback(params)
	if err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestProcessConfirmationCallbackMalformed(t *testing.T) {
	g := testGateway()

	if _, err := g.ProcessConfirmationCallback(url.Values{}); err != ErrMalformedCallback {
		t.Fatalf("expected ErrMalformedCallback without hash, got %v", err)
	}

	params := signedCallback(g, map[string]string{"vnp_Amount": "not-a-number"})
	if _, err := g.ProcessConfirmationCallback(params); err != ErrMalformedCallback {
		t.Fatalf("expected ErrMalformedCallback for bad amount, got %v", err)
	}

	params = signedCallback(g, map[string]string{"vnp_TxnRef": ""})
	if _, err := g.ProcessConfirmationCallback(params); err != ErrMalformedCallback {
		t.Fatalf("expected ErrMalformedCallback without txn ref, got %v", err)
	}
}
