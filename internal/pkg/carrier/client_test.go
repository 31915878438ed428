package carrier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/audit"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/catalog"
)

func testClient(baseURL string) *Client {
	return &Client{
		BaseURL:        baseURL,
		ProdToken:      "prod-token",
		TestToken:      "test-token",
		TestServiceIDs: map[string]struct{}{"svc-sandbox": {}},
		SenderAddress:  "MSAP",
		HTTPClient:     &http.Client{Timeout: 2 * time.Second},
		Audit:          audit.NopSink{},
	}
}

func testProduct() (*catalog.Service, *catalog.Product) {
	svc := &catalog.Service{ID: "svc-verse", Name: "Daily Verse"}
	prod := &catalog.Product{ID: "prod-verse", Name: "Daily Verse"}
	return svc, prod
}

// TestSendSMS tests a successful outbound SMS call
func TestSendSMS(t *testing.T) {
	var gotPath, gotToken, gotTrxID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.Header.Get("api-token")
		gotTrxID = r.Header.Get("transactionId")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := testClient(server.URL)
	result := client.SendSMS(context.Background(), SMSPayload{
		Message:         "hello",
		ReceiverAddress: "2348012345678",
	})

	assert.True(t, result.Success)
	assert.Equal(t, "/v3/sms/messages/sms/outbound", gotPath)
	assert.Equal(t, "prod-token", gotToken)
	assert.NotEmpty(t, gotTrxID)
}

// TestSubscribe_TokenRouting tests that sandbox services use the test token
func TestSubscribe_TokenRouting(t *testing.T) {
	var gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("api-token")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := testClient(server.URL)

	svc, prod := testProduct()
	result := client.Subscribe(context.Background(), "2348012345678", svc, prod, "SMS")
	assert.True(t, result.Success)
	assert.Equal(t, "prod-token", gotToken)

	sandbox := &catalog.Service{ID: "svc-sandbox"}
	result = client.Subscribe(context.Background(), "2348012345678", sandbox, prod, "SMS")
	assert.True(t, result.Success)
	assert.Equal(t, "test-token", gotToken)
}

// TestUnsubscribe tests the unsubscription endpoint shape
func TestUnsubscribe(t *testing.T) {
	var gotMethod, gotURI string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotURI = r.URL.RequestURI()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := testClient(server.URL)
	svc, prod := testProduct()

	result := client.Unsubscribe(context.Background(), "2348012345678", svc, prod)
	require.True(t, result.Success)
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Contains(t, gotURI, "/v2/customers/2348012345678/subscriptions/prod-verse")
	assert.Contains(t, gotURI, "subscriptionProviderId=MSAP")
	assert.Contains(t, gotURI, "nodeId=ICELL")
	assert.Contains(t, gotURI, "description=prod-verse")
}

// TestCall_NetworkFailure tests that transport failures resolve to a failure result, never an error
func TestCall_NetworkFailure(t *testing.T) {
	client := testClient("http://127.0.0.1:1") // nothing listens here
	svc, prod := testProduct()

	result := client.Subscribe(context.Background(), "2348012345678", svc, prod, "SMS")
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Message)

	result = client.SendSMS(context.Background(), SMSPayload{Message: "x", ReceiverAddress: "y"})
	assert.False(t, result.Success)
}

// TestCall_CarrierRejection tests that non-2xx responses yield a failure result
func TestCall_CarrierRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := testClient(server.URL)
	svc, prod := testProduct()

	result := client.Subscribe(context.Background(), "2348012345678", svc, prod, "SMS")
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "502")
}

// TestNewTransactionID tests transaction id shape and freshness
func TestNewTransactionID(t *testing.T) {
	a := NewTransactionID()
	b := NewTransactionID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	for _, r := range a {
		assert.True(t, r >= '0' && r <= '9')
	}
}

// TestNewCorrelatorID tests that the correlator is the reversed timestamp digits
func TestNewCorrelatorID(t *testing.T) {
	c := NewCorrelatorID()
	assert.NotEmpty(t, c)
	// Millisecond timestamps start with 1..9; the reversal ends with it.
	assert.False(t, strings.HasPrefix(c, "0") && strings.HasSuffix(c, "0"))
	assert.Equal(t, reverseDigits(reverseDigits(c)), c)
}

// TestReverseDigits tests digit reversal
func TestReverseDigits(t *testing.T) {
	assert.Equal(t, "54321", reverseDigits("12345"))
	assert.Equal(t, "1", reverseDigits("1"))
	assert.Equal(t, "", reverseDigits(""))
}
