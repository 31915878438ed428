package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/audit"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/catalog"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/env"
)

const defaultTimeout = 10 * time.Second

// Result is the uniform outcome of a carrier call. Transport failures are
// folded into Success=false; the client never returns an error for them.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SMSPayload is an outbound SMS addressed to a subscriber.
type SMSPayload struct {
	Message         string `json:"message"`
	SenderAddress   string `json:"senderAddress"`
	ReceiverAddress string `json:"receiverAddress"`
}

// Client talks to the telco carrier REST API. Production traffic uses the
// production token; services on the test allow-list are routed with the test
// token instead so individual products can run against the carrier sandbox.
type Client struct {
	BaseURL        string
	ProdToken      string
	TestToken      string
	TestServiceIDs map[string]struct{}
	SenderAddress  string

	HTTPClient *http.Client
	Audit      audit.Sink
}

// NewClientFromEnv builds a client from CARRIER_* environment settings.
func NewClientFromEnv(sink audit.Sink) *Client {
	testIDs := map[string]struct{}{}
	for _, id := range strings.Split(env.GetEnv("CARRIER_TEST_SERVICE_IDS", ""), ",") {
		if id = strings.TrimSpace(id); id != "" {
			testIDs[id] = struct{}{}
		}
	}
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &Client{
		BaseURL:        strings.TrimRight(env.GetEnv("CARRIER_BASE_URL", ""), "/"),
		ProdToken:      env.GetEnv("CARRIER_API_TOKEN", ""),
		TestToken:      env.GetEnv("CARRIER_TEST_API_TOKEN", ""),
		TestServiceIDs: testIDs,
		SenderAddress:  env.GetEnv("CARRIER_SENDER_ADDRESS", "MSAP"),
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
		Audit: sink,
	}
}

// NewTransactionID generates a fresh transaction id: millisecond timestamp
// plus a random numeric suffix.
func NewTransactionID() string {
	return fmt.Sprintf("%d%04d", time.Now().UnixMilli(), rand.Intn(10000))
}

// NewCorrelatorID derives a correlator from the same clock by reversing the
// timestamp digits, keeping it distinct from transaction ids minted in the
// same millisecond.
func NewCorrelatorID() string {
	return reverseDigits(strconv.FormatInt(time.Now().UnixMilli(), 10))
}

func reverseDigits(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

// tokenFor selects the API token for a target service.
func (c *Client) tokenFor(serviceID string) string {
	if _, ok := c.TestServiceIDs[serviceID]; ok && c.TestToken != "" {
		return c.TestToken
	}
	return c.ProdToken
}

// SendSMS delivers one SMS through the carrier messaging endpoint.
func (c *Client) SendSMS(ctx context.Context, payload SMSPayload) Result {
	if payload.SenderAddress == "" {
		payload.SenderAddress = c.SenderAddress
	}
	endpoint := c.BaseURL + "/v3/sms/messages/sms/outbound"
	return c.call(ctx, http.MethodPost, endpoint, c.ProdToken, "", payload, "sms sent")
}

// Subscribe provisions a subscription for the msisdn on the carrier side.
func (c *Client) Subscribe(ctx context.Context, msisdn string, svc *catalog.Service, prod *catalog.Product, channel string) Result {
	body := map[string]interface{}{
		"productId":    prod.ID,
		"serviceId":    svc.ID,
		"channel":      channel,
		"correlatorId": NewCorrelatorID(),
	}
	endpoint := fmt.Sprintf("%s/v2/customers/%s/subscriptions", c.BaseURL, url.PathEscape(msisdn))
	return c.call(ctx, http.MethodPost, endpoint, c.tokenFor(svc.ID), svc.ID, body, "subscription accepted")
}

// Unsubscribe cancels the msisdn's subscription to the product.
func (c *Client) Unsubscribe(ctx context.Context, msisdn string, svc *catalog.Service, prod *catalog.Product) Result {
	endpoint := fmt.Sprintf(
		"%s/v2/customers/%s/subscriptions/%s?subscriptionProviderId=MSAP&nodeId=ICELL&description=%s",
		c.BaseURL, url.PathEscape(msisdn), url.PathEscape(prod.ID), url.QueryEscape(prod.ID),
	)
	return c.call(ctx, http.MethodDelete, endpoint, c.tokenFor(svc.ID), svc.ID, nil, "unsubscription accepted")
}

// call performs one carrier request and folds every failure mode into a
// Result. Request and response are mirrored to the audit channel without
// blocking the caller.
func (c *Client) call(ctx context.Context, method, endpoint, token, serviceID string, body interface{}, okMessage string) Result {
	transactionID := NewTransactionID()

	var reqBody []byte
	if body != nil {
		var err error
		if reqBody, err = json.Marshal(body); err != nil {
			log.Errorf("[Carrier] Failed to marshal request body: %v", err)
			return Result{Success: false, Message: "carrier request could not be built"}
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		log.Errorf("[Carrier] Failed to build request %s %s: %v", method, endpoint, err)
		return Result{Success: false, Message: "carrier request could not be built"}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-token", token)
	req.Header.Set("transactionId", transactionID)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		log.Errorf("[Carrier] %s %s failed: %v", method, endpoint, err)
		c.mirror(method, endpoint, serviceID, transactionID, reqBody, 0, nil, err)
		return Result{Success: false, Message: "carrier unreachable"}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	c.mirror(method, endpoint, serviceID, transactionID, reqBody, resp.StatusCode, respBody, nil)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Errorf("[Carrier] %s %s returned status %d: %s", method, endpoint, resp.StatusCode, string(respBody))
		return Result{Success: false, Message: fmt.Sprintf("carrier rejected request (status %d)", resp.StatusCode)}
	}

	return Result{Success: true, Message: okMessage}
}

// mirror ships the request/response pair to the audit channel in the
// background.
func (c *Client) mirror(method, endpoint, serviceID, transactionID string, reqBody []byte, status int, respBody []byte, callErr error) {
	fields := map[string]interface{}{
		"method":        method,
		"endpoint":      endpoint,
		"serviceId":     serviceID,
		"transactionId": transactionID,
		"request":       string(reqBody),
		"status":        status,
		"response":      string(respBody),
	}
	if callErr != nil {
		fields["error"] = callErr.Error()
	}
	go c.Audit.Post("carrier_call", fields)
}
