package handler

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"finance-advisor-server/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/webhook"
)

const testWebhookSecret = "whsec_test_secret"

func signedWebhookRequest(t *testing.T, payload string) *http.Request {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(payload),
		Secret:  testWebhookSecret,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/webhook", bytes.NewReader(signed.Payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	return req
}

func TestBillingHandler_CheckoutCompleted(t *testing.T) {
	billing := &mockBillingService{}
	h := NewBillingHandler(billing, testWebhookSecret, NewMockHandlerLogger())

	payload := `{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"object": "checkout.session",
			"client_reference_id": "user-1",
			"customer": "cus_1",
			"subscription": "sub_1",
			"metadata": {"plan": "premium"}
		}}
	}`

	rr := httptest.NewRecorder()
	h.Webhook(rr, signedWebhookRequest(t, payload))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Len(t, billing.events, 1)
	ev := billing.events[0]
	assert.Equal(t, domain.BillingCheckoutCompleted, ev.Kind)
	assert.Equal(t, "user-1", ev.UserID)
	assert.Equal(t, "premium", ev.Plan)
	assert.Equal(t, "cus_1", ev.CustomerID)
	assert.Equal(t, "sub_1", ev.SubscriptionID)
}

func TestBillingHandler_SubscriptionUpdated(t *testing.T) {
	billing := &mockBillingService{}
	h := NewBillingHandler(billing, testWebhookSecret, NewMockHandlerLogger())

	payload := `{
		"id": "evt_2",
		"object": "event",
		"type": "customer.subscription.updated",
		"data": {"object": {
			"id": "sub_1",
			"object": "subscription",
			"customer": "cus_1",
			"status": "past_due",
			"metadata": {"user_id": "user-1"},
			"items": {"object": "list", "data": [
				{"id": "si_1", "object": "subscription_item", "price": {"id": "price_pro", "object": "price"}}
			]}
		}}
	}`

	rr := httptest.NewRecorder()
	h.Webhook(rr, signedWebhookRequest(t, payload))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Len(t, billing.events, 1)
	ev := billing.events[0]
	assert.Equal(t, domain.BillingSubscriptionChanged, ev.Kind)
	assert.Equal(t, "user-1", ev.UserID)
	assert.Equal(t, "price_pro", ev.PriceID)
	assert.Equal(t, "past_due", ev.Status)
}

func TestBillingHandler_SubscriptionDeleted(t *testing.T) {
	billing := &mockBillingService{}
	h := NewBillingHandler(billing, testWebhookSecret, NewMockHandlerLogger())

	payload := `{
		"id": "evt_3",
		"object": "event",
		"type": "customer.subscription.deleted",
		"data": {"object": {"id": "sub_1", "object": "subscription", "status": "canceled", "metadata": {"user_id": "user-1"}}}
	}`

	rr := httptest.NewRecorder()
	h.Webhook(rr, signedWebhookRequest(t, payload))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Len(t, billing.events, 1)
	assert.Equal(t, domain.BillingSubscriptionDeleted, billing.events[0].Kind)
}

func TestBillingHandler_UnhandledEventIgnored(t *testing.T) {
	billing := &mockBillingService{}
	h := NewBillingHandler(billing, testWebhookSecret, NewMockHandlerLogger())

	payload := `{"id": "evt_4", "object": "event", "type": "invoice.paid", "data": {"object": {"id": "in_1", "object": "invoice"}}}`

	rr := httptest.NewRecorder()
	h.Webhook(rr, signedWebhookRequest(t, payload))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ignored")
	assert.Empty(t, billing.events)
}

func TestBillingHandler_BadSignature(t *testing.T) {
	billing := &mockBillingService{}
	h := NewBillingHandler(billing, testWebhookSecret, NewMockHandlerLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/webhook", bytes.NewReader([]byte(`{"id":"evt_5"}`)))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	rr := httptest.NewRecorder()
	h.Webhook(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, billing.events)
}

func TestBillingHandler_NotConfigured(t *testing.T) {
	h := NewBillingHandler(&mockBillingService{}, "", NewMockHandlerLogger())

	rr := httptest.NewRecorder()
	h.Webhook(rr, httptest.NewRequest(http.MethodPost, "/api/v1/billing/webhook", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestBillingHandler_ApplyFailureAsksForRetry(t *testing.T) {
	billing := &mockBillingService{err: domain.NewStorageError("upsert subscription", errors.New("timeout"))}
	h := NewBillingHandler(billing, testWebhookSecret, NewMockHandlerLogger())

	payload := `{
		"id": "evt_6",
		"object": "event",
		"type": "customer.subscription.deleted",
		"data": {"object": {"id": "sub_1", "object": "subscription", "metadata": {"user_id": "user-1"}}}
	}`

	rr := httptest.NewRecorder()
	h.Webhook(rr, signedWebhookRequest(t, payload))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestBillingHandler_SubscriptionDeletedWithoutMetadataKeepsCustomer(t *testing.T) {
	billing := &mockBillingService{}
	h := NewBillingHandler(billing, testWebhookSecret, NewMockHandlerLogger())

	payload := `{
		"id": "evt_6",
		"object": "event",
		"type": "customer.subscription.deleted",
		"data": {"object": {"id": "sub_1", "object": "subscription", "status": "canceled", "customer": "cus_1"}}
	}`

	rr := httptest.NewRecorder()
	h.Webhook(rr, signedWebhookRequest(t, payload))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Len(t, billing.events, 1)
	assert.Empty(t, billing.events[0].UserID)
	assert.Equal(t, "cus_1", billing.events[0].CustomerID)
}

func TestBillingHandler_OversizedBody(t *testing.T) {
	billing := &mockBillingService{}
	h := NewBillingHandler(billing, testWebhookSecret, NewMockHandlerLogger())

	body := bytes.Repeat([]byte("a"), maxWebhookBodyBytes+1)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/webhook", bytes.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	rr := httptest.NewRecorder()
	h.Webhook(rr, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Empty(t, billing.events)
}
