package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"finance-advisor-server/internal/domain"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

const maxWebhookBodyBytes = 65536

// BillingHandler receives Stripe webhooks and records the resulting plan.
type BillingHandler struct {
	billingService domain.BillingService
	webhookSecret  string
	logger         domain.Logger
}

func NewBillingHandler(billingService domain.BillingService, webhookSecret string, logger domain.Logger) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
		webhookSecret:  webhookSecret,
		logger:         logger,
	}
}

// Webhook verifies the Stripe signature and applies plan changes. Events
// that do not affect plans are acknowledged.
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.webhookSecret == "" {
		h.logger.Warn("Stripe webhook received but STRIPE_WEBHOOK_SECRET is not set")
		writeError(w, http.StatusServiceUnavailable, "Webhook not configured")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn("Stripe webhook body too large", "limit_bytes", tooLarge.Limit)
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to read body")
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		body,
		r.Header.Get("Stripe-Signature"),
		h.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		h.logger.Warn("Stripe webhook signature failed", "error", err.Error())
		writeError(w, http.StatusBadRequest, "Signature verification failed")
		return
	}

	billingEvent, ok, err := toBillingEvent(event)
	if err != nil {
		h.logger.Warn("Stripe webhook payload invalid", "event_type", event.Type, "error", err.Error())
		writeError(w, http.StatusBadRequest, "Invalid event payload")
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if _, err := h.billingService.Apply(r.Context(), billingEvent); err != nil {
		// A non-2xx makes Stripe retry the delivery.
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toBillingEvent(event stripe.Event) (domain.BillingEvent, bool, error) {
	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return domain.BillingEvent{}, false, err
		}
		ev := domain.BillingEvent{
			Kind:   domain.BillingCheckoutCompleted,
			UserID: sess.ClientReferenceID,
			Plan:   sess.Metadata["plan"],
		}
		if ev.UserID == "" {
			ev.UserID = sess.Metadata["user_id"]
		}
		if sess.Customer != nil {
			ev.CustomerID = sess.Customer.ID
		}
		if sess.Subscription != nil {
			ev.SubscriptionID = sess.Subscription.ID
		}
		return ev, true, nil

	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return domain.BillingEvent{}, false, err
		}
		ev := domain.BillingEvent{
			Kind:           domain.BillingSubscriptionChanged,
			UserID:         sub.Metadata["user_id"],
			SubscriptionID: sub.ID,
			Status:         string(sub.Status),
		}
		if event.Type == "customer.subscription.deleted" {
			ev.Kind = domain.BillingSubscriptionDeleted
		}
		if sub.Customer != nil {
			ev.CustomerID = sub.Customer.ID
		}
		if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
			ev.PriceID = sub.Items.Data[0].Price.ID
		}
		return ev, true, nil
	}
	return domain.BillingEvent{}, false, nil
}
