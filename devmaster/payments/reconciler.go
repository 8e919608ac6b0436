// Package payments turns checkout preferences into energy credits. The
// reconciler treats webhook notifications as hints only: every payment is
// re-fetched from the processor and applied exactly once.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/devmasterhq/devmaster/devmaster/database/models"
	"github.com/devmasterhq/devmaster/devmaster/database/repositories"
	"github.com/devmasterhq/devmaster/devmaster/energy"
	"github.com/devmasterhq/devmaster/devmaster/logger"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var ErrUnknownItem = errors.New("unknown shop item")

// ShopItem is a purchasable catalog entry.
type ShopItem struct {
	Type  models.ItemType
	Title string
	Value int
	Price float64
}

// Catalog is the fixed shop inventory.
var Catalog = map[models.ItemType]ShopItem{
	models.ItemTypeEnergy: {
		Type:  models.ItemTypeEnergy,
		Title: "Energy Pack (+3)",
		Value: 3,
		Price: 4.99,
	},
	models.ItemTypeEnergyFull: {
		Type:  models.ItemTypeEnergyFull,
		Title: "Full Energy Restore",
		Value: 0,
		Price: 9.99,
	},
}

// externalReference travels with the payment through the processor and
// comes back on the webhook. It is the only link between a payment and
// the user who initiated it.
type externalReference struct {
	UserID    uuid.UUID       `json:"user_id"`
	ItemType  models.ItemType `json:"item_type"`
	ItemValue int             `json:"item_value"`
}

type Reconciler struct {
	processor ProcessorClient
	purchases repositories.PurchaseRepository
	ledger    *energy.Ledger
	backURL   string
	notifyURL string
}

func NewReconciler(
	processor ProcessorClient,
	purchases repositories.PurchaseRepository,
	ledger *energy.Ledger,
	backURL, notifyURL string,
) *Reconciler {
	return &Reconciler{
		processor: processor,
		purchases: purchases,
		ledger:    ledger,
		backURL:   backURL,
		notifyURL: notifyURL,
	}
}

// CheckoutResult is returned to the client so it can redirect into the
// processor's hosted checkout.
type CheckoutResult struct {
	InitPoint    string `json:"init_point"`
	PreferenceID string `json:"preference_id"`
}

// CreateIntent creates a checkout preference for one catalog item and
// records the intent. Nothing is credited here.
func (r *Reconciler) CreateIntent(ctx context.Context, userID uuid.UUID, itemType models.ItemType) (*CheckoutResult, error) {
	item, ok := Catalog[itemType]
	if !ok {
		return nil, ErrUnknownItem
	}

	ref, err := json.Marshal(externalReference{
		UserID:    userID,
		ItemType:  item.Type,
		ItemValue: item.Value,
	})
	if err != nil {
		return nil, err
	}

	pref, err := r.processor.CreatePreference(ctx, &PreferenceRequest{
		Items: []PreferenceItem{{
			Title:      item.Title,
			Quantity:   1,
			UnitPrice:  item.Price,
			CurrencyID: "BRL",
		}},
		BackURLs: BackURLs{
			Success: r.backURL + "/shop?status=success",
			Failure: r.backURL + "/shop?status=failure",
			Pending: r.backURL + "/shop?status=pending",
		},
		AutoReturn:        "approved",
		ExternalReference: string(ref),
		NotificationURL:   r.notifyURL,
	})
	if err != nil {
		return nil, err
	}

	intent := &models.EnergyPurchase{
		UserID:       userID,
		ItemType:     item.Type,
		ItemValue:    item.Value,
		PreferenceID: pref.ID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := r.purchases.RecordIntent(ctx, intent); err != nil {
		return nil, fmt.Errorf("failed to record purchase intent: %w", err)
	}

	logger.LogPayment("Checkout preference created",
		"user_id", userID.String(),
		"item_type", string(item.Type),
		"preference_id", pref.ID)

	return &CheckoutResult{InitPoint: pref.InitPoint, PreferenceID: pref.ID}, nil
}

// HandleNotification processes one webhook delivery. Non-payment events
// and non-approved payments are acknowledged without side effects.
// Approved payments are re-fetched from the processor and fulfilled at
// most once; replays fall out of the dedup insert and report applied=false.
func (r *Reconciler) HandleNotification(ctx context.Context, notificationType, paymentID string) (bool, error) {
	if notificationType != "payment" || paymentID == "" {
		return false, nil
	}

	payment, err := r.processor.GetPayment(ctx, paymentID)
	if err != nil {
		return false, fmt.Errorf("failed to fetch payment %s: %w", paymentID, err)
	}
	if payment.Status != StatusApproved {
		logger.LogPayment("Ignoring non-approved payment",
			"payment_id", paymentID,
			"status", payment.Status)
		return false, nil
	}

	var ref externalReference
	if err := json.Unmarshal([]byte(payment.ExternalReference), &ref); err != nil {
		return false, fmt.Errorf("payment %s carries a malformed external reference: %w", paymentID, err)
	}

	record := &models.ProcessedPayment{
		PaymentID:   paymentID,
		UserID:      ref.UserID,
		ItemType:    ref.ItemType,
		ItemValue:   ref.ItemValue,
		ProcessedAt: time.Now().UTC(),
	}

	applied, err := r.purchases.ProcessOnce(ctx, record, func(ctx context.Context, tx bun.IDB) error {
		switch ref.ItemType {
		case models.ItemTypeEnergy:
			_, err := r.ledger.CreditTx(ctx, tx, ref.UserID, ref.ItemValue)
			return err
		case models.ItemTypeEnergyFull:
			return r.ledger.RestoreFullTx(ctx, tx, ref.UserID)
		default:
			// Unknown items are still marked processed so the processor
			// stops retrying; fulfillment happens out of band.
			logger.LogPayment("Payment for unfulfillable item",
				"payment_id", paymentID,
				"item_type", string(ref.ItemType))
			return nil
		}
	})
	if err != nil {
		return false, err
	}

	if applied {
		logger.LogPayment("Payment fulfilled",
			"payment_id", paymentID,
			"user_id", ref.UserID.String(),
			"item_type", string(ref.ItemType))
	} else {
		logger.LogPayment("Duplicate payment notification absorbed",
			"payment_id", paymentID)
	}
	return applied, nil
}
