package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"hourly-auction-service/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentSyncClient polls the payment gateway for settled orders and
// mirrors them into the local payment_records table. The signed webhook
// usually gets there first; this poller closes the gap when a callback is
// lost.
type PaymentSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewPaymentSyncClient(db *gorm.DB) *PaymentSyncClient {
	baseURL := os.Getenv("PAYMENT_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("PAYMENT_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("AUCTION_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("AUCTION_SERVICE_TOKEN environment variable is required for payment sync")
	}

	return &PaymentSyncClient{
		BaseURL: baseURL,
		Token:   token,
		DB:      db,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetSettledPayments fetches orders settled since the given instant.
func (c *PaymentSyncClient) GetSettledPayments(ctx context.Context, since time.Time) ([]models.PaymentRecord, error) {
	since = since.UTC()

	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/payments", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.Format(time.RFC3339))
	q.Set("status", models.PaymentStatusPaid)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call payment service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("payment service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Payments []models.PaymentRecord `json:"payments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode payment service response: %w", err)
	}
	return response.Payments, nil
}

// PollPayments runs the mirror loop until the context is cancelled.
func PollPayments(ctx context.Context, client *PaymentSyncClient, pollInterval time.Duration) {
	log.Println("Starting payment polling...")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Payment polling stopped.")
			return
		case <-ticker.C:
			tickTime := time.Now().UTC()

			payments, err := client.GetSettledPayments(ctx, lastSyncTime)
			if err != nil {
				log.Printf("[PAYMENT_SYNC] poll failed: %v", err)
				continue
			}
			if len(payments) == 0 {
				continue
			}

			for i := range payments {
				if payments[i].ID == "" {
					payments[i].ID = uuid.NewString()
				}
			}

			if err := client.DB.Clauses(
				clause.OnConflict{
					Columns: []clause.Column{{Name: "order_id"}},
					DoUpdates: clause.AssignmentColumns([]string{
						"status",
						"payment_ref",
						"amount",
						"paid_at",
						"updated_at",
					}),
				},
			).Create(&payments).Error; err != nil {
				log.Printf("[PAYMENT_SYNC] failed to upsert %d payment(s): %v", len(payments), err)
				// Keep lastSyncTime so the same window is retried next tick.
				continue
			}

			lastSyncTime = tickTime
			log.Printf("[PAYMENT_SYNC] mirrored %d settled payment(s)", len(payments))
		}
	}
}
