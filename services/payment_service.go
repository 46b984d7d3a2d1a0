package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"time"

	"hourly-auction-service/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentService receives signed gateway callbacks and maintains the local
// payment mirror. The auction core only ever reads the mirror; it never
// calls the gateway.
type PaymentService struct {
	DB            *gorm.DB
	WebhookSecret string
}

func NewPaymentService(db *gorm.DB) *PaymentService {
	secret := os.Getenv("PAYMENT_WEBHOOK_SECRET")
	if secret == "" {
		log.Fatal("PAYMENT_WEBHOOK_SECRET environment variable is required")
	}
	return &PaymentService{DB: db, WebhookSecret: secret}
}

// VerifySignature checks the hex HMAC-SHA256 of the raw callback body.
func (s *PaymentService) VerifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(s.WebhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

type paymentCallback struct {
	OrderID    string  `json:"order_id"`
	UserID     string  `json:"user_id"`
	AuctionID  string  `json:"hourly_auction_id"`
	Purpose    string  `json:"purpose"`
	Amount     float64 `json:"amount"`
	Status     string  `json:"status"`
	PaymentRef string  `json:"payment_ref"`
	PaidAt     *string `json:"paid_at"`
}

// CallbackHandler upserts the mirrored order from a signed gateway webhook.
func (s *PaymentService) CallbackHandler(c *fiber.Ctx) error {
	body := c.Body()
	signature := c.Get("X-Payment-Signature")
	if signature == "" || !s.VerifySignature(body, signature) {
		log.Printf("[PAYMENT] rejected callback with bad signature from %s", c.IP())
		return c.Status(401).JSON(fiber.Map{"error": "invalid signature"})
	}

	var cb paymentCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid callback body"})
	}
	if cb.OrderID == "" || cb.UserID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "order_id and user_id are required"})
	}

	record := models.PaymentRecord{
		ID:         uuid.NewString(),
		OrderID:    cb.OrderID,
		UserID:     cb.UserID,
		AuctionID:  cb.AuctionID,
		Purpose:    cb.Purpose,
		Amount:     cb.Amount,
		Status:     cb.Status,
		PaymentRef: cb.PaymentRef,
	}
	if record.Purpose == "" {
		record.Purpose = models.PaymentPurposeEntryFee
	}
	if cb.PaidAt != nil {
		if t, err := time.Parse(time.RFC3339, *cb.PaidAt); err == nil {
			record.PaidAt = &t
		}
	}

	err := s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "payment_ref", "amount", "paid_at", "updated_at",
		}),
	}).Create(&record).Error
	if err != nil {
		log.Printf("[PAYMENT] upsert for order %s failed: %v", cb.OrderID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to record payment"})
	}

	log.Printf("[PAYMENT] order %s -> %s (%s)", cb.OrderID, cb.Status, cb.Purpose)
	return c.JSON(fiber.Map{"message": "payment recorded"})
}
