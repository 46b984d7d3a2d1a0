package services

import (
	"encoding/json"
	"fmt"

	"hourly-auction-service/models"
	"hourly-auction-service/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MasterService manages the admin-side auction templates. Exactly one
// template is active; the midnight generator reads it.
type MasterService struct {
	DB *gorm.DB
}

func NewMasterService(db *gorm.DB) *MasterService {
	return &MasterService{DB: db}
}

type masterSlotInput struct {
	SlotNumber   int      `json:"slot_number"`
	TimeSlot     string   `json:"time_slot"`
	AuctionName  string   `json:"auction_name"`
	PrizeValue   float64  `json:"prize_value"`
	EntryFeeMode string   `json:"entry_fee_mode"`
	EntryFee     *float64 `json:"entry_fee"`
	MinEntryFee  *float64 `json:"min_entry_fee"`
	MaxEntryFee  *float64 `json:"max_entry_fee"`
	Rounds       []struct {
		RoundNumber  int      `json:"round_number"`
		DurationMins int      `json:"duration_mins"`
		TopBidCount  int      `json:"top_bid_count"`
		MaxBid       *float64 `json:"max_bid"`
	} `json:"rounds"`
}

// CreateMaster builds a template from a multipart form: scalar fields,
// a "slots" JSON array, and optional per-slot prize images uploaded as
// slot_image[<index>].
func (s *MasterService) CreateMaster(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	name := c.FormValue("name")
	slotsJSON := c.FormValue("slots")
	if name == "" || slotsJSON == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name and slots are required"})
	}

	var slotInputs []masterSlotInput
	if err := json.Unmarshal([]byte(slotsJSON), &slotInputs); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "slots must be a JSON array"})
	}
	if len(slotInputs) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "at least one slot is required"})
	}
	for _, in := range slotInputs {
		if _, err := SlotStartTime(utils.NowLocal(), in.TimeSlot); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		if in.AuctionName == "" {
			return c.Status(400).JSON(fiber.Map{"error": "every slot needs an auction_name"})
		}
		switch in.EntryFeeMode {
		case models.EntryFeeModeManual:
			if in.EntryFee == nil {
				return c.Status(400).JSON(fiber.Map{"error": "MANUAL slots need entry_fee"})
			}
		case models.EntryFeeModeRandom:
			if in.MinEntryFee == nil || in.MaxEntryFee == nil {
				return c.Status(400).JSON(fiber.Map{"error": "RANDOM slots need min_entry_fee and max_entry_fee"})
			}
		default:
			return c.Status(400).JSON(fiber.Map{"error": "entry_fee_mode must be MANUAL or RANDOM"})
		}
	}

	// Upload prize images before opening the transaction.
	imageURLs := make(map[int]string, len(slotInputs))
	for i, in := range slotInputs {
		field := fmt.Sprintf("slot_image[%d]", i)
		file, err := c.FormFile(field)
		if err != nil || file.Size == 0 {
			continue
		}
		key := utils.PrizeImageKey(in.AuctionName, file.Filename)
		url, upErr := utils.UploadPrizeImage(file, key)
		if upErr != nil {
			log.Printf("[MASTER] prize image upload for slot %d failed: %v", i, upErr)
			return c.Status(500).JSON(fiber.Map{"error": fmt.Sprintf("failed to upload image for slot %d", i)})
		}
		imageURLs[i] = url
	}

	master := models.MasterAuction{
		ID:                  uuid.NewString(),
		Name:                name,
		CreatedBy:           userID,
		TotalAuctionsPerDay: len(slotInputs),
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		seq, seqErr := nextSequence(tx, "master_auction")
		if seqErr != nil {
			return seqErr
		}
		master.Code = utils.SequenceCode("MA", seq)
		if createErr := tx.Create(&master).Error; createErr != nil {
			return createErr
		}

		for i, in := range slotInputs {
			slotCfg := models.MasterSlotConfig{
				ID:           uuid.NewString(),
				MasterID:     master.ID,
				SlotNumber:   in.SlotNumber,
				TimeSlot:     in.TimeSlot,
				AuctionName:  in.AuctionName,
				Slug:         slug.Make(in.AuctionName),
				PrizeValue:   in.PrizeValue,
				ImageURL:     imageURLs[i],
				EntryFeeMode: in.EntryFeeMode,
				EntryFee:     in.EntryFee,
				MinEntryFee:  in.MinEntryFee,
				MaxEntryFee:  in.MaxEntryFee,
				RoundCount:   len(in.Rounds),
			}
			if slotCfg.SlotNumber == 0 {
				slotCfg.SlotNumber = i + 1
			}
			if len(in.Rounds) == 0 {
				slotCfg.RoundCount = 4
			}
			if createErr := tx.Create(&slotCfg).Error; createErr != nil {
				return createErr
			}

			rounds := in.Rounds
			if len(rounds) == 0 {
				// Default shape: four 15-minute rounds, top 3 qualify.
				for n := 1; n <= 4; n++ {
					rc := models.MasterRoundConfig{
						ID:           uuid.NewString(),
						SlotConfigID: slotCfg.ID,
						RoundNumber:  n,
						DurationMins: 15,
						TopBidCount:  3,
					}
					if createErr := tx.Create(&rc).Error; createErr != nil {
						return createErr
					}
				}
				continue
			}
			for _, r := range rounds {
				rc := models.MasterRoundConfig{
					ID:           uuid.NewString(),
					SlotConfigID: slotCfg.ID,
					RoundNumber:  r.RoundNumber,
					DurationMins: r.DurationMins,
					TopBidCount:  r.TopBidCount,
					MaxBid:       r.MaxBid,
				}
				if rc.DurationMins <= 0 {
					rc.DurationMins = 15
				}
				if rc.TopBidCount <= 0 {
					rc.TopBidCount = 3
				}
				if createErr := tx.Create(&rc).Error; createErr != nil {
					return createErr
				}
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[MASTER] create failed: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to create master auction"})
	}

	log.Printf("[MASTER] created template %s (%s) with %d slot(s)", master.Code, master.Name, len(slotInputs))
	return c.Status(201).JSON(fiber.Map{"message": "master auction created", "master": master})
}

// ActivateMaster makes one template the active one, deactivating the rest
// in the same transaction.
func (s *MasterService) ActivateMaster(c *fiber.Ctx) error {
	id := c.Params("id")

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var master models.MasterAuction
		if err := tx.First(&master, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.MasterAuction{}).
			Where("is_active = ?", true).Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(&master).Update("is_active", true).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(404).JSON(fiber.Map{"error": ErrMasterNotFound.Error()})
		}
		return c.Status(500).JSON(fiber.Map{"error": "failed to activate master auction"})
	}
	return c.JSON(fiber.Map{"message": "master auction activated"})
}

// ListMasters returns all templates with their slot configs.
func (s *MasterService) ListMasters(c *fiber.Ctx) error {
	var masters []models.MasterAuction
	err := s.DB.Preload("Slots", func(db *gorm.DB) *gorm.DB {
		return db.Order("slot_number ASC")
	}).Order("created_at DESC").Find(&masters).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(fiber.Map{"masters": masters})
}

// GetMaster returns one template with its full slot and round configs.
func (s *MasterService) GetMaster(c *fiber.Ctx) error {
	var master models.MasterAuction
	err := s.DB.Preload("Slots", func(db *gorm.DB) *gorm.DB {
		return db.Order("slot_number ASC")
	}).Preload("Slots.Rounds", func(db *gorm.DB) *gorm.DB {
		return db.Order("round_number ASC")
	}).First(&master, "id = ?", c.Params("id")).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(404).JSON(fiber.Map{"error": ErrMasterNotFound.Error()})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(fiber.Map{"master": master})
}
