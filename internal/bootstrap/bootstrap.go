package bootstrap

import (
	"log"

	"glowshot.app/glowshotcore/internal/model"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Photo{},
		&model.Vote{},
		&model.PhotoView{},
		&model.DailyAuthorVote{},
		&model.ResultRank{},
		&model.DailyResultsCache{},
		&model.UserStats{},
		&model.PendingReferral{},
		&model.ReferralReward{},
		&model.Notification{},
		&model.Payment{},
	)
}

// SeedAdminUser creates a development admin account. The production
// path is the admin password on the token endpoint instead.
func SeedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.User{}).
		Where("username = ?", "admin").
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("Admin user already exists, skipping seed")
		return nil
	}

	adminUser := model.User{
		Username: "admin",
		IsAdmin:  true,
	}
	if err := db.Create(&adminUser).Error; err != nil {
		return err
	}

	log.Println("✅ Admin user seeded successfully")
	return nil
}
