package database

import (
	"log"

	"newsfeed/models"

	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	err := db.AutoMigrate(
		&models.Issue{},
		&models.PostCategory{},
		&models.Post{},
		&models.Newsletter{},
		&models.Subscriber{},
		&models.Editor{},
	)

	if err != nil {
		log.Printf("Error running migrations: %v", err)
		return err
	}

	log.Println("Migrations completed successfully")
	return nil
}
