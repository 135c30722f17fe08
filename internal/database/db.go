package database

import (
	"os"
	"time"

	"nrm-schedules/internal/config"
	"nrm-schedules/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Init(dsn string) {
	log := config.GetLogger()
	var err error

	const maxAttempts = 10
	for i := 1; i <= maxAttempts; i++ {
		log.WithFields(logrus.Fields{"attempt": i, "max": maxAttempts}).Info("connecting to database")

		DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err == nil {
			log.Info("connected to database")
			break
		}

		log.WithError(err).Warn("failed to connect to database")
		time.Sleep(2 * time.Second)
	}

	if err != nil {
		log.WithError(err).Fatalf("failed to connect to database after %d attempts", maxAttempts)
	}

	if err := Migrate(DB); err != nil {
		log.WithError(err).Fatal("failed to migrate")
	}

	createDefaultAdmin()
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Schedule{},
		&models.ScheduleView{},
		&models.Pack{},
		&models.Drawing{},
		&models.IFCModel{},
		&models.AuditLog{},
	)
}

// the admin account only ever comes from env or these defaults
func createDefaultAdmin() {
	log := config.GetLogger()

	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin@nrm.local"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "Admin123!"
	}

	var count int64
	if err := DB.Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Count(&count).Error; err != nil {
		config.LogError("database", "createDefaultAdmin", "count admins", nil, err)
		return
	}
	if count > 0 {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		config.LogError("database", "createDefaultAdmin", "hash password", nil, err)
		return
	}

	admin := models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}
	if err := DB.Create(&admin).Error; err != nil {
		config.LogError("database", "createDefaultAdmin", "create admin", username, err)
		return
	}

	log.WithField("username", username).Info("created default admin user")
}
