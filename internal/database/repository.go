package database

import (
	"github.com/robalyx/sentinel/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	user        *models.UserModel
	event       *models.EventModel
	activity    *models.ActivityModel
	fingerprint *models.FingerprintModel
	warning     *models.WarningModel
	cases       *models.CaseModel
	score       *models.ScoreModel
	achievement *models.AchievementModel
	setting     *models.SettingModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		user:        models.NewUser(db, logger),
		event:       models.NewEvent(db, logger),
		activity:    models.NewActivity(db, logger),
		fingerprint: models.NewFingerprint(db, logger),
		warning:     models.NewWarning(db, logger),
		cases:       models.NewCase(db, logger),
		score:       models.NewScore(db, logger),
		achievement: models.NewAchievement(db, logger),
		setting:     models.NewSetting(db, logger),
	}
}

// User returns the user model repository.
func (r *Repository) User() *models.UserModel {
	return r.user
}

// Event returns the message event model repository.
func (r *Repository) Event() *models.EventModel {
	return r.event
}

// Activity returns the channel activity model repository.
func (r *Repository) Activity() *models.ActivityModel {
	return r.activity
}

// Fingerprint returns the image fingerprint model repository.
func (r *Repository) Fingerprint() *models.FingerprintModel {
	return r.fingerprint
}

// Warning returns the warning model repository.
func (r *Repository) Warning() *models.WarningModel {
	return r.warning
}

// Case returns the case model repository.
func (r *Repository) Case() *models.CaseModel {
	return r.cases
}

// Score returns the trust and reputation score model repository.
func (r *Repository) Score() *models.ScoreModel {
	return r.score
}

// Achievement returns the achievement model repository.
func (r *Repository) Achievement() *models.AchievementModel {
	return r.achievement
}

// Setting returns the setting model repository.
func (r *Repository) Setting() *models.SettingModel {
	return r.setting
}
