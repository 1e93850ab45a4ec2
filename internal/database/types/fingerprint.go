package types

import (
	"time"
)

// ImageFingerprint is a perceptual fingerprint of a posted image.
// PHash is the dedup key; two images are the same when their perceptual hashes match.
type ImageFingerprint struct {
	ID                 int64     `bun:",pk,autoincrement"`
	DHash              string    `bun:",notnull"`        // Difference hash, hex
	PHash              string    `bun:",notnull,unique"` // Perceptual hash, hex
	AHash              string    `bun:",notnull"`        // Average hash, hex
	Filename           string    `bun:",notnull,default:''"`
	OriginalURL        string    `bun:",type:text,notnull,default:''"`
	FirstSeenUserID    uint64    `bun:",notnull,default:0"`
	FirstSeenChannelID uint64    `bun:",notnull,default:0"`
	FirstSeenMessageID uint64    `bun:",notnull,default:0"`
	TimesPosted        int       `bun:",notnull,default:1"`
	IsSpam             bool      `bun:",notnull,default:false"`
	SpamCategory       string    `bun:",notnull,default:''"`
	ReportCount        int       `bun:",notnull,default:0"`
	CreatedAt          time.Time `bun:",notnull"`
	UpdatedAt          time.Time `bun:",notnull"`
}

// ImageReport is a single community report against a fingerprint.
type ImageReport struct {
	FingerprintID int64     `bun:",pk"`
	ReporterID    uint64    `bun:",pk"`
	Reason        string    `bun:",type:text,notnull,default:''"`
	CreatedAt     time.Time `bun:",notnull"`
}
