package types

import "errors"

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrCaseNotFound        = errors.New("case not found")
	ErrFingerprintNotFound = errors.New("image fingerprint not found")
	ErrScoreNotFound       = errors.New("score not found")
	ErrSettingNotFound     = errors.New("setting not found")
)
