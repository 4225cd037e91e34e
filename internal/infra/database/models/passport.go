package models

import (
	"time"

	"gorm.io/datatypes"
)

type Community struct {
	ID        uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string         `json:"name" gorm:"type:text;not null"`
	Rule      string         `json:"rule" gorm:"type:text;not null;default:'LIFO'"`
	Weights   datatypes.JSON `json:"weights" gorm:"type:jsonb"`
	Threshold *float64       `json:"threshold"`
	CreatedAt time.Time      `json:"createdAt" gorm:"autoCreateTime"`
}

type Passport struct {
	ID                  uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CommunityID         uint      `json:"communityID" gorm:"not null;uniqueIndex:uniq_passport_community_address,priority:1"`
	Community           Community `json:"-" gorm:"foreignKey:CommunityID;references:ID;constraint:OnDelete:CASCADE;"`
	Address             string    `json:"address" gorm:"type:text;not null;uniqueIndex:uniq_passport_community_address,priority:2"`
	RequiresCalculation *bool     `json:"requiresCalculation" gorm:"default:null"`
	CreatedAt           time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

type Stamp struct {
	ID         uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	Hash       string         `json:"hash" gorm:"type:text;not null;uniqueIndex:uniq_stamp_hash_passport,priority:1"`
	PassportID uint           `json:"passportID" gorm:"not null;index;uniqueIndex:uniq_stamp_hash_passport,priority:2"`
	Passport   Passport       `json:"-" gorm:"foreignKey:PassportID;references:ID;constraint:OnDelete:CASCADE;"`
	Provider   string         `json:"provider" gorm:"type:text;not null"`
	Credential datatypes.JSON `json:"credential" gorm:"type:jsonb;not null"`
	ExpiresAt  time.Time      `json:"expiresAt" gorm:"not null"`
	CreatedAt  time.Time      `json:"createdAt" gorm:"autoCreateTime"`
}

type Score struct {
	ID                 uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	PassportID         uint           `json:"passportID" gorm:"not null;uniqueIndex:uniq_score_passport"`
	Passport           Passport       `json:"-" gorm:"foreignKey:PassportID;references:ID;constraint:OnDelete:CASCADE;"`
	Score              *float64       `json:"score"`
	Status             string         `json:"status" gorm:"type:text;not null"`
	LastScoreTimestamp *time.Time     `json:"lastScoreTimestamp"`
	Evidence           datatypes.JSON `json:"evidence" gorm:"type:jsonb"`
	Error              *string        `json:"error" gorm:"type:text"`
}
