package domain

import (
	"encoding/json"
	"time"
)

type ScoreStatus string

const (
	ScoreStatusProcessing ScoreStatus = "PROCESSING"
	ScoreStatusDone       ScoreStatus = "DONE"
	ScoreStatusError      ScoreStatus = "ERROR"
)

// Score is the single live scoring outcome of a passport.
type Score struct {
	PassportID         uint            `json:"passportID"`
	Score              *float64        `json:"score"`
	Status             ScoreStatus     `json:"status"`
	LastScoreTimestamp *time.Time      `json:"lastScoreTimestamp"`
	Evidence           json.RawMessage `json:"evidence"`
	Error              *string         `json:"error"`
}

func DoneScore(passportID uint, value float64, at time.Time, evidence json.RawMessage) Score {
	return Score{
		PassportID:         passportID,
		Score:              &value,
		Status:             ScoreStatusDone,
		LastScoreTimestamp: &at,
		Evidence:           evidence,
	}
}

func ErrorScore(passportID uint, message string) Score {
	return Score{
		PassportID: passportID,
		Status:     ScoreStatusError,
		Error:      &message,
	}
}

func ProcessingScore(passportID uint) Score {
	return Score{
		PassportID: passportID,
		Status:     ScoreStatusProcessing,
	}
}

// Evidence is supporting data returned alongside a numeric score.
type Evidence struct {
	Type      string  `json:"type"`
	Success   bool    `json:"success"`
	RawScore  float64 `json:"rawScore"`
	Threshold float64 `json:"threshold"`
}

// ScoreResult is what a Scorer computes for one passport.
type ScoreResult struct {
	PassportID uint
	Score      float64
	Evidence   []Evidence
}

// ScoreEvent announces that a scoring attempt finished.
type ScoreEvent struct {
	CommunityID uint        `json:"communityID"`
	Address     string      `json:"address"`
	Status      ScoreStatus `json:"status"`
	At          time.Time   `json:"at"`
}
