package model

import "time"

// QuizResult is the persisted record of an unlocked attempt
type QuizResult struct {
	SessionID  string       `json:"sessionId" bson:"sessionId"`
	PlayerID   string       `json:"playerId" bson:"playerId"`
	Score      ScoreResult  `json:"score" bson:"score"`
	Rating     string       `json:"rating" bson:"rating"`
	Review     []ReviewItem `json:"review" bson:"review"`
	ShareText  string       `json:"shareText" bson:"shareText"`
	TxHash     string       `json:"txHash" bson:"txHash"`
	TimedOut   bool         `json:"timedOut" bson:"timedOut"`
	UnlockedAt time.Time    `json:"unlockedAt" bson:"unlockedAt"`
}

// LeaderboardEntry is one ranked final score
type LeaderboardEntry struct {
	PlayerID string `json:"playerId"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank"`
}
