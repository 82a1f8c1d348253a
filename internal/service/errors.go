package service

import "errors"

var (
	ErrSessionNotFound = errors.New("quiz session not found")
	ErrPaymentRequired = errors.New("payment required to view result")
	ErrPaymentReused   = errors.New("transaction already unlocked another session")
	ErrInvalidBoard    = errors.New("unknown leaderboard")
)
