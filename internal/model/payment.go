package model

import "time"

// PaymentQuote describes the transfer that unlocks a result
type PaymentQuote struct {
	Receiver  string `json:"receiver"`
	AmountETH string `json:"amountEth"`
	AmountWei string `json:"amountWei"`
	ChainID   int64  `json:"chainId"`
}

// PaymentReceipt records a transaction accepted by the payment gate
type PaymentReceipt struct {
	TxHash      string    `json:"txHash" bson:"_id"`
	SessionID   string    `json:"sessionId" bson:"sessionId"`
	From        string    `json:"from" bson:"from"`
	To          string    `json:"to" bson:"to"`
	ValueWei    string    `json:"valueWei" bson:"valueWei"`
	ChainID     int64     `json:"chainId" bson:"chainId"`
	BlockNumber uint64    `json:"blockNumber" bson:"blockNumber"`
	ConfirmedAt time.Time `json:"confirmedAt" bson:"confirmedAt"`
}
