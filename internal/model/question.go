package model

import (
	"fmt"
	"strings"
)

// Category is the topic tag attached to every catalog question
type Category string

const (
	CategoryBlockchainBasics Category = "Blockchain Basics"
	CategoryEthereum         Category = "Ethereum"
	CategoryBase             Category = "Base"
	CategoryEVM              Category = "EVM"
	CategoryLayer2           Category = "Layer 2"
	CategoryDeFi             Category = "DeFi"
	CategoryCryptography     Category = "Cryptography"
	CategorySmartContracts   Category = "Smart Contracts"
	CategoryWallets          Category = "Wallets"
	CategoryTokens           Category = "Tokens & NFTs"
)

// Categories lists every valid category in display order
var Categories = []Category{
	CategoryBlockchainBasics,
	CategoryEthereum,
	CategoryBase,
	CategoryEVM,
	CategoryLayer2,
	CategoryDeFi,
	CategoryCryptography,
	CategorySmartContracts,
	CategoryWallets,
	CategoryTokens,
}

// IsValid reports whether c is one of the known categories
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// OptionLetter identifies an answer option positionally: A is options[0]
type OptionLetter string

const (
	OptionA OptionLetter = "A"
	OptionB OptionLetter = "B"
	OptionC OptionLetter = "C"
	OptionD OptionLetter = "D"
)

// OptionsPerQuestion is the fixed number of answer options
const OptionsPerQuestion = 4

var optionLetters = []OptionLetter{OptionA, OptionB, OptionC, OptionD}

// ParseOptionLetter normalizes user input ("b", " B ") into an OptionLetter
func ParseOptionLetter(s string) (OptionLetter, bool) {
	l := OptionLetter(strings.ToUpper(strings.TrimSpace(s)))
	return l, l.IsValid()
}

// IsValid reports whether l is one of A-D
func (l OptionLetter) IsValid() bool {
	return l.Index() >= 0
}

// Index returns the option position for l, or -1 when l is not a valid letter
func (l OptionLetter) Index() int {
	for i, known := range optionLetters {
		if l == known {
			return i
		}
	}
	return -1
}

// Question is an immutable catalog entry
type Question struct {
	ID            int          `json:"id" bson:"_id" yaml:"id"`
	Category      Category     `json:"category" bson:"category" yaml:"category"`
	Prompt        string       `json:"prompt" bson:"prompt" yaml:"prompt"`
	Options       []string     `json:"options" bson:"options" yaml:"options"`
	CorrectOption OptionLetter `json:"correctOption,omitempty" bson:"correctOption" yaml:"correct"`
	Explanation   string       `json:"explanation,omitempty" bson:"explanation" yaml:"explanation"`
}

// Validate checks the structural invariants of a question
func (q *Question) Validate() error {
	if q.ID <= 0 {
		return fmt.Errorf("question id must be positive, got %d", q.ID)
	}
	if !q.Category.IsValid() {
		return fmt.Errorf("question %d: unknown category %q", q.ID, q.Category)
	}
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("question %d: empty prompt", q.ID)
	}
	if len(q.Options) != OptionsPerQuestion {
		return fmt.Errorf("question %d: expected %d options, got %d", q.ID, OptionsPerQuestion, len(q.Options))
	}
	if !q.CorrectOption.IsValid() {
		return fmt.Errorf("question %d: invalid correct option %q", q.ID, q.CorrectOption)
	}
	return nil
}

// Public returns a copy safe to show while the quiz is running
func (q Question) Public() Question {
	q.CorrectOption = ""
	q.Explanation = ""
	opts := make([]string, len(q.Options))
	copy(opts, q.Options)
	q.Options = opts
	return q
}
