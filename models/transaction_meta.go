package models

import (
	"encoding/json"
	"fmt"
)

// TransactionMeta is the typed metadata payload attached to a transaction.
// Each trigger family has its own variant; payloads are stored as a tagged
// JSON envelope so rows remain decodable after schema evolution.
type TransactionMeta interface {
	MetaKind() string
}

// LikeMeta describes a forum like reward
type LikeMeta struct {
	PostID  int64 `json:"post_id"`
	LikerID int64 `json:"liker_id"`
}

func (LikeMeta) MetaKind() string { return "forum_like" }

// PurchaseMeta describes a marketplace purchase
type PurchaseMeta struct {
	ItemID   int64 `json:"item_id"`
	SellerID int64 `json:"seller_id"`
	Price    int64 `json:"price"`
}

func (PurchaseMeta) MetaKind() string { return "market_purchase" }

// ReferralMeta describes a referral bonus
type ReferralMeta struct {
	ReferrerID int64 `json:"referrer_id"`
	ReferredID int64 `json:"referred_id"`
}

func (ReferralMeta) MetaKind() string { return "referral" }

// WithdrawalMeta describes a withdrawal deduction or refund
type WithdrawalMeta struct {
	WithdrawalID  int64  `json:"withdrawal_id"`
	Method        string `json:"method"`
	WalletAddress string `json:"wallet_address"`
	ProcessingFee int64  `json:"processing_fee"`
}

func (WithdrawalMeta) MetaKind() string { return "withdrawal" }

// BotPurchaseMeta describes a treasury-funded automated purchase
type BotPurchaseMeta struct {
	BotID       int64  `json:"bot_id"`
	ItemID      int64  `json:"item_id"`
	SpendReason string `json:"spend_reason"`
}

func (BotPurchaseMeta) MetaKind() string { return "bot_purchase" }

// AdjustmentMeta describes a manual system adjustment
type AdjustmentMeta struct {
	AdminID int64  `json:"admin_id"`
	Reason  string `json:"reason"`
}

func (AdjustmentMeta) MetaKind() string { return "adjustment" }

// UnknownMeta preserves payloads whose kind this build does not know
type UnknownMeta struct {
	Kind string
	Raw  json.RawMessage
}

func (m UnknownMeta) MetaKind() string { return m.Kind }

type metaEnvelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// MarshalMeta serializes metadata into its tagged envelope form.
// A nil meta marshals to null.
func MarshalMeta(meta TransactionMeta) ([]byte, error) {
	if meta == nil {
		return []byte("null"), nil
	}
	var data []byte
	var err error
	if u, ok := meta.(UnknownMeta); ok {
		data = u.Raw
	} else {
		data, err = json.Marshal(meta)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s metadata: %w", meta.MetaKind(), err)
		}
	}
	return json.Marshal(metaEnvelope{Kind: meta.MetaKind(), Data: data})
}

// UnmarshalMeta decodes a tagged envelope back into its typed variant
func UnmarshalMeta(raw []byte) (TransactionMeta, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var env metaEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata envelope: %w", err)
	}

	var meta TransactionMeta
	switch env.Kind {
	case "forum_like":
		meta = &LikeMeta{}
	case "market_purchase":
		meta = &PurchaseMeta{}
	case "referral":
		meta = &ReferralMeta{}
	case "withdrawal":
		meta = &WithdrawalMeta{}
	case "bot_purchase":
		meta = &BotPurchaseMeta{}
	case "adjustment":
		meta = &AdjustmentMeta{}
	default:
		return UnknownMeta{Kind: env.Kind, Raw: env.Data}, nil
	}
	if err := json.Unmarshal(env.Data, meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s metadata: %w", env.Kind, err)
	}

	switch v := meta.(type) {
	case *LikeMeta:
		return *v, nil
	case *PurchaseMeta:
		return *v, nil
	case *ReferralMeta:
		return *v, nil
	case *WithdrawalMeta:
		return *v, nil
	case *BotPurchaseMeta:
		return *v, nil
	case *AdjustmentMeta:
		return *v, nil
	}
	return meta, nil
}
