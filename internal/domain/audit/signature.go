package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"time"
)

type signaturePayload struct {
	EntryID     string `json:"entryId"`
	Kind        string `json:"kind"`
	ShortID     string `json:"shortId,omitempty"`
	FromAccount string `json:"fromAccount"`
	ToAccount   string `json:"toAccount"`
	Amount      string `json:"amount"`
	Outcome     string `json:"outcome"`
	ReceiptID   string `json:"receiptId,omitempty"`
	Error       string `json:"error,omitempty"`
	Actor       string `json:"actor"`
	CreatedAt   string `json:"createdAt"`
}

func buildSignaturePayload(e *Entry) signaturePayload {
	payload := signaturePayload{
		EntryID:     e.EntryID.String(),
		Kind:        string(e.Kind),
		FromAccount: e.FromAccount,
		ToAccount:   e.ToAccount,
		Amount:      e.Amount.String(),
		Outcome:     string(e.Outcome),
		Actor:       e.Actor,
		CreatedAt:   e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if e.ShortID != nil {
		payload.ShortID = *e.ShortID
	}
	if e.ReceiptID != nil {
		payload.ReceiptID = e.ReceiptID.String()
	}
	if e.Error != nil {
		payload.Error = *e.Error
	}
	return payload
}

// SignEntry generates an HMAC signature for the audit entry.
func SignEntry(e *Entry, key []byte) ([]byte, error) {
	data, err := json.Marshal(buildSignaturePayload(e))
	if err != nil {
		return nil, err
	}
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write(data)
	return mac.Sum(nil), nil
}

// VerifyEntrySignature verifies the HMAC signature for the audit entry.
func VerifyEntrySignature(e *Entry, key []byte) (bool, error) {
	if len(e.Signature) == 0 {
		return false, nil
	}
	expected, err := SignEntry(e, key)
	if err != nil {
		return false, err
	}
	return hmac.Equal(expected, e.Signature), nil
}
