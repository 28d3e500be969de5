package audit

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func sampleEntry() *Entry {
	shortID := "AB23CD"
	return &Entry{
		EntryID:     uuid.New(),
		Kind:        KindStake,
		ShortID:     &shortID,
		FromAccount: "alice",
		ToAccount:   "escrow",
		Amount:      decimal.RequireFromString("12.50"),
		Outcome:     OutcomeOK,
		Actor:       "alice",
		CreatedAt:   time.Now().UTC(),
	}
}

func TestSignAndVerifyEntry(t *testing.T) {
	key := []byte("test-signing-key")
	e := sampleEntry()

	sig, err := SignEntry(e, key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	e.Signature = sig

	ok, err := VerifyEntrySignature(e, key)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("expected signature to verify")
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	key := []byte("test-signing-key")
	e := sampleEntry()
	sig, err := SignEntry(e, key)
	if err != nil {
		t.Fatal(err)
	}
	e.Signature = sig

	e.Amount = decimal.RequireFromString("999.99")
	ok, err := VerifyEntrySignature(e, key)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("tampered entry must not verify")
	}
}

func TestVerifyWrongKey(t *testing.T) {
	e := sampleEntry()
	sig, err := SignEntry(e, []byte("key-a"))
	if err != nil {
		t.Fatal(err)
	}
	e.Signature = sig

	ok, err := VerifyEntrySignature(e, []byte("key-b"))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("signature must not verify under a different key")
	}
}

func TestVerifyUnsignedEntry(t *testing.T) {
	ok, err := VerifyEntrySignature(sampleEntry(), []byte("key"))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("unsigned entry must not verify")
	}
}
