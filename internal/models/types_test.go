package models

import (
	"encoding/json"
	"testing"
)

func TestPaymentTypeID_MixedList(t *testing.T) {
	var ad Ad
	body := `{"ad_id":"1","side":"SELL","payment_type_ids":[14,"416"," 377 ",null]}`
	if err := json.Unmarshal([]byte(body), &ad); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	want := []PaymentTypeID{"14", "416", "377", ""}
	if len(ad.PaymentTypeIDs) != len(want) {
		t.Fatalf("got %d ids, want %d", len(ad.PaymentTypeIDs), len(want))
	}
	for i, id := range want {
		if ad.PaymentTypeIDs[i] != id {
			t.Errorf("id[%d] = %q, want %q", i, ad.PaymentTypeIDs[i], id)
		}
	}
	if !ad.PaymentTypeIDs[1].Is(416) {
		t.Error("expected string \"416\" to match 416")
	}
}

func TestPaymentTypeID_RejectsObjects(t *testing.T) {
	var id PaymentTypeID
	if err := json.Unmarshal([]byte(`{"id":416}`), &id); err == nil {
		t.Fatal("expected error for object payment type id")
	}
}

func TestPaymentTypeID_Marshal(t *testing.T) {
	out, err := json.Marshal([]PaymentTypeID{"416", "abc"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != `[416,"abc"]` {
		t.Errorf("Marshal() = %s, want [416,\"abc\"]", out)
	}
}

func TestViewMode_Valid(t *testing.T) {
	if !ViewStandard.Valid() || !ViewFiatBalance.Valid() {
		t.Error("expected known view modes to be valid")
	}
	if ViewMode("orders").Valid() {
		t.Error("expected unknown view mode to be invalid")
	}
}

func TestAccount_Label(t *testing.T) {
	if got := (Account{CredentialID: "c1"}).Label(); got != "c1" {
		t.Errorf("Label() = %q, want credential id fallback", got)
	}
	if got := (Account{CredentialID: "c1", AccountLabel: "Main"}).Label(); got != "Main" {
		t.Errorf("Label() = %q, want %q", got, "Main")
	}
}
