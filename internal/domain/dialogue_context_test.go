package domain

import "testing"

func TestButtonEditContextRoundTrip(t *testing.T) {
	original := &ButtonEditContext{
		ContestID:   "c1",
		ButtonIndex: 2,
		Attribute:   ButtonAttributeAction,
	}

	restored := &ButtonEditContext{}
	if err := restored.FromMap(original.ToMap()); err != nil {
		t.Fatalf("FromMap failed: %v", err)
	}
	if *restored != *original {
		t.Errorf("round trip changed context: %+v != %+v", restored, original)
	}
}

// Stored numeric values may come back as float64 after a serialization
// boundary; the context must tolerate that
func TestButtonEditContextNumericCoercion(t *testing.T) {
	data := map[string]interface{}{
		"contest_id":   "c1",
		"button_index": float64(3),
		"attribute":    "label",
	}

	restored := &ButtonEditContext{}
	if err := restored.FromMap(data); err != nil {
		t.Fatalf("FromMap failed: %v", err)
	}
	if restored.ButtonIndex != 3 || restored.Attribute != ButtonAttributeLabel {
		t.Errorf("unexpected context: %+v", restored)
	}
}

func TestButtonEditContextRejectsCorruptData(t *testing.T) {
	cases := []map[string]interface{}{
		nil,
		{},
		{"contest_id": "c1"},                           // missing attribute
		{"contest_id": "c1", "attribute": "color"},     // unknown attribute
		{"attribute": "label", "button_index": 1},      // missing contest
	}
	for i, data := range cases {
		if err := (&ButtonEditContext{}).FromMap(data); err != ErrInvalidContextData {
			t.Errorf("case %d: expected ErrInvalidContextData, got %v", i, err)
		}
	}
}

func TestCreationContextRoundTrip(t *testing.T) {
	original := &CreationContext{ContestID: "c1", PendingFieldName: "email"}

	restored := &CreationContext{}
	if err := restored.FromMap(original.ToMap()); err != nil {
		t.Fatalf("FromMap failed: %v", err)
	}
	if *restored != *original {
		t.Errorf("round trip changed context: %+v != %+v", restored, original)
	}

	if err := (&CreationContext{}).FromMap(map[string]interface{}{}); err != ErrInvalidContextData {
		t.Errorf("expected ErrInvalidContextData for empty data, got %v", err)
	}
}

func TestContestInputContextRoundTrip(t *testing.T) {
	original := &ContestInputContext{ContestID: "c1"}

	restored := &ContestInputContext{}
	if err := restored.FromMap(original.ToMap()); err != nil {
		t.Fatalf("FromMap failed: %v", err)
	}
	if restored.ContestID != "c1" {
		t.Errorf("unexpected context: %+v", restored)
	}

	if err := (&ContestInputContext{}).FromMap(nil); err != ErrInvalidContextData {
		t.Errorf("expected ErrInvalidContextData for nil data, got %v", err)
	}
}
