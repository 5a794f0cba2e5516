package canonical

import "testing"

func TestMarshalSortsKeys(t *testing.T) {
	out, err := Marshal(map[string]interface{}{"b": 1, "a": 2})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `{"a":2,"b":1}`
	if string(out) != want {
		t.Errorf("Marshal() = %s, want %s", out, want)
	}
}

func TestHashDeterministic(t *testing.T) {
	a := map[string]interface{}{
		"product_id": "p1",
		"operation":  "DECREMENT",
		"delta":      5,
	}
	b := map[string]interface{}{
		"delta":      5,
		"operation":  "DECREMENT",
		"product_id": "p1",
	}

	hashA, err := Hash(a)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	hashB, err := Hash(b)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if hashA != hashB {
		t.Errorf("Hash() differs for identical content: %s vs %s", hashA, hashB)
	}

	if len(hashA) != 64 {
		t.Errorf("Hash() length = %d, want 64", len(hashA))
	}
}

func TestHashDetectsChange(t *testing.T) {
	base := map[string]interface{}{"delta": 5}
	changed := map[string]interface{}{"delta": 6}

	hashBase, err := Hash(base)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	hashChanged, err := Hash(changed)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if hashBase == hashChanged {
		t.Error("Hash() identical for different content")
	}
}
