package geo

import "testing"

func TestHaversineKm(t *testing.T) {
	// Bucharest (44.4268, 26.1025) to Brasov (45.6580, 25.6012) ~ 140-145 km
	d := HaversineKm(44.4268, 26.1025, 45.6580, 25.6012)
	if d < 120 || d > 165 {
		t.Fatalf("unexpected distance: %v", d)
	}
}

func TestHaversineKmZero(t *testing.T) {
	if d := HaversineKm(44.4, 26.1, 44.4, 26.1); d != 0 {
		t.Fatalf("expected zero distance, got %v", d)
	}
}
