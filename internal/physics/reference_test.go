package physics

import (
	"math"
	"testing"
)

func TestNewReferenceFromKinetic(t *testing.T) {
	ref, err := NewReferenceFromKinetic(Proton, 15.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantP := math.Sqrt(math.Pow(15.0+ProtonMass, 2) - ProtonMass*ProtonMass)
	if math.Abs(ref.Momentum-wantP) > 1e-9 {
		t.Errorf("momentum = %f, want %f", ref.Momentum, wantP)
	}

	// 15 MeV protons: Brho ~ 0.5619 T m
	if math.Abs(ref.Rigidity()-0.5619) > 1e-3 {
		t.Errorf("rigidity = %f, want ~0.5619", ref.Rigidity())
	}

	if ref.Beta() <= 0 || ref.Beta() >= 1 {
		t.Errorf("beta out of range: %f", ref.Beta())
	}
	if ref.Gamma() < 1 {
		t.Errorf("gamma below 1: %f", ref.Gamma())
	}
}

func TestReferenceRoundTrip(t *testing.T) {
	a, err := NewReferenceFromKinetic(Electron, 100.0)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewReferenceFromMomentum(Electron, a.Momentum)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(a.KineticEnergy-b.KineticEnergy) > 1e-9 {
		t.Errorf("kinetic mismatch: %f vs %f", a.KineticEnergy, b.KineticEnergy)
	}
}

func TestReferenceInvalid(t *testing.T) {
	tests := []struct {
		name string
		fn   func() (*Reference, error)
	}{
		{"zero kinetic", func() (*Reference, error) { return NewReferenceFromKinetic(Proton, 0) }},
		{"negative momentum", func() (*Reference, error) { return NewReferenceFromMomentum(Proton, -1) }},
		{"NaN kinetic", func() (*Reference, error) { return NewReferenceFromKinetic(Proton, math.NaN()) }},
		{"neutral", func() (*Reference, error) { return NewReferenceFromKinetic(Species{Name: "n", Mass: 939.6}, 10) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.fn(); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestUndefinedReference(t *testing.T) {
	var ref *Reference
	if ref.Rigidity() != 0 {
		t.Error("nil reference should have zero rigidity")
	}
	if (&Reference{}).Defined() {
		t.Error("zero reference should be undefined")
	}
}

func TestLookupSpecies(t *testing.T) {
	s, err := LookupSpecies(" Proton ")
	if err != nil || s != Proton {
		t.Errorf("LookupSpecies(proton) = %v, %v", s, err)
	}
	if _, err := LookupSpecies("quark"); err == nil {
		t.Error("expected error for unknown species")
	}
}
