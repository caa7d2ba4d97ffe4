package scan

import (
	"math"
	"testing"
)

func TestVerdictBoundaries(t *testing.T) {
	cases := []struct {
		p       float64
		verdict Verdict
		level   RiskLevel
	}{
		{0.0, VerdictSafe, LowRisk},
		{0.4, VerdictSafe, LowRisk},     // boundary falls to lower severity
		{0.40001, VerdictWarn, MediumRisk},
		{0.5, VerdictWarn, MediumRisk},
		{0.7, VerdictWarn, MediumRisk},  // boundary falls to lower severity
		{0.70001, VerdictBlock, HighRisk},
		{1.0, VerdictBlock, HighRisk},
	}
	for _, tc := range cases {
		v, l := verdictFor(tc.p)
		if v != tc.verdict {
			t.Errorf("p=%v: expected verdict %s, got %s", tc.p, tc.verdict, v)
		}
		if l != tc.level {
			t.Errorf("p=%v: expected level %s, got %s", tc.p, tc.level, l)
		}
	}
}

func TestBandBoundaries(t *testing.T) {
	cases := []struct {
		p    float64
		band RiskBand
	}{
		{0.0, BandLow},
		{0.3, BandLow},
		{0.30001, BandMedium},
		{0.6, BandMedium},
		{0.60001, BandHigh},
		{1.0, BandHigh},
	}
	for _, tc := range cases {
		if got := bandFor(tc.p); got != tc.band {
			t.Errorf("p=%v: expected band %s, got %s", tc.p, tc.band, got)
		}
	}
}

func TestBandAndVerdictDisagree(t *testing.T) {
	// In (0.6, 0.7] the band reads HIGH while the verdict stays WARN.
	d := Derive(0.65)
	if d.Verdict != VerdictWarn {
		t.Fatalf("expected WARN, got %s", d.Verdict)
	}
	if d.RiskBand != BandHigh {
		t.Fatalf("expected HIGH band, got %s", d.RiskBand)
	}
}

func TestUncertainty(t *testing.T) {
	cases := []struct {
		p    float64
		want float64
	}{
		{0.5, 1.0},
		{0.0, 0.0},
		{1.0, 0.0},
		{0.75, 0.5},
	}
	for _, tc := range cases {
		d := Derive(tc.p)
		if math.Abs(d.Uncertainty-tc.want) > 1e-9 {
			t.Errorf("p=%v: expected uncertainty %v, got %v", tc.p, tc.want, d.Uncertainty)
		}
	}
}

func TestConfidenceIntervalTruncation(t *testing.T) {
	// Near the extremes the interval must stay within [0, 1].
	for _, p := range []float64{0.0, 0.01, 0.99, 1.0} {
		d := Derive(p)
		if d.CILow < 0 {
			t.Errorf("p=%v: CI low %v below 0", p, d.CILow)
		}
		if d.CIHigh > 1 {
			t.Errorf("p=%v: CI high %v above 1", p, d.CIHigh)
		}
		if d.CILow > d.CIHigh {
			t.Errorf("p=%v: inverted interval [%v, %v]", p, d.CILow, d.CIHigh)
		}
	}
}

func TestConfidenceIntervalWidth(t *testing.T) {
	// At p=0.5 uncertainty is 1.0, so the width is 0.25.
	d := Derive(0.5)
	width := d.CIHigh - d.CILow
	if math.Abs(width-0.25) > 1e-9 {
		t.Fatalf("expected width 0.25 at p=0.5, got %v", width)
	}

	// At the extremes uncertainty is 0, so the (untruncated) width is 0.1.
	d = Derive(0.5 + 0.05) // still far from edges, uncertainty 0.9
	width = d.CIHigh - d.CILow
	expected := 0.1 + 0.9*0.15
	if math.Abs(width-expected) > 1e-9 {
		t.Fatalf("expected width %v, got %v", expected, width)
	}
}

func TestDeriveDeterministic(t *testing.T) {
	a := Derive(0.4321)
	b := Derive(0.4321)
	if a != b {
		t.Fatalf("same probability produced different decisions: %+v vs %+v", a, b)
	}
}

func TestRounding(t *testing.T) {
	if got := round4(0.123456); got != 0.1235 {
		t.Errorf("round4(0.123456) = %v", got)
	}
	if got := round3(0.123456); got != 0.123 {
		t.Errorf("round3(0.123456) = %v", got)
	}
}
