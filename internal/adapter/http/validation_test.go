package http

import (
	"strings"
	"testing"
)

func TestEthAddrValidation(t *testing.T) {
	type P struct {
		Investor string `validate:"ethaddr"`
	}
	cv := NewValidator()

	ok := P{Investor: "0x" + strings.Repeat("aB3f", 10)}
	if err := cv.Validate(ok); err != nil {
		t.Fatalf("expected valid address, got err: %v", err)
	}

	for _, s := range []string{
		"",                                // empty
		strings.Repeat("a", 42),           // no 0x prefix
		"0x" + strings.Repeat("a", 39),    // too short
		"0x" + strings.Repeat("a", 41),    // too long
		"0x" + strings.Repeat("g", 40),    // non-hex
		"0X" + strings.Repeat("a", 40),    // uppercase prefix
	} {
		err := cv.Validate(P{Investor: s})
		if err == nil {
			t.Fatalf("expected error for %q", s)
		}
		fe := ToFieldErrors(err)
		found := false
		for _, e := range fe {
			if e.Field == "Investor" && strings.Contains(e.Message, "hex address") {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected ethaddr message for %q, got: %+v", s, fe)
		}
	}
}

func TestWeiValidation(t *testing.T) {
	type P struct {
		Amount string `validate:"wei"`
	}
	cv := NewValidator()

	for _, s := range []string{"0", "1", "1000000000000000000000"} {
		if err := cv.Validate(P{Amount: s}); err != nil {
			t.Errorf("expected %q valid: %v", s, err)
		}
	}
	for _, s := range []string{"", "-1", "1.5", "0x10", "1e18", " 1"} {
		if err := cv.Validate(P{Amount: s}); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

func TestTxHashValidation(t *testing.T) {
	type P struct {
		Ref string `validate:"txhash"`
	}
	cv := NewValidator()

	if err := cv.Validate(P{Ref: "0x" + strings.Repeat("0f", 32)}); err != nil {
		t.Fatalf("expected valid hash: %v", err)
	}
	for _, s := range []string{"", "0x123", strings.Repeat("0f", 33)} {
		if err := cv.Validate(P{Ref: s}); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}
