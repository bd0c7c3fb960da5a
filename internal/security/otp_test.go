package security_test

import (
	"strconv"
	"testing"

	"github.com/aibekov/fitplanner/internal/security"
)

func TestNewOTP(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code, err := security.NewOTP()
		if err != nil {
			t.Fatal(err)
		}
		if len(code) != 6 {
			t.Fatalf("len=%d code=%q", len(code), code)
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("non-numeric code %q", code)
		}
		if n < 100000 || n > 999999 {
			t.Fatalf("code out of range: %d", n)
		}
	}
}
