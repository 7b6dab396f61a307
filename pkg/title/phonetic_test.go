package title_test

import (
	"testing"

	"github.com/verifyxo/engine/pkg/title"
)

func TestPhoneticKey(t *testing.T) {
	t.Parallel()

	t.Run("empty input has empty key", func(t *testing.T) {
		t.Parallel()
		if got := title.PhoneticKey(""); got != "" {
			t.Errorf("PhoneticKey(\"\") = %q, want empty", got)
		}
	})

	t.Run("digit-only input has empty key", func(t *testing.T) {
		t.Parallel()
		if got := title.PhoneticKey("2024"); got != "" {
			t.Errorf("PhoneticKey(%q) = %q, want empty", "2024", got)
		}
	})

	t.Run("homophones share a key", func(t *testing.T) {
		t.Parallel()
		pairs := [][2]string{
			{"daily news", "daly news"},
			{"nation", "nashun"},
			{"kolkata times", "colcata times"},
		}
		for _, p := range pairs {
			a, b := title.PhoneticKey(p[0]), title.PhoneticKey(p[1])
			if a == "" || a != b {
				t.Errorf("PhoneticKey(%q) = %q, PhoneticKey(%q) = %q, want equal non-empty",
					p[0], a, p[1], b)
			}
		}
	})

	t.Run("distinct sounds get distinct keys", func(t *testing.T) {
		t.Parallel()
		a, b := title.PhoneticKey("morning herald"), title.PhoneticKey("evening star")
		if a == b {
			t.Errorf("PhoneticKey(%q) == PhoneticKey(%q) = %q, want different", "morning herald", "evening star", a)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		t.Parallel()
		if title.PhoneticKey("indian express") != title.PhoneticKey("indian express") {
			t.Error("PhoneticKey is not deterministic")
		}
	})
}
