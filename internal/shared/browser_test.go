package shared

import (
	"errors"
	"testing"
)

func TestOpenBrowser(t *testing.T) {
	t.Run("rejects non-http urls", func(t *testing.T) {
		for _, target := range []string{"file:///etc/passwd", "javascript:alert(1)", "::"} {
			if err := OpenBrowser(target); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("%q: expected ErrInvalidArgument, got %v", target, err)
			}
		}
	})

	t.Run("unsupported platform", func(t *testing.T) {
		t.Setenv("BROWSER", "")
		orig := getRuntime
		getRuntime = func() string { return "plan9" }
		defer func() { getRuntime = orig }()

		if err := OpenBrowser("https://example.com"); err == nil {
			t.Error("expected error for unsupported platform")
		}
	})

	t.Run("browser env override", func(t *testing.T) {
		t.Setenv("BROWSER", "true")
		cmd, err := browserCommand("https://example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cmd.Args) != 2 || cmd.Args[0] != "true" || cmd.Args[1] != "https://example.com" {
			t.Errorf("unexpected args %v", cmd.Args)
		}
	})

	t.Run("platform defaults", func(t *testing.T) {
		t.Setenv("BROWSER", "")
		orig := getRuntime
		defer func() { getRuntime = orig }()

		for rt, want := range map[string]string{"darwin": "open", "linux": "xdg-open", "windows": "rundll32"} {
			getRuntime = func() string { return rt }
			cmd, err := browserCommand("https://example.com")
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", rt, err)
			}
			if cmd.Args[0] != want {
				t.Errorf("%s: expected %s, got %s", rt, want, cmd.Args[0])
			}
		}
	})
}
