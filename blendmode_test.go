package psd

import "testing"

// TestBlendModeKeysBidirectional tests the 28-mode key mapping in both
// directions.
func TestBlendModeKeysBidirectional(t *testing.T) {
	if len(blendModeKeys) != 28 {
		t.Fatalf("blend mode table holds %d modes, want 28", len(blendModeKeys))
	}
	for mode, key := range blendModeKeys {
		if len(key) != 4 {
			t.Errorf("mode %s key %q is not 4 bytes", mode, key)
		}
		back, err := BlendModeFromKey(key)
		if err != nil {
			t.Errorf("BlendModeFromKey(%q): %v", key, err)
		}
		if back != mode {
			t.Errorf("BlendModeFromKey(%q) = %s, want %s", key, back, mode)
		}
	}
}

// TestBlendModeFromKeyUnknown tests unknown key handling.
func TestBlendModeFromKeyUnknown(t *testing.T) {
	if _, err := BlendModeFromKey("zzzz"); err == nil {
		t.Error("unknown blend key accepted")
	}
}

// TestPassthroughOnlyOnGroups tests that passthrough is rejected on
// non-group layers and accepted on groups.
func TestPassthroughOnlyOnGroups(t *testing.T) {
	image := NewImageLayer("pixels")
	if err := image.SetBlendMode(BlendPassthrough); err == nil {
		t.Error("image layer accepted passthrough")
	}
	group := NewGroupLayer("folder")
	if err := group.SetBlendMode(BlendPassthrough); err != nil {
		t.Errorf("group rejected passthrough: %v", err)
	}
}
