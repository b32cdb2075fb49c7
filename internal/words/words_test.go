package words

import (
	"slices"
	"strings"
	"testing"
)

func TestPlaceholderNameShape(t *testing.T) {
	for i := 0; i < 50; i++ {
		name := PlaceholderName()
		parts := strings.SplitN(name, " ", 2)
		if len(parts) != 2 {
			t.Fatalf("expected adjective+noun pair, got %q", name)
		}
		if !slices.Contains(adjectives, parts[0]) {
			t.Fatalf("%q is not a known adjective", parts[0])
		}
		if !slices.Contains(nouns, parts[1]) {
			t.Fatalf("%q is not a known noun", parts[1])
		}
	}
}
