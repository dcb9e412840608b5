package textutil

import "testing"

func TestNormalizeComposesGreekAccents(t *testing.T) {
	decomposed := "  \u03b1\u0301\u03c1\u03c1\u03c9\u03c3\u03c4\u03bf\u03c2 "
	precomposed := "\u03ac\u03c1\u03c1\u03c9\u03c3\u03c4\u03bf\u03c2"
	if got := Normalize(decomposed); got != precomposed {
		t.Fatalf("Normalize = %q, want %q", got, precomposed)
	}
}

func TestSanitizeToken(t *testing.T) {
	cases := map[string]string{
		"GSL-SD-train":      "gsl-sd-train",
		"health3_Depth":     "health3_depth",
		"  ":                "unknown",
		"a/b c":             "a_b_c",
		"https://x.org/?a=": "https___x_org__a",
	}
	for input, want := range cases {
		if got := SanitizeToken(input); got != want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", input, got, want)
		}
	}
}
