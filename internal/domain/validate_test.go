package domain

import "testing"

func TestAssertTagSlug(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		// Valid shapes
		{"simple", "resolution/4k", "resolution/4k", false},
		{"hyphenated kind and value", "aspect-ratio/16-9", "aspect-ratio/16-9", false},
		{"value may start with digit", "resolution/4k", "resolution/4k", false},
		{"trim and lowercase", "  Resolution/4K  ", "resolution/4k", false},

		// Invalid shapes
		{"missing slash", "resolution4k", "", true},
		{"two slashes", "a/b/c", "", true},
		{"empty value", "resolution/", "", true},
		{"empty kind", "/4k", "", true},
		{"kind starts with digit", "4res/4k", "", true},
		{"kind starts with hyphen", "-res/4k", "", true},
		{"double hyphen", "aspect--ratio/16-9", "", true},
		{"trailing hyphen", "aspect-ratio-/16-9", "", true},
		{"uppercase after normalize is fine but symbols are not", "motive/über", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := AssertTagSlug(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("AssertTagSlug(%q) = %q, want error", tt.input, result)
				}
				return
			}
			if err != nil {
				t.Fatalf("AssertTagSlug(%q) returned error: %v", tt.input, err)
			}
			if result != tt.expected {
				t.Errorf("AssertTagSlug(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestAssertTagKindSlug(t *testing.T) {
	valid := []string{"resolution", "aspect-ratio", "top10", "a"}
	for _, input := range valid {
		if _, err := AssertTagKindSlug(input); err != nil {
			t.Errorf("AssertTagKindSlug(%q) returned error: %v", input, err)
		}
	}

	invalid := []string{"", "4k", "-res", "res-", "Res", "a/b", "a_b", "a--b"}
	for _, input := range invalid {
		if _, err := AssertTagKindSlug(input); err == nil {
			t.Errorf("AssertTagKindSlug(%q) succeeded, want error", input)
		}
	}
}

func TestAssertImageExt(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"jpg", "jpg", false},
		{".jpg", "jpg", false},
		{"..PNG", "png", false},
		{"  webp ", "webp", false},
		{"", "", true},
		{".", "", true},
		{"jp g", "", true},
		{"jp-g", "", true},
	}

	for _, tt := range tests {
		result, err := AssertImageExt(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("AssertImageExt(%q) = %q, want error", tt.input, result)
			}
			continue
		}
		if err != nil {
			t.Errorf("AssertImageExt(%q) returned error: %v", tt.input, err)
			continue
		}
		if result != tt.expected {
			t.Errorf("AssertImageExt(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestAssertSHA256(t *testing.T) {
	valid := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa="
	if _, err := AssertSHA256(valid); err != nil {
		t.Errorf("AssertSHA256(%q) returned error: %v", valid, err)
	}
	if _, err := AssertSHA256(" " + valid + " "); err != nil {
		t.Errorf("AssertSHA256 with surrounding whitespace returned error: %v", err)
	}

	invalid := []string{
		"",
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",  // missing padding
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa=",  // too short
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa=", // too long
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa!=",
	}
	for _, input := range invalid {
		if _, err := AssertSHA256(input); err == nil {
			t.Errorf("AssertSHA256(%q) succeeded, want error", input)
		}
	}
}

func TestAssertDimensionsAndSizes(t *testing.T) {
	if _, err := AssertWidthPx(0); err == nil {
		t.Error("AssertWidthPx(0) succeeded, want error")
	}
	if _, err := AssertHeightPx(-1); err == nil {
		t.Error("AssertHeightPx(-1) succeeded, want error")
	}
	if v, err := AssertWidthPx(3840); err != nil || v != 3840 {
		t.Errorf("AssertWidthPx(3840) = %d, %v", v, err)
	}
	if _, err := AssertSizeBytes(0); err != nil {
		t.Errorf("AssertSizeBytes(0) returned error: %v", err)
	}
	if _, err := AssertSizeBytes(-1); err == nil {
		t.Error("AssertSizeBytes(-1) succeeded, want error")
	}
	if _, err := AssertUnixSeconds(-5); err == nil {
		t.Error("AssertUnixSeconds(-5) succeeded, want error")
	}
}

func TestAssertNames(t *testing.T) {
	if name, err := AssertImageName("  Sunset  "); err != nil || name != "Sunset" {
		t.Errorf("AssertImageName = %q, %v", name, err)
	}
	if _, err := AssertImageName("   "); err == nil {
		t.Error("AssertImageName of blank succeeded, want error")
	}
	if _, err := AssertTagName(""); err == nil {
		t.Error("AssertTagName of empty succeeded, want error")
	}
	if _, err := AssertTagKindName("\t"); err == nil {
		t.Error("AssertTagKindName of whitespace succeeded, want error")
	}
}

func TestAssertPageLimit(t *testing.T) {
	for _, ok := range []int{1, 50, 200} {
		if _, err := AssertPageLimit(ok); err != nil {
			t.Errorf("AssertPageLimit(%d) returned error: %v", ok, err)
		}
	}
	for _, bad := range []int{0, -1, 201} {
		if _, err := AssertPageLimit(bad); err == nil {
			t.Errorf("AssertPageLimit(%d) succeeded, want error", bad)
		}
	}
}

func TestCursorRoundTrip(t *testing.T) {
	c := Cursor{AddedAt: 1700000000, Slug: "sunset-hills"}
	decoded, err := DecodeCursor(c.Encode())
	if err != nil {
		t.Fatalf("DecodeCursor returned error: %v", err)
	}
	if decoded == nil || *decoded != c {
		t.Errorf("cursor round trip = %+v, want %+v", decoded, c)
	}

	if decoded, err := DecodeCursor(""); err != nil || decoded != nil {
		t.Errorf("DecodeCursor(\"\") = %+v, %v, want nil, nil", decoded, err)
	}

	for _, bad := range []string{"not-base64!", "YWJj", "MTA6QkFE"} {
		if _, err := DecodeCursor(bad); err == nil {
			t.Errorf("DecodeCursor(%q) succeeded, want error", bad)
		}
	}
}

func TestGroupTagSlugs(t *testing.T) {
	filter := GroupTagSlugs([]string{
		"resolution/4k",
		"aspect-ratio/16-9",
		"aspect-ratio/16-10",
		"resolution/4k", // duplicate
	})

	if len(filter) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(filter))
	}
	if got := filter["resolution"]; len(got) != 1 || got[0] != "resolution/4k" {
		t.Errorf("resolution group = %v", got)
	}
	if got := filter["aspect-ratio"]; len(got) != 2 {
		t.Errorf("aspect-ratio group = %v", got)
	}

	if got := GroupTagSlugs(nil); got != nil {
		t.Errorf("GroupTagSlugs(nil) = %v, want nil", got)
	}
}
