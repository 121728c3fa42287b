package zonefile

import "testing"

// TestParseTTL tests TTL literal conversion
func TestParseTTL(t *testing.T) {
	tests := []struct {
		input string
		want  uint32
	}{
		{"45", 45},
		{"2H", 7200},
		{"2h", 7200},
		{"1D", 86400},
		{"3W", 1814400},
		{"30S", 30},
		{"5M", 300},
		{"0", 0},
		{"bogus", 0},
		{"", 0},
		{"1Y", 0},
		{"-5", 0},
		{"99999999999", 0},
		{"10000W", 0},
		{"1w2d", 0},
		{"1h30m", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseTTL(tt.input); got != tt.want {
				t.Errorf("ParseTTL(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

// TestFixTTLClass tests TTL/class disambiguation
func TestFixTTLClass(t *testing.T) {
	tests := []struct {
		name       string
		tok1, tok2 string
		defaultTTL uint32
		wantTTL    uint32
		wantClass  string
	}{
		{"ttl then class", "3600", "IN", 0, 3600, "IN"},
		{"class then ttl", "IN", "3600", 0, 3600, "IN"},
		{"ttl literal only", "3H", "", 0, 10800, "IN"},
		{"class only uses default", "CH", "", 600, 600, "CH"},
		{"nothing uses default", "", "", 900, 900, "IN"},
		{"nothing without default", "", "", 0, 0, "IN"},
		{"lower case class", "in", "", 60, 60, "IN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ttl, class := FixTTLClass(tt.tok1, tt.tok2, tt.defaultTTL)
			if ttl != tt.wantTTL {
				t.Errorf("ttl = %d, want %d", ttl, tt.wantTTL)
			}
			if class != tt.wantClass {
				t.Errorf("class = %q, want %q", class, tt.wantClass)
			}
		})
	}
}
