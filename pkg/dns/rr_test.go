package dns

import (
	"testing"

	"github.com/cuemby/zoned/pkg/types"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToRR(t *testing.T) {
	const origin = "example.com."

	tests := []struct {
		name string
		rr   types.ResourceRecord
		want string
	}{
		{
			name: "A",
			rr:   types.ResourceRecord{Name: "www", Type: types.RecordTypeA, Class: "IN", TTL: 60, Address: "192.0.2.1"},
			want: "www.example.com.\t60\tIN\tA\t192.0.2.1",
		},
		{
			name: "AAAA",
			rr:   types.ResourceRecord{Name: "www", Type: types.RecordTypeAAAA, TTL: 60, Address: "2001:db8::1"},
			want: "www.example.com.\t60\tIN\tAAAA\t2001:db8::1",
		},
		{
			name: "NS absolute target",
			rr:   types.ResourceRecord{Name: "@", Type: types.RecordTypeNS, Class: "IN", TTL: 60, Address: "ns.example.net."},
			want: "example.com.\t60\tIN\tNS\tns.example.net.",
		},
		{
			name: "PTR",
			rr:   types.ResourceRecord{Name: "10", Type: types.RecordTypePTR, Class: "IN", TTL: 60, Address: "www"},
			want: "10.example.com.\t60\tIN\tPTR\twww.example.com.",
		},
		{
			name: "SOA",
			rr: types.ResourceRecord{Name: "@", Type: types.RecordTypeSOA, Class: "IN", TTL: 60,
				NS: "ns1", Email: "hostmaster", Values: []uint32{2024010101, 10800, 900, 604800, 86400}},
			want: "example.com.\t60\tIN\tSOA\tns1.example.com. hostmaster.example.com. 2024010101 10800 900 604800 86400",
		},
		{
			name: "CH class",
			rr:   types.ResourceRecord{Name: "version", Type: types.RecordTypeTXT, Class: "CH", TTL: 0, Address: `"1.0"`},
			want: "version.example.com.\t0\tCH\tTXT\t\"1.0\"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, err := ToRR(tt.rr, origin, expandOwner(tt.rr.Name, origin))
			require.NoError(t, err)
			assert.Equal(t, tt.want, rr.String())
		})
	}
}

func expandOwner(name, origin string) string {
	if name == "@" {
		return origin
	}
	return name + "." + origin
}

func TestToRRInvalid(t *testing.T) {
	_, err := ToRR(types.ResourceRecord{Type: types.RecordTypeA, Address: "2001:db8::1"}, "example.com.", "x.example.com.")
	assert.Error(t, err)

	_, err = ToRR(types.ResourceRecord{Type: types.RecordType("SRV"), Address: "0 0 1 x"}, "example.com.", "x.example.com.")
	assert.Error(t, err)
}

func TestCharacterStrings(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{`"v=spf1 mx; -all"`, []string{"v=spf1 mx; -all"}},
		{`"INTEL" "LINUX"`, []string{"INTEL", "LINUX"}},
		{`"a""b"`, []string{"a", "b"}},
		{`"say \"hi\""`, []string{`say "hi"`}},
		{`bare words`, []string{"bare", "words"}},
		{`""`, []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, characterStrings(tt.in))
		})
	}
}

func TestHINFOFromSingleString(t *testing.T) {
	rr, err := ToRR(types.ResourceRecord{Type: types.RecordTypeHINFO, TTL: 1, Address: `"PDP-11"`}, "example.com.", "box.example.com.")
	require.NoError(t, err)
	hinfo := rr.(*dns.HINFO)
	assert.Equal(t, "PDP-11", hinfo.Cpu)
	assert.Empty(t, hinfo.Os)
}
