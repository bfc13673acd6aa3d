package compose

import (
	"errors"
	"testing"

	"github.com/spacedatanetwork/ocean-fleet/internal/config"
)

func TestPortsFormula(t *testing.T) {
	for i := 0; i < 10; i++ {
		got := Ports(i).All()
		want := []int{12002 + i, 13002 + i, 14002 + i, 15002 + i, 16002 + i}
		if len(got) != len(want) {
			t.Fatalf("Ports(%d) = %v, want %v", i, got, want)
		}
		for j := range want {
			if got[j] != want[j] {
				t.Errorf("Ports(%d)[%d] = %d, want %d", i, j, got[j], want[j])
			}
		}
	}
}

func TestPortsDisjointAcrossRun(t *testing.T) {
	const count = 250
	plan := NewPortPlan(config.Default().Ports)
	if err := plan.Validate(count); err != nil {
		t.Fatalf("Validate(%d) failed: %v", count, err)
	}

	seen := make(map[int]int)
	for i := 0; i < count; i++ {
		for _, p := range plan.Ports(i).All() {
			if prev, ok := seen[p]; ok {
				t.Fatalf("port %d used by instances %d and %d", p, prev, i)
			}
			seen[p] = i
		}
	}
	if len(seen) != 5*count {
		t.Errorf("expected %d distinct ports, got %d", 5*count, len(seen))
	}
}

func TestPortPlanValidate(t *testing.T) {
	defaults := config.Default().Ports

	tests := []struct {
		name    string
		bases   config.PortConfig
		count   int
		wantErr error
	}{
		{"zero instances", defaults, 0, nil},
		{"fits exactly", defaults, 1000, nil},
		{"ranges collide", defaults, 1001, ErrPortOverlap},
		{"past max port", config.PortConfig{HTTPAPI: 65000, P2PTCP: 1000, P2PWS: 2000}, 600, ErrPortRange},
		{"duplicate base", config.PortConfig{HTTPAPI: 4000, P2PTCP: 4000, P2PWS: 5000}, 1, ErrPortOverlap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewPortPlan(tt.bases).Validate(tt.count)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAnnounceAddrs(t *testing.T) {
	tests := []struct {
		ip      string
		want    []string
		wantErr bool
	}{
		{
			ip:   "203.0.113.5",
			want: []string{"/ip4/203.0.113.5/tcp/13002", "/ip4/203.0.113.5/ws/tcp/14002"},
		},
		{
			ip:   "2001:db8::1",
			want: []string{"/ip6/2001:db8::1/tcp/13002", "/ip6/2001:db8::1/ws/tcp/14002"},
		},
		{ip: "node.example.com", wantErr: true},
		{ip: "", wantErr: true},
		{ip: "300.1.1.1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			addrs, err := AnnounceAddrs(tt.ip, Ports(0))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidIP) {
					t.Errorf("expected ErrInvalidIP, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("AnnounceAddrs failed: %v", err)
			}
			if len(addrs) != len(tt.want) {
				t.Fatalf("got %d addrs, want %d", len(addrs), len(tt.want))
			}
			for i := range tt.want {
				if addrs[i].String() != tt.want[i] {
					t.Errorf("addr %d = %s, want %s", i, addrs[i], tt.want[i])
				}
			}
		})
	}
}
