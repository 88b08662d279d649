package balancegroup

import (
	"testing"
	"time"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestMembershipActiveAt(t *testing.T) {
	bounded := Membership{MeteringPoint: "ZP001", ValidFrom: day(1), ValidTo: day(10)}
	open := Membership{MeteringPoint: "ZP002", ValidFrom: day(1)}

	cases := []struct {
		name string
		m    Membership
		at   time.Time
		want bool
	}{
		{"before start", bounded, day(1).Add(-time.Second), false},
		{"at start", bounded, day(1), true},
		{"inside", bounded, day(5), true},
		{"at end exclusive", bounded, day(10), false},
		{"open ended far future", open, day(30), true},
	}
	for _, tc := range cases {
		if got := tc.m.ActiveAt(tc.at); got != tc.want {
			t.Errorf("%s: ActiveAt = %v", tc.name, got)
		}
	}
}

func TestMembershipClip(t *testing.T) {
	m := Membership{MeteringPoint: "ZP001", ValidFrom: day(5), ValidTo: day(15)}

	start, end, ok := m.Clip(day(1), day(10))
	if !ok || !start.Equal(day(5)) || !end.Equal(day(10)) {
		t.Errorf("clip = %s %s %v", start, end, ok)
	}

	start, end, ok = m.Clip(day(7), day(20))
	if !ok || !start.Equal(day(7)) || !end.Equal(day(15)) {
		t.Errorf("clip = %s %s %v", start, end, ok)
	}

	if _, _, ok := m.Clip(day(16), day(20)); ok {
		t.Error("clip outside window reported overlap")
	}

	open := Membership{MeteringPoint: "ZP001", ValidFrom: day(5)}
	start, end, ok = open.Clip(day(1), day(30))
	if !ok || !start.Equal(day(5)) || !end.Equal(day(30)) {
		t.Errorf("open clip = %s %s %v", start, end, ok)
	}
}

func TestMembersActiveDuring(t *testing.T) {
	group := BalanceGroup{
		ID: "bg-1",
		Memberships: []Membership{
			{MeteringPoint: "ZP001", ValidFrom: day(1), ValidTo: day(10)},
			{MeteringPoint: "ZP002", ValidFrom: day(20)},
		},
	}
	active := group.MembersActiveDuring(day(5), day(8))
	if len(active) != 1 || active[0].MeteringPoint != "ZP001" {
		t.Errorf("active = %+v", active)
	}
	active = group.MembersActiveDuring(day(5), day(25))
	if len(active) != 2 {
		t.Errorf("active = %+v", active)
	}
}
