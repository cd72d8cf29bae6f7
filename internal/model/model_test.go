package model

import "testing"

func TestDeriveRole(t *testing.T) {
	cases := []struct {
		balance int
		admin   bool
		want    Role
	}{
		{0, false, RoleCasual},
		{-1, false, RoleCasual},
		{1, false, RoleMember},
		{10, false, RoleMember},
		{0, true, RoleAdmin},
		{5, true, RoleAdmin},
	}
	for _, tc := range cases {
		if got := DeriveRole(tc.balance, tc.admin); got != tc.want {
			t.Errorf("DeriveRole(%d, %v) 期望 %s，实际 %s", tc.balance, tc.admin, tc.want, got)
		}
	}
}

func TestUser_SetRemainingSessions(t *testing.T) {
	u := &User{Role: RoleCasual}
	u.SetRemainingSessions(3)
	if u.Role != RoleMember || u.RemainingSessions != 3 {
		t.Errorf("期望 member/3，实际 %s/%d", u.Role, u.RemainingSessions)
	}

	u.SetRemainingSessions(-2)
	if u.Role != RoleCasual || u.RemainingSessions != 0 {
		t.Errorf("期望 casual/0，实际 %s/%d", u.Role, u.RemainingSessions)
	}

	admin := &User{Role: RoleAdmin}
	admin.SetRemainingSessions(0)
	if admin.Role != RoleAdmin {
		t.Errorf("管理员角色不应随余额变化，实际 %s", admin.Role)
	}
}

func TestBookingStatus_Transitions(t *testing.T) {
	allowed := map[[2]BookingStatus]bool{
		{BookingPendingPayment, BookingConfirmed}: true,
		{BookingPendingPayment, BookingCancelled}: true,
		{BookingConfirmed, BookingCancelled}:      true,
	}
	all := []BookingStatus{BookingPendingPayment, BookingConfirmed, BookingCancelled}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]BookingStatus{from, to}]
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s → %s 期望 %v，实际 %v", from, to, want, got)
			}
		}
	}
}

func TestBookingPolicy_WeeklyLimit(t *testing.T) {
	p := &BookingPolicy{MemberWeeklyLimit: 2, CasualWeeklyLimit: 1}
	if p.WeeklyLimit(RoleMember) != 2 || p.WeeklyLimit(RoleCasual) != 1 || p.WeeklyLimit(RoleAdmin) != -1 {
		t.Errorf("每周上限不符合预期")
	}
}
