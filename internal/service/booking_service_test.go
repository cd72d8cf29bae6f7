package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/UoaWDCC/uabc-web-sub005/internal/dto"
	"github.com/UoaWDCC/uabc-web-sub005/internal/model"
	"github.com/UoaWDCC/uabc-web-sub005/pkg/mq"
)

// ── 测试辅助 ──

// newBookingEnv 时钟在周二 04-08 上午，本周场次的预约窗口（周一 12:00 起）均已开放
func newBookingEnv(t *testing.T) (*testEnv, *model.Semester) {
	t.Helper()
	env := newTestEnv(nzt(2025, 4, 8, 10, 0))
	return env, env.seedSemester(t)
}

func book(env *testEnv, u *model.User, sessionID, kind string) (*dto.BookingResponse, error) {
	return env.svc.Booking.AttemptBooking(context.Background(), callerOf(u), &dto.CreateBookingRequest{
		SessionID: sessionID,
		SlotKind:  kind,
	})
}

// ── AttemptBooking 测试 ──

func TestAttemptBooking_MemberSlot(t *testing.T) {
	env, sem := newBookingEnv(t)
	sess := env.seedSession(t, sem.SemesterID, day(2025, 4, 9), 10, 2)
	u := env.seedUser(t, "amy", 3, false)

	resp, err := book(env, u, sess.SessionID, "member")
	if err != nil {
		t.Fatalf("期望成功，实际: %v", err)
	}
	if resp.Status != string(model.BookingConfirmed) || resp.ConfirmedAt == nil {
		t.Errorf("会员名额应直接确认: %+v", resp)
	}
	if resp.Session == nil || resp.Session.ID != sess.SessionID {
		t.Error("期望响应附带场次信息")
	}
	if got := env.user(t, u.UserID); got.RemainingSessions != 2 {
		t.Errorf("期望余额 2，实际: %d", got.RemainingSessions)
	}
	if l := env.ledger(t, sess.SessionID); l.MemberUsed != 1 || l.CasualUsed != 0 {
		t.Errorf("台账计数不正确: %+v", l)
	}
	if env.events.count(mq.RoutingBookingCreated) != 1 {
		t.Error("期望发布一条预约创建事件")
	}
}

func TestAttemptBooking_LocksUserThenSession(t *testing.T) {
	env := newTestEnv(nzt(2025, 4, 8, 10, 0))
	sem := env.seedSemester(t)
	sess := env.seedSession(t, sem.SemesterID, day(2025, 4, 9), 10, 2)
	amy := env.seedUser(t, "amy", 1, false)
	env.st.lockLog()

	if _, err := env.svc.Booking.AttemptBooking(context.Background(), callerOf(amy), &dto.CreateBookingRequest{
		SessionID: sess.SessionID,
		SlotKind:  "casual",
	}); err != nil {
		t.Fatalf("预约失败: %v", err)
	}

	log := env.st.lockLog()
	want := []string{"user:" + amy.UserID, "session:" + sess.SessionID}
	if len(log) < 2 || log[0] != want[0] || log[1] != want[1] {
		t.Errorf("期望加锁顺序 %v，实际: %v", want, log)
	}
}

func TestAttemptBooking_ZeroBalance(t *testing.T) {
	env, sem := newBookingEnv(t)
	sess := env.seedSession(t, sem.SemesterID, day(2025, 4, 9), 10, 2)
	u := env.seedUser(t, "ben", 0, false)

	_, err := book(env, u, sess.SessionID, "member")
	if !errors.Is(err, ErrInsufficientBalance) || !errors.Is(err, ErrQuota) {
		t.Fatalf("期望 ErrInsufficientBalance，实际: %v", err)
	}
	if l := env.ledger(t, sess.SessionID); l.MemberUsed != 0 {
		t.Errorf("被拒绝的预约不应占用名额: %+v", l)
	}

	resp, err := book(env, u, sess.SessionID, "casual")
	if err != nil {
		t.Fatalf("散客名额期望成功，实际: %v", err)
	}
	if resp.Status != string(model.BookingPendingPayment) {
		t.Errorf("散客预约应待支付，实际: %s", resp.Status)
	}
	if got := env.user(t, u.UserID); got.RemainingSessions != 0 {
		t.Errorf("散客预约不应改变余额: %d", got.RemainingSessions)
	}
}

func TestAttemptBooking_SessionFull(t *testing.T) {
	env, sem := newBookingEnv(t)
	sess := env.seedSession(t, sem.SemesterID, day(2025, 4, 9), 1, 0)
	a := env.seedUser(t, "amy", 3, false)
	b := env.seedUser(t, "ben", 3, false)

	if _, err := book(env, a, sess.SessionID, "member"); err != nil {
		t.Fatalf("A 期望成功，实际: %v", err)
	}
	_, err := book(env, b, sess.SessionID, "member")
	if !errors.Is(err, ErrSessionFull) || !errors.Is(err, ErrCapacity) {
		t.Errorf("B 期望 ErrSessionFull，实际: %v", err)
	}
	if _, err := book(env, b, sess.SessionID, "casual"); !errors.Is(err, ErrSlotKindUnavailable) {
		t.Errorf("散客名额为 0 时期望 ErrSlotKindUnavailable，实际: %v", err)
	}
	if got := env.user(t, b.UserID); got.RemainingSessions != 3 {
		t.Errorf("被拒绝的预约不应扣减余额: %d", got.RemainingSessions)
	}
}

func TestAttemptBooking_ConcurrentLastSlot(t *testing.T) {
	env, sem := newBookingEnv(t)
	sess := env.seedSession(t, sem.SemesterID, day(2025, 4, 9), 1, 0)

	const n = 20
	users := make([]*model.User, n)
	for i := range users {
		users[i] = env.seedUser(t, fmt.Sprintf("player%02d", i), 2, false)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		full      int
		others    []error
	)
	start := make(chan struct{})
	for _, u := range users {
		wg.Add(1)
		go func(u *model.User) {
			defer wg.Done()
			<-start
			_, err := book(env, u, sess.SessionID, "member")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrSessionFull):
				full++
			default:
				others = append(others, err)
			}
		}(u)
	}
	close(start)
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("期望恰好 1 个预约成功，实际: %d", succeeded)
	}
	if full != n-1 || len(others) != 0 {
		t.Errorf("其余请求期望 ErrSessionFull，实际 full=%d others=%v", full, others)
	}
	if l := env.ledger(t, sess.SessionID); l.MemberUsed != 1 {
		t.Errorf("台账计数不应超过容量: %+v", l)
	}
}

func TestAttemptBooking_WindowGate(t *testing.T) {
	env, sem := newBookingEnv(t)
	sess := env.seedSession(t, sem.SemesterID, day(2025, 4, 9), 10, 2)
	u := env.seedUser(t, "amy", 3, false)

	env.clock.Set(nzt(2025, 4, 7, 11, 59))
	if _, err := book(env, u, sess.SessionID, "member"); !errors.Is(err, ErrWindowNotOpen) || !errors.Is(err, ErrNotBookable) {
		t.Errorf("期望 ErrWindowNotOpen，实际: %v", err)
	}

	env.clock.Set(nzt(2025, 4, 9, 18, 30))
	if _, err := book(env, u, sess.SessionID, "member"); !errors.Is(err, ErrWindowClosed) {
		t.Errorf("期望 ErrWindowClosed，实际: %v", err)
	}

	if _, err := book(env, u, "missing", "member"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("期望 ErrSessionNotFound，实际: %v", err)
	}
	if got := env.user(t, u.UserID); got.RemainingSessions != 3 {
		t.Errorf("被拒绝的预约不应扣减余额: %d", got.RemainingSessions)
	}
}

func TestAttemptBooking_AlreadyBooked(t *testing.T) {
	env, sem := newBookingEnv(t)
	sess := env.seedSession(t, sem.SemesterID, day(2025, 4, 9), 10, 2)
	u := env.seedUser(t, "amy", 3, false)

	if _, err := book(env, u, sess.SessionID, "member"); err != nil {
		t.Fatalf("第一次预约失败: %v", err)
	}
	if _, err := book(env, u, sess.SessionID, "casual"); !errors.Is(err, ErrAlreadyBooked) {
		t.Errorf("期望 ErrAlreadyBooked，实际: %v", err)
	}
	if got := env.user(t, u.UserID); got.RemainingSessions != 2 {
		t.Errorf("期望余额只扣一次，实际: %d", got.RemainingSessions)
	}
}

func TestAttemptBooking_InvalidSlotKind(t *testing.T) {
	env, sem := newBookingEnv(t)
	sess := env.seedSession(t, sem.SemesterID, day(2025, 4, 9), 10, 2)
	u := env.seedUser(t, "amy", 3, false)

	if _, err := book(env, u, sess.SessionID, "vip"); !errors.Is(err, ErrInvalidSlotKind) {
		t.Errorf("期望 ErrInvalidSlotKind，实际: %v", err)
	}
}

func TestAttemptBooking_WeeklyLimit(t *testing.T) {
	env, sem := newBookingEnv(t)
	wed := env.seedSession(t, sem.SemesterID, day(2025, 4, 9), 10, 2)
	thu := env.seedSession(t, sem.SemesterID, day(2025, 4, 10), 10, 2)
	fri := env.seedSession(t, sem.SemesterID, day(2025, 4, 11), 10, 2)
	member := env.seedUser(t, "amy", 5, false)
	casual := env.seedUser(t, "ben", 0, false)

	for _, s := range []*model.GameSession{wed, thu} {
		if _, err := book(env, member, s.SessionID, "member"); err != nil {
			t.Fatalf("会员前两次预约期望成功，实际: %v", err)
		}
	}
	if _, err := book(env, member, fri.SessionID, "member"); !errors.Is(err, ErrWeeklyLimitReached) {
		t.Errorf("会员第三次期望 ErrWeeklyLimitReached，实际: %v", err)
	}

	if _, err := book(env, casual, wed.SessionID, "casual"); err != nil {
		t.Fatalf("散客第一次预约期望成功，实际: %v", err)
	}
	if _, err := book(env, casual, thu.SessionID, "casual"); !errors.Is(err, ErrWeeklyLimitReached) {
		t.Errorf("散客第二次期望 ErrWeeklyLimitReached，实际: %v", err)
	}
}

func TestAttemptBooking_CapacityReportedBeforeQuota(t *testing.T) {
	env, sem := newBookingEnv(t)
	wed := env.seedSession(t, sem.SemesterID, day(2025, 4, 9), 10, 2)
	noCasual := env.seedSession(t, sem.SemesterID, day(2025, 4, 10), 10, 0)
	casual := env.seedUser(t, "ben", 0, false)

	if _, err := book(env, casual, wed.SessionID, "casual"); err != nil {
		t.Fatalf("散客第一次预约期望成功，实际: %v", err)
	}
	if _, err := book(env, casual, noCasual.SessionID, "casual"); !errors.Is(err, ErrSlotKindUnavailable) {
		t.Errorf("容量与额度同时不满足时期望先报告容量，实际: %v", err)
	}
}

func TestAttemptBooking_WeeklyLimitResetsNextWeek(t *testing.T) {
	env, sem := newBookingEnv(t)
	wed := env.seedSession(t, sem.SemesterID, day(2025, 4, 9), 10, 2)
	nextWed := env.seedSession(t, sem.SemesterID, day(2025, 4, 23), 10, 2)
	casual := env.seedUser(t, "ben", 0, false)

	if _, err := book(env, casual, wed.SessionID, "casual"); err != nil {
		t.Fatalf("本周预约失败: %v", err)
	}
	env.clock.Set(nzt(2025, 4, 21, 12, 0))
	if _, err := book(env, casual, nextWed.SessionID, "casual"); err != nil {
		t.Errorf("下周场次按场次所在周计数，期望成功，实际: %v", err)
	}
}

func TestAttemptBooking_AdminExempt(t *testing.T) {
	env, sem := newBookingEnv(t)
	admin := env.seedUser(t, "root", 5, true)

	for _, d := range []int{9, 10, 11, 12} {
		sess := env.seedSession(t, sem.SemesterID, day(2025, 4, d), 10, 2)
		if _, err := book(env, admin, sess.SessionID, "member"); err != nil {
			t.Fatalf("管理员不受每周上限限制，04-%02d 失败: %v", d, err)
		}
	}
	got := env.user(t, admin.UserID)
	if got.RemainingSessions != 1 || got.Role != model.RoleAdmin {
		t.Errorf("管理员仍消耗余额且角色不变: %+v", got)
	}
}

func TestAttemptBooking_PolicyOverride(t *testing.T) {
	env, sem := newBookingEnv(t)
	wed := env.seedSession(t, sem.SemesterID, day(2025, 4, 9), 10, 2)
	thu := env.seedSession(t, sem.SemesterID, day(2025, 4, 10), 10, 2)
	member := env.seedUser(t, "amy", 5, false)

	if _, err := env.svc.BookingPolicy.Update(context.Background(), &dto.UpdateBookingPolicyRequest{
		MemberWeeklyLimit: intPtr(1),
	}, "admin-1"); err != nil {
		t.Fatalf("更新策略失败: %v", err)
	}

	if _, err := book(env, member, wed.SessionID, "member"); err != nil {
		t.Fatalf("第一次预约失败: %v", err)
	}
	if _, err := book(env, member, thu.SessionID, "member"); !errors.Is(err, ErrWeeklyLimitReached) {
		t.Errorf("策略上限为 1，期望 ErrWeeklyLimitReached，实际: %v", err)
	}
}

// ── CancelBooking 测试 ──

func TestCancelBooking_RefundsOnce(t *testing.T) {
	env, sem := newBookingEnv(t)
	sess := env.seedSession(t, sem.SemesterID, day(2025, 4, 9), 10, 2)
	u := env.seedUser(t, "amy", 1, false)

	b, err := book(env, u, sess.SessionID, "member")
	if err != nil {
		t.Fatalf("预约失败: %v", err)
	}
	if got := env.user(t, u.UserID); got.RemainingSessions != 0 || got.Role != model.RoleCasual {
		t.Fatalf("余额用尽后应降为散客: %+v", got)
	}

	resp, err := env.svc.Booking.CancelBooking(context.Background(), callerOf(u), b.ID)
	if err != nil {
		t.Fatalf("期望成功，实际: %v", err)
	}
	if !resp.Refunded || resp.AlreadyCancelled || resp.Booking.Status != string(model.BookingCancelled) {
		t.Errorf("第一次取消应退款: %+v", resp)
	}
	got := env.user(t, u.UserID)
	if got.RemainingSessions != 1 || got.Role != model.RoleMember {
		t.Errorf("退款后应恢复会员: %+v", got)
	}

	again, err := env.svc.Booking.CancelBooking(context.Background(), callerOf(u), b.ID)
	if err != nil {
		t.Fatalf("重复取消期望成功，实际: %v", err)
	}
	if again.Refunded || !again.AlreadyCancelled {
		t.Errorf("重复取消应为空操作: %+v", again)
	}
	if got := env.user(t, u.UserID); got.RemainingSessions != 1 {
		t.Errorf("重复取消不应再次退款，实际余额: %d", got.RemainingSessions)
	}
	if l := env.ledger(t, sess.SessionID); l.MemberUsed != 0 {
		t.Errorf("名额应只释放一次: %+v", l)
	}
	if n := env.events.count(mq.RoutingBookingCancelled); n != 1 {
		t.Errorf("期望 1 条取消事件，实际: %d", n)
	}
}

func TestCancelBooking_CasualNoRefund(t *testing.T) {
	env, sem := newBookingEnv(t)
	sess := env.seedSession(t, sem.SemesterID, day(2025, 4, 9), 10, 2)
	u := env.seedUser(t, "ben", 0, false)

	b, err := book(env, u, sess.SessionID, "casual")
	if err != nil {
		t.Fatalf("预约失败: %v", err)
	}
	resp, err := env.svc.Booking.CancelBooking(context.Background(), callerOf(u), b.ID)
	if err != nil {
		t.Fatalf("期望成功，实际: %v", err)
	}
	if resp.Refunded {
		t.Error("散客名额不应退款")
	}
	if l := env.ledger(t, sess.SessionID); l.CasualUsed != 0 {
		t.Errorf("散客名额应释放: %+v", l)
	}
}

func TestCancelBooking_FreesSlotForOthers(t *testing.T) {
	env, sem := newBookingEnv(t)
	sess := env.seedSession(t, sem.SemesterID, day(2025, 4, 9), 1, 0)
	a := env.seedUser(t, "amy", 3, false)
	b := env.seedUser(t, "ben", 3, false)

	first, err := book(env, a, sess.SessionID, "member")
	if err != nil {
		t.Fatalf("A 预约失败: %v", err)
	}
	if _, err := book(env, b, sess.SessionID, "member"); !errors.Is(err, ErrSessionFull) {
		t.Fatalf("B 期望 ErrSessionFull，实际: %v", err)
	}
	if _, err := env.svc.Booking.CancelBooking(context.Background(), callerOf(a), first.ID); err != nil {
		t.Fatalf("A 取消失败: %v", err)
	}
	if _, err := book(env, b, sess.SessionID, "member"); err != nil {
		t.Errorf("A 取消后 B 期望成功，实际: %v", err)
	}
	// 取消后可重新预约
	if _, err := book(env, a, sess.SessionID, "member"); !errors.Is(err, ErrSessionFull) {
		t.Errorf("名额已被 B 占用，期望 ErrSessionFull，实际: %v", err)
	}
}

func TestCancelBooking_Permissions(t *testing.T) {
	env, sem := newBookingEnv(t)
	sess := env.seedSession(t, sem.SemesterID, day(2025, 4, 9), 10, 2)
	owner := env.seedUser(t, "amy", 3, false)
	other := env.seedUser(t, "ben", 3, false)
	admin := env.seedUser(t, "root", 0, true)

	b, err := book(env, owner, sess.SessionID, "member")
	if err != nil {
		t.Fatalf("预约失败: %v", err)
	}
	if _, err := env.svc.Booking.CancelBooking(context.Background(), callerOf(other), b.ID); !errors.Is(err, ErrBookingForbidden) {
		t.Errorf("期望 ErrBookingForbidden，实际: %v", err)
	}
	resp, err := env.svc.Booking.CancelBooking(context.Background(), callerOf(admin), b.ID)
	if err != nil {
		t.Fatalf("管理员取消期望成功，实际: %v", err)
	}
	if !resp.Refunded {
		t.Error("管理员代取消也应退款给预约人")
	}
	if got := env.user(t, owner.UserID); got.RemainingSessions != 3 {
		t.Errorf("期望余额恢复为 3，实际: %d", got.RemainingSessions)
	}

	if _, err := env.svc.Booking.CancelBooking(context.Background(), callerOf(owner), "missing"); !errors.Is(err, ErrBookingNotFound) {
		t.Errorf("期望 ErrBookingNotFound，实际: %v", err)
	}
}

// ── ConfirmBooking 测试 ──

func TestConfirmBooking(t *testing.T) {
	env, sem := newBookingEnv(t)
	sess := env.seedSession(t, sem.SemesterID, day(2025, 4, 9), 10, 2)
	u := env.seedUser(t, "ben", 0, false)

	b, err := book(env, u, sess.SessionID, "casual")
	if err != nil {
		t.Fatalf("预约失败: %v", err)
	}
	resp, err := env.svc.Booking.ConfirmBooking(context.Background(), b.ID, "admin-1")
	if err != nil {
		t.Fatalf("期望成功，实际: %v", err)
	}
	if resp.Status != string(model.BookingConfirmed) || resp.ConfirmedAt == nil {
		t.Errorf("期望已确认: %+v", resp)
	}
	if env.events.count(mq.RoutingBookingConfirmed) != 1 {
		t.Error("期望发布一条确认事件")
	}

	if _, err := env.svc.Booking.ConfirmBooking(context.Background(), b.ID, "admin-1"); err != nil {
		t.Errorf("重复确认应成功，实际: %v", err)
	}
	if env.events.count(mq.RoutingBookingConfirmed) != 1 {
		t.Error("重复确认不应再次发布事件")
	}

	cancelled, err := env.svc.Booking.CancelBooking(context.Background(), callerOf(u), b.ID)
	if err != nil {
		t.Fatalf("取消失败: %v", err)
	}
	if cancelled.Refunded {
		t.Error("已确认的散客名额取消不退预付余额")
	}
	if _, err := env.svc.Booking.ConfirmBooking(context.Background(), b.ID, "admin-1"); !errors.Is(err, ErrBookingNotConfirmable) {
		t.Errorf("期望 ErrBookingNotConfirmable，实际: %v", err)
	}
}

// ── ListMine / ListBySession 测试 ──

func TestListBookings(t *testing.T) {
	env, sem := newBookingEnv(t)
	wed := env.seedSession(t, sem.SemesterID, day(2025, 4, 9), 10, 2)
	thu := env.seedSession(t, sem.SemesterID, day(2025, 4, 10), 10, 2)
	u := env.seedUser(t, "amy", 3, false)

	first, err := book(env, u, wed.SessionID, "member")
	if err != nil {
		t.Fatalf("预约失败: %v", err)
	}
	if _, err := book(env, u, thu.SessionID, "member"); err != nil {
		t.Fatalf("预约失败: %v", err)
	}
	if _, err := env.svc.Booking.CancelBooking(context.Background(), callerOf(u), first.ID); err != nil {
		t.Fatalf("取消失败: %v", err)
	}

	active, err := env.svc.Booking.ListMine(context.Background(), u.UserID, false)
	if err != nil || len(active) != 1 {
		t.Errorf("期望 1 条有效预约，实际: %d (%v)", len(active), err)
	}
	all, err := env.svc.Booking.ListMine(context.Background(), u.UserID, true)
	if err != nil || len(all) != 2 {
		t.Errorf("期望含已取消共 2 条，实际: %d (%v)", len(all), err)
	}

	roster, err := env.svc.Booking.ListBySession(context.Background(), thu.SessionID)
	if err != nil {
		t.Fatalf("期望成功，实际: %v", err)
	}
	if len(roster) != 1 || roster[0].User == nil || roster[0].User.Email != u.Email {
		t.Errorf("名单应附带用户信息: %+v", roster)
	}
	if _, err := env.svc.Booking.ListBySession(context.Background(), "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("期望 ErrSessionNotFound，实际: %v", err)
	}
}
