package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/UoaWDCC/uabc-web-sub005/config"
	"github.com/UoaWDCC/uabc-web-sub005/internal/model"
	"github.com/UoaWDCC/uabc-web-sub005/internal/repository"
	"github.com/UoaWDCC/uabc-web-sub005/pkg/clock"
	pkgerrors "github.com/UoaWDCC/uabc-web-sub005/pkg/errors"
	"github.com/UoaWDCC/uabc-web-sub005/pkg/mq"
)

// ── 内存存储 ──
// 所有 mock 共享一把锁，行为上等价于每个方法都是一条原子 SQL；返回值均为副本

type memStore struct {
	mu        sync.Mutex
	seq       int
	semesters map[string]*model.Semester
	templates map[string]*model.ScheduleTemplate
	sessions  map[string]*model.GameSession
	ledgers   map[string]*model.SessionLedger
	bookings  map[string]*model.Booking
	users     map[string]*model.User
	policy    *model.BookingPolicy
	// locks 记录加锁读取的顺序，形如 "user:<id>"、"session:<id>"
	locks []string
}

func newMemStore() *memStore {
	return &memStore{
		semesters: make(map[string]*model.Semester),
		templates: make(map[string]*model.ScheduleTemplate),
		sessions:  make(map[string]*model.GameSession),
		ledgers:   make(map[string]*model.SessionLedger),
		bookings:  make(map[string]*model.Booking),
		users:     make(map[string]*model.User),
	}
}

func (st *memStore) nextID(prefix string) string {
	st.seq++
	return fmt.Sprintf("%s-%d", prefix, st.seq)
}

// newMockRepository 组装 mock Repository（无 db，BeginTx 返回 nil 事务）
func newMockRepository(st *memStore) *repository.Repository {
	return &repository.Repository{
		Semester:         &mockSemesterRepo{st},
		ScheduleTemplate: &mockTemplateRepo{st},
		GameSession:      &mockSessionRepo{st},
		SessionLedger:    &mockLedgerRepo{st},
		Booking:          &mockBookingRepo{st},
		User:             &mockUserRepo{st},
		BookingPolicy:    &mockPolicyRepo{st},
	}
}

// ── Mock SemesterRepository ──

type mockSemesterRepo struct{ st *memStore }

func (m *mockSemesterRepo) Create(_ context.Context, semester *model.Semester) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	if semester.SemesterID == "" {
		semester.SemesterID = m.st.nextID("sem")
	}
	semester.Version = 1
	cp := *semester
	m.st.semesters[semester.SemesterID] = &cp
	return nil
}

func (m *mockSemesterRepo) GetByID(_ context.Context, id string) (*model.Semester, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	if s, ok := m.st.semesters[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSemesterRepo) GetCurrent(_ context.Context, day time.Time) (*model.Semester, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	for _, s := range m.st.semesters {
		if !day.Before(s.StartDate) && !day.After(s.EndDate) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSemesterRepo) List(_ context.Context) ([]model.Semester, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	var result []model.Semester
	for _, s := range m.st.semesters {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartDate.After(result[j].StartDate) })
	return result, nil
}

func (m *mockSemesterRepo) Update(_ context.Context, semester *model.Semester) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	cur, ok := m.st.semesters[semester.SemesterID]
	if !ok || cur.Version != semester.Version {
		return pkgerrors.ErrOptimisticLock
	}
	semester.Version++
	cp := *semester
	m.st.semesters[semester.SemesterID] = &cp
	return nil
}

func (m *mockSemesterRepo) Delete(_ context.Context, id string) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	if _, ok := m.st.semesters[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	for sid, sess := range m.st.sessions {
		if sess.SemesterID != id {
			continue
		}
		for bid, b := range m.st.bookings {
			if b.SessionID == sid {
				delete(m.st.bookings, bid)
			}
		}
		delete(m.st.ledgers, sid)
		delete(m.st.sessions, sid)
	}
	for tid, tpl := range m.st.templates {
		if tpl.SemesterID == id {
			delete(m.st.templates, tid)
		}
	}
	delete(m.st.semesters, id)
	return nil
}

// ── Mock ScheduleTemplateRepository ──

type mockTemplateRepo struct{ st *memStore }

func (m *mockTemplateRepo) Create(_ context.Context, tpl *model.ScheduleTemplate) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	if tpl.TemplateID == "" {
		tpl.TemplateID = m.st.nextID("tpl")
	}
	tpl.Version = 1
	cp := *tpl
	cp.Semester = nil
	m.st.templates[tpl.TemplateID] = &cp
	return nil
}

func (m *mockTemplateRepo) GetByID(_ context.Context, id string) (*model.ScheduleTemplate, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	tpl, ok := m.st.templates[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *tpl
	if sem, ok := m.st.semesters[tpl.SemesterID]; ok {
		semCp := *sem
		cp.Semester = &semCp
	}
	return &cp, nil
}

func (m *mockTemplateRepo) ListBySemester(_ context.Context, semesterID string) ([]model.ScheduleTemplate, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	var result []model.ScheduleTemplate
	for _, tpl := range m.st.templates {
		if tpl.SemesterID == semesterID {
			result = append(result, *tpl)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TemplateID < result[j].TemplateID })
	return result, nil
}

func (m *mockTemplateRepo) Update(_ context.Context, tpl *model.ScheduleTemplate) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	cur, ok := m.st.templates[tpl.TemplateID]
	if !ok || cur.Version != tpl.Version {
		return pkgerrors.ErrOptimisticLock
	}
	tpl.Version++
	cp := *tpl
	cp.Semester = nil
	m.st.templates[tpl.TemplateID] = &cp
	return nil
}

func (m *mockTemplateRepo) Delete(_ context.Context, id string) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	if _, ok := m.st.templates[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	for _, sess := range m.st.sessions {
		if sess.TemplateID != nil && *sess.TemplateID == id {
			sess.TemplateID = nil
		}
	}
	delete(m.st.templates, id)
	return nil
}

// ── Mock GameSessionRepository ──

type mockSessionRepo struct{ st *memStore }

func (m *mockSessionRepo) insert(session *model.GameSession) {
	if session.SessionID == "" {
		session.SessionID = m.st.nextID("sess")
	}
	cp := *session
	cp.Semester = nil
	if session.TemplateID != nil {
		tid := *session.TemplateID
		cp.TemplateID = &tid
	}
	m.st.sessions[session.SessionID] = &cp
}

func (m *mockSessionRepo) Create(_ context.Context, session *model.GameSession) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	m.insert(session)
	return nil
}

func (m *mockSessionRepo) CreateIfAbsent(_ context.Context, session *model.GameSession) (bool, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	if session.TemplateID != nil {
		for _, s := range m.st.sessions {
			if s.TemplateID != nil && *s.TemplateID == *session.TemplateID && s.SessionDate.Equal(session.SessionDate) {
				return false, nil
			}
		}
	}
	m.insert(session)
	return true, nil
}

func (m *mockSessionRepo) GetByID(_ context.Context, id string) (*model.GameSession, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	return m.get(id)
}

func (m *mockSessionRepo) GetByIDForShare(_ context.Context, id string) (*model.GameSession, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	m.st.locks = append(m.st.locks, "session:"+id)
	sess, err := m.get(id)
	if err != nil {
		return nil, err
	}
	sess.Semester = nil
	return sess, nil
}

func (m *mockSessionRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.GameSession, error) {
	return m.GetByIDForShare(ctx, id)
}

func (m *mockSessionRepo) get(id string) (*model.GameSession, error) {
	sess, ok := m.st.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *sess
	if sem, ok := m.st.semesters[sess.SemesterID]; ok {
		semCp := *sem
		cp.Semester = &semCp
	}
	return &cp, nil
}

func (m *mockSessionRepo) ListByTemplate(_ context.Context, templateID string) ([]model.GameSession, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	var result []model.GameSession
	for _, s := range m.st.sessions {
		if s.TemplateID != nil && *s.TemplateID == templateID {
			result = append(result, *s)
		}
	}
	sortSessions(result)
	return result, nil
}

func (m *mockSessionRepo) List(_ context.Context, filter repository.SessionFilter) ([]model.GameSession, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	var result []model.GameSession
	for _, s := range m.st.sessions {
		if filter.SemesterID != "" && s.SemesterID != filter.SemesterID {
			continue
		}
		if filter.From != nil && s.StartTime.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !s.StartTime.Before(*filter.To) {
			continue
		}
		if !filter.IncludeCancelled && s.Status != model.SessionActive {
			continue
		}
		result = append(result, *s)
	}
	sortSessions(result)
	return result, nil
}

func (m *mockSessionRepo) UpdateStatus(_ context.Context, id string, status model.SessionStatus, _ string) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	sess, ok := m.st.sessions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	sess.Status = status
	return nil
}

// lockLog 返回加锁读取记录的副本并清空
func (st *memStore) lockLog() []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := st.locks
	st.locks = nil
	return out
}

func sortSessions(s []model.GameSession) {
	sort.Slice(s, func(i, j int) bool { return s[i].StartTime.Before(s[j].StartTime) })
}

// ── Mock SessionLedgerRepository ──

type mockLedgerRepo struct{ st *memStore }

func (m *mockLedgerRepo) Create(_ context.Context, ledger *model.SessionLedger) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	cp := *ledger
	m.st.ledgers[ledger.SessionID] = &cp
	return nil
}

func (m *mockLedgerRepo) Get(_ context.Context, sessionID string) (*model.SessionLedger, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	l, ok := m.st.ledgers[sessionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *mockLedgerRepo) TryReserve(_ context.Context, sessionID string, kind model.SlotKind) (model.ReserveOutcome, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	l, ok := m.st.ledgers[sessionID]
	if !ok {
		return model.ReserveLedgerMissing, nil
	}
	if l.CapacityOf(kind) == 0 {
		return model.ReserveSlotKindUnavailable, nil
	}
	if l.UsedOf(kind) >= l.CapacityOf(kind) {
		return model.ReserveSessionFull, nil
	}
	if kind == model.SlotCasual {
		l.CasualUsed++
	} else {
		l.MemberUsed++
	}
	return model.ReserveAdmitted, nil
}

func (m *mockLedgerRepo) Release(_ context.Context, sessionID string, kind model.SlotKind) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	l, ok := m.st.ledgers[sessionID]
	if !ok {
		return nil
	}
	if kind == model.SlotCasual && l.CasualUsed > 0 {
		l.CasualUsed--
	}
	if kind == model.SlotMember && l.MemberUsed > 0 {
		l.MemberUsed--
	}
	return nil
}

// ── Mock BookingRepository ──

type mockBookingRepo struct{ st *memStore }

func (m *mockBookingRepo) Create(_ context.Context, booking *model.Booking) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	for _, b := range m.st.bookings {
		if b.SessionID == booking.SessionID && b.UserID == booking.UserID && b.Status.Active() {
			return gorm.ErrDuplicatedKey
		}
	}
	if booking.BookingID == "" {
		booking.BookingID = m.st.nextID("bk")
	}
	booking.CreatedAt = time.Now()
	cp := *booking
	cp.Session, cp.User = nil, nil
	m.st.bookings[booking.BookingID] = &cp
	return nil
}

func (m *mockBookingRepo) withSession(b *model.Booking) *model.Booking {
	cp := *b
	if sess, ok := m.st.sessions[b.SessionID]; ok {
		sessCp := *sess
		cp.Session = &sessCp
	}
	return &cp
}

func (m *mockBookingRepo) GetByID(_ context.Context, id string) (*model.Booking, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	b, ok := m.st.bookings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.withSession(b), nil
}

func (m *mockBookingRepo) GetByIDForUpdate(_ context.Context, id string) (*model.Booking, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	b, ok := m.st.bookings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *mockBookingRepo) GetActiveBySessionAndUser(_ context.Context, sessionID, userID string) (*model.Booking, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	for _, b := range m.st.bookings {
		if b.SessionID == sessionID && b.UserID == userID && b.Status.Active() {
			cp := *b
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBookingRepo) CountActiveByUserBetween(_ context.Context, userID string, from, to time.Time) (int64, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	var n int64
	for _, b := range m.st.bookings {
		if b.UserID != userID || !b.Status.Active() {
			continue
		}
		sess, ok := m.st.sessions[b.SessionID]
		if !ok {
			continue
		}
		if !sess.StartTime.Before(from) && sess.StartTime.Before(to) {
			n++
		}
	}
	return n, nil
}

func (m *mockBookingRepo) ListByUser(_ context.Context, userID string, includeCancelled bool) ([]model.Booking, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	var result []model.Booking
	for _, b := range m.st.bookings {
		if b.UserID == userID && (includeCancelled || b.Status.Active()) {
			result = append(result, *m.withSession(b))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].BookingID < result[j].BookingID })
	return result, nil
}

func (m *mockBookingRepo) ListBySession(_ context.Context, sessionID string) ([]model.Booking, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	var result []model.Booking
	for _, b := range m.st.bookings {
		if b.SessionID != sessionID {
			continue
		}
		cp := *b
		if u, ok := m.st.users[b.UserID]; ok {
			uCp := *u
			cp.User = &uCp
		}
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].BookingID < result[j].BookingID })
	return result, nil
}

func (m *mockBookingRepo) ListActiveBySession(_ context.Context, sessionID string) ([]model.Booking, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	var result []model.Booking
	for _, b := range m.st.bookings {
		if b.SessionID == sessionID && b.Status.Active() {
			result = append(result, *b)
		}
	}
	return result, nil
}

func (m *mockBookingRepo) Transition(_ context.Context, booking *model.Booking, from model.BookingStatus) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	cur, ok := m.st.bookings[booking.BookingID]
	if !ok || cur.Status != from {
		return pkgerrors.ErrConflict
	}
	cur.Status = booking.Status
	cur.ConfirmedAt = booking.ConfirmedAt
	cur.CancelledAt = booking.CancelledAt
	return nil
}

// ── Mock UserRepository ──

type mockUserRepo struct{ st *memStore }

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	for _, u := range m.st.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == "" {
		user.UserID = m.st.nextID("user")
	}
	cp := *user
	m.st.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	if u, ok := m.st.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.User, error) {
	m.st.mu.Lock()
	m.st.locks = append(m.st.locks, "user:"+id)
	m.st.mu.Unlock()
	return m.GetByID(ctx, id)
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	for _, u := range m.st.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) UpdateQuota(_ context.Context, user *model.User) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	cur, ok := m.st.users[user.UserID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cur.RemainingSessions = user.RemainingSessions
	cur.Role = user.Role
	return nil
}

func (m *mockUserRepo) List(_ context.Context, offset, limit int) ([]model.User, int64, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	var all []model.User
	for _, u := range m.st.users {
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UserID < all[j].UserID })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// ── Mock BookingPolicyRepository ──

type mockPolicyRepo struct{ st *memStore }

func (m *mockPolicyRepo) Get(_ context.Context) (*model.BookingPolicy, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	if m.st.policy == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m.st.policy
	return &cp, nil
}

func (m *mockPolicyRepo) Update(_ context.Context, policy *model.BookingPolicy) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	cp := *policy
	cp.UpdatedAt = time.Now()
	m.st.policy = &cp
	return nil
}

// ── 测试环境 ──

var auckland = func() *time.Location {
	loc, err := time.LoadLocation("Pacific/Auckland")
	if err != nil {
		panic(err)
	}
	return loc
}()

// nzt 俱乐部时区下的时刻
func nzt(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, auckland)
}

// day 构造 DATE 列取值
func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// recordingPublisher 按发布顺序记录路由键与载荷
type recordingPublisher struct {
	mu      sync.Mutex
	records []published
}

type published struct {
	key   string
	event mq.BookingEvent
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	evt, _ := payload.(mq.BookingEvent)
	p.records = append(p.records, published{key: routingKey, event: evt})
	return nil
}

func (p *recordingPublisher) count(routingKey string) int {
	return len(p.all(routingKey))
}

// all 返回指定路由键下的全部事件
func (p *recordingPublisher) all(routingKey string) []mq.BookingEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []mq.BookingEvent
	for _, r := range p.records {
		if r.key == routingKey {
			out = append(out, r.event)
		}
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = nil
}

type testEnv struct {
	st     *memStore
	repo   *repository.Repository
	clock  *clock.Manual
	events *recordingPublisher
	svc    *Service
}

func testConfig() *config.Config {
	return &config.Config{
		Club: config.ClubConfig{
			Timezone:           "Pacific/Auckland",
			MemberWeeklyLimit:  2,
			CasualWeeklyLimit:  1,
			MaterializeWorkers: 4,
		},
	}
}

// newTestEnv 组装基于内存 mock 的全部 Service，时钟固定在 now
func newTestEnv(now time.Time) *testEnv {
	st := newMemStore()
	repo := newMockRepository(st)
	clk := clock.NewManual(now)
	events := &recordingPublisher{}
	svc := NewService(testConfig(), repo, Deps{Clock: clk, Events: events}, zap.NewNop())
	return &testEnv{st: st, repo: repo, clock: clk, events: events, svc: svc}
}

// seedSemester 2025 第一学期：03-01 至 06-01，04-14 至 04-20 期中假，每周一 12:00 开放预约
func (e *testEnv) seedSemester(t *testing.T) *model.Semester {
	t.Helper()
	sem := &model.Semester{
		Name:            "2025 Semester 1",
		StartDate:       day(2025, 3, 1),
		EndDate:         day(2025, 6, 1),
		BreakStart:      day(2025, 4, 14),
		BreakEnd:        day(2025, 4, 20),
		BookingOpenDay:  1,
		BookingOpenTime: "12:00",
	}
	if err := e.repo.Semester.Create(context.Background(), sem); err != nil {
		t.Fatalf("创建学期失败: %v", err)
	}
	return sem
}

// seedSession 直接写入一个 18:30-21:00 的场次及其台账
func (e *testEnv) seedSession(t *testing.T, semesterID string, date time.Time, capacity, casual int) *model.GameSession {
	t.Helper()
	sess := &model.GameSession{
		SemesterID:     semesterID,
		SessionDate:    date,
		StartTime:      nzt(date.Year(), date.Month(), date.Day(), 18, 30),
		EndTime:        nzt(date.Year(), date.Month(), date.Day(), 21, 0),
		VenueName:      "UniRec Centre",
		VenueAddress:   "17 Symonds Street, Auckland",
		Capacity:       capacity,
		CasualCapacity: casual,
		Status:         model.SessionActive,
	}
	ctx := context.Background()
	if err := e.repo.GameSession.Create(ctx, sess); err != nil {
		t.Fatalf("创建场次失败: %v", err)
	}
	if err := e.repo.SessionLedger.Create(ctx, model.NewSessionLedger(sess)); err != nil {
		t.Fatalf("创建台账失败: %v", err)
	}
	return sess
}

func (e *testEnv) seedUser(t *testing.T, name string, balance int, admin bool) *model.User {
	t.Helper()
	u := &model.User{
		FirstName:         name,
		Email:             name + "@aucklanduni.ac.nz",
		RemainingSessions: balance,
		Role:              model.DeriveRole(balance, admin),
	}
	if err := e.repo.User.Create(context.Background(), u); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	return u
}

func (e *testEnv) ledger(t *testing.T, sessionID string) *model.SessionLedger {
	t.Helper()
	l, err := e.repo.SessionLedger.Get(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("查询台账失败: %v", err)
	}
	return l
}

func (e *testEnv) user(t *testing.T, userID string) *model.User {
	t.Helper()
	u, err := e.repo.User.GetByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("查询用户失败: %v", err)
	}
	return u
}

func callerOf(u *model.User) Caller {
	return Caller{UserID: u.UserID, Role: u.Role}
}
