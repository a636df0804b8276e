package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"glowshot.app/glowshotcore/internal/clock"
	"glowshot.app/glowshotcore/internal/config"
	"glowshot.app/glowshotcore/internal/model"
	"glowshot.app/glowshotcore/pkg/apperror"
	"gorm.io/gorm"
)

// In-memory repository fakes mirroring the constraint semantics of the
// real postgres-backed implementations: unique indexes become map keys,
// ON CONFLICT DO NOTHING becomes an existence check.

func testConfig() *config.Config {
	return &config.Config{
		TimeZone:                "Europe/Moscow",
		HappyHourStart:          "15:00",
		HappyHourEnd:            "16:00",
		DailyVoteQuota:          20,
		MaxVotesPerAuthorPerDay: 5,
		MinScore:                1,
		MaxScore:                10,
		SubmissionsPerDay:       1,
		DailyViewsBudget:        100,
		TopN:                    10,
		MinVotesForTop:          7,
		DailyCreditAmount:       2,
		CreditShowsBase:         2,
		CreditShowsHappy:        4,
		ReferralCredits:         2,
		NotifyJitterMax:         15 * time.Minute,
		NotifyMaxAttempts:       5,
		NotifyBackoffFloor:      30 * time.Second,
		NotifyBackoffStep:       60 * time.Second,
		NotifyBackoffCap:        15 * time.Minute,
		DispatchInterval:        30 * time.Second,
		DispatchBatchSize:       50,
	}
}

func testClock(t interface{ Fatalf(string, ...interface{}) }) *clock.Clock {
	clk, err := clock.New("Europe/Moscow")
	if err != nil {
		t.Fatalf("clock.New() error = %v", err)
	}
	if err := clk.SetBonusWindow("15:00", "16:00"); err != nil {
		t.Fatalf("SetBonusWindow() error = %v", err)
	}
	return clk
}

// --- photo repository ---

type fakePhotoRepo struct {
	mu     sync.Mutex
	photos map[uuid.UUID]*model.Photo
}

func newFakePhotoRepo() *fakePhotoRepo {
	return &fakePhotoRepo{photos: make(map[uuid.UUID]*model.Photo)}
}

func (r *fakePhotoRepo) Create(ctx context.Context, photo *model.Photo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if photo.ID == uuid.Nil {
		photo.ID = uuid.New()
	}
	if photo.CreatedAt.IsZero() {
		photo.CreatedAt = time.Now()
	}
	cp := *photo
	r.photos[photo.ID] = &cp
	return nil
}

func (r *fakePhotoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Photo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.photos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePhotoRepo) Save(ctx context.Context, photo *model.Photo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *photo
	r.photos[photo.ID] = &cp
	return nil
}

func (r *fakePhotoRepo) CountByUserAndDay(ctx context.Context, userID uuid.UUID, day string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.photos {
		if p.UserID == userID && p.SubmitDay == day && p.Status != model.PhotoDeleted {
			n++
		}
	}
	return n, nil
}

func (r *fakePhotoRepo) ArchiveExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.photos {
		if p.Status == model.PhotoActive && !p.ExpiresAt.After(now) {
			p.Status = model.PhotoArchived
			at := now
			p.ArchivedAt = &at
			n++
		}
	}
	return n, nil
}

func (r *fakePhotoRepo) CountActiveByDay(ctx context.Context, day string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.photos {
		if p.SubmitDay == day && p.Status == model.PhotoActive {
			n++
		}
	}
	return n, nil
}

func (r *fakePhotoRepo) ListForRanking(ctx context.Context, day string) ([]model.Photo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Photo
	for _, p := range r.photos {
		if p.SubmitDay == day && p.Status != model.PhotoDeleted {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SumScore != out[j].SumScore {
			return out[i].SumScore > out[j].SumScore
		}
		if out[i].VotesCount != out[j].VotesCount {
			return out[i].VotesCount > out[j].VotesCount
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *fakePhotoRepo) NextForViewer(ctx context.Context, viewerID uuid.UUID) (*model.Photo, error) {
	return nil, gorm.ErrRecordNotFound
}

// Unlike the SQL version this does not exclude already published days;
// callers tolerate that by skipping days whose snapshot exists.
func (r *fakePhotoRepo) ListUnfinalizedDays(ctx context.Context, throughDay string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	var days []string
	for _, p := range r.photos {
		if p.Status == model.PhotoDeleted || p.SubmitDay > throughDay || seen[p.SubmitDay] {
			continue
		}
		seen[p.SubmitDay] = true
		days = append(days, p.SubmitDay)
	}
	sort.Strings(days)
	return days, nil
}

// --- vote repository ---

type fakeVoteRepo struct {
	mu          sync.Mutex
	votes       map[string]*model.Vote // photoID|voterID
	views       map[string]bool        // photoID|viewerID
	authorVotes map[string]int         // day|voterID|authorID
	photos      *fakePhotoRepo
	stats       *fakeStatsRepo
}

func newFakeVoteRepo(photos *fakePhotoRepo, stats *fakeStatsRepo) *fakeVoteRepo {
	return &fakeVoteRepo{
		votes:       make(map[string]*model.Vote),
		views:       make(map[string]bool),
		authorVotes: make(map[string]int),
		photos:      photos,
		stats:       stats,
	}
}

func voteKey(photoID, voterID uuid.UUID) string {
	return fmt.Sprintf("%s|%s", photoID, voterID)
}

func (r *fakeVoteRepo) CastVote(ctx context.Context, vote *model.Vote, authorID uuid.UUID, day string, happyHour bool, dailyQuota, perAuthorQuota int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := voteKey(vote.PhotoID, vote.VoterID)
	if _, exists := r.votes[key]; exists {
		return apperror.ErrAlreadyExists
	}

	// The real implementation re-checks quotas on the incremented
	// counters and rolls the transaction back; under one mutex the
	// equivalent is rejecting before any mutation.
	if r.authorVotes[fmt.Sprintf("%s|%s|%s", day, vote.VoterID, authorID)]+1 > perAuthorQuota {
		return apperror.ErrQuotaExceeded
	}
	r.stats.mu.Lock()
	s := r.stats.get(vote.VoterID)
	votesToday := 0
	if s.LastVoteDay == day {
		votesToday = s.VotesGivenToday
	}
	r.stats.mu.Unlock()
	if votesToday+1 > dailyQuota {
		return apperror.ErrQuotaExceeded
	}

	cp := *vote
	r.votes[key] = &cp

	r.photos.mu.Lock()
	if p, ok := r.photos.photos[vote.PhotoID]; ok {
		p.VotesCount++
		p.SumScore += vote.Score
		p.AvgScore = float64(p.SumScore) / float64(p.VotesCount)
	}
	r.photos.mu.Unlock()

	r.authorVotes[fmt.Sprintf("%s|%s|%s", day, vote.VoterID, authorID)]++

	r.stats.mu.Lock()
	s = r.stats.get(vote.VoterID)
	if s.LastVoteDay != day {
		s.VotesGivenToday = 0
		s.VotesGivenHappyHourToday = 0
		s.LastVoteDay = day
	}
	s.VotesGivenToday++
	if happyHour {
		s.VotesGivenHappyHourToday++
	}
	r.stats.mu.Unlock()

	return nil
}

func (r *fakeVoteRepo) AuthorVotesToday(ctx context.Context, day string, voterID, authorID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.authorVotes[fmt.Sprintf("%s|%s|%s", day, voterID, authorID)], nil
}

func (r *fakeVoteRepo) RecordView(ctx context.Context, photoID, viewerID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := voteKey(photoID, viewerID)
	if r.views[key] {
		return false, nil
	}
	r.views[key] = true

	r.photos.mu.Lock()
	if p, ok := r.photos.photos[photoID]; ok && p.ViewsCount < p.DailyViewsBudget {
		p.ViewsCount++
	}
	r.photos.mu.Unlock()

	return true, nil
}

// --- stats repository ---

type fakeStatsRepo struct {
	mu       sync.Mutex
	stats    map[uuid.UUID]*model.UserStats
	pending  map[uuid.UUID]*model.PendingReferral
	rewards  map[uuid.UUID]*model.ReferralReward
}

func newFakeStatsRepo() *fakeStatsRepo {
	return &fakeStatsRepo{
		stats:   make(map[uuid.UUID]*model.UserStats),
		pending: make(map[uuid.UUID]*model.PendingReferral),
		rewards: make(map[uuid.UUID]*model.ReferralReward),
	}
}

// get mirrors the lazy-row semantics: callers see zero-value stats for
// unknown users. Caller must hold mu.
func (r *fakeStatsRepo) get(userID uuid.UUID) *model.UserStats {
	s, ok := r.stats[userID]
	if !ok {
		s = &model.UserStats{UserID: userID}
		r.stats[userID] = s
	}
	return s
}

func (r *fakeStatsRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.UserStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stats[userID]; ok {
		cp := *s
		return &cp, nil
	}
	return &model.UserStats{UserID: userID}, nil
}

func (r *fakeStatsRepo) AddShowTokens(ctx context.Context, userID uuid.UUID, amount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.get(userID).ShowTokens += amount
	return nil
}

func (r *fakeStatsRepo) AddCredits(ctx context.Context, userID uuid.UUID, amount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.get(userID).Credits += amount
	return nil
}

func (r *fakeStatsRepo) GrantDailyCredits(ctx context.Context, userID uuid.UUID, day string, amount int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.get(userID)
	if s.LastDailyGrantDay == day {
		return false, nil
	}
	s.Credits += amount
	s.LastDailyGrantDay = day
	return true, nil
}

func (r *fakeStatsRepo) UserIDsActiveOn(ctx context.Context, day string) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for id, s := range r.stats {
		if s.LastVoteDay == day {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *fakeStatsRepo) CreatePendingReferral(ctx context.Context, ref *model.PendingReferral) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.pending[ref.InvitedUserID]; exists {
		return nil
	}
	cp := *ref
	r.pending[ref.InvitedUserID] = &cp
	return nil
}

func (r *fakeStatsRepo) GetPendingReferral(ctx context.Context, invitedUserID uuid.UUID) (*model.PendingReferral, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, ok := r.pending[invitedUserID]
	if !ok {
		return nil, nil
	}
	cp := *ref
	return &cp, nil
}

func (r *fakeStatsRepo) DeletePendingReferral(ctx context.Context, invitedUserID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, invitedUserID)
	return nil
}

func (r *fakeStatsRepo) CreateReferralReward(ctx context.Context, reward *model.ReferralReward) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rewards[reward.InvitedUserID]; exists {
		return false, nil
	}
	cp := *reward
	r.rewards[reward.InvitedUserID] = &cp
	return true, nil
}

func (r *fakeStatsRepo) CountRewardsByInviter(ctx context.Context, inviterID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, rw := range r.rewards {
		if rw.InviterUserID == inviterID {
			n++
		}
	}
	return n, nil
}

// --- user repository ---

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (r *fakeUserRepo) add(username string, code string) *model.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := &model.User{ID: uuid.New(), Username: username}
	if code != "" {
		u.ReferralCode = &code
	}
	r.users[u.ID] = u
	return u
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	u, ok := r.users[uid]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByReferralCode(ctx context.Context, code string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ReferralCode != nil && *u.ReferralCode == code {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) EnsureUser(ctx context.Context, username string) (*model.User, error) {
	if u, err := r.FindByUsername(ctx, username); err == nil {
		return u, nil
	}
	return r.add(username, ""), nil
}

func (r *fakeUserRepo) SetReferralCode(ctx context.Context, userID uuid.UUID, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.ReferralCode = &code
	}
	return nil
}

func (r *fakeUserRepo) PromoteToAdmin(ctx context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.IsAdmin = true
	}
	return nil
}

func (r *fakeUserRepo) ListAdmins(ctx context.Context) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var admins []model.User
	for _, u := range r.users {
		if u.IsAdmin {
			admins = append(admins, *u)
		}
	}
	return admins, nil
}

// --- result repository ---

type fakeResultRepo struct {
	mu          sync.Mutex
	ranks       map[string]*model.ResultRank // photoID|day
	caches      map[string]*model.DailyResultsCache
	rankInserts int // rows actually written, across all calls
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{
		ranks:  make(map[string]*model.ResultRank),
		caches: make(map[string]*model.DailyResultsCache),
	}
}

func (r *fakeResultRepo) InsertRanks(ctx context.Context, ranks []model.ResultRank) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rank := range ranks {
		key := fmt.Sprintf("%s|%s", rank.PhotoID, rank.SubmitDay)
		if _, exists := r.ranks[key]; exists {
			continue
		}
		cp := rank
		r.ranks[key] = &cp
		r.rankInserts++
	}
	return nil
}

func (r *fakeResultRepo) GetCache(ctx context.Context, day string) (*model.DailyResultsCache, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.caches[day]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *fakeResultRepo) CreateCache(ctx context.Context, cache *model.DailyResultsCache) (*model.DailyResultsCache, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.caches[cache.SubmitDay]; ok {
		cp := *existing
		return &cp, false, nil
	}
	cp := *cache
	r.caches[cache.SubmitDay] = &cp
	out := cp
	return &out, true, nil
}

func (r *fakeResultRepo) MarkNotified(ctx context.Context, day string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.caches[day]; ok && c.NotifiedAt == nil {
		t := at
		c.NotifiedAt = &t
	}
	return nil
}

// --- notification repository ---

type fakeNotificationRepo struct {
	mu     sync.Mutex
	nextID uint
	items  map[uint]*model.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{items: make(map[uint]*model.Notification)}
}

func (r *fakeNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	n.ID = r.nextID
	cp := *n
	r.items[n.ID] = &cp
	return nil
}

func (r *fakeNotificationRepo) CreateBatch(ctx context.Context, ns []model.Notification) error {
	for i := range ns {
		if err := r.Create(ctx, &ns[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeNotificationRepo) FindByID(ctx context.Context, id uint) (*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *n
	return &cp, nil
}

func (r *fakeNotificationRepo) DequeueDue(ctx context.Context, now time.Time, limit int) ([]model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Notification
	for _, n := range r.items {
		if n.Status == model.NotificationPending && !n.RunAfter.After(now) {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RunAfter.Before(out[j].RunAfter) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkSent(ctx context.Context, id uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n, ok := r.items[id]; ok {
		n.Status = model.NotificationSent
		t := at
		n.SentAt = &t
	}
	return nil
}

func (r *fakeNotificationRepo) Reschedule(ctx context.Context, id uint, lastError string, runAfter time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n, ok := r.items[id]; ok {
		n.Attempts++
		n.LastError = &lastError
		n.RunAfter = runAfter
	}
	return nil
}

func (r *fakeNotificationRepo) MarkFailedPermanently(ctx context.Context, id uint, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n, ok := r.items[id]; ok {
		n.Attempts++
		n.LastError = &lastError
		n.Status = model.NotificationFailed
	}
	return nil
}

func (r *fakeNotificationRepo) CountByStatus(ctx context.Context, status model.NotificationStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, item := range r.items {
		if item.Status == status {
			n++
		}
	}
	return n, nil
}

// --- credits service stub for voting tests ---

type stubCreditsService struct {
	mu        sync.Mutex
	qualified []uuid.UUID
}

func (s *stubCreditsService) GrantDailyCredits(ctx context.Context, userID uuid.UUID, day string) (bool, error) {
	return false, nil
}

func (s *stubCreditsService) GrantDailyCreditsForActive(ctx context.Context, day string) (int, error) {
	return 0, nil
}

func (s *stubCreditsService) GetStats(ctx context.Context, userID uuid.UUID) (*model.UserStats, error) {
	return &model.UserStats{UserID: userID}, nil
}

func (s *stubCreditsService) RegisterPendingReferral(ctx context.Context, invitedUserID uuid.UUID, code string) error {
	return nil
}

func (s *stubCreditsService) QualifyReferral(ctx context.Context, invitedUserID uuid.UUID, qualifiedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.qualified = append(s.qualified, invitedUserID)
	return nil
}

func (s *stubCreditsService) RewardReferral(ctx context.Context, invitedUserID, inviterUserID uuid.UUID, qualifiedAt time.Time) (bool, error) {
	return false, nil
}

func (s *stubCreditsService) CountRewardsByInviter(ctx context.Context, inviterID uuid.UUID) (int64, error) {
	return 0, nil
}

// --- storage stub ---

type stubStorage struct {
	uploads int
}

func (s *stubStorage) UploadPhoto(ctx context.Context, r io.Reader, fileName string) (string, error) {
	s.uploads++
	return "https://cdn.example.com/" + fileName, nil
}

func (s *stubStorage) DeletePhoto(ctx context.Context, fileURL string) error {
	return nil
}
