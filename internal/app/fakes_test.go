package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"civicvoice/api/internal/search"
	"civicvoice/api/internal/store"
	"civicvoice/api/internal/util"
)

// fakeStore is an in-memory DataStore with the same conditional-update
// semantics as the mongo implementation.
type fakeStore struct {
	mu         sync.Mutex
	users      map[string]store.User
	zones      map[string]store.Zone
	complaints map[string]store.Complaint
	comments   map[string]store.Comment
	clock      time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      make(map[string]store.User),
		zones:      make(map[string]store.Zone),
		complaints: make(map[string]store.Complaint),
		comments:   make(map[string]store.Comment),
		clock:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp so createdAt sorts are
// deterministic.
func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }

func (f *fakeStore) CreateUser(ctx context.Context, user store.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return store.ErrDuplicate
		}
	}
	user.CreatedAt = f.tick()
	user.UpdatedAt = user.CreatedAt
	f.users[user.ID] = user
	return nil
}

func (f *fakeStore) GetUserByID(ctx context.Context, id string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return store.User{}, store.ErrNotFound
}

func (f *fakeStore) ListUsers(ctx context.Context) ([]store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := make([]store.User, 0, len(f.users))
	for _, u := range f.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, nil
}

func (f *fakeStore) ListPartnersByCategory(ctx context.Context, category store.Category) ([]store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var partners []store.User
	for _, u := range f.users {
		if u.Role == "partner" && u.Category == category {
			partners = append(partners, u)
		}
	}
	sort.Slice(partners, func(i, j int) bool { return partners[i].Name < partners[j].Name })
	return partners, nil
}

func (f *fakeStore) SetUserBlocked(ctx context.Context, id string, blocked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.IsBlocked = blocked
	f.users[id] = user
	return nil
}

func (f *fakeStore) SetUserRole(ctx context.Context, id, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.Role = role
	f.users[id] = user
	return nil
}

func (f *fakeStore) CreateZone(ctx context.Context, zone store.Zone) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, z := range f.zones {
		if z.Name == zone.Name {
			return store.ErrDuplicate
		}
	}
	zone.CreatedAt = f.tick()
	f.zones[zone.ID] = zone
	return nil
}

func (f *fakeStore) GetZone(ctx context.Context, id string) (store.Zone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	zone, ok := f.zones[id]
	if !ok {
		return store.Zone{}, store.ErrNotFound
	}
	return zone, nil
}

func (f *fakeStore) ListZones(ctx context.Context) ([]store.Zone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	zones := make([]store.Zone, 0, len(f.zones))
	for _, z := range f.zones {
		zones = append(zones, z)
	}
	sort.Slice(zones, func(i, j int) bool { return zones[i].Name < zones[j].Name })
	return zones, nil
}

func (f *fakeStore) CreateComplaint(ctx context.Context, complaint store.Complaint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	complaint.CreatedAt = f.tick()
	complaint.UpdatedAt = complaint.CreatedAt
	if complaint.Upvotes == nil {
		complaint.Upvotes = []string{}
	}
	if complaint.CommentIDs == nil {
		complaint.CommentIDs = []string{}
	}
	f.complaints[complaint.ID] = complaint
	return nil
}

func (f *fakeStore) GetComplaint(ctx context.Context, id string) (store.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	complaint, ok := f.complaints[id]
	if !ok {
		return store.Complaint{}, store.ErrNotFound
	}
	return complaint, nil
}

func (f *fakeStore) listLocked(match func(store.Complaint) bool) []store.Complaint {
	var out []store.Complaint
	for _, c := range f.complaints {
		if match(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakeStore) ListComplaints(ctx context.Context, term string) ([]store.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if term == "" {
		return f.listLocked(func(store.Complaint) bool { return true }), nil
	}
	pattern := regexp.MustCompile("(?i)" + regexp.QuoteMeta(term))
	return f.listLocked(func(c store.Complaint) bool {
		return pattern.MatchString(c.Title) || pattern.MatchString(c.Description)
	}), nil
}

func (f *fakeStore) ListComplaintsByIDs(ctx context.Context, ids []string) ([]store.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	return f.listLocked(func(c store.Complaint) bool { return wanted[c.ID] }), nil
}

func (f *fakeStore) ListComplaintsByAuthor(ctx context.Context, authorID string) ([]store.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listLocked(func(c store.Complaint) bool { return c.AuthorID == authorID }), nil
}

func (f *fakeStore) TopComplaints(ctx context.Context, limit int) ([]store.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.listLocked(func(store.Complaint) bool { return true })
	sort.SliceStable(all, func(i, j int) bool { return all[i].UpvoteCount > all[j].UpvoteCount })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (f *fakeStore) ListAllComplaints(ctx context.Context) ([]store.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.listLocked(func(store.Complaint) bool { return true })
	sort.SliceStable(all, func(i, j int) bool { return all[i].UpvoteCount > all[j].UpvoteCount })
	return all, nil
}

func activeAssignment(c store.Complaint, partnerID string) bool {
	return c.AssignedTo == partnerID &&
		(c.Status == store.StatusAssigned || c.Status == store.StatusInProgress)
}

func (f *fakeStore) ListAssignedComplaints(ctx context.Context, partnerID string) ([]store.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listLocked(func(c store.Complaint) bool { return activeAssignment(c, partnerID) }), nil
}

func (f *fakeStore) CountActiveAssigned(ctx context.Context, partnerID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, c := range f.complaints {
		if activeAssignment(c, partnerID) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) UpdateComplaintContent(ctx context.Context, id, title, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	complaint, ok := f.complaints[id]
	if !ok {
		return store.ErrNotFound
	}
	if title != "" {
		complaint.Title = title
	}
	if description != "" {
		complaint.Description = description
	}
	complaint.UpdatedAt = f.tick()
	f.complaints[id] = complaint
	return nil
}

func (f *fakeStore) DeleteComplaint(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.complaints[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.complaints, id)
	return nil
}

func (f *fakeStore) AddUpvote(ctx context.Context, id, userID string) (store.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	complaint, ok := f.complaints[id]
	if !ok {
		return store.Complaint{}, store.ErrNotFound
	}
	for _, voter := range complaint.Upvotes {
		if voter == userID {
			return store.Complaint{}, store.ErrConflict
		}
	}
	complaint.Upvotes = append(append([]string{}, complaint.Upvotes...), userID)
	complaint.UpvoteCount++
	complaint.UpdatedAt = f.tick()
	f.complaints[id] = complaint
	return complaint, nil
}

func (f *fakeStore) RemoveUpvote(ctx context.Context, id, userID string) (store.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	complaint, ok := f.complaints[id]
	if !ok {
		return store.Complaint{}, store.ErrNotFound
	}
	index := -1
	for i, voter := range complaint.Upvotes {
		if voter == userID {
			index = i
			break
		}
	}
	if index < 0 {
		return store.Complaint{}, store.ErrConflict
	}
	upvotes := append([]string{}, complaint.Upvotes...)
	complaint.Upvotes = append(upvotes[:index], upvotes[index+1:]...)
	complaint.UpvoteCount--
	complaint.UpdatedAt = f.tick()
	f.complaints[id] = complaint
	return complaint, nil
}

func (f *fakeStore) IncrementStrikes(ctx context.Context, id string) (store.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	complaint, ok := f.complaints[id]
	if !ok {
		return store.Complaint{}, store.ErrNotFound
	}
	complaint.Strikes++
	complaint.UpdatedAt = f.tick()
	f.complaints[id] = complaint
	return complaint, nil
}

func (f *fakeStore) TransitionStatus(ctx context.Context, id string, from, to store.Status) (store.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	complaint, ok := f.complaints[id]
	if !ok {
		return store.Complaint{}, store.ErrNotFound
	}
	if complaint.Status != from {
		return store.Complaint{}, store.ErrConflict
	}
	complaint.Status = to
	complaint.UpdatedAt = f.tick()
	f.complaints[id] = complaint
	return complaint, nil
}

func (f *fakeStore) AssignComplaint(ctx context.Context, id, partnerID string) (store.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	complaint, ok := f.complaints[id]
	if !ok {
		return store.Complaint{}, store.ErrNotFound
	}
	if complaint.Status != store.StatusAdminAccepted {
		return store.Complaint{}, store.ErrConflict
	}
	complaint.Status = store.StatusAssigned
	complaint.AssignedTo = partnerID
	complaint.UpdatedAt = f.tick()
	f.complaints[id] = complaint
	return complaint, nil
}

func (f *fakeStore) AcceptAssignment(ctx context.Context, id, partnerID string, tentativeDate time.Time, workers string) (store.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	complaint, ok := f.complaints[id]
	if !ok {
		return store.Complaint{}, store.ErrNotFound
	}
	if complaint.AssignedTo != partnerID || complaint.Status != store.StatusAssigned {
		return store.Complaint{}, store.ErrConflict
	}
	complaint.Status = store.StatusInProgress
	complaint.TentativeDate = &tentativeDate
	complaint.AssignedWorkers = workers
	complaint.UpdatedAt = f.tick()
	f.complaints[id] = complaint
	return complaint, nil
}

func (f *fakeStore) RejectAssignment(ctx context.Context, id, partnerID, reason string) (store.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	complaint, ok := f.complaints[id]
	if !ok {
		return store.Complaint{}, store.ErrNotFound
	}
	if complaint.AssignedTo != partnerID || complaint.Status != store.StatusAssigned {
		return store.Complaint{}, store.ErrConflict
	}
	complaint.Status = store.StatusAdminAccepted
	complaint.AssignedTo = ""
	complaint.RejectionReason = reason
	complaint.UpdatedAt = f.tick()
	f.complaints[id] = complaint
	return complaint, nil
}

func (f *fakeStore) ResolveAssignment(ctx context.Context, id, partnerID, feedback, resolutionImage string) (store.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	complaint, ok := f.complaints[id]
	if !ok {
		return store.Complaint{}, store.ErrNotFound
	}
	if complaint.AssignedTo != partnerID || complaint.Status != store.StatusInProgress {
		return store.Complaint{}, store.ErrConflict
	}
	complaint.Status = store.StatusResolved
	complaint.PartnerFeedback = feedback
	complaint.ResolutionImage = resolutionImage
	complaint.UpdatedAt = f.tick()
	f.complaints[id] = complaint
	return complaint, nil
}

func (f *fakeStore) PushComment(ctx context.Context, complaintID, commentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	complaint, ok := f.complaints[complaintID]
	if !ok {
		return store.ErrNotFound
	}
	complaint.CommentIDs = append(append([]string{}, complaint.CommentIDs...), commentID)
	f.complaints[complaintID] = complaint
	return nil
}

func (f *fakeStore) PullComment(ctx context.Context, complaintID, commentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	complaint, ok := f.complaints[complaintID]
	if !ok {
		return store.ErrNotFound
	}
	var kept []string
	for _, id := range complaint.CommentIDs {
		if id != commentID {
			kept = append(kept, id)
		}
	}
	if kept == nil {
		kept = []string{}
	}
	complaint.CommentIDs = kept
	f.complaints[complaintID] = complaint
	return nil
}

func (f *fakeStore) CreateComment(ctx context.Context, comment store.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	comment.CreatedAt = f.tick()
	f.comments[comment.ID] = comment
	return nil
}

func (f *fakeStore) GetComment(ctx context.Context, id string) (store.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	comment, ok := f.comments[id]
	if !ok {
		return store.Comment{}, store.ErrNotFound
	}
	return comment, nil
}

func (f *fakeStore) ListCommentsByComplaint(ctx context.Context, complaintID string) ([]store.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Comment
	for _, c := range f.comments {
		if c.ComplaintID == complaintID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) DeleteComment(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.comments[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.comments, id)
	return nil
}

func (f *fakeStore) DeleteCommentsByComplaint(ctx context.Context, complaintID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.comments {
		if c.ComplaintID == complaintID {
			delete(f.comments, id)
		}
	}
	return nil
}

// fakeClassifier keys off a single word so tests control the category.
type fakeClassifier struct{}

func (fakeClassifier) Classify(text string) store.Category {
	if strings.Contains(strings.ToLower(text), "pothole") {
		return store.CategoryRoads
	}
	return store.CategoryOther
}

// fakeRevocations is an in-memory RevocationStore.
type fakeRevocations struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func newFakeRevocations() *fakeRevocations {
	return &fakeRevocations{revoked: make(map[string]bool)}
}

func (f *fakeRevocations) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[jti] = true
	return nil
}

func (f *fakeRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revoked[jti], nil
}

// fakeSearcher records index traffic and serves canned results.
type fakeSearcher struct {
	mu      sync.Mutex
	indexed map[string]search.ComplaintRecord
	results []string
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{indexed: make(map[string]search.ComplaintRecord)}
}

func (f *fakeSearcher) Search(ctx context.Context, q search.Query) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.results...), nil
}

func (f *fakeSearcher) IndexComplaint(rec search.ComplaintRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed[rec.ID] = rec
}

func (f *fakeSearcher) DeleteComplaint(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.indexed, id)
}

type testEnv struct {
	service *Service
	store   *fakeStore
	revoked *fakeRevocations
	server  *HTTPServer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	fs := newFakeStore()
	revoked := newFakeRevocations()
	service := NewService(ServiceOptions{
		Store:       fs,
		TokenSecret: "test-secret",
		SessionTTL:  time.Hour,
		Classifier:  fakeClassifier{},
		Revoked:     revoked,
	})
	return &testEnv{
		service: service,
		store:   fs,
		revoked: revoked,
		server:  NewHTTPServer(service, "*"),
	}
}

// seedUser inserts a user with a real bcrypt hash and returns it.
func (e *testEnv) seedUser(t *testing.T, name, email, role string, category store.Category) store.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := store.User{
		ID:            util.NewID("usr"),
		Name:          name,
		AnonymousName: "Quiet Mole",
		Email:         email,
		PasswordHash:  string(hash),
		Role:          role,
		Category:      category,
	}
	if err := e.store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func (e *testEnv) seedZone(t *testing.T, name string) store.Zone {
	t.Helper()
	zone := store.Zone{ID: util.NewID("zon"), Name: name}
	if err := e.store.CreateZone(context.Background(), zone); err != nil {
		t.Fatalf("seed zone: %v", err)
	}
	return zone
}

// sessionFor mints a session cookie for a seeded user.
func (e *testEnv) sessionFor(t *testing.T, user store.User) Session {
	t.Helper()
	session, err := e.service.issueSession(user)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	return session
}

func (e *testEnv) request(t *testing.T, method, path string, body string, session *Session) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != nil {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: session.Token})
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}
