// Package app wires the HTTP surface to the domain services: sessions,
// complaints, voting, comments, moderation, and the partner workflow.
package app

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"civicvoice/api/internal/auth"
	"civicvoice/api/internal/authpw"
	"civicvoice/api/internal/rbac"
	"civicvoice/api/internal/search"
	"civicvoice/api/internal/store"
	"civicvoice/api/internal/util"
)

// DataStore is the persistence surface the service depends on. *store.Mongo
// implements it; tests use an in-memory fake.
type DataStore interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, user store.User) error
	GetUserByID(ctx context.Context, id string) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	ListUsers(ctx context.Context) ([]store.User, error)
	ListPartnersByCategory(ctx context.Context, category store.Category) ([]store.User, error)
	SetUserBlocked(ctx context.Context, id string, blocked bool) error
	SetUserRole(ctx context.Context, id, role string) error

	CreateZone(ctx context.Context, zone store.Zone) error
	GetZone(ctx context.Context, id string) (store.Zone, error)
	ListZones(ctx context.Context) ([]store.Zone, error)

	CreateComplaint(ctx context.Context, complaint store.Complaint) error
	GetComplaint(ctx context.Context, id string) (store.Complaint, error)
	ListComplaints(ctx context.Context, search string) ([]store.Complaint, error)
	ListComplaintsByIDs(ctx context.Context, ids []string) ([]store.Complaint, error)
	ListComplaintsByAuthor(ctx context.Context, authorID string) ([]store.Complaint, error)
	TopComplaints(ctx context.Context, limit int) ([]store.Complaint, error)
	ListAllComplaints(ctx context.Context) ([]store.Complaint, error)
	ListAssignedComplaints(ctx context.Context, partnerID string) ([]store.Complaint, error)
	CountActiveAssigned(ctx context.Context, partnerID string) (int, error)
	UpdateComplaintContent(ctx context.Context, id, title, description string) error
	DeleteComplaint(ctx context.Context, id string) error
	AddUpvote(ctx context.Context, id, userID string) (store.Complaint, error)
	RemoveUpvote(ctx context.Context, id, userID string) (store.Complaint, error)
	IncrementStrikes(ctx context.Context, id string) (store.Complaint, error)
	TransitionStatus(ctx context.Context, id string, from, to store.Status) (store.Complaint, error)
	AssignComplaint(ctx context.Context, id, partnerID string) (store.Complaint, error)
	AcceptAssignment(ctx context.Context, id, partnerID string, tentativeDate time.Time, workers string) (store.Complaint, error)
	RejectAssignment(ctx context.Context, id, partnerID, reason string) (store.Complaint, error)
	ResolveAssignment(ctx context.Context, id, partnerID, feedback, resolutionImage string) (store.Complaint, error)
	PushComment(ctx context.Context, complaintID, commentID string) error
	PullComment(ctx context.Context, complaintID, commentID string) error

	CreateComment(ctx context.Context, comment store.Comment) error
	GetComment(ctx context.Context, id string) (store.Comment, error)
	ListCommentsByComplaint(ctx context.Context, complaintID string) ([]store.Comment, error)
	DeleteComment(ctx context.Context, id string) error
	DeleteCommentsByComplaint(ctx context.Context, complaintID string) error
}

// Classifier assigns a category to free-text complaint descriptions.
type Classifier interface {
	Classify(text string) store.Category
}

// Uploader stores and serves complaint images. May be nil, in which case
// image uploads are rejected and existing references 404.
type Uploader interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}

// Searcher answers keyword searches and keeps the index current.
// *search.Service implements it.
type Searcher interface {
	Search(ctx context.Context, q search.Query) ([]string, error)
	IndexComplaint(rec search.ComplaintRecord)
	DeleteComplaint(id string)
}

// RevocationStore remembers revoked session token IDs. May be nil, in
// which case logout only clears the cookie.
type RevocationStore interface {
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Session is the resolved caller identity attached to each request.
type Session struct {
	UserID   string
	Name     string
	Role     rbac.Role
	Category store.Category
	JTI      string
	Token    string
	Exp      time.Time
}

// ServiceOptions collects the service dependencies.
type ServiceOptions struct {
	Store       DataStore
	TokenSecret string
	SessionTTL  time.Duration
	Classifier  Classifier
	Uploads     Uploader
	Search      Searcher
	Revoked     RevocationStore
}

type Service struct {
	store      DataStore
	authpw     *authpw.Service
	secret     []byte
	sessionTTL time.Duration
	classifier Classifier
	uploads    Uploader
	search     Searcher
	revoked    RevocationStore
}

func NewService(opts ServiceOptions) *Service {
	ttl := opts.SessionTTL
	if ttl == 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Service{
		store:      opts.Store,
		authpw:     authpw.NewService(opts.Store),
		secret:     []byte(opts.TokenSecret),
		sessionTTL: ttl,
		classifier: opts.Classifier,
		uploads:    opts.Uploads,
		search:     opts.Search,
		revoked:    opts.Revoked,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// RevocationPing checks the revocation store when one is configured and it
// exposes a health check. checked is false when there is nothing to check.
func (s *Service) RevocationPing(ctx context.Context) (checked bool, err error) {
	if s.revoked == nil {
		return false, nil
	}
	pinger, ok := s.revoked.(interface{ Ping(ctx context.Context) error })
	if !ok {
		return false, nil
	}
	return true, pinger.Ping(ctx)
}

func (s *Service) Can(role rbac.Role, action rbac.Action) bool {
	return rbac.Can(role, action)
}

func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}

// UserView is a user record with the password hash stripped.
type UserView struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	AnonymousName string         `json:"anonymousName"`
	Email         string         `json:"email"`
	Role          string         `json:"role"`
	IsBlocked     bool           `json:"isBlocked"`
	Category      store.Category `json:"category,omitempty"`
	ZoneID        string         `json:"zone,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

func toUserView(u store.User) UserView {
	return UserView{
		ID:            u.ID,
		Name:          u.Name,
		AnonymousName: u.AnonymousName,
		Email:         u.Email,
		Role:          u.Role,
		IsBlocked:     u.IsBlocked,
		Category:      u.Category,
		ZoneID:        u.ZoneID,
		CreatedAt:     u.CreatedAt,
	}
}

// Register creates a citizen account and opens a session for it.
func (s *Service) Register(ctx context.Context, name, email, password string) (Session, UserView, error) {
	user, err := s.authpw.Register(ctx, authpw.RegisterRequest{
		Name:     name,
		Email:    email,
		Password: password,
	})
	if err != nil {
		return Session{}, UserView{}, err
	}
	session, err := s.issueSession(user)
	if err != nil {
		return Session{}, UserView{}, err
	}
	return session, toUserView(user), nil
}

// Login authenticates and opens a session. Blocked users can log in; every
// guarded action afterwards is rejected by SessionFromToken.
func (s *Service) Login(ctx context.Context, email, password string) (Session, UserView, error) {
	user, err := s.authpw.Authenticate(ctx, email, password)
	if err != nil {
		return Session{}, UserView{}, err
	}
	session, err := s.issueSession(user)
	if err != nil {
		return Session{}, UserView{}, err
	}
	return session, toUserView(user), nil
}

// Logout revokes the session token so it dies before its natural expiry.
func (s *Service) Logout(ctx context.Context, session Session) {
	if s.revoked == nil || session.JTI == "" {
		return
	}
	if err := s.revoked.RevokeToken(ctx, session.JTI, session.Exp); err != nil {
		log.Printf("logout: revoke token %s: %v", session.JTI, err)
	}
}

// SessionFromToken verifies the cookie token and re-resolves the caller
// from the store, so role changes and blocks take effect immediately.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken(s.secret, token)
	if err != nil {
		return Session{}, err
	}
	if s.revoked != nil {
		revoked, err := s.revoked.IsRevoked(ctx, claims.JTI)
		if err != nil {
			return Session{}, err
		}
		if revoked {
			return Session{}, auth.ErrInvalidToken
		}
	}
	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}
	if user.IsBlocked {
		return Session{}, domainError(http.StatusForbidden, "USER_BLOCKED", "Account is blocked", nil)
	}
	return Session{
		UserID:   user.ID,
		Name:     user.Name,
		Role:     rbac.Normalize(user.Role),
		Category: user.Category,
		JTI:      claims.JTI,
		Token:    token,
		Exp:      time.Unix(claims.Exp, 0),
	}, nil
}

// Profile returns the caller's own record.
func (s *Service) Profile(ctx context.Context, session Session) (UserView, error) {
	user, err := s.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		return UserView{}, err
	}
	return toUserView(user), nil
}

// Zones lists zones for the complaint and staff-creation forms.
func (s *Service) Zones(ctx context.Context) ([]store.Zone, error) {
	zones, err := s.store.ListZones(ctx)
	if err != nil {
		return nil, err
	}
	if zones == nil {
		zones = []store.Zone{}
	}
	return zones, nil
}

func (s *Service) issueSession(user store.User) (Session, error) {
	jti := util.NewID("jti")
	exp := time.Now().Add(s.sessionTTL)
	token, err := auth.IssueToken(s.secret, auth.Claims{
		Sub: user.ID,
		JTI: jti,
		Exp: exp.Unix(),
	})
	if err != nil {
		return Session{}, err
	}
	return Session{
		UserID:   user.ID,
		Name:     user.Name,
		Role:     rbac.Normalize(user.Role),
		Category: user.Category,
		JTI:      jti,
		Token:    token,
		Exp:      exp,
	}, nil
}
