package app

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"path"
	"strings"
	"time"

	"civicvoice/api/internal/rbac"
	"civicvoice/api/internal/search"
	"civicvoice/api/internal/store"
	"civicvoice/api/internal/util"
)

// AuthorRef is the author info embedded in complaint payloads. Public
// listings carry the anonymous name only; admin listings add name and email.
type AuthorRef struct {
	ID            string `json:"id"`
	AnonymousName string `json:"anonymousName"`
	Name          string `json:"name,omitempty"`
	Email         string `json:"email,omitempty"`
}

type ComplaintView struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Image       string             `json:"image,omitempty"`
	Status      store.Status       `json:"status"`
	Category    store.Category     `json:"category"`
	ZoneID      string             `json:"zone"`
	Address     string             `json:"address,omitempty"`
	Coordinates *store.Coordinates `json:"coordinates,omitempty"`
	Author      AuthorRef          `json:"author"`
	AssignedTo  string             `json:"assignedTo,omitempty"`
	UpvoteCount int                `json:"upvoteCount"`
	Upvoted     bool               `json:"upvoted"`
	CommentIDs  []string           `json:"comments"`
	Strikes     int                `json:"strikes"`

	RejectionReason string     `json:"rejectionReason,omitempty"`
	TentativeDate   *time.Time `json:"tentativeDate,omitempty"`
	AssignedWorkers string     `json:"assignedWorkers,omitempty"`
	ResolutionImage string     `json:"resolutionImage,omitempty"`
	PartnerFeedback string     `json:"partnerFeedback,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toComplaintView(c store.Complaint, author store.User, viewerID string, adminView bool) ComplaintView {
	ref := AuthorRef{ID: c.AuthorID, AnonymousName: author.AnonymousName}
	if adminView {
		ref.Name = author.Name
		ref.Email = author.Email
	}
	upvoted := false
	for _, id := range c.Upvotes {
		if id == viewerID {
			upvoted = true
			break
		}
	}
	comments := c.CommentIDs
	if comments == nil {
		comments = []string{}
	}
	return ComplaintView{
		ID:              c.ID,
		Title:           c.Title,
		Description:     c.Description,
		Image:           c.Image,
		Status:          c.Status,
		Category:        c.Category,
		ZoneID:          c.ZoneID,
		Address:         c.Address,
		Coordinates:     c.Coordinates,
		Author:          ref,
		AssignedTo:      c.AssignedTo,
		UpvoteCount:     c.UpvoteCount,
		Upvoted:         upvoted,
		CommentIDs:      comments,
		Strikes:         c.Strikes,
		RejectionReason: c.RejectionReason,
		TentativeDate:   c.TentativeDate,
		AssignedWorkers: c.AssignedWorkers,
		ResolutionImage: c.ResolutionImage,
		PartnerFeedback: c.PartnerFeedback,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// authorIndex loads the authors referenced by a batch of complaints.
// Missing authors (deleted accounts) resolve to a zero user.
func (s *Service) authorIndex(ctx context.Context, complaints []store.Complaint) map[string]store.User {
	index := make(map[string]store.User)
	for _, c := range complaints {
		if _, seen := index[c.AuthorID]; seen {
			continue
		}
		user, err := s.store.GetUserByID(ctx, c.AuthorID)
		if err != nil {
			index[c.AuthorID] = store.User{}
			continue
		}
		index[c.AuthorID] = user
	}
	return index
}

func (s *Service) complaintViews(ctx context.Context, complaints []store.Complaint, viewerID string, adminView bool) []ComplaintView {
	authors := s.authorIndex(ctx, complaints)
	views := make([]ComplaintView, 0, len(complaints))
	for _, c := range complaints {
		views = append(views, toComplaintView(c, authors[c.AuthorID], viewerID, adminView))
	}
	return views
}

// ImageUpload carries a multipart file into the object store.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

type CreateComplaintInput struct {
	Title       string
	Description string
	ZoneID      string
	Address     string
	Coordinates *store.Coordinates
	Image       *ImageUpload
}

// CreateComplaint files a new complaint. The category comes from the
// classifier; the image, when present, is stored first so a failed upload
// never leaves a dangling reference.
func (s *Service) CreateComplaint(ctx context.Context, session Session, input CreateComplaintInput) (ComplaintView, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return ComplaintView{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title and description are required", nil)
	}
	if strings.TrimSpace(input.ZoneID) == "" {
		return ComplaintView{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "zone is required", nil)
	}
	if _, err := s.store.GetZone(ctx, input.ZoneID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ComplaintView{}, domainError(http.StatusUnprocessableEntity, "UNKNOWN_ZONE", "zone does not exist", nil)
		}
		return ComplaintView{}, err
	}

	imageKey, err := s.storeImage(ctx, input.Image)
	if err != nil {
		return ComplaintView{}, err
	}

	category := store.CategoryPendingClassification
	if s.classifier != nil {
		category = s.classifier.Classify(description)
	}

	complaint := store.Complaint{
		ID:          util.NewID("cmp"),
		Title:       title,
		Description: description,
		Image:       imageKey,
		Status:      store.StatusPending,
		AuthorID:    session.UserID,
		ZoneID:      input.ZoneID,
		Address:     strings.TrimSpace(input.Address),
		Coordinates: input.Coordinates,
		Category:    category,
		Upvotes:     []string{},
		CommentIDs:  []string{},
	}
	if err := s.store.CreateComplaint(ctx, complaint); err != nil {
		return ComplaintView{}, err
	}

	created, err := s.store.GetComplaint(ctx, complaint.ID)
	if err != nil {
		return ComplaintView{}, err
	}
	s.indexComplaint(created)

	author, err := s.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		author = store.User{}
	}
	return toComplaintView(created, author, session.UserID, false), nil
}

// ListComplaints is the public feed. A non-empty search term goes through
// the search service (Meilisearch when healthy, store regex otherwise).
func (s *Service) ListComplaints(ctx context.Context, term string, viewerID string) ([]ComplaintView, error) {
	term = strings.TrimSpace(term)
	var complaints []store.Complaint
	var err error
	if term != "" && s.search != nil {
		var ids []string
		ids, err = s.search.Search(ctx, search.Query{Text: term})
		if err != nil {
			return nil, err
		}
		complaints, err = s.store.ListComplaintsByIDs(ctx, ids)
	} else {
		complaints, err = s.store.ListComplaints(ctx, term)
	}
	if err != nil {
		return nil, err
	}
	return s.complaintViews(ctx, complaints, viewerID, false), nil
}

func (s *Service) MyComplaints(ctx context.Context, session Session) ([]ComplaintView, error) {
	complaints, err := s.store.ListComplaintsByAuthor(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return s.complaintViews(ctx, complaints, session.UserID, false), nil
}

// TopComplaints returns the five most upvoted complaints.
func (s *Service) TopComplaints(ctx context.Context, viewerID string) ([]ComplaintView, error) {
	complaints, err := s.store.TopComplaints(ctx, 5)
	if err != nil {
		return nil, err
	}
	return s.complaintViews(ctx, complaints, viewerID, false), nil
}

func (s *Service) GetComplaint(ctx context.Context, id, viewerID string) (ComplaintView, error) {
	complaint, err := s.store.GetComplaint(ctx, id)
	if err != nil {
		return ComplaintView{}, err
	}
	author, err := s.store.GetUserByID(ctx, complaint.AuthorID)
	if err != nil {
		author = store.User{}
	}
	return toComplaintView(complaint, author, viewerID, false), nil
}

// UpdateComplaint lets the author revise title/description while the
// complaint is still in review. Once routed to a partner the text is
// frozen, so the partner always sees what was assigned.
func (s *Service) UpdateComplaint(ctx context.Context, session Session, id, title, description string) (ComplaintView, error) {
	complaint, err := s.store.GetComplaint(ctx, id)
	if err != nil {
		return ComplaintView{}, err
	}
	if complaint.AuthorID != session.UserID {
		return ComplaintView{}, domainError(http.StatusForbidden, "FORBIDDEN", "Only the author can edit a complaint", nil)
	}
	if complaint.Status != store.StatusPending && complaint.Status != store.StatusAdminAccepted {
		return ComplaintView{}, domainError(http.StatusConflict, "COMPLAINT_LOCKED", "Complaint can no longer be edited", nil)
	}
	if err := s.store.UpdateComplaintContent(ctx, id, strings.TrimSpace(title), strings.TrimSpace(description)); err != nil {
		return ComplaintView{}, err
	}
	updated, err := s.store.GetComplaint(ctx, id)
	if err != nil {
		return ComplaintView{}, err
	}
	s.indexComplaint(updated)
	author, err := s.store.GetUserByID(ctx, updated.AuthorID)
	if err != nil {
		author = store.User{}
	}
	return toComplaintView(updated, author, session.UserID, false), nil
}

// DeleteComplaint removes the author's complaint. The complaint delete is
// authoritative; comments, the search entry, and the stored image are
// cleaned up best-effort afterwards.
func (s *Service) DeleteComplaint(ctx context.Context, session Session, id string) error {
	complaint, err := s.store.GetComplaint(ctx, id)
	if err != nil {
		return err
	}
	if complaint.AuthorID != session.UserID {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Only the author can delete a complaint", nil)
	}
	if err := s.store.DeleteComplaint(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteCommentsByComplaint(ctx, id); err != nil {
		log.Printf("delete complaint %s: cascade comments: %v", id, err)
	}
	if s.search != nil {
		s.search.DeleteComplaint(id)
	}
	if s.uploads != nil && complaint.Image != "" {
		if err := s.uploads.Delete(ctx, complaint.Image); err != nil {
			log.Printf("delete complaint %s: remove image %s: %v", id, complaint.Image, err)
		}
	}
	return nil
}

// Upvote adds the caller's vote. Voting twice is a conflict, not a no-op,
// so clients can distinguish a toggle race from success.
func (s *Service) Upvote(ctx context.Context, session Session, id string) (ComplaintView, error) {
	complaint, err := s.store.AddUpvote(ctx, id, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return ComplaintView{}, domainError(http.StatusConflict, "ALREADY_UPVOTED", "Complaint already upvoted", nil)
		}
		return ComplaintView{}, err
	}
	author, err := s.store.GetUserByID(ctx, complaint.AuthorID)
	if err != nil {
		author = store.User{}
	}
	return toComplaintView(complaint, author, session.UserID, false), nil
}

// RemoveUpvote is the dual of Upvote.
func (s *Service) RemoveUpvote(ctx context.Context, session Session, id string) (ComplaintView, error) {
	complaint, err := s.store.RemoveUpvote(ctx, id, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return ComplaintView{}, domainError(http.StatusConflict, "NOT_UPVOTED", "Complaint was not upvoted", nil)
		}
		return ComplaintView{}, err
	}
	author, err := s.store.GetUserByID(ctx, complaint.AuthorID)
	if err != nil {
		author = store.User{}
	}
	return toComplaintView(complaint, author, session.UserID, false), nil
}

type CommentView struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	ComplaintID string    `json:"complaint"`
	Author      AuthorRef `json:"author"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (s *Service) commentView(ctx context.Context, c store.Comment) CommentView {
	ref := AuthorRef{ID: c.AuthorID}
	if author, err := s.store.GetUserByID(ctx, c.AuthorID); err == nil {
		ref.AnonymousName = author.AnonymousName
	}
	return CommentView{
		ID:          c.ID,
		Text:        c.Text,
		ComplaintID: c.ComplaintID,
		Author:      ref,
		CreatedAt:   c.CreatedAt,
	}
}

// AddComment attaches a comment to an existing complaint.
func (s *Service) AddComment(ctx context.Context, session Session, complaintID, text string) (CommentView, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return CommentView{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "text is required", nil)
	}
	if _, err := s.store.GetComplaint(ctx, complaintID); err != nil {
		return CommentView{}, err
	}
	comment := store.Comment{
		ID:          util.NewID("cmt"),
		Text:        text,
		AuthorID:    session.UserID,
		ComplaintID: complaintID,
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return CommentView{}, err
	}
	if err := s.store.PushComment(ctx, complaintID, comment.ID); err != nil {
		log.Printf("add comment %s: push onto complaint %s: %v", comment.ID, complaintID, err)
	}
	created, err := s.store.GetComment(ctx, comment.ID)
	if err != nil {
		return CommentView{}, err
	}
	return s.commentView(ctx, created), nil
}

func (s *Service) ListComments(ctx context.Context, complaintID string) ([]CommentView, error) {
	if _, err := s.store.GetComplaint(ctx, complaintID); err != nil {
		return nil, err
	}
	comments, err := s.store.ListCommentsByComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	views := make([]CommentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, s.commentView(ctx, c))
	}
	return views, nil
}

// DeleteComment removes a comment. Allowed for its author and for
// moderators. The comment delete is authoritative; the pull from the
// parent complaint's list is best-effort.
func (s *Service) DeleteComment(ctx context.Context, session Session, commentID string) error {
	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.AuthorID != session.UserID && !rbac.Can(session.Role, rbac.ActionModerate) {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Only the author or a moderator can delete a comment", nil)
	}
	if err := s.store.DeleteComment(ctx, commentID); err != nil {
		return err
	}
	if err := s.store.PullComment(ctx, comment.ComplaintID, commentID); err != nil {
		log.Printf("delete comment %s: pull from complaint %s: %v", commentID, comment.ComplaintID, err)
	}
	return nil
}

// ServeImage streams a stored image for the /uploads handler.
func (s *Service) ServeImage(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if s.uploads == nil {
		return nil, "", domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
	body, contentType, err := s.uploads.Get(ctx, key)
	if err != nil {
		return nil, "", domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
	return body, contentType, nil
}

func (s *Service) storeImage(ctx context.Context, upload *ImageUpload) (string, error) {
	if upload == nil {
		return "", nil
	}
	if s.uploads == nil {
		return "", domainError(http.StatusServiceUnavailable, "UPLOADS_UNAVAILABLE", "Image storage is not configured", nil)
	}
	key := util.NewID("img") + path.Ext(upload.Filename)
	if err := s.uploads.Put(ctx, key, upload.Reader, upload.Size, upload.ContentType); err != nil {
		return "", err
	}
	return key, nil
}

func (s *Service) indexComplaint(c store.Complaint) {
	if s.search == nil {
		return
	}
	s.search.IndexComplaint(search.ComplaintRecord{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Category:    string(c.Category),
		Status:      string(c.Status),
		ZoneID:      c.ZoneID,
	})
}

// StoreFallback adapts the store's regex search for the search service,
// used when Meilisearch is down or not configured.
type StoreFallback struct {
	Store DataStore
}

func (f StoreFallback) SearchIDs(ctx context.Context, text string, limit int) ([]string, error) {
	complaints, err := f.Store.ListComplaints(ctx, text)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(complaints) > limit {
		complaints = complaints[:limit]
	}
	ids := make([]string, 0, len(complaints))
	for _, c := range complaints {
		ids = append(ids, c.ID)
	}
	return ids, nil
}
