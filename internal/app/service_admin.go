package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"civicvoice/api/internal/authpw"
	"civicvoice/api/internal/rbac"
	"civicvoice/api/internal/store"
	"civicvoice/api/internal/util"
)

// AdminComplaints is the moderation listing: every complaint, most upvoted
// first, with author name and email exposed.
func (s *Service) AdminComplaints(ctx context.Context) ([]ComplaintView, error) {
	complaints, err := s.store.ListAllComplaints(ctx)
	if err != nil {
		return nil, err
	}
	return s.complaintViews(ctx, complaints, "", true), nil
}

// UpdateStatus drives an admin status transition. The target must be a
// legal move from the complaint's current status; a target of Assigned
// delegates to the assignment sub-flow and requires partnerID. Transitions
// owned by the assigned partner (starting or resolving work) are rejected
// here because they carry mandatory workflow fields.
func (s *Service) UpdateStatus(ctx context.Context, id, rawStatus, partnerID string) (ComplaintView, error) {
	status := store.NormalizeStatus(rawStatus)
	if !status.Valid() {
		return ComplaintView{}, domainError(http.StatusUnprocessableEntity, "INVALID_STATUS", "Unknown status", map[string]any{"status": rawStatus})
	}

	complaint, err := s.store.GetComplaint(ctx, id)
	if err != nil {
		return ComplaintView{}, err
	}

	if status == store.StatusAssigned {
		return s.AssignPartner(ctx, id, partnerID)
	}

	if !transitionAllowed(complaint.Status, status) {
		return ComplaintView{}, domainError(http.StatusUnprocessableEntity, "INVALID_TRANSITION", "Illegal status transition",
			map[string]any{"from": complaint.Status, "to": status})
	}
	if status == store.StatusInProgress || (status == store.StatusResolved && complaint.Status == store.StatusInProgress) {
		return ComplaintView{}, domainError(http.StatusUnprocessableEntity, "INVALID_TRANSITION", "Transition is performed by the assigned partner",
			map[string]any{"from": complaint.Status, "to": status})
	}

	updated, err := s.store.TransitionStatus(ctx, id, complaint.Status, status)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return ComplaintView{}, domainError(http.StatusConflict, "STALE_STATUS", "Complaint status changed concurrently", nil)
		}
		return ComplaintView{}, err
	}
	s.indexComplaint(updated)
	return s.adminView(ctx, updated), nil
}

// Strike increments the complaint's moderation strike counter by one.
func (s *Service) Strike(ctx context.Context, id string) (ComplaintView, error) {
	updated, err := s.store.IncrementStrikes(ctx, id)
	if err != nil {
		return ComplaintView{}, err
	}
	return s.adminView(ctx, updated), nil
}

// PartnerView annotates a partner account with its live workload: the
// number of complaints assigned to it in non-terminal states.
type PartnerView struct {
	UserView
	Workload int `json:"workload"`
}

// PartnersByCategory lists partner accounts eligible for a category, each
// with its current workload, for the assignment picker.
func (s *Service) PartnersByCategory(ctx context.Context, rawCategory string) ([]PartnerView, error) {
	category := store.Category(rawCategory)
	if !category.Valid() {
		return nil, domainError(http.StatusUnprocessableEntity, "INVALID_CATEGORY", "Unknown category", map[string]any{"category": rawCategory})
	}
	partners, err := s.store.ListPartnersByCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	views := make([]PartnerView, 0, len(partners))
	for _, p := range partners {
		workload, err := s.store.CountActiveAssigned(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, PartnerView{UserView: toUserView(p), Workload: workload})
	}
	return views, nil
}

// AssignPartner routes an accepted complaint to a partner whose category
// matches the complaint's.
func (s *Service) AssignPartner(ctx context.Context, id, partnerID string) (ComplaintView, error) {
	if strings.TrimSpace(partnerID) == "" {
		return ComplaintView{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "partnerId is required", nil)
	}
	complaint, err := s.store.GetComplaint(ctx, id)
	if err != nil {
		return ComplaintView{}, err
	}
	partner, err := s.store.GetUserByID(ctx, partnerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ComplaintView{}, domainError(http.StatusUnprocessableEntity, "UNKNOWN_PARTNER", "Partner does not exist", nil)
		}
		return ComplaintView{}, err
	}
	if rbac.Normalize(partner.Role) != rbac.RolePartner {
		return ComplaintView{}, domainError(http.StatusUnprocessableEntity, "NOT_A_PARTNER", "User is not a partner account", nil)
	}
	if partner.Category != complaint.Category {
		return ComplaintView{}, domainError(http.StatusUnprocessableEntity, "CATEGORY_MISMATCH", "Partner does not service this category",
			map[string]any{"partnerCategory": partner.Category, "complaintCategory": complaint.Category})
	}

	updated, err := s.store.AssignComplaint(ctx, id, partnerID)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return ComplaintView{}, domainError(http.StatusConflict, "WRONG_STATE", "Complaint must be Admin Accepted before assignment", nil)
		}
		return ComplaintView{}, err
	}
	s.indexComplaint(updated)
	return s.adminView(ctx, updated), nil
}

// AdminUsers lists every account for the moderation screens.
func (s *Service) AdminUsers(ctx context.Context) ([]UserView, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, toUserView(u))
	}
	return views, nil
}

// SetUserBlocked blocks or unblocks an account. A blocked user keeps their
// session cookie but every guarded request is rejected.
func (s *Service) SetUserBlocked(ctx context.Context, id string, blocked bool) (UserView, error) {
	if err := s.store.SetUserBlocked(ctx, id, blocked); err != nil {
		return UserView{}, err
	}
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return UserView{}, err
	}
	return toUserView(user), nil
}

// CreateStaffInput provisions an admin or partner account.
type CreateStaffInput struct {
	Name     string
	Email    string
	Password string
	Role     string
	Category store.Category
	ZoneID   string
}

// CreateStaff provisions a staff account. Partner accounts must carry the
// single category they service.
func (s *Service) CreateStaff(ctx context.Context, input CreateStaffInput) (UserView, error) {
	role := rbac.Role(input.Role)
	if role != rbac.RoleAdmin && role != rbac.RolePartner {
		return UserView{}, domainError(http.StatusUnprocessableEntity, "INVALID_ROLE", "Staff role must be admin or partner", nil)
	}
	if role == rbac.RolePartner && !input.Category.Valid() {
		return UserView{}, domainError(http.StatusUnprocessableEntity, "INVALID_CATEGORY", "Partner accounts require a valid category", nil)
	}
	if input.ZoneID != "" {
		if _, err := s.store.GetZone(ctx, input.ZoneID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return UserView{}, domainError(http.StatusUnprocessableEntity, "UNKNOWN_ZONE", "zone does not exist", nil)
			}
			return UserView{}, err
		}
	}

	category := input.Category
	if role == rbac.RoleAdmin {
		category = ""
	}
	user, err := s.authpw.Register(ctx, authpw.RegisterRequest{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
		Role:     string(role),
		Category: category,
		ZoneID:   input.ZoneID,
	})
	if err != nil {
		return UserView{}, err
	}
	return toUserView(user), nil
}

// CreateZone adds an administrative zone. Zone names are unique.
func (s *Service) CreateZone(ctx context.Context, name, description string) (store.Zone, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Zone{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	zone := store.Zone{
		ID:          util.NewID("zon"),
		Name:        name,
		Description: strings.TrimSpace(description),
	}
	if err := s.store.CreateZone(ctx, zone); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return store.Zone{}, domainError(http.StatusConflict, "ZONE_EXISTS", "A zone with that name already exists", nil)
		}
		return store.Zone{}, err
	}
	return s.store.GetZone(ctx, zone.ID)
}

// ChangeRole changes an account's role. Only explicit role names are
// accepted; nothing is silently defaulted.
func (s *Service) ChangeRole(ctx context.Context, id, role string) (UserView, error) {
	switch rbac.Role(role) {
	case rbac.RoleUser, rbac.RoleAdmin, rbac.RoleSuperAdmin, rbac.RolePartner:
	default:
		return UserView{}, domainError(http.StatusUnprocessableEntity, "INVALID_ROLE", "Unknown role", map[string]any{"role": role})
	}
	if err := s.store.SetUserRole(ctx, id, role); err != nil {
		return UserView{}, err
	}
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return UserView{}, err
	}
	return toUserView(user), nil
}

// PartnerQueue lists the caller-partner's active assignments.
func (s *Service) PartnerQueue(ctx context.Context, session Session) ([]ComplaintView, error) {
	complaints, err := s.store.ListAssignedComplaints(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return s.complaintViews(ctx, complaints, session.UserID, false), nil
}

// PartnerAccept starts work on an assignment: requires a tentative
// completion date and an assigned-workers description.
func (s *Service) PartnerAccept(ctx context.Context, session Session, id string, tentativeDate time.Time, workers string) (ComplaintView, error) {
	if tentativeDate.IsZero() || strings.TrimSpace(workers) == "" {
		return ComplaintView{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "tentativeDate and assignedWorkers are required", nil)
	}
	updated, err := s.store.AcceptAssignment(ctx, id, session.UserID, tentativeDate, strings.TrimSpace(workers))
	if err != nil {
		return ComplaintView{}, s.workflowError(err)
	}
	s.indexComplaint(updated)
	return s.partnerComplaintView(ctx, updated, session), nil
}

// PartnerReject returns the complaint to the assignable pool with a
// reason; the assignee is cleared so the admin can re-route it.
func (s *Service) PartnerReject(ctx context.Context, session Session, id, reason string) (ComplaintView, error) {
	if strings.TrimSpace(reason) == "" {
		return ComplaintView{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "reason is required", nil)
	}
	updated, err := s.store.RejectAssignment(ctx, id, session.UserID, strings.TrimSpace(reason))
	if err != nil {
		return ComplaintView{}, s.workflowError(err)
	}
	s.indexComplaint(updated)
	return s.partnerComplaintView(ctx, updated, session), nil
}

// PartnerResolve closes out the work with feedback and photo evidence.
func (s *Service) PartnerResolve(ctx context.Context, session Session, id, feedback string, image *ImageUpload) (ComplaintView, error) {
	if strings.TrimSpace(feedback) == "" {
		return ComplaintView{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "feedback is required", nil)
	}
	if image == nil {
		return ComplaintView{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "resolutionImage is required", nil)
	}
	imageKey, err := s.storeImage(ctx, image)
	if err != nil {
		return ComplaintView{}, err
	}
	updated, err := s.store.ResolveAssignment(ctx, id, session.UserID, strings.TrimSpace(feedback), imageKey)
	if err != nil {
		return ComplaintView{}, s.workflowError(err)
	}
	s.indexComplaint(updated)
	return s.partnerComplaintView(ctx, updated, session), nil
}

// workflowError maps the store's guard failure onto the partner workflow:
// the complaint exists but is either not assigned to the caller or not in
// the state the operation needs.
func (s *Service) workflowError(err error) error {
	if errors.Is(err, store.ErrConflict) {
		return domainError(http.StatusConflict, "WRONG_STATE", "Complaint is not assigned to you in the required state", nil)
	}
	return err
}

func (s *Service) adminView(ctx context.Context, c store.Complaint) ComplaintView {
	author, err := s.store.GetUserByID(ctx, c.AuthorID)
	if err != nil {
		author = store.User{}
	}
	return toComplaintView(c, author, "", true)
}

func (s *Service) partnerComplaintView(ctx context.Context, c store.Complaint, session Session) ComplaintView {
	author, err := s.store.GetUserByID(ctx, c.AuthorID)
	if err != nil {
		author = store.User{}
	}
	return toComplaintView(c, author, session.UserID, false)
}
