package store

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func (s *Mongo) CreateComplaint(ctx context.Context, complaint Complaint) error {
	now := time.Now().UTC()
	complaint.CreatedAt = now
	complaint.UpdatedAt = now
	if complaint.Upvotes == nil {
		complaint.Upvotes = []string{}
	}
	if complaint.CommentIDs == nil {
		complaint.CommentIDs = []string{}
	}
	return insertOne(ctx, s.col(colComplaints), complaint)
}

func (s *Mongo) GetComplaint(ctx context.Context, id string) (Complaint, error) {
	return findOne[Complaint](ctx, s.col(colComplaints), bson.D{{Key: "_id", Value: id}})
}

// ListComplaints returns all complaints, newest first. A non-empty search
// term filters on title or description, case-insensitive.
func (s *Mongo) ListComplaints(ctx context.Context, search string) ([]Complaint, error) {
	filter := bson.D{}
	if search != "" {
		pattern := regexp.QuoteMeta(search)
		filter = bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "title", Value: bson.D{{Key: "$regex", Value: pattern}, {Key: "$options", Value: "i"}}}},
			bson.D{{Key: "description", Value: bson.D{{Key: "$regex", Value: pattern}, {Key: "$options", Value: "i"}}}},
		}}}
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return findMany[Complaint](ctx, s.col(colComplaints), filter, opts)
}

func (s *Mongo) ListComplaintsByIDs(ctx context.Context, ids []string) ([]Complaint, error) {
	if len(ids) == 0 {
		return []Complaint{}, nil
	}
	filter := bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return findMany[Complaint](ctx, s.col(colComplaints), filter, opts)
}

func (s *Mongo) ListComplaintsByAuthor(ctx context.Context, authorID string) ([]Complaint, error) {
	filter := bson.D{{Key: "author", Value: authorID}}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return findMany[Complaint](ctx, s.col(colComplaints), filter, opts)
}

// TopComplaints returns the highest-upvoted complaints.
func (s *Mongo) TopComplaints(ctx context.Context, limit int) ([]Complaint, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "upvoteCount", Value: -1}, {Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))
	return findMany[Complaint](ctx, s.col(colComplaints), bson.D{}, opts)
}

// ListAllComplaints is the admin view, sorted by upvote count descending.
func (s *Mongo) ListAllComplaints(ctx context.Context) ([]Complaint, error) {
	opts := options.Find().SetSort(bson.D{{Key: "upvoteCount", Value: -1}})
	return findMany[Complaint](ctx, s.col(colComplaints), bson.D{}, opts)
}

// ListAssignedComplaints returns the partner's active queue.
func (s *Mongo) ListAssignedComplaints(ctx context.Context, partnerID string) ([]Complaint, error) {
	filter := bson.D{
		{Key: "assignedTo", Value: partnerID},
		{Key: "status", Value: bson.D{{Key: "$in", Value: bson.A{StatusAssigned, StatusInProgress}}}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return findMany[Complaint](ctx, s.col(colComplaints), filter, opts)
}

// CountActiveAssigned is the partner's workload: assigned complaints in
// non-terminal states.
func (s *Mongo) CountActiveAssigned(ctx context.Context, partnerID string) (int, error) {
	filter := bson.D{
		{Key: "assignedTo", Value: partnerID},
		{Key: "status", Value: bson.D{{Key: "$in", Value: bson.A{StatusAssigned, StatusInProgress}}}},
	}
	count, err := s.col(colComplaints).CountDocuments(ctx, filter)
	return int(count), err
}

func (s *Mongo) UpdateComplaintContent(ctx context.Context, id, title, description string) error {
	fields := bson.D{}
	if title != "" {
		fields = append(fields, bson.E{Key: "title", Value: title})
	}
	if description != "" {
		fields = append(fields, bson.E{Key: "description", Value: description})
	}
	if len(fields) == 0 {
		return nil
	}
	return setFields(ctx, s.col(colComplaints), id, fields)
}

func (s *Mongo) DeleteComplaint(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(colComplaints), id)
}

// AddUpvote appends the voter and bumps the count in one conditional update.
// Returns ErrConflict if the voter is already present.
func (s *Mongo) AddUpvote(ctx context.Context, id, userID string) (Complaint, error) {
	guard := bson.D{{Key: "upvotes", Value: bson.D{{Key: "$ne", Value: userID}}}}
	update := bson.D{
		{Key: "$push", Value: bson.D{{Key: "upvotes", Value: userID}}},
		{Key: "$inc", Value: bson.D{{Key: "upvoteCount", Value: 1}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: time.Now().UTC()}}},
	}
	return conditionalUpdate[Complaint](ctx, s.col(colComplaints), id, guard, update)
}

// RemoveUpvote is the dual of AddUpvote: ErrConflict if the voter is absent.
func (s *Mongo) RemoveUpvote(ctx context.Context, id, userID string) (Complaint, error) {
	guard := bson.D{{Key: "upvotes", Value: userID}}
	update := bson.D{
		{Key: "$pull", Value: bson.D{{Key: "upvotes", Value: userID}}},
		{Key: "$inc", Value: bson.D{{Key: "upvoteCount", Value: -1}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: time.Now().UTC()}}},
	}
	return conditionalUpdate[Complaint](ctx, s.col(colComplaints), id, guard, update)
}

func (s *Mongo) IncrementStrikes(ctx context.Context, id string) (Complaint, error) {
	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "strikes", Value: 1}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: time.Now().UTC()}}},
	}
	return conditionalUpdate[Complaint](ctx, s.col(colComplaints), id, bson.D{}, update)
}

// TransitionStatus moves a complaint from one status to another, guarded on
// the source status so concurrent transitions cannot interleave.
func (s *Mongo) TransitionStatus(ctx context.Context, id string, from, to Status) (Complaint, error) {
	guard := bson.D{{Key: "status", Value: from}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: to},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}}}
	return conditionalUpdate[Complaint](ctx, s.col(colComplaints), id, guard, update)
}

// AssignComplaint routes an accepted complaint to a partner.
func (s *Mongo) AssignComplaint(ctx context.Context, id, partnerID string) (Complaint, error) {
	guard := bson.D{{Key: "status", Value: StatusAdminAccepted}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: StatusAssigned},
		{Key: "assignedTo", Value: partnerID},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}}}
	return conditionalUpdate[Complaint](ctx, s.col(colComplaints), id, guard, update)
}

// AcceptAssignment records the partner's plan and starts the work.
func (s *Mongo) AcceptAssignment(ctx context.Context, id, partnerID string, tentativeDate time.Time, workers string) (Complaint, error) {
	guard := bson.D{
		{Key: "assignedTo", Value: partnerID},
		{Key: "status", Value: StatusAssigned},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: StatusInProgress},
		{Key: "tentativeDate", Value: tentativeDate},
		{Key: "assignedWorkers", Value: workers},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}}}
	return conditionalUpdate[Complaint](ctx, s.col(colComplaints), id, guard, update)
}

// RejectAssignment returns the complaint to the assignable pool: status
// reverts to Admin Accepted and the assignee is cleared.
func (s *Mongo) RejectAssignment(ctx context.Context, id, partnerID, reason string) (Complaint, error) {
	guard := bson.D{
		{Key: "assignedTo", Value: partnerID},
		{Key: "status", Value: StatusAssigned},
	}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "status", Value: StatusAdminAccepted},
			{Key: "rejectionReason", Value: reason},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}},
		{Key: "$unset", Value: bson.D{{Key: "assignedTo", Value: ""}}},
	}
	return conditionalUpdate[Complaint](ctx, s.col(colComplaints), id, guard, update)
}

// ResolveAssignment closes out the work with the partner's evidence.
func (s *Mongo) ResolveAssignment(ctx context.Context, id, partnerID, feedback, resolutionImage string) (Complaint, error) {
	guard := bson.D{
		{Key: "assignedTo", Value: partnerID},
		{Key: "status", Value: StatusInProgress},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: StatusResolved},
		{Key: "partnerFeedback", Value: feedback},
		{Key: "resolutionImage", Value: resolutionImage},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}}}
	return conditionalUpdate[Complaint](ctx, s.col(colComplaints), id, guard, update)
}

func (s *Mongo) PushComment(ctx context.Context, complaintID, commentID string) error {
	res, err := s.col(colComplaints).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: complaintID}},
		bson.D{{Key: "$push", Value: bson.D{{Key: "comments", Value: commentID}}}})
	if err != nil {
		return wrapError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Mongo) PullComment(ctx context.Context, complaintID, commentID string) error {
	res, err := s.col(colComplaints).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: complaintID}},
		bson.D{{Key: "$pull", Value: bson.D{{Key: "comments", Value: commentID}}}})
	if err != nil {
		return wrapError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
