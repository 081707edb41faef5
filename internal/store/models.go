package store

import "time"

// Status is the complaint lifecycle state. The set is closed; legacy
// spellings from older clients are folded in by NormalizeStatus.
type Status string

const (
	StatusPending       Status = "Pending"
	StatusAdminAccepted Status = "Admin Accepted"
	StatusAssigned      Status = "Assigned"
	StatusInProgress    Status = "In Progress"
	StatusResolved      Status = "Resolved"
	StatusRejected      Status = "Rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAdminAccepted, StatusAssigned, StatusInProgress, StatusResolved, StatusRejected:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transitions are modeled from s.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// NormalizeStatus maps legacy spellings onto the canonical set.
func NormalizeStatus(raw string) Status {
	if raw == "In Process" {
		return StatusInProgress
	}
	return Status(raw)
}

// Category is the complaint classification. Partners service exactly one
// category; complaints carry CategoryPendingClassification until the
// classifier has run.
type Category string

const (
	CategoryHygiene     Category = "Hygiene"
	CategoryRoads       Category = "Roads"
	CategoryElectricity Category = "Electricity"
	CategoryWater       Category = "Water"
	CategoryOther       Category = "Other"

	CategoryPendingClassification Category = "Pending Classification"
)

// Valid reports whether c is an assignable category (the pending marker is
// not assignable to partners).
func (c Category) Valid() bool {
	switch c {
	case CategoryHygiene, CategoryRoads, CategoryElectricity, CategoryWater, CategoryOther:
		return true
	default:
		return false
	}
}

type User struct {
	ID            string    `bson:"_id"`
	Name          string    `bson:"name"`
	AnonymousName string    `bson:"anonymousName"`
	Email         string    `bson:"email"`
	PasswordHash  string    `bson:"password"`
	Role          string    `bson:"role"`
	IsBlocked     bool      `bson:"isBlocked"`
	Category      Category  `bson:"category,omitempty"`
	ZoneID        string    `bson:"zone,omitempty"`
	CreatedAt     time.Time `bson:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt"`
}

type Zone struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description,omitempty"`
	CreatedAt   time.Time `bson:"createdAt"`
}

type Coordinates struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

type Complaint struct {
	ID          string       `bson:"_id"`
	Title       string       `bson:"title"`
	Description string       `bson:"description"`
	Image       string       `bson:"image,omitempty"`
	Status      Status       `bson:"status"`
	AssignedTo  string       `bson:"assignedTo,omitempty"`
	AuthorID    string       `bson:"author"`
	ZoneID      string       `bson:"zone"`
	Address     string       `bson:"address,omitempty"`
	Coordinates *Coordinates `bson:"coordinates,omitempty"`
	Category    Category     `bson:"category"`
	Upvotes     []string     `bson:"upvotes"`
	UpvoteCount int          `bson:"upvoteCount"`
	CommentIDs  []string     `bson:"comments"`
	Strikes     int          `bson:"strikes"`

	// Partner workflow fields
	RejectionReason string     `bson:"rejectionReason,omitempty"`
	TentativeDate   *time.Time `bson:"tentativeDate,omitempty"`
	AssignedWorkers string     `bson:"assignedWorkers,omitempty"`
	ResolutionImage string     `bson:"resolutionImage,omitempty"`
	PartnerFeedback string     `bson:"partnerFeedback,omitempty"`

	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type Comment struct {
	ID          string    `bson:"_id"`
	Text        string    `bson:"text"`
	AuthorID    string    `bson:"author"`
	ComplaintID string    `bson:"complaint"`
	CreatedAt   time.Time `bson:"createdAt"`
}
