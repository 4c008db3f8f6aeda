package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// ============================
// 🔷 GORM Event Model
type Event struct {
	ID           uuid.UUID                  `gorm:"type:uuid;primaryKey" json:"id"`
	Title        string                     `gorm:"type:varchar(255);not null" json:"title"`
	Description  string                     `gorm:"type:varchar(1000)" json:"description"`
	Start        time.Time                  `gorm:"column:start_at;not null;index" json:"start"`
	End          *time.Time                 `gorm:"column:end_at" json:"end,omitempty"`
	Location     string                     `gorm:"type:varchar(255)" json:"location"`
	AllDay       bool                       `gorm:"default:false" json:"all_day"`
	Draggable    bool                       `gorm:"default:false" json:"draggable"`
	Color        string                     `gorm:"type:varchar(50)" json:"color"`
	Category     string                     `gorm:"type:varchar(50);index" json:"category"`
	Organizer    string                     `gorm:"type:varchar(255)" json:"organizer"`
	ContactEmail string                     `gorm:"type:varchar(255)" json:"contact_email"`
	Images       datatypes.JSONSlice[Image] `gorm:"type:jsonb" json:"images"`
	Thumbnail    string                     `gorm:"type:varchar(255)" json:"thumbnail"`
	Attendees    int                        `gorm:"default:0" json:"attendees"`
	MaxAttendees int                        `gorm:"default:0" json:"max_attendees"`
	IsPublic     bool                       `gorm:"not null;default:false;index" json:"is_public"`
	Tags         pq.StringArray             `gorm:"type:text[];not null;default:'{}'" json:"tags"`
	CreatedAt    time.Time                  `gorm:"autoCreateTime:false;not null" json:"created_at"`
	UpdatedAt    time.Time                  `gorm:"autoUpdateTime:false;not null" json:"updated_at"`
	OwnerUserID  uuid.UUID                  `gorm:"type:uuid;not null;index" json:"owner_user_id"`

	SubscriberCount int `gorm:"-" json:"subscriber_count"`
}

// TableName overrides table name for Event
func (Event) TableName() string {
	return "events"
}

// Image is one entry of an event's ordered gallery.
type Image struct {
	URL       string `json:"url" binding:"required"`
	Caption   string `json:"caption" binding:"max=255"`
	IsPrimary bool   `json:"is_primary"`
	Order     int    `json:"order"`
}

// Draft carries every caller-supplied field of an event. Create reads all of
// it; Update ignores OwnerUserID.
type Draft struct {
	Title        string
	Description  string
	Start        time.Time
	End          *time.Time
	Location     string
	AllDay       bool
	Draggable    bool
	Color        string
	Category     string
	Organizer    string
	ContactEmail string
	Images       []Image
	Thumbnail    string
	Attendees    int
	MaxAttendees int
	IsPublic     bool
	Tags         []string
	OwnerUserID  uuid.UUID
}

// apply copies the mutable fields of d onto e.
func (d Draft) apply(e *Event) {
	e.Title = d.Title
	e.Description = d.Description
	e.Start = d.Start
	e.End = d.End
	e.Location = d.Location
	e.AllDay = d.AllDay
	e.Draggable = d.Draggable
	e.Color = d.Color
	e.Category = d.Category
	e.Organizer = d.Organizer
	e.ContactEmail = d.ContactEmail
	e.Images = append(datatypes.JSONSlice[Image]{}, d.Images...)
	e.Thumbnail = d.Thumbnail
	e.Attendees = d.Attendees
	e.MaxAttendees = d.MaxAttendees
	e.IsPublic = d.IsPublic
	e.Tags = pq.StringArray(NormalizeTags(d.Tags))
}

// Filter selects events for Repository.Find. Zero fields do not filter.
type Filter struct {
	PublicOnly bool
	OwnerID    uuid.UUID
	// Category matches case-insensitively and exactly.
	Category string
	// Tag must already be normalized.
	Tag string
	// Keyword is a case-insensitive substring over title, description and location.
	Keyword   string
	StartFrom *time.Time
	StartTo   *time.Time
	// OrderByStart sorts ascending by start; otherwise storage order.
	OrderByStart bool
	Limit        int
}

// ============================
// 🟡 Create / Update Event Request
type EventRequest struct {
	Title        string     `json:"title" binding:"required,min=1,max=255"`
	Description  string     `json:"description" binding:"max=1000"`
	Start        *time.Time `json:"start" binding:"required"`
	End          *time.Time `json:"end,omitempty"`
	Location     string     `json:"location" binding:"max=255"`
	AllDay       bool       `json:"all_day"`
	Draggable    bool       `json:"draggable"`
	Color        string     `json:"color" binding:"max=50"`
	Category     string     `json:"category" binding:"max=50"`
	Organizer    string     `json:"organizer" binding:"max=255"`
	ContactEmail string     `json:"contact_email" binding:"omitempty,email,max=255"`
	Images       []Image    `json:"images" binding:"dive"`
	Thumbnail    string     `json:"thumbnail" binding:"max=255"`
	Attendees    int        `json:"attendees" binding:"min=0"`
	MaxAttendees int        `json:"max_attendees" binding:"min=0"`
	IsPublic     *bool      `json:"is_public,omitempty"`
	Tags         []string   `json:"tags"`
}

// Draft converts the request body into a service Draft owned by owner.
func (r *EventRequest) Draft(owner uuid.UUID) Draft {
	d := Draft{
		Title:        r.Title,
		Description:  r.Description,
		End:          r.End,
		Location:     r.Location,
		AllDay:       r.AllDay,
		Draggable:    r.Draggable,
		Color:        r.Color,
		Category:     r.Category,
		Organizer:    r.Organizer,
		ContactEmail: r.ContactEmail,
		Images:       r.Images,
		Thumbnail:    r.Thumbnail,
		Attendees:    r.Attendees,
		MaxAttendees: r.MaxAttendees,
		Tags:         r.Tags,
		OwnerUserID:  owner,
	}
	if r.Start != nil {
		d.Start = *r.Start
	}
	// 🛡 Handle optional IsPublic safely
	if r.IsPublic != nil {
		d.IsPublic = *r.IsPublic
	}
	return d
}

// ============================
// 🟠 Update Event Dates Request
type UpdateDatesRequest struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end,omitempty"`
}
