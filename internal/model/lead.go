package model

type LeadStatus string

const (
	LeadNew    LeadStatus = "new"
	LeadCalled LeadStatus = "called"
)

func (s LeadStatus) IsValid() bool {
	return s == LeadNew || s == LeadCalled
}

// DateLayout is the calendar-date format used for lead assignment dates
const DateLayout = "2006-01-02"

// Lead is a call task assigned to a moderator for a given day
type Lead struct {
	BaseModel
	ModeratorID   string     `gorm:"type:varchar(64);index;not null" json:"moderator_id"`
	AssignedDate  string     `gorm:"type:varchar(10);index;not null" json:"assigned_date"`
	Status        LeadStatus `gorm:"type:varchar(10);index;not null;default:new" json:"status"`
	CustomerName  string     `gorm:"type:varchar(255)" json:"customer_name,omitempty"`
	CustomerPhone string     `gorm:"type:varchar(20)" json:"customer_phone,omitempty"`
	Note          string     `gorm:"type:text" json:"note,omitempty"`
}
