// Package domain defines the core models of the site backend: the persisted
// status-check records, the read-only service catalog entries, and the
// transient contact-form submission.
package domain

import "time"

// StatusCheck is a lightweight connectivity ping recorded by a client.
// Rows are append-only: this system never updates or deletes them.
//
// Fields:
//   - ID: UUIDv4 primary key (char(36)), generated on create.
//   - ClientName: free-form name reported by the caller.
//   - Timestamp: creation time in UTC; indexed for stable listing.
type StatusCheck struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	ClientName string    `json:"client_name" gorm:"type:text;not null"`
	Timestamp  time.Time `json:"timestamp"   gorm:"not null;index:idx_status_checks_ts"`
}

// TableName returns the database table name for StatusCheck.
func (StatusCheck) TableName() string { return "status_checks" }

// Review is a customer testimonial attached to a catalog entry.
// Rating is an integer in [1,5].
type Review struct {
	Name    string `json:"name"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// ServiceRecord is a full catalog entry. Records are loaded once at startup
// and never mutated; Images and Reviews keep their declared order.
type ServiceRecord struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Icon      string   `json:"icon"`
	ShortDesc string   `json:"short_desc"`
	FullDesc  string   `json:"full_desc"`
	Images    []string `json:"images"`
	Reviews   []Review `json:"reviews"`
}

// Summary projects the record onto its list representation.
func (r ServiceRecord) Summary() ServiceSummary {
	return ServiceSummary{ID: r.ID, Title: r.Title, Icon: r.Icon, ShortDesc: r.ShortDesc}
}

// ServiceSummary is the list view of a catalog entry. It deliberately has no
// images or reviews.
type ServiceSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Icon      string `json:"icon"`
	ShortDesc string `json:"short_desc"`
}

// ContactSubmission is a visitor's request to be contacted. It lives for a
// single request and is handed to the notification sender, never persisted.
type ContactSubmission struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Service string `json:"service"`
	Message string `json:"message"`
}
