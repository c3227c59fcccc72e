package domain

import "time"

// Persona decides which routes a user may call.
type Persona string

const (
	PersonaAdmin    Persona = "admin"
	PersonaEmployee Persona = "employee"
)

// ParsePersona maps a claim or stored value to a Persona, defaulting to employee.
func ParsePersona(v string) Persona {
	if Persona(v) == PersonaAdmin {
		return PersonaAdmin
	}
	return PersonaEmployee
}

// User is a locally known account.
type User struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Persona  Persona  `json:"persona"`
	Settings Settings `json:"-"`
}

// EntityID, EntityName and IsClosed let users be matched by name like board entities.
func (u User) EntityID() string   { return u.ID }
func (u User) EntityName() string { return u.Name }
func (u User) IsClosed() bool     { return false }

// ActionItem is a task extracted from a meeting transcript.
type ActionItem struct {
	Text       string `json:"text"`
	Assignee   string `json:"assignee"`
	AssignedBy string `json:"assigned_by,omitempty"`
}

// Meeting is a processed transcript.
type Meeting struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Date         time.Time    `json:"date"`
	Participants []string     `json:"participants"`
	Summary      string       `json:"summary"`
	Transcript   string       `json:"transcript_text,omitempty"`
	ActionItems  []ActionItem `json:"action_items"`
	CreatedBy    string       `json:"created_by"`
	WorkspaceID  string       `json:"workspace_id,omitempty"`
	Filename     string       `json:"filename,omitempty"`
}

// Document is an uploaded text used to answer questions.
type Document struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Content     string    `json:"content,omitempty"`
	UploadedBy  string    `json:"uploaded_by"`
	WorkspaceID string    `json:"workspace_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	FileSize    int       `json:"file_size"`
}

// Message is one turn of a question-answering conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is the stored history of a user's questions for a product.
type Conversation struct {
	UserID    string    `json:"user_id"`
	Product   string    `json:"product"`
	Messages  []Message `json:"messages"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SyncJob asks the worker to put one action item on a board.
type SyncJob struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	BoardID   string `json:"boardId"`
	MeetingID string `json:"meetingId,omitempty"`
	Person    string `json:"person"`
	Text      string `json:"text"`
	Due       string `json:"due,omitempty"`
	Timestamp int64  `json:"timestamp"`
}
