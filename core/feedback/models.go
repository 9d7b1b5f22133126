package feedback

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/oraclelc/backend/core"
	"github.com/oraclelc/backend/core/user"
)

// Status is the closed set of feedback states.
type Status string

const (
	StatusPending Status = "pending"
	StatusReplied Status = "replied"
)

// Recipient roles a student may address feedback to.
const (
	RecipientTutor     = "tutor"
	RecipientLibrarian = "librarian"
	RecipientFinance   = "finance"
	RecipientHOD       = "hod"
)

// recipientRoles maps a recipient role name to the user role it requires.
var recipientRoles = map[string]string{
	RecipientTutor:     user.RoleTutor,
	RecipientLibrarian: user.RoleLibrarian,
	RecipientFinance:   user.RoleFinance,
	RecipientHOD:       user.RoleHOD,
}

// UserRoleFor returns the user role required to receive feedback as roleName.
func UserRoleFor(roleName string) (string, bool) {
	role, ok := recipientRoles[roleName]
	return role, ok
}

// RecipientRoleOf returns the recipient role name a user answers feedback under.
func RecipientRoleOf(usr user.User) (string, bool) {
	for _, name := range []string{RecipientTutor, RecipientLibrarian, RecipientFinance, RecipientHOD} {
		if usr.RoleStartsWith(recipientRoles[name]) {
			return name, true
		}
	}
	return "", false
}

type Feedback struct {
	ID            string      `json:"id"`
	StudentID     string      `json:"student_id"`
	RecipientID   string      `json:"recipient_id"`
	RecipientRole string      `json:"recipient_role"`
	Message       string      `json:"message"`
	Rating        null.Int    `json:"rating"`
	Status        Status      `json:"status"`
	Reply         null.String `json:"reply"`
	ReplyBy       null.String `json:"reply_by"`
	ReplyTime     null.Time   `json:"reply_time"`
	CreatedAt     time.Time   `json:"created_at"` // UTC
}

// Info is a feedback row joined with the student's and recipient's names.
type Info struct {
	Feedback
	StudentName   string `json:"student_name"`
	RecipientName string `json:"recipient_name"`
}

// Recipient is a directory entry a student can address feedback to.
type Recipient struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

// Directory is the recipient listing returned to a student.
type Directory struct {
	Student   string      `json:"student"`
	StudentID string      `json:"student_id"`
	Users     []Recipient `json:"users"`
}

// NewFeedback contains information needed to submit feedback.
// StudentID comes from the caller's token, not the request body.
type NewFeedback struct {
	StudentID     string `json:"student_id" validate:"required"`
	RecipientID   string `json:"recipient_id" validate:"required"`
	RecipientRole string `json:"recipient_role" validate:"required,oneof=tutor librarian finance hod"`
	Message       string `json:"message" validate:"required"`
	Rating        *int   `json:"rating" validate:"omitempty,min=1,max=5"`
}

func (nf *NewFeedback) Validate() error {
	nf.Message = core.CleanString(nf.Message)
	return core.Validate.Struct(nf)
}

// Reply is a staff member's answer to pending feedback.
type Reply struct {
	Reply string `json:"reply" validate:"required"`
}

func (r *Reply) Validate() error {
	r.Reply = core.CleanString(r.Reply)
	return core.Validate.Struct(r)
}
