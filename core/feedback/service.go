package feedback

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/oraclelc/backend/core"
	"github.com/oraclelc/backend/core/user"
)

var (
	ErrStudentNotFound   = errors.New("student not found")
	ErrRecipientNotFound = errors.New("recipient not found in specified role")
	// ErrNotFoundOrReplied conflates missing and already-replied feedback;
	// replying twice must never overwrite the first reply.
	ErrNotFoundOrReplied = errors.New("feedback not found or already replied")
)

type (
	Repository interface {
		CreateFeedback(ctx context.Context, fb Feedback, exec ...core.DBExecutor) (Feedback, error)
		QueryStudentFeedback(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]Info, error)
		QueryRecipientFeedback(ctx context.Context, recipientID string, status Status, exec ...core.DBExecutor) ([]Info, error)
		// ReplyFeedback conditionally answers pending feedback addressed to recipientID.
		// Returns the number of rows affected; 0 means no pending row matched.
		ReplyFeedback(ctx context.Context, id, recipientID, reply, replyBy string, at time.Time, exec ...core.DBExecutor) (int64, error)
	}

	// UserDirectory resolves students and staff; satisfied by user.Service.
	UserDirectory interface {
		GetByID(ctx context.Context, id string) (user.User, error)
		Query(ctx context.Context, filter *user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error)
	}

	Service struct {
		repo  Repository
		users UserDirectory
	}
)

func NewService(repo Repository, users UserDirectory) *Service {
	return &Service{repo: repo, users: users}
}

// Recipients returns the staff directory a student may address feedback to:
// every active tutor, librarian, finance manager and HOD, in one query.
func (svc *Service) Recipients(ctx context.Context, studentID string) (Directory, error) {
	student, err := svc.users.GetByID(ctx, studentID)
	if err != nil {
		if err == user.ErrNotFound {
			return Directory{}, ErrStudentNotFound
		}
		return Directory{}, err
	}
	if !student.IsStudent() {
		return Directory{}, ErrStudentNotFound
	}

	active := true
	staff, err := svc.users.Query(ctx, &user.QueryFilter{
		Roles:    []string{user.RoleTutor, user.RoleLibrarian, user.RoleFinance, user.RoleHOD},
		IsActive: &active,
	})
	if err != nil {
		return Directory{}, err
	}

	dir := Directory{
		Student:   student.Name,
		StudentID: student.ID,
		Users:     make([]Recipient, 0, len(staff)),
	}
	for _, usr := range staff {
		if role, ok := RecipientRoleOf(usr); ok {
			dir.Users = append(dir.Users, Recipient{ID: usr.ID, FullName: usr.Name, Role: role})
		}
	}
	return dir, nil
}

// Submit records a student's feedback after verifying the recipient
// actually holds the claimed role.
func (svc *Service) Submit(ctx context.Context, nf NewFeedback) (Feedback, error) {
	role, ok := UserRoleFor(nf.RecipientRole)
	if !ok {
		return Feedback{}, ErrRecipientNotFound
	}
	recipient, err := svc.users.GetByID(ctx, nf.RecipientID)
	if err != nil {
		if err == user.ErrNotFound {
			return Feedback{}, ErrRecipientNotFound
		}
		return Feedback{}, err
	}
	if !recipient.RoleStartsWith(role) {
		return Feedback{}, ErrRecipientNotFound
	}

	fb := Feedback{
		StudentID:     nf.StudentID,
		RecipientID:   nf.RecipientID,
		RecipientRole: nf.RecipientRole,
		Message:       nf.Message,
		Rating:        null.IntFromPtr(nf.Rating),
		Status:        StatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	return svc.repo.CreateFeedback(ctx, fb)
}

func (svc *Service) StudentFeedback(ctx context.Context, studentID string) ([]Info, error) {
	return svc.repo.QueryStudentFeedback(ctx, studentID)
}

func (svc *Service) PendingFor(ctx context.Context, recipientID string) ([]Info, error) {
	return svc.repo.QueryRecipientFeedback(ctx, recipientID, StatusPending)
}

// Answer replies to pending feedback addressed to the replying staff member.
func (svc *Service) Answer(ctx context.Context, feedbackID string, replier user.User, reply string) error {
	affected, err := svc.repo.ReplyFeedback(ctx, feedbackID, replier.ID, reply, replier.Name, time.Now().UTC())
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFoundOrReplied
	}
	return nil
}
