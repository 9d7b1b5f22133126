package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/oraclelc/backend/core"
	"github.com/oraclelc/backend/core/feedback"
)

type feedbackRepository struct {
	feedbacks *feedbackTable
	users     *userTable
}

var _ feedback.Repository = (*feedbackRepository)(nil) // interface compliance check

func NewFeedbackRepository(db *DB) feedback.Repository {
	return &feedbackRepository{feedbacks: db.feedback, users: db.user}
}

func (repo *feedbackRepository) info(fb feedback.Feedback) feedback.Info {
	info := feedback.Info{Feedback: fb}
	if student, ok := repo.users.table[fb.StudentID]; ok {
		info.StudentName = student.Name
	}
	if recipient, ok := repo.users.table[fb.RecipientID]; ok {
		info.RecipientName = recipient.Name
	}
	return info
}

func (repo *feedbackRepository) CreateFeedback(ctx context.Context, fb feedback.Feedback, exec ...core.DBExecutor) (feedback.Feedback, error) {
	repo.feedbacks.Lock()
	defer repo.feedbacks.Unlock()

	fb.ID = uuid.New().String()
	repo.feedbacks.table[fb.ID] = &fb
	return fb, nil
}

func (repo *feedbackRepository) QueryStudentFeedback(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]feedback.Info, error) {
	repo.feedbacks.RLock()
	defer repo.feedbacks.RUnlock()
	repo.users.RLock()
	defer repo.users.RUnlock()

	infos := make([]feedback.Info, 0)
	for _, fb := range repo.feedbacks.table {
		if fb.StudentID == studentID {
			infos = append(infos, repo.info(*fb))
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].CreatedAt.After(infos[j].CreatedAt) })
	return infos, nil
}

func (repo *feedbackRepository) QueryRecipientFeedback(ctx context.Context, recipientID string, status feedback.Status, exec ...core.DBExecutor) ([]feedback.Info, error) {
	repo.feedbacks.RLock()
	defer repo.feedbacks.RUnlock()
	repo.users.RLock()
	defer repo.users.RUnlock()

	infos := make([]feedback.Info, 0)
	for _, fb := range repo.feedbacks.table {
		if fb.RecipientID == recipientID && fb.Status == status {
			infos = append(infos, repo.info(*fb))
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].CreatedAt.After(infos[j].CreatedAt) })
	return infos, nil
}

func (repo *feedbackRepository) ReplyFeedback(ctx context.Context, id, recipientID, reply, replyBy string, at time.Time, exec ...core.DBExecutor) (int64, error) {
	repo.feedbacks.Lock()
	defer repo.feedbacks.Unlock()

	fb, ok := repo.feedbacks.table[id]
	if !ok || fb.RecipientID != recipientID || fb.Status != feedback.StatusPending {
		return 0, nil
	}
	fb.Status = feedback.StatusReplied
	fb.Reply = null.StringFrom(reply)
	fb.ReplyBy = null.StringFrom(replyBy)
	fb.ReplyTime = null.TimeFrom(at.UTC())
	return 1, nil
}
