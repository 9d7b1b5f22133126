package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/oraclelc/backend/core"
	"github.com/oraclelc/backend/core/feedback"
)

type FeedbackRepository struct {
	db *sqlx.DB
}

var _ feedback.Repository = (*FeedbackRepository)(nil) // interface compliance check

func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

func (repo FeedbackRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.db
}

func (repo FeedbackRepository) queryer(svcExec []core.DBExecutor) sqlx.QueryerContext {
	if len(svcExec) > 0 {
		if tx, ok := svcExec[0].(*sql.Tx); ok {
			return &sqlx.Tx{Tx: tx, Mapper: repo.db.Mapper}
		}
	}
	return repo.db
}

type feedbackRow struct {
	ID            string      `db:"id"`
	StudentID     string      `db:"student_id"`
	RecipientID   string      `db:"recipient_id"`
	RecipientRole string      `db:"recipient_role"`
	Message       string      `db:"message"`
	Rating        null.Int    `db:"rating"`
	Status        string      `db:"status"`
	Reply         null.String `db:"reply"`
	ReplyBy       null.String `db:"reply_by"`
	ReplyTime     null.Time   `db:"reply_time"`
	CreatedAt     time.Time   `db:"created_at"`
}

func (r feedbackRow) unpack() feedback.Feedback {
	return feedback.Feedback{
		ID:            r.ID,
		StudentID:     r.StudentID,
		RecipientID:   r.RecipientID,
		RecipientRole: r.RecipientRole,
		Message:       r.Message,
		Rating:        r.Rating,
		Status:        feedback.Status(r.Status),
		Reply:         r.Reply,
		ReplyBy:       r.ReplyBy,
		ReplyTime:     r.ReplyTime,
		CreatedAt:     r.CreatedAt,
	}
}

type feedbackInfoRow struct {
	feedbackRow
	StudentName   null.String `db:"student_name"`
	RecipientName null.String `db:"recipient_name"`
}

const feedbackInfoQuery = `
	SELECT f.id, f.student_id, f.recipient_id, f.recipient_role, f.message, f.rating,
	       f.status, f.reply, f.reply_by, f.reply_time, f.created_at,
	       s.name AS student_name, r.name AS recipient_name
	FROM feedback f
	JOIN "user" s ON f.student_id = s.id
	JOIN "user" r ON f.recipient_id = r.id`

func (repo FeedbackRepository) CreateFeedback(ctx context.Context, fb feedback.Feedback, exec ...core.DBExecutor) (feedback.Feedback, error) {
	fb.ID = uuid.New().String()
	_, err := repo.getExec(exec).ExecContext(ctx, `
		INSERT INTO feedback (id, student_id, recipient_id, recipient_role, message, rating, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		fb.ID, fb.StudentID, fb.RecipientID, fb.RecipientRole,
		fb.Message, fb.Rating, string(fb.Status), fb.CreatedAt.UTC())
	if err != nil {
		return feedback.Feedback{}, errors.Wrap(err, "inserting feedback")
	}
	return fb, nil
}

func (repo FeedbackRepository) QueryStudentFeedback(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]feedback.Info, error) {
	var rows []feedbackInfoRow
	err := sqlx.SelectContext(ctx, repo.queryer(exec), &rows,
		feedbackInfoQuery+` WHERE f.student_id = $1 ORDER BY f.created_at DESC`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying student feedback")
	}
	return unpackInfos(rows), nil
}

func (repo FeedbackRepository) QueryRecipientFeedback(ctx context.Context, recipientID string, status feedback.Status, exec ...core.DBExecutor) ([]feedback.Info, error) {
	var rows []feedbackInfoRow
	err := sqlx.SelectContext(ctx, repo.queryer(exec), &rows,
		feedbackInfoQuery+` WHERE f.recipient_id = $1 AND f.status = $2 ORDER BY f.created_at DESC`,
		recipientID, string(status))
	if err != nil {
		return nil, errors.Wrap(err, "querying recipient feedback")
	}
	return unpackInfos(rows), nil
}

func (repo FeedbackRepository) ReplyFeedback(ctx context.Context, id, recipientID, reply, replyBy string, at time.Time, exec ...core.DBExecutor) (int64, error) {
	res, err := repo.getExec(exec).ExecContext(ctx, `
		UPDATE feedback SET status = $1, reply = $2, reply_by = $3, reply_time = $4
		WHERE id = $5 AND recipient_id = $6 AND status = $7`,
		string(feedback.StatusReplied), reply, replyBy, at.UTC(),
		id, recipientID, string(feedback.StatusPending))
	if err != nil {
		return 0, errors.Wrap(err, "replying to feedback")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "replying to feedback")
	}
	return affected, nil
}

func unpackInfos(rows []feedbackInfoRow) []feedback.Info {
	infos := make([]feedback.Info, 0, len(rows))
	for _, row := range rows {
		infos = append(infos, feedback.Info{
			Feedback:      row.feedbackRow.unpack(),
			StudentName:   row.StudentName.String,
			RecipientName: row.RecipientName.String,
		})
	}
	return infos
}
