package managereviews

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "nyc-kinder-workers/internal/common/errors"
	"nyc-kinder-workers/internal/common/logger"
)

var (
	now           = time.Date(2024, 5, 12, 18, 0, 0, 0, time.UTC)
	reviewColumns = []string{"id", "user_id", "dbn", "rating", "body", "created_at"}
)

type fakeMailer struct {
	to      []string
	subject string
	err     error
}

func (m *fakeMailer) Send(_ context.Context, to []string, subject, _ string) (string, error) {
	m.to, m.subject = to, subject
	if m.err != nil {
		return "", m.err
	}
	return "msg-1", nil
}

func newTestHandler(t *testing.T, mailer Mailer) (*Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})

	config := &Config{
		Timeout:         5 * time.Second,
		MaxReviewLength: 50,
		ModeratorEmail:  "moderators@example.org",
		Clock:           clockwork.NewFakeClockAt(now),
	}
	return NewHandler(config, db, mailer, logger.NewTestLogger(t), nil), mock
}

func requireCode(t *testing.T, err error, code apperrors.ErrorCode) *apperrors.StandardError {
	t.Helper()
	stdErr, ok := apperrors.As(err)
	require.True(t, ok, "expected StandardError, got %v", err)
	assert.Equal(t, code, stdErr.Code)
	return stdErr
}

func expectSchool(mock sqlmock.Sqlmock, dbn string, exists bool) {
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM schools WHERE dbn = \$1\)`).
		WithArgs(dbn).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(exists))
}

func TestHandler_Submit(t *testing.T) {
	mailer := &fakeMailer{}
	h, mock := newTestHandler(t, mailer)

	expectSchool(mock, "02M158", true)
	mock.ExpectExec(`INSERT INTO reviews`).
		WithArgs(sqlmock.AnyArg(), "user-1", "02M158", 5, "Wonderful teachers", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := h.Execute(context.Background(), &Input{
		Action: ActionSubmit,
		UserID: "user-1",
		DBN:    "02M158",
		Rating: 5,
		Body:   "  Wonderful teachers ",
	})
	require.NoError(t, err)

	assert.Equal(t, "Wonderful teachers", out.Review.Body)
	assert.True(t, out.ModeratorNotified)
	assert.Equal(t, []string{"moderators@example.org"}, mailer.to)
	assert.Contains(t, mailer.subject, "02M158")
}

func TestHandler_Submit_MailFailureKeepsReview(t *testing.T) {
	h, mock := newTestHandler(t, &fakeMailer{err: errors.New("throttled")})

	expectSchool(mock, "02M158", true)
	mock.ExpectExec(`INSERT INTO reviews`).WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := h.Execute(context.Background(), &Input{
		Action: ActionSubmit, UserID: "user-1", DBN: "02M158", Rating: 4, Body: "Good",
	})
	require.NoError(t, err)
	assert.False(t, out.ModeratorNotified)
}

func TestHandler_Submit_WithoutMailer(t *testing.T) {
	h, mock := newTestHandler(t, nil)

	expectSchool(mock, "02M158", true)
	mock.ExpectExec(`INSERT INTO reviews`).WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := h.Execute(context.Background(), &Input{
		Action: ActionSubmit, UserID: "user-1", DBN: "02M158", Rating: 3, Body: "Fine",
	})
	require.NoError(t, err)
	assert.False(t, out.ModeratorNotified)
}

func TestHandler_Submit_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input Input
		field string
	}{
		{"rating too low", Input{UserID: "u", DBN: "02M158", Rating: 0, Body: "ok"}, "rating"},
		{"rating too high", Input{UserID: "u", DBN: "02M158", Rating: 6, Body: "ok"}, "rating"},
		{"empty body", Input{UserID: "u", DBN: "02M158", Rating: 3, Body: "   "}, "body"},
		{"body too long", Input{UserID: "u", DBN: "02M158", Rating: 3, Body: strings.Repeat("a", 51)}, "body"},
		{"malformed dbn", Input{UserID: "u", DBN: "2M158", Rating: 3, Body: "ok"}, "dbn"},
		{"missing user", Input{DBN: "02M158", Rating: 3, Body: "ok"}, "userId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t, nil)
			input := tt.input
			input.Action = ActionSubmit

			_, err := h.Execute(context.Background(), &input)

			stdErr := requireCode(t, err, apperrors.ErrCodeReviewValidationFailed)
			assert.Contains(t, stdErr.Metadata["fields"], tt.field)
		})
	}
}

func TestHandler_Submit_SchoolChecks(t *testing.T) {
	h, mock := newTestHandler(t, nil)

	_, err := h.Execute(context.Background(), &Input{
		Action: ActionSubmit, UserID: "u", DBN: "84X123", Rating: 3, Body: "ok",
	})
	requireCode(t, err, apperrors.ErrCodeNotNYCSchool)

	expectSchool(mock, "02M999", false)
	_, err = h.Execute(context.Background(), &Input{
		Action: ActionSubmit, UserID: "u", DBN: "02M999", Rating: 3, Body: "ok",
	})
	requireCode(t, err, apperrors.ErrCodeSchoolNotFound)
}

func TestHandler_Delete(t *testing.T) {
	row := func() *sqlmock.Rows {
		return sqlmock.NewRows(reviewColumns).AddRow("rev-1", "user-1", "02M158", 4, "Good", now)
	}

	t.Run("owner deletes", func(t *testing.T) {
		h, mock := newTestHandler(t, nil)
		mock.ExpectQuery(`FROM reviews WHERE id = \$1`).WithArgs("rev-1").WillReturnRows(row())
		mock.ExpectExec(`DELETE FROM reviews WHERE id = \$1`).WithArgs("rev-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		out, err := h.Execute(context.Background(), &Input{Action: ActionDelete, UserID: "user-1", ReviewID: "rev-1"})
		require.NoError(t, err)
		assert.Equal(t, "rev-1", out.Review.ID)
	})

	t.Run("other user is forbidden", func(t *testing.T) {
		h, mock := newTestHandler(t, nil)
		mock.ExpectQuery(`FROM reviews WHERE id = \$1`).WithArgs("rev-1").WillReturnRows(row())

		_, err := h.Execute(context.Background(), &Input{Action: ActionDelete, UserID: "user-2", ReviewID: "rev-1"})
		requireCode(t, err, apperrors.ErrCodeForbidden)
	})

	t.Run("missing review", func(t *testing.T) {
		h, mock := newTestHandler(t, nil)
		mock.ExpectQuery(`FROM reviews WHERE id = \$1`).WithArgs("rev-1").
			WillReturnRows(sqlmock.NewRows(reviewColumns))

		_, err := h.Execute(context.Background(), &Input{Action: ActionDelete, UserID: "user-1", ReviewID: "rev-1"})
		requireCode(t, err, apperrors.ErrCodeReviewNotFound)
	})
}

func TestHandler_List(t *testing.T) {
	h, mock := newTestHandler(t, nil)
	mock.ExpectQuery(`FROM reviews WHERE dbn = \$1`).WithArgs("02M158").
		WillReturnRows(sqlmock.NewRows(reviewColumns).
			AddRow("rev-2", "user-2", "02M158", 5, "Great", now).
			AddRow("rev-1", "user-1", "02M158", 4, "Good", now.Add(-time.Hour)))

	out, err := h.Execute(context.Background(), &Input{Action: ActionList, DBN: "02M158"})
	require.NoError(t, err)

	assert.Len(t, out.Reviews, 2)
	require.NotNil(t, out.Summary)
	assert.Equal(t, 2, out.Summary.Count)
	assert.Equal(t, 4.5, out.Summary.AverageRating)
}

func TestHandler_UnknownAction(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	_, err := h.Execute(context.Background(), &Input{Action: "edit"})
	requireCode(t, err, apperrors.ErrCodeInvalidInput)
}
