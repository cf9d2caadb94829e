package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/arunvm123/gigbooking/model"
)

const bookingCASSQL = `UPDATE "bookings" SET .* WHERE id = \$\d+ AND status = \$\d+ AND payment_status = \$\d+`

func TestBookingRepository_UpdateStatus(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"current pair matched", 1, true},
		{"pair changed concurrently", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewBookingRepository(db)

			mock.ExpectExec(bookingCASSQL).WillReturnResult(sqlmock.NewResult(0, tt.affected))

			ok, err := repo.UpdateStatus(context.Background(), model.UpdateBookingStatusRequest{
				BookingID:         "bk-1",
				FromStatus:        model.BookingStatusPending,
				FromPaymentStatus: model.PaymentStatusPending,
				Status:            model.BookingStatusCancelled,
				PaymentStatus:     model.PaymentStatusFailed,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBookingRepository_FindByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "bookings" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByID(context.Background(), "nope")
	assert.ErrorIs(t, err, model.ErrBookingNotFound)
}

func TestBookingRepository_ListByUser(t *testing.T) {
	db, mock := newMockDB(t)
	mock.MatchExpectationsInOrder(false)
	repo := NewBookingRepository(db)
	created := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "bookings" WHERE user_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT \* FROM "bookings" WHERE user_id = \$1 ORDER BY "created_at" DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "user_id", "number_of_tickets", "total_amount", "status", "payment_status", "created_at"}).
			AddRow("bk-1", "evt-1", "u-1", 2, 50.0, "pending", "pending", created))

	bookings, total, err := repo.List(context.Background(), model.BookingFilter{
		UserID: "u-1",
		Params: model.PaginationParams{}.Normalize(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, bookings, 1)
	assert.Equal(t, 2, bookings[0].NumberOfTickets)
	assert.Equal(t, model.BookingStatusPending, bookings[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateDuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).AddRow("u-1", "taken@example.com"))

	_, err := repo.Create(context.Background(), model.CreateUserRequest{
		Name: "Taken", Email: "taken@example.com", Password: "password123", Role: model.RoleUser,
	})
	assert.ErrorIs(t, err, model.ErrConflict)
}

func TestUserRepository_FindByEmailNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestUserRepository_ValidatePassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := NewUserRepository(nil)
	user := &model.User{PasswordHash: string(hash)}

	assert.True(t, repo.ValidatePassword(user, "s3cret-pass"))
	assert.False(t, repo.ValidatePassword(user, "wrong"))
}
