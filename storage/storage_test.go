package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studio/core"
	"github.com/trezcool/studio/core/payment"
	"github.com/trezcool/studio/core/roster"
	"github.com/trezcool/studio/storage"
	"github.com/trezcool/studio/testutil"
)

func open(t *testing.T, driver string) *storage.Storage {
	conf := core.NewTestConfig()
	conf.Storage.Driver = driver
	conf.Storage.BoltPath = filepath.Join(t.TempDir(), "studio.db")

	st, err := storage.Open(context.Background(), conf, &testutil.Logger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

var drivers = []string{storage.DriverMemory, storage.DriverBolt}

func TestOpen(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Storage.Driver = "lol"
	_, err := storage.Open(context.Background(), conf, &testutil.Logger{})
	assert.EqualError(t, err, `unknown storage driver "lol"`)

	st := open(t, storage.DriverMemory)
	assert.Nil(t, st.DB())
}

func TestRosterRepository(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			st := open(t, driver)
			repo := st.Roster
			svc := roster.NewService(repo)

			ballet, err := svc.CreateClass(ctx, roster.NewClass{Name: "Ballet", MonthlyPrice: 800, DurationMinutes: 60, Capacity: 1})
			require.NoError(t, err)
			ada, err := svc.CreateStudent(ctx, roster.NewStudent{Name: "Ada", Email: "ada@studio.test"})
			require.NoError(t, err)
			bob, err := svc.CreateStudent(ctx, roster.NewStudent{Name: "Bob"})
			require.NoError(t, err)
			miss, err := svc.CreateTeacher(ctx, roster.NewTeacher{Name: "Miss", IsStudioOwner: true})
			require.NoError(t, err)

			require.NoError(t, repo.EnrollStudent(ctx, ada.ID, ballet.ID))
			require.NoError(t, repo.AssignTeacher(ctx, ballet.ID, miss.ID))

			tests := []struct {
				name    string
				err     error
				wantErr error
			}{
				{name: "enroll twice", err: repo.EnrollStudent(ctx, ada.ID, ballet.ID), wantErr: roster.ErrConflict},
				{name: "enroll in a full class", err: repo.EnrollStudent(ctx, bob.ID, ballet.ID), wantErr: roster.ErrClassFull},
				{name: "enroll in unknown class", err: repo.EnrollStudent(ctx, ada.ID, "nothing"), wantErr: roster.ErrClassNotFound},
				{name: "enroll unknown student", err: repo.EnrollStudent(ctx, "nobody", ballet.ID), wantErr: roster.ErrStudentNotFound},
				{name: "unenroll not enrolled", err: repo.UnenrollStudent(ctx, bob.ID, ballet.ID), wantErr: roster.ErrNotFound},
				{name: "assign twice", err: repo.AssignTeacher(ctx, ballet.ID, miss.ID), wantErr: roster.ErrConflict},
				{name: "assign unknown teacher", err: repo.AssignTeacher(ctx, ballet.ID, "nobody"), wantErr: roster.ErrTeacherNotFound},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					assert.Equal(t, tt.wantErr, tt.err)
				})
			}

			class, err := repo.GetClassByID(ctx, ballet.ID)
			require.NoError(t, err)
			assert.Equal(t, []string{ada.ID}, class.StudentIDs)
			assert.Equal(t, []string{miss.ID}, class.TeacherIDs)
			assert.True(t, class.MonthlyPrice.Equal(decimal.NewFromInt(800)))

			student, err := repo.GetStudentByID(ctx, ada.ID)
			require.NoError(t, err)
			assert.Equal(t, []string{ballet.ID}, student.ClassIDs)

			students, err := repo.GetEnrolledStudents(ctx, ballet.ID)
			require.NoError(t, err)
			require.Len(t, students, 1)
			assert.Equal(t, "ada@studio.test", students[0].Email)

			teachers, err := repo.GetAssignedTeachers(ctx, ballet.ID)
			require.NoError(t, err)
			require.Len(t, teachers, 1)
			assert.True(t, teachers[0].IsStudioOwner)

			require.NoError(t, repo.UnenrollStudent(ctx, ada.ID, ballet.ID))
			require.NoError(t, repo.UnassignTeacher(ctx, ballet.ID, miss.ID))
			assert.Equal(t, roster.ErrNotFound, repo.UnassignTeacher(ctx, ballet.ID, miss.ID))

			student, err = repo.GetStudentByID(ctx, ada.ID)
			require.NoError(t, err)
			assert.Empty(t, student.ClassIDs)
			students, err = repo.GetEnrolledStudents(ctx, ballet.ID)
			require.NoError(t, err)
			assert.Empty(t, students)

			all, err := repo.QueryStudents(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 2)

			_, err = repo.GetClassByID(ctx, "nothing")
			assert.Equal(t, roster.ErrClassNotFound, err)
			_, err = repo.GetTeacherByID(ctx, "nobody")
			assert.Equal(t, roster.ErrTeacherNotFound, err)
		})
	}
}

func TestPaymentRepository(t *testing.T) {
	march := func(day int) time.Time { return time.Date(2024, time.March, day, 0, 0, 0, 0, time.UTC) }
	newRecord := func(studentID, month string, paid time.Time, amount int64, classIDs ...string) payment.Record {
		return payment.Record{
			ID:          uuid.NewString(),
			StudentID:   studentID,
			ClassIDs:    classIDs,
			TotalAmount: decimal.NewFromInt(amount),
			Month:       month,
			PaymentDate: paid,
			Method:      payment.Cash,
			MultiClass:  len(classIDs) > 1,
			CreatedAt:   paid,
		}
	}

	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			repo := open(t, driver).Payments

			first, err := repo.CreatePayment(ctx, newRecord("ada", "2024-03", march(5), 800, "ballet"))
			require.NoError(t, err)
			_, err = repo.CreatePayment(ctx, newRecord("ada", "2024-03", march(6), 1500, "jazz", "ballet"))
			assert.Equal(t, payment.ErrDuplicate, err)
			second, err := repo.CreatePayment(ctx, newRecord("ada", "2024-04", march(28), 1500, "jazz", "ballet"))
			require.NoError(t, err)
			_, err = repo.CreatePayment(ctx, newRecord("bob", "2024-03", march(2), 700, "jazz"))
			require.NoError(t, err)

			got, err := repo.GetPaymentByID(ctx, first.ID)
			require.NoError(t, err)
			assert.Equal(t, []string{"ballet"}, got.ClassIDs)
			assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(800)))
			assert.True(t, got.PaymentDate.Equal(march(5)))

			records, err := repo.FilterPayments(ctx, payment.Filter{
				StudentID: "ada",
				Ordering:  []core.DBOrdering{{Field: "payment_date"}},
			})
			require.NoError(t, err)
			require.Len(t, records, 2)
			assert.Equal(t, second.ID, records[0].ID)
			assert.True(t, records[0].MultiClass)

			records, err = repo.FilterPayments(ctx, payment.Filter{ClassID: "jazz", Month: "2024-03"})
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, "bob", records[0].StudentID)

			require.NoError(t, repo.DeletePayment(ctx, first.ID))
			assert.Equal(t, payment.ErrNotFound, repo.DeletePayment(ctx, first.ID))
			_, err = repo.GetPaymentByID(ctx, first.ID)
			assert.Equal(t, payment.ErrNotFound, err)

			_, err = repo.CreatePayment(ctx, newRecord("ada", "2024-03", march(7), 800, "ballet"))
			assert.NoError(t, err, "a deleted payment frees its month")
		})
	}
}
