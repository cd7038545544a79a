package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/studio/core/roster"
)

const (
	selectStudents = `
SELECT s.id, s.name, s.email, s.phone,
       ARRAY(SELECT cs.class_id FROM class_students cs WHERE cs.student_id = s.id ORDER BY cs.position) AS class_ids
FROM students s`

	selectTeachers = `
SELECT t.id, t.name, t.email, t.phone, t.is_studio_owner,
       ARRAY(SELECT ct.class_id FROM class_teachers ct WHERE ct.teacher_id = t.id ORDER BY ct.position) AS class_ids
FROM teachers t`

	selectClasses = `
SELECT c.id, c.name, c.monthly_price, c.duration_minutes, c.schedule, c.capacity,
       ARRAY(SELECT ct.teacher_id FROM class_teachers ct WHERE ct.class_id = c.id ORDER BY ct.position) AS teacher_ids,
       ARRAY(SELECT cs.student_id FROM class_students cs WHERE cs.class_id = c.id ORDER BY cs.position) AS student_ids
FROM classes c`
)

type (
	studentRow struct {
		ID       string         `db:"id"`
		Name     string         `db:"name"`
		Email    null.String    `db:"email"`
		Phone    null.String    `db:"phone"`
		ClassIDs pq.StringArray `db:"class_ids"`
	}

	teacherRow struct {
		ID            string         `db:"id"`
		Name          string         `db:"name"`
		Email         null.String    `db:"email"`
		Phone         null.String    `db:"phone"`
		IsStudioOwner bool           `db:"is_studio_owner"`
		ClassIDs      pq.StringArray `db:"class_ids"`
	}

	classRow struct {
		ID              string          `db:"id"`
		Name            string          `db:"name"`
		MonthlyPrice    decimal.Decimal `db:"monthly_price"`
		DurationMinutes null.Int        `db:"duration_minutes"`
		Schedule        []byte          `db:"schedule"`
		Capacity        int             `db:"capacity"`
		TeacherIDs      pq.StringArray  `db:"teacher_ids"`
		StudentIDs      pq.StringArray  `db:"student_ids"`
	}
)

func (r studentRow) student() roster.Student {
	return roster.Student{
		ID:       r.ID,
		Name:     r.Name,
		Email:    r.Email.String,
		Phone:    r.Phone.String,
		ClassIDs: append([]string{}, r.ClassIDs...),
	}
}

func (r teacherRow) teacher() roster.Teacher {
	return roster.Teacher{
		ID:            r.ID,
		Name:          r.Name,
		Email:         r.Email.String,
		Phone:         r.Phone.String,
		IsStudioOwner: r.IsStudioOwner,
		ClassIDs:      append([]string{}, r.ClassIDs...),
	}
}

func (r classRow) class() (roster.Class, error) {
	schedule := make([]roster.Slot, 0)
	if len(r.Schedule) > 0 {
		if err := json.Unmarshal(r.Schedule, &schedule); err != nil {
			return roster.Class{}, errors.Wrap(err, "decoding class schedule")
		}
	}
	return roster.Class{
		ID:              r.ID,
		Name:            r.Name,
		MonthlyPrice:    r.MonthlyPrice,
		DurationMinutes: r.DurationMinutes.Int,
		Schedule:        schedule,
		Capacity:        r.Capacity,
		TeacherIDs:      append([]string{}, r.TeacherIDs...),
		StudentIDs:      append([]string{}, r.StudentIDs...),
	}, nil
}

type rosterRepository struct {
	db *sqlx.DB
}

var _ roster.Repository = (*rosterRepository)(nil)

func NewRosterRepository(db *sqlx.DB) roster.Repository {
	return &rosterRepository{db: db}
}

func (repo *rosterRepository) CreateStudent(ctx context.Context, student roster.Student) (roster.Student, error) {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO students (id, name, email, phone) VALUES ($1, $2, $3, $4)`,
		student.ID, student.Name, null.NewString(student.Email, student.Email != ""), null.NewString(student.Phone, student.Phone != ""),
	)
	if err != nil {
		if pqCode(err) == uniqueViolation {
			return roster.Student{}, roster.ErrConflict
		}
		return roster.Student{}, errors.Wrap(err, "inserting student")
	}
	return repo.GetStudentByID(ctx, student.ID)
}

func (repo *rosterRepository) CreateTeacher(ctx context.Context, teacher roster.Teacher) (roster.Teacher, error) {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO teachers (id, name, email, phone, is_studio_owner) VALUES ($1, $2, $3, $4, $5)`,
		teacher.ID, teacher.Name, null.NewString(teacher.Email, teacher.Email != ""),
		null.NewString(teacher.Phone, teacher.Phone != ""), teacher.IsStudioOwner,
	)
	if err != nil {
		if pqCode(err) == uniqueViolation {
			return roster.Teacher{}, roster.ErrConflict
		}
		return roster.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	return repo.GetTeacherByID(ctx, teacher.ID)
}

func (repo *rosterRepository) CreateClass(ctx context.Context, class roster.Class) (roster.Class, error) {
	schedule, err := json.Marshal(class.Schedule)
	if err != nil {
		return roster.Class{}, errors.Wrap(err, "encoding class schedule")
	}
	_, err = repo.db.ExecContext(ctx,
		`INSERT INTO classes (id, name, monthly_price, duration_minutes, schedule, capacity) VALUES ($1, $2, $3, $4, $5, $6)`,
		class.ID, class.Name, class.MonthlyPrice, null.NewInt(class.DurationMinutes, class.DurationMinutes > 0),
		schedule, class.Capacity,
	)
	if err != nil {
		if pqCode(err) == uniqueViolation {
			return roster.Class{}, roster.ErrConflict
		}
		return roster.Class{}, errors.Wrap(err, "inserting class")
	}
	return repo.GetClassByID(ctx, class.ID)
}

func (repo *rosterRepository) AssignTeacher(ctx context.Context, classID, teacherID string) error {
	return inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := lockClass(ctx, tx, classID); err != nil {
			return err
		}
		if err := checkExists(ctx, tx, `SELECT true FROM teachers WHERE id = $1`, teacherID, roster.ErrTeacherNotFound); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO class_teachers (class_id, teacher_id) VALUES ($1, $2)`, classID, teacherID)
		if err != nil {
			if pqCode(err) == uniqueViolation {
				return roster.ErrConflict
			}
			return errors.Wrap(err, "inserting class teacher")
		}
		return nil
	})
}

func (repo *rosterRepository) UnassignTeacher(ctx context.Context, classID, teacherID string) error {
	return inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := lockClass(ctx, tx, classID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM class_teachers WHERE class_id = $1 AND teacher_id = $2`, classID, teacherID)
		if err != nil {
			return errors.Wrap(err, "deleting class teacher")
		}
		return checkAffected(res, roster.ErrNotFound)
	})
}

// EnrollStudent locks the class row so the capacity check & the insert are atomic.
func (repo *rosterRepository) EnrollStudent(ctx context.Context, studentID, classID string) error {
	return inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		capacity, err := lockClass(ctx, tx, classID)
		if err != nil {
			return err
		}
		if err = checkExists(ctx, tx, `SELECT true FROM students WHERE id = $1`, studentID, roster.ErrStudentNotFound); err != nil {
			return err
		}

		var enrolled bool
		if err = tx.GetContext(ctx, &enrolled,
			`SELECT EXISTS (SELECT 1 FROM class_students WHERE class_id = $1 AND student_id = $2)`, classID, studentID,
		); err != nil {
			return errors.Wrap(err, "checking enrollment")
		}
		if enrolled {
			return roster.ErrConflict
		}

		if capacity > 0 {
			var count int
			if err = tx.GetContext(ctx, &count, `SELECT count(*) FROM class_students WHERE class_id = $1`, classID); err != nil {
				return errors.Wrap(err, "counting enrollments")
			}
			if count >= capacity {
				return roster.ErrClassFull
			}
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO class_students (class_id, student_id) VALUES ($1, $2)`, classID, studentID)
		if err != nil {
			if pqCode(err) == uniqueViolation {
				return roster.ErrConflict
			}
			return errors.Wrap(err, "inserting class student")
		}
		return nil
	})
}

func (repo *rosterRepository) UnenrollStudent(ctx context.Context, studentID, classID string) error {
	return inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := lockClass(ctx, tx, classID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM class_students WHERE class_id = $1 AND student_id = $2`, classID, studentID)
		if err != nil {
			return errors.Wrap(err, "deleting class student")
		}
		return checkAffected(res, roster.ErrNotFound)
	})
}

func (repo *rosterRepository) GetClassByID(ctx context.Context, classID string) (roster.Class, error) {
	var row classRow
	if err := repo.db.GetContext(ctx, &row, selectClasses+` WHERE c.id = $1`, classID); err != nil {
		if err == sql.ErrNoRows {
			return roster.Class{}, roster.ErrClassNotFound
		}
		return roster.Class{}, errors.Wrap(err, "selecting class")
	}
	return row.class()
}

func (repo *rosterRepository) GetStudentByID(ctx context.Context, studentID string) (roster.Student, error) {
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, selectStudents+` WHERE s.id = $1`, studentID); err != nil {
		if err == sql.ErrNoRows {
			return roster.Student{}, roster.ErrStudentNotFound
		}
		return roster.Student{}, errors.Wrap(err, "selecting student")
	}
	return row.student(), nil
}

func (repo *rosterRepository) GetTeacherByID(ctx context.Context, teacherID string) (roster.Teacher, error) {
	var row teacherRow
	if err := repo.db.GetContext(ctx, &row, selectTeachers+` WHERE t.id = $1`, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return roster.Teacher{}, roster.ErrTeacherNotFound
		}
		return roster.Teacher{}, errors.Wrap(err, "selecting teacher")
	}
	return row.teacher(), nil
}

func (repo *rosterRepository) GetEnrolledStudents(ctx context.Context, classID string) ([]roster.Student, error) {
	if err := checkExists(ctx, repo.db, `SELECT true FROM classes WHERE id = $1`, classID, roster.ErrClassNotFound); err != nil {
		return nil, err
	}
	var rows []studentRow
	err := repo.db.SelectContext(ctx, &rows, selectStudents+`
JOIN class_students e ON e.student_id = s.id
WHERE e.class_id = $1
ORDER BY e.position`, classID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting enrolled students")
	}
	students := make([]roster.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.student())
	}
	return students, nil
}

func (repo *rosterRepository) GetAssignedTeachers(ctx context.Context, classID string) ([]roster.Teacher, error) {
	if err := checkExists(ctx, repo.db, `SELECT true FROM classes WHERE id = $1`, classID, roster.ErrClassNotFound); err != nil {
		return nil, err
	}
	var rows []teacherRow
	err := repo.db.SelectContext(ctx, &rows, selectTeachers+`
JOIN class_teachers a ON a.teacher_id = t.id
WHERE a.class_id = $1
ORDER BY a.position`, classID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting assigned teachers")
	}
	teachers := make([]roster.Teacher, 0, len(rows))
	for _, r := range rows {
		teachers = append(teachers, r.teacher())
	}
	return teachers, nil
}

func (repo *rosterRepository) QueryStudents(ctx context.Context) ([]roster.Student, error) {
	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, selectStudents+` ORDER BY s.created_at, s.id`); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	students := make([]roster.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.student())
	}
	return students, nil
}

func (repo *rosterRepository) QueryTeachers(ctx context.Context) ([]roster.Teacher, error) {
	var rows []teacherRow
	if err := repo.db.SelectContext(ctx, &rows, selectTeachers+` ORDER BY t.created_at, t.id`); err != nil {
		return nil, errors.Wrap(err, "selecting teachers")
	}
	teachers := make([]roster.Teacher, 0, len(rows))
	for _, r := range rows {
		teachers = append(teachers, r.teacher())
	}
	return teachers, nil
}

func (repo *rosterRepository) QueryClasses(ctx context.Context) ([]roster.Class, error) {
	var rows []classRow
	if err := repo.db.SelectContext(ctx, &rows, selectClasses+` ORDER BY c.created_at, c.id`); err != nil {
		return nil, errors.Wrap(err, "selecting classes")
	}
	classes := make([]roster.Class, 0, len(rows))
	for _, r := range rows {
		c, err := r.class()
		if err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, nil
}

// lockClass locks the class row for the transaction & returns its capacity.
func lockClass(ctx context.Context, tx *sqlx.Tx, classID string) (int, error) {
	var capacity int
	if err := tx.GetContext(ctx, &capacity, `SELECT capacity FROM classes WHERE id = $1 FOR UPDATE`, classID); err != nil {
		if err == sql.ErrNoRows {
			return 0, roster.ErrClassNotFound
		}
		return 0, errors.Wrap(err, "locking class")
	}
	return capacity, nil
}

func checkExists(ctx context.Context, q sqlx.QueryerContext, query, id string, notFound error) error {
	var found bool
	if err := sqlx.GetContext(ctx, q, &found, query, id); err != nil {
		if err == sql.ErrNoRows {
			return notFound
		}
		return errors.Wrap(err, "checking existence")
	}
	return nil
}

func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}
