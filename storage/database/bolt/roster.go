package boltdb

import (
	"context"

	"go.etcd.io/bbolt"

	"github.com/trezcool/studio/core/roster"
)

type rosterRepository struct {
	db *DB
}

var _ roster.Repository = (*rosterRepository)(nil)

func NewRosterRepository(db *DB) roster.Repository {
	return &rosterRepository{db: db}
}

func (repo *rosterRepository) CreateStudent(_ context.Context, student roster.Student) (roster.Student, error) {
	err := repo.db.bolt.Update(func(tx *bbolt.Tx) error {
		return insert(tx, studentsBucket, student.ID, student, roster.ErrConflict)
	})
	return student, err
}

func (repo *rosterRepository) CreateTeacher(_ context.Context, teacher roster.Teacher) (roster.Teacher, error) {
	err := repo.db.bolt.Update(func(tx *bbolt.Tx) error {
		return insert(tx, teachersBucket, teacher.ID, teacher, roster.ErrConflict)
	})
	return teacher, err
}

func (repo *rosterRepository) CreateClass(_ context.Context, class roster.Class) (roster.Class, error) {
	err := repo.db.bolt.Update(func(tx *bbolt.Tx) error {
		return insert(tx, classesBucket, class.ID, class, roster.ErrConflict)
	})
	return class, err
}

func (repo *rosterRepository) AssignTeacher(_ context.Context, classID, teacherID string) error {
	return repo.db.bolt.Update(func(tx *bbolt.Tx) error {
		if _, err := get[roster.Teacher](tx, teachersBucket, teacherID); err == errMissingKey {
			return roster.ErrTeacherNotFound
		}
		err := update(tx, classesBucket, classID, roster.ErrClassNotFound, func(c *roster.Class) error {
			if c.HasTeacher(teacherID) {
				return roster.ErrConflict
			}
			c.TeacherIDs = append(c.TeacherIDs, teacherID)
			return nil
		})
		if err != nil {
			return err
		}
		return update(tx, teachersBucket, teacherID, roster.ErrTeacherNotFound, func(t *roster.Teacher) error {
			t.ClassIDs = append(t.ClassIDs, classID)
			return nil
		})
	})
}

func (repo *rosterRepository) UnassignTeacher(_ context.Context, classID, teacherID string) error {
	return repo.db.bolt.Update(func(tx *bbolt.Tx) error {
		err := update(tx, classesBucket, classID, roster.ErrClassNotFound, func(c *roster.Class) error {
			if !c.HasTeacher(teacherID) {
				return roster.ErrNotFound
			}
			c.TeacherIDs = removeID(c.TeacherIDs, teacherID)
			return nil
		})
		if err != nil {
			return err
		}
		err = update(tx, teachersBucket, teacherID, roster.ErrTeacherNotFound, func(t *roster.Teacher) error {
			t.ClassIDs = removeID(t.ClassIDs, classID)
			return nil
		})
		if err == roster.ErrTeacherNotFound {
			return nil // deleted teacher, the class edge is gone anyway
		}
		return err
	})
}

// EnrollStudent runs in one bolt write transaction, so the capacity check is atomic.
func (repo *rosterRepository) EnrollStudent(_ context.Context, studentID, classID string) error {
	return repo.db.bolt.Update(func(tx *bbolt.Tx) error {
		if _, err := get[roster.Class](tx, classesBucket, classID); err == errMissingKey {
			return roster.ErrClassNotFound
		}
		if _, err := get[roster.Student](tx, studentsBucket, studentID); err == errMissingKey {
			return roster.ErrStudentNotFound
		}
		err := update(tx, classesBucket, classID, roster.ErrClassNotFound, func(c *roster.Class) error {
			if c.HasStudent(studentID) {
				return roster.ErrConflict
			}
			if c.IsFull() {
				return roster.ErrClassFull
			}
			c.StudentIDs = append(c.StudentIDs, studentID)
			return nil
		})
		if err != nil {
			return err
		}
		return update(tx, studentsBucket, studentID, roster.ErrStudentNotFound, func(s *roster.Student) error {
			s.ClassIDs = append(s.ClassIDs, classID)
			return nil
		})
	})
}

func (repo *rosterRepository) UnenrollStudent(_ context.Context, studentID, classID string) error {
	return repo.db.bolt.Update(func(tx *bbolt.Tx) error {
		err := update(tx, classesBucket, classID, roster.ErrClassNotFound, func(c *roster.Class) error {
			if !c.HasStudent(studentID) {
				return roster.ErrNotFound
			}
			c.StudentIDs = removeID(c.StudentIDs, studentID)
			return nil
		})
		if err != nil {
			return err
		}
		err = update(tx, studentsBucket, studentID, roster.ErrStudentNotFound, func(s *roster.Student) error {
			s.ClassIDs = removeID(s.ClassIDs, classID)
			return nil
		})
		if err == roster.ErrStudentNotFound {
			return nil
		}
		return err
	})
}

func (repo *rosterRepository) GetClassByID(_ context.Context, classID string) (roster.Class, error) {
	var class roster.Class
	err := repo.db.bolt.View(func(tx *bbolt.Tx) error {
		e, err := get[roster.Class](tx, classesBucket, classID)
		if err == errMissingKey {
			return roster.ErrClassNotFound
		}
		class = e.Value
		return err
	})
	return class, err
}

func (repo *rosterRepository) GetStudentByID(_ context.Context, studentID string) (roster.Student, error) {
	var student roster.Student
	err := repo.db.bolt.View(func(tx *bbolt.Tx) error {
		e, err := get[roster.Student](tx, studentsBucket, studentID)
		if err == errMissingKey {
			return roster.ErrStudentNotFound
		}
		student = e.Value
		return err
	})
	return student, err
}

func (repo *rosterRepository) GetTeacherByID(_ context.Context, teacherID string) (roster.Teacher, error) {
	var teacher roster.Teacher
	err := repo.db.bolt.View(func(tx *bbolt.Tx) error {
		e, err := get[roster.Teacher](tx, teachersBucket, teacherID)
		if err == errMissingKey {
			return roster.ErrTeacherNotFound
		}
		teacher = e.Value
		return err
	})
	return teacher, err
}

func (repo *rosterRepository) GetEnrolledStudents(_ context.Context, classID string) ([]roster.Student, error) {
	var students []roster.Student
	err := repo.db.bolt.View(func(tx *bbolt.Tx) error {
		c, err := get[roster.Class](tx, classesBucket, classID)
		if err == errMissingKey {
			return roster.ErrClassNotFound
		}
		if err != nil {
			return err
		}
		students = make([]roster.Student, 0, len(c.Value.StudentIDs))
		for _, id := range c.Value.StudentIDs {
			s, err := get[roster.Student](tx, studentsBucket, id)
			if err == errMissingKey {
				continue
			}
			if err != nil {
				return err
			}
			students = append(students, s.Value)
		}
		return nil
	})
	return students, err
}

func (repo *rosterRepository) GetAssignedTeachers(_ context.Context, classID string) ([]roster.Teacher, error) {
	var teachers []roster.Teacher
	err := repo.db.bolt.View(func(tx *bbolt.Tx) error {
		c, err := get[roster.Class](tx, classesBucket, classID)
		if err == errMissingKey {
			return roster.ErrClassNotFound
		}
		if err != nil {
			return err
		}
		teachers = make([]roster.Teacher, 0, len(c.Value.TeacherIDs))
		for _, id := range c.Value.TeacherIDs {
			t, err := get[roster.Teacher](tx, teachersBucket, id)
			if err == errMissingKey {
				continue
			}
			if err != nil {
				return err
			}
			teachers = append(teachers, t.Value)
		}
		return nil
	})
	return teachers, err
}

func (repo *rosterRepository) QueryStudents(context.Context) ([]roster.Student, error) {
	var students []roster.Student
	err := repo.db.bolt.View(func(tx *bbolt.Tx) (err error) {
		students, err = all[roster.Student](tx, studentsBucket)
		return err
	})
	return students, err
}

func (repo *rosterRepository) QueryTeachers(context.Context) ([]roster.Teacher, error) {
	var teachers []roster.Teacher
	err := repo.db.bolt.View(func(tx *bbolt.Tx) (err error) {
		teachers, err = all[roster.Teacher](tx, teachersBucket)
		return err
	})
	return teachers, err
}

func (repo *rosterRepository) QueryClasses(context.Context) ([]roster.Class, error) {
	var classes []roster.Class
	err := repo.db.bolt.View(func(tx *bbolt.Tx) (err error) {
		classes, err = all[roster.Class](tx, classesBucket)
		return err
	})
	return classes, err
}
