package roster

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrConflict        = errors.New("relationship already exists")
	ErrNotFound        = errors.New("relationship not found")
	ErrClassNotFound   = errors.New("class not found")
	ErrStudentNotFound = errors.New("student not found")
	ErrTeacherNotFound = errors.New("teacher not found")
	ErrClassFull       = errors.New("class is at full capacity")
)

var errorTypes = map[error]string{
	ErrConflict:        "CONFLICT",
	ErrNotFound:        "NOT_FOUND",
	ErrClassNotFound:   "CLASS_NOT_FOUND",
	ErrStudentNotFound: "STUDENT_NOT_FOUND",
	ErrTeacherNotFound: "TEACHER_NOT_FOUND",
	ErrClassFull:       "CLASS_FULL",
}

// ErrorType returns the wire tag of a roster error, "" if err is not one.
func ErrorType(err error) string {
	return errorTypes[errors.Cause(err)]
}

// FromErrorType returns the roster error tagged `tag`, nil if unknown.
func FromErrorType(tag string) error {
	for err, t := range errorTypes {
		if t == tag {
			return err
		}
	}
	return nil
}

type (
	// Backend is the authoritative source of the relationship edges.
	Backend interface {
		AssignTeacher(ctx context.Context, classID, teacherID string) error
		UnassignTeacher(ctx context.Context, classID, teacherID string) error
		EnrollStudent(ctx context.Context, studentID, classID string) error
		UnenrollStudent(ctx context.Context, studentID, classID string) error
		GetClassByID(ctx context.Context, classID string) (Class, error)
		GetEnrolledStudents(ctx context.Context, classID string) ([]Student, error)
		GetAssignedTeachers(ctx context.Context, classID string) ([]Teacher, error)
	}

	// Directory looks up the records billing is derived from.
	Directory interface {
		GetClassByID(ctx context.Context, classID string) (Class, error)
		GetStudentByID(ctx context.Context, studentID string) (Student, error)
		QueryStudents(ctx context.Context) ([]Student, error)
		QueryClasses(ctx context.Context) ([]Class, error)
	}

	Repository interface {
		Backend
		Directory
		CreateStudent(ctx context.Context, student Student) (Student, error)
		CreateTeacher(ctx context.Context, teacher Teacher) (Teacher, error)
		CreateClass(ctx context.Context, class Class) (Class, error)
		GetTeacherByID(ctx context.Context, teacherID string) (Teacher, error)
		QueryTeachers(ctx context.Context) ([]Teacher, error)
	}
)

// ClassMap indexes classes by ID.
func ClassMap(classes []Class) map[string]Class {
	m := make(map[string]Class, len(classes))
	for _, c := range classes {
		m[c.ID] = c
	}
	return m
}
