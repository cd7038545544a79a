package inmemdb

import (
	"context"

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
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.students[student.ID]; ok {
		return roster.Student{}, roster.ErrConflict
	}
	student.ClassIDs = copyIDs(student.ClassIDs)
	repo.db.students[student.ID] = &student
	repo.db.studentOrder = append(repo.db.studentOrder, student.ID)
	return repo.student(student.ID), nil
}

func (repo *rosterRepository) CreateTeacher(_ context.Context, teacher roster.Teacher) (roster.Teacher, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.teachers[teacher.ID]; ok {
		return roster.Teacher{}, roster.ErrConflict
	}
	teacher.ClassIDs = copyIDs(teacher.ClassIDs)
	repo.db.teachers[teacher.ID] = &teacher
	repo.db.teacherOrder = append(repo.db.teacherOrder, teacher.ID)
	return repo.teacher(teacher.ID), nil
}

func (repo *rosterRepository) CreateClass(_ context.Context, class roster.Class) (roster.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.classes[class.ID]; ok {
		return roster.Class{}, roster.ErrConflict
	}
	class.TeacherIDs = copyIDs(class.TeacherIDs)
	class.StudentIDs = copyIDs(class.StudentIDs)
	class.Schedule = append([]roster.Slot{}, class.Schedule...)
	repo.db.classes[class.ID] = &class
	repo.db.classOrder = append(repo.db.classOrder, class.ID)
	return repo.class(class.ID), nil
}

func (repo *rosterRepository) AssignTeacher(_ context.Context, classID, teacherID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	class, ok := repo.db.classes[classID]
	if !ok {
		return roster.ErrClassNotFound
	}
	teacher, ok := repo.db.teachers[teacherID]
	if !ok {
		return roster.ErrTeacherNotFound
	}
	if class.HasTeacher(teacherID) {
		return roster.ErrConflict
	}
	class.TeacherIDs = append(class.TeacherIDs, teacherID)
	teacher.ClassIDs = append(teacher.ClassIDs, classID)
	return nil
}

func (repo *rosterRepository) UnassignTeacher(_ context.Context, classID, teacherID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	class, ok := repo.db.classes[classID]
	if !ok {
		return roster.ErrClassNotFound
	}
	if !class.HasTeacher(teacherID) {
		return roster.ErrNotFound
	}
	class.TeacherIDs = removeID(class.TeacherIDs, teacherID)
	if teacher, ok := repo.db.teachers[teacherID]; ok {
		teacher.ClassIDs = removeID(teacher.ClassIDs, classID)
	}
	return nil
}

func (repo *rosterRepository) EnrollStudent(_ context.Context, studentID, classID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	class, ok := repo.db.classes[classID]
	if !ok {
		return roster.ErrClassNotFound
	}
	student, ok := repo.db.students[studentID]
	if !ok {
		return roster.ErrStudentNotFound
	}
	if class.HasStudent(studentID) {
		return roster.ErrConflict
	}
	if class.IsFull() {
		return roster.ErrClassFull
	}
	class.StudentIDs = append(class.StudentIDs, studentID)
	student.ClassIDs = append(student.ClassIDs, classID)
	return nil
}

func (repo *rosterRepository) UnenrollStudent(_ context.Context, studentID, classID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	class, ok := repo.db.classes[classID]
	if !ok {
		return roster.ErrClassNotFound
	}
	if !class.HasStudent(studentID) {
		return roster.ErrNotFound
	}
	class.StudentIDs = removeID(class.StudentIDs, studentID)
	if student, ok := repo.db.students[studentID]; ok {
		student.ClassIDs = removeID(student.ClassIDs, classID)
	}
	return nil
}

func (repo *rosterRepository) GetClassByID(_ context.Context, classID string) (roster.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if _, ok := repo.db.classes[classID]; !ok {
		return roster.Class{}, roster.ErrClassNotFound
	}
	return repo.class(classID), nil
}

func (repo *rosterRepository) GetStudentByID(_ context.Context, studentID string) (roster.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if _, ok := repo.db.students[studentID]; !ok {
		return roster.Student{}, roster.ErrStudentNotFound
	}
	return repo.student(studentID), nil
}

func (repo *rosterRepository) GetTeacherByID(_ context.Context, teacherID string) (roster.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if _, ok := repo.db.teachers[teacherID]; !ok {
		return roster.Teacher{}, roster.ErrTeacherNotFound
	}
	return repo.teacher(teacherID), nil
}

func (repo *rosterRepository) GetEnrolledStudents(_ context.Context, classID string) ([]roster.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	class, ok := repo.db.classes[classID]
	if !ok {
		return nil, roster.ErrClassNotFound
	}
	students := make([]roster.Student, 0, len(class.StudentIDs))
	for _, id := range class.StudentIDs {
		if _, ok := repo.db.students[id]; ok {
			students = append(students, repo.student(id))
		}
	}
	return students, nil
}

func (repo *rosterRepository) GetAssignedTeachers(_ context.Context, classID string) ([]roster.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	class, ok := repo.db.classes[classID]
	if !ok {
		return nil, roster.ErrClassNotFound
	}
	teachers := make([]roster.Teacher, 0, len(class.TeacherIDs))
	for _, id := range class.TeacherIDs {
		if _, ok := repo.db.teachers[id]; ok {
			teachers = append(teachers, repo.teacher(id))
		}
	}
	return teachers, nil
}

func (repo *rosterRepository) QueryStudents(context.Context) ([]roster.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]roster.Student, 0, len(repo.db.studentOrder))
	for _, id := range repo.db.studentOrder {
		students = append(students, repo.student(id))
	}
	return students, nil
}

func (repo *rosterRepository) QueryTeachers(context.Context) ([]roster.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	teachers := make([]roster.Teacher, 0, len(repo.db.teacherOrder))
	for _, id := range repo.db.teacherOrder {
		teachers = append(teachers, repo.teacher(id))
	}
	return teachers, nil
}

func (repo *rosterRepository) QueryClasses(context.Context) ([]roster.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	classes := make([]roster.Class, 0, len(repo.db.classOrder))
	for _, id := range repo.db.classOrder {
		classes = append(classes, repo.class(id))
	}
	return classes, nil
}

// student, teacher & class return detached copies; the caller holds the lock.

func (repo *rosterRepository) student(id string) roster.Student {
	s := *repo.db.students[id]
	s.ClassIDs = copyIDs(s.ClassIDs)
	return s
}

func (repo *rosterRepository) teacher(id string) roster.Teacher {
	t := *repo.db.teachers[id]
	t.ClassIDs = copyIDs(t.ClassIDs)
	return t
}

func (repo *rosterRepository) class(id string) roster.Class {
	c := *repo.db.classes[id]
	c.TeacherIDs = copyIDs(c.TeacherIDs)
	c.StudentIDs = copyIDs(c.StudentIDs)
	c.Schedule = append([]roster.Slot{}, c.Schedule...)
	return c
}
