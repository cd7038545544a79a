package roster

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var NowFunc = time.Now // mockable

// ReconcileError is returned when a mutation was acknowledged by the backend
// but the class view could not be re-resolved afterwards. The cached view is dropped.
type ReconcileError struct {
	ClassID string
	Err     error
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("reconciling class %s: %v", e.ClassID, e.Err)
}

func (e *ReconcileError) Unwrap() error {
	return e.Err
}

// Store keeps the resolved relationship views of classes.
// Views are never patched locally: every mutation is followed by a Reconcile
// against the Backend, and mutations on one class are serialized.
type Store struct {
	backend Backend
	locks   *keyedMutex

	mu    sync.RWMutex
	views map[string]ClassView
}

func NewStore(backend Backend) *Store {
	return &Store{
		backend: backend,
		locks:   newKeyedMutex(),
		views:   make(map[string]ClassView),
	}
}

func (s *Store) AddEnrollment(ctx context.Context, classID, studentID string) error {
	return s.mutate(ctx, classID, func(ctx context.Context) error {
		return s.backend.EnrollStudent(ctx, studentID, classID)
	})
}

func (s *Store) RemoveEnrollment(ctx context.Context, classID, studentID string) error {
	return s.mutate(ctx, classID, func(ctx context.Context) error {
		return s.backend.UnenrollStudent(ctx, studentID, classID)
	})
}

func (s *Store) AddAssignment(ctx context.Context, classID, teacherID string) error {
	return s.mutate(ctx, classID, func(ctx context.Context) error {
		return s.backend.AssignTeacher(ctx, classID, teacherID)
	})
}

func (s *Store) RemoveAssignment(ctx context.Context, classID, teacherID string) error {
	return s.mutate(ctx, classID, func(ctx context.Context) error {
		return s.backend.UnassignTeacher(ctx, classID, teacherID)
	})
}

// ResolveEnrolledStudents returns the students of the class, freshly fetched from the Backend.
func (s *Store) ResolveEnrolledStudents(ctx context.Context, classID string) ([]Student, error) {
	view, err := s.Reconcile(ctx, classID)
	if err != nil {
		return nil, err
	}
	return view.Students, nil
}

// ResolveAssignedTeachers returns the teachers of the class, freshly fetched from the Backend.
func (s *Store) ResolveAssignedTeachers(ctx context.Context, classID string) ([]Teacher, error) {
	view, err := s.Reconcile(ctx, classID)
	if err != nil {
		return nil, err
	}
	return view.Teachers, nil
}

// Reconcile re-resolves the class view from the Backend and caches it.
// On failure the last view is kept.
func (s *Store) Reconcile(ctx context.Context, classID string) (ClassView, error) {
	unlock, err := s.locks.Lock(ctx, classID)
	if err != nil {
		return ClassView{}, err
	}
	defer unlock()
	return s.reconcile(ctx, classID)
}

// View returns the last successfully reconciled view of the class.
func (s *Store) View(classID string) (ClassView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.views[classID]
	return v, ok
}

// Forget drops the cached view of the class.
func (s *Store) Forget(classID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.views, classID)
}

func (s *Store) mutate(ctx context.Context, classID string, fn func(context.Context) error) error {
	unlock, err := s.locks.Lock(ctx, classID)
	if err != nil {
		return err
	}
	defer unlock()

	if err = fn(ctx); err != nil {
		return err
	}
	if _, err = s.reconcile(ctx, classID); err != nil {
		s.Forget(classID)
		return &ReconcileError{ClassID: classID, Err: err}
	}
	return nil
}

// reconcile must be called with the class lock held.
func (s *Store) reconcile(ctx context.Context, classID string) (ClassView, error) {
	class, err := s.backend.GetClassByID(ctx, classID)
	if err != nil {
		return ClassView{}, errors.Wrap(err, "getting class")
	}
	students, err := s.backend.GetEnrolledStudents(ctx, classID)
	if err != nil {
		return ClassView{}, errors.Wrap(err, "getting enrolled students")
	}
	teachers, err := s.backend.GetAssignedTeachers(ctx, classID)
	if err != nil {
		return ClassView{}, errors.Wrap(err, "getting assigned teachers")
	}

	// late results of an abandoned call are stale
	if err = ctx.Err(); err != nil {
		return ClassView{}, err
	}

	view := ClassView{
		Class:      class,
		Students:   orderStudents(class.StudentIDs, students),
		Teachers:   orderTeachers(class.TeacherIDs, teachers),
		ResolvedAt: NowFunc().UTC(),
	}

	s.mu.Lock()
	s.views[classID] = view
	s.mu.Unlock()
	return view, nil
}

// orderStudents keeps the students listed in the class record, in the record's order.
func orderStudents(anchor []string, students []Student) []Student {
	byID := make(map[string]Student, len(students))
	for _, st := range students {
		byID[st.ID] = st
	}
	out := make([]Student, 0, len(anchor))
	for _, id := range anchor {
		if st, ok := byID[id]; ok {
			out = append(out, st)
			delete(byID, id)
		}
	}
	return out
}

// orderTeachers keeps the teachers listed in the class record, in the record's order.
func orderTeachers(anchor []string, teachers []Teacher) []Teacher {
	byID := make(map[string]Teacher, len(teachers))
	for _, t := range teachers {
		byID[t.ID] = t
	}
	out := make([]Teacher, 0, len(anchor))
	for _, id := range anchor {
		if t, ok := byID[id]; ok {
			out = append(out, t)
			delete(byID, id)
		}
	}
	return out
}
