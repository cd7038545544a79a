package roster

import (
	"context"

	"github.com/google/uuid"
)

// Service creates & lists roster records. Edges are mutated through the Store.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	ns.Clean()
	return svc.repo.CreateStudent(ctx, Student{
		ID:       uuid.NewString(),
		Name:     ns.Name,
		Email:    ns.Email,
		Phone:    ns.Phone,
		ClassIDs: []string{},
	})
}

func (svc *Service) CreateTeacher(ctx context.Context, nt NewTeacher) (Teacher, error) {
	nt.Clean()
	return svc.repo.CreateTeacher(ctx, Teacher{
		ID:            uuid.NewString(),
		Name:          nt.Name,
		Email:         nt.Email,
		Phone:         nt.Phone,
		IsStudioOwner: nt.IsStudioOwner,
		ClassIDs:      []string{},
	})
}

func (svc *Service) CreateClass(ctx context.Context, nc NewClass) (Class, error) {
	nc.Clean()
	class := nc.Class()
	class.ID = uuid.NewString()
	class.TeacherIDs = []string{}
	class.StudentIDs = []string{}
	if class.Schedule == nil {
		class.Schedule = []Slot{}
	}
	return svc.repo.CreateClass(ctx, class)
}

func (svc *Service) GetStudent(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) GetTeacher(ctx context.Context, id string) (Teacher, error) {
	return svc.repo.GetTeacherByID(ctx, id)
}

func (svc *Service) GetClass(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClassByID(ctx, id)
}

func (svc *Service) Students(ctx context.Context) ([]Student, error) {
	return svc.repo.QueryStudents(ctx)
}

func (svc *Service) Teachers(ctx context.Context) ([]Teacher, error) {
	return svc.repo.QueryTeachers(ctx)
}

func (svc *Service) Classes(ctx context.Context) ([]Class, error) {
	return svc.repo.QueryClasses(ctx)
}
