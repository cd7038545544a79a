package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studio/core"
	"github.com/trezcool/studio/core/roster"
)

type rosterApi struct {
	svc      *roster.Service
	store    *roster.Store
	backend  roster.Backend
	validate *validator.Validate
	logger   core.Logger
}

func registerRosterAPI(
	g *echo.Group,
	svc *roster.Service,
	store *roster.Store,
	backend roster.Backend,
	validate *validator.Validate,
	logger core.Logger,
) {
	api := rosterApi{svc: svc, store: store, backend: backend, validate: validate, logger: logger}

	sg := g.Group("/students")
	sg.POST("", api.createStudent)
	sg.GET("", api.queryStudents)
	sg.GET("/:studentId", api.retrieveStudent)
	sg.POST("/:studentId/classes/:classId", api.enrollStudent)
	sg.DELETE("/:studentId/classes/:classId", api.unenrollStudent)

	tg := g.Group("/teachers")
	tg.POST("", api.createTeacher)
	tg.GET("", api.queryTeachers)
	tg.GET("/:teacherId", api.retrieveTeacher)

	cg := g.Group("/classes")
	cg.POST("", api.createClass)
	cg.GET("", api.queryClasses)
	cg.GET("/:classId", api.retrieveClass)
	cg.GET("/:classId/view", api.classView)
	cg.GET("/:classId/students", api.enrolledStudents)
	cg.GET("/:classId/teachers", api.assignedTeachers)
	cg.POST("/:classId/teachers/:teacherId", api.assignTeacher)
	cg.DELETE("/:classId/teachers/:teacherId", api.unassignTeacher)
}

type ClassViewResponse struct {
	Class      roster.ClassDTO  `json:"class"`
	Students   []roster.Student `json:"students"`
	Teachers   []roster.Teacher `json:"teachers"`
	ResolvedAt time.Time        `json:"resolvedAt"`
}

func newClassViewResponse(view roster.ClassView) ClassViewResponse {
	return ClassViewResponse{
		Class:      view.Class.DTO(),
		Students:   view.Students,
		Teachers:   view.Teachers,
		ResolvedAt: view.ResolvedAt,
	}
}

// Handlers

func (api *rosterApi) createStudent(ctx echo.Context) error {
	var data roster.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	data.Clean()
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	student, err := api.svc.CreateStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, student)
}

func (api *rosterApi) createTeacher(ctx echo.Context) error {
	var data roster.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	data.Clean()
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	teacher, err := api.svc.CreateTeacher(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating teacher")
	}
	return ctx.JSON(http.StatusCreated, teacher)
}

func (api *rosterApi) createClass(ctx echo.Context) error {
	var data roster.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	data.Clean()
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	class, err := api.svc.CreateClass(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, class.DTO())
}

func (api *rosterApi) queryStudents(ctx echo.Context) error {
	students, err := api.svc.Students(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []roster.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *rosterApi) queryTeachers(ctx echo.Context) error {
	teachers, err := api.svc.Teachers(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	if teachers == nil {
		teachers = []roster.Teacher{}
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api *rosterApi) queryClasses(ctx echo.Context) error {
	classes, err := api.svc.Classes(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	dtos := make([]roster.ClassDTO, 0, len(classes))
	for _, c := range classes {
		dtos = append(dtos, c.DTO())
	}
	return ctx.JSON(http.StatusOK, dtos)
}

func (api *rosterApi) retrieveStudent(ctx echo.Context) error {
	student, err := api.svc.GetStudent(ctx.Request().Context(), ctx.Param("studentId"))
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}
	return ctx.JSON(http.StatusOK, student)
}

func (api *rosterApi) retrieveTeacher(ctx echo.Context) error {
	teacher, err := api.svc.GetTeacher(ctx.Request().Context(), ctx.Param("teacherId"))
	if err != nil {
		return errors.Wrap(err, "finding teacher by ID")
	}
	return ctx.JSON(http.StatusOK, teacher)
}

func (api *rosterApi) retrieveClass(ctx echo.Context) error {
	class, err := api.svc.GetClass(ctx.Request().Context(), ctx.Param("classId"))
	if err != nil {
		return errors.Wrap(err, "finding class by ID")
	}
	return ctx.JSON(http.StatusOK, class.DTO())
}

func (api *rosterApi) classView(ctx echo.Context) error {
	view, err := api.store.Reconcile(ctx.Request().Context(), ctx.Param("classId"))
	if err != nil {
		return errors.Wrap(err, "reconciling class")
	}
	return ctx.JSON(http.StatusOK, newClassViewResponse(view))
}

func (api *rosterApi) enrolledStudents(ctx echo.Context) error {
	students, err := api.backend.GetEnrolledStudents(ctx.Request().Context(), ctx.Param("classId"))
	if err != nil {
		return errors.Wrap(err, "getting enrolled students")
	}
	if students == nil {
		students = []roster.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *rosterApi) assignedTeachers(ctx echo.Context) error {
	teachers, err := api.backend.GetAssignedTeachers(ctx.Request().Context(), ctx.Param("classId"))
	if err != nil {
		return errors.Wrap(err, "getting assigned teachers")
	}
	if teachers == nil {
		teachers = []roster.Teacher{}
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api *rosterApi) enrollStudent(ctx echo.Context) error {
	err := api.store.AddEnrollment(ctx.Request().Context(), ctx.Param("classId"), ctx.Param("studentId"))
	return api.mutated(ctx, err, "enrolling student")
}

func (api *rosterApi) unenrollStudent(ctx echo.Context) error {
	err := api.store.RemoveEnrollment(ctx.Request().Context(), ctx.Param("classId"), ctx.Param("studentId"))
	return api.mutated(ctx, err, "unenrolling student")
}

func (api *rosterApi) assignTeacher(ctx echo.Context) error {
	err := api.store.AddAssignment(ctx.Request().Context(), ctx.Param("classId"), ctx.Param("teacherId"))
	return api.mutated(ctx, err, "assigning teacher")
}

func (api *rosterApi) unassignTeacher(ctx echo.Context) error {
	err := api.store.RemoveAssignment(ctx.Request().Context(), ctx.Param("classId"), ctx.Param("teacherId"))
	return api.mutated(ctx, err, "unassigning teacher")
}

// mutated answers a relationship mutation. A failed reconcile does not undo the mutation.
func (api *rosterApi) mutated(ctx echo.Context, err error, action string) error {
	var rErr *roster.ReconcileError
	if errors.As(err, &rErr) {
		api.logger.Warn(action+": "+rErr.Error(), rErr.Err, contextStaff(ctx))
		err = nil
	}
	if err != nil {
		return errors.Wrap(err, action)
	}
	return ctx.NoContent(http.StatusNoContent)
}
