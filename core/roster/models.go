// Package roster keeps the Student–Class enrollment and Teacher–Class assignment edges.
package roster

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/studio/core"
)

type Student struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email,omitempty"`
	Phone    string   `json:"phone,omitempty"`
	ClassIDs []string `json:"classIds"`
}

func (s Student) IsEnrolledIn(classID string) bool {
	return core.ContainsID(s.ClassIDs, classID)
}

type Teacher struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Email         string   `json:"email,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	IsStudioOwner bool     `json:"isStudioOwner"`
	ClassIDs      []string `json:"classIds"`
}

// Slot is a weekly occurrence of a class.
type Slot struct {
	Weekday   time.Weekday `json:"weekday"`
	StartTime string       `json:"startTime"` // HH:MM
}

// Class is a class offering. Its TeacherIDs & StudentIDs are the authoritative edge sets.
type Class struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	MonthlyPrice    decimal.Decimal `json:"monthlyPrice"`
	DurationMinutes int             `json:"durationMinutes,omitempty"`
	Schedule        []Slot          `json:"schedule"`
	Capacity        int             `json:"capacity"` // 0: unlimited
	TeacherIDs      []string        `json:"teacherIds"`
	StudentIDs      []string        `json:"studentIds"`
}

func (c Class) HasStudent(studentID string) bool {
	return core.ContainsID(c.StudentIDs, studentID)
}

func (c Class) HasTeacher(teacherID string) bool {
	return core.ContainsID(c.TeacherIDs, teacherID)
}

func (c Class) IsFull() bool {
	return c.Capacity > 0 && len(c.StudentIDs) >= c.Capacity
}

// ClassView is a class resolved with the full records of its enrolled students & assigned teachers.
type ClassView struct {
	Class      Class     `json:"class"`
	Students   []Student `json:"students"`
	Teachers   []Teacher `json:"teachers"`
	ResolvedAt time.Time `json:"resolvedAt"`
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

func (ns *NewStudent) Clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Phone = core.CleanString(ns.Phone)
}

// NewTeacher contains information needed to create a new Teacher.
type NewTeacher struct {
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone"`
	IsStudioOwner bool   `json:"isStudioOwner"`
}

func (nt *NewTeacher) Clean() {
	nt.Name = core.CleanString(nt.Name)
	nt.Email = core.CleanString(nt.Email, true /* lower */)
	nt.Phone = core.CleanString(nt.Phone)
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name            string  `json:"name" validate:"required"`
	MonthlyPrice    float64 `json:"monthlyPrice" validate:"gt=0"`
	DurationMinutes int     `json:"durationMinutes" validate:"gte=0"`
	Schedule        []Slot  `json:"schedule" validate:"dive"`
	Capacity        int     `json:"capacity" validate:"gte=0"`
}

func (nc *NewClass) Clean() {
	nc.Name = core.CleanString(nc.Name)
	for i := range nc.Schedule {
		nc.Schedule[i].StartTime = core.CleanString(nc.Schedule[i].StartTime)
	}
}

func (nc NewClass) Class() Class {
	return Class{
		Name:            nc.Name,
		MonthlyPrice:    decimal.NewFromFloat(nc.MonthlyPrice).Round(2),
		DurationMinutes: nc.DurationMinutes,
		Schedule:        nc.Schedule,
		Capacity:        nc.Capacity,
	}
}

// ClassDTO is the wire form of a Class; the price is a JSON number.
type ClassDTO struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	MonthlyPrice    float64  `json:"monthlyPrice"`
	DurationMinutes int      `json:"durationMinutes,omitempty"`
	Schedule        []Slot   `json:"schedule"`
	Capacity        int      `json:"capacity"`
	TeacherIDs      []string `json:"teacherIds"`
	StudentIDs      []string `json:"studentIds"`
}

func (c Class) DTO() ClassDTO {
	return ClassDTO{
		ID:              c.ID,
		Name:            c.Name,
		MonthlyPrice:    c.MonthlyPrice.InexactFloat64(),
		DurationMinutes: c.DurationMinutes,
		Schedule:        c.Schedule,
		Capacity:        c.Capacity,
		TeacherIDs:      c.TeacherIDs,
		StudentIDs:      c.StudentIDs,
	}
}

func (dto ClassDTO) Class() Class {
	return Class{
		ID:              dto.ID,
		Name:            dto.Name,
		MonthlyPrice:    decimal.NewFromFloat(dto.MonthlyPrice).Round(2),
		DurationMinutes: dto.DurationMinutes,
		Schedule:        dto.Schedule,
		Capacity:        dto.Capacity,
		TeacherIDs:      dto.TeacherIDs,
		StudentIDs:      dto.StudentIDs,
	}
}
