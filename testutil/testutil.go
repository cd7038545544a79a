// Package testutil provides fixtures shared by the package tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/trezcool/studio/core"
	"github.com/trezcool/studio/core/roster"
	"github.com/trezcool/studio/storage"
)

// Logger records log calls.
type Logger struct {
	mu      sync.Mutex
	Entries []string
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, level+": "+msg)
}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.log("DEBUG", msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.log("INFO", msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.log("WARN", msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.log("ERROR", msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.log("FATAL", msg) }

// Mailbox records sent messages without rendering them.
type Mailbox struct {
	mu       sync.Mutex
	Messages []core.EmailMessage
}

var _ core.EmailService = (*Mailbox)(nil)

func (m *Mailbox) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range messages {
		m.Messages = append(m.Messages, *msg)
	}
}

// Studio is a memory storage with helpers to seed it.
type Studio struct {
	*storage.Storage
	Service *roster.Service
}

func NewStudio() *Studio {
	st := storage.NewMemory()
	return &Studio{Storage: st, Service: roster.NewService(st.Roster)}
}

func (s *Studio) Class(t testing.TB, name string, price float64, capacity ...int) roster.Class {
	t.Helper()
	nc := roster.NewClass{Name: name, MonthlyPrice: price, DurationMinutes: 60}
	if len(capacity) > 0 {
		nc.Capacity = capacity[0]
	}
	class, err := s.Service.CreateClass(context.Background(), nc)
	if err != nil {
		t.Fatalf("Class(%s) failed: %v", name, err)
	}
	return class
}

// Student creates a student enrolled in classes.
func (s *Studio) Student(t testing.TB, name string, classes ...roster.Class) roster.Student {
	t.Helper()
	ctx := context.Background()
	st, err := s.Service.CreateStudent(ctx, roster.NewStudent{Name: name, Email: fmt.Sprintf("%s@studio.test", name)})
	if err != nil {
		t.Fatalf("Student(%s) failed: %v", name, err)
	}
	for _, c := range classes {
		if err = s.Roster.EnrollStudent(ctx, st.ID, c.ID); err != nil {
			t.Fatalf("Student(%s) enrolling in %s failed: %v", name, c.Name, err)
		}
	}
	st, err = s.Roster.GetStudentByID(ctx, st.ID)
	if err != nil {
		t.Fatalf("Student(%s) failed: %v", name, err)
	}
	return st
}

func (s *Studio) Teacher(t testing.TB, name string, owner bool) roster.Teacher {
	t.Helper()
	teacher, err := s.Service.CreateTeacher(context.Background(), roster.NewTeacher{Name: name, IsStudioOwner: owner})
	if err != nil {
		t.Fatalf("Teacher(%s) failed: %v", name, err)
	}
	return teacher
}
