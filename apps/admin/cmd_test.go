package main

import (
	"bytes"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/studio/core"
	"github.com/trezcool/studio/core/billing"
	"github.com/trezcool/studio/testutil"
)

func setup(t *testing.T) (*commandLine, *testutil.Studio, *testutil.Mailbox, *bytes.Buffer) {
	studio := testutil.NewStudio()
	mailbox := &testutil.Mailbox{}
	out := &bytes.Buffer{}
	return &commandLine{
		conf:    core.NewTestConfig(),
		out:     out,
		st:      studio.Storage,
		mailSvc: mailbox,
		logger:  &testutil.Logger{},
	}, studio, mailbox, out
}

func freezeToday(t *testing.T, today time.Time) {
	orig := billing.NowFunc
	billing.NowFunc = func() time.Time { return today }
	t.Cleanup(func() { billing.NowFunc = orig })
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantOut    []string
}

func (tt cliTest) run(t *testing.T, cli *commandLine, out *bytes.Buffer) {
	t.Helper()
	out.Reset()
	err := cli.run(append([]string{"admin"}, tt.args...))
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		require.NoError(t, err)
	}
	for _, want := range tt.wantOut {
		assert.Contains(t, out.String(), want)
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, _, _, out := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp, wantOut: []string{"Usage:"}},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp, wantOut: []string{"hashpassword"}},
		{name: "migrate: no command", args: []string{"migrate"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.run(t, cli, out) })
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _, out := setup(t)

	t.Run("not postgres", func(t *testing.T) {
		cliTest{args: []string{"migrate", "up"}, wantErr: errNoSQLDatabase}.run(t, cli, out)
	})

	cli.db = new(sql.DB)
	orig := migrateFunc
	t.Cleanup(func() { migrateFunc = orig })
	migrateFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version":
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.run(t, cli, out) })
	}
}

func Test_commandLine_hashPassword(t *testing.T) {
	cli, _, _, out := setup(t)
	orig := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = orig })

	readPasswordFunc = func(int) ([]byte, error) { return nil, nil }
	cliTest{args: []string{"hashpassword"}, wantErr: errHelp}.run(t, cli, out)

	readPasswordFunc = func(int) ([]byte, error) { return []byte("s3cret"), nil }
	cliTest{args: []string{"hashpassword"}, wantOut: []string{"Enter password:"}}.run(t, cli, out)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	hash := lines[len(lines)-1]
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}

func Test_commandLine_outstanding(t *testing.T) {
	cli, studio, mailbox, out := setup(t)
	freezeToday(t, time.Date(2024, time.March, 21, 10, 0, 0, 0, time.UTC))

	ballet := studio.Class(t, "Ballet", 800)
	jazz := studio.Class(t, "Jazz", 700)
	studio.Student(t, "ada", ballet)
	studio.Student(t, "bob", jazz)
	studio.Student(t, "cid")

	tests := []cliTest{
		{
			name:    "current month",
			args:    []string{"outstanding"},
			wantOut: []string{"Outstanding payments for 2024-03 as of 2024-03-21", "ada@studio.test", "920.00", "805.00", "2 student(s), 1500.00 owed, 225.00 late fees"},
		},
		{
			name:    "above the floor",
			args:    []string{"outstanding", "-severity", "critical"},
			wantOut: []string{"0 student(s), 0.00 owed, 0.00 late fees"},
		},
		{
			name:    "past month",
			args:    []string{"outstanding", "-month", "2024-02", "-severity", "critical"},
			wantOut: []string{"Outstanding payments for 2024-02", "2 student(s)"},
		},
		{name: "bad severity", args: []string{"outstanding", "-severity", "lol"}, wantErrStr: "unknown severity \"lol\""},
		{name: "bad month", args: []string{"outstanding", "-month", "03-2024"}, wantErrStr: "invalid month \"03-2024\", expected YYYY-MM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.run(t, cli, out) })
	}
	assert.Empty(t, mailbox.Messages)
}

func Test_commandLine_remind(t *testing.T) {
	cli, studio, mailbox, out := setup(t)
	freezeToday(t, time.Date(2024, time.March, 21, 10, 0, 0, 0, time.UTC))

	ballet := studio.Class(t, "Ballet", 800)
	studio.Student(t, "ada", ballet)
	studio.Student(t, "bob", ballet)

	cliTest{
		args:    []string{"remind", "-severity", "critical"},
		wantOut: []string{"0 reminder(s) queued for 2024-03 (severity >= critical)"},
	}.run(t, cli, out)
	assert.Empty(t, mailbox.Messages)

	cliTest{
		args:    []string{"remind"},
		wantOut: []string{"2 reminder(s) queued for 2024-03 (severity >= urgent)"},
	}.run(t, cli, out)
	require.Len(t, mailbox.Messages, 2)
	assert.Equal(t, "Tuition reminder for 2024-03", mailbox.Messages[0].Subject)
}
