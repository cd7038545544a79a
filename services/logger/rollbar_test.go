package logsvc

import (
	"io"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/studio/core"
)

func TestRollbarLogger_prepare(t *testing.T) {
	l := NewRollbarLogger(log.New(io.Discard, "", 0), core.NewTestConfig())
	err := errors.New("boom")
	extras := map[string]interface{}{"classId": "c1"}

	tests := []struct {
		name string
		args []interface{}
		want []interface{}
	}{
		{name: "no args", want: []interface{}{"msg"}},
		{name: "error & extras", args: []interface{}{err, extras}, want: []interface{}{"msg", err, extras}},
		{
			name: "staff member is not forwarded",
			args: []interface{}{core.StaffMember{Username: "admin"}, err, core.StaffMember{Username: "other"}},
			want: []interface{}{"msg", err},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, l.prepare("msg", tt.args))
		})
	}
}
