package internal

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorTypes(t *testing.T) {
	cause := errors.New("disk on fire")

	tests := []struct {
		name string
		err  error
		want []string
	}{
		{
			name: "store error",
			err:  &StoreError{Path: "/tmp/state.vscdb", Op: "open", Err: cause},
			want: []string{"/tmp/state.vscdb", "open"},
		},
		{
			name: "parse error",
			err:  &ParseError{Source: "cursorDiskKV", Key: "bubbleId:a:b", Err: cause},
			want: []string{"cursorDiskKV", "bubbleId:a:b"},
		},
		{
			name: "upload error",
			err:  &UploadError{Endpoint: "/v1/private/traces/batch", BatchSize: 25, Status: 500, Err: cause},
			want: []string{"/v1/private/traces/batch", "500"},
		},
		{
			name: "state error",
			err:  &StateError{Path: "/tmp/state.yaml", Op: "save", Err: cause},
			want: []string{"/tmp/state.yaml", "save"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.want {
				if !strings.Contains(msg, want) {
					t.Errorf("error %q missing %q", msg, want)
				}
			}
			if !errors.Is(tt.err, cause) {
				t.Error("Unwrap chain broken")
			}
		})
	}
}
