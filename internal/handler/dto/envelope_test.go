package dto

import (
	"encoding/json"
	"testing"
)

func TestEnvelope_JSONShape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		env  Envelope
		want string
	}{
		{"ok with data", OK(200, map[string]string{"id": "1"}, "done"), `{"success":true,"data":{"id":"1"},"message":"done","status":200}`},
		{"ok without data", OK(200, nil, "Logout successfully"), `{"success":true,"data":[],"message":"Logout successfully","status":200}`},
		{"fail", Fail(403, "Unauthorized!"), `{"success":false,"data":[],"message":"Unauthorized!","status":403}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.env)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(b) != tt.want {
				t.Errorf("got %s, want %s", b, tt.want)
			}
		})
	}
}

func TestBool_Unmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		body    string
		want    *bool
		wantErr bool
	}{
		{`{"user_id":"u1"}`, nil, false},
		{`{"user_id":"u1","is_edit":null}`, nil, false},
		{`{"user_id":"u1","is_edit":true}`, boolPtr(true), false},
		{`{"user_id":"u1","is_edit":false}`, boolPtr(false), false},
		{`{"user_id":"u1","is_edit":"true"}`, boolPtr(true), false},
		{`{"user_id":"u1","is_edit":"false"}`, boolPtr(false), false},
		{`{"user_id":"u1","is_edit":1}`, boolPtr(true), false},
		{`{"user_id":"u1","is_edit":0}`, boolPtr(false), false},
		{`{"user_id":"u1","is_edit":"1"}`, boolPtr(true), false},
		{`{"user_id":"u1","is_edit":"0"}`, boolPtr(false), false},
		{`{"user_id":"u1","is_edit":"yes"}`, nil, true},
		{`{"user_id":"u1","is_edit":2}`, nil, true},
		{`{"user_id":"u1","is_edit":"TRUE"}`, nil, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.body, func(t *testing.T) {
			t.Parallel()

			var req ShareRequest
			err := json.Unmarshal([]byte(tt.body), &req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			got := req.IsEdit.Ptr()
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("got %v, want absent", *got)
			case tt.want != nil && (got == nil || *got != *tt.want):
				t.Errorf("got %v, want %v", got, *tt.want)
			}
			if req.IsEdit.True() != (tt.want != nil && *tt.want) {
				t.Errorf("True() = %v", req.IsEdit.True())
			}
		})
	}
}

func boolPtr(b bool) *bool { return &b }
