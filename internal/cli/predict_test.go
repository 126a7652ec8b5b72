package cli

import (
	"encoding/json"
	"testing"

	"github.com/vietddude/replikit/internal/core/domain"
)

func TestParseInputs(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		pairs   []string
		want    string
		wantErr bool
	}{
		{
			name:  "plain strings",
			pairs: []string{"prompt=an astronaut"},
			want:  `{"prompt":"an astronaut"}`,
		},
		{
			name:  "typed values",
			pairs: []string{"steps=30", "guidance=7.5", "hd=true", `tags=["a","b"]`},
			want:  `{"guidance":7.5,"hd":true,"steps":30,"tags":["a","b"]}`,
		},
		{
			name:  "value containing equals",
			pairs: []string{"expr=a=b"},
			want:  `{"expr":"a=b"}`,
		},
		{
			name:  "pairs override json",
			raw:   `{"prompt":"cat","seed":1}`,
			pairs: []string{"prompt=dog"},
			want:  `{"prompt":"dog","seed":1}`,
		},
		{
			name:  "large integers stay exact",
			raw:   `{"seed":9007199254740993}`,
			want:  `{"seed":9007199254740993}`,
		},
		{
			name: "empty",
			want: `{}`,
		},
		{name: "missing equals", pairs: []string{"prompt"}, wantErr: true},
		{name: "empty key", pairs: []string{"=x"}, wantErr: true},
		{name: "json not an object", raw: `[1,2]`, wantErr: true},
		{name: "json trailing data", raw: `{"a":1} {"b":2}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := parseInputs(tt.raw, tt.pairs)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got, err := json.Marshal(v)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestHistoryFormatting(t *testing.T) {
	if got := shortVersion("5c7d5dc6dd8bf75c1acaa8565735e7986bc5b662"); got != "5c7d5dc6dd8b" {
		t.Errorf("shortVersion = %q", got)
	}
	if got := shortVersion("v1"); got != "v1" {
		t.Errorf("shortVersion = %q", got)
	}

	if got := predictTime(&domain.Snapshot{}); got != "-" {
		t.Errorf("predictTime = %q", got)
	}
	pt := 1.234
	if got := predictTime(&domain.Snapshot{PredictTime: &pt}); got != "1.23s" {
		t.Errorf("predictTime = %q", got)
	}
}
