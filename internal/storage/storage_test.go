package storage

import (
	"testing"
)

func TestArtifactKeys(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"speech artifact", SpeechArtifactKey("u1", "j1"), "tts/u1/j1.wav"},
		{"video input", VideoInputKey("u1", "j1"), "video/u1/j1/original.mp4"},
		{"video artifact", VideoArtifactKey("u1", "j1"), "video/u1/j1/translated.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
