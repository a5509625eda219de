package render

import "testing"

func TestEngineRender(t *testing.T) {
	engine, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name    string
		message string
		data    MessageData
		want    string
		wantErr bool
	}{
		{
			name:    "participant joined",
			message: "PARTICIPANT_JOINED",
			data:    MessageData{ActorName: "Ana", SessionTitle: "Calculus"},
			want:    `Ana joined your session "Calculus".`,
		},
		{
			name:    "join confirmation with start",
			message: "JOIN_CONFIRMATION",
			data:    MessageData{SessionTitle: "Calculus", StartsAt: "Mon Mar 2 18:00 UTC"},
			want:    `You joined "Calculus" starting Mon Mar 2 18:00 UTC.`,
		},
		{
			name:    "notes without link",
			message: "NOTES_UPLOADED",
			data:    MessageData{SessionTitle: "Physics"},
			want:    `New notes were uploaded to "Physics".`,
		},
		{
			name:    "unknown message",
			message: "NOPE",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Render(tt.message, tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Render() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got != tt.want {
				t.Fatalf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseRejectsBadCatalog(t *testing.T) {
	if _, err := Parse([]byte("A: \"{{.Missing\"")); err == nil {
		t.Fatal("Parse() expected error for malformed template")
	}
	if _, err := Parse([]byte("")); err == nil {
		t.Fatal("Parse() expected error for empty catalog")
	}
}
