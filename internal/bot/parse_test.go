package bot

import (
	"testing"

	domerrors "github.com/uitmtimetable/icress-linebot-go/internal/errors"
	"github.com/uitmtimetable/icress-linebot-go/internal/timetable"
)

func TestParseCourseSelections(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []timetable.Selection
		wantErr bool
	}{
		{
			name:  "two courses",
			input: "ENT530 - D1IM2443A\nIMS605 - D1IM2455A",
			want: []timetable.Selection{
				{Code: "ENT530", Group: "D1IM2443A"},
				{Code: "IMS605", Group: "D1IM2455A"},
			},
			wantErr: false,
		},
		{
			name:    "surrounding whitespace is trimmed",
			input:   "  ENT530  -  D1IM2443A  ",
			want:    []timetable.Selection{{Code: "ENT530", Group: "D1IM2443A"}},
			wantErr: false,
		},
		{
			name:  "bad lines are skipped",
			input: "ENT530 - D1IM2443A\nnot a course line\nIMS605 - D1IM2455A",
			want: []timetable.Selection{
				{Code: "ENT530", Group: "D1IM2443A"},
				{Code: "IMS605", Group: "D1IM2455A"},
			},
			wantErr: false,
		},
		{
			name:    "duplicate code keeps position, takes later group",
			input:   "ENT530 - D1IM2443A\nIMS605 - D1IM2455A\nENT530 - D2IM2443B",
			want:    []timetable.Selection{{Code: "ENT530", Group: "D2IM2443B"}, {Code: "IMS605", Group: "D1IM2455A"}},
			wantErr: false,
		},
		{
			name:    "separator at line start does not count",
			input:   " - D1IM2443A",
			want:    nil,
			wantErr: true,
		},
		{
			name:    "no separator",
			input:   "ENT530 D1IM2443A",
			want:    nil,
			wantErr: true,
		},
		{
			name:    "empty input",
			input:   "",
			want:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCourseSelections(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !domerrors.IsInvalidInput(err) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("selection %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
