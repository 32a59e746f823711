package timetext

import (
	"testing"
	"time"
)

func TestParseDateLabel(t *testing.T) {
	tests := []struct {
		name    string
		label   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "weekday prefix",
			label: "Saturday, September 5, 2026",
			want:  time.Date(2026, time.September, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "no weekday",
			label: "September 5, 2026",
			want:  time.Date(2026, time.September, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "case insensitive month",
			label: "FRIDAY, JANUARY 2, 2027",
			want:  time.Date(2027, time.January, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "surrounding whitespace",
			label: "  Sunday, May 31, 2026  ",
			want:  time.Date(2026, time.May, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "abbreviated month rejected",
			label:   "Sep 5, 2026",
			wantErr: true,
		},
		{
			name:    "numeric date rejected",
			label:   "09/05/2026",
			wantErr: true,
		},
		{
			name:    "day out of range",
			label:   "September 45, 2026",
			wantErr: true,
		},
		{
			name:    "empty",
			label:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDateLabel(tt.label)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseWindowExplicitRange(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Window
	}{
		{
			name: "both sides marked",
			text: "Join us from 6:00 PM - 10:00 PM at the dock",
			want: Window{Start: Clock{18, 0}, End: Clock{22, 0}},
		},
		{
			name: "end marker inherited by start",
			text: "Evening sail 6 - 10PM",
			want: Window{Start: Clock{18, 0}, End: Clock{22, 0}},
		},
		{
			name: "start marker inherited by end",
			text: "Departs 9AM - 11",
			want: Window{Start: Clock{9, 0}, End: Clock{11, 0}},
		},
		{
			name: "word connector",
			text: "Open 10:30 AM to 1:15 PM daily",
			want: Window{Start: Clock{10, 30}, End: Clock{13, 15}},
		},
		{
			name: "en dash connector",
			text: "Tour runs 2 – 4 pm",
			want: Window{Start: Clock{14, 0}, End: Clock{16, 0}},
		},
		{
			name: "periods in meridiem",
			text: "Brunch cruise 11 a.m. - 2 p.m.",
			want: Window{Start: Clock{11, 0}, End: Clock{14, 0}},
		},
		{
			name: "noon boundary",
			text: "12 - 3 PM",
			want: Window{Start: Clock{12, 0}, End: Clock{15, 0}},
		},
		{
			name: "midnight boundary",
			text: "12:00 AM - 2:00 AM",
			want: Window{Start: Clock{0, 0}, End: Clock{2, 0}},
		},
		{
			name: "ambiguous range skipped for later marked one",
			text: "Ages 8 - 12 welcome. Show starts 7:00 PM - 9:00 PM.",
			want: Window{Start: Clock{19, 0}, End: Clock{21, 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseWindow(tt.text)
			if !ok {
				t.Fatal("expected a parsed window")
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseWindowDurationFallback(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Window
	}{
		{
			name: "hours only",
			text: "Departure: 6:00 PM · Duration: 2 Hours",
			want: Window{Start: Clock{18, 0}, End: Clock{20, 0}},
		},
		{
			name: "hours and minutes",
			text: "Starts at 1:15 PM, lasts 1 Hour 30 Minutes",
			want: Window{Start: Clock{13, 15}, End: Clock{14, 45}},
		},
		{
			name: "minutes only",
			text: "Quick trip at 10AM, about 45 minutes",
			want: Window{Start: Clock{10, 0}, End: Clock{10, 45}},
		},
		{
			// The end wraps modulo 24 hours on the same calendar date;
			// the date does not roll over. Pinned deliberately.
			name: "duration past midnight wraps same date",
			text: "Night cruise 11:30 PM, 2 Hours",
			want: Window{Start: Clock{23, 30}, End: Clock{1, 30}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseWindow(tt.text)
			if !ok {
				t.Fatal("expected a parsed window")
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseWindowFallsBackToDefault(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "no times at all", text: "A lovely day out on the water."},
		{name: "range with no meridiem is ambiguous", text: "Groups of 6 - 10 guests"},
		{name: "time without meridiem or duration", text: "Doors at 6:00"},
		{name: "duration without a start time", text: "Approximately 2 hours long"},
		{name: "empty", text: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseWindow(tt.text)
			if ok {
				t.Fatalf("expected no parsed window, got %+v", got)
			}
			if got != DefaultWindow {
				t.Errorf("got %+v, want default window %+v", got, DefaultWindow)
			}
		})
	}
}
