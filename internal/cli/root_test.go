package cli

import (
	"testing"
	"time"

	"github.com/b612app/b612/internal/models"
)

func TestParseWeekdays(t *testing.T) {
	tests := []struct {
		input   string
		want    []time.Weekday
		wantErr bool
	}{
		{"mon,wed,fri", []time.Weekday{time.Monday, time.Wednesday, time.Friday}, false},
		{"Monday", []time.Weekday{time.Monday}, false},
		{"0,6", []time.Weekday{time.Sunday, time.Saturday}, false},
		{" tue , THU ", []time.Weekday{time.Tuesday, time.Thursday}, false},
		{"funday", nil, true},
		{"7", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseWeekdays(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseWeekdays(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseWeekdays(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseWeekdays(%q)[%d] = %v, want %v", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseFrequency(t *testing.T) {
	f, err := ParseFrequency("custom", "mon,fri")
	if err != nil {
		t.Fatalf("ParseFrequency() failed: %v", err)
	}
	if f.Type != models.FrequencyCustom || len(f.CustomDays) != 2 {
		t.Errorf("ParseFrequency() = %+v, want custom mon,fri", f)
	}

	if _, err := ParseFrequency("custom", ""); err == nil {
		t.Error("ParseFrequency(custom) without days should fail")
	}
	if _, err := ParseFrequency("daily", "mon"); err == nil {
		t.Error("ParseFrequency(daily) with days should fail")
	}
	if _, err := ParseFrequency("hourly", ""); err == nil {
		t.Error("ParseFrequency(hourly) should fail")
	}
}

func TestFormatFrequency(t *testing.T) {
	tests := []struct {
		f    models.Frequency
		want string
	}{
		{models.Frequency{Type: models.FrequencyDaily}, "daily"},
		{models.Frequency{Type: models.FrequencyWeekly}, "weekly on Mon"},
		{models.Frequency{Type: models.FrequencyOnce}, "once"},
		{models.Frequency{
			Type:       models.FrequencyCustom,
			CustomDays: []time.Weekday{time.Monday, time.Wednesday},
		}, "Mon,Wed"},
	}

	for _, tt := range tests {
		if got := FormatFrequency(tt.f); got != tt.want {
			t.Errorf("FormatFrequency(%+v) = %q, want %q", tt.f, got, tt.want)
		}
	}
}
