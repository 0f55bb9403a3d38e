package calendar

import (
	"testing"
	"time"
)

func TestLoadZone(t *testing.T) {
	tests := []struct {
		name    string
		zone    string
		wantErr bool
	}{
		{name: "empty means UTC", zone: "", wantErr: false},
		{name: "UTC", zone: "UTC", wantErr: false},
		{name: "named zone", zone: "Asia/Jakarta", wantErr: false},
		{name: "garbage", zone: "Not/AZone", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := LoadZone(tt.zone)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadZone(%q) error = %v, wantErr %v", tt.zone, err, tt.wantErr)
			}
			if !tt.wantErr && loc == nil {
				t.Fatalf("LoadZone(%q) returned nil location", tt.zone)
			}
		})
	}
}

func TestCivilPartsOf(t *testing.T) {
	jakarta, err := LoadZone("Asia/Jakarta") // UTC+7, no DST
	if err != nil {
		t.Fatalf("failed to load zone: %v", err)
	}

	// 2024-03-31 20:30:00 UTC is already April 1st in Jakarta.
	instant := time.Date(2024, time.March, 31, 20, 30, 0, int(250*time.Millisecond), time.UTC)
	parts := CivilPartsOf(instant, jakarta)

	if parts.Year != 2024 || parts.Month != time.April || parts.Day != 1 {
		t.Errorf("got civil date %d-%02d-%02d, want 2024-04-01", parts.Year, parts.Month, parts.Day)
	}
	if parts.Hour != 3 || parts.Minute != 30 || parts.Second != 0 {
		t.Errorf("got civil time %02d:%02d:%02d, want 03:30:00", parts.Hour, parts.Minute, parts.Second)
	}
	if parts.Millisecond != 250 {
		t.Errorf("got millisecond %d, want 250", parts.Millisecond)
	}
}

func TestDayBoundaries(t *testing.T) {
	zones := []string{"UTC", "Asia/Jakarta", "America/New_York"}
	instants := []time.Time{
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.June, 15, 12, 34, 56, 0, time.UTC),
		time.Date(2024, time.December, 31, 23, 59, 59, 0, time.UTC),
	}

	for _, zone := range zones {
		loc, err := LoadZone(zone)
		if err != nil {
			t.Fatalf("failed to load zone %s: %v", zone, err)
		}
		for _, instant := range instants {
			start := StartOfDay(instant, loc)
			end := EndOfDay(instant, loc)

			if got := CivilPartsOf(start, loc); got.Hour != 0 || got.Minute != 0 || got.Second != 0 || got.Millisecond != 0 {
				t.Errorf("%s: StartOfDay(%v) is not midnight: %+v", zone, instant, got)
			}
			if got := CivilPartsOf(end, loc); got.Hour != 23 || got.Minute != 59 || got.Second != 59 || got.Millisecond != 999 {
				t.Errorf("%s: EndOfDay(%v) is not 23:59:59.999: %+v", zone, instant, got)
			}

			// The consistency contract: boundaries stay on the same civil day.
			if DayStamp(start, loc) != DayStamp(instant, loc) {
				t.Errorf("%s: DayStamp(StartOfDay(x)) = %s, DayStamp(x) = %s",
					zone, DayStamp(start, loc), DayStamp(instant, loc))
			}
			if DayStamp(end, loc) != DayStamp(instant, loc) {
				t.Errorf("%s: DayStamp(EndOfDay(x)) = %s, DayStamp(x) = %s",
					zone, DayStamp(end, loc), DayStamp(instant, loc))
			}
			if !start.Before(end) {
				t.Errorf("%s: StartOfDay not before EndOfDay for %v", zone, instant)
			}
		}
	}
}

func TestDayStampCrossesMidnight(t *testing.T) {
	ny, err := LoadZone("America/New_York")
	if err != nil {
		t.Fatalf("failed to load zone: %v", err)
	}

	// 2024-06-16 02:00 UTC is still June 15th in New York.
	instant := time.Date(2024, time.June, 16, 2, 0, 0, 0, time.UTC)
	if got := DayStamp(instant, ny); got != "2024-06-15" {
		t.Errorf("DayStamp in New York = %s, want 2024-06-15", got)
	}
	if got := DayStamp(instant, time.UTC); got != "2024-06-16" {
		t.Errorf("DayStamp in UTC = %s, want 2024-06-16", got)
	}
}

func TestDateRoundTrip(t *testing.T) {
	d := Date(2024, time.February, 29)
	stamp := DateStamp(d)
	if stamp != "2024-02-29" {
		t.Fatalf("DateStamp = %s, want 2024-02-29", stamp)
	}

	parsed, err := ParseDate(stamp)
	if err != nil {
		t.Fatalf("ParseDate(%s) failed: %v", stamp, err)
	}
	if !parsed.Equal(d) {
		t.Errorf("round trip mismatch: %v != %v", parsed, d)
	}

	if _, err := ParseDate("not-a-date"); err == nil {
		t.Error("ParseDate accepted garbage input")
	}
}
