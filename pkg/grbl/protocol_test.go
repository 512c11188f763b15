package grbl

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		raw  string
		want Line
	}{
		{"ok\r", Line{Kind: KindOK, Raw: "ok"}},
		{"error:9", Line{Kind: KindError, Raw: "error:9", Code: 9}},
		{"ALARM:1", Line{Kind: KindAlarm, Raw: "ALARM:1", Code: 1}},
		{"<Idle|MPos:0.000,0.000,0.000>", Line{Kind: KindStatus, Raw: "<Idle|MPos:0.000,0.000,0.000>", Body: "Idle|MPos:0.000,0.000,0.000"}},
		{"[GC:G0 G54 G17 G21]", Line{Kind: KindParserState, Raw: "[GC:G0 G54 G17 G21]", Body: "G0 G54 G17 G21"}},
		{"[MSG:Caution: Unlocked]", Line{Kind: KindMessage, Raw: "[MSG:Caution: Unlocked]", Body: "Caution: Unlocked"}},
		{"[FILE:/sd/a.nc|SIZE:12]", Line{Kind: KindFile, Raw: "[FILE:/sd/a.nc|SIZE:12]", Body: "/sd/a.nc|SIZE:12"}},
		{"Grbl 1.1h ['$' for help]", Line{Kind: KindWelcome, Raw: "Grbl 1.1h ['$' for help]"}},
		{"$N0=", Line{Kind: KindOther, Raw: "$N0="}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Classify(tt.raw)); diff != "" {
				t.Errorf("Classify() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindOK, "ok"},
		{KindStatus, "status"},
		{KindParserState, "parser_state"},
		{Kind(99), "other"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("Kind.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	tests := []struct {
		body   string
		want   File
		wantOK bool
	}{
		{"/sd/part.nc|SIZE:1234", File{Name: "/sd/part.nc", Size: 1234}, true},
		{"/sd/empty.nc", File{Name: "/sd/empty.nc"}, true},
		{"|SIZE:3", File{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			got, ok := ParseFile(tt.body)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseFile() = %v, %v, want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestUnits(t *testing.T) {
	tests := []struct {
		body       string
		wantInches bool
		wantOK     bool
	}{
		{"G0 G54 G17 G20 G90", true, true},
		{"G0 G54 G17 G21 G90", false, true},
		{"G0 G54", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			inches, ok := Units(tt.body)
			if inches != tt.wantInches || ok != tt.wantOK {
				t.Errorf("Units() = %v, %v, want %v, %v", inches, ok, tt.wantInches, tt.wantOK)
			}
		})
	}
}
