package commands

import (
	"reflect"
	"testing"
	"time"
)

func TestSplitList(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: nil},
		{name: "single", in: "female", want: []string{"female"}},
		{name: "trims and skips blanks", in: " female, ,male,, ", want: []string{"female", "male"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := splitList(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitList(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseProfile(t *testing.T) {
	t.Parallel()
	future := time.Now().AddDate(1, 0, 0).Format(birthDateLayout)
	tests := []struct {
		name      string
		gender    string
		birthDate string
		wantErr   bool
	}{
		{name: "valid", gender: "Female", birthDate: "1990-04-01"},
		{name: "gender optional", gender: "", birthDate: "1990-04-01"},
		{name: "unknown gender", gender: "robot", birthDate: "1990-04-01", wantErr: true},
		{name: "bad date", gender: "male", birthDate: "01/04/1990", wantErr: true},
		{name: "future date", gender: "male", birthDate: future, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := parseProfile("u1", tt.gender, tt.birthDate)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseProfile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if p.UserID != "u1" {
				t.Errorf("UserID = %q, want u1", p.UserID)
			}
			if tt.gender == "Female" && p.Gender != "female" {
				t.Errorf("Gender = %q, want lower-cased female", p.Gender)
			}
		})
	}
}

func TestCheckRate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		rate    string
		wantErr bool
	}{
		{rate: "5-S"},
		{rate: "100-M"},
		{rate: "1000-H"},
		{rate: "", wantErr: true},
		{rate: "fast", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.rate, func(t *testing.T) {
			t.Parallel()
			if err := checkRate(tt.rate); (err != nil) != tt.wantErr {
				t.Errorf("checkRate(%q) error = %v, wantErr %v", tt.rate, err, tt.wantErr)
			}
		})
	}
}
