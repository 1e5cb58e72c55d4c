package utils

import (
	"errors"
	"testing"
)

func TestValidateEventID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"valid id", "abc123", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"id with spaces", " abc123 ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEventID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEventID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrEmptyEventID) {
				t.Errorf("ValidateEventID(%q) error = %v, want ErrEmptyEventID", tt.id, err)
			}
		})
	}
}

func TestValidateAmericanOdds(t *testing.T) {
	tests := []struct {
		name    string
		odds    int
		wantErr bool
	}{
		{"minimum plus", 100, false},
		{"minimum minus", -100, false},
		{"typical plus", 150, false},
		{"typical minus", -150, false},
		{"heavy favorite", -500, false},
		{"too small plus", 99, true},
		{"too small minus", -99, true},
		{"zero", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAmericanOdds(tt.odds)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAmericanOdds(%d) error = %v, wantErr %v", tt.odds, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidOdds) {
				t.Errorf("ValidateAmericanOdds(%d) error = %v, want ErrInvalidOdds", tt.odds, err)
			}
		})
	}
}

func TestValidateStakeAmount(t *testing.T) {
	tests := []struct {
		name    string
		stake   float64
		wantErr bool
	}{
		{"positive", 100.0, false},
		{"small positive", 0.01, false},
		{"zero", 0, true},
		{"negative", -50, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStakeAmount(tt.stake)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStakeAmount(%v) error = %v, wantErr %v", tt.stake, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrNonPositiveStake) {
				t.Errorf("ValidateStakeAmount(%v) error = %v, want ErrNonPositiveStake", tt.stake, err)
			}
		})
	}
}

func TestValidatePollIntervalSeconds(t *testing.T) {
	tests := []struct {
		name    string
		seconds int
		wantErr bool
	}{
		{"minimum", 5, false},
		{"above minimum", 60, false},
		{"below minimum", 4, true},
		{"zero", 0, true},
		{"negative", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePollIntervalSeconds(tt.seconds)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePollIntervalSeconds(%d) error = %v, wantErr %v", tt.seconds, err, tt.wantErr)
			}
		})
	}
}

func BenchmarkValidateEventID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		ValidateEventID("evt_1234567890")
	}
}

func BenchmarkValidateAmericanOdds(b *testing.B) {
	for i := 0; i < b.N; i++ {
		ValidateAmericanOdds(-120)
	}
}
