package domain

import "testing"

func TestAccountValidateCharge(t *testing.T) {
	tests := []struct {
		name    string
		account Account
		amount  int64
		wantErr error
	}{
		{
			name:    "sufficient balance",
			account: Account{Balance: 100, Status: AccountStatusActive},
			amount:  60,
			wantErr: nil,
		},
		{
			name:    "exact balance",
			account: Account{Balance: 60, Status: AccountStatusActive},
			amount:  60,
			wantErr: nil,
		},
		{
			name:    "would overdraw",
			account: Account{Balance: 40, Status: AccountStatusActive},
			amount:  60,
			wantErr: ErrInsufficientCredits,
		},
		{
			name:    "zero amount",
			account: Account{Balance: 100, Status: AccountStatusActive},
			amount:  0,
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			account: Account{Balance: 100, Status: AccountStatusActive},
			amount:  -5,
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "disabled account",
			account: Account{Balance: 100, Status: AccountStatusDisabled},
			amount:  10,
			wantErr: ErrAccountDisabled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.account.ValidateCharge(tt.amount)
			if err != tt.wantErr {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAccountApplyDelta(t *testing.T) {
	a := Account{Balance: 100}
	if got := a.ApplyDelta(-60); got != 40 {
		t.Errorf("expected 40, got %d", got)
	}
	if got := a.ApplyDelta(25); got != 125 {
		t.Errorf("expected 125, got %d", got)
	}
}
