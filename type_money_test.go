package coindash

import "testing"

func TestMoney_String(t *testing.T) {
	testCases := []struct {
		m          Money
		want       string
		wantSigned string
	}{
		{USD(1234.567), "$1,234.57", "+$1,234.57"},
		{USD(-12), "-$12.00", "-$12.00"},
		{USD(0), "$0.00", "-"},
	}
	for _, tc := range testCases {
		if got := tc.m.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
		if got := tc.m.SignedString(); got != tc.wantSigned {
			t.Errorf("SignedString() = %q, want %q", got, tc.wantSigned)
		}
	}
}

func TestPercent_SignedString(t *testing.T) {
	testCases := []struct {
		p    Percent
		want string
	}{
		{3.456, "+3.46%"},
		{-1.25, "-1.25%"},
		{0, "-"},
		{0.001, "-"},
	}
	for _, tc := range testCases {
		if got := tc.p.SignedString(); got != tc.want {
			t.Errorf("Percent(%v).SignedString() = %q, want %q", float64(tc.p), got, tc.want)
		}
	}
}

func TestParseQuantity(t *testing.T) {
	q, err := ParseQuantity("0.00012345")
	if err != nil || !q.Equal(Q(0.00012345)) {
		t.Errorf("ParseQuantity() = %v, %v, want 0.00012345", q, err)
	}
	if _, err := ParseQuantity("one"); err == nil {
		t.Error("ParseQuantity(\"one\") expected an error")
	}
}
