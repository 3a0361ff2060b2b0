package identifier

import "fmt"

// CheckDigit computes the GS1 mod-10 check digit over digits. Weights of 3
// and 1 alternate starting from the rightmost digit.
func CheckDigit(digits string) (byte, error) {
	if digits == "" {
		return 0, fmt.Errorf("%w: empty digit string", ErrInvalidValue)
	}
	sum := 0
	weight := 3
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: non-digit %q in %q", ErrInvalidValue, c, digits)
		}
		sum += int(c-'0') * weight
		weight = 4 - weight
	}
	return byte('0' + (10-sum%10)%10), nil
}

// VerifyCheckDigit reports whether the last digit of key is the GS1 check
// digit of the preceding ones.
func VerifyCheckDigit(key string) bool {
	if len(key) < 2 {
		return false
	}
	cd, err := CheckDigit(key[:len(key)-1])
	return err == nil && cd == key[len(key)-1]
}

// withCheckDigit returns digits followed by their check digit.
func withCheckDigit(digits string) (string, error) {
	cd, err := CheckDigit(digits)
	if err != nil {
		return "", err
	}
	return digits + string(cd), nil
}

// containerCheckDigit computes the ISO 6346 check digit of a ten character
// container code (owner code, category, six digit serial).
func containerCheckDigit(code string) (byte, error) {
	if len(code) != 10 {
		return 0, fmt.Errorf("%w: container code %q must be 10 characters", ErrInvalidValue, code)
	}
	sum := 0
	for i := 0; i < 10; i++ {
		c := code[i]
		var v int
		switch {
		case c >= '0' && c <= '9':
			v = int(c - '0')
		case c >= 'A' && c <= 'Z':
			v = letterValue(c)
		default:
			return 0, fmt.Errorf("%w: invalid character %q in container code", ErrInvalidValue, c)
		}
		sum += v << i
	}
	return byte('0' + sum%11%10), nil
}

// letterValue maps A..Z to 10..38, skipping multiples of 11.
func letterValue(c byte) int {
	v := 10
	for l := byte('A'); l < c; l++ {
		v++
		if v%11 == 0 {
			v++
		}
	}
	return v
}

// imoCheckDigit computes the IMO ship number check digit over six digits.
func imoCheckDigit(six string) (byte, error) {
	if len(six) != 6 || !isDigits(six) {
		return 0, fmt.Errorf("%w: IMO number body %q must be 6 digits", ErrInvalidValue, six)
	}
	sum := 0
	for i := 0; i < 6; i++ {
		sum += int(six[i]-'0') * (7 - i)
	}
	return byte('0' + sum%10), nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
