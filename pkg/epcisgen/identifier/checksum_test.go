package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckDigit(t *testing.T) {
	tests := []struct {
		digits string
		want   byte
	}{
		{"0952198765432", '7'},
		{"952198123456", '3'},
		{"0952198123456", '3'},
		{"09521980000000001", '5'},
		{"0000000000000", '0'},
	}

	for _, tt := range tests {
		t.Run(tt.digits, func(t *testing.T) {
			got, err := CheckDigit(tt.digits)
			require.NoError(t, err)
			assert.Equal(t, string(tt.want), string(got))
			assert.True(t, VerifyCheckDigit(tt.digits+string(got)))
		})
	}
}

func TestCheckDigit_Invalid(t *testing.T) {
	_, err := CheckDigit("")
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = CheckDigit("12a4")
	assert.ErrorIs(t, err, ErrInvalidValue)

	assert.False(t, VerifyCheckDigit("09521987654320"))
	assert.False(t, VerifyCheckDigit("7"))
}

func TestContainerCheckDigit(t *testing.T) {
	cd, err := containerCheckDigit("CSQU305438")
	require.NoError(t, err)
	assert.Equal(t, "3", string(cd))

	_, err = containerCheckDigit("CSQU30543")
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = containerCheckDigit("csqu305438")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestLetterValue_SkipsMultiplesOfEleven(t *testing.T) {
	assert.Equal(t, 10, letterValue('A'))
	assert.Equal(t, 12, letterValue('B'))
	assert.Equal(t, 21, letterValue('K'))
	assert.Equal(t, 23, letterValue('L'))
	assert.Equal(t, 34, letterValue('V'))
	assert.Equal(t, 38, letterValue('Z'))
}

func TestIMOCheckDigit(t *testing.T) {
	cd, err := imoCheckDigit("907472")
	require.NoError(t, err)
	assert.Equal(t, "9", string(cd))

	_, err = imoCheckDigit("90747")
	assert.ErrorIs(t, err, ErrInvalidValue)
}
