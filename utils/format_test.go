package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatRupees(t *testing.T) {
	require.Equal(t, "₹150,000", FormatRupees(150000))
	require.Equal(t, "₹500", FormatRupees(500))
	require.Equal(t, "₹1,250.50", FormatRupees(1250.5))
}

func TestNormalizeUsername(t *testing.T) {
	require.Equal(t, "player_one", NormalizeUsername("player_one"))
	require.Equal(t, "Jose", NormalizeUsername("José"))
	require.Equal(t, "player", NormalizeUsername("   "))
	require.Equal(t, "player", NormalizeUsername(""))
}

func TestSequenceCode(t *testing.T) {
	require.Equal(t, "DA-000001", SequenceCode("DA", 1))
	require.Equal(t, "HA-000124", SequenceCode("HA", 124))
	require.Equal(t, "MA-1000000", SequenceCode("MA", 1000000))
}
