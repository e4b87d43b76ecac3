package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookRank_OrdersByPreference(t *testing.T) {
	assert.Less(t, BookRank("draftkings"), BookRank("fanduel"))
	assert.Less(t, BookRank("fanduel"), BookRank("betmgm"))
	assert.Less(t, BookRank("betmgm"), BookRank("caesars"))
	assert.Less(t, BookRank("caesars"), BookRank("pinnacle"))
}

func TestBookRank_UnknownBookSortsLast(t *testing.T) {
	assert.Greater(t, BookRank("some_new_book"), BookRank("pinnacle"))
}

func TestMarketLabel_PlayerPropIncludesStat(t *testing.T) {
	c := Candidate{Market: MarketPlayer, Stat: "REBOUNDS"}
	assert.Equal(t, "PLAYER_REBOUNDS", c.MarketLabel())
}

func TestMarketLabel_GameMarketIsBare(t *testing.T) {
	c := Candidate{Market: MarketSpread}
	assert.Equal(t, "SPREAD", c.MarketLabel())
}

func TestSport_Valid(t *testing.T) {
	assert.True(t, SportNBA.Valid())
	assert.False(t, Sport("CFL").Valid())
}
